package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/pissten/SMARTi-EMS/internal/models"
	"github.com/pissten/SMARTi-EMS/internal/service"
)

func doRequest(r http.Handler, method, path, body string) *httptest.ResponseRecorder {
	var rd *bytes.Buffer
	if body != "" {
		rd = bytes.NewBufferString(body)
	} else {
		rd = &bytes.Buffer{}
	}
	req := httptest.NewRequest(method, path, rd)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Authorization", "Bearer valid")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestHealth(t *testing.T) {
	r := newTestRouter(&service.Service{})
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), `"ok"`) {
		t.Fatalf("health: %d %s", w.Code, w.Body.String())
	}
}

func TestGetStatus(t *testing.T) {
	mon := &mockMonitoring{status: models.Status{
		DynamicPowerW:  7200,
		EnergyTargetKW: 5,
		GapW:           2200,
		SensorOK:       true,
		Mode:           models.ModeNettleie,
		DevicesOff:     []string{"switch.boiler"},
	}}
	r := newTestRouter(&service.Service{Authorization: &mockAuth{}, Monitoring: mon})

	w := doRequest(r, http.MethodGet, "/api/v1/status", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", w.Code, w.Body.String())
	}
	var got models.Status
	if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.GapW != 2200 || len(got.DevicesOff) != 1 || got.DevicesOff[0] != "switch.boiler" {
		t.Fatalf("unexpected status: %+v", got)
	}

	mon.err = errors.New("store down")
	w = doRequest(r, http.MethodGet, "/api/v1/status", "")
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", w.Code)
	}
	if strings.Contains(w.Body.String(), "store down") {
		t.Fatalf("internal error leaked: %s", w.Body.String())
	}
}

func TestConfigHandlers(t *testing.T) {
	cfgSvc := &mockConfiguration{cfg: models.DefaultConfiguration()}
	r := newTestRouter(&service.Service{Authorization: &mockAuth{}, Configuration: cfgSvc})

	w := doRequest(r, http.MethodGet, "/api/v1/config", "")
	if w.Code != http.StatusOK {
		t.Fatalf("get config status=%d", w.Code)
	}
	var got models.Configuration
	_ = json.Unmarshal(w.Body.Bytes(), &got)
	if got.EnergyTargetKW != 10 || got.Mode != models.ModeNettleie {
		t.Fatalf("unexpected config: %+v", got)
	}

	w = doRequest(r, http.MethodPost, "/api/v1/config", `{"energy_target_kw":7.5,"category1":["climate.living","switch.boiler"]}`)
	if w.Code != http.StatusOK {
		t.Fatalf("post config status=%d body=%s", w.Code, w.Body.String())
	}
	if cfgSvc.last.EnergyTargetKW == nil || *cfgSvc.last.EnergyTargetKW != 7.5 {
		t.Fatalf("target not forwarded: %+v", cfgSvc.last)
	}
	if cfgSvc.last.Mode != nil || cfgSvc.last.PowerSourceEntity != nil {
		t.Fatalf("omitted fields must stay nil: %+v", cfgSvc.last)
	}
	var out struct {
		OK     bool                 `json:"ok"`
		Config models.Configuration `json:"config"`
	}
	_ = json.Unmarshal(w.Body.Bytes(), &out)
	if !out.OK || len(out.Config.Category1) != 2 {
		t.Fatalf("unexpected response: %+v", out)
	}
}

func TestUpdateConfig_Errors(t *testing.T) {
	cases := []struct {
		name      string
		body      string
		updateErr error
		want      int
	}{
		{"malformed_json", `{"energy_target_kw":`, nil, http.StatusBadRequest},
		{"wrong_type", `{"energy_target_kw":"lots"}`, nil, http.StatusBadRequest},
		{"invalid_config", `{"energy_target_kw":-1}`, fmt.Errorf("%w: energy_target_kw must be >= 0", service.ErrInvalidConfig), http.StatusBadRequest},
		{"store_failure", `{"energy_target_kw":1}`, errors.New("disk full"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfgSvc := &mockConfiguration{updateErr: tc.updateErr}
			r := newTestRouter(&service.Service{Authorization: &mockAuth{}, Configuration: cfgSvc})
			w := doRequest(r, http.MethodPost, "/api/v1/config", tc.body)
			if w.Code != tc.want {
				t.Fatalf("want %d, got %d (%s)", tc.want, w.Code, w.Body.String())
			}
		})
	}
}

func TestStep_Sync(t *testing.T) {
	eng := &mockEngine{report: service.StepReport{
		DrawW:   9000,
		TargetW: 5000,
		GapW:    -500,
		Action:  service.ActionShed,
		Shed:    []string{"climate.living"},
	}}
	r := newTestRouter(&service.Service{Authorization: &mockAuth{}, Engine: eng})

	w := doRequest(r, http.MethodPost, "/api/v1/step", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", w.Code, w.Body.String())
	}
	var out struct {
		OK     bool               `json:"ok"`
		Report service.StepReport `json:"report"`
	}
	_ = json.Unmarshal(w.Body.Bytes(), &out)
	if !out.OK || out.Report.Action != service.ActionShed || len(out.Report.Shed) != 1 {
		t.Fatalf("unexpected response: %+v", out)
	}
	if eng.calls != 1 {
		t.Fatalf("expected one step, got %d", eng.calls)
	}
}

func TestStep_DetachedFromRequestContext(t *testing.T) {
	eng := &mockEngine{}
	r := newTestRouter(&service.Service{Authorization: &mockAuth{}, Engine: eng})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/step", nil)
	req.Header.Set("Authorization", "Bearer valid")
	ctx, cancel := context.WithCancel(req.Context())
	cancel()
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req.WithContext(ctx))

	if w.Code != http.StatusOK {
		t.Fatalf("status=%d", w.Code)
	}
	if eng.ctxErr != nil {
		t.Fatalf("step observed a cancelled context: %v", eng.ctxErr)
	}
}

func TestStep_Failure(t *testing.T) {
	eng := &mockEngine{err: errors.New("switch.turn_off switch.boiler: 500")}
	r := newTestRouter(&service.Service{Authorization: &mockAuth{}, Engine: eng})

	w := doRequest(r, http.MethodPost, "/api/v1/step", "")
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", w.Code)
	}
}

func TestStep_Async(t *testing.T) {
	eng := &mockEngine{stepped: make(chan struct{}, 1)}
	r := newTestRouter(&service.Service{Authorization: &mockAuth{}, Engine: eng})

	w := doRequest(r, http.MethodPost, "/api/v1/step?async=true", "")
	if w.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d", w.Code)
	}
	select {
	case <-eng.stepped:
	case <-time.After(2 * time.Second):
		t.Fatal("background step did not run")
	}
}

func TestListEntities(t *testing.T) {
	ents := &mockEntities{states: []models.EntityState{
		{EntityID: "climate.living", State: "heat"},
		{EntityID: "switch.boiler", State: "on"},
	}}
	r := newTestRouter(&service.Service{Authorization: &mockAuth{}, Entities: ents})

	w := doRequest(r, http.MethodGet, "/api/v1/entities?domain=climate,switch", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", w.Code, w.Body.String())
	}
	if len(ents.lastDomains) != 2 || ents.lastDomains[0] != "climate" || ents.lastDomains[1] != "switch" {
		t.Fatalf("domains not split: %v", ents.lastDomains)
	}
	var got []models.EntityState
	_ = json.Unmarshal(w.Body.Bytes(), &got)
	if len(got) != 2 {
		t.Fatalf("unexpected entities: %+v", got)
	}

	w = doRequest(r, http.MethodGet, "/api/v1/entities", "")
	if w.Code != http.StatusOK || ents.lastDomains != nil {
		t.Fatalf("no domain filter expected, got %v", ents.lastDomains)
	}

	ents.err = errors.New("home assistant unreachable")
	w = doRequest(r, http.MethodGet, "/api/v1/entities", "")
	if w.Code != http.StatusBadGateway {
		t.Fatalf("expected 502, got %d", w.Code)
	}
}

func TestPowerSources(t *testing.T) {
	ents := &mockEntities{sources: []models.PowerSource{
		{EntityID: "sensor.grid_import_power", Name: "Grid import", Unit: "kW"},
	}}
	r := newTestRouter(&service.Service{Authorization: &mockAuth{}, Entities: ents})

	w := doRequest(r, http.MethodGet, "/api/v1/power-sources", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d", w.Code)
	}
	var got []models.PowerSource
	_ = json.Unmarshal(w.Body.Bytes(), &got)
	if len(got) != 1 || got[0].Unit != "kW" {
		t.Fatalf("unexpected sources: %+v", got)
	}
}

func TestIndexPage(t *testing.T) {
	mon := &mockMonitoring{status: models.Status{DynamicPowerW: 4321, DevicesOff: []string{"switch.boiler"}}}
	cfg := models.DefaultConfiguration()
	cfg.Category1 = []string{"climate.living", "switch.boiler"}
	r := newTestRouter(&service.Service{
		Monitoring:    mon,
		Configuration: &mockConfiguration{cfg: cfg},
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", w.Code, w.Body.String())
	}
	body := w.Body.String()
	for _, want := range []string{"4321 W", "climate.living", "switch.boiler (off)", "sensor unavailable"} {
		if !strings.Contains(body, want) {
			t.Fatalf("index missing %q:\n%s", want, body)
		}
	}
}

func TestMetricsRoute(t *testing.T) {
	gin.SetMode(gin.TestMode)
	metricsHandler := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("ems_devices_off 1\n"))
	})

	r := NewHandler(&service.Service{}, nil, Options{Metrics: metricsHandler}).InitRoutes()
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "ems_devices_off") {
		t.Fatalf("metrics: %d %s", w.Code, w.Body.String())
	}

	r = NewHandler(&service.Service{}, nil, Options{}).InitRoutes()
	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404 without metrics, got %d", w.Code)
	}
}

func TestAPIWithoutAuth(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mon := &mockMonitoring{status: models.Status{SensorOK: true}}
	r := NewHandler(&service.Service{Monitoring: mon}, nil, Options{}).InitRoutes()

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/status", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("expected open API with auth disabled, got %d", w.Code)
	}
}

func TestAPIRequiresTokenWhenAuthEnabled(t *testing.T) {
	r := newTestRouter(&service.Service{Authorization: &mockAuth{}, Monitoring: &mockMonitoring{}})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/status", nil))
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", w.Code)
	}
}

func TestStep_AsyncTrackedUntilDone(t *testing.T) {
	gin.SetMode(gin.TestMode)
	eng := &mockEngine{stepped: make(chan struct{}, 1), release: make(chan struct{})}
	h := NewHandler(&service.Service{Engine: eng}, nil, Options{})
	r := h.InitRoutes()

	w := doRequest(r, http.MethodPost, "/api/v1/step?async=1", "")
	if w.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d", w.Code)
	}
	<-eng.stepped

	waited := make(chan struct{})
	go func() {
		h.Wait()
		close(waited)
	}()
	select {
	case <-waited:
		t.Fatal("Wait returned while the cycle was still running")
	case <-time.After(50 * time.Millisecond):
	}

	close(eng.release)
	select {
	case <-waited:
	case <-time.After(2 * time.Second):
		t.Fatal("Wait did not return after the cycle finished")
	}
}

func TestStep_AsyncStopsWithBackgroundContext(t *testing.T) {
	gin.SetMode(gin.TestMode)
	bg, cancel := context.WithCancel(context.Background())
	eng := &mockEngine{stepped: make(chan struct{}, 1), release: make(chan struct{})}
	h := NewHandler(&service.Service{Engine: eng}, nil, Options{Background: bg})
	r := h.InitRoutes()

	w := doRequest(r, http.MethodPost, "/api/v1/step?async=true", "")
	if w.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d", w.Code)
	}
	<-eng.stepped

	cancel()
	done := make(chan struct{})
	go func() {
		h.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("background cycle ignored shutdown")
	}
}
