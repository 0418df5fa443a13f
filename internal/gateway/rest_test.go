package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordedCall struct {
	Path string
	Body map[string]any
}

func fakeHomeAssistant(t *testing.T, calls *[]recordedCall) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/states/sensor.power", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		_, _ = w.Write([]byte(`{"entity_id":"sensor.power","state":"3.2","attributes":{"unit_of_measurement":"kW"}}`))
	})
	mux.HandleFunc("GET /api/states", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`[
			{"entity_id":"sensor.power","state":"3.2","attributes":{"unit_of_measurement":"kW"}},
			{"entity_id":"switch.boiler","state":"on","attributes":{}}
		]`))
	})
	mux.HandleFunc("POST /api/services/{domain}/{service}", func(w http.ResponseWriter, r *http.Request) {
		if r.PathValue("domain") == "broken" {
			http.Error(w, "boom", http.StatusInternalServerError)
			return
		}
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		*calls = append(*calls, recordedCall{Path: r.URL.Path, Body: body})
		_, _ = w.Write([]byte(`[]`))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestRESTClient_State(t *testing.T) {
	srv := fakeHomeAssistant(t, nil)
	c := NewRESTClient(srv.URL+"/", "secret", time.Second)

	st, err := c.State(context.Background(), "sensor.power")
	require.NoError(t, err)
	assert.Equal(t, "3.2", st.State)
	assert.Equal(t, "kW", st.Unit())
}

func TestRESTClient_StateNotFound(t *testing.T) {
	srv := fakeHomeAssistant(t, nil)
	c := NewRESTClient(srv.URL, "secret", time.Second)

	_, err := c.State(context.Background(), "sensor.missing")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestRESTClient_States(t *testing.T) {
	srv := fakeHomeAssistant(t, nil)
	c := NewRESTClient(srv.URL, "secret", time.Second)

	states, err := c.States(context.Background())
	require.NoError(t, err)
	require.Len(t, states, 2)
	assert.Equal(t, "switch", states[1].Domain())
}

func TestRESTClient_CallService(t *testing.T) {
	var calls []recordedCall
	srv := fakeHomeAssistant(t, &calls)
	c := NewRESTClient(srv.URL, "secret", time.Second)

	err := c.CallService(context.Background(), "climate", "set_hvac_mode",
		map[string]any{"entity_id": "climate.living", "hvac_mode": "off"})
	require.NoError(t, err)

	require.Len(t, calls, 1)
	assert.Equal(t, "/api/services/climate/set_hvac_mode", calls[0].Path)
	assert.Equal(t, "climate.living", calls[0].Body["entity_id"])
	assert.Equal(t, "off", calls[0].Body["hvac_mode"])
}

func TestRESTClient_CallServiceFailure(t *testing.T) {
	srv := fakeHomeAssistant(t, nil)
	c := NewRESTClient(srv.URL, "secret", time.Second)

	err := c.CallService(context.Background(), "broken", "turn_off", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 500")
	assert.Contains(t, err.Error(), "boom")
}

func TestRESTClient_Unreachable(t *testing.T) {
	c := NewRESTClient("http://127.0.0.1:1", "", 200*time.Millisecond)
	_, err := c.State(context.Background(), "sensor.power")
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrNotFound))
}
