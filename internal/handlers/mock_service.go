package handlers

import (
	"context"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"

	"github.com/pissten/SMARTi-EMS/internal/models"
	"github.com/pissten/SMARTi-EMS/internal/service"
)

// ---- Service Mocks ----

type mockAuth struct {
	signUpID      int
	signUpErr     error
	genTokenToken string
	genTokenErr   error
	parseID       int
	parseErr      error

	lastSignUpUsername string
	lastSignUpPassword string
	lastGenUsername    string
	lastGenPassword    string
	lastParseToken     string

	mu sync.Mutex // guards lastParseToken for handlers running on a server goroutine
}

func (m *mockAuth) SignUp(username, password string) (int, error) {
	m.lastSignUpUsername = username
	m.lastSignUpPassword = password
	return m.signUpID, m.signUpErr
}
func (m *mockAuth) GenerateToken(username, password string) (string, error) {
	m.lastGenUsername = username
	m.lastGenPassword = password
	return m.genTokenToken, m.genTokenErr
}
func (m *mockAuth) ParseToken(token string) (int, error) {
	m.mu.Lock()
	m.lastParseToken = token
	m.mu.Unlock()
	return m.parseID, m.parseErr
}

func (m *mockAuth) parsedToken() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastParseToken
}

type mockEngine struct {
	mu      sync.Mutex
	report  service.StepReport
	err     error
	calls   int
	ctxErr  error // ctx.Err() observed by the last call
	stepped chan struct{}
	release chan struct{} // when set, Step blocks until closed or ctx is done
}

func (m *mockEngine) Step(ctx context.Context) (service.StepReport, error) {
	m.mu.Lock()
	m.calls++
	m.ctxErr = ctx.Err()
	m.mu.Unlock()
	if m.stepped != nil {
		m.stepped <- struct{}{}
	}
	if m.release != nil {
		select {
		case <-m.release:
		case <-ctx.Done():
			return m.report, ctx.Err()
		}
	}
	return m.report, m.err
}

func (m *mockEngine) ReadDrawW(context.Context, models.Configuration) (float64, bool) {
	return m.report.DrawW, m.report.SensorOK
}

type mockConfiguration struct {
	cfg       models.Configuration
	getErr    error
	updateErr error
	last      service.ConfigUpdate
	updates   int
}

func (m *mockConfiguration) Get(context.Context) (models.Configuration, error) {
	return m.cfg, m.getErr
}

func (m *mockConfiguration) Update(_ context.Context, u service.ConfigUpdate) (models.Configuration, error) {
	m.updates++
	m.last = u
	if m.updateErr != nil {
		return models.Configuration{}, m.updateErr
	}
	if u.EnergyTargetKW != nil {
		m.cfg.EnergyTargetKW = *u.EnergyTargetKW
	}
	if u.Category1 != nil {
		m.cfg.Category1 = *u.Category1
	}
	return m.cfg, nil
}

type mockMonitoring struct {
	status models.Status
	err    error
}

func (m *mockMonitoring) GetStatus(context.Context) (models.Status, error) {
	return m.status, m.err
}

type mockEntities struct {
	states      []models.EntityState
	sources     []models.PowerSource
	err         error
	lastDomains []string
}

func (m *mockEntities) States(_ context.Context, domains []string) ([]models.EntityState, error) {
	m.lastDomains = domains
	return m.states, m.err
}

func (m *mockEntities) PowerSources(context.Context) ([]models.PowerSource, error) {
	return m.sources, m.err
}

type mockEventLog struct {
	resp []models.BudgetEvent
	err  error
	last service.LogFilter
}

func (m *mockEventLog) List(_ context.Context, f service.LogFilter) ([]models.BudgetEvent, error) {
	m.last = f
	return m.resp, m.err
}

// ---- Shared Test Helpers ----

func newTestRouter(s *service.Service) *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := NewHandler(s, nil, Options{AuthEnabled: true})
	return h.InitRoutes()
}

func authHeader(token string) http.Header {
	h := http.Header{}
	if token != "" {
		h.Set("Authorization", "Bearer "+token)
	}
	return h
}
