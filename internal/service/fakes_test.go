package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/pissten/SMARTi-EMS/internal/gateway"
	"github.com/pissten/SMARTi-EMS/internal/models"
	"github.com/pissten/SMARTi-EMS/internal/repository"
)

// fakeEventRepo records appends and answers List from configured outputs.
type fakeEventRepo struct {
	mu sync.Mutex

	got repository.EventQuery

	events    []models.BudgetEvent
	err       error
	appendErr error
	appended  []models.BudgetEvent

	calls int
}

func (f *fakeEventRepo) List(_ context.Context, q repository.EventQuery) ([]models.BudgetEvent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.got = q
	return f.events, f.err
}

func (f *fakeEventRepo) Append(_ context.Context, e models.BudgetEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.appendErr != nil {
		return f.appendErr
	}
	f.appended = append(f.appended, e)
	return nil
}

func (f *fakeEventRepo) types() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, 0, len(f.appended))
	for _, e := range f.appended {
		out = append(out, e.Type)
	}
	return out
}

// fakeConfigRepo keeps the configuration in memory.
type fakeConfigRepo struct {
	mu      sync.Mutex
	cfg     models.Configuration
	loadErr error
	saveErr error
	saves   int
}

func newFakeConfigRepo(cfg models.Configuration) *fakeConfigRepo {
	cfg.Normalize()
	return &fakeConfigRepo{cfg: cfg}
}

func (f *fakeConfigRepo) Load(context.Context) (models.Configuration, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.loadErr != nil {
		return models.Configuration{}, f.loadErr
	}
	return f.cfg.Clone(), nil
}

func (f *fakeConfigRepo) Save(_ context.Context, c models.Configuration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.saveErr != nil {
		return f.saveErr
	}
	f.saves++
	f.cfg = c.Clone()
	return nil
}

// fakeStateRepo keeps every saved snapshot so tests can check persistence order.
type fakeStateRepo struct {
	mu      sync.Mutex
	state   models.RuntimeState
	history []models.RuntimeState
	saveErr error
}

func newFakeStateRepo(st models.RuntimeState) *fakeStateRepo {
	st.Normalize()
	return &fakeStateRepo{state: st}
}

func (f *fakeStateRepo) Load(context.Context) (models.RuntimeState, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state.Clone(), nil
}

func (f *fakeStateRepo) Save(_ context.Context, s models.RuntimeState) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.saveErr != nil {
		return f.saveErr
	}
	f.state = s.Clone()
	f.history = append(f.history, s.Clone())
	return nil
}

func (f *fakeStateRepo) current() models.RuntimeState {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state.Clone()
}

// serviceCall is one recorded CallService invocation.
type serviceCall struct {
	Domain  string
	Service string
	Entity  string
	Mode    string // hvac_mode, when present
}

func (c serviceCall) String() string {
	if c.Mode != "" {
		return fmt.Sprintf("%s.%s(%s,%s)", c.Domain, c.Service, c.Entity, c.Mode)
	}
	return fmt.Sprintf("%s.%s(%s)", c.Domain, c.Service, c.Entity)
}

// fakeGateway serves entity states and records commands. Power readings are
// popped from draws on every read of powerID; the last value repeats.
type fakeGateway struct {
	mu sync.Mutex

	powerID   string
	powerUnit string
	draws     []string
	reads     int

	states   map[string]*models.EntityState
	calls    []serviceCall
	failOn   string // entity id whose command fails
	readErr  error
	onRead   func()
	allState []models.EntityState
}

func newFakeGateway(powerID string, draws ...string) *fakeGateway {
	return &fakeGateway{powerID: powerID, powerUnit: "W", draws: draws, states: map[string]*models.EntityState{}}
}

var _ gateway.Gateway = (*fakeGateway)(nil)

func (g *fakeGateway) setState(id, state string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.states[id] = &models.EntityState{EntityID: id, State: state, Attributes: map[string]any{}}
}

func (g *fakeGateway) State(_ context.Context, id string) (*models.EntityState, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.onRead != nil {
		g.onRead()
	}
	if g.readErr != nil {
		return nil, g.readErr
	}
	if id == g.powerID && len(g.draws) > 0 {
		v := g.draws[0]
		if len(g.draws) > 1 {
			g.draws = g.draws[1:]
		}
		g.reads++
		return &models.EntityState{
			EntityID:   id,
			State:      v,
			Attributes: map[string]any{"unit_of_measurement": g.powerUnit},
		}, nil
	}
	st, ok := g.states[id]
	if !ok {
		return nil, gateway.ErrNotFound
	}
	cp := *st
	return &cp, nil
}

func (g *fakeGateway) States(context.Context) ([]models.EntityState, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.readErr != nil {
		return nil, g.readErr
	}
	return g.allState, nil
}

func (g *fakeGateway) CallService(_ context.Context, domain, service string, data map[string]any) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	id, _ := data["entity_id"].(string)
	if g.failOn != "" && id == g.failOn {
		return errors.New("service call rejected")
	}
	mode, _ := data["hvac_mode"].(string)
	g.calls = append(g.calls, serviceCall{Domain: domain, Service: service, Entity: id, Mode: mode})
	if mode != "" {
		if st, ok := g.states[id]; ok {
			st.State = mode
		}
	}
	return nil
}

func (g *fakeGateway) recorded() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]string, 0, len(g.calls))
	for _, c := range g.calls {
		out = append(out, c.String())
	}
	return out
}

// recordingSleeper counts pacing waits without sleeping.
type recordingSleeper struct {
	mu    sync.Mutex
	waits []time.Duration
}

func (s *recordingSleeper) Sleep(ctx context.Context, d time.Duration) error {
	s.mu.Lock()
	s.waits = append(s.waits, d)
	s.mu.Unlock()
	return ctx.Err()
}

func (s *recordingSleeper) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.waits)
}
