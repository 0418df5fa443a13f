package service

import (
	"context"
	"time"

	"github.com/pissten/SMARTi-EMS/internal/gateway"
	"github.com/pissten/SMARTi-EMS/internal/logger"
	"github.com/pissten/SMARTi-EMS/internal/metrics"
	"github.com/pissten/SMARTi-EMS/internal/models"
	"github.com/pissten/SMARTi-EMS/internal/repository"
)

type Authorization interface {
	SignUp(username, password string) (int, error)
	GenerateToken(username, password string) (string, error)
	ParseToken(accessToken string) (int, error)
}

// Engine runs control cycles on demand.
type Engine interface {
	Step(ctx context.Context) (StepReport, error)
	ReadDrawW(ctx context.Context, cfg models.Configuration) (float64, bool)
}

// Configuration reads and edits the operator-owned document.
type Configuration interface {
	Get(ctx context.Context) (models.Configuration, error)
	Update(ctx context.Context, u ConfigUpdate) (models.Configuration, error)
}

// Monitoring exposes the live budget view.
type Monitoring interface {
	GetStatus(ctx context.Context) (models.Status, error)
}

// Entities browses the device gateway for configuration pickers.
type Entities interface {
	States(ctx context.Context, domains []string) ([]models.EntityState, error)
	PowerSources(ctx context.Context) ([]models.PowerSource, error)
}

// EventLog exposes append-only logs with filtering access.
type EventLog interface {
	List(ctx context.Context, f LogFilter) ([]models.BudgetEvent, error)
}

// Scheduler runs the engine periodically. Stop via context cancellation.
type Scheduler interface {
	Run(ctx context.Context, interval time.Duration)
}

// Service aggregates all sub-services.
type Service struct {
	Engine
	Configuration
	Monitoring
	Entities
	EventLog
	Scheduler
	Authorization
}

// Options configure NewService.
type Options struct {
	Engine  EngineOptions
	Auth    AuthOptions
	Metrics *metrics.Metrics
	Log     *logger.Logger
}

// NewService wires repositories and the device gateway into concrete services.
func NewService(repos *repository.Repository, gw gateway.Gateway, opts Options) *Service {
	if opts.Engine.Metrics == nil {
		opts.Engine.Metrics = opts.Metrics
	}
	if opts.Engine.Log == nil {
		opts.Engine.Log = opts.Log
	}
	engine := NewEngineService(repos.ConfigRepo, repos.StateRepo, repos.EventRepo, gw, opts.Engine)
	return &Service{
		Engine:        engine,
		Configuration: NewConfigService(repos.ConfigRepo, repos.EventRepo, opts.Log),
		Monitoring:    NewMonitoringService(repos.ConfigRepo, repos.StateRepo, engine),
		Entities:      NewEntitiesService(gw),
		EventLog:      NewEventLogService(repos.EventRepo),
		Scheduler:     NewSchedulerService(engine, repos.EventRepo, opts.Metrics, opts.Log),
		Authorization: NewAuthService(repos.Auth, opts.Auth),
	}
}
