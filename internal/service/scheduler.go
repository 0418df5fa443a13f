package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/pissten/SMARTi-EMS/internal/logger"
	"github.com/pissten/SMARTi-EMS/internal/metrics"
	"github.com/pissten/SMARTi-EMS/internal/models"
	"github.com/pissten/SMARTi-EMS/internal/repository"
)

// DefaultLoopInterval is the wait between the end of one cycle and the next.
const DefaultLoopInterval = 30 * time.Second

// Stepper runs one control cycle.
type Stepper interface {
	Step(ctx context.Context) (StepReport, error)
}

// SchedulerService drives the engine periodically.
type SchedulerService struct {
	engine    Stepper
	eventRepo repository.EventRepo
	metrics   *metrics.Metrics
	log       *logger.Logger
}

func NewSchedulerService(engine Stepper, eventRepo repository.EventRepo, m *metrics.Metrics, log *logger.Logger) *SchedulerService {
	if log == nil {
		log = logger.Nop()
	}
	return &SchedulerService{engine: engine, eventRepo: eventRepo, metrics: m, log: log}
}

// Run steps once immediately and then interval after each cycle ends, until
// ctx is canceled.
// A failing or panicking cycle is logged and the loop continues.
func (s *SchedulerService) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = DefaultLoopInterval
	}
	s.log.Infow("scheduler_started", "interval", interval)

	s.runOnce(ctx)

	t := time.NewTimer(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			s.log.Infow("scheduler_stopped")
			return
		case <-t.C:
			s.runOnce(ctx)
			t.Reset(interval)
		}
	}
}

func (s *SchedulerService) runOnce(ctx context.Context) {
	var err error
	var rep StepReport
	func() {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("panic in control cycle: %v", r)
				s.metrics.StepFailed()
			}
		}()
		rep, err = s.engine.Step(ctx)
	}()

	if err != nil {
		if ctx.Err() != nil {
			s.log.Infow("step_interrupted", "err", err)
			return
		}
		s.log.Errorw("step_failed", "err", err)
		s.recordFailure(ctx, err)
		return
	}

	s.log.Debugw("step_completed", "action", rep.Action, "gap_w", rep.GapW,
		"shed", len(rep.Shed), "restored", len(rep.Restored), "duration", rep.Duration)
}

func (s *SchedulerService) recordFailure(ctx context.Context, cause error) {
	if s.eventRepo == nil {
		return
	}
	err := s.eventRepo.Append(ctx, models.BudgetEvent{
		EventID:     uuid.NewString(),
		OccurredAt:  time.Now().UTC(),
		Type:        models.EventStepFailed,
		Description: cause.Error(),
	})
	if err != nil {
		s.log.Errorw("event_append_failed", "type", models.EventStepFailed, "err", err)
	}
}
