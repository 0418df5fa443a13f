package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/pissten/SMARTi-EMS/internal/models"
)

// scriptedStepper returns the scripted results in order, then succeeds.
type scriptedStepper struct {
	mu      sync.Mutex
	calls   int
	script  []func() (StepReport, error)
	stepped chan struct{}
}

func (s *scriptedStepper) Step(context.Context) (StepReport, error) {
	s.mu.Lock()
	i := s.calls
	s.calls++
	s.mu.Unlock()
	defer func() { s.stepped <- struct{}{} }()
	if i < len(s.script) {
		return s.script[i]()
	}
	return StepReport{Action: ActionNone}, nil
}

func waitSteps(t *testing.T, ch <-chan struct{}, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		select {
		case <-ch:
		case <-time.After(2 * time.Second):
			t.Fatalf("timed out waiting for step %d", i+1)
		}
	}
}

func TestScheduler_StepsImmediatelyAndContinuesAfterFailures(t *testing.T) {
	stepper := &scriptedStepper{
		stepped: make(chan struct{}, 16),
		script: []func() (StepReport, error){
			func() (StepReport, error) { return StepReport{}, errors.New("service call rejected") },
			func() (StepReport, error) { panic("nil map write") },
			func() (StepReport, error) { return StepReport{Action: ActionShed}, nil },
		},
	}
	events := &fakeEventRepo{}
	sched := NewSchedulerService(stepper, events, nil, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		sched.Run(ctx, 10*time.Millisecond)
		close(done)
	}()

	waitSteps(t, stepper.stepped, 4)
	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("scheduler did not stop after cancel")
	}

	types := events.types()
	if len(types) != 2 || types[0] != models.EventStepFailed || types[1] != models.EventStepFailed {
		t.Fatalf("expected two STEP_FAILED events, got %v", types)
	}
	if stepper.calls < 4 {
		t.Fatalf("expected at least 4 steps, got %d", stepper.calls)
	}
}

func TestScheduler_FirstStepIsImmediate(t *testing.T) {
	stepper := &scriptedStepper{stepped: make(chan struct{}, 4)}
	sched := NewSchedulerService(stepper, nil, nil, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go sched.Run(ctx, time.Hour)

	waitSteps(t, stepper.stepped, 1)
}
