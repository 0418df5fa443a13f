package service

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/pissten/SMARTi-EMS/internal/models"
	"github.com/pissten/SMARTi-EMS/internal/repository"
)

// MaxEventLimit caps LogFilter.Limit.
const MaxEventLimit = 1000

// Filter validation errors. Handlers map them to 400.
var (
	ErrInvalidTimeRange = errors.New("invalid time range: from must be <= to")
	ErrUnknownEventType = errors.New("unknown event type")
	ErrInvalidEntityID  = errors.New("entity_id must look like domain.object_id")
	ErrInvalidLimit     = fmt.Errorf("limit must be between 0 and %d", MaxEventLimit)
)

var knownEventTypes = []string{
	models.EventShed,
	models.EventRestore,
	models.EventSensorFault,
	models.EventStepFailed,
	models.EventConfigUpdated,
}

type EventLogService struct {
	eventRepo repository.EventRepo
}

func NewEventLogService(eventRepo repository.EventRepo) *EventLogService {
	return &EventLogService{eventRepo: eventRepo}
}

// List returns budget events in chronological order. With Limit set only the
// newest events are returned.
func (s *EventLogService) List(ctx context.Context, f LogFilter) ([]models.BudgetEvent, error) {
	q, err := f.query()
	if err != nil {
		return nil, err
	}
	return s.eventRepo.List(ctx, q)
}

// query validates f and converts it to a repository query with UTC bounds,
// an upper-case type and a trimmed entity id.
func (f LogFilter) query() (repository.EventQuery, error) {
	q := repository.EventQuery{
		From:     f.From,
		To:       f.To,
		Type:     strings.ToUpper(strings.TrimSpace(f.Type)),
		EntityID: strings.TrimSpace(f.EntityID),
		Limit:    f.Limit,
	}
	if !q.From.IsZero() {
		q.From = q.From.UTC()
	}
	if !q.To.IsZero() {
		q.To = q.To.UTC()
	}

	switch {
	case !q.From.IsZero() && !q.To.IsZero() && q.From.After(q.To):
		return repository.EventQuery{}, ErrInvalidTimeRange
	case q.Type != "" && !slices.Contains(knownEventTypes, q.Type):
		return repository.EventQuery{}, fmt.Errorf("%w: %s", ErrUnknownEventType, q.Type)
	case q.EntityID != "" && !validEntityID(q.EntityID):
		return repository.EventQuery{}, fmt.Errorf("%w: %q", ErrInvalidEntityID, q.EntityID)
	case q.Limit < 0 || q.Limit > MaxEventLimit:
		return repository.EventQuery{}, fmt.Errorf("%w: %d", ErrInvalidLimit, q.Limit)
	}
	return q, nil
}

// validEntityID accepts Home Assistant ids: a domain and an object id joined by one dot.
func validEntityID(id string) bool {
	domain, object, ok := strings.Cut(id, ".")
	return ok && domain != "" && object != "" && !strings.ContainsAny(id, " /")
}
