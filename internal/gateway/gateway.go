// Package gateway talks to Home Assistant: it reads entity states and issues
// service calls that actuate devices.
package gateway

import (
	"context"
	"errors"

	"github.com/pissten/SMARTi-EMS/internal/models"
)

// ErrNotFound is returned when Home Assistant has no state for an entity.
var ErrNotFound = errors.New("entity not found")

// Gateway is the device gateway used by the control engine and the operator API.
type Gateway interface {
	// State returns the current state of one entity.
	State(ctx context.Context, entityID string) (*models.EntityState, error)
	// States returns every known entity.
	States(ctx context.Context) ([]models.EntityState, error)
	// CallService invokes domain.service with data (entity_id, hvac_mode, ...).
	CallService(ctx context.Context, domain, service string, data map[string]any) error
}
