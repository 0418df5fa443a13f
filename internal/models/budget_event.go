package models

import "time"

// Event types written to the budget event log.
const (
	EventShed          = "SHED"
	EventRestore       = "RESTORE"
	EventSensorFault   = "SENSOR_FAULT"
	EventStepFailed    = "STEP_FAILED"
	EventConfigUpdated = "CONFIG_UPDATED"
)

// BudgetEvent is a single log entry.
type BudgetEvent struct {
	EventID     string    `json:"event_id"`
	OccurredAt  time.Time `json:"occurred_at"`
	Type        string    `json:"type"` // SHED | RESTORE | SENSOR_FAULT | STEP_FAILED | CONFIG_UPDATED
	EntityID    string    `json:"entity_id,omitempty"`
	Description string    `json:"description"` // human-readable
	Metadata    any       `json:"metadata,omitempty"`
}
