package service

import (
	"time"

	"github.com/pissten/SMARTi-EMS/internal/models"
)

// ConfigUpdate is a partial Configuration: nil fields keep the stored value.
type ConfigUpdate struct {
	PowerSourceEntity *string      `json:"power_source_entity,omitempty"`
	EnergyTargetKW    *float64     `json:"energy_target_kw,omitempty"`
	Mode              *models.Mode `json:"mode,omitempty"`
	Category1         *[]string    `json:"category1,omitempty"`
	Category2         *[]string    `json:"category2,omitempty"`
	Category3         *[]string    `json:"category3,omitempty"`
}

// Empty reports whether the update changes nothing.
func (u ConfigUpdate) Empty() bool {
	return u.PowerSourceEntity == nil && u.EnergyTargetKW == nil && u.Mode == nil &&
		u.Category1 == nil && u.Category2 == nil && u.Category3 == nil
}

// LogFilter selects budget events by time range, type and device.
type LogFilter struct {
	From     time.Time // inclusive; zero means no lower bound
	To       time.Time // inclusive; zero means no upper bound
	Type     string    // "", "SHED", "RESTORE", "SENSOR_FAULT", "STEP_FAILED", "CONFIG_UPDATED"
	EntityID string    // one device's history, e.g. "climate.office"
	Limit    int       // newest N events; 0 returns all
}
