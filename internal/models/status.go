package models

import "time"

// Status is the live view served to operators.
type Status struct {
	DynamicPowerW  float64             `json:"dynamic_power_w"`
	EnergyTargetKW float64             `json:"energy_target_kw"`
	GapW           float64             `json:"gap_w"`     // last persisted gap
	SensorOK       bool                `json:"sensor_ok"` // false when the draw fell back to 0
	Mode           Mode                `json:"mode"`
	DevicesOff     []string            `json:"devices_off"`
	HVACRestore    map[string]HVACMode `json:"hvac_restore"`
	ObservedAt     time.Time           `json:"observed_at"`
}
