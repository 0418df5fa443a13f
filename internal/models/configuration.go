package models

import "slices"

// Mode is the tariff strategy selected by the operator. Only the default
// strategy drives behavior; the others are stored for forward compatibility.
type Mode string

const (
	ModeNettleie Mode = "nettleie"
	ModePris     Mode = "pris"
	ModeFlex     Mode = "flex"
)

// ValidMode reports whether m is one of the known strategies.
func ValidMode(m Mode) bool {
	switch m {
	case ModeNettleie, ModePris, ModeFlex:
		return true
	}
	return false
}

// Default values for a fresh Configuration document.
const (
	DefaultEnergyTargetKW = 10.0
	DefaultMode           = ModeNettleie
)

// Configuration is the operator-owned document read by every control cycle.
type Configuration struct {
	PowerSourceEntity string   `json:"power_source_entity"` // e.g. sensor.grid_import_power
	EnergyTargetKW    float64  `json:"energy_target_kw"`    // kW, >= 0
	Mode              Mode     `json:"mode"`                // nettleie | pris | flex
	Category1         []string `json:"category1"`           // index 0 is shed first
	Category2         []string `json:"category2"`
	Category3         []string `json:"category3"`
}

// DefaultConfiguration returns the schema default used when nothing is stored.
func DefaultConfiguration() Configuration {
	return Configuration{
		PowerSourceEntity: "",
		EnergyTargetKW:    DefaultEnergyTargetKW,
		Mode:              DefaultMode,
		Category1:         []string{},
		Category2:         []string{},
		Category3:         []string{},
	}
}

// TargetW is the budget in watts.
func (c Configuration) TargetW() float64 {
	return c.EnergyTargetKW * 1000.0
}

// Devices resolves category1 into typed devices, keeping priority order.
func (c Configuration) Devices() []Device {
	out := make([]Device, 0, len(c.Category1))
	for _, id := range c.Category1 {
		out = append(out, ResolveDevice(id))
	}
	return out
}

// Clone returns a deep copy so callers never share slices across snapshots.
func (c Configuration) Clone() Configuration {
	c.Category1 = cloneList(c.Category1)
	c.Category2 = cloneList(c.Category2)
	c.Category3 = cloneList(c.Category3)
	return c
}

// Normalize fills nil lists and an empty mode with defaults.
func (c *Configuration) Normalize() {
	if c.Mode == "" {
		c.Mode = DefaultMode
	}
	if c.Category1 == nil {
		c.Category1 = []string{}
	}
	if c.Category2 == nil {
		c.Category2 = []string{}
	}
	if c.Category3 == nil {
		c.Category3 = []string{}
	}
}

func cloneList(in []string) []string {
	if in == nil {
		return []string{}
	}
	return slices.Clone(in)
}
