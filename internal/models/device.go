package models

import "strings"

// DeviceKind selects how a device is shed and restored.
type DeviceKind int

const (
	KindUnsupported DeviceKind = iota
	KindClimate
	KindSwitch
)

func (k DeviceKind) String() string {
	switch k {
	case KindClimate:
		return "climate"
	case KindSwitch:
		return "switch"
	default:
		return "unsupported"
	}
}

// Device is a category entry with its kind resolved once.
type Device struct {
	ID   string
	Kind DeviceKind
}

// ResolveDevice derives the kind from the entity id namespace ("climate.x", "switch.x").
func ResolveDevice(id string) Device {
	domain, _, ok := strings.Cut(id, ".")
	if !ok {
		return Device{ID: id, Kind: KindUnsupported}
	}
	switch domain {
	case "climate":
		return Device{ID: id, Kind: KindClimate}
	case "switch":
		return Device{ID: id, Kind: KindSwitch}
	default:
		return Device{ID: id, Kind: KindUnsupported}
	}
}

// HVACMode is a climate operating mode.
type HVACMode string

const (
	HVACOff      HVACMode = "off"
	HVACDry      HVACMode = "dry"
	HVACHeat     HVACMode = "heat"
	HVACAuto     HVACMode = "auto"
	HVACHeatCool HVACMode = "heat_cool"
	HVACFanOnly  HVACMode = "fan_only"
	HVACCool     HVACMode = "cool"
)

// ValidHVACMode reports whether m is a mode that may be reapplied on restore.
func ValidHVACMode(m HVACMode) bool {
	switch m {
	case HVACOff, HVACDry, HVACHeat, HVACAuto, HVACHeatCool, HVACFanOnly, HVACCool:
		return true
	}
	return false
}
