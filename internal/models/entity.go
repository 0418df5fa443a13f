package models

import (
	"strings"
)

// EntityState mirrors a Home Assistant state object.
type EntityState struct {
	EntityID    string         `json:"entity_id"`
	State       string         `json:"state"`
	Attributes  map[string]any `json:"attributes"`
	LastChanged string         `json:"last_changed,omitempty"`
	LastUpdated string         `json:"last_updated,omitempty"`
}

// Domain is the part of the entity id before the first dot.
func (e EntityState) Domain() string {
	domain, _, _ := strings.Cut(e.EntityID, ".")
	return domain
}

// Unit returns the unit_of_measurement attribute, or "" when absent.
func (e EntityState) Unit() string {
	return e.stringAttr("unit_of_measurement")
}

// FriendlyName falls back to the entity id.
func (e EntityState) FriendlyName() string {
	if name := e.stringAttr("friendly_name"); name != "" {
		return name
	}
	return e.EntityID
}

// Available is false for the placeholder states HA reports for dropped sensors.
func (e EntityState) Available() bool {
	switch strings.ToLower(e.State) {
	case "", "unavailable", "unknown", "undefined":
		return false
	}
	return true
}

func (e EntityState) stringAttr(key string) string {
	if e.Attributes == nil {
		return ""
	}
	s, _ := e.Attributes[key].(string)
	return s
}

// PowerSource is a sensor that can feed the budget (unit W or kW).
type PowerSource struct {
	EntityID string `json:"entity_id"`
	Name     string `json:"name"`
	Unit     string `json:"unit"`
}
