package models

import (
	"maps"
	"slices"
)

// RuntimeState is the engine-owned bookkeeping persisted after every action.
type RuntimeState struct {
	HVACRestore map[string]HVACMode `json:"hvac_restore"` // climate id -> mode to reapply
	LastGapW    float64             `json:"last_gap_w"`   // draw - target, W
	DevicesOff  []string            `json:"devices_off"`  // shed by the engine, insertion ordered
}

// DefaultRuntimeState is the empty state of a first run.
func DefaultRuntimeState() RuntimeState {
	return RuntimeState{
		HVACRestore: map[string]HVACMode{},
		LastGapW:    0,
		DevicesOff:  []string{},
	}
}

// Normalize replaces nil collections so the document always serializes as {} / [].
func (s *RuntimeState) Normalize() {
	if s.HVACRestore == nil {
		s.HVACRestore = map[string]HVACMode{}
	}
	if s.DevicesOff == nil {
		s.DevicesOff = []string{}
	}
}

// Clone returns a deep copy.
func (s RuntimeState) Clone() RuntimeState {
	out := RuntimeState{
		HVACRestore: maps.Clone(s.HVACRestore),
		LastGapW:    s.LastGapW,
		DevicesOff:  slices.Clone(s.DevicesOff),
	}
	out.Normalize()
	return out
}

// IsOff reports whether id was shed by the engine.
func (s *RuntimeState) IsOff(id string) bool {
	return slices.Contains(s.DevicesOff, id)
}

// MarkOff appends id to DevicesOff unless it is already present.
func (s *RuntimeState) MarkOff(id string) {
	if !s.IsOff(id) {
		s.DevicesOff = append(s.DevicesOff, id)
	}
}

// ClearOff removes id from DevicesOff and drops any stored restore mode.
func (s *RuntimeState) ClearOff(id string) {
	s.DevicesOff = slices.DeleteFunc(s.DevicesOff, func(v string) bool { return v == id })
	delete(s.HVACRestore, id)
}
