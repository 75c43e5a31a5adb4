package models

import (
	"encoding/json"
	"time"
)

// WasteContainer is the live record a container's current states are read from.
type WasteContainer struct {
	ID           string    `json:"id" db:"id"`
	PublicNumber string    `json:"public_number" db:"public_number"`
	States       StateSet  `json:"states" db:"states"`
	UpdatedAt    time.Time `json:"updated_at" db:"updated_at"`
}

// Marker returns the state that decides the container's map marker and its
// color. It reports false when the container has no states.
func (c WasteContainer) Marker() (ContainerState, string, bool) {
	state, ok := c.States.Primary()
	if !ok {
		return "", "", false
	}
	color, err := ColorOf(state)
	if err != nil {
		return "", "", false
	}
	return state, color, true
}

type containerAlias WasteContainer

// MarshalJSON adds the derived marker fields; decoding ignores them.
func (c WasteContainer) MarshalJSON() ([]byte, error) {
	out := struct {
		containerAlias
		PrimaryState ContainerState `json:"primary_state,omitempty"`
		MarkerColor  string         `json:"marker_color,omitempty"`
	}{containerAlias: containerAlias(c)}

	if state, color, ok := c.Marker(); ok {
		out.PrimaryState = state
		out.MarkerColor = color
	}
	return json.Marshal(out)
}
