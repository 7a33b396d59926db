// Package port holds the definition of a physical port event
package port

import "time"

// EventType indicates the type of change to the line active state.
//
// Note that for active low lines a low line level results in a high active
// state.
type EventType int

const (
	_ EventType = iota
	// RisingEdge indicates an inactive to active event (low to high).
	RisingEdge
	// FallingEdge indicates an active to inactive event (high to low).
	FallingEdge
)

func (t EventType) String() string {
	switch t {
	case RisingEdge:
		return "rising"
	case FallingEdge:
		return "falling"
	default:
		return "unknown"
	}
}

// Event is one edge on the line.
type Event struct {
	// Timestamp indicates the time the event was detected.
	// It is monotonic, the epoch depends on the source of the event.
	Timestamp time.Duration
	// The type of state change event this structure represents.
	Type EventType
}
