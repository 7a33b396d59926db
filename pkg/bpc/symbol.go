package bpc

import (
	"fmt"
	"time"
)

// Symbol is the classified meaning of one inter-edge interval.
// Symbol0 to Symbol3 are data pulses, each carrying two bits of the frame.
type Symbol uint8

const (
	Symbol0 Symbol = iota
	Symbol1
	Symbol2
	Symbol3
	// SymbolSpace is the remainder of a second after a data pulse.
	SymbolSpace
	// SymbolMarker is the long gap that opens a frame (no pulse at second 0).
	SymbolMarker
	// SymbolInvalid is a dropout or a spurious edge.
	SymbolInvalid
)

// IsData reports whether s is a data pulse.
func (s Symbol) IsData() bool {
	return s <= Symbol3
}

// Value returns the two data bits carried by s.
func (s Symbol) Value() uint8 {
	if !s.IsData() {
		return 0
	}
	return uint8(s)
}

func (s Symbol) String() string {
	switch s {
	case Symbol0, Symbol1, Symbol2, Symbol3:
		return fmt.Sprintf("data(%d)", uint8(s))
	case SymbolSpace:
		return "space"
	case SymbolMarker:
		return "marker"
	default:
		return "invalid"
	}
}

const (
	// pulseUnit is the width step between two data levels (100ms, 200ms, 300ms, 400ms).
	pulseUnit = 100 * time.Millisecond
	// second is the nominal distance between two leading edges.
	second = time.Second
	// markerMin and markerMax are the nominal widths of the frame marker gap.
	markerMin = 1600 * time.Millisecond
	markerMax = 1900 * time.Millisecond

	// DefaultTolerance is the accepted deviation of the broadcast timing (20%).
	DefaultTolerance = 0.20
	// DefaultMaxRange is the widest interval accepted as a data pulse.
	DefaultMaxRange = 4 * pulseUnit * 6 / 5
	// DefaultSpaceRange is the widest interval accepted as the remainder of a second.
	DefaultSpaceRange = second * 6 / 5
	// DefaultMaxStartRange is the widest interval accepted as a frame marker.
	DefaultMaxStartRange = markerMax * 6 / 5
	// Dropout is the silence after which all decode state is discarded.
	Dropout = 3 * time.Second
)

// Thresholds holds the interval boundaries used by Classify.
// All boundaries are inclusive upper limits.
type Thresholds struct {
	// MaxRange separates data pulses from spaces.
	MaxRange time.Duration
	// SpaceRange separates spaces from frame markers.
	SpaceRange time.Duration
	// MaxStartRange separates frame markers from invalid intervals.
	MaxStartRange time.Duration
	// Tolerance is the accepted relative deviation of a full second (pulse + space).
	Tolerance float64
}

// DefaultThresholds returns the thresholds derived from DefaultTolerance.
func DefaultThresholds() Thresholds {
	return Thresholds{
		MaxRange:      DefaultMaxRange,
		SpaceRange:    DefaultSpaceRange,
		MaxStartRange: DefaultMaxStartRange,
		Tolerance:     DefaultTolerance,
	}
}

// Classify converts the elapsed time since the previous edge into a Symbol.
//  elapsed <= MaxRange                    data pulse, nearest 100ms level
//  MaxRange < elapsed <= SpaceRange       space
//  SpaceRange < elapsed <= MaxStartRange  frame marker
//  otherwise                              invalid
func (t Thresholds) Classify(elapsed time.Duration) Symbol {
	switch {
	case elapsed < 0:
		return SymbolInvalid
	case elapsed <= t.MaxRange:
		return dataLevel(elapsed)
	case elapsed <= t.SpaceRange:
		return SymbolSpace
	case elapsed <= t.MaxStartRange:
		return SymbolMarker
	default:
		return SymbolInvalid
	}
}

// dataLevel rounds a pulse width to the nearest 100ms level.
func dataLevel(width time.Duration) Symbol {
	switch {
	case width <= pulseUnit*3/2:
		return Symbol0
	case width <= pulseUnit*5/2:
		return Symbol1
	case width <= pulseUnit*7/2:
		return Symbol2
	default:
		return Symbol3
	}
}

// isSecond checks that a pulse and its following space add up to one second.
func (t Thresholds) isSecond(pulse, space time.Duration) bool {
	total := float64(pulse + space)
	return total >= float64(second)*(1-t.Tolerance) && total <= float64(second)*(1+t.Tolerance)
}
