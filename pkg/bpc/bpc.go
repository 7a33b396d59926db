// Package bpc is a decoder for the BPC longwave time code (68.5 kHz, China).
//
// BPC reduces the carrier at the start of every second. The width of the
// reduction (100ms, 200ms, 300ms or 400ms) carries two bits, second 0 of every
// 20 second frame carries no pulse at all. The resulting long gap marks the
// start of a frame of 19 data symbols.
//
// The link layer calls Handle.IRQHandler on both edges of the demodulated
// signal. The handle classifies the time between two edges, assembles the
// symbols into a frame and hands every completed frame to Link.Receive.
package bpc

import (
	"errors"
	"fmt"
	"sync/atomic"
	"time"
)

var (
	ErrAlreadyInitialized = errors.New("bpc: handle already initialized")
	ErrNotInitialized     = errors.New("bpc: handle not initialized")
	ErrLinkMissing        = errors.New("bpc: link missing")
)

const (
	// unsynchronized waits for a frame marker.
	unsynchronized stateType = iota
	// synchronizing fills the frame buffer between two frame markers.
	synchronizing
)

// stateType represents the state of the frame assembler.
type stateType int

// DefaultInvalidLimit is the count of consecutive invalid symbols tolerated before the trace is lost.
const DefaultInvalidLimit = 8

// DefaultLinkDelay is the settle time in ms after the link hardware is initialized.
const DefaultLinkDelay = 10

// Config holds the decoder configuration of a Handle.
type Config struct {
	Thresholds Thresholds
	// InvalidLimit is the count of consecutive invalid symbols until the trace is lost.
	InvalidLimit int
	// LinkDelay is the settle time in ms after Link.Init.
	LinkDelay uint32
	// DebugPrint receives human readable trace messages, it may be nil.
	DebugPrint func(format string, v ...interface{})
}

// DefaultConfig returns the configuration used for zero fields of a Config.
func DefaultConfig() Config {
	return Config{
		Thresholds:   DefaultThresholds(),
		InvalidLimit: DefaultInvalidLimit,
		LinkDelay:    DefaultLinkDelay,
	}
}

// Snapshot is an eventually consistent view of the decode state.
type Snapshot struct {
	Inited bool `json:"inited"`
	// TraceValid is set while frame markers are tracked.
	TraceValid bool `json:"traceValid"`
	// DecodeValid is set while the frame buffer holds a complete frame.
	DecodeValid bool `json:"decodeValid"`
	// Offset is the count of symbols of the frame in progress.
	Offset int `json:"offset"`
}

// Handle owns the decode state of one receiver.
// IRQHandler is the only mutator of the decode state. Init and Deinit must
// not be called concurrently with each other or with IRQHandler.
type Handle struct {
	config Config
	link   Link

	inited      atomic.Bool
	traceValid  atomic.Bool
	decodeValid atomic.Bool
	published   atomic.Int32

	// state contains the current assembler state (unsynchronized/synchronizing).
	state stateType
	// frame holds the symbols of the frame in progress.
	frame [FrameLength]Symbol
	// offset is the write position in frame.
	offset int
	// corrupt is set if a symbol of the frame in progress was lost.
	corrupt bool

	// pending is a data pulse waiting for the space that completes its second.
	pending      Symbol
	pendingWidth time.Duration
	hasPending   bool

	// invalidCount is the count of consecutive invalid symbols.
	invalidCount int
	// lastTime is the timestamp of the previous edge.
	lastTime time.Duration
	// markerTime is the timestamp of the frame marker that opened the frame in progress.
	markerTime time.Duration
}

// New returns an uninitialized handle, zero fields of config are replaced by defaults.
func New(config Config) *Handle {
	d := DefaultConfig()
	if config.Thresholds.MaxRange == 0 {
		config.Thresholds.MaxRange = d.Thresholds.MaxRange
	}
	if config.Thresholds.SpaceRange == 0 {
		config.Thresholds.SpaceRange = d.Thresholds.SpaceRange
	}
	if config.Thresholds.MaxStartRange == 0 {
		config.Thresholds.MaxStartRange = d.Thresholds.MaxStartRange
	}
	if config.Thresholds.Tolerance == 0 {
		config.Thresholds.Tolerance = d.Thresholds.Tolerance
	}
	if config.InvalidLimit == 0 {
		config.InvalidLimit = d.InvalidLimit
	}
	if config.LinkDelay == 0 {
		config.LinkDelay = d.LinkDelay
	}

	return &Handle{config: config, state: unsynchronized}
}

// Init brings up the link and starts decoding in the unsynchronized state.
func (h *Handle) Init(link Link) error {
	if h.inited.Load() {
		return ErrAlreadyInitialized
	}
	if link == nil {
		return ErrLinkMissing
	}

	if err := link.Init(); err != nil {
		h.debug("bpc: link init failed: %v", err)
		return fmt.Errorf("bpc: link init: %w", err)
	}
	link.Delay(h.config.LinkDelay)

	t, err := link.Timestamp()
	if err != nil {
		h.debug("bpc: timestamp read failed: %v", err)
		return fmt.Errorf("bpc: timestamp read: %w", err)
	}

	h.link = link
	h.lastTime = t
	h.frame = [FrameLength]Symbol{}
	h.unsync()
	h.decodeValid.Store(false)
	h.inited.Store(true)
	return nil
}

// Deinit stops decoding and releases the link.
func (h *Handle) Deinit() error {
	if !h.inited.Load() {
		return ErrNotInitialized
	}

	h.inited.Store(false)
	h.unsync()
	h.decodeValid.Store(false)
	h.link = nil
	return nil
}

// Snapshot returns the current decode state.
func (h *Handle) Snapshot() Snapshot {
	return Snapshot{
		Inited:      h.inited.Load(),
		TraceValid:  h.traceValid.Load(),
		DecodeValid: h.decodeValid.Load(),
		Offset:      int(h.published.Load()),
	}
}

// IRQHandler is called by the link on every edge of the signal.
// It doesn't block and calls Link.Receive for every completed frame.
// Calls before Init are ignored.
func (h *Handle) IRQHandler() {
	if !h.inited.Load() {
		return
	}

	now, err := h.link.Timestamp()
	if err != nil {
		h.debug("bpc: timestamp read failed: %v", err)
		return
	}

	elapsed := now - h.lastTime
	h.lastTime = now

	if elapsed >= Dropout {
		if h.traceValid.Load() {
			h.debug("bpc: no edge for %v, trace lost", elapsed)
		}
		h.unsync()
		return
	}

	h.assemble(h.config.Thresholds.Classify(elapsed), elapsed, now)
}

// assemble runs the frame state machine with the symbol of one edge.
//  * a frame marker opens a new frame and closes the frame in progress
//  * a data pulse is held until its space confirms a full second
//  * everything else is invalid
func (h *Handle) assemble(s Symbol, elapsed, now time.Duration) {
	switch {
	case s == SymbolMarker:
		h.invalidCount = 0
		h.marker(now)

	case h.state == unsynchronized:
		// wait for a frame marker

	case s.IsData() && !h.hasPending:
		h.invalidCount = 0
		h.pending, h.pendingWidth, h.hasPending = s, elapsed, true

	case s == SymbolSpace && h.hasPending && h.config.Thresholds.isSecond(h.pendingWidth, elapsed):
		h.invalidCount = 0
		h.hasPending = false
		h.store(h.pending)

		// the last symbol of a frame must be closed by a frame marker
		if h.offset == FrameLength {
			h.debug("bpc: frame too long")
			h.emit(Result{Status: StatusFrameInvalid})
			h.unsync()
		}

	default:
		h.invalid(s, elapsed)
	}
}

// marker handles a frame marker.
func (h *Handle) marker(now time.Duration) {
	if h.state == unsynchronized {
		h.debug("bpc: frame marker found")
		h.state = synchronizing
		h.traceValid.Store(true)
		h.clear()
		h.markerTime = now
		return
	}

	// the space of the last symbol is the frame marker itself
	if h.hasPending {
		h.hasPending = false
		h.store(h.pending)
	}

	if h.corrupt || h.offset != FrameLength {
		h.debug("bpc: frame invalid (%d symbols, corrupt %v)", h.offset, h.corrupt)
		h.emit(Result{Status: StatusFrameInvalid})
	} else {
		h.decodeValid.Store(true)
		r := Decode(h.frame[:])
		if r.Status == StatusOK {
			r.Diff = now - (h.markerTime + FramePeriod)
		}
		h.emit(r)
	}

	h.traceValid.Store(true)
	h.clear()
	h.markerTime = now
}

// invalid discards a symbol without advancing the offset.
// A data pulse realigns the pulse/space phase.
func (h *Handle) invalid(s Symbol, elapsed time.Duration) {
	h.corrupt = true
	h.hasPending = false
	if s.IsData() {
		h.pending, h.pendingWidth, h.hasPending = s, elapsed, true
	}

	h.invalidCount++
	if h.invalidCount > h.config.InvalidLimit {
		h.debug("bpc: %d invalid symbols, trace lost", h.invalidCount)
		h.unsync()
	}
}

// store appends a data symbol to the frame in progress.
func (h *Handle) store(s Symbol) {
	if h.offset >= FrameLength {
		return
	}
	h.decodeValid.Store(false)
	h.frame[h.offset] = s
	h.offset++
	h.published.Store(int32(h.offset))
}

// emit hands a result to the link.
func (h *Handle) emit(r Result) {
	h.link.Receive(r)
}

// clear starts a new frame.
func (h *Handle) clear() {
	h.offset = 0
	h.corrupt = false
	h.hasPending = false
	h.invalidCount = 0
	h.published.Store(0)
}

// unsync drops the frame in progress and waits for the next frame marker.
func (h *Handle) unsync() {
	h.state = unsynchronized
	h.traceValid.Store(false)
	h.clear()
}

func (h *Handle) debug(format string, v ...interface{}) {
	if h.config.DebugPrint != nil {
		h.config.DebugPrint(format, v...)
	}
}
