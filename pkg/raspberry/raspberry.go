// Package raspberry is the link between gpio edges and the bpc decoder.
//
// A Link watches one gpio line for both edges, remembers the timestamp of the
// edge and calls the decoder's irq handler. The edges are captured by one of
// the backends:
//  * cdev      gpio character device (gpiod), kernel edge timestamps
//  * gpiomem   /dev/gpiomem (gpio), timestamps taken by the watcher
//  * emulator  a generated BPC signal of the system clock
package raspberry

import (
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"bpcd/pkg/bpc"
	"bpcd/pkg/port"

	"github.com/womat/debug"
)

var (
	ErrInvalidParam = errors.New("invalid parameters")
	ErrUnsupported  = errors.New("backend not supported on this platform")
)

const (
	BackendCdev     = "cdev"
	BackendGpiomem  = "gpiomem"
	BackendEmulator = "emulator"
)

// Options defines the line and the backend of a Link.
type Options struct {
	// Backend is one of cdev, gpiomem or emulator.
	Backend string
	// Chip is the gpio character device, used by cdev.
	Chip string
	// Gpio is the line offset (BCM number).
	Gpio int
	// Terminator is the line bias (pullup, pulldown or none).
	Terminator string
	// Zone is the time zone (hours east of UTC) the emulator broadcasts.
	Zone int
	// Start is the wall time the emulator starts at, zero is now.
	Start time.Time
	// Sleep waits between two emulated edges, nil is time.Sleep.
	Sleep func(time.Duration)
}

// backend captures the edges of one line.
type backend interface {
	// open starts watching the line, edge is called for every edge.
	open(gpio int, terminator string, edge func(port.Event)) error
	// now returns the current time in the clock of the edge timestamps.
	now() time.Duration
	close() error
}

// Link implements bpc.Link on top of a gpio line.
type Link struct {
	backend    backend
	gpio       int
	terminator string

	// irq is called on every edge, it's the irq handler of the decoder.
	irq func()
	// receive is called with every decoded frame.
	receive func(bpc.Result)

	// last is the timestamp of the last edge.
	last atomic.Int64
	seen atomic.Bool
	// edges counts all edges.
	edges atomic.Uint64
}

// New creates a link for the configured backend.
// The line isn't requested until Init is called by the decoder.
func New(o Options, irq func(), receive func(bpc.Result)) (*Link, error) {
	if irq == nil || receive == nil {
		return nil, ErrInvalidParam
	}

	l := Link{
		gpio:       o.Gpio,
		terminator: o.Terminator,
		irq:        irq,
		receive:    receive,
	}

	switch o.Backend {
	case BackendCdev:
		b, err := newCdev(o.Chip)
		if err != nil {
			return nil, err
		}
		l.backend = b
	case BackendGpiomem:
		b, err := newGpiomem()
		if err != nil {
			return nil, err
		}
		l.backend = b
	case BackendEmulator:
		l.backend = newEmulator(o.Zone, o.Start, o.Sleep)
	default:
		return nil, fmt.Errorf("%w: backend %q", ErrInvalidParam, o.Backend)
	}

	return &l, nil
}

// Init requests the line and starts watching both edges.
func (l *Link) Init() error {
	debug.InfoLog.Printf("watching gpio %v (%v)", l.gpio, l.terminator)
	return l.backend.open(l.gpio, l.terminator, l.edge)
}

// Delay sleeps for ms milliseconds.
func (l *Link) Delay(ms uint32) {
	time.Sleep(time.Duration(ms) * time.Millisecond)
}

// Timestamp returns the time of the last edge.
// Before the first edge the current time of the backend clock is returned.
func (l *Link) Timestamp() (time.Duration, error) {
	if !l.seen.Load() {
		return l.backend.now(), nil
	}
	return time.Duration(l.last.Load()), nil
}

// Receive passes a decoded frame on.
func (l *Link) Receive(r bpc.Result) {
	l.receive(r)
}

// Edges returns the count of edges seen since Init.
func (l *Link) Edges() uint64 {
	return l.edges.Load()
}

// Close stops watching and releases the line.
//
// The decoder must not be used after Close, Close must not be called from
// the context of the irq handler.
func (l *Link) Close() error {
	return l.backend.close()
}

// edge is called by the backend for every edge.
func (l *Link) edge(e port.Event) {
	l.last.Store(int64(e.Timestamp))
	l.seen.Store(true)
	l.edges.Add(1)
	l.irq()
}
