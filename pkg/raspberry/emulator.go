package raspberry

import (
	"sync/atomic"
	"time"

	"bpcd/pkg/bpc"
	"bpcd/pkg/port"

	"github.com/womat/debug"
)

// emulator generates the BPC signal of the wall clock.
// Edge timestamps are the time since start, the first frame starts at the
// next full 20 seconds of the broadcast zone.
type emulator struct {
	zone  int
	start time.Time
	sleep func(time.Duration)

	// cursor is the timestamp of the last emitted edge.
	cursor atomic.Int64

	// quit is the channel to stop the emulator
	quit chan struct{}
	// done signals that the emulator is stopped
	done chan struct{}
}

func newEmulator(zone int, start time.Time, sleep func(time.Duration)) *emulator {
	if start.IsZero() {
		start = time.Now()
	}
	if sleep == nil {
		sleep = time.Sleep
	}
	return &emulator{zone: zone, start: start, sleep: sleep}
}

func (e *emulator) open(_ int, _ string, edge func(port.Event)) error {
	e.quit = make(chan struct{})
	e.done = make(chan struct{})

	debug.InfoLog.Printf("emulating bpc signal from %v", e.start.Format(time.RFC3339))
	go e.run(edge)
	return nil
}

// run emits the edges of one frame after the other until quit is closed.
func (e *emulator) run(edge func(port.Event)) {
	defer close(e.done)

	base := e.start.Truncate(bpc.FramePeriod)
	if base.Before(e.start) {
		base = base.Add(bpc.FramePeriod)
	}

	for n := 0; ; n++ {
		frameTime := base.Add(time.Duration(n) * bpc.FramePeriod)
		offset := frameTime.Sub(e.start)

		for i, t := range bpc.Edges(bpc.Encode(frameTime, e.zone), offset) {
			select {
			case <-e.quit:
				return
			default:
			}

			e.sleep(t - time.Duration(e.cursor.Load()))
			e.cursor.Store(int64(t))

			typ := port.FallingEdge
			if i%2 == 1 {
				typ = port.RisingEdge
			}
			edge(port.Event{Type: typ, Timestamp: t})
		}
	}
}

func (e *emulator) now() time.Duration {
	return time.Duration(e.cursor.Load())
}

func (e *emulator) close() error {
	if e.quit == nil {
		return nil
	}

	close(e.quit)
	// wait until run() is terminated
	<-e.done
	e.quit = nil
	return nil
}
