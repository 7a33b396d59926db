//go:build linux

package raspberry

import (
	"time"

	"bpcd/pkg/port"

	"github.com/warthog618/gpio"
)

// gpiomem watches a pin in the /dev/gpiomem memory range.
// The watcher doesn't deliver timestamps, edges are stamped on arrival.
type gpiomem struct {
	pin   *gpio.Pin
	start time.Time
}

func newGpiomem() (*gpiomem, error) {
	return &gpiomem{start: time.Now()}, nil
}

// open maps the gpio memory and watches both edges of the pin.
func (g *gpiomem) open(p int, terminator string, edge func(port.Event)) error {
	if err := gpio.Open(); err != nil {
		return err
	}

	g.pin = gpio.NewPin(p)
	g.pin.Input()

	switch terminator {
	case "pullup":
		g.pin.PullUp()
	case "pulldown":
		g.pin.PullDown()
	case "none", "":
		g.pin.PullNone()
	default:
		_ = gpio.Close()
		g.pin = nil
		return ErrInvalidParam
	}

	return g.pin.Watch(gpio.EdgeBoth, func(pin *gpio.Pin) {
		e := port.Event{Type: port.FallingEdge, Timestamp: g.now()}
		if pin.Read() == gpio.High {
			e.Type = port.RisingEdge
		}
		edge(e)
	})
}

func (g *gpiomem) now() time.Duration {
	return time.Since(g.start)
}

// close removes the watch and unmaps the gpio memory.
func (g *gpiomem) close() error {
	if g.pin == nil {
		return nil
	}
	g.pin.Unwatch()
	g.pin = nil
	return gpio.Close()
}
