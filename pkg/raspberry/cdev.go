//go:build linux

package raspberry

import (
	"time"

	"bpcd/pkg/port"

	"github.com/warthog618/gpiod"
	"github.com/womat/debug"
	"golang.org/x/sys/unix"
)

// cdev captures edges of the gpio character device.
// The kernel timestamps every edge with CLOCK_MONOTONIC.
type cdev struct {
	chipName string
	chip     *gpiod.Chip
	line     *gpiod.Line
}

func newCdev(chip string) (*cdev, error) {
	if chip == "" {
		chip = "gpiochip0"
	}
	return &cdev{chipName: chip}, nil
}

// open opens the GPIO character device and requests the line with both edges.
func (c *cdev) open(gpio int, terminator string, edge func(port.Event)) error {
	var err error

	if c.chip, err = gpiod.NewChip(c.chipName); err != nil {
		return err
	}

	handler := func(evt gpiod.LineEvent) {
		switch evt.Type {
		case gpiod.LineEventRisingEdge:
			edge(port.Event{Type: port.RisingEdge, Timestamp: evt.Timestamp})
		case gpiod.LineEventFallingEdge:
			edge(port.Event{Type: port.FallingEdge, Timestamp: evt.Timestamp})
		default:
			debug.ErrorLog.Printf("invalid line event: %v", evt.Type)
		}
	}

	switch terminator {
	case "pullup":
		c.line, err = c.chip.RequestLine(gpio, gpiod.WithEventHandler(handler),
			gpiod.WithBothEdges, gpiod.AsInput, gpiod.WithPullUp)
	case "pulldown":
		c.line, err = c.chip.RequestLine(gpio, gpiod.WithEventHandler(handler),
			gpiod.WithBothEdges, gpiod.AsInput, gpiod.WithPullDown)
	case "none", "":
		c.line, err = c.chip.RequestLine(gpio, gpiod.WithEventHandler(handler),
			gpiod.WithBothEdges, gpiod.AsInput)
	default:
		err = ErrInvalidParam
	}

	if err != nil {
		_ = c.chip.Close()
		c.chip = nil
	}
	return err
}

// now reads CLOCK_MONOTONIC, the clock of the kernel event timestamps.
func (c *cdev) now() time.Duration {
	var ts unix.Timespec
	if err := unix.ClockGettime(unix.CLOCK_MONOTONIC, &ts); err != nil {
		return 0
	}
	return time.Duration(ts.Nano())
}

// close releases the line and the chip.
//
// Closing the line waits for a running event handler to return.
func (c *cdev) close() error {
	if c.line != nil {
		if err := c.line.Close(); err != nil {
			return err
		}
		c.line = nil
	}
	if c.chip != nil {
		err := c.chip.Close()
		c.chip = nil
		return err
	}
	return nil
}
