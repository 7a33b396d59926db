//go:build !linux

package raspberry

import (
	"time"

	"bpcd/pkg/port"
)

// gpio backends need linux, only the emulator is available elsewhere.

type cdev struct{}

func newCdev(string) (*cdev, error) { return nil, ErrUnsupported }

func (*cdev) open(int, string, func(port.Event)) error { return ErrUnsupported }
func (*cdev) now() time.Duration                       { return 0 }
func (*cdev) close() error                             { return nil }

type gpiomem struct{}

func newGpiomem() (*gpiomem, error) { return nil, ErrUnsupported }

func (*gpiomem) open(int, string, func(port.Event)) error { return ErrUnsupported }
func (*gpiomem) now() time.Duration                       { return 0 }
func (*gpiomem) close() error                             { return nil }
