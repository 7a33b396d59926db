package bpc

import "time"

// Link is the interface implemented by the physical layer the driver runs on.
//
// Init and Delay are only used while the handle is brought up.
// Timestamp and Receive are called from IRQHandler and must not block.
type Link interface {
	// Init initializes the hardware (GPIO, edge capture).
	Init() error
	// Delay sleeps for ms milliseconds.
	Delay(ms uint32)
	// Timestamp returns the monotonic time of the current edge.
	Timestamp() (time.Duration, error)
	// Receive is called with the result of every completed frame.
	Receive(Result)
}
