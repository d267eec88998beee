// Package encoder defines the wheel pulse-feedback abstraction.
//
// An encoder accumulates pulses from a wheel sensor asynchronously (edge
// interrupts, a background worker, a simulation) and hands the core a
// consistent (elapsed, pulses) snapshot on demand. The snapshot-and-reset
// read is the single point where the asynchronous counter and the
// cooperative control loop meet, so implementations must make it atomic with
// respect to their updater.
package encoder

import "time"

// An Encoder counts wheel sensor pulses since the last reset.
type Encoder interface {
	// Begin binds the encoder to its pulse source. It returns an error if
	// the source cannot deliver pulses (for example the configured pin has
	// no edge detection); the rest of the core keeps operating, but this
	// wheel produces no feedback.
	Begin() error

	// Reset zeroes the pulse counter and restarts the elapsed clock.
	Reset()

	// Read returns the time since the last reset and the pulses
	// accumulated in that window. With reset true the counter and clock
	// are cleared in the same atomic operation.
	Read(reset bool) (elapsed time.Duration, pulses uint16)
}
