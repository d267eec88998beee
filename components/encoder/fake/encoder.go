// Package fake implements a scriptable fake encoder.
package fake

import (
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/pkg/errors"

	"github.com/diffdrive/rover/components/encoder"
)

var errNotBound = errors.New("encoder pulse source not bound")

// Encoder is a pulse counter fed by the test instead of a wheel sensor.
type Encoder struct {
	mu    sync.Mutex
	clk   clock.Clock
	count uint16
	since time.Time

	// FailBegin makes Begin report an unbound pulse source.
	FailBegin bool
	// PulsesPerRead, when nonzero, injects that many pulses on every Read,
	// simulating a wheel that keeps pace with whatever the loop asks.
	PulsesPerRead uint16
}

var _ encoder.Encoder = (*Encoder)(nil)

// New returns a fake encoder keeping time on clk.
func New(clk clock.Clock) *Encoder {
	return &Encoder{clk: clk, since: clk.Now()}
}

// Begin resets the counter, or fails when FailBegin is set.
func (e *Encoder) Begin() error {
	if e.FailBegin {
		return errNotBound
	}
	e.Reset()
	return nil
}

// Tick injects n pulses, as the wheel sensor would.
func (e *Encoder) Tick(n uint16) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.count += n
}

// Reset zeroes the counter and restarts the elapsed clock.
func (e *Encoder) Reset() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.count = 0
	e.since = e.clk.Now()
}

// Read returns the elapsed window and accumulated pulses, clearing both when
// reset is true.
func (e *Encoder) Read(reset bool) (time.Duration, uint16) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.count += e.PulsesPerRead
	elapsed := e.clk.Now().Sub(e.since)
	pulses := e.count
	if reset {
		e.count = 0
		e.since = e.clk.Now()
	}
	return elapsed, pulses
}
