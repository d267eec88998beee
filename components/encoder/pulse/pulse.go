// Package pulse implements a single-channel wheel encoder, such as an LM393
// photo-interruptor module, on a GPIO pin with edge detection.
//
// A background worker waits for pin edges and increments an atomic counter;
// that counter is the only data shared with the control loop. Each encoder
// instance binds its own pin, so any number of encoders coexist without a
// shared interrupt table.
package pulse

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/edaniels/golog"
	"github.com/pkg/errors"
	"go.viam.com/utils"
	"periph.io/x/periph/conn/gpio"
	"periph.io/x/periph/conn/gpio/gpioreg"

	"github.com/diffdrive/rover/components/encoder"
)

// edgeTimeout bounds each WaitForEdge so the worker notices cancellation.
const edgeTimeout = 250 * time.Millisecond

// Encoder counts edges on a single GPIO pin.
type Encoder struct {
	pin    gpio.PinIn
	clk    clock.Clock
	logger golog.Logger

	count uint32 // atomic; written by the edge worker, swapped by Read

	mu    sync.Mutex
	since time.Time

	cancelCtx               context.Context
	cancelFunc              func()
	activeBackgroundWorkers sync.WaitGroup
}

var _ encoder.Encoder = (*Encoder)(nil)

// New looks up pinName and returns an encoder for it. The pin is not
// configured until Begin.
func New(pinName string, clk clock.Clock, logger golog.Logger) (*Encoder, error) {
	pin := gpioreg.ByName(pinName)
	if pin == nil {
		return nil, errors.Errorf("cannot find pin (%s) for encoder", pinName)
	}
	cancelCtx, cancelFunc := context.WithCancel(context.Background())
	return &Encoder{
		pin:        pin,
		clk:        clk,
		logger:     logger,
		since:      clk.Now(),
		cancelCtx:  cancelCtx,
		cancelFunc: cancelFunc,
	}, nil
}

// Begin configures the pin for edge detection and starts the counting
// worker. It returns an error if the pin cannot deliver edges.
func (e *Encoder) Begin() error {
	if err := e.pin.In(gpio.PullUp, gpio.BothEdges); err != nil {
		return errors.Wrapf(err, "encoder pin (%s) does not support edge detection", e.pin.Name())
	}
	e.Reset()
	e.activeBackgroundWorkers.Add(1)
	utils.ManagedGo(func() {
		for {
			select {
			case <-e.cancelCtx.Done():
				return
			default:
			}
			if e.pin.WaitForEdge(edgeTimeout) {
				atomic.AddUint32(&e.count, 1)
			}
		}
	}, e.activeBackgroundWorkers.Done)
	return nil
}

// Reset zeroes the counter and restarts the elapsed clock.
func (e *Encoder) Reset() {
	e.mu.Lock()
	defer e.mu.Unlock()
	atomic.StoreUint32(&e.count, 0)
	e.since = e.clk.Now()
}

// Read returns the elapsed window and accumulated pulses. With reset true
// the counter is cleared in the same atomic exchange that reads it, so no
// edge is lost to the worker.
func (e *Encoder) Read(reset bool) (time.Duration, uint16) {
	e.mu.Lock()
	defer e.mu.Unlock()
	now := e.clk.Now()
	elapsed := now.Sub(e.since)
	var n uint32
	if reset {
		n = atomic.SwapUint32(&e.count, 0)
		e.since = now
	} else {
		n = atomic.LoadUint32(&e.count)
	}
	return elapsed, uint16(n)
}

// Close stops the counting worker.
func (e *Encoder) Close() error {
	e.cancelFunc()
	e.activeBackgroundWorkers.Wait()
	return nil
}
