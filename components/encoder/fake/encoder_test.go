package fake

import (
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"go.viam.com/test"
)

func TestReadAndReset(t *testing.T) {
	clk := clock.NewMock()
	e := New(clk)
	test.That(t, e.Begin(), test.ShouldBeNil)

	e.Tick(5)
	clk.Add(250 * time.Millisecond)
	e.Tick(3)

	elapsed, pulses := e.Read(false)
	test.That(t, elapsed, test.ShouldEqual, 250*time.Millisecond)
	test.That(t, pulses, test.ShouldEqual, uint16(8))

	// non-resetting reads accumulate
	_, pulses = e.Read(false)
	test.That(t, pulses, test.ShouldEqual, uint16(8))

	_, pulses = e.Read(true)
	test.That(t, pulses, test.ShouldEqual, uint16(8))
	elapsed, pulses = e.Read(false)
	test.That(t, elapsed, test.ShouldEqual, time.Duration(0))
	test.That(t, pulses, test.ShouldEqual, uint16(0))
}

func TestPulsesPerRead(t *testing.T) {
	clk := clock.NewMock()
	e := New(clk)
	e.PulsesPerRead = 4

	_, pulses := e.Read(true)
	test.That(t, pulses, test.ShouldEqual, uint16(4))
	_, pulses = e.Read(false)
	test.That(t, pulses, test.ShouldEqual, uint16(4))
	_, pulses = e.Read(false)
	test.That(t, pulses, test.ShouldEqual, uint16(8))
}

func TestFailBegin(t *testing.T) {
	clk := clock.NewMock()
	e := New(clk)
	e.FailBegin = true
	test.That(t, e.Begin(), test.ShouldNotBeNil)
}
