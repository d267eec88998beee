package base

import (
	"math"
	"testing"
	"time"

	"go.viam.com/test"
)

// runSequence ticks until the sequence completes, feeding the encoders so
// moves make progress. Fails the test if the sequence never terminates.
func (r *testRig) runSequence(t *testing.T) int {
	t.Helper()
	r.le.PulsesPerRead = 2
	r.re.PulsesPerRead = 2
	ticks := 0
	for !r.c.SequenceComplete() {
		r.c.Tick()
		r.clk.Add(r.tickStep)
		ticks++
		if ticks > 10000 {
			t.Fatal("sequence did not terminate")
		}
	}
	return ticks
}

func TestSequenceTermination(t *testing.T) {
	rig := newTestRig(t)
	rig.c.StartSequence([]Action{
		MoveAction{AngleL: math.Pi / 2, AngleR: math.Pi / 2},
		EndAction{},
	})
	test.That(t, rig.c.SequenceComplete(), test.ShouldBeFalse)
	rig.runSequence(t)
	test.That(t, rig.c.IsRunning(), test.ShouldBeFalse)
}

func TestSequenceEvadePattern(t *testing.T) {
	rig := newTestRig(t)
	var spinStarted bool
	rig.c.OnStateChange(func(sc StateChange) {
		// the right wheel transitions last, once both directions are set
		if sc.Wheel == Right && sc.To == StateMoveInit && rig.c.wheels[Left].direction != rig.c.wheels[Right].direction {
			spinStarted = true
		}
	})

	rig.c.StartSequence([]Action{
		StopAction{},
		PauseAction{Duration: 300 * time.Millisecond},
		MoveAction{AngleL: -math.Pi, AngleR: -math.Pi},
		PauseAction{Duration: 300 * time.Millisecond},
		SpinAction{Fraction: -25},
		EndAction{},
	})
	ticks := rig.runSequence(t)

	// both pauses alone need 600 ms of ticking
	test.That(t, time.Duration(ticks)*rig.tickStep, test.ShouldBeGreaterThan, 600*time.Millisecond)
	test.That(t, spinStarted, test.ShouldBeTrue)
	test.That(t, rig.c.IsRunning(), test.ShouldBeFalse)
}

func TestSequenceDriveIsFireAndForget(t *testing.T) {
	rig := newTestRig(t)
	rig.c.StartSequence([]Action{
		DriveAction{Linear: 50},
		EndAction{},
	})
	rig.c.Tick() // drive dispatched
	rig.c.Tick() // end reached
	test.That(t, rig.c.SequenceComplete(), test.ShouldBeTrue)
	// the vehicle keeps driving after the sequence finishes
	test.That(t, rig.c.IsRunning(), test.ShouldBeTrue)
	test.That(t, rig.c.LinearVelocity(), test.ShouldEqual, 50.0)
}

func TestSequenceDriveZeroSurvives(t *testing.T) {
	rig := newTestRig(t)
	rig.c.Drive(40, 0)
	rig.c.StartSequence([]Action{
		DriveAction{Linear: 0}, // stops, which would clear the sequence
		PauseAction{Duration: 100 * time.Millisecond},
		DriveAction{Linear: -30},
		EndAction{},
	})
	rig.runSequence(t)
	test.That(t, rig.c.LinearVelocity(), test.ShouldEqual, -30.0)
}

func TestSequenceStopContinues(t *testing.T) {
	rig := newTestRig(t)
	rig.c.Drive(60, 0)
	rig.c.StartSequence([]Action{
		StopAction{},
		DriveAction{Linear: 20},
		EndAction{},
	})
	rig.c.Tick() // stop
	test.That(t, rig.c.SequenceComplete(), test.ShouldBeFalse)
	rig.c.Tick() // drive
	rig.c.Tick() // end
	test.That(t, rig.c.SequenceComplete(), test.ShouldBeTrue)
	test.That(t, rig.c.LinearVelocity(), test.ShouldEqual, 20.0)
}

func TestSequencePauseTiming(t *testing.T) {
	rig := newTestRig(t)
	rig.c.StartSequence([]Action{
		PauseAction{Duration: 300 * time.Millisecond},
		EndAction{},
	})
	rig.c.Tick() // pause starts
	for i := 0; i < 5; i++ {
		rig.clk.Add(50 * time.Millisecond)
		rig.c.Tick()
		test.That(t, rig.c.SequenceComplete(), test.ShouldBeFalse)
	}
	rig.clk.Add(50 * time.Millisecond)
	rig.c.Tick() // pause satisfied at 300 ms
	rig.c.Tick() // end
	test.That(t, rig.c.SequenceComplete(), test.ShouldBeTrue)
}

func TestSequenceCanceledByStop(t *testing.T) {
	rig := newTestRig(t)
	rig.c.StartSequence([]Action{
		PauseAction{Duration: time.Hour},
		EndAction{},
	})
	rig.c.Tick()
	test.That(t, rig.c.SequenceComplete(), test.ShouldBeFalse)
	rig.c.Stop()
	test.That(t, rig.c.SequenceComplete(), test.ShouldBeTrue)
	rig.c.Tick()
	test.That(t, rig.c.SequenceComplete(), test.ShouldBeTrue)
}

func TestSequenceRunsOffTheEnd(t *testing.T) {
	rig := newTestRig(t)
	// a missing End still terminates
	rig.c.StartSequence([]Action{
		DriveAction{Linear: 30},
	})
	rig.c.Tick()
	rig.c.Tick()
	test.That(t, rig.c.SequenceComplete(), test.ShouldBeTrue)
}

func TestSequenceEmpty(t *testing.T) {
	rig := newTestRig(t)
	rig.c.StartSequence(nil)
	rig.c.Tick()
	test.That(t, rig.c.SequenceComplete(), test.ShouldBeTrue)
}
