package base

import (
	"time"
)

// An Action is one step of a scripted motion sequence. The concrete types
// below are the only implementations; each carries exactly the parameters
// its operation needs.
type Action interface {
	isAction()
}

// DriveAction starts a closed-loop drive and immediately moves on; drive
// does not self-terminate, so the next action runs right away.
type DriveAction struct {
	Linear     float64 // percent of full speed, [-100, 100]
	AngularRad float64 // rad/s, [-π/2, π/2]
}

// MoveAction runs a precision move and waits for both wheels to finish.
type MoveAction struct {
	AngleL float64 // radians
	AngleR float64
}

// SpinAction spins in place by a signed fraction of a full turn in percent
// and waits for completion.
type SpinAction struct {
	Fraction float64
}

// PauseAction waits for the given duration.
type PauseAction struct {
	Duration time.Duration
}

// StopAction stops the vehicle and continues the sequence.
type StopAction struct{}

// EndAction completes the sequence. Every sequence should end with one;
// running off the end of the slice completes the sequence as well.
type EndAction struct{}

func (DriveAction) isAction() {}
func (MoveAction) isAction()  {}
func (SpinAction) isAction()  {}
func (PauseAction) isAction() {}
func (StopAction) isAction()  {}
func (EndAction) isAction()   {}

// StartSequence begins executing the actions in the background of the tick
// loop. The slice is owned by the caller and only read here; it must not be
// mutated while the sequence runs. Any Stop — direct, or via a zero-speed
// Drive — cancels the sequence.
func (c *Controller) StartSequence(actions []Action) {
	c.actions = actions
	c.cursor = -1
	c.inSequence = true
	c.inAction = false
	c.logger.Debugf("sequence started, %d actions", len(actions))
}

// SequenceComplete reports whether no sequence is running.
func (c *Controller) SequenceComplete() bool {
	return !c.inSequence
}

// stepSequence advances the sequence interpreter by at most one action
// evaluation. It runs before the wheel FSMs in Tick so a just-started
// action is dispatched on the same tick.
func (c *Controller) stepSequence(now time.Time) {
	if !c.inSequence {
		return
	}
	if !c.inAction {
		c.cursor++
		if c.cursor >= len(c.actions) {
			c.inSequence = false
			return
		}
	}

	switch a := c.actions[c.cursor].(type) {
	case DriveAction:
		c.Drive(a.Linear, a.AngularRad)
		// a zero speed drives through Stop, which clears the sequence;
		// re-assert so the remaining actions still run
		c.inSequence = true
		c.inAction = false

	case MoveAction:
		if !c.inAction {
			c.Move(a.AngleL, a.AngleR)
			c.inAction = true
		} else if !c.IsRunning() {
			c.inAction = false
		}

	case SpinAction:
		if !c.inAction {
			c.Spin(a.Fraction)
			c.inAction = true
		} else if !c.IsRunning() {
			c.inAction = false
		}

	case PauseAction:
		if !c.inAction {
			c.pauseStart = now
			c.inAction = true
		} else if now.Sub(c.pauseStart) >= a.Duration {
			c.inAction = false
		}

	case StopAction:
		c.Stop()
		c.inSequence = true // Stop cleared it
		c.inAction = false

	case EndAction:
		c.inSequence = false
		c.inAction = false
		c.logger.Debug("sequence complete")
	}
}
