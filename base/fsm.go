package base

import (
	"time"

	"github.com/diffdrive/rover/components/encoder"
	"github.com/diffdrive/rover/components/motor"
	"github.com/diffdrive/rover/control"
)

// Wheel identifies one side of the vehicle.
type Wheel int

const (
	// Left is the left wheel index.
	Left Wheel = iota
	// Right is the right wheel index.
	Right
)

func (w Wheel) String() string {
	if w == Right {
		return "right"
	}
	return "left"
}

// State is a wheel's motion FSM state.
type State int

const (
	// StateIdle means the wheel is stopped and uncommanded.
	StateIdle State = iota
	// StateDriveInit starts a closed-loop drive, deciding whether a
	// kicker burst is needed.
	StateDriveInit
	// StateDriveKicker holds the open-loop kicker magnitude to break
	// static friction.
	StateDriveKicker
	// StateDrivePIDReset re-arms the PID and zeroes the encoder before
	// closed-loop control.
	StateDrivePIDReset
	// StateDriveRun is steady-state closed-loop control, one PID step per
	// period.
	StateDriveRun
	// StateMoveInit starts an open-loop pulse-counted move.
	StateMoveInit
	// StateMoveRun counts pulses toward the move target.
	StateMoveRun
)

func (s State) String() string {
	switch s {
	case StateDriveInit:
		return "drive-init"
	case StateDriveKicker:
		return "drive-kicker"
	case StateDrivePIDReset:
		return "drive-pid-reset"
	case StateDriveRun:
		return "drive-run"
	case StateMoveInit:
		return "move-init"
	case StateMoveRun:
		return "move-run"
	default:
		return "idle"
	}
}

// StateChange is delivered to observers whenever a wheel FSM transitions.
type StateChange struct {
	Wheel Wheel
	From  State
	To    State
	At    time.Time
}

const (
	// DefaultPIDPeriod is the closed-loop sampling period.
	DefaultPIDPeriod = 250 * time.Millisecond
	// kickerActive is how long the kicker magnitude is held.
	kickerActive = 100 * time.Millisecond
	// moveTimeout idles a move after this long without encoder progress.
	moveTimeout = 2 * time.Second
)

// wheelRuntime is the per-wheel actuation state the FSM works on.
type wheelRuntime struct {
	motor   motor.Motor
	encoder encoder.Encoder
	pid     *control.PID

	direction motor.Direction
	setpoint  int // pulses per PID period (drive) or PWM level (move)
	measured  int // pulses read in the last PID window
	output    int // last PID control output

	targetPulses int    // pulses remaining target for a move
	movePulses   uint16 // last observed move pulse count, for the watchdog

	state     State
	lastEvent time.Time
}

func (c *Controller) transition(w Wheel, to State, now time.Time) {
	r := &c.wheels[w]
	from := r.state
	if from == to {
		return
	}
	r.state = to
	c.logger.Debugf("%s wheel %v -> %v", w, from, to)
	for _, fn := range c.observers {
		fn(StateChange{Wheel: w, From: from, To: to, At: now})
	}
}

// stepWheel advances one wheel's FSM. It never blocks; every wait is
// expressed as a readiness check against now.
func (c *Controller) stepWheel(w Wheel, now time.Time) {
	r := &c.wheels[w]
	switch r.state {
	case StateIdle:
		// nothing to do

	case StateDriveInit:
		if r.setpoint < int(c.tuning.KickerPWM) {
			r.motor.Run(r.direction, c.tuning.KickerPWM)
			r.lastEvent = now
			c.transition(w, StateDriveKicker, now)
		} else {
			r.lastEvent = now.Add(-r.pid.Period())
			c.transition(w, StateDrivePIDReset, now)
		}

	case StateDriveKicker:
		if now.Sub(r.lastEvent) >= kickerActive {
			r.lastEvent = now.Add(-r.pid.Period())
			c.transition(w, StateDrivePIDReset, now)
		}

	case StateDrivePIDReset:
		r.pid.SetMode(control.User)
		r.pid.Reset(r.measured, r.output)
		r.encoder.Reset()
		r.lastEvent = now
		c.transition(w, StateDriveRun, now)

	case StateDriveRun:
		if now.Sub(r.lastEvent) >= r.pid.Period() {
			_, pulses := r.encoder.Read(true)
			r.measured = int(pulses)
			if co, ok := r.pid.Compute(r.setpoint, r.measured); ok {
				r.output = co
			}
			r.motor.Run(r.direction, clampMagnitude(r.output))
			r.lastEvent = now
		}

	case StateMoveInit:
		r.encoder.Reset()
		r.motor.Run(r.direction, clampMagnitude(r.setpoint))
		r.movePulses = 0
		r.lastEvent = now // arms the stall watchdog
		c.transition(w, StateMoveRun, now)
		c.stepMoveRun(w, now) // zero-pulse targets finish this tick

	case StateMoveRun:
		c.stepMoveRun(w, now)

	default:
		c.transition(w, StateIdle, now)
	}
}

func (c *Controller) stepMoveRun(w Wheel, now time.Time) {
	r := &c.wheels[w]
	_, pulses := r.encoder.Read(false)
	if pulses > r.movePulses {
		// progress feeds the watchdog
		r.movePulses = pulses
		r.lastEvent = now
	}
	if int(pulses) >= r.targetPulses || now.Sub(r.lastEvent) >= moveTimeout {
		r.motor.SetMagnitude(0)
		c.transition(w, StateIdle, now)
	}
}

// clampMagnitude narrows a control value onto the actuator's byte range.
func clampMagnitude(v int) uint8 {
	if v < 0 {
		return 0
	}
	if v > int(motor.MaxMagnitude) {
		return motor.MaxMagnitude
	}
	return uint8(v)
}
