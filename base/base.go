// Package base is the motion-control core of a two-wheel differential-drive
// rover.
//
// A Controller owns one motor, one encoder and one PID loop per wheel and
// translates unicycle-model commands (linear velocity percent, angular rate)
// and precision pulse-counted moves into per-wheel actuation. It is driven
// by a cooperative scheduler: the application calls Tick as often as it can,
// and every wait inside the core is a readiness check against the injected
// clock, so no call ever blocks. The Controller is confined to that single
// loop goroutine and takes no locks; the only cross-goroutine data is the
// encoder pulse counter, which the encoder implementations read atomically.
package base

import (
	"math"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/edaniels/golog"
	"github.com/pkg/errors"
	"go.uber.org/multierr"

	"github.com/diffdrive/rover/components/encoder"
	"github.com/diffdrive/rover/components/motor"
	"github.com/diffdrive/rover/config"
	"github.com/diffdrive/rover/control"
)

// Config assembles a Controller's collaborators.
type Config struct {
	LeftMotor    motor.Motor
	LeftEncoder  encoder.Encoder
	RightMotor   motor.Motor
	RightEncoder encoder.Encoder

	Params VehicleParams

	// Store persists the tuning blob. Optional; without it the controller
	// runs on defaults and SaveConfig fails.
	Store config.Store

	// Clock overrides the time source, for tests. Defaults to the wall
	// clock.
	Clock clock.Clock
}

// Controller is the motion-control core.
type Controller struct {
	logger golog.Logger
	clk    clock.Clock
	store  config.Store

	params VehicleParams
	tuning config.Tuning

	wheels [config.NumWheels]wheelRuntime

	vLinear  float64 // last accepted linear velocity, percent
	vAngular float64 // last accepted angular rate, rad/s

	observers []func(StateChange)

	// sequence interpreter state
	actions    []Action
	cursor     int
	inSequence bool
	inAction   bool
	pauseStart time.Time
}

// NewController wires up a controller. Begin must be called before any
// motion command.
func NewController(cfg Config, logger golog.Logger) *Controller {
	clk := cfg.Clock
	if clk == nil {
		clk = clock.New()
	}
	c := &Controller{
		logger: logger,
		clk:    clk,
		store:  cfg.Store,
		params: cfg.Params,
		tuning: config.Defaults(),
	}
	c.params.set(cfg.Params.PPR, cfg.Params.PPSMax, cfg.Params.WheelDiameter, cfg.Params.BaseLength)
	c.wheels[Left].motor = cfg.LeftMotor
	c.wheels[Left].encoder = cfg.LeftEncoder
	c.wheels[Right].motor = cfg.RightMotor
	c.wheels[Right].encoder = cfg.RightEncoder
	return c
}

// Begin loads the persisted tuning, arms the PID loops and initializes the
// hardware, finishing in a stopped state. A wheel whose encoder fails to
// begin is reported in the returned error but the controller keeps
// operating; that wheel simply produces no feedback, so its PID will peg to
// the maximum output.
func (c *Controller) Begin() error {
	var result error
	for i := range c.wheels {
		if c.wheels[i].motor == nil || c.wheels[i].encoder == nil {
			return errors.Errorf("%v wheel is missing a motor or encoder", Wheel(i))
		}
	}

	if err := c.LoadConfig(); err != nil {
		result = multierr.Combine(result, err)
	}

	for i := range c.wheels {
		r := &c.wheels[i]
		r.pid = control.New(c.clk, float64(c.tuning.Kp[i]), float64(c.tuning.Ki[i]), float64(c.tuning.Kd[i]))
		r.pid.SetPeriod(DefaultPIDPeriod)
		r.pid.SetLimits(int(c.tuning.MinPWM), int(c.tuning.MaxPWM))
		r.state = StateIdle

		if err := r.motor.Begin(); err != nil {
			result = multierr.Combine(result, errors.Wrapf(err, "%v motor", Wheel(i)))
		}
		if err := r.encoder.Begin(); err != nil {
			result = multierr.Combine(result, errors.Wrapf(err, "%v encoder", Wheel(i)))
		}
	}

	c.Stop()
	return result
}

// Tick runs one non-blocking control step: the sequence interpreter first,
// so a just-loaded action sees the wheel state it set up, then both wheel
// FSMs against the same time reading. Call it at least twice per PID period
// to keep the loop cadence jitter-free; calling more often is harmless.
func (c *Controller) Tick() {
	now := c.clk.Now()
	c.stepSequence(now)
	for i := range c.wheels {
		c.stepWheel(Wheel(i), now)
	}
}

// Drive runs the vehicle under closed-loop control along the unicycle path
// (vLinear percent of full speed, vAngular rad/s; positive vAngular turns
// right). Inputs saturate to [-100, 100] and [-π/2, π/2]. A zero linear
// velocity stops the vehicle. Repeating the previously accepted command is
// a no-op so a chatty caller cannot thrash the PID loops.
func (c *Controller) Drive(vLinear, vAngular float64) {
	if vLinear == 0 {
		c.Stop()
		return
	}
	v := clampLinear(vLinear)
	w := clampAngular(vAngular)
	if v == c.vLinear && w == c.vAngular {
		return
	}

	spL, spR, dir := c.params.driveSetpoints(v, w, c.pidFreq())
	c.vLinear, c.vAngular = v, w

	next := StateDriveInit
	if c.IsRunning() {
		// already moving: skip the kicker and retune seamlessly
		next = StateDrivePIDReset
	}

	now := c.clk.Now()
	c.wheels[Left].setpoint = spL
	c.wheels[Right].setpoint = spR
	for i := range c.wheels {
		c.wheels[i].direction = dir
		c.transition(Wheel(i), next, now)
	}
	c.logger.Debugf("drive v=%.1f%% w=%.3frad/s -> sp L:%d R:%d %v", v, w, spL, spR, dir)
}

// DriveDeg is Drive with the angular rate in degrees per second.
func (c *Controller) DriveDeg(vLinear, vAngularDeg float64) {
	c.Drive(vLinear, vAngularDeg*math.Pi/180)
}

// DriveStraight is Drive with no angular component.
func (c *Controller) DriveStraight(vLinear float64) {
	c.Drive(vLinear, 0)
}

// Move rotates each wheel through the given subtended angle in radians,
// open loop at the configured move magnitude, counting encoder pulses until
// the target is met. Negative angles reverse that wheel.
func (c *Controller) Move(angL, angR float64) {
	now := c.clk.Now()
	for i, ang := range [config.NumWheels]float64{angL, angR} {
		r := &c.wheels[i]
		r.targetPulses, r.direction = c.params.moveTarget(ang)
		r.setpoint = int(c.tuning.MovePWM)
		c.transition(Wheel(i), StateMoveInit, now)
	}
	c.logger.Debugf("move L=%.3frad R=%.3frad -> pulses L:%d R:%d",
		angL, angR, c.wheels[Left].targetPulses, c.wheels[Right].targetPulses)
}

// MoveDeg is Move with the wheel angles in degrees.
func (c *Controller) MoveDeg(angL, angR float64) {
	c.Move(angL*math.Pi/180, angR*math.Pi/180)
}

// MoveLen moves the vehicle straight through the given distance, in the
// same length unit as the wheel diameter, by turning both wheels through
// the equivalent rotation.
func (c *Controller) MoveLen(dist float64) {
	ang := 2 * dist / c.params.WheelDiameter
	c.Move(ang, ang)
}

// Spin rotates the vehicle in place through the given signed fraction of a
// full turn in percent: +25 is a quarter turn to the right. The wheels turn
// in opposite directions through equal angles, derated by the spin-adjust
// factor to allow for inertia after power-off.
func (c *Controller) Spin(fraction float64) {
	f := math.Max(-100, math.Min(100, fraction))
	ang, dirL, dirR := c.params.spinAngle(f, float64(c.tuning.SpinAdjust))
	angL, angR := ang, -ang
	if dirL == motor.Reverse {
		angL = -angL
	}
	if dirR == motor.Forward {
		angR = -angR
	}
	c.Move(angL, angR)
}

// Stop idles both wheel FSMs, zeroes the actuators and cancels any running
// sequence. It is idempotent and is the sole cancellation primitive.
func (c *Controller) Stop() {
	now := c.clk.Now()
	c.vLinear = 0
	c.vAngular = 0
	c.inSequence = false
	c.inAction = false
	for i := range c.wheels {
		r := &c.wheels[i]
		r.direction = motor.Forward
		r.setpoint = 0
		c.transition(Wheel(i), StateIdle, now)
		if r.motor != nil {
			r.motor.Run(motor.Forward, 0)
		}
	}
}

// IsRunning reports whether any wheel is not idle.
func (c *Controller) IsRunning() bool {
	for i := range c.wheels {
		if c.wheels[i].state != StateIdle {
			return true
		}
	}
	return false
}

// IsRunningWheel reports whether the given wheel is not idle.
func (c *Controller) IsRunningWheel(w Wheel) bool {
	if w < 0 || int(w) >= len(c.wheels) {
		return false
	}
	return c.wheels[w].state != StateIdle
}

// LinearVelocity returns the last accepted linear velocity in percent.
func (c *Controller) LinearVelocity() float64 { return c.vLinear }

// AngularVelocity returns the last accepted angular rate in rad/s.
func (c *Controller) AngularVelocity() float64 { return c.vAngular }

// SetLinearVelocity re-drives with a new linear velocity, keeping the
// current angular rate. Zero stops the vehicle.
func (c *Controller) SetLinearVelocity(vLinear float64) {
	if vLinear == 0 {
		c.Stop()
		return
	}
	c.Drive(vLinear, c.vAngular)
}

// SetAngularVelocityRad re-drives with a new angular rate, keeping the
// current linear velocity.
func (c *Controller) SetAngularVelocityRad(vAngular float64) {
	c.Drive(c.vLinear, vAngular)
}

// OnStateChange registers an observer for wheel FSM transitions. Observers
// run synchronously inside Tick and must not block.
func (c *Controller) OnStateChange(fn func(StateChange)) {
	c.observers = append(c.observers, fn)
}

// Params returns the vehicle geometry.
func (c *Controller) Params() VehicleParams { return c.params }

// Tuning returns the current tunable state.
func (c *Controller) Tuning() config.Tuning { return c.tuning }

// pidFreq returns the closed-loop sampling frequency in Hz.
func (c *Controller) pidFreq() float64 {
	period := DefaultPIDPeriod
	if c.wheels[Left].pid != nil {
		period = c.wheels[Left].pid.Period()
	}
	return 1 / period.Seconds()
}
