// Package control implements the discrete PID controller that closes each
// wheel's pulse-feedback loop.
//
// The controller uses the incremental (velocity) form on integer signals:
//
//	Δco = kpi·(sp-cv) - kpd·(cv-prevCv)
//	co  = clamp(prevCo + Δco, outMin, outMax)
//
// where kpi and kpd fold the user gains, the sampling period and the
// proportional-on-error weighting into two working coefficients. The
// velocity form avoids integral windup and keeps clamping on the output
// safe under gain or setpoint changes mid-run.
package control

import (
	"math"
	"time"

	"github.com/benbjohnson/clock"
)

// Mode selects how Compute decides to run a step.
type Mode int

const (
	// Off disables the controller; Compute never runs and never mutates
	// state.
	Off Mode = iota
	// Auto runs a step only when the sampling period has elapsed.
	Auto
	// User runs a step on every call; the caller owns the cadence.
	User
)

func (m Mode) String() string {
	switch m {
	case Auto:
		return "auto"
	case User:
		return "user"
	default:
		return "off"
	}
}

// Sense selects which way the output moves the measured value.
type Sense int

const (
	// Direct means an output increase raises the measured value.
	Direct Sense = iota
	// Reverse means an output increase lowers the measured value.
	Reverse
)

func (s Sense) String() string {
	if s == Reverse {
		return "reverse"
	}
	return "direct"
}

const defaultPeriod = 100 * time.Millisecond

// PID is a single-loop discrete controller. It is owned by one control loop
// and is not safe for concurrent use.
type PID struct {
	clk clock.Clock

	userKp, userKi, userKd float64
	pOn                    float64
	kpi, kpd               float64 // working coefficients, sense-signed

	mode   Mode
	sense  Sense
	period time.Duration
	last   time.Time

	outMin, outMax int
	err            int
	prevCV         int
	prevCO         int
}

// New returns a controller with the given gains, proportional-on-error
// weighting 1.0, Direct sense, Off mode, a 100 ms period and output limits
// [0, 255]. If any gain is negative the tuning is rejected and all three
// gains stay zero.
func New(clk clock.Clock, kp, ki, kd float64) *PID {
	p := &PID{
		clk:    clk,
		pOn:    1.0,
		period: defaultPeriod,
		outMin: 0,
		outMax: 255,
	}
	p.SetTuning(kp, ki, kd, 1.0)
	p.last = clk.Now().Add(-p.period)
	return p
}

// Compute runs one controller step against the setpoint and measured value
// and returns the (possibly unchanged) control output. The second return is
// true iff a step was performed: never in Off mode, once per period in Auto
// mode, always in User mode.
func (p *PID) Compute(sp, cv int) (int, bool) {
	now := p.clk.Now()
	if p.mode == Off || (p.mode == Auto && now.Sub(p.last) < p.period) {
		return p.prevCO, false
	}

	dCV := cv - p.prevCV
	p.err = sp - cv

	co := p.clamp(p.prevCO + int(math.Round(p.kpi*float64(p.err)-p.kpd*float64(dCV))))

	p.prevCO = co
	p.prevCV = cv
	p.last = now
	return co, true
}

// Reset snaps the controller state to the supplied current value and output
// so the next step starts bumplessly from there.
func (p *PID) Reset(cv, co int) {
	p.prevCV = cv
	p.prevCO = p.clamp(co)
	p.err = 0
	p.last = p.clk.Now()
}

// SetTuning replaces the gains and the proportional-on-error weighting.
// Negative gains or pOn outside [0, 1] are rejected and the current values
// retained.
func (p *PID) SetTuning(kp, ki, kd, pOn float64) {
	if kp < 0 || ki < 0 || kd < 0 || pOn < 0 || pOn > 1 {
		return
	}
	p.userKp, p.userKi, p.userKd = kp, ki, kd
	p.pOn = pOn
	p.recalc()
}

// SetPeriod changes the sampling period, rescaling the working coefficients
// so steady-state behavior is preserved. Non-positive periods are rejected.
func (p *PID) SetPeriod(d time.Duration) {
	if d <= 0 {
		return
	}
	p.period = d
	p.recalc()
}

// SetLimits changes the output clamp. An inverted range is rejected. The
// retained output is re-clamped immediately unless the controller is Off.
func (p *PID) SetLimits(min, max int) {
	if min >= max {
		return
	}
	p.outMin, p.outMax = min, max
	if p.mode != Off {
		p.prevCO = p.clamp(p.prevCO)
	}
}

// SetMode changes the controller mode. Leaving Off resets the controller
// state so control resumes bumplessly.
func (p *PID) SetMode(m Mode) {
	if p.mode == Off && m != Off {
		p.Reset(p.prevCV, p.prevCO)
	}
	p.mode = m
}

// SetSense sets the controller sense, negating the working coefficients
// when it toggles.
func (p *PID) SetSense(s Sense) {
	if s != p.sense {
		p.kpi = -p.kpi
		p.kpd = -p.kpd
	}
	p.sense = s
}

// Output returns the last computed control output.
func (p *PID) Output() int { return p.prevCO }

// Error returns the error from the last performed step.
func (p *PID) Error() int { return p.err }

// Tuning returns the user gains.
func (p *PID) Tuning() (kp, ki, kd float64) { return p.userKp, p.userKi, p.userKd }

// POn returns the proportional-on-error weighting.
func (p *PID) POn() float64 { return p.pOn }

// Period returns the sampling period.
func (p *PID) Period() time.Duration { return p.period }

// Mode returns the current mode.
func (p *PID) Mode() Mode { return p.mode }

// Sense returns the current sense.
func (p *PID) Sense() Sense { return p.sense }

// Limits returns the output clamp range.
func (p *PID) Limits() (min, max int) { return p.outMin, p.outMax }

// recalc folds the user gains, period and pOn weighting into the two
// working coefficients of the incremental form.
func (p *PID) recalc() {
	dt := p.period.Seconds()
	ki := p.userKi * dt
	kd := p.userKd / dt
	p.kpi = p.userKp*p.pOn + ki
	p.kpd = p.userKp*(1-p.pOn) + kd
	if p.sense == Reverse {
		p.kpi = -p.kpi
		p.kpd = -p.kpd
	}
}

func (p *PID) clamp(v int) int {
	if v > p.outMax {
		return p.outMax
	}
	if v < p.outMin {
		return p.outMin
	}
	return v
}
