package base

import (
	"math"

	"github.com/diffdrive/rover/components/motor"
)

// Default vehicle geometry, used whenever a parameter is given as zero.
const (
	// DefaultPPR is the default encoder pulses per wheel revolution.
	DefaultPPR uint16 = 40
	// DefaultPPSMax is the default encoder pulses per second at full
	// drive magnitude.
	DefaultPPSMax uint16 = 120
	// DefaultWheelDiameter is the default wheel diameter in mm.
	DefaultWheelDiameter = 65.0
	// DefaultBaseLength is the default distance between wheel centers in
	// mm.
	DefaultBaseLength = 110.0
)

// VehicleParams is the physical geometry of the vehicle. The pulse-space
// values derived from it are what the kinematics actually consume; they are
// recomputed whenever the primary values are set and are always strictly
// positive because zero primaries fall back to defaults.
type VehicleParams struct {
	PPR           uint16  // encoder pulses per wheel revolution
	PPSMax        uint16  // pulses per second at full magnitude
	WheelDiameter float64 // same length unit as BaseLength
	BaseLength    float64 // distance between wheel centers

	lengthPerPulse float64 // distance traveled per encoder pulse
	diameterPulses float64 // wheel diameter in pulses
	basePulses     float64 // base length in pulses
}

// NewVehicleParams builds the geometry, substituting the default for any
// zero value.
func NewVehicleParams(ppr, ppsMax uint16, wheelDiameter, baseLength float64) VehicleParams {
	var p VehicleParams
	p.set(ppr, ppsMax, wheelDiameter, baseLength)
	return p
}

func (p *VehicleParams) set(ppr, ppsMax uint16, wheelDiameter, baseLength float64) {
	if ppr == 0 {
		ppr = DefaultPPR
	}
	if ppsMax == 0 {
		ppsMax = DefaultPPSMax
	}
	if wheelDiameter == 0 {
		wheelDiameter = DefaultWheelDiameter
	}
	if baseLength == 0 {
		baseLength = DefaultBaseLength
	}
	p.PPR = ppr
	p.PPSMax = ppsMax
	p.WheelDiameter = wheelDiameter
	p.BaseLength = baseLength

	p.lengthPerPulse = math.Pi * wheelDiameter / float64(ppr)
	p.diameterPulses = wheelDiameter / p.lengthPerPulse
	p.basePulses = baseLength / p.lengthPerPulse
}

// LengthPerPulse returns the distance traveled per encoder pulse.
func (p VehicleParams) LengthPerPulse() float64 { return p.lengthPerPulse }

// DiameterPulses returns the wheel diameter expressed in pulses.
func (p VehicleParams) DiameterPulses() float64 { return p.diameterPulses }

// BasePulses returns the base length expressed in pulses.
func (p VehicleParams) BasePulses() float64 { return p.basePulses }

// clampLinear saturates a linear velocity command into [-100, 100] percent.
func clampLinear(v float64) float64 {
	return math.Max(-100, math.Min(100, v))
}

// clampAngular saturates an angular rate command into [-π/2, π/2] rad/s.
func clampAngular(w float64) float64 {
	return math.Max(-math.Pi/2, math.Min(math.Pi/2, w))
}

// driveSetpoints decomposes an already-clamped unicycle command into
// per-wheel PID setpoints in pulses per PID period, plus the shared wheel
// direction.
//
// Positive ω turns right: the right wheel travels farther. The direction
// follows the sign of v alone; the angular component can slow a wheel to
// zero but never reverse it.
func (p VehicleParams) driveSetpoints(v, w, pidFreq float64) (spL, spR int, dir motor.Direction) {
	pps := float64(p.PPSMax) * math.Abs(v) / 100

	ppsL := pps - w*p.basePulses/2
	ppsR := pps + w*p.basePulses/2

	spL = int(math.Round(ppsL / pidFreq))
	spR = int(math.Round(ppsR / pidFreq))

	dir = motor.Forward
	if v < 0 {
		dir = motor.Reverse
	}
	return spL, spR, dir
}

// moveTarget converts a subtended wheel angle in radians into an encoder
// pulse count and direction.
func (p VehicleParams) moveTarget(ang float64) (pulses int, dir motor.Direction) {
	dir = motor.Forward
	if ang < 0 {
		dir = motor.Reverse
		ang = -ang
	}
	return int(math.Round(ang * float64(p.PPR) / (2 * math.Pi))), dir
}

// spinAngle converts a spin fraction in [-100, 100] percent of a full turn
// into the per-wheel rotation angle, derated by spinAdjust for post-stop
// inertia. Both wheels turn through the same angle in opposite directions;
// the left wheel leads forward for a positive (rightward) spin.
func (p VehicleParams) spinAngle(fraction, spinAdjust float64) (ang float64, dirL, dirR motor.Direction) {
	dirL, dirR = motor.Forward, motor.Reverse
	if fraction < 0 {
		dirL, dirR = motor.Reverse, motor.Forward
		fraction = -fraction
	}
	ang = 2 * math.Pi * (fraction / 100) * (p.basePulses / p.diameterPulses) * spinAdjust
	return ang, dirL, dirR
}
