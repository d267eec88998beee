package base

import (
	"math"
	"testing"

	"go.viam.com/test"

	"github.com/diffdrive/rover/components/motor"
)

// geometry used throughout: basePulses ≈ 21.55, diameterPulses ≈ 12.73,
// 4 Hz PID cadence
const testPIDFreq = 4.0

func testParams() VehicleParams {
	return NewVehicleParams(40, 120, 65, 110)
}

func TestVehicleParamDefaults(t *testing.T) {
	p := NewVehicleParams(0, 0, 0, 0)
	test.That(t, p.PPR, test.ShouldEqual, DefaultPPR)
	test.That(t, p.PPSMax, test.ShouldEqual, DefaultPPSMax)
	test.That(t, p.WheelDiameter, test.ShouldEqual, DefaultWheelDiameter)
	test.That(t, p.BaseLength, test.ShouldEqual, DefaultBaseLength)

	test.That(t, p.LengthPerPulse(), test.ShouldBeGreaterThan, 0.0)
	test.That(t, p.DiameterPulses(), test.ShouldBeGreaterThan, 0.0)
	test.That(t, p.BasePulses(), test.ShouldBeGreaterThan, 0.0)

	// a partial zero substitutes only that parameter
	p = NewVehicleParams(20, 0, 80, 150)
	test.That(t, p.PPR, test.ShouldEqual, 20)
	test.That(t, p.PPSMax, test.ShouldEqual, DefaultPPSMax)
	test.That(t, p.WheelDiameter, test.ShouldEqual, 80.0)
	test.That(t, p.BaseLength, test.ShouldEqual, 150.0)
}

func TestDerivedGeometry(t *testing.T) {
	p := testParams()
	test.That(t, p.LengthPerPulse(), test.ShouldAlmostEqual, math.Pi*65/40, 1e-9)
	test.That(t, p.BasePulses(), test.ShouldAlmostEqual, 21.5471, 1e-3)
	test.That(t, p.DiameterPulses(), test.ShouldAlmostEqual, 12.7324, 1e-3)
}

func TestDriveSetpoints(t *testing.T) {
	p := testParams()

	t.Run("straight at half speed", func(t *testing.T) {
		spL, spR, dir := p.driveSetpoints(50, 0, testPIDFreq)
		test.That(t, spL, test.ShouldEqual, 15)
		test.That(t, spR, test.ShouldEqual, 15)
		test.That(t, dir, test.ShouldEqual, motor.Forward)
	})

	t.Run("arc right", func(t *testing.T) {
		spL, spR, dir := p.driveSetpoints(50, 1.0, testPIDFreq)
		test.That(t, spL, test.ShouldEqual, 12)
		test.That(t, spR, test.ShouldEqual, 18)
		test.That(t, dir, test.ShouldEqual, motor.Forward)
	})

	t.Run("reverse keeps the turn sense", func(t *testing.T) {
		_, _, dir := p.driveSetpoints(-50, 1.0, testPIDFreq)
		test.That(t, dir, test.ShouldEqual, motor.Reverse)
	})

	t.Run("setpoint sum invariant to angular rate", func(t *testing.T) {
		for _, v := range []float64{-100, -75, -50, -25, 25, 50, 75, 100} {
			want := 2 * int(math.Round(float64(p.PPSMax)*math.Abs(v)/100/testPIDFreq))
			for _, w := range []float64{-math.Pi / 2, -1, -0.3, 0, 0.3, 1, math.Pi / 2} {
				spL, spR, _ := p.driveSetpoints(v, w, testPIDFreq)
				// independent rounding of each wheel can shift the sum
				// by at most one pulse
				test.That(t, spL+spR, test.ShouldAlmostEqual, want, 1)
			}
		}
	})

	t.Run("setpoint difference follows the angular rate", func(t *testing.T) {
		for _, v := range []float64{25, 50, 100} {
			for _, w := range []float64{-math.Pi / 2, -1, 0, 1, math.Pi / 2} {
				spL, spR, _ := p.driveSetpoints(v, w, testPIDFreq)
				want := math.Round(w * p.BasePulses() / testPIDFreq)
				test.That(t, spR-spL, test.ShouldAlmostEqual, want, 1)
				// ω > 0 turns right: the right wheel is never slower
				if w > 0 {
					test.That(t, spR, test.ShouldBeGreaterThan, spL)
				} else if w < 0 {
					test.That(t, spL, test.ShouldBeGreaterThan, spR)
				}
			}
		}
	})
}

func TestMoveTarget(t *testing.T) {
	p := testParams()

	pulses, dir := p.moveTarget(2 * math.Pi)
	test.That(t, pulses, test.ShouldEqual, 40) // one revolution
	test.That(t, dir, test.ShouldEqual, motor.Forward)

	pulses, dir = p.moveTarget(-math.Pi / 2)
	test.That(t, pulses, test.ShouldEqual, 10)
	test.That(t, dir, test.ShouldEqual, motor.Reverse)

	pulses, _ = p.moveTarget(0)
	test.That(t, pulses, test.ShouldEqual, 0)
}

func TestSpinAngle(t *testing.T) {
	p := testParams()

	t.Run("quarter turn right", func(t *testing.T) {
		ang, dirL, dirR := p.spinAngle(25, 1.0)
		test.That(t, ang, test.ShouldAlmostEqual, 2.6584, 1e-3)
		test.That(t, dirL, test.ShouldEqual, motor.Forward)
		test.That(t, dirR, test.ShouldEqual, motor.Reverse)

		pulses, _ := p.moveTarget(ang)
		test.That(t, pulses, test.ShouldEqual, 17)
	})

	t.Run("left spin mirrors directions", func(t *testing.T) {
		ang, dirL, dirR := p.spinAngle(-25, 1.0)
		test.That(t, ang, test.ShouldBeGreaterThan, 0.0)
		test.That(t, dirL, test.ShouldEqual, motor.Reverse)
		test.That(t, dirR, test.ShouldEqual, motor.Forward)
	})

	t.Run("zero fraction is a zero target", func(t *testing.T) {
		ang, _, _ := p.spinAngle(0, 1.0)
		test.That(t, ang, test.ShouldEqual, 0.0)
	})

	t.Run("spin adjust derates the angle", func(t *testing.T) {
		full, _, _ := p.spinAngle(50, 1.0)
		derated, _, _ := p.spinAngle(50, 0.75)
		test.That(t, derated, test.ShouldAlmostEqual, full*0.75, 1e-9)
	})
}

func TestCommandClamps(t *testing.T) {
	test.That(t, clampLinear(101), test.ShouldEqual, 100.0)
	test.That(t, clampLinear(-200), test.ShouldEqual, -100.0)
	test.That(t, clampLinear(42), test.ShouldEqual, 42.0)
	test.That(t, clampAngular(5.0), test.ShouldEqual, math.Pi/2)
	test.That(t, clampAngular(-5.0), test.ShouldEqual, -math.Pi/2)
	test.That(t, clampAngular(0.5), test.ShouldEqual, 0.5)
}
