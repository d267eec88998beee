package base

import (
	"github.com/pkg/errors"

	"github.com/diffdrive/rover/config"
)

var errNoStore = errors.New("no tuning store configured")

// Tuning setters follow the embedded-control convention: an out-of-range
// value is silently rejected and the current value retained, so a running
// vehicle can never be thrown by a bad setting. Callers that need
// validation read back through Tuning or PIDTuning.

// SetMinPWM sets the PID output floor. Rejected unless below the current
// ceiling; the move magnitude is re-clipped into the new range.
func (c *Controller) SetMinPWM(v uint8) {
	if v >= c.tuning.MaxPWM {
		return
	}
	c.tuning.MinPWM = v
	c.clipMovePWM()
	c.applyPIDLimits()
}

// SetMaxPWM sets the PID output ceiling. Rejected unless above the current
// floor; the move magnitude is re-clipped into the new range.
func (c *Controller) SetMaxPWM(v uint8) {
	if v <= c.tuning.MinPWM {
		return
	}
	c.tuning.MaxPWM = v
	c.clipMovePWM()
	c.applyPIDLimits()
}

// SetMovePWM sets the open-loop magnitude used by precision moves.
// Accepted only inside the current [min, max] range.
func (c *Controller) SetMovePWM(v uint8) {
	if v < c.tuning.MinPWM || v > c.tuning.MaxPWM {
		return
	}
	c.tuning.MovePWM = v
}

// SetKickerPWM sets the startup kicker magnitude. Unconstrained.
func (c *Controller) SetKickerPWM(v uint8) {
	c.tuning.KickerPWM = v
}

// SetSpinAdjust sets the inertial derating factor applied to spin pulse
// targets. Accepted in (0, 1].
func (c *Controller) SetSpinAdjust(v float32) {
	if v <= 0 || v > 1 {
		return
	}
	c.tuning.SpinAdjust = v
}

// SetPID replaces one wheel's PID gains. Negative gains or an invalid
// wheel are rejected.
func (c *Controller) SetPID(w Wheel, kp, ki, kd float32) {
	if w < 0 || int(w) >= config.NumWheels || kp < 0 || ki < 0 || kd < 0 {
		return
	}
	c.tuning.Kp[w] = kp
	c.tuning.Ki[w] = ki
	c.tuning.Kd[w] = kd
	if pid := c.wheels[w].pid; pid != nil {
		pid.SetTuning(float64(kp), float64(ki), float64(kd), pid.POn())
	}
}

// PIDTuning returns one wheel's PID gains; zeros for an invalid wheel.
func (c *Controller) PIDTuning(w Wheel) (kp, ki, kd float32) {
	if w < 0 || int(w) >= config.NumWheels {
		return 0, 0, 0
	}
	return c.tuning.Kp[w], c.tuning.Ki[w], c.tuning.Kd[w]
}

// SetVehicleParams replaces the vehicle geometry; any zero value falls back
// to its default. Takes effect on the next accepted command.
func (c *Controller) SetVehicleParams(ppr, ppsMax uint16, wheelDiameter, baseLength float64) {
	c.params.set(ppr, ppsMax, wheelDiameter, baseLength)
}

// LoadConfig reads the tuning from the persistence store and applies it to
// the PID loops. A missing or corrupt blob loads defaults and writes them
// back. Without a store, defaults apply.
func (c *Controller) LoadConfig() error {
	if c.store == nil {
		c.tuning = config.Defaults()
		c.applyTuning()
		return nil
	}
	t, defaultsLoaded, err := config.Load(c.store)
	c.tuning = t
	c.applyTuning()
	if defaultsLoaded {
		c.logger.Info("tuning store missing or corrupt, defaults loaded")
	}
	return err
}

// SaveConfig persists the current tuning.
func (c *Controller) SaveConfig() error {
	if c.store == nil {
		return errNoStore
	}
	return config.Save(c.store, c.tuning)
}

func (c *Controller) clipMovePWM() {
	if c.tuning.MovePWM < c.tuning.MinPWM {
		c.tuning.MovePWM = c.tuning.MinPWM
	}
	if c.tuning.MovePWM > c.tuning.MaxPWM {
		c.tuning.MovePWM = c.tuning.MaxPWM
	}
}

func (c *Controller) applyPIDLimits() {
	for i := range c.wheels {
		if pid := c.wheels[i].pid; pid != nil {
			pid.SetLimits(int(c.tuning.MinPWM), int(c.tuning.MaxPWM))
		}
	}
}

func (c *Controller) applyTuning() {
	for i := range c.wheels {
		if pid := c.wheels[i].pid; pid != nil {
			pid.SetTuning(float64(c.tuning.Kp[i]), float64(c.tuning.Ki[i]), float64(c.tuning.Kd[i]), pid.POn())
		}
	}
	c.applyPIDLimits()
}
