// Package mx1508 drives MX1508/DRV8833-class H-bridges. These bridges have
// no separate enable pin: two PWM-capable inputs double as direction select,
// and the magnitude rides on whichever input matches the commanded
// direction. On a direction change the previously active input is forced to
// zero before the other input starts carrying PWM, so the bridge never sees
// both inputs driven at once.
package mx1508

import (
	"github.com/edaniels/golog"
	"github.com/pkg/errors"
	"go.viam.com/utils"
	"periph.io/x/periph/conn/gpio"
	"periph.io/x/periph/conn/gpio/gpioreg"
	"periph.io/x/periph/conn/physic"

	"github.com/diffdrive/rover/components/motor"
)

const defaultPWMFreq = 25 * physic.KiloHertz

// Config describes how an MX1508 channel is wired.
type Config struct {
	// Fwd carries PWM while running forward, Rev while running reverse.
	Fwd string `json:"fwd"`
	Rev string `json:"rev"`
	// PWMFreqHz overrides the default 25 kHz PWM frequency.
	PWMFreqHz int `json:"pwm_freq_hz,omitempty"`
}

// Validate ensures all parts of the config are valid.
func (cfg *Config) Validate(path string) error {
	if cfg.Fwd == "" {
		return utils.NewConfigValidationFieldRequiredError(path, "fwd")
	}
	if cfg.Rev == "" {
		return utils.NewConfigValidationFieldRequiredError(path, "rev")
	}
	return nil
}

// Motor is one channel of an MX1508 bridge.
type Motor struct {
	fwd, rev gpio.PinOut
	pwmFreq  physic.Frequency
	logger   golog.Logger

	dir motor.Direction
	mag uint8
}

// New looks up the configured pins and returns the motor. The pins are not
// touched until Begin.
func New(cfg Config, logger golog.Logger) (*Motor, error) {
	m := &Motor{pwmFreq: defaultPWMFreq, logger: logger}
	if cfg.PWMFreqHz > 0 {
		m.pwmFreq = physic.Frequency(cfg.PWMFreqHz) * physic.Hertz
	}
	if m.fwd = gpioreg.ByName(cfg.Fwd); m.fwd == nil {
		return nil, errors.Errorf("cannot find pin (%s) for motor", cfg.Fwd)
	}
	if m.rev = gpioreg.ByName(cfg.Rev); m.rev == nil {
		return nil, errors.Errorf("cannot find pin (%s) for motor", cfg.Rev)
	}
	return m, nil
}

// Begin sets both bridge inputs to zero.
func (m *Motor) Begin() error {
	if err := m.fwd.PWM(0, m.pwmFreq); err != nil {
		return errors.Wrap(err, "init fwd")
	}
	if err := m.rev.PWM(0, m.pwmFreq); err != nil {
		return errors.Wrap(err, "init rev")
	}
	return nil
}

// Run sets the direction and magnitude together. Changing direction zeroes
// the old input first.
func (m *Motor) Run(d motor.Direction, magnitude uint8) error {
	if d != m.dir {
		if err := m.activePin().PWM(0, m.pwmFreq); err != nil {
			return errors.Wrap(err, "zero old direction pin")
		}
		m.dir = d
	}
	return m.SetMagnitude(magnitude)
}

// SetMagnitude changes the drive magnitude on the active input.
func (m *Motor) SetMagnitude(magnitude uint8) error {
	duty := gpio.Duty(int64(gpio.DutyMax) * int64(magnitude) / int64(motor.MaxMagnitude))
	if err := m.activePin().PWM(duty, m.pwmFreq); err != nil {
		return errors.Wrap(err, "set pwm")
	}
	m.mag = magnitude
	return nil
}

// Magnitude returns the currently applied magnitude.
func (m *Motor) Magnitude() uint8 { return m.mag }

// Direction returns the currently applied direction.
func (m *Motor) Direction() motor.Direction { return m.dir }

func (m *Motor) activePin() gpio.PinOut {
	if m.dir == motor.Reverse {
		return m.rev
	}
	return m.fwd
}
