// Package l29x drives L298/L293-class H-bridges: two direction pins select
// the bridge polarity and a single PWM-capable enable pin carries the drive
// magnitude.
package l29x

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

// Config describes how an L29x channel is wired.
type Config struct {
	In1 string `json:"in1"`
	In2 string `json:"in2"`
	En  string `json:"en"`
	// PWMFreqHz overrides the default 25 kHz PWM frequency.
	PWMFreqHz int `json:"pwm_freq_hz,omitempty"`
}

// Validate ensures all parts of the config are valid.
func (cfg *Config) Validate(path string) error {
	if cfg.In1 == "" {
		return utils.NewConfigValidationFieldRequiredError(path, "in1")
	}
	if cfg.In2 == "" {
		return utils.NewConfigValidationFieldRequiredError(path, "in2")
	}
	if cfg.En == "" {
		return utils.NewConfigValidationFieldRequiredError(path, "en")
	}
	return nil
}

// Motor is one channel of an L29x bridge.
type Motor struct {
	in1, in2 gpio.PinOut
	en       gpio.PinOut
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
	for _, p := range []struct {
		name string
		dst  *gpio.PinOut
	}{
		{cfg.In1, &m.in1},
		{cfg.In2, &m.in2},
		{cfg.En, &m.en},
	} {
		pin := gpioreg.ByName(p.name)
		if pin == nil {
			return nil, errors.Errorf("cannot find pin (%s) for motor", p.name)
		}
		*p.dst = pin
	}
	return m, nil
}

// Begin sets the bridge to a stopped, forward state.
func (m *Motor) Begin() error {
	if err := m.in1.Out(gpio.Low); err != nil {
		return errors.Wrap(err, "init in1")
	}
	if err := m.in2.Out(gpio.Low); err != nil {
		return errors.Wrap(err, "init in2")
	}
	return m.setMagnitude(0)
}

// Run sets the direction and magnitude together.
func (m *Motor) Run(d motor.Direction, magnitude uint8) error {
	if err := m.setDirection(d); err != nil {
		return err
	}
	return m.setMagnitude(magnitude)
}

// SetMagnitude changes the drive magnitude, keeping the current direction.
func (m *Motor) SetMagnitude(magnitude uint8) error {
	return m.setMagnitude(magnitude)
}

// Magnitude returns the currently applied magnitude.
func (m *Motor) Magnitude() uint8 { return m.mag }

// Direction returns the currently applied direction.
func (m *Motor) Direction() motor.Direction { return m.dir }

func (m *Motor) setDirection(d motor.Direction) error {
	l1, l2 := gpio.High, gpio.Low
	if d == motor.Reverse {
		l1, l2 = gpio.Low, gpio.High
	}
	if err := m.in1.Out(l1); err != nil {
		return errors.Wrap(err, "set in1")
	}
	if err := m.in2.Out(l2); err != nil {
		return errors.Wrap(err, "set in2")
	}
	m.dir = d
	return nil
}

func (m *Motor) setMagnitude(magnitude uint8) error {
	duty := gpio.Duty(int64(gpio.DutyMax) * int64(magnitude) / int64(motor.MaxMagnitude))
	if err := m.en.PWM(duty, m.pwmFreq); err != nil {
		return errors.Wrap(err, "set enable pwm")
	}
	m.mag = magnitude
	return nil
}
