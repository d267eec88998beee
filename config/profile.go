package config

import (
	"os"

	"github.com/pkg/errors"
	"go.viam.com/utils"
	yaml "gopkg.in/yaml.v2"
)

// MotorProfile describes one wheel's driver wiring.
type MotorProfile struct {
	// Driver selects the H-bridge variant: "l29x" or "mx1508".
	Driver string `yaml:"driver"`

	// l29x wiring.
	In1 string `yaml:"in1,omitempty"`
	In2 string `yaml:"in2,omitempty"`
	En  string `yaml:"en,omitempty"`

	// mx1508 wiring.
	Fwd string `yaml:"fwd,omitempty"`
	Rev string `yaml:"rev,omitempty"`

	PWMFreqHz int `yaml:"pwm_freq_hz,omitempty"`
}

// Validate ensures all parts of the config are valid.
func (m *MotorProfile) Validate(path string) error {
	switch m.Driver {
	case "l29x":
		if m.In1 == "" {
			return utils.NewConfigValidationFieldRequiredError(path, "in1")
		}
		if m.In2 == "" {
			return utils.NewConfigValidationFieldRequiredError(path, "in2")
		}
		if m.En == "" {
			return utils.NewConfigValidationFieldRequiredError(path, "en")
		}
	case "mx1508":
		if m.Fwd == "" {
			return utils.NewConfigValidationFieldRequiredError(path, "fwd")
		}
		if m.Rev == "" {
			return utils.NewConfigValidationFieldRequiredError(path, "rev")
		}
	default:
		return utils.NewConfigValidationError(path,
			errors.Errorf("unknown motor driver %q", m.Driver))
	}
	return nil
}

// Profile is the YAML description of one rover: geometry, wiring and the
// tuning-store location.
type Profile struct {
	// Vehicle geometry; zero values fall back to the core defaults.
	PPR             uint16  `yaml:"ppr"`
	PPSMax          uint16  `yaml:"pps_max"`
	WheelDiameterMM float64 `yaml:"wheel_diameter_mm"`
	BaseLengthMM    float64 `yaml:"base_length_mm"`

	Left  MotorProfile `yaml:"left"`
	Right MotorProfile `yaml:"right"`

	LeftEncoderPin  string `yaml:"left_encoder_pin"`
	RightEncoderPin string `yaml:"right_encoder_pin"`

	// TuningFile is the FileStore path for the persisted tuning blob.
	TuningFile string `yaml:"tuning_file,omitempty"`
}

// Validate ensures all parts of the config are valid.
func (p *Profile) Validate(path string) error {
	if err := p.Left.Validate(path + ".left"); err != nil {
		return err
	}
	if err := p.Right.Validate(path + ".right"); err != nil {
		return err
	}
	if p.LeftEncoderPin == "" {
		return utils.NewConfigValidationFieldRequiredError(path, "left_encoder_pin")
	}
	if p.RightEncoderPin == "" {
		return utils.NewConfigValidationFieldRequiredError(path, "right_encoder_pin")
	}
	return nil
}

// ReadProfile loads and validates a rover profile.
func ReadProfile(path string) (*Profile, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "read profile")
	}
	var p Profile
	if err := yaml.UnmarshalStrict(b, &p); err != nil {
		return nil, errors.Wrap(err, "parse profile")
	}
	if err := p.Validate(path); err != nil {
		return nil, err
	}
	return &p, nil
}
