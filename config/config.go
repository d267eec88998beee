// Package config holds the rover's tunable parameters and their
// persistence.
//
// Tuning values live in a small fixed-layout blob fronted by two signature
// bytes, the EEPROM image of the original vehicle firmware. A Store is any
// byte-blob persistence (EEPROM, a file, flash); a missing or corrupt blob
// silently yields documented defaults, which are written back so the next
// load succeeds.
package config

import (
	"encoding/binary"
	"math"

	"github.com/pkg/errors"
)

// NumWheels is the number of independently tuned wheels.
const NumWheels = 2

// Default tuning values, applied when the persisted blob is missing or
// corrupt.
const (
	DefaultMinPWM     uint8   = 40
	DefaultMaxPWM     uint8   = 255
	DefaultMovePWM    uint8   = 40
	DefaultKickerPWM  uint8   = 60
	DefaultSpinAdjust float32 = 0.75
	DefaultKp         float32 = 1.50
	DefaultKi         float32 = 0.00
	DefaultKd         float32 = 0.15
)

// signature marks a valid persisted blob.
var signature = [2]byte{0xAA, 0x33}

// BlobSize is the persisted image size in bytes: signature, four PWM bytes,
// spin adjust, and three gains for each wheel.
const BlobSize = 2 + 4 + 4 + NumWheels*3*4

// Tuning is the persistent tunable state of the motion core.
type Tuning struct {
	MinPWM     uint8
	MaxPWM     uint8
	MovePWM    uint8
	KickerPWM  uint8
	SpinAdjust float32
	Kp, Ki, Kd [NumWheels]float32
}

// Defaults returns the documented default tuning.
func Defaults() Tuning {
	t := Tuning{
		MinPWM:     DefaultMinPWM,
		MaxPWM:     DefaultMaxPWM,
		MovePWM:    DefaultMovePWM,
		KickerPWM:  DefaultKickerPWM,
		SpinAdjust: DefaultSpinAdjust,
	}
	for i := 0; i < NumWheels; i++ {
		t.Kp[i] = DefaultKp
		t.Ki[i] = DefaultKi
		t.Kd[i] = DefaultKd
	}
	return t
}

// Marshal renders the tuning as its persisted blob.
func (t Tuning) Marshal() []byte {
	b := make([]byte, 0, BlobSize)
	b = append(b, signature[0], signature[1])
	b = append(b, t.MinPWM, t.MaxPWM, t.MovePWM, t.KickerPWM)
	b = appendFloat(b, t.SpinAdjust)
	for i := 0; i < NumWheels; i++ {
		b = appendFloat(b, t.Kp[i])
		b = appendFloat(b, t.Ki[i])
		b = appendFloat(b, t.Kd[i])
	}
	return b
}

// Unmarshal parses a persisted blob, failing on short input or a signature
// mismatch.
func Unmarshal(b []byte) (Tuning, error) {
	var t Tuning
	if len(b) < BlobSize {
		return t, errors.Errorf("tuning blob too short: %d < %d", len(b), BlobSize)
	}
	if b[0] != signature[0] || b[1] != signature[1] {
		return t, errors.Errorf("tuning blob signature mismatch: %#02x%02x", b[0], b[1])
	}
	t.MinPWM, t.MaxPWM, t.MovePWM, t.KickerPWM = b[2], b[3], b[4], b[5]
	t.SpinAdjust = readFloat(b[6:])
	off := 10
	for i := 0; i < NumWheels; i++ {
		t.Kp[i] = readFloat(b[off:])
		t.Ki[i] = readFloat(b[off+4:])
		t.Kd[i] = readFloat(b[off+8:])
		off += 12
	}
	return t, nil
}

// A Store persists an opaque fixed-size blob.
type Store interface {
	// ReadInto fills b from the store.
	ReadInto(b []byte) error
	// Write persists b.
	Write(b []byte) error
}

// Load reads the tuning from the store. On any read or signature failure it
// writes defaults back and returns them; the second return reports that
// defaults were loaded. The error, if any, is from the defaults write.
func Load(s Store) (Tuning, bool, error) {
	b := make([]byte, BlobSize)
	if err := s.ReadInto(b); err == nil {
		if t, err := Unmarshal(b); err == nil {
			return t, false, nil
		}
	}
	t := Defaults()
	return t, true, Save(s, t)
}

// Save writes the tuning to the store.
func Save(s Store, t Tuning) error {
	return s.Write(t.Marshal())
}

func appendFloat(b []byte, f float32) []byte {
	return binary.LittleEndian.AppendUint32(b, math.Float32bits(f))
}

func readFloat(b []byte) float32 {
	return math.Float32frombits(binary.LittleEndian.Uint32(b))
}
