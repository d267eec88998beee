// Package fake implements a fake motor.
package fake

import (
	"sync"

	"github.com/edaniels/golog"

	"github.com/diffdrive/rover/components/motor"
)

// A Command is one recorded Run/SetMagnitude call.
type Command struct {
	Direction motor.Direction
	Magnitude uint8
}

// Motor records every command it receives.
type Motor struct {
	mu     sync.Mutex
	Logger golog.Logger

	dir     motor.Direction
	mag     uint8
	began   bool
	history []Command
}

// Begin marks the motor as initialized.
func (m *Motor) Begin() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.began = true
	return nil
}

// Run records the command and applies it.
func (m *Motor) Run(d motor.Direction, magnitude uint8) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.dir = d
	m.mag = magnitude
	m.history = append(m.history, Command{Direction: d, Magnitude: magnitude})
	if m.Logger != nil {
		m.Logger.Debugf("fake motor run %v @ %d", d, magnitude)
	}
	return nil
}

// SetMagnitude changes the magnitude, keeping the current direction.
func (m *Motor) SetMagnitude(magnitude uint8) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.mag = magnitude
	m.history = append(m.history, Command{Direction: m.dir, Magnitude: magnitude})
	return nil
}

// Magnitude returns the currently applied magnitude.
func (m *Motor) Magnitude() uint8 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.mag
}

// Direction returns the currently applied direction.
func (m *Motor) Direction() motor.Direction {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.dir
}

// Began reports whether Begin was called.
func (m *Motor) Began() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.began
}

// History returns a copy of all recorded commands.
func (m *Motor) History() []Command {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Command, len(m.history))
	copy(out, m.history)
	return out
}
