package mitigation

import (
	"fmt"
	"sync"

	"iot-shield/internal/model"
)

// ModeSwitch holds the engine's operating mode. Reads happen on every
// mitigation decision; writes come from the API.
type ModeSwitch struct {
	mu   sync.RWMutex
	mode model.OperatingMode
}

func NewModeSwitch(initial model.OperatingMode) *ModeSwitch {
	if initial == "" {
		initial = model.ModeLearning
	}
	return &ModeSwitch{mode: initial}
}

func (m *ModeSwitch) Get() model.OperatingMode {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.mode
}

func (m *ModeSwitch) Set(mode model.OperatingMode) error {
	if mode != model.ModeLearning && mode != model.ModeProtection {
		return fmt.Errorf("invalid operating mode %q", mode)
	}
	m.mu.Lock()
	m.mode = mode
	m.mu.Unlock()
	return nil
}

// Source adapts the switch to the engine's ModeSource
func (m *ModeSwitch) Source() ModeSource {
	return m.Get
}
