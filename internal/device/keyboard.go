package device

import (
	"norse/internal/input"
	"norse/internal/intern"
)

// Keyboard accepts key events but does not yet track per-key state, so its
// mapping table is empty and every lookup reports no mapping.
type Keyboard struct {
	events uint64
}

// NewKeyboard creates the keyboard device.
func NewKeyboard() *Keyboard {
	return &Keyboard{}
}

func (k *Keyboard) sealed() {}

// Class implements Device.
func (k *Keyboard) Class() input.DeviceClass {
	return input.ClassKeyboard
}

// Reset implements Device.
func (k *Keyboard) Reset() {}

// Apply counts the event and otherwise leaves the state untouched.
func (k *Keyboard) Apply(ev input.InputEvent) {
	if ev.Type == input.EventKey {
		k.events++
	}
}

// Events returns how many key events were accepted.
func (k *Keyboard) Events() uint64 {
	return k.events
}

// Map implements Device.
func (k *Keyboard) Map(intern.Path) (Value, bool) {
	return Value{}, false
}

// Inputs implements Device.
func (k *Keyboard) Inputs() []intern.Path {
	return nil
}
