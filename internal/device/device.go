// Package device models the fixed desktop hardware topology: one mouse and
// one keyboard, each owning mutable hardware state and a fixed table that
// maps input paths to typed values.
package device

import (
	"norse/internal/input"
	"norse/internal/intern"
)

// Device is one class of physical hardware. The set of implementations is
// closed: *Mouse and *Keyboard.
type Device interface {
	// Class returns the hardware class this device accepts events from.
	Class() input.DeviceClass

	// Reset clears per-tick accumulators. Latched state such as held
	// buttons is kept.
	Reset()

	// Apply folds one raw event into the device state.
	Apply(ev input.InputEvent)

	// Map evaluates the input path against the current state. It returns
	// false when the path has no mapping on this device.
	Map(inputPath intern.Path) (Value, bool)

	// Inputs lists the input paths this device maps.
	Inputs() []intern.Path

	sealed()
}

// User paths of the devices in the desktop topology.
const (
	UserMouse    = "/user/mouse"
	UserKeyboard = "/user/keyboard"
)

// Registry holds the session's devices keyed by user path.
type Registry struct {
	mouse        *Mouse
	keyboard     *Keyboard
	mousePath    intern.Path
	keyboardPath intern.Path
}

// NewRegistry builds the mouse and keyboard, interning their user paths and
// mapping tables in in.
func NewRegistry(in *intern.Interner) *Registry {
	return &Registry{
		mouse:        NewMouse(in),
		keyboard:     NewKeyboard(),
		mousePath:    in.Intern(UserMouse),
		keyboardPath: in.Intern(UserKeyboard),
	}
}

// Mouse returns the mouse device.
func (r *Registry) Mouse() *Mouse {
	return r.mouse
}

// Keyboard returns the keyboard device.
func (r *Registry) Keyboard() *Keyboard {
	return r.keyboard
}

// Lookup returns the device registered at a user path.
func (r *Registry) Lookup(user intern.Path) (Device, bool) {
	switch user {
	case r.mousePath:
		return r.mouse, true
	case r.keyboardPath:
		return r.keyboard, true
	default:
		return nil, false
	}
}

// UserPaths returns the user paths of all registered devices.
func (r *Registry) UserPaths() []intern.Path {
	return []intern.Path{r.mousePath, r.keyboardPath}
}

// Reset clears the accumulators of every device.
func (r *Registry) Reset() {
	r.mouse.Reset()
	r.keyboard.Reset()
}

// Dispatch routes an event to the device of its class. Events of an
// unknown class are ignored and Dispatch reports false.
func (r *Registry) Dispatch(ev input.InputEvent) bool {
	switch ev.Class {
	case input.ClassMouse:
		r.mouse.Apply(ev)
	case input.ClassKeyboard:
		r.keyboard.Apply(ev)
	default:
		return false
	}
	return true
}
