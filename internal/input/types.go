// Package input provides raw hardware input events and the sources that
// produce them: the platform raw-input trap, in-memory queues and physical
// device enumeration.
package input

import "context"

// DeviceClass identifies the class of hardware an event came from.
type DeviceClass uint8

const (
	ClassUnknown DeviceClass = iota
	ClassMouse
	ClassKeyboard
)

func (c DeviceClass) String() string {
	switch c {
	case ClassMouse:
		return "mouse"
	case ClassKeyboard:
		return "keyboard"
	default:
		return "unknown"
	}
}

// EventType is the payload kind of an InputEvent.
type EventType string

const (
	EventMouseMove   EventType = "mouse_move"
	EventMouseButton EventType = "mouse_btn"
	EventMouseWheel  EventType = "mouse_wheel"
	EventMouseWheelH EventType = "mouse_wheel_h"
	EventKey         EventType = "key"
)

// Mouse buttons, numbered as on the wire.
const (
	ButtonLeft   = 1
	ButtonRight  = 2
	ButtonMiddle = 3
	ButtonX1     = 4
	ButtonX2     = 5
)

// InputEvent represents a keyboard or mouse input event
type InputEvent struct {
	Class      DeviceClass `json:"class"`
	Type       EventType   `json:"type"`
	DeltaX     int         `json:"dx,omitempty"`
	DeltaY     int         `json:"dy,omitempty"`
	Button     int         `json:"btn,omitempty"` // 1=left, 2=right, 3=middle, 4=x1, 5=x2
	Pressed    bool        `json:"pressed,omitempty"`
	WheelDelta int         `json:"wheel,omitempty"`
	KeyCode    uint16      `json:"keycode,omitempty"`
	Modifiers  uint16      `json:"modifiers,omitempty"`
	Timestamp  int64       `json:"ts"` // Unix ms timestamp
}

// ClassOf returns the device class implied by an event type.
func ClassOf(t EventType) DeviceClass {
	switch t {
	case EventMouseMove, EventMouseButton, EventMouseWheel, EventMouseWheelH:
		return ClassMouse
	case EventKey:
		return ClassKeyboard
	default:
		return ClassUnknown
	}
}

// MouseMove builds a pointer-motion event.
func MouseMove(dx, dy int) InputEvent {
	return InputEvent{Class: ClassMouse, Type: EventMouseMove, DeltaX: dx, DeltaY: dy}
}

// MouseButton builds a button transition event.
func MouseButton(button int, pressed bool) InputEvent {
	return InputEvent{Class: ClassMouse, Type: EventMouseButton, Button: button, Pressed: pressed}
}

// MouseWheel builds a wheel event; horizontal selects the tilt axis.
func MouseWheel(delta int, horizontal bool) InputEvent {
	t := EventMouseWheel
	if horizontal {
		t = EventMouseWheelH
	}
	return InputEvent{Class: ClassMouse, Type: t, WheelDelta: delta}
}

// Key builds a keyboard event.
func Key(keyCode uint16, pressed bool, modifiers uint16) InputEvent {
	return InputEvent{Class: ClassKeyboard, Type: EventKey, KeyCode: keyCode, Pressed: pressed, Modifiers: modifiers}
}

// EventSource yields the hardware events queued since the previous call.
// Drain must never block: it returns only what is already available, and an
// empty slice when nothing is pending.
type EventSource interface {
	Drain() []InputEvent
}

// PhysicalDevice is an opaque descriptor returned by device enumeration.
type PhysicalDevice struct {
	Handle uintptr     `json:"handle"`
	Class  DeviceClass `json:"class"`
	Name   string      `json:"name,omitempty"`
}

// DeviceEnumerator lists the physical input devices attached to the system.
type DeviceEnumerator interface {
	Enumerate(ctx context.Context) ([]PhysicalDevice, error)
}
