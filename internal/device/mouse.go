package device

import (
	"norse/internal/input"
	"norse/internal/intern"
)

// MouseState is the hardware state of the pointer device.
type MouseState struct {
	// DeltaX/DeltaY accumulate signed motion since the last Reset.
	DeltaX, DeltaY int32

	// WheelV/WheelH accumulate wheel detents since the last Reset.
	WheelV, WheelH int32

	// Buttons is a bitset: bit 0=left, 1=right, 2=middle, 3=x1, 4=x2.
	Buttons uint8
}

// Pressed reports whether a button (input.ButtonLeft ...) is held.
func (s MouseState) Pressed(button int) bool {
	if button < input.ButtonLeft || button > input.ButtonX2 {
		return false
	}
	return s.Buttons&(1<<(button-1)) != 0
}

type mouseInput uint8

const (
	mouseDeltaX mouseInput = iota + 1
	mouseDeltaY
	mouseDelta
	mouseWheel
	mouseWheelH
	mouseLeft
	mouseRight
	mouseMiddle
	mouseX1
	mouseX2
)

// mouseTable lists the input paths (the part after "/input/") of the mouse.
var mouseTable = []struct {
	path  string
	input mouseInput
}{
	{"delta_x/scalar", mouseDeltaX},
	{"delta_y/scalar", mouseDeltaY},
	{"delta/vector2", mouseDelta},
	{"wheel/scalar", mouseWheel},
	{"wheel_h/scalar", mouseWheelH},
	{"left/click", mouseLeft},
	{"right/click", mouseRight},
	{"middle/click", mouseMiddle},
	{"x1/click", mouseX1},
	{"x2/click", mouseX2},
}

// Mouse is the pointer device.
type Mouse struct {
	state  MouseState
	inputs map[intern.Path]mouseInput
	order  []intern.Path
}

// NewMouse creates a mouse with its mapping table interned in in.
func NewMouse(in *intern.Interner) *Mouse {
	m := &Mouse{
		inputs: make(map[intern.Path]mouseInput, len(mouseTable)),
		order:  make([]intern.Path, 0, len(mouseTable)),
	}
	for _, entry := range mouseTable {
		p := in.Intern(entry.path)
		m.inputs[p] = entry.input
		m.order = append(m.order, p)
	}
	return m
}

func (m *Mouse) sealed() {}

// Class implements Device.
func (m *Mouse) Class() input.DeviceClass {
	return input.ClassMouse
}

// State returns a copy of the current state.
func (m *Mouse) State() MouseState {
	return m.state
}

// Reset zeroes the motion and wheel accumulators.
func (m *Mouse) Reset() {
	m.state.DeltaX = 0
	m.state.DeltaY = 0
	m.state.WheelV = 0
	m.state.WheelH = 0
}

// Apply folds a mouse event into the state. Non-mouse events are ignored.
func (m *Mouse) Apply(ev input.InputEvent) {
	switch ev.Type {
	case input.EventMouseMove:
		m.state.DeltaX += int32(ev.DeltaX)
		m.state.DeltaY += int32(ev.DeltaY)
	case input.EventMouseWheel:
		m.state.WheelV += int32(ev.WheelDelta)
	case input.EventMouseWheelH:
		m.state.WheelH += int32(ev.WheelDelta)
	case input.EventMouseButton:
		if ev.Button < input.ButtonLeft || ev.Button > input.ButtonX2 {
			return
		}
		bit := uint8(1) << (ev.Button - 1)
		if ev.Pressed {
			m.state.Buttons |= bit
		} else {
			m.state.Buttons &^= bit
		}
	}
}

// Map implements Device.
func (m *Mouse) Map(inputPath intern.Path) (Value, bool) {
	in, ok := m.inputs[inputPath]
	if !ok {
		return Value{}, false
	}
	return mapMouse(in, m.state), true
}

// Inputs implements Device.
func (m *Mouse) Inputs() []intern.Path {
	out := make([]intern.Path, len(m.order))
	copy(out, m.order)
	return out
}

// mapMouse is pure: it reads only s.
func mapMouse(in mouseInput, s MouseState) Value {
	switch in {
	case mouseDeltaX:
		return Float(float32(s.DeltaX))
	case mouseDeltaY:
		return Float(float32(s.DeltaY))
	case mouseDelta:
		return Vec2(float32(s.DeltaX), float32(s.DeltaY))
	case mouseWheel:
		return Float(float32(s.WheelV))
	case mouseWheelH:
		return Float(float32(s.WheelH))
	case mouseLeft:
		return Bool(s.Pressed(input.ButtonLeft))
	case mouseRight:
		return Bool(s.Pressed(input.ButtonRight))
	case mouseMiddle:
		return Bool(s.Pressed(input.ButtonMiddle))
	case mouseX1:
		return Bool(s.Pressed(input.ButtonX1))
	case mouseX2:
		return Bool(s.Pressed(input.ButtonX2))
	default:
		return Value{}
	}
}
