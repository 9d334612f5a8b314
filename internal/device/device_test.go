package device

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"norse/internal/input"
	"norse/internal/intern"
)

func TestMouse_ApplyMotion(t *testing.T) {
	in := intern.New()
	m := NewMouse(in)

	m.Apply(input.MouseMove(3, -2))
	m.Apply(input.MouseMove(4, 1))

	s := m.State()
	assert.Equal(t, int32(7), s.DeltaX)
	assert.Equal(t, int32(-1), s.DeltaY)
}

func TestMouse_ResetZeroesDelta(t *testing.T) {
	in := intern.New()
	m := NewMouse(in)

	m.Apply(input.MouseMove(12, 9))
	m.Apply(input.MouseWheel(120, false))
	m.Apply(input.MouseButton(input.ButtonLeft, true))
	m.Reset()

	v, ok := m.Map(in.Intern("delta/vector2"))
	require.True(t, ok)
	assert.Equal(t, Vec2(0, 0), v)

	s := m.State()
	assert.Zero(t, s.WheelV)
	assert.True(t, s.Pressed(input.ButtonLeft), "buttons stay latched across reset")
}

func TestMouse_ButtonsLatch(t *testing.T) {
	in := intern.New()
	m := NewMouse(in)

	m.Apply(input.MouseButton(input.ButtonRight, true))
	m.Apply(input.MouseButton(input.ButtonX2, true))
	m.Apply(input.MouseButton(input.ButtonRight, false))

	s := m.State()
	assert.False(t, s.Pressed(input.ButtonRight))
	assert.True(t, s.Pressed(input.ButtonX2))

	m.Apply(input.MouseButton(9, true))
	assert.Equal(t, s, m.State(), "out-of-range button ignored")
}

func TestMouse_Map(t *testing.T) {
	in := intern.New()
	m := NewMouse(in)

	m.Apply(input.MouseMove(5, -3))
	m.Apply(input.MouseWheel(2, false))
	m.Apply(input.MouseWheel(-1, true))
	m.Apply(input.MouseButton(input.ButtonMiddle, true))

	tests := []struct {
		path string
		want Value
	}{
		{"delta_x/scalar", Float(5)},
		{"delta_y/scalar", Float(-3)},
		{"delta/vector2", Vec2(5, -3)},
		{"wheel/scalar", Float(2)},
		{"wheel_h/scalar", Float(-1)},
		{"left/click", Bool(false)},
		{"right/click", Bool(false)},
		{"middle/click", Bool(true)},
		{"x1/click", Bool(false)},
		{"x2/click", Bool(false)},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			got, ok := m.Map(in.Intern(tt.path))
			require.True(t, ok)
			assert.Equal(t, tt.want, got)
		})
	}

	_, ok := m.Map(in.Intern("thumbstick/x"))
	assert.False(t, ok, "unmapped input path")
	assert.Len(t, m.Inputs(), len(tests))
}

func TestKeyboard_NoMappings(t *testing.T) {
	in := intern.New()
	k := NewKeyboard()

	k.Apply(input.Key(0x41, true, 0))
	assert.Equal(t, uint64(1), k.Events())

	_, ok := k.Map(in.Intern("a/click"))
	assert.False(t, ok)
	assert.Empty(t, k.Inputs())
}

func TestRegistry_LookupAndDispatch(t *testing.T) {
	in := intern.New()
	r := NewRegistry(in)

	dev, ok := r.Lookup(in.Intern(UserMouse))
	require.True(t, ok)
	assert.Equal(t, input.ClassMouse, dev.Class())

	dev, ok = r.Lookup(in.Intern(UserKeyboard))
	require.True(t, ok)
	assert.Equal(t, input.ClassKeyboard, dev.Class())

	_, ok = r.Lookup(in.Intern("/user/hand/left"))
	assert.False(t, ok)

	assert.True(t, r.Dispatch(input.MouseMove(1, 1)))
	assert.True(t, r.Dispatch(input.Key(0x20, true, 0)))
	assert.False(t, r.Dispatch(input.InputEvent{Type: "gamepad"}))

	assert.Equal(t, int32(1), r.Mouse().State().DeltaX)
	assert.Equal(t, uint64(1), r.Keyboard().Events())

	r.Reset()
	assert.Zero(t, r.Mouse().State().DeltaX)
	assert.Len(t, r.UserPaths(), 2)
}
