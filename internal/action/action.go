// Package action defines the typed action model: action types, the bound
// sources of an action and the per-subpath state that each synchronization
// tick advances.
package action

import (
	"fmt"

	"norse/internal/device"
	"norse/internal/intern"
)

// Type is the declared value shape of an action.
type Type uint8

const (
	BooleanInput Type = iota + 1
	FloatInput
	Vec2Input
	VibrationOutput
)

func (t Type) String() string {
	switch t {
	case BooleanInput:
		return "boolean_input"
	case FloatInput:
		return "float_input"
	case Vec2Input:
		return "vector2f_input"
	case VibrationOutput:
		return "vibration_output"
	default:
		return fmt.Sprintf("type(%d)", uint8(t))
	}
}

// Valid reports whether t is one of the declared action types.
func (t Type) Valid() bool {
	return t >= BooleanInput && t <= VibrationOutput
}

// ParseType maps the names produced by String back to a Type.
func ParseType(s string) (Type, error) {
	switch s {
	case "boolean_input", "boolean", "bool":
		return BooleanInput, nil
	case "float_input", "float":
		return FloatInput, nil
	case "vector2f_input", "vec2":
		return Vec2Input, nil
	case "vibration_output", "vibration":
		return VibrationOutput, nil
	default:
		return 0, fmt.Errorf("unknown action type %q", s)
	}
}

// Source is one bound hardware input, split into the user path of the device
// and the input path inside that device.
type Source struct {
	User  intern.Path
	Input intern.Path
}

// Sample is the combined contribution of every source of an action during
// one tick.
type Sample struct {
	// Active is set once a source resolved to a mapped device input.
	Active bool
	Bool   bool
	X, Y   float32
}

// Add folds one mapped device value into the sample as an input of type t.
// Values whose shape cannot feed t are skipped and do not mark the sample
// active.
func (s *Sample) Add(t Type, v device.Value) {
	switch t {
	case BooleanInput:
		switch v.Kind {
		case device.KindBoolean:
			s.Bool = s.Bool || v.Bool
		case device.KindFloat:
			s.Bool = s.Bool || v.Float != 0
		default:
			return
		}
	case FloatInput:
		switch v.Kind {
		case device.KindFloat:
			s.X += v.Float
		case device.KindBoolean:
			if v.Bool {
				s.X++
			}
		default:
			return
		}
	case Vec2Input:
		if v.Kind != device.KindVec2 {
			return
		}
		s.X += v.X
		s.Y += v.Y
	default:
		return
	}
	s.Active = true
}
