package device

import "fmt"

// ValueKind tags the shape of a Value.
type ValueKind uint8

const (
	KindBoolean ValueKind = iota + 1
	KindFloat
	KindVec2
)

func (k ValueKind) String() string {
	switch k {
	case KindBoolean:
		return "boolean"
	case KindFloat:
		return "float"
	case KindVec2:
		return "vec2"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// Value is the typed result of mapping device state through one input path.
type Value struct {
	Kind  ValueKind
	Bool  bool
	Float float32
	X, Y  float32
}

// Bool returns a boolean value.
func Bool(v bool) Value {
	return Value{Kind: KindBoolean, Bool: v}
}

// Float returns a scalar value.
func Float(v float32) Value {
	return Value{Kind: KindFloat, Float: v}
}

// Vec2 returns a two-component value.
func Vec2(x, y float32) Value {
	return Value{Kind: KindVec2, X: x, Y: y}
}
