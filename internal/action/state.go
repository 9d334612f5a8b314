package action

// StateBoolean is the readable state of a BooleanInput action.
type StateBoolean struct {
	CurrentState         bool
	ChangedSinceLastSync bool
	IsActive             bool
}

// StateFloat is the readable state of a FloatInput action. CurrentState is
// the running total since the action's set was attached and Delta is the
// contribution of the latest tick.
type StateFloat struct {
	CurrentState         float32
	Delta                float32
	ChangedSinceLastSync bool
	IsActive             bool
}

// StateVec2 is the readable state of a Vec2Input action, accumulated
// componentwise like StateFloat.
type StateVec2 struct {
	X, Y                 float32
	DeltaX, DeltaY       float32
	ChangedSinceLastSync bool
	IsActive             bool
}

// State holds the state of one (action, subpath) slot. Only the field that
// matches Type is meaningful.
type State struct {
	Type    Type
	Boolean StateBoolean
	Float   StateFloat
	Vec2    StateVec2

	// running totals; float32 stops resolving single counts past 2^24
	sumX, sumY float64
}

// NewState returns the zero state for an action of type t.
func NewState(t Type) State {
	return State{Type: t}
}

// Advance moves the state forward by one tick.
func (s *State) Advance(sample Sample) {
	switch s.Type {
	case BooleanInput:
		prev := s.Boolean.CurrentState
		s.Boolean = StateBoolean{
			CurrentState:         sample.Bool,
			ChangedSinceLastSync: sample.Bool != prev,
			IsActive:             sample.Active,
		}
	case FloatInput:
		s.sumX += float64(sample.X)
		s.Float = StateFloat{
			CurrentState:         float32(s.sumX),
			Delta:                sample.X,
			ChangedSinceLastSync: sample.X != 0,
			IsActive:             sample.Active,
		}
	case Vec2Input:
		s.sumX += float64(sample.X)
		s.sumY += float64(sample.Y)
		s.Vec2 = StateVec2{
			X:                    float32(s.sumX),
			Y:                    float32(s.sumY),
			DeltaX:               sample.X,
			DeltaY:               sample.Y,
			ChangedSinceLastSync: sample.X != 0 || sample.Y != 0,
			IsActive:             sample.Active,
		}
	}
}

// Reset returns the slot to its zero state.
func (s *State) Reset() {
	*s = NewState(s.Type)
}
