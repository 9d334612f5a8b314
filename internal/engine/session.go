package engine

import (
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/google/uuid"

	"norse/internal/action"
	"norse/internal/device"
	"norse/internal/handle"
	"norse/internal/input"
	"norse/internal/intern"
)

// Session turns drained hardware events into action states, one
// SyncActions call per tick. It is not safe for concurrent use; only its
// event source may be fed from other goroutines.
type Session struct {
	id      uuid.UUID
	inst    *Instance
	logger  *slog.Logger
	source  input.EventSource
	owned   io.Closer
	devices *device.Registry
	profile intern.Path

	attached map[handle.Handle]struct{}
	states   map[Action]map[intern.Path]*action.State

	frame  uint64
	closed bool
}

type sessionConfig struct {
	source input.EventSource
	id     uuid.UUID
}

// SessionOption configures a Session.
type SessionOption func(*sessionConfig)

// WithEventSource replaces the platform raw-input trap. The caller keeps
// ownership of src.
func WithEventSource(src input.EventSource) SessionOption {
	return func(c *sessionConfig) {
		c.source = src
	}
}

// WithSessionID fixes the session id instead of generating one.
func WithSessionID(id uuid.UUID) SessionOption {
	return func(c *sessionConfig) {
		c.id = id
	}
}

// CreateSession creates a session for system using the desktop profile.
func (i *Instance) CreateSession(system System, opts ...SessionOption) (*Session, error) {
	if system == 0 || system != i.system {
		return nil, fmt.Errorf("create session: system: %w", ErrInvalidHandle)
	}

	var cfg sessionConfig
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.id == uuid.Nil {
		cfg.id = uuid.New()
	}

	s := &Session{
		id:       cfg.id,
		inst:     i,
		logger:   i.logger.With("session", cfg.id.String()),
		source:   cfg.source,
		devices:  device.NewRegistry(i.paths),
		profile:  i.desktop,
		attached: make(map[handle.Handle]struct{}),
		states:   make(map[Action]map[intern.Path]*action.State),
	}

	if s.source == nil {
		trap := input.NewTrap(input.NewQueue(input.DefaultQueueCapacity), i.logger)
		if err := trap.Start(); err != nil {
			if !errors.Is(err, input.ErrUnsupportedPlatform) {
				return nil, fmt.Errorf("create session: %w", err)
			}
			s.logger.Warn("Raw input capture unavailable, session will see no hardware events", "error", err)
		}
		s.source = trap
		s.owned = trap
	}

	s.logger.Info("Session created")
	return s, nil
}

// ID returns the session id.
func (s *Session) ID() uuid.UUID {
	return s.id
}

// Frame returns the number of completed SyncActions calls.
func (s *Session) Frame() uint64 {
	return s.frame
}

// Devices exposes the session's device registry.
func (s *Session) Devices() *device.Registry {
	return s.devices
}

// AttachActionSets attaches sets to the session. It may be called once;
// afterwards the actions and bindings of every instance set are frozen.
func (s *Session) AttachActionSets(sets ...ActionSet) error {
	if s.closed {
		return ErrSessionClosed
	}
	if len(s.attached) > 0 {
		return fmt.Errorf("attach action sets: %w", ErrActionSetsAlreadyAttached)
	}

	data := make([]*actionSetData, 0, len(sets))
	for _, set := range sets {
		d, ok := s.inst.sets.Get(set.h)
		if !ok {
			return fmt.Errorf("attach action sets: %w", ErrInvalidHandle)
		}
		data = append(data, d)
	}

	for n, set := range sets {
		d := data[n]
		d.attached = true
		s.attached[set.h] = struct{}{}
		for _, a := range d.actions {
			act, ok := s.inst.actions.Get(a.h)
			if !ok {
				continue
			}
			s.states[a] = newSlots(act)
		}
	}
	s.inst.frozen = true

	s.logger.Info("Action sets attached", "sets", len(sets), "actions", len(s.states))
	return nil
}

// newSlots always includes the NULL slot, which aggregates every bound
// source regardless of user path.
func newSlots(act *actionData) map[intern.Path]*action.State {
	slots := make(map[intern.Path]*action.State, len(act.subpaths)+1)
	st := action.NewState(act.typ)
	slots[intern.Null] = &st
	for _, p := range act.subpaths {
		st := action.NewState(act.typ)
		slots[p] = &st
	}
	return slots
}

// SyncActions runs one tick: it resets the per-tick device accumulators,
// drains the event source once and recomputes the states of every action in
// sets. It never blocks on the event source.
func (s *Session) SyncActions(sets ...ActionSet) error {
	if s.closed {
		return ErrSessionClosed
	}

	data := make([]*actionSetData, 0, len(sets))
	for _, set := range sets {
		d, ok := s.inst.sets.Get(set.h)
		if !ok {
			return fmt.Errorf("sync actions: %w", ErrInvalidHandle)
		}
		if _, ok := s.attached[set.h]; !ok {
			return fmt.Errorf("sync actions: set %q: %w", d.name, ErrActionSetNotAttached)
		}
		data = append(data, d)
	}

	s.devices.Reset()

	events := s.source.Drain()
	ignored := 0
	for _, ev := range events {
		if !s.devices.Dispatch(ev) {
			ignored++
		}
	}

	seen := make(map[*actionSetData]struct{}, len(data))
	for _, d := range data {
		if _, dup := seen[d]; dup {
			continue
		}
		seen[d] = struct{}{}
		for _, a := range d.actions {
			s.evaluate(a)
		}
	}

	s.frame++
	if len(events) > 0 {
		s.logger.Debug("Actions synced", "frame", s.frame, "events", len(events), "ignored", ignored)
	}
	return nil
}

func (s *Session) evaluate(a Action) {
	act, ok := s.inst.actions.Get(a.h)
	if !ok {
		return
	}
	slots, ok := s.states[a]
	if !ok {
		return
	}
	sources := act.bindings[s.profile]

	for subpath, st := range slots {
		var sample action.Sample
		for _, src := range sources {
			if !subpath.IsNull() && src.User != subpath {
				continue
			}
			dev, ok := s.devices.Lookup(src.User)
			if !ok {
				continue
			}
			v, ok := dev.Map(src.Input)
			if !ok {
				continue
			}
			sample.Add(act.typ, v)
		}
		st.Advance(sample)
	}
}

func (s *Session) state(a Action, subpath intern.Path, want action.Type) (*action.State, error) {
	if s.closed {
		return nil, ErrSessionClosed
	}
	act, ok := s.inst.actions.Get(a.h)
	if !ok {
		return nil, ErrInvalidHandle
	}
	if act.typ != want {
		return nil, &TypeMismatchError{Action: act.name, Declared: act.typ, Requested: want}
	}
	if _, ok := s.attached[act.set.h]; !ok {
		return nil, ErrActionSetNotAttached
	}
	st, ok := s.states[a][subpath]
	if !ok {
		return nil, ErrPathUnsupported
	}
	return st, nil
}

// GetActionStateBoolean returns the state of a BooleanInput action as of
// the last sync. Pass intern.Null to read the aggregate of every bound
// source, or a declared subpath to read only that user path's sources.
func (s *Session) GetActionStateBoolean(a Action, subpath intern.Path) (action.StateBoolean, error) {
	st, err := s.state(a, subpath, action.BooleanInput)
	if err != nil {
		return action.StateBoolean{}, err
	}
	return st.Boolean, nil
}

// GetActionStateFloat returns the state of a FloatInput action.
func (s *Session) GetActionStateFloat(a Action, subpath intern.Path) (action.StateFloat, error) {
	st, err := s.state(a, subpath, action.FloatInput)
	if err != nil {
		return action.StateFloat{}, err
	}
	return st.Float, nil
}

// GetActionStateVec2 returns the state of a Vec2Input action.
func (s *Session) GetActionStateVec2(a Action, subpath intern.Path) (action.StateVec2, error) {
	st, err := s.state(a, subpath, action.Vec2Input)
	if err != nil {
		return action.StateVec2{}, err
	}
	return st.Vec2, nil
}

// Close releases the session. An event source created by the session is
// closed with it.
func (s *Session) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	s.logger.Info("Session closed", "frames", s.frame)
	if s.owned != nil {
		return s.owned.Close()
	}
	return nil
}
