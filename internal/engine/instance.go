// Package engine is the action-binding runtime: it owns the path interner,
// action sets, actions and their suggested bindings, and creates sessions
// that turn drained hardware events into typed action states once per tick.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"slices"

	"norse/internal/action"
	"norse/internal/handle"
	"norse/internal/input"
	"norse/internal/intern"
)

// DesktopProfile is the only interaction profile the runtime recognizes.
const DesktopProfile = "/interaction_profiles/norse/desktop"

// System identifies the desktop input system of an instance.
type System uint64

// ActionSet names an action set owned by an Instance.
type ActionSet struct {
	h handle.Handle
}

// IsZero reports whether s is the null action set.
func (s ActionSet) IsZero() bool { return s.h.IsZero() }

// Action names an action owned by an Instance.
type Action struct {
	h handle.Handle
}

// IsZero reports whether a is the null action.
func (a Action) IsZero() bool { return a.h.IsZero() }

// ActionInfo describes a live action.
type ActionInfo struct {
	Name     string
	Set      ActionSet
	Type     action.Type
	Subpaths []intern.Path
}

type actionSetData struct {
	name     string
	actions  []Action
	attached bool
}

type actionData struct {
	name     string
	set      ActionSet
	typ      action.Type
	subpaths []intern.Path
	bindings map[intern.Path][]action.Source
}

func (a *actionData) addBinding(profile intern.Path, src action.Source) bool {
	if slices.Contains(a.bindings[profile], src) {
		return false
	}
	a.bindings[profile] = append(a.bindings[profile], src)
	return true
}

// Instance is the root of the runtime. It is not safe for concurrent use
// apart from StringToPath and PathToString.
type Instance struct {
	logger     *slog.Logger
	paths      *intern.Interner
	enumerator input.DeviceEnumerator

	sets    handle.Arena[*actionSetData]
	actions handle.Arena[*actionData]

	desktop intern.Path
	system  System

	// frozen is set by the first AttachActionSets call of any session.
	frozen bool
}

// Option configures an Instance.
type Option func(*Instance)

// WithLogger sets the logger. The default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(i *Instance) {
		if logger != nil {
			i.logger = logger
		}
	}
}

// WithDeviceEnumerator replaces the OS device query.
func WithDeviceEnumerator(e input.DeviceEnumerator) Option {
	return func(i *Instance) {
		if e != nil {
			i.enumerator = e
		}
	}
}

// WithInterner shares an existing interner with the instance.
func WithInterner(in *intern.Interner) Option {
	return func(i *Instance) {
		if in != nil {
			i.paths = in
		}
	}
}

// New creates an instance.
func New(opts ...Option) (*Instance, error) {
	i := &Instance{
		logger:     slog.Default(),
		paths:      intern.New(),
		enumerator: input.PlatformEnumerator{},
	}
	for _, opt := range opts {
		opt(i)
	}
	i.logger = i.logger.With("component", "engine")
	i.desktop = i.paths.Intern(DesktopProfile)
	i.logger.Debug("Instance created", "profile", DesktopProfile)
	return i, nil
}

// StringToPath interns s.
func (i *Instance) StringToPath(s string) intern.Path {
	return i.paths.Intern(s)
}

// PathToString returns the string behind p.
func (i *Instance) PathToString(p intern.Path) (string, error) {
	s, ok := i.paths.Lookup(p)
	if !ok {
		return "", fmt.Errorf("%w: %d", ErrUnknownPath, p)
	}
	return s, nil
}

// Interner exposes the instance's path table.
func (i *Instance) Interner() *intern.Interner {
	return i.paths
}

// EnumeratePhysicalDevices lists the attached input hardware.
func (i *Instance) EnumeratePhysicalDevices(ctx context.Context) ([]input.PhysicalDevice, error) {
	devices, err := i.enumerator.Enumerate(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDeviceEnumerationFailed, err)
	}
	return devices, nil
}

// CreateSystem returns the desktop system. Repeated calls return the same
// System.
func (i *Instance) CreateSystem() (System, error) {
	if i.system == 0 {
		i.system = 1
	}
	return i.system, nil
}

// CreateActionSet creates an empty action set.
func (i *Instance) CreateActionSet(name string) (ActionSet, error) {
	set := ActionSet{h: i.sets.Insert(&actionSetData{name: name})}
	i.logger.Debug("Action set created", "name", name)
	return set, nil
}

// DestroyActionSet destroys a set together with every action in it.
func (i *Instance) DestroyActionSet(set ActionSet) error {
	data, ok := i.sets.Get(set.h)
	if !ok {
		return fmt.Errorf("destroy action set: %w", ErrInvalidHandle)
	}
	for _, a := range data.actions {
		i.actions.Remove(a.h)
	}
	i.sets.Remove(set.h)
	i.logger.Debug("Action set destroyed", "name", data.name, "actions", len(data.actions))
	return nil
}

// CreateAction creates an action inside set. Subpaths restrict which user
// paths the action reports separately; with none, a single NULL slot
// aggregates every source.
func (i *Instance) CreateAction(set ActionSet, name string, typ action.Type, subpaths []intern.Path) (Action, error) {
	data, ok := i.sets.Get(set.h)
	if !ok {
		return Action{}, fmt.Errorf("create action %q: %w", name, ErrInvalidHandle)
	}
	if data.attached || i.frozen {
		return Action{}, fmt.Errorf("create action %q: %w", name, ErrActionSetsAlreadyAttached)
	}
	if !typ.Valid() {
		return Action{}, fmt.Errorf("create action %q: %w: %d", name, ErrInvalidActionType, typ)
	}
	for _, p := range subpaths {
		if _, ok := i.paths.Lookup(p); !ok || p.IsNull() {
			return Action{}, fmt.Errorf("create action %q: subpath: %w: %d", name, ErrUnknownPath, p)
		}
	}

	a := Action{h: i.actions.Insert(&actionData{
		name:     name,
		set:      set,
		typ:      typ,
		subpaths: slices.Clone(subpaths),
		bindings: make(map[intern.Path][]action.Source),
	})}
	data.actions = append(data.actions, a)
	i.logger.Debug("Action created", "set", data.name, "name", name, "type", typ)
	return a, nil
}

// DestroyAction destroys a single action.
func (i *Instance) DestroyAction(a Action) error {
	data, ok := i.actions.Get(a.h)
	if !ok {
		return fmt.Errorf("destroy action: %w", ErrInvalidHandle)
	}
	if set, ok := i.sets.Get(data.set.h); ok {
		set.actions = slices.DeleteFunc(set.actions, func(x Action) bool { return x == a })
	}
	i.actions.Remove(a.h)
	return nil
}

// ActionInfo returns the declaration of a.
func (i *Instance) ActionInfo(a Action) (ActionInfo, error) {
	data, ok := i.actions.Get(a.h)
	if !ok {
		return ActionInfo{}, ErrInvalidHandle
	}
	return ActionInfo{
		Name:     data.name,
		Set:      data.set,
		Type:     data.typ,
		Subpaths: slices.Clone(data.subpaths),
	}, nil
}

// ActionSetName returns the name set was created with.
func (i *Instance) ActionSetName(set ActionSet) (string, error) {
	data, ok := i.sets.Get(set.h)
	if !ok {
		return "", ErrInvalidHandle
	}
	return data.name, nil
}

// Actions lists the live actions of set in creation order.
func (i *Instance) Actions(set ActionSet) ([]Action, error) {
	data, ok := i.sets.Get(set.h)
	if !ok {
		return nil, ErrInvalidHandle
	}
	return slices.Clone(data.actions), nil
}
