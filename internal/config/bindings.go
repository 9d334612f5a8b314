package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"norse/internal/action"
	"norse/internal/engine"
	"norse/internal/intern"
)

// BindingFile declares action sets, their actions and suggested bindings.
//
//	profile: /interaction_profiles/norse/desktop
//	action_sets:
//	  - name: gameplay
//	    actions:
//	      - name: look
//	        type: vec2
//	        bindings: [/user/mouse/input/delta/vector2]
type BindingFile struct {
	Profile    string          `yaml:"profile"`
	ActionSets []ActionSetSpec `yaml:"action_sets"`
}

// ActionSetSpec is one action set in a BindingFile.
type ActionSetSpec struct {
	Name    string       `yaml:"name"`
	Actions []ActionSpec `yaml:"actions"`
}

// ActionSpec is one action in a BindingFile.
type ActionSpec struct {
	Name     string   `yaml:"name"`
	Type     string   `yaml:"type"`
	Subpaths []string `yaml:"subpaths,omitempty"`
	Bindings []string `yaml:"bindings,omitempty"`
}

// NamedAction is an action created from a BindingFile.
type NamedAction struct {
	Set    string
	Name   string
	Type   action.Type
	Action engine.Action
}

// Applied is what BindingFile.Apply created on an instance.
type Applied struct {
	Sets    []engine.ActionSet
	Actions []NamedAction
}

// Lookup finds an action by set and action name.
func (a *Applied) Lookup(set, name string) (NamedAction, bool) {
	for _, na := range a.Actions {
		if na.Set == set && na.Name == name {
			return na, true
		}
	}
	return NamedAction{}, false
}

// DefaultBindingFile is used when no bindings file is configured.
func DefaultBindingFile() *BindingFile {
	return &BindingFile{
		Profile: engine.DesktopProfile,
		ActionSets: []ActionSetSpec{{
			Name: "default",
			Actions: []ActionSpec{
				{Name: "look", Type: "vec2", Bindings: []string{"/user/mouse/input/delta/vector2"}},
				{Name: "fire", Type: "boolean", Bindings: []string{"/user/mouse/input/left/click"}},
				{Name: "aim", Type: "boolean", Bindings: []string{"/user/mouse/input/right/click"}},
				{Name: "scroll", Type: "float", Bindings: []string{"/user/mouse/input/wheel/scalar"}},
			},
		}},
	}
}

// LoadBindings reads a YAML binding file.
func LoadBindings(path string) (*BindingFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read bindings: %w", err)
	}
	f, err := ParseBindings(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return f, nil
}

// ParseBindings decodes and validates YAML. Unknown keys are rejected.
func ParseBindings(data []byte) (*BindingFile, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var f BindingFile
	if err := dec.Decode(&f); err != nil {
		return nil, fmt.Errorf("parse bindings: %w", err)
	}
	if f.Profile == "" {
		f.Profile = engine.DesktopProfile
	}
	if err := f.Validate(); err != nil {
		return nil, err
	}
	return &f, nil
}

// Validate checks names and action types.
func (f *BindingFile) Validate() error {
	var errs []error
	sets := make(map[string]bool)
	for i, set := range f.ActionSets {
		if set.Name == "" {
			errs = append(errs, fmt.Errorf("action_sets[%d]: name is required", i))
		} else if sets[set.Name] {
			errs = append(errs, fmt.Errorf("action set %q declared twice", set.Name))
		}
		sets[set.Name] = true

		names := make(map[string]bool)
		for j, a := range set.Actions {
			if a.Name == "" {
				errs = append(errs, fmt.Errorf("action set %q: actions[%d]: name is required", set.Name, j))
			} else if names[a.Name] {
				errs = append(errs, fmt.Errorf("action set %q: action %q declared twice", set.Name, a.Name))
			}
			names[a.Name] = true
			if _, err := action.ParseType(a.Type); err != nil {
				errs = append(errs, fmt.Errorf("action %q: %w", a.Name, err))
			}
		}
	}
	return errors.Join(errs...)
}

// Apply creates the declared sets and actions on inst and suggests every
// binding in one call.
func (f *BindingFile) Apply(inst *engine.Instance) (*Applied, error) {
	applied := &Applied{}
	var suggested []engine.SuggestedBinding

	for _, setSpec := range f.ActionSets {
		set, err := inst.CreateActionSet(setSpec.Name)
		if err != nil {
			return nil, err
		}
		applied.Sets = append(applied.Sets, set)

		for _, spec := range setSpec.Actions {
			typ, err := action.ParseType(spec.Type)
			if err != nil {
				return nil, fmt.Errorf("action %q: %w", spec.Name, err)
			}
			subpaths := make([]intern.Path, 0, len(spec.Subpaths))
			for _, sp := range spec.Subpaths {
				subpaths = append(subpaths, inst.StringToPath(sp))
			}
			a, err := inst.CreateAction(set, spec.Name, typ, subpaths)
			if err != nil {
				return nil, err
			}
			applied.Actions = append(applied.Actions, NamedAction{Set: setSpec.Name, Name: spec.Name, Type: typ, Action: a})

			for _, b := range spec.Bindings {
				suggested = append(suggested, engine.SuggestedBinding{Action: a, Binding: inst.StringToPath(b)})
			}
		}
	}

	if err := inst.SuggestInteractionProfileBindings(inst.StringToPath(f.Profile), suggested); err != nil {
		return nil, fmt.Errorf("apply bindings: %w", err)
	}
	return applied, nil
}
