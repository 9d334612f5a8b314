package engine

import (
	"fmt"
	"slices"
	"strings"

	"norse/internal/action"
	"norse/internal/intern"
)

const inputSeparator = "/input/"

// SuggestedBinding binds an action to a source path such as
// "/user/mouse/input/delta_x/scalar".
type SuggestedBinding struct {
	Action  Action
	Binding intern.Path
}

// SuggestInteractionProfileBindings records bindings for profile.
//
// Suggestions for any profile other than DesktopProfile are dropped with a
// warning. The call is validated as a whole before anything is recorded, and
// a pair already bound is not recorded twice.
func (i *Instance) SuggestInteractionProfileBindings(profile intern.Path, bindings []SuggestedBinding) error {
	if profile != i.desktop {
		name, _ := i.paths.Lookup(profile)
		i.logger.Warn("Ignoring bindings for unsupported interaction profile", "profile", name, "bindings", len(bindings))
		return nil
	}
	if i.frozen {
		return fmt.Errorf("suggest bindings: %w", ErrActionSetsAlreadyAttached)
	}

	type pending struct {
		act *actionData
		src action.Source
	}
	resolved := make([]pending, 0, len(bindings))
	for _, b := range bindings {
		act, ok := i.actions.Get(b.Action.h)
		if !ok {
			return fmt.Errorf("suggest bindings: %w", ErrInvalidHandle)
		}
		path, ok := i.paths.Lookup(b.Binding)
		if !ok {
			return fmt.Errorf("suggest bindings: %w: %d", ErrUnknownPath, b.Binding)
		}
		user, in, ok := splitSourcePath(path)
		if !ok {
			return &InvalidSourcePathError{Path: path}
		}
		resolved = append(resolved, pending{
			act: act,
			src: action.Source{User: i.paths.Intern(user), Input: i.paths.Intern(in)},
		})
	}

	added := 0
	for _, p := range resolved {
		if p.act.addBinding(profile, p.src) {
			added++
			i.logger.Debug("Binding added",
				"action", p.act.name,
				"user", i.paths.Resolve(p.src.User),
				"input", i.paths.Resolve(p.src.Input))
		}
	}
	i.logger.Info("Bindings suggested", "profile", DesktopProfile, "suggested", len(bindings), "added", added)
	return nil
}

// Bindings returns the sources bound to a for profile.
func (i *Instance) Bindings(a Action, profile intern.Path) ([]action.Source, error) {
	data, ok := i.actions.Get(a.h)
	if !ok {
		return nil, ErrInvalidHandle
	}
	return slices.Clone(data.bindings[profile]), nil
}

// splitSourcePath splits "/user/mouse/input/left/click" into "/user/mouse"
// and "left/click".
func splitSourcePath(s string) (user, in string, ok bool) {
	user, in, ok = strings.Cut(s, inputSeparator)
	if !ok || user == "" || in == "" {
		return "", "", false
	}
	return user, in, true
}
