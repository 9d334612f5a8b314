package engine

import (
	"errors"
	"fmt"

	"norse/internal/action"
)

var (
	// ErrUnknownPath is returned when a Path was not produced by this
	// instance's interner
	ErrUnknownPath = errors.New("engine: unknown path")

	// ErrTypeMismatch is returned when an action's state is queried as a
	// different type than it was declared with
	ErrTypeMismatch = errors.New("engine: action type mismatch")

	// ErrDeviceEnumerationFailed wraps a failed physical device query
	ErrDeviceEnumerationFailed = errors.New("engine: device enumeration failed")

	// ErrInvalidHandle is returned for handles that were destroyed or never
	// issued by this instance
	ErrInvalidHandle = errors.New("engine: invalid handle")

	// ErrInvalidActionType is returned when creating an action with an
	// undeclared type
	ErrInvalidActionType = errors.New("engine: invalid action type")

	// ErrActionSetNotAttached is returned when a set is used by a session it
	// was not attached to
	ErrActionSetNotAttached = errors.New("engine: action set not attached")

	// ErrActionSetsAlreadyAttached is returned when attaching twice, or when
	// mutating actions or bindings after attachment froze them
	ErrActionSetsAlreadyAttached = errors.New("engine: action sets already attached")

	// ErrPathUnsupported is returned when querying a subpath the action does
	// not declare
	ErrPathUnsupported = errors.New("engine: subpath not declared on action")

	// ErrInvalidSourcePath is the sentinel behind InvalidSourcePathError
	ErrInvalidSourcePath = errors.New("engine: invalid source path")

	// ErrSessionClosed is returned by every session call after Close
	ErrSessionClosed = errors.New("engine: session closed")
)

// TypeMismatchError reports a state query of the wrong shape.
type TypeMismatchError struct {
	Action    string
	Declared  action.Type
	Requested action.Type
}

func (e *TypeMismatchError) Error() string {
	return fmt.Sprintf("engine: action %q is %s, queried as %s", e.Action, e.Declared, e.Requested)
}

func (e *TypeMismatchError) Unwrap() error {
	return ErrTypeMismatch
}

// InvalidSourcePathError reports a binding path that does not split into a
// user path and an input path at "/input/".
type InvalidSourcePathError struct {
	Path string
}

func (e *InvalidSourcePathError) Error() string {
	return fmt.Sprintf("engine: source path %q has no %q component", e.Path, inputSeparator)
}

func (e *InvalidSourcePathError) Unwrap() error {
	return ErrInvalidSourcePath
}
