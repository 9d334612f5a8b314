package engine

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"norse/internal/action"
	"norse/internal/input"
	"norse/internal/intern"
)

type fixture struct {
	inst    *Instance
	set     ActionSet
	queue   *input.Queue
	session *Session
	logs    *bytes.Buffer
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	logs := &bytes.Buffer{}
	logger := slog.New(slog.NewTextHandler(logs, &slog.HandlerOptions{Level: slog.LevelDebug}))

	inst, err := New(WithLogger(logger), WithDeviceEnumerator(input.StaticEnumerator{}))
	require.NoError(t, err)
	set, err := inst.CreateActionSet("gameplay")
	require.NoError(t, err)

	return &fixture{inst: inst, set: set, queue: input.NewQueue(16), logs: logs}
}

func (f *fixture) action(t *testing.T, name string, typ action.Type, subpaths ...intern.Path) Action {
	t.Helper()
	a, err := f.inst.CreateAction(f.set, name, typ, subpaths)
	require.NoError(t, err)
	return a
}

func (f *fixture) bind(t *testing.T, a Action, paths ...string) {
	t.Helper()
	bs := make([]SuggestedBinding, 0, len(paths))
	for _, p := range paths {
		bs = append(bs, SuggestedBinding{Action: a, Binding: f.inst.StringToPath(p)})
	}
	require.NoError(t, f.inst.SuggestInteractionProfileBindings(f.inst.StringToPath(DesktopProfile), bs))
}

func (f *fixture) start(t *testing.T) *Session {
	t.Helper()
	sys, err := f.inst.CreateSystem()
	require.NoError(t, err)
	s, err := f.inst.CreateSession(sys, WithEventSource(f.queue))
	require.NoError(t, err)
	require.NoError(t, s.AttachActionSets(f.set))
	t.Cleanup(func() { _ = s.Close() })
	f.session = s
	return s
}

func TestPathRoundTrip(t *testing.T) {
	f := newFixture(t)

	p := f.inst.StringToPath("/user/mouse")
	assert.Equal(t, p, f.inst.StringToPath("/user/mouse"))
	assert.NotEqual(t, p, f.inst.StringToPath("/user/keyboard"))

	s, err := f.inst.PathToString(p)
	require.NoError(t, err)
	assert.Equal(t, "/user/mouse", s)

	_, err = f.inst.PathToString(intern.Path(9999))
	assert.ErrorIs(t, err, ErrUnknownPath)
}

func TestEnumeratePhysicalDevices(t *testing.T) {
	devices := []input.PhysicalDevice{{Handle: 7, Class: input.ClassMouse}}
	inst, err := New(WithDeviceEnumerator(input.StaticEnumerator{Devices: devices}))
	require.NoError(t, err)

	got, err := inst.EnumeratePhysicalDevices(context.Background())
	require.NoError(t, err)
	assert.Equal(t, devices, got)

	cause := errors.New("access denied")
	inst, err = New(WithDeviceEnumerator(input.StaticEnumerator{Err: cause}))
	require.NoError(t, err)
	_, err = inst.EnumeratePhysicalDevices(context.Background())
	assert.ErrorIs(t, err, ErrDeviceEnumerationFailed)
	assert.ErrorIs(t, err, cause)
}

func TestEndToEnd_DeltaX(t *testing.T) {
	f := newFixture(t)
	look := f.action(t, "look_x", action.FloatInput)
	f.bind(t, look, "/user/mouse/input/delta_x/scalar")
	s := f.start(t)

	f.queue.Push(input.MouseMove(5, 0))
	require.NoError(t, s.SyncActions(f.set))

	st, err := s.GetActionStateFloat(look, intern.Null)
	require.NoError(t, err)
	assert.Equal(t, float32(5), st.CurrentState)
	assert.True(t, st.IsActive)
	assert.Equal(t, uint64(1), s.Frame())
}

func TestSync_FloatAccumulatesAcrossTicks(t *testing.T) {
	f := newFixture(t)
	look := f.action(t, "look_x", action.FloatInput)
	f.bind(t, look, "/user/mouse/input/delta_x/scalar")
	s := f.start(t)

	f.queue.Push(input.MouseMove(3, 0))
	require.NoError(t, s.SyncActions(f.set))
	f.queue.Push(input.MouseMove(4, 0))
	require.NoError(t, s.SyncActions(f.set))

	st, err := s.GetActionStateFloat(look, intern.Null)
	require.NoError(t, err)
	assert.Equal(t, float32(7), st.CurrentState)
	assert.Equal(t, float32(4), st.Delta)
}

func TestSync_EventsWithinTickAreSummed(t *testing.T) {
	f := newFixture(t)
	look := f.action(t, "look", action.Vec2Input)
	f.bind(t, look, "/user/mouse/input/delta/vector2")
	s := f.start(t)

	f.queue.Push(input.MouseMove(1, 2))
	f.queue.Push(input.MouseMove(3, -5))
	require.NoError(t, s.SyncActions(f.set))

	st, err := s.GetActionStateVec2(look, intern.Null)
	require.NoError(t, err)
	assert.Equal(t, float32(4), st.X)
	assert.Equal(t, float32(-3), st.Y)

	require.NoError(t, s.SyncActions(f.set))
	st, err = s.GetActionStateVec2(look, intern.Null)
	require.NoError(t, err)
	assert.Zero(t, st.DeltaX, "device deltas reset each tick")
	assert.False(t, st.ChangedSinceLastSync)
}

func TestSync_BooleanOrAcrossSources(t *testing.T) {
	f := newFixture(t)
	fire := f.action(t, "fire", action.BooleanInput)
	f.bind(t, fire, "/user/mouse/input/left/click", "/user/mouse/input/right/click")
	s := f.start(t)

	f.queue.Push(input.MouseButton(input.ButtonRight, true))
	require.NoError(t, s.SyncActions(f.set))

	st, err := s.GetActionStateBoolean(fire, intern.Null)
	require.NoError(t, err)
	assert.True(t, st.CurrentState)
	assert.True(t, st.ChangedSinceLastSync)

	require.NoError(t, s.SyncActions(f.set))
	st, err = s.GetActionStateBoolean(fire, intern.Null)
	require.NoError(t, err)
	assert.True(t, st.CurrentState, "button stays held")
	assert.False(t, st.ChangedSinceLastSync)

	f.queue.Push(input.MouseButton(input.ButtonRight, false))
	require.NoError(t, s.SyncActions(f.set))
	st, err = s.GetActionStateBoolean(fire, intern.Null)
	require.NoError(t, err)
	assert.False(t, st.CurrentState)
}

func TestUnboundBooleanIsFalse(t *testing.T) {
	f := newFixture(t)
	jump := f.action(t, "jump", action.BooleanInput)
	s := f.start(t)

	f.queue.Push(input.MouseButton(input.ButtonLeft, true))
	require.NoError(t, s.SyncActions(f.set))

	st, err := s.GetActionStateBoolean(jump, intern.Null)
	require.NoError(t, err)
	assert.False(t, st.CurrentState)
	assert.False(t, st.IsActive)
}

func TestTypeMismatch(t *testing.T) {
	f := newFixture(t)
	look := f.action(t, "look_x", action.FloatInput)
	s := f.start(t)

	_, err := s.GetActionStateBoolean(look, intern.Null)
	require.ErrorIs(t, err, ErrTypeMismatch)

	var tme *TypeMismatchError
	require.ErrorAs(t, err, &tme)
	assert.Equal(t, "look_x", tme.Action)
	assert.Equal(t, action.FloatInput, tme.Declared)
	assert.Equal(t, action.BooleanInput, tme.Requested)
}

func TestKeyboardEventsDoNotAffectMouseActions(t *testing.T) {
	f := newFixture(t)
	look := f.action(t, "look_x", action.FloatInput)
	f.bind(t, look, "/user/mouse/input/delta_x/scalar", "/user/keyboard/input/a/click")
	s := f.start(t)

	f.queue.Push(input.Key(0x41, true, 0))
	f.queue.Push(input.InputEvent{Type: "gamepad"})
	require.NoError(t, s.SyncActions(f.set))

	st, err := s.GetActionStateFloat(look, intern.Null)
	require.NoError(t, err)
	assert.Zero(t, st.CurrentState)
	assert.True(t, st.IsActive, "mouse source still resolves")
	assert.Equal(t, uint64(1), s.Devices().Keyboard().Events())
}

func TestSubpathFiltering(t *testing.T) {
	f := newFixture(t)
	mouse := f.inst.StringToPath("/user/mouse")
	keyboard := f.inst.StringToPath("/user/keyboard")
	look := f.action(t, "look_x", action.FloatInput, mouse, keyboard)
	f.bind(t, look, "/user/mouse/input/delta_x/scalar")
	s := f.start(t)

	f.queue.Push(input.MouseMove(2, 0))
	require.NoError(t, s.SyncActions(f.set))

	st, err := s.GetActionStateFloat(look, mouse)
	require.NoError(t, err)
	assert.Equal(t, float32(2), st.CurrentState)

	st, err = s.GetActionStateFloat(look, keyboard)
	require.NoError(t, err)
	assert.Zero(t, st.CurrentState)

	st, err = s.GetActionStateFloat(look, intern.Null)
	require.NoError(t, err)
	assert.Equal(t, float32(2), st.CurrentState, "NULL aggregates every source")
	assert.True(t, st.IsActive)

	_, err = s.GetActionStateFloat(look, f.inst.StringToPath("/user/gamepad"))
	assert.ErrorIs(t, err, ErrPathUnsupported)
}

func TestNullSubpath_AggregatesAcrossUserPaths(t *testing.T) {
	f := newFixture(t)
	mouse := f.inst.StringToPath("/user/mouse")
	fire := f.action(t, "fire", action.BooleanInput, mouse)
	f.bind(t, fire, "/user/mouse/input/left/click", "/user/keyboard/input/space/click")
	s := f.start(t)

	f.queue.Push(input.MouseButton(input.ButtonLeft, true))
	require.NoError(t, s.SyncActions(f.set))

	all, err := s.GetActionStateBoolean(fire, intern.Null)
	require.NoError(t, err)
	assert.True(t, all.CurrentState)

	onlyMouse, err := s.GetActionStateBoolean(fire, mouse)
	require.NoError(t, err)
	assert.Equal(t, all, onlyMouse)
}

func TestSuggestBindings_NonDesktopProfileIgnored(t *testing.T) {
	f := newFixture(t)
	look := f.action(t, "look_x", action.FloatInput)
	f.bind(t, look, "/user/mouse/input/delta_x/scalar")

	desktop := f.inst.StringToPath(DesktopProfile)
	before, err := f.inst.Bindings(look, desktop)
	require.NoError(t, err)

	other := f.inst.StringToPath("/interaction_profiles/khr/simple_controller")
	err = f.inst.SuggestInteractionProfileBindings(other, []SuggestedBinding{
		{Action: look, Binding: f.inst.StringToPath("/user/mouse/input/delta_y/scalar")},
	})
	require.NoError(t, err)

	after, err := f.inst.Bindings(look, desktop)
	require.NoError(t, err)
	assert.Equal(t, before, after)
	assert.Contains(t, f.logs.String(), "unsupported interaction profile")

	otherList, err := f.inst.Bindings(look, other)
	require.NoError(t, err)
	assert.Empty(t, otherList)
}

func TestSuggestBindings_Idempotent(t *testing.T) {
	f := newFixture(t)
	look := f.action(t, "look_x", action.FloatInput)
	f.bind(t, look, "/user/mouse/input/delta_x/scalar")
	f.bind(t, look, "/user/mouse/input/delta_x/scalar", "/user/mouse/input/delta_x/scalar")

	got, err := f.inst.Bindings(look, f.inst.StringToPath(DesktopProfile))
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, f.inst.StringToPath("/user/mouse"), got[0].User)
	assert.Equal(t, f.inst.StringToPath("delta_x/scalar"), got[0].Input)
}

func TestSuggestBindings_InvalidSourcePathAppliesNothing(t *testing.T) {
	f := newFixture(t)
	look := f.action(t, "look_x", action.FloatInput)
	desktop := f.inst.StringToPath(DesktopProfile)

	err := f.inst.SuggestInteractionProfileBindings(desktop, []SuggestedBinding{
		{Action: look, Binding: f.inst.StringToPath("/user/mouse/input/delta_x/scalar")},
		{Action: look, Binding: f.inst.StringToPath("/user/mouse/delta_y")},
	})
	require.ErrorIs(t, err, ErrInvalidSourcePath)

	var spe *InvalidSourcePathError
	require.ErrorAs(t, err, &spe)
	assert.Equal(t, "/user/mouse/delta_y", spe.Path)

	got, err := f.inst.Bindings(look, desktop)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestSuggestBindings_AfterAttach(t *testing.T) {
	f := newFixture(t)
	look := f.action(t, "look_x", action.FloatInput)
	f.start(t)

	err := f.inst.SuggestInteractionProfileBindings(f.inst.StringToPath(DesktopProfile), []SuggestedBinding{
		{Action: look, Binding: f.inst.StringToPath("/user/mouse/input/delta_x/scalar")},
	})
	assert.ErrorIs(t, err, ErrActionSetsAlreadyAttached)

	_, err = f.inst.CreateAction(f.set, "late", action.BooleanInput, nil)
	assert.ErrorIs(t, err, ErrActionSetsAlreadyAttached)

	lateSet, err := f.inst.CreateActionSet("menu")
	require.NoError(t, err)
	_, err = f.inst.CreateAction(lateSet, "confirm", action.BooleanInput, nil)
	assert.ErrorIs(t, err, ErrActionSetsAlreadyAttached, "unattached sets are frozen too")
}

func TestAttachActionSets_Once(t *testing.T) {
	f := newFixture(t)
	s := f.start(t)
	assert.ErrorIs(t, s.AttachActionSets(f.set), ErrActionSetsAlreadyAttached)
}

func TestSyncActions_UnattachedSet(t *testing.T) {
	f := newFixture(t)
	other, err := f.inst.CreateActionSet("menu")
	require.NoError(t, err)
	menu, err := f.inst.CreateAction(other, "select", action.BooleanInput, nil)
	require.NoError(t, err)
	s := f.start(t)

	f.queue.Push(input.MouseMove(1, 0))
	require.ErrorIs(t, s.SyncActions(f.set, other), ErrActionSetNotAttached)
	assert.Equal(t, 1, f.queue.Len(), "rejected sync does not drain")
	assert.Zero(t, s.Frame())

	_, err = s.GetActionStateBoolean(menu, intern.Null)
	assert.ErrorIs(t, err, ErrActionSetNotAttached)
}

func TestDestroyHandles(t *testing.T) {
	f := newFixture(t)
	a := f.action(t, "look_x", action.FloatInput)
	b := f.action(t, "fire", action.BooleanInput)

	require.NoError(t, f.inst.DestroyAction(a))
	assert.ErrorIs(t, f.inst.DestroyAction(a), ErrInvalidHandle)
	_, err := f.inst.ActionInfo(a)
	assert.ErrorIs(t, err, ErrInvalidHandle)

	actions, err := f.inst.Actions(f.set)
	require.NoError(t, err)
	assert.Equal(t, []Action{b}, actions)

	require.NoError(t, f.inst.DestroyActionSet(f.set))
	_, err = f.inst.ActionInfo(b)
	assert.ErrorIs(t, err, ErrInvalidHandle, "destroying a set destroys its actions")
	_, err = f.inst.CreateAction(f.set, "x", action.FloatInput, nil)
	assert.ErrorIs(t, err, ErrInvalidHandle)
}

func TestCreateAction_Validation(t *testing.T) {
	f := newFixture(t)

	_, err := f.inst.CreateAction(f.set, "bad", action.Type(42), nil)
	assert.ErrorIs(t, err, ErrInvalidActionType)

	_, err = f.inst.CreateAction(f.set, "bad", action.FloatInput, []intern.Path{intern.Path(4242)})
	assert.ErrorIs(t, err, ErrUnknownPath)

	info, err := f.inst.ActionInfo(f.action(t, "ok", action.Vec2Input))
	require.NoError(t, err)
	assert.Equal(t, "ok", info.Name)
	assert.Equal(t, f.set, info.Set)
}

func TestSession_CloseAndIdentity(t *testing.T) {
	f := newFixture(t)
	look := f.action(t, "look_x", action.FloatInput)
	sys, err := f.inst.CreateSystem()
	require.NoError(t, err)

	_, err = f.inst.CreateSession(System(77))
	assert.ErrorIs(t, err, ErrInvalidHandle)

	id := uuid.New()
	s, err := f.inst.CreateSession(sys, WithEventSource(f.queue), WithSessionID(id))
	require.NoError(t, err)
	assert.Equal(t, id, s.ID())
	require.NoError(t, s.AttachActionSets(f.set))

	require.NoError(t, s.Close())
	require.NoError(t, s.Close())
	assert.ErrorIs(t, s.SyncActions(f.set), ErrSessionClosed)
	_, err = s.GetActionStateFloat(look, intern.Null)
	assert.ErrorIs(t, err, ErrSessionClosed)
}
