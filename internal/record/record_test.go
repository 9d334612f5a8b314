package record

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"norse/internal/action"
	"norse/internal/engine"
	"norse/internal/input"
	"norse/internal/intern"
)

func openStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "record.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestOpen_RequiresPath(t *testing.T) {
	_, err := Open("  ")
	assert.Error(t, err)
}

func TestStore_FramesRoundTrip(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()
	id := uuid.New()

	require.NoError(t, store.CreateSession(ctx, id, engine.DesktopProfile))
	require.NoError(t, store.AppendFrame(ctx, id, 1, []input.InputEvent{input.MouseMove(1, 2), input.Key(0x41, true, 0)}))
	require.NoError(t, store.AppendFrame(ctx, id, 2, nil))
	require.NoError(t, store.AppendFrame(ctx, id, 4, []input.InputEvent{input.MouseButton(input.ButtonLeft, true)}))

	frames, err := store.Frames(ctx, id)
	require.NoError(t, err)
	require.Len(t, frames, 2)
	assert.Equal(t, uint64(1), frames[0].Number)
	assert.Equal(t, []input.InputEvent{input.MouseMove(1, 2), input.Key(0x41, true, 0)}, frames[0].Events)
	assert.Equal(t, uint64(4), frames[1].Number)

	sessions, err := store.Sessions(ctx)
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	assert.Equal(t, id, sessions[0].ID)
	assert.Equal(t, 3, sessions[0].Events)
}

func TestStore_UnknownSession(t *testing.T) {
	store := openStore(t)
	_, err := store.Frames(context.Background(), uuid.New())
	assert.ErrorIs(t, err, ErrSessionNotFound)

	assert.Error(t, store.CreateSession(context.Background(), uuid.Nil, "x"))
}

func TestReplay_PreservesFrameGaps(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()
	id := uuid.New()
	require.NoError(t, store.CreateSession(ctx, id, engine.DesktopProfile))

	q := input.NewQueue(8)
	tap := NewTap(q, store, id, slog.New(slog.NewTextHandler(io.Discard, nil)))

	q.Push(input.MouseMove(3, 0))
	assert.Len(t, tap.Drain(), 1)
	assert.Empty(t, tap.Drain())
	q.Push(input.MouseMove(4, 0))
	assert.Len(t, tap.Drain(), 1)
	assert.Zero(t, tap.Failed())

	replay, err := LoadReplay(ctx, store, id)
	require.NoError(t, err)
	assert.Equal(t, uint64(3), replay.Frames())

	assert.Len(t, replay.Drain(), 1)
	assert.Empty(t, replay.Drain())
	assert.False(t, replay.Done())
	assert.Len(t, replay.Drain(), 1)
	assert.True(t, replay.Done())
	assert.Empty(t, replay.Drain())
}

func TestReplay_ReproducesActionState(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()
	id := uuid.New()
	require.NoError(t, store.CreateSession(ctx, id, engine.DesktopProfile))

	run := func(src input.EventSource, feed func()) float32 {
		inst, err := engine.New(engine.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
		require.NoError(t, err)
		set, err := inst.CreateActionSet("gameplay")
		require.NoError(t, err)
		look, err := inst.CreateAction(set, "look_x", action.FloatInput, nil)
		require.NoError(t, err)
		require.NoError(t, inst.SuggestInteractionProfileBindings(inst.StringToPath(engine.DesktopProfile), []engine.SuggestedBinding{
			{Action: look, Binding: inst.StringToPath("/user/mouse/input/delta_x/scalar")},
		}))
		sys, err := inst.CreateSystem()
		require.NoError(t, err)
		s, err := inst.CreateSession(sys, engine.WithEventSource(src))
		require.NoError(t, err)
		defer s.Close()
		require.NoError(t, s.AttachActionSets(set))

		for i := 0; i < 3; i++ {
			if feed != nil {
				feed()
			}
			require.NoError(t, s.SyncActions(set))
		}
		st, err := s.GetActionStateFloat(look, intern.Null)
		require.NoError(t, err)
		return st.CurrentState
	}

	q := input.NewQueue(8)
	tick := 0
	live := run(NewTap(q, store, id, nil), func() {
		tick++
		q.Push(input.MouseMove(tick*2, 0))
	})

	replay, err := LoadReplay(ctx, store, id)
	require.NoError(t, err)
	replayed := run(replay, nil)

	assert.Equal(t, float32(12), live)
	assert.Equal(t, live, replayed)
}
