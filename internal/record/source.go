package record

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"norse/internal/input"
)

// Tap records every batch drained from the wrapped source. Frames are
// numbered from 1 in Drain order, matching the session's frame counter.
type Tap struct {
	src     input.EventSource
	store   *Store
	session uuid.UUID
	logger  *slog.Logger
	frame   uint64
	failed  uint64
}

// NewTap wraps src.
func NewTap(src input.EventSource, store *Store, session uuid.UUID, logger *slog.Logger) *Tap {
	if logger == nil {
		logger = slog.Default()
	}
	return &Tap{
		src:     src,
		store:   store,
		session: session,
		logger:  logger.With("component", "recorder"),
	}
}

// Drain implements input.EventSource. Storage failures are logged and do
// not withhold events from the caller.
func (t *Tap) Drain() []input.InputEvent {
	events := t.src.Drain()
	t.frame++
	if err := t.store.AppendFrame(context.Background(), t.session, t.frame, events); err != nil {
		t.failed++
		t.logger.Error("Failed to record frame", "frame", t.frame, "events", len(events), "error", err)
	}
	return events
}

// Failed returns the number of frames that could not be stored.
func (t *Tap) Failed() uint64 {
	return t.failed
}

// Replay yields a recording back one frame per Drain, including the empty
// frames between recorded ones.
type Replay struct {
	frames []Frame
	next   int
	frame  uint64
}

// LoadReplay reads the recording of session.
func LoadReplay(ctx context.Context, store *Store, session uuid.UUID) (*Replay, error) {
	frames, err := store.Frames(ctx, session)
	if err != nil {
		return nil, err
	}
	return &Replay{frames: frames}, nil
}

// Drain implements input.EventSource.
func (r *Replay) Drain() []input.InputEvent {
	r.frame++
	if r.next >= len(r.frames) || r.frames[r.next].Number != r.frame {
		return nil
	}
	events := r.frames[r.next].Events
	r.next++
	return events
}

// Done reports whether every recorded frame was yielded.
func (r *Replay) Done() bool {
	return r.next >= len(r.frames)
}

// Frames returns the number of the last recorded frame.
func (r *Replay) Frames() uint64 {
	if len(r.frames) == 0 {
		return 0
	}
	return r.frames[len(r.frames)-1].Number
}
