//go:build !windows

package input

import "log/slog"

// Stub implementation for non-Windows platforms

// Trap represents a stub input trap
type Trap struct {
	queue *Queue
}

// NewTrap creates a new stub trap
func NewTrap(queue *Queue, logger *slog.Logger) *Trap {
	if queue == nil {
		queue = NewQueue(DefaultQueueCapacity)
	}
	return &Trap{queue: queue}
}

// Start begins capturing input (stub)
func (t *Trap) Start() error {
	return ErrUnsupportedPlatform
}

// Stop stops capturing input (stub)
func (t *Trap) Stop() error {
	return nil
}

// Close implements io.Closer.
func (t *Trap) Close() error {
	return t.Stop()
}

// Drain returns whatever was pushed into the underlying queue.
func (t *Trap) Drain() []InputEvent {
	return t.queue.Drain()
}
