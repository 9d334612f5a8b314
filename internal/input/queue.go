package input

import "sync"

// DefaultQueueCapacity bounds a Queue created with a non-positive capacity.
const DefaultQueueCapacity = 1000

// Queue is a bounded FIFO of input events. Producers may Push from any
// goroutine; the session drains it once per synchronization tick.
//
// When the queue is full new events are dropped and counted.
type Queue struct {
	mu       sync.Mutex
	events   []InputEvent
	capacity int
	dropped  uint64
	closed   bool
}

// NewQueue creates a queue holding at most capacity events.
func NewQueue(capacity int) *Queue {
	if capacity <= 0 {
		capacity = DefaultQueueCapacity
	}
	return &Queue{
		events:   make([]InputEvent, 0, 64),
		capacity: capacity,
	}
}

// Push appends an event. It returns false if the event was dropped because
// the queue is full or closed.
func (q *Queue) Push(ev InputEvent) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return false
	}
	if len(q.events) >= q.capacity {
		q.dropped++
		return false
	}
	if ev.Class == ClassUnknown {
		ev.Class = ClassOf(ev.Type)
	}
	q.events = append(q.events, ev)
	return true
}

// Drain removes and returns all queued events in arrival order.
func (q *Queue) Drain() []InputEvent {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.events) == 0 {
		return nil
	}
	out := q.events
	q.events = make([]InputEvent, 0, cap(out))
	return out
}

// Len returns the number of pending events.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.events)
}

// Dropped returns how many events were discarded because the queue was full.
func (q *Queue) Dropped() uint64 {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.dropped
}

// Close rejects further pushes. Pending events can still be drained.
func (q *Queue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.closed = true
	return nil
}
