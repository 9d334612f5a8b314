// Package handle provides an arena addressed by generational indices.
//
// A Handle stays valid until the value it names is removed. Removing bumps
// the slot generation, so stale copies of the handle are detected instead of
// aliasing whatever value reuses the slot later.
package handle

// Handle names a value stored in an Arena. The zero Handle is never valid.
type Handle struct {
	index uint32
	gen   uint32
}

// IsZero reports whether h is the zero (null) handle.
func (h Handle) IsZero() bool {
	return h.gen == 0
}

type slot[T any] struct {
	value T
	gen   uint32
	live  bool
}

// Arena stores values of type T. It is not safe for concurrent use.
type Arena[T any] struct {
	slots []slot[T]
	free  []uint32
	count int
}

// Insert stores v and returns its handle.
func (a *Arena[T]) Insert(v T) Handle {
	var idx uint32
	if n := len(a.free); n > 0 {
		idx = a.free[n-1]
		a.free = a.free[:n-1]
	} else {
		a.slots = append(a.slots, slot[T]{})
		idx = uint32(len(a.slots) - 1)
	}

	s := &a.slots[idx]
	s.gen++
	if s.gen == 0 {
		// generation 0 is reserved for the zero Handle
		s.gen = 1
	}
	s.value = v
	s.live = true
	a.count++
	return Handle{index: idx, gen: s.gen}
}

// Get returns the value named by h, or false if h is stale or was never issued.
func (a *Arena[T]) Get(h Handle) (T, bool) {
	var zero T
	if h.IsZero() || int(h.index) >= len(a.slots) {
		return zero, false
	}
	s := &a.slots[h.index]
	if !s.live || s.gen != h.gen {
		return zero, false
	}
	return s.value, true
}

// Contains reports whether h names a live value.
func (a *Arena[T]) Contains(h Handle) bool {
	_, ok := a.Get(h)
	return ok
}

// Remove deletes the value named by h. It returns false if h was already stale.
func (a *Arena[T]) Remove(h Handle) bool {
	if !a.Contains(h) {
		return false
	}
	s := &a.slots[h.index]
	var zero T
	s.value = zero
	s.live = false
	a.free = append(a.free, h.index)
	a.count--
	return true
}

// Len returns the number of live values.
func (a *Arena[T]) Len() int {
	return a.count
}
