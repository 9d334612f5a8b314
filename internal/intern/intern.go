// Package intern maps path strings to compact, process-stable identifiers.
package intern

import (
	"fmt"
	"sync"
)

// Path is an interned string. The zero value is Null and denotes "absent".
type Path uint64

// Null is the reserved absent path. It is never returned by Intern.
const Null Path = 0

// IsNull reports whether p is the reserved absent path.
func (p Path) IsNull() bool {
	return p == Null
}

// UnknownPathError is the panic value raised when resolving a Path that was
// never produced by the interner.
type UnknownPathError struct {
	Path Path
}

func (e *UnknownPathError) Error() string {
	return fmt.Sprintf("intern: unknown path %d", uint64(e.Path))
}

// Interner is a bidirectional string <-> Path table. Entries are assigned
// densely in first-seen order starting at 1 and are never removed.
type Interner struct {
	mu        sync.RWMutex
	pathToStr []string
	strToPath map[string]Path
}

// New creates an empty interner.
func New() *Interner {
	return &Interner{
		strToPath: make(map[string]Path),
	}
}

// Intern returns the Path for s, creating it on first sight.
func (in *Interner) Intern(s string) Path {
	in.mu.RLock()
	p, ok := in.strToPath[s]
	in.mu.RUnlock()
	if ok {
		return p
	}

	in.mu.Lock()
	defer in.mu.Unlock()
	if p, ok := in.strToPath[s]; ok {
		return p
	}
	in.pathToStr = append(in.pathToStr, s)
	p = Path(len(in.pathToStr))
	in.strToPath[s] = p
	return p
}

// Lookup returns the string for p and whether p is known.
func (in *Interner) Lookup(p Path) (string, bool) {
	in.mu.RLock()
	defer in.mu.RUnlock()
	if p == Null || uint64(p) > uint64(len(in.pathToStr)) {
		return "", false
	}
	return in.pathToStr[p-1], true
}

// Resolve returns the string for p. Resolving a path this interner never
// produced is a caller bug and panics with *UnknownPathError.
func (in *Interner) Resolve(p Path) string {
	s, ok := in.Lookup(p)
	if !ok {
		panic(&UnknownPathError{Path: p})
	}
	return s
}

// Len returns the number of interned strings.
func (in *Interner) Len() int {
	in.mu.RLock()
	defer in.mu.RUnlock()
	return len(in.pathToStr)
}
