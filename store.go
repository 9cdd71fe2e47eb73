package vertexfsm

import (
	"sync"
	"sync/atomic"
)

// ExtendedStateStore holds the extended state shared by every vertex of a machine.
// Values are replaced wholesale; each commit produces a new version.
// Reads are lock-free, commits are serialized.
//
// The store handed to a callback is a view of the machine's store. Its first
// Read claims the machine's commit slot, which is held until the callback's
// result is committed or discarded, so parallel regions never overwrite each
// other's updates. A callback must not wait on a sibling region after reading.
type ExtendedStateStore[X any] struct {
	mu      sync.Mutex
	current atomic.Pointer[X]
	version atomic.Uint64

	// Set on views only.
	base  *ExtendedStateStore[X]
	claim sync.Once
	held  bool
}

// NewExtendedStateStore creates a store holding initial as version 0.
func NewExtendedStateStore[X any](initial X) *ExtendedStateStore[X] {
	s := &ExtendedStateStore[X]{}
	s.current.Store(&initial)
	return s
}

// Read returns the latest committed extended state.
func (s *ExtendedStateStore[X]) Read() X {
	if s.base != nil {
		s.acquire()
		return s.base.Read()
	}
	return *s.current.Load()
}

// Version returns the number of commits since construction.
func (s *ExtendedStateStore[X]) Version() uint64 {
	if s.base != nil {
		return s.base.Version()
	}
	return s.version.Load()
}

// commit atomically replaces the extended state and returns the new version.
func (s *ExtendedStateStore[X]) commit(value X) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.commitLocked(value)
}

func (s *ExtendedStateStore[X]) commitLocked(value X) uint64 {
	s.current.Store(&value)
	return s.version.Add(1)
}

// view returns a store for one callback invocation. The caller must call
// release once the callback's result has been committed or dropped.
func (s *ExtendedStateStore[X]) view() *ExtendedStateStore[X] {
	return &ExtendedStateStore[X]{base: s}
}

func (s *ExtendedStateStore[X]) acquire() {
	s.claim.Do(func() {
		s.base.mu.Lock()
		s.held = true
	})
}

// publish commits value through the view, claiming the commit slot first if
// the callback never read.
func (s *ExtendedStateStore[X]) publish(value X) uint64 {
	s.acquire()
	return s.base.commitLocked(value)
}

// release frees the commit slot. Reads after release no longer claim it.
func (s *ExtendedStateStore[X]) release() {
	s.claim.Do(func() {})
	if s.held {
		s.held = false
		s.base.mu.Unlock()
	}
}

// detached returns a private store seeded with value. Composed actions use it so
// that a later action observes an earlier one's result without committing it.
func detached[X any](value X) *ExtendedStateStore[X] {
	return NewExtendedStateStore(value)
}
