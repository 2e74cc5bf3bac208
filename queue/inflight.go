package queue

import "sync"

// InflightSet tracks message identifiers currently being processed.
// Membership means exactly one worker invocation holds the identifier.
// It is memory-only: a process restart or a second consumer process provides
// no duplicate protection, which is acceptable while consumer concurrency is
// pinned to one.
type InflightSet struct {
	mu  sync.Mutex
	ids map[string]struct{}
}

// NewInflightSet creates an empty in-flight set.
func NewInflightSet() *InflightSet {
	return &InflightSet{ids: make(map[string]struct{})}
}

// TryAcquire atomically inserts id and reports whether it was absent.
// A false return means a concurrent attempt already holds the identifier.
func (s *InflightSet) TryAcquire(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, held := s.ids[id]; held {
		return false
	}
	s.ids[id] = struct{}{}
	return true
}

// Release removes id unconditionally. Releasing an absent id is a no-op.
func (s *InflightSet) Release(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.ids, id)
}

// Len returns the number of identifiers currently held.
func (s *InflightSet) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.ids)
}
