package mirror

import "sync"

// PathSet is the expected-path set for one run: written by every
// classification worker, read by both deletion passes after all writers
// have joined. Duplicate adds are harmless.
type PathSet struct {
	mu sync.RWMutex
	m  map[string]struct{}
}

// NewPathSet creates an empty set
func NewPathSet() *PathSet {
	return &PathSet{m: make(map[string]struct{})}
}

// Add registers a path
func (s *PathSet) Add(path string) {
	s.mu.Lock()
	s.m[path] = struct{}{}
	s.mu.Unlock()
}

// Contains reports membership
func (s *PathSet) Contains(path string) bool {
	s.mu.RLock()
	_, ok := s.m[path]
	s.mu.RUnlock()
	return ok
}

// Len reports the number of registered paths
func (s *PathSet) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.m)
}
