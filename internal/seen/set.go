// Package seen tracks which anomaly fingerprints a user has already viewed,
// persisted per user across sessions.
package seen

import "sync"

// Set is an insertion-ordered set of fingerprints. Re-adding a member keeps
// its original position. All methods are safe for concurrent use.
type Set struct {
	mu    sync.RWMutex
	order []string
	index map[string]struct{}
}

// NewSet creates a set holding fps in order, skipping duplicates.
func NewSet(fps ...string) *Set {
	s := &Set{index: make(map[string]struct{}, len(fps))}
	s.Add(fps...)
	return s
}

// Contains reports whether fp is in the set.
func (s *Set) Contains(fp string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.index[fp]
	return ok
}

// Add appends the fingerprints not already present and returns how many were
// new.
func (s *Set) Add(fps ...string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	added := 0
	for _, fp := range fps {
		if _, ok := s.index[fp]; ok {
			continue
		}
		s.index[fp] = struct{}{}
		s.order = append(s.order, fp)
		added++
	}
	return added
}

// Len returns the number of fingerprints in the set.
func (s *Set) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.order)
}

// List returns the fingerprints oldest first.
func (s *Set) List() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]string(nil), s.order...)
}

// Truncate keeps only the most recently added n fingerprints.
func (s *Set) Truncate(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if n < 0 {
		n = 0
	}
	if len(s.order) <= n {
		return
	}
	drop := s.order[:len(s.order)-n]
	for _, fp := range drop {
		delete(s.index, fp)
	}
	s.order = append([]string(nil), s.order[len(s.order)-n:]...)
}

// Clone returns an independent copy of the set.
func (s *Set) Clone() *Set {
	return NewSet(s.List()...)
}
