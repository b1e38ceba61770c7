package seen

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/nixlim/mixwatch/internal/storage"
)

// DefaultCap is the number of fingerprints retained per user.
const DefaultCap = 1000

const opTimeout = 3 * time.Second

// Key returns the storage key of a user's seen set.
func Key(userID string) string {
	return "seen_alerts_" + userID
}

// Store loads and saves per-user seen sets through a KV. Sets are loaded
// lazily and cached, so every caller shares one in-memory set per user.
// Storage failures are logged and the in-memory set keeps working.
type Store struct {
	kv  storage.KV
	cap int

	mu    sync.Mutex
	cache map[string]*Set
}

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithCap sets the number of fingerprints retained per user.
func WithCap(n int) StoreOption {
	return func(s *Store) {
		if n > 0 {
			s.cap = n
		}
	}
}

// NewStore creates a Store over kv.
func NewStore(kv storage.KV, opts ...StoreOption) *Store {
	s := &Store{
		kv:    kv,
		cap:   DefaultCap,
		cache: make(map[string]*Set),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Load returns the user's seen set, reading it from storage on first use.
// Missing, corrupt or unreadable data yields an empty set.
func (s *Store) Load(userID string) *Set {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadLocked(userID)
}

func (s *Store) loadLocked(userID string) *Set {
	if set, ok := s.cache[userID]; ok {
		return set
	}
	set := s.read(userID)
	s.cache[userID] = set
	return set
}

func (s *Store) read(userID string) *Set {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	data, ok, err := s.kv.Get(ctx, Key(userID))
	if err != nil {
		log.Printf("WARNING: loading seen alerts for user %s: %v", userID, err)
		return NewSet()
	}
	if !ok {
		return NewSet()
	}

	var fps []string
	if err := json.Unmarshal(data, &fps); err != nil {
		log.Printf("WARNING: discarding corrupt seen alerts for user %s: %v", userID, err)
		return NewSet()
	}
	return NewSet(fps...)
}

// Save truncates set to the most recent fingerprints and writes it. The
// cached set for the user is replaced by set.
func (s *Store) Save(userID string, set *Set) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cache[userID] = set
	return s.writeLocked(userID, set)
}

func (s *Store) writeLocked(userID string, set *Set) error {
	set.Truncate(s.cap)
	data, err := json.Marshal(set.List())
	if err != nil {
		return fmt.Errorf("encoding seen alerts: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()
	if err := s.kv.Set(ctx, Key(userID), data); err != nil {
		return fmt.Errorf("saving seen alerts for user %s: %w", userID, err)
	}
	return nil
}

// MarkSeen unions fps into the user's current set and persists the result.
// It returns the number of fingerprints that were new. Persistence failures
// are logged; the in-memory set is still updated.
func (s *Store) MarkSeen(userID string, fps ...string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	set := s.loadLocked(userID)
	added := set.Add(fps...)
	if added == 0 {
		return 0
	}
	if err := s.writeLocked(userID, set); err != nil {
		log.Printf("WARNING: %v", err)
	}
	return added
}

// Forget drops the cached set for a user, forcing the next Load to read
// storage again.
func (s *Store) Forget(userID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.cache, userID)
}
