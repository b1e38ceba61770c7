package alerts

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// DefaultMaxToasts caps the toasts surfaced from a single poll.
const DefaultMaxToasts = 10

// State is the lifecycle state of a Deduplicator.
type State int

const (
	StateUninitialized State = iota
	StateFirstPollPending
	StateSteady
)

func (s State) String() string {
	switch s {
	case StateFirstPollPending:
		return "first-poll-pending"
	case StateSteady:
		return "steady"
	default:
		return "uninitialized"
	}
}

// Deduplicator decides which anomalies deserve a toast. It remembers every
// fingerprint it has seen this session (the notified set) and seeds that set
// silently from the first poll after Mount, so a cold start never floods the
// user with backlog.
type Deduplicator struct {
	mu        sync.Mutex
	state     State
	notified  map[string]struct{}
	maxToasts int
	now       func() time.Time
}

// DedupOption configures a Deduplicator.
type DedupOption func(*Deduplicator)

// WithMaxToasts sets the per-poll toast cap.
func WithMaxToasts(n int) DedupOption {
	return func(d *Deduplicator) {
		if n > 0 {
			d.maxToasts = n
		}
	}
}

// WithClock sets the time source used to stamp toasts.
func WithClock(now func() time.Time) DedupOption {
	return func(d *Deduplicator) {
		d.now = now
	}
}

// NewDeduplicator creates a Deduplicator in the Uninitialized state.
func NewDeduplicator(opts ...DedupOption) *Deduplicator {
	d := &Deduplicator{
		notified:  make(map[string]struct{}),
		maxToasts: DefaultMaxToasts,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Mount arms the deduplicator for a fresh session. The next Observe seeds the
// notified set without producing toasts.
func (d *Deduplicator) Mount() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.state == StateUninitialized {
		d.state = StateFirstPollPending
	}
}

// Unmount discards the notified set. Observe calls that arrive afterwards are
// ignored until the next Mount.
func (d *Deduplicator) Unmount() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.state = StateUninitialized
	d.notified = make(map[string]struct{})
}

// State returns the current lifecycle state.
func (d *Deduplicator) State() State {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state
}

// Notified reports whether a fingerprint is in the notified set.
func (d *Deduplicator) Notified(fingerprint string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	_, ok := d.notified[fingerprint]
	return ok
}

// NotifiedCount returns the size of the notified set.
func (d *Deduplicator) NotifiedCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.notified)
}

// Observe applies one poll's anomalies and returns the toasts to surface.
// seen may be nil.
func (d *Deduplicator) Observe(events []AnomalyEvent, seen SeenSet) []Toast {
	d.mu.Lock()
	defer d.mu.Unlock()

	switch d.state {
	case StateUninitialized:
		return nil
	case StateFirstPollPending:
		for _, e := range events {
			d.notified[e.Fingerprint] = struct{}{}
		}
		d.state = StateSteady
		return nil
	}

	var toasts []Toast
	for _, e := range events {
		if _, ok := d.notified[e.Fingerprint]; ok {
			continue
		}
		d.notified[e.Fingerprint] = struct{}{}
		if seen != nil && seen.Contains(e.Fingerprint) {
			continue
		}
		if len(toasts) >= d.maxToasts {
			continue
		}
		toasts = append(toasts, d.toastFor(e))
	}
	return toasts
}

func (d *Deduplicator) toastFor(e AnomalyEvent) Toast {
	name := e.MachineName
	if name == "" {
		name = "Machine"
	}
	return Toast{
		ID:          uuid.NewString(),
		Message:     fmt.Sprintf("ALERT: %s ratio %s", name, e.Tier.Label()),
		Tier:        e.Tier,
		Fingerprint: e.Fingerprint,
		MachineID:   e.MachineID,
		ReadingID:   e.ReadingID,
		Ratio:       e.Ratio,
		CreatedAt:   d.now(),
	}
}

// UnreadCount returns the number of distinct anomaly fingerprints not yet in
// the seen set.
func UnreadCount(events []AnomalyEvent, seen SeenSet) int {
	counted := make(map[string]struct{}, len(events))
	n := 0
	for _, e := range events {
		if _, ok := counted[e.Fingerprint]; ok {
			continue
		}
		counted[e.Fingerprint] = struct{}{}
		if seen == nil || !seen.Contains(e.Fingerprint) {
			n++
		}
	}
	return n
}

// Fingerprints returns the fingerprints of events in order.
func Fingerprints(events []AnomalyEvent) []string {
	fps := make([]string, 0, len(events))
	for _, e := range events {
		fps = append(fps, e.Fingerprint)
	}
	return fps
}
