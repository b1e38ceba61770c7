package feed

import (
	"sync"
	"time"

	"github.com/nixlim/mixwatch/internal/alerts"
)

// DefaultVisibleToasts is the number of toasts kept on screen at once.
const DefaultVisibleToasts = 10

// ToastQueue is a fixed-capacity ring of toasts. When full, the oldest toast
// is evicted. Toasts older than the TTL are hidden and pruned lazily.
type ToastQueue struct {
	mu    sync.RWMutex
	items []alerts.Toast
	cap   int
	head  int // index of the oldest element
	count int
	ttl   time.Duration
}

// NewToastQueue creates a queue holding at most capacity toasts, each
// visible for ttl. A non-positive ttl keeps toasts until dismissed.
func NewToastQueue(capacity int, ttl time.Duration) *ToastQueue {
	if capacity < 1 {
		capacity = 1
	}
	return &ToastQueue{
		items: make([]alerts.Toast, capacity),
		cap:   capacity,
		ttl:   ttl,
	}
}

// Push adds a toast, evicting the oldest when the queue is full.
func (q *ToastQueue) Push(t alerts.Toast) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.count == q.cap {
		q.items[q.head] = t
		q.head = (q.head + 1) % q.cap
		return
	}
	q.items[(q.head+q.count)%q.cap] = t
	q.count++
}

// Visible returns the unexpired toasts, oldest first.
func (q *ToastQueue) Visible(now time.Time) []alerts.Toast {
	q.mu.RLock()
	defer q.mu.RUnlock()

	var out []alerts.Toast
	for _, t := range q.listLocked() {
		if !q.expired(t, now) {
			out = append(out, t)
		}
	}
	return out
}

// Prune drops expired toasts and returns how many were removed.
func (q *ToastQueue) Prune(now time.Time) int {
	return q.removeWhere(func(t alerts.Toast) bool { return q.expired(t, now) })
}

// Dismiss removes the toast with the given id.
func (q *ToastQueue) Dismiss(id string) bool {
	return q.removeWhere(func(t alerts.Toast) bool { return t.ID == id }) > 0
}

// Clear removes every toast.
func (q *ToastQueue) Clear() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.items = make([]alerts.Toast, q.cap)
	q.head, q.count = 0, 0
}

// Len returns the number of stored toasts, expired or not.
func (q *ToastQueue) Len() int {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.count
}

// Cap returns the capacity of the queue.
func (q *ToastQueue) Cap() int {
	return q.cap
}

func (q *ToastQueue) expired(t alerts.Toast, now time.Time) bool {
	return q.ttl > 0 && now.Sub(t.CreatedAt) >= q.ttl
}

func (q *ToastQueue) removeWhere(drop func(alerts.Toast) bool) int {
	q.mu.Lock()
	defer q.mu.Unlock()

	kept := make([]alerts.Toast, 0, q.count)
	for _, t := range q.listLocked() {
		if !drop(t) {
			kept = append(kept, t)
		}
	}
	removed := q.count - len(kept)
	if removed == 0 {
		return 0
	}
	q.items = make([]alerts.Toast, q.cap)
	copy(q.items, kept)
	q.head, q.count = 0, len(kept)
	return removed
}

// listLocked returns the toasts oldest first. Caller must hold a lock.
func (q *ToastQueue) listLocked() []alerts.Toast {
	if q.count == 0 {
		return nil
	}
	out := make([]alerts.Toast, q.count)
	for i := 0; i < q.count; i++ {
		out[i] = q.items[(q.head+i)%q.cap]
	}
	return out
}
