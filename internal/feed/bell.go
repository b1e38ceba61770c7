package feed

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/nixlim/mixwatch/internal/alerts"
	"github.com/nixlim/mixwatch/internal/api"
	"github.com/nixlim/mixwatch/internal/config"
	"github.com/nixlim/mixwatch/internal/poll"
	"github.com/nixlim/mixwatch/internal/seen"
)

// BellView is a snapshot of the navbar alert feed.
type BellView struct {
	Anomalies []alerts.AnomalyEvent // latest events, newest first
	Unread    int
	Toasts    []alerts.Toast
	Err       error // last poll failure, nil after a successful poll
	UpdatedAt time.Time
}

// Bell is the navbar alert feed. It polls the scoped reading history,
// keeps the unread badge, and raises toasts for anomalies that appear while
// the session is running.
type Bell struct {
	history  HistorySource
	sessions SessionSource
	scopes   ScopeResolver
	seen     *seen.Store
	dedup    *alerts.Deduplicator
	toasts   *ToastQueue
	notifier alerts.Notifier
	loop     *poll.Loop
	now      func() time.Time

	historyLimit int
	feedSize     int

	mu        sync.Mutex
	mounted   bool
	gen       uint64
	userID    string
	events    []alerts.AnomalyEvent
	unread    int
	lastErr   error
	updatedAt time.Time
}

// BellOption configures a Bell.
type BellOption func(*Bell)

// WithNotifier sets the sink that receives every toast.
func WithNotifier(n alerts.Notifier) BellOption {
	return func(b *Bell) {
		if n != nil {
			b.notifier = n
		}
	}
}

// WithBellClock sets the time source for toasts and expiry.
func WithBellClock(now func() time.Time) BellOption {
	return func(b *Bell) {
		b.now = now
	}
}

// NewBell creates a stopped Bell.
func NewBell(cfg config.Config, history HistorySource, sessions SessionSource, scopes ScopeResolver, store *seen.Store, opts ...BellOption) *Bell {
	b := &Bell{
		history:      history,
		sessions:     sessions,
		scopes:       scopes,
		seen:         store,
		notifier:     alerts.NopNotifier{},
		now:          time.Now,
		historyLimit: cfg.Polling.HistoryLimit,
		feedSize:     cfg.Alerts.FeedSize,
		toasts:       NewToastQueue(DefaultVisibleToasts, cfg.Alerts.ToastDuration()),
	}
	for _, opt := range opts {
		opt(b)
	}
	b.dedup = alerts.NewDeduplicator(
		alerts.WithMaxToasts(cfg.Alerts.MaxToastsPerPoll),
		alerts.WithClock(b.now),
	)
	b.loop = poll.New(cfg.Polling.AlertsInterval(), b.Poll)
	return b
}

// Open arms the deduplicator and starts polling. The first poll seeds the
// notified set without raising toasts.
func (b *Bell) Open(ctx context.Context) {
	b.mu.Lock()
	b.mounted = true
	b.gen++
	b.dedup.Mount()
	b.mu.Unlock()

	b.loop.Start(ctx)
}

// Close stops polling and forgets the session's notified set. Responses
// that arrive afterwards are discarded.
func (b *Bell) Close() {
	b.mu.Lock()
	b.mounted = false
	b.gen++
	b.dedup.Unmount()
	b.events = nil
	b.unread = 0
	b.userID = ""
	b.mu.Unlock()

	b.loop.Stop()
	b.toasts.Clear()
}

// Poll runs one feed refresh. It is called by the poll loop and may be
// called directly.
func (b *Bell) Poll(ctx context.Context) {
	b.mu.Lock()
	if !b.mounted {
		b.mu.Unlock()
		return
	}
	gen := b.gen
	b.mu.Unlock()

	s := b.sessions.Current()
	if s == nil {
		return
	}
	sc := b.scopes.Resolve(ctx, s.User)
	page, err := b.history.GetHistory(ctx, api.HistoryQuery{
		Limit:     b.historyLimit,
		MachineID: sc.MachineID,
	})
	if err != nil {
		if ctx.Err() == nil {
			log.Printf("WARNING: alert feed poll: %v", err)
		}
		b.mu.Lock()
		if b.mounted && gen == b.gen {
			b.lastErr = err
		}
		b.mu.Unlock()
		return
	}

	events := alerts.Detect(page.Readings)
	userID := s.User.ID.String()
	seenSet := b.seen.Load(userID)

	b.mu.Lock()
	if !b.mounted || gen != b.gen {
		b.mu.Unlock()
		return
	}
	if userID != b.userID {
		// A different user signed in: start their session from a cold seed.
		b.dedup.Unmount()
		b.dedup.Mount()
		b.userID = userID
	}
	toasts := b.dedup.Observe(events, seenSet)
	b.events = events
	b.unread = alerts.UnreadCount(events, seenSet)
	b.lastErr = nil
	b.updatedAt = b.now()
	b.mu.Unlock()

	for _, t := range toasts {
		b.toasts.Push(t)
		b.notifier.Notify(t)
	}
}

// OpenFeed marks every current anomaly as seen, clears the badge and returns
// the latest events for the dropdown.
func (b *Bell) OpenFeed() []alerts.AnomalyEvent {
	b.mu.Lock()
	events := b.events
	userID := b.userID
	b.unread = 0
	latest := alerts.Latest(events, b.feedSize)
	b.mu.Unlock()

	if userID != "" && len(events) > 0 {
		b.seen.MarkSeen(userID, alerts.Fingerprints(events)...)
	}
	return latest
}

// DismissToast removes a toast before it expires.
func (b *Bell) DismissToast(id string) bool {
	return b.toasts.Dismiss(id)
}

// View returns the current feed snapshot.
func (b *Bell) View() BellView {
	now := b.now()
	b.toasts.Prune(now)

	b.mu.Lock()
	defer b.mu.Unlock()
	return BellView{
		Anomalies: alerts.Latest(b.events, b.feedSize),
		Unread:    b.unread,
		Toasts:    b.toasts.Visible(now),
		Err:       b.lastErr,
		UpdatedAt: b.updatedAt,
	}
}
