package feed

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/nixlim/mixwatch/internal/alerts"
	"github.com/nixlim/mixwatch/internal/api"
	"github.com/nixlim/mixwatch/internal/config"
	"github.com/nixlim/mixwatch/internal/poll"
	"github.com/nixlim/mixwatch/internal/scope"
)

// AlertsView is a snapshot of the alerts page.
type AlertsView struct {
	Events    []alerts.AnomalyEvent // filtered, newest first
	Total     int                   // anomalies before filtering
	Filter    alerts.Filter
	Highlight string // fingerprint to emphasise, empty for none
	Scope     scope.Scope
	Loading   bool
	Err       error
	UpdatedAt time.Time
}

// AlertsPage lists every anomaly in the user's scope with a tier filter
// and acknowledgement.
type AlertsPage struct {
	history  HistorySource
	acks     Acknowledger
	sessions SessionSource
	scopes   ScopeResolver
	loop     *poll.Loop
	now      func() time.Time

	historyLimit int

	mu        sync.Mutex
	mounted   bool
	gen       uint64
	events    []alerts.AnomalyEvent
	scope     scope.Scope
	filter    alerts.Filter
	highlight string
	loaded    bool
	lastErr   error
	updatedAt time.Time
}

// NewAlertsPage creates a stopped AlertsPage.
func NewAlertsPage(cfg config.Config, history HistorySource, acks Acknowledger, sessions SessionSource, scopes ScopeResolver) *AlertsPage {
	p := &AlertsPage{
		history:      history,
		acks:         acks,
		sessions:     sessions,
		scopes:       scopes,
		now:          time.Now,
		historyLimit: cfg.Polling.HistoryLimit,
		filter:       alerts.FilterAll,
	}
	p.loop = poll.New(cfg.Polling.AlertsInterval(), p.Poll)
	return p
}

// Open starts polling. highlight is shown once; opening the page again
// without one clears it.
func (p *AlertsPage) Open(ctx context.Context, highlight string) {
	p.mu.Lock()
	p.mounted = true
	p.gen++
	p.highlight = highlight
	p.mu.Unlock()

	p.loop.Start(ctx)
}

// Close stops polling. Late responses are discarded.
func (p *AlertsPage) Close() {
	p.mu.Lock()
	p.mounted = false
	p.gen++
	p.mu.Unlock()

	p.loop.Stop()
}

// Poll refreshes the anomaly list.
func (p *AlertsPage) Poll(ctx context.Context) {
	p.mu.Lock()
	if !p.mounted {
		p.mu.Unlock()
		return
	}
	gen := p.gen
	p.mu.Unlock()

	sc, ok := currentScope(ctx, p.sessions, p.scopes)
	if !ok {
		return
	}
	page, err := p.history.GetHistory(ctx, api.HistoryQuery{
		Limit:     p.historyLimit,
		MachineID: sc.MachineID,
	})

	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.mounted || gen != p.gen {
		return
	}
	if err != nil {
		if ctx.Err() == nil {
			log.Printf("WARNING: alerts page poll: %v", err)
		}
		p.lastErr = err
		p.loaded = true
		return
	}
	p.events = alerts.SortByRecency(alerts.Detect(page.Readings))
	p.scope = sc
	p.loaded = true
	p.lastErr = nil
	p.updatedAt = p.now()
}

// SetFilter selects the tier filter.
func (p *AlertsPage) SetFilter(f alerts.Filter) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.filter = f
}

// CycleFilter advances to the next filter and returns it.
func (p *AlertsPage) CycleFilter() alerts.Filter {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.filter = p.filter.Next()
	return p.filter
}

// Acknowledge records a note against a reading and re-polls at once.
func (p *AlertsPage) Acknowledge(ctx context.Context, readingID, note string) error {
	s := p.sessions.Current()
	if s == nil {
		return ErrNoSession
	}
	if !scope.CanAcknowledge(s.User) {
		return fmt.Errorf("acknowledge reading %s: %w", readingID, ErrForbidden)
	}
	if strings.TrimSpace(readingID) == "" {
		return api.Validationf("acknowledge: reading id is required")
	}
	if strings.TrimSpace(note) == "" {
		return api.Validationf("acknowledge: a note is required")
	}
	if err := p.acks.Acknowledge(ctx, readingID, strings.TrimSpace(note)); err != nil {
		return err
	}
	p.loop.Trigger()
	return nil
}

// View returns the current page snapshot.
func (p *AlertsPage) View() AlertsView {
	p.mu.Lock()
	defer p.mu.Unlock()
	return AlertsView{
		Events:    p.filter.Apply(p.events),
		Total:     len(p.events),
		Filter:    p.filter,
		Highlight: p.highlight,
		Scope:     p.scope,
		Loading:   p.mounted && !p.loaded,
		Err:       p.lastErr,
		UpdatedAt: p.updatedAt,
	}
}
