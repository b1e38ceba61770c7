package feed

import (
	"context"
	"log"
	"sort"
	"sync"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/nixlim/mixwatch/internal/api"
	"github.com/nixlim/mixwatch/internal/config"
	"github.com/nixlim/mixwatch/internal/poll"
	"github.com/nixlim/mixwatch/internal/readings"
	"github.com/nixlim/mixwatch/internal/scope"
)

// Card is the latest state of one machine on the dashboard.
type Card struct {
	MachineID    string
	Name         string
	Reading      readings.Reading
	Ratio        float64
	RatioDisplay string
	Tier         readings.Tier
	Adhesive     float64
	Resin        float64
	Timestamp    time.Time
	HasTimestamp bool
	TimestampRaw string
}

// Age renders how long ago the card's reading was taken.
func (c Card) Age(now time.Time) string {
	if !c.HasTimestamp {
		return c.TimestampRaw
	}
	return humanize.RelTime(c.Timestamp, now, "ago", "from now")
}

// DashboardView is a snapshot of the dashboard.
type DashboardView struct {
	Cards     []Card // newest reading first
	Scope     scope.Scope
	Loading   bool
	Err       error
	UpdatedAt time.Time
}

// Dashboard shows one card per machine in the user's scope.
type Dashboard struct {
	history  HistorySource
	summary  SummarySource
	machines MachineSource
	sessions SessionSource
	scopes   ScopeResolver
	loop     *poll.Loop
	now      func() time.Time

	historyLimit int

	mu        sync.Mutex
	mounted   bool
	gen       uint64
	cards     []Card
	scope     scope.Scope
	loaded    bool
	lastErr   error
	updatedAt time.Time
}

// NewDashboard creates a stopped Dashboard.
func NewDashboard(cfg config.Config, history HistorySource, summary SummarySource, machines MachineSource, sessions SessionSource, scopes ScopeResolver) *Dashboard {
	d := &Dashboard{
		history:      history,
		summary:      summary,
		machines:     machines,
		sessions:     sessions,
		scopes:       scopes,
		now:          time.Now,
		historyLimit: cfg.Polling.DashboardHistoryLimit,
	}
	d.loop = poll.New(cfg.Polling.DashboardInterval(), d.Poll)
	return d
}

// Open starts polling.
func (d *Dashboard) Open(ctx context.Context) {
	d.mu.Lock()
	d.mounted = true
	d.gen++
	d.mu.Unlock()

	d.loop.Start(ctx)
}

// Close stops polling. Late responses are discarded.
func (d *Dashboard) Close() {
	d.mu.Lock()
	d.mounted = false
	d.gen++
	d.mu.Unlock()

	d.loop.Stop()
}

// Refresh requests an immediate poll.
func (d *Dashboard) Refresh() {
	d.loop.Trigger()
}

// Poll refreshes every card. A failure of any request keeps the previous
// cards and records the error.
func (d *Dashboard) Poll(ctx context.Context) {
	d.mu.Lock()
	if !d.mounted {
		d.mu.Unlock()
		return
	}
	gen := d.gen
	d.mu.Unlock()

	sc, ok := currentScope(ctx, d.sessions, d.scopes)
	if !ok {
		return
	}
	cards, err := d.load(ctx, sc)

	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.mounted || gen != d.gen {
		return
	}
	d.loaded = true
	if err != nil {
		if ctx.Err() == nil {
			log.Printf("WARNING: dashboard poll: %v", err)
		}
		d.lastErr = err
		return
	}
	d.cards = cards
	d.scope = sc
	d.lastErr = nil
	d.updatedAt = d.now()
}

func (d *Dashboard) load(ctx context.Context, sc scope.Scope) ([]Card, error) {
	machines, err := d.machines.GetMachines(ctx)
	if err != nil {
		return nil, err
	}
	page, err := d.history.GetHistory(ctx, api.HistoryQuery{Limit: d.historyLimit})
	if err != nil {
		return nil, err
	}
	summary, err := d.summary.GetSummary(ctx)
	if err != nil {
		return nil, err
	}
	return BuildCards(ScopeMachines(machines, sc), summary, page.Readings), nil
}

// ScopeMachines keeps the machines inside sc.
func ScopeMachines(machines []api.Machine, sc scope.Scope) []api.Machine {
	if sc.All() {
		return machines
	}
	var out []api.Machine
	for _, m := range machines {
		if sc.Includes(m.ID.String()) {
			out = append(out, m)
		}
	}
	return out
}

// BuildCards merges each machine's summary row with its most recent history
// row. History fields win over summary fields. Machines without a
// timestamped reading are dropped, and cards are ordered newest first.
func BuildCards(machines []api.Machine, summary, history []readings.Reading) []Card {
	var cards []Card
	for _, m := range machines {
		id := m.ID.String()
		merged := readings.Merge(
			findRow(summary, id, true),
			findRow(history, id, false),
		).With("machine_id", id).With("machine_name", m.Name)
		if merged.TimestampText() == "" {
			continue
		}
		cards = append(cards, cardFor(id, m.Name, merged))
	}
	sort.SliceStable(cards, func(i, j int) bool {
		a, b := cards[i], cards[j]
		if a.HasTimestamp != b.HasTimestamp {
			return a.HasTimestamp
		}
		return a.Timestamp.After(b.Timestamp)
	})
	return cards
}

// findRow returns the first row for machine id. Summary rows may carry the
// machine id as "id".
func findRow(rows []readings.Reading, id string, allowID bool) readings.Reading {
	for _, r := range rows {
		rid := r.MachineID()
		if rid == "" && allowID {
			rid = r.Text("id")
		}
		if rid == id {
			return r
		}
	}
	return readings.Reading{}
}

func cardFor(id, name string, r readings.Reading) Card {
	ratio := readings.ResolveRatio(r)
	ts, ok := r.Timestamp()
	if name == "" {
		name = r.DisplayName()
	}
	return Card{
		MachineID:    id,
		Name:         name,
		Reading:      r,
		Ratio:        ratio,
		RatioDisplay: readings.FormatRatio(ratio),
		Tier:         readings.Classify(ratio),
		Adhesive:     readings.Adhesive(r),
		Resin:        readings.Resin(r),
		Timestamp:    ts,
		HasTimestamp: ok,
		TimestampRaw: r.TimestampText(),
	}
}

// View returns the current dashboard snapshot.
func (d *Dashboard) View() DashboardView {
	d.mu.Lock()
	defer d.mu.Unlock()
	return DashboardView{
		Cards:     d.cards,
		Scope:     d.scope,
		Loading:   d.mounted && !d.loaded,
		Err:       d.lastErr,
		UpdatedAt: d.updatedAt,
	}
}
