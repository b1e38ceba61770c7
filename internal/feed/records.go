package feed

import (
	"context"
	"fmt"
	"sync"

	"github.com/nixlim/mixwatch/internal/api"
	"github.com/nixlim/mixwatch/internal/config"
	"github.com/nixlim/mixwatch/internal/readings"
	"github.com/nixlim/mixwatch/internal/scope"
)

// RecordFilter narrows the records table. Zero values match everything.
type RecordFilter struct {
	MachineID string
	StartDate string // YYYY-MM-DD
	EndDate   string // YYYY-MM-DD
	Status    string // tier label, matched after the response arrives
}

// Row is one reading in the records table.
type Row struct {
	Reading      readings.Reading
	MachineID    string
	Name         string
	ReadingID    string
	Timestamp    string
	Adhesive     float64
	Resin        float64
	Ratio        float64
	RatioDisplay string
	Tier         readings.Tier
}

// RecordsView is one loaded page of the records table.
type RecordsView struct {
	Rows       []Row
	Page       int
	TotalPages int
	Filter     RecordFilter
	Machines   []api.Machine // machines selectable in the filter
	Scope      scope.Scope
	Err        error
}

// Records queries reading history on demand, one page at a time.
type Records struct {
	history  HistorySource
	machines MachineSource
	sessions SessionSource
	scopes   ScopeResolver
	pageSize int

	mu   sync.Mutex
	view RecordsView
	seq  uint64
}

// NewRecords creates a Records controller positioned on page 1.
func NewRecords(cfg config.Config, history HistorySource, machines MachineSource, sessions SessionSource, scopes ScopeResolver) *Records {
	return &Records{
		history:  history,
		machines: machines,
		sessions: sessions,
		scopes:   scopes,
		pageSize: cfg.Polling.RecordsPageSize,
		view:     RecordsView{Page: 1, TotalPages: 1},
	}
}

// SetFilter replaces the filter and rewinds to page 1. Call Load to apply.
func (r *Records) SetFilter(f RecordFilter) error {
	if f.Status != "" {
		tier, ok := readings.ParseTier(f.Status)
		if !ok {
			return api.Validationf("unknown status %q", f.Status)
		}
		f.Status = tier.Label()
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.view.Filter = f
	r.view.Page = 1
	return nil
}

// SetPage moves to page n, clamped to the known page range.
func (r *Records) SetPage(n int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if n < 1 {
		n = 1
	}
	if n > r.view.TotalPages && r.view.TotalPages > 0 {
		n = r.view.TotalPages
	}
	r.view.Page = n
}

// NextPage advances one page. It reports whether the page changed.
func (r *Records) NextPage() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.view.Page >= r.view.TotalPages {
		return false
	}
	r.view.Page++
	return true
}

// PrevPage goes back one page. It reports whether the page changed.
func (r *Records) PrevPage() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.view.Page <= 1 {
		return false
	}
	r.view.Page--
	return true
}

// LoadMachines refreshes the machine list offered by the filter, limited
// to the user's scope.
func (r *Records) LoadMachines(ctx context.Context) error {
	sc, ok := currentScope(ctx, r.sessions, r.scopes)
	if !ok {
		return ErrNoSession
	}
	machines, err := r.machines.GetMachines(ctx)
	if err != nil {
		return fmt.Errorf("loading machines: %w", err)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.view.Machines = ScopeMachines(machines, sc)
	return nil
}

// Load fetches the current page. Users limited to one machine always query
// that machine regardless of the filter. The status filter is applied here
// rather than by the backend.
func (r *Records) Load(ctx context.Context) error {
	sc, ok := currentScope(ctx, r.sessions, r.scopes)
	if !ok {
		return ErrNoSession
	}

	r.mu.Lock()
	r.seq++
	seq := r.seq
	filter, page := r.view.Filter, r.view.Page
	r.mu.Unlock()

	machineID := filter.MachineID
	if !sc.All() {
		machineID = sc.MachineID
	}
	resp, err := r.history.GetHistory(ctx, api.HistoryQuery{
		Page:      page,
		Limit:     r.pageSize,
		MachineID: machineID,
		StartDate: filter.StartDate,
		EndDate:   filter.EndDate,
	})

	r.mu.Lock()
	defer r.mu.Unlock()
	if seq != r.seq {
		// A newer Load superseded this one.
		return nil
	}
	r.view.Scope = sc
	if err != nil {
		r.view.Err = err
		return fmt.Errorf("loading records: %w", err)
	}
	r.view.Rows = FilterRows(resp.Readings, filter.Status)
	r.view.TotalPages = resp.TotalPages
	if r.view.TotalPages < 1 {
		r.view.TotalPages = 1
	}
	r.view.Err = nil
	return nil
}

// FilterRows converts readings to rows, keeping those whose tier label
// equals status. An empty status keeps every row.
func FilterRows(rs []readings.Reading, status string) []Row {
	rows := make([]Row, 0, len(rs))
	for _, rd := range rs {
		row := rowFor(rd)
		if status != "" && row.Tier.Label() != status {
			continue
		}
		rows = append(rows, row)
	}
	return rows
}

func rowFor(r readings.Reading) Row {
	ratio := readings.ResolveRatio(r)
	return Row{
		Reading:      r,
		MachineID:    r.MachineID(),
		Name:         r.DisplayName(),
		ReadingID:    r.ReadingID(),
		Timestamp:    r.TimestampText(),
		Adhesive:     readings.Adhesive(r),
		Resin:        readings.Resin(r),
		Ratio:        ratio,
		RatioDisplay: readings.FormatRatio(ratio),
		Tier:         readings.Classify(ratio),
	}
}

// View returns the last loaded page.
func (r *Records) View() RecordsView {
	r.mu.Lock()
	defer r.mu.Unlock()
	v := r.view
	v.Rows = append([]Row(nil), r.view.Rows...)
	v.Machines = append([]api.Machine(nil), r.view.Machines...)
	return v
}
