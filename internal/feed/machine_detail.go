package feed

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/nixlim/mixwatch/internal/api"
	"github.com/nixlim/mixwatch/internal/config"
	"github.com/nixlim/mixwatch/internal/poll"
	"github.com/nixlim/mixwatch/internal/scope"
)

// MachineDetailView is a snapshot of one machine's page.
type MachineDetailView struct {
	MachineID    string
	Name         string
	Latest       Row // History[0] when HasLatest
	HasLatest    bool
	History      []Row // newest first, as the backend returns it
	CanConfigure bool
	Loading      bool
	Err          error
	UpdatedAt    time.Time
}

// MachineDetail polls the recent readings of a single machine.
type MachineDetail struct {
	history  HistorySource
	machines MachineSource
	sessions SessionSource
	scopes   ScopeResolver
	loop     *poll.Loop
	now      func() time.Time

	limit int

	mu        sync.Mutex
	mounted   bool
	gen       uint64
	machineID string
	name      string
	rows      []Row
	loaded    bool
	lastErr   error
	updatedAt time.Time
}

// NewMachineDetail creates a closed MachineDetail.
func NewMachineDetail(cfg config.Config, history HistorySource, machines MachineSource, sessions SessionSource, scopes ScopeResolver) *MachineDetail {
	m := &MachineDetail{
		history:  history,
		machines: machines,
		sessions: sessions,
		scopes:   scopes,
		now:      time.Now,
		limit:    cfg.Polling.DetailHistoryLimit,
	}
	m.loop = poll.New(cfg.Polling.DashboardInterval(), m.Poll)
	return m
}

// Open starts polling machineID. Users whose scope excludes the machine get
// ErrForbidden and nothing is polled. Opening another machine replaces the
// current one.
func (m *MachineDetail) Open(ctx context.Context, machineID string) error {
	sc, ok := currentScope(ctx, m.sessions, m.scopes)
	if !ok {
		return ErrNoSession
	}
	if machineID == "" || !sc.Includes(machineID) {
		return fmt.Errorf("machine %s: %w", machineID, ErrForbidden)
	}

	m.loop.Stop()

	m.mu.Lock()
	m.mounted = true
	m.gen++
	if m.machineID != machineID {
		m.name, m.rows, m.loaded, m.lastErr = "", nil, false, nil
		m.updatedAt = time.Time{}
	}
	m.machineID = machineID
	m.mu.Unlock()

	m.loop.Start(ctx)
	return nil
}

// Close stops polling. Late responses are discarded.
func (m *MachineDetail) Close() {
	m.mu.Lock()
	m.mounted = false
	m.gen++
	m.mu.Unlock()

	m.loop.Stop()
}

// Refresh requests an immediate poll.
func (m *MachineDetail) Refresh() {
	m.loop.Trigger()
}

// Poll loads the machine list and the latest readings of the open machine.
// On failure the previous rows are kept and the error recorded.
func (m *MachineDetail) Poll(ctx context.Context) {
	m.mu.Lock()
	if !m.mounted {
		m.mu.Unlock()
		return
	}
	gen, machineID := m.gen, m.machineID
	m.mu.Unlock()

	name, rows, err := m.load(ctx, machineID)

	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.mounted || gen != m.gen {
		return
	}
	m.loaded = true
	if err != nil {
		if ctx.Err() == nil {
			log.Printf("WARNING: machine %s poll: %v", machineID, err)
		}
		m.lastErr = err
		return
	}
	m.name = name
	m.rows = rows
	m.lastErr = nil
	m.updatedAt = m.now()
}

func (m *MachineDetail) load(ctx context.Context, machineID string) (string, []Row, error) {
	page, err := m.history.GetHistory(ctx, api.HistoryQuery{MachineID: machineID, Limit: m.limit})
	if err != nil {
		return "", nil, err
	}
	machines, err := m.machines.GetMachines(ctx)
	if err != nil {
		return "", nil, err
	}
	rows := FilterRows(page.Readings, "")
	return machineName(machineID, machines, rows), rows, nil
}

// machineName prefers the machine list, then the newest reading.
func machineName(id string, machines []api.Machine, rows []Row) string {
	for _, mc := range machines {
		if mc.ID.String() == id && mc.Name != "" {
			return mc.Name
		}
	}
	if len(rows) > 0 {
		if n := rows[0].Reading.MachineName(); n != "" {
			return n
		}
	}
	return "Node " + id
}

// View returns the current snapshot.
func (m *MachineDetail) View() MachineDetailView {
	m.mu.Lock()
	defer m.mu.Unlock()
	v := MachineDetailView{
		MachineID: m.machineID,
		Name:      m.name,
		History:   append([]Row(nil), m.rows...),
		Loading:   m.mounted && !m.loaded,
		Err:       m.lastErr,
		UpdatedAt: m.updatedAt,
	}
	if len(m.rows) > 0 {
		v.Latest, v.HasLatest = m.rows[0], true
	}
	if s := m.sessions.Current(); s != nil {
		v.CanConfigure = scope.CanConfigure(s.User)
	}
	return v
}
