package tui

import (
	"context"
	"sync"

	"github.com/nixlim/mixwatch/internal/alerts"
	"github.com/nixlim/mixwatch/internal/api"
	"github.com/nixlim/mixwatch/internal/feed"
	"github.com/nixlim/mixwatch/internal/readings"
	"github.com/nixlim/mixwatch/internal/scope"
	"github.com/nixlim/mixwatch/internal/session"
)

type mockSessions struct {
	current  *session.Session
	loginErr error
	logouts  int
}

func signedInAs(rights api.Rights) *mockSessions {
	return &mockSessions{current: &session.Session{
		User:  api.User{ID: "7", Name: "Dana", Rights: rights},
		Token: "tok",
	}}
}

func (m *mockSessions) Current() *session.Session { return m.current }

func (m *mockSessions) Login(_ context.Context, login, _ string) (*session.Session, error) {
	if m.loginErr != nil {
		return nil, m.loginErr
	}
	m.current = &session.Session{User: api.User{ID: "7", Name: login, Rights: scope.RightsAdmin}}
	return m.current, nil
}

func (m *mockSessions) Logout() {
	m.logouts++
	m.current = nil
}

type mockBell struct {
	view      feed.BellView
	opened    int
	closed    int
	feedCalls int
	dismissed []string
}

func (m *mockBell) Open(context.Context) { m.opened++ }
func (m *mockBell) Close()               { m.closed++ }
func (m *mockBell) View() feed.BellView  { return m.view }

func (m *mockBell) OpenFeed() []alerts.AnomalyEvent {
	m.feedCalls++
	m.view.Unread = 0
	return m.view.Anomalies
}

func (m *mockBell) DismissToast(id string) bool {
	m.dismissed = append(m.dismissed, id)
	return true
}

type mockAlerts struct {
	mu         sync.Mutex
	view       feed.AlertsView
	opened     []string
	closed     int
	ackErr     error
	acked      []string
	filterSeen []alerts.Filter
}

func (m *mockAlerts) Open(_ context.Context, highlight string) {
	m.opened = append(m.opened, highlight)
	m.view.Highlight = highlight
}

func (m *mockAlerts) Close()                { m.closed++ }
func (m *mockAlerts) View() feed.AlertsView { return m.view }

func (m *mockAlerts) CycleFilter() alerts.Filter {
	m.view.Filter = m.view.Filter.Next()
	m.filterSeen = append(m.filterSeen, m.view.Filter)
	return m.view.Filter
}

func (m *mockAlerts) Acknowledge(_ context.Context, readingID, note string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ackErr != nil {
		return m.ackErr
	}
	m.acked = append(m.acked, readingID+":"+note)
	return nil
}

type mockDashboard struct {
	view      feed.DashboardView
	opened    int
	closed    int
	refreshed int
}

func (m *mockDashboard) Open(context.Context)     { m.opened++ }
func (m *mockDashboard) Close()                   { m.closed++ }
func (m *mockDashboard) View() feed.DashboardView { return m.view }
func (m *mockDashboard) Refresh()                 { m.refreshed++ }

type mockRecords struct {
	view    feed.RecordsView
	filters []feed.RecordFilter
	loads   int
}

func newMockRecords() *mockRecords {
	return &mockRecords{view: feed.RecordsView{Page: 1, TotalPages: 1}}
}

func (m *mockRecords) SetFilter(f feed.RecordFilter) error {
	if f.Status != "" {
		if _, ok := readings.ParseTier(f.Status); !ok {
			return api.Validationf("unknown status %q", f.Status)
		}
	}
	m.filters = append(m.filters, f)
	m.view.Filter = f
	m.view.Page = 1
	return nil
}

func (m *mockRecords) NextPage() bool {
	if m.view.Page >= m.view.TotalPages {
		return false
	}
	m.view.Page++
	return true
}

func (m *mockRecords) PrevPage() bool {
	if m.view.Page <= 1 {
		return false
	}
	m.view.Page--
	return true
}

func (m *mockRecords) LoadMachines(context.Context) error { return nil }

func (m *mockRecords) Load(context.Context) error {
	m.loads++
	return nil
}

func (m *mockRecords) View() feed.RecordsView { return m.view }

type mockMachine struct {
	view      feed.MachineDetailView
	openErr   error
	opened    []string
	closed    int
	refreshed int
}

func (m *mockMachine) Open(_ context.Context, machineID string) error {
	if m.openErr != nil {
		return m.openErr
	}
	m.opened = append(m.opened, machineID)
	m.view.MachineID = machineID
	return nil
}

func (m *mockMachine) Close()                       { m.closed++ }
func (m *mockMachine) View() feed.MachineDetailView { return m.view }
func (m *mockMachine) Refresh()                     { m.refreshed++ }

type mockUsers struct {
	allowed  bool
	view     feed.UsersView
	loads    int
	loadErr  error
	searches []string
	roles    int
	sorts    int
}

func (m *mockUsers) Allowed() bool { return m.allowed }

func (m *mockUsers) Load(context.Context) error {
	m.loads++
	m.view.Loaded = true
	return m.loadErr
}

func (m *mockUsers) View() feed.UsersView { return m.view }

func (m *mockUsers) SetSearch(text string) {
	m.searches = append(m.searches, text)
	m.view.Query.Search = text
	m.view.Page = 1
}

func (m *mockUsers) CycleRole()  { m.roles++ }
func (m *mockUsers) ToggleSort() { m.sorts++ }

func (m *mockUsers) NextPage() bool {
	if m.view.Page >= m.view.TotalPages {
		return false
	}
	m.view.Page++
	return true
}

func (m *mockUsers) PrevPage() bool {
	if m.view.Page <= 1 {
		return false
	}
	m.view.Page--
	return true
}

type mockThresholds struct {
	canEdit bool
	current api.Thresholds
	saved   []api.Thresholds
	saveErr error
}

func (m *mockThresholds) Load(_ context.Context, machineID string) api.Thresholds {
	th := m.current
	th.MachineID = machineID
	return th
}

func (m *mockThresholds) Save(_ context.Context, th api.Thresholds) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	m.saved = append(m.saved, th)
	return nil
}

func (m *mockThresholds) CanEdit() bool { return m.canEdit }

func anomalyEvent(machineID, readingID string, tier readings.Tier) alerts.AnomalyEvent {
	return alerts.AnomalyEvent{
		MachineID:    machineID,
		MachineName:  "Mixer " + machineID,
		ReadingID:    readingID,
		TimestampRaw: "2024-03-01T10:00:00Z",
		HasTimestamp: true,
		Tier:         tier,
		Ratio:        0.5,
		RatioDisplay: "0.500",
		Fingerprint:  machineID + "|" + readingID,
	}
}
