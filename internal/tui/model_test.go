package tui

import (
	"fmt"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/nixlim/mixwatch/internal/alerts"
	"github.com/nixlim/mixwatch/internal/api"
	"github.com/nixlim/mixwatch/internal/config"
	"github.com/nixlim/mixwatch/internal/feed"
	"github.com/nixlim/mixwatch/internal/readings"
	"github.com/nixlim/mixwatch/internal/scope"
)

func keyRunes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func update(t *testing.T, m Model, msg tea.Msg) (Model, tea.Cmd) {
	t.Helper()
	result, cmd := m.Update(msg)
	next, ok := result.(Model)
	if !ok {
		t.Fatalf("Update returned %T, want Model", result)
	}
	return next, cmd
}

// runCmd executes an async command and feeds its message back into the model.
func runCmd(t *testing.T, m Model, cmd tea.Cmd) Model {
	t.Helper()
	if cmd == nil {
		t.Fatal("expected a command")
	}
	m, _ = update(t, m, cmd())
	return m
}

type testProviders struct {
	sessions   *mockSessions
	bell       *mockBell
	alerts     *mockAlerts
	dashboard  *mockDashboard
	records    *mockRecords
	machine    *mockMachine
	users      *mockUsers
	thresholds *mockThresholds
}

func newSignedInModel(t *testing.T, rights api.Rights, opts ...ModelOption) (Model, *testProviders) {
	t.Helper()
	p := &testProviders{
		sessions:   signedInAs(rights),
		bell:       &mockBell{},
		alerts:     &mockAlerts{view: feed.AlertsView{Filter: alerts.FilterAll}},
		dashboard:  &mockDashboard{},
		records:    newMockRecords(),
		machine:    &mockMachine{},
		users:      &mockUsers{allowed: rights == scope.RightsAdmin, view: feed.UsersView{Page: 1, TotalPages: 1}},
		thresholds: &mockThresholds{current: api.Thresholds{MinRatio: 0.9, TargetRatio: 1, MaxRatio: 1.1}},
	}
	all := append([]ModelOption{
		WithSessionProvider(p.sessions),
		WithBellProvider(p.bell),
		WithAlertsProvider(p.alerts),
		WithDashboardProvider(p.dashboard),
		WithRecordsProvider(p.records),
		WithMachineDetailProvider(p.machine),
		WithUsersProvider(p.users),
		WithThresholdsProvider(p.thresholds),
	}, opts...)
	m := NewModel(config.DefaultConfig(), all...)
	m.width = 120
	m.height = 40
	m, _ = update(t, m, startMsg{})
	return m, p
}

func TestModel_Init(t *testing.T) {
	m := NewModel(config.DefaultConfig())
	if m.Init() == nil {
		t.Error("Init() returned nil cmd")
	}
}

func TestModel_StartWithoutSessionShowsLogin(t *testing.T) {
	m := NewModel(config.DefaultConfig(), WithSessionProvider(&mockSessions{}))
	m.width = 120
	m.height = 40

	m, _ = update(t, m, startMsg{})
	if m.view != ViewLogin {
		t.Fatalf("view = %v, want Login", m.view)
	}
	if !strings.Contains(m.View(), "sign in") {
		t.Error("login view should show the sign in form")
	}
}

func TestModel_StartWithSessionOpensDashboard(t *testing.T) {
	m, p := newSignedInModel(t, scope.RightsAdmin)
	if m.view != ViewDashboard {
		t.Fatalf("view = %v, want Dashboard", m.view)
	}
	if p.bell.opened != 1 || p.dashboard.opened != 1 {
		t.Errorf("bell opened %d, dashboard opened %d, want 1 and 1", p.bell.opened, p.dashboard.opened)
	}
}

func TestModel_LoginFlow(t *testing.T) {
	sessions := &mockSessions{}
	bell := &mockBell{}
	m := NewModel(config.DefaultConfig(), WithSessionProvider(sessions), WithBellProvider(bell))

	m, _ = update(t, m, keyRunes("dana"))
	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	if m.login.focus != 1 {
		t.Fatalf("focus = %d after Enter on login field, want 1", m.login.focus)
	}
	m, _ = update(t, m, keyRunes("secret"))
	m, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	if !m.login.busy {
		t.Error("form should be busy while signing in")
	}

	m = runCmd(t, m, cmd)
	if m.view != ViewDashboard {
		t.Fatalf("view = %v, want Dashboard", m.view)
	}
	if sessions.current == nil || sessions.current.User.Name != "dana" {
		t.Errorf("signed in as %+v, want dana", sessions.current)
	}
	if bell.opened != 1 {
		t.Errorf("bell opened %d times, want 1", bell.opened)
	}
}

func TestModel_LoginErrors(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"validation", api.Validationf("login is required"), "Login and password are required."},
		{"auth", fmt.Errorf("login: %w", api.ErrAuth), "Invalid login or password."},
		{"network", fmt.Errorf("dial: %w", api.ErrNetwork), "Cannot reach the server"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewModel(config.DefaultConfig(), WithSessionProvider(&mockSessions{}))
			m.login.inputs[1].SetValue("pw")
			m.login.busy = true

			m, _ = update(t, m, loginResultMsg{err: tt.err})
			if m.view != ViewLogin {
				t.Errorf("view = %v, want Login", m.view)
			}
			if !strings.Contains(m.login.err, tt.want) {
				t.Errorf("err = %q, want %q", m.login.err, tt.want)
			}
			if m.login.inputs[1].Value() != "" {
				t.Error("password should be cleared after a failed login")
			}
		})
	}
}

func TestModel_LoginLettersReachInputs(t *testing.T) {
	m := NewModel(config.DefaultConfig(), WithSessionProvider(&mockSessions{}))
	m, _ = update(t, m, keyRunes("jkq"))
	if got := m.login.inputs[0].Value(); got != "jkq" {
		t.Errorf("login = %q, want %q", got, "jkq")
	}
	if m.quitting {
		t.Error("q in a text field must not quit")
	}
}

func TestModel_TabCyclesViews(t *testing.T) {
	m, p := newSignedInModel(t, scope.RightsAdmin)

	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyTab})
	if m.view != ViewAlerts {
		t.Fatalf("after Tab, view = %v, want Alerts", m.view)
	}
	if p.dashboard.closed != 1 || len(p.alerts.opened) != 1 {
		t.Errorf("dashboard closed %d, alerts opened %d", p.dashboard.closed, len(p.alerts.opened))
	}

	m, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyTab})
	if m.view != ViewRecords {
		t.Fatalf("after second Tab, view = %v, want Records", m.view)
	}
	if p.alerts.closed != 1 {
		t.Errorf("alerts closed %d times, want 1", p.alerts.closed)
	}
	m = runCmd(t, m, cmd)
	if p.records.loads != 1 {
		t.Errorf("records loaded %d times, want 1", p.records.loads)
	}

	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyTab})
	if m.view != ViewUsers {
		t.Errorf("after third Tab, view = %v, want Users for an admin", m.view)
	}

	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyTab})
	if m.view != ViewDashboard {
		t.Errorf("after fourth Tab, view = %v, want Dashboard", m.view)
	}

	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyShiftTab})
	if m.view != ViewUsers {
		t.Errorf("after Shift+Tab, view = %v, want Users", m.view)
	}
}

func TestModel_TabSkipsUsersForNonAdmins(t *testing.T) {
	m, _ := newSignedInModel(t, scope.RightsSpecialist)

	want := []ViewState{ViewAlerts, ViewRecords, ViewDashboard}
	for i, v := range want {
		m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyTab})
		if m.view != v {
			t.Fatalf("Tab %d: view = %v, want %v", i+1, m.view, v)
		}
	}
}

func TestModel_QuitStopsPolling(t *testing.T) {
	called := false
	m, p := newSignedInModel(t, scope.RightsAdmin, WithOnShutdown(func() { called = true }))

	m, cmd := update(t, m, keyRunes("q"))
	if !m.quitting {
		t.Error("after 'q', quitting should be true")
	}
	if cmd == nil {
		t.Error("after 'q', cmd should be non-nil (tea.Quit)")
	}
	if !called {
		t.Error("onShutdown should run on quit")
	}
	if p.bell.closed != 1 || p.dashboard.closed != 1 {
		t.Errorf("bell closed %d, dashboard closed %d", p.bell.closed, p.dashboard.closed)
	}
	if m.View() != "Shutting down...\n" {
		t.Errorf("View() = %q", m.View())
	}
}

func TestModel_Logout(t *testing.T) {
	m, p := newSignedInModel(t, scope.RightsAdmin)

	m, _ = update(t, m, keyRunes("L"))
	if m.view != ViewLogin {
		t.Fatalf("view = %v, want Login", m.view)
	}
	if p.sessions.logouts != 1 || p.bell.closed != 1 || p.dashboard.closed != 1 {
		t.Errorf("logouts %d, bell closed %d, dashboard closed %d", p.sessions.logouts, p.bell.closed, p.dashboard.closed)
	}
}

func TestModel_BellOpensFeedAndNavigates(t *testing.T) {
	m, p := newSignedInModel(t, scope.RightsAdmin)
	p.bell.view = feed.BellView{
		Unread: 2,
		Anomalies: []alerts.AnomalyEvent{
			anomalyEvent("1", "r1", readings.TierCritical),
			anomalyEvent("2", "r2", readings.TierWarning),
		},
	}

	m, _ = update(t, m, keyRunes("b"))
	if !m.bellOpen {
		t.Fatal("bell dropdown should be open")
	}
	if p.bell.feedCalls != 1 {
		t.Errorf("OpenFeed called %d times, want 1", p.bell.feedCalls)
	}
	if !strings.Contains(m.View(), "Recent anomalies") {
		t.Error("dropdown should be rendered")
	}

	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyDown})
	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	if m.view != ViewAlerts {
		t.Fatalf("view = %v, want Alerts", m.view)
	}
	if m.bellOpen {
		t.Error("dropdown should close after navigating")
	}
	if len(p.alerts.opened) != 1 || p.alerts.opened[0] != "2|r2" {
		t.Errorf("alerts opened with %v, want highlight 2|r2", p.alerts.opened)
	}
}

func TestModel_BellEscapeCloses(t *testing.T) {
	m, _ := newSignedInModel(t, scope.RightsAdmin)
	m, _ = update(t, m, keyRunes("b"))
	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyEsc})
	if m.bellOpen {
		t.Error("Esc should close the dropdown")
	}
	if m.view != ViewDashboard {
		t.Errorf("view = %v, want Dashboard", m.view)
	}
}

func TestModel_TickFollowsHighlight(t *testing.T) {
	m, p := newSignedInModel(t, scope.RightsAdmin)
	m, _ = m.switchView(ViewAlerts, "3|r3")
	p.alerts.view.Events = []alerts.AnomalyEvent{
		anomalyEvent("1", "r1", readings.TierWarning),
		anomalyEvent("2", "r2", readings.TierWarning),
		anomalyEvent("3", "r3", readings.TierCritical),
	}

	m, cmd := update(t, m, tickMsg(time.Now()))
	if cmd == nil {
		t.Error("tick should reschedule itself")
	}
	if m.alertCursor != 2 {
		t.Errorf("alertCursor = %d, want 2", m.alertCursor)
	}
	if m.pendingHighlight != "" {
		t.Error("highlight should be consumed once followed")
	}
}

func TestModel_DismissNewestToast(t *testing.T) {
	m, p := newSignedInModel(t, scope.RightsAdmin)
	p.bell.view.Toasts = []alerts.Toast{{ID: "old", Message: "one"}, {ID: "new", Message: "two"}}

	m, _ = update(t, m, keyRunes("x"))
	if len(p.bell.dismissed) != 1 || p.bell.dismissed[0] != "new" {
		t.Errorf("dismissed = %v, want [new]", p.bell.dismissed)
	}
}

func alertsModel(t *testing.T, rights api.Rights) (Model, *testProviders) {
	t.Helper()
	m, p := newSignedInModel(t, rights)
	m, _ = m.switchView(ViewAlerts, "")
	p.alerts.view.Events = []alerts.AnomalyEvent{
		anomalyEvent("1", "r1", readings.TierCritical),
		anomalyEvent("2", "r2", readings.TierWarning),
	}
	p.alerts.view.Total = 2
	return m, p
}

func TestModel_AcknowledgeFlow(t *testing.T) {
	m, p := alertsModel(t, scope.RightsSpecialist)

	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyDown})
	m, _ = update(t, m, keyRunes("a"))
	if !m.ack.active || m.ack.readingID != "r2" {
		t.Fatalf("ack dialog = %+v, want active for r2", m.ack)
	}

	m, _ = update(t, m, keyRunes("valve cleaned"))
	m, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	m = runCmd(t, m, cmd)

	if m.ack.active {
		t.Error("dialog should close after a successful acknowledge")
	}
	if len(p.alerts.acked) != 1 || p.alerts.acked[0] != "r2:valve cleaned" {
		t.Errorf("acked = %v", p.alerts.acked)
	}
	if !strings.Contains(m.statusMessage, "r2") {
		t.Errorf("statusMessage = %q", m.statusMessage)
	}
}

func TestModel_AcknowledgeRejected(t *testing.T) {
	tests := []struct {
		name    string
		rights  api.Rights
		note    string
		ackErr  error
		wantErr string
		wantMsg string
	}{
		{name: "operator cannot acknowledge", rights: scope.RightsOperator, wantMsg: "requires specialist or admin"},
		{name: "empty note", rights: scope.RightsAdmin, note: "   ", wantErr: "A note is required."},
		{name: "backend failure keeps dialog", rights: scope.RightsAdmin, note: "done", ackErr: api.ErrNetwork, wantErr: "Acknowledge failed"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, p := alertsModel(t, tt.rights)
			p.alerts.ackErr = tt.ackErr

			m, _ = update(t, m, keyRunes("a"))
			if tt.wantMsg != "" {
				if m.ack.active {
					t.Fatal("dialog should not open")
				}
				if !strings.Contains(m.statusMessage, tt.wantMsg) {
					t.Errorf("statusMessage = %q, want %q", m.statusMessage, tt.wantMsg)
				}
				return
			}

			m, _ = update(t, m, keyRunes(tt.note))
			m, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
			if cmd != nil {
				m = runCmd(t, m, cmd)
			}
			if !m.ack.active {
				t.Fatal("dialog should stay open")
			}
			if !strings.Contains(m.ack.err, tt.wantErr) {
				t.Errorf("ack.err = %q, want %q", m.ack.err, tt.wantErr)
			}
			if len(p.alerts.acked) != 0 {
				t.Errorf("acked = %v, want none", p.alerts.acked)
			}
		})
	}
}

func TestModel_AlertsFilterAndDetail(t *testing.T) {
	m, p := alertsModel(t, scope.RightsAdmin)
	m.alertCursor = 1

	m, _ = update(t, m, keyRunes("f"))
	if p.alerts.view.Filter != alerts.FilterCritical {
		t.Errorf("filter = %v, want CRITICAL", p.alerts.view.Filter)
	}
	if m.alertCursor != 0 {
		t.Errorf("cursor = %d, want reset to 0", m.alertCursor)
	}

	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	if !m.detail.active {
		t.Fatal("Enter should open the detail overlay")
	}
	if !strings.Contains(m.detail.content, "1|r1") {
		t.Errorf("detail should include the fingerprint:\n%s", m.detail.content)
	}

	m, _ = update(t, m, keyRunes("a"))
	if m.detail.active || !m.ack.active {
		t.Error("'a' in the detail overlay should switch to the ack dialog")
	}
}

func dashboardModel(t *testing.T, canEdit bool) (Model, *testProviders) {
	t.Helper()
	m, p := newSignedInModel(t, scope.RightsAdmin)
	p.thresholds.canEdit = canEdit
	p.dashboard.view.Cards = []feed.Card{
		{MachineID: "4", Name: "Mixer 4", Tier: readings.TierNormal, RatioDisplay: "1.000"},
		{MachineID: "9", Name: "Mixer 9", Tier: readings.TierCritical, RatioDisplay: "0.500"},
	}
	return m, p
}

func TestModel_DashboardThresholdsDenied(t *testing.T) {
	m, _ := dashboardModel(t, false)
	m, cmd := update(t, m, keyRunes("t"))
	if cmd != nil || m.threshold.active {
		t.Error("threshold dialog should not open without rights")
	}
	if !strings.Contains(m.statusMessage, "requires") {
		t.Errorf("statusMessage = %q", m.statusMessage)
	}
}

func TestModel_DashboardThresholdsSave(t *testing.T) {
	m, p := dashboardModel(t, true)
	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyDown})

	m, cmd := update(t, m, keyRunes("t"))
	m = runCmd(t, m, cmd)
	if !m.threshold.active || m.threshold.machineID != "9" {
		t.Fatalf("threshold dialog = %+v, want active for machine 9", m.threshold)
	}
	if got := m.threshold.inputs[0].Value(); got != "1" {
		t.Errorf("target input = %q, want 1", got)
	}

	m.threshold.inputs[1].SetValue("0.85")
	m, cmd = update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	m = runCmd(t, m, cmd)

	if m.threshold.active {
		t.Error("dialog should close after saving")
	}
	if len(p.thresholds.saved) != 1 {
		t.Fatalf("saved %d times, want 1", len(p.thresholds.saved))
	}
	got := p.thresholds.saved[0]
	if got.MachineID != "9" || got.MinRatio != 0.85 || got.TargetRatio != 1 || got.MaxRatio != 1.1 {
		t.Errorf("saved %+v", got)
	}
}

func TestModel_DashboardThresholdsInvalid(t *testing.T) {
	tests := []struct {
		name  string
		field int
		value string
	}{
		{"not a number", 0, "abc"},
		{"min above target", 1, "1.5"},
		{"max below target", 2, "0.5"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, p := dashboardModel(t, true)
			m, cmd := update(t, m, keyRunes("t"))
			m = runCmd(t, m, cmd)

			m.threshold.inputs[tt.field].SetValue(tt.value)
			m, cmd = update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
			if cmd != nil {
				t.Error("invalid values must not be sent")
			}
			if m.threshold.err == "" {
				t.Error("expected a validation message")
			}
			if len(p.thresholds.saved) != 0 {
				t.Errorf("saved = %v", p.thresholds.saved)
			}
		})
	}
}

func TestModel_DashboardHistoryOpensRecords(t *testing.T) {
	m, p := dashboardModel(t, false)
	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyDown})

	m, cmd := update(t, m, keyRunes("h"))
	if m.view != ViewRecords {
		t.Fatalf("view = %v, want Records", m.view)
	}
	if len(p.records.filters) != 1 || p.records.filters[0].MachineID != "9" {
		t.Errorf("filters = %+v, want machine 9", p.records.filters)
	}
	if cmd == nil {
		t.Error("opening records should load a page")
	}
}

func TestModel_DashboardRefresh(t *testing.T) {
	m, p := dashboardModel(t, false)
	update(t, m, keyRunes("r"))
	if p.dashboard.refreshed != 1 {
		t.Errorf("refreshed %d times, want 1", p.dashboard.refreshed)
	}
}

func recordsModel(t *testing.T) (Model, *testProviders) {
	t.Helper()
	m, p := newSignedInModel(t, scope.RightsAdmin)
	m, _ = m.switchView(ViewRecords, "")
	return m, p
}

func TestModel_RecordsStatusCycle(t *testing.T) {
	m, p := recordsModel(t)

	want := []string{"Normal", "Warning", "Critical", ""}
	for i, status := range want {
		var cmd tea.Cmd
		m, cmd = update(t, m, keyRunes("s"))
		if cmd == nil {
			t.Fatalf("step %d: expected a reload", i)
		}
		if got := p.records.filters[i].Status; got != status {
			t.Errorf("step %d: status = %q, want %q", i, got, status)
		}
	}
}

func TestModel_RecordsMachineFilter(t *testing.T) {
	t.Run("cycles machines in scope", func(t *testing.T) {
		m, p := recordsModel(t)
		p.records.view.Machines = []api.Machine{{ID: "4", Name: "Mixer 4"}, {ID: "9", Name: "Mixer 9"}}

		m, _ = update(t, m, keyRunes("m"))
		m, _ = update(t, m, keyRunes("m"))
		m, _ = update(t, m, keyRunes("m"))
		got := []string{p.records.filters[0].MachineID, p.records.filters[1].MachineID, p.records.filters[2].MachineID}
		if strings.Join(got, ",") != "4,9," {
			t.Errorf("machine cycle = %v, want [4 9 \"\"]", got)
		}
	})

	t.Run("limited scope cannot change machine", func(t *testing.T) {
		m, p := recordsModel(t)
		p.records.view.Scope = scope.Scope{MachineID: "4"}

		m, cmd := update(t, m, keyRunes("m"))
		if cmd != nil || len(p.records.filters) != 0 {
			t.Error("machine filter should not change")
		}
		if !strings.Contains(m.statusMessage, "limited to") {
			t.Errorf("statusMessage = %q", m.statusMessage)
		}
	})
}

func TestModel_RecordsPaging(t *testing.T) {
	m, p := recordsModel(t)
	p.records.view.TotalPages = 2

	m, cmd := update(t, m, keyRunes("]"))
	if cmd == nil || p.records.view.Page != 2 {
		t.Fatalf("page = %d, want 2 with a reload", p.records.view.Page)
	}
	m, cmd = update(t, m, keyRunes("]"))
	if cmd != nil || p.records.view.Page != 2 {
		t.Errorf("paging past the end should do nothing (page %d)", p.records.view.Page)
	}
	m, cmd = update(t, m, keyRunes("["))
	if cmd == nil || p.records.view.Page != 1 {
		t.Errorf("page = %d, want 1 with a reload", p.records.view.Page)
	}
}

func TestModel_RecordsDateRange(t *testing.T) {
	tests := []struct {
		name      string
		start     string
		end       string
		wantErr   bool
		wantStart string
	}{
		{name: "valid range", start: "2024-01-01", end: "2024-01-31", wantStart: "2024-01-01"},
		{name: "open ended", start: "2024-01-01", wantStart: "2024-01-01"},
		{name: "bad date", start: "2024-13-01", wantErr: true},
		{name: "end before start", start: "2024-02-01", end: "2024-01-01", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, p := recordsModel(t)
			m, _ = update(t, m, keyRunes("d"))
			if !m.dates.active {
				t.Fatal("date dialog should open")
			}
			m, _ = update(t, m, keyRunes(tt.start))
			m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyTab})
			m, _ = update(t, m, keyRunes(tt.end))
			m, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyEnter})

			if tt.wantErr {
				if !m.dates.active || m.dates.err == "" {
					t.Error("expected the dialog to stay open with an error")
				}
				return
			}
			if m.dates.active {
				t.Error("dialog should close")
			}
			if cmd == nil {
				t.Error("expected a reload")
			}
			f := p.records.filters[len(p.records.filters)-1]
			if f.StartDate != tt.wantStart || f.EndDate != tt.end {
				t.Errorf("filter = %+v", f)
			}
		})
	}
}

func TestModel_RecordsLoadedClampsCursor(t *testing.T) {
	m, p := recordsModel(t)
	m.recordCursor = 5
	p.records.view.Rows = []feed.Row{{ReadingID: "1"}, {ReadingID: "2"}}

	m, _ = update(t, m, recordsLoadedMsg{})
	if m.recordCursor != 1 {
		t.Errorf("recordCursor = %d, want 1", m.recordCursor)
	}
}
