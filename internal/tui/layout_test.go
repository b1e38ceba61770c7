package tui

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/nixlim/mixwatch/internal/alerts"
	"github.com/nixlim/mixwatch/internal/feed"
	"github.com/nixlim/mixwatch/internal/readings"
	"github.com/nixlim/mixwatch/internal/scope"
)

func TestTruncate(t *testing.T) {
	tests := []struct {
		in   string
		n    int
		want string
	}{
		{"short", 10, "short"},
		{"exactly10!", 10, "exactly10!"},
		{"much longer text", 10, "much lo..."},
		{"abc", 2, "ab"},
		{"abc", 0, ""},
	}
	for _, tt := range tests {
		if got := truncate(tt.in, tt.n); got != tt.want {
			t.Errorf("truncate(%q, %d) = %q, want %q", tt.in, tt.n, got, tt.want)
		}
	}
}

func TestPadRight(t *testing.T) {
	if got := padRight("ab", 5); got != "ab   " {
		t.Errorf("padRight = %q", got)
	}
	if got := padRight("abcdefgh", 5); got != "ab..." {
		t.Errorf("padRight = %q", got)
	}
}

func TestVisibleWindow(t *testing.T) {
	tests := []struct {
		name      string
		n, cursor int
		h         int
		wantStart int
		wantEnd   int
	}{
		{"fits", 3, 1, 10, 0, 3},
		{"cursor at top", 20, 0, 5, 0, 5},
		{"cursor below window", 20, 7, 5, 3, 8},
		{"cursor at end", 20, 19, 5, 15, 20},
		{"zero height", 4, 2, 0, 2, 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			start, end := visibleWindow(tt.n, tt.cursor, tt.h)
			if start != tt.wantStart || end != tt.wantEnd {
				t.Errorf("visibleWindow = [%d, %d), want [%d, %d)", start, end, tt.wantStart, tt.wantEnd)
			}
		})
	}
}

func TestWrapLines(t *testing.T) {
	got := wrapLines([]string{"alpha beta gamma", "", "abcdefghij"}, 8)
	want := []string{"alpha", "beta", "gamma", "", "abcdefgh", "ij"}
	if strings.Join(got, "|") != strings.Join(want, "|") {
		t.Errorf("wrapLines = %q, want %q", got, want)
	}
}

func TestNextString(t *testing.T) {
	values := []string{"", "a", "b"}
	tests := []struct{ cur, want string }{
		{"", "a"},
		{"a", "b"},
		{"b", ""},
		{"unknown", ""},
	}
	for _, tt := range tests {
		if got := nextString(values, tt.cur); got != tt.want {
			t.Errorf("nextString(%q) = %q, want %q", tt.cur, got, tt.want)
		}
	}
}

func TestValidDate(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"", true},
		{"2024-02-29", true},
		{"2023-02-29", false},
		{"01/02/2024", false},
	}
	for _, tt := range tests {
		if got := validDate(tt.in); got != tt.want {
			t.Errorf("validDate(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestModel_HeaderShowsUserAndUnread(t *testing.T) {
	m, p := newSignedInModel(t, scope.RightsSpecialist)
	p.bell.view.Unread = 3

	view := stripAnsi(m.View())
	for _, want := range []string{"mixwatch", "Dana", "Specialist", "Alerts:", " 3 ", "[No persistence]"} {
		if !strings.Contains(view, want) {
			t.Errorf("header should contain %q", want)
		}
	}
}

func TestModel_PersistentHidesIndicator(t *testing.T) {
	m, _ := newSignedInModel(t, scope.RightsAdmin, WithPersistenceFlag(true))
	if strings.Contains(stripAnsi(m.View()), "[No persistence]") {
		t.Error("persistent model should not show the indicator")
	}
}

func TestModel_BellBadgeCapsAt99(t *testing.T) {
	m, p := newSignedInModel(t, scope.RightsAdmin)
	p.bell.view.Unread = 250
	if got := stripAnsi(m.bellBadge()); !strings.Contains(got, "99+") {
		t.Errorf("bellBadge = %q, want 99+", got)
	}
}

func TestModel_RenderToasts(t *testing.T) {
	m, p := newSignedInModel(t, scope.RightsAdmin)
	p.bell.view.Toasts = []alerts.Toast{
		{ID: "1", Message: "ALERT: Mixer 4 ratio Critical", Tier: readings.TierCritical},
	}
	if !strings.Contains(stripAnsi(m.View()), "ALERT: Mixer 4 ratio Critical") {
		t.Error("toast message should be rendered")
	}
}

func TestModel_RenderDashboard(t *testing.T) {
	tests := []struct {
		name string
		view feed.DashboardView
		want string
	}{
		{"loading", feed.DashboardView{Loading: true}, "Loading..."},
		{"failed", feed.DashboardView{Err: errors.New("boom")}, "Failed to load dashboard data."},
		{"empty", feed.DashboardView{}, "No readings for the machines in scope."},
		{"cards", feed.DashboardView{Cards: []feed.Card{{MachineID: "4", Name: "Mixer 4", RatioDisplay: "1.020"}}}, "Mixer 4"},
		{"scoped", feed.DashboardView{Scope: scope.Scope{MachineID: "4"}}, `machine "4"`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, p := newSignedInModel(t, scope.RightsAdmin)
			p.dashboard.view = tt.view
			if !strings.Contains(stripAnsi(m.View()), tt.want) {
				t.Errorf("dashboard should contain %q", tt.want)
			}
		})
	}
}

func TestModel_RenderAlerts(t *testing.T) {
	m, p := newSignedInModel(t, scope.RightsAdmin)
	m, _ = m.switchView(ViewAlerts, "")
	p.alerts.view = feed.AlertsView{
		Filter: alerts.FilterCritical,
		Total:  4,
		Events: []alerts.AnomalyEvent{anomalyEvent("4", "r9", readings.TierCritical)},
	}

	view := stripAnsi(m.View())
	for _, want := range []string{"Anomalies [CRITICAL] 1 of 4", "Mixer 4", "r9", "Critical"} {
		if !strings.Contains(view, want) {
			t.Errorf("alerts view should contain %q", want)
		}
	}
}

func TestModel_RenderRecords(t *testing.T) {
	m, p := newSignedInModel(t, scope.RightsAdmin)
	m, _ = m.switchView(ViewRecords, "")
	p.records.view = feed.RecordsView{
		Page:       2,
		TotalPages: 5,
		Filter:     feed.RecordFilter{Status: "Warning", StartDate: "2024-01-01"},
		Rows: []feed.Row{
			{Name: "Mixer 4", ReadingID: "r1", Timestamp: "2024-01-02T08:00:00Z", RatioDisplay: "0.930", Tier: readings.TierWarning},
		},
	}

	view := stripAnsi(m.View())
	for _, want := range []string{"page 2/5", "All machines | Warning | 2024-01-01 .. ", "Mixer 4", "0.930"} {
		if !strings.Contains(view, want) {
			t.Errorf("records view should contain %q", want)
		}
	}
}

func TestModel_ViewSmallDimensions(t *testing.T) {
	m, _ := newSignedInModel(t, scope.RightsAdmin)
	m.width = 10
	m.height = 5
	view := m.View()
	if got := len(strings.Split(view, "\n")); got > 5 {
		t.Errorf("view has %d lines, want at most 5", got)
	}
}

func TestShutdownManager(t *testing.T) {
	var order []string
	sm := NewShutdownManager()
	sm.StopPolling = func() { order = append(order, "poll") }
	sm.CloseSinks = func(ctx context.Context) error {
		if _, ok := ctx.Deadline(); !ok {
			t.Error("sinks should get a deadline")
		}
		order = append(order, "sinks")
		return errors.New("flush failed")
	}
	sm.CloseStorage = func() error {
		order = append(order, "storage")
		return nil
	}

	if err := sm.Shutdown(); err == nil || err.Error() != "flush failed" {
		t.Errorf("Shutdown() = %v, want flush failed", err)
	}
	if err := sm.Shutdown(); err != nil {
		t.Errorf("second Shutdown() = %v, want nil", err)
	}
	if strings.Join(order, ",") != "poll,sinks,storage" {
		t.Errorf("order = %v", order)
	}
}
