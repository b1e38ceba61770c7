package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/nixlim/mixwatch/internal/feed"
	"github.com/nixlim/mixwatch/internal/scope"
)

type ackResultMsg struct {
	readingID string
	err       error
}

type ackDialog struct {
	active    bool
	readingID string
	name      string
	input     textinput.Model
	err       string
	busy      bool
}

func (m Model) alertsView() feed.AlertsView {
	if m.alertsPage == nil {
		return feed.AlertsView{}
	}
	return m.alertsPage.View()
}

func (m Model) handleAlertsKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	events := m.alertsView().Events

	switch {
	case key.Matches(msg, m.keys.Up):
		if m.alertCursor > 0 {
			m.alertCursor--
		}
		return m, nil

	case key.Matches(msg, m.keys.Down):
		if m.alertCursor < len(events)-1 {
			m.alertCursor++
		}
		return m, nil

	case key.Matches(msg, m.keys.Filter):
		if m.alertsPage != nil {
			f := m.alertsPage.CycleFilter()
			m.alertCursor = 0
			m.statusMessage = "Filter: " + string(f)
		}
		return m, nil

	case key.Matches(msg, m.keys.Ack):
		return m.openAckDialog()

	case key.Matches(msg, m.keys.Enter):
		if m.alertCursor < 0 || m.alertCursor >= len(events) {
			return m, nil
		}
		e := events[m.alertCursor]
		m.detail = detailOverlay{
			active:  true,
			title:   "Anomaly: " + e.DisplayName(),
			content: formatAnomalyDetail(e),
		}
		return m, nil
	}
	return m, nil
}

// openAckDialog prompts for a note on the anomaly under the cursor. Users
// below the acknowledge level get a status message instead.
func (m Model) openAckDialog() (tea.Model, tea.Cmd) {
	events := m.alertsView().Events
	if m.alertCursor < 0 || m.alertCursor >= len(events) {
		return m, nil
	}
	s := m.currentSession()
	if s == nil || !scope.CanAcknowledge(s.User) {
		m.statusMessage = "Acknowledging anomalies requires specialist or admin rights."
		return m, nil
	}
	e := events[m.alertCursor]
	if e.ReadingID == "" {
		m.statusMessage = "This reading has no id and cannot be acknowledged."
		return m, nil
	}

	in := textinput.New()
	in.Prompt = "Note: "
	in.Placeholder = "what was done about it"
	in.CharLimit = 500
	in.Width = 48
	in.Focus()

	m.ack = ackDialog{
		active:    true,
		readingID: e.ReadingID,
		name:      e.DisplayName(),
		input:     in,
	}
	return m, textinput.Blink
}

func (m Model) handleAckKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.ack.busy {
		return m, nil
	}
	switch msg.Type {
	case tea.KeyEsc:
		m.ack = ackDialog{}
		return m, nil

	case tea.KeyEnter:
		note := strings.TrimSpace(m.ack.input.Value())
		if note == "" {
			m.ack.err = "A note is required."
			return m, nil
		}
		if m.alertsPage == nil {
			return m, nil
		}
		m.ack.busy = true
		m.ack.err = ""
		page, ctx, id := m.alertsPage, m.ctx, m.ack.readingID
		return m, func() tea.Msg {
			return ackResultMsg{readingID: id, err: page.Acknowledge(ctx, id, note)}
		}
	}

	var cmd tea.Cmd
	m.ack.input, cmd = m.ack.input.Update(msg)
	return m, cmd
}

func (m Model) handleAckResult(msg ackResultMsg) (tea.Model, tea.Cmd) {
	if !m.ack.active || m.ack.readingID != msg.readingID {
		return m, nil
	}
	m.ack.busy = false
	if msg.err != nil {
		m.ack.err = "Acknowledge failed: " + msg.err.Error()
		return m, nil
	}
	m.statusMessage = "Acknowledged reading " + msg.readingID + "."
	m.ack = ackDialog{}
	return m, nil
}

func (m Model) renderAckDialog() string {
	var b strings.Builder
	b.WriteString(panelTitleStyle.Render("Acknowledge: " + m.ack.name))
	b.WriteString("\n")
	b.WriteString(dimStyle.Render("Reading " + m.ack.readingID))
	b.WriteString("\n\n")
	b.WriteString(m.ack.input.View())
	b.WriteString("\n\n")
	switch {
	case m.ack.busy:
		b.WriteString(dimStyle.Render("Sending..."))
	case m.ack.err != "":
		b.WriteString(alertCriticalStyle.Render(m.ack.err))
	default:
		b.WriteString(dimStyle.Render("Enter: Submit  Esc: Cancel"))
	}
	return dialogStyle.Render(b.String())
}

func (m Model) renderAlerts(w, h int) string {
	v := m.alertsView()
	inner := w - 4

	title := fmt.Sprintf("Anomalies [%s] %d of %d", v.Filter, len(v.Events), v.Total)
	if v.Filter == "" {
		title = fmt.Sprintf("Anomalies %d of %d", len(v.Events), v.Total)
	}
	if !v.Scope.All() {
		title += dimStyle.Render("  (" + v.Scope.String() + ")")
	}

	lines := []string{panelTitleStyle.Render(title)}
	switch {
	case v.Loading:
		lines = append(lines, dimStyle.Render("Loading..."))
	case v.Err != nil && v.Total == 0:
		lines = append(lines, alertCriticalStyle.Render("Failed to load anomalies."))
	case len(v.Events) == 0:
		lines = append(lines, dimStyle.Render("No anomalies match the filter."))
	default:
		lines = append(lines, dimStyle.Render(alertRow("MACHINE", "STATUS", "RATIO", "READING", "TIMESTAMP", inner)))
		start, end := visibleWindow(len(v.Events), m.alertCursor, h-5)
		for i := start; i < end; i++ {
			e := v.Events[i]
			row := alertRow(e.DisplayName(), e.Tier.Label(), e.RatioDisplay, e.ReadingID, e.TimestampRaw, inner)
			switch {
			case i == m.alertCursor:
				row = selectedStyle.Render(row)
			case v.Highlight != "" && e.Fingerprint == v.Highlight:
				row = highlightStyle.Render(row)
			default:
				row = tierStyle(e.Tier).Render(row)
			}
			lines = append(lines, row)
		}
	}
	if v.Err != nil && v.Total > 0 {
		lines = append(lines, alertWarningStyle.Render("Refresh failed; showing previous data."))
	}

	return renderBorderedPanel(strings.Join(lines, "\n"), w, h)
}

func alertRow(name, status, ratio, reading, ts string, w int) string {
	fixed := 10 + 8 + 12 + 26
	nameW := w - fixed
	if nameW < 10 {
		nameW = 10
	}
	return padRight(name, nameW) + padRight(status, 10) + padRight(ratio, 8) +
		padRight(reading, 12) + padRight(ts, 26)
}
