package tui

import (
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
)

// openBell shows the dropdown and marks the current anomalies as seen.
func (m Model) openBell() Model {
	if m.bell == nil {
		return m
	}
	m.bellItems = m.bell.OpenFeed()
	m.bellCursor = 0
	m.bellOpen = true
	return m
}

func (m Model) handleBellKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Escape), key.Matches(msg, m.keys.Bell):
		m.bellOpen = false
		return m, nil

	case key.Matches(msg, m.keys.Up):
		if m.bellCursor > 0 {
			m.bellCursor--
		}
		return m, nil

	case key.Matches(msg, m.keys.Down):
		if m.bellCursor < len(m.bellItems)-1 {
			m.bellCursor++
		}
		return m, nil

	case key.Matches(msg, m.keys.Enter):
		if m.bellCursor < 0 || m.bellCursor >= len(m.bellItems) {
			m.bellOpen = false
			return m, nil
		}
		fp := m.bellItems[m.bellCursor].Fingerprint
		return m.switchView(ViewAlerts, fp)

	case key.Matches(msg, m.keys.Quit):
		return m.quit()
	}
	return m, nil
}

func (m Model) renderBellDropdown(w int) string {
	width := w * 60 / 100
	if width < 36 {
		width = 36
	}
	if width > w-2 {
		width = w - 2
	}
	inner := width - 6

	var b strings.Builder
	b.WriteString(panelTitleStyle.Render("Recent anomalies"))
	b.WriteString("\n\n")
	if len(m.bellItems) == 0 {
		b.WriteString(dimStyle.Render("No anomalies in scope."))
	}
	for i, e := range m.bellItems {
		line := padRight(e.DisplayName(), inner-22) + " " +
			padRight(e.Tier.Label(), 9) + " " + padRight(e.RatioDisplay, 6) + " "
		line = padRight(line, inner)
		switch {
		case i == m.bellCursor:
			line = selectedStyle.Render(line)
		default:
			line = tierStyle(e.Tier).Render(line)
		}
		b.WriteString(line)
		b.WriteString("\n")
		b.WriteString(dimStyle.Render("  " + truncate(e.TimestampRaw, inner-2)))
		b.WriteString("\n")
	}
	b.WriteString("\n")
	b.WriteString(dimStyle.Render("Enter: Open in Alerts  Esc: Close"))

	return dialogStyle.Width(width - 2).Render(b.String())
}
