package tui

import (
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/dustin/go-humanize"

	"github.com/nixlim/mixwatch/internal/feed"
)

func (m Model) machineView() feed.MachineDetailView {
	if m.machine == nil {
		return feed.MachineDetailView{}
	}
	return m.machine.View()
}

// openMachine shows one machine's page. A user outside the machine's scope
// stays where they are.
func (m Model) openMachine(machineID string) (tea.Model, tea.Cmd) {
	if m.machine == nil {
		return m.openMachineRecords(machineID)
	}
	if err := m.machine.Open(m.ctx, machineID); err != nil {
		if errors.Is(err, feed.ErrForbidden) {
			m.statusMessage = "You are not assigned to machine " + machineID + "."
		} else {
			m.statusMessage = err.Error()
		}
		return m, nil
	}
	if m.view != ViewMachine {
		m.closePage()
	}
	m.view = ViewMachine
	m.machineCursor = 0
	m.statusMessage = ""
	m.bellOpen = false
	return m, nil
}

func (m Model) handleMachineKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	v := m.machineView()

	switch {
	case key.Matches(msg, m.keys.Escape):
		return m.switchView(ViewDashboard, "")

	case key.Matches(msg, m.keys.Up):
		if m.machineCursor > 0 {
			m.machineCursor--
		}
		return m, nil

	case key.Matches(msg, m.keys.Down):
		if m.machineCursor < len(v.History)-1 {
			m.machineCursor++
		}
		return m, nil

	case key.Matches(msg, m.keys.Refresh):
		if m.machine != nil {
			m.machine.Refresh()
			m.statusMessage = "Refreshing..."
		}
		return m, nil

	case key.Matches(msg, m.keys.Thresholds):
		name := v.Name
		if name == "" {
			name = "machine " + v.MachineID
		}
		return m.openThresholds(v.MachineID, name)

	case key.Matches(msg, m.keys.History):
		return m.openMachineRecords(v.MachineID)

	case key.Matches(msg, m.keys.Enter):
		if m.machineCursor < 0 || m.machineCursor >= len(v.History) {
			return m, nil
		}
		r := v.History[m.machineCursor]
		m.detail = detailOverlay{
			active:  true,
			title:   "Reading " + r.ReadingID,
			content: formatRowDetail(r),
		}
		return m, nil
	}
	return m, nil
}

func (m Model) renderMachine(w, h int) string {
	v := m.machineView()
	inner := w - 4

	name := v.Name
	if name == "" {
		name = "Machine " + v.MachineID
	}
	lines := []string{panelTitleStyle.Render(name) + dimStyle.Render("  id "+v.MachineID)}

	switch {
	case v.Loading && !v.HasLatest:
		lines = append(lines, dimStyle.Render("Loading..."))
		return renderBorderedPanel(strings.Join(lines, "\n"), w, h)
	case v.Err != nil && !v.HasLatest:
		lines = append(lines, alertCriticalStyle.Render("Failed to load machine data."))
		return renderBorderedPanel(strings.Join(lines, "\n"), w, h)
	case !v.HasLatest:
		lines = append(lines, dimStyle.Render("No readings for this machine."))
		return renderBorderedPanel(strings.Join(lines, "\n"), w, h)
	}

	latest := v.Latest
	lines = append(lines,
		"Status: "+tierStyle(latest.Tier).Render(latest.Tier.Label())+
			"   Ratio: "+latest.RatioDisplay+
			fmt.Sprintf("   Adhesive: %.1f kg   Resin: %.1f kg", latest.Adhesive, latest.Resin),
	)
	updated := "never"
	if !v.UpdatedAt.IsZero() {
		updated = humanize.Time(v.UpdatedAt)
	}
	actions := "h: Full history"
	if v.CanConfigure {
		actions = "t: Thresholds  " + actions
	}
	lines = append(lines, dimStyle.Render(truncate(fmt.Sprintf("Last %d readings, updated %s  |  %s", len(v.History), updated, actions), inner)))
	if v.Err != nil {
		lines = append(lines, alertWarningStyle.Render("Refresh failed; showing previous data."))
	}

	lines = append(lines, dimStyle.Render(recordRow("MACHINE", "READING", "TIMESTAMP", "ADHESIVE", "RESIN", "RATIO", "STATUS", inner)))
	start, end := visibleWindow(len(v.History), m.machineCursor, h-len(lines)-2)
	for i := start; i < end; i++ {
		r := v.History[i]
		row := recordRow(r.Name, r.ReadingID, r.Timestamp,
			fmt.Sprintf("%.1f", r.Adhesive), fmt.Sprintf("%.1f", r.Resin), r.RatioDisplay, r.Tier.Label(), inner)
		if i == m.machineCursor {
			row = selectedStyle.Render(row)
		} else {
			row = tierStyle(r.Tier).Render(row)
		}
		lines = append(lines, row)
	}

	return renderBorderedPanel(strings.Join(lines, "\n"), w, h)
}
