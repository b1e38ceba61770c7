package tui

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/nixlim/mixwatch/internal/api"
	"github.com/nixlim/mixwatch/internal/feed"
)

type thresholdsLoadedMsg struct {
	th   api.Thresholds
	name string
}

type thresholdsSavedMsg struct {
	th  api.Thresholds
	err error
}

// thresholdDialog edits target, min and max ratio in that order.
type thresholdDialog struct {
	active    bool
	machineID string
	name      string
	inputs    []textinput.Model
	focus     int
	err       string
	busy      bool
}

var thresholdLabels = []string{"Target ratio", "Min ratio", "Max ratio"}

func newThresholdDialog(th api.Thresholds, name string) thresholdDialog {
	values := []float64{th.TargetRatio, th.MinRatio, th.MaxRatio}
	d := thresholdDialog{active: true, machineID: th.MachineID, name: name}
	for i, v := range values {
		in := textinput.New()
		in.Prompt = padRight(thresholdLabels[i]+":", 14)
		in.CharLimit = 8
		in.SetValue(strconv.FormatFloat(v, 'f', -1, 64))
		if i == 0 {
			in.Focus()
		}
		d.inputs = append(d.inputs, in)
	}
	return d
}

func (d *thresholdDialog) setFocus(i int) {
	d.focus = (i + len(d.inputs)) % len(d.inputs)
	for j := range d.inputs {
		if j == d.focus {
			d.inputs[j].Focus()
		} else {
			d.inputs[j].Blur()
		}
	}
}

func (d thresholdDialog) values() (api.Thresholds, error) {
	var parsed [3]float64
	for i, in := range d.inputs {
		v, err := strconv.ParseFloat(strings.TrimSpace(in.Value()), 64)
		if err != nil {
			return api.Thresholds{}, fmt.Errorf("%s must be a number", strings.ToLower(thresholdLabels[i]))
		}
		parsed[i] = v
	}
	return api.Thresholds{
		MachineID:   d.machineID,
		TargetRatio: parsed[0],
		MinRatio:    parsed[1],
		MaxRatio:    parsed[2],
	}, nil
}

func (m Model) dashboardCards() []feed.Card {
	if m.dashboard == nil {
		return nil
	}
	return m.dashboard.View().Cards
}

func (m Model) handleDashboardKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	cards := m.dashboardCards()

	switch {
	case key.Matches(msg, m.keys.Up):
		if m.dashCursor > 0 {
			m.dashCursor--
		}
		return m, nil

	case key.Matches(msg, m.keys.Down):
		if m.dashCursor < len(cards)-1 {
			m.dashCursor++
		}
		return m, nil

	case key.Matches(msg, m.keys.Refresh):
		if m.dashboard != nil {
			m.dashboard.Refresh()
			m.statusMessage = "Refreshing..."
		}
		return m, nil

	case key.Matches(msg, m.keys.Thresholds):
		if m.dashCursor < 0 || m.dashCursor >= len(cards) {
			return m, nil
		}
		card := cards[m.dashCursor]
		return m.openThresholds(card.MachineID, card.Name)

	case key.Matches(msg, m.keys.Enter):
		if m.dashCursor < 0 || m.dashCursor >= len(cards) {
			return m, nil
		}
		return m.openMachine(cards[m.dashCursor].MachineID)

	case key.Matches(msg, m.keys.History):
		if m.dashCursor < 0 || m.dashCursor >= len(cards) {
			return m, nil
		}
		return m.openMachineRecords(cards[m.dashCursor].MachineID)
	}
	return m, nil
}

// openThresholds loads a machine's limits and opens the editor, for users
// allowed to change them.
func (m Model) openThresholds(machineID, name string) (tea.Model, tea.Cmd) {
	if m.thresholds == nil {
		return m, nil
	}
	if !m.thresholds.CanEdit() {
		m.statusMessage = "Changing thresholds requires specialist or admin rights."
		return m, nil
	}
	th, ctx := m.thresholds, m.ctx
	m.statusMessage = "Loading thresholds for " + name + "..."
	return m, func() tea.Msg {
		return thresholdsLoadedMsg{th: th.Load(ctx, machineID), name: name}
	}
}

// openMachineRecords switches to the records table filtered to machineID.
func (m Model) openMachineRecords(machineID string) (tea.Model, tea.Cmd) {
	if m.records == nil {
		return m, nil
	}
	if err := m.records.SetFilter(feed.RecordFilter{MachineID: machineID}); err != nil {
		m.statusMessage = err.Error()
		return m, nil
	}
	return m.switchView(ViewRecords, "")
}

func (m Model) handleThresholdsLoaded(msg thresholdsLoadedMsg) (tea.Model, tea.Cmd) {
	if m.view != ViewDashboard && m.view != ViewMachine {
		return m, nil
	}
	m.statusMessage = ""
	m.threshold = newThresholdDialog(msg.th, msg.name)
	return m, textinput.Blink
}

func (m Model) handleThresholdKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.threshold.busy {
		return m, nil
	}
	switch msg.Type {
	case tea.KeyEsc:
		m.threshold = thresholdDialog{}
		return m, nil

	case tea.KeyTab, tea.KeyDown:
		m.threshold.setFocus(m.threshold.focus + 1)
		return m, nil

	case tea.KeyShiftTab, tea.KeyUp:
		m.threshold.setFocus(m.threshold.focus - 1)
		return m, nil

	case tea.KeyEnter:
		th, err := m.threshold.values()
		if err != nil {
			m.threshold.err = err.Error()
			return m, nil
		}
		if err := feed.ValidateThresholds(th); err != nil {
			m.threshold.err = err.Error()
			return m, nil
		}
		m.threshold.busy = true
		m.threshold.err = ""
		saver, ctx := m.thresholds, m.ctx
		return m, func() tea.Msg {
			return thresholdsSavedMsg{th: th, err: saver.Save(ctx, th)}
		}
	}

	var cmd tea.Cmd
	i := m.threshold.focus
	m.threshold.inputs[i], cmd = m.threshold.inputs[i].Update(msg)
	return m, cmd
}

func (m Model) handleThresholdsSaved(msg thresholdsSavedMsg) (tea.Model, tea.Cmd) {
	if !m.threshold.active {
		return m, nil
	}
	m.threshold.busy = false
	if msg.err != nil {
		m.threshold.err = msg.err.Error()
		return m, nil
	}
	m.statusMessage = "Thresholds saved for " + m.threshold.name + "."
	m.threshold = thresholdDialog{}
	return m, nil
}

func (m Model) renderThresholdDialog() string {
	var b strings.Builder
	b.WriteString(panelTitleStyle.Render("Configure thresholds: " + m.threshold.name))
	b.WriteString("\n\n")
	for _, in := range m.threshold.inputs {
		b.WriteString(in.View())
		b.WriteString("\n")
	}
	b.WriteString("\n")
	switch {
	case m.threshold.busy:
		b.WriteString(dimStyle.Render("Saving..."))
	case m.threshold.err != "":
		b.WriteString(alertCriticalStyle.Render(m.threshold.err))
	default:
		b.WriteString(dimStyle.Render("Enter: Save  Tab: Next field  Esc: Cancel"))
	}
	return dialogStyle.Render(b.String())
}

func (m Model) renderDashboard(w, h int) string {
	var v feed.DashboardView
	if m.dashboard != nil {
		v = m.dashboard.View()
	}

	inner := w - 4
	var lines []string
	title := "Machines"
	if !v.Scope.All() {
		title += dimStyle.Render("  (" + v.Scope.String() + ")")
	}
	lines = append(lines, panelTitleStyle.Render(title))

	switch {
	case v.Loading && len(v.Cards) == 0:
		lines = append(lines, dimStyle.Render("Loading..."))
	case v.Err != nil && len(v.Cards) == 0:
		lines = append(lines, alertCriticalStyle.Render("Failed to load dashboard data."))
	case len(v.Cards) == 0:
		lines = append(lines, dimStyle.Render("No readings for the machines in scope."))
	default:
		lines = append(lines, dimStyle.Render(cardRow("MACHINE", "STATUS", "RATIO", "ADHESIVE", "RESIN", "LAST READING", inner)))
		now := time.Now()
		start, end := visibleWindow(len(v.Cards), m.dashCursor, h-5)
		for i := start; i < end; i++ {
			c := v.Cards[i]
			row := cardRow(c.Name, c.Tier.Label(), c.RatioDisplay,
				fmt.Sprintf("%.1f", c.Adhesive), fmt.Sprintf("%.1f", c.Resin), c.Age(now), inner)
			if i == m.dashCursor {
				row = selectedStyle.Render(row)
			} else {
				row = tierStyle(c.Tier).Render(row)
			}
			lines = append(lines, row)
		}
	}
	if v.Err != nil && len(v.Cards) > 0 {
		lines = append(lines, alertWarningStyle.Render("Refresh failed; showing previous data."))
	}

	return renderBorderedPanel(strings.Join(lines, "\n"), w, h)
}

func cardRow(name, status, ratio, adhesive, resin, age string, w int) string {
	fixed := 10 + 8 + 10 + 10 + 16
	nameW := w - fixed
	if nameW < 10 {
		nameW = 10
	}
	return padRight(name, nameW) + padRight(status, 10) + padRight(ratio, 8) +
		padRight(adhesive, 10) + padRight(resin, 10) + padRight(age, 16)
}
