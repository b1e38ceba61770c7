package tui

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/nixlim/mixwatch/internal/api"
	"github.com/nixlim/mixwatch/internal/feed"
	"github.com/nixlim/mixwatch/internal/readings"
)

const dateLayout = "2006-01-02"

// statusCycle is the order the status filter steps through.
var statusCycle = []string{
	"",
	readings.TierNormal.Label(),
	readings.TierWarning.Label(),
	readings.TierCritical.Label(),
}

type recordsLoadedMsg struct {
	err error
}

type dateDialog struct {
	active bool
	inputs []textinput.Model
	focus  int
	err    string
}

func (m Model) recordsView() feed.RecordsView {
	if m.records == nil {
		return feed.RecordsView{Page: 1, TotalPages: 1}
	}
	return m.records.View()
}

// loadRecordsCmd fetches the current page, and the machine list first when
// withMachines is set.
func (m Model) loadRecordsCmd(withMachines bool) tea.Cmd {
	if m.records == nil {
		return nil
	}
	records, ctx := m.records, m.ctx
	return func() tea.Msg {
		if withMachines {
			if err := records.LoadMachines(ctx); err != nil {
				log.Printf("WARNING: %v", err)
			}
		}
		return recordsLoadedMsg{err: records.Load(ctx)}
	}
}

func (m *Model) clampRecordCursor() {
	n := len(m.recordsView().Rows)
	if m.recordCursor >= n {
		m.recordCursor = n - 1
	}
	if m.recordCursor < 0 {
		m.recordCursor = 0
	}
}

// applyRecordFilter stores f and reloads from page 1.
func (m Model) applyRecordFilter(f feed.RecordFilter) (tea.Model, tea.Cmd) {
	if err := m.records.SetFilter(f); err != nil {
		m.statusMessage = err.Error()
		return m, nil
	}
	m.recordCursor = 0
	return m, m.loadRecordsCmd(false)
}

func (m Model) handleRecordsKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.records == nil {
		return m, nil
	}
	v := m.recordsView()

	switch {
	case key.Matches(msg, m.keys.Up):
		if m.recordCursor > 0 {
			m.recordCursor--
		}
		return m, nil

	case key.Matches(msg, m.keys.Down):
		if m.recordCursor < len(v.Rows)-1 {
			m.recordCursor++
		}
		return m, nil

	case key.Matches(msg, m.keys.NextPage):
		if m.records.NextPage() {
			m.recordCursor = 0
			return m, m.loadRecordsCmd(false)
		}
		return m, nil

	case key.Matches(msg, m.keys.PrevPage):
		if m.records.PrevPage() {
			m.recordCursor = 0
			return m, m.loadRecordsCmd(false)
		}
		return m, nil

	case key.Matches(msg, m.keys.Refresh):
		return m, m.loadRecordsCmd(true)

	case key.Matches(msg, m.keys.Status):
		f := v.Filter
		f.Status = nextString(statusCycle, f.Status)
		return m.applyRecordFilter(f)

	case key.Matches(msg, m.keys.Machine):
		if !v.Scope.All() {
			m.statusMessage = "Your account is limited to " + v.Scope.String() + "."
			return m, nil
		}
		ids := []string{""}
		for _, mc := range v.Machines {
			ids = append(ids, string(mc.ID))
		}
		f := v.Filter
		f.MachineID = nextString(ids, f.MachineID)
		return m.applyRecordFilter(f)

	case key.Matches(msg, m.keys.Dates):
		m.dates = newDateDialog(v.Filter)
		return m, textinput.Blink

	case key.Matches(msg, m.keys.Enter):
		if m.recordCursor < 0 || m.recordCursor >= len(v.Rows) {
			return m, nil
		}
		r := v.Rows[m.recordCursor]
		m.detail = detailOverlay{
			active:  true,
			title:   "Reading " + r.ReadingID,
			content: formatRowDetail(r),
		}
		return m, nil
	}
	return m, nil
}

// nextString returns the element after cur in values, wrapping around. An
// unknown cur restarts at the first element.
func nextString(values []string, cur string) string {
	for i, v := range values {
		if v == cur {
			return values[(i+1)%len(values)]
		}
	}
	return values[0]
}

func newDateDialog(f feed.RecordFilter) dateDialog {
	start := textinput.New()
	start.Prompt = "From (YYYY-MM-DD): "
	start.CharLimit = len(dateLayout)
	start.SetValue(f.StartDate)
	start.Focus()

	end := textinput.New()
	end.Prompt = "To   (YYYY-MM-DD): "
	end.CharLimit = len(dateLayout)
	end.SetValue(f.EndDate)

	return dateDialog{active: true, inputs: []textinput.Model{start, end}}
}

func (d *dateDialog) setFocus(i int) {
	d.focus = (i + len(d.inputs)) % len(d.inputs)
	for j := range d.inputs {
		if j == d.focus {
			d.inputs[j].Focus()
		} else {
			d.inputs[j].Blur()
		}
	}
}

// validDate accepts an empty value or a calendar date.
func validDate(s string) bool {
	if s == "" {
		return true
	}
	_, err := time.Parse(dateLayout, s)
	return err == nil
}

func (m Model) handleDatesKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		m.dates = dateDialog{}
		return m, nil

	case tea.KeyTab, tea.KeyDown:
		m.dates.setFocus(m.dates.focus + 1)
		return m, nil

	case tea.KeyShiftTab, tea.KeyUp:
		m.dates.setFocus(m.dates.focus - 1)
		return m, nil

	case tea.KeyEnter:
		start := strings.TrimSpace(m.dates.inputs[0].Value())
		end := strings.TrimSpace(m.dates.inputs[1].Value())
		if !validDate(start) || !validDate(end) {
			m.dates.err = "Dates must look like 2024-01-31."
			return m, nil
		}
		if start != "" && end != "" && end < start {
			m.dates.err = "The end date is before the start date."
			return m, nil
		}
		m.dates = dateDialog{}
		f := m.recordsView().Filter
		f.StartDate, f.EndDate = start, end
		return m.applyRecordFilter(f)
	}

	var cmd tea.Cmd
	i := m.dates.focus
	m.dates.inputs[i], cmd = m.dates.inputs[i].Update(msg)
	return m, cmd
}

func (m Model) renderDatesDialog() string {
	var b strings.Builder
	b.WriteString(panelTitleStyle.Render("Date range"))
	b.WriteString("\n\n")
	for _, in := range m.dates.inputs {
		b.WriteString(in.View())
		b.WriteString("\n")
	}
	b.WriteString("\n")
	if m.dates.err != "" {
		b.WriteString(alertCriticalStyle.Render(m.dates.err))
	} else {
		b.WriteString(dimStyle.Render("Enter: Apply  Tab: Next field  Esc: Cancel"))
	}
	return dialogStyle.Render(b.String())
}

func formatRowDetail(r feed.Row) string {
	lines := []string{
		"Machine:     " + r.Name + " (id " + r.MachineID + ")",
		"Reading:     " + r.ReadingID,
		"Timestamp:   " + r.Timestamp,
		"Status:      " + tierStyle(r.Tier).Render(r.Tier.Label()),
		"Ratio:       " + r.RatioDisplay,
		fmt.Sprintf("Adhesive:    %.1f", r.Adhesive),
		fmt.Sprintf("Resin:       %.1f", r.Resin),
	}
	return strings.Join(lines, "\n")
}

func machineLabel(machines []api.Machine, id string) string {
	if id == "" {
		return "All machines"
	}
	for _, mc := range machines {
		if string(mc.ID) == id && mc.Name != "" {
			return mc.Name
		}
	}
	return "Machine " + id
}

func (m Model) renderRecords(w, h int) string {
	v := m.recordsView()
	inner := w - 4

	status := v.Filter.Status
	if status == "" {
		status = "Any status"
	}
	machine := machineLabel(v.Machines, v.Filter.MachineID)
	if !v.Scope.All() {
		machine = v.Scope.String()
	}
	dates := "Any date"
	if v.Filter.StartDate != "" || v.Filter.EndDate != "" {
		dates = v.Filter.StartDate + " .. " + v.Filter.EndDate
	}

	lines := []string{
		panelTitleStyle.Render(fmt.Sprintf("Records  page %d/%d", v.Page, v.TotalPages)),
		dimStyle.Render(truncate(machine+" | "+status+" | "+dates, inner)),
	}
	switch {
	case v.Err != nil:
		lines = append(lines, alertCriticalStyle.Render("Failed to load records."))
	case len(v.Rows) == 0:
		lines = append(lines, dimStyle.Render("No readings match the filter."))
	default:
		lines = append(lines, dimStyle.Render(recordRow("MACHINE", "READING", "TIMESTAMP", "ADHESIVE", "RESIN", "RATIO", "STATUS", inner)))
		start, end := visibleWindow(len(v.Rows), m.recordCursor, h-6)
		for i := start; i < end; i++ {
			r := v.Rows[i]
			row := recordRow(r.Name, r.ReadingID, r.Timestamp,
				fmt.Sprintf("%.1f", r.Adhesive), fmt.Sprintf("%.1f", r.Resin), r.RatioDisplay, r.Tier.Label(), inner)
			if i == m.recordCursor {
				row = selectedStyle.Render(row)
			} else {
				row = tierStyle(r.Tier).Render(row)
			}
			lines = append(lines, row)
		}
	}

	return renderBorderedPanel(strings.Join(lines, "\n"), w, h)
}

func recordRow(name, reading, ts, adhesive, resin, ratio, status string, w int) string {
	fixed := 10 + 26 + 10 + 8 + 8 + 10
	nameW := w - fixed
	if nameW < 10 {
		nameW = 10
	}
	return padRight(name, nameW) + padRight(reading, 10) + padRight(ts, 26) +
		padRight(adhesive, 10) + padRight(resin, 8) + padRight(ratio, 8) + padRight(status, 10)
}
