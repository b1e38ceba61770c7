package tui

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/nixlim/mixwatch/internal/alerts"
	"github.com/nixlim/mixwatch/internal/readings"
)

const (
	minWidth  = 40
	minHeight = 10

	headerHeight    = 1
	statusBarHeight = 1

	toastWidth = 44
)

var (
	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("15")).
			Background(lipgloss.Color("62"))

	panelBorderStyle = lipgloss.NewStyle().
				Border(lipgloss.RoundedBorder()).
				BorderForeground(lipgloss.Color("240"))

	panelTitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("69"))

	selectedStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("15")).
			Background(lipgloss.Color("62"))

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240"))

	normalStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("82"))

	alertWarningStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("226"))

	alertCriticalStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("196"))

	highlightStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("0")).
			Background(lipgloss.Color("214"))

	badgeStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("15")).
			Background(lipgloss.Color("160"))

	dialogStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("63")).
			Padding(1, 2)

	statusBarStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("245"))

	toastWarningStyle = lipgloss.NewStyle().
				Border(lipgloss.RoundedBorder()).
				BorderForeground(lipgloss.Color("226")).
				Padding(0, 1)

	toastCriticalStyle = lipgloss.NewStyle().
				Border(lipgloss.RoundedBorder()).
				BorderForeground(lipgloss.Color("196")).
				Padding(0, 1)

	detailOverlayStyle = lipgloss.NewStyle().
				Border(lipgloss.RoundedBorder()).
				BorderForeground(lipgloss.Color("69")).
				Padding(1, 2)
)

// tierStyle returns the colour used for a tier label.
func tierStyle(t readings.Tier) lipgloss.Style {
	switch t {
	case readings.TierCritical:
		return alertCriticalStyle
	case readings.TierWarning:
		return alertWarningStyle
	default:
		return normalStyle
	}
}

func renderBorderedPanel(content string, w, h int) string {
	contentH := h - 2
	if contentH < 1 {
		contentH = 1
	}

	lines := strings.Split(content, "\n")
	if len(lines) > contentH {
		lines = lines[:contentH]
		content = strings.Join(lines, "\n")
	}

	return panelBorderStyle.
		Width(w - 2).
		Height(contentH).
		Render(content)
}

var ansiRe = regexp.MustCompile(`\x1b\[[0-9;]*m`)

func stripAnsi(s string) string {
	return ansiRe.ReplaceAllString(s, "")
}

func (m Model) dims() (w, h int) {
	w, h = m.width, m.height
	if w < minWidth {
		w = minWidth
	}
	if h < minHeight {
		h = minHeight
	}
	return w, h
}

func (m Model) renderApp() string {
	w, h := m.dims()

	header := m.renderHeader(w)
	toasts := m.renderToasts(w)
	status := m.renderStatusBar(w)

	bodyH := h - headerHeight - statusBarHeight - lipgloss.Height(toasts)
	if toasts == "" {
		bodyH = h - headerHeight - statusBarHeight
	}
	if bodyH < 4 {
		bodyH = 4
	}

	var body string
	switch m.view {
	case ViewDashboard:
		body = m.renderDashboard(w, bodyH)
	case ViewAlerts:
		body = m.renderAlerts(w, bodyH)
	case ViewRecords:
		body = m.renderRecords(w, bodyH)
	case ViewMachine:
		body = m.renderMachine(w, bodyH)
	case ViewUsers:
		body = m.renderUsers(w, bodyH)
	}

	parts := []string{header}
	if toasts != "" {
		parts = append(parts, toasts)
	}
	parts = append(parts, body, status)
	layout := lipgloss.JoinVertical(lipgloss.Left, parts...)

	switch {
	case m.ack.active:
		layout = placeOverlay(m.renderAckDialog(), layout)
	case m.threshold.active:
		layout = placeOverlay(m.renderThresholdDialog(), layout)
	case m.dates.active:
		layout = placeOverlay(m.renderDatesDialog(), layout)
	case m.search.active:
		layout = placeOverlay(m.renderSearchDialog(), layout)
	case m.detail.active:
		layout = placeOverlay(m.renderDetail(w, h), layout)
	case m.bellOpen:
		layout = placeOverlay(m.renderBellDropdown(w), layout)
	}

	return layout
}

func (m Model) renderHeader(w int) string {
	title := " mixwatch"
	viewLabel := " [" + m.view.String() + "]"
	if s := m.currentSession(); s != nil {
		viewLabel += fmt.Sprintf(" %s (%s)", s.User.Name, s.Role())
	}

	bell := " " + m.bellBadge()
	indicators := m.headerIndicators()
	help := m.headerHelp()

	padding := w - lipgloss.Width(title) - lipgloss.Width(viewLabel) - lipgloss.Width(bell) - lipgloss.Width(indicators) - lipgloss.Width(help)
	if padding < 0 {
		padding = 0
	}

	return headerStyle.Width(w).Render(title + viewLabel + bell + indicators + strings.Repeat(" ", padding) + help)
}

func (m Model) bellBadge() string {
	unread := 0
	if m.bell != nil {
		unread = m.bell.View().Unread
	}
	if unread == 0 {
		return "Alerts: 0"
	}
	label := fmt.Sprintf("%d", unread)
	if unread > 99 {
		label = "99+"
	}
	return "Alerts: " + badgeStyle.Render(" "+label+" ")
}

func (m Model) headerHelp() string {
	switch m.view {
	case ViewAlerts:
		return "f:Filter  a:Ack  b:Bell  Tab:Next  q:Quit "
	case ViewRecords:
		return "s:Status  m:Machine  d:Dates  ←/→:Page  q:Quit "
	case ViewMachine:
		return "t:Thresholds  h:History  r:Refresh  Esc:Back  q:Quit "
	case ViewUsers:
		return "/:Search  f:Role  o:Sort  ←/→:Page  q:Quit "
	default:
		return "t:Thresholds  r:Refresh  b:Bell  Tab:Next  q:Quit "
	}
}

func (m Model) renderStatusBar(w int) string {
	text := m.statusMessage
	if text == "" {
		text = "L:Log out  x:Dismiss toast  Enter:Open"
	}
	return statusBarStyle.Width(w).Render(truncate(" "+text, w))
}

// renderToasts stacks the visible toasts against the right edge, newest at
// the bottom.
func (m Model) renderToasts(w int) string {
	if m.bell == nil {
		return ""
	}
	toasts := m.bell.View().Toasts
	if len(toasts) == 0 {
		return ""
	}

	tw := toastWidth
	if tw > w {
		tw = w
	}
	var blocks []string
	for _, t := range toasts {
		style := toastWarningStyle
		if t.Severity() == alerts.SeverityCritical {
			style = toastCriticalStyle
		}
		blocks = append(blocks, style.Width(tw-2).Render(truncate(t.Message, tw-4)))
	}
	stack := lipgloss.JoinVertical(lipgloss.Right, blocks...)
	return lipgloss.PlaceHorizontal(w, lipgloss.Right, stack)
}

func truncate(s string, n int) string {
	if n <= 0 {
		return ""
	}
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	if n <= 3 {
		return string(r[:n])
	}
	return string(r[:n-3]) + "..."
}

func padRight(s string, n int) string {
	s = truncate(s, n)
	if gap := n - lipgloss.Width(s); gap > 0 {
		return s + strings.Repeat(" ", gap)
	}
	return s
}

// visibleWindow returns the [start, end) range of a list of n rows that
// keeps cursor visible in h rows.
func visibleWindow(n, cursor, h int) (int, int) {
	if h < 1 {
		h = 1
	}
	start := 0
	if cursor >= h {
		start = cursor - h + 1
	}
	end := start + h
	if end > n {
		end = n
	}
	return start, end
}

func placeOverlay(fg, bg string) string {
	return lipgloss.Place(
		lipgloss.Width(bg),
		lipgloss.Height(bg),
		lipgloss.Center,
		lipgloss.Center,
		fg,
		lipgloss.WithWhitespaceChars(" "),
	)
}
