package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/nixlim/mixwatch/internal/alerts"
)

type detailOverlay struct {
	active  bool
	title   string
	content string
	scroll  int
}

func (m Model) handleDetailKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Escape), key.Matches(msg, m.keys.Enter):
		m.detail = detailOverlay{}
		return m, nil

	case key.Matches(msg, m.keys.Up):
		if m.detail.scroll > 0 {
			m.detail.scroll--
		}
		return m, nil

	case key.Matches(msg, m.keys.Down):
		m.detail.scroll++
		return m, nil

	case key.Matches(msg, m.keys.Ack):
		if m.view == ViewAlerts {
			m.detail = detailOverlay{}
			return m.openAckDialog()
		}
	}
	return m, nil
}

func formatAnomalyDetail(e alerts.AnomalyEvent) string {
	var lines []string
	lines = append(lines, "Machine:     "+e.DisplayName()+" (id "+e.MachineID+")")
	lines = append(lines, "Reading:     "+e.ReadingID)
	lines = append(lines, "Timestamp:   "+e.TimestampRaw)
	lines = append(lines, "Status:      "+tierStyle(e.Tier).Render(e.Tier.Label()))
	lines = append(lines, "Ratio:       "+e.RatioDisplay)
	lines = append(lines, fmt.Sprintf("Adhesive:    %.1f", e.Adhesive))
	lines = append(lines, fmt.Sprintf("Resin:       %.1f", e.Resin))
	lines = append(lines, "")
	lines = append(lines, "Fingerprint:")
	lines = append(lines, e.Fingerprint)
	return strings.Join(lines, "\n")
}

func (m Model) renderDetail(w, h int) string {
	overlayW := w * 70 / 100
	if overlayW < 40 {
		overlayW = 40
	}
	if overlayW > w-4 {
		overlayW = w - 4
	}
	overlayH := h * 60 / 100
	if overlayH < 10 {
		overlayH = 10
	}
	if overlayH > h-4 {
		overlayH = h - 4
	}

	contentW := overlayW - 6
	if contentW < 10 {
		contentW = 10
	}
	contentH := overlayH - 4
	if contentH < 3 {
		contentH = 3
	}

	wrapped := wrapLines(strings.Split(m.detail.content, "\n"), contentW)

	start := m.detail.scroll
	if start > len(wrapped)-contentH {
		start = len(wrapped) - contentH
	}
	if start < 0 {
		start = 0
	}
	end := start + contentH
	if end > len(wrapped) {
		end = len(wrapped)
	}

	body := strings.Join(wrapped[start:end], "\n")
	title := panelTitleStyle.Render(m.detail.title)
	footer := dimStyle.Render("Esc/Enter: Close")
	if m.view == ViewAlerts {
		footer += dimStyle.Render("  a: Acknowledge")
	}
	if len(wrapped) > contentH {
		footer += dimStyle.Render("  Up/Down: Scroll")
	}

	return detailOverlayStyle.
		Width(overlayW - 2).
		Render(title + "\n\n" + body + "\n\n" + footer)
}

// wrapLines breaks long lines at the last space before width, or hard at
// width when there is none.
func wrapLines(lines []string, width int) []string {
	var out []string
	for _, line := range lines {
		for len(line) > width {
			cut := width
			for i := width; i > 0; i-- {
				if line[i] == ' ' {
					cut = i
					break
				}
			}
			out = append(out, line[:cut])
			line = strings.TrimPrefix(line[cut:], " ")
		}
		out = append(out, line)
	}
	return out
}
