// Package messages renders feedback messages: the live panel under the
// breathing guide and a scrollable history overlay.
package messages

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/pranayama-assistant/pranayama/internal/feedback"
	"github.com/pranayama-assistant/pranayama/internal/theme"
)

const maxEntries = 200

// Model holds the message history.
type Model struct {
	Entries []feedback.Entry
	Offset  int // scroll offset (from bottom)
}

// New creates an empty history.
func New() Model {
	return Model{}
}

// Add appends an entry and caps the buffer.
func (m *Model) Add(e feedback.Entry) {
	m.Entries = append(m.Entries, e)
	if len(m.Entries) > maxEntries {
		m.Entries = m.Entries[len(m.Entries)-maxEntries:]
	}
	m.Offset = 0
}

// ScrollUp moves the viewport up.
func (m *Model) ScrollUp(n int) {
	m.Offset += n
	max := len(m.Entries) - 1
	if max < 0 {
		max = 0
	}
	if m.Offset > max {
		m.Offset = max
	}
}

// ScrollDown moves the viewport down.
func (m *Model) ScrollDown(n int) {
	m.Offset -= n
	if m.Offset < 0 {
		m.Offset = 0
	}
}

func panelStyle(width int) lipgloss.Style {
	return lipgloss.NewStyle().
		Width(width).
		Padding(1, 2).
		BorderStyle(lipgloss.DoubleBorder()).
		BorderForeground(theme.ColorBorder)
}

// View renders the history as an overlay panel.
func (m Model) View(width, height int) string {
	innerW := width - 4
	if innerW < 20 {
		innerW = 20
	}
	visibleLines := height - 6
	if visibleLines < 3 {
		visibleLines = 3
	}

	title := theme.StyleHeader.Render(" MESSAGE LOG ")
	help := theme.StyleDimmed.Render(fmt.Sprintf("j/k:scroll  esc:close  %d entries", len(m.Entries)))

	if len(m.Entries) == 0 {
		body := theme.StyleDimmed.Render("  No messages yet.")
		content := lipgloss.JoinVertical(lipgloss.Left, title, "", body, "", help)
		return panelStyle(innerW).Render(content)
	}

	end := len(m.Entries) - m.Offset
	start := end - visibleLines
	if start < 0 {
		start = 0
	}
	if end < 0 {
		end = 0
	}

	var lines []string
	for i := start; i < end; i++ {
		lines = append(lines, line(m.Entries[i], innerW, true))
	}

	body := strings.Join(lines, "\n")
	scrollIndicator := ""
	if m.Offset > 0 {
		scrollIndicator = theme.StyleDimmed.Render(fmt.Sprintf(" ↓ %d more", m.Offset))
	}

	content := lipgloss.JoinVertical(lipgloss.Left, title, body, scrollIndicator, help)
	return panelStyle(innerW).Render(content)
}

// Panel renders the live feedback entries, newest first, one per line.
func Panel(entries []feedback.Entry, width int) string {
	if width < 40 {
		width = 40
	}
	var lines []string
	for _, e := range entries {
		lines = append(lines, line(e, width-4, false))
	}
	if len(lines) == 0 {
		lines = append(lines, " ")
	}
	return lipgloss.NewStyle().
		Width(width).
		Padding(0, 1).
		Render(strings.Join(lines, "\n"))
}

func line(e feedback.Entry, width int, stamp bool) string {
	kind := string(e.Kind)
	glyph := lipgloss.NewStyle().Foreground(theme.FeedbackColor(kind)).Width(2).Render(theme.FeedbackGlyph(kind))
	msg := e.Text
	budget := width - 4
	if stamp {
		budget -= 9
	}
	if budget > 3 && len(msg) > budget {
		msg = msg[:budget-3] + "..."
	}
	msg = lipgloss.NewStyle().Foreground(theme.FeedbackColor(kind)).Render(msg)
	if !stamp {
		return glyph + msg
	}
	return theme.StyleDimmed.Render(e.Time.Format("15:04:05")) + " " + glyph + msg
}
