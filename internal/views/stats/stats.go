// Package stats provides the session statistics row for the pranayama TUI.
package stats

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/pranayama-assistant/pranayama/internal/session"
	"github.com/pranayama-assistant/pranayama/internal/theme"
)

// Model holds the stats state.
type Model struct {
	Width int
	// Monitoring shows the posture and eye indicators.
	Monitoring bool
	snap       session.Snapshot
}

// New creates a stats model.
func New() Model {
	return Model{}
}

// SetSnapshot updates the displayed session.
func (m *Model) SetSnapshot(s session.Snapshot) {
	m.snap = s
}

// View renders the stats row and, when a practice limit is set, the limit
// bar beneath it.
func (m Model) View() string {
	width := m.Width
	if width < 40 {
		width = 40
	}
	sections := []string{m.renderStatsRow(width)}
	if m.snap.LimitMinutes > 0 {
		sections = append(sections, "  "+renderLimitBar(m.snap.ElapsedSeconds, m.snap.LimitMinutes*60, 30))
	}
	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (m Model) renderStatsRow(width int) string {
	s := m.snap
	statStyle := lipgloss.NewStyle().Padding(0, 1)

	stats := []string{
		statStyle.Foreground(theme.ColorBright).Render(
			fmt.Sprintf("Elapsed: %s", s.Elapsed)),
		statStyle.Foreground(theme.ColorInhale).Render(
			fmt.Sprintf("Cycles: %d", s.CyclesCompleted)),
		statStyle.Foreground(alertColor(s.EyeAlertCount)).Render(
			fmt.Sprintf("Eye alerts: %d", s.EyeAlertCount)),
		statStyle.Foreground(theme.ColorDimmed).Render(
			fmt.Sprintf("Pace: %ds", s.PaceSeconds)),
	}
	if m.Monitoring {
		stats = append(stats,
			indicator("Posture", s.PostureGood, "good", "adjust"),
			indicator("Eyes", !s.EyesOpen, "closed", "open"),
		)
	}

	content := strings.Join(stats, lipgloss.NewStyle().Foreground(theme.ColorBorder).Render(" | "))

	return lipgloss.NewStyle().
		Width(width).
		Padding(0, 1).
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(theme.ColorBorder).
		Render(content)
}

func indicator(name string, ok bool, good, bad string) string {
	style := lipgloss.NewStyle().Padding(0, 1)
	if ok {
		return style.Foreground(theme.ColorHealthy).Render(name + ": " + good)
	}
	return style.Foreground(theme.ColorWarning).Render(name + ": " + bad)
}

func alertColor(n int) lipgloss.Color {
	switch {
	case n >= 5:
		return theme.ColorDanger
	case n > 0:
		return theme.ColorWarning
	default:
		return theme.ColorDimmed
	}
}

// renderLimitBar draws practice time used against the limit.
func renderLimitBar(elapsed, limit, barWidth int) string {
	if barWidth < 8 {
		barWidth = 8
	}
	pct := 0.0
	if limit > 0 {
		pct = float64(elapsed) / float64(limit)
	}

	filled := max(0, min(int(pct*float64(barWidth)), barWidth))
	empty := barWidth - filled

	bar := lipgloss.NewStyle().Foreground(theme.ColorRest).Render(strings.Repeat("█", filled))
	bar += lipgloss.NewStyle().Foreground(theme.ColorBorder).Render(strings.Repeat("░", empty))
	label := fmt.Sprintf(" %s / %s", session.FormatTime(elapsed), session.FormatTime(limit))

	return bar + theme.StyleDimmed.Render(label)
}
