// Package settings provides the settings overlay: pace, volume, practice
// limit and posture sensitivity, edited in place and applied on enter.
package settings

import (
	"fmt"
	"math"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/pranayama-assistant/pranayama/internal/config"
	"github.com/pranayama-assistant/pranayama/internal/session"
	"github.com/pranayama-assistant/pranayama/internal/theme"
)

// AppliedMsg is emitted when the user confirms the overlay.
type AppliedMsg struct {
	Settings    session.Settings
	Sensitivity int
}

// Field identifies an editable row.
type Field int

const (
	FieldPace Field = iota
	FieldVolume
	FieldLimit
	FieldSensitivity
	fieldCount
)

const (
	volumeStep     = 10
	limitStep      = 5
	minSensitivity = 1
	maxSensitivity = 10
)

// KeyMap holds the overlay key bindings.
type KeyMap struct {
	Up    key.Binding
	Down  key.Binding
	Left  key.Binding
	Right key.Binding
	Apply key.Binding
}

// DefaultKeyMap returns the default overlay key bindings.
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Up: key.NewBinding(
			key.WithKeys("k", "up"),
			key.WithHelp("k/↑", "prev field"),
		),
		Down: key.NewBinding(
			key.WithKeys("j", "down", "tab"),
			key.WithHelp("j/↓", "next field"),
		),
		Left: key.NewBinding(
			key.WithKeys("h", "left", "-"),
			key.WithHelp("h/←", "decrease"),
		),
		Right: key.NewBinding(
			key.WithKeys("l", "right", "+", "="),
			key.WithHelp("l/→", "increase"),
		),
		Apply: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "apply"),
		),
	}
}

// Model is the settings overlay model.
type Model struct {
	keys   KeyMap
	field  Field
	pace   int
	volume int // percent
	limit  int
	sens   int
}

// New creates an overlay seeded with the current values.
func New(s session.Settings, sensitivity int) Model {
	return Model{
		keys:   DefaultKeyMap(),
		pace:   clamp(s.PaceSeconds, config.MinPace, config.MaxPace),
		volume: clamp(int(math.Round(s.Volume*100)), 0, 100),
		limit:  clamp(s.PracticeLimitMinutes, 0, config.MaxLimit),
		sens:   clamp(sensitivity, minSensitivity, maxSensitivity),
	}
}

// Field returns the focused row.
func (m Model) Field() Field { return m.field }

// Settings returns the edited session settings.
func (m Model) Settings() session.Settings {
	return session.Settings{
		PaceSeconds:          m.pace,
		Volume:               float64(m.volume) / 100,
		PracticeLimitMinutes: m.limit,
	}
}

// Sensitivity returns the edited posture sensitivity.
func (m Model) Sensitivity() int { return m.sens }

// Update handles key presses. Enter returns an AppliedMsg command.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	k, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}
	switch {
	case key.Matches(k, m.keys.Up):
		m.field = (m.field - 1 + fieldCount) % fieldCount
	case key.Matches(k, m.keys.Down):
		m.field = (m.field + 1) % fieldCount
	case key.Matches(k, m.keys.Left):
		m.adjust(-1)
	case key.Matches(k, m.keys.Right):
		m.adjust(1)
	case key.Matches(k, m.keys.Apply):
		applied := AppliedMsg{Settings: m.Settings(), Sensitivity: m.sens}
		return m, func() tea.Msg { return applied }
	}
	return m, nil
}

func (m *Model) adjust(dir int) {
	switch m.field {
	case FieldPace:
		m.pace = clamp(m.pace+dir, config.MinPace, config.MaxPace)
	case FieldVolume:
		m.volume = clamp(m.volume+dir*volumeStep, 0, 100)
	case FieldLimit:
		m.limit = clamp(m.limit+dir*limitStep, 0, config.MaxLimit)
	case FieldSensitivity:
		m.sens = clamp(m.sens+dir, minSensitivity, maxSensitivity)
	}
}

// View renders the overlay.
func (m Model) View() string {
	limit := "off"
	if m.limit > 0 {
		limit = fmt.Sprintf("%d min", m.limit)
	}
	rows := []struct {
		label string
		value string
		frac  float64
	}{
		{"Breathing pace", fmt.Sprintf("%ds", m.pace), float64(m.pace-config.MinPace) / float64(config.MaxPace-config.MinPace)},
		{"Volume", fmt.Sprintf("%d%%", m.volume), float64(m.volume) / 100},
		{"Practice limit", limit, float64(m.limit) / float64(config.MaxLimit)},
		{"Posture sensitivity", fmt.Sprintf("%d", m.sens), float64(m.sens-minSensitivity) / float64(maxSensitivity-minSensitivity)},
	}

	var b strings.Builder
	b.WriteString(theme.StyleHeader.Render("Settings") + "\n\n")
	for i, r := range rows {
		prefix := "  "
		label := lipgloss.NewStyle().Foreground(theme.ColorDimmed).Width(22).Render(r.label)
		if Field(i) == m.field {
			prefix = "> "
			label = theme.StyleSelected.Width(22).Render(r.label)
		}
		b.WriteString(prefix + label + slider(r.frac, 16) + " " + theme.StyleHeader.Render(r.value) + "\n")
	}
	b.WriteString("\n" + theme.StyleDimmed.Render("↑/↓ select  ←/→ adjust  enter apply  esc cancel"))

	return lipgloss.NewStyle().
		Padding(1, 2).
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(theme.ColorInhale).
		Render(b.String())
}

func slider(frac float64, width int) string {
	pos := int(math.Round(frac * float64(width-1)))
	pos = clamp(pos, 0, width-1)
	return theme.StyleDimmed.Render(strings.Repeat("─", pos)) +
		lipgloss.NewStyle().Foreground(theme.ColorInhale).Render("●") +
		theme.StyleDimmed.Render(strings.Repeat("─", width-1-pos))
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
