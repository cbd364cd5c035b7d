package status

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/pranayama-assistant/pranayama/internal/capability"
	"github.com/pranayama-assistant/pranayama/internal/theme"
)

// Detector connection states.
const (
	DetectorOff        = ""
	DetectorConnecting = "connecting"
	DetectorLive       = "live"
	DetectorLost       = "lost"
)

// Model holds the status bar state.
type Model struct {
	Ready     bool
	BasicMode bool
	Outcomes  []capability.Outcome
	Server    string // listen address, empty when the server is off
	Clients   int
	Detector  string
	Width     int
}

// New creates a status bar model.
func New() Model {
	return Model{}
}

// SetReport records the negotiated capabilities.
func (m *Model) SetReport(r capability.Report) {
	m.Ready = true
	m.BasicMode = r.BasicMode()
	m.Outcomes = append([]capability.Outcome(nil), r.Outcomes...)
}

// View renders the status bar.
func (m Model) View() string {
	width := m.Width
	if width < 40 {
		width = 40
	}

	var modeStr string
	switch {
	case !m.Ready:
		modeStr = lipgloss.NewStyle().Foreground(theme.ColorDimmed).Render("○ Starting...")
	case m.BasicMode:
		modeStr = lipgloss.NewStyle().Foreground(theme.ColorWarning).Render("● Basic mode")
	default:
		modeStr = lipgloss.NewStyle().Foreground(theme.ColorHealthy).Render("● Monitoring")
	}

	var healthParts []string
	for _, o := range m.Outcomes {
		healthParts = append(healthParts, lipgloss.NewStyle().Foreground(theme.StatusColor(string(o.Status()))).Render(
			fmt.Sprintf("%s: %s", o.Name, o.Result),
		))
	}
	healthStr := strings.Join(healthParts, "  ")

	sep := lipgloss.NewStyle().Foreground(theme.ColorBorder).Render(" | ")
	content := modeStr
	if healthStr != "" {
		content += sep + healthStr
	}
	if d := m.detectorView(); d != "" {
		content += sep + d
	}
	if m.Server != "" {
		content += sep + theme.StyleDimmed.Render(fmt.Sprintf("remote %s (%d)", m.Server, m.Clients))
	}

	bar := lipgloss.NewStyle().
		Width(width).
		Padding(0, 1).
		BorderStyle(lipgloss.DoubleBorder()).
		BorderForeground(theme.ColorBorder).
		Render(content)

	return bar
}

func (m Model) detectorView() string {
	var color lipgloss.Color
	switch m.Detector {
	case DetectorOff:
		return ""
	case DetectorLive:
		color = theme.ColorHealthy
	case DetectorConnecting:
		color = theme.ColorWarning
	default:
		color = theme.ColorDanger
	}
	return lipgloss.NewStyle().Foreground(color).Render("detector: " + m.Detector)
}
