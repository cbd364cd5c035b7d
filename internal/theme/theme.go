// Package theme provides the Lip Gloss color palette and reusable styles
// for the pranayama TUI. It is a leaf package with no internal imports
// to avoid import cycles.
package theme

import "github.com/charmbracelet/lipgloss"

// Breath colors.
var (
	ColorInhale = lipgloss.Color("#38bdf8")
	ColorExhale = lipgloss.Color("#a78bfa")
	ColorHold   = lipgloss.Color("#64748b")
	ColorRest   = lipgloss.Color("#34d399")
)

// Nostril colors.
var (
	ColorLeft  = lipgloss.Color("#f472b6")
	ColorRight = lipgloss.Color("#fbbf24")
)

// Feedback colors.
var (
	ColorInfo    = lipgloss.Color("#60a5fa")
	ColorSuccess = lipgloss.Color("#16a34a")
	ColorError   = lipgloss.Color("#dc2626")
)

// UI chrome colors.
var (
	ColorBorder  = lipgloss.Color("#4b5563")
	ColorDimmed  = lipgloss.Color("#6b7280")
	ColorBright  = lipgloss.Color("#f9fafb")
	ColorBg      = lipgloss.Color("#111827")
	ColorHealthy = lipgloss.Color("#22c55e")
	ColorWarning = lipgloss.Color("#d97706")
	ColorDanger  = lipgloss.Color("#dc2626")
)

// PhaseColor returns the color for a breath label ("Inhale", "Exhale", or
// anything else while idle).
func PhaseColor(label string) lipgloss.Color {
	switch label {
	case "Inhale":
		return ColorInhale
	case "Exhale":
		return ColorExhale
	case "Session Complete":
		return ColorRest
	default:
		return ColorHold
	}
}

// SideColor returns the color for a nostril name.
func SideColor(side string) lipgloss.Color {
	switch side {
	case "left":
		return ColorLeft
	case "right":
		return ColorRight
	default:
		return ColorDimmed
	}
}

// FeedbackColor returns the color for a feedback kind.
func FeedbackColor(kind string) lipgloss.Color {
	switch kind {
	case "info":
		return ColorInfo
	case "success":
		return ColorSuccess
	case "warning":
		return ColorWarning
	case "error":
		return ColorError
	default:
		return ColorDimmed
	}
}

// StatusColor returns the color for a capability status.
func StatusColor(status string) lipgloss.Color {
	switch status {
	case "healthy":
		return ColorHealthy
	case "degraded":
		return ColorWarning
	case "failed":
		return ColorDanger
	default:
		return ColorDimmed
	}
}

// Reusable styles.
var (
	StyleBorder = lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(ColorBorder)

	StyleHeader = lipgloss.NewStyle().
		Bold(true).
		Foreground(ColorBright)

	StyleDimmed = lipgloss.NewStyle().
		Foreground(ColorDimmed)

	StyleSelected = lipgloss.NewStyle().
		Bold(true).
		Foreground(ColorBright)
)

// FeedbackGlyph returns a glyph for a feedback kind.
func FeedbackGlyph(kind string) string {
	switch kind {
	case "info":
		return "·"
	case "success":
		return "✓"
	case "warning":
		return "!"
	case "error":
		return "✗"
	default:
		return " "
	}
}
