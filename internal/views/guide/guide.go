// Package guide renders the practice guide overlay from Markdown.
package guide

import (
	_ "embed"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"github.com/pranayama-assistant/pranayama/internal/theme"
)

//go:embed guide.md
var source string

// Model holds the rendered guide.
type Model struct {
	width    int
	rendered string
}

// New renders the guide for the given terminal width. Rendering failures
// fall back to the raw Markdown.
func New(width int) Model {
	m := Model{width: width}
	m.rendered = render(source, wrapWidth(width))
	return m
}

// Width returns the width the guide was rendered for.
func (m Model) Width() int { return m.width }

func wrapWidth(width int) int {
	w := width - 8
	if w < 30 {
		w = 30
	}
	if w > 80 {
		w = 80
	}
	return w
}

func render(md string, wrap int) string {
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(wrap),
	)
	if err != nil {
		return md
	}
	out, err := r.Render(md)
	if err != nil {
		return md
	}
	return strings.Trim(out, "\n")
}

// View renders the overlay.
func (m Model) View() string {
	help := theme.StyleDimmed.Render("esc:close")
	return lipgloss.NewStyle().
		Padding(0, 1).
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(theme.ColorExhale).
		Render(lipgloss.JoinVertical(lipgloss.Left, m.rendered, "", help))
}
