// Package breath renders the breathing panel: an animated breath circle, the
// phase label and countdown, the instruction, and the nostril indicator.
package breath

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/harmonica"
	"github.com/charmbracelet/lipgloss"
	"github.com/pranayama-assistant/pranayama/internal/session"
	"github.com/pranayama-assistant/pranayama/internal/theme"
)

const (
	fps        = 30
	maxRadius  = 5.0
	minRadius  = 1.0
	idleRadius = 2.5
	barWidth   = 30
	settleEps  = 0.01
)

// FrameMsg advances the circle animation by one frame.
type FrameMsg struct{}

// Model holds the breathing panel state.
type Model struct {
	Width int

	snap      session.Snapshot
	spring    harmonica.Spring
	radius    float64
	velocity  float64
	target    float64
	animating bool
	bar       progress.Model
}

// New creates a breathing panel at rest.
func New() Model {
	return Model{
		spring: harmonica.NewSpring(harmonica.FPS(fps), 4.0, 0.8),
		radius: idleRadius,
		target: idleRadius,
		bar: progress.New(
			progress.WithSolidFill(string(theme.ColorInhale)),
			progress.WithoutPercentage(),
			progress.WithWidth(barWidth),
		),
	}
}

// Radius returns the current animated radius.
func (m Model) Radius() float64 { return m.radius }

// Target returns the radius the circle is moving toward.
func (m Model) Target() float64 { return m.target }

// SetSnapshot updates the displayed session and retargets the circle. It
// returns a frame command when the animation needs to start.
func (m *Model) SetSnapshot(s session.Snapshot) tea.Cmd {
	m.snap = s
	m.target = TargetRadius(s)
	if m.animating || m.settled() {
		return nil
	}
	m.animating = true
	return frame()
}

// Update steps the spring on FrameMsg.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	if _, ok := msg.(FrameMsg); !ok {
		return m, nil
	}
	m.radius, m.velocity = m.spring.Update(m.radius, m.velocity, m.target)
	if m.settled() {
		m.radius, m.velocity = m.target, 0
		m.animating = false
		return m, nil
	}
	return m, frame()
}

func (m Model) settled() bool {
	return math.Abs(m.target-m.radius) < settleEps && math.Abs(m.velocity) < settleEps
}

func frame() tea.Cmd {
	return tea.Tick(time.Second/fps, func(time.Time) tea.Msg { return FrameMsg{} })
}

// TargetRadius maps the position within the current phase to a circle size:
// inhales grow toward the full radius, exhales shrink toward the minimum.
func TargetRadius(s session.Snapshot) float64 {
	if !s.Active || s.PaceSeconds <= 0 {
		return idleRadius
	}
	frac := float64(s.PaceSeconds-s.SecondsRemaining+1) / float64(s.PaceSeconds)
	frac = math.Max(0, math.Min(1, frac))
	span := maxRadius - minRadius
	if s.Phase.Inhale() {
		return minRadius + span*frac
	}
	return maxRadius - span*frac
}

// View renders the panel.
func (m Model) View() string {
	width := m.Width
	if width < 40 {
		width = 40
	}
	s := m.snap
	color := theme.PhaseColor(s.PhaseLabel)

	circle := lipgloss.NewStyle().Foreground(color).Render(Disc(m.radius, maxRadius))
	label := lipgloss.NewStyle().Bold(true).Foreground(color).Render(s.PhaseLabel)

	lines := []string{circle, "", label}
	if s.Active {
		bar := m.bar
		bar.FullColor = string(color)
		frac := 0.0
		if s.PaceSeconds > 0 {
			frac = float64(s.PaceSeconds-s.SecondsRemaining) / float64(s.PaceSeconds)
		}
		countdown := theme.StyleHeader.Render(fmt.Sprintf("%2ds", s.SecondsRemaining))
		lines = append(lines, bar.ViewAs(frac)+" "+countdown)
		if s.Paused {
			lines = append(lines, lipgloss.NewStyle().Foreground(theme.ColorWarning).Render("PAUSED"))
		}
	}
	lines = append(lines, theme.StyleDimmed.Render(s.Instruction), "", nostrils(s))

	content := lipgloss.JoinVertical(lipgloss.Center, lines...)
	return lipgloss.NewStyle().
		Width(width).
		Align(lipgloss.Center).
		Padding(1, 1).
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(theme.ColorBorder).
		Render(content)
}

// nostrils lights the open side and marks the closed one.
func nostrils(s session.Snapshot) string {
	render := func(side session.Side, name string) string {
		if !s.Active {
			return theme.StyleDimmed.Render(name + " ○")
		}
		if side == s.ActiveSide {
			return lipgloss.NewStyle().Bold(true).Foreground(theme.SideColor(string(side))).Render(name + " ●")
		}
		return theme.StyleDimmed.Render(name + " ✕")
	}
	return render(session.Left, "Left") + "    " + render(session.Right, "Right")
}

// Disc draws a filled circle of radius r inside a fixed box sized for
// maxR, so the panel height never changes. Cells are twice as tall as they
// are wide, so columns are sampled at half steps.
func Disc(r, maxR float64) string {
	rows := int(math.Ceil(maxR))
	var b strings.Builder
	for y := -rows; y <= rows; y++ {
		for x := -2 * rows; x <= 2*rows; x++ {
			dx := float64(x) / 2
			dy := float64(y)
			if dx*dx+dy*dy <= r*r {
				b.WriteString("█")
			} else {
				b.WriteByte(' ')
			}
		}
		if y < rows {
			b.WriteByte('\n')
		}
	}
	return b.String()
}
