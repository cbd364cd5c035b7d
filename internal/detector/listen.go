package detector

import (
	"context"
	"errors"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/pranayama-assistant/pranayama/internal/capability"
)

// --- Bubble Tea messages ---

// ConnectedMsg is sent once the feed is connected.
type ConnectedMsg struct{}

// EyeAlertMsg reports that the user's eyes opened during practice.
type EyeAlertMsg struct{}

// PostureMsg reports a posture change.
type PostureMsg struct{ Good bool }

// EyesMsg reports an eye state change.
type EyesMsg struct{ Open bool }

// LostMsg is sent when the feed fails. The app does not reconnect.
type LostMsg struct{ Err error }

// Connect returns a command that connects src.
func Connect(ctx context.Context, src Source) tea.Cmd {
	return func() tea.Msg {
		if err := src.Connect(ctx); err != nil {
			return LostMsg{Err: err}
		}
		return ConnectedMsg{}
	}
}

// Listen returns a command that waits for the next event from src. Issue it
// again after every event message to keep reading. A cancelled ctx yields
// nil so shutdown does not look like a failure.
func Listen(ctx context.Context, src Source) tea.Cmd {
	return func() tea.Msg {
		ev, err := src.Next(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || ctx.Err() != nil {
				return nil
			}
			return LostMsg{Err: err}
		}
		return Message(ev)
	}
}

// Message converts ev to its Bubble Tea message.
func Message(ev Event) tea.Msg {
	switch ev.Type {
	case EventEyeAlert:
		return EyeAlertMsg{}
	case EventPosture:
		return PostureMsg{Good: ev.Good}
	case EventEyes:
		return EyesMsg{Open: ev.Open}
	}
	return nil
}

// Probe adapts src to capability negotiation: the feed is available when it
// connects before the deadline.
func Probe(src Source) capability.Probe {
	return capability.ProbeFunc(capability.NameDetector, src.Connect)
}
