package app

import (
	"context"
	"errors"
	"sync"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/pranayama-assistant/pranayama/internal/session"
	"github.com/pranayama-assistant/pranayama/internal/ws"
)

// ErrNotRunning is returned by Remote.Do before the UI is attached.
var ErrNotRunning = errors.New("ui not running")

// commandMsg carries a remote command into the update loop.
type commandMsg struct {
	cmd   ws.Command
	reply chan error
}

// Remote implements ws.Commander by posting commands into the Bubble Tea
// program and waiting for the update loop to apply them.
type Remote struct {
	mu       sync.Mutex
	settings session.Settings
	send     func(tea.Msg)
}

// NewRemote creates a commander reporting s until the UI updates it.
func NewRemote(s session.Settings) *Remote {
	return &Remote{settings: s}
}

// Attach connects the commander to a running program, usually
// (*tea.Program).Send.
func (r *Remote) Attach(send func(tea.Msg)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.send = send
}

// Do posts cmd to the update loop and waits for its result.
func (r *Remote) Do(ctx context.Context, cmd ws.Command) error {
	r.mu.Lock()
	send := r.send
	r.mu.Unlock()
	if send == nil {
		return ErrNotRunning
	}

	reply := make(chan error, 1)
	go send(commandMsg{cmd: cmd, reply: reply})
	select {
	case err := <-reply:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Settings returns the settings last applied by the UI.
func (r *Remote) Settings() session.Settings {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.settings
}

func (r *Remote) setSettings(s session.Settings) {
	r.mu.Lock()
	r.settings = s
	r.mu.Unlock()
}
