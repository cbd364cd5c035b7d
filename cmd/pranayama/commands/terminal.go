package commands

import (
	"os"
	"sync"

	"github.com/charmbracelet/x/term"
)

// terminal is the program's output. The bell cue writes through it too, so a
// BEL reaches the tty the renderer owns, between frames rather than inside one.
type terminal struct {
	*os.File
	mu sync.Mutex
}

// bubbletea only enables the alt screen and raw mode on a term.File.
var _ term.File = (*terminal)(nil)

func newTerminal(f *os.File) *terminal {
	return &terminal{File: f}
}

func (t *terminal) Write(p []byte) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.File.Write(p)
}

func (t *terminal) WriteString(s string) (int, error) {
	return t.Write([]byte(s))
}
