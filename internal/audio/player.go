package audio

import (
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"sync"
)

// Backend names accepted by Open.
const (
	BackendAuto    = "auto"
	BackendCommand = "command"
	BackendBell    = "bell"
	BackendNone    = "none"
)

// ErrNoPlayer is returned when no playback backend could be found.
var ErrNoPlayer = errors.New("no audio player available")

// Player plays the cue. Play must not block for the length of the sound.
type Player interface {
	Play(volume float64) error
	Close() error
}

// Nop is a silent Player.
type Nop struct{}

func (Nop) Play(float64) error { return nil }
func (Nop) Close() error       { return nil }

// BellPlayer rings the terminal bell. It ignores the volume apart from
// staying silent at zero.
type BellPlayer struct {
	mu sync.Mutex
	w  io.Writer
}

// NewBellPlayer writes BEL characters to w.
func NewBellPlayer(w io.Writer) *BellPlayer {
	return &BellPlayer{w: w}
}

func (b *BellPlayer) Play(volume float64) error {
	if volume <= 0 {
		return nil
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	_, err := b.w.Write([]byte{'\a'})
	return err
}

func (b *BellPlayer) Close() error { return nil }

// playerCommand is an external program that plays a WAV file.
type playerCommand struct {
	name string
	args []string
}

// playerCommands are tried in order. paplay covers PulseAudio/PipeWire,
// aplay bare ALSA, afplay macOS.
var playerCommands = []playerCommand{
	{name: "paplay"},
	{name: "aplay", args: []string{"-q"}},
	{name: "afplay"},
}

// lookPath is swapped out in tests.
var lookPath = exec.LookPath

// CommandPlayer renders the cue to a temp WAV file and hands it to an
// external player process.
type CommandPlayer struct {
	path string
	args []string
	tone Tone

	mu        sync.Mutex
	dir       string
	file      string
	volume    float64
	startProc func(*exec.Cmd) error
}

// FindCommandPlayer returns a CommandPlayer for the first player program on
// PATH, or ErrNoPlayer.
func FindCommandPlayer(tone Tone) (*CommandPlayer, error) {
	for _, pc := range playerCommands {
		path, err := lookPath(pc.name)
		if err != nil {
			continue
		}
		return &CommandPlayer{path: path, args: pc.args, tone: tone, volume: -1}, nil
	}
	return nil, ErrNoPlayer
}

// Program returns the resolved player binary.
func (p *CommandPlayer) Program() string { return p.path }

// Play starts the player process and returns without waiting for it.
func (p *CommandPlayer) Play(volume float64) error {
	if volume <= 0 {
		return nil
	}
	file, err := p.cueFile(volume)
	if err != nil {
		return err
	}

	args := append(append([]string{}, p.args...), file)
	cmd := exec.Command(p.path, args...)
	start := p.startProc
	if start == nil {
		start = startAndReap
	}
	if err := start(cmd); err != nil {
		return fmt.Errorf("%s: %w", filepath.Base(p.path), err)
	}
	return nil
}

// Close removes the rendered cue file.
func (p *CommandPlayer) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.dir == "" {
		return nil
	}
	err := os.RemoveAll(p.dir)
	p.dir, p.file = "", ""
	return err
}

// cueFile returns a WAV file for volume, re-rendering only when the volume
// changed since the last call.
func (p *CommandPlayer) cueFile(volume float64) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.file != "" && p.volume == volume {
		return p.file, nil
	}
	if p.dir == "" {
		dir, err := os.MkdirTemp("", "pranayama-cue-*")
		if err != nil {
			return "", fmt.Errorf("creating cue dir: %w", err)
		}
		p.dir = dir
	}
	file := filepath.Join(p.dir, "cue.wav")
	if err := p.tone.WriteFile(file, volume, 0o600); err != nil {
		return "", fmt.Errorf("writing cue: %w", err)
	}
	p.file = file
	p.volume = volume
	return file, nil
}

func startAndReap(cmd *exec.Cmd) error {
	if err := cmd.Start(); err != nil {
		return err
	}
	go cmd.Wait()
	return nil
}

// Open returns a Player for the named backend. "auto" prefers an external
// player program and falls back to the terminal bell on bell.
func Open(backend string, bell io.Writer) (Player, error) {
	switch backend {
	case BackendNone:
		return Nop{}, nil
	case BackendBell:
		return NewBellPlayer(bell), nil
	case BackendCommand:
		p, err := FindCommandPlayer(Cue)
		if err != nil {
			return nil, err
		}
		return p, nil
	case BackendAuto, "":
		if p, err := FindCommandPlayer(Cue); err == nil {
			return p, nil
		}
		if bell == nil {
			return nil, ErrNoPlayer
		}
		return NewBellPlayer(bell), nil
	default:
		return nil, fmt.Errorf("unknown audio backend %q", backend)
	}
}
