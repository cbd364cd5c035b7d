package app

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/pranayama-assistant/pranayama/internal/clock"
)

// fireMsg is delivered when a scheduled timer's interval elapses.
type fireMsg struct{ id uint64 }

// teaScheduler implements clock.Scheduler on top of tea.Tick. Fires come
// back through Update, so callbacks run on the event loop goroutine. A
// stopped timer's outstanding tick arrives with an unknown id and is
// dropped. It is not safe for concurrent use.
type teaScheduler struct {
	next    uint64
	timers  map[uint64]*teaTimer
	pending []tea.Cmd
}

type teaTimer struct {
	s        *teaScheduler
	id       uint64
	interval time.Duration
	fn       func()
}

func newTeaScheduler() *teaScheduler {
	return &teaScheduler{timers: make(map[uint64]*teaTimer)}
}

// Every registers fn and queues its first tick. Queued ticks are handed to
// Bubble Tea by drain.
func (s *teaScheduler) Every(interval time.Duration, fn func()) clock.Timer {
	s.next++
	t := &teaTimer{s: s, id: s.next, interval: interval, fn: fn}
	s.timers[t.id] = t
	s.pending = append(s.pending, t.tick())
	return t
}

func (t *teaTimer) tick() tea.Cmd {
	id := t.id
	return tea.Tick(t.interval, func(time.Time) tea.Msg { return fireMsg{id: id} })
}

func (t *teaTimer) Stop() {
	delete(t.s.timers, t.id)
}

// fire re-arms and runs the timer for id. Unknown ids are ignored.
func (s *teaScheduler) fire(id uint64) bool {
	t, ok := s.timers[id]
	if !ok {
		return false
	}
	s.pending = append(s.pending, t.tick())
	t.fn()
	return true
}

// drain returns the ticks queued since the last call.
func (s *teaScheduler) drain() tea.Cmd {
	if len(s.pending) == 0 {
		return nil
	}
	cmds := s.pending
	s.pending = nil
	return tea.Batch(cmds...)
}

// active returns the number of live timers.
func (s *teaScheduler) active() int {
	return len(s.timers)
}
