// Package clock provides the time source and repeating-callback primitive
// the session controller runs on. Real is backed by the wall clock; Manual
// is a deterministic stand-in for tests.
package clock

import (
	"sort"
	"sync"
	"time"
)

// Clock reports the current time.
type Clock interface {
	Now() time.Time
}

// Timer is a handle to a repeating callback. Stop is idempotent.
type Timer interface {
	Stop()
}

// Scheduler runs fn every interval until the returned Timer is stopped.
type Scheduler interface {
	Every(interval time.Duration, fn func()) Timer
}

// Real is the wall clock. Its Every runs callbacks on their own goroutine,
// so callers that need single-threaded delivery should use a scheduler that
// funnels fires through their event loop instead.
type Real struct{}

// Now returns time.Now().
func (Real) Now() time.Time { return time.Now() }

// Every starts a ticker that calls fn on every tick.
func (Real) Every(interval time.Duration, fn func()) Timer {
	t := &realTimer{
		ticker: time.NewTicker(interval),
		done:   make(chan struct{}),
	}
	go func() {
		for {
			select {
			case <-t.done:
				return
			case <-t.ticker.C:
				fn()
			}
		}
	}()
	return t
}

type realTimer struct {
	ticker *time.Ticker
	done   chan struct{}
	once   sync.Once
}

func (t *realTimer) Stop() {
	t.once.Do(func() {
		t.ticker.Stop()
		close(t.done)
	})
}

// Manual is a fake clock and scheduler. Time only moves on Advance, and
// every callback runs synchronously on the caller's goroutine.
type Manual struct {
	mu     sync.Mutex
	now    time.Time
	seq    uint64
	timers []*manualTimer
}

// NewManual returns a Manual clock set to start.
func NewManual(start time.Time) *Manual {
	return &Manual{now: start}
}

// Now returns the current fake time.
func (m *Manual) Now() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}

// Every registers fn to fire every interval of fake time.
func (m *Manual) Every(interval time.Duration, fn func()) Timer {
	if interval <= 0 {
		interval = time.Nanosecond
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	t := &manualTimer{
		owner:    m,
		id:       m.seq,
		interval: interval,
		next:     m.now.Add(interval),
		fn:       fn,
	}
	m.timers = append(m.timers, t)
	return t
}

// Active returns the number of timers that have not been stopped.
func (m *Manual) Active() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.timers)
}

// Advance moves time forward by d, firing due callbacks in fire-time order.
// Ties fire in creation order. While a callback runs, Now reports its fire
// instant.
func (m *Manual) Advance(d time.Duration) {
	m.mu.Lock()
	target := m.now.Add(d)
	m.mu.Unlock()

	for {
		m.mu.Lock()
		t := m.nextDueLocked(target)
		if t == nil {
			m.now = target
			m.mu.Unlock()
			return
		}
		m.now = t.next
		t.next = t.next.Add(t.interval)
		fn := t.fn
		m.mu.Unlock()

		fn()
	}
}

// nextDueLocked returns the earliest live timer due at or before target.
func (m *Manual) nextDueLocked(target time.Time) *manualTimer {
	if len(m.timers) == 0 {
		return nil
	}
	sort.SliceStable(m.timers, func(i, j int) bool {
		a, b := m.timers[i], m.timers[j]
		if !a.next.Equal(b.next) {
			return a.next.Before(b.next)
		}
		return a.id < b.id
	})
	t := m.timers[0]
	if t.next.After(target) {
		return nil
	}
	return t
}

func (m *Manual) remove(t *manualTimer) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, cur := range m.timers {
		if cur == t {
			m.timers = append(m.timers[:i], m.timers[i+1:]...)
			return
		}
	}
}

type manualTimer struct {
	owner    *Manual
	id       uint64
	interval time.Duration
	next     time.Time
	fn       func()
}

func (t *manualTimer) Stop() {
	t.owner.remove(t)
}
