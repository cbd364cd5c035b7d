package detector

import (
	"context"
	"fmt"
	"math/rand"
	"time"
)

// Mock feed patterns.
const (
	PatternSteady   = "steady"   // rare posture slips, eyes stay closed
	PatternRestless = "restless" // frequent slips and eye openings
	PatternDrowsy   = "drowsy"   // slow slouch, eyes never open
)

// MockSource generates a plausible detector feed for demos without a real
// detector.
type MockSource struct {
	pattern  string
	interval time.Duration
	rng      *rand.Rand

	tick        int
	connected   bool
	postureGood bool
	eyesOpen    bool
	pending     []Event
}

// NewMockSource builds a generator. An unknown pattern falls back to
// steady; seed makes the sequence reproducible.
func NewMockSource(pattern string, interval time.Duration, seed int64) *MockSource {
	switch pattern {
	case PatternSteady, PatternRestless, PatternDrowsy:
	default:
		pattern = PatternSteady
	}
	return &MockSource{
		pattern:     pattern,
		interval:    interval,
		rng:         rand.New(rand.NewSource(seed)),
		postureGood: true,
	}
}

// Pattern returns the active pattern name.
func (m *MockSource) Pattern() string { return m.pattern }

func (m *MockSource) Connect(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.connected = true
	return nil
}

// Next waits one interval and returns the next generated event.
func (m *MockSource) Next(ctx context.Context) (Event, error) {
	if !m.connected {
		return Event{}, fmt.Errorf("mock detector: not connected")
	}
	for len(m.pending) == 0 {
		if m.interval > 0 {
			timer := time.NewTimer(m.interval)
			select {
			case <-ctx.Done():
				timer.Stop()
				return Event{}, ctx.Err()
			case <-timer.C:
			}
		} else if err := ctx.Err(); err != nil {
			return Event{}, err
		}
		m.tick++
		m.advance()
	}
	ev := m.pending[0]
	m.pending = m.pending[1:]
	return ev, nil
}

func (m *MockSource) Close() error {
	m.connected = false
	m.pending = nil
	return nil
}

func (m *MockSource) advance() {
	switch m.pattern {
	case PatternSteady:
		m.advanceSteady()
	case PatternRestless:
		m.advanceRestless()
	case PatternDrowsy:
		m.advanceDrowsy()
	}
}

func (m *MockSource) advanceSteady() {
	if !m.postureGood {
		m.setPosture(true)
		return
	}
	if m.tick%10 == 0 && m.rng.Intn(3) == 0 {
		m.setPosture(false)
	}
}

func (m *MockSource) advanceRestless() {
	if m.eyesOpen {
		m.setEyes(false)
		return
	}
	switch r := m.rng.Intn(6); {
	case r == 0:
		m.setEyes(true)
		m.pending = append(m.pending, Event{Type: EventEyeAlert})
	case r <= 2:
		m.setPosture(!m.postureGood)
	}
}

func (m *MockSource) advanceDrowsy() {
	// Slouch after a while and recover slowly.
	if m.tick%15 == 0 {
		m.setPosture(false)
	} else if m.tick%15 == 8 {
		m.setPosture(true)
	}
}

func (m *MockSource) setPosture(good bool) {
	if m.postureGood == good {
		return
	}
	m.postureGood = good
	m.pending = append(m.pending, Event{Type: EventPosture, Good: good})
}

func (m *MockSource) setEyes(open bool) {
	if m.eyesOpen == open {
		return
	}
	m.eyesOpen = open
	m.pending = append(m.pending, Event{Type: EventEyes, Open: open})
}
