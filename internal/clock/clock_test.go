package clock

import (
	"testing"
	"time"
)

var epoch = time.Date(2026, 1, 1, 6, 0, 0, 0, time.UTC)

func TestManualAdvanceFiresInOrder(t *testing.T) {
	m := NewManual(epoch)
	var got []string

	m.Every(2*time.Second, func() { got = append(got, "two") })
	m.Every(time.Second, func() { got = append(got, "one") })

	m.Advance(4 * time.Second)

	want := []string{"one", "two", "one", "one", "two", "one"}
	if len(got) != len(want) {
		t.Fatalf("fired %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("fire[%d] = %q, want %q", i, got[i], want[i])
		}
	}
	if !m.Now().Equal(epoch.Add(4 * time.Second)) {
		t.Errorf("Now() = %v, want %v", m.Now(), epoch.Add(4*time.Second))
	}
}

func TestManualNowDuringCallback(t *testing.T) {
	m := NewManual(epoch)
	var seen []time.Duration
	m.Every(time.Second, func() { seen = append(seen, m.Now().Sub(epoch)) })

	m.Advance(3 * time.Second)

	for i, d := range seen {
		if want := time.Duration(i+1) * time.Second; d != want {
			t.Errorf("fire %d saw %v, want %v", i, d, want)
		}
	}
}

func TestManualStopInsideCallback(t *testing.T) {
	m := NewManual(epoch)
	count := 0
	var timer Timer
	timer = m.Every(time.Second, func() {
		count++
		if count == 2 {
			timer.Stop()
		}
	})

	m.Advance(10 * time.Second)

	if count != 2 {
		t.Errorf("count = %d, want 2", count)
	}
	if m.Active() != 0 {
		t.Errorf("Active() = %d, want 0", m.Active())
	}
}

func TestManualTimerCreatedInsideCallback(t *testing.T) {
	m := NewManual(epoch)
	inner := 0
	var outer Timer
	outer = m.Every(time.Second, func() {
		outer.Stop()
		m.Every(time.Second, func() { inner++ })
	})

	m.Advance(3 * time.Second)

	if inner != 2 {
		t.Errorf("inner fired %d times, want 2", inner)
	}
}

func TestManualStopIdempotent(t *testing.T) {
	m := NewManual(epoch)
	timer := m.Every(time.Second, func() {})
	timer.Stop()
	timer.Stop()
	if m.Active() != 0 {
		t.Errorf("Active() = %d, want 0", m.Active())
	}
}

func TestRealEveryStops(t *testing.T) {
	fired := make(chan struct{}, 10)
	timer := Real{}.Every(5*time.Millisecond, func() { fired <- struct{}{} })

	select {
	case <-fired:
	case <-time.After(time.Second):
		t.Fatal("real timer never fired")
	}
	timer.Stop()
	timer.Stop()
}
