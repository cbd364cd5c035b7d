package ws

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/pranayama-assistant/pranayama/internal/capability"
	"github.com/pranayama-assistant/pranayama/internal/feedback"
	"github.com/pranayama-assistant/pranayama/internal/session"
)

// addTestClient registers a client without a connection or write pump, so
// tests can read its send queue directly.
func addTestClient(b *Broadcaster) *client {
	c := &client{b: b, send: make(chan []byte, clientBuffer)}
	b.mu.Lock()
	b.clients[c] = true
	b.mu.Unlock()
	return c
}

type rawMessage struct {
	Type    MessageType     `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

func recv(t *testing.T, c *client, wait time.Duration) rawMessage {
	t.Helper()
	select {
	case data, ok := <-c.send:
		if !ok {
			t.Fatal("client channel closed")
		}
		var m rawMessage
		if err := json.Unmarshal(data, &m); err != nil {
			t.Fatalf("unmarshal %s: %v", data, err)
		}
		return m
	case <-time.After(wait):
		t.Fatal("timed out waiting for message")
	}
	return rawMessage{}
}

func expectNone(t *testing.T, c *client, wait time.Duration) {
	t.Helper()
	select {
	case data := <-c.send:
		t.Fatalf("unexpected message %s", data)
	case <-time.After(wait):
	}
}

func snapshotEvent(typ session.EventType, cycles int) session.Event {
	snap := session.Snapshot{}
	snap.Active = true
	snap.CyclesCompleted = cycles
	return session.Event{Type: typ, Snapshot: snap}
}

func TestObserve_Unthrottled(t *testing.T) {
	b := NewBroadcaster(0, 0)
	defer b.Stop()
	c := addTestClient(b)

	b.Observe(snapshotEvent(session.EventPhase, 3))

	m := recv(t, c, time.Second)
	if m.Type != MsgSnapshot {
		t.Fatalf("type = %s, want snapshot", m.Type)
	}
	var p SnapshotPayload
	if err := json.Unmarshal(m.Payload, &p); err != nil {
		t.Fatal(err)
	}
	if p.Event != "phase" || p.Session.CyclesCompleted != 3 {
		t.Errorf("payload = %+v, want phase event with 3 cycles", p)
	}

	snap, ok := b.Latest()
	if !ok || snap.CyclesCompleted != 3 {
		t.Errorf("Latest() = %+v, %v", snap, ok)
	}
}

func TestObserve_ThrottleCoalesces(t *testing.T) {
	b := NewBroadcaster(50*time.Millisecond, 0)
	defer b.Stop()
	c := addTestClient(b)

	for i := 1; i <= 5; i++ {
		b.Observe(snapshotEvent(session.EventTick, i))
	}

	m := recv(t, c, time.Second)
	var p SnapshotPayload
	if err := json.Unmarshal(m.Payload, &p); err != nil {
		t.Fatal(err)
	}
	if p.Session.CyclesCompleted != 5 {
		t.Errorf("coalesced snapshot has %d cycles, want the latest (5)", p.Session.CyclesCompleted)
	}
	expectNone(t, c, 120*time.Millisecond)
}

func TestObserve_StopSendsSnapshotAndSummary(t *testing.T) {
	b := NewBroadcaster(time.Hour, 0)
	defer b.Stop()
	c := addTestClient(b)

	b.Observe(snapshotEvent(session.EventTick, 1))
	sum := session.Summary{SessionID: "abc", Duration: 125 * time.Second, Cycles: 7, EyeAlerts: 2}
	stop := snapshotEvent(session.EventStopped, 7)
	stop.Summary = &sum
	b.Observe(stop)

	m := recv(t, c, time.Second)
	if m.Type != MsgSnapshot {
		t.Fatalf("first message = %s, want snapshot", m.Type)
	}
	m = recv(t, c, time.Second)
	if m.Type != MsgSummary {
		t.Fatalf("second message = %s, want summary", m.Type)
	}
	var p SummaryPayload
	if err := json.Unmarshal(m.Payload, &p); err != nil {
		t.Fatal(err)
	}
	if p.DurationSeconds != 125 || p.Cycles != 7 || p.EyeAlerts != 2 || p.SessionID != "abc" {
		t.Errorf("summary = %+v", p)
	}
	if p.Message != "Session completed. Duration: 02:05, Cycles: 7, Eye alerts: 2" {
		t.Errorf("summary message = %q", p.Message)
	}
	// The pending tick was folded into the stop snapshot.
	expectNone(t, c, 50*time.Millisecond)
}

func TestFeedbackBroadcast(t *testing.T) {
	b := NewBroadcaster(0, 0)
	defer b.Stop()
	c := addTestClient(b)

	b.Feedback(feedback.Entry{Kind: feedback.Warning, Text: "Audio cues unavailable."})

	m := recv(t, c, time.Second)
	if m.Type != MsgFeedback {
		t.Fatalf("type = %s, want feedback", m.Type)
	}
	var e feedback.Entry
	if err := json.Unmarshal(m.Payload, &e); err != nil {
		t.Fatal(err)
	}
	if e.Kind != feedback.Warning || e.Text != "Audio cues unavailable." {
		t.Errorf("entry = %+v", e)
	}
}

func TestSetCapabilities(t *testing.T) {
	b := NewBroadcaster(0, 0)
	defer b.Stop()
	c := addTestClient(b)

	b.SetCapabilities(capability.Report{Outcomes: []capability.Outcome{
		{Name: capability.NameModel, Result: capability.Available},
		{Name: capability.NameCamera, Result: capability.TimedOut, Err: errors.New("slow")},
	}})

	m := recv(t, c, time.Second)
	if m.Type != MsgCapabilities {
		t.Fatalf("type = %s, want capabilities", m.Type)
	}
	caps, ok := b.Capabilities()
	if !ok {
		t.Fatal("Capabilities() not recorded")
	}
	if !caps.BasicMode || caps.Status != capability.StatusDegraded {
		t.Errorf("caps = %+v, want basic mode and degraded", caps)
	}
	if len(caps.Outcomes) != 2 || caps.Outcomes[1].Error != "slow" || caps.Outcomes[1].Result != "timed_out" {
		t.Errorf("outcomes = %+v", caps.Outcomes)
	}
}

func TestBroadcast_DropsSlowClient(t *testing.T) {
	b := NewBroadcaster(0, 0)
	defer b.Stop()
	slow := addTestClient(b)
	fast := addTestClient(b)

	for i := 0; i < clientBuffer+1; i++ {
		b.Feedback(feedback.Entry{Text: "x"})
		// Keep the fast client drained.
		<-fast.send
	}

	if got := b.ClientCount(); got != 1 {
		t.Fatalf("ClientCount = %d, want 1 after slow client dropped", got)
	}
	b.mu.RLock()
	_, stillThere := b.clients[slow]
	b.mu.RUnlock()
	if stillThere {
		t.Error("slow client should have been removed")
	}
}

func TestStop_DisconnectsAndIgnoresEvents(t *testing.T) {
	b := NewBroadcaster(0, 0)
	c := addTestClient(b)
	b.Stop()

	if b.ClientCount() != 0 {
		t.Errorf("ClientCount after Stop = %d", b.ClientCount())
	}
	if _, ok := <-c.send; ok {
		t.Error("client channel should be closed")
	}
	b.Observe(snapshotEvent(session.EventTick, 1))
	if _, ok := b.Latest(); ok {
		t.Error("events after Stop should be ignored")
	}
	b.Stop()
}
