package messages

import (
	"strings"
	"testing"
	"time"

	"github.com/pranayama-assistant/pranayama/internal/feedback"
)

func entry(kind feedback.Kind, text string) feedback.Entry {
	return feedback.Entry{Time: time.Date(2026, 3, 1, 6, 30, 0, 0, time.UTC), Kind: kind, Text: text}
}

func TestAddEntry(t *testing.T) {
	m := New()
	m.Add(entry(feedback.Info, "Session started."))
	if len(m.Entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(m.Entries))
	}
	if m.Entries[0].Kind != feedback.Info {
		t.Errorf("expected kind info, got %q", m.Entries[0].Kind)
	}
}

func TestMaxEntries(t *testing.T) {
	m := New()
	for i := 0; i < maxEntries+50; i++ {
		m.Add(entry(feedback.Info, "msg"))
	}
	if len(m.Entries) != maxEntries {
		t.Errorf("expected %d entries, got %d", maxEntries, len(m.Entries))
	}
}

func TestScrollUpDown(t *testing.T) {
	m := New()
	for i := 0; i < 20; i++ {
		m.Add(entry(feedback.Info, "msg"))
	}

	m.ScrollUp(5)
	if m.Offset != 5 {
		t.Errorf("expected offset 5, got %d", m.Offset)
	}
	m.ScrollDown(3)
	if m.Offset != 2 {
		t.Errorf("expected offset 2, got %d", m.Offset)
	}
	m.ScrollDown(10)
	if m.Offset != 0 {
		t.Errorf("expected offset 0, got %d", m.Offset)
	}
	m.ScrollUp(100)
	if m.Offset != 19 {
		t.Errorf("expected offset capped at 19, got %d", m.Offset)
	}
	m.Add(entry(feedback.Info, "new"))
	if m.Offset != 0 {
		t.Error("adding entry should reset scroll to 0")
	}
}

func TestViewEmpty(t *testing.T) {
	if v := New().View(80, 20); !strings.Contains(v, "No messages") {
		t.Error("empty view should show 'No messages'")
	}
}

func TestViewWithEntries(t *testing.T) {
	m := New()
	m.Add(entry(feedback.Info, "Session started."))
	m.Add(entry(feedback.Warning, "Audio cues unavailable."))
	v := m.View(80, 20)
	for _, want := range []string{"06:30:00", "Session started.", "Audio cues unavailable."} {
		if !strings.Contains(v, want) {
			t.Errorf("view missing %q", want)
		}
	}
}

func TestPanel(t *testing.T) {
	v := Panel([]feedback.Entry{
		entry(feedback.Success, "Session completed. Duration: 00:17, Cycles: 2, Eye alerts: 1"),
		entry(feedback.Info, "Session started."),
	}, 100)
	if strings.Index(v, "Session completed") > strings.Index(v, "Session started") {
		t.Error("panel should keep the given (newest-first) order")
	}
	if strings.Contains(v, "06:30") {
		t.Error("live panel should not show timestamps")
	}

	long := strings.Repeat("x", 200)
	if v := Panel([]feedback.Entry{entry(feedback.Info, long)}, 60); strings.Contains(v, long) || !strings.Contains(v, "...") {
		t.Error("long messages should be truncated")
	}
}
