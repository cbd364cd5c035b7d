package session

import (
	"errors"
	"fmt"
	"io"
	"log"
	"strings"
	"testing"
	"time"

	"github.com/pranayama-assistant/pranayama/internal/clock"
	"github.com/pranayama-assistant/pranayama/internal/feedback"
)

var epoch = time.Date(2026, 3, 1, 6, 30, 0, 0, time.UTC)

type countingCue struct {
	plays   int
	volumes []float64
}

func (c *countingCue) Play(volume float64) error {
	c.plays++
	c.volumes = append(c.volumes, volume)
	return nil
}

type recorder struct {
	events []Event
}

func (r *recorder) Observe(e Event) { r.events = append(r.events, e) }

func (r *recorder) count(t EventType) int {
	n := 0
	for _, e := range r.events {
		if e.Type == t {
			n++
		}
	}
	return n
}

type harness struct {
	clock *clock.Manual
	ctrl  *Controller
	cue   *countingCue
	rec   *recorder
	fb    *feedback.Log
	texts []string // every feedback text, newest first
}

func newHarness(t *testing.T, s Settings) *harness {
	t.Helper()
	h := &harness{
		clock: clock.NewManual(epoch),
		cue:   &countingCue{},
		rec:   &recorder{},
	}
	h.fb = feedback.New(h.clock)
	h.fb.OnAdd(func(e feedback.Entry) { h.texts = append([]string{e.Text}, h.texts...) })
	ids := 0
	h.ctrl = New(Config{
		Clock:     h.clock,
		Scheduler: h.clock,
		Feedback:  h.fb,
		Settings:  s,
		OpenCue:   func() (Cue, error) { return h.cue, nil },
		Observers: []Observer{h.rec},
		Logger:    log.New(io.Discard, "", 0),
		NewID: func() string {
			ids++
			return fmt.Sprintf("session-%d", ids)
		},
	})
	return h
}

func (h *harness) feedbackTexts() []string {
	return h.texts
}

func TestStartInitialState(t *testing.T) {
	h := newHarness(t, DefaultSettings())
	h.ctrl.Start()

	s := h.ctrl.Snapshot()
	if !s.Active || s.Paused {
		t.Fatalf("active=%v paused=%v, want true/false", s.Active, s.Paused)
	}
	if s.Phase != RightExhale || s.SequenceIndex != 0 {
		t.Errorf("phase = %s (%d), want right_exhale (0)", s.Phase, s.SequenceIndex)
	}
	if s.SecondsRemaining != 4 {
		t.Errorf("SecondsRemaining = %d, want 4", s.SecondsRemaining)
	}
	if s.StartedAt == nil || !s.StartedAt.Equal(epoch) {
		t.Errorf("StartedAt = %v, want %v", s.StartedAt, epoch)
	}
	if s.PhaseLabel != "Exhale" || s.Instruction != "Close left nostril, exhale through right" {
		t.Errorf("display = %q / %q", s.PhaseLabel, s.Instruction)
	}
	if s.ActiveSide != Right {
		t.Errorf("ActiveSide = %q, want right", s.ActiveSide)
	}
	if s.ID != "session-1" {
		t.Errorf("ID = %q, want session-1", s.ID)
	}
	if got := h.feedbackTexts(); len(got) == 0 || got[0] != msgStarted {
		t.Errorf("feedback = %v, want start message first", got)
	}
}

func TestFourTicksOneTransitionOneCue(t *testing.T) {
	h := newHarness(t, Settings{PaceSeconds: 4, Volume: 0.7})
	h.ctrl.Start()

	h.clock.Advance(3 * time.Second)
	if got := h.rec.count(EventPhase); got != 0 {
		t.Fatalf("transitions after 3 ticks = %d, want 0", got)
	}
	if got := h.ctrl.Snapshot().SecondsRemaining; got != 1 {
		t.Errorf("SecondsRemaining after 3 ticks = %d, want 1", got)
	}

	h.clock.Advance(time.Second)
	if got := h.rec.count(EventPhase); got != 1 {
		t.Errorf("transitions = %d, want 1", got)
	}
	if h.cue.plays != 1 {
		t.Errorf("cue plays = %d, want 1", h.cue.plays)
	}
	if h.cue.volumes[0] != 0.7 {
		t.Errorf("cue volume = %v, want 0.7", h.cue.volumes[0])
	}
	s := h.ctrl.Snapshot()
	if s.Phase != LeftInhale || s.SecondsRemaining != 4 {
		t.Errorf("after transition phase=%s remaining=%d, want left_inhale/4", s.Phase, s.SecondsRemaining)
	}
}

func TestSequenceAdvancesInOrderAndCountsCycles(t *testing.T) {
	h := newHarness(t, Settings{PaceSeconds: 1, Volume: 0.5})
	h.ctrl.Start()

	want := []struct {
		phase  Phase
		cycles int
	}{
		{LeftInhale, 0},
		{LeftExhale, 0},
		{RightInhale, 0},
		{RightExhale, 1},
		{LeftInhale, 1},
		{LeftExhale, 1},
		{RightInhale, 1},
		{RightExhale, 2},
	}
	for i, w := range want {
		h.clock.Advance(time.Second)
		s := h.ctrl.Snapshot()
		if s.Phase != w.phase {
			t.Errorf("step %d: phase = %s, want %s", i, s.Phase, w.phase)
		}
		if s.CyclesCompleted != w.cycles {
			t.Errorf("step %d: cycles = %d, want %d", i, s.CyclesCompleted, w.cycles)
		}
		if s.SequenceIndex < 0 || s.SequenceIndex > 3 {
			t.Fatalf("step %d: sequence index %d out of range", i, s.SequenceIndex)
		}
	}
	if h.cue.plays != len(want) {
		t.Errorf("cue plays = %d, want %d", h.cue.plays, len(want))
	}
}

func TestPauseSuspendsCountdown(t *testing.T) {
	h := newHarness(t, DefaultSettings())
	h.ctrl.Start()
	h.clock.Advance(2 * time.Second)

	h.ctrl.PauseToggle()
	if !h.ctrl.Paused() {
		t.Fatal("expected paused")
	}
	h.clock.Advance(10 * time.Second)

	s := h.ctrl.Snapshot()
	if s.SecondsRemaining != 2 {
		t.Errorf("SecondsRemaining while paused = %d, want 2", s.SecondsRemaining)
	}
	if got := h.rec.count(EventPhase); got != 0 {
		t.Errorf("transitions while paused = %d, want 0", got)
	}
	if got := h.feedbackTexts()[0]; got != msgPaused {
		t.Errorf("feedback = %q, want pause message", got)
	}
}

func TestResumeRestartsCountdownFromFullPace(t *testing.T) {
	h := newHarness(t, DefaultSettings())
	h.ctrl.Start()
	h.clock.Advance(3 * time.Second)

	h.ctrl.PauseToggle()
	h.ctrl.PauseToggle()

	s := h.ctrl.Snapshot()
	if s.Paused {
		t.Fatal("expected resumed")
	}
	if s.SecondsRemaining != 4 {
		t.Errorf("SecondsRemaining after resume = %d, want 4 (seconds are not preserved)", s.SecondsRemaining)
	}
	if s.Phase != RightExhale {
		t.Errorf("phase after resume = %s, want right_exhale", s.Phase)
	}
	if got := h.feedbackTexts()[0]; got != msgResumed {
		t.Errorf("feedback = %q, want resume message", got)
	}
}

func TestDoubleToggleNeverDoublesCountdown(t *testing.T) {
	h := newHarness(t, DefaultSettings())
	h.ctrl.Start()

	for i := 0; i < 2; i++ {
		h.ctrl.PauseToggle()
		h.ctrl.PauseToggle()
	}
	if h.ctrl.Paused() {
		t.Fatal("four toggles should leave the session running")
	}
	// One phase countdown plus the elapsed timer.
	if got := h.clock.Active(); got != 2 {
		t.Errorf("live timers = %d, want 2", got)
	}

	h.clock.Advance(time.Second)
	if got := h.ctrl.Snapshot().SecondsRemaining; got != 3 {
		t.Errorf("SecondsRemaining after one second = %d, want 3", got)
	}
}

func TestPauseToggleInactiveIsNoop(t *testing.T) {
	h := newHarness(t, DefaultSettings())
	h.ctrl.PauseToggle()
	if h.ctrl.Paused() {
		t.Error("cannot pause without an active session")
	}
	if len(h.rec.events) != 0 {
		t.Errorf("events = %d, want 0", len(h.rec.events))
	}
}

func TestStopReportsSummary(t *testing.T) {
	h := newHarness(t, Settings{PaceSeconds: 2, Volume: 0.7})
	h.ctrl.Start()
	h.ctrl.RecordEyeAlert()
	h.clock.Advance(17*time.Second + 500*time.Millisecond)

	sum := h.ctrl.Stop()

	if sum.Duration != 17*time.Second {
		t.Errorf("Duration = %v, want 17s", sum.Duration)
	}
	if sum.Cycles != 2 {
		t.Errorf("Cycles = %d, want 2", sum.Cycles)
	}
	if sum.EyeAlerts != 1 {
		t.Errorf("EyeAlerts = %d, want 1", sum.EyeAlerts)
	}
	want := "Session completed. Duration: 00:17, Cycles: 2, Eye alerts: 1"
	if got := h.feedbackTexts()[0]; got != want {
		t.Errorf("feedback = %q, want %q", got, want)
	}

	s := h.ctrl.Snapshot()
	if s.Active || s.Paused {
		t.Errorf("after stop active=%v paused=%v", s.Active, s.Paused)
	}
	if s.PhaseLabel != CompleteLabel || s.Instruction != CompleteInstruction {
		t.Errorf("display after stop = %q / %q", s.PhaseLabel, s.Instruction)
	}
	if h.clock.Active() != 0 {
		t.Errorf("live timers after stop = %d, want 0", h.clock.Active())
	}
	last := h.rec.events[len(h.rec.events)-1]
	if last.Type != EventStopped || last.Summary == nil || *last.Summary != sum {
		t.Errorf("last event = %+v, want stopped with summary", last)
	}
}

func TestStopIdempotent(t *testing.T) {
	h := newHarness(t, DefaultSettings())
	h.ctrl.Start()
	h.clock.Advance(9 * time.Second)

	first := h.ctrl.Stop()
	snap1 := h.ctrl.Snapshot()
	msgs := len(h.texts)

	h.clock.Advance(5 * time.Second)
	second := h.ctrl.Stop()
	snap2 := h.ctrl.Snapshot()

	if first != second {
		t.Errorf("second Stop() = %+v, want %+v", second, first)
	}
	if snap1.Active != snap2.Active || snap1.Paused != snap2.Paused || snap1.CyclesCompleted != snap2.CyclesCompleted {
		t.Errorf("state changed on second stop: %+v vs %+v", snap1.Session, snap2.Session)
	}
	if len(h.texts) != msgs {
		t.Errorf("second stop added feedback: %d -> %d", msgs, len(h.texts))
	}
	if got := h.rec.count(EventStopped); got != 1 {
		t.Errorf("stopped events = %d, want 1", got)
	}
}

func TestStopNeverStarted(t *testing.T) {
	h := newHarness(t, DefaultSettings())
	sum := h.ctrl.Stop()
	if sum.Duration != 0 || sum.Cycles != 0 || sum.EyeAlerts != 0 {
		t.Errorf("summary = %+v, want zero", sum)
	}
	if got := h.ctrl.Snapshot().PhaseLabel; got != ReadyLabel {
		t.Errorf("PhaseLabel = %q, want %q", got, ReadyLabel)
	}
}

func TestPracticeLimitAutoStopsOnce(t *testing.T) {
	h := newHarness(t, Settings{PaceSeconds: 4, Volume: 0.7, PracticeLimitMinutes: 1})
	h.ctrl.Start()

	h.clock.Advance(59 * time.Second)
	if !h.ctrl.Active() {
		t.Fatal("stopped before the limit")
	}

	h.clock.Advance(90 * time.Second)
	if h.ctrl.Active() {
		t.Fatal("still active past the limit")
	}
	if got := h.rec.count(EventStopped); got != 1 {
		t.Errorf("stopped events = %d, want 1", got)
	}
	var stop Event
	for _, e := range h.rec.events {
		if e.Type == EventStopped {
			stop = e
		}
	}
	if stop.Summary.Duration != time.Minute {
		t.Errorf("Duration = %v, want 1m", stop.Summary.Duration)
	}
	if stop.Summary.Cycles != 3 {
		t.Errorf("Cycles = %d, want 3", stop.Summary.Cycles)
	}
}

func TestElapsedFrozenWhilePaused(t *testing.T) {
	h := newHarness(t, DefaultSettings())
	h.ctrl.Start()
	h.clock.Advance(10 * time.Second)

	if got := h.ctrl.Snapshot().Elapsed; got != "00:10" {
		t.Fatalf("Elapsed = %q, want 00:10", got)
	}

	h.ctrl.PauseToggle()
	h.clock.Advance(20 * time.Second)
	if got := h.ctrl.Snapshot().Elapsed; got != "00:10" {
		t.Errorf("Elapsed while paused = %q, want 00:10", got)
	}

	h.ctrl.PauseToggle()
	h.clock.Advance(time.Second)
	// Elapsed is wall-clock since start, so the pause is included.
	if got := h.ctrl.Snapshot().ElapsedSeconds; got != 31 {
		t.Errorf("ElapsedSeconds after resume = %d, want 31", got)
	}
}

func TestStartWhileActiveIgnored(t *testing.T) {
	h := newHarness(t, DefaultSettings())
	h.ctrl.Start()
	h.clock.Advance(5 * time.Second)
	before := h.ctrl.Snapshot()

	h.ctrl.Start()

	after := h.ctrl.Snapshot()
	if after.ID != before.ID || after.SequenceIndex != before.SequenceIndex {
		t.Errorf("second Start reset the session: %+v -> %+v", before.Session, after.Session)
	}
	if got := h.rec.count(EventStarted); got != 1 {
		t.Errorf("started events = %d, want 1", got)
	}
	if got := h.clock.Active(); got != 2 {
		t.Errorf("live timers = %d, want 2", got)
	}
}

func TestRestartResetsCounters(t *testing.T) {
	h := newHarness(t, Settings{PaceSeconds: 1, Volume: 0.7})
	h.ctrl.Start()
	h.ctrl.RecordEyeAlert()
	h.clock.Advance(6 * time.Second)
	h.ctrl.Stop()

	h.ctrl.Start()
	s := h.ctrl.Snapshot()
	if s.CyclesCompleted != 0 || s.EyeAlertCount != 0 || s.SequenceIndex != 0 || s.ElapsedSeconds != 0 {
		t.Errorf("new session not reset: %+v", s)
	}
	if s.Completed {
		t.Error("new session should not be marked completed")
	}
	if s.ID != "session-2" {
		t.Errorf("ID = %q, want session-2", s.ID)
	}
}

func TestEyeAlertsOnlyCountWhileActive(t *testing.T) {
	h := newHarness(t, DefaultSettings())
	h.ctrl.RecordEyeAlert()
	if got := h.ctrl.Snapshot().EyeAlertCount; got != 0 {
		t.Errorf("EyeAlertCount before start = %d, want 0", got)
	}
	h.ctrl.Start()
	h.ctrl.RecordEyeAlert()
	h.ctrl.RecordEyeAlert()
	if got := h.ctrl.Snapshot().EyeAlertCount; got != 2 {
		t.Errorf("EyeAlertCount = %d, want 2", got)
	}
	if got := h.rec.count(EventEyeAlert); got != 2 {
		t.Errorf("eye alert events = %d, want 2", got)
	}
}

func TestMonitorIndicators(t *testing.T) {
	h := newHarness(t, DefaultSettings())
	if !h.ctrl.Snapshot().PostureGood {
		t.Error("posture should start good")
	}
	h.ctrl.SetPosture(false)
	h.ctrl.SetPosture(false)
	h.ctrl.SetEyesOpen(true)
	if got := h.rec.count(EventMonitor); got != 2 {
		t.Errorf("monitor events = %d, want 2", got)
	}
	h.ctrl.Start()
	s := h.ctrl.Snapshot()
	if s.PostureGood || !s.EyesOpen {
		t.Errorf("indicators not carried into session: posture=%v eyes=%v", s.PostureGood, s.EyesOpen)
	}
}

func TestAudioFailureIsNonFatal(t *testing.T) {
	h := newHarness(t, Settings{PaceSeconds: 1, Volume: 0.7})
	opens := 0
	h.ctrl.openCue = func() (Cue, error) {
		opens++
		return nil, errors.New("no sound server")
	}

	h.ctrl.Start()
	h.clock.Advance(4 * time.Second)
	h.ctrl.Stop()
	h.ctrl.Start()

	if got := h.ctrl.Snapshot().SequenceIndex; got != 0 {
		t.Errorf("restart index = %d, want 0", got)
	}
	if h.rec.count(EventPhase) != 4 {
		t.Errorf("transitions = %d, want 4", h.rec.count(EventPhase))
	}
	if opens != 1 {
		t.Errorf("audio opened %d times, want 1", opens)
	}
	found := false
	for _, txt := range h.feedbackTexts() {
		if txt == msgAudioMissing {
			found = true
		}
	}
	if !found {
		t.Error("expected audio warning in feedback")
	}
}

func TestSilentAtZeroVolume(t *testing.T) {
	h := newHarness(t, Settings{PaceSeconds: 1, Volume: 0})
	h.ctrl.Start()
	h.clock.Advance(3 * time.Second)
	if h.cue.plays != 0 {
		t.Errorf("cue plays = %d, want 0", h.cue.plays)
	}
}

func TestUpdateSettings(t *testing.T) {
	h := newHarness(t, DefaultSettings())

	err := h.ctrl.UpdateSettings(Settings{PaceSeconds: 0, Volume: 0.5})
	if !errors.Is(err, ErrInvalidSettings) {
		t.Fatalf("err = %v, want ErrInvalidSettings", err)
	}

	if err := h.ctrl.UpdateSettings(Settings{PaceSeconds: 6, Volume: 0.2}); err != nil {
		t.Fatal(err)
	}
	if got := h.ctrl.Snapshot().SecondsRemaining; got != 6 {
		t.Errorf("idle SecondsRemaining = %d, want 6", got)
	}

	h.ctrl.Start()
	h.clock.Advance(2 * time.Second)
	if err := h.ctrl.UpdateSettings(Settings{PaceSeconds: 3, Volume: 0.2}); err != nil {
		t.Fatal(err)
	}
	// Current countdown keeps going; the new pace starts with the next phase.
	if got := h.ctrl.Snapshot().SecondsRemaining; got != 4 {
		t.Errorf("SecondsRemaining = %d, want 4", got)
	}
	h.clock.Advance(4 * time.Second)
	s := h.ctrl.Snapshot()
	if s.Phase != LeftInhale || s.SecondsRemaining != 3 {
		t.Errorf("phase=%s remaining=%d, want left_inhale/3", s.Phase, s.SecondsRemaining)
	}
}

func TestInvalidInitialSettingsFallBack(t *testing.T) {
	h := newHarness(t, Settings{PaceSeconds: -2, Volume: 9})
	if got := h.ctrl.Settings(); got != DefaultSettings() {
		t.Errorf("Settings() = %+v, want defaults", got)
	}
}

func TestSummaryMessage(t *testing.T) {
	s := Summary{Duration: 125 * time.Second, Cycles: 7, EyeAlerts: 0}
	if got := s.Message(); !strings.Contains(got, "Duration: 02:05, Cycles: 7, Eye alerts: 0") {
		t.Errorf("Message() = %q", got)
	}
}
