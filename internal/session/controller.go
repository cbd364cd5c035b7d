// Package session implements the breathing-session controller: the phase
// sequencer, the elapsed-time display and practice limit, and the session
// statistics reported when a session stops.
//
// A Controller is not safe for concurrent use. Every method, and every
// callback its Scheduler fires, must run on the same goroutine; the TUI
// guarantees this by delivering scheduler fires through its update loop.
package session

import (
	"fmt"
	"io"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/pranayama-assistant/pranayama/internal/clock"
	"github.com/pranayama-assistant/pranayama/internal/feedback"
)

const tickInterval = time.Second

// Feedback texts.
const (
	msgStarted      = "Session started. Close your eyes and focus on your breathing."
	msgPaused       = "Session paused. Press Resume when ready."
	msgResumed      = "Session resumed."
	msgAudioMissing = "Audio cues unavailable. Continuing without sound."
)

// Cue plays the phase-transition sound.
type Cue interface {
	Play(volume float64) error
}

type silentCue struct{}

func (silentCue) Play(float64) error { return nil }

// Config wires a Controller to its collaborators. Clock and Scheduler are
// required; everything else has a usable default.
type Config struct {
	Clock     clock.Clock
	Scheduler clock.Scheduler
	Feedback  *feedback.Log
	Settings  Settings
	// OpenCue creates the audio handle on the first Start. A nil func or an
	// error leaves cues silent for the controller's lifetime.
	OpenCue   func() (Cue, error)
	Observers []Observer
	Logger    *log.Logger
	NewID     func() string
}

// Controller owns the Session and drives it on two repeating timers: the
// phase countdown and the elapsed-time display.
type Controller struct {
	clock     clock.Clock
	sched     clock.Scheduler
	fb        *feedback.Log
	logger    *log.Logger
	openCue   func() (Cue, error)
	newID     func() string
	observers []Observer

	settings Settings
	sess     Session
	elapsed  int
	last     Summary

	phaseTimer   clock.Timer
	elapsedTimer clock.Timer

	cue      Cue
	cueTried bool
}

// New creates an idle controller. Invalid settings are replaced with the
// defaults and logged.
func New(cfg Config) *Controller {
	c := &Controller{
		clock:     cfg.Clock,
		sched:     cfg.Scheduler,
		fb:        cfg.Feedback,
		logger:    cfg.Logger,
		openCue:   cfg.OpenCue,
		newID:     cfg.NewID,
		observers: append([]Observer(nil), cfg.Observers...),
		settings:  cfg.Settings,
	}
	if c.logger == nil {
		c.logger = log.Default()
	}
	if c.fb == nil {
		c.fb = feedback.New(c.clock)
	}
	if c.newID == nil {
		c.newID = uuid.NewString
	}
	if err := c.settings.Validate(); err != nil {
		c.logger.Printf("session: %v, using defaults", err)
		c.settings = DefaultSettings()
	}
	c.sess.PaceSeconds = c.settings.PaceSeconds
	c.sess.SecondsRemaining = c.settings.PaceSeconds
	c.sess.LimitMinutes = c.settings.PracticeLimitMinutes
	c.sess.PostureGood = true
	return c
}

// AddObserver registers o for all future events.
func (c *Controller) AddObserver(o Observer) {
	c.observers = append(c.observers, o)
}

// Feedback returns the controller's message log.
func (c *Controller) Feedback() *feedback.Log { return c.fb }

// Settings returns the current settings.
func (c *Controller) Settings() Settings { return c.settings }

// Active reports whether a session is running.
func (c *Controller) Active() bool { return c.sess.Active }

// Paused reports whether the running session is paused.
func (c *Controller) Paused() bool { return c.sess.Paused }

// Start begins a new session. It is ignored while one is already active.
func (c *Controller) Start() {
	if c.sess.Active {
		c.logger.Printf("session: start ignored, session %s already active", c.sess.ID)
		return
	}
	c.ensureCue()

	now := c.clock.Now()
	c.sess = Session{
		ID:           c.newID(),
		Active:       true,
		StartedAt:    &now,
		PaceSeconds:  c.settings.PaceSeconds,
		LimitMinutes: c.settings.PracticeLimitMinutes,
		PostureGood:  c.sess.PostureGood,
		EyesOpen:     c.sess.EyesOpen,
	}
	c.elapsed = 0
	c.logger.Printf("session: started %s (pace %ds, limit %dm)", c.sess.ID, c.settings.PaceSeconds, c.settings.PracticeLimitMinutes)

	c.fb.Add(feedback.Info, msgStarted)
	c.startCountdown()
	c.elapsedTimer = c.sched.Every(tickInterval, c.elapsedTick)
	c.emit(EventStarted, nil)
}

// PauseToggle pauses a running session or resumes a paused one. A resumed
// countdown starts again from the full pace. It does nothing when no
// session is active.
func (c *Controller) PauseToggle() {
	if !c.sess.Active {
		return
	}
	c.sess.Paused = !c.sess.Paused

	if c.sess.Paused {
		c.stopPhaseTimer()
		c.logger.Printf("session: paused %s at %s", c.sess.ID, c.sess.Phase())
		c.fb.Add(feedback.Info, msgPaused)
		c.emit(EventPaused, nil)
		return
	}

	c.logger.Printf("session: resumed %s at %s", c.sess.ID, c.sess.Phase())
	c.fb.Add(feedback.Info, msgResumed)
	c.startCountdown()
	c.emit(EventResumed, nil)
}

// Stop ends the active session and returns its summary. Stopping an
// inactive controller changes nothing and returns the previous summary, or
// a zero summary if no session ever ran.
func (c *Controller) Stop() Summary {
	if !c.sess.Active {
		return c.last
	}

	c.sess.Active = false
	c.sess.Paused = false
	c.sess.Completed = true
	c.stopPhaseTimer()
	if c.elapsedTimer != nil {
		c.elapsedTimer.Stop()
		c.elapsedTimer = nil
	}

	var secs int
	if c.sess.StartedAt != nil {
		secs = int(c.clock.Now().Sub(*c.sess.StartedAt) / time.Second)
	}
	c.last = Summary{
		SessionID: c.sess.ID,
		Duration:  time.Duration(secs) * time.Second,
		Cycles:    c.sess.CyclesCompleted,
		EyeAlerts: c.sess.EyeAlertCount,
	}
	c.logger.Printf("session: stopped %s after %s, %d cycles, %d eye alerts",
		c.sess.ID, FormatTime(secs), c.last.Cycles, c.last.EyeAlerts)

	c.fb.Add(feedback.Success, c.last.Message())
	summary := c.last
	c.emit(EventStopped, &summary)
	return c.last
}

// UpdateSettings replaces the settings. A new pace applies from the next
// countdown; volume and limit apply immediately.
func (c *Controller) UpdateSettings(s Settings) error {
	if err := s.Validate(); err != nil {
		return err
	}
	c.settings = s
	c.sess.LimitMinutes = s.PracticeLimitMinutes
	if !c.sess.Active {
		c.sess.PaceSeconds = s.PaceSeconds
		c.sess.SecondsRemaining = s.PaceSeconds
	}
	c.logger.Printf("session: settings pace=%ds volume=%.2f limit=%dm", s.PaceSeconds, s.Volume, s.PracticeLimitMinutes)
	c.emit(EventSettings, nil)
	return nil
}

// RecordEyeAlert counts one eye alert from the detector. Alerts outside a
// session are dropped.
func (c *Controller) RecordEyeAlert() {
	if !c.sess.Active {
		return
	}
	c.sess.EyeAlertCount++
	c.emit(EventEyeAlert, nil)
}

// SetPosture updates the posture indicator.
func (c *Controller) SetPosture(good bool) {
	if c.sess.PostureGood == good {
		return
	}
	c.sess.PostureGood = good
	c.emit(EventMonitor, nil)
}

// SetEyesOpen updates the eye indicator.
func (c *Controller) SetEyesOpen(open bool) {
	if c.sess.EyesOpen == open {
		return
	}
	c.sess.EyesOpen = open
	c.emit(EventMonitor, nil)
}

// Snapshot returns a copy of the session with its display projections.
func (c *Controller) Snapshot() Snapshot {
	phase := c.sess.Phase()
	s := Snapshot{
		Session:        c.sess.Clone(),
		Phase:          phase,
		ElapsedSeconds: c.elapsed,
		Elapsed:        FormatTime(c.elapsed),
	}
	switch {
	case c.sess.Active:
		s.PhaseLabel = phase.Label()
		s.Instruction = phase.Instruction()
		s.ActiveSide = phase.Side()
	case c.sess.Completed:
		s.PhaseLabel = CompleteLabel
		s.Instruction = CompleteInstruction
	default:
		s.PhaseLabel = ReadyLabel
		s.Instruction = ReadyInstruction
	}
	return s
}

// Close stops any running timers and releases the audio handle.
func (c *Controller) Close() error {
	c.stopPhaseTimer()
	if c.elapsedTimer != nil {
		c.elapsedTimer.Stop()
		c.elapsedTimer = nil
	}
	if closer, ok := c.cue.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}

// startCountdown begins a fresh countdown for the current phase, cancelling
// any countdown already scheduled so only one ever runs.
func (c *Controller) startCountdown() {
	if !c.sess.Active || c.sess.Paused {
		return
	}
	c.stopPhaseTimer()
	c.sess.PaceSeconds = c.settings.PaceSeconds
	c.sess.SecondsRemaining = c.settings.PaceSeconds
	c.phaseTimer = c.sched.Every(tickInterval, c.phaseTick)
}

func (c *Controller) stopPhaseTimer() {
	if c.phaseTimer != nil {
		c.phaseTimer.Stop()
		c.phaseTimer = nil
	}
}

func (c *Controller) phaseTick() {
	if !c.sess.Active || c.sess.Paused {
		return
	}
	c.sess.SecondsRemaining--
	if c.sess.SecondsRemaining > 0 {
		c.emit(EventTick, nil)
		return
	}
	c.sess.SecondsRemaining = 0
	c.stopPhaseTimer()
	c.advancePhase()
}

func (c *Controller) advancePhase() {
	c.sess.SequenceIndex = (c.sess.SequenceIndex + 1) % len(Sequence)
	if c.sess.SequenceIndex == 0 {
		c.sess.CyclesCompleted++
	}
	c.playCue()
	c.startCountdown()
	c.emit(EventPhase, nil)
}

func (c *Controller) elapsedTick() {
	if !c.sess.Active || c.sess.Paused || c.sess.StartedAt == nil {
		return
	}
	c.elapsed = int(c.clock.Now().Sub(*c.sess.StartedAt) / time.Second)
	c.emit(EventTick, nil)

	limit := c.settings.PracticeLimitMinutes
	if limit > 0 && c.elapsed >= limit*60 {
		c.fb.Add(feedback.Info, fmt.Sprintf("Practice limit of %d min reached.", limit))
		c.Stop()
	}
}

// ensureCue opens the audio handle once. Failure is logged and leaves a
// silent cue in place.
func (c *Controller) ensureCue() {
	if c.cueTried {
		return
	}
	c.cueTried = true
	c.cue = silentCue{}
	if c.openCue == nil {
		return
	}
	cue, err := c.openCue()
	if err != nil {
		c.logger.Printf("session: audio setup failed: %v", err)
		c.fb.Add(feedback.Warning, msgAudioMissing)
		return
	}
	c.cue = cue
}

func (c *Controller) playCue() {
	if c.cue == nil || c.settings.Volume <= 0 {
		return
	}
	if err := c.cue.Play(c.settings.Volume); err != nil {
		c.logger.Printf("session: audio playback error: %v", err)
	}
}

func (c *Controller) emit(t EventType, summary *Summary) {
	if len(c.observers) == 0 {
		return
	}
	e := Event{Type: t, Snapshot: c.Snapshot(), Summary: summary}
	for _, o := range c.observers {
		o.Observe(e)
	}
}
