package session

import (
	"errors"
	"fmt"
	"time"
)

// Setting defaults.
const (
	DefaultPace   = 4
	DefaultVolume = 0.7
)

// ErrInvalidSettings wraps every Settings validation failure.
var ErrInvalidSettings = errors.New("invalid settings")

// Settings are the user-adjustable practice parameters.
type Settings struct {
	PaceSeconds          int     `json:"paceSeconds"`
	Volume               float64 `json:"volume"`
	PracticeLimitMinutes int     `json:"practiceLimitMinutes"` // 0 = unlimited
}

// DefaultSettings returns pace 4s, volume 0.7, no limit.
func DefaultSettings() Settings {
	return Settings{PaceSeconds: DefaultPace, Volume: DefaultVolume}
}

// Validate checks the ranges documented on each field.
func (s Settings) Validate() error {
	switch {
	case s.PaceSeconds <= 0:
		return fmt.Errorf("%w: pace must be positive, got %d", ErrInvalidSettings, s.PaceSeconds)
	case s.Volume < 0 || s.Volume > 1:
		return fmt.Errorf("%w: volume must be within [0,1], got %v", ErrInvalidSettings, s.Volume)
	case s.PracticeLimitMinutes < 0:
		return fmt.Errorf("%w: practice limit must not be negative, got %d", ErrInvalidSettings, s.PracticeLimitMinutes)
	}
	return nil
}

// Limit returns the practice limit as a duration, zero when unlimited.
func (s Settings) Limit() time.Duration {
	return time.Duration(s.PracticeLimitMinutes) * time.Minute
}

// Session is the single mutable record the controller owns.
type Session struct {
	ID               string     `json:"id,omitempty"`
	Active           bool       `json:"active"`
	Paused           bool       `json:"paused"`
	Completed        bool       `json:"completed"`
	SequenceIndex    int        `json:"sequenceIndex"`
	SecondsRemaining int        `json:"secondsRemaining"`
	PaceSeconds      int        `json:"paceSeconds"`
	CyclesCompleted  int        `json:"cyclesCompleted"`
	StartedAt        *time.Time `json:"startedAt,omitempty"`
	EyeAlertCount    int        `json:"eyeAlertCount"`
	LimitMinutes     int        `json:"practiceLimitMinutes"`

	// Display-only monitoring state fed by the detector.
	PostureGood bool `json:"postureGood"`
	EyesOpen    bool `json:"eyesOpen"`
}

// Phase returns the current phase.
func (s *Session) Phase() Phase {
	return PhaseAt(s.SequenceIndex)
}

// Clone returns a deep copy, duplicating the StartedAt pointer.
func (s *Session) Clone() Session {
	c := *s
	if s.StartedAt != nil {
		t := *s.StartedAt
		c.StartedAt = &t
	}
	return c
}

// Snapshot is a copy of the session plus every value a display needs.
type Snapshot struct {
	Session

	Phase          Phase  `json:"phase"`
	PhaseLabel     string `json:"phaseLabel"`
	Instruction    string `json:"instruction"`
	ActiveSide     Side   `json:"activeSide"`
	ElapsedSeconds int    `json:"elapsedSeconds"`
	Elapsed        string `json:"elapsed"`
}

// Text shown once a session has ended.
const (
	CompleteLabel       = "Session Complete"
	CompleteInstruction = "Well done! Take a moment to rest."
	ReadyLabel          = "Ready"
	ReadyInstruction    = "Press Start to begin"
)

// Summary is reported when a session stops.
type Summary struct {
	SessionID string        `json:"sessionId,omitempty"`
	Duration  time.Duration `json:"duration"`
	Cycles    int           `json:"cycles"`
	EyeAlerts int           `json:"eyeAlerts"`
}

// Message renders the summary as the stop feedback line.
func (s Summary) Message() string {
	return fmt.Sprintf("Session completed. Duration: %s, Cycles: %d, Eye alerts: %d",
		FormatTime(int(s.Duration/time.Second)), s.Cycles, s.EyeAlerts)
}
