package ws

import (
	"time"

	"github.com/pranayama-assistant/pranayama/internal/capability"
	"github.com/pranayama-assistant/pranayama/internal/feedback"
	"github.com/pranayama-assistant/pranayama/internal/session"
)

type MessageType string

const (
	MsgSnapshot     MessageType = "snapshot"
	MsgFeedback     MessageType = "feedback"
	MsgSummary      MessageType = "summary"
	MsgCapabilities MessageType = "capabilities"
	MsgError        MessageType = "error"
)

type WSMessage struct {
	Type    MessageType `json:"type"`
	Payload interface{} `json:"payload"`
}

// SnapshotPayload carries the session state after the named event. Event is
// empty for the snapshot sent on connect.
type SnapshotPayload struct {
	Event   string           `json:"event,omitempty"`
	Session session.Snapshot `json:"session"`
}

// FeedbackPayload is one feedback log entry.
type FeedbackPayload = feedback.Entry

type SummaryPayload struct {
	SessionID       string `json:"sessionId,omitempty"`
	DurationSeconds int    `json:"durationSeconds"`
	Cycles          int    `json:"cycles"`
	EyeAlerts       int    `json:"eyeAlerts"`
	Message         string `json:"message"`
}

func newSummaryPayload(s session.Summary) SummaryPayload {
	return SummaryPayload{
		SessionID:       s.SessionID,
		DurationSeconds: int(s.Duration / time.Second),
		Cycles:          s.Cycles,
		EyeAlerts:       s.EyeAlerts,
		Message:         s.Message(),
	}
}

type OutcomePayload struct {
	Name   string            `json:"name"`
	Result string            `json:"result"`
	Status capability.Status `json:"status"`
	Error  string            `json:"error,omitempty"`
}

type CapabilitiesPayload struct {
	Status    capability.Status `json:"status"`
	BasicMode bool              `json:"basicMode"`
	Outcomes  []OutcomePayload  `json:"outcomes"`
}

func newCapabilitiesPayload(r capability.Report) CapabilitiesPayload {
	p := CapabilitiesPayload{
		Status:    r.Status(),
		BasicMode: r.BasicMode(),
		Outcomes:  make([]OutcomePayload, 0, len(r.Outcomes)),
	}
	for _, o := range r.Outcomes {
		op := OutcomePayload{Name: o.Name, Result: o.Result.String(), Status: o.Status()}
		if o.Err != nil {
			op.Error = o.Err.Error()
		}
		p.Outcomes = append(p.Outcomes, op)
	}
	return p
}

type ErrorPayload struct {
	Message string `json:"message"`
}
