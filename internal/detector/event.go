// Package detector consumes the optional pose/eye detector feed. The
// detection itself runs in another process; this package only speaks its
// JSON event stream and turns it into Bubble Tea messages.
package detector

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

// EventType names a detector event on the wire.
type EventType string

const (
	EventEyeAlert EventType = "eye_alert"
	EventPosture  EventType = "posture"
	EventEyes     EventType = "eyes"
)

// ErrUnknownEvent is returned for event types this package does not handle.
var ErrUnknownEvent = errors.New("unknown detector event")

// Event is one decoded detector observation.
type Event struct {
	Type EventType
	// Good is set for posture events.
	Good bool
	// Open is set for eyes events.
	Open bool
}

// Source is a stream of detector events.
type Source interface {
	Connect(ctx context.Context) error
	Next(ctx context.Context) (Event, error)
	Close() error
}

type wireMessage struct {
	Type    EventType       `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

type posturePayload struct {
	Good *bool `json:"good"`
}

type eyesPayload struct {
	Open *bool `json:"open"`
}

// Decode parses one wire message.
func Decode(data []byte) (Event, error) {
	var msg wireMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return Event{}, fmt.Errorf("decode detector message: %w", err)
	}
	ev := Event{Type: msg.Type}
	switch msg.Type {
	case EventEyeAlert:
	case EventPosture:
		var p posturePayload
		if err := json.Unmarshal(msg.Payload, &p); err != nil || p.Good == nil {
			return Event{}, fmt.Errorf("decode posture payload: missing \"good\"")
		}
		ev.Good = *p.Good
	case EventEyes:
		var p eyesPayload
		if err := json.Unmarshal(msg.Payload, &p); err != nil || p.Open == nil {
			return Event{}, fmt.Errorf("decode eyes payload: missing \"open\"")
		}
		ev.Open = *p.Open
	default:
		return Event{}, fmt.Errorf("%w: %q", ErrUnknownEvent, msg.Type)
	}
	return ev, nil
}

// Encode renders ev in the wire format.
func Encode(ev Event) ([]byte, error) {
	msg := wireMessage{Type: ev.Type}
	var payload any
	switch ev.Type {
	case EventEyeAlert:
	case EventPosture:
		payload = map[string]bool{"good": ev.Good}
	case EventEyes:
		payload = map[string]bool{"open": ev.Open}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownEvent, ev.Type)
	}
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return nil, err
		}
		msg.Payload = raw
	}
	return json.Marshal(msg)
}
