package session

// EventType classifies controller state changes.
type EventType int

const (
	EventStarted  EventType = iota // session began
	EventPhase                     // moved to the next phase
	EventTick                      // countdown or elapsed display changed
	EventPaused                    // countdown suspended
	EventResumed                   // countdown restarted
	EventStopped                   // session ended, manually or by limit
	EventEyeAlert                  // detector reported closed eyes
	EventMonitor                   // posture or eye display state changed
	EventSettings                  // settings replaced
)

var eventNames = map[EventType]string{
	EventStarted:  "started",
	EventPhase:    "phase",
	EventTick:     "tick",
	EventPaused:   "paused",
	EventResumed:  "resumed",
	EventStopped:  "stopped",
	EventEyeAlert: "eye_alert",
	EventMonitor:  "monitor",
	EventSettings: "settings",
}

func (t EventType) String() string {
	if s, ok := eventNames[t]; ok {
		return s
	}
	return "unknown"
}

// Event carries a snapshot taken right after the change.
type Event struct {
	Type     EventType
	Snapshot Snapshot // safe to retain
	Summary  *Summary // set for EventStopped
}

// Observer receives controller events. Observe runs on the controller's
// goroutine and must not call back into the controller.
type Observer interface {
	Observe(Event)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(Event)

func (f ObserverFunc) Observe(e Event) { f(e) }
