// Package feedback holds the short-lived user-facing message list shown
// under the breathing panel.
package feedback

import (
	"log"
	"sync"
	"time"

	"github.com/pranayama-assistant/pranayama/internal/clock"
)

const (
	// Capacity is the number of messages kept visible.
	Capacity = 5
	// TTL is how long a message stays visible.
	TTL = 8 * time.Second
)

// Kind classifies a message for styling.
type Kind string

const (
	Info    Kind = "info"
	Success Kind = "success"
	Warning Kind = "warning"
	Error   Kind = "error"
)

// Entry is a single message.
type Entry struct {
	Time time.Time `json:"time"`
	Kind Kind      `json:"kind"`
	Text string    `json:"text"`
}

// Log is a newest-first list of messages, capped at Capacity entries, each
// expiring TTL after it was added. It is safe for concurrent use.
type Log struct {
	mu       sync.Mutex
	clock    clock.Clock
	logger   *log.Logger
	capacity int
	ttl      time.Duration
	entries  []Entry // newest first
	onAdd    []func(Entry)
}

// Option configures a Log.
type Option func(*Log)

// WithLogger mirrors every message to logger.
func WithLogger(logger *log.Logger) Option {
	return func(l *Log) { l.logger = logger }
}

// New creates an empty log on the given clock.
func New(c clock.Clock, opts ...Option) *Log {
	l := &Log{
		clock:    c,
		capacity: Capacity,
		ttl:      TTL,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// OnAdd registers fn to be called with every new entry. Callbacks run
// outside the log's lock.
func (l *Log) OnAdd(fn func(Entry)) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.onAdd = append(l.onAdd, fn)
}

// Add prepends a message and drops anything beyond capacity.
func (l *Log) Add(kind Kind, text string) Entry {
	e := Entry{Time: l.clock.Now(), Kind: kind, Text: text}

	l.mu.Lock()
	l.entries = append([]Entry{e}, l.entries...)
	if len(l.entries) > l.capacity {
		l.entries = l.entries[:l.capacity]
	}
	hooks := append([]func(Entry){}, l.onAdd...)
	l.mu.Unlock()

	if l.logger != nil {
		l.logger.Printf("feedback [%s] %s", kind, text)
	}
	for _, fn := range hooks {
		fn(e)
	}
	return e
}

// Info is shorthand for Add(Info, text).
func (l *Log) Info(text string) Entry { return l.Add(Info, text) }

// Entries returns the unexpired messages, newest first.
func (l *Log) Entries() []Entry {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.pruneLocked()
	out := make([]Entry, len(l.entries))
	copy(out, l.entries)
	return out
}

// Len returns the number of unexpired messages.
func (l *Log) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.pruneLocked()
	return len(l.entries)
}

// pruneLocked drops expired entries. Caller must hold l.mu.
func (l *Log) pruneLocked() {
	now := l.clock.Now()
	kept := l.entries[:0]
	for _, e := range l.entries {
		if now.Sub(e.Time) < l.ttl {
			kept = append(kept, e)
		}
	}
	l.entries = kept
}
