package ws

import (
	"encoding/json"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/pranayama-assistant/pranayama/internal/capability"
	"github.com/pranayama-assistant/pranayama/internal/feedback"
	"github.com/pranayama-assistant/pranayama/internal/session"
)

// ErrTooManyConnections is returned by AddClient when the connection cap is
// reached.
var ErrTooManyConnections = errors.New("too many websocket connections")

const (
	clientBuffer = 64
	writeTimeout = 10 * time.Second
)

type client struct {
	conn *websocket.Conn
	b    *Broadcaster
	send chan []byte
	once sync.Once
}

func (c *client) writePump() {
	defer c.conn.Close()
	for msg := range c.send {
		c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
		if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			c.b.RemoveClient(c)
			return
		}
	}
}

func (c *client) close() {
	c.once.Do(func() { close(c.send) })
}

// Broadcaster fans session events out to WebSocket clients. It is the
// controller's Observer, so Observe must never block: sends are
// non-blocking and a client whose buffer is full is dropped.
type Broadcaster struct {
	mu       sync.RWMutex
	clients  map[*client]bool
	maxConns int

	throttle time.Duration

	stateMu      sync.Mutex
	latest       session.Snapshot
	hasLatest    bool
	caps         *CapabilitiesPayload
	pendingEvent string
	flushTimer   *time.Timer
	stopped      bool
}

// NewBroadcaster creates a broadcaster that coalesces snapshots arriving
// within throttle of each other. maxConns <= 0 means unlimited.
func NewBroadcaster(throttle time.Duration, maxConns int) *Broadcaster {
	return &Broadcaster{
		clients:  make(map[*client]bool),
		maxConns: maxConns,
		throttle: throttle,
	}
}

// Observe implements session.Observer.
func (b *Broadcaster) Observe(e session.Event) {
	b.stateMu.Lock()
	if b.stopped {
		b.stateMu.Unlock()
		return
	}
	b.latest = e.Snapshot
	b.hasLatest = true
	b.pendingEvent = e.Type.String()

	immediate := b.throttle <= 0 || e.Type == session.EventStopped || e.Type == session.EventStarted
	if immediate {
		if b.flushTimer != nil {
			b.flushTimer.Stop()
			b.flushTimer = nil
		}
	} else if b.flushTimer == nil {
		b.flushTimer = time.AfterFunc(b.throttle, b.flush)
	}
	b.stateMu.Unlock()

	if immediate {
		b.flush()
	}
	if e.Type == session.EventStopped && e.Summary != nil {
		b.broadcast(WSMessage{Type: MsgSummary, Payload: newSummaryPayload(*e.Summary)})
	}
}

// Feedback broadcasts one feedback entry. It matches feedback.Log.OnAdd.
func (b *Broadcaster) Feedback(e feedback.Entry) {
	b.broadcast(WSMessage{Type: MsgFeedback, Payload: FeedbackPayload(e)})
}

// SetCapabilities records and broadcasts the negotiated capabilities.
func (b *Broadcaster) SetCapabilities(r capability.Report) {
	p := newCapabilitiesPayload(r)
	b.stateMu.Lock()
	b.caps = &p
	b.stateMu.Unlock()
	b.broadcast(WSMessage{Type: MsgCapabilities, Payload: p})
}

// Capabilities returns the last recorded capabilities.
func (b *Broadcaster) Capabilities() (CapabilitiesPayload, bool) {
	b.stateMu.Lock()
	defer b.stateMu.Unlock()
	if b.caps == nil {
		return CapabilitiesPayload{}, false
	}
	return *b.caps, true
}

// Latest returns the most recent snapshot seen.
func (b *Broadcaster) Latest() (session.Snapshot, bool) {
	b.stateMu.Lock()
	defer b.stateMu.Unlock()
	return b.latest, b.hasLatest
}

func (b *Broadcaster) AddClient(conn *websocket.Conn) (*client, error) {
	c := &client{
		conn: conn,
		b:    b,
		send: make(chan []byte, clientBuffer),
	}

	b.mu.Lock()
	if b.maxConns > 0 && len(b.clients) >= b.maxConns {
		b.mu.Unlock()
		return nil, ErrTooManyConnections
	}
	b.clients[c] = true
	b.mu.Unlock()

	go c.writePump()

	if snap, ok := b.Latest(); ok {
		b.sendTo(c, WSMessage{Type: MsgSnapshot, Payload: SnapshotPayload{Session: snap}})
	}
	if caps, ok := b.Capabilities(); ok {
		b.sendTo(c, WSMessage{Type: MsgCapabilities, Payload: caps})
	}
	return c, nil
}

func (b *Broadcaster) RemoveClient(c *client) {
	b.mu.Lock()
	if _, ok := b.clients[c]; ok {
		delete(b.clients, c)
		c.close()
	}
	b.mu.Unlock()
}

func (b *Broadcaster) ClientCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.clients)
}

// Stop cancels any pending flush and disconnects every client.
func (b *Broadcaster) Stop() {
	b.stateMu.Lock()
	b.stopped = true
	if b.flushTimer != nil {
		b.flushTimer.Stop()
		b.flushTimer = nil
	}
	b.stateMu.Unlock()

	b.mu.Lock()
	for c := range b.clients {
		delete(b.clients, c)
		c.close()
	}
	b.mu.Unlock()
}

func (b *Broadcaster) flush() {
	b.stateMu.Lock()
	b.flushTimer = nil
	if b.pendingEvent == "" || b.stopped {
		b.stateMu.Unlock()
		return
	}
	msg := WSMessage{
		Type:    MsgSnapshot,
		Payload: SnapshotPayload{Event: b.pendingEvent, Session: b.latest},
	}
	b.pendingEvent = ""
	b.stateMu.Unlock()

	b.broadcast(msg)
}

func (b *Broadcaster) sendTo(c *client, msg WSMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		log.Printf("ws: marshal %s: %v", msg.Type, err)
		return
	}
	b.mu.RLock()
	_, ok := b.clients[c]
	if ok {
		select {
		case c.send <- data:
		default:
		}
	}
	b.mu.RUnlock()
}

func (b *Broadcaster) broadcast(msg WSMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		log.Printf("ws: marshal %s: %v", msg.Type, err)
		return
	}

	var slow []*client
	b.mu.RLock()
	for c := range b.clients {
		select {
		case c.send <- data:
		default:
			slow = append(slow, c)
		}
	}
	b.mu.RUnlock()

	for _, c := range slow {
		log.Printf("ws: client too slow, disconnecting")
		b.RemoveClient(c)
	}
}
