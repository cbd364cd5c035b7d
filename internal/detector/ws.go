package detector

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeTimeout = 10 * time.Second
	pongTimeout  = 60 * time.Second
	pingInterval = 30 * time.Second
)

// WSSource reads detector events from a WebSocket endpoint.
type WSSource struct {
	url    string
	token  string
	dialer *websocket.Dialer

	mu         sync.Mutex
	writeMu    sync.Mutex // serialises pings with any other write
	conn       *websocket.Conn
	pingCancel context.CancelFunc
}

// NewWSSource creates a source for url. A non-empty token is sent as a
// bearer Authorization header.
func NewWSSource(url, token string) *WSSource {
	return &WSSource{url: url, token: token, dialer: websocket.DefaultDialer}
}

// URL returns the endpoint this source dials.
func (s *WSSource) URL() string { return s.url }

// Connect dials the detector. A second Connect replaces the first connection.
func (s *WSSource) Connect(ctx context.Context) error {
	header := http.Header{}
	if s.token != "" {
		header.Set("Authorization", "Bearer "+s.token)
	}
	conn, _, err := s.dialer.DialContext(ctx, s.url, header)
	if err != nil {
		return fmt.Errorf("dial detector %s: %w", s.url, err)
	}

	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongTimeout))
	})
	conn.SetReadDeadline(time.Now().Add(pongTimeout))

	s.mu.Lock()
	if s.pingCancel != nil {
		s.pingCancel()
	}
	if s.conn != nil {
		s.conn.Close()
	}
	pingCtx, cancel := context.WithCancel(context.Background())
	s.conn = conn
	s.pingCancel = cancel
	s.mu.Unlock()

	go s.pingLoop(pingCtx, conn)
	log.Printf("detector: connected to %s", s.url)
	return nil
}

// Next blocks until the next well-formed event. Malformed and unknown
// messages are logged and skipped. Cancelling ctx closes the connection.
func (s *WSSource) Next(ctx context.Context) (Event, error) {
	s.mu.Lock()
	conn := s.conn
	s.mu.Unlock()
	if conn == nil {
		return Event{}, errors.New("detector: not connected")
	}

	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return Event{}, ctx.Err()
			}
			return Event{}, fmt.Errorf("detector read: %w", err)
		}
		ev, err := Decode(data)
		if err != nil {
			log.Printf("detector: skipping message: %v", err)
			continue
		}
		return ev, nil
	}
}

// Close shuts the connection down. It is safe to call more than once.
func (s *WSSource) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pingCancel != nil {
		s.pingCancel()
		s.pingCancel = nil
	}
	if s.conn == nil {
		return nil
	}
	s.writeMu.Lock()
	s.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second))
	s.writeMu.Unlock()
	err := s.conn.Close()
	s.conn = nil
	return err
}

func (s *WSSource) pingLoop(ctx context.Context, conn *websocket.Conn) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.writeMu.Lock()
			err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeTimeout))
			s.writeMu.Unlock()
			if err != nil {
				return
			}
		}
	}
}
