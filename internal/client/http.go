// Package client talks to a running pranayama instance over its local HTTP
// and WebSocket surface.
package client

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/pranayama-assistant/pranayama/internal/session"
	"github.com/pranayama-assistant/pranayama/internal/ws"
)

// APIError is a non-2xx response.
type APIError struct {
	Method  string
	Path    string
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s %s: %d %s", e.Method, e.Path, e.Status, e.Message)
}

// HTTPClient makes REST calls to a running instance.
type HTTPClient struct {
	baseURL string
	token   string
	client  *http.Client
}

// NewHTTPClient creates a client targeting the given base URL (e.g.
// "http://127.0.0.1:8765"). A bare host:port gets an http:// prefix.
func NewHTTPClient(baseURL, token string) *HTTPClient {
	if !strings.Contains(baseURL, "://") {
		baseURL = "http://" + baseURL
	}
	return &HTTPClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		client:  &http.Client{Timeout: 10 * time.Second},
	}
}

// BaseURL returns the normalized base URL.
func (c *HTTPClient) BaseURL() string { return c.baseURL }

// Session fetches GET /api/session.
func (c *HTTPClient) Session() (*session.Snapshot, error) {
	var s session.Snapshot
	if err := c.do(http.MethodGet, "/api/session", nil, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// Command sends POST /api/session/{action} and returns the resulting
// snapshot.
func (c *HTTPClient) Command(action ws.Action) (*session.Snapshot, error) {
	var s session.Snapshot
	if err := c.do(http.MethodPost, "/api/session/"+string(action), nil, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// Settings fetches GET /api/settings.
func (c *HTTPClient) Settings() (*session.Settings, error) {
	var s session.Settings
	if err := c.do(http.MethodGet, "/api/settings", nil, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// UpdateSettings sends PUT /api/settings.
func (c *HTTPClient) UpdateSettings(s session.Settings) (*session.Settings, error) {
	var out session.Settings
	if err := c.do(http.MethodPut, "/api/settings", s, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Capabilities fetches GET /api/capabilities.
func (c *HTTPClient) Capabilities() (*ws.CapabilitiesPayload, error) {
	var out ws.CapabilitiesPayload
	if err := c.do(http.MethodGet, "/api/capabilities", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *HTTPClient) do(method, path string, body interface{}, out interface{}) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequest(method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	c.setAuth(req)
	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &APIError{Method: method, Path: path, Status: resp.StatusCode, Message: errorMessage(respBody)}
	}
	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}

func errorMessage(body []byte) string {
	var p ws.ErrorPayload
	if json.Unmarshal(body, &p) == nil && p.Message != "" {
		return p.Message
	}
	return strings.TrimSpace(string(body))
}

func (c *HTTPClient) setAuth(req *http.Request) {
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
}
