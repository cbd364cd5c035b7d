// Package capability negotiates the optional subsystems (pose model, camera,
// detector feed) at startup. Each probe races a deadline exactly once and
// resolves to a tri-state Result; nothing is retried later in the run.
package capability

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Probe names used by the app.
const (
	NameModel    = "pose-model"
	NameCamera   = "camera"
	NameDetector = "detector"
)

var (
	ErrUnavailable = errors.New("capability unavailable")
	ErrTimeout     = errors.New("capability timed out")
)

// Result is the outcome of one negotiation.
type Result int

const (
	Unavailable Result = iota
	Available
	TimedOut
)

func (r Result) String() string {
	switch r {
	case Available:
		return "available"
	case TimedOut:
		return "timed_out"
	default:
		return "unavailable"
	}
}

func (r Result) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

// Status is the health classification shown in the status bar and sent to
// WebSocket clients.
type Status string

const (
	StatusHealthy  Status = "healthy"
	StatusDegraded Status = "degraded"
	StatusFailed   Status = "failed"
)

// Probe initializes one optional subsystem. Init should honor ctx, but
// Negotiate does not depend on it.
type Probe interface {
	Name() string
	Init(ctx context.Context) error
}

type funcProbe struct {
	name string
	fn   func(context.Context) error
}

func (p funcProbe) Name() string                   { return p.name }
func (p funcProbe) Init(ctx context.Context) error { return p.fn(ctx) }

// ProbeFunc builds a Probe from a function.
func ProbeFunc(name string, fn func(context.Context) error) Probe {
	return funcProbe{name: name, fn: fn}
}

// Outcome records how a probe resolved.
type Outcome struct {
	Name    string        `json:"name"`
	Result  Result        `json:"result"`
	Err     error         `json:"-"`
	Elapsed time.Duration `json:"elapsed"`
}

// Status maps the result onto the health scale: a timeout is degraded
// (the subsystem may exist but is slow), anything else unavailable failed.
func (o Outcome) Status() Status {
	switch o.Result {
	case Available:
		return StatusHealthy
	case TimedOut:
		return StatusDegraded
	default:
		return StatusFailed
	}
}

func (o Outcome) String() string {
	if o.Err != nil {
		return fmt.Sprintf("%s: %s (%v)", o.Name, o.Result, o.Err)
	}
	return fmt.Sprintf("%s: %s", o.Name, o.Result)
}

// Negotiate runs p.Init against a deadline. An Init error is Unavailable and
// losing the race is TimedOut, as is a probe that gives up with the deadline's
// own error. A probe that ignores ctx keeps running in the background but its
// late answer is discarded.
func Negotiate(ctx context.Context, p Probe, timeout time.Duration) Outcome {
	start := time.Now()
	out := Outcome{Name: p.Name()}

	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	done := make(chan error, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- fmt.Errorf("probe panicked: %v", r)
			}
		}()
		done <- p.Init(ctx)
	}()

	select {
	case err := <-done:
		switch {
		case err == nil:
			out.Result = Available
		case errors.Is(err, context.DeadlineExceeded):
			out.Result = TimedOut
			out.Err = fmt.Errorf("%w: %s after %s: %w", ErrTimeout, p.Name(), timeout, err)
		default:
			out.Result = Unavailable
			out.Err = err
		}
	case <-ctx.Done():
		out.Result = TimedOut
		out.Err = fmt.Errorf("%w: %s after %s", ErrTimeout, p.Name(), timeout)
	}
	out.Elapsed = time.Since(start)
	return out
}

// Step pairs a probe with its deadline.
type Step struct {
	Probe   Probe
	Timeout time.Duration
}

// Report holds the outcome of every negotiated probe in order.
type Report struct {
	Outcomes []Outcome `json:"outcomes"`
}

// NegotiateAll runs the steps in order. Later steps still run after an
// earlier one fails.
func NegotiateAll(ctx context.Context, steps ...Step) Report {
	var r Report
	for _, s := range steps {
		if s.Probe == nil {
			continue
		}
		r.Outcomes = append(r.Outcomes, Negotiate(ctx, s.Probe, s.Timeout))
	}
	return r
}

// Get returns the outcome for name.
func (r Report) Get(name string) (Outcome, bool) {
	for _, o := range r.Outcomes {
		if o.Name == name {
			return o, true
		}
	}
	return Outcome{}, false
}

// Available reports whether name negotiated successfully.
func (r Report) Available(name string) bool {
	o, ok := r.Get(name)
	return ok && o.Result == Available
}

// BasicMode is true unless both the pose model and the camera came up.
func (r Report) BasicMode() bool {
	return !r.Available(NameModel) || !r.Available(NameCamera)
}

// Status is the worst status across all outcomes. An empty report is
// healthy.
func (r Report) Status() Status {
	worst := StatusHealthy
	for _, o := range r.Outcomes {
		switch o.Status() {
		case StatusFailed:
			return StatusFailed
		case StatusDegraded:
			worst = StatusDegraded
		}
	}
	return worst
}

// Summary renders the outcomes on one line for logging.
func (r Report) Summary() string {
	if len(r.Outcomes) == 0 {
		return "no optional subsystems"
	}
	parts := make([]string, 0, len(r.Outcomes))
	for _, o := range r.Outcomes {
		parts = append(parts, o.Name+"="+o.Result.String())
	}
	return strings.Join(parts, " ")
}
