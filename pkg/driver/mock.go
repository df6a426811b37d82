package driver

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/newtron-network/newtboot/pkg/util"
)

// Mock operation names recorded by MockRecorder
const (
	OpOpen   = "open"
	OpLoad   = "load_merge_candidate"
	OpCommit = "commit_config"
	OpPing   = "ping"
	OpClose  = "close"
)

// MockEvent is one recorded session call
type MockEvent struct {
	Device string
	Op     string
	Arg    string
}

// MockRecorder collects the calls of every mock session it creates, in
// global order.
type MockRecorder struct {
	mu       sync.Mutex
	events   []MockEvent
	sessions map[string]*MockSession
}

// NewMockRecorder creates an empty recorder
func NewMockRecorder() *MockRecorder {
	return &MockRecorder{sessions: make(map[string]*MockSession)}
}

// Factory returns a driver factory producing recorded mock sessions.
// configure, if non-nil, runs on each new session before it is returned.
func (r *MockRecorder) Factory(configure func(*MockSession)) Factory {
	return func(t Target, _ Credentials) Session {
		s := NewMockSession(t)
		s.recorder = r
		if configure != nil {
			configure(s)
		}
		r.mu.Lock()
		r.sessions[t.Hostname] = s
		r.mu.Unlock()
		return s
	}
}

// Events returns a copy of all recorded events
func (r *MockRecorder) Events() []MockEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]MockEvent(nil), r.events...)
}

// Ops returns the recorded events for one operation
func (r *MockRecorder) Ops(op string) []MockEvent {
	var out []MockEvent
	for _, e := range r.Events() {
		if e.Op == op {
			out = append(out, e)
		}
	}
	return out
}

// Session returns the mock session created for hostname
func (r *MockRecorder) Session(hostname string) *MockSession {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.sessions[hostname]
}

func (r *MockRecorder) record(e MockEvent) {
	if r == nil {
		return
	}
	r.mu.Lock()
	r.events = append(r.events, e)
	r.mu.Unlock()
}

// MockSession is an in-memory Session. It accepts any config, answers pings
// with PingReply and can be told to fail each operation.
type MockSession struct {
	target   Target
	recorder *MockRecorder

	OpenErr   error
	OpenDelay time.Duration
	OpenPanic bool
	CommitErr error
	PingErr   error
	PingReply PingResult
	CloseErr  error

	mu        sync.Mutex
	open      bool
	candidate []string
	committed []string
}

// NewMockSession creates an unopened mock session that answers every ping
// with 5 probes and no loss.
func NewMockSession(target Target) *MockSession {
	return &MockSession{
		target:    target,
		PingReply: PingResult{ProbesSent: 5},
	}
}

// Hostname returns the target device name
func (m *MockSession) Hostname() string {
	return m.target.Hostname
}

// Open marks the session open after OpenDelay, unless OpenErr is set
func (m *MockSession) Open(ctx context.Context) error {
	m.recorder.record(MockEvent{Device: m.target.Hostname, Op: OpOpen})
	if m.OpenPanic {
		panic("mock driver panic on open: " + m.target.Hostname)
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %w", util.ErrTimeout, err)
	}
	if m.OpenDelay > 0 {
		select {
		case <-time.After(m.OpenDelay):
		case <-ctx.Done():
			return fmt.Errorf("%w: %w", util.ErrTimeout, ctx.Err())
		}
	}
	if m.OpenErr != nil {
		return m.OpenErr
	}
	m.mu.Lock()
	m.open = true
	m.mu.Unlock()
	return nil
}

// LoadMergeCandidate stages config
func (m *MockSession) LoadMergeCandidate(ctx context.Context, config string) error {
	m.recorder.record(MockEvent{Device: m.target.Hostname, Op: OpLoad, Arg: config})
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.open {
		return fmt.Errorf("%s: %w", m.target.Hostname, util.ErrNotConnected)
	}
	m.candidate = append(m.candidate, config)
	return nil
}

// CommitConfig moves the candidate into the committed history
func (m *MockSession) CommitConfig(ctx context.Context) error {
	m.recorder.record(MockEvent{Device: m.target.Hostname, Op: OpCommit})
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.open {
		return fmt.Errorf("%s: %w", m.target.Hostname, util.ErrNotConnected)
	}
	candidate := strings.Join(m.candidate, "")
	m.candidate = nil
	if m.CommitErr != nil {
		return fmt.Errorf("%w: %s: %w", util.ErrCommit, m.target.Hostname, m.CommitErr)
	}
	m.committed = append(m.committed, candidate)
	return nil
}

// Ping returns PingReply or PingErr
func (m *MockSession) Ping(ctx context.Context, destination string) (PingResult, error) {
	m.recorder.record(MockEvent{Device: m.target.Hostname, Op: OpPing, Arg: destination})
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.open {
		return PingResult{}, fmt.Errorf("%s: %w", m.target.Hostname, util.ErrNotConnected)
	}
	if m.PingErr != nil {
		return PingResult{}, m.PingErr
	}
	return m.PingReply, nil
}

// Close marks the session closed
func (m *MockSession) Close() error {
	m.recorder.record(MockEvent{Device: m.target.Hostname, Op: OpClose})
	m.mu.Lock()
	defer m.mu.Unlock()
	m.open = false
	return m.CloseErr
}

// Committed returns every committed config, oldest first
func (m *MockSession) Committed() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.committed...)
}

// IsOpen reports whether Open succeeded and Close has not been called
func (m *MockSession) IsOpen() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.open
}
