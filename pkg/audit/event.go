// Package audit keeps a journal of configuration pushes.
package audit

import (
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/google/uuid"
)

// Event records one push attempt to one device
type Event struct {
	ID        string        `json:"id"`
	Timestamp time.Time     `json:"timestamp"`
	RunID     string        `json:"run_id"`
	Device    string        `json:"device"`
	Phase     string        `json:"phase"`
	Actions   []string      `json:"actions"`
	Digest    string        `json:"sha256,omitempty"`
	Size      int           `json:"size"`
	Success   bool          `json:"success"`
	Error     string        `json:"error,omitempty"`
	Duration  time.Duration `json:"duration"`
}

// Filter defines criteria for querying push events
type Filter struct {
	Device      string
	Phase       string
	RunID       string
	StartTime   time.Time
	EndTime     time.Time
	SuccessOnly bool
	FailureOnly bool
	Limit       int
	Offset      int
}

// NewEvent creates a new push event
func NewEvent(runID, device, phase string) *Event {
	return &Event{
		ID:        uuid.NewString(),
		Timestamp: time.Now(),
		RunID:     runID,
		Device:    device,
		Phase:     phase,
	}
}

// WithActions sets the template actions that produced the candidate
func (e *Event) WithActions(actions ...string) *Event {
	e.Actions = actions
	return e
}

// WithCandidate records the size and digest of the pushed config. The
// config text itself is not journaled.
func (e *Event) WithCandidate(config string) *Event {
	sum := sha256.Sum256([]byte(config))
	e.Digest = hex.EncodeToString(sum[:])
	e.Size = len(config)
	return e
}

// WithSuccess marks the event as successful
func (e *Event) WithSuccess() *Event {
	e.Success = true
	return e
}

// WithError marks the event as failed
func (e *Event) WithError(err error) *Event {
	e.Success = false
	if err != nil {
		e.Error = err.Error()
	}
	return e
}

// WithDuration sets the push duration
func (e *Event) WithDuration(d time.Duration) *Event {
	e.Duration = d
	return e
}
