// Package driver opens management sessions to devices and pushes
// configuration through them.
//
// A Session is the vendor-driver abstraction newtboot programs against:
// open, stage a merge candidate, commit, ping, close. Concrete sessions are
// selected by the device OS through a Registry.
package driver

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/newtron-network/newtboot/pkg/util"
)

// Session is a management session to one device
type Session interface {
	// Open connects to the device.
	Open(ctx context.Context) error
	// LoadMergeCandidate stages config to be merged on the next commit.
	LoadMergeCandidate(ctx context.Context, config string) error
	// CommitConfig applies the staged candidate and clears it.
	CommitConfig(ctx context.Context) error
	// Ping probes destination from the device.
	Ping(ctx context.Context, destination string) (PingResult, error)
	// Close ends the session.
	Close() error
}

// PingResult carries the probe counters of one ping run
type PingResult struct {
	ProbesSent int
	PacketLoss int
}

// Success reports whether at least one probe came back
func (p PingResult) Success() bool {
	return p.ProbesSent > p.PacketLoss
}

// Target identifies the device a session is opened against
type Target struct {
	Hostname string
	Host     string // management address, no prefix length
	OS       string
}

// Credentials are the login details shared by all devices in a run
type Credentials struct {
	Username   string
	Password   string
	Port       int    // SSH port; 0 means 22
	KnownHosts string // known_hosts path; empty disables host key checks
}

// Factory builds an unopened session for a target
type Factory func(target Target, creds Credentials) Session

// UnsupportedDriverError is returned for an OS with no registered driver
type UnsupportedDriverError struct {
	OS        string
	Supported []string
}

func (e *UnsupportedDriverError) Error() string {
	return fmt.Sprintf("no driver for os %q (supported: %v)", e.OS, e.Supported)
}

func (e *UnsupportedDriverError) Unwrap() error {
	return util.ErrUnsupportedDriver
}

// Registry maps an OS identifier to the factory that opens its sessions
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

// NewRegistry returns an empty registry
func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]Factory)}
}

// Register adds or replaces the factory for os
func (r *Registry) Register(os string, f Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[os] = f
}

// Lookup returns the factory for os
func (r *Registry) Lookup(os string) (Factory, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	f, ok := r.factories[os]
	if !ok {
		return nil, &UnsupportedDriverError{OS: os, Supported: r.supported()}
	}
	return f, nil
}

// Supported lists registered OS identifiers, sorted
func (r *Registry) Supported() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.supported()
}

func (r *Registry) supported() []string {
	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// NewSession builds an unopened session for target
func (r *Registry) NewSession(target Target, creds Credentials) (Session, error) {
	f, err := r.Lookup(target.OS)
	if err != nil {
		return nil, err
	}
	return f(target, creds), nil
}

// Connect resolves the driver for target and opens a session. An open
// failure is logged and the unopened session is still returned alongside
// the error; later operations on it fail with util.ErrNotConnected. An
// unsupported OS returns no session.
func Connect(ctx context.Context, reg *Registry, target Target, creds Credentials, log logrus.FieldLogger) (Session, error) {
	dlog := util.WithDevice(log, target.Hostname)

	s, err := reg.NewSession(target, creds)
	if err != nil {
		dlog.Warnf("Could not open %s: %v", target.Hostname, err)
		return nil, err
	}

	if err := s.Open(ctx); err != nil {
		dlog.Warnf("Could not open %s: %v", target.Hostname, err)
		return s, fmt.Errorf("%w: %s: %w", util.ErrConnection, target.Hostname, err)
	}
	dlog.Infof("%s is open!", target.Hostname)
	return s, nil
}

// Default returns a registry with every built-in driver
func Default() *Registry {
	r := NewRegistry()
	for name, d := range dialects {
		r.Register(name, func(t Target, c Credentials) Session {
			return NewCLISession(t, c, d)
		})
	}
	r.Register("sonic", func(t Target, c Credentials) Session {
		return NewSonicSession(t, c)
	})
	r.Register("mock", func(t Target, c Credentials) Session {
		return NewMockSession(t)
	})
	return r
}
