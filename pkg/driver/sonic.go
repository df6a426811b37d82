package driver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"

	"github.com/go-redis/redis/v8"

	"github.com/newtron-network/newtboot/pkg/util"
)

const (
	sonicRedisAddr = "127.0.0.1:6379"
	configDB       = 4
)

// execFunc runs a shell command on the device and returns its output
type execFunc func(ctx context.Context, cmd string) (string, error)

// SonicSession writes configuration straight into CONFIG_DB over an SSH
// tunnel to the device's Redis. Candidate text is one or more JSON
// documents of the form {"TABLE": {"key": {"field": "value"}}}.
type SonicSession struct {
	target Target
	creds  Credentials

	mu        sync.Mutex
	tunnel    *Tunnel
	client    *redis.Client
	exec      execFunc
	candidate map[string]map[string]map[string]string
}

// NewSonicSession creates an unopened SONiC session
func NewSonicSession(target Target, creds Credentials) *SonicSession {
	return &SonicSession{target: target, creds: creds}
}

// Open establishes the SSH tunnel and verifies CONFIG_DB answers
func (s *SonicSession) Open(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.client != nil {
		return nil
	}

	tunnel, err := OpenTunnel(ctx, s.target, s.creds, sonicRedisAddr)
	if err != nil {
		return err
	}
	if err := s.attach(ctx, tunnel.LocalAddr(), tunnel.Exec); err != nil {
		tunnel.Close()
		return err
	}
	s.tunnel = tunnel
	return nil
}

// attach connects to a CONFIG_DB reachable at addr
func (s *SonicSession) attach(ctx context.Context, addr string, exec execFunc) error {
	client := redis.NewClient(&redis.Options{
		Addr: addr,
		DB:   configDB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return fmt.Errorf("CONFIG_DB ping: %w", err)
	}
	s.client = client
	s.exec = exec
	return nil
}

// LoadMergeCandidate decodes config and merges it into the staged entries.
// Later values for the same field win.
func (s *SonicSession) LoadMergeCandidate(ctx context.Context, config string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.client == nil {
		return fmt.Errorf("%s: %w", s.target.Hostname, util.ErrNotConnected)
	}
	if strings.TrimSpace(config) == "" {
		return nil
	}

	tables, err := decodeConfigDB(config)
	if err != nil {
		return fmt.Errorf("%w: %s: %w", util.ErrCommit, s.target.Hostname, err)
	}
	if s.candidate == nil {
		s.candidate = make(map[string]map[string]map[string]string)
	}
	for table, entries := range tables {
		if s.candidate[table] == nil {
			s.candidate[table] = make(map[string]map[string]string)
		}
		for key, fields := range entries {
			if s.candidate[table][key] == nil {
				s.candidate[table][key] = make(map[string]string)
			}
			for f, v := range fields {
				s.candidate[table][key][f] = v
			}
		}
	}
	return nil
}

// decodeConfigDB parses a candidate made of one or more concatenated JSON
// documents; later documents merge over earlier ones. Scalar values are
// rendered as strings since CONFIG_DB stores every field as one.
func decodeConfigDB(config string) (map[string]map[string]map[string]string, error) {
	dec := json.NewDecoder(strings.NewReader(config))
	dec.UseNumber()

	out := make(map[string]map[string]map[string]string)
	for {
		var raw map[string]map[string]map[string]any
		err := dec.Decode(&raw)
		if errors.Is(err, io.EOF) {
			return out, nil
		}
		if err != nil {
			return nil, fmt.Errorf("parsing CONFIG_DB candidate: %w", err)
		}

		for table, entries := range raw {
			if out[table] == nil {
				out[table] = make(map[string]map[string]string, len(entries))
			}
			for key, fields := range entries {
				entry := out[table][key]
				if entry == nil {
					entry = make(map[string]string, len(fields))
					out[table][key] = entry
				}
				for f, v := range fields {
					switch v := v.(type) {
					case string:
						entry[f] = v
					case nil:
						entry[f] = ""
					case map[string]any, []any:
						return nil, fmt.Errorf("%s|%s: field %q is not a scalar", table, key, f)
					default:
						entry[f] = fmt.Sprint(v)
					}
				}
			}
		}
	}
}

// CommitConfig writes every staged entry in one MULTI/EXEC pipeline, in
// table and key order. The candidate is discarded either way.
func (s *SonicSession) CommitConfig(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.client == nil {
		return fmt.Errorf("%s: %w", s.target.Hostname, util.ErrNotConnected)
	}
	candidate := s.candidate
	s.candidate = nil
	if len(candidate) == 0 {
		return nil
	}

	pipe := s.client.TxPipeline()
	for _, table := range sortedKeys(candidate) {
		entries := candidate[table]
		for _, key := range sortedKeys(entries) {
			redisKey := fmt.Sprintf("%s|%s", table, key)
			fields := entries[key]
			if len(fields) == 0 {
				// Field-less entries need a sentinel for the key to exist
				pipe.HSet(ctx, redisKey, "NULL", "NULL")
				continue
			}
			args := make([]interface{}, 0, len(fields)*2)
			for _, f := range sortedKeys(fields) {
				args = append(args, f, fields[f])
			}
			pipe.HSet(ctx, redisKey, args...)
		}
	}
	if _, err := pipe.Exec(ctx); err != nil && err != redis.Nil {
		return fmt.Errorf("%w: %s: pipeline exec: %w", util.ErrCommit, s.target.Hostname, err)
	}
	return nil
}

// Ping runs the Linux ping on the device. ping exits non-zero on loss, so
// the summary is parsed before the exit status is considered.
func (s *SonicSession) Ping(ctx context.Context, destination string) (PingResult, error) {
	s.mu.Lock()
	exec := s.exec
	s.mu.Unlock()

	if exec == nil {
		return PingResult{}, fmt.Errorf("%s: %w", s.target.Hostname, util.ErrNotConnected)
	}
	out, execErr := exec(ctx, "ping -c 5 -W 1 "+destination)
	res, err := parseUnixPing(out)
	if err != nil {
		if execErr != nil {
			return PingResult{}, fmt.Errorf("ping %s: %w", destination, execErr)
		}
		return PingResult{}, err
	}
	return res, nil
}

// Close releases the Redis client and the tunnel
func (s *SonicSession) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var err error
	if s.client != nil {
		err = s.client.Close()
		s.client = nil
	}
	if s.tunnel != nil {
		if terr := s.tunnel.Close(); err == nil {
			err = terr
		}
		s.tunnel = nil
	}
	s.exec = nil
	s.candidate = nil
	return err
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
