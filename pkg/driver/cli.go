package driver

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strings"
	"sync"

	"golang.org/x/crypto/ssh"

	"github.com/newtron-network/newtboot/pkg/util"
)

// CLISession drives a device over an interactive SSH shell, using a Dialect
// for the OS-specific commands.
type CLISession struct {
	target  Target
	creds   Credentials
	dialect *Dialect

	mu        sync.Mutex
	client    *ssh.Client
	session   *ssh.Session
	sh        *shell
	candidate []string
}

// NewCLISession creates an unopened CLI session
func NewCLISession(target Target, creds Credentials, dialect *Dialect) *CLISession {
	return &CLISession{
		target:  target,
		creds:   creds,
		dialect: dialect,
	}
}

// Open logs in, starts a shell and runs the dialect's setup commands
func (s *CLISession) Open(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.sh != nil {
		return nil
	}

	client, err := dialSSH(ctx, s.target, s.creds)
	if err != nil {
		return err
	}
	sess, err := client.NewSession()
	if err != nil {
		client.Close()
		return fmt.Errorf("SSH session: %w", err)
	}
	s.client, s.session = client, sess

	modes := ssh.TerminalModes{
		ssh.ECHO:          1,
		ssh.TTY_OP_ISPEED: 38400,
		ssh.TTY_OP_OSPEED: 38400,
	}
	if err := sess.RequestPty("vt100", 200, 511, modes); err != nil {
		s.closeLocked()
		return fmt.Errorf("requesting pty: %w", err)
	}
	stdin, err := sess.StdinPipe()
	if err != nil {
		s.closeLocked()
		return fmt.Errorf("stdin pipe: %w", err)
	}
	stdout, err := sess.StdoutPipe()
	if err != nil {
		s.closeLocked()
		return fmt.Errorf("stdout pipe: %w", err)
	}
	if err := sess.Shell(); err != nil {
		s.closeLocked()
		return fmt.Errorf("starting shell: %w", err)
	}

	if err := s.attach(ctx, stdin, stdout); err != nil {
		s.closeLocked()
		return err
	}
	return nil
}

// attach binds the session to an already running shell
func (s *CLISession) attach(ctx context.Context, stdin io.Writer, stdout io.Reader) error {
	sh := newShell(stdin, stdout, s.dialect.Prompt)
	if _, err := sh.waitPrompt(ctx); err != nil {
		return fmt.Errorf("waiting for prompt: %w", err)
	}
	for _, cmd := range s.dialect.Setup {
		if _, err := sh.run(ctx, cmd); err != nil {
			return fmt.Errorf("%s: %w", cmd, err)
		}
	}
	s.sh = sh
	return nil
}

// LoadMergeCandidate stages config lines; blank lines and "!" comments are
// dropped.
func (s *CLISession) LoadMergeCandidate(ctx context.Context, config string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.sh == nil {
		return fmt.Errorf("%s: %w", s.target.Hostname, util.ErrNotConnected)
	}
	for _, line := range strings.Split(config, "\n") {
		line = strings.TrimRight(line, " \t\r")
		if strings.TrimSpace(line) == "" || strings.TrimSpace(line) == "!" {
			continue
		}
		s.candidate = append(s.candidate, line)
	}
	return nil
}

// CommitConfig enters config mode, replays the candidate, leaves config mode
// and saves. The candidate is discarded whether or not the commit succeeds.
func (s *CLISession) CommitConfig(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.sh == nil {
		return fmt.Errorf("%s: %w", s.target.Hostname, util.ErrNotConnected)
	}
	candidate := s.candidate
	s.candidate = nil
	if len(candidate) == 0 {
		return nil
	}

	for _, cmd := range s.dialect.ConfigEnter {
		if err := s.exec(ctx, cmd); err != nil {
			return err
		}
	}
	for _, cmd := range candidate {
		if err := s.exec(ctx, cmd); err != nil {
			return errors.Join(err, s.abortLocked(ctx))
		}
	}
	for _, cmd := range s.dialect.ConfigExit {
		if err := s.exec(ctx, cmd); err != nil {
			return errors.Join(err, s.abortLocked(ctx))
		}
	}
	for _, cmd := range s.dialect.Save {
		if err := s.exec(ctx, cmd); err != nil {
			return err
		}
	}
	return nil
}

// abortLocked leaves config mode after a rejected line. It does nothing if
// the session was already dropped.
func (s *CLISession) abortLocked(ctx context.Context) error {
	for _, cmd := range s.dialect.ConfigAbort {
		if s.sh == nil {
			return nil
		}
		if _, err := s.run(ctx, cmd); err != nil {
			return fmt.Errorf("leaving config mode on %s: %w", s.target.Hostname, err)
		}
	}
	return nil
}

// run sends one command. A transport error or timeout leaves unread output
// in the shell, so the session is dropped and later calls fail with
// ErrNotConnected.
func (s *CLISession) run(ctx context.Context, cmd string) (string, error) {
	out, err := s.sh.run(ctx, cmd)
	if err != nil {
		s.closeLocked()
	}
	return out, err
}

// exec runs one command and turns dialect error markers into ErrCommit
func (s *CLISession) exec(ctx context.Context, cmd string) error {
	out, err := s.run(ctx, cmd)
	if err != nil {
		return fmt.Errorf("%w: %s: %q: %w", util.ErrCommit, s.target.Hostname, cmd, err)
	}
	for _, marker := range s.dialect.ErrorMarkers {
		if idx := strings.Index(out, marker); idx >= 0 {
			return fmt.Errorf("%w: %s: %q: %s", util.ErrCommit, s.target.Hostname, cmd, firstLine(out[idx:]))
		}
	}
	return nil
}

// Ping runs the dialect's ping command and parses its summary
func (s *CLISession) Ping(ctx context.Context, destination string) (PingResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.sh == nil {
		return PingResult{}, fmt.Errorf("%s: %w", s.target.Hostname, util.ErrNotConnected)
	}
	out, err := s.run(ctx, s.dialect.PingCommand(destination))
	if err != nil {
		return PingResult{}, fmt.Errorf("ping %s: %w", destination, err)
	}
	return s.dialect.ParsePing(out)
}

// Close ends the shell and the SSH connection. Closing an unopened session
// is a no-op.
func (s *CLISession) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closeLocked()
}

func (s *CLISession) closeLocked() error {
	s.sh = nil
	s.candidate = nil
	if s.session != nil {
		s.session.Close()
		s.session = nil
	}
	if s.client == nil {
		return nil
	}
	err := s.client.Close()
	s.client = nil
	return err
}

func firstLine(s string) string {
	if i := strings.IndexAny(s, "\r\n"); i >= 0 {
		return s[:i]
	}
	return s
}

// shell serialises command/response exchanges over an interactive channel.
// A background goroutine pumps device output into buf; callers wait until
// the buffered text ends in a prompt.
type shell struct {
	stdin  io.Writer
	prompt *regexp.Regexp

	mu     sync.Mutex
	buf    bytes.Buffer
	err    error
	notify chan struct{}
}

func newShell(stdin io.Writer, stdout io.Reader, prompt *regexp.Regexp) *shell {
	sh := &shell{
		stdin:  stdin,
		prompt: prompt,
		notify: make(chan struct{}, 1),
	}
	go sh.pump(stdout)
	return sh
}

func (sh *shell) pump(r io.Reader) {
	b := make([]byte, 4096)
	for {
		n, err := r.Read(b)
		sh.mu.Lock()
		sh.buf.Write(b[:n])
		if err != nil {
			sh.err = err
		}
		sh.mu.Unlock()

		select {
		case sh.notify <- struct{}{}:
		default:
		}
		if err != nil {
			return
		}
	}
}

// waitPrompt blocks until the output ends in a prompt and returns everything
// read up to and including it.
func (sh *shell) waitPrompt(ctx context.Context) (string, error) {
	for {
		sh.mu.Lock()
		out := sh.buf.String()
		readErr := sh.err
		if sh.prompt.MatchString(out) {
			sh.buf.Reset()
			sh.mu.Unlock()
			return out, nil
		}
		sh.mu.Unlock()

		if readErr != nil {
			return out, fmt.Errorf("%w: %v", util.ErrConnection, readErr)
		}
		select {
		case <-ctx.Done():
			return out, fmt.Errorf("%w: %w", util.ErrTimeout, ctx.Err())
		case <-sh.notify:
		}
	}
}

func (sh *shell) run(ctx context.Context, cmd string) (string, error) {
	if _, err := io.WriteString(sh.stdin, cmd+"\n"); err != nil {
		return "", fmt.Errorf("%w: writing %q: %v", util.ErrConnection, cmd, err)
	}
	return sh.waitPrompt(ctx)
}
