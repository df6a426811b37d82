package driver

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"time"

	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/knownhosts"
)

const defaultSSHPort = 22

// dialSSH opens an SSH client to target honouring ctx for the TCP dial and
// the handshake.
func dialSSH(ctx context.Context, target Target, creds Credentials) (*ssh.Client, error) {
	hostKeyCallback, err := hostKeyCallback(creds.KnownHosts)
	if err != nil {
		return nil, err
	}

	config := &ssh.ClientConfig{
		User: creds.Username,
		Auth: []ssh.AuthMethod{
			ssh.Password(creds.Password),
			// Many network OSes only offer keyboard-interactive for passwords.
			ssh.KeyboardInteractive(func(user, instruction string, questions []string, echos []bool) ([]string, error) {
				answers := make([]string, len(questions))
				for i := range answers {
					answers[i] = creds.Password
				}
				return answers, nil
			}),
		},
		HostKeyCallback: hostKeyCallback,
	}
	if dl, ok := ctx.Deadline(); ok {
		config.Timeout = time.Until(dl)
	}

	port := creds.Port
	if port == 0 {
		port = defaultSSHPort
	}
	addr := net.JoinHostPort(target.Host, strconv.Itoa(port))

	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("SSH dial %s@%s: %w", creds.Username, addr, err)
	}

	// The handshake has no context of its own; closing the conn unblocks it.
	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	c, chans, reqs, err := ssh.NewClientConn(conn, addr, config)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("SSH handshake %s@%s: %w", creds.Username, addr, err)
	}
	return ssh.NewClient(c, chans, reqs), nil
}

func hostKeyCallback(knownHostsPath string) (ssh.HostKeyCallback, error) {
	if knownHostsPath == "" {
		// Lab default, same as the SONiC tunnel: no known_hosts configured.
		return ssh.InsecureIgnoreHostKey(), nil
	}
	cb, err := knownhosts.New(knownHostsPath)
	if err != nil {
		return nil, fmt.Errorf("loading known_hosts %s: %w", knownHostsPath, err)
	}
	return cb, nil
}
