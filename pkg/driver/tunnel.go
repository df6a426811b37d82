package driver

import (
	"context"
	"fmt"
	"io"
	"net"
	"sync"

	"golang.org/x/crypto/ssh"
)

// Tunnel forwards a local TCP port to a remote address through an SSH
// connection. Used to reach Redis (127.0.0.1:6379) inside SONiC devices,
// since Redis has no authentication and is not exposed on the management
// port.
type Tunnel struct {
	localAddr  string // "127.0.0.1:<port>"
	remoteAddr string
	sshClient  *ssh.Client
	listener   net.Listener
	done       chan struct{}
	wg         sync.WaitGroup
}

// OpenTunnel dials SSH to target and opens a local listener on a random
// port. Connections to the local port are forwarded to remoteAddr as seen
// from the SSH host.
func OpenTunnel(ctx context.Context, target Target, creds Credentials, remoteAddr string) (*Tunnel, error) {
	sshClient, err := dialSSH(ctx, target, creds)
	if err != nil {
		return nil, err
	}

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		sshClient.Close()
		return nil, fmt.Errorf("local listen: %w", err)
	}

	t := &Tunnel{
		localAddr:  listener.Addr().String(),
		remoteAddr: remoteAddr,
		sshClient:  sshClient,
		listener:   listener,
		done:       make(chan struct{}),
	}

	t.wg.Add(1)
	go t.acceptLoop()

	return t, nil
}

// LocalAddr returns the local address that forwards to the remote address
func (t *Tunnel) LocalAddr() string {
	return t.localAddr
}

// Close stops the listener, closes the SSH connection, and waits for
// all forwarding goroutines to finish.
func (t *Tunnel) Close() error {
	close(t.done)
	t.listener.Close()
	err := t.sshClient.Close()
	t.wg.Wait()
	return err
}

func (t *Tunnel) acceptLoop() {
	defer t.wg.Done()
	for {
		local, err := t.listener.Accept()
		if err != nil {
			select {
			case <-t.done:
				return
			default:
				continue
			}
		}
		t.wg.Add(1)
		go t.forward(local)
	}
}

// Exec runs a command on the remote host and returns the combined output.
// A new SSH session is created per call.
func (t *Tunnel) Exec(ctx context.Context, cmd string) (string, error) {
	session, err := t.sshClient.NewSession()
	if err != nil {
		return "", fmt.Errorf("SSH session: %w", err)
	}
	defer session.Close()

	stop := context.AfterFunc(ctx, func() { session.Close() })
	defer stop()

	output, err := session.CombinedOutput(cmd)
	if err != nil {
		return string(output), fmt.Errorf("SSH exec '%s': %w", cmd, err)
	}
	return string(output), nil
}

func (t *Tunnel) forward(local net.Conn) {
	defer t.wg.Done()
	defer local.Close()

	remote, err := t.sshClient.Dial("tcp", t.remoteAddr)
	if err != nil {
		return
	}
	defer remote.Close()

	done := make(chan struct{}, 2)
	go func() {
		io.Copy(remote, local)
		done <- struct{}{}
	}()
	go func() {
		io.Copy(local, remote)
		done <- struct{}{}
	}()
	<-done
}
