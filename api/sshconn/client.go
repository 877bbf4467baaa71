// Package sshconn owns one SSH transport per trigger request: it dials,
// authenticates, runs the setup pipeline, and classifies faults. Transports
// are never shared across requests.
package sshconn

import (
	"context"
	"errors"
	"io"
	"log"
	"net"
	"strings"
	"sync"
	"time"

	"golang.org/x/crypto/ssh"

	"bifrost/api/model"
)

const (
	// DialTimeout bounds the handshake phase only; command execution has
	// no hard ceiling.
	DialTimeout = 10 * time.Second

	heartbeatInterval = 15 * time.Second
	maxMissedBeats    = 3
)

// Client is an authenticated SSH connection to a remote host.
type Client struct {
	conn      *ssh.Client
	keepalive func() error

	closeOnce sync.Once
	done      chan struct{}
}

// Dial connects and authenticates within DialTimeout. Password auth is
// tried first; if the remote asks for keyboard-interactive input instead,
// the password is supplied once and further prompts are declined.
// Returned errors are always *Fault.
func Dial(ctx context.Context, cred model.Credential) (*Client, error) {
	cfg := &ssh.ClientConfig{
		User: cred.User,
		Auth: []ssh.AuthMethod{
			ssh.Password(cred.Password),
			ssh.KeyboardInteractive(answerOnce(cred.Password)),
		},
		// Hosts are operator-supplied lab machines; pinning host keys is
		// the caller's concern, not ours.
		HostKeyCallback: ssh.InsecureIgnoreHostKey(),
		Timeout:         DialTimeout,
	}

	addr := cred.Host
	if _, _, err := net.SplitHostPort(addr); err != nil {
		addr = net.JoinHostPort(addr, "22")
	}

	dialCtx, cancel := context.WithTimeout(ctx, DialTimeout)
	defer cancel()

	var d net.Dialer
	tcp, err := d.DialContext(dialCtx, "tcp", addr)
	if err != nil {
		return nil, Classify(err)
	}

	// ssh.NewClientConn has no context form; the deadline covers the
	// handshake and is cleared once the connection is up.
	if dl, ok := dialCtx.Deadline(); ok {
		tcp.SetDeadline(dl)
	}
	sshConn, chans, reqs, err := ssh.NewClientConn(tcp, addr, cfg)
	if err != nil {
		tcp.Close()
		return nil, Classify(err)
	}
	tcp.SetDeadline(time.Time{})

	c := &Client{
		conn: ssh.NewClient(sshConn, chans, reqs),
		done: make(chan struct{}),
	}
	c.keepalive = func() error {
		_, _, err := c.conn.SendRequest("keepalive@bifrost", true, nil)
		return err
	}
	go c.heartbeat(heartbeatInterval)
	return c, nil
}

// answerOnce builds a keyboard-interactive handler that answers password
// prompts with the secret a single time, then declines.
func answerOnce(secret string) ssh.KeyboardInteractiveChallenge {
	answered := false
	return func(name, instruction string, questions []string, echos []bool) ([]string, error) {
		if len(questions) == 0 {
			return nil, nil
		}
		if answered || secret == "" {
			return nil, errors.New("interactive prompt declined")
		}
		answered = true
		answers := make([]string, len(questions))
		for i := range questions {
			answers[i] = secret
		}
		return answers, nil
	}
}

// heartbeat detects silently dead transports. A few missed beats in a row
// mean the peer is gone and the connection is torn down.
func (c *Client) heartbeat(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	missed := 0
	for {
		select {
		case <-c.done:
			return
		case <-ticker.C:
			if c.beat(interval) {
				missed = 0
				continue
			}
			missed++
			if missed >= maxMissedBeats {
				log.Printf("sshconn: %d heartbeats missed, closing transport", missed)
				c.Close()
				return
			}
		}
	}
}

// beat sends one keepalive and reports whether the peer answered in time.
// On a link that died without a FIN or RST the request itself never
// returns, so the reply is awaited on the side under its own deadline.
func (c *Client) beat(allowance time.Duration) bool {
	reply := make(chan error, 1)
	go func() {
		reply <- c.keepalive()
	}()

	timer := time.NewTimer(allowance)
	defer timer.Stop()
	select {
	case err := <-reply:
		return err == nil
	case <-timer.C:
		return false
	case <-c.done:
		return false
	}
}

// Close releases the transport. Safe to call more than once and from any
// path: success, command failure, or connection error.
func (c *Client) Close() {
	c.closeOnce.Do(func() {
		close(c.done)
		if c.conn != nil {
			c.conn.Close()
		}
	})
}

// Command is a started remote pipeline with its two live output channels.
type Command struct {
	session *ssh.Session
	Stdout  io.Reader
	Stderr  io.Reader

	closeOnce sync.Once
}

// Start opens a session and begins executing the pipeline. Output is
// consumed through the pipes; Wait reports the exit status.
func (c *Client) Start(pipeline string) (*Command, error) {
	sess, err := c.conn.NewSession()
	if err != nil {
		return nil, Classify(err)
	}
	stdout, err := sess.StdoutPipe()
	if err != nil {
		sess.Close()
		return nil, Classify(err)
	}
	stderr, err := sess.StderrPipe()
	if err != nil {
		sess.Close()
		return nil, Classify(err)
	}
	if err := sess.Start(pipeline); err != nil {
		sess.Close()
		return nil, Classify(err)
	}
	return &Command{session: sess, Stdout: stdout, Stderr: stderr}, nil
}

// Wait blocks until the remote command finishes and returns its exit
// status. A negative status means the session ended without reporting one
// (for example after Close).
func (cmd *Command) Wait() (int, error) {
	err := cmd.session.Wait()
	if err == nil {
		return 0, nil
	}
	var exitErr *ssh.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitStatus(), nil
	}
	var missing *ssh.ExitMissingError
	if errors.As(err, &missing) {
		return -1, nil
	}
	if strings.Contains(err.Error(), "closed") || errors.Is(err, io.EOF) {
		return -1, nil
	}
	return -1, Classify(err)
}

// Close tears the session down early, before the remote process exits.
// Used when the sentinel line signals logical completion.
func (cmd *Command) Close() {
	cmd.closeOnce.Do(func() {
		cmd.session.Close()
	})
}
