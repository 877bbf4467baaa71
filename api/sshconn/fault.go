package sshconn

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"syscall"
)

// Kind classifies handshake and session-layer faults.
type Kind string

const (
	AuthenticationFailure Kind = "authentication failure"
	ConnectionRefused     Kind = "connection refused"
	Timeout               Kind = "timeout"
	ResetByPeer           Kind = "reset by peer"
	ProtocolError         Kind = "protocol error"
)

// Fault wraps a transport error with its classification.
type Fault struct {
	Kind Kind
	Err  error
}

func (f *Fault) Error() string {
	if f.Err == nil {
		return string(f.Kind)
	}
	return fmt.Sprintf("%s: %v", f.Kind, f.Err)
}

func (f *Fault) Unwrap() error { return f.Err }

// Classify maps an error from the SSH layer onto the fault taxonomy.
// Anything unrecognized is a protocol error.
func Classify(err error) *Fault {
	if err == nil {
		return nil
	}
	var f *Fault
	if errors.As(err, &f) {
		return f
	}

	switch {
	case isAuthFailure(err):
		return &Fault{Kind: AuthenticationFailure, Err: err}
	case errors.Is(err, syscall.ECONNREFUSED):
		return &Fault{Kind: ConnectionRefused, Err: err}
	case isTimeout(err):
		return &Fault{Kind: Timeout, Err: err}
	case errors.Is(err, syscall.ECONNRESET), errors.Is(err, syscall.EPIPE):
		return &Fault{Kind: ResetByPeer, Err: err}
	default:
		return &Fault{Kind: ProtocolError, Err: err}
	}
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}

// x/crypto/ssh reports a rejected authentication attempt as a plain error;
// there is no typed sentinel to match on.
func isAuthFailure(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "unable to authenticate") ||
		strings.Contains(msg, "no supported methods remain") ||
		strings.Contains(msg, "permission denied")
}
