// Package failure defines the error taxonomy shared by the transport, response and
// session layers.
package failure

import (
	"errors"
	"fmt"
	"net"
)

// ConnectionError reports a failed connect or TLS handshake. The session never
// proceeds past it.
type ConnectionError struct {
	Addr string
	Err  error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("connect %s: %v", e.Addr, e.Err)
}

func (e *ConnectionError) Unwrap() error { return e.Err }

// TimeoutError reports that no response byte arrived within the timeout.
type TimeoutError struct {
	Op  string
	Err error
}

func (e *TimeoutError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: timed out", e.Op)
	}
	return fmt.Sprintf("%s: timed out: %v", e.Op, e.Err)
}

func (e *TimeoutError) Unwrap() error { return e.Err }

// Timeout lets callers treat TimeoutError like a net.Error.
func (e *TimeoutError) Timeout() bool { return true }

// TransferError reports a write failure or unexpected stream closure mid-session.
type TransferError struct {
	Op  string
	Err error
}

func (e *TransferError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *TransferError) Unwrap() error { return e.Err }

// ParseWarning describes malformed or unexpected response content. It is logged and
// never fails a session.
type ParseWarning struct {
	Field  string
	Value  string
	Reason string
}

func (w ParseWarning) Error() string {
	if w.Value == "" {
		return fmt.Sprintf("parse warning: %s: %s", w.Field, w.Reason)
	}
	return fmt.Sprintf("parse warning: %s %q: %s", w.Field, w.Value, w.Reason)
}

// IsTimeout reports whether err is a deadline expiry from the network stack.
func IsTimeout(err error) bool {
	if err == nil {
		return false
	}
	var ne net.Error
	if errors.As(err, &ne) {
		return ne.Timeout()
	}
	return false
}

// Kind returns a short stable label for err, used to group failures in reports.
func Kind(err error) string {
	var (
		connErr     *ConnectionError
		timeoutErr  *TimeoutError
		transferErr *TransferError
	)
	switch {
	case err == nil:
		return ""
	case errors.As(err, &connErr):
		return "connection"
	case errors.As(err, &timeoutErr):
		return "timeout"
	case errors.As(err, &transferErr):
		return "transfer"
	case IsTimeout(err):
		return "timeout"
	default:
		return "other"
	}
}
