package meeting

import (
	"errors"
	"fmt"
)

var (
	// ErrSignalingUnavailable means the channel is down; negotiations stall
	// until the surrounding application reconnects.
	ErrSignalingUnavailable = errors.New("signaling channel unavailable")

	// ErrNegotiationFailed marks a rejected description or candidate. The
	// affected session is torn down; other sessions are unaffected.
	ErrNegotiationFailed = errors.New("negotiation failed")
)

// SessionError wraps a failure in the lifecycle of one peer session.
type SessionError struct {
	Op       string
	RemoteID string
	Err      error
}

func (e *SessionError) Error() string {
	if e.RemoteID != "" {
		return fmt.Sprintf("%s (peer %s): %v", e.Op, e.RemoteID, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *SessionError) Unwrap() error {
	return e.Err
}

func newSessionError(op, remoteID string, err error) *SessionError {
	return &SessionError{Op: op, RemoteID: remoteID, Err: err}
}
