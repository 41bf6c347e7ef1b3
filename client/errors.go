package client

import (
	"errors"
	"fmt"
)

var (
	// ErrConnectionClosed is returned for every outstanding and future command
	// once the stream has been closed or has hit a fatal I/O error.
	ErrConnectionClosed = errors.New("Management connection is closed")

	// ErrTimeout is returned when no reply arrived before the command's deadline.
	ErrTimeout = errors.New("Timed out waiting for a reply")

	// ErrCancelled is returned when the caller's context was done before a reply
	// arrived.
	ErrCancelled = errors.New("Command was cancelled")

	// ErrMalformedReply is returned when the peer sent a line sequence that
	// can't be matched to the pending command.
	ErrMalformedReply = errors.New("Reply is malformed")

	ErrAuthenticationFailed = errors.New("Management password was rejected")
)

// ProtocolError is the error form of a reply that carried the error status.
type ProtocolError struct {
	Command string
	Message string
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("Command '%s' failed: %s", e.Command, e.Message)
}

// IsProtocolError reports whether err is, or wraps, a *ProtocolError.
func IsProtocolError(err error) bool {
	var perr *ProtocolError
	return errors.As(err, &perr)
}
