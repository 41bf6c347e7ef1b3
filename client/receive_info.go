package client

import (
	"strings"
	"time"
)

// Status is the outcome the peer reported for a command.
type Status int

const (
	StatusSuccess Status = iota
	StatusError
)

func (s Status) String() string {
	if s == StatusError {
		return "ERROR"
	}

	return "SUCCESS"
}

// ReceiveInfo is the reply to a single command.
type ReceiveInfo struct {
	// Command is the command line this is the reply to
	Command string

	Status Status

	// Body is the reply text with the status prefix removed. The lines of
	// multi-line replies are joined with "\n", the terminator is not included.
	Body string

	ReceivedAt time.Time
}

// ErrorOrNil returns a *ProtocolError if the peer reported an error.
// Otherwise it returns nil.
func (r ReceiveInfo) ErrorOrNil() error {
	if r.Status == StatusError {
		return &ProtocolError{Command: r.Command, Message: r.Body}
	}

	return nil
}

// Lines splits the body of a multi-line reply.
func (r ReceiveInfo) Lines() []string {
	if r.Body == "" {
		return nil
	}

	return strings.Split(r.Body, "\n")
}
