package client

import (
	"time"

	"go.uber.org/zap"

	"github.com/luma/ovpnctl/protocol"
)

const (
	DefaultTimeout            = 20 * time.Second
	DefaultNotificationBuffer = 255
)

// OverflowPolicy decides what happens to a notification when a subscriber's
// queue is full.
type OverflowPolicy int

const (
	// OverflowDropNewest discards the notification that didn't fit.
	OverflowDropNewest OverflowPolicy = iota

	// OverflowDropOldest discards the oldest queued notification to make room.
	OverflowDropOldest
)

type Options struct {
	// Dialect holds the protocol tokens, the zero value means
	// protocol.DefaultDialect()
	Dialect *protocol.Dialect

	// DefaultTimeout applies to commands sent without an explicit timeout
	DefaultTimeout time.Duration

	// MaxLineLength bounds the length of a single line from the peer
	MaxLineLength int

	// NotificationBuffer is the queue size of each notification subscriber
	NotificationBuffer int

	Overflow OverflowPolicy

	// Password is sent when the peer prompts for the management password
	Password string

	Log *zap.Logger
}

func (o Options) withDefaults() Options {
	if o.Dialect == nil {
		d := protocol.DefaultDialect()
		o.Dialect = &d
	}

	if o.DefaultTimeout <= 0 {
		o.DefaultTimeout = DefaultTimeout
	}

	if o.MaxLineLength < 1 {
		o.MaxLineLength = protocol.DefaultMaxLineLength
	}

	if o.NotificationBuffer < 1 {
		o.NotificationBuffer = DefaultNotificationBuffer
	}

	if o.Log == nil {
		o.Log = zap.NewNop()
	}

	return o
}
