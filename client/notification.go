package client

import (
	"strings"
	"time"

	"github.com/luma/ovpnctl/protocol"
)

// Notification is an asynchronous message pushed by the peer.
type Notification struct {
	// Category is the part between the marker and the first ':', e.g. "STATE"
	Category string

	// Payload is everything after the first ':'
	Payload string

	// Extra holds the continuation lines of a multi-line notification. For a
	// >CLIENT: notification these are the "name=value" env lines.
	Extra []string

	// Raw is the first line as it was received
	Raw string

	ReceivedAt time.Time
}

const (
	clientEnvPrefix = "ENV,"
	clientEnvEnd    = "END"
	clientAddress   = "ADDRESS,"
)

// notificationGrouper turns notification lines into Notifications. Most are
// a single line, >CLIENT: headers collect the >CLIENT:ENV lines that follow.
// It is only used from the read loop.
type notificationGrouper struct {
	dialect protocol.Dialect
	client  *Notification
}

// add consumes a notification line and returns the notifications it
// completed, if any.
func (g *notificationGrouper) add(line string, now time.Time) []Notification {
	category, payload, err := g.dialect.ParseNotification(line)
	if err != nil {
		return nil
	}

	n := Notification{
		Category:   category,
		Payload:    payload,
		Raw:        line,
		ReceivedAt: now,
	}

	if category != protocol.CategoryClient || strings.HasPrefix(payload, clientAddress) {
		return []Notification{n}
	}

	if strings.HasPrefix(payload, clientEnvPrefix) {
		env := payload[len(clientEnvPrefix):]

		if g.client == nil {
			// ENV line without a header, pass it on as is
			return []Notification{n}
		}

		if env == clientEnvEnd {
			done := *g.client
			g.client = nil

			return []Notification{done}
		}

		g.client.Extra = append(g.client.Extra, env)

		return nil
	}

	// A new header. A previous header that never saw its ENV,END is
	// delivered as it is.
	var done []Notification
	if g.client != nil {
		done = append(done, *g.client)
	}

	g.client = &n

	return done
}
