package client

import (
	"context"
	"fmt"
	"net"
	"time"

	"go.uber.org/zap"

	"github.com/luma/ovpnctl/protocol"
	"github.com/luma/ovpnctl/transport"
)

// Conn is the socket to the management interface together with its line
// reader and the single write slot that serialises writes.
type Conn struct {
	conn  net.Conn
	lines *protocol.LineReader

	// writeSlot holds a token while a command is being enqueued and written.
	// Waiting for it can be abandoned, unlike a mutex.
	writeSlot chan struct{}

	dialect protocol.Dialect
	log     *zap.Logger
}

func newConn(conn net.Conn, options Options) *Conn {
	return &Conn{
		conn:      conn,
		lines:     protocol.NewLineReader(conn, options.MaxLineLength),
		writeSlot: make(chan struct{}, 1),
		dialect:   *options.Dialect,
		log:       options.Log,
	}
}

// Dial connects to the management interface at addr and starts a Stream on
// it. See transport.Dial for the accepted address forms.
func Dial(ctx context.Context, addr string, options Options) (*Stream, error) {
	options = options.withDefaults()

	conn, err := transport.Dial(ctx, addr, options.DefaultTimeout)
	if err != nil {
		return nil, err
	}

	options.Log.Debug("Connected to management interface", zap.String("addr", addr))

	stream, err := New(ctx, conn, options)
	if err != nil {
		conn.Close()
		return nil, err
	}

	return stream, nil
}

// authenticate answers the management password prompt. It must run before
// the read loop starts as the prompt isn't newline terminated.
func (c *Conn) authenticate(ctx context.Context, password string, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}

	if err := c.conn.SetDeadline(deadline); err != nil {
		return err
	}

	defer func() {
		if err := c.conn.SetDeadline(time.Time{}); err != nil {
			c.log.Warn("Failed to clear connection deadline", zap.Error(err))
		}
	}()

	if err := c.lines.ReadPrompt(c.dialect.PasswordPrompt); err != nil {
		return fmt.Errorf("Failed to read password prompt: %w", err)
	}

	if err := c.writeLine(password); err != nil {
		return fmt.Errorf("Failed to send password: %w", err)
	}

	for {
		line, err := c.lines.ReadLine()
		if err != nil {
			return fmt.Errorf("Failed to read password reply: %w", err)
		}

		switch c.dialect.Classify(line) {
		case protocol.KindSuccess:
			c.log.Debug("Management password accepted")
			return nil

		case protocol.KindNotification:
			// Some peers print an INFO banner first
			continue

		default:
			return fmt.Errorf("Peer replied '%s': %w", line, ErrAuthenticationFailed)
		}
	}
}

func (c *Conn) readLine() (string, error) {
	return c.lines.ReadLine()
}

func (c *Conn) writeLine(command string) error {
	return protocol.WriteCommand(c.conn, command)
}

// writeLineBefore writes a single command line, giving up at deadline. A
// zero deadline means no limit.
func (c *Conn) writeLineBefore(command string, deadline time.Time) error {
	if err := c.conn.SetWriteDeadline(deadline); err != nil {
		return err
	}

	return c.writeLine(command)
}

func (c *Conn) Close() error {
	return c.conn.Close()
}

func (c *Conn) RemoteAddr() net.Addr {
	return c.conn.RemoteAddr()
}
