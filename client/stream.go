package client

import (
	"context"
	"fmt"
	"net"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/luma/ovpnctl/protocol"
)

// Request is a command to send along with how long to wait for its reply.
type Request struct {
	Command string

	// Timeout bounds the wait for the reply. Zero means the stream's default.
	Timeout time.Duration

	// Expect is optional, see Expectation
	Expect Expectation
}

// Stream is a connection to a management interface. It correlates commands
// with their replies and passes notifications on to subscribers.
//
// A Stream is safe for concurrent use. Once closed, either by Close or by a
// connection error, it can't be reused and every command fails with
// ErrConnectionClosed.
type Stream struct {
	conn    *Conn
	dialect protocol.Dialect
	timeout time.Duration

	queue     *pendingQueue
	assembler *assembler
	grouper   *notificationGrouper
	sink      *sink

	closeOnce  sync.Once
	closed     chan struct{}
	readerDone chan struct{}
	closeErr   error

	log *zap.Logger
}

// New starts a Stream on an established connection. If options.Password is
// set the management password prompt is answered first.
//
// The stream is closed when ctx is done.
func New(ctx context.Context, conn net.Conn, options Options) (*Stream, error) {
	options = options.withDefaults()

	c := newConn(conn, options)

	if options.Password != "" {
		if err := c.authenticate(ctx, options.Password, options.DefaultTimeout); err != nil {
			return nil, err
		}
	}

	queue := newPendingQueue()
	log := options.Log.Named("stream")

	s := &Stream{
		conn:       c,
		dialect:    *options.Dialect,
		timeout:    options.DefaultTimeout,
		queue:      queue,
		assembler:  newAssembler(*options.Dialect, queue, log.Named("assembler")),
		grouper:    &notificationGrouper{dialect: *options.Dialect},
		sink:       newSink(options.NotificationBuffer, options.Overflow, log.Named("sink")),
		closed:     make(chan struct{}),
		readerDone: make(chan struct{}),
		log:        log,
	}

	go s.readLoop()

	go func() {
		select {
		case <-ctx.Done():
			s.shutdown(ctx.Err())

		case <-s.closed:
		}
	}()

	return s, nil
}

// Send writes command and waits for its reply. A timeout <= 0 uses the
// stream's default timeout, ctx cancels the wait.
//
// A reply with the error status is not a Go error, use
// ReceiveInfo.ErrorOrNil for that. The error return is one of ErrTimeout,
// ErrCancelled, ErrMalformedReply, ErrConnectionClosed or
// protocol.ErrInvalidCommand.
func (s *Stream) Send(ctx context.Context, command string, timeout time.Duration) (ReceiveInfo, error) {
	return s.Do(ctx, Request{Command: command, Timeout: timeout})
}

// Do is Send with an expectation about the shape of the reply.
func (s *Stream) Do(ctx context.Context, req Request) (ReceiveInfo, error) {
	if !s.isRunning() {
		return ReceiveInfo{}, s.Err()
	}

	if err := protocol.ValidateCommand(req.Command); err != nil {
		return ReceiveInfo{}, err
	}

	if err := ctx.Err(); err != nil {
		return ReceiveInfo{}, cancelled(req.Command, err)
	}

	timeout := req.Timeout
	if timeout <= 0 {
		timeout = s.timeout
	}

	p := newPendingCommand(req.Command, req.Expect, time.Now().Add(timeout))

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	if err := s.write(ctx, p, timer.C, timeout); err != nil {
		return ReceiveInfo{}, err
	}

	return s.wait(ctx, p, timer.C, timeout)
}

// write enqueues p and writes its command while holding the write slot, so
// the queue order is always the order commands went out on the wire.
//
// Waiting for the slot gives up on ctx or the command's timer. Nothing has
// been enqueued at that point, so the command simply fails on its own.
func (s *Stream) write(ctx context.Context, p *pendingCommand, expired <-chan time.Time, timeout time.Duration) error {
	select {
	case s.conn.writeSlot <- struct{}{}:

	case <-expired:
		return timedOut(p.command, timeout)

	case <-ctx.Done():
		return cancelled(p.command, ctx.Err())

	case <-s.closed:
		return s.Err()
	}

	defer func() { <-s.conn.writeSlot }()

	if err := s.queue.push(p); err != nil {
		return err
	}

	if err := s.conn.writeLineBefore(p.command, p.deadline); err != nil {
		s.log.Warn("Failed to write command",
			zap.String("command", p.command),
			zap.Error(err))

		// A partially written line leaves the peer in an unknown state
		s.shutdown(fmt.Errorf("Failed to write '%s': %w", p.command, err))

		<-p.done
		return p.err
	}

	return nil
}

func (s *Stream) wait(ctx context.Context, p *pendingCommand, expired <-chan time.Time, timeout time.Duration) (ReceiveInfo, error) {
	select {
	case <-p.done:

	case <-expired:
		if p.complete(ReceiveInfo{}, timedOut(p.command, timeout)) {
			s.log.Debug("Command timed out", zap.String("command", p.command))
		}

	case <-ctx.Done():
		if p.complete(ReceiveInfo{}, cancelled(p.command, ctx.Err())) {
			s.log.Debug("Command cancelled", zap.String("command", p.command))
		}
	}

	<-p.done

	return p.info, p.err
}

// Subscribe registers observer for every notification received from now on.
// Call the returned function to unsubscribe.
func (s *Stream) Subscribe(observer Observer) (unsubscribe func()) {
	return s.sink.subscribe(observer, nil)
}

// Notifications is Subscribe for callers that prefer a channel. The channel
// is closed after unsubscribe is called or the stream is closed. In the
// latter case notifications already queued are delivered first.
func (s *Stream) Notifications(buffer int) (<-chan Notification, func()) {
	ch := make(chan Notification, buffer)
	stop := make(chan struct{})

	forward := ObserverFunc(func(n Notification) {
		select {
		case ch <- n:
		case <-stop:
		}
	})

	// The subscriber goroutine is the only sender, it closes ch on its way out
	unsubscribe := s.sink.subscribe(forward, func() { close(ch) })

	var once sync.Once

	return ch, func() {
		once.Do(func() {
			close(stop)
			unsubscribe()
		})
	}
}

// DroppedNotifications counts the notifications lost to full subscriber
// queues.
func (s *Stream) DroppedNotifications() uint64 {
	return s.sink.dropped.Load()
}

// Pending returns the number of commands waiting for a reply, including
// commands that timed out but whose reply hasn't arrived yet.
func (s *Stream) Pending() int {
	return s.queue.len()
}

// Done is closed once the stream has been closed.
func (s *Stream) Done() <-chan struct{} {
	return s.closed
}

// Err returns nil while the stream is running. Afterwards it returns the
// error every command fails with, it wraps ErrConnectionClosed and the
// reason the stream stopped.
func (s *Stream) Err() error {
	if s.isRunning() {
		return nil
	}

	return s.closeErr
}

func (s *Stream) RemoteAddr() net.Addr {
	return s.conn.RemoteAddr()
}

// Close fails every pending command with ErrConnectionClosed, closes the
// connection and waits for the read loop to exit. It is safe to call more
// than once.
func (s *Stream) Close() error {
	err := s.shutdown(nil)
	<-s.readerDone

	return err
}

func (s *Stream) shutdown(cause error) (err error) {
	s.closeOnce.Do(func() {
		s.closeErr = ErrConnectionClosed
		if cause != nil {
			s.closeErr = fmt.Errorf("%w: %w", ErrConnectionClosed, cause)
		}

		close(s.closed)

		failed := s.queue.failAll(s.closeErr)

		s.log.Info("Management stream closed",
			zap.Int("failedCommands", failed),
			zap.NamedError("cause", cause))

		err = s.conn.Close()
		s.sink.close()
	})

	return err
}

func (s *Stream) readLoop() {
	log := s.log.Named("readLoop")

	defer func() {
		close(s.readerDone)
		log.Debug("Read loop exited")
	}()

	for {
		line, err := s.conn.readLine()
		if err != nil {
			if s.isRunning() {
				log.Warn("Failed to read from management interface", zap.Error(err))
				s.shutdown(err)
			}

			return
		}

		s.dispatch(line, time.Now())
	}
}

// dispatch routes one line. Notifications may appear anywhere, including in
// the middle of a reply block, so they are split off before the assembler
// sees the line.
func (s *Stream) dispatch(line string, now time.Time) {
	kind := s.dialect.Classify(line)

	if kind == protocol.KindNotification {
		for _, n := range s.grouper.add(line, now) {
			s.sink.publish(n)
		}

		return
	}

	s.assembler.feed(kind, line, now)
}

// isRunning returns true if the stream hasn't been closed
func (s *Stream) isRunning() bool {
	select {
	case <-s.closed:
		return false

	default:
		return true
	}
}

func timedOut(command string, timeout time.Duration) error {
	return fmt.Errorf("Command '%s' got no reply within %s: %w", command, timeout, ErrTimeout)
}

func cancelled(command string, cause error) error {
	return fmt.Errorf("Command '%s': %w: %w", command, ErrCancelled, cause)
}
