package client

import (
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/luma/ovpnctl/protocol"
)

// assembler turns reply lines into ReceiveInfo values and hands them to the
// oldest pending command. It is only used from the read loop.
type assembler struct {
	dialect protocol.Dialect
	queue   *pendingQueue
	log     *zap.Logger

	// inBlock is true between the first line of a multi-line reply and its
	// terminator
	inBlock bool

	// current is the command the block in progress belongs to. It is nil
	// when the block is being discarded.
	current *pendingCommand
	lines   []string
}

func newAssembler(dialect protocol.Dialect, queue *pendingQueue, log *zap.Logger) *assembler {
	return &assembler{
		dialect: dialect,
		queue:   queue,
		log:     log,
	}
}

// feed consumes one line that isn't a notification.
func (a *assembler) feed(kind protocol.LineKind, line string, now time.Time) {
	if a.inBlock {
		a.feedBlock(kind, line, now)
		return
	}

	switch kind {
	case protocol.KindTerminator:
		head := a.queue.front()
		if head == nil {
			a.log.Warn("Discarding terminator, no command is waiting for a reply")
			return
		}

		a.malformed(head, "got a terminator without a reply block")

	case protocol.KindSuccess, protocol.KindError:
		a.single(kind, line, now)

	default:
		a.startBlock(line)
	}
}

func (a *assembler) single(kind protocol.LineKind, line string, now time.Time) {
	head := a.queue.front()
	if head == nil {
		a.log.Warn("Discarding reply, no command is waiting for it", zap.String("line", line))
		return
	}

	info := ReceiveInfo{
		Command:    head.command,
		Status:     StatusSuccess,
		Body:       a.dialect.StatusText(line),
		ReceivedAt: now,
	}

	if kind == protocol.KindError {
		// Any command may fail, so an error reply never contradicts the expectation
		info.Status = StatusError
		a.resolve(head, info, nil)
		return
	}

	switch {
	case head.expect.Shape == ShapeBlock:
		a.malformed(head, fmt.Sprintf("expected a reply block, got '%s'", line))

	case head.expect.Prefix != "" && !strings.HasPrefix(info.Body, head.expect.Prefix):
		a.malformed(head, fmt.Sprintf("expected a reply starting with '%s', got '%s'", head.expect.Prefix, line))

	default:
		a.resolve(head, info, nil)
	}
}

func (a *assembler) startBlock(line string) {
	a.inBlock = true
	a.lines = a.lines[:0]
	a.current = nil

	head := a.queue.front()

	switch {
	case head == nil:
		a.log.Warn("Discarding reply block, no command is waiting for it", zap.String("line", line))

	case head.expect.Shape == ShapeSingle:
		// The rest of the block is swallowed so its lines can't be mistaken for
		// the reply to the next command.
		a.malformed(head, fmt.Sprintf("expected a single-line reply, got '%s'", line))

	default:
		a.current = head
		a.lines = append(a.lines, line)
	}
}

func (a *assembler) feedBlock(kind protocol.LineKind, line string, now time.Time) {
	if kind != protocol.KindTerminator {
		if a.current != nil {
			a.lines = append(a.lines, line)
		}

		return
	}

	current := a.current

	a.inBlock = false
	a.current = nil

	if current == nil {
		return
	}

	a.resolve(current, ReceiveInfo{
		Command:    current.command,
		Status:     StatusSuccess,
		Body:       strings.Join(a.lines, "\n"),
		ReceivedAt: now,
	}, nil)
}

func (a *assembler) malformed(p *pendingCommand, reason string) {
	a.log.Warn("Malformed reply",
		zap.String("command", p.command),
		zap.String("reason", reason))

	a.resolve(p, ReceiveInfo{}, fmt.Errorf("Command '%s' %s: %w", p.command, reason, ErrMalformedReply))
}

// resolve removes p from the queue and completes it. A command that already
// timed out or was cancelled keeps its queue slot until its reply shows up,
// that reply is dropped here.
func (a *assembler) resolve(p *pendingCommand, info ReceiveInfo, err error) {
	a.queue.popFront(p)

	if !p.complete(info, err) {
		a.log.Debug("Discarding late reply for abandoned command",
			zap.String("command", p.command),
			zap.NamedError("abandonedWith", p.err))
	}
}
