package client

import (
	"container/list"
	"sync"
	"time"
)

// Shape is the form a reply is expected to take.
type Shape int

const (
	// ShapeAny accepts both single-line and multi-line replies
	ShapeAny Shape = iota
	// ShapeSingle expects a SUCCESS/ERROR line
	ShapeSingle
	// ShapeBlock expects a multi-line block, or an ERROR line
	ShapeBlock
)

func (s Shape) String() string {
	switch s {
	case ShapeSingle:
		return "single-line"
	case ShapeBlock:
		return "block"
	default:
		return "any"
	}
}

// Expectation describes the reply a command should get. The protocol has no
// request IDs, so this is the only way to notice that a reply doesn't
// belong to the command at the head of the queue.
type Expectation struct {
	Shape Shape

	// Prefix, when set, must start the body of a successful single-line reply
	Prefix string
}

// pendingCommand is a command that has been written and is waiting for its
// reply.
type pendingCommand struct {
	command  string
	expect   Expectation
	deadline time.Time

	once sync.Once
	done chan struct{}

	info ReceiveInfo
	err  error
}

func newPendingCommand(command string, expect Expectation, deadline time.Time) *pendingCommand {
	return &pendingCommand{
		command:  command,
		expect:   expect,
		deadline: deadline,
		done:     make(chan struct{}),
	}
}

// complete resolves the command. Only the first call has any effect, it
// returns false for every later call.
func (p *pendingCommand) complete(info ReceiveInfo, err error) bool {
	completed := false

	p.once.Do(func() {
		p.info = info
		p.err = err
		completed = true
		close(p.done)
	})

	return completed
}

// isDone returns true once complete has been called.
func (p *pendingCommand) isDone() bool {
	select {
	case <-p.done:
		return true

	default:
		return false
	}
}

// pendingQueue is the FIFO of commands waiting for a reply.
//
// Entries are only removed by the read loop as their reply is consumed, or
// by failAll. A command that timed out or was cancelled keeps its place so
// that its late reply is swallowed rather than handed to the next command.
type pendingQueue struct {
	mu       sync.Mutex
	items    *list.List
	closed   bool
	closeErr error
}

func newPendingQueue() *pendingQueue {
	return &pendingQueue{items: list.New()}
}

// push appends p. It fails with the close error once the queue is closed.
func (q *pendingQueue) push(p *pendingCommand) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return q.closeErr
	}

	q.items.PushBack(p)

	return nil
}

// front returns the oldest command, or nil if nothing is waiting.
func (q *pendingQueue) front() *pendingCommand {
	q.mu.Lock()
	defer q.mu.Unlock()

	e := q.items.Front()
	if e == nil {
		return nil
	}

	return e.Value.(*pendingCommand)
}

// popFront removes p if it is still the oldest command.
func (q *pendingQueue) popFront(p *pendingCommand) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if e := q.items.Front(); e != nil && e.Value.(*pendingCommand) == p {
		q.items.Remove(e)
	}
}

func (q *pendingQueue) len() int {
	q.mu.Lock()
	defer q.mu.Unlock()

	return q.items.Len()
}

// failAll closes the queue and resolves every command in it with err in a
// single sweep. Only the first call has any effect.
func (q *pendingQueue) failAll(err error) int {
	q.mu.Lock()

	if q.closed {
		q.mu.Unlock()
		return 0
	}

	q.closed = true
	q.closeErr = err

	items := q.items
	q.items = list.New()

	q.mu.Unlock()

	failed := 0

	for e := items.Front(); e != nil; e = e.Next() {
		if e.Value.(*pendingCommand).complete(ReceiveInfo{}, err) {
			failed++
		}
	}

	return failed
}
