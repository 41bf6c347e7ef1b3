package client

import (
	"sync"
	"sync/atomic"

	"go.uber.org/zap"
)

// Observer receives notifications. OnNotification is called from a goroutine
// dedicated to the observer, one notification at a time, in the order they
// were received.
type Observer interface {
	OnNotification(n Notification)
}

// ObserverFunc adapts a function to the Observer interface.
type ObserverFunc func(n Notification)

func (f ObserverFunc) OnNotification(n Notification) {
	f(n)
}

type subscriber struct {
	observer Observer
	queue    chan Notification

	// drained, if set, runs once the queue is closed and emptied
	drained func()
}

// sink fans notifications out to observers. publish never blocks, each
// observer has its own bounded queue and a full queue is handled according
// to the overflow policy.
type sink struct {
	mu     sync.Mutex
	subs   map[*subscriber]struct{}
	closed bool

	size    int
	policy  OverflowPolicy
	dropped atomic.Uint64

	log *zap.Logger
}

func newSink(size int, policy OverflowPolicy, log *zap.Logger) *sink {
	return &sink{
		subs:   make(map[*subscriber]struct{}),
		size:   size,
		policy: policy,
		log:    log,
	}
}

func (s *sink) subscribe(observer Observer, drained func()) (unsubscribe func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		if drained != nil {
			drained()
		}

		return func() {}
	}

	sub := &subscriber{
		observer: observer,
		queue:    make(chan Notification, s.size),
		drained:  drained,
	}

	s.subs[sub] = struct{}{}

	go func() {
		for n := range sub.queue {
			s.deliver(sub, n)
		}

		if sub.drained != nil {
			sub.drained()
		}
	}()

	var once sync.Once

	return func() {
		once.Do(func() { s.remove(sub) })
	}
}

func (s *sink) remove(sub *subscriber) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.subs[sub]; ok {
		delete(s.subs, sub)
		close(sub.queue)
	}
}

func (s *sink) publish(n Notification) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for sub := range s.subs {
		s.offer(sub, n)
	}
}

func (s *sink) offer(sub *subscriber, n Notification) {
	select {
	case sub.queue <- n:
		return

	default:
	}

	if s.policy == OverflowDropOldest {
		// Only publish adds to the queue and it holds s.mu, so once an item has
		// been taken there is room for n.
		select {
		case old := <-sub.queue:
			s.dropped.Add(1)
			s.log.Warn("Notification queue full, dropped oldest notification",
				zap.String("category", old.Category))

		default:
		}

		select {
		case sub.queue <- n:
			return

		default:
		}
	}

	s.dropped.Add(1)
	s.log.Warn("Notification queue full, dropped notification",
		zap.String("category", n.Category))
}

func (s *sink) deliver(sub *subscriber, n Notification) {
	defer func() {
		if r := recover(); r != nil {
			s.log.Error("Notification observer panicked",
				zap.String("category", n.Category),
				zap.Any("panic", r))
		}
	}()

	sub.observer.OnNotification(n)
}

// close stops accepting subscribers and closes every subscriber queue.
// Notifications already queued are still delivered.
func (s *sink) close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}

	s.closed = true

	for sub := range s.subs {
		delete(s.subs, sub)
		close(sub.queue)
	}
}
