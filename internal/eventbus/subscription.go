package eventbus

import (
	"context"
	"sync"
	"sync/atomic"
)

// Subscription is one subscriber's bounded queue on a Bus. Events are kept in
// a fixed ring; pushing into a full ring evicts the oldest pending event.
type Subscription struct {
	id  string
	bus *Bus

	mu     sync.Mutex
	ring   []Event
	head   int
	size   int
	closed bool

	notify    chan struct{}
	done      chan struct{}
	closeOnce sync.Once
	dropped   atomic.Uint64
}

func newSubscription(id string, bus *Bus, capacity int) *Subscription {
	return &Subscription{
		id:     id,
		bus:    bus,
		ring:   make([]Event, capacity),
		notify: make(chan struct{}, 1),
		done:   make(chan struct{}),
	}
}

func (s *Subscription) ID() string {
	return s.id
}

// Next blocks until an event is pending, the subscription closes (ErrClosed),
// or ctx is done.
func (s *Subscription) Next(ctx context.Context) (Event, error) {
	for {
		s.mu.Lock()
		if s.closed {
			s.mu.Unlock()
			return Event{}, ErrClosed
		}
		if s.size > 0 {
			evt := s.ring[s.head]
			s.ring[s.head] = Event{}
			s.head = (s.head + 1) % len(s.ring)
			s.size--
			s.mu.Unlock()
			return evt, nil
		}
		s.mu.Unlock()

		select {
		case <-ctx.Done():
			return Event{}, ctx.Err()
		case <-s.done:
		case <-s.notify:
		}
	}
}

// Deliver enqueues events for this subscriber only, in order, under the same
// drop-oldest policy as Publish.
func (s *Subscription) Deliver(events ...Event) {
	for _, evt := range events {
		s.push(evt)
	}
}

// Pending reports how many events are queued and not yet taken by Next.
func (s *Subscription) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.size
}

// Dropped reports how many events this subscriber lost to overflow.
func (s *Subscription) Dropped() uint64 {
	return s.dropped.Load()
}

// Done is closed when the subscription is detached.
func (s *Subscription) Done() <-chan struct{} {
	return s.done
}

// Close detaches the subscription from its bus.
func (s *Subscription) Close() {
	if s.bus != nil {
		s.bus.Detach(s)
		return
	}
	s.close()
}

func (s *Subscription) push(evt Event) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	evicted := false
	if s.size == len(s.ring) {
		s.ring[s.head] = Event{}
		s.head = (s.head + 1) % len(s.ring)
		s.size--
		evicted = true
	}
	s.ring[(s.head+s.size)%len(s.ring)] = evt
	s.size++
	s.mu.Unlock()

	if evicted {
		s.dropped.Add(1)
		if s.bus != nil {
			s.bus.recordDrop()
		}
	}
	select {
	case s.notify <- struct{}{}:
	default:
	}
}

func (s *Subscription) close() {
	s.closeOnce.Do(func() {
		s.mu.Lock()
		s.closed = true
		for i := range s.ring {
			s.ring[i] = Event{}
		}
		s.size = 0
		s.mu.Unlock()
		close(s.done)
	})
}
