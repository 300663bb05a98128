package eventbus

import (
	"sync"
	"sync/atomic"

	"github.com/Twirlie/discordbot/internal/idgen"
	"github.com/Twirlie/discordbot/internal/metrics"
)

const DefaultQueueCapacity = 100

type Config struct {
	// QueueCapacity bounds each subscriber's pending events. Zero or less uses
	// DefaultQueueCapacity.
	QueueCapacity int
}

// Bus fans events out to every attached Subscription. It keeps no history.
// Publish never waits on a subscriber: a full queue drops its oldest event.
type Bus struct {
	capacity int

	mu     sync.RWMutex
	subs   map[string]*Subscription
	closed bool

	published atomic.Uint64
	dropped   atomic.Uint64
}

func NewBus(cfg Config) *Bus {
	capacity := cfg.QueueCapacity
	if capacity <= 0 {
		capacity = DefaultQueueCapacity
	}
	return &Bus{capacity: capacity, subs: map[string]*Subscription{}}
}

// Attach registers a new subscriber queue. Attaching to a closed bus returns a
// subscription that is already closed.
func (b *Bus) Attach() *Subscription {
	sub := newSubscription(idgen.Subscription(), b, b.capacity)

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		sub.close()
		return sub
	}
	b.subs[sub.id] = sub
	b.mu.Unlock()
	return sub
}

// Detach removes sub from the bus and closes it. Safe to call more than once
// and concurrently with Publish.
func (b *Bus) Detach(sub *Subscription) {
	if sub == nil {
		return
	}
	b.mu.Lock()
	if cur, ok := b.subs[sub.id]; ok && cur == sub {
		delete(b.subs, sub.id)
	}
	b.mu.Unlock()
	sub.close()
}

func (b *Bus) Publish(event Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return
	}
	b.published.Add(1)
	metrics.IncPublished()
	for _, sub := range b.subs {
		sub.push(event)
	}
}

// Close detaches every subscriber. Later publishes are discarded.
func (b *Bus) Close() {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.closed = true
	subs := b.subs
	b.subs = map[string]*Subscription{}
	b.mu.Unlock()

	for _, sub := range subs {
		sub.close()
	}
}

func (b *Bus) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}

func (b *Bus) QueueCapacity() int {
	return b.capacity
}

// Published reports how many events were accepted by Publish.
func (b *Bus) Published() uint64 {
	return b.published.Load()
}

// Dropped reports the total number of events evicted from slow subscribers.
func (b *Bus) Dropped() uint64 {
	return b.dropped.Load()
}

func (b *Bus) recordDrop() {
	b.dropped.Add(1)
	metrics.IncDropped()
}
