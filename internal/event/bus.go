package event

import (
	"sync"
	"sync/atomic"
)

// DefaultBufferSize is the per-subscriber event buffer size.
const DefaultBufferSize = 64

// subscription is one subscriber's bounded delivery queue.
type subscription struct {
	id      uint64
	ch      chan Event
	dropped int
}

// Bus is a one-to-many event stream with bounded per-subscriber buffers.
// Publication never blocks: a subscriber that falls behind loses events
// and receives a SubscriberLaggedEvent describing how many were dropped
// once it drains enough of its backlog.
type Bus struct {
	mu     sync.Mutex
	subs   map[uint64]*subscription
	nextID atomic.Uint64
	closed bool
}

// NewBus creates a new event bus.
func NewBus() *Bus {
	return &Bus{subs: make(map[uint64]*subscription)}
}

// Subscribe registers a subscriber and returns its delivery channel plus
// a cancel function. The channel is closed on cancel or bus Close.
func (b *Bus) Subscribe() (<-chan Event, func()) {
	return b.SubscribeBuffered(DefaultBufferSize)
}

// SubscribeBuffered registers a subscriber with an explicit buffer size.
func (b *Bus) SubscribeBuffered(size int) (<-chan Event, func()) {
	if size <= 0 {
		size = DefaultBufferSize
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.nextID.Add(1)
	sub := &subscription{id: id, ch: make(chan Event, size)}
	if b.closed {
		close(sub.ch)
		return sub.ch, func() {}
	}
	b.subs[id] = sub

	cancel := func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if s, ok := b.subs[id]; ok {
			delete(b.subs, id)
			close(s.ch)
		}
	}
	return sub.ch, cancel
}

// Publish delivers an event to every subscriber without blocking. A full
// subscriber buffer drops the event and increments that subscriber's
// lag counter.
func (b *Bus) Publish(e Event) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}

	for _, sub := range b.subs {
		// Flush a pending lag notification first so the subscriber
		// learns about the gap in order.
		if sub.dropped > 0 {
			select {
			case sub.ch <- NewSubscriberLaggedEvent(sub.dropped):
				sub.dropped = 0
			default:
				sub.dropped++
				continue
			}
		}

		select {
		case sub.ch <- e:
		default:
			sub.dropped++
		}
	}
}

// SubscriberCount returns the number of active subscribers.
func (b *Bus) SubscriberCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}

// Close shuts the bus down and closes all subscriber channels.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}
	b.closed = true
	for id, sub := range b.subs {
		delete(b.subs, id)
		close(sub.ch)
	}
}
