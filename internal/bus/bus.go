// Package bus provides a process-local publish/subscribe channel. It exists
// so components that emit notifications (the confirmation flow) depend on an
// explicit, injectable value instead of an ambient event system.
package bus

import "sync"

// Bus fans messages out to all current subscribers. Publish never blocks:
// a subscriber that cannot keep up misses messages instead of stalling the
// publisher.
type Bus[T any] struct {
	mu     sync.Mutex
	nextID int
	subs   map[int]chan T
	buffer int
}

// New creates a bus whose subscriber channels hold up to buffer messages.
func New[T any](buffer int) *Bus[T] {
	if buffer < 1 {
		buffer = 1
	}
	return &Bus[T]{
		subs:   make(map[int]chan T),
		buffer: buffer,
	}
}

// Subscribe registers a new subscriber and returns its channel plus a
// cancel function. Cancel closes the channel and drops the registration.
func (b *Bus[T]) Subscribe() (<-chan T, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.nextID
	b.nextID++
	ch := make(chan T, b.buffer)
	b.subs[id] = ch

	cancel := func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if sub, ok := b.subs[id]; ok {
			delete(b.subs, id)
			close(sub)
		}
	}
	return ch, cancel
}

// Publish delivers msg to every subscriber whose buffer has room.
func (b *Bus[T]) Publish(msg T) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, ch := range b.subs {
		select {
		case ch <- msg:
		default:
			// Subscriber is full; drop rather than block the publisher.
		}
	}
}

// Len returns the number of active subscribers.
func (b *Bus[T]) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}
