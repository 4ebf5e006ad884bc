// Package events fans out state-change values to any number of subscribers.
//
// Each subscriber owns a bounded buffer. When a buffer is full the oldest
// pending value is dropped, so a slow subscriber only ever misses
// intermediate values and never sees them out of order.
package events

import "sync"

// defaultBuffer is the per-subscriber queue length.
const defaultBuffer = 32

// Broker publishes values of type T to its subscribers.
type Broker[T any] struct {
	mu     sync.Mutex
	subs   map[*Subscription[T]]struct{}
	buffer int
}

// NewBroker returns a broker whose subscribers buffer up to buffer values.
func NewBroker[T any](buffer int) *Broker[T] {
	if buffer <= 0 {
		buffer = defaultBuffer
	}
	return &Broker[T]{
		subs:   make(map[*Subscription[T]]struct{}),
		buffer: buffer,
	}
}

// Subscription is one consumer's view of a broker.
type Subscription[T any] struct {
	ch     chan T
	broker *Broker[T]
	once   sync.Once
}

// C returns the channel values are delivered on. It is closed by Close.
func (s *Subscription[T]) C() <-chan T {
	return s.ch
}

// Close detaches the subscription and closes its channel.
func (s *Subscription[T]) Close() {
	s.once.Do(func() {
		s.broker.mu.Lock()
		delete(s.broker.subs, s)
		close(s.ch)
		s.broker.mu.Unlock()
	})
}

// Subscribe registers a new subscriber.
func (b *Broker[T]) Subscribe() *Subscription[T] {
	s := &Subscription[T]{
		ch:     make(chan T, b.buffer),
		broker: b,
	}
	b.mu.Lock()
	b.subs[s] = struct{}{}
	b.mu.Unlock()
	return s
}

// Publish delivers v to every subscriber without blocking.
func (b *Broker[T]) Publish(v T) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for s := range b.subs {
		select {
		case s.ch <- v:
			continue
		default:
		}
		// full: drop the oldest pending value, then retry once
		select {
		case <-s.ch:
		default:
		}
		select {
		case s.ch <- v:
		default:
		}
	}
}

// Len returns the number of active subscribers.
func (b *Broker[T]) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}
