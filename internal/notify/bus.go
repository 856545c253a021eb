package notify

import (
	"context"
	"sync"
)

// Bus is an in-process Publisher with any number of subscribers.
type Bus struct {
	mu   sync.Mutex
	subs []*Subscription
}

// Subscription receives notifications from other origins.
type Subscription struct {
	self string
	ch   chan Notification
	bus  *Bus
}

// NewBus returns an empty Bus.
func NewBus() *Bus {
	return &Bus{}
}

// Subscribe registers a subscriber that ignores notifications from self.
// Delivery never blocks the publisher: once buffer notifications are waiting,
// further ones are dropped.
func (b *Bus) Subscribe(self string, buffer int) *Subscription {
	if buffer < 1 {
		buffer = 1
	}
	s := &Subscription{self: self, ch: make(chan Notification, buffer), bus: b}
	b.mu.Lock()
	b.subs = append(b.subs, s)
	b.mu.Unlock()
	return s
}

// Publish delivers n to every subscriber of another origin.
func (b *Bus) Publish(ctx context.Context, n Notification) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, s := range b.subs {
		if s.self == n.Origin {
			continue
		}
		select {
		case s.ch <- n:
		default:
		}
	}
	return nil
}

// C returns the delivery channel.
func (s *Subscription) C() <-chan Notification {
	return s.ch
}

// Close unsubscribes and closes the channel.
func (s *Subscription) Close() {
	b := s.bus
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, sub := range b.subs {
		if sub == s {
			b.subs = append(b.subs[:i], b.subs[i+1:]...)
			close(s.ch)
			return
		}
	}
}
