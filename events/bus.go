package events

import (
	"context"
	"sync"
)

// Event is a single bus notification: a type tag plus a JSON-able payload.
type Event struct {
	Type string
	Data map[string]any
}

// Bus is a single-topic broadcast channel that additionally retains the
// most recently published event. A subscription created after a publish
// receives that retained event as its first item, then live events in
// publish order. Publishing never blocks, with or without subscribers.
//
// Delivery queues are unbounded: a slow consumer accumulates memory. This
// is a single-operator status channel, not a message broker.
type Bus struct {
	mu     sync.Mutex
	latest *Event
	subs   map[*Subscription]struct{}
}

func NewBus() *Bus {
	return &Bus{subs: make(map[*Subscription]struct{})}
}

// Publish overwrites the retained latest event and enqueues the event for
// every current subscriber.
func (b *Bus) Publish(e Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	latest := e
	b.latest = &latest
	for s := range b.subs {
		s.push(e)
	}
}

// Subscribe registers a new subscriber. If an event was published before
// the subscription began, it is already queued as the first item. The
// caller must Close the subscription when done.
func (b *Bus) Subscribe() *Subscription {
	s := &Subscription{bus: b, wake: make(chan struct{}, 1)}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.latest != nil {
		s.queue = append(s.queue, *b.latest)
	}
	b.subs[s] = struct{}{}
	return s
}

func (b *Bus) unsubscribe(s *Subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.subs, s)
}

// Subscribers reports the number of live subscriptions.
func (b *Bus) Subscribers() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}

// Subscription is one subscriber's view of the bus: a private queue fed in
// publish order.
type Subscription struct {
	bus   *Bus
	mu    sync.Mutex
	queue []Event
	wake  chan struct{}
}

func (s *Subscription) push(e Event) {
	s.mu.Lock()
	s.queue = append(s.queue, e)
	s.mu.Unlock()
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

// Next blocks until an event is available or ctx is done.
func (s *Subscription) Next(ctx context.Context) (Event, error) {
	for {
		s.mu.Lock()
		if len(s.queue) > 0 {
			e := s.queue[0]
			s.queue = s.queue[1:]
			s.mu.Unlock()
			return e, nil
		}
		s.mu.Unlock()

		select {
		case <-ctx.Done():
			return Event{}, ctx.Err()
		case <-s.wake:
		}
	}
}

// Close detaches the subscription from the bus. Pending events are dropped.
func (s *Subscription) Close() {
	s.bus.unsubscribe(s)
}
