package pubsub

import (
	"context"
	"sync"
	"sync/atomic"

	"delivery-hub/internal/general/contracts"
)

type localSub struct {
	id      string
	event   string
	handler Handler
	active  atomic.Bool
	mu      sync.Mutex // serializes deliveries to this handler
}

// Local is an in-process Broker. Publish delivers synchronously to every
// matching subscriber in subscription order before returning.
type Local struct {
	producer string

	mu     sync.RWMutex
	subs   map[string][]*localSub
	closed bool
}

// NewLocal creates an in-process broker. producer is stamped on envelopes.
func NewLocal(producer string) *Local {
	return &Local{producer: producer, subs: make(map[string][]*localSub)}
}

// Publish fans payload out to all current subscribers of channel.
func (b *Local) Publish(ctx context.Context, channel, event string, payload any) error {
	if err := CheckPublish(channel, event); err != nil {
		return err
	}
	msg, err := contracts.NewBroadcast(channel, event, payload, b.producer)
	if err != nil {
		return err
	}

	b.mu.RLock()
	if b.closed {
		b.mu.RUnlock()
		return ErrClosed
	}
	snapshot := append([]*localSub(nil), b.subs[channel]...)
	b.mu.RUnlock()

	for _, s := range snapshot {
		if !contracts.Matches(s.event, event) {
			continue
		}
		s.deliver(ctx, msg)
	}
	return nil
}

func (s *localSub) deliver(ctx context.Context, msg contracts.Broadcast) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active.Load() {
		s.handler(ctx, msg)
	}
}

// Subscribe registers h for event on channel ("" or "*" for all events).
func (b *Local) Subscribe(_ context.Context, channel, event string, h Handler) (*Subscription, error) {
	if err := CheckSubscribe(channel, h); err != nil {
		return nil, err
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil, ErrClosed
	}

	s := &localSub{event: event, handler: h}
	s.active.Store(true)

	sub := NewSubscription(channel, event, func() { b.remove(channel, s) })
	s.id = sub.ID()
	b.subs[channel] = append(b.subs[channel], s)
	return sub, nil
}

func (b *Local) remove(channel string, s *localSub) {
	s.active.Store(false)

	b.mu.Lock()
	defer b.mu.Unlock()
	list := b.subs[channel]
	for i, cur := range list {
		if cur.id == s.id {
			list = append(list[:i:i], list[i+1:]...)
			break
		}
	}
	if len(list) == 0 {
		delete(b.subs, channel)
		return
	}
	b.subs[channel] = list
}

// Subscribers returns the number of live subscriptions on channel.
func (b *Local) Subscribers(channel string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs[channel])
}

// Close drops every subscription. Later calls return ErrClosed.
func (b *Local) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil
	}
	for _, list := range b.subs {
		for _, s := range list {
			s.active.Store(false)
		}
	}
	b.subs = make(map[string][]*localSub)
	b.closed = true
	return nil
}
