// Package pubsub defines the broadcast channel boundary shared by the
// tracking and chat services, plus an in-process implementation.
package pubsub

import (
	"context"
	"errors"
	"strings"

	"delivery-hub/internal/general/contracts"
	"delivery-hub/internal/general/lifecycle"

	"github.com/google/uuid"
)

var (
	ErrClosed       = errors.New("pubsub: broker closed")
	ErrEmptyChannel = errors.New("pubsub: channel name is required")
	ErrEmptyEvent   = errors.New("pubsub: event name is required")
	ErrNilHandler   = errors.New("pubsub: handler is required")
)

// Handler receives one broadcast. Brokers call a subscription's handler from
// a single goroutine, in arrival order. A handler may call Unsubscribe on its
// own subscription; no further deliveries start after that.
type Handler func(ctx context.Context, msg contracts.Broadcast)

// Broker is a named, ordered, at-most-once-per-subscriber broadcast bus.
// Every subscriber of a channel sees every matching publish made after it
// subscribed. Nothing is retained for late joiners.
type Broker interface {
	Publish(ctx context.Context, channel, event string, payload any) error
	Subscribe(ctx context.Context, channel, event string, h Handler) (*Subscription, error)
	Close() error
}

// Subscription is the handle returned by Subscribe.
type Subscription struct {
	id      string
	channel string
	event   string
	task    *lifecycle.Task
}

// NewSubscription builds a handle whose Unsubscribe runs release once.
func NewSubscription(channel, event string, release func()) *Subscription {
	return &Subscription{
		id:      uuid.NewString(),
		channel: channel,
		event:   event,
		task:    lifecycle.NewTask(release),
	}
}

func (s *Subscription) ID() string      { return s.id }
func (s *Subscription) Channel() string { return s.channel }
func (s *Subscription) Event() string   { return s.event }

// Unsubscribe detaches the handler and releases the channel. Idempotent.
func (s *Subscription) Unsubscribe() {
	if s == nil {
		return
	}
	s.task.Dispose()
}

// Active reports whether Unsubscribe has not yet been called.
func (s *Subscription) Active() bool {
	return s != nil && !s.task.Disposed()
}

// CheckPublish validates publish arguments for broker implementations.
func CheckPublish(channel, event string) error {
	if strings.TrimSpace(channel) == "" {
		return ErrEmptyChannel
	}
	if strings.TrimSpace(event) == "" || event == contracts.EventAny {
		return ErrEmptyEvent
	}
	return nil
}

// CheckSubscribe validates subscribe arguments for broker implementations.
func CheckSubscribe(channel string, h Handler) error {
	if strings.TrimSpace(channel) == "" {
		return ErrEmptyChannel
	}
	if h == nil {
		return ErrNilHandler
	}
	return nil
}
