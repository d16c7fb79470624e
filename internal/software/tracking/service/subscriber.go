package service

import (
	"context"
	"encoding/json"
	"sync/atomic"

	"delivery-hub/internal/domain/geo"
	"delivery-hub/internal/domain/order"
	"delivery-hub/internal/general/contracts"
	"delivery-hub/internal/general/logger"
	"delivery-hub/internal/general/pubsub"
	"delivery-hub/internal/ports"
)

// Subscriber delivers an order's position broadcasts to a handler.
type Subscriber struct {
	broker      pubsub.Broker
	logger      *logger.Logger
	staleFilter bool
}

var _ ports.PositionSubscriber = (*Subscriber)(nil)

// SubscriberOption configures a Subscriber.
type SubscriberOption func(*Subscriber)

// WithStaleFilter drops a position whose capture time is not newer than the
// last one delivered on the same subscription.
func WithStaleFilter() SubscriberOption {
	return func(s *Subscriber) { s.staleFilter = true }
}

// NewSubscriber builds a Subscriber over broker.
func NewSubscriber(broker pubsub.Broker, log *logger.Logger, opts ...SubscriberOption) *Subscriber {
	if log == nil {
		log = logger.Discard()
	}
	s := &Subscriber{broker: broker, logger: log}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Subscribe joins the order's tracking channel. onPosition runs on the
// broker's delivery goroutine, once per broadcast, in arrival order.
func (s *Subscriber) Subscribe(ctx context.Context, orderID string, onPosition func(geo.Position)) (*pubsub.Subscription, error) {
	if err := order.ValidateID(orderID); err != nil {
		return nil, err
	}
	if onPosition == nil {
		return nil, pubsub.ErrNilHandler
	}

	var lastCaptured atomic.Int64
	handler := func(ctx context.Context, msg contracts.Broadcast) {
		var pos geo.Position
		if err := json.Unmarshal(msg.Payload, &pos); err != nil {
			s.logger.Error(ctx, "position_decode_failed", "Dropping malformed position broadcast", err,
				map[string]any{"order_id": orderID})
			return
		}

		if s.staleFilter {
			prev := lastCaptured.Load()
			if pos.CapturedAtEpochMs <= prev {
				s.logger.Debug(ctx, "position_out_of_order", "Dropping position older than the last delivered", map[string]any{
					"order_id":       orderID,
					"captured_at_ms": pos.CapturedAtEpochMs,
					"last_ms":        prev,
				})
				return
			}
			lastCaptured.Store(pos.CapturedAtEpochMs)
		}

		onPosition(pos)
	}

	return s.broker.Subscribe(ctx, contracts.TrackingChannel(orderID), contracts.EventPositionBroadcast, handler)
}
