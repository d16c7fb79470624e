package rabbitmq

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"delivery-hub/internal/general/contracts"
	"delivery-hub/internal/general/lifecycle"
	"delivery-hub/internal/general/logger"
	"delivery-hub/internal/general/pubsub"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Broker implements pubsub.Broker over a topic exchange. The routing key is
// <channel>.<event>; each subscription owns an exclusive queue.
type Broker struct {
	client   *Client
	producer string
	log      *logger.Logger
}

var _ pubsub.Broker = (*Broker)(nil)

// NewBroker wraps a connected client.
func NewBroker(client *Client, producer string, log *logger.Logger) *Broker {
	return &Broker{client: client, producer: producer, log: log}
}

// Publish sends one broadcast envelope.
func (b *Broker) Publish(ctx context.Context, channel, event string, payload any) error {
	if err := pubsub.CheckPublish(channel, event); err != nil {
		return err
	}
	msg, err := contracts.NewBroadcast(channel, event, payload, b.producer)
	if err != nil {
		return err
	}
	body, err := json.Marshal(msg)
	if err != nil {
		return err
	}

	return b.client.PublishMessage(ctx, contracts.RoutingKey(channel, event), body)
}

// Subscribe binds a private queue before returning, so every publish made
// after Subscribe returns reaches h. The queue is re-created after a
// reconnect; broadcasts sent while disconnected are lost.
func (b *Broker) Subscribe(ctx context.Context, channel, event string, h pubsub.Handler) (*pubsub.Subscription, error) {
	if err := pubsub.CheckSubscribe(channel, h); err != nil {
		return nil, err
	}
	if b.client.isClosed() {
		return nil, pubsub.ErrClosed
	}

	routingKey := contracts.RoutingKey(channel, event)
	first, err := b.client.openConsumer(routingKey)
	if err != nil {
		return nil, fmt.Errorf("rabbitmq: subscribe %s: %w", routingKey, err)
	}

	task := lifecycle.GoReentrant(context.WithoutCancel(ctx), func(ctx context.Context, call func(func())) {
		b.consumeLoop(ctx, routingKey, first, func(ctx context.Context, d amqp.Delivery) error {
			msg, err := decodeBroadcast(d.Body)
			if err != nil {
				b.log.Error(ctx, "broadcast_decode_failed", "Dropping undecodable broadcast", err,
					map[string]any{"routing_key": d.RoutingKey})
				return err
			}
			if msg.Channel != channel || !contracts.Matches(event, msg.Event) {
				return nil
			}
			call(func() { h(ctx, msg) })
			return nil
		})
	})

	return pubsub.NewSubscription(channel, event, task.Dispose), nil
}

func (b *Broker) consumeLoop(ctx context.Context, routingKey string, c *consumer, handle func(context.Context, amqp.Delivery) error) {
	backoff := time.Second
	for {
		err := c.drain(ctx, handle)
		c.close()
		if ctx.Err() != nil || b.client.isClosed() {
			return
		}
		if err != nil {
			b.log.Error(ctx, "broadcast_subscription_interrupted", "Subscriber channel closed; re-binding", err,
				map[string]any{"routing_key": routingKey})
		}

		for {
			select {
			case <-ctx.Done():
				return
			case <-b.client.closed:
				return
			case <-time.After(backoff):
			}

			c, err = b.client.openConsumer(routingKey)
			if err == nil {
				backoff = time.Second
				break
			}
			b.log.Error(ctx, "broadcast_resubscribe_failed", "Failed to re-bind subscriber queue", err,
				map[string]any{"routing_key": routingKey, "backoff": backoff.String()})
			backoff = nextBackoff(backoff)
		}
	}
}

// Close closes the underlying client. Live subscriptions end.
func (b *Broker) Close() error {
	b.client.Close()
	return nil
}

func decodeBroadcast(body []byte) (contracts.Broadcast, error) {
	var msg contracts.Broadcast
	if err := json.Unmarshal(body, &msg); err != nil {
		return contracts.Broadcast{}, err
	}
	if msg.Type != contracts.TypeBroadcast || msg.Event == "" {
		return contracts.Broadcast{}, fmt.Errorf("rabbitmq: not a broadcast envelope (type=%q event=%q)", msg.Type, msg.Event)
	}
	return msg, nil
}
