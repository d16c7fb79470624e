package rabbitmq

import (
	"context"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
)

const subscriberPrefetch = 32

// newConsumerChannel returns a fresh channel with prefetch (QoS) applied.
func (client *Client) newConsumerChannel(prefetch int) (*amqp.Channel, error) {
	client.mu.RLock()
	conn := client.conn
	client.mu.RUnlock()

	if conn == nil || conn.IsClosed() {
		return nil, ErrNotConnected
	}

	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("rabbitmq: open channel: %w", err)
	}

	if prefetch > 0 {
		if err := ch.Qos(prefetch, 0, false); err != nil {
			_ = ch.Close()
			return nil, fmt.Errorf("rabbitmq: set QoS (prefetch=%d): %w", prefetch, err)
		}
	}

	return ch, nil
}

// consumer is one live exclusive queue plus its delivery stream.
type consumer struct {
	ch         *amqp.Channel
	deliveries <-chan amqp.Delivery
	closed     chan *amqp.Error
}

// openConsumer declares a private queue bound to routingKey and starts
// consuming it with manual acks.
func (client *Client) openConsumer(routingKey string) (*consumer, error) {
	ch, err := client.newConsumerChannel(subscriberPrefetch)
	if err != nil {
		return nil, err
	}

	queue, err := declareSubscriberQueue(ch, client.exchange, routingKey)
	if err != nil {
		_ = ch.Close()
		return nil, err
	}

	deliveries, err := ch.Consume(
		queue,
		"",    // consumer tag
		false, // autoAck
		true,  // exclusive
		false, // noLocal
		false, // noWait
		nil,
	)
	if err != nil {
		_ = ch.Close()
		return nil, fmt.Errorf("rabbitmq: consume(%s): %w", queue, err)
	}

	return &consumer{
		ch:         ch,
		deliveries: deliveries,
		closed:     ch.NotifyClose(make(chan *amqp.Error, 1)),
	}, nil
}

// drain feeds deliveries to handle until ctx ends or the channel closes.
// A handler error drops the delivery.
func (c *consumer) drain(ctx context.Context, handle func(context.Context, amqp.Delivery) error) error {
	for {
		select {
		case <-ctx.Done():
			return nil

		case cerr := <-c.closed:
			if cerr != nil {
				return fmt.Errorf("rabbitmq: channel closed while consuming: %w", cerr)
			}
			return nil

		case d, ok := <-c.deliveries:
			if !ok {
				return nil
			}
			if err := handle(ctx, d); err != nil {
				_ = d.Nack(false, false)
				continue
			}
			_ = d.Ack(false)
		}
	}
}

func (c *consumer) close() {
	if c != nil && c.ch != nil {
		_ = c.ch.Close()
	}
}
