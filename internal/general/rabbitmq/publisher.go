package rabbitmq

import (
	"context"
	"errors"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

const publishTimeout = 5 * time.Second

var (
	ErrNotConnected = errors.New("rabbitmq: connection is not open")
	ErrNotAcked     = errors.New("rabbitmq: publish not acknowledged")
)

// PublishMessage publishes a transient JSON message and waits for the broker
// confirm. Broadcasts are non-persistent: nothing is kept for late joiners.
func (client *Client) PublishMessage(ctx context.Context, routingKey string, body []byte) error {
	client.mu.RLock()
	ch := client.pubChan
	conn := client.conn
	client.mu.RUnlock()

	if conn == nil || conn.IsClosed() || ch == nil || ch.IsClosed() {
		return ErrNotConnected
	}

	client.pubMu.Lock()
	defer client.pubMu.Unlock()
	confirms := client.pubConfirms
	if confirms == nil {
		return ErrNotConnected
	}

	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	if err := ch.PublishWithContext(ctx, client.exchange, routingKey, false /* mandatory */, false, /* immediate */
		amqp.Publishing{
			DeliveryMode: amqp.Transient,
			ContentType:  "application/json",
			Timestamp:    time.Now().UTC(),
			Body:         body,
		},
	); err != nil {
		return err
	}

	select {
	case c, ok := <-confirms:
		if !ok {
			return ErrNotConnected
		}
		if !c.Ack {
			return ErrNotAcked
		}
	case <-ctx.Done():
		// keep the confirm stream aligned with publishes
		select {
		case c, ok := <-confirms:
			if ok && !c.Ack {
				return fmt.Errorf("%w after timeout", ErrNotAcked)
			}
		case <-time.After(2 * time.Second):
		}
		return ctx.Err()
	}

	return nil
}
