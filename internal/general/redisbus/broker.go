// Package redisbus implements the broadcast bus on Redis PUBLISH/SUBSCRIBE.
package redisbus

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"delivery-hub/internal/general/contracts"
	"delivery-hub/internal/general/lifecycle"
	"delivery-hub/internal/general/logger"
	"delivery-hub/internal/general/pubsub"

	"github.com/redis/go-redis/v9"
)

// Options configures the Redis connection.
type Options struct {
	Addr     string
	Password string
	DB       int
}

// Broker implements pubsub.Broker. Channel names map 1:1 onto Redis
// channels; the event filter is applied on receipt.
type Broker struct {
	client   *redis.Client
	producer string
	log      *logger.Logger
}

var _ pubsub.Broker = (*Broker)(nil)

// Connect dials Redis and verifies it with PING.
func Connect(ctx context.Context, opts Options, producer string, log *logger.Logger) (*Broker, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         opts.Addr,
		Password:     opts.Password,
		DB:           opts.DB,
		PoolSize:     50,
		MinIdleConns: 5,
		ReadTimeout:  500 * time.Millisecond,
		WriteTimeout: 500 * time.Millisecond,
		DialTimeout:  2 * time.Second,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}

	log.Info(ctx, "redis_connected", "Redis connection established", map[string]any{"addr": opts.Addr})
	return NewBroker(client, producer, log), nil
}

// NewBroker wraps an existing client.
func NewBroker(client *redis.Client, producer string, log *logger.Logger) *Broker {
	return &Broker{client: client, producer: producer, log: log}
}

// Publish sends one broadcast envelope to the Redis channel.
func (b *Broker) Publish(ctx context.Context, channel, event string, payload any) error {
	if err := pubsub.CheckPublish(channel, event); err != nil {
		return err
	}
	msg, err := contracts.NewBroadcast(channel, event, payload, b.producer)
	if err != nil {
		return err
	}
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}

	if err := b.client.Publish(ctx, channel, data).Err(); err != nil {
		return fmt.Errorf("redis publish %s: %w", channel, err)
	}
	return nil
}

// Subscribe opens a dedicated Redis subscription and waits for the server
// to confirm it before returning.
func (b *Broker) Subscribe(ctx context.Context, channel, event string, h pubsub.Handler) (*pubsub.Subscription, error) {
	if err := pubsub.CheckSubscribe(channel, h); err != nil {
		return nil, err
	}

	ps := b.client.Subscribe(ctx, channel)
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return nil, fmt.Errorf("redis subscribe %s: %w", channel, err)
	}

	msgs := ps.Channel()
	task := lifecycle.GoReentrant(context.WithoutCancel(ctx), func(ctx context.Context, call func(func())) {
		for {
			select {
			case <-ctx.Done():
				return
			case m, ok := <-msgs:
				if !ok {
					return
				}
				var msg contracts.Broadcast
				if err := json.Unmarshal([]byte(m.Payload), &msg); err != nil {
					b.log.Error(ctx, "broadcast_decode_failed", "Dropping undecodable broadcast", err,
						map[string]any{"channel": m.Channel})
					continue
				}
				if !contracts.Matches(event, msg.Event) {
					continue
				}
				call(func() { h(ctx, msg) })
			}
		}
	})

	return pubsub.NewSubscription(channel, event, func() {
		task.Dispose()
		_ = ps.Close()
	}), nil
}

// Close closes the Redis client.
func (b *Broker) Close() error {
	return b.client.Close()
}
