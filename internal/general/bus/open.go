// Package bus selects the pub/sub backend named by broker.driver.
package bus

import (
	"context"
	"fmt"

	"delivery-hub/internal/general/config"
	"delivery-hub/internal/general/logger"
	"delivery-hub/internal/general/pubsub"
	"delivery-hub/internal/general/rabbitmq"
	"delivery-hub/internal/general/redisbus"
)

// Open connects the configured broker. producer is stamped on every envelope.
func Open(ctx context.Context, cfg *config.Config, producer string, log *logger.Logger) (pubsub.Broker, error) {
	switch cfg.Broker.Driver {
	case config.BrokerRabbitMQ:
		client, err := rabbitmq.Connect(ctx, cfg.RabbitMQURL(), cfg.RabbitMQ.Exchange, log)
		if err != nil {
			return nil, fmt.Errorf("connect rabbitmq: %w", err)
		}
		return rabbitmq.NewBroker(client, producer, log), nil

	case config.BrokerRedis:
		b, err := redisbus.Connect(ctx, redisbus.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		}, producer, log)
		if err != nil {
			return nil, fmt.Errorf("connect redis: %w", err)
		}
		return b, nil

	case config.BrokerMemory:
		log.Info(ctx, "broker_in_memory", "Using the in-process broker; events stay on this node", nil)
		return pubsub.NewLocal(producer), nil

	default:
		return nil, fmt.Errorf("unknown broker driver %q", cfg.Broker.Driver)
	}
}

// Shared reports whether the driver fans out across nodes.
func Shared(cfg *config.Config) bool {
	return cfg.Broker.Driver != config.BrokerMemory
}
