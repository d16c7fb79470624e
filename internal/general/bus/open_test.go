package bus

import (
	"context"
	"testing"

	"delivery-hub/internal/general/config"
	"delivery-hub/internal/general/logger"
	"delivery-hub/internal/general/pubsub"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpen(t *testing.T) {
	ctx := context.Background()

	t.Run("memory", func(t *testing.T) {
		cfg := &config.Config{}
		cfg.Broker.Driver = config.BrokerMemory

		b, err := Open(ctx, cfg, "test", logger.Discard())
		require.NoError(t, err)
		t.Cleanup(func() { _ = b.Close() })
		assert.IsType(t, &pubsub.Local{}, b)
		assert.False(t, Shared(cfg))
	})

	t.Run("unknown driver", func(t *testing.T) {
		cfg := &config.Config{}
		cfg.Broker.Driver = "kafka"

		_, err := Open(ctx, cfg, "test", logger.Discard())
		assert.ErrorContains(t, err, "kafka")
	})

	t.Run("shared drivers", func(t *testing.T) {
		cfg := &config.Config{}
		for _, d := range []string{config.BrokerRabbitMQ, config.BrokerRedis} {
			cfg.Broker.Driver = d
			assert.True(t, Shared(cfg), d)
		}
	})
}
