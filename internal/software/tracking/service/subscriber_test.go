package service

import (
	"context"
	"testing"

	"delivery-hub/internal/domain/geo"
	"delivery-hub/internal/general/contracts"
	"delivery-hub/internal/general/logger"
	"delivery-hub/internal/general/pubsub"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type positions struct{ got []geo.Position }

func (p *positions) add(pos geo.Position) { p.got = append(p.got, pos) }

func publishPosition(t *testing.T, b pubsub.Broker, orderID string, pos geo.Position) {
	t.Helper()
	require.NoError(t, b.Publish(context.Background(), contracts.TrackingChannel(orderID), contracts.EventPositionBroadcast, pos))
}

func TestSubscriberFanOut(t *testing.T) {
	ctx := context.Background()
	broker := pubsub.NewLocal("test")
	sub := NewSubscriber(broker, logger.Discard())
	var a, b positions

	_, err := sub.Subscribe(ctx, "ord-1", a.add)
	require.NoError(t, err)
	_, err = sub.Subscribe(ctx, "ord-1", b.add)
	require.NoError(t, err)

	publishPosition(t, broker, "ord-1", position(1000))

	require.Len(t, a.got, 1)
	require.Len(t, b.got, 1)
	assert.Equal(t, a.got[0], b.got[0])
	assert.Equal(t, position(1000), a.got[0])
}

func TestSubscriberUnsubscribeStopsDelivery(t *testing.T) {
	ctx := context.Background()
	broker := pubsub.NewLocal("test")
	sub := NewSubscriber(broker, logger.Discard())
	var p positions

	handle, err := sub.Subscribe(ctx, "ord-1", p.add)
	require.NoError(t, err)
	publishPosition(t, broker, "ord-1", position(1000))

	handle.Unsubscribe()
	handle.Unsubscribe()
	publishPosition(t, broker, "ord-1", position(2000))

	assert.Len(t, p.got, 1)
	assert.Zero(t, broker.Subscribers(contracts.TrackingChannel("ord-1")))
}

func TestSubscriberIgnoresOtherOrdersAndEvents(t *testing.T) {
	ctx := context.Background()
	broker := pubsub.NewLocal("test")
	sub := NewSubscriber(broker, logger.Discard())
	var p positions

	_, err := sub.Subscribe(ctx, "ord-1", p.add)
	require.NoError(t, err)

	publishPosition(t, broker, "ord-2", position(1000))
	require.NoError(t, broker.Publish(ctx, contracts.TrackingChannel("ord-1"), "driver_waved", position(1000)))
	require.NoError(t, broker.Publish(ctx, contracts.TrackingChannel("ord-1"), contracts.EventPositionBroadcast, "not a position"))

	assert.Empty(t, p.got)
}

func TestSubscriberDeliversOutOfOrderByDefault(t *testing.T) {
	ctx := context.Background()
	broker := pubsub.NewLocal("test")
	var p positions

	_, err := NewSubscriber(broker, nil).Subscribe(ctx, "ord-1", p.add)
	require.NoError(t, err)

	publishPosition(t, broker, "ord-1", position(2000))
	publishPosition(t, broker, "ord-1", position(1000))

	assert.Len(t, p.got, 2)
}

func TestSubscriberStaleFilter(t *testing.T) {
	ctx := context.Background()
	broker := pubsub.NewLocal("test")
	sub := NewSubscriber(broker, logger.Discard(), WithStaleFilter())
	var first, second positions

	_, err := sub.Subscribe(ctx, "ord-1", first.add)
	require.NoError(t, err)

	publishPosition(t, broker, "ord-1", position(2000))
	publishPosition(t, broker, "ord-1", position(1000)) // older
	publishPosition(t, broker, "ord-1", position(2000)) // duplicate

	// a fresh subscription keeps its own watermark
	_, err = sub.Subscribe(ctx, "ord-1", second.add)
	require.NoError(t, err)
	publishPosition(t, broker, "ord-1", position(1500))
	publishPosition(t, broker, "ord-1", position(3000))

	require.Len(t, first.got, 2)
	assert.Equal(t, int64(2000), first.got[0].CapturedAtEpochMs)
	assert.Equal(t, int64(3000), first.got[1].CapturedAtEpochMs)
	require.Len(t, second.got, 2)
	assert.Equal(t, int64(1500), second.got[0].CapturedAtEpochMs)
}

func TestSubscriberValidation(t *testing.T) {
	sub := NewSubscriber(pubsub.NewLocal("test"), logger.Discard())
	_, err := sub.Subscribe(context.Background(), "bad id", func(geo.Position) {})
	require.Error(t, err)
	_, err = sub.Subscribe(context.Background(), "ord-1", nil)
	require.ErrorIs(t, err, pubsub.ErrNilHandler)
}
