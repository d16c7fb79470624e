package service

import (
	"context"
	"errors"
	"sync"

	"delivery-hub/internal/domain/geo"
	"delivery-hub/internal/domain/order"
	"delivery-hub/internal/general/contracts"
	"delivery-hub/internal/general/lifecycle"
	"delivery-hub/internal/general/sensor"
)

// State of a Broadcaster.
type State string

const (
	StateIdle         State = "idle"
	StateBroadcasting State = "broadcasting"
)

// Broadcaster turns one driver's position stream into periodic publishes on
// an order's tracking channel. At most one loop runs per instance; create
// one instance per driver connection.
type Broadcaster struct {
	cfg BroadcasterConfig

	mu      sync.Mutex // guards orderID and session
	orderID string
	session *lifecycle.Task

	posMu sync.RWMutex // guards last; written by the watch, read by the ticker
	last  *geo.Position
}

// NewBroadcaster builds an idle broadcaster.
func NewBroadcaster(cfg BroadcasterConfig) *Broadcaster {
	cfg.withDefaults()
	return &Broadcaster{cfg: cfg}
}

// Start tears down any active loop, then watches the source and publishes
// the latest reading every interval. Ticks before the first reading are
// skipped.
func (b *Broadcaster) Start(ctx context.Context, orderID string) error {
	if err := order.ValidateID(orderID); err != nil {
		return err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	b.stopLocked()

	loopCtx := context.WithoutCancel(ctx)
	watch, err := b.cfg.Source.Watch(b.cfg.Watch, b.capture, func(err error) {
		b.sensorError(loopCtx, orderID, err)
	})
	if err != nil {
		return err
	}

	ticker := b.cfg.NewTicker(b.cfg.Interval)
	channel := contracts.TrackingChannel(orderID)
	loop := lifecycle.Go(loopCtx, func(ctx context.Context) {
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C():
				b.publishLatest(ctx, channel, orderID)
			}
		}
	})

	b.session = lifecycle.Compose(
		lifecycle.NewTask(watch.Clear),
		lifecycle.NewTask(ticker.Stop),
		loop,
	)
	b.orderID = orderID

	b.cfg.Logger.Info(loopCtx, "broadcast_started", "Location broadcast started", map[string]any{
		"order_id": orderID,
		"interval": b.cfg.Interval.String(),
	})
	return nil
}

// Stop releases the watch, the ticker and the loop, and forgets the last
// position. Safe to call when idle.
func (b *Broadcaster) Stop() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.stopLocked()
}

func (b *Broadcaster) stopLocked() {
	if b.session == nil {
		return
	}
	b.session.Dispose()

	b.posMu.Lock()
	b.last = nil
	b.posMu.Unlock()

	b.cfg.Logger.Info(context.Background(), "broadcast_stopped", "Location broadcast stopped",
		map[string]any{"order_id": b.orderID})
	b.session = nil
	b.orderID = ""
}

// State reports Idle or Broadcasting.
func (b *Broadcaster) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.session == nil {
		return StateIdle
	}
	return StateBroadcasting
}

// OrderID is the order being broadcast, or "" when idle.
func (b *Broadcaster) OrderID() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.orderID
}

// LastPosition returns the latest captured reading, if any.
func (b *Broadcaster) LastPosition() (geo.Position, bool) {
	b.posMu.RLock()
	defer b.posMu.RUnlock()
	if b.last == nil {
		return geo.Position{}, false
	}
	return *b.last, true
}

// capture replaces the last reading. Readings are never queued.
func (b *Broadcaster) capture(pos geo.Position) {
	b.posMu.Lock()
	b.last = &pos
	b.posMu.Unlock()
}

func (b *Broadcaster) publishLatest(ctx context.Context, channel, orderID string) {
	pos, ok := b.LastPosition()
	if !ok {
		return
	}

	if err := b.cfg.Broker.Publish(ctx, channel, contracts.EventPositionBroadcast, pos); err != nil {
		b.cfg.Logger.Error(ctx, "position_publish_failed", "Failed to publish position; will retry next tick", err,
			map[string]any{"order_id": orderID})
		return
	}
	b.cfg.Logger.Debug(ctx, "position_published", "Position published", map[string]any{
		"order_id":       orderID,
		"captured_at_ms": pos.CapturedAtEpochMs,
	})
}

func (b *Broadcaster) sensorError(ctx context.Context, orderID string, err error) {
	action := "sensor_error"
	switch {
	case errors.Is(err, sensor.ErrSensorTimeout):
		action = "sensor_timeout"
	case errors.Is(err, sensor.ErrPositionStale):
		action = "sensor_position_stale"
	}
	b.cfg.Logger.Error(ctx, action, "Location sensor error; watch keeps running", err,
		map[string]any{"order_id": orderID})
	if b.cfg.OnSensorError != nil {
		b.cfg.OnSensorError(orderID, err)
	}
}
