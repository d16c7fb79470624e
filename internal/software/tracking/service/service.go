package service

import (
	"time"

	"delivery-hub/internal/general/logger"
	"delivery-hub/internal/general/pubsub"
	"delivery-hub/internal/ports"
)

const (
	DefaultPublishInterval = 5 * time.Second
	DefaultSensorMaxAge    = 3 * time.Second
	DefaultSensorTimeout   = 10 * time.Second
)

// DefaultWatchOptions are the sensor settings a broadcast watch uses.
var DefaultWatchOptions = ports.WatchOptions{
	HighAccuracy: true,
	MaximumAge:   DefaultSensorMaxAge,
	Timeout:      DefaultSensorTimeout,
}

// Ticker is the part of *time.Ticker the publish loop needs.
type Ticker interface {
	C() <-chan time.Time
	Stop()
}

// TickerFactory creates a ticker firing every d.
type TickerFactory func(d time.Duration) Ticker

type realTicker struct{ t *time.Ticker }

func (r realTicker) C() <-chan time.Time { return r.t.C }
func (r realTicker) Stop()               { r.t.Stop() }

// NewRealTicker wraps time.NewTicker.
func NewRealTicker(d time.Duration) Ticker {
	return realTicker{t: time.NewTicker(d)}
}

// BroadcasterConfig holds a broadcaster's collaborators.
type BroadcasterConfig struct {
	Broker    pubsub.Broker
	Source    ports.PositionSource
	Logger    *logger.Logger
	Interval  time.Duration      // default 5s
	Watch     ports.WatchOptions // default DefaultWatchOptions
	NewTicker TickerFactory      // default NewRealTicker

	// OnSensorError, if set, also receives every sensor error after it is logged.
	OnSensorError func(orderID string, err error)
}

func (c *BroadcasterConfig) withDefaults() {
	if c.Interval <= 0 {
		c.Interval = DefaultPublishInterval
	}
	if c.Watch == (ports.WatchOptions{}) {
		c.Watch = DefaultWatchOptions
	}
	if c.NewTicker == nil {
		c.NewTicker = NewRealTicker
	}
	if c.Logger == nil {
		c.Logger = logger.Discard()
	}
}
