package handler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"delivery-hub/internal/domain/user"
	"delivery-hub/internal/general/httpx"
	"delivery-hub/internal/general/jwt"
	"delivery-hub/internal/general/logger"
	"delivery-hub/internal/general/pubsub"
	"delivery-hub/internal/ports"
	trackingsvc "delivery-hub/internal/software/tracking/service"

	"golang.org/x/time/rate"
)

// Options tunes the tracking sockets.
type Options struct {
	PublishInterval time.Duration
	Watch           ports.WatchOptions
	AverageSpeedKMH float64
	// MaxLocationRate caps location_update frames per second per driver socket.
	MaxLocationRate rate.Limit
	LocationBurst   int
}

func (o *Options) withDefaults() {
	if o.PublishInterval <= 0 {
		o.PublishInterval = trackingsvc.DefaultPublishInterval
	}
	if o.Watch == (ports.WatchOptions{}) {
		o.Watch = trackingsvc.DefaultWatchOptions
	}
	if o.MaxLocationRate <= 0 {
		o.MaxLocationRate = 5
	}
	if o.LocationBurst <= 0 {
		o.LocationBurst = 10
	}
}

// TrackingHandler serves the driver broadcast socket and the customer
// tracking socket.
type TrackingHandler struct {
	logger     *logger.Logger
	auth       *jwt.Manager
	orders     ports.OrderDirectory
	broker     pubsub.Broker
	subscriber ports.PositionSubscriber
	opts       Options
	newTicker  trackingsvc.TickerFactory
}

// NewTrackingHandler wires the handler. subscriber is normally a
// trackingsvc.Subscriber with the stale filter enabled.
func NewTrackingHandler(
	log *logger.Logger,
	auth *jwt.Manager,
	orders ports.OrderDirectory,
	broker pubsub.Broker,
	subscriber ports.PositionSubscriber,
	opts Options,
) *TrackingHandler {
	opts.withDefaults()
	return &TrackingHandler{
		logger:     log,
		auth:       auth,
		orders:     orders,
		broker:     broker,
		subscriber: subscriber,
		opts:       opts,
		newTicker:  trackingsvc.NewRealTicker,
	}
}

// RegisterRoutes mounts tracking endpoints on the provided mux.
func (handler *TrackingHandler) RegisterRoutes(mux *http.ServeMux) {
	// sockets authenticate with their first frame
	mux.HandleFunc("GET /ws/driver/{driver_id}", handler.ConnectDriver)
	mux.HandleFunc("GET /ws/orders/{order_id}/tracking", handler.ConnectCustomer)

	mux.HandleFunc("GET /tracking/health", httpx.Health("tracking-service", handler.logger))
	mux.HandleFunc("POST /tokens", httpx.TokenHandler(handler.auth, handler.logger))
}

var errDriverMismatch = errors.New("driver ID mismatch")

func (handler *TrackingHandler) authorizeDriver(_ context.Context, r *http.Request, claims *jwt.Claims) error {
	if claims.Role != user.RoleDriver {
		return jwt.ErrRoleForbidden
	}
	if id := r.PathValue("driver_id"); id != "" && id != claims.Subject {
		return errDriverMismatch
	}
	return nil
}
