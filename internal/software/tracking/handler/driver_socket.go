package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"delivery-hub/internal/domain/order"
	"delivery-hub/internal/domain/user"
	"delivery-hub/internal/general/apperr"
	"delivery-hub/internal/general/contracts"
	"delivery-hub/internal/general/sensor"
	"delivery-hub/internal/general/websocket"
	trackingsvc "delivery-hub/internal/software/tracking/service"

	"golang.org/x/time/rate"
)

// ConnectDriver runs one driver's broadcast session. Each socket owns its
// own sensor feed and broadcaster; closing the socket stops both.
func (handler *TrackingHandler) ConnectDriver(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, handler.auth, handler.logger, handler.authorizeDriver, user.RoleDriver)
	if err != nil {
		return
	}
	defer conn.Close()

	driverID := conn.Principal().UserID
	ctx := r.Context()

	feed := sensor.NewFeed()
	defer feed.Close()

	broadcaster := trackingsvc.NewBroadcaster(trackingsvc.BroadcasterConfig{
		Broker:    handler.broker,
		Source:    feed,
		Logger:    handler.logger,
		Interval:  handler.opts.PublishInterval,
		Watch:     handler.opts.Watch,
		NewTicker: handler.newTicker,
		OnSensorError: func(orderID string, err error) {
			_ = conn.WriteJSON(contracts.WSNotice{
				Type:    contracts.WSTypeSensorWarning,
				Code:    sensorCode(err),
				Message: err.Error(),
			})
		},
	})
	defer broadcaster.Stop()

	limiter := rate.NewLimiter(handler.opts.MaxLocationRate, handler.opts.LocationBurst)

	conn.ReadLoop(ctx, func(payload []byte) {
		var frame contracts.WSDriverInbound
		if err := json.Unmarshal(payload, &frame); err != nil {
			_ = conn.SendError("bad_json", "bad json")
			return
		}

		switch frame.Type {
		case contracts.WSTypeStartBroadcast:
			handler.startBroadcast(ctx, conn, broadcaster, driverID, frame.OrderID)

		case contracts.WSTypeLocationUpdate:
			if broadcaster.State() != trackingsvc.StateBroadcasting {
				_ = conn.SendError("not_broadcasting", "send start_broadcast first")
				return
			}
			if !limiter.Allow() {
				_ = conn.WriteJSON(contracts.WSNotice{
					Type:    contracts.WSTypeSensorWarning,
					Code:    "rate_limited",
					Message: "location updates are arriving faster than allowed; reading dropped",
				})
				return
			}
			// invalid readings reach the client through OnSensorError
			_ = feed.Push(frame.Position)

		case contracts.WSTypeStopBroadcast:
			orderID := broadcaster.OrderID()
			broadcaster.Stop()
			_ = conn.WriteJSON(contracts.WSBroadcastStopped{Type: contracts.WSTypeBroadcastStop, OrderID: orderID})

		case contracts.WSTypePing:
			_ = conn.WriteJSON(map[string]string{"type": "pong"})

		default:
			_ = conn.SendError("unknown_type", "unknown message type")
		}
	})
}

func (handler *TrackingHandler) startBroadcast(ctx context.Context, conn *websocket.Conn, b *trackingsvc.Broadcaster, driverID, orderID string) {
	ctx = handler.logger.WithOrderID(ctx, orderID)

	if err := order.ValidateID(orderID); err != nil {
		_ = conn.SendError(string(apperr.KindInvalidArgument), err.Error())
		return
	}

	o, err := handler.orders.GetByID(ctx, orderID)
	if err != nil {
		handler.logger.Error(ctx, "order_lookup_failed", "Failed to load order for broadcast", err, nil)
		_ = conn.SendError(string(apperr.KindOf(err)), apperr.Message(err))
		return
	}
	if !o.HasDriver(driverID) {
		_ = conn.SendError(string(apperr.KindForbidden), order.ErrNotAParticipant.Error())
		return
	}
	if !o.Trackable() {
		_ = conn.SendError(string(apperr.KindInvalidArgument), order.ErrNotTrackable.Error())
		return
	}

	if err := b.Start(ctx, orderID); err != nil {
		handler.logger.Error(ctx, "broadcast_start_failed", "Failed to start broadcast", err, nil)
		_ = conn.SendError("broadcast_failed", "failed to start broadcast")
		return
	}

	_ = conn.WriteJSON(contracts.WSBroadcastStarted{
		Type:              contracts.WSTypeBroadcastStart,
		OrderID:           orderID,
		HighAccuracy:      handler.opts.Watch.HighAccuracy,
		MaximumAgeMs:      handler.opts.Watch.MaximumAge.Milliseconds(),
		TimeoutMs:         handler.opts.Watch.Timeout.Milliseconds(),
		PublishIntervalMs: handler.opts.PublishInterval.Milliseconds(),
	})
}

func sensorCode(err error) string {
	switch {
	case errors.Is(err, sensor.ErrSensorTimeout):
		return "sensor_timeout"
	case errors.Is(err, sensor.ErrPositionStale):
		return "position_stale"
	case errors.Is(err, sensor.ErrInvalidReading):
		return "invalid_reading"
	default:
		return "sensor_error"
	}
}
