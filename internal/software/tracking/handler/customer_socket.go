package handler

import (
	"context"
	"net/http"
	"time"

	"delivery-hub/internal/domain/geo"
	"delivery-hub/internal/domain/order"
	"delivery-hub/internal/domain/user"
	"delivery-hub/internal/general/apperr"
	"delivery-hub/internal/general/contracts"
	"delivery-hub/internal/general/jwt"
	"delivery-hub/internal/general/websocket"
)

// ConnectCustomer streams the order's driver positions, each enriched with
// distance and ETA to the drop-off point.
func (handler *TrackingHandler) ConnectCustomer(w http.ResponseWriter, r *http.Request) {
	orderID := r.PathValue("order_id")
	var tracked *order.Order

	authorize := func(ctx context.Context, r *http.Request, claims *jwt.Claims) error {
		if err := order.ValidateID(orderID); err != nil {
			return err
		}
		o, err := handler.orders.GetByID(ctx, orderID)
		if err != nil {
			return apperr.FromStore("load order", err)
		}
		if o.CustomerID != claims.Subject {
			return order.ErrNotAParticipant
		}
		tracked = o
		return nil
	}

	conn, err := websocket.Accept(w, r, handler.auth, handler.logger, authorize, user.RoleCustomer)
	if err != nil {
		return
	}
	defer conn.Close()

	ctx := handler.logger.WithOrderID(r.Context(), orderID)
	dropoff := tracked.Dropoff

	sub, err := handler.subscriber.Subscribe(ctx, orderID, func(pos geo.Position) {
		km := geo.DistanceKM(pos.Latitude, pos.Longitude, dropoff.Latitude, dropoff.Longitude)
		update := contracts.WSDriverLocationUpdate{
			Type:       contracts.WSTypeDriverLocation,
			OrderID:    orderID,
			Position:   pos,
			DistanceKM: km,
			ETAMinutes: geo.EstimateETAMinutesAt(km, handler.opts.AverageSpeedKMH),
			Timestamp:  time.Now().UTC(),
		}
		if err := conn.WriteJSON(update); err != nil {
			handler.logger.Error(ctx, "location_forward_failed", "Failed to forward position to customer", err, nil)
		}
	})
	if err != nil {
		handler.logger.Error(ctx, "tracking_subscribe_failed", "Failed to subscribe to tracking channel", err, nil)
		_ = conn.SendError(string(apperr.KindTransientIO), "tracking temporarily unavailable")
		return
	}
	defer sub.Unsubscribe()

	conn.ReadLoop(ctx, func(payload []byte) {
		if typ, err := websocket.DecodeFrame(payload); err == nil && typ == contracts.WSTypePing {
			_ = conn.WriteJSON(map[string]string{"type": "pong"})
		}
	})
}
