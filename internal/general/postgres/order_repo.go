package postgres

import (
	"context"
	"errors"

	"delivery-hub/internal/domain/order"
	"delivery-hub/internal/general/apperr"
	"delivery-hub/internal/ports"

	"github.com/jackc/pgx/v5"
)

// OrderRepo reads order participants from the orders table.
type OrderRepo struct {
	db Querier
}

var _ ports.OrderDirectory = (*OrderRepo)(nil)

func NewOrderRepo(db Querier) *OrderRepo {
	return &OrderRepo{db: db}
}

// GetByID returns the order or a NotFound error.
func (repo *OrderRepo) GetByID(ctx context.Context, orderID string) (*order.Order, error) {
	var (
		o      order.Order
		status string
	)
	err := querier(ctx, repo.db).QueryRow(ctx, `
		SELECT id, customer_id, merchant_id, driver_id, status, dropoff_lat, dropoff_lng
		FROM orders
		WHERE id = $1`, orderID,
	).Scan(&o.ID, &o.CustomerID, &o.MerchantID, &o.DriverID, &status, &o.Dropoff.Latitude, &o.Dropoff.Longitude)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.NotFound("order not found")
	}
	if err != nil {
		return nil, apperr.FromStore("get order", err)
	}

	o.Status, err = order.ParseStatus(status)
	if err != nil {
		return nil, apperr.E(apperr.KindUnknown, "order has an unknown status", err)
	}
	return &o, nil
}
