package order

import (
	"errors"
	"strings"
)

// Status is a delivery order status as stored in the `orders` table.
type Status string

const (
	StatusPending    Status = "PENDING"
	StatusAccepted   Status = "ACCEPTED"
	StatusPickedUp   Status = "PICKED_UP"
	StatusOnDelivery Status = "ON_DELIVERY"
	StatusDelivered  Status = "DELIVERED"
	StatusCancelled  Status = "CANCELLED"
)

var ErrInvalidStatus = errors.New("invalid order status")

// ParseStatus normalizes (uppercases+trims) and validates a status string.
func ParseStatus(in string) (Status, error) {
	status := Status(strings.ToUpper(strings.TrimSpace(in)))
	if status.Valid() {
		return status, nil
	}
	return "", ErrInvalidStatus
}

// Valid reports whether status is one of the allowed order status constants.
func (status Status) Valid() bool {
	switch status {
	case StatusPending, StatusAccepted, StatusPickedUp, StatusOnDelivery, StatusDelivered, StatusCancelled:
		return true
	default:
		return false
	}
}

// String returns the string representation of the Status.
func (status Status) String() string {
	return string(status)
}

// Terminal indicates if the order has finished.
func (status Status) Terminal() bool {
	return status == StatusDelivered || status == StatusCancelled
}
