package order

import (
	"errors"
	"regexp"
	"strings"

	"delivery-hub/internal/domain/chat"
	"delivery-hub/internal/domain/geo"
)

// Order is the slice of the `orders` table the realtime layer reads.
type Order struct {
	ID         string
	CustomerID string
	MerchantID string
	DriverID   *string // nil until a driver accepts
	Status     Status
	Dropoff    geo.Point
}

var (
	ErrInvalidOrderID  = errors.New("order id must be 1-64 characters of [A-Za-z0-9_-]")
	ErrNotTrackable    = errors.New("order has no active delivery")
	ErrNotAParticipant = errors.New("caller is not a participant of this order")
)

var idPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{1,64}$`)

// ValidateID checks an order id is safe to embed in channel names and routing keys.
func ValidateID(id string) error {
	if !idPattern.MatchString(id) {
		return ErrInvalidOrderID
	}
	return nil
}

// HasDriver reports whether driverID is the assigned driver.
func (o *Order) HasDriver(driverID string) bool {
	return o.DriverID != nil && *o.DriverID != "" && *o.DriverID == strings.TrimSpace(driverID)
}

// ChatRoleOf returns the chat role userID holds in this order's thread.
func (o *Order) ChatRoleOf(userID string) (chat.SenderRole, bool) {
	userID = strings.TrimSpace(userID)
	switch {
	case userID == "":
		return "", false
	case userID == o.CustomerID:
		return chat.SenderCustomer, true
	case o.HasDriver(userID):
		return chat.SenderDriver, true
	default:
		return "", false
	}
}

// Trackable reports whether a driver can broadcast for this order.
func (o *Order) Trackable() bool {
	return o.DriverID != nil && !o.Status.Terminal() && o.Status != StatusPending
}
