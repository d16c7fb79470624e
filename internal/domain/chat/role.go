package chat

import (
	"errors"
	"strings"

	"delivery-hub/internal/domain/user"
)

// SenderRole labels which side of an order thread wrote a message.
type SenderRole string

const (
	SenderCustomer SenderRole = "customer"
	SenderDriver   SenderRole = "driver"
)

var ErrInvalidSenderRole = errors.New("sender role must be customer or driver")

// ParseSenderRole normalizes (lowercases+trims) and validates a sender role string.
func ParseSenderRole(s string) (SenderRole, error) {
	role := SenderRole(strings.ToLower(strings.TrimSpace(s)))
	if role.Valid() {
		return role, nil
	}
	return "", ErrInvalidSenderRole
}

// SenderRoleFor maps an account role to its chat role. Only customers and drivers chat.
func SenderRoleFor(role user.Role) (SenderRole, bool) {
	switch role {
	case user.RoleCustomer:
		return SenderCustomer, true
	case user.RoleDriver:
		return SenderDriver, true
	default:
		return "", false
	}
}

// Valid reports whether role is customer or driver.
func (role SenderRole) Valid() bool {
	return role == SenderCustomer || role == SenderDriver
}

// Counterpart returns the other side of the thread.
func (role SenderRole) Counterpart() SenderRole {
	if role == SenderCustomer {
		return SenderDriver
	}
	return SenderCustomer
}

func (role SenderRole) String() string {
	return string(role)
}
