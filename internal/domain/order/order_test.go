package order

import (
	"strings"
	"testing"

	"delivery-hub/internal/domain/chat"

	"github.com/stretchr/testify/assert"
)

func TestValidateID(t *testing.T) {
	assert.NoError(t, ValidateID("ord_2026-0001"))
	assert.ErrorIs(t, ValidateID(""), ErrInvalidOrderID)
	assert.ErrorIs(t, ValidateID("a.b"), ErrInvalidOrderID)
	assert.ErrorIs(t, ValidateID("a*"), ErrInvalidOrderID)
	assert.ErrorIs(t, ValidateID(strings.Repeat("x", 65)), ErrInvalidOrderID)
}

func TestOrderRoles(t *testing.T) {
	driver := "drv-1"
	o := &Order{ID: "ord-1", CustomerID: "cust-1", DriverID: &driver, Status: StatusOnDelivery}

	role, ok := o.ChatRoleOf("cust-1")
	assert.True(t, ok)
	assert.Equal(t, chat.SenderCustomer, role)

	role, ok = o.ChatRoleOf("drv-1")
	assert.True(t, ok)
	assert.Equal(t, chat.SenderDriver, role)

	_, ok = o.ChatRoleOf("someone-else")
	assert.False(t, ok)

	assert.True(t, o.Trackable())
	o.Status = StatusDelivered
	assert.False(t, o.Trackable())

	unassigned := &Order{ID: "ord-2", CustomerID: "cust-1", Status: StatusPending}
	assert.False(t, unassigned.Trackable())
	_, ok = unassigned.ChatRoleOf("")
	assert.False(t, ok)
}
