package ports

import (
	"context"

	"delivery-hub/internal/domain/chat"
	"delivery-hub/internal/domain/order"
)

// UnitOfWork interface is used to manage transactions across multiple repository operations.
type UnitOfWork interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// MessageStore persists an order's chat thread.
type MessageStore interface {
	// Insert assigns ID and CreatedAt on m.
	Insert(ctx context.Context, m *chat.Message) error
	// ListByOrder returns messages ordered by (created_at, id).
	ListByOrder(ctx context.Context, orderID string) ([]chat.Message, error)
	// MarkRead flips is_read on unread messages sent by from. Returns rows changed.
	MarkRead(ctx context.Context, orderID string, from chat.SenderRole) (int64, error)
	// CountUnread counts unread messages sent by from.
	CountUnread(ctx context.Context, orderID string, from chat.SenderRole) (int, error)
}

// OrderDirectory resolves order participants.
type OrderDirectory interface {
	GetByID(ctx context.Context, orderID string) (*order.Order, error)
}
