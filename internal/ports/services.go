package ports

import (
	"context"
	"time"

	"delivery-hub/internal/domain/chat"
	"delivery-hub/internal/domain/geo"
	"delivery-hub/internal/general/pubsub"
)

// ----- Device geolocation -----

// WatchOptions mirror the device geolocation watch options.
type WatchOptions struct {
	HighAccuracy bool
	MaximumAge   time.Duration // readings older than this are rejected
	Timeout      time.Duration // silence longer than this is reported
}

// Watch is a live position watch. Clear is idempotent.
type Watch interface {
	Clear()
}

// PositionSource is a continuous position feed.
type PositionSource interface {
	Watch(opts WatchOptions, onPosition func(geo.Position), onError func(error)) (Watch, error)
}

// ----- Change notification -----

// ChatChangeFeed republishes newly inserted chat rows onto the broker.
type ChatChangeFeed interface {
	Run(ctx context.Context) error
}

// ----- Chat Service Interface -----

// ChatService exposes the per-order thread to the transport layer.
type ChatService interface {
	// Participant resolves the caller's role in the order's thread.
	Participant(ctx context.Context, orderID string) (chat.SenderRole, error)
	GetMessages(ctx context.Context, orderID string) []chat.Message
	FetchMessages(ctx context.Context, orderID string) ([]chat.Message, error)
	SendMessage(ctx context.Context, orderID, text string, senderRole chat.SenderRole) (*chat.Message, error)
	SubscribeToMessages(ctx context.Context, orderID string, onNew func(chat.Message)) (*pubsub.Subscription, error)
	MarkAsRead(ctx context.Context, orderID string, myRole chat.SenderRole) error
	GetUnreadCount(ctx context.Context, orderID string, myRole chat.SenderRole) int
	CountUnread(ctx context.Context, orderID string, myRole chat.SenderRole) (int, error)
}

// ----- Tracking Service Interface -----

// PositionSubscriber attaches a handler to an order's live position channel.
type PositionSubscriber interface {
	Subscribe(ctx context.Context, orderID string, onPosition func(geo.Position)) (*pubsub.Subscription, error)
}
