// Package service implements the per-order chat thread: history, sending,
// realtime delivery and read receipts.
//
// Reads and writes fail differently. GetMessages and GetUnreadCount are
// FailSoft and degrade to an empty result; FetchMessages and CountUnread are
// their FailLoud twins. SendMessage always returns its error, and callers are
// expected to restore the user's draft when it does so no text is lost.
package service

import (
	"context"
	"time"

	"delivery-hub/internal/domain/chat"
	"delivery-hub/internal/domain/order"
	"delivery-hub/internal/general/apperr"
	"delivery-hub/internal/general/jwt"
	"delivery-hub/internal/general/logger"
	"delivery-hub/internal/general/pubsub"
	"delivery-hub/internal/ports"
)

// DefaultSendTimeout bounds a single SendMessage call.
const DefaultSendTimeout = 10 * time.Second

// ReadPolicy picks what a read does when the store fails.
type ReadPolicy int

const (
	// FailSoft logs the failure and returns an empty result.
	FailSoft ReadPolicy = iota
	// FailLoud returns the classified error.
	FailLoud
)

func (p ReadPolicy) String() string {
	if p == FailLoud {
		return "fail_loud"
	}
	return "fail_soft"
}

// Config tunes the chat service.
type Config struct {
	SendTimeout time.Duration
}

type chatService struct {
	logger      *logger.Logger
	uow         ports.UnitOfWork
	messages    ports.MessageStore
	orders      ports.OrderDirectory
	broker      pubsub.Broker
	sendTimeout time.Duration
}

// NewChatService creates the chat service over its store, the order directory and the broker.
func NewChatService(
	logger *logger.Logger,
	uow ports.UnitOfWork,
	messages ports.MessageStore,
	orders ports.OrderDirectory,
	broker pubsub.Broker,
	cfg Config,
) ports.ChatService {
	if cfg.SendTimeout <= 0 {
		cfg.SendTimeout = DefaultSendTimeout
	}
	return &chatService{
		logger:      logger,
		uow:         uow,
		messages:    messages,
		orders:      orders,
		broker:      broker,
		sendTimeout: cfg.SendTimeout,
	}
}

// Participant resolves the caller's role in the order's thread.
func (service *chatService) Participant(ctx context.Context, orderID string) (chat.SenderRole, error) {
	p, err := callerOf(ctx)
	if err != nil {
		return "", err
	}
	if err := order.ValidateID(orderID); err != nil {
		return "", apperr.InvalidArgument(err.Error(), err)
	}
	o, err := service.orders.GetByID(ctx, orderID)
	if err != nil {
		return "", apperr.FromStore("load order", err)
	}
	role, ok := o.ChatRoleOf(p.UserID)
	if !ok {
		return "", apperr.Forbidden(order.ErrNotAParticipant.Error())
	}
	return role, nil
}

// authorize checks the caller may act as claimed in the order's thread.
// The claimed role is a label; identity always comes from the verified token.
func (service *chatService) authorize(ctx context.Context, orderID string, claimed chat.SenderRole) (jwt.Principal, error) {
	p, err := callerOf(ctx)
	if err != nil {
		return jwt.Principal{}, err
	}
	if err := order.ValidateID(orderID); err != nil {
		return jwt.Principal{}, apperr.InvalidArgument(err.Error(), err)
	}
	if !claimed.Valid() {
		return jwt.Principal{}, apperr.InvalidArgument(chat.ErrInvalidSenderRole.Error(), chat.ErrInvalidSenderRole)
	}
	if own, ok := chat.SenderRoleFor(p.Role); !ok || own != claimed {
		return jwt.Principal{}, apperr.InvalidArgument("sender_role does not match the signed-in user", nil)
	}

	o, err := service.orders.GetByID(ctx, orderID)
	if err != nil {
		return jwt.Principal{}, apperr.FromStore("load order", err)
	}
	if role, ok := o.ChatRoleOf(p.UserID); !ok || role != claimed {
		return jwt.Principal{}, apperr.Forbidden(order.ErrNotAParticipant.Error())
	}
	return p, nil
}

func callerOf(ctx context.Context) (jwt.Principal, error) {
	p, ok := jwt.PrincipalFromContext(ctx)
	if !ok || p.UserID == "" {
		return jwt.Principal{}, apperr.Unauthenticated("sign in to use chat")
	}
	return p, nil
}
