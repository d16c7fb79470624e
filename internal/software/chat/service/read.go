package service

import (
	"context"

	"delivery-hub/internal/domain/chat"
	"delivery-hub/internal/domain/order"
	"delivery-hub/internal/general/apperr"
)

// MarkAsRead marks the counterpart's unread messages as read. Calling it
// again once everything is read changes nothing.
func (service *chatService) MarkAsRead(ctx context.Context, orderID string, myRole chat.SenderRole) error {
	ctx = service.logger.WithOrderID(ctx, orderID)

	if _, err := service.authorize(ctx, orderID, myRole); err != nil {
		service.logger.Error(ctx, "chat_mark_read_denied", "Mark as read rejected", err,
			map[string]any{"role": myRole})
		return err
	}

	n, err := service.messages.MarkRead(ctx, orderID, myRole.Counterpart())
	if err != nil {
		err = apperr.FromStore("mark chat messages read", err)
		service.logger.Error(ctx, "chat_mark_read_failed", "Failed to mark messages read", err,
			map[string]any{"role": myRole})
		return err
	}

	if n > 0 {
		service.logger.Info(ctx, "chat_messages_read", "Counterpart messages marked read",
			map[string]any{"role": myRole, "count": n})
	}
	return nil
}

// GetUnreadCount counts the counterpart's unread messages, 0 on failure.
func (service *chatService) GetUnreadCount(ctx context.Context, orderID string, myRole chat.SenderRole) int {
	n, _ := service.unread(ctx, orderID, myRole, FailSoft)
	return n
}

// CountUnread counts the counterpart's unread messages, or returns the error.
func (service *chatService) CountUnread(ctx context.Context, orderID string, myRole chat.SenderRole) (int, error) {
	return service.unread(ctx, orderID, myRole, FailLoud)
}

func (service *chatService) unread(ctx context.Context, orderID string, myRole chat.SenderRole, policy ReadPolicy) (int, error) {
	ctx = service.logger.WithOrderID(ctx, orderID)

	n, err := service.countUnread(ctx, orderID, myRole)
	if err != nil {
		service.logger.Error(ctx, "chat_unread_count_failed", "Failed to count unread messages", err,
			map[string]any{"role": myRole, "policy": policy.String()})
		if policy == FailSoft {
			return 0, nil
		}
		return 0, err
	}
	return n, nil
}

func (service *chatService) countUnread(ctx context.Context, orderID string, myRole chat.SenderRole) (int, error) {
	if err := order.ValidateID(orderID); err != nil {
		return 0, apperr.InvalidArgument(err.Error(), err)
	}
	if !myRole.Valid() {
		return 0, apperr.InvalidArgument(chat.ErrInvalidSenderRole.Error(), chat.ErrInvalidSenderRole)
	}
	n, err := service.messages.CountUnread(ctx, orderID, myRole.Counterpart())
	if err != nil {
		return 0, apperr.FromStore("count unread chat messages", err)
	}
	return n, nil
}
