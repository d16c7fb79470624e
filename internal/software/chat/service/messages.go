package service

import (
	"context"

	"delivery-hub/internal/domain/chat"
	"delivery-hub/internal/domain/order"
	"delivery-hub/internal/general/apperr"
)

// GetMessages returns the thread oldest first, or an empty list on failure.
func (service *chatService) GetMessages(ctx context.Context, orderID string) []chat.Message {
	msgs, _ := service.listMessages(ctx, orderID, FailSoft)
	return msgs
}

// FetchMessages returns the thread oldest first, or the store error.
func (service *chatService) FetchMessages(ctx context.Context, orderID string) ([]chat.Message, error) {
	return service.listMessages(ctx, orderID, FailLoud)
}

func (service *chatService) listMessages(ctx context.Context, orderID string, policy ReadPolicy) ([]chat.Message, error) {
	ctx = service.logger.WithOrderID(ctx, orderID)

	msgs, err := service.readThread(ctx, orderID)
	if err != nil {
		service.logger.Error(ctx, "chat_messages_fetch_failed", "Failed to fetch chat messages", err,
			map[string]any{"policy": policy.String()})
		if policy == FailSoft {
			return []chat.Message{}, nil
		}
		return nil, err
	}
	return msgs, nil
}

func (service *chatService) readThread(ctx context.Context, orderID string) ([]chat.Message, error) {
	if err := order.ValidateID(orderID); err != nil {
		return nil, apperr.InvalidArgument(err.Error(), err)
	}
	msgs, err := service.messages.ListByOrder(ctx, orderID)
	if err != nil {
		return nil, apperr.FromStore("list chat messages", err)
	}
	// the store's ordering is not trusted for ties
	chat.SortThread(msgs)
	if msgs == nil {
		msgs = []chat.Message{}
	}
	return msgs, nil
}
