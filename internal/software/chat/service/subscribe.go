package service

import (
	"context"
	"encoding/json"

	"delivery-hub/internal/domain/chat"
	"delivery-hub/internal/domain/order"
	"delivery-hub/internal/general/apperr"
	"delivery-hub/internal/general/contracts"
	"delivery-hub/internal/general/pubsub"
)

// SubscribeToMessages calls onNew for every message inserted into the order's
// thread after the subscription is active. A transport that redelivers can
// repeat a message; callers that care dedupe by ID.
func (service *chatService) SubscribeToMessages(ctx context.Context, orderID string, onNew func(chat.Message)) (*pubsub.Subscription, error) {
	if err := order.ValidateID(orderID); err != nil {
		return nil, apperr.InvalidArgument(err.Error(), err)
	}
	if onNew == nil {
		return nil, pubsub.ErrNilHandler
	}

	handler := func(ctx context.Context, b contracts.Broadcast) {
		var msg chat.Message
		if err := json.Unmarshal(b.Payload, &msg); err != nil {
			service.logger.Error(ctx, "chat_message_decode_failed", "Dropping malformed chat broadcast", err,
				map[string]any{"order_id": orderID})
			return
		}
		if msg.OrderID != orderID {
			return
		}
		onNew(msg)
	}

	sub, err := service.broker.Subscribe(ctx, contracts.ChatChannel(orderID), contracts.EventMessageInserted, handler)
	if err != nil {
		return nil, apperr.E(apperr.KindTransientIO, "subscribe to chat", err)
	}
	return sub, nil
}
