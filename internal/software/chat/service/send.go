package service

import (
	"context"
	"errors"

	"delivery-hub/internal/domain/chat"
	"delivery-hub/internal/general/apperr"
)

// SendMessage stores a new message from the signed-in caller.
//
// The text is trimmed and must not be empty. SenderID is the caller's verified
// id; senderRole must be the role the caller actually holds in the order.
// Every failure is returned, including a Timeout once the send budget runs out.
func (service *chatService) SendMessage(ctx context.Context, orderID, text string, senderRole chat.SenderRole) (*chat.Message, error) {
	ctx = service.logger.WithOrderID(ctx, orderID)

	msg, err := service.send(ctx, orderID, text, senderRole)
	if err != nil {
		service.logger.Error(ctx, "chat_message_send_failed", "Failed to send chat message", err,
			map[string]any{"sender_role": senderRole, "kind": apperr.KindOf(err)})
		return nil, err
	}

	service.logger.Info(ctx, "chat_message_sent", "Chat message stored", map[string]any{
		"message_id":  msg.ID,
		"sender_role": msg.SenderRole,
	})
	return msg, nil
}

func (service *chatService) send(ctx context.Context, orderID, text string, senderRole chat.SenderRole) (*chat.Message, error) {
	p, err := callerOf(ctx)
	if err != nil {
		return nil, err
	}
	msg, err := chat.NewMessage(orderID, p.UserID, senderRole, text)
	if err != nil {
		return nil, apperr.InvalidArgument(err.Error(), err)
	}

	sendCtx, cancel := context.WithTimeout(ctx, service.sendTimeout)
	defer cancel()

	err = service.uow.WithinTx(sendCtx, func(txCtx context.Context) error {
		if _, err := service.authorize(txCtx, msg.OrderID, msg.SenderRole); err != nil {
			return err
		}
		return service.messages.Insert(txCtx, msg)
	})
	if err != nil {
		if errors.Is(sendCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
			return nil, apperr.E(apperr.KindTimeout, "sending the message timed out", err)
		}
		return nil, apperr.FromStore("send chat message", err)
	}
	return msg, nil
}
