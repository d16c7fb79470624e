package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"delivery-hub/internal/domain/chat"
	"delivery-hub/internal/domain/user"
	"delivery-hub/internal/general/apperr"
	"delivery-hub/internal/general/contracts"
	"delivery-hub/internal/general/jwt"
	"delivery-hub/internal/general/websocket"
)

// ConnectChat streams new messages of the order's thread as chat_message
// frames and accepts send_message frames from the socket's owner.
func (handler *ChatHandler) ConnectChat(w http.ResponseWriter, r *http.Request) {
	orderID := r.PathValue("order_id")
	var role chat.SenderRole

	authorize := func(ctx context.Context, _ *http.Request, claims *jwt.Claims) error {
		var err error
		role, err = handler.svc.Participant(jwt.InjectClaims(ctx, claims), orderID)
		return err
	}

	conn, err := websocket.Accept(w, r, handler.auth, handler.logger, authorize, user.RoleCustomer, user.RoleDriver)
	if err != nil {
		return
	}
	defer conn.Close()

	ctx := jwt.InjectClaims(handler.logger.WithOrderID(r.Context(), orderID), conn.Claims())

	sub, err := handler.svc.SubscribeToMessages(ctx, orderID, func(msg chat.Message) {
		if err := conn.WriteJSON(contracts.WSChatMessage{Type: contracts.WSTypeChatMessage, Message: msg}); err != nil {
			handler.logger.Error(ctx, "chat_forward_failed", "Failed to forward chat message", err, nil)
		}
	})
	if err != nil {
		handler.logger.Error(ctx, "chat_subscribe_failed", "Failed to subscribe to chat channel", err, nil)
		_ = conn.SendError(string(apperr.KindOf(err)), "chat temporarily unavailable")
		return
	}
	defer sub.Unsubscribe()

	conn.ReadLoop(ctx, func(payload []byte) {
		typ, err := websocket.DecodeFrame(payload)
		if err != nil {
			_ = conn.SendError("bad_json", "frame must be a JSON object with a type")
			return
		}

		switch typ {
		case contracts.WSTypeSendMessage:
			var in contracts.WSChatInbound
			if err := json.Unmarshal(payload, &in); err != nil {
				_ = conn.SendError("bad_json", "invalid send_message frame")
				return
			}
			msg, err := handler.svc.SendMessage(ctx, orderID, in.Message, role)
			if err != nil {
				// the client keeps the draft when it sees an error
				_ = conn.SendError(string(apperr.KindOf(err)), apperr.Message(err))
				return
			}
			_ = conn.WriteJSON(contracts.WSChatMessage{Type: contracts.WSTypeMessageSent, Message: *msg})
		case contracts.WSTypePing:
			_ = conn.WriteJSON(map[string]string{"type": "pong"})
		default:
			_ = conn.SendError("unknown_type", "unsupported frame type "+typ)
		}
	})
}
