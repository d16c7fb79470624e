package handler

import (
	"context"
	"net/http"
	"strings"

	"delivery-hub/internal/domain/chat"
	"delivery-hub/internal/domain/user"
	"delivery-hub/internal/general/apperr"
	"delivery-hub/internal/general/httpx"
	"delivery-hub/internal/general/jwt"
	"delivery-hub/internal/general/logger"
	"delivery-hub/internal/ports"
)

// ChatHandler serves the per-order thread over HTTP and WebSocket.
type ChatHandler struct {
	svc    ports.ChatService
	logger *logger.Logger
	auth   *jwt.Manager
}

func NewChatHandler(svc ports.ChatService, log *logger.Logger, auth *jwt.Manager) *ChatHandler {
	return &ChatHandler{svc: svc, logger: log, auth: auth}
}

// RegisterRoutes mounts chat endpoints on the provided mux.
func (handler *ChatHandler) RegisterRoutes(mux *http.ServeMux) {
	participants := jwt.AuthMiddlewareFunc(handler.auth, user.RoleCustomer, user.RoleDriver)

	mux.HandleFunc("GET /orders/{order_id}/messages", participants(handler.handleGetMessages))
	mux.HandleFunc("POST /orders/{order_id}/messages", participants(handler.handleSendMessage))
	mux.HandleFunc("POST /orders/{order_id}/messages/read", participants(handler.handleMarkAsRead))
	mux.HandleFunc("GET /orders/{order_id}/messages/unread", participants(handler.handleUnreadCount))

	// authenticates with its first frame
	mux.HandleFunc("GET /ws/orders/{order_id}/chat", handler.ConnectChat)

	mux.HandleFunc("GET /chat/health", httpx.Health("chat-service", handler.logger))
	mux.HandleFunc("POST /tokens", httpx.TokenHandler(handler.auth, handler.logger))
}

type threadResponse struct {
	OrderID  string         `json:"order_id"`
	Messages []chat.Message `json:"messages"`
}

// handleGetMessages always answers 200 for a participant; a store failure
// yields an empty thread.
func (handler *ChatHandler) handleGetMessages(w http.ResponseWriter, r *http.Request) {
	ctx := httpx.WithRequestID(handler.logger, w, r)
	orderID := r.PathValue("order_id")

	if _, err := handler.svc.Participant(ctx, orderID); err != nil {
		httpx.AppError(ctx, handler.logger, w, err)
		return
	}

	httpx.JSON(ctx, handler.logger, w, http.StatusOK, threadResponse{
		OrderID:  orderID,
		Messages: handler.svc.GetMessages(ctx, orderID),
	})
}

type sendRequest struct {
	Message    string          `json:"message"`
	SenderRole chat.SenderRole `json:"sender_role"`
}

// sendErrorBody tells the client to put the text back in the composer.
type sendErrorBody struct {
	httpx.ErrorBody
	RestoreDraft bool `json:"restore_draft"`
}

func (handler *ChatHandler) handleSendMessage(w http.ResponseWriter, r *http.Request) {
	ctx := httpx.WithRequestID(handler.logger, w, r)
	orderID := r.PathValue("order_id")

	var req sendRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		httpx.Error(ctx, handler.logger, w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	role, err := chat.ParseSenderRole(string(req.SenderRole))
	if err != nil {
		handler.sendFailed(ctx, w, apperr.InvalidArgument(err.Error(), err))
		return
	}

	msg, err := handler.svc.SendMessage(ctx, orderID, req.Message, role)
	if err != nil {
		handler.sendFailed(ctx, w, err)
		return
	}
	httpx.JSON(ctx, handler.logger, w, http.StatusCreated, msg)
}

func (handler *ChatHandler) sendFailed(ctx context.Context, w http.ResponseWriter, err error) {
	kind := apperr.KindOf(err)
	handler.logger.Error(ctx, "chat_send_rejected", apperr.Message(err), err, map[string]any{"kind": kind})
	httpx.JSON(ctx, handler.logger, w, apperr.HTTPStatus(err), sendErrorBody{
		ErrorBody:    httpx.ErrorBody{Error: apperr.Message(err), Kind: string(kind)},
		RestoreDraft: true,
	})
}

type readRequest struct {
	Role chat.SenderRole `json:"role"`
}

func (handler *ChatHandler) handleMarkAsRead(w http.ResponseWriter, r *http.Request) {
	ctx := httpx.WithRequestID(handler.logger, w, r)
	orderID := r.PathValue("order_id")

	var req readRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		httpx.Error(ctx, handler.logger, w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	role, err := chat.ParseSenderRole(string(req.Role))
	if err != nil {
		httpx.AppError(ctx, handler.logger, w, apperr.InvalidArgument(err.Error(), err))
		return
	}

	if err := handler.svc.MarkAsRead(ctx, orderID, role); err != nil {
		httpx.AppError(ctx, handler.logger, w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type unreadResponse struct {
	OrderID string          `json:"order_id"`
	Role    chat.SenderRole `json:"role"`
	Unread  int             `json:"unread"`
}

// handleUnreadCount defaults ?role= to the caller's own role.
func (handler *ChatHandler) handleUnreadCount(w http.ResponseWriter, r *http.Request) {
	ctx := httpx.WithRequestID(handler.logger, w, r)
	orderID := r.PathValue("order_id")

	own, err := handler.svc.Participant(ctx, orderID)
	if err != nil {
		httpx.AppError(ctx, handler.logger, w, err)
		return
	}
	role := own
	if raw := strings.TrimSpace(r.URL.Query().Get("role")); raw != "" {
		role, err = chat.ParseSenderRole(raw)
		if err != nil || role != own {
			httpx.AppError(ctx, handler.logger, w, apperr.InvalidArgument("role must be your own role in this order", err))
			return
		}
	}

	httpx.JSON(ctx, handler.logger, w, http.StatusOK, unreadResponse{
		OrderID: orderID,
		Role:    role,
		Unread:  handler.svc.GetUnreadCount(ctx, orderID, role),
	})
}
