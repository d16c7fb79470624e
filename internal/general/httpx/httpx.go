// Package httpx holds the JSON response, error and request-id helpers the
// HTTP handlers share.
package httpx

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"delivery-hub/internal/domain/user"
	"delivery-hub/internal/general/apperr"
	"delivery-hub/internal/general/jwt"
	"delivery-hub/internal/general/logger"

	"github.com/google/uuid"
)

const maxBodyBytes = 64 << 10

// JSON encodes data and writes it with status.
func JSON(ctx context.Context, log *logger.Logger, w http.ResponseWriter, status int, data any) {
	// encode to buffer first so we can control status on failure
	buf := []byte("{}")
	if data != nil {
		var err error
		buf, err = json.Marshal(data)
		if err != nil {
			log.Error(ctx, "response_encode_failed", "Failed to encode response", err, nil)
			http.Error(w, `{"error":"failed to encode response"}`, http.StatusInternalServerError)
			return
		}
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(buf)
}

// ErrorBody is the JSON shape of every error response.
type ErrorBody struct {
	Error string `json:"error"`
	Kind  string `json:"kind,omitempty"`
}

// Error writes a JSON error with an explicit status.
func Error(ctx context.Context, log *logger.Logger, w http.ResponseWriter, status int, msg string, err error) {
	action := "request_failed"
	switch {
	case status >= 500:
		action = "http_internal_error"
	case status == http.StatusBadRequest:
		action = "validation_failed"
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		action = "access_denied"
	}
	log.Error(ctx, action, msg, err, nil)
	JSON(ctx, log, w, status, ErrorBody{Error: msg})
}

// AppError maps an apperr-classified error to its status and message.
func AppError(ctx context.Context, log *logger.Logger, w http.ResponseWriter, err error) {
	status := apperr.HTTPStatus(err)
	kind := apperr.KindOf(err)
	log.Error(ctx, "request_failed", apperr.Message(err), err, map[string]any{"kind": kind, "status": status})
	JSON(ctx, log, w, status, ErrorBody{Error: apperr.Message(err), Kind: string(kind)})
}

// DecodeJSON reads a bounded JSON body into v, rejecting unknown fields.
func DecodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

// WithRequestID takes X-Request-ID or generates one, and echoes it back.
func WithRequestID(log *logger.Logger, w http.ResponseWriter, r *http.Request) context.Context {
	reqID := strings.TrimSpace(r.Header.Get("X-Request-ID"))
	if reqID == "" {
		reqID = uuid.NewString()
	}
	w.Header().Set("X-Request-ID", reqID)
	return log.WithRequestID(r.Context(), reqID)
}

// ----- dev tokens -----

type TokenRequest struct {
	UserID string    `json:"user_id"`
	Role   user.Role `json:"role"`
}

type TokenResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	UserID    string    `json:"user_id"`
	Role      user.Role `json:"role"`
}

// TokenHandler mints tokens for local testing (POST /tokens).
func TokenHandler(mgr *jwt.Manager, log *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := WithRequestID(log, w, r)

		var req TokenRequest
		if err := DecodeJSON(w, r, &req); err != nil {
			Error(ctx, log, w, http.StatusBadRequest, "Invalid request body", err)
			return
		}
		if strings.TrimSpace(req.UserID) == "" {
			Error(ctx, log, w, http.StatusBadRequest, "user_id is required", nil)
			return
		}
		role, err := user.ParseRole(req.Role.String())
		if err != nil {
			Error(ctx, log, w, http.StatusBadRequest, "role must be CUSTOMER, MERCHANT, DRIVER or ADMIN", err)
			return
		}

		token, claims, err := mgr.IssueUserToken(req.UserID, role)
		if err != nil {
			Error(ctx, log, w, http.StatusInternalServerError, "Failed to generate token", err)
			return
		}

		log.Info(ctx, "token_generated", "JWT token generated successfully",
			map[string]any{"user_id": req.UserID, "role": role.String()})

		JSON(ctx, log, w, http.StatusCreated, TokenResponse{
			Token:     token,
			ExpiresAt: claims.ExpiresAt.Time,
			UserID:    req.UserID,
			Role:      role,
		})
	}
}

// Health answers {"status":"ok","service":name}.
func Health(service string, log *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		JSON(r.Context(), log, w, http.StatusOK, map[string]string{"status": "ok", "service": service})
	}
}
