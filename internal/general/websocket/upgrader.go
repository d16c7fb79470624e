package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"delivery-hub/internal/domain/user"
	"delivery-hub/internal/general/jwt"
	"delivery-hub/internal/general/lifecycle"
	"delivery-hub/internal/general/logger"

	"github.com/gorilla/websocket"
)

const (
	wsWriteTimeout   = 5 * time.Second
	wsCloseAckWindow = 2 * time.Second
	ctrlTimeout      = 5 * time.Second
	authTimeout      = 5 * time.Second
	readIdleTimeout  = 60 * time.Second
	pingInterval     = 30 * time.Second
	readLimit        = 1 << 20 // 1 MiB
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(*http.Request) bool { return true },
}

// ErrAuthFailed is returned by Accept when the first frame does not authenticate.
var ErrAuthFailed = errors.New("websocket: authentication failed")

// Conn is an authenticated socket. Writes are serialized by a
// per-connection lock so the ping loop and publishers can share it.
type Conn struct {
	ws     *websocket.Conn
	logger *logger.Logger
	claims *jwt.Claims

	writeMu sync.Mutex
	ping    *lifecycle.Task
}

// Authorizer checks the verified claims against the request (path ids,
// order participation). A non-nil error rejects the socket with its message.
type Authorizer func(ctx context.Context, r *http.Request, claims *jwt.Claims) error

// Accept upgrades, reads the auth frame within 5 seconds, validates it,
// runs authorize, answers auth_ok and starts the ping loop.
func Accept(w http.ResponseWriter, r *http.Request, mgr *jwt.Manager, log *logger.Logger,
	authorize Authorizer, roles ...user.Role,
) (*Conn, error) {
	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Error(r.Context(), "websocket_upgrade_failed", "Failed to upgrade to WebSocket", err, nil)
		return nil, err
	}

	conn := &Conn{ws: ws, logger: log}
	ws.SetReadLimit(readLimit)

	if err := ws.SetReadDeadline(time.Now().Add(authTimeout)); err != nil {
		log.Error(r.Context(), "ws_set_deadline_failed", "Failed to set initial read deadline", err, nil)
		conn.reject("internal server error")
		return nil, err
	}

	mt, first, err := ws.ReadMessage()
	if err != nil {
		log.Error(r.Context(), "ws_auth_read_failed", "Client did not authenticate in time", err, nil)
		conn.reject("authentication timeout: send auth message within 5 seconds")
		return nil, errors.Join(ErrAuthFailed, err)
	}
	if mt != websocket.TextMessage {
		log.Error(r.Context(), "ws_auth_invalid_format", "Auth message must be text format", ErrAuthFailed, nil)
		conn.reject("auth message must be in text format")
		return nil, ErrAuthFailed
	}

	claims, err := jwt.ValidateWSAuth(first, mgr, roles...)
	if err != nil {
		log.Error(r.Context(), "ws_auth_failed", "Invalid auth message or token", err, nil)
		conn.reject("authentication failed: invalid token")
		return nil, errors.Join(ErrAuthFailed, err)
	}

	if authorize != nil {
		if err := authorize(r.Context(), r, claims); err != nil {
			log.Error(r.Context(), "ws_auth_forbidden", "Authenticated socket not allowed", err,
				map[string]any{"user_id": claims.Subject, "role": claims.Role})
			conn.reject(err.Error())
			return nil, errors.Join(ErrAuthFailed, err)
		}
	}
	conn.claims = claims

	if err := conn.WriteJSON(map[string]any{
		"type":      "auth_ok",
		"user_id":   claims.Subject,
		"role":      claims.Role,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}); err != nil {
		log.Error(r.Context(), "ws_auth_success_failed", "Failed to send auth success message", err, nil)
		_ = ws.Close()
		return nil, err
	}

	_ = ws.SetReadDeadline(time.Now().Add(readIdleTimeout))
	ws.SetPongHandler(func(string) error {
		return ws.SetReadDeadline(time.Now().Add(readIdleTimeout))
	})
	conn.ping = lifecycle.Go(context.WithoutCancel(r.Context()), conn.pingLoop)

	log.Info(r.Context(), "ws_connected", "WebSocket connected",
		map[string]any{"user_id": claims.Subject, "role": claims.Role, "path": r.URL.Path})
	return conn, nil
}

// Claims returns the verified token claims.
func (c *Conn) Claims() *jwt.Claims { return c.claims }

// Principal returns the verified caller.
func (c *Conn) Principal() jwt.Principal { return c.claims.Principal() }

func (c *Conn) pingLoop(ctx context.Context) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.writeMu.Lock()
			err := c.ws.WriteControl(websocket.PingMessage, nil, time.Now().Add(ctrlTimeout))
			c.writeMu.Unlock()
			if err != nil {
				// unblocks the reader
				_ = c.ws.Close()
				c.logger.Error(ctx, "ws_ping_failed", "Failed to send ping", err, nil)
				return
			}
		}
	}
}

func (c *Conn) reject(message string) {
	_ = c.WriteJSON(map[string]any{"type": "auth_error", "error": message, "success": false})
	c.writeClose(websocket.ClosePolicyViolation, "unauthorized")
	_ = c.ws.Close()
}

// ReadLoop hands every text frame to fn until the peer goes away.
func (c *Conn) ReadLoop(ctx context.Context, fn func(payload []byte)) {
	for {
		_ = c.ws.SetReadDeadline(time.Now().Add(readIdleTimeout))
		mt, payload, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Error(ctx, "ws_unexpected_close", "Connection closed unexpectedly", err,
					map[string]any{"user_id": c.claims.Subject})
			} else {
				c.logger.Info(ctx, "ws_connection_closed", "Connection closed",
					map[string]any{"user_id": c.claims.Subject})
			}
			return
		}
		if mt != websocket.TextMessage {
			_ = c.SendError("bad_frame", "only text frames are accepted")
			continue
		}
		fn(payload)
	}
}

// Close stops the ping loop, sends a close frame and closes the socket.
func (c *Conn) Close() {
	c.ping.Dispose()
	c.writeClose(websocket.CloseNormalClosure, "bye")
	_ = c.ws.Close()
}

// DecodeFrame unmarshals a frame's "type" field.
func DecodeFrame(payload []byte) (string, error) {
	var head struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(payload, &head); err != nil {
		return "", err
	}
	return head.Type, nil
}
