package websocket

import (
	"encoding/json"
	"time"

	"delivery-hub/internal/general/contracts"

	"github.com/gorilla/websocket"
)

// WriteJSON marshals v and writes one text frame.
func (c *Conn) WriteJSON(v any) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return err
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	_ = c.ws.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
	return c.ws.WriteMessage(websocket.TextMessage, payload)
}

// SendError writes an error notice frame.
func (c *Conn) SendError(code, message string) error {
	return c.WriteJSON(contracts.WSNotice{Type: contracts.WSTypeError, Code: code, Message: message})
}

// writeClose sends a close control frame with the given code and reason.
func (c *Conn) writeClose(code int, reason string) {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	_ = c.ws.WriteControl(
		websocket.CloseMessage,
		websocket.FormatCloseMessage(code, reason),
		time.Now().Add(wsCloseAckWindow),
	)
}
