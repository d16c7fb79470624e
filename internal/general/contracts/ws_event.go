package contracts

import (
	"time"

	"delivery-hub/internal/domain/chat"
	"delivery-hub/internal/domain/geo"
)

// WS frame types
const (
	WSTypeStartBroadcast = "start_broadcast"
	WSTypeLocationUpdate = "location_update"
	WSTypeStopBroadcast  = "stop_broadcast"
	WSTypeBroadcastStart = "broadcast_started"
	WSTypeBroadcastStop  = "broadcast_stopped"
	WSTypeDriverLocation = "driver_location_update"
	WSTypeChatMessage    = "chat_message"
	WSTypeSendMessage    = "send_message"
	WSTypeMessageSent    = "message_sent"
	WSTypeSensorWarning  = "sensor_warning"
	WSTypeError          = "error"
	WSTypeAuthOK         = "auth_ok"
	WSTypePing           = "ping"
)

// WSDriverInbound is any frame a driver client sends after auth.
type WSDriverInbound struct {
	Type    string `json:"type"`
	OrderID string `json:"order_id,omitempty"` // start_broadcast
	geo.Position
}

// WSBroadcastStarted acknowledges start_broadcast and tells the client how to
// drive its location sensor.
type WSBroadcastStarted struct {
	Type              string `json:"type"` // "broadcast_started"
	OrderID           string `json:"order_id"`
	HighAccuracy      bool   `json:"high_accuracy"`
	MaximumAgeMs      int64  `json:"maximum_age_ms"`
	TimeoutMs         int64  `json:"timeout_ms"`
	PublishIntervalMs int64  `json:"publish_interval_ms"`
}

// WSBroadcastStopped acknowledges stop_broadcast.
type WSBroadcastStopped struct {
	Type    string `json:"type"` // "broadcast_stopped"
	OrderID string `json:"order_id,omitempty"`
}

// WSDriverLocationUpdate is pushed to the customer tracking socket.
type WSDriverLocationUpdate struct {
	Type       string       `json:"type"` // "driver_location_update"
	OrderID    string       `json:"order_id"`
	Position   geo.Position `json:"position"`
	DistanceKM float64      `json:"distance_km"`
	ETAMinutes int          `json:"eta_minutes"`
	Timestamp  time.Time    `json:"timestamp"`
}

// WSChatMessage is pushed to chat sockets for each new message.
type WSChatMessage struct {
	Type    string       `json:"type"` // "chat_message"
	Message chat.Message `json:"message"`
}

// WSChatInbound is a customer or driver sending on the chat socket.
// The sender role is taken from the socket's identity.
type WSChatInbound struct {
	Type    string `json:"type"` // "send_message"
	Message string `json:"message"`
}

// WSNotice carries sensor warnings and errors back to a client.
type WSNotice struct {
	Type    string `json:"type"`
	Code    string `json:"code,omitempty"`
	Message string `json:"message"`
}
