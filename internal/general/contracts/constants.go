package contracts

import "strings"

// Exchanges
const (
	ExchangeRealtimeTopic = "realtime_topic"
)

// Broadcast envelope type and event names
const (
	TypeBroadcast = "broadcast"

	EventAny               = "*"
	EventPositionBroadcast = "position_broadcast"
	EventMessageInserted   = "message_inserted"
)

// Channel naming. Order ids are validated to [A-Za-z0-9_-] so names never collide.
const (
	channelOrderPrefix    = "order."
	channelTrackingSuffix = ".tracking"
	channelChatSuffix     = ".chat"
)

// Postgres notification channel raised by the chat_messages insert trigger.
const NotifyChatMessageInserted = "chat_message_inserted"

// TrackingChannel names the live position channel for an order.
func TrackingChannel(orderID string) string {
	return channelOrderPrefix + orderID + channelTrackingSuffix
}

// ChatChannel names the new-message channel for an order.
func ChatChannel(orderID string) string {
	return channelOrderPrefix + orderID + channelChatSuffix
}

// RoutingKey maps channel+event to a topic routing key: order.<id>.tracking.position_broadcast.
// An empty or "*" event becomes the single-word wildcard.
func RoutingKey(channel, event string) string {
	if event == "" || event == EventAny {
		event = "*"
	}
	return channel + "." + event
}

// OrderIDFromChannel is the inverse of TrackingChannel and ChatChannel.
func OrderIDFromChannel(channel string) (string, bool) {
	rest, ok := strings.CutPrefix(channel, channelOrderPrefix)
	if !ok {
		return "", false
	}
	for _, suffix := range []string{channelTrackingSuffix, channelChatSuffix} {
		if id, ok := strings.CutSuffix(rest, suffix); ok && id != "" {
			return id, true
		}
	}
	return "", false
}
