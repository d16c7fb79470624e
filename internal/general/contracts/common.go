package contracts

import (
	"encoding/json"
	"time"
)

// Envelope adds cross-cutting headers all messages may carry.
type Envelope struct {
	CorrelationID string    `json:"correlation_id,omitempty"` // Correlation for tracing across services
	Producer      string    `json:"producer,omitempty"`       // Producer service name, e.g. "tracking-service"
	SentAt        time.Time `json:"sent_at,omitempty"`        // ISO-8601 send time (UTC)
}

// Broadcast is the wire form of one channel event: { type, event, payload }.
type Broadcast struct {
	Type    string          `json:"type"` // always "broadcast"
	Channel string          `json:"channel"`
	Event   string          `json:"event"`
	Payload json.RawMessage `json:"payload"`
	Envelope
}

// NewBroadcast marshals payload into a broadcast envelope.
func NewBroadcast(channel, event string, payload any, producer string) (Broadcast, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return Broadcast{}, err
	}
	return Broadcast{
		Type:     TypeBroadcast,
		Channel:  channel,
		Event:    event,
		Payload:  raw,
		Envelope: Envelope{Producer: producer, SentAt: time.Now().UTC()},
	}, nil
}

// Matches reports whether the filter selects event. "" and "*" match all.
func Matches(filter, event string) bool {
	return filter == "" || filter == EventAny || filter == event
}
