package chat

import (
	"errors"
	"sort"
	"strings"
	"time"
)

// Message is the domain entity corresponding to the `chat_messages` table.
type Message struct {
	ID         string     `json:"id"`
	OrderID    string     `json:"order_id"`
	SenderID   string     `json:"sender_id"`
	SenderRole SenderRole `json:"sender_role"`
	Message    string     `json:"message"`
	IsRead     bool       `json:"is_read"`
	CreatedAt  time.Time  `json:"created_at"`
}

var (
	ErrEmptyMessage  = errors.New("message cannot be empty")
	ErrEmptyOrderID  = errors.New("order_id cannot be empty")
	ErrEmptySenderID = errors.New("sender_id cannot be empty")
)

// NewMessage builds an unsaved, unread message. ID and CreatedAt are assigned by the store.
func NewMessage(orderID, senderID string, role SenderRole, text string) (*Message, error) {
	msg := &Message{
		OrderID:    strings.TrimSpace(orderID),
		SenderID:   strings.TrimSpace(senderID),
		SenderRole: role,
		Message:    strings.TrimSpace(text),
		IsRead:     false,
	}
	if err := msg.Validate(); err != nil {
		return nil, err
	}
	return msg, nil
}

// Validate checks invariants of the Message entity.
func (msg *Message) Validate() error {
	if msg.OrderID == "" {
		return ErrEmptyOrderID
	}
	if msg.SenderID == "" {
		return ErrEmptySenderID
	}
	if !msg.SenderRole.Valid() {
		return ErrInvalidSenderRole
	}
	if strings.TrimSpace(msg.Message) == "" {
		return ErrEmptyMessage
	}
	return nil
}

// SortThread orders messages by (CreatedAt, ID) ascending, in place.
func SortThread(msgs []Message) {
	sort.SliceStable(msgs, func(i, j int) bool {
		if !msgs[i].CreatedAt.Equal(msgs[j].CreatedAt) {
			return msgs[i].CreatedAt.Before(msgs[j].CreatedAt)
		}
		return msgs[i].ID < msgs[j].ID
	})
}
