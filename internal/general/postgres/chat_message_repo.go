package postgres

import (
	"context"

	"delivery-hub/internal/domain/chat"
	"delivery-hub/internal/general/apperr"
	"delivery-hub/internal/ports"

	"github.com/jackc/pgx/v5"
)

const messageColumns = `id::text, order_id, sender_id, sender_role, message, is_read, created_at`

// ChatMessageRepo persists chat threads in the chat_messages table.
type ChatMessageRepo struct {
	db Querier
}

var _ ports.MessageStore = (*ChatMessageRepo)(nil)

// NewChatMessageRepo binds the repo to db, normally the pool.
// Calls made inside UnitOfWork.WithinTx use the transaction instead.
func NewChatMessageRepo(db Querier) *ChatMessageRepo {
	return &ChatMessageRepo{db: db}
}

// Insert stores m and fills the server-assigned ID, IsRead and CreatedAt.
func (repo *ChatMessageRepo) Insert(ctx context.Context, m *chat.Message) error {
	err := querier(ctx, repo.db).QueryRow(ctx, `
		INSERT INTO chat_messages (order_id, sender_id, sender_role, message)
		VALUES ($1, $2, $3, $4)
		RETURNING id::text, is_read, created_at`,
		m.OrderID, m.SenderID, string(m.SenderRole), m.Message,
	).Scan(&m.ID, &m.IsRead, &m.CreatedAt)
	return apperr.FromStore("insert chat message", err)
}

// ListByOrder returns the thread ordered by (created_at, id).
func (repo *ChatMessageRepo) ListByOrder(ctx context.Context, orderID string) ([]chat.Message, error) {
	rows, err := querier(ctx, repo.db).Query(ctx, `
		SELECT `+messageColumns+`
		FROM chat_messages
		WHERE order_id = $1
		ORDER BY created_at ASC, id ASC`, orderID)
	if err != nil {
		return nil, apperr.FromStore("list chat messages", err)
	}
	defer rows.Close()

	msgs := make([]chat.Message, 0)
	for rows.Next() {
		m, err := scanMessage(rows)
		if err != nil {
			return nil, apperr.FromStore("scan chat message", err)
		}
		msgs = append(msgs, m)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.FromStore("list chat messages", err)
	}
	return msgs, nil
}

// GetByID loads one message. Used by the change feed to resolve notifications.
func (repo *ChatMessageRepo) GetByID(ctx context.Context, id string) (chat.Message, error) {
	row := querier(ctx, repo.db).QueryRow(ctx, `
		SELECT `+messageColumns+`
		FROM chat_messages
		WHERE id = $1::uuid`, id)
	m, err := scanMessage(row)
	if err != nil {
		return chat.Message{}, apperr.FromStore("get chat message", err)
	}
	return m, nil
}

// MarkRead flips is_read on every unread message sent by from.
func (repo *ChatMessageRepo) MarkRead(ctx context.Context, orderID string, from chat.SenderRole) (int64, error) {
	tag, err := querier(ctx, repo.db).Exec(ctx, `
		UPDATE chat_messages
		SET is_read = TRUE
		WHERE order_id = $1 AND sender_role = $2 AND is_read = FALSE`,
		orderID, string(from))
	if err != nil {
		return 0, apperr.FromStore("mark chat messages read", err)
	}
	return tag.RowsAffected(), nil
}

// CountUnread counts unread messages sent by from.
func (repo *ChatMessageRepo) CountUnread(ctx context.Context, orderID string, from chat.SenderRole) (int, error) {
	var n int
	err := querier(ctx, repo.db).QueryRow(ctx, `
		SELECT count(*)
		FROM chat_messages
		WHERE order_id = $1 AND sender_role = $2 AND is_read = FALSE`,
		orderID, string(from)).Scan(&n)
	if err != nil {
		return 0, apperr.FromStore("count unread chat messages", err)
	}
	return n, nil
}

func scanMessage(row pgx.Row) (chat.Message, error) {
	var (
		m    chat.Message
		role string
	)
	if err := row.Scan(&m.ID, &m.OrderID, &m.SenderID, &role, &m.Message, &m.IsRead, &m.CreatedAt); err != nil {
		return chat.Message{}, err
	}
	m.SenderRole = chat.SenderRole(role)
	return m, nil
}
