package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"delivery-hub/internal/domain/chat"
	"delivery-hub/internal/general/contracts"
	"delivery-hub/internal/general/logger"
	"delivery-hub/internal/general/pubsub"
	"delivery-hub/internal/ports"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	feedBackoffMin = 500 * time.Millisecond
	feedBackoffMax = 30 * time.Second

	// arbitrary key shared by every chat-service node
	feedLockKey int64 = 0x6368617466656564
)

// FeedOptions tunes ChatChangeFeed.
type FeedOptions struct {
	// Exclusive makes nodes elect a single publisher with a session advisory
	// lock. Enable it when the broker is shared between nodes.
	Exclusive bool
	// Standby is how long a node waits before retrying the lock.
	Standby time.Duration
}

// ChatChangeFeed listens for chat_messages inserts and republishes each row
// on the order's chat channel.
type ChatChangeFeed struct {
	pool     *pgxpool.Pool
	messages *ChatMessageRepo
	broker   pubsub.Broker
	log      *logger.Logger
	opts     FeedOptions
}

var _ ports.ChatChangeFeed = (*ChatChangeFeed)(nil)

func NewChatChangeFeed(pool *pgxpool.Pool, broker pubsub.Broker, log *logger.Logger, opts FeedOptions) *ChatChangeFeed {
	if opts.Standby <= 0 {
		opts.Standby = 5 * time.Second
	}
	return &ChatChangeFeed{
		pool:     pool,
		messages: NewChatMessageRepo(pool),
		broker:   broker,
		log:      log,
		opts:     opts,
	}
}

// Run blocks until ctx is cancelled, reconnecting with backoff on failure.
func (feed *ChatChangeFeed) Run(ctx context.Context) error {
	backoff := feedBackoffMin
	for {
		started := time.Now()
		err := feed.listen(ctx)
		if ctx.Err() != nil {
			return nil
		}

		wait := backoff
		if errors.Is(err, errNotLeader) {
			wait = feed.opts.Standby
		} else {
			feed.log.Error(ctx, "chat_feed_disconnected", "Chat change feed lost its connection", err,
				map[string]any{"retry_in_ms": wait.Milliseconds()})
			// a long healthy session resets the backoff
			if time.Since(started) > feedBackoffMax {
				backoff = feedBackoffMin
			} else {
				backoff = min(backoff*2, feedBackoffMax)
			}
		}

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(wait):
		}
	}
}

var errNotLeader = errors.New("another node holds the chat feed lock")

func (feed *ChatChangeFeed) listen(ctx context.Context) error {
	conn, err := feed.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire listen conn: %w", err)
	}
	// LISTEN state and advisory locks are session scoped, so never hand this
	// connection back to the pool.
	pgConn := conn.Hijack()
	defer pgConn.Close(context.WithoutCancel(ctx))

	if feed.opts.Exclusive {
		var locked bool
		if err := pgConn.QueryRow(ctx, `SELECT pg_try_advisory_lock($1)`, feedLockKey).Scan(&locked); err != nil {
			return fmt.Errorf("chat feed lock: %w", err)
		}
		if !locked {
			return errNotLeader
		}
	}

	if _, err := pgConn.Exec(ctx, "LISTEN "+contracts.NotifyChatMessageInserted); err != nil {
		return fmt.Errorf("listen: %w", err)
	}
	feed.log.Info(ctx, "chat_feed_listening", "Chat change feed is listening",
		map[string]any{"channel": contracts.NotifyChatMessageInserted, "exclusive": feed.opts.Exclusive})

	for {
		n, err := pgConn.WaitForNotification(ctx)
		if err != nil {
			return err
		}
		feed.handle(ctx, n)
	}
}

func (feed *ChatChangeFeed) handle(ctx context.Context, n *pgconn.Notification) {
	msg, err := decodeNotification([]byte(n.Payload))
	if err != nil {
		feed.log.Error(ctx, "chat_feed_bad_payload", "Dropping malformed chat notification", err,
			map[string]any{"payload_bytes": len(n.Payload)})
		return
	}
	ctx = feed.log.WithOrderID(ctx, msg.OrderID)

	// oversized rows arrive as {id, order_id} only
	if msg.Message == "" {
		full, err := feed.messages.GetByID(ctx, msg.ID)
		if err != nil {
			feed.log.Error(ctx, "chat_feed_fetch_failed", "Failed to load notified chat message", err,
				map[string]any{"message_id": msg.ID})
			return
		}
		msg = full
	}

	if err := feed.broker.Publish(ctx, contracts.ChatChannel(msg.OrderID), contracts.EventMessageInserted, msg); err != nil {
		feed.log.Error(ctx, "chat_feed_publish_failed", "Failed to publish chat message", err,
			map[string]any{"message_id": msg.ID})
		return
	}
	feed.log.Debug(ctx, "chat_feed_published", "Chat message republished", map[string]any{"message_id": msg.ID})
}

// decodeNotification parses a chat_message_inserted payload.
func decodeNotification(payload []byte) (chat.Message, error) {
	var msg chat.Message
	if err := json.Unmarshal(payload, &msg); err != nil {
		return chat.Message{}, err
	}
	if msg.ID == "" || msg.OrderID == "" {
		return chat.Message{}, errors.New("notification lacks id or order_id")
	}
	return msg, nil
}
