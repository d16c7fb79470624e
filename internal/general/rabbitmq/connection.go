package rabbitmq

import (
	"context"
	"fmt"
	"sync"
	"time"

	"delivery-hub/internal/general/logger"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Client is a RabbitMQ connector that reconnects on failure and
// re-declares the realtime exchange each time.
type Client struct {
	url      string
	exchange string
	logger   *logger.Logger
	logCtx   context.Context // logging only, never cancelled

	mu      sync.RWMutex
	conn    *amqp.Connection
	pubChan *amqp.Channel

	pubMu       sync.Mutex
	pubConfirms chan amqp.Confirmation

	closeOnce sync.Once
	closed    chan struct{}
	reconnect chan struct{}
}

// Connect dials once and starts the reconnect watcher.
func Connect(ctx context.Context, url, exchange string, log *logger.Logger) (*Client, error) {
	client := &Client{
		url:       url,
		exchange:  exchange,
		logger:    log,
		logCtx:    context.WithoutCancel(ctx),
		closed:    make(chan struct{}),
		reconnect: make(chan struct{}, 1),
	}

	// later retries happen in the watcher
	if err := client.connectOnce(); err != nil {
		return nil, err
	}

	go client.watch()

	return client, nil
}

// Exchange is the topic exchange broadcasts go through.
func (client *Client) Exchange() string { return client.exchange }

// Close stops the watcher and closes AMQP resources.
func (client *Client) Close() {
	client.closeOnce.Do(func() { close(client.closed) })

	client.mu.Lock()
	if client.pubChan != nil {
		_ = client.pubChan.Close()
		client.pubChan = nil
	}
	if client.conn != nil {
		_ = client.conn.Close()
		client.conn = nil
	}
	client.mu.Unlock()

	// closing pubChan above closes its confirm stream and wakes any waiter
	client.swapConfirms(nil)
}

// swapConfirms replaces the confirm stream publishers wait on. The old
// stream belongs to amqp091 and is closed by it when its channel shuts down.
func (client *Client) swapConfirms(next chan amqp.Confirmation) {
	client.pubMu.Lock()
	client.pubConfirms = next
	client.pubMu.Unlock()
}

func (client *Client) isClosed() bool {
	select {
	case <-client.closed:
		return true
	default:
		return false
	}
}

func (client *Client) connectOnce() (err error) {
	conn, err := amqp.DialConfig(client.url, amqp.Config{
		Heartbeat: 10 * time.Second,
		Locale:    "en_US",
		Dial:      amqp.DefaultDial(30 * time.Second),
	})
	if err != nil {
		client.logger.Error(client.logCtx, "rabbitmq_dial_failed", "Failed to dial RabbitMQ", err, nil)
		return fmt.Errorf("rabbitmq dial failed: %w", err)
	}
	defer func() {
		if err != nil {
			_ = conn.Close()
		}
	}()

	ch, err := conn.Channel()
	if err != nil {
		client.logger.Error(client.logCtx, "rabbitmq_open_channel_failed", "Failed to open RabbitMQ channel", err, nil)
		return fmt.Errorf("rabbitmq: failed to open channel: %w", err)
	}

	if err = declareTopology(ch, client.exchange); err != nil {
		client.logger.Error(client.logCtx, "rabbitmq_declare_topology_failed", "Failed to declare RabbitMQ topology", err,
			map[string]any{"exchange": client.exchange})
		return fmt.Errorf("rabbitmq: failed to declare topology: %w", err)
	}

	if err = ch.Confirm(false); err != nil {
		client.logger.Error(client.logCtx, "rabbitmq_enable_confirms_failed", "Failed to enable publisher confirms", err, nil)
		return fmt.Errorf("rabbitmq: failed to enable confirms: %w", err)
	}

	client.swapConfirms(ch.NotifyPublish(make(chan amqp.Confirmation, 1)))

	client.mu.Lock()
	if client.pubChan != nil && !client.pubChan.IsClosed() {
		_ = client.pubChan.Close()
	}
	client.conn = conn
	client.pubChan = ch
	client.mu.Unlock()

	go func(conn *amqp.Connection, ch *amqp.Channel) {
		connClosed := conn.NotifyClose(make(chan *amqp.Error, 1))
		chClosed := ch.NotifyClose(make(chan *amqp.Error, 1))
		select {
		case <-client.closed:
			return
		case <-connClosed:
		case <-chClosed:
		}

		select {
		case client.reconnect <- struct{}{}:
		default:
		}
	}(conn, ch)

	client.logger.Info(client.logCtx, "rabbitmq_connected", "RabbitMQ connection established successfully",
		map[string]any{"exchange": client.exchange})

	return nil
}

// watch reconnects with exponential backoff capped at 30s.
func (client *Client) watch() {
	backoff := time.Second
	for {
		select {
		case <-client.closed:
			return
		case <-client.reconnect:
		}

		for !client.isClosed() {
			err := client.connectOnce()
			if err == nil {
				backoff = time.Second
				client.logger.Info(client.logCtx, "rabbitmq_reconnected", "Reconnected to RabbitMQ and re-ensured topology", nil)
				break
			}

			client.logger.Error(client.logCtx, "retry_attempted", "Failed to reconnect to RabbitMQ", err,
				map[string]any{"backoff": backoff.String()})

			select {
			case <-client.closed:
				return
			case <-time.After(backoff):
			}
			backoff = nextBackoff(backoff)
		}
	}
}

func nextBackoff(d time.Duration) time.Duration {
	const maxBackoff = 30 * time.Second
	d *= 2
	if d > maxBackoff {
		return maxBackoff
	}
	return d
}
