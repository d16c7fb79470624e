package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoggerWritesJSONLines(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter("tracking-service", &buf)

	ctx := log.WithRequestID(context.Background(), "req-1")
	ctx = log.WithOrderID(ctx, "ord-9")

	log.Info(ctx, "position_published", "  published  ", map[string]any{"lat": 1.5})
	log.Error(ctx, "", "failed", errors.New("boom"), nil)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)

	var info LogEntry
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &info))
	assert.Equal(t, "INFO", info.Level)
	assert.Equal(t, "tracking-service", info.Service)
	assert.Equal(t, "position_published", info.Action)
	assert.Equal(t, "published", info.Message)
	assert.Equal(t, "req-1", info.RequestID)
	assert.Equal(t, "ord-9", info.OrderID)
	assert.Nil(t, info.Error)

	var failed LogEntry
	require.NoError(t, json.Unmarshal([]byte(lines[1]), &failed))
	assert.Equal(t, "ERROR", failed.Level)
	assert.Equal(t, "unspecified", failed.Action)
	require.NotNil(t, failed.Error)
	assert.Equal(t, "boom", failed.Error.Msg)
	assert.NotEmpty(t, failed.Error.Stack)
}

func TestLoggerDropsUnencodableDetails(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter("chat-service", &buf)

	log.Debug(context.Background(), "odd_details", "channel in details", map[string]any{"ch": make(chan int)})

	var entry LogEntry
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry))
	assert.Equal(t, "odd_details", entry.Action)
	assert.Nil(t, entry.Details)
}

func TestContextHelpersIgnoreBlank(t *testing.T) {
	log := Discard()
	ctx := log.WithOrderID(context.Background(), "  ")
	assert.Empty(t, OrderID(ctx))
	assert.Empty(t, RequestID(nil))
}
