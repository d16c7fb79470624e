package postgres

import (
	"context"
	"testing"
	"time"

	"delivery-hub/internal/domain/chat"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeNotification(t *testing.T) {
	t.Run("full row from row_to_json", func(t *testing.T) {
		payload := `{"id":"5f0c7a3e-2b1d-4d8e-9a51-7c1e2b3a4d5f","order_id":"ord-1","sender_id":"cust-1",` +
			`"sender_role":"customer","message":"hello","is_read":false,"created_at":"2026-03-01T12:00:00.123456+00:00"}`

		msg, err := decodeNotification([]byte(payload))
		require.NoError(t, err)
		assert.Equal(t, "ord-1", msg.OrderID)
		assert.Equal(t, chat.SenderCustomer, msg.SenderRole)
		assert.Equal(t, "hello", msg.Message)
		assert.True(t, msg.CreatedAt.Equal(time.Date(2026, 3, 1, 12, 0, 0, 123456000, time.UTC)))
	})

	t.Run("oversized row sends keys only", func(t *testing.T) {
		msg, err := decodeNotification([]byte(`{"id":"abc","order_id":"ord-1"}`))
		require.NoError(t, err)
		assert.Equal(t, "abc", msg.ID)
		assert.Empty(t, msg.Message)
	})

	t.Run("missing keys", func(t *testing.T) {
		_, err := decodeNotification([]byte(`{"message":"x"}`))
		assert.Error(t, err)
	})

	t.Run("not json", func(t *testing.T) {
		_, err := decodeNotification([]byte(`nope`))
		assert.Error(t, err)
	})
}

func TestQuerierFallsBackWithoutTx(t *testing.T) {
	var pool Querier
	assert.Nil(t, querier(context.Background(), pool))

	_, ok := TxFromContext(context.Background())
	assert.False(t, ok)
}
