package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"delivery-hub/internal/domain/chat"
	"delivery-hub/internal/domain/order"
	"delivery-hub/internal/domain/user"
	"delivery-hub/internal/general/apperr"
	"delivery-hub/internal/general/jwt"
)

var errStoreDown = errors.New("connection refused")

type memStore struct {
	mu      sync.Mutex
	rows    []chat.Message
	seq     int
	now     time.Time
	inserts int
	fail    error
	block   bool // Insert waits for ctx
}

func newMemStore() *memStore {
	return &memStore{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (s *memStore) Insert(ctx context.Context, m *chat.Message) error {
	if s.block {
		<-ctx.Done()
		return ctx.Err()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail != nil {
		return s.fail
	}
	s.inserts++
	s.seq++
	m.ID = fmt.Sprintf("m%03d", s.seq)
	m.CreatedAt = s.now
	s.rows = append(s.rows, *m)
	return nil
}

func (s *memStore) ListByOrder(_ context.Context, orderID string) ([]chat.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail != nil {
		return nil, s.fail
	}
	var out []chat.Message
	// reverse insertion order so sorting is observable
	for i := len(s.rows) - 1; i >= 0; i-- {
		if s.rows[i].OrderID == orderID {
			out = append(out, s.rows[i])
		}
	}
	return out, nil
}

func (s *memStore) MarkRead(_ context.Context, orderID string, from chat.SenderRole) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail != nil {
		return 0, s.fail
	}
	var n int64
	for i := range s.rows {
		if s.rows[i].OrderID == orderID && s.rows[i].SenderRole == from && !s.rows[i].IsRead {
			s.rows[i].IsRead = true
			n++
		}
	}
	return n, nil
}

func (s *memStore) CountUnread(_ context.Context, orderID string, from chat.SenderRole) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail != nil {
		return 0, s.fail
	}
	n := 0
	for _, r := range s.rows {
		if r.OrderID == orderID && r.SenderRole == from && !r.IsRead {
			n++
		}
	}
	return n, nil
}

func (s *memStore) seed(m chat.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows = append(s.rows, m)
}

func (s *memStore) snapshot() []chat.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]chat.Message(nil), s.rows...)
}

type orderBook map[string]*order.Order

func (b orderBook) GetByID(_ context.Context, orderID string) (*order.Order, error) {
	o, ok := b[orderID]
	if !ok {
		return nil, apperr.NotFound("order not found")
	}
	return o, nil
}

type inlineUoW struct{ calls int }

func (u *inlineUoW) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	u.calls++
	return fn(ctx)
}

func activeOrder() orderBook {
	driver := "drv-1"
	return orderBook{
		"ord-1": {
			ID:         "ord-1",
			CustomerID: "cust-1",
			MerchantID: "merch-1",
			DriverID:   &driver,
			Status:     order.StatusOnDelivery,
		},
	}
}

func as(userID string, role user.Role) context.Context {
	return jwt.InjectClaims(context.Background(), jwt.NewUserClaims(userID, role, time.Hour))
}
