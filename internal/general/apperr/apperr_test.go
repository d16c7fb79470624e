package apperr

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
)

func TestErrorIs(t *testing.T) {
	err := fmt.Errorf("send: %w", E(KindTimeout, "send timed out", context.DeadlineExceeded))

	assert.ErrorIs(t, err, ErrTimeout)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.NotErrorIs(t, err, ErrTransientIO)
	assert.Equal(t, KindTimeout, KindOf(err))
}

func TestFromStore(t *testing.T) {
	tests := []struct {
		name string
		in   error
		want Kind
	}{
		{"no rows", pgx.ErrNoRows, KindNotFound},
		{"deadline", context.DeadlineExceeded, KindTimeout},
		{"check violation", &pgconn.PgError{Code: "23514"}, KindInvalidArgument},
		{"connection failure", &pgconn.PgError{Code: "08006"}, KindTransientIO},
		{"plain error", errors.New("boom"), KindTransientIO},
		{"already classified", NotFound("order"), KindNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, KindOf(FromStore("op", tt.in)))
		})
	}
	assert.Nil(t, FromStore("op", nil))
}

func TestHTTPStatus(t *testing.T) {
	assert.Equal(t, http.StatusUnauthorized, HTTPStatus(Unauthenticated("login")))
	assert.Equal(t, http.StatusBadRequest, HTTPStatus(InvalidArgument("empty", nil)))
	assert.Equal(t, http.StatusNotFound, HTTPStatus(NotFound("order")))
	assert.Equal(t, http.StatusForbidden, HTTPStatus(Forbidden("nope")))
	assert.Equal(t, http.StatusServiceUnavailable, HTTPStatus(E(KindTransientIO, "", nil)))
	assert.Equal(t, http.StatusGatewayTimeout, HTTPStatus(context.DeadlineExceeded))
	assert.Equal(t, http.StatusInternalServerError, HTTPStatus(errors.New("x")))
}

func TestMessage(t *testing.T) {
	assert.Equal(t, "order not found", Message(NotFound("order not found")))
	assert.Equal(t, "timeout", Message(E(KindTimeout, "", nil)))
	assert.Equal(t, "internal error", Message(errors.New("secret detail")))
}
