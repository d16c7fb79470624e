// Package apperr is the error taxonomy shared by the tracking and chat services.
package apperr

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Kind classifies an error for propagation and transport mapping.
type Kind string

const (
	KindUnknown         Kind = "unknown"
	KindUnauthenticated Kind = "unauthenticated"
	KindInvalidArgument Kind = "invalid_argument"
	KindNotFound        Kind = "not_found"
	KindForbidden       Kind = "forbidden"
	KindTransientIO     Kind = "transient_io"
	KindTimeout         Kind = "timeout"
)

var (
	ErrUnauthenticated = errors.New("unauthenticated")
	ErrInvalidArgument = errors.New("invalid argument")
	ErrNotFound        = errors.New("not found")
	ErrForbidden       = errors.New("forbidden")
	ErrTransientIO     = errors.New("transient i/o failure")
	ErrTimeout         = errors.New("timeout")
)

var sentinels = map[Kind]error{
	KindUnauthenticated: ErrUnauthenticated,
	KindInvalidArgument: ErrInvalidArgument,
	KindNotFound:        ErrNotFound,
	KindForbidden:       ErrForbidden,
	KindTransientIO:     ErrTransientIO,
	KindTimeout:         ErrTimeout,
}

// Error carries a Kind, a caller-facing message and an optional cause.
type Error struct {
	Kind  Kind
	Msg   string
	Cause error
}

func (e *Error) Error() string {
	switch {
	case e.Cause != nil && e.Msg != "":
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Msg, e.Cause)
	case e.Cause != nil:
		return fmt.Sprintf("%s: %v", e.Kind, e.Cause)
	case e.Msg != "":
		return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
	default:
		return string(e.Kind)
	}
}

// Is matches the sentinel of the error's kind, so errors.Is(err, ErrTimeout) works.
func (e *Error) Is(target error) bool {
	s, ok := sentinels[e.Kind]
	return ok && target == s
}

func (e *Error) Unwrap() error { return e.Cause }

// E builds a classified error.
func E(kind Kind, msg string, cause error) error {
	return &Error{Kind: kind, Msg: msg, Cause: cause}
}

func Unauthenticated(msg string) error { return E(KindUnauthenticated, msg, nil) }

func InvalidArgument(msg string, cause error) error { return E(KindInvalidArgument, msg, cause) }

func NotFound(msg string) error { return E(KindNotFound, msg, nil) }

func Forbidden(msg string) error { return E(KindForbidden, msg, nil) }

// FromStore classifies an error from the relational store or a bounded context.
// Already classified errors pass through unchanged.
func FromStore(op string, err error) error {
	if err == nil {
		return nil
	}
	var ae *Error
	if errors.As(err, &ae) {
		return err
	}
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		return E(KindNotFound, op, err)
	case errors.Is(err, context.DeadlineExceeded):
		return E(KindTimeout, op, err)
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		// class 22 (data exception) and 23 (integrity constraint) are caller mistakes
		if len(pgErr.Code) >= 2 && (pgErr.Code[:2] == "22" || pgErr.Code[:2] == "23") {
			return E(KindInvalidArgument, op, err)
		}
	}
	return E(KindTransientIO, op, err)
}

// KindOf returns the classification of err, KindUnknown when unclassified.
func KindOf(err error) Kind {
	if err == nil {
		return KindUnknown
	}
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Kind
	}
	for kind, sentinel := range sentinels {
		if errors.Is(err, sentinel) {
			return kind
		}
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return KindTimeout
	}
	return KindUnknown
}

// HTTPStatus maps err to the response status used by the HTTP handlers.
func HTTPStatus(err error) int {
	switch KindOf(err) {
	case KindUnauthenticated:
		return http.StatusUnauthorized
	case KindInvalidArgument:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindForbidden:
		return http.StatusForbidden
	case KindTransientIO:
		return http.StatusServiceUnavailable
	case KindTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// Message returns the caller-facing message, falling back to the kind.
func Message(err error) string {
	var ae *Error
	if errors.As(err, &ae) {
		if ae.Msg != "" {
			return ae.Msg
		}
		return string(ae.Kind)
	}
	return "internal error"
}
