package jwt

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"delivery-hub/internal/domain/user"

	jwtlib "github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIssueAndParse(t *testing.T) {
	mgr := NewManager("test-secret", time.Minute)

	raw, issued, err := mgr.IssueUserToken("drv-1", user.RoleDriver)
	require.NoError(t, err)
	require.NotEmpty(t, raw)
	assert.Equal(t, "drv-1", issued.Subject)

	claims, err := mgr.ParseAndValidate(raw)
	require.NoError(t, err)
	assert.Equal(t, Principal{UserID: "drv-1", Role: user.RoleDriver}, claims.Principal())
}

func TestParseRejects(t *testing.T) {
	mgr := NewManager("test-secret", time.Minute)

	t.Run("other secret", func(t *testing.T) {
		raw, _, err := NewManager("other", time.Minute).IssueUserToken("c-1", user.RoleCustomer)
		require.NoError(t, err)
		_, err = mgr.ParseAndValidate(raw)
		require.Error(t, err)
	})

	t.Run("expired", func(t *testing.T) {
		claims := NewUserClaims("c-1", user.RoleCustomer, -time.Minute)
		raw, err := jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
		require.NoError(t, err)
		_, err = mgr.ParseAndValidate(raw)
		require.ErrorIs(t, err, jwtlib.ErrTokenExpired)
	})

	t.Run("unknown role", func(t *testing.T) {
		claims := NewUserClaims("c-1", user.Role("PASSENGER"), time.Minute)
		raw, err := jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
		require.NoError(t, err)
		_, err = mgr.ParseAndValidate(raw)
		require.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("invalid role on issue", func(t *testing.T) {
		_, _, err := mgr.IssueUserToken("x", user.Role("nope"))
		require.Error(t, err)
	})
}

func TestValidateWSAuth(t *testing.T) {
	mgr := NewManager("test-secret", time.Minute)
	raw, _, err := mgr.IssueUserToken("cust-7", user.RoleCustomer)
	require.NoError(t, err)

	claims, err := ValidateWSAuth([]byte(`{"type":"auth","token":"Bearer `+raw+`"}`), mgr, user.RoleCustomer)
	require.NoError(t, err)
	assert.Equal(t, "cust-7", claims.Subject)

	_, err = ValidateWSAuth([]byte(`{"type":"auth","token":"Bearer `+raw+`"}`), mgr, user.RoleDriver)
	require.ErrorIs(t, err, ErrRoleForbidden)

	_, err = ValidateWSAuth([]byte(`{"type":"auth","token":"`+raw+`"}`), mgr)
	require.ErrorIs(t, err, ErrBadTokenWrap)

	_, err = ValidateWSAuth([]byte(`{"type":"hello"}`), mgr)
	require.ErrorIs(t, err, ErrBadAuthMsg)

	_, err = ValidateWSAuth([]byte(`not json`), mgr)
	require.ErrorIs(t, err, ErrBadAuthMsg)
}

func TestAuthMiddleware(t *testing.T) {
	mgr := NewManager("test-secret", time.Minute)
	raw, _, err := mgr.IssueUserToken("cust-1", user.RoleCustomer)
	require.NoError(t, err)

	var seen Principal
	h := AuthMiddlewareFunc(mgr, user.RoleCustomer)(func(w http.ResponseWriter, r *http.Request) {
		p, ok := PrincipalFromContext(r.Context())
		require.True(t, ok)
		seen = p
		w.WriteHeader(http.StatusNoContent)
	})

	cases := []struct {
		name   string
		header string
		query  string
		want   int
	}{
		{name: "header", header: "Bearer " + raw, want: http.StatusNoContent},
		{name: "query", query: "?token=" + raw, want: http.StatusNoContent},
		{name: "missing", want: http.StatusUnauthorized},
		{name: "bad scheme", header: "Basic abc", want: http.StatusUnauthorized},
		{name: "garbage", header: "Bearer abc", want: http.StatusUnauthorized},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/x"+tc.query, nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			rec := httptest.NewRecorder()
			h(rec, req)
			assert.Equal(t, tc.want, rec.Code)
		})
	}
	assert.Equal(t, "cust-1", seen.UserID)

	t.Run("wrong role", func(t *testing.T) {
		drv, _, err := mgr.IssueUserToken("drv-1", user.RoleDriver)
		require.NoError(t, err)
		req := httptest.NewRequest(http.MethodGet, "/x", nil)
		req.Header.Set("Authorization", "Bearer "+drv)
		rec := httptest.NewRecorder()
		h(rec, req)
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})
}

func TestPrincipalFromEmptyContext(t *testing.T) {
	_, ok := PrincipalFromContext(context.Background())
	assert.False(t, ok)
}
