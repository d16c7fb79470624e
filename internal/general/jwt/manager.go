package jwt

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"slices"
	"strings"
	"time"

	"delivery-hub/internal/domain/user"

	jwtlib "github.com/golang-jwt/jwt/v5"
)

var (
	ErrMissingToken       = errors.New("missing or malformed Authorization")
	ErrInvalidSigningAlgo = errors.New("unexpected signing method")
	ErrInvalidToken       = errors.New("invalid token")
	ErrMissingSubject     = errors.New("token has no subject")
	ErrRoleForbidden      = errors.New("role not allowed")
)

// Manager signs and verifies HS256 access tokens.
type Manager struct {
	secret    []byte
	accessTTL time.Duration
}

// NewManager panics on an empty secret; config always provides one.
func NewManager(secret string, accessTTL time.Duration) *Manager {
	s := strings.TrimSpace(secret)
	if s == "" {
		panic("jwt: empty secret key")
	}
	if accessTTL <= 0 {
		accessTTL = time.Hour
	}

	return &Manager{secret: []byte(s), accessTTL: accessTTL}
}

// IssueUserToken returns a signed access token.
func (m *Manager) IssueUserToken(userID string, role user.Role) (string, *Claims, error) {
	if !role.Valid() {
		return "", nil, fmt.Errorf("invalid role: %s", role)
	}
	if strings.TrimSpace(userID) == "" {
		return "", nil, ErrMissingSubject
	}

	claims := NewUserClaims(userID, role, m.accessTTL)
	signed, err := jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, claims).SignedString(m.secret)
	return signed, claims, err
}

// FromAuthorization reads "Authorization: Bearer <token>" or, for browsers
// that cannot set headers on upgrade, the "token" query parameter.
func FromAuthorization(r *http.Request) (string, error) {
	if h := r.Header.Get("Authorization"); h != "" {
		raw, ok := strings.CutPrefix(h, "Bearer ")
		if !ok || strings.TrimSpace(raw) == "" {
			return "", ErrMissingToken
		}
		return strings.TrimSpace(raw), nil
	}

	if q := strings.TrimSpace(r.URL.Query().Get("token")); q != "" {
		return strings.TrimSpace(strings.TrimPrefix(q, "Bearer ")), nil
	}

	return "", ErrMissingToken
}

// ParseAndValidate verifies the signature and standard claims.
func (m *Manager) ParseAndValidate(tokenString string) (*Claims, error) {
	parser := jwtlib.NewParser(jwtlib.WithValidMethods([]string{jwtlib.SigningMethodHS256.Alg()}))

	claims := &Claims{}
	token, err := parser.ParseWithClaims(tokenString, claims, func(t *jwtlib.Token) (any, error) {
		if t.Method != jwtlib.SigningMethodHS256 {
			return nil, ErrInvalidSigningAlgo
		}
		return m.secret, nil
	})
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, ErrInvalidToken
	}
	if strings.TrimSpace(claims.Subject) == "" {
		return nil, ErrMissingSubject
	}
	if !claims.Role.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidToken, claims.Role)
	}

	return claims, nil
}

// RoleAllowed passes when allowed is empty or contains the claims' role.
func RoleAllowed(cl *Claims, allowed ...user.Role) error {
	if len(allowed) == 0 || slices.Contains(allowed, cl.Role) {
		return nil
	}
	return ErrRoleForbidden
}

type ctxKey string

const claimsCtxKey ctxKey = "jwtClaims"

// InjectClaims adds verified claims to the context.
func InjectClaims(ctx context.Context, c *Claims) context.Context {
	return context.WithValue(ctx, claimsCtxKey, c)
}

// FromContext extracts claims from the context.
func FromContext(ctx context.Context) (*Claims, bool) {
	c, ok := ctx.Value(claimsCtxKey).(*Claims)
	return c, ok && c != nil
}

// PrincipalFromContext returns the caller identity, if authenticated.
func PrincipalFromContext(ctx context.Context) (Principal, bool) {
	c, ok := FromContext(ctx)
	if !ok {
		return Principal{}, false
	}
	return c.Principal(), true
}
