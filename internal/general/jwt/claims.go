package jwt

import (
	"time"

	"delivery-hub/internal/domain/user"

	jwtlib "github.com/golang-jwt/jwt/v5"
)

// Claims is the signed token payload. Subject carries the user id.
type Claims struct {
	Role user.Role `json:"role"`
	jwtlib.RegisteredClaims
}

var _ jwtlib.Claims = (*Claims)(nil)

// NewUserClaims builds claims for a customer, merchant, driver or admin.
func NewUserClaims(userID string, role user.Role, ttl time.Duration) *Claims {
	now := time.Now().UTC()
	return &Claims{
		Role: role,
		RegisteredClaims: jwtlib.RegisteredClaims{
			Subject:   userID,
			ExpiresAt: jwtlib.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwtlib.NewNumericDate(now),
		},
	}
}

// Principal is the verified caller identity.
type Principal struct {
	UserID string
	Role   user.Role
}

// Principal converts verified claims to a caller identity.
func (c *Claims) Principal() Principal {
	return Principal{UserID: c.Subject, Role: c.Role}
}
