package cli

import (
	"fmt"
	"io"
	"time"

	"delivery-hub/internal/domain/user"
	"delivery-hub/internal/general/jwt"
)

// GenerateUserToken mints a JWT for a seeded user. Dev only.
func GenerateUserToken(secret, userID, roleStr string, ttl time.Duration) (string, jwt.Claims, error) {
	role, err := user.ParseRole(roleStr)
	if err != nil {
		return "", jwt.Claims{}, fmt.Errorf("invalid role %q: %w", roleStr, err)
	}
	if secret == "" {
		return "", jwt.Claims{}, fmt.Errorf("secret is required")
	}

	token, claims, err := jwt.NewManager(secret, ttl).IssueUserToken(userID, role)
	if err != nil {
		return "", jwt.Claims{}, fmt.Errorf("issue token: %w", err)
	}
	return token, *claims, nil
}

// PrintToken writes the token and its claims in a copy-friendly form.
func PrintToken(w io.Writer, token string, claims jwt.Claims) {
	fmt.Fprintln(w, "TOKEN:")
	fmt.Fprintln(w, token)
	fmt.Fprintln(w, "\nCLAIMS:")
	fmt.Fprintf(w, "  sub:  %s\n", claims.Subject)
	fmt.Fprintf(w, "  role: %s\n", claims.Role)
	fmt.Fprintf(w, "  iat:  %s\n", claims.IssuedAt.Time.UTC().Format(time.RFC3339))
	fmt.Fprintf(w, "  exp:  %s\n", claims.ExpiresAt.Time.UTC().Format(time.RFC3339))
}
