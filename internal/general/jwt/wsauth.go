package jwt

import (
	"encoding/json"
	"errors"
	"strings"

	"delivery-hub/internal/domain/user"
)

var (
	ErrBadAuthMsg   = errors.New("invalid auth message")
	ErrBadTokenWrap = errors.New("token must be 'Bearer <token>'")
)

// ClientAuthMessage is the first frame on every socket:
// { "type":"auth", "token":"Bearer <jwt>" }
type ClientAuthMessage struct {
	Type  string `json:"type"`
	Token string `json:"token"`
}

// ValidateWSAuth checks the auth frame and returns the verified claims.
func ValidateWSAuth(frame []byte, mgr *Manager, allowedRoles ...user.Role) (*Claims, error) {
	var msg ClientAuthMessage
	if err := json.Unmarshal(frame, &msg); err != nil {
		return nil, ErrBadAuthMsg
	}
	if !strings.EqualFold(strings.TrimSpace(msg.Type), "auth") {
		return nil, ErrBadAuthMsg
	}

	scheme, raw, ok := strings.Cut(strings.TrimSpace(msg.Token), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return nil, ErrBadTokenWrap
	}

	claims, err := mgr.ParseAndValidate(strings.TrimSpace(raw))
	if err != nil {
		return nil, err
	}
	if err := RoleAllowed(claims, allowedRoles...); err != nil {
		return nil, err
	}

	return claims, nil
}
