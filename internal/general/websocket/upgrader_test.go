package websocket

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"delivery-hub/internal/domain/user"
	"delivery-hub/internal/general/jwt"
	"delivery-hub/internal/general/logger"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func echoServer(t *testing.T, mgr *jwt.Manager, authorize Authorizer) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := Accept(w, r, mgr, logger.Discard(), authorize, user.RoleCustomer)
		if err != nil {
			return
		}
		defer conn.Close()
		conn.ReadLoop(r.Context(), func(payload []byte) {
			typ, err := DecodeFrame(payload)
			if err != nil {
				_ = conn.SendError("bad_json", "bad json")
				return
			}
			_ = conn.WriteJSON(map[string]string{"type": "echo", "of": typ, "user": conn.Principal().UserID})
		})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	c, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	_ = c.SetReadDeadline(time.Now().Add(2 * time.Second))
	return c
}

func TestAcceptAuthenticates(t *testing.T) {
	mgr := jwt.NewManager("secret", time.Minute)
	token, _, err := mgr.IssueUserToken("cust-1", user.RoleCustomer)
	require.NoError(t, err)

	c := dial(t, echoServer(t, mgr, nil))
	require.NoError(t, c.WriteJSON(jwt.ClientAuthMessage{Type: "auth", Token: "Bearer " + token}))

	var ok map[string]any
	require.NoError(t, c.ReadJSON(&ok))
	assert.Equal(t, "auth_ok", ok["type"])
	assert.Equal(t, "cust-1", ok["user_id"])

	require.NoError(t, c.WriteJSON(map[string]string{"type": "hello"}))
	var echo map[string]string
	require.NoError(t, c.ReadJSON(&echo))
	assert.Equal(t, map[string]string{"type": "echo", "of": "hello", "user": "cust-1"}, echo)

	require.NoError(t, c.WriteMessage(websocket.TextMessage, []byte("{")))
	var notice map[string]string
	require.NoError(t, c.ReadJSON(&notice))
	assert.Equal(t, "error", notice["type"])
	assert.Equal(t, "bad_json", notice["code"])
}

func TestAcceptRejects(t *testing.T) {
	mgr := jwt.NewManager("secret", time.Minute)
	driverToken, _, err := mgr.IssueUserToken("drv-1", user.RoleDriver)
	require.NoError(t, err)
	customerToken, _, err := mgr.IssueUserToken("cust-1", user.RoleCustomer)
	require.NoError(t, err)

	cases := []struct {
		name      string
		frame     any
		authorize Authorizer
	}{
		{name: "wrong role", frame: jwt.ClientAuthMessage{Type: "auth", Token: "Bearer " + driverToken}},
		{name: "garbage token", frame: jwt.ClientAuthMessage{Type: "auth", Token: "Bearer nope"}},
		{name: "not an auth frame", frame: map[string]string{"type": "hello"}},
		{
			name:  "authorizer says no",
			frame: jwt.ClientAuthMessage{Type: "auth", Token: "Bearer " + customerToken},
			authorize: func(context.Context, *http.Request, *jwt.Claims) error {
				return errors.New("not a participant of this order")
			},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c := dial(t, echoServer(t, mgr, tc.authorize))
			require.NoError(t, c.WriteJSON(tc.frame))

			var reply map[string]any
			require.NoError(t, c.ReadJSON(&reply))
			assert.Equal(t, "auth_error", reply["type"])

			_, _, err := c.ReadMessage()
			require.Error(t, err)
		})
	}
}
