package http

import (
	"context"
	"encoding/json"
	stdhttp "net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taskhive/taskhive-backend/internal/config"
	"github.com/taskhive/taskhive-backend/internal/core/domain"
	"github.com/taskhive/taskhive-backend/internal/core/ports"
)

func newWebSocketServer(t *testing.T, env *testEnv) *httptest.Server {
	t.Helper()

	cfg := &config.Config{
		WebSocket: config.WebSocketConfig{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		App: config.AppConfig{Environment: "development"},
	}

	logger := testDiscardLogger()
	handler := NewWebSocketHandler(env.hub, env.tokenManager, cfg, logger)

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return server
}

func dialWebSocket(t *testing.T, server *httptest.Server, token string) *websocket.Conn {
	t.Helper()

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http") + "?token=" + token
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func readEvent(t *testing.T, conn *websocket.Conn) domain.Event {
	t.Helper()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(3*time.Second)))
	var event domain.Event
	require.NoError(t, conn.ReadJSON(&event))
	return event
}

func TestWebSocket_RejectsMissingToken(t *testing.T) {
	env := newTestEnv(t)
	server := newWebSocketServer(t, env)

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http")
	_, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, stdhttp.StatusUnauthorized, resp.StatusCode)
}

func TestWebSocket_RejectsInvalidToken(t *testing.T) {
	env := newTestEnv(t)
	server := newWebSocketServer(t, env)

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http") + "?token=not-a-jwt"
	_, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, stdhttp.StatusUnauthorized, resp.StatusCode)
}

func TestWebSocket_ReceivesUserNotification(t *testing.T) {
	env := newTestEnv(t)
	server := newWebSocketServer(t, env)

	user, token := registerTestUser(t, env, "wsuser")
	conn := dialWebSocket(t, server, token)

	// Give the read pump a moment to register
	require.Eventually(t, func() bool {
		return env.hub.ClientCount() == 1
	}, 2*time.Second, 10*time.Millisecond)

	count := env.hub.NotifyUser(user.ID, domain.Event{
		Type:    domain.EventNotification,
		Payload: json.RawMessage(`{"title":"hello"}`),
	})
	assert.Equal(t, 1, count)

	event := readEvent(t, conn)
	assert.Equal(t, domain.EventNotification, event.Type)
}

func TestWebSocket_RoomDeliveryAfterJoin(t *testing.T) {
	env := newTestEnv(t)
	server := newWebSocketServer(t, env)

	manager, token := registerTestUser(t, env, "wsroomuser")
	project, err := env.projectService.CreateProject(context.Background(), ports.CreateProjectParams{
		Name:      "Realtime Project",
		ManagerID: manager.ID,
	})
	require.NoError(t, err)

	conn := dialWebSocket(t, server, token)
	require.Eventually(t, func() bool {
		return env.hub.ClientCount() == 1
	}, 2*time.Second, 10*time.Millisecond)

	// Join the project room
	join := map[string]interface{}{
		"type":    "join_project",
		"payload": map[string]string{"projectId": project.ID.String()},
	}
	require.NoError(t, conn.WriteJSON(join))

	require.Eventually(t, func() bool {
		return env.hub.NotifyRoom(project.ID, domain.Event{
			Type:    domain.EventProjectUpdate,
			Payload: json.RawMessage(`{}`),
		}) == 1
	}, 2*time.Second, 20*time.Millisecond)

	event := readEvent(t, conn)
	assert.Equal(t, domain.EventProjectUpdate, event.Type)
}

func TestWebSocket_EvictOnDisconnect(t *testing.T) {
	env := newTestEnv(t)
	server := newWebSocketServer(t, env)

	_, token := registerTestUser(t, env, "wsleaver")
	conn := dialWebSocket(t, server, token)

	require.Eventually(t, func() bool {
		return env.hub.ClientCount() == 1
	}, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, conn.Close())

	require.Eventually(t, func() bool {
		return env.hub.ClientCount() == 0
	}, 2*time.Second, 10*time.Millisecond)
}
