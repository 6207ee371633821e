package websocket

import (
	"io"
	"log/slog"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taskhive/taskhive-backend/internal/core/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// newActiveClient builds a client that went through the full
// handshake: authenticated and admitted to the hub's registry.
func newActiveClient(t *testing.T, hub *Hub, userID uuid.UUID) *Client {
	t.Helper()

	c := NewClient(hub, nil, testLogger())
	require.True(t, c.Authenticate(userID))
	require.True(t, hub.Registry().Admit(c))
	return c
}

func TestClient_StateMachine(t *testing.T) {
	hub := NewHub(testLogger())
	userID := uuid.New()

	t.Run("full lifecycle", func(t *testing.T) {
		c := NewClient(hub, nil, testLogger())
		assert.Equal(t, StateConnecting, c.State())

		require.True(t, c.Authenticate(userID))
		assert.Equal(t, StateAuthenticated, c.State())

		require.True(t, hub.Registry().Admit(c))
		assert.Equal(t, StateActive, c.State())

		hub.Registry().Evict(c.ID)
		assert.Equal(t, StateClosed, c.State())
	})

	t.Run("authenticate twice fails", func(t *testing.T) {
		c := NewClient(hub, nil, testLogger())
		require.True(t, c.Authenticate(userID))
		assert.False(t, c.Authenticate(userID))
	})

	t.Run("verification failure closes without admission", func(t *testing.T) {
		c := NewClient(hub, nil, testLogger())
		require.True(t, c.markClosed())

		// A closed session is refused by the registry.
		assert.False(t, hub.Registry().Admit(c))
		assert.Equal(t, 0, hub.ClientCount())
	})

	t.Run("closed is terminal", func(t *testing.T) {
		c := newActiveClient(t, hub, userID)
		hub.Registry().Evict(c.ID)

		assert.False(t, c.markActive())
		assert.False(t, c.Authenticate(userID))
		assert.False(t, c.markClosed())
		assert.Equal(t, StateClosed, c.State())
	})
}

func TestClient_TrySend(t *testing.T) {
	hub := NewHub(testLogger())
	userID := uuid.New()

	t.Run("delivers while active", func(t *testing.T) {
		c := newActiveClient(t, hub, userID)

		event := domain.Event{Type: domain.EventTaskUpdate, Payload: "t1"}
		require.True(t, c.TrySend(event))

		got := <-c.Send
		assert.Equal(t, event, got)
	})

	t.Run("refused before admission", func(t *testing.T) {
		c := NewClient(hub, nil, testLogger())
		require.True(t, c.Authenticate(userID))

		assert.False(t, c.TrySend(domain.Event{Type: domain.EventNotification}))
	})

	t.Run("refused after close", func(t *testing.T) {
		c := newActiveClient(t, hub, userID)
		hub.Registry().Evict(c.ID)

		assert.False(t, c.TrySend(domain.Event{Type: domain.EventNotification}))
	})

	t.Run("saturated buffer drops but connection stays", func(t *testing.T) {
		c := newActiveClient(t, hub, userID)

		for i := 0; i < sendBufferSize; i++ {
			require.True(t, c.TrySend(domain.Event{Type: domain.EventNotification, Payload: i}))
		}

		// One more: dropped, not delivered.
		assert.False(t, c.TrySend(domain.Event{Type: domain.EventNotification}))

		// Backpressure is not disconnection: still registered, still active.
		assert.Equal(t, StateActive, c.State())
		assert.True(t, hub.Registry().IsUserConnected(userID))
	})
}

func TestClient_RoomSet(t *testing.T) {
	hub := NewHub(testLogger())
	c := newActiveClient(t, hub, uuid.New())
	p1 := uuid.New()
	p2 := uuid.New()

	c.addRoom(p1)
	c.addRoom(p2)
	assert.True(t, c.HasRoom(p1))
	assert.ElementsMatch(t, []uuid.UUID{p1, p2}, c.Rooms())

	c.removeRoom(p1)
	assert.False(t, c.HasRoom(p1))
	assert.ElementsMatch(t, []uuid.UUID{p2}, c.Rooms())
}
