package websocket

import (
	"math/rand"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taskhive/taskhive-backend/internal/core/domain"
)

// drain empties a client's send buffer and returns the received events.
func drain(c *Client) []domain.Event {
	var out []domain.Event
	for {
		select {
		case ev := <-c.Send:
			out = append(out, ev)
		default:
			return out
		}
	}
}

func TestDispatcher_UserFanOut(t *testing.T) {
	hub := NewHub(testLogger())
	userID := uuid.New()

	t.Run("one push per live connection", func(t *testing.T) {
		c1 := newActiveClient(t, hub, userID)
		c2 := newActiveClient(t, hub, userID)
		c3 := newActiveClient(t, hub, userID)

		delivered := hub.NotifyUser(userID, domain.Event{Type: domain.EventNotification, Payload: "n1"})
		assert.Equal(t, 3, delivered)
		for _, c := range []*Client{c1, c2, c3} {
			assert.Len(t, drain(c), 1)
		}
	})

	t.Run("zero connections is not an error", func(t *testing.T) {
		delivered := hub.NotifyUser(uuid.New(), domain.Event{Type: domain.EventNotification})
		assert.Equal(t, 0, delivered)
	})
}

func TestDispatcher_RoomDelivery(t *testing.T) {
	hub := NewHub(testLogger())

	// u1 opens two tabs, both join p1; u2 is connected but not in p1.
	u1 := uuid.New()
	u2 := uuid.New()
	c1 := newActiveClient(t, hub, u1)
	c2 := newActiveClient(t, hub, u1)
	c3 := newActiveClient(t, hub, u2)

	p1 := uuid.New()
	hub.Rooms().Join(c1, p1)
	hub.Rooms().Join(c2, p1)

	payload := map[string]string{"id": "t1"}
	delivered := hub.NotifyRoom(p1, domain.Event{Type: domain.EventTaskUpdate, Payload: payload})
	require.Equal(t, 2, delivered)

	for _, c := range []*Client{c1, c2} {
		events := drain(c)
		require.Len(t, events, 1)
		assert.Equal(t, domain.EventTaskUpdate, events[0].Type)
		assert.Equal(t, payload, events[0].Payload)
	}

	assert.Empty(t, drain(c3), "connections outside the room receive nothing")
}

func TestDispatcher_RoomIsolation(t *testing.T) {
	hub := NewHub(testLogger())
	a := newActiveClient(t, hub, uuid.New())
	b := newActiveClient(t, hub, uuid.New())

	roomA := uuid.New()
	roomB := uuid.New()
	hub.Rooms().Join(a, roomA)
	hub.Rooms().Join(b, roomB)

	hub.NotifyRoom(roomA, domain.Event{Type: domain.EventProjectUpdate})

	assert.Len(t, drain(a), 1)
	assert.Empty(t, drain(b), "dispatch to A never reaches a connection only in B")
}

func TestDispatcher_DisconnectDuringDispatch(t *testing.T) {
	hub := NewHub(testLogger())
	p1 := uuid.New()

	stay := newActiveClient(t, hub, uuid.New())
	gone := newActiveClient(t, hub, uuid.New())
	hub.Rooms().Join(stay, p1)
	hub.Rooms().Join(gone, p1)

	// The eviction races the dispatch; the evicted connection is either
	// delivered to before the close or skipped cleanly, never crashed on.
	hub.Registry().Evict(gone.ID)
	delivered := hub.NotifyRoom(p1, domain.Event{Type: domain.EventCommentUpdate})

	assert.Equal(t, 1, delivered)
	assert.Len(t, drain(stay), 1)
}

// TestDispatcher_ConcurrentStress hammers one room with concurrent
// admits, evicts, joins, leaves and dispatches, then verifies the room
// index and the per-connection room sets are mutually consistent.
func TestDispatcher_ConcurrentStress(t *testing.T) {
	hub := NewHub(testLogger())
	p1 := uuid.New()

	const workers = 32
	const iterations = 200

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(seed int64) {
			defer wg.Done()
			rng := rand.New(rand.NewSource(seed))
			userID := uuid.New()

			for i := 0; i < iterations; i++ {
				// No require helpers off the test goroutine.
				c := NewClient(hub, nil, testLogger())
				if !c.Authenticate(userID) || !hub.Registry().Admit(c) {
					continue
				}

				switch rng.Intn(4) {
				case 0:
					hub.Rooms().Join(c, p1)
				case 1:
					hub.Rooms().Join(c, p1)
					hub.Rooms().Leave(c, p1)
				case 2:
					hub.Rooms().Join(c, p1)
					hub.NotifyRoom(p1, domain.Event{Type: domain.EventTaskUpdate, Payload: i})
				case 3:
					hub.NotifyUser(userID, domain.Event{Type: domain.EventNotification, Payload: i})
				}

				if rng.Intn(2) == 0 {
					hub.Registry().Evict(c.ID)
				} else {
					defer hub.Registry().Evict(c.ID)
				}
			}
		}(int64(w))
	}
	wg.Wait()

	// Everything admitted was eventually evicted: indices are empty and
	// mutually consistent.
	assert.Equal(t, 0, hub.ClientCount())
	assert.Equal(t, 0, hub.RoomCount())
	assert.Empty(t, hub.Rooms().MembersOf(p1))
}

// TestDispatcher_MembershipConsistencyUnderChurn keeps a mix of live
// and evicted connections and checks bidirectional consistency of the
// membership indices once the churn settles.
func TestDispatcher_MembershipConsistencyUnderChurn(t *testing.T) {
	hub := NewHub(testLogger())
	p1 := uuid.New()

	const total = 64
	clients := make([]*Client, 0, total)
	for i := 0; i < total; i++ {
		clients = append(clients, newActiveClient(t, hub, uuid.New()))
	}

	var wg sync.WaitGroup
	for i, c := range clients {
		wg.Add(1)
		go func(i int, c *Client) {
			defer wg.Done()
			hub.Rooms().Join(c, p1)
			switch i % 3 {
			case 0:
				hub.Rooms().Leave(c, p1)
			case 1:
				hub.Registry().Evict(c.ID)
			}
		}(i, c)
	}
	wg.Wait()

	members := hub.Rooms().MembersOf(p1)
	for _, m := range members {
		assert.True(t, m.HasRoom(p1), "room member must record the room on its own side")
		assert.Equal(t, StateActive, m.State(), "closed connections must not remain in rooms")
	}
	for _, c := range clients {
		if c.HasRoom(p1) {
			assert.Contains(t, members, c, "connection claiming membership must be in the room index")
		}
	}
}
