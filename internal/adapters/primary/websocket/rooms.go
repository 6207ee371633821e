package websocket

import (
	"log/slog"
	"sync"

	"github.com/google/uuid"
)

// room is one broadcast group. Its lock serializes membership changes
// on this room only; joins and leaves on other rooms proceed in
// parallel.
type room struct {
	mu      sync.RWMutex
	members map[uuid.UUID]*Client // connection id -> client
	deleted bool
}

// RoomManager is the concurrent-safe many-to-many mapping between
// connections and rooms, one room per project. Rooms are created
// lazily on first join and removed as soon as their member set
// empties; a room has no existence independent of membership.
//
// The manager holds non-owning references only: a connection's record
// is owned by the registry, and the registry's evict is the one caller
// of evictAll.
type RoomManager struct {
	mu     sync.RWMutex
	rooms  map[uuid.UUID]*room
	logger *slog.Logger
}

// NewRoomManager creates an empty room index.
func NewRoomManager(logger *slog.Logger) *RoomManager {
	return &RoomManager{
		rooms:  make(map[uuid.UUID]*room),
		logger: logger.With("component", "room_manager"),
	}
}

// Join adds the connection to the room and the room to the connection's
// joined set, atomically with respect to concurrent joins and leaves on
// the same room. Joining a room already joined is a no-op. Joining from
// a session that is not Active is ignored.
//
// The manager does not check whether the identity is authorized to view
// the project; that check belongs to the caller.
func (m *RoomManager) Join(c *Client, projectID uuid.UUID) {
	if c.State() != StateActive {
		return
	}

	for {
		m.mu.Lock()
		rm, ok := m.rooms[projectID]
		if !ok {
			rm = &room{members: make(map[uuid.UUID]*Client)}
			m.rooms[projectID] = rm
		}
		m.mu.Unlock()

		rm.mu.Lock()
		if rm.deleted {
			// Lost a race with garbage collection of the empty room;
			// the index no longer holds this room object.
			rm.mu.Unlock()
			continue
		}
		if _, exists := rm.members[c.ID]; !exists {
			rm.members[c.ID] = c
			c.addRoom(projectID)
		}
		// An eviction can slip in between the state check at the top and
		// the insert, after evictAll already swept an empty room set. A
		// closed connection must never stay reachable from a room, so
		// re-check under the room lock and undo the insert if it lost
		// that race.
		if c.State() == StateClosed {
			delete(rm.members, c.ID)
			c.removeRoom(projectID)
			empty := len(rm.members) == 0
			rm.mu.Unlock()
			if empty {
				m.collect(projectID, rm)
			}
			return
		}
		rm.mu.Unlock()

		m.logger.Debug("connection joined room",
			"connection_id", c.ID,
			"project_id", projectID,
		)
		return
	}
}

// Leave removes the connection from the room, symmetric to Join.
// Leaving a room never joined is a no-op. An emptied room is removed
// from the index.
func (m *RoomManager) Leave(c *Client, projectID uuid.UUID) {
	m.mu.RLock()
	rm, ok := m.rooms[projectID]
	m.mu.RUnlock()
	if !ok {
		return
	}

	rm.mu.Lock()
	delete(rm.members, c.ID)
	c.removeRoom(projectID)
	empty := len(rm.members) == 0
	rm.mu.Unlock()

	if empty {
		m.collect(projectID, rm)
	}

	m.logger.Debug("connection left room",
		"connection_id", c.ID,
		"project_id", projectID,
	)
}

// collect removes the room from the index if it is still the same room
// object and still empty. The deleted flag stops a concurrent Join from
// inserting into the orphaned object.
func (m *RoomManager) collect(projectID uuid.UUID, rm *room) {
	m.mu.Lock()
	defer m.mu.Unlock()

	current, ok := m.rooms[projectID]
	if !ok || current != rm {
		return
	}

	rm.mu.Lock()
	if len(rm.members) == 0 {
		rm.deleted = true
		delete(m.rooms, projectID)
	}
	rm.mu.Unlock()
}

// MembersOf returns a point-in-time snapshot of the room's members.
func (m *RoomManager) MembersOf(projectID uuid.UUID) []*Client {
	m.mu.RLock()
	rm, ok := m.rooms[projectID]
	m.mu.RUnlock()
	if !ok {
		return nil
	}

	rm.mu.RLock()
	defer rm.mu.RUnlock()

	out := make([]*Client, 0, len(rm.members))
	for _, c := range rm.members {
		out = append(out, c)
	}
	return out
}

// evictAll removes the connection from every room it had joined.
// Called by the registry during eviction, after the session is Closed.
func (m *RoomManager) evictAll(c *Client) {
	for _, projectID := range c.Rooms() {
		m.Leave(c, projectID)
	}
}

// RoomCount returns the number of rooms with at least one member.
func (m *RoomManager) RoomCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.rooms)
}

// MemberCount returns the number of connections in the given room.
func (m *RoomManager) MemberCount(projectID uuid.UUID) int {
	m.mu.RLock()
	rm, ok := m.rooms[projectID]
	m.mu.RUnlock()
	if !ok {
		return 0
	}

	rm.mu.RLock()
	defer rm.mu.RUnlock()
	return len(rm.members)
}
