package websocket

import (
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/taskhive/taskhive-backend/internal/core/domain"
)

// Registry is the concurrent-safe mapping from user identity to that
// user's live connections. It exclusively owns connection records for
// their lifetime; the room manager only holds non-owning references.
//
// A single identity may hold any number of concurrent connections
// (multiple tabs, multiple devices); pushes addressed to the identity
// fan out to every one of them.
type Registry struct {
	// mu guards both indices. Critical sections are O(1) map
	// operations; readers take snapshots so iteration never holds
	// the lock. Room membership lives in RoomManager under its own
	// per-room locks, so joins on unrelated rooms never contend here.
	mu    sync.RWMutex
	conns map[uuid.UUID]*Client            // connection id -> client
	users map[uuid.UUID]map[uuid.UUID]*Client // identity -> connection id -> client

	rooms  *RoomManager
	logger *slog.Logger
}

// NewRegistry creates a connection registry bound to the given room
// manager. No global state: each server (and each test) constructs
// its own registry.
func NewRegistry(rooms *RoomManager, logger *slog.Logger) *Registry {
	return &Registry{
		conns:  make(map[uuid.UUID]*Client),
		users:  make(map[uuid.UUID]map[uuid.UUID]*Client),
		rooms:  rooms,
		logger: logger.With("component", "connection_registry"),
	}
}

// Admit inserts an authenticated connection into the identity index and
// moves the session to Active. Admission of a verified session never
// fails; a session that is not in the Authenticated state is refused.
func (r *Registry) Admit(c *Client) bool {
	if !c.markActive() {
		r.logger.Warn("refusing to admit connection",
			"connection_id", c.ID,
			"state", c.State().String(),
		)
		return false
	}

	r.mu.Lock()
	r.conns[c.ID] = c
	set := r.users[c.UserID]
	if set == nil {
		set = make(map[uuid.UUID]*Client)
		r.users[c.UserID] = set
	}
	set[c.ID] = c
	total := len(set)
	r.mu.Unlock()

	r.logger.Info("connection admitted",
		"user_id", c.UserID,
		"connection_id", c.ID,
		"total_connections", total,
	)
	return true
}

// Evict removes the connection from the identity index and from every
// room it had joined, then closes its outbound path. It is idempotent:
// a second or concurrent call for the same connection is a no-op.
func (r *Registry) Evict(connID uuid.UUID) {
	r.mu.RLock()
	c, ok := r.conns[connID]
	r.mu.RUnlock()
	if !ok {
		return
	}

	// The state transition is the exactly-once gate: only the caller
	// that wins the transition performs the removal.
	if !c.markClosed() {
		return
	}

	r.mu.Lock()
	delete(r.conns, connID)
	if set, ok := r.users[c.UserID]; ok {
		delete(set, connID)
		if len(set) == 0 {
			delete(r.users, c.UserID)
		}
	}
	r.mu.Unlock()

	// Rooms drop their non-owning references after the registry record
	// is gone; a dispatch racing this sees TrySend fail on the closed
	// state rather than a half-removed connection.
	r.rooms.evictAll(c)

	c.CloseSend()

	r.logger.Info("connection evicted",
		"user_id", c.UserID,
		"connection_id", c.ID,
	)
}

// Get returns the connection with the given id, if it is registered.
func (r *Registry) Get(connID uuid.UUID) (*Client, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.conns[connID]
	return c, ok
}

// ConnectionsFor returns a point-in-time snapshot of the identity's
// live connections. The returned slice is a copy; iterating it after
// concurrent mutation never observes a torn entry.
func (r *Registry) ConnectionsFor(userID uuid.UUID) []*Client {
	r.mu.RLock()
	defer r.mu.RUnlock()

	set, ok := r.users[userID]
	if !ok {
		return nil
	}

	out := make([]*Client, 0, len(set))
	for _, c := range set {
		out = append(out, c)
	}
	return out
}

// Push attempts to hand the event to the connection's outbound path.
// It returns false, never an error, when the connection is unknown,
// closed, or its buffer is saturated; delivery is best-effort and the
// caller does not retry.
func (r *Registry) Push(connID uuid.UUID, event domain.Event) bool {
	c, ok := r.Get(connID)
	if !ok {
		return false
	}
	return c.TrySend(event)
}

// IsUserConnected checks if an identity has any live connections.
func (r *Registry) IsUserConnected(userID uuid.UUID) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	set, ok := r.users[userID]
	return ok && len(set) > 0
}

// ConnectionCount returns the total number of live connections.
func (r *Registry) ConnectionCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.conns)
}
