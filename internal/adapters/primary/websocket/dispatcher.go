package websocket

import (
	"log/slog"

	"github.com/google/uuid"

	"github.com/taskhive/taskhive-backend/internal/core/domain"
)

// Dispatcher routes one event to its resolved set of connections. It is
// stateless: recipients are resolved through the registry and room
// manager at dispatch time, and each push is an independent best-effort
// attempt. A stalled connection cannot delay delivery to others because
// every push is a bounded non-blocking enqueue.
type Dispatcher struct {
	registry *Registry
	rooms    *RoomManager
	logger   *slog.Logger
}

// NewDispatcher creates a dispatcher over the given indices.
func NewDispatcher(registry *Registry, rooms *RoomManager, logger *slog.Logger) *Dispatcher {
	return &Dispatcher{
		registry: registry,
		rooms:    rooms,
		logger:   logger.With("component", "event_dispatcher"),
	}
}

// DispatchToUser pushes the event to every live connection of the
// identity. Zero connections is not an error. The returned count is
// the number of successful enqueues, exposed for metrics only; push
// failures are not retried and not reported to the producer.
func (d *Dispatcher) DispatchToUser(userID uuid.UUID, event domain.Event) int {
	conns := d.registry.ConnectionsFor(userID)

	delivered := 0
	for _, c := range conns {
		if c.TrySend(event) {
			delivered++
		} else {
			d.logger.Debug("push dropped",
				"event_type", event.Type,
				"user_id", userID,
				"connection_id", c.ID,
			)
		}
	}

	d.logger.Debug("dispatched to user",
		"event_type", event.Type,
		"user_id", userID,
		"connections", len(conns),
		"delivered", delivered,
	)
	return delivered
}

// DispatchToRoom pushes the event to every member of the room. A
// connection that disconnects while the dispatch is in flight is
// skipped cleanly: its push fails on the closed session state.
func (d *Dispatcher) DispatchToRoom(projectID uuid.UUID, event domain.Event) int {
	members := d.rooms.MembersOf(projectID)

	delivered := 0
	for _, c := range members {
		if c.TrySend(event) {
			delivered++
		} else {
			d.logger.Debug("push dropped",
				"event_type", event.Type,
				"project_id", projectID,
				"connection_id", c.ID,
			)
		}
	}

	d.logger.Debug("dispatched to room",
		"event_type", event.Type,
		"project_id", projectID,
		"members", len(members),
		"delivered", delivered,
	)
	return delivered
}
