package websocket

import (
	"log/slog"

	"github.com/google/uuid"

	"github.com/taskhive/taskhive-backend/internal/core/domain"
	"github.com/taskhive/taskhive-backend/internal/core/ports"
)

// Hub wires the connection registry, room manager and event dispatcher
// together. One hub per server process, constructed in main and passed
// by reference to the handlers and services that need it; there is no
// package-level instance, so tests build and tear down their own.
type Hub struct {
	registry   *Registry
	rooms      *RoomManager
	dispatcher *Dispatcher
	logger     *slog.Logger
}

// Ensure Hub implements the EventBroadcaster interface.
var _ ports.EventBroadcaster = (*Hub)(nil)

// NewHub creates a hub with empty indices.
func NewHub(logger *slog.Logger) *Hub {
	rooms := NewRoomManager(logger)
	registry := NewRegistry(rooms, logger)
	return &Hub{
		registry:   registry,
		rooms:      rooms,
		dispatcher: NewDispatcher(registry, rooms, logger),
		logger:     logger.With("component", "websocket_hub"),
	}
}

// Registry exposes the connection registry.
func (h *Hub) Registry() *Registry {
	return h.registry
}

// Rooms exposes the room manager.
func (h *Hub) Rooms() *RoomManager {
	return h.rooms
}

// NotifyUser pushes an event to every live connection of the user.
// Fire-and-forget from the caller's perspective; the count of
// best-effort deliveries is returned for metrics.
func (h *Hub) NotifyUser(userID uuid.UUID, event domain.Event) int {
	return h.dispatcher.DispatchToUser(userID, event)
}

// NotifyRoom pushes an event to every member of a project's room.
func (h *Hub) NotifyRoom(projectID uuid.UUID, event domain.Event) int {
	return h.dispatcher.DispatchToRoom(projectID, event)
}

// ClientCount returns the number of live connections, for health
// reporting.
func (h *Hub) ClientCount() int {
	return h.registry.ConnectionCount()
}

// RoomCount returns the number of active rooms.
func (h *Hub) RoomCount() int {
	return h.rooms.RoomCount()
}
