package domain

// EventType defines the type of real-time event pushed to clients.
type EventType string

const (
	EventNotification  EventType = "notification"
	EventTaskUpdate    EventType = "task_update"
	EventCommentUpdate EventType = "comment_update"
	EventProjectUpdate EventType = "project_update"
)

// Event is the payload pushed over WebSocket. Routing (user vs. room) is
// decided by the caller; the event itself is transient and never persisted.
type Event struct {
	Type    EventType   `json:"type"`
	Payload interface{} `json:"payload"`
}
