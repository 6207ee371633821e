package domain

import (
	"time"

	"github.com/google/uuid"
)

// NotificationType categorizes a stored notification.
type NotificationType string

const (
	NotificationTaskAssignment NotificationType = "task_assignment"
	NotificationTaskUpdate     NotificationType = "task_update"
	NotificationComment        NotificationType = "comment"
	NotificationMention        NotificationType = "mention"
	NotificationProjectUpdate  NotificationType = "project_update"
)

// ReferenceType identifies the kind of entity a notification points at.
type ReferenceType string

const (
	ReferenceTask    ReferenceType = "task"
	ReferenceProject ReferenceType = "project"
	ReferenceComment ReferenceType = "comment"
)

// Notification is the durable record behind a real-time push. The store is
// the source of truth for notification history; the websocket push is
// best-effort on top of it.
type Notification struct {
	ID          int64
	RecipientID uuid.UUID
	Type        NotificationType
	Title       string
	Message     string
	RefType     ReferenceType
	RefID       string
	Read        bool
	ReadAt      *time.Time
	CreatedAt   time.Time
}

// MarkRead flags the notification as read at the current time.
func (n *Notification) MarkRead() {
	if n.Read {
		return
	}
	n.Read = true
	now := time.Now().UTC()
	n.ReadAt = &now
}
