package domain

import (
	"time"

	"github.com/google/uuid"

	apperrors "github.com/taskhive/taskhive-backend/internal/core/errors"
)

// Field length limits for tasks.
const (
	MaxTitleLength       = 255
	MaxDescriptionLength = 4000
)

// TaskStatus represents the possible states of a task.
type TaskStatus string

const (
	StatusTodo       TaskStatus = "todo"
	StatusInProgress TaskStatus = "in_progress"
	StatusCompleted  TaskStatus = "completed"
)

// TaskPriority represents the urgency of a task.
type TaskPriority string

const (
	PriorityLow    TaskPriority = "low"
	PriorityMedium TaskPriority = "medium"
	PriorityHigh   TaskPriority = "high"
)

// ValidPriorities lists the accepted priority values.
func ValidPriorities() []string {
	return []string{string(PriorityLow), string(PriorityMedium), string(PriorityHigh)}
}

// ValidStatuses lists the accepted status values.
func ValidStatuses() []string {
	return []string{string(StatusTodo), string(StatusInProgress), string(StatusCompleted)}
}

// Task is the core domain entity for a unit of work inside a project.
type Task struct {
	ID          int64
	Title       string
	Description string
	Status      TaskStatus
	Priority    TaskPriority
	ProjectID   *uuid.UUID
	AssigneeID  *uuid.UUID
	CreatorID   uuid.UUID
	DueDate     *time.Time
	CreatedAt   time.Time
	UpdatedAt   *time.Time
}

// TaskParams holds the input for creating a new task.
type TaskParams struct {
	Title       string
	Description string
	Priority    TaskPriority
	ProjectID   *uuid.UUID
	AssigneeID  *uuid.UUID
	CreatorID   uuid.UUID
	DueDate     *time.Time
}

// NewTask is a factory function to create a valid new task.
func NewTask(params TaskParams) (*Task, error) {
	if params.Title == "" {
		return nil, apperrors.ErrTitleRequired
	}
	if len(params.Title) > MaxTitleLength {
		return nil, apperrors.ErrTitleTooLong
	}
	if len(params.Description) > MaxDescriptionLength {
		return nil, apperrors.ErrDescriptionTooLong
	}
	if params.CreatorID == uuid.Nil {
		return nil, apperrors.ErrCreatorRequired
	}

	priority := params.Priority
	if priority == "" {
		priority = PriorityMedium
	}
	switch priority {
	case PriorityLow, PriorityMedium, PriorityHigh:
	default:
		return nil, apperrors.ErrInvalidPriority
	}

	return &Task{
		Title:       params.Title,
		Description: params.Description,
		Status:      StatusTodo, // Default status
		Priority:    priority,
		ProjectID:   params.ProjectID,
		AssigneeID:  params.AssigneeID,
		CreatorID:   params.CreatorID,
		DueDate:     params.DueDate,
		CreatedAt:   time.Now().UTC(),
	}, nil
}

// UpdateStatus changes the task's status, enforcing business rules.
func (t *Task) UpdateStatus(newStatus TaskStatus) error {
	// Defines the valid state transitions.
	validTransitions := map[TaskStatus][]TaskStatus{
		StatusTodo:       {StatusInProgress, StatusCompleted},
		StatusInProgress: {StatusTodo, StatusCompleted},
		StatusCompleted:  {StatusTodo}, // A completed task can only be reopened
	}

	allowed, ok := validTransitions[t.Status]
	if !ok {
		return apperrors.ErrInvalidStatusTransition
	}

	for _, s := range allowed {
		if s == newStatus {
			t.Status = newStatus
			now := time.Now().UTC()
			t.UpdatedAt = &now
			return nil
		}
	}

	return apperrors.ErrInvalidStatusTransition
}

// Assign sets or changes the assignee of the task.
func (t *Task) Assign(assigneeID uuid.UUID) error {
	// Business rule: you cannot assign a completed task.
	if t.Status == StatusCompleted {
		return apperrors.ErrInvalidStatusTransition
	}
	t.AssigneeID = &assigneeID
	now := time.Now().UTC()
	t.UpdatedAt = &now
	return nil
}

// IsCreatedBy reports whether the given user created this task.
func (t *Task) IsCreatedBy(userID uuid.UUID) bool {
	return t.CreatorID == userID
}

// IsAssignedTo reports whether the given user is the task's assignee.
func (t *Task) IsAssignedTo(userID uuid.UUID) bool {
	return t.AssigneeID != nil && *t.AssigneeID == userID
}
