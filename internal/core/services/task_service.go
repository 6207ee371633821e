package services

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/taskhive/taskhive-backend/internal/core/domain"
	apperrors "github.com/taskhive/taskhive-backend/internal/core/errors"
	"github.com/taskhive/taskhive-backend/internal/core/ports"
)

// TaskService implements business logic for task management
type TaskService struct {
	taskRepo         ports.TaskRepository
	projectRepo      ports.ProjectRepository
	notificationRepo ports.NotificationRepository
	notifier         ports.Notifier
	broadcaster      ports.EventBroadcaster
	logger           *slog.Logger
	wg               sync.WaitGroup
}

var _ ports.TaskService = (*TaskService)(nil)

// NewTaskService creates a new task service
func NewTaskService(
	taskRepo ports.TaskRepository,
	projectRepo ports.ProjectRepository,
	notificationRepo ports.NotificationRepository,
	notifier ports.Notifier,
	broadcaster ports.EventBroadcaster,
	logger *slog.Logger,
) ports.TaskService {
	return &TaskService{
		taskRepo:         taskRepo,
		projectRepo:      projectRepo,
		notificationRepo: notificationRepo,
		notifier:         notifier,
		broadcaster:      broadcaster,
		logger:           logger.With("service", "task"),
	}
}

// CreateTask handles the use case for creating a new task
func (s *TaskService) CreateTask(ctx context.Context, params ports.CreateTaskParams) (*domain.Task, error) {
	// 1. Create domain entity with validation
	taskParams := domain.TaskParams{
		Title:       params.Title,
		Description: params.Description,
		Priority:    params.Priority,
		ProjectID:   params.ProjectID,
		AssigneeID:  params.AssigneeID,
		CreatorID:   params.CreatorID,
		DueDate:     params.DueDate,
	}

	task, err := domain.NewTask(taskParams)
	if err != nil {
		return nil, err // Validation errors are returned here
	}

	// 2. Authorization: creating inside a project requires membership
	if params.ProjectID != nil {
		project, err := s.projectRepo.GetByID(ctx, *params.ProjectID)
		if err != nil {
			return nil, err
		}
		if !project.HasMember(params.CreatorID) {
			return nil, apperrors.ErrForbidden
		}
	}

	// 3. Persist the task
	created, err := s.taskRepo.Create(ctx, task)
	if err != nil {
		return nil, err
	}

	// 4. Notify the assignee and broadcast to the project room (async)
	if created.AssigneeID != nil && *created.AssigneeID != created.CreatorID {
		s.notifyAssignment(created)
	}
	s.broadcastTaskUpdate(created)

	return created, nil
}

// GetTask retrieves a specific task with authorization
func (s *TaskService) GetTask(ctx context.Context, taskID int64, viewerID uuid.UUID) (*domain.Task, error) {
	task, err := s.taskRepo.GetByID(ctx, taskID)
	if err != nil {
		return nil, err
	}

	if err := s.authorizeTaskAccess(ctx, task, viewerID); err != nil {
		return nil, err
	}

	return task, nil
}

// UpdateStatus changes a task's status with business rule enforcement
func (s *TaskService) UpdateStatus(ctx context.Context, params ports.UpdateTaskStatusParams) (*domain.Task, error) {
	// 1. Fetch and authorize
	task, err := s.taskRepo.GetByID(ctx, params.TaskID)
	if err != nil {
		return nil, err
	}
	if err := s.authorizeTaskAccess(ctx, task, params.ActorID); err != nil {
		return nil, err
	}

	// 2. Apply status change (domain validates the transition)
	if err := task.UpdateStatus(params.Status); err != nil {
		return nil, err
	}

	// 3. Persist changes
	updated, err := s.taskRepo.Update(ctx, task)
	if err != nil {
		return nil, err
	}

	// 4. Notify the creator unless they made the change themselves
	if updated.CreatorID != params.ActorID {
		s.notifyStatusUpdate(updated)
	}

	// 5. Broadcast real-time event to the project room
	s.broadcastTaskUpdate(updated)

	return updated, nil
}

// AssignTask assigns a task to a user
func (s *TaskService) AssignTask(ctx context.Context, params ports.AssignTaskParams) (*domain.Task, error) {
	// 1. Fetch and authorize
	task, err := s.taskRepo.GetByID(ctx, params.TaskID)
	if err != nil {
		return nil, err
	}
	if err := s.authorizeTaskAccess(ctx, task, params.ActorID); err != nil {
		return nil, err
	}

	// 2. Apply assignment (domain validates business rules)
	if err := task.Assign(params.AssigneeID); err != nil {
		return nil, err
	}

	// 3. Persist changes
	updated, err := s.taskRepo.Update(ctx, task)
	if err != nil {
		return nil, err
	}

	// 4. Notify the new assignee and broadcast
	if params.AssigneeID != params.ActorID {
		s.notifyAssignment(updated)
	}
	s.broadcastTaskUpdate(updated)

	return updated, nil
}

// DeleteTask removes a task. Only the creator may delete it.
func (s *TaskService) DeleteTask(ctx context.Context, taskID int64, actorID uuid.UUID) error {
	task, err := s.taskRepo.GetByID(ctx, taskID)
	if err != nil {
		return err
	}
	if !task.IsCreatedBy(actorID) {
		return apperrors.ErrForbidden
	}

	if err := s.taskRepo.Delete(ctx, taskID); err != nil {
		return err
	}

	s.broadcastTaskUpdate(task)
	return nil
}

// ListTasks retrieves tasks matching the given filters
func (s *TaskService) ListTasks(ctx context.Context, params ports.ListTasksParams) ([]*domain.Task, error) {
	// Listing inside a project requires membership
	if params.ProjectID != nil {
		project, err := s.projectRepo.GetByID(ctx, *params.ProjectID)
		if err != nil {
			return nil, err
		}
		if !project.HasMember(params.ViewerID) {
			return nil, apperrors.ErrForbidden
		}
	}

	repoParams := ports.ListTasksRepoParams{
		Limit:      int32(params.Limit),
		Offset:     int32(params.Offset),
		Status:     params.Status,
		Priority:   params.Priority,
		ProjectID:  params.ProjectID,
		AssigneeID: params.AssigneeID,
		DueFrom:    params.DueFrom,
		DueTo:      params.DueTo,
	}

	return s.taskRepo.ListPaginated(ctx, repoParams)
}

// BulkUpdate applies a batch of task changes in order. Each task is
// authorized and validated individually; the batch stops at the first
// failure, leaving earlier updates in place.
func (s *TaskService) BulkUpdate(ctx context.Context, params ports.BulkUpdateParams) ([]*domain.Task, error) {
	updated := make([]*domain.Task, 0, len(params.Items))
	for _, item := range params.Items {
		task, err := s.applyBulkItem(ctx, item, params.ActorID)
		if err != nil {
			return nil, err
		}
		updated = append(updated, task)
	}
	return updated, nil
}

func (s *TaskService) applyBulkItem(ctx context.Context, item ports.BulkUpdateItem, actorID uuid.UUID) (*domain.Task, error) {
	task, err := s.taskRepo.GetByID(ctx, item.TaskID)
	if err != nil {
		return nil, err
	}
	if err := s.authorizeTaskAccess(ctx, task, actorID); err != nil {
		return nil, err
	}

	if item.Title != nil {
		if *item.Title == "" {
			return nil, apperrors.ErrTitleRequired
		}
		if len(*item.Title) > domain.MaxTitleLength {
			return nil, apperrors.ErrTitleTooLong
		}
		task.Title = *item.Title
	}
	if item.Description != nil {
		if len(*item.Description) > domain.MaxDescriptionLength {
			return nil, apperrors.ErrDescriptionTooLong
		}
		task.Description = *item.Description
	}
	if item.Priority != nil {
		switch *item.Priority {
		case domain.PriorityLow, domain.PriorityMedium, domain.PriorityHigh:
			task.Priority = *item.Priority
		default:
			return nil, apperrors.ErrInvalidPriority
		}
	}
	if item.AssigneeID != nil {
		if err := task.Assign(*item.AssigneeID); err != nil {
			return nil, err
		}
	}
	if item.Status != nil && *item.Status != task.Status {
		if err := task.UpdateStatus(*item.Status); err != nil {
			return nil, err
		}
	}
	if item.DueDate != nil {
		task.DueDate = item.DueDate
	}
	now := time.Now().UTC()
	task.UpdatedAt = &now

	result, err := s.taskRepo.Update(ctx, task)
	if err != nil {
		return nil, err
	}
	s.broadcastTaskUpdate(result)
	return result, nil
}

// TaskStats summarizes the viewer's tasks (created or assigned) by
// status. Statuses with no tasks report zero.
func (s *TaskService) TaskStats(ctx context.Context, viewerID uuid.UUID) (*ports.TaskStats, error) {
	counts, err := s.taskRepo.CountByStatus(ctx, viewerID)
	if err != nil {
		return nil, err
	}

	stats := &ports.TaskStats{ByStatus: make(map[domain.TaskStatus]int)}
	for _, status := range []domain.TaskStatus{domain.StatusTodo, domain.StatusInProgress, domain.StatusCompleted} {
		stats.ByStatus[status] = counts[status]
		stats.Total += counts[status]
	}
	return stats, nil
}

// authorizeTaskAccess allows the creator, the assignee, and members of
// the task's project.
func (s *TaskService) authorizeTaskAccess(ctx context.Context, task *domain.Task, userID uuid.UUID) error {
	if task.IsCreatedBy(userID) || task.IsAssignedTo(userID) {
		return nil
	}
	if task.ProjectID != nil {
		project, err := s.projectRepo.GetByID(ctx, *task.ProjectID)
		if err != nil {
			return err
		}
		if project.HasMember(userID) {
			return nil
		}
	}
	return apperrors.ErrForbidden
}

// notifyAssignment records a durable notification for the assignee,
// pushes it in real time, and sends an email. Runs in the background;
// the HTTP request does not wait for it.
func (s *TaskService) notifyAssignment(task *domain.Task) {
	assigneeID := *task.AssigneeID

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		// Use background context since the HTTP request may be done
		ctx := context.Background()

		notification := &domain.Notification{
			RecipientID: assigneeID,
			Type:        domain.NotificationTaskAssignment,
			Title:       "New task assigned",
			Message:     fmt.Sprintf("You have been assigned the task '%s'.", task.Title),
			RefType:     domain.ReferenceTask,
			RefID:       fmt.Sprintf("%d", task.ID),
		}

		stored, err := s.notificationRepo.Create(ctx, notification)
		if err == nil {
			s.broadcaster.NotifyUser(assigneeID, domain.Event{
				Type:    domain.EventNotification,
				Payload: stored,
			})
		} else {
			s.logger.Error("failed to persist notification",
				"recipient_id", assigneeID,
				"type", notification.Type,
				"error", err,
			)
		}

		s.notifier.Notify(ctx, ports.NotificationParams{
			RecipientUserID: assigneeID,
			Subject:         fmt.Sprintf("Task assigned: #%d", task.ID),
			Message:         fmt.Sprintf("You have been assigned the task '%s'.", task.Title),
		})
	}()
}

// notifyStatusUpdate records a durable notification for the creator and
// pushes it in real time.
func (s *TaskService) notifyStatusUpdate(task *domain.Task) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ctx := context.Background()

		notification := &domain.Notification{
			RecipientID: task.CreatorID,
			Type:        domain.NotificationTaskUpdate,
			Title:       "Task status updated",
			Message:     fmt.Sprintf("The status of your task '%s' changed to %s.", task.Title, task.Status),
			RefType:     domain.ReferenceTask,
			RefID:       fmt.Sprintf("%d", task.ID),
		}

		stored, err := s.notificationRepo.Create(ctx, notification)
		if err == nil {
			s.broadcaster.NotifyUser(task.CreatorID, domain.Event{
				Type:    domain.EventNotification,
				Payload: stored,
			})
		} else {
			s.logger.Error("failed to persist notification",
				"recipient_id", task.CreatorID,
				"type", notification.Type,
				"error", err,
			)
		}

		s.notifier.Notify(ctx, ports.NotificationParams{
			RecipientUserID: task.CreatorID,
			Subject:         fmt.Sprintf("Task status updated: #%d", task.ID),
			Message:         fmt.Sprintf("The status of your task '%s' was changed to %s.", task.Title, task.Status),
		})
	}()
}

// broadcastTaskUpdate pushes the task to its project room. Tasks outside
// any project have no audience beyond direct fetches.
func (s *TaskService) broadcastTaskUpdate(task *domain.Task) {
	if task.ProjectID == nil {
		return
	}
	s.broadcaster.NotifyRoom(*task.ProjectID, domain.Event{
		Type:    domain.EventTaskUpdate,
		Payload: task,
	})
}

// Shutdown waits for in-flight background notifications to finish.
func (s *TaskService) Shutdown() {
	s.wg.Wait()
}
