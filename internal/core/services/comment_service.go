package services

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"github.com/taskhive/taskhive-backend/internal/core/domain"
	apperrors "github.com/taskhive/taskhive-backend/internal/core/errors"
	"github.com/taskhive/taskhive-backend/internal/core/ports"
)

// CommentService implements business logic for task comments
type CommentService struct {
	commentRepo      ports.CommentRepository
	taskRepo         ports.TaskRepository
	projectRepo      ports.ProjectRepository
	notificationRepo ports.NotificationRepository
	broadcaster      ports.EventBroadcaster
	logger           *slog.Logger
	wg               sync.WaitGroup
}

var _ ports.CommentService = (*CommentService)(nil)

// NewCommentService creates a new comment service
func NewCommentService(
	commentRepo ports.CommentRepository,
	taskRepo ports.TaskRepository,
	projectRepo ports.ProjectRepository,
	notificationRepo ports.NotificationRepository,
	broadcaster ports.EventBroadcaster,
	logger *slog.Logger,
) ports.CommentService {
	return &CommentService{
		commentRepo:      commentRepo,
		taskRepo:         taskRepo,
		projectRepo:      projectRepo,
		notificationRepo: notificationRepo,
		broadcaster:      broadcaster,
		logger:           logger.With("service", "comment"),
	}
}

// CreateComment adds a comment to a task
func (s *CommentService) CreateComment(ctx context.Context, params ports.CreateCommentParams) (*domain.Comment, error) {
	// 1. The task must exist and the author must have access to it
	task, err := s.taskRepo.GetByID(ctx, params.TaskID)
	if err != nil {
		return nil, err
	}
	if err := s.authorizeTaskAccess(ctx, task, params.ActorID); err != nil {
		return nil, err
	}

	// 2. Create domain entity with validation
	comment, err := domain.NewComment(domain.CommentParams{
		TaskID:   params.TaskID,
		AuthorID: params.ActorID,
		Body:     params.Body,
	})
	if err != nil {
		return nil, err
	}

	// 3. Persist
	created, err := s.commentRepo.Create(ctx, comment)
	if err != nil {
		return nil, err
	}

	// 4. Broadcast to the project room and notify the task creator (async)
	if task.ProjectID != nil {
		s.broadcaster.NotifyRoom(*task.ProjectID, domain.Event{
			Type:    domain.EventCommentUpdate,
			Payload: created,
		})
	}
	if task.CreatorID != params.ActorID {
		s.notifyNewComment(task, created)
	}

	return created, nil
}

// GetCommentsForTask lists a task's comments oldest-first
func (s *CommentService) GetCommentsForTask(ctx context.Context, taskID int64, actorID uuid.UUID) ([]*domain.Comment, error) {
	task, err := s.taskRepo.GetByID(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if err := s.authorizeTaskAccess(ctx, task, actorID); err != nil {
		return nil, err
	}

	return s.commentRepo.ListByTaskID(ctx, taskID)
}

// authorizeTaskAccess allows the creator, the assignee, and members of
// the task's project.
func (s *CommentService) authorizeTaskAccess(ctx context.Context, task *domain.Task, userID uuid.UUID) error {
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

// notifyNewComment records a durable notification for the task creator
// and pushes it in real time. Runs in the background.
func (s *CommentService) notifyNewComment(task *domain.Task, comment *domain.Comment) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ctx := context.Background()

		notification := &domain.Notification{
			RecipientID: task.CreatorID,
			Type:        domain.NotificationComment,
			Title:       "New comment",
			Message:     fmt.Sprintf("Your task '%s' received a new comment.", task.Title),
			RefType:     domain.ReferenceComment,
			RefID:       fmt.Sprintf("%d", comment.ID),
		}

		stored, err := s.notificationRepo.Create(ctx, notification)
		if err != nil {
			s.logger.Error("failed to persist notification",
				"recipient_id", task.CreatorID,
				"type", notification.Type,
				"error", err,
			)
			return
		}
		s.broadcaster.NotifyUser(task.CreatorID, domain.Event{
			Type:    domain.EventNotification,
			Payload: stored,
		})
	}()
}

// Shutdown waits for in-flight background notifications to finish.
func (s *CommentService) Shutdown() {
	s.wg.Wait()
}
