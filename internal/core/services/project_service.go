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

// ProjectService implements business logic for project management
type ProjectService struct {
	projectRepo      ports.ProjectRepository
	userRepo         ports.UserRepository
	notificationRepo ports.NotificationRepository
	broadcaster      ports.EventBroadcaster
	logger           *slog.Logger
	wg               sync.WaitGroup
}

var _ ports.ProjectService = (*ProjectService)(nil)

// NewProjectService creates a new project service
func NewProjectService(
	projectRepo ports.ProjectRepository,
	userRepo ports.UserRepository,
	notificationRepo ports.NotificationRepository,
	broadcaster ports.EventBroadcaster,
	logger *slog.Logger,
) ports.ProjectService {
	return &ProjectService{
		projectRepo:      projectRepo,
		userRepo:         userRepo,
		notificationRepo: notificationRepo,
		broadcaster:      broadcaster,
		logger:           logger.With("service", "project"),
	}
}

// CreateProject handles the use case for creating a new project
func (s *ProjectService) CreateProject(ctx context.Context, params ports.CreateProjectParams) (*domain.Project, error) {
	project, err := domain.NewProject(domain.ProjectParams{
		Name:        params.Name,
		Description: params.Description,
		Priority:    params.Priority,
		ManagerID:   params.ManagerID,
	})
	if err != nil {
		return nil, err
	}

	return s.projectRepo.Create(ctx, project)
}

// GetProject retrieves a project; only members may view it
func (s *ProjectService) GetProject(ctx context.Context, projectID, viewerID uuid.UUID) (*domain.Project, error) {
	project, err := s.projectRepo.GetByID(ctx, projectID)
	if err != nil {
		return nil, err
	}

	if !project.HasMember(viewerID) {
		return nil, apperrors.ErrForbidden
	}

	return project, nil
}

// ListProjects returns the projects the viewer belongs to
func (s *ProjectService) ListProjects(ctx context.Context, viewerID uuid.UUID) ([]*domain.Project, error) {
	return s.projectRepo.List(ctx, viewerID)
}

// AddMember adds a user to the project team. Only the manager may add
// members.
func (s *ProjectService) AddMember(ctx context.Context, params ports.AddMemberParams) (*domain.Project, error) {
	// 1. Fetch and authorize
	project, err := s.projectRepo.GetByID(ctx, params.ProjectID)
	if err != nil {
		return nil, err
	}
	if project.ManagerID != params.ActorID {
		return nil, apperrors.ErrForbidden
	}

	// 2. The user must exist
	if _, err := s.userRepo.GetByID(ctx, params.UserID); err != nil {
		return nil, err
	}

	// 3. Apply membership change (domain validates duplicates and role)
	if err := project.AddMember(params.UserID, params.Role); err != nil {
		return nil, err
	}

	member := project.Members[len(project.Members)-1]
	if err := s.projectRepo.AddMember(ctx, project.ID, member); err != nil {
		return nil, err
	}

	// 4. Notify the added user and broadcast to the room (async)
	s.notifyMemberAdded(project, params.UserID)
	s.broadcaster.NotifyRoom(project.ID, domain.Event{
		Type:    domain.EventProjectUpdate,
		Payload: project,
	})

	return project, nil
}

// UpdateProject changes a project's attributes. Only the manager may
// update it; the change is broadcast to the project room.
func (s *ProjectService) UpdateProject(ctx context.Context, params ports.UpdateProjectParams) (*domain.Project, error) {
	project, err := s.projectRepo.GetByID(ctx, params.ProjectID)
	if err != nil {
		return nil, err
	}
	if project.ManagerID != params.ActorID {
		return nil, apperrors.ErrForbidden
	}

	if err := project.Apply(domain.ProjectUpdate{
		Name:        params.Name,
		Description: params.Description,
		Status:      params.Status,
		Priority:    params.Priority,
		TeamID:      params.TeamID,
	}); err != nil {
		return nil, err
	}

	updated, err := s.projectRepo.Update(ctx, project)
	if err != nil {
		return nil, err
	}

	s.broadcaster.NotifyRoom(updated.ID, domain.Event{
		Type:    domain.EventProjectUpdate,
		Payload: updated,
	})

	return updated, nil
}

// Progress reports the share of completed tasks as a whole percent.
// Only members may read it; a project with no tasks reports zero.
func (s *ProjectService) Progress(ctx context.Context, projectID, viewerID uuid.UUID) (int, error) {
	project, err := s.projectRepo.GetByID(ctx, projectID)
	if err != nil {
		return 0, err
	}
	if !project.HasMember(viewerID) {
		return 0, apperrors.ErrForbidden
	}

	completed, total, err := s.projectRepo.TaskCounts(ctx, projectID)
	if err != nil {
		return 0, err
	}
	return domain.ProgressPercent(completed, total), nil
}

// notifyMemberAdded records a durable notification for the new member
// and pushes it in real time. Runs in the background.
func (s *ProjectService) notifyMemberAdded(project *domain.Project, userID uuid.UUID) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ctx := context.Background()

		notification := &domain.Notification{
			RecipientID: userID,
			Type:        domain.NotificationProjectUpdate,
			Title:       "Added to project",
			Message:     fmt.Sprintf("You were added to the project '%s'.", project.Name),
			RefType:     domain.ReferenceProject,
			RefID:       project.ID.String(),
		}

		stored, err := s.notificationRepo.Create(ctx, notification)
		if err != nil {
			s.logger.Error("failed to persist notification",
				"recipient_id", userID,
				"type", notification.Type,
				"error", err,
			)
			return
		}
		s.broadcaster.NotifyUser(userID, domain.Event{
			Type:    domain.EventNotification,
			Payload: stored,
		})
	}()
}

// Shutdown waits for in-flight background notifications to finish.
func (s *ProjectService) Shutdown() {
	s.wg.Wait()
}
