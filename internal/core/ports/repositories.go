package ports

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/taskhive/taskhive-backend/internal/core/domain"
)

// UserRepository defines the persistence port for users.
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error)
	Update(ctx context.Context, user *domain.User) (*domain.User, error)
	List(ctx context.Context) ([]*domain.User, error)
}

// ListTasksRepoParams carries the filter set down to the task repository.
type ListTasksRepoParams struct {
	Limit      int32
	Offset     int32
	Status     *string
	Priority   *string
	ProjectID  *uuid.UUID
	AssigneeID *uuid.UUID
	DueFrom    *time.Time
	DueTo      *time.Time
}

// TaskRepository defines the persistence port for tasks.
type TaskRepository interface {
	Create(ctx context.Context, task *domain.Task) (*domain.Task, error)
	GetByID(ctx context.Context, id int64) (*domain.Task, error)
	Update(ctx context.Context, task *domain.Task) (*domain.Task, error)
	Delete(ctx context.Context, id int64) error
	ListPaginated(ctx context.Context, params ListTasksRepoParams) ([]*domain.Task, error)
	CountByStatus(ctx context.Context, userID uuid.UUID) (map[domain.TaskStatus]int, error)
}

// ProjectRepository defines the persistence port for projects.
type ProjectRepository interface {
	Create(ctx context.Context, project *domain.Project) (*domain.Project, error)
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Project, error)
	List(ctx context.Context, memberID uuid.UUID) ([]*domain.Project, error)
	ListByTeam(ctx context.Context, teamID uuid.UUID) ([]*domain.Project, error)
	Update(ctx context.Context, project *domain.Project) (*domain.Project, error)
	AddMember(ctx context.Context, projectID uuid.UUID, member domain.ProjectMember) error
	TaskCounts(ctx context.Context, projectID uuid.UUID) (completed, total int, err error)
}

// TeamRepository defines the persistence port for teams.
type TeamRepository interface {
	Create(ctx context.Context, team *domain.Team) (*domain.Team, error)
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Team, error)
	GetByInviteCode(ctx context.Context, code string) (*domain.Team, error)
	SetInvite(ctx context.Context, teamID uuid.UUID, code string, expiresAt time.Time) error
	AddMember(ctx context.Context, teamID uuid.UUID, member domain.TeamMember) error
	UpdateMemberRole(ctx context.Context, teamID, userID uuid.UUID, role domain.TeamRole) error
}

// CommentRepository defines the persistence port for task comments.
type CommentRepository interface {
	Create(ctx context.Context, comment *domain.Comment) (*domain.Comment, error)
	ListByTaskID(ctx context.Context, taskID int64) ([]*domain.Comment, error)
}

// NotificationRepository is the durable notification store. It owns
// at-least-once, queryable history; real-time pushes are layered on top.
type NotificationRepository interface {
	Create(ctx context.Context, notification *domain.Notification) (*domain.Notification, error)
	ListByRecipient(ctx context.Context, recipientID uuid.UUID, limit int) ([]*domain.Notification, error)
	MarkRead(ctx context.Context, id int64, recipientID uuid.UUID) (*domain.Notification, error)
	MarkAllRead(ctx context.Context, recipientID uuid.UUID) error
}
