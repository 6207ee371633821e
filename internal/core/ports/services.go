package ports

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/taskhive/taskhive-backend/internal/core/domain"
)

// UpdateProfileParams defines the input for updating a user profile.
type UpdateProfileParams struct {
	UserID   uuid.UUID
	Username *string
	Email    *string
}

// AuthService defines the port for authentication and user account logic.
type AuthService interface {
	Register(ctx context.Context, params domain.UserRegistrationParams) (*domain.User, error)
	Login(ctx context.Context, email, password string) (*domain.User, error)
	GetUser(ctx context.Context, userID uuid.UUID) (*domain.User, error)
	UpdateProfile(ctx context.Context, params UpdateProfileParams) (*domain.User, error)
	ListUsers(ctx context.Context) ([]*domain.User, error)
}

// CreateTaskParams defines the required input for creating a new task.
type CreateTaskParams struct {
	Title       string
	Description string
	Priority    domain.TaskPriority
	ProjectID   *uuid.UUID
	AssigneeID  *uuid.UUID
	CreatorID   uuid.UUID
	DueDate     *time.Time
}

// UpdateTaskStatusParams defines the input for changing a task's status.
type UpdateTaskStatusParams struct {
	TaskID  int64
	Status  domain.TaskStatus
	ActorID uuid.UUID
}

// AssignTaskParams defines the input for assigning a task.
type AssignTaskParams struct {
	TaskID     int64
	AssigneeID uuid.UUID
	ActorID    uuid.UUID
}

// ListTasksParams defines the input for listing tasks.
type ListTasksParams struct {
	ViewerID   uuid.UUID
	Limit      int
	Offset     int
	Status     *string
	Priority   *string
	ProjectID  *uuid.UUID
	AssigneeID *uuid.UUID
	DueFrom    *time.Time
	DueTo      *time.Time
}

// CreateCommentParams defines the input for creating a comment.
type CreateCommentParams struct {
	TaskID  int64
	ActorID uuid.UUID
	Body    string
}

// BulkUpdateItem is one task change inside a bulk update. Nil fields
// are left unchanged.
type BulkUpdateItem struct {
	TaskID      int64
	Title       *string
	Description *string
	Status      *domain.TaskStatus
	Priority    *domain.TaskPriority
	AssigneeID  *uuid.UUID
	DueDate     *time.Time
}

// BulkUpdateParams defines the input for updating several tasks at once.
type BulkUpdateParams struct {
	ActorID uuid.UUID
	Items   []BulkUpdateItem
}

// TaskStats summarizes the viewer's tasks grouped by status.
type TaskStats struct {
	Total    int
	ByStatus map[domain.TaskStatus]int
}

// TaskService defines the core business operations for managing tasks.
type TaskService interface {
	CreateTask(ctx context.Context, params CreateTaskParams) (*domain.Task, error)
	GetTask(ctx context.Context, taskID int64, viewerID uuid.UUID) (*domain.Task, error)
	UpdateStatus(ctx context.Context, params UpdateTaskStatusParams) (*domain.Task, error)
	AssignTask(ctx context.Context, params AssignTaskParams) (*domain.Task, error)
	DeleteTask(ctx context.Context, taskID int64, actorID uuid.UUID) error
	ListTasks(ctx context.Context, params ListTasksParams) ([]*domain.Task, error)
	BulkUpdate(ctx context.Context, params BulkUpdateParams) ([]*domain.Task, error)
	TaskStats(ctx context.Context, viewerID uuid.UUID) (*TaskStats, error)
	Shutdown()
}

// CommentService defines the port for comment-related business logic.
type CommentService interface {
	CreateComment(ctx context.Context, params CreateCommentParams) (*domain.Comment, error)
	GetCommentsForTask(ctx context.Context, taskID int64, actorID uuid.UUID) ([]*domain.Comment, error)
	Shutdown()
}

// CreateProjectParams defines the input for creating a project.
type CreateProjectParams struct {
	Name        string
	Description string
	Priority    domain.TaskPriority
	ManagerID   uuid.UUID
}

// AddMemberParams defines the input for adding a project team member.
type AddMemberParams struct {
	ProjectID uuid.UUID
	UserID    uuid.UUID
	Role      domain.MemberRole
	ActorID   uuid.UUID
}

// UpdateProjectParams defines the input for updating a project. Nil
// fields are left unchanged.
type UpdateProjectParams struct {
	ProjectID   uuid.UUID
	ActorID     uuid.UUID
	Name        *string
	Description *string
	Status      *domain.ProjectStatus
	Priority    *domain.TaskPriority
	TeamID      *uuid.UUID
}

// ProjectService defines the port for project business logic.
type ProjectService interface {
	CreateProject(ctx context.Context, params CreateProjectParams) (*domain.Project, error)
	GetProject(ctx context.Context, projectID, viewerID uuid.UUID) (*domain.Project, error)
	ListProjects(ctx context.Context, viewerID uuid.UUID) ([]*domain.Project, error)
	AddMember(ctx context.Context, params AddMemberParams) (*domain.Project, error)
	UpdateProject(ctx context.Context, params UpdateProjectParams) (*domain.Project, error)
	Progress(ctx context.Context, projectID, viewerID uuid.UUID) (int, error)
	Shutdown()
}

// CreateTeamParams defines the input for creating a team.
type CreateTeamParams struct {
	Name        string
	Description string
	IsPrivate   bool
	LeaderID    uuid.UUID
}

// UpdateTeamRoleParams defines the input for changing a team member's role.
type UpdateTeamRoleParams struct {
	TeamID  uuid.UUID
	UserID  uuid.UUID
	Role    domain.TeamRole
	ActorID uuid.UUID
}

// TeamService defines the port for team business logic.
type TeamService interface {
	CreateTeam(ctx context.Context, params CreateTeamParams) (*domain.Team, error)
	GetTeam(ctx context.Context, teamID, viewerID uuid.UUID) (*domain.Team, error)
	GenerateInvite(ctx context.Context, teamID, actorID uuid.UUID) (*domain.Team, error)
	JoinTeam(ctx context.Context, code string, userID uuid.UUID) (*domain.Team, error)
	ListTeamProjects(ctx context.Context, teamID, viewerID uuid.UUID) ([]*domain.Project, error)
	UpdateMemberRole(ctx context.Context, params UpdateTeamRoleParams) (*domain.Team, error)
}

// NotificationService defines the port for the durable notification store.
type NotificationService interface {
	ListNotifications(ctx context.Context, recipientID uuid.UUID) ([]*domain.Notification, error)
	MarkRead(ctx context.Context, id int64, recipientID uuid.UUID) (*domain.Notification, error)
	MarkAllRead(ctx context.Context, recipientID uuid.UUID) error
}

// EventBroadcaster is the port the service tier uses to push real-time
// events. Both calls are fire-and-forget from the caller's perspective;
// the returned count is the number of best-effort deliveries attempted
// and is only useful for metrics.
type EventBroadcaster interface {
	NotifyUser(userID uuid.UUID, event domain.Event) int
	NotifyRoom(projectID uuid.UUID, event domain.Event) int
}

// NotificationParams defines the input for sending an email notification.
type NotificationParams struct {
	RecipientUserID uuid.UUID
	Subject         string
	Message         string
}

// Notifier defines the port for sending asynchronous notifications.
type Notifier interface {
	Notify(ctx context.Context, params NotificationParams)
}
