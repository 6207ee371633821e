package domain

import (
	"math"
	"time"

	"github.com/google/uuid"

	apperrors "github.com/taskhive/taskhive-backend/internal/core/errors"
)

const MaxProjectNameLength = 255

// ProjectStatus represents the lifecycle stage of a project.
type ProjectStatus string

const (
	ProjectPlanning  ProjectStatus = "planning"
	ProjectActive    ProjectStatus = "active"
	ProjectOnHold    ProjectStatus = "on_hold"
	ProjectCompleted ProjectStatus = "completed"
	ProjectCancelled ProjectStatus = "cancelled"
)

// MemberRole is the role of a user within a project team.
type MemberRole string

const (
	RoleDeveloper MemberRole = "developer"
	RoleDesigner  MemberRole = "designer"
	RoleTester    MemberRole = "tester"
	RoleAnalyst   MemberRole = "analyst"
)

// ValidMemberRoles lists the accepted team member roles.
func ValidMemberRoles() []string {
	return []string{string(RoleDeveloper), string(RoleDesigner), string(RoleTester), string(RoleAnalyst)}
}

// ProjectMember links a user to a project with a role.
type ProjectMember struct {
	UserID   uuid.UUID
	Role     MemberRole
	JoinedAt time.Time
}

// Project groups tasks and team members. Each project backs one broadcast room.
type Project struct {
	ID          uuid.UUID
	Name        string
	Description string
	Status      ProjectStatus
	Priority    TaskPriority
	ManagerID   uuid.UUID
	TeamID      *uuid.UUID
	Members     []ProjectMember
	CreatedAt   time.Time
	UpdatedAt   *time.Time
}

// ProjectParams holds the input for creating a new project.
type ProjectParams struct {
	Name        string
	Description string
	Priority    TaskPriority
	ManagerID   uuid.UUID
}

// NewProject is a factory function to create a valid new project.
func NewProject(params ProjectParams) (*Project, error) {
	if params.Name == "" {
		return nil, apperrors.ErrNameRequired
	}
	if len(params.Name) > MaxProjectNameLength {
		return nil, apperrors.ErrNameTooLong
	}
	if params.ManagerID == uuid.Nil {
		return nil, apperrors.ErrManagerRequired
	}

	priority := params.Priority
	if priority == "" {
		priority = PriorityMedium
	}

	return &Project{
		ID:          uuid.New(),
		Name:        params.Name,
		Description: params.Description,
		Status:      ProjectPlanning,
		Priority:    priority,
		ManagerID:   params.ManagerID,
		CreatedAt:   time.Now().UTC(),
	}, nil
}

// ValidProjectStatuses lists the accepted project status values.
func ValidProjectStatuses() []string {
	return []string{
		string(ProjectPlanning), string(ProjectActive), string(ProjectOnHold),
		string(ProjectCompleted), string(ProjectCancelled),
	}
}

// ProjectUpdate carries the optional fields of a project update; nil
// fields are left unchanged.
type ProjectUpdate struct {
	Name        *string
	Description *string
	Status      *ProjectStatus
	Priority    *TaskPriority
	TeamID      *uuid.UUID
}

// Apply mutates the project with the non-nil fields of the update.
func (p *Project) Apply(update ProjectUpdate) error {
	if update.Name != nil {
		if *update.Name == "" {
			return apperrors.ErrNameRequired
		}
		if len(*update.Name) > MaxProjectNameLength {
			return apperrors.ErrNameTooLong
		}
		p.Name = *update.Name
	}
	if update.Description != nil {
		p.Description = *update.Description
	}
	if update.Status != nil {
		switch *update.Status {
		case ProjectPlanning, ProjectActive, ProjectOnHold, ProjectCompleted, ProjectCancelled:
			p.Status = *update.Status
		default:
			return apperrors.ErrInvalidStatus
		}
	}
	if update.Priority != nil {
		switch *update.Priority {
		case PriorityLow, PriorityMedium, PriorityHigh:
			p.Priority = *update.Priority
		default:
			return apperrors.ErrInvalidPriority
		}
	}
	if update.TeamID != nil {
		p.TeamID = update.TeamID
	}
	now := time.Now().UTC()
	p.UpdatedAt = &now
	return nil
}

// ProgressPercent is the share of completed tasks, rounded to a whole
// percent. A project with no tasks reports zero.
func ProgressPercent(completed, total int) int {
	if total == 0 {
		return 0
	}
	return int(math.Round(float64(completed) / float64(total) * 100))
}

// AddMember adds a user to the project team.
func (p *Project) AddMember(userID uuid.UUID, role MemberRole) error {
	if p.HasMember(userID) {
		return apperrors.ErrMemberExists
	}
	p.Members = append(p.Members, ProjectMember{
		UserID:   userID,
		Role:     role,
		JoinedAt: time.Now().UTC(),
	})
	now := time.Now().UTC()
	p.UpdatedAt = &now
	return nil
}

// HasMember reports whether the user is the manager or a team member.
func (p *Project) HasMember(userID uuid.UUID) bool {
	if p.ManagerID == userID {
		return true
	}
	for _, m := range p.Members {
		if m.UserID == userID {
			return true
		}
	}
	return false
}
