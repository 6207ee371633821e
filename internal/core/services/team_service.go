package services

import (
	"context"

	"github.com/google/uuid"
	"github.com/taskhive/taskhive-backend/internal/core/domain"
	apperrors "github.com/taskhive/taskhive-backend/internal/core/errors"
	"github.com/taskhive/taskhive-backend/internal/core/ports"
)

// TeamService implements business logic for team management
type TeamService struct {
	teamRepo    ports.TeamRepository
	projectRepo ports.ProjectRepository
}

var _ ports.TeamService = (*TeamService)(nil)

// NewTeamService creates a new team service
func NewTeamService(teamRepo ports.TeamRepository, projectRepo ports.ProjectRepository) ports.TeamService {
	return &TeamService{
		teamRepo:    teamRepo,
		projectRepo: projectRepo,
	}
}

// CreateTeam handles the use case for creating a new team. The creator
// becomes the leader and its first admin member.
func (s *TeamService) CreateTeam(ctx context.Context, params ports.CreateTeamParams) (*domain.Team, error) {
	team, err := domain.NewTeam(domain.TeamParams{
		Name:        params.Name,
		Description: params.Description,
		IsPrivate:   params.IsPrivate,
		LeaderID:    params.LeaderID,
	})
	if err != nil {
		return nil, err
	}

	return s.teamRepo.Create(ctx, team)
}

// GetTeam retrieves a team. Private teams are visible to members only.
func (s *TeamService) GetTeam(ctx context.Context, teamID, viewerID uuid.UUID) (*domain.Team, error) {
	team, err := s.teamRepo.GetByID(ctx, teamID)
	if err != nil {
		return nil, err
	}

	if team.IsPrivate && !team.HasMember(viewerID) {
		return nil, apperrors.ErrForbidden
	}

	return team, nil
}

// GenerateInvite mints a fresh invite code for the team. Only admins
// and leads may invite; the previous code is invalidated.
func (s *TeamService) GenerateInvite(ctx context.Context, teamID, actorID uuid.UUID) (*domain.Team, error) {
	team, err := s.teamRepo.GetByID(ctx, teamID)
	if err != nil {
		return nil, err
	}
	if !team.CanInvite(actorID) {
		return nil, apperrors.ErrForbidden
	}

	code, err := team.GenerateInviteCode()
	if err != nil {
		return nil, err
	}
	if err := s.teamRepo.SetInvite(ctx, team.ID, code, *team.InviteExpiresAt); err != nil {
		return nil, err
	}

	return team, nil
}

// JoinTeam redeems an invite code and enrolls the user as a plain member.
func (s *TeamService) JoinTeam(ctx context.Context, code string, userID uuid.UUID) (*domain.Team, error) {
	team, err := s.teamRepo.GetByInviteCode(ctx, code)
	if err != nil {
		return nil, err
	}

	if err := team.AddMember(userID, domain.TeamRoleMember); err != nil {
		return nil, err
	}
	member := team.Members[len(team.Members)-1]
	if err := s.teamRepo.AddMember(ctx, team.ID, member); err != nil {
		return nil, err
	}

	return team, nil
}

// ListTeamProjects returns the projects attached to the team. Only
// members may list them.
func (s *TeamService) ListTeamProjects(ctx context.Context, teamID, viewerID uuid.UUID) ([]*domain.Project, error) {
	team, err := s.teamRepo.GetByID(ctx, teamID)
	if err != nil {
		return nil, err
	}
	if !team.HasMember(viewerID) {
		return nil, apperrors.ErrForbidden
	}

	return s.projectRepo.ListByTeam(ctx, teamID)
}

// UpdateMemberRole changes a member's role. Only admins may do so.
func (s *TeamService) UpdateMemberRole(ctx context.Context, params ports.UpdateTeamRoleParams) (*domain.Team, error) {
	team, err := s.teamRepo.GetByID(ctx, params.TeamID)
	if err != nil {
		return nil, err
	}
	if role, ok := team.RoleOf(params.ActorID); !ok || role != domain.TeamRoleAdmin {
		return nil, apperrors.ErrForbidden
	}

	if err := team.SetMemberRole(params.UserID, params.Role); err != nil {
		return nil, err
	}
	if err := s.teamRepo.UpdateMemberRole(ctx, team.ID, params.UserID, params.Role); err != nil {
		return nil, err
	}

	return team, nil
}
