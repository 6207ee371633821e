package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taskhive/taskhive-backend/internal/core/domain"
	apperrors "github.com/taskhive/taskhive-backend/internal/core/errors"
	"github.com/taskhive/taskhive-backend/internal/core/ports"
)

func createTestTeam(t *testing.T, ctx context.Context, teamRepo ports.TeamRepository, leaderID uuid.UUID) *domain.Team {
	team, err := domain.NewTeam(domain.TeamParams{
		Name:     "Platform",
		LeaderID: leaderID,
	})
	require.NoError(t, err)

	created, err := teamRepo.Create(ctx, team)
	require.NoError(t, err)
	return created
}

func TestTeamRepository_CreateGet(t *testing.T) {
	ctx := context.Background()
	userRepo := NewUserRepository(testPool)
	teamRepo := NewTeamRepository(testPool)

	leader := createTestUser(t, ctx, userRepo)
	created := createTestTeam(t, ctx, teamRepo, leader.ID)

	require.Len(t, created.Members, 1)
	assert.Equal(t, domain.TeamRoleAdmin, created.Members[0].Role)

	fetched, err := teamRepo.GetByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "Platform", fetched.Name)
	assert.Equal(t, leader.ID, fetched.LeaderID)
	require.Len(t, fetched.Members, 1)
	assert.Equal(t, leader.ID, fetched.Members[0].UserID)
}

func TestTeamRepository_GetMissing(t *testing.T) {
	ctx := context.Background()
	teamRepo := NewTeamRepository(testPool)

	_, err := teamRepo.GetByID(ctx, uuid.New())
	assert.ErrorIs(t, err, apperrors.ErrTeamNotFound)
}

func TestTeamRepository_InviteCode(t *testing.T) {
	ctx := context.Background()
	userRepo := NewUserRepository(testPool)
	teamRepo := NewTeamRepository(testPool)

	leader := createTestUser(t, ctx, userRepo)
	team := createTestTeam(t, ctx, teamRepo, leader.ID)

	code, err := team.GenerateInviteCode()
	require.NoError(t, err)
	require.NoError(t, teamRepo.SetInvite(ctx, team.ID, code, *team.InviteExpiresAt))

	found, err := teamRepo.GetByInviteCode(ctx, code)
	require.NoError(t, err)
	assert.Equal(t, team.ID, found.ID)
	require.NotNil(t, found.InviteCode)
	assert.Equal(t, code, *found.InviteCode)

	_, err = teamRepo.GetByInviteCode(ctx, "ffffffffffff")
	assert.ErrorIs(t, err, apperrors.ErrInviteInvalid)
}

func TestTeamRepository_ExpiredInvite(t *testing.T) {
	ctx := context.Background()
	userRepo := NewUserRepository(testPool)
	teamRepo := NewTeamRepository(testPool)

	leader := createTestUser(t, ctx, userRepo)
	team := createTestTeam(t, ctx, teamRepo, leader.ID)

	code, err := team.GenerateInviteCode()
	require.NoError(t, err)
	expired := time.Now().UTC().Add(-time.Hour)
	require.NoError(t, teamRepo.SetInvite(ctx, team.ID, code, expired))

	_, err = teamRepo.GetByInviteCode(ctx, code)
	assert.ErrorIs(t, err, apperrors.ErrInviteInvalid)
}

func TestTeamRepository_SetInviteMissing(t *testing.T) {
	ctx := context.Background()
	teamRepo := NewTeamRepository(testPool)

	err := teamRepo.SetInvite(ctx, uuid.New(), "abcdef123456", time.Now().Add(time.Hour))
	assert.ErrorIs(t, err, apperrors.ErrTeamNotFound)
}

func TestTeamRepository_AddMember(t *testing.T) {
	ctx := context.Background()
	userRepo := NewUserRepository(testPool)
	teamRepo := NewTeamRepository(testPool)

	leader := createTestUser(t, ctx, userRepo)
	joiner := createTestUser(t, ctx, userRepo)
	team := createTestTeam(t, ctx, teamRepo, leader.ID)

	member := domain.TeamMember{UserID: joiner.ID, Role: domain.TeamRoleMember, JoinedAt: time.Now().UTC()}
	require.NoError(t, teamRepo.AddMember(ctx, team.ID, member))

	fetched, err := teamRepo.GetByID(ctx, team.ID)
	require.NoError(t, err)
	assert.Len(t, fetched.Members, 2)
	role, ok := fetched.RoleOf(joiner.ID)
	require.True(t, ok)
	assert.Equal(t, domain.TeamRoleMember, role)

	err = teamRepo.AddMember(ctx, team.ID, member)
	assert.ErrorIs(t, err, apperrors.ErrMemberExists)
}

func TestTeamRepository_UpdateMemberRole(t *testing.T) {
	ctx := context.Background()
	userRepo := NewUserRepository(testPool)
	teamRepo := NewTeamRepository(testPool)

	leader := createTestUser(t, ctx, userRepo)
	member := createTestUser(t, ctx, userRepo)
	team := createTestTeam(t, ctx, teamRepo, leader.ID)

	require.NoError(t, teamRepo.AddMember(ctx, team.ID, domain.TeamMember{
		UserID:   member.ID,
		Role:     domain.TeamRoleMember,
		JoinedAt: time.Now().UTC(),
	}))

	require.NoError(t, teamRepo.UpdateMemberRole(ctx, team.ID, member.ID, domain.TeamRoleLead))

	fetched, err := teamRepo.GetByID(ctx, team.ID)
	require.NoError(t, err)
	role, _ := fetched.RoleOf(member.ID)
	assert.Equal(t, domain.TeamRoleLead, role)

	err = teamRepo.UpdateMemberRole(ctx, team.ID, uuid.New(), domain.TeamRoleLead)
	assert.ErrorIs(t, err, apperrors.ErrNotTeamMember)
}
