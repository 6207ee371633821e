package domain_test

import (
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taskhive/taskhive-backend/internal/core/domain"
	apperrors "github.com/taskhive/taskhive-backend/internal/core/errors"
)

func TestNewTeam(t *testing.T) {
	leaderID := uuid.New()

	tests := []struct {
		name      string
		params    domain.TeamParams
		wantErr   error
		wantNoErr bool
	}{
		{
			name: "valid team",
			params: domain.TeamParams{
				Name:        "Platform",
				Description: "Infrastructure and tooling",
				LeaderID:    leaderID,
			},
			wantNoErr: true,
		},
		{
			name: "missing name",
			params: domain.TeamParams{
				LeaderID: leaderID,
			},
			wantErr: apperrors.ErrTeamNameRequired,
		},
		{
			name: "name too long",
			params: domain.TeamParams{
				Name:     strings.Repeat("a", domain.MaxTeamNameLength+1),
				LeaderID: leaderID,
			},
			wantErr: apperrors.ErrNameTooLong,
		},
		{
			name: "missing leader",
			params: domain.TeamParams{
				Name:     "Platform",
				LeaderID: uuid.Nil,
			},
			wantErr: apperrors.ErrLeaderRequired,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			team, err := domain.NewTeam(tt.params)
			if tt.wantNoErr {
				require.NoError(t, err)
				assert.Equal(t, tt.params.Name, team.Name)
				assert.Equal(t, tt.params.LeaderID, team.LeaderID)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestNewTeam_LeaderIsAdminMember(t *testing.T) {
	leaderID := uuid.New()

	team, err := domain.NewTeam(domain.TeamParams{Name: "Platform", LeaderID: leaderID})
	require.NoError(t, err)

	require.Len(t, team.Members, 1)
	assert.Equal(t, leaderID, team.Members[0].UserID)
	assert.Equal(t, domain.TeamRoleAdmin, team.Members[0].Role)
	assert.True(t, team.HasMember(leaderID))

	role, ok := team.RoleOf(leaderID)
	require.True(t, ok)
	assert.Equal(t, domain.TeamRoleAdmin, role)
}

func TestTeam_GenerateInviteCode(t *testing.T) {
	team, err := domain.NewTeam(domain.TeamParams{Name: "Platform", LeaderID: uuid.New()})
	require.NoError(t, err)
	assert.False(t, team.InviteValid(time.Now()))

	code, err := team.GenerateInviteCode()
	require.NoError(t, err)
	assert.Len(t, code, 12)
	require.NotNil(t, team.InviteCode)
	assert.Equal(t, code, *team.InviteCode)
	assert.True(t, team.InviteValid(time.Now()))
	assert.False(t, team.InviteValid(time.Now().Add(domain.InviteCodeTTL+time.Minute)))

	// A fresh code replaces the old one
	second, err := team.GenerateInviteCode()
	require.NoError(t, err)
	assert.NotEqual(t, code, second)
}

func TestTeam_Membership(t *testing.T) {
	leaderID := uuid.New()
	memberID := uuid.New()

	team, err := domain.NewTeam(domain.TeamParams{Name: "Platform", LeaderID: leaderID})
	require.NoError(t, err)

	require.NoError(t, team.AddMember(memberID, domain.TeamRoleMember))
	assert.True(t, team.HasMember(memberID))

	// Joining twice conflicts
	assert.ErrorIs(t, team.AddMember(memberID, domain.TeamRoleMember), apperrors.ErrMemberExists)

	// Plain members cannot invite, leads and admins can
	assert.False(t, team.CanInvite(memberID))
	assert.True(t, team.CanInvite(leaderID))
	require.NoError(t, team.SetMemberRole(memberID, domain.TeamRoleLead))
	assert.True(t, team.CanInvite(memberID))

	// Role changes require an existing member
	assert.ErrorIs(t, team.SetMemberRole(uuid.New(), domain.TeamRoleLead), apperrors.ErrNotTeamMember)
}
