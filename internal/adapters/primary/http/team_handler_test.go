package http

import (
	"context"
	"encoding/json"
	stdhttp "net/http"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taskhive/taskhive-backend/internal/core/domain"
	"github.com/taskhive/taskhive-backend/internal/core/ports"
)

func createTeamViaAPI(t *testing.T, env *testEnv, token, name string) TeamDTO {
	t.Helper()

	recorder := postJSON(t, env.router, "/teams", token, CreateTeamRequest{Name: name})
	require.Equal(t, stdhttp.StatusCreated, recorder.Code)

	var team TeamDTO
	require.NoError(t, json.NewDecoder(recorder.Body).Decode(&team))
	return team
}

func TestCreateTeam(t *testing.T) {
	env := newTestEnv(t)

	leader, token := registerTestUser(t, env, "teamlead")
	team := createTeamViaAPI(t, env, token, "Platform Crew")

	assert.Equal(t, "Platform Crew", team.Name)
	assert.Equal(t, leader.ID.String(), team.LeaderID)
	require.Len(t, team.Members, 1)
	assert.Equal(t, leader.ID.String(), team.Members[0].UserID)
	assert.Equal(t, string(domain.TeamRoleAdmin), team.Members[0].Role)
	assert.Nil(t, team.InviteCode)
}

func TestCreateTeam_MissingName(t *testing.T) {
	env := newTestEnv(t)

	_, token := registerTestUser(t, env, "nameless")
	recorder := postJSON(t, env.router, "/teams", token, CreateTeamRequest{})
	assert.Equal(t, stdhttp.StatusBadRequest, recorder.Code)
}

func TestGenerateInvite(t *testing.T) {
	env := newTestEnv(t)

	_, leaderToken := registerTestUser(t, env, "inviter")
	team := createTeamViaAPI(t, env, leaderToken, "Invite Crew")

	recorder := postJSON(t, env.router, "/teams/"+team.ID+"/invite", leaderToken, nil)
	require.Equal(t, stdhttp.StatusOK, recorder.Code)

	var withInvite TeamDTO
	require.NoError(t, json.NewDecoder(recorder.Body).Decode(&withInvite))
	require.NotNil(t, withInvite.InviteCode)
	assert.Len(t, *withInvite.InviteCode, 12)
	assert.NotNil(t, withInvite.InviteExpiresAt)
}

func TestGenerateInvite_MemberForbidden(t *testing.T) {
	env := newTestEnv(t)

	_, leaderToken := registerTestUser(t, env, "invleader")
	team := createTeamViaAPI(t, env, leaderToken, "Closed Crew")

	recorder := postJSON(t, env.router, "/teams/"+team.ID+"/invite", leaderToken, nil)
	require.Equal(t, stdhttp.StatusOK, recorder.Code)
	var withInvite TeamDTO
	require.NoError(t, json.NewDecoder(recorder.Body).Decode(&withInvite))

	_, memberToken := registerTestUser(t, env, "plainmember")
	recorder = postJSON(t, env.router, "/teams/join", memberToken, JoinTeamRequest{InviteCode: *withInvite.InviteCode})
	require.Equal(t, stdhttp.StatusOK, recorder.Code)

	recorder = postJSON(t, env.router, "/teams/"+team.ID+"/invite", memberToken, nil)
	assert.Equal(t, stdhttp.StatusForbidden, recorder.Code)
}

func TestJoinTeam(t *testing.T) {
	env := newTestEnv(t)

	_, leaderToken := registerTestUser(t, env, "joinleader")
	team := createTeamViaAPI(t, env, leaderToken, "Open Crew")

	recorder := postJSON(t, env.router, "/teams/"+team.ID+"/invite", leaderToken, nil)
	require.Equal(t, stdhttp.StatusOK, recorder.Code)
	var withInvite TeamDTO
	require.NoError(t, json.NewDecoder(recorder.Body).Decode(&withInvite))

	joiner, joinerToken := registerTestUser(t, env, "joiner")
	recorder = postJSON(t, env.router, "/teams/join", joinerToken, JoinTeamRequest{InviteCode: *withInvite.InviteCode})
	require.Equal(t, stdhttp.StatusOK, recorder.Code)

	var joined TeamDTO
	require.NoError(t, json.NewDecoder(recorder.Body).Decode(&joined))
	require.Len(t, joined.Members, 2)

	roles := map[string]string{}
	for _, m := range joined.Members {
		roles[m.UserID] = m.Role
	}
	assert.Equal(t, string(domain.TeamRoleMember), roles[joiner.ID.String()])

	// Joining twice is a conflict.
	recorder = postJSON(t, env.router, "/teams/join", joinerToken, JoinTeamRequest{InviteCode: *withInvite.InviteCode})
	assert.Equal(t, stdhttp.StatusConflict, recorder.Code)
}

func TestJoinTeam_BadCode(t *testing.T) {
	env := newTestEnv(t)

	_, token := registerTestUser(t, env, "lostjoiner")
	recorder := postJSON(t, env.router, "/teams/join", token, JoinTeamRequest{InviteCode: "ffffffffffff"})
	assert.Equal(t, stdhttp.StatusBadRequest, recorder.Code)
}

func TestGetTeam_PrivateHiddenFromOutsiders(t *testing.T) {
	env := newTestEnv(t)

	_, leaderToken := registerTestUser(t, env, "privlead")
	recorder := postJSON(t, env.router, "/teams", leaderToken, CreateTeamRequest{
		Name:      "Secret Crew",
		IsPrivate: true,
	})
	require.Equal(t, stdhttp.StatusCreated, recorder.Code)
	var team TeamDTO
	require.NoError(t, json.NewDecoder(recorder.Body).Decode(&team))

	recorder = getJSON(t, env.router, "/teams/"+team.ID, leaderToken)
	assert.Equal(t, stdhttp.StatusOK, recorder.Code)

	_, outsiderToken := registerTestUser(t, env, "outsider")
	recorder = getJSON(t, env.router, "/teams/"+team.ID, outsiderToken)
	assert.Equal(t, stdhttp.StatusForbidden, recorder.Code)
}

func TestListTeamProjects(t *testing.T) {
	env := newTestEnv(t)

	leader, leaderToken := registerTestUser(t, env, "projlead")
	team := createTeamViaAPI(t, env, leaderToken, "Delivery Crew")

	project, err := env.projectService.CreateProject(context.Background(), ports.CreateProjectParams{
		Name:      "Team Rollout",
		ManagerID: leader.ID,
	})
	require.NoError(t, err)

	teamID := team.ID
	recorder := patchJSON(t, env.router, "/projects/"+project.ID.String(), leaderToken, UpdateProjectRequest{TeamID: &teamID})
	require.Equal(t, stdhttp.StatusOK, recorder.Code)

	recorder = getJSON(t, env.router, "/teams/"+team.ID+"/projects", leaderToken)
	require.Equal(t, stdhttp.StatusOK, recorder.Code)

	var response ListResponse[ProjectDTO]
	require.NoError(t, json.NewDecoder(recorder.Body).Decode(&response))
	require.Len(t, response.Data, 1)
	assert.Equal(t, "Team Rollout", response.Data[0].Name)
	require.NotNil(t, response.Data[0].TeamID)
	assert.Equal(t, team.ID, *response.Data[0].TeamID)

	_, strangerToken := registerTestUser(t, env, "projstranger")
	recorder = getJSON(t, env.router, "/teams/"+team.ID+"/projects", strangerToken)
	assert.Equal(t, stdhttp.StatusForbidden, recorder.Code)
}

func TestUpdateMemberRole(t *testing.T) {
	env := newTestEnv(t)

	_, leaderToken := registerTestUser(t, env, "rolelead")
	team := createTeamViaAPI(t, env, leaderToken, "Role Crew")

	recorder := postJSON(t, env.router, "/teams/"+team.ID+"/invite", leaderToken, nil)
	require.Equal(t, stdhttp.StatusOK, recorder.Code)
	var withInvite TeamDTO
	require.NoError(t, json.NewDecoder(recorder.Body).Decode(&withInvite))

	member, memberToken := registerTestUser(t, env, "promotee")
	recorder = postJSON(t, env.router, "/teams/join", memberToken, JoinTeamRequest{InviteCode: *withInvite.InviteCode})
	require.Equal(t, stdhttp.StatusOK, recorder.Code)

	rolePath := "/teams/" + team.ID + "/members/" + member.ID.String() + "/role"
	recorder = patchJSON(t, env.router, rolePath, leaderToken, UpdateTeamRoleRequest{Role: "lead"})
	require.Equal(t, stdhttp.StatusOK, recorder.Code)

	var updated TeamDTO
	require.NoError(t, json.NewDecoder(recorder.Body).Decode(&updated))
	roles := map[string]string{}
	for _, m := range updated.Members {
		roles[m.UserID] = m.Role
	}
	assert.Equal(t, "lead", roles[member.ID.String()])

	// A lead still may not change roles.
	recorder = patchJSON(t, env.router, rolePath, memberToken, UpdateTeamRoleRequest{Role: "admin"})
	assert.Equal(t, stdhttp.StatusForbidden, recorder.Code)

	// Unknown member is reported as missing.
	ghostPath := "/teams/" + team.ID + "/members/" + uuid.NewString() + "/role"
	recorder = patchJSON(t, env.router, ghostPath, leaderToken, UpdateTeamRoleRequest{Role: "lead"})
	assert.Equal(t, stdhttp.StatusNotFound, recorder.Code)
}
