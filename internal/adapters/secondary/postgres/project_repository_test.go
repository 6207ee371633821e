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
)

func TestProjectRepository_CreateGet(t *testing.T) {
	ctx := context.Background()
	projectRepo := NewProjectRepository(testPool)
	userRepo := NewUserRepository(testPool)

	manager := createTestUser(t, ctx, userRepo)

	project, err := domain.NewProject(domain.ProjectParams{
		Name:        "Website Redesign",
		Description: "Q3 marketing site refresh",
		Priority:    domain.PriorityHigh,
		ManagerID:   manager.ID,
	})
	require.NoError(t, err)

	created, err := projectRepo.Create(ctx, project)
	require.NoError(t, err, "Failed to create project")
	assert.Equal(t, project.ID, created.ID)

	found, err := projectRepo.GetByID(ctx, project.ID)
	require.NoError(t, err)
	assert.Equal(t, "Website Redesign", found.Name)
	assert.Equal(t, "Q3 marketing site refresh", found.Description)
	assert.Equal(t, domain.ProjectPlanning, found.Status)
	assert.Equal(t, manager.ID, found.ManagerID)
	assert.Empty(t, found.Members)
}

func TestProjectRepository_Members(t *testing.T) {
	ctx := context.Background()
	projectRepo := NewProjectRepository(testPool)
	userRepo := NewUserRepository(testPool)

	manager := createTestUser(t, ctx, userRepo)
	developer := createTestUser(t, ctx, userRepo)
	project := createTestProject(t, ctx, projectRepo, manager.ID)

	member := domain.ProjectMember{
		UserID:   developer.ID,
		Role:     domain.RoleDeveloper,
		JoinedAt: time.Now().UTC(),
	}
	require.NoError(t, projectRepo.AddMember(ctx, project.ID, member))

	found, err := projectRepo.GetByID(ctx, project.ID)
	require.NoError(t, err)
	require.Len(t, found.Members, 1)
	assert.Equal(t, developer.ID, found.Members[0].UserID)
	assert.Equal(t, domain.RoleDeveloper, found.Members[0].Role)
	assert.True(t, found.HasMember(developer.ID))

	// Adding the same user twice hits the composite primary key
	err = projectRepo.AddMember(ctx, project.ID, member)
	assert.ErrorIs(t, err, apperrors.ErrMemberExists)
}

func TestProjectRepository_List(t *testing.T) {
	ctx := context.Background()
	projectRepo := NewProjectRepository(testPool)
	userRepo := NewUserRepository(testPool)

	manager := createTestUser(t, ctx, userRepo)
	developer := createTestUser(t, ctx, userRepo)
	outsider := createTestUser(t, ctx, userRepo)

	managed := createTestProject(t, ctx, projectRepo, manager.ID)
	joined := createTestProject(t, ctx, projectRepo, manager.ID)
	require.NoError(t, projectRepo.AddMember(ctx, joined.ID, domain.ProjectMember{
		UserID:   developer.ID,
		Role:     domain.RoleTester,
		JoinedAt: time.Now().UTC(),
	}))

	// The manager sees both projects
	managerProjects, err := projectRepo.List(ctx, manager.ID)
	require.NoError(t, err)
	assert.Len(t, managerProjects, 2)

	// The developer only sees the project they were added to
	developerProjects, err := projectRepo.List(ctx, developer.ID)
	require.NoError(t, err)
	require.Len(t, developerProjects, 1)
	assert.Equal(t, joined.ID, developerProjects[0].ID)
	require.Len(t, developerProjects[0].Members, 1)

	// A user with no membership sees nothing
	outsiderProjects, err := projectRepo.List(ctx, outsider.ID)
	require.NoError(t, err)
	assert.Empty(t, outsiderProjects)

	_ = managed
}

func TestProjectRepository_NotFound(t *testing.T) {
	ctx := context.Background()
	projectRepo := NewProjectRepository(testPool)

	_, err := projectRepo.GetByID(ctx, uuid.New())
	assert.ErrorIs(t, err, apperrors.ErrProjectNotFound)
}

func TestProjectRepository_Update(t *testing.T) {
	ctx := context.Background()
	userRepo := NewUserRepository(testPool)
	projectRepo := NewProjectRepository(testPool)

	manager := createTestUser(t, ctx, userRepo)
	project := createTestProject(t, ctx, projectRepo, manager.ID)

	newName := "Renamed Project"
	newStatus := domain.ProjectActive
	require.NoError(t, project.Apply(domain.ProjectUpdate{Name: &newName, Status: &newStatus}))

	updated, err := projectRepo.Update(ctx, project)
	require.NoError(t, err)
	assert.Equal(t, "Renamed Project", updated.Name)
	assert.Equal(t, domain.ProjectActive, updated.Status)

	fetched, err := projectRepo.GetByID(ctx, project.ID)
	require.NoError(t, err)
	assert.Equal(t, "Renamed Project", fetched.Name)
}

func TestProjectRepository_UpdateMissing(t *testing.T) {
	ctx := context.Background()
	projectRepo := NewProjectRepository(testPool)

	ghost, err := domain.NewProject(domain.ProjectParams{Name: "Ghost", ManagerID: uuid.New()})
	require.NoError(t, err)
	now := time.Now().UTC()
	ghost.UpdatedAt = &now

	_, err = projectRepo.Update(ctx, ghost)
	assert.ErrorIs(t, err, apperrors.ErrProjectNotFound)
}

func TestProjectRepository_ListByTeam(t *testing.T) {
	ctx := context.Background()
	userRepo := NewUserRepository(testPool)
	projectRepo := NewProjectRepository(testPool)
	teamRepo := NewTeamRepository(testPool)

	manager := createTestUser(t, ctx, userRepo)
	team := createTestTeam(t, ctx, teamRepo, manager.ID)

	attached := createTestProject(t, ctx, projectRepo, manager.ID)
	require.NoError(t, attached.Apply(domain.ProjectUpdate{TeamID: &team.ID}))
	_, err := projectRepo.Update(ctx, attached)
	require.NoError(t, err)

	// A project without a team stays out of the listing.
	createTestProject(t, ctx, projectRepo, manager.ID)

	projects, err := projectRepo.ListByTeam(ctx, team.ID)
	require.NoError(t, err)
	require.Len(t, projects, 1)
	assert.Equal(t, attached.ID, projects[0].ID)
	require.NotNil(t, projects[0].TeamID)
	assert.Equal(t, team.ID, *projects[0].TeamID)
}

func TestProjectRepository_TaskCounts(t *testing.T) {
	ctx := context.Background()
	userRepo := NewUserRepository(testPool)
	projectRepo := NewProjectRepository(testPool)
	taskRepo := NewTaskRepository(testPool)

	manager := createTestUser(t, ctx, userRepo)
	project := createTestProject(t, ctx, projectRepo, manager.ID)

	completed, total, err := projectRepo.TaskCounts(ctx, project.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, completed)
	assert.Equal(t, 0, total)

	for i := 0; i < 3; i++ {
		createTestTask(t, ctx, taskRepo, domain.TaskParams{
			Title:     "Project task",
			CreatorID: manager.ID,
			ProjectID: &project.ID,
		})
	}
	done := createTestTask(t, ctx, taskRepo, domain.TaskParams{
		Title:     "Done task",
		CreatorID: manager.ID,
		ProjectID: &project.ID,
	})
	require.NoError(t, done.UpdateStatus(domain.StatusCompleted))
	_, err = taskRepo.Update(ctx, done)
	require.NoError(t, err)

	completed, total, err = projectRepo.TaskCounts(ctx, project.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, completed)
	assert.Equal(t, 4, total)
}
