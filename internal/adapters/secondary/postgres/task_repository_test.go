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

func createTestProject(t *testing.T, ctx context.Context, projectRepo ports.ProjectRepository, managerID uuid.UUID) *domain.Project {
	project, err := domain.NewProject(domain.ProjectParams{
		Name:      "Test Project",
		ManagerID: managerID,
	})
	require.NoError(t, err)

	created, err := projectRepo.Create(ctx, project)
	require.NoError(t, err)
	return created
}

func createTestTask(t *testing.T, ctx context.Context, taskRepo ports.TaskRepository, params domain.TaskParams) *domain.Task {
	task, err := domain.NewTask(params)
	require.NoError(t, err)

	created, err := taskRepo.Create(ctx, task)
	require.NoError(t, err)
	return created
}

func TestTaskRepository_CreateGet(t *testing.T) {
	ctx := context.Background()
	taskRepo := NewTaskRepository(testPool)
	userRepo := NewUserRepository(testPool)
	projectRepo := NewProjectRepository(testPool)

	creator := createTestUser(t, ctx, userRepo)
	assignee := createTestUser(t, ctx, userRepo)
	project := createTestProject(t, ctx, projectRepo, creator.ID)

	due := time.Now().UTC().Add(48 * time.Hour).Truncate(time.Second)
	created := createTestTask(t, ctx, taskRepo, domain.TaskParams{
		Title:       "Write onboarding docs",
		Description: "Cover the setup steps",
		Priority:    domain.PriorityHigh,
		ProjectID:   &project.ID,
		AssigneeID:  &assignee.ID,
		CreatorID:   creator.ID,
		DueDate:     &due,
	})
	assert.NotZero(t, created.ID)

	found, err := taskRepo.GetByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "Write onboarding docs", found.Title)
	assert.Equal(t, "Cover the setup steps", found.Description)
	assert.Equal(t, domain.StatusTodo, found.Status)
	assert.Equal(t, domain.PriorityHigh, found.Priority)
	assert.Equal(t, creator.ID, found.CreatorID)
	require.NotNil(t, found.ProjectID)
	assert.Equal(t, project.ID, *found.ProjectID)
	require.NotNil(t, found.AssigneeID)
	assert.Equal(t, assignee.ID, *found.AssigneeID)
	require.NotNil(t, found.DueDate)
	assert.WithinDuration(t, due, *found.DueDate, time.Second)
}

func TestTaskRepository_Update(t *testing.T) {
	ctx := context.Background()
	taskRepo := NewTaskRepository(testPool)
	userRepo := NewUserRepository(testPool)

	creator := createTestUser(t, ctx, userRepo)
	assignee := createTestUser(t, ctx, userRepo)

	task := createTestTask(t, ctx, taskRepo, domain.TaskParams{
		Title:     "Fix login flow",
		CreatorID: creator.ID,
	})

	require.NoError(t, task.UpdateStatus(domain.StatusInProgress))
	require.NoError(t, task.Assign(assignee.ID))

	updated, err := taskRepo.Update(ctx, task)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusInProgress, updated.Status)
	require.NotNil(t, updated.AssigneeID)
	assert.Equal(t, assignee.ID, *updated.AssigneeID)
	assert.NotNil(t, updated.UpdatedAt)
}

func TestTaskRepository_Delete(t *testing.T) {
	ctx := context.Background()
	taskRepo := NewTaskRepository(testPool)
	userRepo := NewUserRepository(testPool)

	creator := createTestUser(t, ctx, userRepo)
	task := createTestTask(t, ctx, taskRepo, domain.TaskParams{
		Title:     "Temporary task",
		CreatorID: creator.ID,
	})

	require.NoError(t, taskRepo.Delete(ctx, task.ID))

	_, err := taskRepo.GetByID(ctx, task.ID)
	assert.ErrorIs(t, err, apperrors.ErrTaskNotFound)

	// Deleting again reports not found
	assert.ErrorIs(t, taskRepo.Delete(ctx, task.ID), apperrors.ErrTaskNotFound)
}

func TestTaskRepository_ListPaginated(t *testing.T) {
	ctx := context.Background()
	taskRepo := NewTaskRepository(testPool)
	userRepo := NewUserRepository(testPool)
	projectRepo := NewProjectRepository(testPool)

	creator := createTestUser(t, ctx, userRepo)
	assignee := createTestUser(t, ctx, userRepo)
	project := createTestProject(t, ctx, projectRepo, creator.ID)

	t1 := createTestTask(t, ctx, taskRepo, domain.TaskParams{Title: "T1", Priority: domain.PriorityHigh, ProjectID: &project.ID, CreatorID: creator.ID})
	t2 := createTestTask(t, ctx, taskRepo, domain.TaskParams{Title: "T2", Priority: domain.PriorityLow, ProjectID: &project.ID, AssigneeID: &assignee.ID, CreatorID: creator.ID})
	_ = t1

	// Filter by project
	byProject, err := taskRepo.ListPaginated(ctx, ports.ListTasksRepoParams{
		Limit:     10,
		ProjectID: &project.ID,
	})
	require.NoError(t, err)
	assert.Len(t, byProject, 2)

	// Filter by assignee
	byAssignee, err := taskRepo.ListPaginated(ctx, ports.ListTasksRepoParams{
		Limit:      10,
		AssigneeID: &assignee.ID,
	})
	require.NoError(t, err)
	require.Len(t, byAssignee, 1)
	assert.Equal(t, t2.ID, byAssignee[0].ID)

	// Filter by priority within the project
	high := string(domain.PriorityHigh)
	byPriority, err := taskRepo.ListPaginated(ctx, ports.ListTasksRepoParams{
		Limit:     10,
		ProjectID: &project.ID,
		Priority:  &high,
	})
	require.NoError(t, err)
	require.Len(t, byPriority, 1)
	assert.Equal(t, "T1", byPriority[0].Title)

	// Pagination: newest first, so offset 1 skips T2
	page, err := taskRepo.ListPaginated(ctx, ports.ListTasksRepoParams{
		Limit:     1,
		Offset:    1,
		ProjectID: &project.ID,
	})
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, "T1", page[0].Title)
}

func TestTaskRepository_ListDueWindow(t *testing.T) {
	ctx := context.Background()
	taskRepo := NewTaskRepository(testPool)
	userRepo := NewUserRepository(testPool)
	projectRepo := NewProjectRepository(testPool)

	creator := createTestUser(t, ctx, userRepo)
	project := createTestProject(t, ctx, projectRepo, creator.ID)

	now := time.Now().UTC().Truncate(time.Second)
	soon := now.Add(24 * time.Hour)
	later := now.Add(14 * 24 * time.Hour)

	createTestTask(t, ctx, taskRepo, domain.TaskParams{Title: "Due soon", ProjectID: &project.ID, CreatorID: creator.ID, DueDate: &soon})
	createTestTask(t, ctx, taskRepo, domain.TaskParams{Title: "Due later", ProjectID: &project.ID, CreatorID: creator.ID, DueDate: &later})

	windowEnd := now.Add(7 * 24 * time.Hour)
	tasks, err := taskRepo.ListPaginated(ctx, ports.ListTasksRepoParams{
		Limit:     10,
		ProjectID: &project.ID,
		DueFrom:   &now,
		DueTo:     &windowEnd,
	})
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, "Due soon", tasks[0].Title)
}

func TestTaskRepository_CountByStatus(t *testing.T) {
	ctx := context.Background()
	taskRepo := NewTaskRepository(testPool)
	userRepo := NewUserRepository(testPool)

	owner := createTestUser(t, ctx, userRepo)

	for i := 0; i < 2; i++ {
		createTestTask(t, ctx, taskRepo, domain.TaskParams{
			Title:     "Own task",
			CreatorID: owner.ID,
		})
	}
	done := createTestTask(t, ctx, taskRepo, domain.TaskParams{
		Title:     "Finished task",
		CreatorID: owner.ID,
	})
	require.NoError(t, done.UpdateStatus(domain.StatusCompleted))
	_, err := taskRepo.Update(ctx, done)
	require.NoError(t, err)

	// Assigned by someone else still counts for the assignee.
	other := createTestUser(t, ctx, userRepo)
	createTestTask(t, ctx, taskRepo, domain.TaskParams{
		Title:      "Assigned task",
		CreatorID:  other.ID,
		AssigneeID: &owner.ID,
	})

	counts, err := taskRepo.CountByStatus(ctx, owner.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, counts[domain.StatusTodo])
	assert.Equal(t, 1, counts[domain.StatusCompleted])
	assert.Equal(t, 0, counts[domain.StatusInProgress])
}
