package services_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/taskhive/taskhive-backend/internal/core/domain"
	apperrors "github.com/taskhive/taskhive-backend/internal/core/errors"
	"github.com/taskhive/taskhive-backend/internal/core/mocks"
	"github.com/taskhive/taskhive-backend/internal/core/ports"
	"github.com/taskhive/taskhive-backend/internal/core/services"
)

type commentServiceMocks struct {
	commentRepo      *mocks.MockCommentRepository
	taskRepo         *mocks.MockTaskRepository
	projectRepo      *mocks.MockProjectRepository
	notificationRepo *mocks.MockNotificationRepository
	broadcaster      *mocks.MockEventBroadcaster
}

func newCommentService() (ports.CommentService, commentServiceMocks) {
	m := commentServiceMocks{
		commentRepo:      mocks.NewMockCommentRepository(),
		taskRepo:         mocks.NewMockTaskRepository(),
		projectRepo:      mocks.NewMockProjectRepository(),
		notificationRepo: mocks.NewMockNotificationRepository(),
		broadcaster:      mocks.NewMockEventBroadcaster(),
	}
	svc := services.NewCommentService(m.commentRepo, m.taskRepo, m.projectRepo, m.notificationRepo, m.broadcaster, testLogger())
	return svc, m
}

func TestCommentService_CreateComment(t *testing.T) {
	ctx := context.Background()
	taskID := int64(1)

	t.Run("comment broadcasts to the project room and notifies the creator", func(t *testing.T) {
		svc, m := newCommentService()
		projectID := uuid.New()
		creatorID := uuid.New()
		authorID := uuid.New()

		task := &domain.Task{ID: taskID, Title: "Ship it", CreatorID: creatorID, ProjectID: &projectID}
		m.taskRepo.On("GetByID", ctx, taskID).Return(task, nil)
		m.projectRepo.On("GetByID", ctx, projectID).
			Return(&domain.Project{ID: projectID, ManagerID: authorID}, nil)
		m.commentRepo.On("Create", ctx, mock.AnythingOfType("*domain.Comment")).
			Return(&domain.Comment{ID: 5, TaskID: taskID, AuthorID: authorID, Body: "Looks good"}, nil)
		m.broadcaster.On("NotifyRoom", projectID, mock.Anything).Return(2)
		m.notificationRepo.On("Create", mock.Anything, mock.AnythingOfType("*domain.Notification")).
			Return(&domain.Notification{ID: 30, RecipientID: creatorID, Type: domain.NotificationComment}, nil)
		m.broadcaster.On("NotifyUser", creatorID, mock.Anything).Return(1)

		comment, err := svc.CreateComment(ctx, ports.CreateCommentParams{
			TaskID:  taskID,
			ActorID: authorID,
			Body:    "Looks good",
		})

		require.NoError(t, err)
		assert.Equal(t, int64(5), comment.ID)

		svc.Shutdown()
		m.broadcaster.AssertExpectations(t)
		m.notificationRepo.AssertExpectations(t)
	})

	t.Run("author commenting on own task gets no self-notification", func(t *testing.T) {
		svc, m := newCommentService()
		creatorID := uuid.New()

		task := &domain.Task{ID: taskID, Title: "Ship it", CreatorID: creatorID}
		m.taskRepo.On("GetByID", ctx, taskID).Return(task, nil)
		m.commentRepo.On("Create", ctx, mock.AnythingOfType("*domain.Comment")).
			Return(&domain.Comment{ID: 6, TaskID: taskID, AuthorID: creatorID, Body: "Self note"}, nil)

		_, err := svc.CreateComment(ctx, ports.CreateCommentParams{
			TaskID:  taskID,
			ActorID: creatorID,
			Body:    "Self note",
		})

		require.NoError(t, err)
		svc.Shutdown()
		m.notificationRepo.AssertNotCalled(t, "Create")
	})

	t.Run("outsider is forbidden", func(t *testing.T) {
		svc, m := newCommentService()
		projectID := uuid.New()

		task := &domain.Task{ID: taskID, CreatorID: uuid.New(), ProjectID: &projectID}
		m.taskRepo.On("GetByID", ctx, taskID).Return(task, nil)
		m.projectRepo.On("GetByID", ctx, projectID).
			Return(&domain.Project{ID: projectID, ManagerID: uuid.New()}, nil)

		comment, err := svc.CreateComment(ctx, ports.CreateCommentParams{
			TaskID:  taskID,
			ActorID: uuid.New(),
			Body:    "Hi",
		})

		assert.Nil(t, comment)
		assert.ErrorIs(t, err, apperrors.ErrForbidden)
		m.commentRepo.AssertNotCalled(t, "Create")
	})

	t.Run("empty body rejected", func(t *testing.T) {
		svc, m := newCommentService()
		creatorID := uuid.New()

		m.taskRepo.On("GetByID", ctx, taskID).
			Return(&domain.Task{ID: taskID, CreatorID: creatorID}, nil)

		comment, err := svc.CreateComment(ctx, ports.CreateCommentParams{
			TaskID:  taskID,
			ActorID: creatorID,
			Body:    "",
		})

		assert.Nil(t, comment)
		assert.ErrorIs(t, err, apperrors.ErrCommentBodyRequired)
		m.commentRepo.AssertNotCalled(t, "Create")
	})
}

func TestCommentService_GetCommentsForTask(t *testing.T) {
	ctx := context.Background()
	taskID := int64(1)
	creatorID := uuid.New()

	t.Run("creator lists comments", func(t *testing.T) {
		svc, m := newCommentService()

		m.taskRepo.On("GetByID", ctx, taskID).
			Return(&domain.Task{ID: taskID, CreatorID: creatorID}, nil)
		m.commentRepo.On("ListByTaskID", ctx, taskID).
			Return([]*domain.Comment{
				{ID: 1, TaskID: taskID, Body: "First"},
				{ID: 2, TaskID: taskID, Body: "Second"},
			}, nil)

		comments, err := svc.GetCommentsForTask(ctx, taskID, creatorID)

		require.NoError(t, err)
		assert.Len(t, comments, 2)
	})

	t.Run("task not found", func(t *testing.T) {
		svc, m := newCommentService()

		m.taskRepo.On("GetByID", ctx, taskID).Return(nil, apperrors.ErrTaskNotFound)

		comments, err := svc.GetCommentsForTask(ctx, taskID, creatorID)

		assert.Nil(t, comments)
		assert.ErrorIs(t, err, apperrors.ErrTaskNotFound)
		m.commentRepo.AssertNotCalled(t, "ListByTaskID")
	})
}
