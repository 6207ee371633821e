package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taskhive/taskhive-backend/internal/core/domain"
	apperrors "github.com/taskhive/taskhive-backend/internal/core/errors"
	"github.com/taskhive/taskhive-backend/internal/core/ports"
)

func createTestNotification(t *testing.T, ctx context.Context, repo ports.NotificationRepository, n *domain.Notification) *domain.Notification {
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now().UTC()
	}
	created, err := repo.Create(ctx, n)
	require.NoError(t, err)
	return created
}

func TestNotificationRepository_CreateList(t *testing.T) {
	ctx := context.Background()
	repo := NewNotificationRepository(testPool)
	userRepo := NewUserRepository(testPool)

	recipient := createTestUser(t, ctx, userRepo)

	createTestNotification(t, ctx, repo, &domain.Notification{
		RecipientID: recipient.ID,
		Type:        domain.NotificationTaskAssignment,
		Title:       "New task assigned",
		Message:     "You were assigned 'Fix login flow'",
		RefType:     domain.ReferenceTask,
		RefID:       "42",
	})
	createTestNotification(t, ctx, repo, &domain.Notification{
		RecipientID: recipient.ID,
		Type:        domain.NotificationComment,
		Title:       "New comment",
		Message:     "Someone commented on your task",
	})

	// Newest first
	notifications, err := repo.ListByRecipient(ctx, recipient.ID, 50)
	require.NoError(t, err)
	require.Len(t, notifications, 2)
	assert.Equal(t, domain.NotificationComment, notifications[0].Type)
	assert.Equal(t, domain.NotificationTaskAssignment, notifications[1].Type)
	assert.Equal(t, domain.ReferenceTask, notifications[1].RefType)
	assert.Equal(t, "42", notifications[1].RefID)
	assert.False(t, notifications[0].Read)

	// Limit applies
	limited, err := repo.ListByRecipient(ctx, recipient.ID, 1)
	require.NoError(t, err)
	require.Len(t, limited, 1)
	assert.Equal(t, domain.NotificationComment, limited[0].Type)
}

func TestNotificationRepository_MarkRead(t *testing.T) {
	ctx := context.Background()
	repo := NewNotificationRepository(testPool)
	userRepo := NewUserRepository(testPool)

	recipient := createTestUser(t, ctx, userRepo)
	other := createTestUser(t, ctx, userRepo)

	created := createTestNotification(t, ctx, repo, &domain.Notification{
		RecipientID: recipient.ID,
		Type:        domain.NotificationTaskUpdate,
		Title:       "Status changed",
		Message:     "Task moved to in_progress",
	})

	// Another user cannot mark it read
	_, err := repo.MarkRead(ctx, created.ID, other.ID)
	assert.ErrorIs(t, err, apperrors.ErrNotificationNotFound)

	marked, err := repo.MarkRead(ctx, created.ID, recipient.ID)
	require.NoError(t, err)
	assert.True(t, marked.Read)
	require.NotNil(t, marked.ReadAt)

	// Marking again keeps the original read_at
	again, err := repo.MarkRead(ctx, created.ID, recipient.ID)
	require.NoError(t, err)
	assert.Equal(t, marked.ReadAt.Unix(), again.ReadAt.Unix())
}

func TestNotificationRepository_MarkAllRead(t *testing.T) {
	ctx := context.Background()
	repo := NewNotificationRepository(testPool)
	userRepo := NewUserRepository(testPool)

	recipient := createTestUser(t, ctx, userRepo)

	for i := 0; i < 3; i++ {
		createTestNotification(t, ctx, repo, &domain.Notification{
			RecipientID: recipient.ID,
			Type:        domain.NotificationProjectUpdate,
			Title:       "Project updated",
			Message:     "Membership changed",
		})
	}

	require.NoError(t, repo.MarkAllRead(ctx, recipient.ID))

	notifications, err := repo.ListByRecipient(ctx, recipient.ID, 50)
	require.NoError(t, err)
	require.Len(t, notifications, 3)
	for _, n := range notifications {
		assert.True(t, n.Read)
		assert.NotNil(t, n.ReadAt)
	}
}
