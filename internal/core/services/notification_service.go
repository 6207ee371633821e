package services

import (
	"context"

	"github.com/google/uuid"
	"github.com/taskhive/taskhive-backend/internal/core/domain"
	"github.com/taskhive/taskhive-backend/internal/core/ports"
)

const defaultNotificationLimit = 50

// NotificationService exposes the durable notification store
type NotificationService struct {
	notificationRepo ports.NotificationRepository
}

var _ ports.NotificationService = (*NotificationService)(nil)

// NewNotificationService creates a new notification service
func NewNotificationService(notificationRepo ports.NotificationRepository) ports.NotificationService {
	return &NotificationService{
		notificationRepo: notificationRepo,
	}
}

// ListNotifications returns the recipient's notifications newest-first
func (s *NotificationService) ListNotifications(ctx context.Context, recipientID uuid.UUID) ([]*domain.Notification, error) {
	return s.notificationRepo.ListByRecipient(ctx, recipientID, defaultNotificationLimit)
}

// MarkRead marks a single notification as read. The recipient ID scopes
// the update so users cannot touch each other's notifications.
func (s *NotificationService) MarkRead(ctx context.Context, id int64, recipientID uuid.UUID) (*domain.Notification, error) {
	return s.notificationRepo.MarkRead(ctx, id, recipientID)
}

// MarkAllRead marks every unread notification of the recipient as read
func (s *NotificationService) MarkAllRead(ctx context.Context, recipientID uuid.UUID) error {
	return s.notificationRepo.MarkAllRead(ctx, recipientID)
}
