package postgres

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/taskhive/taskhive-backend/internal/core/domain"
	apperrors "github.com/taskhive/taskhive-backend/internal/core/errors"
	"github.com/taskhive/taskhive-backend/internal/core/ports"
	"github.com/taskhive/taskhive-backend/internal/core/utils"
)

// NotificationRepository is the secondary adapter for the durable
// notification store.
type NotificationRepository struct {
	pool *pgxpool.Pool
}

var _ ports.NotificationRepository = (*NotificationRepository)(nil)

// NewNotificationRepository creates a new notification repository.
func NewNotificationRepository(pool *pgxpool.Pool) ports.NotificationRepository {
	return &NotificationRepository{pool: pool}
}

const notificationColumns = `id, recipient_id, type, title, message, ref_type, ref_id, read, read_at, created_at`

func scanNotification(row pgx.Row) (*domain.Notification, error) {
	var (
		n           domain.Notification
		recipientID pgtype.UUID
		refType     pgtype.Text
		refID       pgtype.Text
		readAt      pgtype.Timestamptz
		createdAt   pgtype.Timestamptz
	)
	err := row.Scan(&n.ID, &recipientID, &n.Type, &n.Title, &n.Message,
		&refType, &refID, &n.Read, &readAt, &createdAt)
	if err != nil {
		return nil, err
	}
	n.RecipientID = recipientID.Bytes
	n.RefType = domain.ReferenceType(utils.FromString(refType))
	n.RefID = utils.FromString(refID)
	n.ReadAt = utils.FromNullTime(readAt)
	n.CreatedAt = createdAt.Time
	return &n, nil
}

func (r *NotificationRepository) Create(ctx context.Context, notification *domain.Notification) (*domain.Notification, error) {
	q := GetDBTX(ctx, r.pool)

	row := q.QueryRow(ctx, `
		INSERT INTO notifications (recipient_id, type, title, message, ref_type, ref_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING `+notificationColumns,
		utils.ToUUID(notification.RecipientID), string(notification.Type),
		notification.Title, notification.Message,
		utils.ToString(string(notification.RefType)), utils.ToString(notification.RefID),
		notification.CreatedAt,
	)

	return scanNotification(row)
}

// ListByRecipient returns the recipient's notifications newest first.
func (r *NotificationRepository) ListByRecipient(ctx context.Context, recipientID uuid.UUID, limit int) ([]*domain.Notification, error) {
	q := GetDBTX(ctx, r.pool)

	rows, err := q.Query(ctx, `
		SELECT `+notificationColumns+`
		FROM notifications
		WHERE recipient_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2`,
		utils.ToUUID(recipientID), limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var notifications []*domain.Notification
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, err
		}
		notifications = append(notifications, n)
	}
	return notifications, rows.Err()
}

// MarkRead flags one notification as read. The recipient scope keeps a
// user from touching someone else's notifications.
func (r *NotificationRepository) MarkRead(ctx context.Context, id int64, recipientID uuid.UUID) (*domain.Notification, error) {
	q := GetDBTX(ctx, r.pool)

	row := q.QueryRow(ctx, `
		UPDATE notifications
		SET read = TRUE, read_at = COALESCE(read_at, now())
		WHERE id = $1 AND recipient_id = $2
		RETURNING `+notificationColumns,
		id, utils.ToUUID(recipientID),
	)

	n, err := scanNotification(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotificationNotFound
		}
		return nil, err
	}
	return n, nil
}

func (r *NotificationRepository) MarkAllRead(ctx context.Context, recipientID uuid.UUID) error {
	q := GetDBTX(ctx, r.pool)

	_, err := q.Exec(ctx, `
		UPDATE notifications
		SET read = TRUE, read_at = now()
		WHERE recipient_id = $1 AND read = FALSE`,
		utils.ToUUID(recipientID),
	)
	return err
}
