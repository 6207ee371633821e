package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/taskhive/taskhive-backend/internal/core/domain"
	"github.com/taskhive/taskhive-backend/internal/core/ports"
	"github.com/taskhive/taskhive-backend/internal/core/utils"
)

// CommentRepository is the secondary adapter for comment persistence.
type CommentRepository struct {
	pool *pgxpool.Pool
}

var _ ports.CommentRepository = (*CommentRepository)(nil)

// NewCommentRepository creates a new comment repository.
func NewCommentRepository(pool *pgxpool.Pool) ports.CommentRepository {
	return &CommentRepository{pool: pool}
}

func scanComment(row pgx.Row) (*domain.Comment, error) {
	var (
		comment   domain.Comment
		authorID  pgtype.UUID
		createdAt pgtype.Timestamptz
	)
	err := row.Scan(&comment.ID, &comment.TaskID, &authorID, &comment.Body, &createdAt)
	if err != nil {
		return nil, err
	}
	comment.AuthorID = authorID.Bytes
	comment.CreatedAt = createdAt.Time
	return &comment, nil
}

func (r *CommentRepository) Create(ctx context.Context, comment *domain.Comment) (*domain.Comment, error) {
	q := GetDBTX(ctx, r.pool)

	row := q.QueryRow(ctx, `
		INSERT INTO comments (task_id, author_id, body, created_at)
		VALUES ($1, $2, $3, $4)
		RETURNING id, task_id, author_id, body, created_at`,
		comment.TaskID, utils.ToUUID(comment.AuthorID), comment.Body, comment.CreatedAt,
	)

	return scanComment(row)
}

// ListByTaskID returns a task's comments oldest first.
func (r *CommentRepository) ListByTaskID(ctx context.Context, taskID int64) ([]*domain.Comment, error) {
	q := GetDBTX(ctx, r.pool)

	rows, err := q.Query(ctx, `
		SELECT id, task_id, author_id, body, created_at
		FROM comments
		WHERE task_id = $1
		ORDER BY created_at, id`,
		taskID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var comments []*domain.Comment
	for rows.Next() {
		comment, err := scanComment(rows)
		if err != nil {
			return nil, err
		}
		comments = append(comments, comment)
	}
	return comments, rows.Err()
}
