package domain

import (
	"time"

	"github.com/google/uuid"

	apperrors "github.com/taskhive/taskhive-backend/internal/core/errors"
)

const MaxCommentLength = 2000

// Comment is a user-authored note on a task.
type Comment struct {
	ID        int64
	TaskID    int64
	AuthorID  uuid.UUID
	Body      string
	CreatedAt time.Time
}

// CommentParams holds the input for creating a new comment.
type CommentParams struct {
	TaskID   int64
	AuthorID uuid.UUID
	Body     string
}

// NewComment is a factory function to create a valid new comment.
func NewComment(params CommentParams) (*Comment, error) {
	if params.TaskID <= 0 {
		return nil, apperrors.ErrTaskIDRequired
	}
	if params.AuthorID == uuid.Nil {
		return nil, apperrors.ErrAuthorIDRequired
	}
	if params.Body == "" {
		return nil, apperrors.ErrCommentBodyRequired
	}
	if len(params.Body) > MaxCommentLength {
		return nil, apperrors.ErrCommentBodyTooLong
	}

	return &Comment{
		TaskID:    params.TaskID,
		AuthorID:  params.AuthorID,
		Body:      params.Body,
		CreatedAt: time.Now().UTC(),
	}, nil
}
