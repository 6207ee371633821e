package postgres

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/taskhive/taskhive-backend/internal/core/domain"
	apperrors "github.com/taskhive/taskhive-backend/internal/core/errors"
	"github.com/taskhive/taskhive-backend/internal/core/ports"
	"github.com/taskhive/taskhive-backend/internal/core/utils"
)

// UserRepository is the secondary adapter for user persistence.
type UserRepository struct {
	pool *pgxpool.Pool
}

var _ ports.UserRepository = (*UserRepository)(nil)

// NewUserRepository creates a new user repository.
func NewUserRepository(pool *pgxpool.Pool) ports.UserRepository {
	return &UserRepository{pool: pool}
}

const uniqueViolationCode = "23505"

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolationCode
}

func scanUser(row pgx.Row) (*domain.User, error) {
	var (
		id        pgtype.UUID
		user      domain.User
		createdAt pgtype.Timestamptz
	)
	err := row.Scan(&id, &user.Username, &user.Email, &user.HashedPassword, &user.IsActive, &createdAt)
	if err != nil {
		return nil, err
	}
	user.ID = id.Bytes
	user.CreatedAt = createdAt.Time
	return &user, nil
}

func (r *UserRepository) Create(ctx context.Context, user *domain.User) (*domain.User, error) {
	q := GetDBTX(ctx, r.pool)

	row := q.QueryRow(ctx, `
		INSERT INTO users (id, username, email, hashed_password, is_active, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, username, email, hashed_password, is_active, created_at`,
		utils.ToUUID(user.ID), user.Username, user.Email, user.HashedPassword,
		user.IsActive, user.CreatedAt,
	)

	created, err := scanUser(row)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, apperrors.ErrUserExists
		}
		return nil, err
	}
	return created, nil
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	q := GetDBTX(ctx, r.pool)

	row := q.QueryRow(ctx, `
		SELECT id, username, email, hashed_password, is_active, created_at
		FROM users
		WHERE email = $1`,
		email,
	)

	user, err := scanUser(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrUserNotFound
		}
		return nil, err
	}
	return user, nil
}

func (r *UserRepository) Update(ctx context.Context, user *domain.User) (*domain.User, error) {
	q := GetDBTX(ctx, r.pool)

	row := q.QueryRow(ctx, `
		UPDATE users
		SET username = $2, email = $3
		WHERE id = $1
		RETURNING id, username, email, hashed_password, is_active, created_at`,
		utils.ToUUID(user.ID), user.Username, user.Email,
	)

	updated, err := scanUser(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrUserNotFound
		}
		if isUniqueViolation(err) {
			return nil, apperrors.ErrUserExists
		}
		return nil, err
	}
	return updated, nil
}

// List returns all users, newest first.
func (r *UserRepository) List(ctx context.Context) ([]*domain.User, error) {
	q := GetDBTX(ctx, r.pool)

	rows, err := q.Query(ctx, `
		SELECT id, username, email, hashed_password, is_active, created_at
		FROM users
		ORDER BY created_at DESC`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []*domain.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	return users, rows.Err()
}

func (r *UserRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	q := GetDBTX(ctx, r.pool)

	row := q.QueryRow(ctx, `
		SELECT id, username, email, hashed_password, is_active, created_at
		FROM users
		WHERE id = $1`,
		utils.ToUUID(id),
	)

	user, err := scanUser(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrUserNotFound
		}
		return nil, err
	}
	return user, nil
}
