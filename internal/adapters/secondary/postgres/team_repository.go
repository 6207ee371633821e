package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/taskhive/taskhive-backend/internal/core/domain"
	apperrors "github.com/taskhive/taskhive-backend/internal/core/errors"
	"github.com/taskhive/taskhive-backend/internal/core/ports"
	"github.com/taskhive/taskhive-backend/internal/core/utils"
)

// TeamRepository is the secondary adapter for team persistence.
type TeamRepository struct {
	pool *pgxpool.Pool
}

var _ ports.TeamRepository = (*TeamRepository)(nil)

// NewTeamRepository creates a new team repository.
func NewTeamRepository(pool *pgxpool.Pool) ports.TeamRepository {
	return &TeamRepository{pool: pool}
}

const teamColumns = `id, name, description, is_private, leader_id, invite_code, invite_expires_at, created_at, updated_at`

func scanTeam(row pgx.Row) (*domain.Team, error) {
	var (
		team        domain.Team
		id          pgtype.UUID
		description pgtype.Text
		leaderID    pgtype.UUID
		inviteCode  pgtype.Text
		inviteExp   pgtype.Timestamptz
		createdAt   pgtype.Timestamptz
		updatedAt   pgtype.Timestamptz
	)
	err := row.Scan(&id, &team.Name, &description, &team.IsPrivate, &leaderID,
		&inviteCode, &inviteExp, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}
	team.ID = id.Bytes
	team.Description = utils.FromString(description)
	team.LeaderID = leaderID.Bytes
	if inviteCode.Valid {
		code := inviteCode.String
		team.InviteCode = &code
	}
	team.InviteExpiresAt = utils.FromNullTime(inviteExp)
	team.CreatedAt = createdAt.Time
	team.UpdatedAt = utils.FromNullTime(updatedAt)
	return &team, nil
}

// Create persists a team together with its initial members.
func (r *TeamRepository) Create(ctx context.Context, team *domain.Team) (*domain.Team, error) {
	q := GetDBTX(ctx, r.pool)

	row := q.QueryRow(ctx, `
		INSERT INTO teams (id, name, description, is_private, leader_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING `+teamColumns,
		utils.ToUUID(team.ID), team.Name, utils.ToString(team.Description),
		team.IsPrivate, utils.ToUUID(team.LeaderID), team.CreatedAt,
	)

	created, err := scanTeam(row)
	if err != nil {
		return nil, err
	}

	for _, member := range team.Members {
		if err := r.AddMember(ctx, team.ID, member); err != nil {
			return nil, err
		}
	}
	created.Members = team.Members
	return created, nil
}

// GetByID loads a team together with its members.
func (r *TeamRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Team, error) {
	q := GetDBTX(ctx, r.pool)

	row := q.QueryRow(ctx, `SELECT `+teamColumns+` FROM teams WHERE id = $1`, utils.ToUUID(id))

	team, err := scanTeam(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrTeamNotFound
		}
		return nil, err
	}

	members, err := r.listMembers(ctx, q, id)
	if err != nil {
		return nil, err
	}
	team.Members = members
	return team, nil
}

// GetByInviteCode resolves an unexpired invite code to its team.
func (r *TeamRepository) GetByInviteCode(ctx context.Context, code string) (*domain.Team, error) {
	q := GetDBTX(ctx, r.pool)

	row := q.QueryRow(ctx, `
		SELECT `+teamColumns+`
		FROM teams
		WHERE invite_code = $1 AND invite_expires_at > now()`,
		code,
	)

	team, err := scanTeam(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrInviteInvalid
		}
		return nil, err
	}

	members, err := r.listMembers(ctx, q, team.ID)
	if err != nil {
		return nil, err
	}
	team.Members = members
	return team, nil
}

// SetInvite stores a freshly minted invite code and its expiry.
func (r *TeamRepository) SetInvite(ctx context.Context, teamID uuid.UUID, code string, expiresAt time.Time) error {
	q := GetDBTX(ctx, r.pool)

	tag, err := q.Exec(ctx, `
		UPDATE teams
		SET invite_code = $2, invite_expires_at = $3, updated_at = now()
		WHERE id = $1`,
		utils.ToUUID(teamID), code, expiresAt,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrTeamNotFound
	}
	return nil
}

func (r *TeamRepository) AddMember(ctx context.Context, teamID uuid.UUID, member domain.TeamMember) error {
	q := GetDBTX(ctx, r.pool)

	_, err := q.Exec(ctx, `
		INSERT INTO team_members (team_id, user_id, role, joined_at)
		VALUES ($1, $2, $3, $4)`,
		utils.ToUUID(teamID), utils.ToUUID(member.UserID), string(member.Role), member.JoinedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperrors.ErrMemberExists
		}
		return err
	}
	return nil
}

func (r *TeamRepository) UpdateMemberRole(ctx context.Context, teamID, userID uuid.UUID, role domain.TeamRole) error {
	q := GetDBTX(ctx, r.pool)

	tag, err := q.Exec(ctx, `
		UPDATE team_members
		SET role = $3
		WHERE team_id = $1 AND user_id = $2`,
		utils.ToUUID(teamID), utils.ToUUID(userID), string(role),
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrNotTeamMember
	}
	return nil
}

func (r *TeamRepository) listMembers(ctx context.Context, q DBTX, teamID uuid.UUID) ([]domain.TeamMember, error) {
	rows, err := q.Query(ctx, `
		SELECT user_id, role, joined_at
		FROM team_members
		WHERE team_id = $1
		ORDER BY joined_at`,
		utils.ToUUID(teamID),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var members []domain.TeamMember
	for rows.Next() {
		var (
			userID   pgtype.UUID
			role     string
			joinedAt pgtype.Timestamptz
		)
		if err := rows.Scan(&userID, &role, &joinedAt); err != nil {
			return nil, err
		}
		members = append(members, domain.TeamMember{
			UserID:   userID.Bytes,
			Role:     domain.TeamRole(role),
			JoinedAt: joinedAt.Time,
		})
	}
	return members, rows.Err()
}
