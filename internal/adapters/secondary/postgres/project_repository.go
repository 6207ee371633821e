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

// ProjectRepository is the secondary adapter for project persistence.
type ProjectRepository struct {
	pool *pgxpool.Pool
}

var _ ports.ProjectRepository = (*ProjectRepository)(nil)

// NewProjectRepository creates a new project repository.
func NewProjectRepository(pool *pgxpool.Pool) ports.ProjectRepository {
	return &ProjectRepository{pool: pool}
}

const projectColumns = `id, name, description, status, priority, manager_id, team_id, created_at, updated_at`

func scanProject(row pgx.Row) (*domain.Project, error) {
	var (
		project     domain.Project
		id          pgtype.UUID
		description pgtype.Text
		managerID   pgtype.UUID
		teamID      pgtype.UUID
		createdAt   pgtype.Timestamptz
		updatedAt   pgtype.Timestamptz
	)
	err := row.Scan(&id, &project.Name, &description, &project.Status, &project.Priority,
		&managerID, &teamID, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}
	project.ID = id.Bytes
	project.Description = utils.FromString(description)
	project.ManagerID = managerID.Bytes
	project.TeamID = utils.FromNullUUID(teamID)
	project.CreatedAt = createdAt.Time
	project.UpdatedAt = utils.FromNullTime(updatedAt)
	return &project, nil
}

func (r *ProjectRepository) Create(ctx context.Context, project *domain.Project) (*domain.Project, error) {
	q := GetDBTX(ctx, r.pool)

	row := q.QueryRow(ctx, `
		INSERT INTO projects (id, name, description, status, priority, manager_id, team_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING `+projectColumns,
		utils.ToUUID(project.ID), project.Name, utils.ToString(project.Description),
		string(project.Status), string(project.Priority),
		utils.ToUUID(project.ManagerID), utils.ToNullUUID(project.TeamID), project.CreatedAt,
	)

	created, err := scanProject(row)
	if err != nil {
		return nil, err
	}
	created.Members = project.Members
	return created, nil
}

// GetByID loads a project together with its team members.
func (r *ProjectRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Project, error) {
	q := GetDBTX(ctx, r.pool)

	row := q.QueryRow(ctx, `SELECT `+projectColumns+` FROM projects WHERE id = $1`, utils.ToUUID(id))

	project, err := scanProject(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrProjectNotFound
		}
		return nil, err
	}

	members, err := r.listMembers(ctx, q, id)
	if err != nil {
		return nil, err
	}
	project.Members = members
	return project, nil
}

// List returns projects where the user is the manager or a team member.
func (r *ProjectRepository) List(ctx context.Context, memberID uuid.UUID) ([]*domain.Project, error) {
	q := GetDBTX(ctx, r.pool)

	rows, err := q.Query(ctx, `
		SELECT `+projectColumns+`
		FROM projects p
		WHERE p.manager_id = $1
		   OR EXISTS (SELECT 1 FROM project_members m WHERE m.project_id = p.id AND m.user_id = $1)
		ORDER BY p.created_at DESC`,
		utils.ToUUID(memberID),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var projects []*domain.Project
	for rows.Next() {
		project, err := scanProject(rows)
		if err != nil {
			return nil, err
		}
		projects = append(projects, project)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for _, project := range projects {
		members, err := r.listMembers(ctx, q, project.ID)
		if err != nil {
			return nil, err
		}
		project.Members = members
	}
	return projects, nil
}

// ListByTeam returns the projects attached to a team.
func (r *ProjectRepository) ListByTeam(ctx context.Context, teamID uuid.UUID) ([]*domain.Project, error) {
	q := GetDBTX(ctx, r.pool)

	rows, err := q.Query(ctx, `
		SELECT `+projectColumns+`
		FROM projects
		WHERE team_id = $1
		ORDER BY created_at DESC`,
		utils.ToUUID(teamID),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var projects []*domain.Project
	for rows.Next() {
		project, err := scanProject(rows)
		if err != nil {
			return nil, err
		}
		projects = append(projects, project)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for _, project := range projects {
		members, err := r.listMembers(ctx, q, project.ID)
		if err != nil {
			return nil, err
		}
		project.Members = members
	}
	return projects, nil
}

func (r *ProjectRepository) Update(ctx context.Context, project *domain.Project) (*domain.Project, error) {
	q := GetDBTX(ctx, r.pool)

	row := q.QueryRow(ctx, `
		UPDATE projects
		SET name = $2, description = $3, status = $4, priority = $5, team_id = $6, updated_at = $7
		WHERE id = $1
		RETURNING `+projectColumns,
		utils.ToUUID(project.ID), project.Name, utils.ToString(project.Description),
		string(project.Status), string(project.Priority),
		utils.ToNullUUID(project.TeamID), utils.ToNullTime(project.UpdatedAt),
	)

	updated, err := scanProject(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrProjectNotFound
		}
		return nil, err
	}
	updated.Members = project.Members
	return updated, nil
}

// TaskCounts reports how many of the project's tasks are completed.
func (r *ProjectRepository) TaskCounts(ctx context.Context, projectID uuid.UUID) (completed, total int, err error) {
	q := GetDBTX(ctx, r.pool)

	row := q.QueryRow(ctx, `
		SELECT COUNT(*) FILTER (WHERE status = 'completed'), COUNT(*)
		FROM tasks
		WHERE project_id = $1`,
		utils.ToUUID(projectID),
	)
	if err := row.Scan(&completed, &total); err != nil {
		return 0, 0, err
	}
	return completed, total, nil
}

func (r *ProjectRepository) AddMember(ctx context.Context, projectID uuid.UUID, member domain.ProjectMember) error {
	q := GetDBTX(ctx, r.pool)

	_, err := q.Exec(ctx, `
		INSERT INTO project_members (project_id, user_id, role, joined_at)
		VALUES ($1, $2, $3, $4)`,
		utils.ToUUID(projectID), utils.ToUUID(member.UserID), string(member.Role), member.JoinedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperrors.ErrMemberExists
		}
		return err
	}
	return nil
}

func (r *ProjectRepository) listMembers(ctx context.Context, q DBTX, projectID uuid.UUID) ([]domain.ProjectMember, error) {
	rows, err := q.Query(ctx, `
		SELECT user_id, role, joined_at
		FROM project_members
		WHERE project_id = $1
		ORDER BY joined_at`,
		utils.ToUUID(projectID),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var members []domain.ProjectMember
	for rows.Next() {
		var (
			userID   pgtype.UUID
			role     string
			joinedAt pgtype.Timestamptz
		)
		if err := rows.Scan(&userID, &role, &joinedAt); err != nil {
			return nil, err
		}
		members = append(members, domain.ProjectMember{
			UserID:   userID.Bytes,
			Role:     domain.MemberRole(role),
			JoinedAt: joinedAt.Time,
		})
	}
	return members, rows.Err()
}
