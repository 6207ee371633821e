package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/taskhive/taskhive-backend/internal/core/domain"
	apperrors "github.com/taskhive/taskhive-backend/internal/core/errors"
	"github.com/taskhive/taskhive-backend/internal/core/ports"
	"github.com/taskhive/taskhive-backend/internal/core/utils"
)

// TaskRepository is the secondary adapter for task persistence.
type TaskRepository struct {
	pool *pgxpool.Pool
}

var _ ports.TaskRepository = (*TaskRepository)(nil)

// NewTaskRepository creates a new task repository.
func NewTaskRepository(pool *pgxpool.Pool) ports.TaskRepository {
	return &TaskRepository{pool: pool}
}

const taskColumns = `id, title, description, status, priority, project_id, assignee_id, creator_id, due_date, created_at, updated_at`

func scanTask(row pgx.Row) (*domain.Task, error) {
	var (
		task        domain.Task
		description pgtype.Text
		projectID   pgtype.UUID
		assigneeID  pgtype.UUID
		creatorID   pgtype.UUID
		dueDate     pgtype.Timestamptz
		createdAt   pgtype.Timestamptz
		updatedAt   pgtype.Timestamptz
	)
	err := row.Scan(&task.ID, &task.Title, &description, &task.Status, &task.Priority,
		&projectID, &assigneeID, &creatorID, &dueDate, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}
	task.Description = utils.FromString(description)
	task.ProjectID = utils.FromNullUUID(projectID)
	task.AssigneeID = utils.FromNullUUID(assigneeID)
	task.CreatorID = creatorID.Bytes
	task.DueDate = utils.FromNullTime(dueDate)
	task.CreatedAt = createdAt.Time
	task.UpdatedAt = utils.FromNullTime(updatedAt)
	return &task, nil
}

func (r *TaskRepository) Create(ctx context.Context, task *domain.Task) (*domain.Task, error) {
	q := GetDBTX(ctx, r.pool)

	row := q.QueryRow(ctx, `
		INSERT INTO tasks (title, description, status, priority, project_id, assignee_id, creator_id, due_date, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING `+taskColumns,
		task.Title, utils.ToString(task.Description), string(task.Status), string(task.Priority),
		utils.ToNullUUID(task.ProjectID), utils.ToNullUUID(task.AssigneeID),
		utils.ToUUID(task.CreatorID), utils.ToNullTime(task.DueDate), task.CreatedAt,
	)

	return scanTask(row)
}

func (r *TaskRepository) GetByID(ctx context.Context, id int64) (*domain.Task, error) {
	q := GetDBTX(ctx, r.pool)

	row := q.QueryRow(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id = $1`, id)

	task, err := scanTask(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrTaskNotFound
		}
		return nil, err
	}
	return task, nil
}

func (r *TaskRepository) Update(ctx context.Context, task *domain.Task) (*domain.Task, error) {
	q := GetDBTX(ctx, r.pool)

	row := q.QueryRow(ctx, `
		UPDATE tasks
		SET title = $2, description = $3, status = $4, priority = $5,
		    assignee_id = $6, due_date = $7, updated_at = $8
		WHERE id = $1
		RETURNING `+taskColumns,
		task.ID, task.Title, utils.ToString(task.Description), string(task.Status),
		string(task.Priority), utils.ToNullUUID(task.AssigneeID),
		utils.ToNullTime(task.DueDate), utils.ToNullTime(task.UpdatedAt),
	)

	updated, err := scanTask(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrTaskNotFound
		}
		return nil, err
	}
	return updated, nil
}

func (r *TaskRepository) Delete(ctx context.Context, id int64) error {
	q := GetDBTX(ctx, r.pool)

	tag, err := q.Exec(ctx, `DELETE FROM tasks WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrTaskNotFound
	}
	return nil
}

// CountByStatus groups the user's tasks (created or assigned) by status.
// Statuses with no tasks are absent from the result.
func (r *TaskRepository) CountByStatus(ctx context.Context, userID uuid.UUID) (map[domain.TaskStatus]int, error) {
	q := GetDBTX(ctx, r.pool)

	rows, err := q.Query(ctx, `
		SELECT status, COUNT(*)
		FROM tasks
		WHERE creator_id = $1 OR assignee_id = $1
		GROUP BY status`,
		utils.ToUUID(userID),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[domain.TaskStatus]int)
	for rows.Next() {
		var (
			status string
			n      int
		)
		if err := rows.Scan(&status, &n); err != nil {
			return nil, err
		}
		counts[domain.TaskStatus(status)] = n
	}
	return counts, rows.Err()
}

// ListPaginated retrieves tasks matching the filter set, newest first.
// Filters are combined with AND; nil filters are skipped.
func (r *TaskRepository) ListPaginated(ctx context.Context, params ports.ListTasksRepoParams) ([]*domain.Task, error) {
	q := GetDBTX(ctx, r.pool)

	var (
		conditions []string
		args       []interface{}
	)
	addCondition := func(clause string, value interface{}) {
		args = append(args, value)
		conditions = append(conditions, fmt.Sprintf(clause, len(args)))
	}

	if params.Status != nil {
		addCondition("status = $%d", *params.Status)
	}
	if params.Priority != nil {
		addCondition("priority = $%d", *params.Priority)
	}
	if params.ProjectID != nil {
		addCondition("project_id = $%d", utils.ToUUID(*params.ProjectID))
	}
	if params.AssigneeID != nil {
		addCondition("assignee_id = $%d", utils.ToUUID(*params.AssigneeID))
	}
	if params.DueFrom != nil {
		addCondition("due_date >= $%d", *params.DueFrom)
	}
	if params.DueTo != nil {
		addCondition("due_date < $%d", *params.DueTo)
	}

	query := `SELECT ` + taskColumns + ` FROM tasks`
	if len(conditions) > 0 {
		query += ` WHERE ` + strings.Join(conditions, " AND ")
	}
	args = append(args, params.Limit)
	query += fmt.Sprintf(` ORDER BY created_at DESC, id DESC LIMIT $%d`, len(args))
	args = append(args, params.Offset)
	query += fmt.Sprintf(` OFFSET $%d`, len(args))

	rows, err := q.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tasks []*domain.Task
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, task)
	}
	return tasks, rows.Err()
}
