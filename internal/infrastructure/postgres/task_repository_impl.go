package postgres

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/oksasatya/go-task-tracker/internal/domain/entity"
	"github.com/oksasatya/go-task-tracker/internal/domain/repository"
)

const taskColumns = `id, user_id, title, description, due_date, priority, status, image, created_at, updated_at`

// priorityRankSQL orders High < Moderate < Low.
const priorityRankSQL = `CASE priority WHEN 'High' THEN 0 WHEN 'Moderate' THEN 1 ELSE 2 END`

type TaskRepository struct {
	pool *pgxpool.Pool
}

func NewTaskRepository(pool *pgxpool.Pool) *TaskRepository {
	return &TaskRepository{pool: pool}
}

func (r *TaskRepository) Create(ctx context.Context, t *entity.Task) error {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO tasks (user_id, title, description, due_date, priority, status, image)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at, updated_at
	`, t.UserID, t.Title, t.Description, t.DueDate, string(t.Priority), string(t.Status), t.Image)

	if err := row.Scan(&t.ID, &t.CreatedAt, &t.UpdatedAt); err != nil {
		return translate(err)
	}
	return nil
}

func (r *TaskRepository) Get(ctx context.Context, userID, id string) (*entity.Task, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id = $1 AND user_id = $2`, id, userID)
	return scanTask(row)
}

func (r *TaskRepository) List(ctx context.Context, userID string, f entity.TaskFilter) ([]*entity.Task, error) {
	query, args := buildListQuery(userID, f)
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, translate(err)
	}
	return collectTasks(rows)
}

func (r *TaskRepository) Update(ctx context.Context, t *entity.Task) error {
	row := r.pool.QueryRow(ctx, `
		UPDATE tasks
		SET title = $1, description = $2, due_date = $3, priority = $4, status = $5, image = $6, updated_at = now()
		WHERE id = $7 AND user_id = $8
		RETURNING updated_at
	`, t.Title, t.Description, t.DueDate, string(t.Priority), string(t.Status), t.Image, t.ID, t.UserID)

	if err := row.Scan(&t.UpdatedAt); err != nil {
		return translate(err)
	}
	return nil
}

func (r *TaskRepository) Delete(ctx context.Context, userID, id string) error {
	res, err := r.pool.Exec(ctx, `DELETE FROM tasks WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return translate(err)
	}
	if res.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *TaskRepository) ListDueBetween(ctx context.Context, from, to time.Time) ([]*entity.Task, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+taskColumns+`
		FROM tasks
		WHERE due_date BETWEEN $1::date AND $2::date AND status <> $3
		ORDER BY due_date, created_at, id
	`, from, to, string(entity.StatusCompleted))
	if err != nil {
		return nil, translate(err)
	}
	return collectTasks(rows)
}

// buildListQuery renders the owner-scoped list query for f. Without a sort
// key rows come back in creation order.
func buildListQuery(userID string, f entity.TaskFilter) (string, []any) {
	var sb strings.Builder
	args := []any{userID}
	sb.WriteString(`SELECT ` + taskColumns + ` FROM tasks WHERE user_id = $1`)

	if f.Status != "" {
		args = append(args, string(f.Status))
		sb.WriteString(` AND status = $` + strconv.Itoa(len(args)))
	}
	if f.Priority != "" {
		args = append(args, string(f.Priority))
		sb.WriteString(` AND priority = $` + strconv.Itoa(len(args)))
	}
	if q := strings.TrimSpace(f.Search); q != "" {
		args = append(args, "%"+escapeLike(q)+"%")
		n := strconv.Itoa(len(args))
		sb.WriteString(` AND (title ILIKE $` + n + ` OR description ILIKE $` + n + `)`)
	}

	switch f.Sort {
	case entity.SortDueDate:
		sb.WriteString(` ORDER BY due_date ASC NULLS LAST, created_at, id`)
	case entity.SortPriority:
		sb.WriteString(` ORDER BY ` + priorityRankSQL + `, created_at, id`)
	default:
		sb.WriteString(` ORDER BY created_at, id`)
	}
	return sb.String(), args
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string { return likeEscaper.Replace(s) }

func scanTask(row pgx.Row) (*entity.Task, error) {
	t := &entity.Task{}
	var priority, status string
	if err := row.Scan(&t.ID, &t.UserID, &t.Title, &t.Description, &t.DueDate, &priority, &status,
		&t.Image, &t.CreatedAt, &t.UpdatedAt); err != nil {
		return nil, translate(err)
	}
	t.Priority = entity.Priority(priority)
	t.Status = entity.Status(status)
	return t, nil
}

func collectTasks(rows pgx.Rows) ([]*entity.Task, error) {
	defer rows.Close()
	out := make([]*entity.Task, 0)
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, translate(err)
	}
	return out, nil
}

var _ repository.TaskRepository = (*TaskRepository)(nil)
