package repository

import (
	"context"
	"time"

	"github.com/oksasatya/go-task-tracker/internal/domain/entity"
)

// TaskRepository persists tasks. Every method except ListDueBetween is scoped
// to the owning user: a task owned by someone else behaves exactly like a
// missing one and yields ErrNotFound.
type TaskRepository interface {
	Create(ctx context.Context, t *entity.Task) error
	Get(ctx context.Context, userID, id string) (*entity.Task, error)
	List(ctx context.Context, userID string, f entity.TaskFilter) ([]*entity.Task, error)
	Update(ctx context.Context, t *entity.Task) error
	Delete(ctx context.Context, userID, id string) error

	// ListDueBetween returns open (not completed) tasks of all users whose due
	// date lies in [from, to], both inclusive calendar dates.
	ListDueBetween(ctx context.Context, from, to time.Time) ([]*entity.Task, error)
}
