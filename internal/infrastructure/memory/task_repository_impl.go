package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/oksasatya/go-task-tracker/internal/domain/entity"
	"github.com/oksasatya/go-task-tracker/internal/domain/repository"
)

// TaskRepository keeps tasks in insertion order, which doubles as the
// default (creation) ordering of List.
type TaskRepository struct {
	mu    sync.RWMutex
	tasks []*entity.Task
	now   func() time.Time
}

func NewTaskRepository() *TaskRepository {
	return &TaskRepository{now: func() time.Time { return time.Now().UTC() }}
}

func (r *TaskRepository) Create(_ context.Context, t *entity.Task) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	t.ID = uuid.NewString()
	t.CreatedAt, t.UpdatedAt = now, now
	r.tasks = append(r.tasks, cloneTask(t))
	return nil
}

func (r *TaskRepository) Get(_ context.Context, userID, id string) (*entity.Task, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	i := r.indexOf(userID, id)
	if i < 0 {
		return nil, repository.ErrNotFound
	}
	return cloneTask(r.tasks[i]), nil
}

func (r *TaskRepository) List(_ context.Context, userID string, f entity.TaskFilter) ([]*entity.Task, error) {
	r.mu.RLock()
	out := make([]*entity.Task, 0)
	for _, t := range r.tasks {
		if t.UserID == userID && f.Matches(t) {
			out = append(out, cloneTask(t))
		}
	}
	r.mu.RUnlock()

	entity.SortTasks(out, f.Sort)
	return out, nil
}

func (r *TaskRepository) Update(_ context.Context, t *entity.Task) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	i := r.indexOf(t.UserID, t.ID)
	if i < 0 {
		return repository.ErrNotFound
	}
	t.CreatedAt = r.tasks[i].CreatedAt
	t.UpdatedAt = r.now()
	r.tasks[i] = cloneTask(t)
	return nil
}

func (r *TaskRepository) Delete(_ context.Context, userID, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	i := r.indexOf(userID, id)
	if i < 0 {
		return repository.ErrNotFound
	}
	r.tasks = append(r.tasks[:i], r.tasks[i+1:]...)
	return nil
}

func (r *TaskRepository) ListDueBetween(_ context.Context, from, to time.Time) ([]*entity.Task, error) {
	from, to = entity.DateOnly(from), entity.DateOnly(to)

	r.mu.RLock()
	out := make([]*entity.Task, 0)
	for _, t := range r.tasks {
		if t.DueDate == nil || t.Status == entity.StatusCompleted {
			continue
		}
		if t.DueDate.Before(from) || t.DueDate.After(to) {
			continue
		}
		out = append(out, cloneTask(t))
	}
	r.mu.RUnlock()

	entity.SortTasks(out, entity.SortDueDate)
	return out, nil
}

// indexOf finds the task only when both id and owner match.
func (r *TaskRepository) indexOf(userID, id string) int {
	for i, t := range r.tasks {
		if t.ID == id && t.UserID == userID {
			return i
		}
	}
	return -1
}

func cloneTask(t *entity.Task) *entity.Task {
	cp := *t
	if t.DueDate != nil {
		d := *t.DueDate
		cp.DueDate = &d
	}
	return &cp
}

var _ repository.TaskRepository = (*TaskRepository)(nil)
