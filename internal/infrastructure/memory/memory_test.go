package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oksasatya/go-task-tracker/internal/domain/entity"
	"github.com/oksasatya/go-task-tracker/internal/domain/repository"
)

func date(s string) *time.Time {
	d, err := entity.ParseDueDate(s)
	if err != nil {
		panic(err)
	}
	return d
}

func TestTaskRepositoryCopiesRecords(t *testing.T) {
	ctx := context.Background()
	repo := NewTaskRepository()

	task := &entity.Task{UserID: "u1", Title: "a", DueDate: date("2026-01-02")}
	require.NoError(t, repo.Create(ctx, task))
	task.Title = "changed"
	*task.DueDate = task.DueDate.AddDate(1, 0, 0)

	got, err := repo.Get(ctx, "u1", task.ID)
	require.NoError(t, err)
	assert.Equal(t, "a", got.Title)
	assert.Equal(t, "2026-01-02", entity.FormatDueDate(got.DueDate))
}

func TestTaskRepositoryScopesByOwner(t *testing.T) {
	ctx := context.Background()
	repo := NewTaskRepository()
	task := &entity.Task{UserID: "u1", Title: "a"}
	require.NoError(t, repo.Create(ctx, task))

	_, err := repo.Get(ctx, "u2", task.ID)
	assert.ErrorIs(t, err, repository.ErrNotFound)
	assert.ErrorIs(t, repo.Delete(ctx, "u2", task.ID), repository.ErrNotFound)
	assert.ErrorIs(t, repo.Update(ctx, &entity.Task{ID: task.ID, UserID: "u2"}), repository.ErrNotFound)

	require.NoError(t, repo.Delete(ctx, "u1", task.ID))
	assert.ErrorIs(t, repo.Delete(ctx, "u1", task.ID), repository.ErrNotFound)
}

func TestListDueBetweenIsInclusiveAndSkipsCompleted(t *testing.T) {
	ctx := context.Background()
	repo := NewTaskRepository()
	for _, task := range []*entity.Task{
		{UserID: "u1", Title: "before", DueDate: date("2026-03-09"), Status: entity.StatusNotStarted},
		{UserID: "u1", Title: "to", DueDate: date("2026-03-11"), Status: entity.StatusInProgress},
		{UserID: "u2", Title: "from", DueDate: date("2026-03-10"), Status: entity.StatusNotStarted},
		{UserID: "u2", Title: "done", DueDate: date("2026-03-10"), Status: entity.StatusCompleted},
		{UserID: "u2", Title: "undated", Status: entity.StatusNotStarted},
		{UserID: "u1", Title: "after", DueDate: date("2026-03-12"), Status: entity.StatusNotStarted},
	} {
		require.NoError(t, repo.Create(ctx, task))
	}

	from := time.Date(2026, 3, 10, 15, 0, 0, 0, time.UTC)
	got, err := repo.ListDueBetween(ctx, from, from.AddDate(0, 0, 1))
	require.NoError(t, err)

	var titles []string
	for _, task := range got {
		titles = append(titles, task.Title)
	}
	assert.Equal(t, []string{"from", "to"}, titles)
}

func TestUserRepositoryEmailIsCaseInsensitive(t *testing.T) {
	ctx := context.Background()
	repo := NewUserRepository()
	u := &entity.User{Email: " Ada@Example.com ", Name: "Ada"}
	require.NoError(t, repo.Create(ctx, u))
	assert.Equal(t, "ada@example.com", u.Email)

	got, err := repo.GetByEmail(ctx, "ADA@example.COM")
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)

	assert.ErrorIs(t, repo.Create(ctx, &entity.User{Email: "ada@EXAMPLE.com"}), repository.ErrDuplicate)

	got.Email = "other@example.com"
	got.Name = "Ada L."
	require.NoError(t, repo.Update(ctx, got))
	again, err := repo.GetByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "Ada L.", again.Name)
	assert.Equal(t, "ada@example.com", again.Email)
}
