package application

import (
	"context"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-task-tracker/internal/domain/apperror"
	"github.com/oksasatya/go-task-tracker/internal/domain/entity"
	"github.com/oksasatya/go-task-tracker/internal/domain/repository"
	"github.com/oksasatya/go-task-tracker/pkg/attachment"
)

type TaskService struct {
	tasks   repository.TaskRepository
	files   AttachmentStore
	indexer TaskIndexer
	logger  logrus.FieldLogger
}

// NewTaskService wires the task store. indexer may be nil.
func NewTaskService(tasks repository.TaskRepository, files AttachmentStore, indexer TaskIndexer, logger logrus.FieldLogger) *TaskService {
	if indexer == nil {
		indexer = noopIndexer{}
	}
	return &TaskService{tasks: tasks, files: files, indexer: indexer, logger: logger}
}

type TaskInput struct {
	Title       string
	Description string
	DueDate     string
	Priority    string
	Status      string
	Image       *attachment.Upload
}

// TaskPatch carries an update; nil fields are left unchanged and an empty
// DueDate clears the due date.
type TaskPatch struct {
	Title       *string
	Description *string
	DueDate     *string
	Priority    *string
	Status      *string
	Image       *attachment.Upload
}

// TaskQuery holds raw list parameters as received from the client.
type TaskQuery struct {
	Status   string
	Priority string
	SortBy   string
	Search   string
}

func (s *TaskService) Create(ctx context.Context, userID string, in TaskInput) (*entity.Task, error) {
	t := &entity.Task{
		UserID:      userID,
		Title:       strings.TrimSpace(in.Title),
		Description: in.Description,
		Priority:    entity.Priority(strings.TrimSpace(in.Priority)),
		Status:      entity.Status(strings.TrimSpace(in.Status)),
	}
	t.ApplyDefaults()

	due, dueErr := entity.ParseDueDate(in.DueDate)
	t.DueDate = due
	if err := validateTask(t, dueErr); err != nil {
		return nil, err
	}

	if in.Image != nil {
		ref, err := s.files.Save(ctx, attachment.BucketUploads, *in.Image)
		if err != nil {
			return nil, err
		}
		t.Image = ref
	}

	if err := s.tasks.Create(ctx, t); err != nil {
		s.discard(ctx, t.Image)
		return nil, apperror.Unavailable("create task", err)
	}
	s.indexer.Index(ctx, t)
	return t, nil
}

// List returns the caller's tasks after filtering, searching and sorting.
func (s *TaskService) List(ctx context.Context, userID string, q TaskQuery) ([]*entity.Task, error) {
	f, err := parseQuery(q)
	if err != nil {
		return nil, err
	}
	tasks, err := s.tasks.List(ctx, userID, f)
	if err != nil {
		return nil, apperror.Unavailable("list tasks", err)
	}
	return tasks, nil
}

func (s *TaskService) Get(ctx context.Context, userID, taskID string) (*entity.Task, error) {
	t, err := s.tasks.Get(ctx, userID, taskID)
	if err != nil {
		return nil, repoError("get task", err)
	}
	return t, nil
}

func (s *TaskService) Update(ctx context.Context, userID, taskID string, p TaskPatch) (*entity.Task, error) {
	t, err := s.tasks.Get(ctx, userID, taskID)
	if err != nil {
		return nil, repoError("get task", err)
	}

	if p.Title != nil {
		t.Title = strings.TrimSpace(*p.Title)
	}
	if p.Description != nil {
		t.Description = *p.Description
	}
	if p.Priority != nil {
		t.Priority = entity.Priority(strings.TrimSpace(*p.Priority))
	}
	if p.Status != nil {
		t.Status = entity.Status(strings.TrimSpace(*p.Status))
	}
	var dueErr error
	if p.DueDate != nil {
		t.DueDate, dueErr = entity.ParseDueDate(*p.DueDate)
	}
	if err := validateTask(t, dueErr); err != nil {
		return nil, err
	}

	var previous string
	if p.Image != nil {
		ref, err := s.files.Save(ctx, attachment.BucketUploads, *p.Image)
		if err != nil {
			return nil, err
		}
		previous, t.Image = t.Image, ref
	}

	if err := s.tasks.Update(ctx, t); err != nil {
		if p.Image != nil {
			s.discard(ctx, t.Image)
		}
		return nil, repoError("update task", err)
	}
	if p.Image != nil {
		s.discard(ctx, previous)
	}
	s.indexer.Index(ctx, t)
	return t, nil
}

// Delete removes the task and then its image file.
func (s *TaskService) Delete(ctx context.Context, userID, taskID string) error {
	t, err := s.tasks.Get(ctx, userID, taskID)
	if err != nil {
		return repoError("get task", err)
	}
	if err := s.tasks.Delete(ctx, userID, taskID); err != nil {
		return repoError("delete task", err)
	}
	s.discard(ctx, t.Image)
	s.indexer.Remove(ctx, taskID)
	return nil
}

func (s *TaskService) discard(ctx context.Context, ref string) {
	if ref == "" {
		return
	}
	if err := s.files.Remove(context.WithoutCancel(ctx), ref); err != nil {
		s.logger.WithError(err).WithField("ref", ref).Warn("remove attachment failed")
	}
}

// validateTask merges the record's field violations with a due date parse error.
func validateTask(t *entity.Task, dueErr error) error {
	fields := map[string]string{}
	if err := t.Validate(); err != nil {
		if ve, ok := err.(*apperror.ValidationError); ok {
			for k, v := range ve.Fields {
				fields[k] = v
			}
		} else {
			return err
		}
	}
	if dueErr != nil {
		fields["dueDate"] = dueErr.Error()
	}
	if len(fields) > 0 {
		return apperror.NewValidation(fields)
	}
	return nil
}

func parseQuery(q TaskQuery) (entity.TaskFilter, error) {
	f := entity.TaskFilter{
		Status:   entity.Status(strings.TrimSpace(q.Status)),
		Priority: entity.Priority(strings.TrimSpace(q.Priority)),
		Search:   strings.TrimSpace(q.Search),
		Sort:     entity.SortKey(strings.TrimSpace(q.SortBy)),
	}
	fields := map[string]string{}
	if f.Status != "" && !f.Status.Valid() {
		fields["status"] = "must be one of: Not Started, In Progress, Completed"
	}
	if f.Priority != "" && !f.Priority.Valid() {
		fields["priority"] = "must be one of: Low, Moderate, High"
	}
	if !f.Sort.Valid() {
		fields["sortBy"] = "must be one of: dueDate, priority, createdAt"
	}
	if len(fields) > 0 {
		return entity.TaskFilter{}, apperror.NewValidation(fields)
	}
	return f, nil
}
