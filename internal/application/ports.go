package application

import (
	"context"

	"github.com/oksasatya/go-task-tracker/internal/domain/entity"
	"github.com/oksasatya/go-task-tracker/pkg/attachment"
)

// AttachmentStore persists uploaded images. *attachment.Store satisfies it.
type AttachmentStore interface {
	Save(ctx context.Context, bucket string, up attachment.Upload) (string, error)
	Remove(ctx context.Context, ref string) error
}

// TaskIndexer mirrors task writes into a secondary search index. Both calls
// are best effort and never fail the request.
type TaskIndexer interface {
	Index(ctx context.Context, t *entity.Task)
	Remove(ctx context.Context, taskID string)
}

type noopIndexer struct{}

func (noopIndexer) Index(context.Context, *entity.Task) {}
func (noopIndexer) Remove(context.Context, string)      {}
