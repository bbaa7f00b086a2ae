// Package search mirrors tasks into Elasticsearch. Writes are best effort:
// the relational store stays authoritative and listing never reads the index.
package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-task-tracker/internal/domain/entity"
)

const requestTimeout = 3 * time.Second

const taskMapping = `{
  "mappings": {
    "properties": {
      "id":          {"type": "keyword"},
      "user_id":     {"type": "keyword"},
      "title":       {"type": "text", "fields": {"raw": {"type": "keyword", "ignore_above": 256}}},
      "description": {"type": "text"},
      "due_date":    {"type": "date", "format": "yyyy-MM-dd"},
      "priority":    {"type": "keyword"},
      "status":      {"type": "keyword"},
      "created_at":  {"type": "date"},
      "updated_at":  {"type": "date"}
    }
  }
}`

type TaskIndexer struct {
	es     *elasticsearch.Client
	index  string
	logger logrus.FieldLogger
}

func NewTaskIndexer(es *elasticsearch.Client, index string, logger logrus.FieldLogger) *TaskIndexer {
	return &TaskIndexer{es: es, index: index, logger: logger}
}

// EnsureIndex creates the index with the task mapping when it does not exist.
func (i *TaskIndexer) EnsureIndex(ctx context.Context) error {
	if i == nil || i.es == nil {
		return nil
	}
	c, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	res, err := esapi.IndicesExistsRequest{Index: []string{i.index}}.Do(c, i.es)
	if err != nil {
		return fmt.Errorf("check index %q: %w", i.index, err)
	}
	_ = res.Body.Close()
	switch res.StatusCode {
	case http.StatusOK:
		return nil
	case http.StatusNotFound:
	default:
		return fmt.Errorf("check index %q: %s", i.index, res.Status())
	}

	res, err = esapi.IndicesCreateRequest{Index: i.index, Body: strings.NewReader(taskMapping)}.Do(c, i.es)
	if err != nil {
		return fmt.Errorf("create index %q: %w", i.index, err)
	}
	defer func() { _ = res.Body.Close() }()
	if res.IsError() {
		return fmt.Errorf("create index %q: %s", i.index, res.Status())
	}
	i.logger.WithField("index", i.index).Info("search index created")
	return nil
}

type taskDocument struct {
	ID          string `json:"id"`
	UserID      string `json:"user_id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	DueDate     string `json:"due_date,omitempty"`
	Priority    string `json:"priority"`
	Status      string `json:"status"`
	CreatedAt   string `json:"created_at"`
	UpdatedAt   string `json:"updated_at"`
}

// Index upserts t. Failures are logged and otherwise ignored.
func (i *TaskIndexer) Index(ctx context.Context, t *entity.Task) {
	if i == nil || i.es == nil {
		return
	}
	doc := taskDocument{
		ID:          t.ID,
		UserID:      t.UserID,
		Title:       t.Title,
		Description: t.Description,
		DueDate:     entity.FormatDueDate(t.DueDate),
		Priority:    string(t.Priority),
		Status:      string(t.Status),
		CreatedAt:   t.CreatedAt.UTC().Format(time.RFC3339Nano),
		UpdatedAt:   t.UpdatedAt.UTC().Format(time.RFC3339Nano),
	}
	b, err := json.Marshal(doc)
	if err != nil {
		i.logger.WithError(err).WithField("task_id", t.ID).Warn("es encode task failed")
		return
	}
	req := esapi.IndexRequest{Index: i.index, DocumentID: t.ID, Body: bytes.NewReader(b), Refresh: "false"}
	i.do(ctx, req, t.ID, "es index task")
}

// Remove deletes the task document; a missing document is not reported.
func (i *TaskIndexer) Remove(ctx context.Context, taskID string) {
	if i == nil || i.es == nil {
		return
	}
	req := esapi.DeleteRequest{Index: i.index, DocumentID: taskID}
	i.do(ctx, req, taskID, "es delete task")
}

func (i *TaskIndexer) do(ctx context.Context, req esapi.Request, taskID, op string) {
	c, cancel := context.WithTimeout(context.WithoutCancel(ctx), requestTimeout)
	defer cancel()

	res, err := req.Do(c, i.es)
	if err != nil {
		i.logger.WithError(err).WithField("task_id", taskID).Warn(op + " failed")
		return
	}
	defer func() { _ = res.Body.Close() }()
	if res.IsError() && res.StatusCode != http.StatusNotFound {
		i.logger.WithField("status", res.Status()).WithField("task_id", taskID).Warn(op + " response error")
	}
}
