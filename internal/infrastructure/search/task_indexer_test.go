package search

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oksasatya/go-task-tracker/internal/domain/entity"
)

type recorded struct {
	method string
	path   string
	body   []byte
}

func newFakeES(t *testing.T, status int) (*elasticsearch.Client, func() []recorded) {
	t.Helper()
	var (
		mu   sync.Mutex
		seen []recorded
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		mu.Lock()
		seen = append(seen, recorded{method: r.Method, path: r.URL.Path, body: b})
		mu.Unlock()
		w.Header().Set("X-Elastic-Product", "Elasticsearch")
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(`{"result":"ok"}`))
	}))
	t.Cleanup(srv.Close)

	es, err := elasticsearch.NewClient(elasticsearch.Config{Addresses: []string{srv.URL}})
	require.NoError(t, err)
	return es, func() []recorded {
		mu.Lock()
		defer mu.Unlock()
		return append([]recorded(nil), seen...)
	}
}

func TestIndexPutsTaskDocument(t *testing.T) {
	es, seen := newFakeES(t, http.StatusCreated)
	logger, hook := test.NewNullLogger()
	idx := NewTaskIndexer(es, "tasks", logger)

	due := time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC)
	idx.Index(context.Background(), &entity.Task{
		ID: "t1", UserID: "u1", Title: "Write report", DueDate: &due,
		Priority: entity.PriorityHigh, Status: entity.StatusInProgress,
	})

	reqs := seen()
	require.Len(t, reqs, 1)
	assert.Equal(t, http.MethodPut, reqs[0].method)
	assert.Equal(t, "/tasks/_doc/t1", reqs[0].path)

	var doc map[string]any
	require.NoError(t, json.Unmarshal(reqs[0].body, &doc))
	assert.Equal(t, "Write report", doc["title"])
	assert.Equal(t, "2025-04-01", doc["due_date"])
	assert.Equal(t, "In Progress", doc["status"])
	assert.Empty(t, hook.AllEntries())
}

func TestRemoveDeletesDocumentAndIgnoresMissing(t *testing.T) {
	es, seen := newFakeES(t, http.StatusNotFound)
	logger, hook := test.NewNullLogger()
	idx := NewTaskIndexer(es, "tasks", logger)

	idx.Remove(context.Background(), "t1")

	reqs := seen()
	require.Len(t, reqs, 1)
	assert.Equal(t, http.MethodDelete, reqs[0].method)
	assert.Equal(t, "/tasks/_doc/t1", reqs[0].path)
	assert.Empty(t, hook.AllEntries())
}

func TestIndexLogsServerErrors(t *testing.T) {
	es, _ := newFakeES(t, http.StatusBadRequest)
	logger, hook := test.NewNullLogger()
	idx := NewTaskIndexer(es, "tasks", logger)

	idx.Index(context.Background(), &entity.Task{ID: "t1"})

	require.Len(t, hook.AllEntries(), 1)
	assert.Equal(t, logrus.WarnLevel, hook.LastEntry().Level)
}

func TestNilIndexerIsNoop(t *testing.T) {
	var idx *TaskIndexer
	idx.Index(context.Background(), &entity.Task{ID: "t1"})
	idx.Remove(context.Background(), "t1")

	NewTaskIndexer(nil, "tasks", logrus.New()).Remove(context.Background(), "t1")
}

func TestEnsureIndexCreatesMissingIndex(t *testing.T) {
	var created []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Elastic-Product", "Elasticsearch")
		w.Header().Set("Content-Type", "application/json")
		switch r.Method {
		case http.MethodHead:
			w.WriteHeader(http.StatusNotFound)
		case http.MethodPut:
			created, _ = io.ReadAll(r.Body)
			_, _ = w.Write([]byte(`{"acknowledged":true}`))
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
	}))
	t.Cleanup(srv.Close)
	es, err := elasticsearch.NewClient(elasticsearch.Config{Addresses: []string{srv.URL}})
	require.NoError(t, err)

	logger, _ := test.NewNullLogger()
	require.NoError(t, NewTaskIndexer(es, "tasks", logger).EnsureIndex(context.Background()))

	var body map[string]any
	require.NoError(t, json.Unmarshal(created, &body))
	assert.Contains(t, body, "mappings")
}

func TestEnsureIndexKeepsExistingIndex(t *testing.T) {
	es, seen := newFakeES(t, http.StatusOK)
	logger, _ := test.NewNullLogger()

	require.NoError(t, NewTaskIndexer(es, "tasks", logger).EnsureIndex(context.Background()))
	reqs := seen()
	require.Len(t, reqs, 1)
	assert.Equal(t, http.MethodHead, reqs[0].method)
	assert.Equal(t, "/tasks", reqs[0].path)
}
