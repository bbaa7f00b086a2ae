package application

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/require"

	"github.com/oksasatya/go-task-tracker/internal/infrastructure/memory"
	"github.com/oksasatya/go-task-tracker/pkg/attachment"
	"github.com/oksasatya/go-task-tracker/pkg/helpers"
)

var pngBytes = append([]byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR"), make([]byte, 32)...)

func pngUpload() *attachment.Upload {
	return &attachment.Upload{Reader: bytes.NewReader(pngBytes), ContentType: "image/png", Size: int64(len(pngBytes))}
}

func nullLogger() *logrus.Logger {
	l, _ := test.NewNullLogger()
	return l
}

type fixture struct {
	users *memory.UserRepository
	tasks *memory.TaskRepository
	files *attachment.Store
	root  string
	jwt   *helpers.JWTManager
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	root := t.TempDir()
	backend, err := attachment.NewLocalBackend(root)
	require.NoError(t, err)
	return &fixture{
		users: memory.NewUserRepository(),
		tasks: memory.NewTaskRepository(),
		files: attachment.NewStore(backend),
		root:  root,
		jwt:   helpers.NewJWTManager("test-secret", time.Hour, "task-tracker"),
	}
}

func (f *fixture) storedFiles(t *testing.T, bucket string) []string {
	t.Helper()
	entries, err := os.ReadDir(filepath.Join(f.root, bucket))
	require.NoError(t, err)
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, "/"+bucket+"/"+e.Name())
	}
	return names
}

func bytesReader(s string) *bytes.Reader { return bytes.NewReader([]byte(s)) }
