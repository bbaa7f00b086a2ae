package attachment

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"path/filepath"
	"strings"
)

// LocalBackend keeps attachments on disk under Root/<bucket>.
type LocalBackend struct {
	Root string
}

// NewLocalBackend creates the bucket directories under root.
func NewLocalBackend(root string) (*LocalBackend, error) {
	for _, b := range Buckets {
		if err := os.MkdirAll(filepath.Join(root, b), 0o755); err != nil {
			return nil, fmt.Errorf("create upload dir %q: %w", b, err)
		}
	}
	return &LocalBackend{Root: root}, nil
}

// Put writes data to a temp file in the bucket directory and renames it into
// place, so readers never observe a partial file.
func (l *LocalBackend) Put(_ context.Context, bucket, name, _ string, data []byte) (err error) {
	dir := filepath.Join(l.Root, bucket)
	tmp, err := os.CreateTemp(dir, ".upload-*")
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tmp.Close()
			_ = os.Remove(tmp.Name())
		}
	}()

	if _, err = tmp.Write(data); err != nil {
		return err
	}
	if err = tmp.Close(); err != nil {
		return err
	}
	if err = os.Chmod(tmp.Name(), 0o644); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), filepath.Join(dir, name))
}

func (l *LocalBackend) Delete(_ context.Context, bucket, name string) error {
	err := os.Remove(filepath.Join(l.Root, bucket, name))
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}

// Handler serves files from the bucket directory without directory listings.
func (l *LocalBackend) Handler(bucket string) http.Handler {
	files := http.FileServer(http.Dir(filepath.Join(l.Root, bucket)))
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		name := strings.TrimPrefix(r.URL.Path, "/")
		if !validName(name) {
			http.NotFound(w, r)
			return
		}
		files.ServeHTTP(w, r)
	})
}

var _ Backend = (*LocalBackend)(nil)
