// Package attachment validates uploaded images and persists them under
// generated names in a small set of buckets.
package attachment

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"

	"github.com/oksasatya/go-task-tracker/internal/domain/apperror"
)

// MaxSize is the largest accepted attachment (5 MiB).
const MaxSize int64 = 5 << 20

const (
	BucketAvatar  = "avatar"
	BucketUploads = "uploads"
)

// Buckets lists every bucket a reference may point into.
var Buckets = []string{BucketAvatar, BucketUploads}

var allowedTypes = map[string]struct{}{
	"image/jpeg": {},
	"image/png":  {},
	"image/gif":  {},
}

var errUnknownBucket = errors.New("unknown attachment bucket")

// Upload is an incoming file. Size is the declared length, or 0 when unknown.
type Upload struct {
	Reader      io.Reader
	ContentType string
	Size        int64
}

// Backend stores validated bytes. Implementations must leave no partial
// object behind when Put fails.
type Backend interface {
	Put(ctx context.Context, bucket, name, contentType string, data []byte) error
	Delete(ctx context.Context, bucket, name string) error
	Handler(bucket string) http.Handler
}

type Store struct {
	backend Backend
	now     func() time.Time
}

func NewStore(backend Backend) *Store {
	return &Store{backend: backend, now: time.Now}
}

// Save validates up and stores it in bucket, returning the reference path
// ("/<bucket>/<name>"). The declared type is checked before the size so an
// oversized file of the wrong type reports UnsupportedMediaType.
func (s *Store) Save(ctx context.Context, bucket string, up Upload) (string, error) {
	if !knownBucket(bucket) {
		return "", fmt.Errorf("%w: %q", errUnknownBucket, bucket)
	}
	if !allowed(up.ContentType) {
		return "", apperror.ErrUnsupportedMediaType
	}
	if up.Size > MaxSize {
		return "", apperror.ErrPayloadTooLarge
	}

	data, err := io.ReadAll(io.LimitReader(up.Reader, MaxSize+1))
	if err != nil {
		var mbe *http.MaxBytesError
		if errors.As(err, &mbe) {
			return "", apperror.ErrPayloadTooLarge
		}
		return "", fmt.Errorf("read upload: %w", err)
	}
	if int64(len(data)) > MaxSize {
		return "", apperror.ErrPayloadTooLarge
	}

	detected := mimetype.Detect(data)
	if !allowed(detected.String()) {
		return "", apperror.ErrUnsupportedMediaType
	}

	name := s.filename(detected.Extension())
	if err := s.backend.Put(ctx, bucket, name, detected.String(), data); err != nil {
		return "", apperror.Unavailable("store attachment", err)
	}
	return "/" + bucket + "/" + name, nil
}

// Remove deletes the attachment behind ref. External URLs, empty references
// and paths outside the known buckets are ignored.
func (s *Store) Remove(ctx context.Context, ref string) error {
	bucket, name, ok := ParseRef(ref)
	if !ok {
		return nil
	}
	return s.backend.Delete(ctx, bucket, name)
}

// Handler serves stored attachments under /<bucket>/<name> for every bucket.
func (s *Store) Handler() http.Handler {
	mux := http.NewServeMux()
	for _, b := range Buckets {
		prefix := "/" + b + "/"
		mux.Handle(prefix, http.StripPrefix(prefix, s.backend.Handler(b)))
	}
	return mux
}

// ParseRef splits a stored reference into bucket and object name.
func ParseRef(ref string) (bucket, name string, ok bool) {
	if !strings.HasPrefix(ref, "/") {
		return "", "", false
	}
	parts := strings.SplitN(strings.TrimPrefix(ref, "/"), "/", 2)
	if len(parts) != 2 || !knownBucket(parts[0]) || !validName(parts[1]) {
		return "", "", false
	}
	return parts[0], parts[1], true
}

func (s *Store) filename(ext string) string {
	u := uuid.New()
	return fmt.Sprintf("%d-%s%s", s.now().UnixMilli(), hex.EncodeToString(u[:8]), ext)
}

func allowed(contentType string) bool {
	mt, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}
	_, ok := allowedTypes[strings.ToLower(mt)]
	return ok
}

func knownBucket(b string) bool {
	for _, k := range Buckets {
		if k == b {
			return true
		}
	}
	return false
}

func validName(name string) bool {
	return name != "" && name != "." && name != ".." && path.Base(name) == name && !strings.HasPrefix(name, ".")
}
