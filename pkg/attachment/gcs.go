package attachment

import (
	"bytes"
	"context"
	"net/http"
	"strings"

	"cloud.google.com/go/storage"

	"github.com/oksasatya/go-task-tracker/pkg/helpers"
)

// GCSBackend stores attachments as <bucket>/<name> objects in a single
// Cloud Storage bucket and redirects reads to the public object URL.
type GCSBackend struct {
	client *storage.Client
	bucket string
}

func NewGCSBackend(client *storage.Client, bucket string) *GCSBackend {
	return &GCSBackend{client: client, bucket: bucket}
}

func (g *GCSBackend) Put(ctx context.Context, bucket, name, contentType string, data []byte) error {
	return helpers.UploadObject(ctx, g.client, g.bucket, bucket+"/"+name, contentType, bytes.NewReader(data))
}

func (g *GCSBackend) Delete(ctx context.Context, bucket, name string) error {
	return helpers.DeleteObject(ctx, g.client, g.bucket, bucket+"/"+name)
}

func (g *GCSBackend) Handler(bucket string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		name := strings.TrimPrefix(r.URL.Path, "/")
		if !validName(name) {
			http.NotFound(w, r)
			return
		}
		http.Redirect(w, r, helpers.PublicURL(g.bucket, bucket+"/"+name), http.StatusFound)
	})
}

var _ Backend = (*GCSBackend)(nil)
