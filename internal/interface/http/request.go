package handlers

import (
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-task-tracker/internal/domain/apperror"
	"github.com/oksasatya/go-task-tracker/pkg/attachment"
	"github.com/oksasatya/go-task-tracker/pkg/response"
	"github.com/oksasatya/go-task-tracker/pkg/validation"
)

// maxBodySize is well above attachment.MaxSize so an oversized file still
// reaches the attachment store, which rejects a wrong declared type (415)
// before its size (413). Parts beyond the engine's multipart memory spill to
// temporary files.
const maxBodySize = 4*attachment.MaxSize + 1<<20

// limitBody caps the request body before anything reads it.
func limitBody(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBodySize)
}

func isMultipart(c *gin.Context) bool {
	return strings.HasPrefix(c.ContentType(), "multipart/form-data")
}

// bindBody fills dst from a JSON or multipart body. An empty JSON body
// leaves dst untouched.
func bindBody(c *gin.Context, dst any) error {
	limitBody(c)
	err := c.ShouldBind(dst)
	switch {
	case err == nil, errors.Is(err, io.EOF):
		return nil
	case isTooLarge(err):
		return apperror.ErrPayloadTooLarge
	default:
		return apperror.NewValidation(validation.ToDetails(err))
	}
}

// formFile opens the optional upload in field. The returned closer is never nil.
func formFile(c *gin.Context, field string) (*attachment.Upload, func(), error) {
	noop := func() {}
	if !isMultipart(c) {
		return nil, noop, nil
	}
	fh, err := c.FormFile(field)
	if errors.Is(err, http.ErrMissingFile) {
		return nil, noop, nil
	}
	if err != nil {
		if isTooLarge(err) {
			return nil, noop, apperror.ErrPayloadTooLarge
		}
		return nil, noop, apperror.Field(field, "could not read upload")
	}
	f, err := fh.Open()
	if err != nil {
		return nil, noop, err
	}
	return uploadFrom(fh, f), func() { _ = f.Close() }, nil
}

func uploadFrom(fh *multipart.FileHeader, f multipart.File) *attachment.Upload {
	return &attachment.Upload{Reader: f, ContentType: fh.Header.Get("Content-Type"), Size: fh.Size}
}

func isTooLarge(err error) bool {
	var mbe *http.MaxBytesError
	return errors.As(err, &mbe) || strings.Contains(err.Error(), "request body too large")
}

// respondError maps err onto its status and the error envelope. Server-side
// failures are logged with the request id.
func respondError(c *gin.Context, logger logrus.FieldLogger, err error) {
	status := apperror.HTTPStatus(err)
	var details any
	var ve *apperror.ValidationError
	if errors.As(err, &ve) {
		details = ve.Fields
	}
	if status >= http.StatusInternalServerError {
		logger.WithError(err).WithFields(logrus.Fields{
			"request_id": c.GetString("request_id"),
			"path":       c.FullPath(),
		}).Error("request failed")
	}
	response.Error(c, status, apperror.PublicMessage(err), details)
}
