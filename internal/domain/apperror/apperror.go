package apperror

import (
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
)

// Error kinds shared by every layer. Match them with errors.Is.
var (
	ErrValidation            = errors.New("validation failed")
	ErrInvalidCredentials    = errors.New("invalid credentials")
	ErrInvalidToken          = errors.New("invalid token")
	ErrInvalidAssertion      = errors.New("invalid identity assertion")
	ErrNotFound              = errors.New("not found")
	ErrDuplicateIdentity     = errors.New("email already registered")
	ErrUnsupportedMediaType  = errors.New("unsupported media type")
	ErrPayloadTooLarge       = errors.New("payload too large")
	ErrDependencyUnavailable = errors.New("dependency unavailable")
)

// ValidationError lists every violated field, not just the first one.
type ValidationError struct {
	Fields map[string]string
}

func NewValidation(fields map[string]string) *ValidationError {
	return &ValidationError{Fields: fields}
}

// Field builds a ValidationError for a single field.
func Field(name, msg string) *ValidationError {
	return &ValidationError{Fields: map[string]string{name: msg}}
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return ErrValidation.Error()
	}
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+" "+e.Fields[k])
	}
	return ErrValidation.Error() + ": " + strings.Join(parts, "; ")
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// Unavailable marks err as a failure of an external dependency (database, mail transport).
func Unavailable(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrDependencyUnavailable, err)
}

// HTTPStatus maps an error onto its response status.
func HTTPStatus(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, ErrInvalidCredentials),
		errors.Is(err, ErrInvalidToken),
		errors.Is(err, ErrInvalidAssertion):
		return http.StatusUnauthorized
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrDuplicateIdentity):
		return http.StatusConflict
	case errors.Is(err, ErrPayloadTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, ErrUnsupportedMediaType):
		return http.StatusUnsupportedMediaType
	case errors.Is(err, ErrDependencyUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// PublicMessage returns the client-facing message for err. Authentication
// failures share wording so callers cannot tell which part failed.
func PublicMessage(err error) string {
	switch {
	case errors.Is(err, ErrValidation):
		return "invalid payload"
	case errors.Is(err, ErrInvalidCredentials):
		return "invalid credentials"
	case errors.Is(err, ErrInvalidToken):
		return "invalid or expired token"
	case errors.Is(err, ErrInvalidAssertion):
		return "external authentication failed"
	case errors.Is(err, ErrNotFound):
		return "not found"
	case errors.Is(err, ErrDuplicateIdentity):
		return "email already registered"
	case errors.Is(err, ErrPayloadTooLarge):
		return "file too large, max size is 5MB"
	case errors.Is(err, ErrUnsupportedMediaType):
		return "invalid file type, only JPEG, PNG and GIF are allowed"
	case errors.Is(err, ErrDependencyUnavailable):
		return "service temporarily unavailable"
	default:
		return "internal server error"
	}
}
