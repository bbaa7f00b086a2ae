// Package response writes HTTP bodies. Successful resources go out as bare
// JSON; failures use ErrorBody.
package response

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

type ErrorBody struct {
	Status    int       `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	RequestID string    `json:"request_id"`
	Success   bool      `json:"success"`
	Message   string    `json:"message"`
	Error     any       `json:"error,omitempty"`
}

func JSON(ctx *gin.Context, status int, data any) {
	if status == 0 {
		status = http.StatusOK
	}
	ctx.JSON(status, data)
}

// Message writes {message} for operations without a resource to return.
func Message(ctx *gin.Context, status int, message string) {
	JSON(ctx, status, gin.H{"message": message})
}

// Error aborts the chain with an ErrorBody. A zero status means 400.
func Error(ctx *gin.Context, status int, message string, detail any) {
	if status == 0 {
		status = http.StatusBadRequest
	}
	ctx.AbortWithStatusJSON(status, ErrorBody{
		Status:    status,
		Timestamp: time.Now().UTC(),
		RequestID: ctx.GetString("request_id"),
		Message:   message,
		Error:     detail,
	})
}
