package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/oksasatya/go-task-tracker/internal/domain/apperror"
	"github.com/oksasatya/go-task-tracker/pkg/helpers"
	"github.com/oksasatya/go-task-tracker/pkg/response"
)

const CtxUserIDKey = "userID"

// Authenticator resolves an access token to a user id.
type Authenticator interface {
	Authenticate(token string) (string, error)
}

// Auth requires a valid access token, taken from the Authorization bearer
// header or, failing that, the access_token cookie. The user id is stored
// under CtxUserIDKey.
func Auth(authn Authenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c)
		if token == "" {
			response.Error(c, http.StatusUnauthorized, "missing access token", nil)
			return
		}
		uid, err := authn.Authenticate(token)
		if err != nil {
			response.Error(c, apperror.HTTPStatus(err), apperror.PublicMessage(err), nil)
			return
		}
		c.Set(CtxUserIDKey, uid)
		c.Next()
	}
}

// UserID returns the authenticated user id set by Auth.
func UserID(c *gin.Context) string {
	return c.GetString(CtxUserIDKey)
}

func bearerToken(c *gin.Context) string {
	if h := c.GetHeader("Authorization"); h != "" {
		scheme, token, ok := strings.Cut(h, " ")
		if ok && strings.EqualFold(scheme, "Bearer") {
			return strings.TrimSpace(token)
		}
		return ""
	}
	if token, err := c.Cookie(helpers.AccessTokenCookie); err == nil {
		return token
	}
	return ""
}
