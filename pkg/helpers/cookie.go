package helpers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// AccessTokenCookie is read by the auth middleware when no bearer header is sent.
const AccessTokenCookie = "access_token"

// Manager writes the HttpOnly session cookie for browser clients.
type Manager struct {
	Domain string
	Secure bool
}

func NewCookie(domain string, secure bool) *Manager {
	return &Manager{Domain: domain, Secure: secure}
}

// SetAccess stores token until exp, matching the token's own expiry.
func (m *Manager) SetAccess(c *gin.Context, token string, exp time.Time) {
	http.SetCookie(c.Writer, m.cookie(token, exp, maxAgeFrom(exp)))
}

func (m *Manager) Clear(c *gin.Context) {
	http.SetCookie(c.Writer, m.cookie("", time.Unix(0, 0), -1))
}

func (m *Manager) cookie(value string, exp time.Time, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     AccessTokenCookie,
		Value:    value,
		Path:     "/",
		Domain:   m.Domain,
		Expires:  exp.UTC(),
		MaxAge:   maxAge,
		Secure:   m.Secure,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}
}

func maxAgeFrom(exp time.Time) int {
	sec := int(time.Until(exp).Seconds())
	if sec <= 0 {
		return -1
	}
	return sec
}
