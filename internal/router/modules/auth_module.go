package modules

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	handlers "github.com/oksasatya/go-task-tracker/internal/interface/http"
	"github.com/oksasatya/go-task-tracker/internal/interface/middleware"
)

// AuthModule wires account routes.
// Public: POST /auth/register, POST /auth/login, POST /auth/google
// Protected: POST /auth/logout, GET /auth/profile, PUT /auth/profile
type AuthModule struct {
	Handler *handlers.AuthHandler
	Authn   middleware.Authenticator
	Redis   *redis.Client
}

func NewAuthModule(h *handlers.AuthHandler, authn middleware.Authenticator, rdb *redis.Client) *AuthModule {
	return &AuthModule{Handler: h, Authn: authn, Redis: rdb}
}

func (m *AuthModule) Register(rg *gin.RouterGroup) {
	// Credential endpoints: 10 req/min per IP and route
	credLimiter := middleware.RateLimit(m.Redis, 10, time.Minute, middleware.KeyByIPAndPath(), nil)

	rg.POST("/auth/register", credLimiter, m.Handler.Register)
	rg.POST("/auth/login", credLimiter, m.Handler.Login)
	rg.POST("/auth/google", credLimiter, m.Handler.Google)

	auth := rg.Group("/auth")
	auth.Use(middleware.Auth(m.Authn))
	{
		auth.POST("/logout", m.Handler.Logout)
		auth.GET("/profile", m.Handler.Profile)
		auth.PUT("/profile", m.Handler.UpdateProfile)
	}
}
