package router

import (
	"net/http"
	"path"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/oksasatya/go-task-tracker/internal/container"
	"github.com/oksasatya/go-task-tracker/internal/interface/middleware"
	"github.com/oksasatya/go-task-tracker/internal/metrics"
	"github.com/oksasatya/go-task-tracker/internal/router/modules"
	"github.com/oksasatya/go-task-tracker/pkg/attachment"
	"github.com/oksasatya/go-task-tracker/pkg/response"
)

// InitModules registers every feature module with the registry.
func InitModules(r *Registry, c *container.Container) {
	r.AddRoot(attachmentRoutes(c.Attachments))
	if c.Registry != nil {
		r.AddRoot(ModuleFunc(func(rg *gin.RouterGroup) {
			rg.GET("/metrics", gin.WrapH(metrics.Handler(c.Registry)))
		}))
	}

	r.Add(ModuleFunc(func(rg *gin.RouterGroup) {
		rg.GET("/health", c.HealthHandler.Health)
		rg.GET("/ready", c.HealthHandler.Ready)
	}))
	r.Add(modules.NewAuthModule(c.AuthHandler, c.AuthService, c.Redis))
	r.Add(modules.NewTaskModule(c.TaskHandler, c.AuthService))
}

// attachmentRoutes serves stored files at /<bucket>/<name>.
func attachmentRoutes(store *attachment.Store) Module {
	files := gin.WrapH(store.Handler())
	return ModuleFunc(func(rg *gin.RouterGroup) {
		for _, b := range attachment.Buckets {
			rg.GET("/"+b+"/*filepath", files)
			rg.HEAD("/"+b+"/*filepath", files)
		}
	})
}

// NewEngine builds the gin engine with global middleware and every module.
func NewEngine(c *container.Container) *gin.Engine {
	cfg := c.Config

	r := gin.New()
	if !cfg.TrustProxyHeaders {
		_ = r.SetTrustedProxies(nil)
	}
	r.MaxMultipartMemory = attachment.MaxSize

	r.Use(gin.Recovery())
	r.Use(middleware.RequestIDMiddleware())
	r.Use(middleware.RealIP(cfg.TrustProxyHeaders))
	r.Use(middleware.SecureHeaders(cfg.IsProduction()))
	r.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.CORSOrigins(),
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", middleware.RequestIDHeader},
		ExposeHeaders:    []string{"Content-Length", middleware.RequestIDHeader},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))
	if c.Metrics != nil {
		r.Use(c.Metrics.Middleware())
	}
	if cfg.HTTPLogEnabled {
		r.Use(middleware.AccessLog(c.Logger.WithField("component", "http")))
	}

	reg := NewRegistry(r, cfg.APIBasePath)
	// Global limiter (per IP), health checks excluded
	base := reg.API.BasePath()
	reg.Use(middleware.RateLimit(c.Redis, cfg.RateLimitMax, cfg.RateLimitWindow, middleware.KeyByIP(),
		middleware.AllowPaths(path.Join(base, "health"), path.Join(base, "ready"))))
	InitModules(reg, c)
	reg.RegisterAll()

	r.NoRoute(func(ctx *gin.Context) {
		response.Error(ctx, http.StatusNotFound, "route not found", nil)
	})
	return r
}
