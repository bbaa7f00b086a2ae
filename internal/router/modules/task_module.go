package modules

import (
	"github.com/gin-gonic/gin"

	handlers "github.com/oksasatya/go-task-tracker/internal/interface/http"
	"github.com/oksasatya/go-task-tracker/internal/interface/middleware"
)

// TaskModule wires the owner-scoped task routes. Every route requires a token.
type TaskModule struct {
	Handler *handlers.TaskHandler
	Authn   middleware.Authenticator
}

func NewTaskModule(h *handlers.TaskHandler, authn middleware.Authenticator) *TaskModule {
	return &TaskModule{Handler: h, Authn: authn}
}

func (m *TaskModule) Register(rg *gin.RouterGroup) {
	tasks := rg.Group("/tasks")
	tasks.Use(middleware.Auth(m.Authn))
	{
		tasks.GET("", m.Handler.List)
		tasks.POST("", m.Handler.Create)
		tasks.GET("/:id", m.Handler.Get)
		tasks.PUT("/:id", m.Handler.Update)
		tasks.DELETE("/:id", m.Handler.Delete)
	}
}
