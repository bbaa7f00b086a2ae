package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-task-tracker/internal/application"
	"github.com/oksasatya/go-task-tracker/internal/interface/middleware"
	"github.com/oksasatya/go-task-tracker/pkg/response"
)

type TaskHandler struct {
	Svc    *application.TaskService
	Logger logrus.FieldLogger
}

func NewTaskHandler(svc *application.TaskService, logger logrus.FieldLogger) *TaskHandler {
	return &TaskHandler{Svc: svc, Logger: logger}
}

// List GET /tasks?status=&priority=&sortBy=&q=
func (h *TaskHandler) List(c *gin.Context) {
	tasks, err := h.Svc.List(c.Request.Context(), middleware.UserID(c), application.TaskQuery{
		Status:   c.Query("status"),
		Priority: c.Query("priority"),
		SortBy:   c.Query("sortBy"),
		Search:   c.Query("q"),
	})
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	response.JSON(c, http.StatusOK, toTaskResponses(tasks))
}

// Create POST /tasks (JSON or multipart with optional "image")
func (h *TaskHandler) Create(c *gin.Context) {
	var req taskPayload
	if err := bindBody(c, &req); err != nil {
		respondError(c, h.Logger, err)
		return
	}
	image, closeImage, err := formFile(c, "image")
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	defer closeImage()

	t, err := h.Svc.Create(c.Request.Context(), middleware.UserID(c), application.TaskInput{
		Title:       deref(req.Title),
		Description: deref(req.Description),
		DueDate:     deref(req.DueDate),
		Priority:    deref(req.Priority),
		Status:      deref(req.Status),
		Image:       image,
	})
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	response.JSON(c, http.StatusCreated, toTaskResponse(t))
}

// Get GET /tasks/:id
func (h *TaskHandler) Get(c *gin.Context) {
	t, err := h.Svc.Get(c.Request.Context(), middleware.UserID(c), c.Param("id"))
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	response.JSON(c, http.StatusOK, toTaskResponse(t))
}

// Update PUT /tasks/:id with any subset of fields
func (h *TaskHandler) Update(c *gin.Context) {
	var req taskPayload
	if err := bindBody(c, &req); err != nil {
		respondError(c, h.Logger, err)
		return
	}
	image, closeImage, err := formFile(c, "image")
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	defer closeImage()

	t, err := h.Svc.Update(c.Request.Context(), middleware.UserID(c), c.Param("id"), application.TaskPatch{
		Title:       req.Title,
		Description: req.Description,
		DueDate:     req.DueDate,
		Priority:    req.Priority,
		Status:      req.Status,
		Image:       image,
	})
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	response.JSON(c, http.StatusOK, toTaskResponse(t))
}

// Delete DELETE /tasks/:id
func (h *TaskHandler) Delete(c *gin.Context) {
	if err := h.Svc.Delete(c.Request.Context(), middleware.UserID(c), c.Param("id")); err != nil {
		respondError(c, h.Logger, err)
		return
	}
	response.Message(c, http.StatusOK, "task deleted")
}
