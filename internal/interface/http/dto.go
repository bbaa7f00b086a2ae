package handlers

import (
	"time"

	"github.com/oksasatya/go-task-tracker/internal/domain/entity"
)

type userResponse struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	Avatar    *string   `json:"avatar"`
	GoogleID  *string   `json:"googleId"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type sessionResponse struct {
	Token string       `json:"token"`
	User  userResponse `json:"user"`
}

type taskResponse struct {
	ID          string    `json:"id"`
	UserID      string    `json:"userId"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	DueDate     *string   `json:"dueDate"`
	Priority    string    `json:"priority"`
	Status      string    `json:"status"`
	Image       *string   `json:"image"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// taskPayload binds create and update bodies from JSON or multipart forms.
// Absent fields stay nil.
type taskPayload struct {
	Title       *string `json:"title" form:"title"`
	Description *string `json:"description" form:"description"`
	DueDate     *string `json:"dueDate" form:"dueDate"`
	Priority    *string `json:"priority" form:"priority"`
	Status      *string `json:"status" form:"status"`
}

type registerPayload struct {
	Email    string `json:"email" form:"email"`
	Password string `json:"password" form:"password"`
	Name     string `json:"name" form:"name"`
}

type loginPayload struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type googlePayload struct {
	Token             string `json:"token"`
	IdentityAssertion string `json:"identityAssertion"`
}

type profilePayload struct {
	Name *string `json:"name" form:"name"`
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func toUserResponse(u *entity.User) userResponse {
	return userResponse{
		ID:        u.ID,
		Email:     u.Email,
		Name:      u.Name,
		Avatar:    optional(u.AvatarURL),
		GoogleID:  optional(u.GoogleID),
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
}

func toTaskResponse(t *entity.Task) taskResponse {
	return taskResponse{
		ID:          t.ID,
		UserID:      t.UserID,
		Title:       t.Title,
		Description: t.Description,
		DueDate:     optional(entity.FormatDueDate(t.DueDate)),
		Priority:    string(t.Priority),
		Status:      string(t.Status),
		Image:       optional(t.Image),
		CreatedAt:   t.CreatedAt,
		UpdatedAt:   t.UpdatedAt,
	}
}

func toTaskResponses(tasks []*entity.Task) []taskResponse {
	out := make([]taskResponse, 0, len(tasks))
	for _, t := range tasks {
		out = append(out, toTaskResponse(t))
	}
	return out
}
