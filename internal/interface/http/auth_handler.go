package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-task-tracker/internal/application"
	"github.com/oksasatya/go-task-tracker/internal/domain/apperror"
	"github.com/oksasatya/go-task-tracker/internal/interface/middleware"
	"github.com/oksasatya/go-task-tracker/pkg/helpers"
	"github.com/oksasatya/go-task-tracker/pkg/response"
)

type AuthHandler struct {
	Svc     *application.AuthService
	Logger  logrus.FieldLogger
	Cookies *helpers.Manager
}

func NewAuthHandler(svc *application.AuthService, logger logrus.FieldLogger, cookieDomain string, cookieSecure bool) *AuthHandler {
	return &AuthHandler{Svc: svc, Logger: logger, Cookies: helpers.NewCookie(cookieDomain, cookieSecure)}
}

// Register POST /auth/register (JSON or multipart with optional "photo")
func (h *AuthHandler) Register(c *gin.Context) {
	var req registerPayload
	if err := bindBody(c, &req); err != nil {
		respondError(c, h.Logger, err)
		return
	}
	photo, closePhoto, err := formFile(c, "photo")
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	defer closePhoto()

	s, err := h.Svc.Register(c.Request.Context(), application.RegisterInput{
		Email:    req.Email,
		Password: req.Password,
		Name:     req.Name,
		Avatar:   photo,
	})
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	h.startSession(c, http.StatusCreated, s)
}

// Login POST /auth/login
func (h *AuthHandler) Login(c *gin.Context) {
	var req loginPayload
	if err := bindBody(c, &req); err != nil {
		respondError(c, h.Logger, err)
		return
	}
	s, err := h.Svc.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	h.startSession(c, http.StatusOK, s)
}

// Google POST /auth/google {token}
func (h *AuthHandler) Google(c *gin.Context) {
	var req googlePayload
	if err := bindBody(c, &req); err != nil {
		respondError(c, h.Logger, err)
		return
	}
	assertion := strings.TrimSpace(req.Token)
	if assertion == "" {
		assertion = strings.TrimSpace(req.IdentityAssertion)
	}
	if assertion == "" {
		respondError(c, h.Logger, apperror.Field("token", "is required"))
		return
	}
	s, err := h.Svc.ExternalSignIn(c.Request.Context(), assertion)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	h.startSession(c, http.StatusOK, s)
}

// Logout POST /auth/logout. Tokens are stateless, so this only drops the cookie.
func (h *AuthHandler) Logout(c *gin.Context) {
	h.Cookies.Clear(c)
	response.Message(c, http.StatusOK, "logged out")
}

// Profile GET /auth/profile
func (h *AuthHandler) Profile(c *gin.Context) {
	u, err := h.Svc.Profile(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"user": toUserResponse(u)})
}

// UpdateProfile PUT /auth/profile (JSON or multipart with optional "photo")
func (h *AuthHandler) UpdateProfile(c *gin.Context) {
	var req profilePayload
	if err := bindBody(c, &req); err != nil {
		respondError(c, h.Logger, err)
		return
	}
	photo, closePhoto, err := formFile(c, "photo")
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	defer closePhoto()

	u, err := h.Svc.UpdateProfile(c.Request.Context(), middleware.UserID(c), application.ProfileInput{
		Name:   req.Name,
		Avatar: photo,
	})
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"user": toUserResponse(u)})
}

func (h *AuthHandler) startSession(c *gin.Context, status int, s *application.Session) {
	h.Cookies.SetAccess(c, s.Token, s.ExpiresAt)
	response.JSON(c, status, sessionResponse{Token: s.Token, User: toUserResponse(s.User)})
}
