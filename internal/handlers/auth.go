package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"whatsapp-lite/internal/auth"
	"whatsapp-lite/internal/middleware"
)

type AuthHandler struct {
	auth   *auth.Service
	logger *zap.Logger
}

func NewAuthHandler(svc *auth.Service, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{auth: svc, logger: logger}
}

type registerRequest struct {
	Username string `json:"username" validate:"required,alphanum,min=3,max=50"`
	Email    string `json:"email" validate:"required,email"`
	Phone    string `json:"phone" validate:"required,phone"`
	Password string `json:"password" validate:"required,min=6,max=128"`
}

type loginRequest struct {
	EmailOrUsername string `json:"emailOrUsername" validate:"required"`
	Password        string `json:"password" validate:"required"`
}

func (h *AuthHandler) Register(c *gin.Context) {
	var req registerRequest
	if err := bind(c, &req); err != nil {
		fail(c, h.logger, err, "Registration failed")
		return
	}
	session, err := h.auth.Register(c.Request.Context(), auth.RegisterInput{
		Username: req.Username,
		Email:    req.Email,
		Phone:    req.Phone,
		Password: req.Password,
	})
	if err != nil {
		fail(c, h.logger, err, "Registration failed")
		return
	}
	ok(c, http.StatusCreated, "User registered successfully", session)
}

func (h *AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if err := bind(c, &req); err != nil {
		fail(c, h.logger, err, "Login failed")
		return
	}
	session, err := h.auth.Login(c.Request.Context(), req.EmailOrUsername, req.Password)
	if err != nil {
		fail(c, h.logger, err, "Login failed")
		return
	}
	ok(c, http.StatusOK, "Login successful", session)
}

// Logout clears the stored online flag. Tokens stay valid until they expire.
func (h *AuthHandler) Logout(c *gin.Context) {
	if err := h.auth.Logout(c.Request.Context(), middleware.UserID(c)); err != nil {
		fail(c, h.logger, err, "Logout failed")
		return
	}
	ok(c, http.StatusOK, "Logged out successfully", nil)
}
