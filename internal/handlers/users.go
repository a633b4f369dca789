package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"whatsapp-lite/internal/middleware"
	"whatsapp-lite/internal/models"
	"whatsapp-lite/internal/users"
)

type UserHandler struct {
	users  *users.Service
	logger *zap.Logger
}

func NewUserHandler(svc *users.Service, logger *zap.Logger) *UserHandler {
	return &UserHandler{users: svc, logger: logger}
}

type profileRequest struct {
	Username       *string `json:"username" validate:"omitempty,alphanum,min=3,max=50"`
	Bio            *string `json:"bio" validate:"omitempty,max=500"`
	ProfilePicture *string `json:"profilePicture"`
}

// Search handles GET /api/users?search=&page=&limit=.
func (h *UserHandler) Search(c *gin.Context) {
	page, err := h.users.Search(c.Request.Context(), middleware.UserID(c), c.Query("search"),
		intQuery(c, "page", 1), intQuery(c, "limit", 0))
	if err != nil {
		fail(c, h.logger, err, "Failed to search users")
		return
	}
	ok(c, http.StatusOK, "Users retrieved successfully", page)
}

func (h *UserHandler) Get(c *gin.Context) {
	id, err := idParam(c, "id")
	if err != nil {
		fail(c, h.logger, err, "Failed to load user")
		return
	}
	user, err := h.users.Profile(c.Request.Context(), middleware.UserID(c), id)
	if err != nil {
		fail(c, h.logger, err, "Failed to load user")
		return
	}
	ok(c, http.StatusOK, "User retrieved successfully", user)
}

func (h *UserHandler) UpdateProfile(c *gin.Context) {
	var req profileRequest
	if err := bind(c, &req); err != nil {
		fail(c, h.logger, err, "Failed to update profile")
		return
	}
	user, err := h.users.UpdateProfile(c.Request.Context(), middleware.UserID(c), models.ProfileUpdate{
		Username:       req.Username,
		Bio:            req.Bio,
		ProfilePicture: req.ProfilePicture,
	})
	if err != nil {
		fail(c, h.logger, err, "Failed to update profile")
		return
	}
	ok(c, http.StatusOK, "Profile updated successfully", user)
}

func (h *UserHandler) Presence(c *gin.Context) {
	id, err := idParam(c, "userId")
	if err != nil {
		fail(c, h.logger, err, "Failed to load presence")
		return
	}
	presence, err := h.users.Presence(c.Request.Context(), id)
	if err != nil {
		fail(c, h.logger, err, "Failed to load presence")
		return
	}
	ok(c, http.StatusOK, "Presence retrieved successfully", presence)
}
