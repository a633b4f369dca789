package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"whatsapp-lite/internal/apperr"
	"whatsapp-lite/internal/chat"
	"whatsapp-lite/internal/events"
	"whatsapp-lite/internal/middleware"
	"whatsapp-lite/internal/validation"
)

// Broadcaster fans an outcome produced by a REST call out to live sockets.
type Broadcaster interface {
	Broadcast(ctx context.Context, out events.Outcome)
}

func ok(c *gin.Context, status int, message string, data any) {
	body := gin.H{"success": true, "message": message}
	if data != nil {
		body["data"] = data
	}
	c.JSON(status, body)
}

func fail(c *gin.Context, logger *zap.Logger, err error, fallback string) {
	status := apperr.HTTPStatus(err)
	if status == http.StatusInternalServerError {
		logger.Error(fallback,
			zap.String("route", c.FullPath()),
			zap.String("request_id", middleware.GetRequestID(c)),
			zap.Int64("user_id", middleware.UserID(c)),
			zap.Error(err),
		)
	}
	c.JSON(status, gin.H{"success": false, "error": apperr.PublicMessage(err, fallback)})
}

// bind decodes the JSON body into req and runs its validate tags.
func bind(c *gin.Context, req any) error {
	if err := c.ShouldBindJSON(req); err != nil {
		return apperr.Validation("invalid request body")
	}
	return validation.Struct(req)
}

func actorFrom(c *gin.Context) chat.Actor {
	return chat.Actor{
		ID:        middleware.UserID(c),
		Username:  middleware.Username(c),
		RequestID: middleware.GetRequestID(c),
	}
}

func idParam(c *gin.Context, name string) (int64, error) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, apperr.Validation("invalid " + name)
	}
	return id, nil
}

func intQuery(c *gin.Context, name string, fallback int) int {
	v, err := strconv.Atoi(c.Query(name))
	if err != nil {
		return fallback
	}
	return v
}
