package middleware

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"whatsapp-lite/internal/apperr"
	"whatsapp-lite/internal/auth"
	"whatsapp-lite/internal/models"
)

const (
	UserIDKey   = "userID"
	UsernameKey = "username"
)

// TokenAuthenticator resolves a bearer credential to a user.
type TokenAuthenticator interface {
	Authenticate(ctx context.Context, token string) (models.User, error)
}

// AuthMiddleware requires a valid bearer token and stores the user on the context.
func AuthMiddleware(authenticator TokenAuthenticator, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"success": false, "error": "Access token required"})
			return
		}

		token := auth.BearerToken(header)
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"success": false, "error": "invalid authorization header"})
			return
		}

		user, err := authenticator.Authenticate(c.Request.Context(), token)
		if err != nil {
			status := http.StatusUnauthorized
			if apperr.KindOf(err) == apperr.KindInfrastructure {
				status = http.StatusInternalServerError
				logger.Error("authenticate request failed", zap.Error(err))
			}
			c.AbortWithStatusJSON(status, gin.H{"success": false, "error": apperr.PublicMessage(err, "Authentication error")})
			return
		}

		c.Set(UserIDKey, user.ID)
		c.Set(UsernameKey, user.Username)
		c.Next()
	}
}

// UserID is the authenticated user id, or 0 outside AuthMiddleware.
func UserID(c *gin.Context) int64 {
	if v, ok := c.Get(UserIDKey); ok {
		if id, ok := v.(int64); ok {
			return id
		}
	}
	return 0
}

func Username(c *gin.Context) string {
	return c.GetString(UsernameKey)
}
