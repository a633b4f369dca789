package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"whatsapp-lite/internal/observability"
)

// Pinger reports whether a backing store is reachable.
type Pinger interface {
	PingContext(ctx context.Context) error
}

type Routes struct {
	Auth     *AuthHandler
	Users    *UserHandler
	Messages *MessageHandler
	// Socket is the websocket upgrade endpoint.
	Socket gin.HandlerFunc
	// Protected guards everything except auth, health and metrics.
	Protected gin.HandlerFunc
	DB        Pinger
}

// Register mounts the REST API, the websocket endpoint, health and metrics.
func Register(router gin.IRouter, r Routes) {
	router.GET("/health", health(r.DB))
	router.GET("/metrics", gin.WrapH(observability.MetricsHandler()))
	router.GET("/ws", r.Socket)

	api := router.Group("/api")

	authRoutes := api.Group("/auth")
	authRoutes.POST("/register", r.Auth.Register)
	authRoutes.POST("/login", r.Auth.Login)
	authRoutes.POST("/logout", r.Protected, r.Auth.Logout)

	protected := api.Group("", r.Protected)

	protected.GET("/users", r.Users.Search)
	protected.PUT("/users/profile", r.Users.UpdateProfile)
	protected.GET("/users/:id", r.Users.Get)
	protected.GET("/presence/:userId", r.Users.Presence)

	protected.GET("/chats/recent", r.Messages.RecentChats)

	protected.GET("/messages", r.Messages.List)
	protected.POST("/messages", r.Messages.Send)
	protected.GET("/messages/unread", r.Messages.Unread)
	protected.PUT("/messages/:id", r.Messages.Edit)
	protected.DELETE("/messages/:id", r.Messages.Delete)
	protected.PUT("/messages/:id/status", r.Messages.UpdateStatus)
}

func health(db Pinger) gin.HandlerFunc {
	return func(c *gin.Context) {
		status, code := "OK", http.StatusOK
		if db != nil {
			ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
			defer cancel()
			if err := db.PingContext(ctx); err != nil {
				status, code = "DEGRADED", http.StatusServiceUnavailable
			}
		}
		c.JSON(code, gin.H{
			"status":    status,
			"message":   "WhatsApp-lite backend is running",
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		})
	}
}

// NotFound answers unmatched routes.
func NotFound(c *gin.Context) {
	c.JSON(http.StatusNotFound, gin.H{"success": false, "error": "Route not found"})
}
