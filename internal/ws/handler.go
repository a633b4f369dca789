package ws

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"

	"whatsapp-lite/internal/apperr"
	"whatsapp-lite/internal/auth"
	"whatsapp-lite/internal/models"
	"whatsapp-lite/internal/observability"
)

// TokenAuthenticator resolves the handshake credential to a user.
type TokenAuthenticator interface {
	Authenticate(ctx context.Context, token string) (models.User, error)
}

// Handler authenticates and upgrades websocket connections and runs their pumps.
type Handler struct {
	auth       TokenAuthenticator
	sessions   *Sessions
	dispatcher *Dispatcher
	upgrader   websocket.Upgrader
	logger     *zap.Logger
}

func NewHandler(authenticator TokenAuthenticator, sessions *Sessions, dispatcher *Dispatcher, logger *zap.Logger) *Handler {
	return &Handler{
		auth:       authenticator,
		sessions:   sessions,
		dispatcher: dispatcher,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		logger: logger,
	}
}

// Handle authenticates before upgrading; a rejected handshake never becomes a socket.
func (h *Handler) Handle(c *gin.Context) {
	ctx, span := otel.Tracer("whatsapp-lite/ws").Start(c.Request.Context(), "ws.handshake")
	defer span.End()
	c.Request = c.Request.WithContext(ctx)

	token := auth.BearerToken(c.GetHeader("Authorization"))
	if token == "" {
		token = c.Query("token")
	}

	user, err := h.auth.Authenticate(ctx, token)
	if err != nil {
		status := http.StatusUnauthorized
		if apperr.KindOf(err) == apperr.KindInfrastructure {
			status = http.StatusInternalServerError
			h.logger.Error("ws handshake failed", zap.Error(err))
		}
		c.JSON(status, gin.H{"error": apperr.PublicMessage(err, "Authentication error")})
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn("ws upgrade failed", zap.Int64("user_id", user.ID), zap.Error(err))
		return
	}

	info := ConnInfo{
		ConnID:      newConnID(),
		UserID:      user.ID,
		Username:    user.Username,
		DeviceID:    observability.DeviceIDFromRequest(c.Request),
		IP:          observability.IPFromRequest(c.Request),
		RequestID:   observability.RequestIDFromContext(ctx),
		TraceID:     span.SpanContext().TraceID().String(),
		ConnectedAt: time.Now(),
	}
	if info.RequestID == "" {
		info.RequestID = observability.RequestIDFromRequest(c.Request)
	}

	// The request context ends when the handler returns; the session outlives it.
	sessionCtx := context.WithoutCancel(ctx)
	h.Serve(sessionCtx, newClient(conn, info))
}

// Serve runs an upgraded client until its socket closes.
func (h *Handler) Serve(ctx context.Context, client *Client) {
	info := client.Info()
	h.sessions.Connect(ctx, client)

	go client.writePump(func(err error) {
		h.logger.Debug("ws write failed", zap.String("conn_id", info.ConnID), zap.Error(err))
	})

	inbox := make(chan []byte, inboxBuffer)
	go client.process(inbox, func(raw []byte) {
		h.dispatcher.Dispatch(ctx, client, raw)
	})

	// Presence cleanup runs as soon as the socket ends, even if a handler is still busy.
	err := client.readPump(inbox)
	client.Close()

	reason := closeReason(err)
	if reason != "normal" {
		h.sessions.events.Publish(ctx, observability.RoutingWSError, "ws", "ws_error", lifecyclePayload(info, "error", reason))
	}
	h.sessions.Disconnect(ctx, client, reason)
}

func closeReason(err error) string {
	var closeErr *websocket.CloseError
	if errors.As(err, &closeErr) {
		switch closeErr.Code {
		case websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseNoStatusReceived:
			return "normal"
		}
		return closeErr.Error()
	}
	if err == nil {
		return "normal"
	}
	return err.Error()
}
