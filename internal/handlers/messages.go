package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"whatsapp-lite/internal/apperr"
	"whatsapp-lite/internal/chat"
	"whatsapp-lite/internal/models"
)

// MessageHandler serves the REST side of conversations. Mutations fan out to
// live sockets exactly like their realtime counterparts.
type MessageHandler struct {
	chat   *chat.Service
	hub    Broadcaster
	logger *zap.Logger
}

func NewMessageHandler(svc *chat.Service, hub Broadcaster, logger *zap.Logger) *MessageHandler {
	return &MessageHandler{chat: svc, hub: hub, logger: logger}
}

type sendRequest struct {
	ReceiverID  int64              `json:"receiverId" validate:"required,gt=0"`
	Type        models.MessageType `json:"type" validate:"required,oneof=text image"`
	Text        string             `json:"text" validate:"max=10000"`
	ImageBase64 string             `json:"imageBase64"`
}

type editRequest struct {
	Text        *string `json:"text" validate:"omitempty,max=10000"`
	ImageBase64 *string `json:"imageBase64"`
}

type statusRequest struct {
	Status models.MessageStatus `json:"status" validate:"required,oneof=delivered seen"`
}

func (h *MessageHandler) RecentChats(c *gin.Context) {
	chats, err := h.chat.RecentChats(c.Request.Context(), actorFrom(c))
	if err != nil {
		fail(c, h.logger, err, "Failed to load recent chats")
		return
	}
	ok(c, http.StatusOK, "Recent chats retrieved successfully", chats)
}

// List handles GET /api/messages?userId=&cursor=&limit=. cursor is an RFC 3339 timestamp.
func (h *MessageHandler) List(c *gin.Context) {
	other := int64(intQuery(c, "userId", 0))
	if other <= 0 {
		fail(c, h.logger, apperr.Validation("userId is required"), "Failed to load messages")
		return
	}

	var before *time.Time
	if raw := c.Query("cursor"); raw != "" {
		ts, err := time.Parse(time.RFC3339Nano, raw)
		if err != nil {
			fail(c, h.logger, apperr.Validation("cursor must be an RFC 3339 timestamp"), "Failed to load messages")
			return
		}
		before = &ts
	}

	page, err := h.chat.GetMessages(c.Request.Context(), actorFrom(c), other, before, intQuery(c, "limit", 0))
	if err != nil {
		fail(c, h.logger, err, "Failed to load messages")
		return
	}
	ok(c, http.StatusOK, "Messages retrieved successfully", page)
}

func (h *MessageHandler) Send(c *gin.Context) {
	var req sendRequest
	if err := bind(c, &req); err != nil {
		fail(c, h.logger, err, "Failed to send message")
		return
	}
	msg, out, err := h.chat.SendMessage(c.Request.Context(), actorFrom(c), chat.SendInput{
		To:    req.ReceiverID,
		Type:  req.Type,
		Text:  req.Text,
		Image: req.ImageBase64,
	})
	if err != nil {
		fail(c, h.logger, err, "Failed to send message")
		return
	}
	h.hub.Broadcast(c.Request.Context(), out)
	ok(c, http.StatusCreated, "Message sent successfully", msg)
}

func (h *MessageHandler) Edit(c *gin.Context) {
	id, err := idParam(c, "id")
	if err != nil {
		fail(c, h.logger, err, "Failed to edit message")
		return
	}
	var req editRequest
	if err := bind(c, &req); err != nil {
		fail(c, h.logger, err, "Failed to edit message")
		return
	}
	msg, out, err := h.chat.EditMessage(c.Request.Context(), actorFrom(c), id, chat.EditInput{
		Text:  req.Text,
		Image: req.ImageBase64,
	})
	if err != nil {
		fail(c, h.logger, err, "Failed to edit message")
		return
	}
	h.hub.Broadcast(c.Request.Context(), out)
	ok(c, http.StatusOK, "Message updated successfully", msg)
}

func (h *MessageHandler) Delete(c *gin.Context) {
	id, err := idParam(c, "id")
	if err != nil {
		fail(c, h.logger, err, "Failed to delete message")
		return
	}
	out, err := h.chat.DeleteMessage(c.Request.Context(), actorFrom(c), id)
	if err != nil {
		fail(c, h.logger, err, "Failed to delete message")
		return
	}
	h.hub.Broadcast(c.Request.Context(), out)
	ok(c, http.StatusOK, "Message deleted successfully", nil)
}

func (h *MessageHandler) UpdateStatus(c *gin.Context) {
	id, err := idParam(c, "id")
	if err != nil {
		fail(c, h.logger, err, "Failed to update message status")
		return
	}
	var req statusRequest
	if err := bind(c, &req); err != nil {
		fail(c, h.logger, err, "Failed to update message status")
		return
	}
	out, err := h.chat.UpdateStatus(c.Request.Context(), actorFrom(c), id, req.Status)
	if err != nil {
		fail(c, h.logger, err, "Failed to update message status")
		return
	}
	h.hub.Broadcast(c.Request.Context(), out)
	ok(c, http.StatusOK, "Message status updated successfully", nil)
}

func (h *MessageHandler) Unread(c *gin.Context) {
	count, err := h.chat.UnreadCount(c.Request.Context(), actorFrom(c))
	if err != nil {
		fail(c, h.logger, err, "Failed to count unread messages")
		return
	}
	ok(c, http.StatusOK, "Unread count retrieved successfully", gin.H{"count": count})
}
