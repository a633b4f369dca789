package chat

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"whatsapp-lite/internal/apperr"
	"whatsapp-lite/internal/events"
	"whatsapp-lite/internal/media"
	"whatsapp-lite/internal/models"
	"whatsapp-lite/internal/observability"
	"whatsapp-lite/internal/repositories"
	"whatsapp-lite/internal/telemetry"
)

const (
	DefaultPageSize = 50
	MaxPageSize     = 100
)

// Actor is the authenticated user an operation runs as.
type Actor struct {
	ID        int64
	Username  string
	RequestID string
}

// PresenceView answers whether a user currently holds a live connection.
type PresenceView interface {
	Online(userID int64) bool
}

type UserFinder interface {
	GetByID(ctx context.Context, userID int64) (models.User, error)
}

// Service holds the per-event business rules. Every mutating operation
// persists first and then returns the notifications it produced.
type Service struct {
	messages repositories.MessageRepository
	chats    repositories.ChatRepository
	users    UserFinder
	images   media.ImageStore
	presence PresenceView
	events   *observability.Events
	audit    *telemetry.AuditEmitter
	logger   *zap.Logger
}

func NewService(
	messages repositories.MessageRepository,
	chats repositories.ChatRepository,
	users UserFinder,
	images media.ImageStore,
	presence PresenceView,
	events *observability.Events,
	audit *telemetry.AuditEmitter,
	logger *zap.Logger,
) *Service {
	if images == nil {
		images = media.InlineStore{}
	}
	return &Service{
		messages: messages,
		chats:    chats,
		users:    users,
		images:   images,
		presence: presence,
		events:   events,
		audit:    audit,
		logger:   logger,
	}
}

// SendInput is a message as submitted by a client.
type SendInput struct {
	To    int64
	Type  models.MessageType
	Text  string
	Image string
}

// SendMessage stores a message with its recent chat summary and fans it out to the pair's room,
// the sender included.
func (s *Service) SendMessage(ctx context.Context, actor Actor, in SendInput) (models.Message, events.Outcome, error) {
	msg, err := models.BuildMessage(actor.ID, in.To, in.Type, in.Text, in.Image)
	if err != nil {
		return models.Message{}, events.Outcome{}, err
	}

	if _, err := s.users.GetByID(ctx, in.To); err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			return models.Message{}, events.Outcome{}, apperr.NotFound("receiver not found")
		}
		return models.Message{}, events.Outcome{}, apperr.Infra("load receiver", err)
	}

	if msg.Type == models.MessageTypeImage {
		ref, err := s.images.Store(ctx, actor.ID, *msg.Image)
		if err != nil {
			return models.Message{}, events.Outcome{}, err
		}
		msg.Image = &ref
	}

	created, err := s.messages.CreateWithSummary(ctx, msg)
	if err != nil {
		return models.Message{}, events.Outcome{}, apperr.Infra("failed to send message", err)
	}

	observability.IncMessageSent(string(created.Type))
	s.events.Publish(ctx, observability.RoutingMessageSent, "message", string(events.MessageReceived), created)
	s.logger.Info("message sent",
		zap.Int64("message_id", created.ID),
		zap.Int64("sender_id", created.SenderID),
		zap.Int64("receiver_id", created.ReceiverID),
		zap.String("type", string(created.Type)),
	)

	return created, events.Notify(events.Room(events.RoomKey(created.SenderID, created.ReceiverID)), events.MessageReceived, created), nil
}

// Typing forwards a typing indicator to the target's sessions. Absent targets are dropped silently.
func (s *Service) Typing(actor Actor, to int64, isTyping bool) events.Outcome {
	if to <= 0 || to == actor.ID || !s.presence.Online(to) {
		return events.Outcome{}
	}
	return events.Notify(events.User(to), events.TypingStatus, events.TypingStatusPayload{
		From:     actor.ID,
		Username: actor.Username,
		IsTyping: isTyping,
	})
}

// MarkSeen marks everything from other to the actor as seen and tells other when they are online.
func (s *Service) MarkSeen(ctx context.Context, actor Actor, other int64) (int64, events.Outcome, error) {
	if other <= 0 {
		return 0, events.Outcome{}, apperr.Validation("from field is required")
	}
	count, err := s.messages.MarkSeen(ctx, other, actor.ID)
	if err != nil {
		return 0, events.Outcome{}, apperr.Infra("failed to mark messages as seen", err)
	}
	s.logger.Info("messages marked as seen", zap.Int64("from", other), zap.Int64("to", actor.ID), zap.Int64("count", count))

	var out events.Outcome
	if s.presence.Online(other) {
		out.Add(events.User(other), events.MessagesSeen, events.MessagesSeenPayload{By: actor.ID, Username: actor.Username})
	}
	return count, out, nil
}

// UpdateStatus records a delivery or read receipt from the message's receiver.
// A status equal to the current one is acknowledged without a write; a regression is rejected.
func (s *Service) UpdateStatus(ctx context.Context, actor Actor, messageID int64, status models.MessageStatus) (events.Outcome, error) {
	if !status.Receipt() {
		return events.Outcome{}, apperr.Validation("status must be delivered or seen")
	}
	msg, err := s.loadMessage(ctx, messageID)
	if err != nil {
		return events.Outcome{}, err
	}
	if msg.ReceiverID != actor.ID {
		return events.Outcome{}, apperr.Authorization("only the receiver can update message status")
	}

	switch {
	case msg.Status.Rank() > status.Rank():
		return events.Outcome{}, apperr.Validation("message status cannot move from " + string(msg.Status) + " to " + string(status))
	case msg.Status.Rank() < status.Rank():
		changed, err := s.messages.AdvanceStatus(ctx, messageID, actor.ID, status)
		if err != nil {
			return events.Outcome{}, apperr.Infra("failed to update message status", err)
		}
		if changed {
			s.audit.Emit(ctx, "info", "message status updated", actor.RequestID, actor.ID, map[string]any{
				"message_id": messageID,
				"status":     string(status),
			})
		}
	}

	payload := events.MessageStatusPayload{MessageID: messageID, Status: status}
	out := events.Notify(events.Caller(), events.MessageStatus, payload)
	if s.presence.Online(msg.SenderID) {
		out.Add(events.User(msg.SenderID), events.MessageStatus, payload)
	}
	return out, nil
}

// EditInput carries the replacement content; nil keeps the current value.
type EditInput struct {
	Text  *string
	Image *string
}

// EditMessage rewrites a live message of the actor. Someone else's message, or a deleted one, is reported as not found.
func (s *Service) EditMessage(ctx context.Context, actor Actor, messageID int64, in EditInput) (models.Message, events.Outcome, error) {
	if in.Text == nil && in.Image == nil {
		return models.Message{}, events.Outcome{}, apperr.Validation("text or imageBase64 is required")
	}
	msg, err := s.loadMessage(ctx, messageID)
	if err != nil {
		return models.Message{}, events.Outcome{}, err
	}
	if msg.SenderID != actor.ID || msg.IsDeleted {
		return models.Message{}, events.Outcome{}, apperr.NotFound("message not found or unauthorized")
	}

	// The edit must keep exactly the column the message type owns.
	switch {
	case msg.Type == models.MessageTypeText && in.Image != nil:
		return models.Message{}, events.Outcome{}, apperr.Validation("text messages can only be edited with text")
	case msg.Type == models.MessageTypeImage && in.Text != nil:
		return models.Message{}, events.Outcome{}, apperr.Validation("image messages can only be edited with an image")
	}

	text, image := msg.Text, msg.Image
	if in.Text != nil {
		if isBlank(*in.Text) {
			return models.Message{}, events.Outcome{}, apperr.Validation("text is required for text messages")
		}
		text = in.Text
	}
	if in.Image != nil {
		ref, err := s.images.Store(ctx, actor.ID, *in.Image)
		if err != nil {
			return models.Message{}, events.Outcome{}, err
		}
		image = &ref
	}

	if err := s.messages.UpdateContent(ctx, messageID, actor.ID, text, image); err != nil {
		return models.Message{}, events.Outcome{}, apperr.Infra("failed to edit message", err)
	}
	updated, err := s.loadMessage(ctx, messageID)
	if err != nil {
		return models.Message{}, events.Outcome{}, err
	}

	s.events.Publish(ctx, observability.RoutingMessageEdited, "message", string(events.MessageUpdated), updated)
	s.audit.Emit(ctx, "info", "message edited", actor.RequestID, actor.ID, map[string]any{"message_id": messageID})
	s.logger.Info("message edited", zap.Int64("message_id", messageID), zap.Int64("user_id", actor.ID))

	return updated, events.Notify(events.Room(events.RoomKey(updated.SenderID, updated.ReceiverID)), events.MessageUpdated, updated), nil
}

// DeleteMessage soft-deletes a message of the actor. Deleting twice is not an error.
func (s *Service) DeleteMessage(ctx context.Context, actor Actor, messageID int64) (events.Outcome, error) {
	msg, err := s.loadMessage(ctx, messageID)
	if err != nil {
		return events.Outcome{}, err
	}
	if msg.SenderID != actor.ID {
		return events.Outcome{}, apperr.Authorization("only the sender can delete a message")
	}

	if !msg.IsDeleted {
		if err := s.messages.SoftDelete(ctx, messageID, actor.ID); err != nil {
			return events.Outcome{}, apperr.Infra("failed to delete message", err)
		}
		s.events.Publish(ctx, observability.RoutingMessageDeleted, "message", string(events.MessageDeleted), events.MessageDeletedPayload{MessageID: messageID})
		s.audit.Emit(ctx, "info", "message deleted", actor.RequestID, actor.ID, map[string]any{"message_id": messageID})
		s.logger.Info("message deleted", zap.Int64("message_id", messageID), zap.Int64("user_id", actor.ID))
	}

	return events.Notify(events.Room(events.RoomKey(msg.SenderID, msg.ReceiverID)), events.MessageDeleted, events.MessageDeletedPayload{MessageID: messageID}), nil
}

// JoinRoom puts the calling connection in the pair's room and tells the other user when they are online.
func (s *Service) JoinRoom(actor Actor, other int64) (events.Outcome, error) {
	if other <= 0 {
		return events.Outcome{}, apperr.Validation("otherUserId is required")
	}
	if other == actor.ID {
		return events.Outcome{}, apperr.Validation("cannot open a chat with yourself")
	}
	room := events.RoomKey(actor.ID, other)

	out := events.Outcome{Join: room}
	out.Add(events.Caller(), events.ChatJoined, events.ChatJoinedPayload{RoomName: room, OtherUserID: other})
	if s.presence.Online(other) {
		out.Add(events.User(other), events.UserJoinedChat, events.UserJoinedChatPayload{
			UserID:   actor.ID,
			Username: actor.Username,
			RoomName: room,
		})
	}
	return out, nil
}

// LeaveRoom takes the calling connection out of the pair's room. Leaving a room never joined is a no-op.
func (s *Service) LeaveRoom(actor Actor, other int64) (events.Outcome, error) {
	if other <= 0 {
		return events.Outcome{}, apperr.Validation("otherUserId is required")
	}
	room := events.RoomKey(actor.ID, other)
	out := events.Outcome{Leave: room}
	out.Add(events.Caller(), events.ChatLeft, events.ChatLeftPayload{RoomName: room})
	return out, nil
}

// GetMessages returns one page of the conversation with other, oldest first.
// Pass the returned NextCursor as before to load the previous page.
func (s *Service) GetMessages(ctx context.Context, actor Actor, other int64, before *time.Time, limit int) (models.Page, error) {
	if other <= 0 {
		return models.Page{}, apperr.Validation("userId is required")
	}
	limit = clampLimit(limit)

	msgs, hasMore, err := s.messages.ListBetween(ctx, actor.ID, other, before, limit)
	if err != nil {
		return models.Page{}, apperr.Infra("failed to fetch messages", err)
	}
	page := models.Page{Messages: msgs, HasMore: hasMore}
	if page.Messages == nil {
		page.Messages = []models.Message{}
	}
	if len(msgs) > 0 {
		oldest := msgs[0].CreatedAt
		page.NextCursor = &oldest
	}
	return page, nil
}

// RecentChats lists the actor's chats, newest first, with live presence layered over the stored flag.
func (s *Service) RecentChats(ctx context.Context, actor Actor) ([]models.RecentChat, error) {
	rows, err := s.chats.RecentChats(ctx, actor.ID)
	if err != nil {
		return nil, apperr.Infra("failed to fetch recent chats", err)
	}
	chats := make([]models.RecentChat, 0, len(rows))
	for _, row := range rows {
		view := row.View()
		if s.presence.Online(view.User.ID) {
			view.User.IsOnline = true
		}
		chats = append(chats, view)
	}
	return chats, nil
}

func (s *Service) UnreadCount(ctx context.Context, actor Actor) (int, error) {
	count, err := s.messages.CountUnread(ctx, actor.ID)
	if err != nil {
		return 0, apperr.Infra("failed to count unread messages", err)
	}
	return count, nil
}

func (s *Service) loadMessage(ctx context.Context, messageID int64) (models.Message, error) {
	if messageID <= 0 {
		return models.Message{}, apperr.Validation("message id is required")
	}
	msg, err := s.messages.GetMessage(ctx, messageID)
	if errors.Is(err, repositories.ErrMessageNotFound) {
		return models.Message{}, apperr.NotFound("message not found")
	}
	if err != nil {
		return models.Message{}, apperr.Infra("failed to load message", err)
	}
	return msg, nil
}

func clampLimit(limit int) int {
	if limit <= 0 {
		return DefaultPageSize
	}
	if limit > MaxPageSize {
		return MaxPageSize
	}
	return limit
}

func isBlank(s string) bool {
	return strings.TrimSpace(s) == ""
}
