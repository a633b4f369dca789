package events

import (
	"time"

	"whatsapp-lite/internal/models"
)

// Name identifies a realtime event on the wire.
type Name string

// Inbound events.
const (
	JoinChat         Name = "join_chat"
	LeaveChat        Name = "leave_chat"
	SendMessage      Name = "send_message"
	Typing           Name = "typing"
	MarkSeen         Name = "mark_seen"
	MessageDelivered Name = "message_delivered"
)

// Outbound events.
const (
	MessageReceived Name = "message_received"
	MessageUpdated  Name = "message_updated"
	MessageDeleted  Name = "message_deleted"
	MessageStatus   Name = "message_status"
	TypingStatus    Name = "typing_status"
	MessagesSeen    Name = "messages_seen"
	UserOnline      Name = "user_online"
	UserOffline     Name = "user_offline"
	ChatJoined      Name = "chat_joined"
	ChatLeft        Name = "chat_left"
	UserJoinedChat  Name = "user_joined_chat"
	Error           Name = "error"
)

// Inbound payloads. Validation tags are checked before a handler runs.

type JoinChatPayload struct {
	OtherUserID int64 `json:"otherUserId" validate:"required,gt=0"`
}

type SendMessagePayload struct {
	To          int64              `json:"to" validate:"required,gt=0"`
	Type        models.MessageType `json:"type" validate:"required,oneof=text image"`
	Text        string             `json:"text"`
	ImageBase64 string             `json:"imageBase64"`
}

type TypingPayload struct {
	To       int64 `json:"to" validate:"required,gt=0"`
	IsTyping bool  `json:"isTyping"`
}

type MarkSeenPayload struct {
	From int64 `json:"from" validate:"required,gt=0"`
}

type MessageDeliveredPayload struct {
	MessageID int64 `json:"messageId" validate:"required,gt=0"`
}

// Outbound payloads.

type TypingStatusPayload struct {
	From     int64  `json:"from"`
	Username string `json:"username"`
	IsTyping bool   `json:"isTyping"`
}

type MessagesSeenPayload struct {
	By       int64  `json:"by"`
	Username string `json:"username"`
}

type PresencePayload struct {
	UserID   int64      `json:"userId"`
	Username string     `json:"username"`
	LastSeen *time.Time `json:"lastSeen,omitempty"`
}

type ChatJoinedPayload struct {
	RoomName    string `json:"roomName"`
	OtherUserID int64  `json:"otherUserId"`
}

type ChatLeftPayload struct {
	RoomName string `json:"roomName"`
}

type UserJoinedChatPayload struct {
	UserID   int64  `json:"userId"`
	Username string `json:"username"`
	RoomName string `json:"roomName"`
}

type MessageStatusPayload struct {
	MessageID int64                `json:"messageId"`
	Status    models.MessageStatus `json:"status"`
}

type MessageDeletedPayload struct {
	MessageID int64 `json:"messageId"`
}

type ErrorPayload struct {
	Message string `json:"message"`
}
