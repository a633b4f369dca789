package models

import (
	"strings"
	"time"

	"whatsapp-lite/internal/apperr"
)

// DeletedMarker replaces the content of soft-deleted messages on read.
const DeletedMarker = "This message was deleted"

// ImagePreview is the recent-chat preview for image messages.
const ImagePreview = "Image"

// MessageType is the closed set of message kinds.
type MessageType string

const (
	MessageTypeText  MessageType = "text"
	MessageTypeImage MessageType = "image"
)

func (t MessageType) Valid() bool {
	return t == MessageTypeText || t == MessageTypeImage
}

// MessageStatus only moves forward: sent -> delivered -> seen.
type MessageStatus string

const (
	StatusSent      MessageStatus = "sent"
	StatusDelivered MessageStatus = "delivered"
	StatusSeen      MessageStatus = "seen"
)

// Rank orders statuses; unknown values rank below sent.
func (s MessageStatus) Rank() int {
	switch s {
	case StatusSent:
		return 1
	case StatusDelivered:
		return 2
	case StatusSeen:
		return 3
	default:
		return 0
	}
}

// Receipt reports whether s is a status a receiver may set.
func (s MessageStatus) Receipt() bool {
	return s == StatusDelivered || s == StatusSeen
}

// Message is a row of the messages table.
type Message struct {
	ID         int64         `db:"id" json:"id"`
	SenderID   int64         `db:"sender_id" json:"senderId"`
	ReceiverID int64         `db:"receiver_id" json:"receiverId"`
	Type       MessageType   `db:"message_type" json:"type"`
	Text       *string       `db:"message_text" json:"text"`
	Image      *string       `db:"message_image" json:"image"`
	Status     MessageStatus `db:"status" json:"status"`
	IsEdited   bool          `db:"is_edited" json:"isEdited"`
	IsDeleted  bool          `db:"is_deleted" json:"isDeleted"`
	CreatedAt  time.Time     `db:"created_at" json:"createdAt"`
	UpdatedAt  time.Time     `db:"updated_at" json:"updatedAt"`
}

// Redacted returns m with its content replaced when it has been soft-deleted.
func (m Message) Redacted() Message {
	if !m.IsDeleted {
		return m
	}
	marker := DeletedMarker
	m.Text = &marker
	m.Image = nil
	return m
}

// Preview is the text stored in the recent-chat summary.
func (m Message) Preview() string {
	if m.Type == MessageTypeImage {
		return ImagePreview
	}
	if m.Text == nil {
		return ""
	}
	return *m.Text
}

// NewMessage is a validated message ready to be persisted.
// Exactly one of Text and Image is set, matching Type.
type NewMessage struct {
	SenderID   int64
	ReceiverID int64
	Type       MessageType
	Text       *string
	Image      *string
}

// TextMessage builds a text message, rejecting blank text.
func TextMessage(senderID, receiverID int64, text string) (NewMessage, error) {
	if strings.TrimSpace(text) == "" {
		return NewMessage{}, apperr.Validation("text is required for text messages")
	}
	if err := checkParticipants(senderID, receiverID); err != nil {
		return NewMessage{}, err
	}
	return NewMessage{SenderID: senderID, ReceiverID: receiverID, Type: MessageTypeText, Text: &text}, nil
}

// ImageMessage builds an image message from an image reference or payload.
func ImageMessage(senderID, receiverID int64, image string) (NewMessage, error) {
	if strings.TrimSpace(image) == "" {
		return NewMessage{}, apperr.Validation("image data is required for image messages")
	}
	if err := checkParticipants(senderID, receiverID); err != nil {
		return NewMessage{}, err
	}
	return NewMessage{SenderID: senderID, ReceiverID: receiverID, Type: MessageTypeImage, Image: &image}, nil
}

// BuildMessage dispatches on the wire type to TextMessage or ImageMessage.
func BuildMessage(senderID, receiverID int64, msgType MessageType, text, image string) (NewMessage, error) {
	switch msgType {
	case MessageTypeText:
		return TextMessage(senderID, receiverID, text)
	case MessageTypeImage:
		return ImageMessage(senderID, receiverID, image)
	default:
		return NewMessage{}, apperr.Validation("type must be text or image")
	}
}

func checkParticipants(senderID, receiverID int64) error {
	if receiverID <= 0 {
		return apperr.Validation("receiver is required")
	}
	if senderID == receiverID {
		return apperr.Validation("cannot message yourself")
	}
	return nil
}

// Page is one backward page of a conversation, oldest first.
type Page struct {
	Messages   []Message  `json:"messages"`
	HasMore    bool       `json:"hasMore"`
	NextCursor *time.Time `json:"nextCursor"`
}
