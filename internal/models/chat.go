package models

import "time"

// PairKey returns the canonical (smaller, larger) ordering of two user ids.
func PairKey(a, b int64) (int64, int64) {
	if a <= b {
		return a, b
	}
	return b, a
}

// RecentChatSummary is one row per unordered user pair.
type RecentChatSummary struct {
	ID              int64       `db:"id" json:"id"`
	User1ID         int64       `db:"user1_id" json:"user1Id"`
	User2ID         int64       `db:"user2_id" json:"user2Id"`
	LastMessageText string      `db:"last_message_text" json:"lastMessageText"`
	LastMessageType MessageType `db:"last_message_type" json:"lastMessageType"`
	LastMessageTime time.Time   `db:"last_message_time" json:"lastMessageTime"`
}

// SummaryFor builds the summary row that a new message upserts.
func SummaryFor(m Message) RecentChatSummary {
	u1, u2 := PairKey(m.SenderID, m.ReceiverID)
	return RecentChatSummary{
		User1ID:         u1,
		User2ID:         u2,
		LastMessageText: m.Preview(),
		LastMessageType: m.Type,
		LastMessageTime: m.CreatedAt,
	}
}

// RecentChatRow is the joined read model behind the recent chats list.
type RecentChatRow struct {
	ID              int64       `db:"id"`
	OtherUserID     int64       `db:"other_user_id"`
	OtherUsername   string      `db:"other_username"`
	OtherPicture    *string     `db:"other_profile_picture"`
	OtherIsOnline   bool        `db:"other_is_online"`
	OtherLastSeen   *time.Time  `db:"other_last_seen"`
	LastMessageText string      `db:"last_message_text"`
	LastMessageType MessageType `db:"last_message_type"`
	LastMessageTime time.Time   `db:"last_message_time"`
	UnreadCount     int         `db:"unread_count"`
}

// RecentChat is the API view of a chat in the sidebar.
type RecentChat struct {
	ID          int64       `json:"id"`
	User        ChatPeer    `json:"user"`
	LastMessage LastMessage `json:"lastMessage"`
	UnreadCount int         `json:"unreadCount"`
}

type ChatPeer struct {
	ID             int64      `json:"id"`
	Username       string     `json:"username"`
	ProfilePicture *string    `json:"profilePicture"`
	IsOnline       bool       `json:"isOnline"`
	LastSeen       *time.Time `json:"lastSeen"`
}

type LastMessage struct {
	Text string      `json:"text"`
	Type MessageType `json:"type"`
	Time time.Time   `json:"time"`
}

// View converts the joined row into the API shape.
func (r RecentChatRow) View() RecentChat {
	return RecentChat{
		ID: r.ID,
		User: ChatPeer{
			ID:             r.OtherUserID,
			Username:       r.OtherUsername,
			ProfilePicture: r.OtherPicture,
			IsOnline:       r.OtherIsOnline,
			LastSeen:       r.OtherLastSeen,
		},
		LastMessage: LastMessage{Text: r.LastMessageText, Type: r.LastMessageType, Time: r.LastMessageTime},
		UnreadCount: r.UnreadCount,
	}
}
