package repositories

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"whatsapp-lite/internal/models"
)

// ChatRepository abstracts the recent chats read model.
type ChatRepository interface {
	Upsert(ctx context.Context, summary models.RecentChatSummary) error
	RecentChats(ctx context.Context, userID int64) ([]models.RecentChatRow, error)
}

// ChatRepo is a sqlx implementation of ChatRepository.
type ChatRepo struct {
	db *sqlx.DB
}

// NewChatRepo constructs a ChatRepo.
func NewChatRepo(db *sqlx.DB) *ChatRepo {
	return &ChatRepo{db: db}
}

// Upsert writes the last-message summary for the pair.
func (r *ChatRepo) Upsert(ctx context.Context, summary models.RecentChatSummary) error {
	return upsertSummary(ctx, r.db, summary)
}

func upsertSummary(ctx context.Context, exec sqlx.ExecerContext, s models.RecentChatSummary) error {
	u1, u2 := models.PairKey(s.User1ID, s.User2ID)
	_, err := exec.ExecContext(ctx, `INSERT INTO recent_chats (user1_id, user2_id, last_message_text, last_message_type, last_message_time)
        VALUES (?, ?, ?, ?, ?)
        ON DUPLICATE KEY UPDATE
        last_message_text = VALUES(last_message_text),
        last_message_type = VALUES(last_message_type),
        last_message_time = VALUES(last_message_time),
        updated_at = NOW(3)`,
		u1, u2, s.LastMessageText, s.LastMessageType, s.LastMessageTime)
	if err != nil {
		return fmt.Errorf("upsert recent chat: %w", err)
	}
	return nil
}

// RecentChats returns one row per chat of userID with the other participant joined in, newest first.
func (r *ChatRepo) RecentChats(ctx context.Context, userID int64) ([]models.RecentChatRow, error) {
	query := `SELECT rc.id,
            u.id AS other_user_id,
            u.username AS other_username,
            u.profile_picture AS other_profile_picture,
            u.is_online AS other_is_online,
            u.last_seen AS other_last_seen,
            COALESCE(rc.last_message_text, '') AS last_message_text,
            rc.last_message_type,
            rc.last_message_time,
            (SELECT COUNT(*) FROM messages m
                WHERE m.sender_id = u.id AND m.receiver_id = ? AND m.status <> 'seen' AND m.is_deleted = 0) AS unread_count
        FROM recent_chats rc
        JOIN users u ON u.id = CASE WHEN rc.user1_id = ? THEN rc.user2_id ELSE rc.user1_id END
        WHERE rc.user1_id = ? OR rc.user2_id = ?
        ORDER BY rc.last_message_time DESC`

	var rows []models.RecentChatRow
	if err := r.db.SelectContext(ctx, &rows, query, userID, userID, userID, userID); err != nil {
		return nil, fmt.Errorf("list recent chats: %w", err)
	}
	return rows, nil
}
