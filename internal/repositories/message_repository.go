package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"whatsapp-lite/internal/db"
	"whatsapp-lite/internal/models"
)

var ErrMessageNotFound = errors.New("message not found")

const messageColumns = `id, sender_id, receiver_id, message_type, message_text, message_image, status, is_edited, is_deleted, created_at, updated_at`

// MessageRepository defines interactions for direct messages.
type MessageRepository interface {
	CreateWithSummary(ctx context.Context, msg models.NewMessage) (models.Message, error)
	GetMessage(ctx context.Context, messageID int64) (models.Message, error)
	ListBetween(ctx context.Context, userA, userB int64, before *time.Time, limit int) ([]models.Message, bool, error)
	UpdateContent(ctx context.Context, messageID, senderID int64, text, image *string) error
	SoftDelete(ctx context.Context, messageID, senderID int64) error
	AdvanceStatus(ctx context.Context, messageID, receiverID int64, status models.MessageStatus) (bool, error)
	MarkSeen(ctx context.Context, senderID, receiverID int64) (int64, error)
	CountUnread(ctx context.Context, userID int64) (int, error)
}

// MessageRepo is a sqlx-backed repository.
type MessageRepo struct {
	db *sqlx.DB
}

// NewMessageRepo constructs MessageRepo.
func NewMessageRepo(db *sqlx.DB) *MessageRepo {
	return &MessageRepo{db: db}
}

// CreateWithSummary inserts the message and upserts the pair's recent chat row in one transaction.
func (r *MessageRepo) CreateWithSummary(ctx context.Context, msg models.NewMessage) (models.Message, error) {
	var created models.Message
	err := db.WithTx(ctx, r.db, func(tx *sqlx.Tx) error {
		res, err := tx.ExecContext(ctx, `INSERT INTO messages (sender_id, receiver_id, message_type, message_text, message_image) VALUES (?, ?, ?, ?, ?)`,
			msg.SenderID, msg.ReceiverID, msg.Type, msg.Text, msg.Image)
		if err != nil {
			return fmt.Errorf("insert message: %w", err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return fmt.Errorf("insert message id: %w", err)
		}
		if err := tx.GetContext(ctx, &created, `SELECT `+messageColumns+` FROM messages WHERE id = ?`, id); err != nil {
			return fmt.Errorf("load message: %w", err)
		}
		return upsertSummary(ctx, tx, models.SummaryFor(created))
	})
	if err != nil {
		return models.Message{}, err
	}
	return created, nil
}

// GetMessage retrieves a single message. Deleted messages come back redacted.
func (r *MessageRepo) GetMessage(ctx context.Context, messageID int64) (models.Message, error) {
	var msg models.Message
	err := r.db.GetContext(ctx, &msg, `SELECT `+messageColumns+` FROM messages WHERE id = ?`, messageID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Message{}, ErrMessageNotFound
	}
	if err != nil {
		return models.Message{}, fmt.Errorf("get message: %w", err)
	}
	return msg.Redacted(), nil
}

// ListBetween returns up to limit non-deleted messages of the pair older than before, oldest first.
// The second result reports whether older messages remain.
func (r *MessageRepo) ListBetween(ctx context.Context, userA, userB int64, before *time.Time, limit int) ([]models.Message, bool, error) {
	query := `SELECT ` + messageColumns + ` FROM messages
        WHERE ((sender_id = ? AND receiver_id = ?) OR (sender_id = ? AND receiver_id = ?))
        AND is_deleted = 0`
	args := []interface{}{userA, userB, userB, userA}
	if before != nil {
		query += ` AND created_at < ?`
		args = append(args, *before)
	}
	query += ` ORDER BY created_at DESC, id DESC LIMIT ?`
	args = append(args, limit+1)

	var msgs []models.Message
	if err := r.db.SelectContext(ctx, &msgs, query, args...); err != nil {
		return nil, false, fmt.Errorf("list messages: %w", err)
	}

	hasMore := len(msgs) > limit
	if hasMore {
		msgs = msgs[:limit]
	}
	for i, j := 0, len(msgs)-1; i < j; i, j = i+1, j-1 {
		msgs[i], msgs[j] = msgs[j], msgs[i]
	}
	return msgs, hasMore, nil
}

// UpdateContent rewrites the content of a live message owned by senderID and flags it edited.
func (r *MessageRepo) UpdateContent(ctx context.Context, messageID, senderID int64, text, image *string) error {
	_, err := r.db.ExecContext(ctx, `UPDATE messages SET message_text = ?, message_image = ?, is_edited = 1, updated_at = NOW(3)
        WHERE id = ? AND sender_id = ? AND is_deleted = 0`, text, image, messageID, senderID)
	if err != nil {
		return fmt.Errorf("update message: %w", err)
	}
	return nil
}

// SoftDelete flags a message deleted; the row is kept.
func (r *MessageRepo) SoftDelete(ctx context.Context, messageID, senderID int64) error {
	_, err := r.db.ExecContext(ctx, `UPDATE messages SET is_deleted = 1, updated_at = NOW(3) WHERE id = ? AND sender_id = ?`, messageID, senderID)
	if err != nil {
		return fmt.Errorf("delete message: %w", err)
	}
	return nil
}

// AdvanceStatus moves the status forward only. It reports false when nothing changed.
func (r *MessageRepo) AdvanceStatus(ctx context.Context, messageID, receiverID int64, status models.MessageStatus) (bool, error) {
	res, err := r.db.ExecContext(ctx, `UPDATE messages SET status = ?, updated_at = NOW(3)
        WHERE id = ? AND receiver_id = ?
        AND FIELD(status, 'sent', 'delivered', 'seen') < FIELD(?, 'sent', 'delivered', 'seen')`,
		status, messageID, receiverID, status)
	if err != nil {
		return false, fmt.Errorf("advance status: %w", err)
	}
	count, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("advance status: %w", err)
	}
	return count > 0, nil
}

// MarkSeen marks every unseen message from senderID to receiverID as seen.
func (r *MessageRepo) MarkSeen(ctx context.Context, senderID, receiverID int64) (int64, error) {
	res, err := r.db.ExecContext(ctx, `UPDATE messages SET status = 'seen', updated_at = NOW(3)
        WHERE sender_id = ? AND receiver_id = ? AND status <> 'seen'`, senderID, receiverID)
	if err != nil {
		return 0, fmt.Errorf("mark seen: %w", err)
	}
	count, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("mark seen: %w", err)
	}
	return count, nil
}

// CountUnread counts live messages addressed to userID that are not seen yet.
func (r *MessageRepo) CountUnread(ctx context.Context, userID int64) (int, error) {
	var count int
	err := r.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM messages WHERE receiver_id = ? AND status <> 'seen' AND is_deleted = 0`, userID)
	if err != nil {
		return 0, fmt.Errorf("count unread: %w", err)
	}
	return count, nil
}
