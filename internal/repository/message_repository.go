package repository

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/iliyamo/neighborhood-exchange/internal/model"
)

// MessageRepo stores direct messages between users.
type MessageRepo struct {
	db *sqlx.DB
}

func NewMessageRepo(db *sqlx.DB) *MessageRepo { return &MessageRepo{db: db} }

// Create inserts m; the receiver must exist (ErrNotFound otherwise).
func (r *MessageRepo) Create(ctx context.Context, m *model.Message) error {
	var n int
	if err := r.db.GetContext(ctx, &n, "SELECT COUNT(*) FROM users WHERE user_id = ?", m.ReceiverID); err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	if m.Timestamp.IsZero() {
		m.Timestamp = model.NewTimestamp(time.Now().UTC())
	}
	res, err := r.db.ExecContext(ctx,
		"INSERT INTO messages (sender_id, receiver_id, content, timestamp) VALUES (?, ?, ?, ?)",
		m.SenderID, m.ReceiverID, m.Content, m.Timestamp)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	m.ID = uint64(id)
	return nil
}

// Conversation returns the messages exchanged between a and b in either
// direction, oldest first.
func (r *MessageRepo) Conversation(ctx context.Context, a, b uint64) ([]model.Message, error) {
	out := []model.Message{}
	err := r.db.SelectContext(ctx, &out,
		`SELECT message_id, sender_id, receiver_id, content, timestamp FROM messages
		 WHERE (sender_id = ? AND receiver_id = ?) OR (sender_id = ? AND receiver_id = ?)
		 ORDER BY timestamp, message_id`, a, b, b, a)
	return out, err
}

// Inbox lists each conversation partner of userID once, with the time of
// the latest message, most recent first.
func (r *MessageRepo) Inbox(ctx context.Context, userID uint64) ([]model.Conversation, error) {
	out := []model.Conversation{}
	err := r.db.SelectContext(ctx, &out,
		`SELECT p.partner_id, u.name AS partner_name, MAX(p.timestamp) AS last_at
		 FROM (
		   SELECT receiver_id AS partner_id, timestamp FROM messages WHERE sender_id = ?
		   UNION ALL
		   SELECT sender_id AS partner_id, timestamp FROM messages WHERE receiver_id = ?
		 ) p
		 JOIN users u ON u.user_id = p.partner_id
		 GROUP BY p.partner_id, u.name
		 ORDER BY last_at DESC`, userID, userID)
	return out, err
}
