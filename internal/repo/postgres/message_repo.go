package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ivankudzin/tgapp/subscriptions/internal/domain/model"
)

type MessageRepo struct {
	pool *pgxpool.Pool
}

func NewMessageRepo(pool *pgxpool.Pool) *MessageRepo {
	return &MessageRepo{pool: pool}
}

// Create stores the message under a fresh id. Without a pool the message is
// returned with its id but not stored.
func (r *MessageRepo) Create(ctx context.Context, msg model.Message) (model.Message, error) {
	if msg.SenderID <= 0 || msg.MatchID <= 0 {
		return model.Message{}, fmt.Errorf("invalid message payload")
	}

	msg.ID = uuid.NewString()
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now().UTC()
	}
	if r.pool == nil {
		return msg, nil
	}

	err := r.pool.QueryRow(ctx, `
INSERT INTO messages (id, sender_id, match_id, body, created_at)
VALUES ($1, $2, $3, $4, $5)
RETURNING created_at
`, msg.ID, msg.SenderID, msg.MatchID, msg.Body, msg.CreatedAt).Scan(&msg.CreatedAt)
	if err != nil {
		return model.Message{}, fmt.Errorf("insert message: %w", err)
	}

	return msg, nil
}

func (r *MessageRepo) ListByMatch(ctx context.Context, matchID int64, limit int) ([]model.Message, error) {
	if matchID <= 0 {
		return nil, fmt.Errorf("invalid match id")
	}
	if r.pool == nil {
		return []model.Message{}, nil
	}
	if limit <= 0 || limit > 200 {
		limit = 50
	}

	rows, err := r.pool.Query(ctx, `
SELECT id::text, sender_id, match_id, body, created_at
FROM messages
WHERE match_id = $1
ORDER BY created_at DESC
LIMIT $2
`, matchID, limit)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	defer rows.Close()

	out := make([]model.Message, 0, limit)
	for rows.Next() {
		var msg model.Message
		if err := rows.Scan(&msg.ID, &msg.SenderID, &msg.MatchID, &msg.Body, &msg.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		out = append(out, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate messages: %w", err)
	}
	return out, nil
}
