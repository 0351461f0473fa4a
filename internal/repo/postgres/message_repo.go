package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/milanapp/engine/internal/domain/model"
)

type MessageRepo struct {
	pool *pgxpool.Pool
}

func NewMessageRepo(pool *pgxpool.Pool) *MessageRepo {
	return &MessageRepo{pool: pool}
}

// CreateSystem writes a system message into the pair's conversation, inside
// the same transaction as the state change that produced it.
func (r *MessageRepo) CreateSystem(ctx context.Context, tx pgx.Tx, fromProfileID, toProfileID int64, body string, now time.Time) (model.ConversationMessage, error) {
	if fromProfileID <= 0 || toProfileID <= 0 || body == "" {
		return model.ConversationMessage{}, fmt.Errorf("invalid system message payload")
	}
	if tx == nil {
		return model.ConversationMessage{}, fmt.Errorf("transaction is required")
	}

	var rec model.ConversationMessage
	err := tx.QueryRow(ctx, `
INSERT INTO conversation_messages (from_profile_id, to_profile_id, is_system, body, created_at)
VALUES ($1, $2, TRUE, $3, $4)
RETURNING id, from_profile_id, to_profile_id, is_system, body, created_at
`, fromProfileID, toProfileID, body, now).Scan(
		&rec.ID,
		&rec.FromProfileID,
		&rec.ToProfileID,
		&rec.IsSystem,
		&rec.Body,
		&rec.CreatedAt,
	)
	if err != nil {
		return model.ConversationMessage{}, fmt.Errorf("create system message: %w", err)
	}

	return rec, nil
}
