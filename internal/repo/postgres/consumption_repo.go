package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/milanapp/engine/internal/domain/enums"
)

// ConsumptionRepo persists the per-profile sets of counterparts a slot has
// already been spent on. A (profile, target, kind) triple is consumed at
// most once, so repeating an operation against the same counterpart never
// burns a second slot.
type ConsumptionRepo struct {
	pool *pgxpool.Pool
}

func NewConsumptionRepo(pool *pgxpool.Pool) *ConsumptionRepo {
	return &ConsumptionRepo{pool: pool}
}

// Add records a consumption. Returns true when the triple was newly
// inserted, false when the target was already in the consumed set.
func (r *ConsumptionRepo) Add(ctx context.Context, tx pgx.Tx, profileID, targetProfileID int64, kind enums.SlotKind, now time.Time) (bool, error) {
	if profileID <= 0 || targetProfileID <= 0 {
		return false, fmt.Errorf("invalid consumption payload")
	}
	if tx == nil {
		return false, fmt.Errorf("transaction is required")
	}

	result, err := tx.Exec(ctx, `
INSERT INTO slot_consumptions (profile_id, target_profile_id, kind, consumed_at)
VALUES ($1, $2, $3, $4)
ON CONFLICT (profile_id, target_profile_id, kind) DO NOTHING
`, profileID, targetProfileID, string(kind), now)
	if err != nil {
		return false, fmt.Errorf("record slot consumption: %w", err)
	}

	return result.RowsAffected() > 0, nil
}

// Has reports whether the target is already in the profile's consumed set.
func (r *ConsumptionRepo) Has(ctx context.Context, tx pgx.Tx, profileID, targetProfileID int64, kind enums.SlotKind) (bool, error) {
	if profileID <= 0 || targetProfileID <= 0 {
		return false, fmt.Errorf("invalid consumption lookup payload")
	}
	if tx == nil {
		return false, fmt.Errorf("transaction is required")
	}

	var one int
	err := tx.QueryRow(ctx, `
SELECT 1
FROM slot_consumptions
WHERE profile_id = $1 AND target_profile_id = $2 AND kind = $3
LIMIT 1
`, profileID, targetProfileID, string(kind)).Scan(&one)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("lookup slot consumption: %w", err)
	}

	return true, nil
}

// Count returns the size of the profile's consumed set for a kind, reading
// through the transaction so quota checks see in-flight consumptions.
func (r *ConsumptionRepo) Count(ctx context.Context, tx pgx.Tx, profileID int64, kind enums.SlotKind) (int, error) {
	if profileID <= 0 {
		return 0, fmt.Errorf("invalid profile id")
	}
	if tx == nil {
		return 0, fmt.Errorf("transaction is required")
	}

	var count int
	err := tx.QueryRow(ctx, `
SELECT COUNT(*)
FROM slot_consumptions
WHERE profile_id = $1 AND kind = $2
`, profileID, string(kind)).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count slot consumptions: %w", err)
	}

	return count, nil
}

// Counts returns the consumed totals for both kinds outside a transaction.
// Snapshot reads only.
func (r *ConsumptionRepo) Counts(ctx context.Context, profileID int64) (chat int, contact int, err error) {
	if profileID <= 0 {
		return 0, 0, fmt.Errorf("invalid profile id")
	}
	if r.pool == nil {
		return 0, 0, fmt.Errorf("postgres pool is nil")
	}

	rows, err := r.pool.Query(ctx, `
SELECT kind, COUNT(*)
FROM slot_consumptions
WHERE profile_id = $1
GROUP BY kind
`, profileID)
	if err != nil {
		return 0, 0, fmt.Errorf("count slot consumptions: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var kind string
		var count int
		if err := rows.Scan(&kind, &count); err != nil {
			return 0, 0, fmt.Errorf("scan slot consumption count: %w", err)
		}
		switch enums.SlotKind(kind) {
		case enums.SlotChat:
			chat = count
		case enums.SlotContact:
			contact = count
		}
	}
	if rows.Err() != nil {
		return 0, 0, fmt.Errorf("iterate slot consumption counts: %w", rows.Err())
	}

	return chat, contact, nil
}
