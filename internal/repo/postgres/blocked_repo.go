package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/milanapp/engine/internal/domain/enums"
	"github.com/milanapp/engine/internal/domain/model"
)

var ErrBlockNotFound = errors.New("block not found")

type BlockedProfileRepo struct {
	pool *pgxpool.Pool
}

func NewBlockedProfileRepo(pool *pgxpool.Pool) *BlockedProfileRepo {
	return &BlockedProfileRepo{pool: pool}
}

const blockedColumns = `
	id,
	blocker_profile_id,
	blocked_profile_id,
	created_at,
	COALESCE(report_reason, ''),
	COALESCE(report_description, ''),
	is_unblocked,
	unblocked_at
`

func scanBlockedProfile(row pgx.Row) (model.BlockedProfile, error) {
	var rec model.BlockedProfile
	err := row.Scan(
		&rec.ID,
		&rec.BlockerProfileID,
		&rec.BlockedProfileID,
		&rec.CreatedAt,
		&rec.ReportReason,
		&rec.ReportDescription,
		&rec.IsUnblocked,
		&rec.UnblockedAt,
	)
	return rec, err
}

type CreateBlockParams struct {
	BlockerProfileID  int64
	BlockedProfileID  int64
	ReportReason      enums.ReportReason
	ReportDescription string
}

func (r *BlockedProfileRepo) Create(ctx context.Context, tx pgx.Tx, params CreateBlockParams, now time.Time) (model.BlockedProfile, error) {
	if params.BlockerProfileID <= 0 || params.BlockedProfileID <= 0 {
		return model.BlockedProfile{}, fmt.Errorf("invalid block payload")
	}
	if tx == nil {
		return model.BlockedProfile{}, fmt.Errorf("transaction is required")
	}

	var reason *string
	if params.ReportReason != "" {
		value := string(params.ReportReason)
		reason = &value
	}
	var description *string
	if params.ReportDescription != "" {
		description = &params.ReportDescription
	}

	rec, err := scanBlockedProfile(tx.QueryRow(ctx, `
INSERT INTO blocked_profiles (blocker_profile_id, blocked_profile_id, created_at, report_reason, report_description)
VALUES ($1, $2, $3, $4, $5)
RETURNING `+blockedColumns+`
`, params.BlockerProfileID, params.BlockedProfileID, now, reason, description))
	if err != nil {
		return model.BlockedProfile{}, fmt.Errorf("create block: %w", err)
	}

	return rec, nil
}

// ActiveBlockExists reports whether either profile currently blocks the
// other.
func (r *BlockedProfileRepo) ActiveBlockExists(ctx context.Context, tx pgx.Tx, profileA, profileB int64) (bool, error) {
	if profileA <= 0 || profileB <= 0 {
		return false, fmt.Errorf("invalid block lookup payload")
	}
	if tx == nil {
		return false, fmt.Errorf("transaction is required")
	}

	var one int
	err := tx.QueryRow(ctx, `
SELECT 1
FROM blocked_profiles
WHERE ((blocker_profile_id = $1 AND blocked_profile_id = $2)
	OR (blocker_profile_id = $2 AND blocked_profile_id = $1))
	AND is_unblocked = FALSE
LIMIT 1
`, profileA, profileB).Scan(&one)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("lookup active block: %w", err)
	}

	return true, nil
}

// FindActive returns the active block by the blocker against the blocked
// profile, locked for update.
func (r *BlockedProfileRepo) FindActive(ctx context.Context, tx pgx.Tx, blockerID, blockedID int64) (model.BlockedProfile, error) {
	if blockerID <= 0 || blockedID <= 0 {
		return model.BlockedProfile{}, fmt.Errorf("invalid block lookup payload")
	}
	if tx == nil {
		return model.BlockedProfile{}, fmt.Errorf("transaction is required")
	}

	rec, err := scanBlockedProfile(tx.QueryRow(ctx, `
SELECT `+blockedColumns+`
FROM blocked_profiles
WHERE blocker_profile_id = $1 AND blocked_profile_id = $2 AND is_unblocked = FALSE
ORDER BY created_at DESC, id DESC
LIMIT 1
FOR UPDATE
`, blockerID, blockedID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.BlockedProfile{}, ErrBlockNotFound
		}
		return model.BlockedProfile{}, fmt.Errorf("find active block: %w", err)
	}

	return rec, nil
}

func (r *BlockedProfileRepo) MarkUnblocked(ctx context.Context, tx pgx.Tx, id int64, now time.Time) (bool, error) {
	if id <= 0 {
		return false, fmt.Errorf("invalid block id")
	}
	if tx == nil {
		return false, fmt.Errorf("transaction is required")
	}

	result, err := tx.Exec(ctx, `
UPDATE blocked_profiles
SET is_unblocked = TRUE, unblocked_at = $2
WHERE id = $1 AND is_unblocked = FALSE
`, id, now)
	if err != nil {
		return false, fmt.Errorf("mark block unblocked: %w", err)
	}

	return result.RowsAffected() > 0, nil
}
