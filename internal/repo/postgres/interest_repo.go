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

var ErrInterestNotFound = errors.New("interest not found")

type InterestRepo struct {
	pool *pgxpool.Pool
}

func NewInterestRepo(pool *pgxpool.Pool) *InterestRepo {
	return &InterestRepo{pool: pool}
}

const interestColumns = `
	id,
	from_profile_id,
	to_profile_id,
	status,
	created_at,
	accepted_at,
	declined_at,
	COALESCE(declined_by, ''),
	revoked_at,
	COALESCE(revoked_by, ''),
	blocked_at,
	cancelled_at,
	expired_at,
	COALESCE(expiry_reason, ''),
	COALESCE(prior_status, ''),
	contact_auto_declined
`

func scanInterest(row pgx.Row) (model.Interest, error) {
	var rec model.Interest
	err := row.Scan(
		&rec.ID,
		&rec.FromProfileID,
		&rec.ToProfileID,
		&rec.Status,
		&rec.CreatedAt,
		&rec.AcceptedAt,
		&rec.DeclinedAt,
		&rec.DeclinedBy,
		&rec.RevokedAt,
		&rec.RevokedBy,
		&rec.BlockedAt,
		&rec.CancelledAt,
		&rec.ExpiredAt,
		&rec.ExpiryReason,
		&rec.PriorStatus,
		&rec.ContactAutoDeclined,
	)
	return rec, err
}

func (r *InterestRepo) Create(ctx context.Context, tx pgx.Tx, fromProfileID, toProfileID int64, now time.Time) (model.Interest, error) {
	if fromProfileID <= 0 || toProfileID <= 0 {
		return model.Interest{}, fmt.Errorf("invalid interest payload")
	}
	if tx == nil {
		return model.Interest{}, fmt.Errorf("transaction is required")
	}

	rec, err := scanInterest(tx.QueryRow(ctx, `
INSERT INTO interests (
	from_profile_id,
	to_profile_id,
	status,
	created_at
) VALUES ($1, $2, 'pending', $3)
RETURNING `+interestColumns+`
`, fromProfileID, toProfileID, now))
	if err != nil {
		return model.Interest{}, fmt.Errorf("create interest: %w", err)
	}

	return rec, nil
}

// GetForUpdate locks the row for the remainder of the transaction so two
// actors racing on the same interest serialize.
func (r *InterestRepo) GetForUpdate(ctx context.Context, tx pgx.Tx, id int64) (model.Interest, error) {
	if id <= 0 {
		return model.Interest{}, fmt.Errorf("invalid interest id")
	}
	if tx == nil {
		return model.Interest{}, fmt.Errorf("transaction is required")
	}

	rec, err := scanInterest(tx.QueryRow(ctx, `
SELECT `+interestColumns+`
FROM interests
WHERE id = $1
FOR UPDATE
`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Interest{}, ErrInterestNotFound
		}
		return model.Interest{}, fmt.Errorf("get interest for update: %w", err)
	}

	return rec, nil
}

func (r *InterestRepo) GetByID(ctx context.Context, id int64) (model.Interest, error) {
	if id <= 0 {
		return model.Interest{}, fmt.Errorf("invalid interest id")
	}
	if r.pool == nil {
		return model.Interest{}, ErrInterestNotFound
	}

	rec, err := scanInterest(r.pool.QueryRow(ctx, `
SELECT `+interestColumns+`
FROM interests
WHERE id = $1
`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Interest{}, ErrInterestNotFound
		}
		return model.Interest{}, fmt.Errorf("get interest: %w", err)
	}

	return rec, nil
}

// ExistsLiveBetween reports whether a pending or accepted interest exists
// between the two profiles in either direction.
func (r *InterestRepo) ExistsLiveBetween(ctx context.Context, tx pgx.Tx, profileA, profileB int64) (bool, error) {
	if profileA <= 0 || profileB <= 0 {
		return false, fmt.Errorf("invalid interest lookup payload")
	}
	if tx == nil {
		return false, fmt.Errorf("transaction is required")
	}

	var one int
	err := tx.QueryRow(ctx, `
SELECT 1
FROM interests
WHERE status IN ('pending', 'accepted')
	AND (
		(from_profile_id = $1 AND to_profile_id = $2)
		OR (from_profile_id = $2 AND to_profile_id = $1)
	)
LIMIT 1
`, profileA, profileB).Scan(&one)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("lookup live interest: %w", err)
	}

	return true, nil
}

// AcceptedExistsBetween reports whether an accepted interest exists between
// the two profiles in either direction. Gate for contact-request approval.
func (r *InterestRepo) AcceptedExistsBetween(ctx context.Context, tx pgx.Tx, profileA, profileB int64) (bool, error) {
	if profileA <= 0 || profileB <= 0 {
		return false, fmt.Errorf("invalid interest lookup payload")
	}
	if tx == nil {
		return false, fmt.Errorf("transaction is required")
	}

	var one int
	err := tx.QueryRow(ctx, `
SELECT 1
FROM interests
WHERE status = 'accepted'
	AND (
		(from_profile_id = $1 AND to_profile_id = $2)
		OR (from_profile_id = $2 AND to_profile_id = $1)
	)
LIMIT 1
`, profileA, profileB).Scan(&one)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("lookup accepted interest: %w", err)
	}

	return true, nil
}

// LatestBetween returns the most recent interest between the two profiles in
// either direction, locked for update.
func (r *InterestRepo) LatestBetween(ctx context.Context, tx pgx.Tx, profileA, profileB int64) (model.Interest, error) {
	if profileA <= 0 || profileB <= 0 {
		return model.Interest{}, fmt.Errorf("invalid interest lookup payload")
	}
	if tx == nil {
		return model.Interest{}, fmt.Errorf("transaction is required")
	}

	rec, err := scanInterest(tx.QueryRow(ctx, `
SELECT `+interestColumns+`
FROM interests
WHERE (from_profile_id = $1 AND to_profile_id = $2)
	OR (from_profile_id = $2 AND to_profile_id = $1)
ORDER BY created_at DESC, id DESC
LIMIT 1
FOR UPDATE
`, profileA, profileB))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Interest{}, ErrInterestNotFound
		}
		return model.Interest{}, fmt.Errorf("get latest interest between profiles: %w", err)
	}

	return rec, nil
}

// MarkAccepted transitions pending -> accepted. Returns false when the row
// was not pending anymore.
func (r *InterestRepo) MarkAccepted(ctx context.Context, tx pgx.Tx, id int64, now time.Time) (bool, error) {
	return r.guardedUpdate(ctx, tx, `
UPDATE interests
SET status = 'accepted', accepted_at = $2
WHERE id = $1 AND status = 'pending'
`, id, now)
}

func (r *InterestRepo) MarkDeclined(ctx context.Context, tx pgx.Tx, id int64, by enums.Actor, now time.Time) (bool, error) {
	if by != enums.ActorSender && by != enums.ActorReceiver {
		return false, fmt.Errorf("invalid decline actor")
	}
	return r.guardedUpdate(ctx, tx, `
UPDATE interests
SET status = 'declined', declined_at = $3, declined_by = $2
WHERE id = $1 AND status = 'pending'
`, id, string(by), now)
}

func (r *InterestRepo) MarkCancelled(ctx context.Context, tx pgx.Tx, id int64, now time.Time) (bool, error) {
	return r.guardedUpdate(ctx, tx, `
UPDATE interests
SET status = 'cancelled', cancelled_at = $2
WHERE id = $1 AND status = 'pending'
`, id, now)
}

// MarkRevoked transitions accepted -> revoked, preserving acceptance history.
func (r *InterestRepo) MarkRevoked(ctx context.Context, tx pgx.Tx, id int64, by enums.Actor, now time.Time) (bool, error) {
	if by != enums.ActorSender && by != enums.ActorReceiver {
		return false, fmt.Errorf("invalid revoke actor")
	}
	return r.guardedUpdate(ctx, tx, `
UPDATE interests
SET status = 'revoked', revoked_at = $3, revoked_by = $2
WHERE id = $1 AND status = 'accepted'
`, id, string(by), now)
}

// MarkBlocked records the pre-block status so an unblock can restore it.
func (r *InterestRepo) MarkBlocked(ctx context.Context, tx pgx.Tx, id int64, prior enums.InterestStatus, now time.Time) (bool, error) {
	return r.guardedUpdate(ctx, tx, `
UPDATE interests
SET status = 'blocked', blocked_at = $3, prior_status = $2
WHERE id = $1 AND status IN ('pending', 'accepted')
`, id, string(prior), now)
}

// ClearDecline reverses a decline back to pending, dropping the decline
// metadata. Used by undo.
func (r *InterestRepo) ClearDecline(ctx context.Context, tx pgx.Tx, id int64) (bool, error) {
	return r.guardedUpdate(ctx, tx, `
UPDATE interests
SET status = 'pending', declined_at = NULL, declined_by = NULL, contact_auto_declined = FALSE
WHERE id = $1 AND status = 'declined'
`, id)
}

func (r *InterestRepo) SetContactAutoDeclined(ctx context.Context, tx pgx.Tx, id int64, value bool) error {
	if id <= 0 {
		return fmt.Errorf("invalid interest id")
	}
	if tx == nil {
		return fmt.Errorf("transaction is required")
	}

	if _, err := tx.Exec(ctx, `
UPDATE interests
SET contact_auto_declined = $2
WHERE id = $1
`, id, value); err != nil {
		return fmt.Errorf("set contact auto-declined flag: %w", err)
	}

	return nil
}

// Restore moves a terminal record back to the given status, clearing the
// metadata of the transition being reversed. Reconsideration path.
func (r *InterestRepo) Restore(ctx context.Context, tx pgx.Tx, id int64, to enums.InterestStatus) (bool, error) {
	switch to {
	case enums.InterestPending:
		return r.guardedUpdate(ctx, tx, `
UPDATE interests
SET status = 'pending',
	declined_at = NULL, declined_by = NULL,
	cancelled_at = NULL,
	expired_at = NULL, expiry_reason = NULL,
	blocked_at = NULL, prior_status = NULL,
	contact_auto_declined = FALSE
WHERE id = $1 AND status IN ('declined', 'cancelled', 'expired', 'blocked')
`, id)
	case enums.InterestAccepted:
		return r.guardedUpdate(ctx, tx, `
UPDATE interests
SET status = 'accepted',
	revoked_at = NULL, revoked_by = NULL,
	blocked_at = NULL, prior_status = NULL
WHERE id = $1 AND status IN ('revoked', 'blocked')
`, id)
	default:
		return false, fmt.Errorf("unsupported restore status %q", to)
	}
}

// ExpireOverdue transitions every pending interest created before the cutoff
// to expired, in one idempotent statement, returning the affected rows.
func (r *InterestRepo) ExpireOverdue(ctx context.Context, cutoff, now time.Time, reason string, limit int) ([]model.Interest, error) {
	if r.pool == nil {
		return nil, fmt.Errorf("postgres pool is nil")
	}
	if limit <= 0 {
		limit = 500
	}

	rows, err := r.pool.Query(ctx, `
UPDATE interests
SET status = 'expired', expired_at = $2, expiry_reason = $3
WHERE id IN (
	SELECT id
	FROM interests
	WHERE status = 'pending' AND created_at < $1
	ORDER BY created_at
	LIMIT $4
)
	AND status = 'pending'
RETURNING `+interestColumns+`
`, cutoff, now, reason, limit)
	if err != nil {
		return nil, fmt.Errorf("expire overdue interests: %w", err)
	}
	defer rows.Close()

	var expired []model.Interest
	for rows.Next() {
		rec, err := scanInterest(rows)
		if err != nil {
			return nil, fmt.Errorf("scan expired interest: %w", err)
		}
		expired = append(expired, rec)
	}
	if rows.Err() != nil {
		return nil, fmt.Errorf("iterate expired interests: %w", rows.Err())
	}

	return expired, nil
}

func (r *InterestRepo) guardedUpdate(ctx context.Context, tx pgx.Tx, query string, args ...any) (bool, error) {
	if tx == nil {
		return false, fmt.Errorf("transaction is required")
	}

	result, err := tx.Exec(ctx, query, args...)
	if err != nil {
		return false, fmt.Errorf("update interest status: %w", err)
	}

	return result.RowsAffected() > 0, nil
}
