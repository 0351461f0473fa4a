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

var ErrContactRequestNotFound = errors.New("contact request not found")

type ContactRequestRepo struct {
	pool *pgxpool.Pool
}

func NewContactRequestRepo(pool *pgxpool.Pool) *ContactRequestRepo {
	return &ContactRequestRepo{pool: pool}
}

const contactColumns = `
	id,
	from_user_id,
	to_user_id,
	from_profile_id,
	to_profile_id,
	status,
	created_at,
	approved_at,
	declined_at,
	COALESCE(declined_by, ''),
	revoked_at,
	COALESCE(revoked_by, ''),
	cancelled_at,
	expired_at,
	COALESCE(expiry_reason, ''),
	viewed_by_receiver_at,
	auto_declined_due_to_interest
`

func scanContactRequest(row pgx.Row) (model.ContactRequest, error) {
	var rec model.ContactRequest
	err := row.Scan(
		&rec.ID,
		&rec.FromUserID,
		&rec.ToUserID,
		&rec.FromProfileID,
		&rec.ToProfileID,
		&rec.Status,
		&rec.CreatedAt,
		&rec.ApprovedAt,
		&rec.DeclinedAt,
		&rec.DeclinedBy,
		&rec.RevokedAt,
		&rec.RevokedBy,
		&rec.CancelledAt,
		&rec.ExpiredAt,
		&rec.ExpiryReason,
		&rec.ViewedByReceiverAt,
		&rec.AutoDeclinedDueToInterest,
	)
	return rec, err
}

type CreateContactRequestParams struct {
	FromUserID    int64
	ToUserID      int64
	FromProfileID int64
	ToProfileID   int64
}

func (r *ContactRequestRepo) Create(ctx context.Context, tx pgx.Tx, params CreateContactRequestParams, now time.Time) (model.ContactRequest, error) {
	if params.FromUserID <= 0 || params.ToUserID <= 0 || params.FromProfileID <= 0 || params.ToProfileID <= 0 {
		return model.ContactRequest{}, fmt.Errorf("invalid contact request payload")
	}
	if tx == nil {
		return model.ContactRequest{}, fmt.Errorf("transaction is required")
	}

	rec, err := scanContactRequest(tx.QueryRow(ctx, `
INSERT INTO contact_requests (
	from_user_id,
	to_user_id,
	from_profile_id,
	to_profile_id,
	status,
	created_at
) VALUES ($1, $2, $3, $4, 'pending', $5)
RETURNING `+contactColumns+`
`, params.FromUserID, params.ToUserID, params.FromProfileID, params.ToProfileID, now))
	if err != nil {
		return model.ContactRequest{}, fmt.Errorf("create contact request: %w", err)
	}

	return rec, nil
}

func (r *ContactRequestRepo) GetForUpdate(ctx context.Context, tx pgx.Tx, id int64) (model.ContactRequest, error) {
	if id <= 0 {
		return model.ContactRequest{}, fmt.Errorf("invalid contact request id")
	}
	if tx == nil {
		return model.ContactRequest{}, fmt.Errorf("transaction is required")
	}

	rec, err := scanContactRequest(tx.QueryRow(ctx, `
SELECT `+contactColumns+`
FROM contact_requests
WHERE id = $1
FOR UPDATE
`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.ContactRequest{}, ErrContactRequestNotFound
		}
		return model.ContactRequest{}, fmt.Errorf("get contact request for update: %w", err)
	}

	return rec, nil
}

func (r *ContactRequestRepo) GetByID(ctx context.Context, id int64) (model.ContactRequest, error) {
	if id <= 0 {
		return model.ContactRequest{}, fmt.Errorf("invalid contact request id")
	}
	if r.pool == nil {
		return model.ContactRequest{}, fmt.Errorf("postgres pool is nil")
	}

	rec, err := scanContactRequest(r.pool.QueryRow(ctx, `
SELECT `+contactColumns+`
FROM contact_requests
WHERE id = $1
`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.ContactRequest{}, ErrContactRequestNotFound
		}
		return model.ContactRequest{}, fmt.Errorf("get contact request: %w", err)
	}

	return rec, nil
}

// ExistsLiveFromTo reports whether a pending or approved request exists in
// the given direction.
func (r *ContactRequestRepo) ExistsLiveFromTo(ctx context.Context, tx pgx.Tx, fromProfileID, toProfileID int64) (bool, error) {
	if fromProfileID <= 0 || toProfileID <= 0 {
		return false, fmt.Errorf("invalid contact request lookup payload")
	}
	if tx == nil {
		return false, fmt.Errorf("transaction is required")
	}

	var one int
	err := tx.QueryRow(ctx, `
SELECT 1
FROM contact_requests
WHERE from_profile_id = $1 AND to_profile_id = $2
	AND status IN ('pending', 'approved')
LIMIT 1
`, fromProfileID, toProfileID).Scan(&one)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("lookup live contact request: %w", err)
	}

	return true, nil
}

// LatestBetween returns the most recent request between the two profiles in
// either direction, locked for update.
func (r *ContactRequestRepo) LatestBetween(ctx context.Context, tx pgx.Tx, profileA, profileB int64) (model.ContactRequest, error) {
	if profileA <= 0 || profileB <= 0 {
		return model.ContactRequest{}, fmt.Errorf("invalid contact request lookup payload")
	}
	if tx == nil {
		return model.ContactRequest{}, fmt.Errorf("transaction is required")
	}

	rec, err := scanContactRequest(tx.QueryRow(ctx, `
SELECT `+contactColumns+`
FROM contact_requests
WHERE (from_profile_id = $1 AND to_profile_id = $2)
	OR (from_profile_id = $2 AND to_profile_id = $1)
ORDER BY created_at DESC, id DESC
LIMIT 1
FOR UPDATE
`, profileA, profileB))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.ContactRequest{}, ErrContactRequestNotFound
		}
		return model.ContactRequest{}, fmt.Errorf("get latest contact request between profiles: %w", err)
	}

	return rec, nil
}

func (r *ContactRequestRepo) MarkApproved(ctx context.Context, tx pgx.Tx, id int64, now time.Time) (bool, error) {
	return r.guardedUpdate(ctx, tx, `
UPDATE contact_requests
SET status = 'approved', approved_at = $2
WHERE id = $1 AND status = 'pending'
`, id, now)
}

func (r *ContactRequestRepo) MarkDeclined(ctx context.Context, tx pgx.Tx, id int64, by enums.Actor, now time.Time) (bool, error) {
	if by != enums.ActorSender && by != enums.ActorReceiver {
		return false, fmt.Errorf("invalid decline actor")
	}
	return r.guardedUpdate(ctx, tx, `
UPDATE contact_requests
SET status = 'declined', declined_at = $3, declined_by = $2
WHERE id = $1 AND status = 'pending'
`, id, string(by), now)
}

func (r *ContactRequestRepo) MarkCancelled(ctx context.Context, tx pgx.Tx, id int64, now time.Time) (bool, error) {
	return r.guardedUpdate(ctx, tx, `
UPDATE contact_requests
SET status = 'cancelled', cancelled_at = $2
WHERE id = $1 AND status = 'pending'
`, id, now)
}

func (r *ContactRequestRepo) MarkRevoked(ctx context.Context, tx pgx.Tx, id int64, by enums.Actor, now time.Time) (bool, error) {
	if by != enums.ActorSender && by != enums.ActorReceiver {
		return false, fmt.Errorf("invalid revoke actor")
	}
	return r.guardedUpdate(ctx, tx, `
UPDATE contact_requests
SET status = 'revoked', revoked_at = $3, revoked_by = $2
WHERE id = $1 AND status = 'approved'
`, id, string(by), now)
}

// DeclineAllPendingFrom force-declines every pending request from one
// profile to another, tagging the cascade. Block path.
func (r *ContactRequestRepo) DeclineAllPendingFrom(ctx context.Context, tx pgx.Tx, fromProfileID, toProfileID int64, now time.Time) (int64, error) {
	if fromProfileID <= 0 || toProfileID <= 0 {
		return 0, fmt.Errorf("invalid contact request cascade payload")
	}
	if tx == nil {
		return 0, fmt.Errorf("transaction is required")
	}

	result, err := tx.Exec(ctx, `
UPDATE contact_requests
SET status = 'declined', declined_at = $3, declined_by = 'receiver', auto_declined_due_to_interest = TRUE
WHERE from_profile_id = $1 AND to_profile_id = $2 AND status = 'pending'
`, fromProfileID, toProfileID, now)
	if err != nil {
		return 0, fmt.Errorf("auto-decline pending contact requests: %w", err)
	}

	return result.RowsAffected(), nil
}

// RestoreAutoDeclined moves the cascade-declined request of a pair back to
// pending, clearing the cascade tag. Returns false when no flagged declined
// request exists.
func (r *ContactRequestRepo) RestoreAutoDeclined(ctx context.Context, tx pgx.Tx, fromProfileID, toProfileID int64) (bool, error) {
	if fromProfileID <= 0 || toProfileID <= 0 {
		return false, fmt.Errorf("invalid contact request restore payload")
	}
	if tx == nil {
		return false, fmt.Errorf("transaction is required")
	}

	result, err := tx.Exec(ctx, `
UPDATE contact_requests
SET status = 'pending', declined_at = NULL, declined_by = NULL, auto_declined_due_to_interest = FALSE
WHERE from_profile_id = $1 AND to_profile_id = $2
	AND status = 'declined'
	AND auto_declined_due_to_interest = TRUE
`, fromProfileID, toProfileID)
	if err != nil {
		return false, fmt.Errorf("restore auto-declined contact request: %w", err)
	}

	return result.RowsAffected() > 0, nil
}

// ClearDecline reverses a manual decline back to pending. Undo path.
func (r *ContactRequestRepo) ClearDecline(ctx context.Context, tx pgx.Tx, id int64) (bool, error) {
	return r.guardedUpdate(ctx, tx, `
UPDATE contact_requests
SET status = 'pending', declined_at = NULL, declined_by = NULL
WHERE id = $1 AND status = 'declined'
`, id)
}

// Restore moves a terminal record back to the given status. Reconsideration.
func (r *ContactRequestRepo) Restore(ctx context.Context, tx pgx.Tx, id int64, to enums.ContactStatus) (bool, error) {
	switch to {
	case enums.ContactPending:
		return r.guardedUpdate(ctx, tx, `
UPDATE contact_requests
SET status = 'pending',
	declined_at = NULL, declined_by = NULL,
	cancelled_at = NULL,
	expired_at = NULL, expiry_reason = NULL,
	auto_declined_due_to_interest = FALSE
WHERE id = $1 AND status IN ('declined', 'cancelled', 'expired')
`, id)
	case enums.ContactApproved:
		return r.guardedUpdate(ctx, tx, `
UPDATE contact_requests
SET status = 'approved',
	revoked_at = NULL, revoked_by = NULL
WHERE id = $1 AND status = 'revoked'
`, id)
	default:
		return false, fmt.Errorf("unsupported restore status %q", to)
	}
}

// MarkViewed records the first time the receiver observed the request. Later
// calls are no-ops.
func (r *ContactRequestRepo) MarkViewed(ctx context.Context, id int64, now time.Time) error {
	if id <= 0 {
		return fmt.Errorf("invalid contact request id")
	}
	if r.pool == nil {
		return fmt.Errorf("postgres pool is nil")
	}

	if _, err := r.pool.Exec(ctx, `
UPDATE contact_requests
SET viewed_by_receiver_at = $2
WHERE id = $1 AND viewed_by_receiver_at IS NULL
`, id, now); err != nil {
		return fmt.Errorf("mark contact request viewed: %w", err)
	}

	return nil
}

// ExpireOverdue transitions every pending request created before the cutoff
// to expired, returning the affected rows.
func (r *ContactRequestRepo) ExpireOverdue(ctx context.Context, cutoff, now time.Time, reason string, limit int) ([]model.ContactRequest, error) {
	if r.pool == nil {
		return nil, fmt.Errorf("postgres pool is nil")
	}
	if limit <= 0 {
		limit = 500
	}

	rows, err := r.pool.Query(ctx, `
UPDATE contact_requests
SET status = 'expired', expired_at = $2, expiry_reason = $3
WHERE id IN (
	SELECT id
	FROM contact_requests
	WHERE status = 'pending' AND created_at < $1
	ORDER BY created_at
	LIMIT $4
)
	AND status = 'pending'
RETURNING `+contactColumns+`
`, cutoff, now, reason, limit)
	if err != nil {
		return nil, fmt.Errorf("expire overdue contact requests: %w", err)
	}
	defer rows.Close()

	var expired []model.ContactRequest
	for rows.Next() {
		rec, err := scanContactRequest(rows)
		if err != nil {
			return nil, fmt.Errorf("scan expired contact request: %w", err)
		}
		expired = append(expired, rec)
	}
	if rows.Err() != nil {
		return nil, fmt.Errorf("iterate expired contact requests: %w", rows.Err())
	}

	return expired, nil
}

func (r *ContactRequestRepo) guardedUpdate(ctx context.Context, tx pgx.Tx, query string, args ...any) (bool, error) {
	if tx == nil {
		return false, fmt.Errorf("transaction is required")
	}

	result, err := tx.Exec(ctx, query, args...)
	if err != nil {
		return false, fmt.Errorf("update contact request status: %w", err)
	}

	return result.RowsAffected() > 0, nil
}
