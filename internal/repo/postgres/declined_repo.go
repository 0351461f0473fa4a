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

var ErrDeclineMarkerNotFound = errors.New("decline marker not found")

// DeclinedProfileRepo stores the relationship-level markers that the
// reconsideration flow operates on.
type DeclinedProfileRepo struct {
	pool *pgxpool.Pool
}

func NewDeclinedProfileRepo(pool *pgxpool.Pool) *DeclinedProfileRepo {
	return &DeclinedProfileRepo{pool: pool}
}

const declinedColumns = `
	id,
	decliner_profile_id,
	declined_profile_id,
	kind,
	declined_at,
	is_reconsidered
`

func scanDeclinedProfile(row pgx.Row) (model.DeclinedProfile, error) {
	var rec model.DeclinedProfile
	err := row.Scan(
		&rec.ID,
		&rec.DeclinerProfileID,
		&rec.DeclinedProfileID,
		&rec.Kind,
		&rec.DeclinedAt,
		&rec.IsReconsidered,
	)
	return rec, err
}

func (r *DeclinedProfileRepo) Create(ctx context.Context, tx pgx.Tx, declinerID, declinedID int64, kind enums.RelationshipKind, now time.Time) (model.DeclinedProfile, error) {
	if declinerID <= 0 || declinedID <= 0 {
		return model.DeclinedProfile{}, fmt.Errorf("invalid decline marker payload")
	}
	if tx == nil {
		return model.DeclinedProfile{}, fmt.Errorf("transaction is required")
	}

	rec, err := scanDeclinedProfile(tx.QueryRow(ctx, `
INSERT INTO declined_profiles (decliner_profile_id, declined_profile_id, kind, declined_at)
VALUES ($1, $2, $3, $4)
RETURNING `+declinedColumns+`
`, declinerID, declinedID, string(kind), now))
	if err != nil {
		return model.DeclinedProfile{}, fmt.Errorf("create decline marker: %w", err)
	}

	return rec, nil
}

// FindLatestUnreconsidered returns the newest marker of the given kind that
// has not been reconsidered yet, locked for update.
func (r *DeclinedProfileRepo) FindLatestUnreconsidered(ctx context.Context, tx pgx.Tx, declinerID, declinedID int64, kind enums.RelationshipKind) (model.DeclinedProfile, error) {
	if declinerID <= 0 || declinedID <= 0 {
		return model.DeclinedProfile{}, fmt.Errorf("invalid decline marker lookup payload")
	}
	if tx == nil {
		return model.DeclinedProfile{}, fmt.Errorf("transaction is required")
	}

	rec, err := scanDeclinedProfile(tx.QueryRow(ctx, `
SELECT `+declinedColumns+`
FROM declined_profiles
WHERE decliner_profile_id = $1
	AND declined_profile_id = $2
	AND kind = $3
	AND is_reconsidered = FALSE
ORDER BY declined_at DESC, id DESC
LIMIT 1
FOR UPDATE
`, declinerID, declinedID, string(kind)))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.DeclinedProfile{}, ErrDeclineMarkerNotFound
		}
		return model.DeclinedProfile{}, fmt.Errorf("find decline marker: %w", err)
	}

	return rec, nil
}

func (r *DeclinedProfileRepo) MarkReconsidered(ctx context.Context, tx pgx.Tx, id int64) (bool, error) {
	if id <= 0 {
		return false, fmt.Errorf("invalid decline marker id")
	}
	if tx == nil {
		return false, fmt.Errorf("transaction is required")
	}

	result, err := tx.Exec(ctx, `
UPDATE declined_profiles
SET is_reconsidered = TRUE
WHERE id = $1 AND is_reconsidered = FALSE
`, id)
	if err != nil {
		return false, fmt.Errorf("mark decline marker reconsidered: %w", err)
	}

	return result.RowsAffected() > 0, nil
}

// MarkPairReconsidered flips the unreconsidered markers of one kind between
// a pair. Used when an undo reverses a decline directly, so a later
// reconsideration cannot double-restore the same record.
func (r *DeclinedProfileRepo) MarkPairReconsidered(ctx context.Context, tx pgx.Tx, declinerID, declinedID int64, kind enums.RelationshipKind) error {
	if declinerID <= 0 || declinedID <= 0 {
		return fmt.Errorf("invalid decline marker payload")
	}
	if tx == nil {
		return fmt.Errorf("transaction is required")
	}

	if _, err := tx.Exec(ctx, `
UPDATE declined_profiles
SET is_reconsidered = TRUE
WHERE decliner_profile_id = $1
	AND declined_profile_id = $2
	AND kind = $3
	AND is_reconsidered = FALSE
`, declinerID, declinedID, string(kind)); err != nil {
		return fmt.Errorf("mark pair decline markers reconsidered: %w", err)
	}

	return nil
}
