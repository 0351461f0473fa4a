package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/milanapp/engine/internal/domain/model"
)

var ErrProfileNotFound = errors.New("profile not found")

// IdentityRepo reads the account subsystem's profile projection: the
// user-id to profile-id mapping plus the tier and boost-pack counters the
// quota math needs.
type IdentityRepo struct {
	pool *pgxpool.Pool
}

func NewIdentityRepo(pool *pgxpool.Pool) *IdentityRepo {
	return &IdentityRepo{pool: pool}
}

const profileColumns = `
	profile_id,
	user_id,
	tier,
	interest_packs,
	contact_packs,
	created_at
`

func scanProfile(row pgx.Row) (model.Profile, error) {
	var rec model.Profile
	err := row.Scan(
		&rec.ProfileID,
		&rec.UserID,
		&rec.Tier,
		&rec.InterestPacks,
		&rec.ContactPacks,
		&rec.CreatedAt,
	)
	return rec, err
}

func (r *IdentityRepo) GetByProfileID(ctx context.Context, profileID int64) (model.Profile, error) {
	if profileID <= 0 {
		return model.Profile{}, fmt.Errorf("invalid profile id")
	}
	if r.pool == nil {
		return model.Profile{}, fmt.Errorf("postgres pool is nil")
	}

	rec, err := scanProfile(r.pool.QueryRow(ctx, `
SELECT `+profileColumns+`
FROM profiles
WHERE profile_id = $1
`, profileID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Profile{}, ErrProfileNotFound
		}
		return model.Profile{}, fmt.Errorf("get profile by id: %w", err)
	}

	return rec, nil
}

func (r *IdentityRepo) GetByUserID(ctx context.Context, userID int64) (model.Profile, error) {
	if userID <= 0 {
		return model.Profile{}, fmt.Errorf("invalid user id")
	}
	if r.pool == nil {
		return model.Profile{}, fmt.Errorf("postgres pool is nil")
	}

	rec, err := scanProfile(r.pool.QueryRow(ctx, `
SELECT `+profileColumns+`
FROM profiles
WHERE user_id = $1
`, userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Profile{}, ErrProfileNotFound
		}
		return model.Profile{}, fmt.Errorf("get profile by user id: %w", err)
	}

	return rec, nil
}

func (r *IdentityRepo) Exists(ctx context.Context, profileID int64) (bool, error) {
	if profileID <= 0 {
		return false, fmt.Errorf("invalid profile id")
	}
	if r.pool == nil {
		return false, fmt.Errorf("postgres pool is nil")
	}

	var one int
	err := r.pool.QueryRow(ctx, `
SELECT 1
FROM profiles
WHERE profile_id = $1
LIMIT 1
`, profileID).Scan(&one)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("lookup profile: %w", err)
	}

	return true, nil
}
