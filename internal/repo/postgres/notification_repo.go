package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/milanapp/engine/internal/domain/model"
)

type NotificationRepo struct {
	pool *pgxpool.Pool
}

func NewNotificationRepo(pool *pgxpool.Pool) *NotificationRepo {
	return &NotificationRepo{pool: pool}
}

type InsertNotificationParams struct {
	ProfileID      int64
	ActorProfileID int64
	Kind           string
	SubjectKind    string
	SubjectID      int64
}

func (r *NotificationRepo) Insert(ctx context.Context, params InsertNotificationParams, now time.Time) (model.Notification, error) {
	if params.ProfileID <= 0 || params.Kind == "" || params.SubjectID <= 0 {
		return model.Notification{}, fmt.Errorf("invalid notification payload")
	}
	if r.pool == nil {
		return model.Notification{}, fmt.Errorf("postgres pool is nil")
	}

	rec := model.Notification{
		ID:             uuid.NewString(),
		ProfileID:      params.ProfileID,
		ActorProfileID: params.ActorProfileID,
		Kind:           params.Kind,
		SubjectKind:    params.SubjectKind,
		SubjectID:      params.SubjectID,
		CreatedAt:      now,
	}

	if _, err := r.pool.Exec(ctx, `
INSERT INTO notifications (id, profile_id, actor_profile_id, kind, subject_kind, subject_id, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)
`, rec.ID, rec.ProfileID, rec.ActorProfileID, rec.Kind, rec.SubjectKind, rec.SubjectID, rec.CreatedAt); err != nil {
		return model.Notification{}, fmt.Errorf("insert notification: %w", err)
	}

	return rec, nil
}

func (r *NotificationRepo) ListForProfile(ctx context.Context, profileID int64, limit int) ([]model.Notification, error) {
	if profileID <= 0 {
		return nil, fmt.Errorf("invalid profile id")
	}
	if r.pool == nil {
		return nil, fmt.Errorf("postgres pool is nil")
	}
	if limit <= 0 || limit > 100 {
		limit = 50
	}

	rows, err := r.pool.Query(ctx, `
SELECT id, profile_id, actor_profile_id, kind, subject_kind, subject_id, created_at
FROM notifications
WHERE profile_id = $1
ORDER BY created_at DESC, id DESC
LIMIT $2
`, profileID, limit)
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	defer rows.Close()

	var items []model.Notification
	for rows.Next() {
		var rec model.Notification
		if err := rows.Scan(
			&rec.ID,
			&rec.ProfileID,
			&rec.ActorProfileID,
			&rec.Kind,
			&rec.SubjectKind,
			&rec.SubjectID,
			&rec.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan notification: %w", err)
		}
		items = append(items, rec)
	}
	if rows.Err() != nil {
		return nil, fmt.Errorf("iterate notifications: %w", rows.Err())
	}

	return items, nil
}
