package redis

import (
	"context"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

// SweepRepo deduplicates expiry notifications across sweeper runs. The
// sweep's bulk update is idempotent at the database, but notification
// fan-out happens after it, so a crashed run could re-observe rows it
// already announced. The seen set absorbs that.
type SweepRepo struct {
	client *goredis.Client
}

func NewSweepRepo(client *goredis.Client) *SweepRepo {
	return &SweepRepo{client: client}
}

func seenKey(subjectKind string, id int64) string {
	return fmt.Sprintf("sweep:seen:%s:%d", subjectKind, id)
}

// MarkSeen records that the record's expiry was announced. Returns true on
// first sight, false when a previous run already announced it.
func (r *SweepRepo) MarkSeen(ctx context.Context, subjectKind string, id int64, ttl time.Duration) (bool, error) {
	if r.client == nil {
		return false, fmt.Errorf("redis client is nil")
	}
	if subjectKind == "" || id <= 0 {
		return false, fmt.Errorf("invalid sweep seen payload")
	}
	if ttl <= 0 {
		ttl = 7 * 24 * time.Hour
	}

	first, err := r.client.SetNX(ctx, seenKey(subjectKind, id), 1, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("mark expiry seen: %w", err)
	}

	return first, nil
}
