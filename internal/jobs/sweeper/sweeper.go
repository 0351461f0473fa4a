package sweeper

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/milanapp/engine/internal/domain/model"
	"github.com/milanapp/engine/internal/domain/rules"
	"github.com/milanapp/engine/internal/services/notify"
)

type InterestExpirer interface {
	ExpireOverdue(ctx context.Context, cutoff, now time.Time, reason string, limit int) ([]model.Interest, error)
}

type ContactExpirer interface {
	ExpireOverdue(ctx context.Context, cutoff, now time.Time, reason string, limit int) ([]model.ContactRequest, error)
}

type SeenStore interface {
	MarkSeen(ctx context.Context, subjectKind string, id int64, ttl time.Duration) (bool, error)
}

type IdentityStore interface {
	Exists(ctx context.Context, profileID int64) (bool, error)
}

type Notifier interface {
	Enqueue(event notify.Event)
}

// Job expires pending interests and contact requests whose decision window
// has lapsed. The database update is a guarded bulk statement, so
// overlapping runs are harmless; the seen store keeps a crashed run from
// announcing the same expiry twice.
type Job struct {
	interests  InterestExpirer
	contacts   ContactExpirer
	seen       SeenStore
	identities IdentityStore
	notifier   Notifier
	expiryDays int
	batchSize  int
	seenTTL    time.Duration
	now        func() time.Time
	logger     *zap.Logger
}

func New(
	interests InterestExpirer,
	contacts ContactExpirer,
	seen SeenStore,
	identities IdentityStore,
	notifier Notifier,
	expiryDays, batchSize int,
	logger *zap.Logger,
) *Job {
	if expiryDays <= 0 {
		expiryDays = rules.DefaultExpiryDays
	}
	if batchSize <= 0 {
		batchSize = 500
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Job{
		interests:  interests,
		contacts:   contacts,
		seen:       seen,
		identities: identities,
		notifier:   notifier,
		expiryDays: expiryDays,
		batchSize:  batchSize,
		seenTTL:    7 * 24 * time.Hour,
		now:        time.Now,
		logger:     logger,
	}
}

// Run performs one sweep pass.
func (j *Job) Run(ctx context.Context) error {
	now := j.now().UTC()
	cutoff := now.Add(-time.Duration(j.expiryDays) * 24 * time.Hour)

	if j.interests != nil {
		expired, err := j.interests.ExpireOverdue(ctx, cutoff, now, rules.ExpiryReasonTimeout, j.batchSize)
		if err != nil {
			return fmt.Errorf("expire overdue interests: %w", err)
		}
		for _, record := range expired {
			j.announce(ctx, model.SubjectInterest, record.ID, notify.Event{
				ProfileID:      record.FromProfileID,
				ActorProfileID: record.ToProfileID,
				Kind:           model.NotifyInterestExpired,
				SubjectKind:    model.SubjectInterest,
				SubjectID:      record.ID,
			})
		}
		if len(expired) > 0 {
			j.logger.Info("expired overdue interests", zap.Int("count", len(expired)))
		}
	}

	if j.contacts != nil {
		expired, err := j.contacts.ExpireOverdue(ctx, cutoff, now, rules.ExpiryReasonTimeout, j.batchSize)
		if err != nil {
			return fmt.Errorf("expire overdue contact requests: %w", err)
		}
		for _, record := range expired {
			j.announce(ctx, model.SubjectContact, record.ID, notify.Event{
				ProfileID:      record.FromProfileID,
				ActorProfileID: record.ToProfileID,
				Kind:           model.NotifyContactExpired,
				SubjectKind:    model.SubjectContact,
				SubjectID:      record.ID,
			})
		}
		if len(expired) > 0 {
			j.logger.Info("expired overdue contact requests", zap.Int("count", len(expired)))
		}
	}

	return nil
}

func (j *Job) announce(ctx context.Context, subjectKind string, subjectID int64, event notify.Event) {
	if j.notifier == nil {
		return
	}

	if j.identities != nil {
		// A profile deleted since the record was written gets no inbox entry.
		exists, err := j.identities.Exists(ctx, event.ProfileID)
		if err != nil {
			j.logger.Warn("check profile for expiry notification", zap.Int64("profile_id", event.ProfileID), zap.Error(err))
			return
		}
		if !exists {
			return
		}
	}

	if j.seen != nil {
		first, err := j.seen.MarkSeen(ctx, subjectKind, subjectID, j.seenTTL)
		if err != nil {
			j.logger.Warn("mark expiry seen", zap.Int64("subject_id", subjectID), zap.Error(err))
			return
		}
		if !first {
			return
		}
	}

	j.notifier.Enqueue(event)
}
