package reconsider

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/milanapp/engine/internal/domain/enums"
	"github.com/milanapp/engine/internal/domain/model"
	pgrepo "github.com/milanapp/engine/internal/repo/postgres"
)

var (
	ErrValidation          = errors.New("validation error")
	ErrDependenciesNil     = errors.New("reconsider dependencies are not configured")
	ErrNothingToReconsider = errors.New("no reconsiderable decision toward this profile")
)

type MarkerStore interface {
	FindLatestUnreconsidered(ctx context.Context, tx pgx.Tx, declinerID, declinedID int64, kind enums.RelationshipKind) (model.DeclinedProfile, error)
	MarkReconsidered(ctx context.Context, tx pgx.Tx, id int64) (bool, error)
}

type InterestStore interface {
	LatestBetween(ctx context.Context, tx pgx.Tx, profileA, profileB int64) (model.Interest, error)
	Restore(ctx context.Context, tx pgx.Tx, id int64, to enums.InterestStatus) (bool, error)
}

type ContactStore interface {
	LatestBetween(ctx context.Context, tx pgx.Tx, profileA, profileB int64) (model.ContactRequest, error)
	Restore(ctx context.Context, tx pgx.Tx, id int64, to enums.ContactStatus) (bool, error)
}

type BlockStore interface {
	FindActive(ctx context.Context, tx pgx.Tx, blockerID, blockedID int64) (model.BlockedProfile, error)
	MarkUnblocked(ctx context.Context, tx pgx.Tx, id int64, now time.Time) (bool, error)
}

type Dependencies struct {
	Pool      *pgxpool.Pool
	Markers   MarkerStore
	Interests InterestStore
	Contacts  ContactStore
	Blocks    BlockStore
}

// Result reports what a reconsideration actually restored.
type Result struct {
	Kind             enums.RelationshipKind
	MarkerID         int64
	RestoredInterest *model.Interest
	RestoredContact  *model.ContactRequest
	Unblocked        bool
}

type Service struct {
	pool      *pgxpool.Pool
	markers   MarkerStore
	interests InterestStore
	contacts  ContactStore
	blocks    BlockStore
	runTx     func(ctx context.Context, fn func(context.Context, pgx.Tx) error) error
	now       func() time.Time
}

func NewService(deps Dependencies) *Service {
	s := &Service{
		pool:      deps.Pool,
		markers:   deps.Markers,
		interests: deps.Interests,
		contacts:  deps.Contacts,
		blocks:    deps.Blocks,
		now:       time.Now,
	}
	s.runTx = func(ctx context.Context, fn func(context.Context, pgx.Tx) error) error {
		return pgrepo.WithTx(ctx, s.pool, fn)
	}
	return s
}

// Reconsider reverses the caller's most recent unreconsidered decision of
// the given kind toward the other profile. A revoked record returns to its
// pre-revoke state; a declined, cancelled, or expired one returns to
// pending; a block is lifted and the blocked interest resumes its pre-block
// status. Each decision is reconsiderable exactly once. An expired record
// has no decision behind it; its sender may reconsider it back to pending,
// gated by the status itself rather than a marker.
func (s *Service) Reconsider(ctx context.Context, actorProfileID, otherProfileID int64, kind enums.RelationshipKind) (Result, error) {
	if actorProfileID <= 0 || otherProfileID <= 0 || actorProfileID == otherProfileID {
		return Result{}, ErrValidation
	}
	if s.markers == nil || s.interests == nil || s.contacts == nil || s.blocks == nil {
		return Result{}, ErrDependenciesNil
	}

	var result Result
	if err := s.runTx(ctx, func(txCtx context.Context, tx pgx.Tx) error {
		// Expiry is a sweep transition, not a party's decision, so no
		// marker exists for it. Those records are reconsiderable by the
		// sender without one; everything else requires a marker.
		hasMarker := true
		marker, err := s.markers.FindLatestUnreconsidered(txCtx, tx, actorProfileID, otherProfileID, kind)
		if err != nil {
			if !errors.Is(err, pgrepo.ErrDeclineMarkerNotFound) {
				return err
			}
			if kind == enums.RelationshipBlock {
				return ErrNothingToReconsider
			}
			hasMarker = false
		}
		result = Result{Kind: kind, MarkerID: marker.ID}

		switch kind {
		case enums.RelationshipInterest:
			if err := s.reconsiderInterest(txCtx, tx, actorProfileID, otherProfileID, hasMarker, &result); err != nil {
				return err
			}
		case enums.RelationshipContact:
			if err := s.reconsiderContact(txCtx, tx, actorProfileID, otherProfileID, hasMarker, &result); err != nil {
				return err
			}
		case enums.RelationshipBlock:
			if err := s.reconsiderBlock(txCtx, tx, actorProfileID, otherProfileID, &result); err != nil {
				return err
			}
		default:
			return ErrValidation
		}

		if !hasMarker {
			return nil
		}
		ok, err := s.markers.MarkReconsidered(txCtx, tx, marker.ID)
		if err != nil {
			return err
		}
		if !ok {
			return ErrNothingToReconsider
		}

		return nil
	}); err != nil {
		return Result{}, err
	}

	return result, nil
}

func (s *Service) reconsiderInterest(ctx context.Context, tx pgx.Tx, actorID, otherID int64, hasMarker bool, result *Result) error {
	record, err := s.interests.LatestBetween(ctx, tx, actorID, otherID)
	if err != nil {
		if errors.Is(err, pgrepo.ErrInterestNotFound) {
			return ErrNothingToReconsider
		}
		return err
	}
	if !hasMarker && (record.Status != enums.InterestExpired || record.FromProfileID != actorID) {
		return ErrNothingToReconsider
	}

	target, ok := interestRestoreTarget(record.Status)
	if !ok {
		return ErrNothingToReconsider
	}

	restored, err := s.interests.Restore(ctx, tx, record.ID, target)
	if err != nil {
		return err
	}
	if !restored {
		return ErrNothingToReconsider
	}

	record.Status = target
	clearInterestMetadata(&record)
	result.RestoredInterest = &record
	return nil
}

func (s *Service) reconsiderContact(ctx context.Context, tx pgx.Tx, actorID, otherID int64, hasMarker bool, result *Result) error {
	record, err := s.contacts.LatestBetween(ctx, tx, actorID, otherID)
	if err != nil {
		if errors.Is(err, pgrepo.ErrContactRequestNotFound) {
			return ErrNothingToReconsider
		}
		return err
	}
	if !hasMarker && (record.Status != enums.ContactExpired || record.FromProfileID != actorID) {
		return ErrNothingToReconsider
	}

	target, ok := contactRestoreTarget(record.Status)
	if !ok {
		return ErrNothingToReconsider
	}

	restored, err := s.contacts.Restore(ctx, tx, record.ID, target)
	if err != nil {
		return err
	}
	if !restored {
		return ErrNothingToReconsider
	}

	record.Status = target
	clearContactMetadata(&record)
	result.RestoredContact = &record
	return nil
}

func (s *Service) reconsiderBlock(ctx context.Context, tx pgx.Tx, actorID, otherID int64, result *Result) error {
	block, err := s.blocks.FindActive(ctx, tx, actorID, otherID)
	if err != nil {
		if errors.Is(err, pgrepo.ErrBlockNotFound) {
			return ErrNothingToReconsider
		}
		return err
	}

	now := s.now().UTC()
	unblocked, err := s.blocks.MarkUnblocked(ctx, tx, block.ID, now)
	if err != nil {
		return err
	}
	if !unblocked {
		return ErrNothingToReconsider
	}
	result.Unblocked = true

	record, err := s.interests.LatestBetween(ctx, tx, actorID, otherID)
	if err != nil {
		if errors.Is(err, pgrepo.ErrInterestNotFound) {
			return nil
		}
		return err
	}
	if record.Status != enums.InterestBlocked {
		return nil
	}

	target := record.PriorStatus
	if target != enums.InterestAccepted {
		target = enums.InterestPending
	}
	restored, err := s.interests.Restore(ctx, tx, record.ID, target)
	if err != nil {
		return err
	}
	if restored {
		record.Status = target
		clearInterestMetadata(&record)
		result.RestoredInterest = &record
	}

	return nil
}

func interestRestoreTarget(status enums.InterestStatus) (enums.InterestStatus, bool) {
	switch status {
	case enums.InterestRevoked:
		return enums.InterestAccepted, true
	case enums.InterestDeclined, enums.InterestCancelled, enums.InterestExpired:
		return enums.InterestPending, true
	default:
		return "", false
	}
}

func contactRestoreTarget(status enums.ContactStatus) (enums.ContactStatus, bool) {
	switch status {
	case enums.ContactRevoked:
		return enums.ContactApproved, true
	case enums.ContactDeclined, enums.ContactCancelled, enums.ContactExpired:
		return enums.ContactPending, true
	default:
		return "", false
	}
}

func clearInterestMetadata(record *model.Interest) {
	record.DeclinedAt = nil
	record.DeclinedBy = ""
	record.RevokedAt = nil
	record.RevokedBy = ""
	record.BlockedAt = nil
	record.CancelledAt = nil
	record.ExpiredAt = nil
	record.ExpiryReason = ""
	record.PriorStatus = ""
	record.ContactAutoDeclined = false
}

func clearContactMetadata(record *model.ContactRequest) {
	record.DeclinedAt = nil
	record.DeclinedBy = ""
	record.RevokedAt = nil
	record.RevokedBy = ""
	record.CancelledAt = nil
	record.ExpiredAt = nil
	record.ExpiryReason = ""
	record.AutoDeclinedDueToInterest = false
}
