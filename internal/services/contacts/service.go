package contacts

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/milanapp/engine/internal/domain/enums"
	"github.com/milanapp/engine/internal/domain/model"
	pgrepo "github.com/milanapp/engine/internal/repo/postgres"
	"github.com/milanapp/engine/internal/services/notify"
	ratesvc "github.com/milanapp/engine/internal/services/rate"
)

var (
	ErrValidation      = errors.New("validation error")
	ErrDependenciesNil = errors.New("contacts dependencies are not configured")
	ErrSelfRequest     = errors.New("cannot request own contact details")
	ErrNotFound        = errors.New("contact request not found")
	ErrProfileNotFound = errors.New("profile not found")
	ErrAlreadyLive     = errors.New("live contact request already exists toward this profile")
	ErrBlockedPair     = errors.New("active block between profiles")
	ErrNotParticipant  = errors.New("caller is not a party to this contact request")
	ErrWrongActor      = errors.New("operation not permitted for this party")
	ErrWrongState      = errors.New("contact request is not in a state that permits this operation")
	// ErrInterestNotAccepted rejects an approval while no accepted interest
	// connects the pair.
	ErrInterestNotAccepted = errors.New("no accepted interest between profiles")
	// ErrCascadeUndo rejects undoing a request that was auto-declined by an
	// interest decline. The reversal path is undoing that decline.
	ErrCascadeUndo = errors.New("request was declined by an interest cascade")
)

type TooFastError struct {
	RetryAfterSec int64
}

func (e TooFastError) Error() string {
	return "too fast"
}

func IsTooFast(err error) (*TooFastError, bool) {
	var tf TooFastError
	if errors.As(err, &tf) {
		return &tf, true
	}
	return nil, false
}

type ContactStore interface {
	Create(ctx context.Context, tx pgx.Tx, params pgrepo.CreateContactRequestParams, now time.Time) (model.ContactRequest, error)
	GetForUpdate(ctx context.Context, tx pgx.Tx, id int64) (model.ContactRequest, error)
	GetByID(ctx context.Context, id int64) (model.ContactRequest, error)
	ExistsLiveFromTo(ctx context.Context, tx pgx.Tx, fromProfileID, toProfileID int64) (bool, error)
	MarkApproved(ctx context.Context, tx pgx.Tx, id int64, now time.Time) (bool, error)
	MarkDeclined(ctx context.Context, tx pgx.Tx, id int64, by enums.Actor, now time.Time) (bool, error)
	MarkCancelled(ctx context.Context, tx pgx.Tx, id int64, now time.Time) (bool, error)
	MarkRevoked(ctx context.Context, tx pgx.Tx, id int64, by enums.Actor, now time.Time) (bool, error)
	ClearDecline(ctx context.Context, tx pgx.Tx, id int64) (bool, error)
	MarkViewed(ctx context.Context, id int64, now time.Time) error
}

type InterestStore interface {
	ExistsLiveBetween(ctx context.Context, tx pgx.Tx, profileA, profileB int64) (bool, error)
	AcceptedExistsBetween(ctx context.Context, tx pgx.Tx, profileA, profileB int64) (bool, error)
	Create(ctx context.Context, tx pgx.Tx, fromProfileID, toProfileID int64, now time.Time) (model.Interest, error)
}

type BlockStore interface {
	ActiveBlockExists(ctx context.Context, tx pgx.Tx, profileA, profileB int64) (bool, error)
}

type MarkerStore interface {
	Create(ctx context.Context, tx pgx.Tx, declinerID, declinedID int64, kind enums.RelationshipKind, now time.Time) (model.DeclinedProfile, error)
	MarkPairReconsidered(ctx context.Context, tx pgx.Tx, declinerID, declinedID int64, kind enums.RelationshipKind) error
}

type IdentityStore interface {
	GetByUserID(ctx context.Context, userID int64) (model.Profile, error)
	GetByProfileID(ctx context.Context, profileID int64) (model.Profile, error)
}

type QuotaService interface {
	CanConsume(ctx context.Context, tx pgx.Tx, profile model.Profile, targetProfileID int64, kind enums.SlotKind) error
	Consume(ctx context.Context, tx pgx.Tx, profile model.Profile, targetProfileID int64, kind enums.SlotKind) error
}

type Notifier interface {
	Enqueue(event notify.Event)
}

type Dependencies struct {
	Pool        *pgxpool.Pool
	Contacts    ContactStore
	Interests   InterestStore
	Blocks      BlockStore
	Markers     MarkerStore
	Identities  IdentityStore
	Quota       QuotaService
	RateLimiter *ratesvc.Limiter
	Notifier    Notifier
}

type Service struct {
	pool        *pgxpool.Pool
	contacts    ContactStore
	interests   InterestStore
	blocks      BlockStore
	markers     MarkerStore
	identities  IdentityStore
	quota       QuotaService
	rateLimiter *ratesvc.Limiter
	notifier    Notifier
	runTx       func(ctx context.Context, fn func(context.Context, pgx.Tx) error) error
	now         func() time.Time
}

func NewService(deps Dependencies) *Service {
	s := &Service{
		pool:        deps.Pool,
		contacts:    deps.Contacts,
		interests:   deps.Interests,
		blocks:      deps.Blocks,
		markers:     deps.Markers,
		identities:  deps.Identities,
		quota:       deps.Quota,
		rateLimiter: deps.RateLimiter,
		notifier:    deps.Notifier,
		now:         time.Now,
	}
	s.runTx = func(ctx context.Context, fn func(context.Context, pgx.Tx) error) error {
		return pgrepo.WithTx(ctx, s.pool, fn)
	}
	return s
}

// Request creates a pending contact request from one user toward another.
// The command arrives in account-level user ids and is translated to
// profile ids here. The requester must have a contact slot available, but
// nothing is debited until approval. When no interest connects the pair
// yet, a pending interest from the requester is created alongside, since a
// contact request implies one.
func (s *Service) Request(ctx context.Context, fromUserID, toUserID int64) (model.ContactRequest, error) {
	if fromUserID <= 0 || toUserID <= 0 {
		return model.ContactRequest{}, ErrValidation
	}
	if fromUserID == toUserID {
		return model.ContactRequest{}, ErrSelfRequest
	}
	if s.contacts == nil || s.interests == nil || s.blocks == nil || s.identities == nil || s.quota == nil {
		return model.ContactRequest{}, ErrDependenciesNil
	}

	requester, err := s.identities.GetByUserID(ctx, fromUserID)
	if err != nil {
		return model.ContactRequest{}, s.mapProfileErr(err)
	}
	receiver, err := s.identities.GetByUserID(ctx, toUserID)
	if err != nil {
		return model.ContactRequest{}, s.mapProfileErr(err)
	}
	if requester.ProfileID == receiver.ProfileID {
		return model.ContactRequest{}, ErrSelfRequest
	}

	if s.rateLimiter != nil {
		retryAfter, allowed, err := s.rateLimiter.AllowContactRequest(ctx, requester.ProfileID)
		if err != nil {
			return model.ContactRequest{}, fmt.Errorf("consume contact rate limit: %w", err)
		}
		if !allowed {
			return model.ContactRequest{}, TooFastError{RetryAfterSec: retryAfter}
		}
	}

	var created model.ContactRequest
	if err := s.runTx(ctx, func(txCtx context.Context, tx pgx.Tx) error {
		blocked, err := s.blocks.ActiveBlockExists(txCtx, tx, requester.ProfileID, receiver.ProfileID)
		if err != nil {
			return err
		}
		if blocked {
			return ErrBlockedPair
		}

		live, err := s.contacts.ExistsLiveFromTo(txCtx, tx, requester.ProfileID, receiver.ProfileID)
		if err != nil {
			return err
		}
		if live {
			return ErrAlreadyLive
		}

		// Availability check only. The slot is debited at approval.
		if err := s.quota.CanConsume(txCtx, tx, requester, receiver.ProfileID, enums.SlotContact); err != nil {
			return err
		}

		now := s.now().UTC()
		interestLive, err := s.interests.ExistsLiveBetween(txCtx, tx, requester.ProfileID, receiver.ProfileID)
		if err != nil {
			return err
		}
		if !interestLive {
			if _, err := s.interests.Create(txCtx, tx, requester.ProfileID, receiver.ProfileID, now); err != nil {
				return err
			}
		}

		created, err = s.contacts.Create(txCtx, tx, pgrepo.CreateContactRequestParams{
			FromUserID:    fromUserID,
			ToUserID:      toUserID,
			FromProfileID: requester.ProfileID,
			ToProfileID:   receiver.ProfileID,
		}, now)
		return err
	}); err != nil {
		return model.ContactRequest{}, err
	}

	s.enqueue(notify.Event{
		ProfileID:      receiver.ProfileID,
		ActorProfileID: requester.ProfileID,
		Kind:           model.NotifyContactRequested,
		SubjectKind:    model.SubjectContact,
		SubjectID:      created.ID,
	})

	return created, nil
}

// Approve moves a pending request to approved and reveals contact details.
// Requires an accepted interest between the pair. Both parties pay: one
// contact slot is debited from each profile's own budget, atomically, so a
// quota failure on either side approves nothing.
func (s *Service) Approve(ctx context.Context, id, actorProfileID int64) (model.ContactRequest, error) {
	if id <= 0 || actorProfileID <= 0 {
		return model.ContactRequest{}, ErrValidation
	}
	if s.contacts == nil || s.interests == nil || s.identities == nil || s.quota == nil {
		return model.ContactRequest{}, ErrDependenciesNil
	}

	var approved model.ContactRequest
	if err := s.runTx(ctx, func(txCtx context.Context, tx pgx.Tx) error {
		record, err := s.getForUpdate(txCtx, tx, id)
		if err != nil {
			return err
		}
		if record.ToProfileID != actorProfileID {
			if record.FromProfileID == actorProfileID {
				return ErrWrongActor
			}
			return ErrNotParticipant
		}
		if record.Status != enums.ContactPending {
			return ErrWrongState
		}

		accepted, err := s.interests.AcceptedExistsBetween(txCtx, tx, record.FromProfileID, record.ToProfileID)
		if err != nil {
			return err
		}
		if !accepted {
			return ErrInterestNotAccepted
		}

		requester, err := s.identities.GetByProfileID(txCtx, record.FromProfileID)
		if err != nil {
			return s.mapProfileErr(err)
		}
		receiver, err := s.identities.GetByProfileID(txCtx, record.ToProfileID)
		if err != nil {
			return s.mapProfileErr(err)
		}

		if err := s.quota.Consume(txCtx, tx, requester, receiver.ProfileID, enums.SlotContact); err != nil {
			return err
		}
		if err := s.quota.Consume(txCtx, tx, receiver, requester.ProfileID, enums.SlotContact); err != nil {
			return err
		}

		now := s.now().UTC()
		ok, err := s.contacts.MarkApproved(txCtx, tx, id, now)
		if err != nil {
			return err
		}
		if !ok {
			return ErrWrongState
		}

		approved = record
		approved.Status = enums.ContactApproved
		approved.ApprovedAt = &now
		return nil
	}); err != nil {
		return model.ContactRequest{}, err
	}

	s.enqueue(notify.Event{
		ProfileID:      approved.FromProfileID,
		ActorProfileID: approved.ToProfileID,
		Kind:           model.NotifyContactApproved,
		SubjectKind:    model.SubjectContact,
		SubjectID:      approved.ID,
	})

	return approved, nil
}

// Decline moves a pending request to declined.
func (s *Service) Decline(ctx context.Context, id, actorProfileID int64) (model.ContactRequest, error) {
	if id <= 0 || actorProfileID <= 0 {
		return model.ContactRequest{}, ErrValidation
	}
	if s.contacts == nil || s.markers == nil {
		return model.ContactRequest{}, ErrDependenciesNil
	}

	var declined model.ContactRequest
	var by enums.Actor
	if err := s.runTx(ctx, func(txCtx context.Context, tx pgx.Tx) error {
		record, err := s.getForUpdate(txCtx, tx, id)
		if err != nil {
			return err
		}
		by, err = actorFor(record, actorProfileID)
		if err != nil {
			return err
		}
		if record.Status != enums.ContactPending {
			return ErrWrongState
		}

		now := s.now().UTC()
		ok, err := s.contacts.MarkDeclined(txCtx, tx, id, by, now)
		if err != nil {
			return err
		}
		if !ok {
			return ErrWrongState
		}

		if _, err := s.markers.Create(txCtx, tx, actorProfileID, record.OtherParty(actorProfileID), enums.RelationshipContact, now); err != nil {
			return err
		}

		declined = record
		declined.Status = enums.ContactDeclined
		declined.DeclinedAt = &now
		declined.DeclinedBy = by
		return nil
	}); err != nil {
		return model.ContactRequest{}, err
	}

	if by == enums.ActorReceiver {
		s.enqueue(notify.Event{
			ProfileID:      declined.FromProfileID,
			ActorProfileID: declined.ToProfileID,
			Kind:           model.NotifyContactDeclined,
			SubjectKind:    model.SubjectContact,
			SubjectID:      declined.ID,
		})
	}

	return declined, nil
}

// Cancel withdraws a pending request. Sender only.
func (s *Service) Cancel(ctx context.Context, id, actorProfileID int64) (model.ContactRequest, error) {
	if id <= 0 || actorProfileID <= 0 {
		return model.ContactRequest{}, ErrValidation
	}
	if s.contacts == nil || s.markers == nil {
		return model.ContactRequest{}, ErrDependenciesNil
	}

	var cancelled model.ContactRequest
	if err := s.runTx(ctx, func(txCtx context.Context, tx pgx.Tx) error {
		record, err := s.getForUpdate(txCtx, tx, id)
		if err != nil {
			return err
		}
		if record.FromProfileID != actorProfileID {
			if record.ToProfileID == actorProfileID {
				return ErrWrongActor
			}
			return ErrNotParticipant
		}
		if record.Status != enums.ContactPending {
			return ErrWrongState
		}

		now := s.now().UTC()
		ok, err := s.contacts.MarkCancelled(txCtx, tx, id, now)
		if err != nil {
			return err
		}
		if !ok {
			return ErrWrongState
		}

		if _, err := s.markers.Create(txCtx, tx, actorProfileID, record.ToProfileID, enums.RelationshipContact, now); err != nil {
			return err
		}

		cancelled = record
		cancelled.Status = enums.ContactCancelled
		cancelled.CancelledAt = &now
		return nil
	}); err != nil {
		return model.ContactRequest{}, err
	}

	return cancelled, nil
}

// Revoke withdraws an approved request from either side. Consumed contact
// slots stay consumed.
func (s *Service) Revoke(ctx context.Context, id, actorProfileID int64) (model.ContactRequest, error) {
	if id <= 0 || actorProfileID <= 0 {
		return model.ContactRequest{}, ErrValidation
	}
	if s.contacts == nil || s.markers == nil {
		return model.ContactRequest{}, ErrDependenciesNil
	}

	var revoked model.ContactRequest
	if err := s.runTx(ctx, func(txCtx context.Context, tx pgx.Tx) error {
		record, err := s.getForUpdate(txCtx, tx, id)
		if err != nil {
			return err
		}
		by, err := actorFor(record, actorProfileID)
		if err != nil {
			return err
		}
		if record.Status != enums.ContactApproved {
			return ErrWrongState
		}

		now := s.now().UTC()
		ok, err := s.contacts.MarkRevoked(txCtx, tx, id, by, now)
		if err != nil {
			return err
		}
		if !ok {
			return ErrWrongState
		}

		if _, err := s.markers.Create(txCtx, tx, actorProfileID, record.OtherParty(actorProfileID), enums.RelationshipContact, now); err != nil {
			return err
		}

		revoked = record
		revoked.Status = enums.ContactRevoked
		revoked.RevokedAt = &now
		revoked.RevokedBy = by
		return nil
	}); err != nil {
		return model.ContactRequest{}, err
	}

	return revoked, nil
}

// UndoDecline reverses the caller's own manual decline. A request declined
// by an interest cascade cannot be undone here.
func (s *Service) UndoDecline(ctx context.Context, id, actorProfileID int64) (model.ContactRequest, error) {
	if id <= 0 || actorProfileID <= 0 {
		return model.ContactRequest{}, ErrValidation
	}
	if s.contacts == nil || s.markers == nil {
		return model.ContactRequest{}, ErrDependenciesNil
	}

	var restored model.ContactRequest
	if err := s.runTx(ctx, func(txCtx context.Context, tx pgx.Tx) error {
		record, err := s.getForUpdate(txCtx, tx, id)
		if err != nil {
			return err
		}
		by, err := actorFor(record, actorProfileID)
		if err != nil {
			return err
		}
		if record.Status != enums.ContactDeclined {
			return ErrWrongState
		}
		if record.AutoDeclinedDueToInterest {
			return ErrCascadeUndo
		}
		if record.DeclinedBy != by {
			return ErrWrongActor
		}

		ok, err := s.contacts.ClearDecline(txCtx, tx, id)
		if err != nil {
			return err
		}
		if !ok {
			return ErrWrongState
		}

		if err := s.markers.MarkPairReconsidered(txCtx, tx, actorProfileID, record.OtherParty(actorProfileID), enums.RelationshipContact); err != nil {
			return err
		}

		restored = record
		restored.Status = enums.ContactPending
		restored.DeclinedAt = nil
		restored.DeclinedBy = ""
		return nil
	}); err != nil {
		return model.ContactRequest{}, err
	}

	return restored, nil
}

// MarkViewed records the receiver's first sight of a pending request.
// Idempotent; the decision timer is unaffected.
func (s *Service) MarkViewed(ctx context.Context, id, actorProfileID int64) error {
	if id <= 0 || actorProfileID <= 0 {
		return ErrValidation
	}
	if s.contacts == nil {
		return ErrDependenciesNil
	}

	record, err := s.contacts.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgrepo.ErrContactRequestNotFound) {
			return ErrNotFound
		}
		return err
	}
	if record.ToProfileID != actorProfileID {
		if record.FromProfileID == actorProfileID {
			return ErrWrongActor
		}
		return ErrNotParticipant
	}

	return s.contacts.MarkViewed(ctx, id, s.now().UTC())
}

// Get returns a contact request visible to one of its two parties.
func (s *Service) Get(ctx context.Context, id, actorProfileID int64) (model.ContactRequest, error) {
	if id <= 0 || actorProfileID <= 0 {
		return model.ContactRequest{}, ErrValidation
	}
	if s.contacts == nil {
		return model.ContactRequest{}, ErrDependenciesNil
	}

	record, err := s.contacts.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgrepo.ErrContactRequestNotFound) {
			return model.ContactRequest{}, ErrNotFound
		}
		return model.ContactRequest{}, err
	}
	if record.FromProfileID != actorProfileID && record.ToProfileID != actorProfileID {
		return model.ContactRequest{}, ErrNotParticipant
	}

	return record, nil
}

func (s *Service) getForUpdate(ctx context.Context, tx pgx.Tx, id int64) (model.ContactRequest, error) {
	record, err := s.contacts.GetForUpdate(ctx, tx, id)
	if err != nil {
		if errors.Is(err, pgrepo.ErrContactRequestNotFound) {
			return model.ContactRequest{}, ErrNotFound
		}
		return model.ContactRequest{}, err
	}
	return record, nil
}

func (s *Service) mapProfileErr(err error) error {
	if errors.Is(err, pgrepo.ErrProfileNotFound) {
		return ErrProfileNotFound
	}
	return err
}

func (s *Service) enqueue(event notify.Event) {
	if s.notifier != nil {
		s.notifier.Enqueue(event)
	}
}

func actorFor(record model.ContactRequest, profileID int64) (enums.Actor, error) {
	switch profileID {
	case record.FromProfileID:
		return enums.ActorSender, nil
	case record.ToProfileID:
		return enums.ActorReceiver, nil
	default:
		return "", ErrNotParticipant
	}
}
