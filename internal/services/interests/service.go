package interests

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
	ErrDependenciesNil = errors.New("interests dependencies are not configured")
	ErrSelfInterest    = errors.New("cannot express interest in own profile")
	ErrNotFound        = errors.New("interest not found")
	ErrAlreadyLive     = errors.New("live interest already exists between profiles")
	ErrBlockedPair     = errors.New("active block between profiles")
	ErrNotParticipant  = errors.New("caller is not a party to this interest")
	ErrWrongActor      = errors.New("operation not permitted for this party")
	ErrWrongState      = errors.New("interest is not in a state that permits this operation")
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

type InterestStore interface {
	Create(ctx context.Context, tx pgx.Tx, fromProfileID, toProfileID int64, now time.Time) (model.Interest, error)
	GetForUpdate(ctx context.Context, tx pgx.Tx, id int64) (model.Interest, error)
	GetByID(ctx context.Context, id int64) (model.Interest, error)
	ExistsLiveBetween(ctx context.Context, tx pgx.Tx, profileA, profileB int64) (bool, error)
	MarkAccepted(ctx context.Context, tx pgx.Tx, id int64, now time.Time) (bool, error)
	MarkDeclined(ctx context.Context, tx pgx.Tx, id int64, by enums.Actor, now time.Time) (bool, error)
	MarkCancelled(ctx context.Context, tx pgx.Tx, id int64, now time.Time) (bool, error)
	MarkRevoked(ctx context.Context, tx pgx.Tx, id int64, by enums.Actor, now time.Time) (bool, error)
	MarkBlocked(ctx context.Context, tx pgx.Tx, id int64, prior enums.InterestStatus, now time.Time) (bool, error)
	ClearDecline(ctx context.Context, tx pgx.Tx, id int64) (bool, error)
	SetContactAutoDeclined(ctx context.Context, tx pgx.Tx, id int64, value bool) error
}

type ContactCascadeStore interface {
	DeclineAllPendingFrom(ctx context.Context, tx pgx.Tx, fromProfileID, toProfileID int64, now time.Time) (int64, error)
	RestoreAutoDeclined(ctx context.Context, tx pgx.Tx, fromProfileID, toProfileID int64) (bool, error)
}

type BlockStore interface {
	Create(ctx context.Context, tx pgx.Tx, params pgrepo.CreateBlockParams, now time.Time) (model.BlockedProfile, error)
	ActiveBlockExists(ctx context.Context, tx pgx.Tx, profileA, profileB int64) (bool, error)
}

type MarkerStore interface {
	Create(ctx context.Context, tx pgx.Tx, declinerID, declinedID int64, kind enums.RelationshipKind, now time.Time) (model.DeclinedProfile, error)
	MarkPairReconsidered(ctx context.Context, tx pgx.Tx, declinerID, declinedID int64, kind enums.RelationshipKind) error
}

type ProfileStore interface {
	GetByProfileID(ctx context.Context, profileID int64) (model.Profile, error)
}

// SlotDebiter debits quota slots inside the caller's transaction.
type SlotDebiter interface {
	Consume(ctx context.Context, tx pgx.Tx, profile model.Profile, targetProfileID int64, kind enums.SlotKind) error
}

type MessageStore interface {
	CreateSystem(ctx context.Context, tx pgx.Tx, fromProfileID, toProfileID int64, body string, now time.Time) (model.ConversationMessage, error)
}

type Notifier interface {
	Enqueue(event notify.Event)
}

type Dependencies struct {
	Pool        *pgxpool.Pool
	Interests   InterestStore
	Contacts    ContactCascadeStore
	Blocks      BlockStore
	Markers     MarkerStore
	Profiles    ProfileStore
	Quota       SlotDebiter
	RateLimiter *ratesvc.Limiter
	Messages    MessageStore
	Notifier    Notifier
}

type Service struct {
	pool        *pgxpool.Pool
	interests   InterestStore
	contacts    ContactCascadeStore
	blocks      BlockStore
	markers     MarkerStore
	profiles    ProfileStore
	quota       SlotDebiter
	rateLimiter *ratesvc.Limiter
	messages    MessageStore
	notifier    Notifier
	runTx       func(ctx context.Context, fn func(context.Context, pgx.Tx) error) error
	now         func() time.Time
}

func NewService(deps Dependencies) *Service {
	s := &Service{
		pool:        deps.Pool,
		interests:   deps.Interests,
		contacts:    deps.Contacts,
		blocks:      deps.Blocks,
		markers:     deps.Markers,
		profiles:    deps.Profiles,
		quota:       deps.Quota,
		rateLimiter: deps.RateLimiter,
		messages:    deps.Messages,
		notifier:    deps.Notifier,
		now:         time.Now,
	}
	s.runTx = func(ctx context.Context, fn func(context.Context, pgx.Tx) error) error {
		return pgrepo.WithTx(ctx, s.pool, fn)
	}
	return s
}

// Express creates a pending interest toward the target profile. Sending is
// free; the quota debit happens at acceptance.
func (s *Service) Express(ctx context.Context, fromProfileID, toProfileID int64) (model.Interest, error) {
	if fromProfileID <= 0 || toProfileID <= 0 {
		return model.Interest{}, ErrValidation
	}
	if fromProfileID == toProfileID {
		return model.Interest{}, ErrSelfInterest
	}
	if s.interests == nil || s.blocks == nil {
		return model.Interest{}, ErrDependenciesNil
	}

	if s.rateLimiter != nil {
		retryAfter, allowed, err := s.rateLimiter.AllowExpressInterest(ctx, fromProfileID)
		if err != nil {
			return model.Interest{}, fmt.Errorf("consume interest rate limit: %w", err)
		}
		if !allowed {
			return model.Interest{}, TooFastError{RetryAfterSec: retryAfter}
		}
	}

	var created model.Interest
	if err := s.runTx(ctx, func(txCtx context.Context, tx pgx.Tx) error {
		blocked, err := s.blocks.ActiveBlockExists(txCtx, tx, fromProfileID, toProfileID)
		if err != nil {
			return err
		}
		if blocked {
			return ErrBlockedPair
		}

		live, err := s.interests.ExistsLiveBetween(txCtx, tx, fromProfileID, toProfileID)
		if err != nil {
			return err
		}
		if live {
			return ErrAlreadyLive
		}

		created, err = s.interests.Create(txCtx, tx, fromProfileID, toProfileID, s.now().UTC())
		return err
	}); err != nil {
		return model.Interest{}, err
	}

	s.enqueue(notify.Event{
		ProfileID:      toProfileID,
		ActorProfileID: fromProfileID,
		Kind:           model.NotifyInterestReceived,
		SubjectKind:    model.SubjectInterest,
		SubjectID:      created.ID,
	})

	return created, nil
}

// Accept moves a pending interest to accepted. One chat slot is debited
// from the SENDER's budget: acceptance is what opens the conversation the
// sender asked for. The receiver pays nothing here.
func (s *Service) Accept(ctx context.Context, id, actorProfileID int64) (model.Interest, error) {
	if id <= 0 || actorProfileID <= 0 {
		return model.Interest{}, ErrValidation
	}
	if s.interests == nil || s.profiles == nil || s.quota == nil {
		return model.Interest{}, ErrDependenciesNil
	}

	var accepted model.Interest
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
		if record.Status != enums.InterestPending {
			return ErrWrongState
		}

		sender, err := s.profiles.GetByProfileID(txCtx, record.FromProfileID)
		if err != nil {
			return fmt.Errorf("load sender profile: %w", err)
		}
		if err := s.quota.Consume(txCtx, tx, sender, record.ToProfileID, enums.SlotChat); err != nil {
			return err
		}

		now := s.now().UTC()
		ok, err := s.interests.MarkAccepted(txCtx, tx, id, now)
		if err != nil {
			return err
		}
		if !ok {
			return ErrWrongState
		}

		if s.messages != nil {
			if _, err := s.messages.CreateSystem(txCtx, tx, record.ToProfileID, record.FromProfileID,
				"Your interest was accepted. You can now start a conversation.", now); err != nil {
				return err
			}
		}

		accepted = record
		accepted.Status = enums.InterestAccepted
		accepted.AcceptedAt = &now
		return nil
	}); err != nil {
		return model.Interest{}, err
	}

	s.enqueue(notify.Event{
		ProfileID:      accepted.FromProfileID,
		ActorProfileID: accepted.ToProfileID,
		Kind:           model.NotifyInterestAccepted,
		SubjectKind:    model.SubjectInterest,
		SubjectID:      accepted.ID,
	})

	return accepted, nil
}

// Decline moves a pending interest to declined. A receiver decline also
// force-declines any pending contact request from the same sender, since a
// contact request presumes an interest the receiver just rejected.
func (s *Service) Decline(ctx context.Context, id, actorProfileID int64) (model.Interest, error) {
	if id <= 0 || actorProfileID <= 0 {
		return model.Interest{}, ErrValidation
	}
	if s.interests == nil || s.markers == nil {
		return model.Interest{}, ErrDependenciesNil
	}

	var declined model.Interest
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
		if record.Status != enums.InterestPending {
			return ErrWrongState
		}

		now := s.now().UTC()
		ok, err := s.interests.MarkDeclined(txCtx, tx, id, by, now)
		if err != nil {
			return err
		}
		if !ok {
			return ErrWrongState
		}

		cascaded := false
		if by == enums.ActorReceiver && s.contacts != nil {
			count, err := s.contacts.DeclineAllPendingFrom(txCtx, tx, record.FromProfileID, record.ToProfileID, now)
			if err != nil {
				return err
			}
			if count > 0 {
				if err := s.interests.SetContactAutoDeclined(txCtx, tx, id, true); err != nil {
					return err
				}
				cascaded = true
			}
		}

		decliner := record.FromProfileID
		other := record.ToProfileID
		if by == enums.ActorReceiver {
			decliner, other = other, decliner
		}
		if _, err := s.markers.Create(txCtx, tx, decliner, other, enums.RelationshipInterest, now); err != nil {
			return err
		}

		declined = record
		declined.Status = enums.InterestDeclined
		declined.DeclinedAt = &now
		declined.DeclinedBy = by
		declined.ContactAutoDeclined = cascaded
		return nil
	}); err != nil {
		return model.Interest{}, err
	}

	if by == enums.ActorReceiver {
		s.enqueue(notify.Event{
			ProfileID:      declined.FromProfileID,
			ActorProfileID: declined.ToProfileID,
			Kind:           model.NotifyInterestDeclined,
			SubjectKind:    model.SubjectInterest,
			SubjectID:      declined.ID,
		})
	}

	return declined, nil
}

// Cancel withdraws a pending interest. Sender only.
func (s *Service) Cancel(ctx context.Context, id, actorProfileID int64) (model.Interest, error) {
	if id <= 0 || actorProfileID <= 0 {
		return model.Interest{}, ErrValidation
	}
	if s.interests == nil || s.markers == nil {
		return model.Interest{}, ErrDependenciesNil
	}

	var cancelled model.Interest
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
		if record.Status != enums.InterestPending {
			return ErrWrongState
		}

		now := s.now().UTC()
		ok, err := s.interests.MarkCancelled(txCtx, tx, id, now)
		if err != nil {
			return err
		}
		if !ok {
			return ErrWrongState
		}

		if _, err := s.markers.Create(txCtx, tx, actorProfileID, record.ToProfileID, enums.RelationshipInterest, now); err != nil {
			return err
		}

		cancelled = record
		cancelled.Status = enums.InterestCancelled
		cancelled.CancelledAt = &now
		return nil
	}); err != nil {
		return model.Interest{}, err
	}

	return cancelled, nil
}

// Revoke tears down an accepted interest. Either party may revoke; the chat
// slot consumed at acceptance is not refunded.
func (s *Service) Revoke(ctx context.Context, id, actorProfileID int64) (model.Interest, error) {
	if id <= 0 || actorProfileID <= 0 {
		return model.Interest{}, ErrValidation
	}
	if s.interests == nil || s.markers == nil {
		return model.Interest{}, ErrDependenciesNil
	}

	var revoked model.Interest
	if err := s.runTx(ctx, func(txCtx context.Context, tx pgx.Tx) error {
		record, err := s.getForUpdate(txCtx, tx, id)
		if err != nil {
			return err
		}
		by, err := actorFor(record, actorProfileID)
		if err != nil {
			return err
		}
		if record.Status != enums.InterestAccepted {
			return ErrWrongState
		}

		now := s.now().UTC()
		ok, err := s.interests.MarkRevoked(txCtx, tx, id, by, now)
		if err != nil {
			return err
		}
		if !ok {
			return ErrWrongState
		}

		if _, err := s.markers.Create(txCtx, tx, actorProfileID, record.OtherParty(actorProfileID), enums.RelationshipInterest, now); err != nil {
			return err
		}

		revoked = record
		revoked.Status = enums.InterestRevoked
		revoked.RevokedAt = &now
		revoked.RevokedBy = by
		return nil
	}); err != nil {
		return model.Interest{}, err
	}

	return revoked, nil
}

type BlockParams struct {
	ReportReason      enums.ReportReason
	ReportDescription string
}

// Block moves a pending or accepted interest to blocked. Receiver only. The
// pre-block status is recorded so a later unblock restores it exactly.
// Every pending contact request from the blocked profile is force-declined.
// The blocked party is never notified.
func (s *Service) Block(ctx context.Context, id, actorProfileID int64, params BlockParams) (model.Interest, error) {
	if id <= 0 || actorProfileID <= 0 {
		return model.Interest{}, ErrValidation
	}
	if s.interests == nil || s.blocks == nil || s.markers == nil {
		return model.Interest{}, ErrDependenciesNil
	}

	var blocked model.Interest
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
		if record.Status != enums.InterestPending && record.Status != enums.InterestAccepted {
			return ErrWrongState
		}

		now := s.now().UTC()
		prior := record.Status
		ok, err := s.interests.MarkBlocked(txCtx, tx, id, prior, now)
		if err != nil {
			return err
		}
		if !ok {
			return ErrWrongState
		}

		if _, err := s.blocks.Create(txCtx, tx, pgrepo.CreateBlockParams{
			BlockerProfileID:  record.ToProfileID,
			BlockedProfileID:  record.FromProfileID,
			ReportReason:      params.ReportReason,
			ReportDescription: params.ReportDescription,
		}, now); err != nil {
			return err
		}

		if s.contacts != nil {
			if _, err := s.contacts.DeclineAllPendingFrom(txCtx, tx, record.FromProfileID, record.ToProfileID, now); err != nil {
				return err
			}
		}

		if _, err := s.markers.Create(txCtx, tx, record.ToProfileID, record.FromProfileID, enums.RelationshipBlock, now); err != nil {
			return err
		}

		blocked = record
		blocked.Status = enums.InterestBlocked
		blocked.BlockedAt = &now
		blocked.PriorStatus = prior
		return nil
	}); err != nil {
		return model.Interest{}, err
	}

	return blocked, nil
}

// UndoDecline reverses the caller's own decline, returning the interest to
// pending. If the decline cascaded into a contact request, that request is
// restored too. The decline marker is retired so the same decline cannot be
// reconsidered twice.
func (s *Service) UndoDecline(ctx context.Context, id, actorProfileID int64) (model.Interest, error) {
	if id <= 0 || actorProfileID <= 0 {
		return model.Interest{}, ErrValidation
	}
	if s.interests == nil || s.markers == nil {
		return model.Interest{}, ErrDependenciesNil
	}

	var restored model.Interest
	if err := s.runTx(ctx, func(txCtx context.Context, tx pgx.Tx) error {
		record, err := s.getForUpdate(txCtx, tx, id)
		if err != nil {
			return err
		}
		by, err := actorFor(record, actorProfileID)
		if err != nil {
			return err
		}
		if record.Status != enums.InterestDeclined {
			return ErrWrongState
		}
		if record.DeclinedBy != by {
			return ErrWrongActor
		}

		ok, err := s.interests.ClearDecline(txCtx, tx, id)
		if err != nil {
			return err
		}
		if !ok {
			return ErrWrongState
		}

		if record.ContactAutoDeclined && s.contacts != nil {
			if _, err := s.contacts.RestoreAutoDeclined(txCtx, tx, record.FromProfileID, record.ToProfileID); err != nil {
				return err
			}
		}

		decliner := actorProfileID
		other := record.OtherParty(actorProfileID)
		if err := s.markers.MarkPairReconsidered(txCtx, tx, decliner, other, enums.RelationshipInterest); err != nil {
			return err
		}

		restored = record
		restored.Status = enums.InterestPending
		restored.DeclinedAt = nil
		restored.DeclinedBy = ""
		restored.ContactAutoDeclined = false
		return nil
	}); err != nil {
		return model.Interest{}, err
	}

	return restored, nil
}

// Get returns an interest visible to one of its two parties.
func (s *Service) Get(ctx context.Context, id, actorProfileID int64) (model.Interest, error) {
	if id <= 0 || actorProfileID <= 0 {
		return model.Interest{}, ErrValidation
	}
	if s.interests == nil {
		return model.Interest{}, ErrDependenciesNil
	}

	record, err := s.interests.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgrepo.ErrInterestNotFound) {
			return model.Interest{}, ErrNotFound
		}
		return model.Interest{}, err
	}
	if record.FromProfileID != actorProfileID && record.ToProfileID != actorProfileID {
		return model.Interest{}, ErrNotParticipant
	}

	return record, nil
}

func (s *Service) getForUpdate(ctx context.Context, tx pgx.Tx, id int64) (model.Interest, error) {
	record, err := s.interests.GetForUpdate(ctx, tx, id)
	if err != nil {
		if errors.Is(err, pgrepo.ErrInterestNotFound) {
			return model.Interest{}, ErrNotFound
		}
		return model.Interest{}, err
	}
	return record, nil
}

func (s *Service) enqueue(event notify.Event) {
	if s.notifier != nil {
		s.notifier.Enqueue(event)
	}
}

func actorFor(record model.Interest, profileID int64) (enums.Actor, error) {
	switch profileID {
	case record.FromProfileID:
		return enums.ActorSender, nil
	case record.ToProfileID:
		return enums.ActorReceiver, nil
	default:
		return "", ErrNotParticipant
	}
}
