package reconsider

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/milanapp/engine/internal/domain/enums"
	"github.com/milanapp/engine/internal/domain/model"
	pgrepo "github.com/milanapp/engine/internal/repo/postgres"
)

var testNow = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

type stubMarkers struct {
	markers map[int64]*model.DeclinedProfile
	nextID  int64
}

func newStubMarkers() *stubMarkers {
	return &stubMarkers{markers: map[int64]*model.DeclinedProfile{}, nextID: 1}
}

func (s *stubMarkers) add(decliner, declined int64, kind enums.RelationshipKind) int64 {
	id := s.nextID
	s.markers[id] = &model.DeclinedProfile{ID: id, DeclinerProfileID: decliner, DeclinedProfileID: declined, Kind: kind, DeclinedAt: testNow}
	s.nextID++
	return id
}

func (s *stubMarkers) FindLatestUnreconsidered(_ context.Context, _ pgx.Tx, decliner, declined int64, kind enums.RelationshipKind) (model.DeclinedProfile, error) {
	var latest *model.DeclinedProfile
	for _, m := range s.markers {
		if m.DeclinerProfileID == decliner && m.DeclinedProfileID == declined && m.Kind == kind && !m.IsReconsidered {
			if latest == nil || m.ID > latest.ID {
				latest = m
			}
		}
	}
	if latest == nil {
		return model.DeclinedProfile{}, pgrepo.ErrDeclineMarkerNotFound
	}
	return *latest, nil
}

func (s *stubMarkers) MarkReconsidered(_ context.Context, _ pgx.Tx, id int64) (bool, error) {
	m, ok := s.markers[id]
	if !ok || m.IsReconsidered {
		return false, nil
	}
	m.IsReconsidered = true
	return true, nil
}

type stubInterests struct {
	latest   map[[2]int64]*model.Interest
	restored []enums.InterestStatus
}

func pairKey(a, b int64) [2]int64 {
	if a > b {
		a, b = b, a
	}
	return [2]int64{a, b}
}

func (s *stubInterests) LatestBetween(_ context.Context, _ pgx.Tx, a, b int64) (model.Interest, error) {
	if rec, ok := s.latest[pairKey(a, b)]; ok {
		return *rec, nil
	}
	return model.Interest{}, pgrepo.ErrInterestNotFound
}

func (s *stubInterests) Restore(_ context.Context, _ pgx.Tx, id int64, to enums.InterestStatus) (bool, error) {
	for _, rec := range s.latest {
		if rec.ID == id {
			rec.Status = to
			s.restored = append(s.restored, to)
			return true, nil
		}
	}
	return false, nil
}

type stubContacts struct {
	latest   map[[2]int64]*model.ContactRequest
	restored []enums.ContactStatus
}

func (s *stubContacts) LatestBetween(_ context.Context, _ pgx.Tx, a, b int64) (model.ContactRequest, error) {
	if rec, ok := s.latest[pairKey(a, b)]; ok {
		return *rec, nil
	}
	return model.ContactRequest{}, pgrepo.ErrContactRequestNotFound
}

func (s *stubContacts) Restore(_ context.Context, _ pgx.Tx, id int64, to enums.ContactStatus) (bool, error) {
	for _, rec := range s.latest {
		if rec.ID == id {
			rec.Status = to
			s.restored = append(s.restored, to)
			return true, nil
		}
	}
	return false, nil
}

type stubBlocks struct {
	active map[[2]int64]*model.BlockedProfile
}

func (s *stubBlocks) FindActive(_ context.Context, _ pgx.Tx, blocker, blocked int64) (model.BlockedProfile, error) {
	if rec, ok := s.active[[2]int64{blocker, blocked}]; ok && !rec.IsUnblocked {
		return *rec, nil
	}
	return model.BlockedProfile{}, pgrepo.ErrBlockNotFound
}

func (s *stubBlocks) MarkUnblocked(_ context.Context, _ pgx.Tx, id int64, now time.Time) (bool, error) {
	for _, rec := range s.active {
		if rec.ID == id && !rec.IsUnblocked {
			rec.IsUnblocked = true
			rec.UnblockedAt = &now
			return true, nil
		}
	}
	return false, nil
}

type fixture struct {
	svc       *Service
	markers   *stubMarkers
	interests *stubInterests
	contacts  *stubContacts
	blocks    *stubBlocks
}

func newFixture() *fixture {
	f := &fixture{
		markers:   newStubMarkers(),
		interests: &stubInterests{latest: map[[2]int64]*model.Interest{}},
		contacts:  &stubContacts{latest: map[[2]int64]*model.ContactRequest{}},
		blocks:    &stubBlocks{active: map[[2]int64]*model.BlockedProfile{}},
	}
	f.svc = NewService(Dependencies{
		Markers:   f.markers,
		Interests: f.interests,
		Contacts:  f.contacts,
		Blocks:    f.blocks,
	})
	f.svc.runTx = func(ctx context.Context, fn func(context.Context, pgx.Tx) error) error {
		return fn(ctx, nil)
	}
	f.svc.now = func() time.Time { return testNow }
	return f
}

func TestReconsiderDeclinedInterestReturnsToPending(t *testing.T) {
	f := newFixture()
	f.markers.add(2, 1, enums.RelationshipInterest)
	f.interests.latest[pairKey(1, 2)] = &model.Interest{ID: 10, FromProfileID: 1, ToProfileID: 2, Status: enums.InterestDeclined}

	result, err := f.svc.Reconsider(context.Background(), 2, 1, enums.RelationshipInterest)
	if err != nil {
		t.Fatalf("reconsider: %v", err)
	}
	if result.RestoredInterest == nil || result.RestoredInterest.Status != enums.InterestPending {
		t.Fatalf("expected interest restored to pending, got %+v", result.RestoredInterest)
	}
}

func TestReconsiderRevokedInterestReturnsToAccepted(t *testing.T) {
	f := newFixture()
	f.markers.add(1, 2, enums.RelationshipInterest)
	f.interests.latest[pairKey(1, 2)] = &model.Interest{ID: 10, FromProfileID: 1, ToProfileID: 2, Status: enums.InterestRevoked}

	result, err := f.svc.Reconsider(context.Background(), 1, 2, enums.RelationshipInterest)
	if err != nil {
		t.Fatalf("reconsider: %v", err)
	}
	if result.RestoredInterest == nil || result.RestoredInterest.Status != enums.InterestAccepted {
		t.Fatalf("expected interest restored to accepted, got %+v", result.RestoredInterest)
	}
}

func TestReconsiderRevokedContactReturnsToApproved(t *testing.T) {
	f := newFixture()
	f.markers.add(1, 2, enums.RelationshipContact)
	f.contacts.latest[pairKey(1, 2)] = &model.ContactRequest{ID: 20, FromProfileID: 1, ToProfileID: 2, Status: enums.ContactRevoked}

	result, err := f.svc.Reconsider(context.Background(), 1, 2, enums.RelationshipContact)
	if err != nil {
		t.Fatalf("reconsider: %v", err)
	}
	if result.RestoredContact == nil || result.RestoredContact.Status != enums.ContactApproved {
		t.Fatalf("expected contact restored to approved, got %+v", result.RestoredContact)
	}
}

func TestReconsiderBlockLiftsBlockAndRestoresPriorStatus(t *testing.T) {
	f := newFixture()
	f.markers.add(2, 1, enums.RelationshipBlock)
	f.blocks.active[[2]int64{2, 1}] = &model.BlockedProfile{ID: 5, BlockerProfileID: 2, BlockedProfileID: 1}
	f.interests.latest[pairKey(1, 2)] = &model.Interest{
		ID: 10, FromProfileID: 1, ToProfileID: 2,
		Status: enums.InterestBlocked, PriorStatus: enums.InterestAccepted,
	}

	result, err := f.svc.Reconsider(context.Background(), 2, 1, enums.RelationshipBlock)
	if err != nil {
		t.Fatalf("reconsider: %v", err)
	}
	if !result.Unblocked {
		t.Fatalf("expected block lifted")
	}
	if result.RestoredInterest == nil || result.RestoredInterest.Status != enums.InterestAccepted {
		t.Fatalf("expected interest back to pre-block accepted, got %+v", result.RestoredInterest)
	}
	if f.blocks.active[[2]int64{2, 1}].UnblockedAt == nil {
		t.Fatalf("expected unblock timestamp")
	}
}

func TestReconsiderBlockFallsBackToPendingWithoutPriorStatus(t *testing.T) {
	f := newFixture()
	f.markers.add(2, 1, enums.RelationshipBlock)
	f.blocks.active[[2]int64{2, 1}] = &model.BlockedProfile{ID: 5, BlockerProfileID: 2, BlockedProfileID: 1}
	f.interests.latest[pairKey(1, 2)] = &model.Interest{ID: 10, FromProfileID: 1, ToProfileID: 2, Status: enums.InterestBlocked}

	result, err := f.svc.Reconsider(context.Background(), 2, 1, enums.RelationshipBlock)
	if err != nil {
		t.Fatalf("reconsider: %v", err)
	}
	if result.RestoredInterest == nil || result.RestoredInterest.Status != enums.InterestPending {
		t.Fatalf("expected pending fallback, got %+v", result.RestoredInterest)
	}
}

func TestReconsiderIsOncePerDecision(t *testing.T) {
	f := newFixture()
	f.markers.add(2, 1, enums.RelationshipInterest)
	f.interests.latest[pairKey(1, 2)] = &model.Interest{ID: 10, FromProfileID: 1, ToProfileID: 2, Status: enums.InterestDeclined}

	ctx := context.Background()
	if _, err := f.svc.Reconsider(ctx, 2, 1, enums.RelationshipInterest); err != nil {
		t.Fatalf("first reconsider: %v", err)
	}
	if _, err := f.svc.Reconsider(ctx, 2, 1, enums.RelationshipInterest); err != ErrNothingToReconsider {
		t.Fatalf("expected ErrNothingToReconsider on repeat, got %v", err)
	}
}

func TestReconsiderWithoutMarkerFails(t *testing.T) {
	f := newFixture()

	if _, err := f.svc.Reconsider(context.Background(), 2, 1, enums.RelationshipInterest); err != ErrNothingToReconsider {
		t.Fatalf("expected ErrNothingToReconsider, got %v", err)
	}
}

func TestReconsiderRejectsLiveRecord(t *testing.T) {
	f := newFixture()
	f.markers.add(2, 1, enums.RelationshipInterest)
	// Marker exists but the record has since gone back to pending.
	f.interests.latest[pairKey(1, 2)] = &model.Interest{ID: 10, FromProfileID: 1, ToProfileID: 2, Status: enums.InterestPending}

	if _, err := f.svc.Reconsider(context.Background(), 2, 1, enums.RelationshipInterest); err != ErrNothingToReconsider {
		t.Fatalf("expected ErrNothingToReconsider for live record, got %v", err)
	}
}

func TestReconsiderExpiredInterestReturnsToPending(t *testing.T) {
	f := newFixture()
	// Expiry comes from the sweep, so no marker exists for it.
	expiredAt := testNow.Add(-24 * time.Hour)
	f.interests.latest[pairKey(1, 2)] = &model.Interest{
		ID: 10, FromProfileID: 1, ToProfileID: 2,
		Status: enums.InterestExpired, ExpiredAt: &expiredAt, ExpiryReason: "timeout",
	}

	result, err := f.svc.Reconsider(context.Background(), 1, 2, enums.RelationshipInterest)
	if err != nil {
		t.Fatalf("reconsider: %v", err)
	}
	if result.RestoredInterest == nil || result.RestoredInterest.Status != enums.InterestPending {
		t.Fatalf("expected expired interest restored to pending, got %+v", result.RestoredInterest)
	}
	if result.RestoredInterest.ExpiredAt != nil || result.RestoredInterest.ExpiryReason != "" {
		t.Fatalf("expected expiry metadata cleared, got %+v", result.RestoredInterest)
	}
	if result.MarkerID != 0 {
		t.Fatalf("expected no marker involved, got %d", result.MarkerID)
	}
}

func TestReconsiderExpiredInterestIsSenderOnly(t *testing.T) {
	f := newFixture()
	f.interests.latest[pairKey(1, 2)] = &model.Interest{ID: 10, FromProfileID: 1, ToProfileID: 2, Status: enums.InterestExpired}

	if _, err := f.svc.Reconsider(context.Background(), 2, 1, enums.RelationshipInterest); err != ErrNothingToReconsider {
		t.Fatalf("expected ErrNothingToReconsider for receiver, got %v", err)
	}
}

func TestReconsiderExpiredInterestIsOnce(t *testing.T) {
	f := newFixture()
	f.interests.latest[pairKey(1, 2)] = &model.Interest{ID: 10, FromProfileID: 1, ToProfileID: 2, Status: enums.InterestExpired}

	ctx := context.Background()
	if _, err := f.svc.Reconsider(ctx, 1, 2, enums.RelationshipInterest); err != nil {
		t.Fatalf("first reconsider: %v", err)
	}
	if _, err := f.svc.Reconsider(ctx, 1, 2, enums.RelationshipInterest); err != ErrNothingToReconsider {
		t.Fatalf("expected ErrNothingToReconsider on repeat, got %v", err)
	}
}

func TestReconsiderCancelledInterestReturnsToPending(t *testing.T) {
	f := newFixture()
	// Cancel writes a marker naming the sender as the decider.
	f.markers.add(1, 2, enums.RelationshipInterest)
	cancelledAt := testNow.Add(-time.Hour)
	f.interests.latest[pairKey(1, 2)] = &model.Interest{
		ID: 10, FromProfileID: 1, ToProfileID: 2,
		Status: enums.InterestCancelled, CancelledAt: &cancelledAt,
	}

	result, err := f.svc.Reconsider(context.Background(), 1, 2, enums.RelationshipInterest)
	if err != nil {
		t.Fatalf("reconsider: %v", err)
	}
	if result.RestoredInterest == nil || result.RestoredInterest.Status != enums.InterestPending {
		t.Fatalf("expected cancelled interest restored to pending, got %+v", result.RestoredInterest)
	}
	if result.RestoredInterest.CancelledAt != nil {
		t.Fatalf("expected cancel metadata cleared, got %+v", result.RestoredInterest)
	}
}

func TestReconsiderExpiredContactReturnsToPending(t *testing.T) {
	f := newFixture()
	f.contacts.latest[pairKey(1, 2)] = &model.ContactRequest{ID: 20, FromProfileID: 1, ToProfileID: 2, Status: enums.ContactExpired}

	result, err := f.svc.Reconsider(context.Background(), 1, 2, enums.RelationshipContact)
	if err != nil {
		t.Fatalf("reconsider: %v", err)
	}
	if result.RestoredContact == nil || result.RestoredContact.Status != enums.ContactPending {
		t.Fatalf("expected expired contact restored to pending, got %+v", result.RestoredContact)
	}
}

func TestReconsiderCancelledContactReturnsToPending(t *testing.T) {
	f := newFixture()
	f.markers.add(1, 2, enums.RelationshipContact)
	f.contacts.latest[pairKey(1, 2)] = &model.ContactRequest{ID: 20, FromProfileID: 1, ToProfileID: 2, Status: enums.ContactCancelled}

	result, err := f.svc.Reconsider(context.Background(), 1, 2, enums.RelationshipContact)
	if err != nil {
		t.Fatalf("reconsider: %v", err)
	}
	if result.RestoredContact == nil || result.RestoredContact.Status != enums.ContactPending {
		t.Fatalf("expected cancelled contact restored to pending, got %+v", result.RestoredContact)
	}
}
