package interests

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/milanapp/engine/internal/domain/enums"
	"github.com/milanapp/engine/internal/domain/model"
	pgrepo "github.com/milanapp/engine/internal/repo/postgres"
	"github.com/milanapp/engine/internal/services/notify"
)

var testNow = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

type stubInterestStore struct {
	records map[int64]*model.Interest
	nextID  int64
}

func newStubInterestStore() *stubInterestStore {
	return &stubInterestStore{records: map[int64]*model.Interest{}, nextID: 1}
}

func (s *stubInterestStore) Create(_ context.Context, _ pgx.Tx, from, to int64, now time.Time) (model.Interest, error) {
	rec := model.Interest{ID: s.nextID, FromProfileID: from, ToProfileID: to, Status: enums.InterestPending, CreatedAt: now}
	s.records[s.nextID] = &rec
	s.nextID++
	return rec, nil
}

func (s *stubInterestStore) GetForUpdate(_ context.Context, _ pgx.Tx, id int64) (model.Interest, error) {
	rec, ok := s.records[id]
	if !ok {
		return model.Interest{}, pgrepo.ErrInterestNotFound
	}
	return *rec, nil
}

func (s *stubInterestStore) GetByID(ctx context.Context, id int64) (model.Interest, error) {
	return s.GetForUpdate(ctx, nil, id)
}

func (s *stubInterestStore) ExistsLiveBetween(_ context.Context, _ pgx.Tx, a, b int64) (bool, error) {
	for _, rec := range s.records {
		samePair := (rec.FromProfileID == a && rec.ToProfileID == b) || (rec.FromProfileID == b && rec.ToProfileID == a)
		if samePair && (rec.Status == enums.InterestPending || rec.Status == enums.InterestAccepted) {
			return true, nil
		}
	}
	return false, nil
}

func (s *stubInterestStore) MarkAccepted(_ context.Context, _ pgx.Tx, id int64, now time.Time) (bool, error) {
	rec, ok := s.records[id]
	if !ok || rec.Status != enums.InterestPending {
		return false, nil
	}
	rec.Status = enums.InterestAccepted
	rec.AcceptedAt = &now
	return true, nil
}

func (s *stubInterestStore) MarkDeclined(_ context.Context, _ pgx.Tx, id int64, by enums.Actor, now time.Time) (bool, error) {
	rec, ok := s.records[id]
	if !ok || rec.Status != enums.InterestPending {
		return false, nil
	}
	rec.Status = enums.InterestDeclined
	rec.DeclinedAt = &now
	rec.DeclinedBy = by
	return true, nil
}

func (s *stubInterestStore) MarkCancelled(_ context.Context, _ pgx.Tx, id int64, now time.Time) (bool, error) {
	rec, ok := s.records[id]
	if !ok || rec.Status != enums.InterestPending {
		return false, nil
	}
	rec.Status = enums.InterestCancelled
	rec.CancelledAt = &now
	return true, nil
}

func (s *stubInterestStore) MarkRevoked(_ context.Context, _ pgx.Tx, id int64, by enums.Actor, now time.Time) (bool, error) {
	rec, ok := s.records[id]
	if !ok || rec.Status != enums.InterestAccepted {
		return false, nil
	}
	rec.Status = enums.InterestRevoked
	rec.RevokedAt = &now
	rec.RevokedBy = by
	return true, nil
}

func (s *stubInterestStore) MarkBlocked(_ context.Context, _ pgx.Tx, id int64, prior enums.InterestStatus, now time.Time) (bool, error) {
	rec, ok := s.records[id]
	if !ok || (rec.Status != enums.InterestPending && rec.Status != enums.InterestAccepted) {
		return false, nil
	}
	rec.Status = enums.InterestBlocked
	rec.BlockedAt = &now
	rec.PriorStatus = prior
	return true, nil
}

func (s *stubInterestStore) ClearDecline(_ context.Context, _ pgx.Tx, id int64) (bool, error) {
	rec, ok := s.records[id]
	if !ok || rec.Status != enums.InterestDeclined {
		return false, nil
	}
	rec.Status = enums.InterestPending
	rec.DeclinedAt = nil
	rec.DeclinedBy = ""
	rec.ContactAutoDeclined = false
	return true, nil
}

func (s *stubInterestStore) SetContactAutoDeclined(_ context.Context, _ pgx.Tx, id int64, value bool) error {
	if rec, ok := s.records[id]; ok {
		rec.ContactAutoDeclined = value
	}
	return nil
}

type stubCascadeStore struct {
	pendingFrom map[[2]int64]int
	restored    [][2]int64
}

func newStubCascadeStore() *stubCascadeStore {
	return &stubCascadeStore{pendingFrom: map[[2]int64]int{}}
}

func (s *stubCascadeStore) DeclineAllPendingFrom(_ context.Context, _ pgx.Tx, from, to int64, _ time.Time) (int64, error) {
	key := [2]int64{from, to}
	count := s.pendingFrom[key]
	s.pendingFrom[key] = 0
	return int64(count), nil
}

func (s *stubCascadeStore) RestoreAutoDeclined(_ context.Context, _ pgx.Tx, from, to int64) (bool, error) {
	s.restored = append(s.restored, [2]int64{from, to})
	return true, nil
}

type stubBlockStore struct {
	active  map[[2]int64]bool
	created []pgrepo.CreateBlockParams
}

func newStubBlockStore() *stubBlockStore {
	return &stubBlockStore{active: map[[2]int64]bool{}}
}

func (s *stubBlockStore) Create(_ context.Context, _ pgx.Tx, params pgrepo.CreateBlockParams, now time.Time) (model.BlockedProfile, error) {
	s.created = append(s.created, params)
	s.active[[2]int64{params.BlockerProfileID, params.BlockedProfileID}] = true
	return model.BlockedProfile{ID: int64(len(s.created)), BlockerProfileID: params.BlockerProfileID, BlockedProfileID: params.BlockedProfileID, CreatedAt: now}, nil
}

func (s *stubBlockStore) ActiveBlockExists(_ context.Context, _ pgx.Tx, a, b int64) (bool, error) {
	return s.active[[2]int64{a, b}] || s.active[[2]int64{b, a}], nil
}

type stubMarkerStore struct {
	created      []model.DeclinedProfile
	reconsidered [][2]int64
}

func (s *stubMarkerStore) Create(_ context.Context, _ pgx.Tx, decliner, declined int64, kind enums.RelationshipKind, now time.Time) (model.DeclinedProfile, error) {
	rec := model.DeclinedProfile{ID: int64(len(s.created) + 1), DeclinerProfileID: decliner, DeclinedProfileID: declined, Kind: kind, DeclinedAt: now}
	s.created = append(s.created, rec)
	return rec, nil
}

func (s *stubMarkerStore) MarkPairReconsidered(_ context.Context, _ pgx.Tx, decliner, declined int64, _ enums.RelationshipKind) error {
	s.reconsidered = append(s.reconsidered, [2]int64{decliner, declined})
	return nil
}

type stubProfiles struct {
	profiles map[int64]model.Profile
}

func (s *stubProfiles) GetByProfileID(_ context.Context, id int64) (model.Profile, error) {
	if p, ok := s.profiles[id]; ok {
		return p, nil
	}
	return model.Profile{ProfileID: id, Tier: enums.TierFree}, nil
}

type stubQuota struct {
	consumed []int64
	err      error
}

func (s *stubQuota) Consume(_ context.Context, _ pgx.Tx, profile model.Profile, target int64, kind enums.SlotKind) error {
	if s.err != nil {
		return s.err
	}
	s.consumed = append(s.consumed, profile.ProfileID)
	return nil
}

type stubMessages struct {
	bodies []string
}

func (s *stubMessages) CreateSystem(_ context.Context, _ pgx.Tx, from, to int64, body string, now time.Time) (model.ConversationMessage, error) {
	s.bodies = append(s.bodies, body)
	return model.ConversationMessage{ID: int64(len(s.bodies)), FromProfileID: from, ToProfileID: to, IsSystem: true, Body: body, CreatedAt: now}, nil
}

type stubNotifier struct {
	events []notify.Event
}

func (s *stubNotifier) Enqueue(event notify.Event) {
	s.events = append(s.events, event)
}

type fixture struct {
	svc       *Service
	interests *stubInterestStore
	cascade   *stubCascadeStore
	blocks    *stubBlockStore
	markers   *stubMarkerStore
	quota     *stubQuota
	messages  *stubMessages
	notifier  *stubNotifier
}

func newFixture() *fixture {
	f := &fixture{
		interests: newStubInterestStore(),
		cascade:   newStubCascadeStore(),
		blocks:    newStubBlockStore(),
		markers:   &stubMarkerStore{},
		quota:     &stubQuota{},
		messages:  &stubMessages{},
		notifier:  &stubNotifier{},
	}
	f.svc = NewService(Dependencies{
		Interests: f.interests,
		Contacts:  f.cascade,
		Blocks:    f.blocks,
		Markers:   f.markers,
		Profiles:  &stubProfiles{},
		Quota:     f.quota,
		Messages:  f.messages,
		Notifier:  f.notifier,
	})
	f.svc.runTx = func(ctx context.Context, fn func(context.Context, pgx.Tx) error) error {
		return fn(ctx, nil)
	}
	f.svc.now = func() time.Time { return testNow }
	return f
}

func TestExpressCreatesPendingAndNotifies(t *testing.T) {
	f := newFixture()

	created, err := f.svc.Express(context.Background(), 1, 2)
	if err != nil {
		t.Fatalf("express: %v", err)
	}
	if created.Status != enums.InterestPending {
		t.Fatalf("expected pending, got %s", created.Status)
	}
	if len(f.notifier.events) != 1 || f.notifier.events[0].Kind != model.NotifyInterestReceived || f.notifier.events[0].ProfileID != 2 {
		t.Fatalf("unexpected notifications: %+v", f.notifier.events)
	}
}

func TestExpressRejectsSelfAndDuplicates(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	if _, err := f.svc.Express(ctx, 1, 1); err != ErrSelfInterest {
		t.Fatalf("expected ErrSelfInterest, got %v", err)
	}

	if _, err := f.svc.Express(ctx, 1, 2); err != nil {
		t.Fatalf("first express: %v", err)
	}
	if _, err := f.svc.Express(ctx, 1, 2); err != ErrAlreadyLive {
		t.Fatalf("expected ErrAlreadyLive on duplicate, got %v", err)
	}
	// The reverse direction is covered by the same liveness rule.
	if _, err := f.svc.Express(ctx, 2, 1); err != ErrAlreadyLive {
		t.Fatalf("expected ErrAlreadyLive on reverse direction, got %v", err)
	}
}

func TestExpressRejectsBlockedPair(t *testing.T) {
	f := newFixture()
	f.blocks.active[[2]int64{2, 1}] = true

	if _, err := f.svc.Express(context.Background(), 1, 2); err != ErrBlockedPair {
		t.Fatalf("expected ErrBlockedPair, got %v", err)
	}
}

func TestAcceptDebitsSenderAndWritesSystemMessage(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	created, _ := f.svc.Express(ctx, 1, 2)

	accepted, err := f.svc.Accept(ctx, created.ID, 2)
	if err != nil {
		t.Fatalf("accept: %v", err)
	}
	if accepted.Status != enums.InterestAccepted {
		t.Fatalf("expected accepted, got %s", accepted.Status)
	}
	if len(f.quota.consumed) != 1 || f.quota.consumed[0] != 1 {
		t.Fatalf("expected chat slot debit from sender profile 1, got %v", f.quota.consumed)
	}
	if len(f.messages.bodies) != 1 {
		t.Fatalf("expected one system message, got %d", len(f.messages.bodies))
	}
	last := f.notifier.events[len(f.notifier.events)-1]
	if last.Kind != model.NotifyInterestAccepted || last.ProfileID != 1 {
		t.Fatalf("unexpected accept notification: %+v", last)
	}
}

func TestAcceptRejectsSenderAndStrangers(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	created, _ := f.svc.Express(ctx, 1, 2)

	if _, err := f.svc.Accept(ctx, created.ID, 1); err != ErrWrongActor {
		t.Fatalf("expected ErrWrongActor for sender, got %v", err)
	}
	if _, err := f.svc.Accept(ctx, created.ID, 99); err != ErrNotParticipant {
		t.Fatalf("expected ErrNotParticipant for stranger, got %v", err)
	}
}

func TestAcceptFailsWhenQuotaExhausted(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	f.quota.err = errQuotaFull

	created, _ := f.svc.Express(ctx, 1, 2)
	if _, err := f.svc.Accept(ctx, created.ID, 2); err != errQuotaFull {
		t.Fatalf("expected quota error to surface, got %v", err)
	}

	record, _ := f.interests.GetByID(ctx, created.ID)
	if record.Status != enums.InterestPending {
		t.Fatalf("interest must stay pending on quota failure, got %s", record.Status)
	}
}

var errQuotaFull = errForTest("quota full")

type errForTest string

func (e errForTest) Error() string { return string(e) }

func TestReceiverDeclineCascadesToContactRequest(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	created, _ := f.svc.Express(ctx, 1, 2)
	f.cascade.pendingFrom[[2]int64{1, 2}] = 1

	declined, err := f.svc.Decline(ctx, created.ID, 2)
	if err != nil {
		t.Fatalf("decline: %v", err)
	}
	if declined.DeclinedBy != enums.ActorReceiver {
		t.Fatalf("expected receiver decline, got %s", declined.DeclinedBy)
	}
	if !declined.ContactAutoDeclined {
		t.Fatalf("expected cascade flag on interest")
	}
	if len(f.markers.created) != 1 || f.markers.created[0].DeclinerProfileID != 2 || f.markers.created[0].Kind != enums.RelationshipInterest {
		t.Fatalf("unexpected decline marker: %+v", f.markers.created)
	}
}

func TestSenderDeclineDoesNotCascadeOrNotify(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	created, _ := f.svc.Express(ctx, 1, 2)
	f.cascade.pendingFrom[[2]int64{1, 2}] = 1
	notificationsBefore := len(f.notifier.events)

	declined, err := f.svc.Decline(ctx, created.ID, 1)
	if err != nil {
		t.Fatalf("decline: %v", err)
	}
	if declined.ContactAutoDeclined {
		t.Fatalf("sender decline must not cascade")
	}
	if f.cascade.pendingFrom[[2]int64{1, 2}] != 1 {
		t.Fatalf("pending contact request should be untouched")
	}
	if len(f.notifier.events) != notificationsBefore {
		t.Fatalf("sender decline must not notify")
	}
}

func TestCancelIsSenderOnly(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	created, _ := f.svc.Express(ctx, 1, 2)
	if _, err := f.svc.Cancel(ctx, created.ID, 2); err != ErrWrongActor {
		t.Fatalf("expected ErrWrongActor for receiver cancel, got %v", err)
	}

	cancelled, err := f.svc.Cancel(ctx, created.ID, 1)
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if cancelled.Status != enums.InterestCancelled {
		t.Fatalf("expected cancelled, got %s", cancelled.Status)
	}

	// The cancel is a reconsiderable decision by the sender.
	if len(f.markers.created) != 1 {
		t.Fatalf("expected one marker, got %d", len(f.markers.created))
	}
	marker := f.markers.created[0]
	if marker.DeclinerProfileID != 1 || marker.DeclinedProfileID != 2 || marker.Kind != enums.RelationshipInterest {
		t.Fatalf("unexpected marker: %+v", marker)
	}
}

func TestRevokeRequiresAcceptedState(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	created, _ := f.svc.Express(ctx, 1, 2)
	if _, err := f.svc.Revoke(ctx, created.ID, 1); err != ErrWrongState {
		t.Fatalf("expected ErrWrongState on pending revoke, got %v", err)
	}

	if _, err := f.svc.Accept(ctx, created.ID, 2); err != nil {
		t.Fatalf("accept: %v", err)
	}
	revoked, err := f.svc.Revoke(ctx, created.ID, 1)
	if err != nil {
		t.Fatalf("revoke: %v", err)
	}
	if revoked.Status != enums.InterestRevoked || revoked.RevokedBy != enums.ActorSender {
		t.Fatalf("unexpected revoke result: %+v", revoked)
	}
	// No refund: the quota debit from acceptance stays.
	if len(f.quota.consumed) != 1 {
		t.Fatalf("revoke must not touch quota, got %v", f.quota.consumed)
	}
}

func TestBlockStoresPriorStatusAndCascades(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	created, _ := f.svc.Express(ctx, 1, 2)
	if _, err := f.svc.Accept(ctx, created.ID, 2); err != nil {
		t.Fatalf("accept: %v", err)
	}
	f.cascade.pendingFrom[[2]int64{1, 2}] = 2
	notificationsBefore := len(f.notifier.events)

	blocked, err := f.svc.Block(ctx, created.ID, 2, BlockParams{ReportReason: enums.ReportReasonSpam, ReportDescription: "unsolicited"})
	if err != nil {
		t.Fatalf("block: %v", err)
	}
	if blocked.Status != enums.InterestBlocked || blocked.PriorStatus != enums.InterestAccepted {
		t.Fatalf("unexpected block result: %+v", blocked)
	}
	if len(f.blocks.created) != 1 || f.blocks.created[0].ReportReason != enums.ReportReasonSpam {
		t.Fatalf("unexpected block record: %+v", f.blocks.created)
	}
	if f.cascade.pendingFrom[[2]int64{1, 2}] != 0 {
		t.Fatalf("expected pending contact requests cascaded")
	}
	if len(f.notifier.events) != notificationsBefore {
		t.Fatalf("block must never notify the blocked party")
	}
	var blockMarker bool
	for _, marker := range f.markers.created {
		if marker.Kind == enums.RelationshipBlock && marker.DeclinerProfileID == 2 {
			blockMarker = true
		}
	}
	if !blockMarker {
		t.Fatalf("expected block marker, got %+v", f.markers.created)
	}
}

func TestBlockIsReceiverOnly(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	created, _ := f.svc.Express(ctx, 1, 2)
	if _, err := f.svc.Block(ctx, created.ID, 1, BlockParams{}); err != ErrWrongActor {
		t.Fatalf("expected ErrWrongActor for sender block, got %v", err)
	}
}

func TestUndoDeclineRestoresPendingAndCascadedRequest(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	created, _ := f.svc.Express(ctx, 1, 2)
	f.cascade.pendingFrom[[2]int64{1, 2}] = 1
	if _, err := f.svc.Decline(ctx, created.ID, 2); err != nil {
		t.Fatalf("decline: %v", err)
	}

	restored, err := f.svc.UndoDecline(ctx, created.ID, 2)
	if err != nil {
		t.Fatalf("undo decline: %v", err)
	}
	if restored.Status != enums.InterestPending || restored.ContactAutoDeclined {
		t.Fatalf("unexpected undo result: %+v", restored)
	}
	if len(f.cascade.restored) != 1 || f.cascade.restored[0] != [2]int64{1, 2} {
		t.Fatalf("expected cascaded contact request restored, got %v", f.cascade.restored)
	}
	if len(f.markers.reconsidered) != 1 || f.markers.reconsidered[0] != [2]int64{2, 1} {
		t.Fatalf("expected marker pair retired, got %v", f.markers.reconsidered)
	}
}

func TestUndoDeclineRejectsOtherParty(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	created, _ := f.svc.Express(ctx, 1, 2)
	if _, err := f.svc.Decline(ctx, created.ID, 2); err != nil {
		t.Fatalf("decline: %v", err)
	}
	if _, err := f.svc.UndoDecline(ctx, created.ID, 1); err != ErrWrongActor {
		t.Fatalf("expected ErrWrongActor, got %v", err)
	}
}

func TestGetIsParticipantOnly(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	created, _ := f.svc.Express(ctx, 1, 2)
	if _, err := f.svc.Get(ctx, created.ID, 3); err != ErrNotParticipant {
		t.Fatalf("expected ErrNotParticipant, got %v", err)
	}
	if _, err := f.svc.Get(ctx, 999, 1); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
