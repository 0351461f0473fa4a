package sweeper

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"

	"github.com/milanapp/engine/internal/domain/enums"
	"github.com/milanapp/engine/internal/domain/model"
	redrepo "github.com/milanapp/engine/internal/repo/redis"
	"github.com/milanapp/engine/internal/services/notify"
)

var testNow = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

type stubInterestExpirer struct {
	expired    []model.Interest
	gotCutoff  time.Time
	gotLimit   int
	gotReason  string
	timesFired int
}

func (s *stubInterestExpirer) ExpireOverdue(_ context.Context, cutoff, _ time.Time, reason string, limit int) ([]model.Interest, error) {
	s.gotCutoff = cutoff
	s.gotReason = reason
	s.gotLimit = limit
	s.timesFired++
	if s.timesFired > 1 {
		// Rows are already expired; the guarded update matches nothing.
		return nil, nil
	}
	return s.expired, nil
}

type stubContactExpirer struct {
	expired []model.ContactRequest
}

func (s *stubContactExpirer) ExpireOverdue(_ context.Context, _, _ time.Time, _ string, _ int) ([]model.ContactRequest, error) {
	out := s.expired
	s.expired = nil
	return out, nil
}

type stubIdentities struct {
	missing map[int64]bool
}

func (s *stubIdentities) Exists(_ context.Context, profileID int64) (bool, error) {
	return !s.missing[profileID], nil
}

type stubNotifier struct {
	events []notify.Event
}

func (s *stubNotifier) Enqueue(event notify.Event) {
	s.events = append(s.events, event)
}

func newSeenStore(t *testing.T) (*miniredis.Miniredis, *redrepo.SweepRepo) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		_ = client.Close()
		mr.Close()
	})

	return mr, redrepo.NewSweepRepo(client)
}

func expiredInterest(id, from, to int64) model.Interest {
	return model.Interest{ID: id, FromProfileID: from, ToProfileID: to, Status: enums.InterestExpired}
}

func TestRunExpiresAndNotifiesSenders(t *testing.T) {
	_, seen := newSeenStore(t)
	interests := &stubInterestExpirer{expired: []model.Interest{expiredInterest(1, 10, 20), expiredInterest(2, 11, 21)}}
	contacts := &stubContactExpirer{expired: []model.ContactRequest{{ID: 5, FromProfileID: 12, ToProfileID: 22, Status: enums.ContactExpired}}}
	notifier := &stubNotifier{}

	job := New(interests, contacts, seen, &stubIdentities{}, notifier, 15, 100, nil)
	job.now = func() time.Time { return testNow }

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}

	wantCutoff := testNow.Add(-15 * 24 * time.Hour)
	if !interests.gotCutoff.Equal(wantCutoff) {
		t.Fatalf("cutoff: got %v, want %v", interests.gotCutoff, wantCutoff)
	}
	if interests.gotReason != "timeout" || interests.gotLimit != 100 {
		t.Fatalf("unexpected expire args: reason=%q limit=%d", interests.gotReason, interests.gotLimit)
	}
	if len(notifier.events) != 3 {
		t.Fatalf("expected 3 notifications, got %d", len(notifier.events))
	}
	first := notifier.events[0]
	if first.ProfileID != 10 || first.Kind != model.NotifyInterestExpired || first.SubjectID != 1 {
		t.Fatalf("unexpected first event: %+v", first)
	}
	last := notifier.events[2]
	if last.Kind != model.NotifyContactExpired || last.ProfileID != 12 {
		t.Fatalf("unexpected contact event: %+v", last)
	}
}

func TestRunSkipsAlreadyAnnouncedExpiries(t *testing.T) {
	_, seen := newSeenStore(t)
	interests := &stubInterestExpirer{expired: []model.Interest{expiredInterest(1, 10, 20)}}
	notifier := &stubNotifier{}

	job := New(interests, &stubContactExpirer{}, seen, &stubIdentities{}, notifier, 15, 100, nil)
	job.now = func() time.Time { return testNow }

	ctx := context.Background()
	if err := job.Run(ctx); err != nil {
		t.Fatalf("first run: %v", err)
	}
	// Simulate a crashed run re-observing the same row.
	interests.timesFired = 0
	if err := job.Run(ctx); err != nil {
		t.Fatalf("second run: %v", err)
	}

	if len(notifier.events) != 1 {
		t.Fatalf("expected single notification across runs, got %d", len(notifier.events))
	}
}

func TestRunSkipsNotificationForMissingProfile(t *testing.T) {
	_, seen := newSeenStore(t)
	interests := &stubInterestExpirer{expired: []model.Interest{expiredInterest(1, 10, 20), expiredInterest(2, 11, 21)}}
	notifier := &stubNotifier{}

	job := New(interests, &stubContactExpirer{}, seen, &stubIdentities{missing: map[int64]bool{10: true}}, notifier, 15, 100, nil)
	job.now = func() time.Time { return testNow }

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(notifier.events) != 1 || notifier.events[0].ProfileID != 11 {
		t.Fatalf("expected only the existing profile notified, got %+v", notifier.events)
	}
}
