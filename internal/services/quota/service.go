package quota

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/milanapp/engine/internal/domain/enums"
	"github.com/milanapp/engine/internal/domain/model"
	"github.com/milanapp/engine/internal/domain/rules"
)

var (
	ErrValidation      = errors.New("validation error")
	ErrDependenciesNil = errors.New("quota dependencies are not configured")
)

// QuotaExceededError reports a full slot set. Consumed slots are never
// refunded, so the only remedies are a boost pack or a tier upgrade.
type QuotaExceededError struct {
	ProfileID int64
	Kind      enums.SlotKind
	Limit     int
}

func (e QuotaExceededError) Error() string {
	return fmt.Sprintf("%s quota exceeded: limit %d", e.Kind, e.Limit)
}

func IsQuotaExceeded(err error) (*QuotaExceededError, bool) {
	var qe QuotaExceededError
	if errors.As(err, &qe) {
		return &qe, true
	}
	return nil, false
}

type ProfileStore interface {
	GetByProfileID(ctx context.Context, profileID int64) (model.Profile, error)
}

type ConsumptionStore interface {
	Add(ctx context.Context, tx pgx.Tx, profileID, targetProfileID int64, kind enums.SlotKind, now time.Time) (bool, error)
	Has(ctx context.Context, tx pgx.Tx, profileID, targetProfileID int64, kind enums.SlotKind) (bool, error)
	Count(ctx context.Context, tx pgx.Tx, profileID int64, kind enums.SlotKind) (int, error)
	Counts(ctx context.Context, profileID int64) (chat int, contact int, err error)
}

type TierLimits struct {
	ChatLimit    int
	ContactLimit int
}

type Config struct {
	Free            TierLimits
	SixMonth        TierLimits
	OneYear         TierLimits
	InterestCredits int
	ContactCredits  int
}

type Snapshot struct {
	Tier             enums.Tier
	ChatLimit        int
	ChatUsed         int
	ChatRemaining    int
	ContactLimit     int
	ContactUsed      int
	ContactRemaining int
}

type Service struct {
	profiles     ProfileStore
	consumptions ConsumptionStore
	cfg          Config
	now          func() time.Time
}

func NewService(profiles ProfileStore, consumptions ConsumptionStore, cfg Config) *Service {
	if cfg.Free.ChatLimit <= 0 {
		cfg.Free.ChatLimit = rules.FreeChatLimit
	}
	if cfg.SixMonth.ChatLimit <= 0 {
		cfg.SixMonth.ChatLimit = rules.SixMonthChatLimit
	}
	if cfg.SixMonth.ContactLimit <= 0 {
		cfg.SixMonth.ContactLimit = rules.SixMonthContact
	}
	if cfg.OneYear.ChatLimit <= 0 {
		cfg.OneYear.ChatLimit = rules.OneYearChatLimit
	}
	if cfg.OneYear.ContactLimit <= 0 {
		cfg.OneYear.ContactLimit = rules.OneYearContact
	}
	if cfg.InterestCredits <= 0 {
		cfg.InterestCredits = rules.DefaultInterestPackCredits
	}
	if cfg.ContactCredits <= 0 {
		cfg.ContactCredits = rules.DefaultContactPackCredits
	}

	return &Service{
		profiles:     profiles,
		consumptions: consumptions,
		cfg:          cfg,
		now:          time.Now,
	}
}

// ChatLimit is the profile's total chat slot budget: the tier base plus
// purchased interest-pack credits.
func (s *Service) ChatLimit(profile model.Profile) int {
	base := s.cfg.Free.ChatLimit
	switch profile.Tier {
	case enums.TierSixMonth:
		base = s.cfg.SixMonth.ChatLimit
	case enums.TierOneYear:
		base = s.cfg.OneYear.ChatLimit
	}
	return base + rules.BoostCredits(profile.InterestPacks, s.cfg.InterestCredits)
}

// ContactLimit is the profile's total contact slot budget. The free tier
// has no base contact slots; packs still add credits.
func (s *Service) ContactLimit(profile model.Profile) int {
	base := s.cfg.Free.ContactLimit
	switch profile.Tier {
	case enums.TierSixMonth:
		base = s.cfg.SixMonth.ContactLimit
	case enums.TierOneYear:
		base = s.cfg.OneYear.ContactLimit
	}
	return base + rules.BoostCredits(profile.ContactPacks, s.cfg.ContactCredits)
}

// CanConsume reports whether a slot of the kind could be debited against the
// target right now, without debiting it.
func (s *Service) CanConsume(ctx context.Context, tx pgx.Tx, profile model.Profile, targetProfileID int64, kind enums.SlotKind) error {
	if profile.ProfileID <= 0 || targetProfileID <= 0 {
		return ErrValidation
	}
	if s.consumptions == nil {
		return ErrDependenciesNil
	}

	consumed, err := s.consumptions.Has(ctx, tx, profile.ProfileID, targetProfileID, kind)
	if err != nil {
		return fmt.Errorf("check consumed set: %w", err)
	}
	if consumed {
		return nil
	}

	limit := s.limitFor(profile, kind)
	used, err := s.consumptions.Count(ctx, tx, profile.ProfileID, kind)
	if err != nil {
		return fmt.Errorf("count consumed set: %w", err)
	}
	if used >= limit {
		return QuotaExceededError{ProfileID: profile.ProfileID, Kind: kind, Limit: limit}
	}

	return nil
}

// Consume debits one slot of the kind against the target, inside the
// caller's transaction. Re-consuming the same target is a no-op, so a
// replayed operation never burns a second slot.
func (s *Service) Consume(ctx context.Context, tx pgx.Tx, profile model.Profile, targetProfileID int64, kind enums.SlotKind) error {
	if err := s.CanConsume(ctx, tx, profile, targetProfileID, kind); err != nil {
		return err
	}

	if _, err := s.consumptions.Add(ctx, tx, profile.ProfileID, targetProfileID, kind, s.now().UTC()); err != nil {
		return fmt.Errorf("record consumption: %w", err)
	}

	return nil
}

func (s *Service) GetSnapshot(ctx context.Context, profileID int64) (Snapshot, error) {
	if profileID <= 0 {
		return Snapshot{}, ErrValidation
	}
	if s.profiles == nil || s.consumptions == nil {
		return Snapshot{}, ErrDependenciesNil
	}

	profile, err := s.profiles.GetByProfileID(ctx, profileID)
	if err != nil {
		return Snapshot{}, fmt.Errorf("load profile: %w", err)
	}

	chatUsed, contactUsed, err := s.consumptions.Counts(ctx, profileID)
	if err != nil {
		return Snapshot{}, fmt.Errorf("count consumptions: %w", err)
	}

	snapshot := Snapshot{
		Tier:         profile.Tier,
		ChatLimit:    s.ChatLimit(profile),
		ChatUsed:     chatUsed,
		ContactLimit: s.ContactLimit(profile),
		ContactUsed:  contactUsed,
	}
	snapshot.ChatRemaining = clampZero(snapshot.ChatLimit - chatUsed)
	snapshot.ContactRemaining = clampZero(snapshot.ContactLimit - contactUsed)

	return snapshot, nil
}

func (s *Service) limitFor(profile model.Profile, kind enums.SlotKind) int {
	if kind == enums.SlotContact {
		return s.ContactLimit(profile)
	}
	return s.ChatLimit(profile)
}

func clampZero(v int) int {
	if v < 0 {
		return 0
	}
	return v
}
