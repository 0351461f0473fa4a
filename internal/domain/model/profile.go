package model

import (
	"time"

	"github.com/milanapp/engine/internal/domain/enums"
)

// Profile is the engine's read-side view of a profile owned by the account
// subsystem: the identity mapping plus what quota math needs. Purchased
// boost packs convert to extra credits via the configured pack sizes.
type Profile struct {
	ProfileID     int64      `json:"profile_id"`
	UserID        int64      `json:"user_id"`
	Tier          enums.Tier `json:"tier"`
	InterestPacks int        `json:"interest_packs"`
	ContactPacks  int        `json:"contact_packs"`
	CreatedAt     time.Time  `json:"created_at"`
}
