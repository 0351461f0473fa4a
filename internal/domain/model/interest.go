package model

import (
	"time"

	"github.com/milanapp/engine/internal/domain/enums"
)

// Interest is a one-directional "I am interested in you" signal between two
// profiles. Terminal transitions keep the row; only the status and the
// matching transition metadata change.
type Interest struct {
	ID            int64                `json:"id"`
	FromProfileID int64                `json:"from_profile_id"`
	ToProfileID   int64                `json:"to_profile_id"`
	Status        enums.InterestStatus `json:"status"`
	CreatedAt     time.Time            `json:"created_at"`

	AcceptedAt   *time.Time  `json:"accepted_at,omitempty"`
	DeclinedAt   *time.Time  `json:"declined_at,omitempty"`
	DeclinedBy   enums.Actor `json:"declined_by,omitempty"`
	RevokedAt    *time.Time  `json:"revoked_at,omitempty"`
	RevokedBy    enums.Actor `json:"revoked_by,omitempty"`
	BlockedAt    *time.Time  `json:"blocked_at,omitempty"`
	CancelledAt  *time.Time  `json:"cancelled_at,omitempty"`
	ExpiredAt    *time.Time  `json:"expired_at,omitempty"`
	ExpiryReason string      `json:"expiry_reason,omitempty"`

	// PriorStatus is recorded when the interest is blocked so an unblock can
	// restore the exact pre-block state instead of guessing.
	PriorStatus enums.InterestStatus `json:"prior_status,omitempty"`

	// ContactAutoDeclined marks that declining this interest force-declined a
	// sibling contact request from the same sender.
	ContactAutoDeclined bool `json:"contact_auto_declined"`
}

func (i Interest) Pair() (int64, int64) {
	return i.FromProfileID, i.ToProfileID
}

// OtherParty returns the counterparty profile id for one of the two parties.
func (i Interest) OtherParty(profileID int64) int64 {
	if profileID == i.FromProfileID {
		return i.ToProfileID
	}
	return i.FromProfileID
}
