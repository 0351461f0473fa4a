package model

import (
	"time"

	"github.com/milanapp/engine/internal/domain/enums"
)

// ContactRequest is a one-directional request to view another profile's
// private contact details. Rows carry both the account-level and the
// profile-level identities of each party; the engine works in profile ids
// and translates user ids at the command boundary.
type ContactRequest struct {
	ID            int64               `json:"id"`
	FromUserID    int64               `json:"from_user_id"`
	ToUserID      int64               `json:"to_user_id"`
	FromProfileID int64               `json:"from_profile_id"`
	ToProfileID   int64               `json:"to_profile_id"`
	Status        enums.ContactStatus `json:"status"`
	CreatedAt     time.Time           `json:"created_at"`

	ApprovedAt   *time.Time  `json:"approved_at,omitempty"`
	DeclinedAt   *time.Time  `json:"declined_at,omitempty"`
	DeclinedBy   enums.Actor `json:"declined_by,omitempty"`
	RevokedAt    *time.Time  `json:"revoked_at,omitempty"`
	RevokedBy    enums.Actor `json:"revoked_by,omitempty"`
	CancelledAt  *time.Time  `json:"cancelled_at,omitempty"`
	ExpiredAt    *time.Time  `json:"expired_at,omitempty"`
	ExpiryReason string      `json:"expiry_reason,omitempty"`

	// ViewedByReceiverAt is set the first time the receiver observes the
	// request, independent of the eventual decision. Used only to suppress
	// duplicate "new request" badges.
	ViewedByReceiverAt *time.Time `json:"viewed_by_receiver_at,omitempty"`

	// AutoDeclinedDueToInterest marks a decline forced by the cascade from a
	// declined or blocked interest, so the UI can explain it and an undo can
	// target exactly this request.
	AutoDeclinedDueToInterest bool `json:"auto_declined_due_to_interest"`
}

func (c ContactRequest) OtherParty(profileID int64) int64 {
	if profileID == c.FromProfileID {
		return c.ToProfileID
	}
	return c.FromProfileID
}
