package dto

import (
	"time"

	"github.com/milanapp/engine/internal/domain/model"
)

type CreateContactRequest struct {
	ToUserID int64 `json:"to_user_id"`
}

type ContactRequestResponse struct {
	ID            int64      `json:"id"`
	FromProfileID int64      `json:"from_profile_id"`
	ToProfileID   int64      `json:"to_profile_id"`
	Status        string     `json:"status"`
	CreatedAt     time.Time  `json:"created_at"`
	ApprovedAt    *time.Time `json:"approved_at,omitempty"`
	DeclinedAt    *time.Time `json:"declined_at,omitempty"`
	DeclinedBy    string     `json:"declined_by,omitempty"`
	RevokedAt     *time.Time `json:"revoked_at,omitempty"`
	RevokedBy     string     `json:"revoked_by,omitempty"`
	CancelledAt   *time.Time `json:"cancelled_at,omitempty"`
	ExpiredAt     *time.Time `json:"expired_at,omitempty"`
	ExpiryReason  string     `json:"expiry_reason,omitempty"`
	ViewedAt      *time.Time `json:"viewed_at,omitempty"`
	AutoDeclined  bool       `json:"auto_declined_due_to_interest,omitempty"`
}

func MapContactRequest(record model.ContactRequest) ContactRequestResponse {
	return ContactRequestResponse{
		ID:            record.ID,
		FromProfileID: record.FromProfileID,
		ToProfileID:   record.ToProfileID,
		Status:        string(record.Status),
		CreatedAt:     record.CreatedAt,
		ApprovedAt:    record.ApprovedAt,
		DeclinedAt:    record.DeclinedAt,
		DeclinedBy:    string(record.DeclinedBy),
		RevokedAt:     record.RevokedAt,
		RevokedBy:     string(record.RevokedBy),
		CancelledAt:   record.CancelledAt,
		ExpiredAt:     record.ExpiredAt,
		ExpiryReason:  record.ExpiryReason,
		ViewedAt:      record.ViewedByReceiverAt,
		AutoDeclined:  record.AutoDeclinedDueToInterest,
	}
}
