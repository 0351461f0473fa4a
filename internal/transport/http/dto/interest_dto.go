package dto

import (
	"time"

	"github.com/milanapp/engine/internal/domain/model"
)

type ExpressInterestRequest struct {
	ToProfileID int64 `json:"to_profile_id"`
}

type BlockInterestRequest struct {
	ReportReason      string `json:"report_reason,omitempty"`
	ReportDescription string `json:"report_description,omitempty"`
}

type InterestResponse struct {
	ID                  int64      `json:"id"`
	FromProfileID       int64      `json:"from_profile_id"`
	ToProfileID         int64      `json:"to_profile_id"`
	Status              string     `json:"status"`
	CreatedAt           time.Time  `json:"created_at"`
	AcceptedAt          *time.Time `json:"accepted_at,omitempty"`
	DeclinedAt          *time.Time `json:"declined_at,omitempty"`
	DeclinedBy          string     `json:"declined_by,omitempty"`
	RevokedAt           *time.Time `json:"revoked_at,omitempty"`
	RevokedBy           string     `json:"revoked_by,omitempty"`
	BlockedAt           *time.Time `json:"blocked_at,omitempty"`
	CancelledAt         *time.Time `json:"cancelled_at,omitempty"`
	ExpiredAt           *time.Time `json:"expired_at,omitempty"`
	ExpiryReason        string     `json:"expiry_reason,omitempty"`
	ContactAutoDeclined bool       `json:"contact_auto_declined,omitempty"`
}

func MapInterest(record model.Interest) InterestResponse {
	return InterestResponse{
		ID:                  record.ID,
		FromProfileID:       record.FromProfileID,
		ToProfileID:         record.ToProfileID,
		Status:              string(record.Status),
		CreatedAt:           record.CreatedAt,
		AcceptedAt:          record.AcceptedAt,
		DeclinedAt:          record.DeclinedAt,
		DeclinedBy:          string(record.DeclinedBy),
		RevokedAt:           record.RevokedAt,
		RevokedBy:           string(record.RevokedBy),
		BlockedAt:           record.BlockedAt,
		CancelledAt:         record.CancelledAt,
		ExpiredAt:           record.ExpiredAt,
		ExpiryReason:        record.ExpiryReason,
		ContactAutoDeclined: record.ContactAutoDeclined,
	}
}
