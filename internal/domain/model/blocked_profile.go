package model

import (
	"time"

	"github.com/milanapp/engine/internal/domain/enums"
)

// BlockedProfile records one profile blocking another, with an optional
// abuse report forwarded to the moderation collaborator.
type BlockedProfile struct {
	ID                int64              `json:"id"`
	BlockerProfileID  int64              `json:"blocker_profile_id"`
	BlockedProfileID  int64              `json:"blocked_profile_id"`
	CreatedAt         time.Time          `json:"created_at"`
	ReportReason      enums.ReportReason `json:"report_reason,omitempty"`
	ReportDescription string             `json:"report_description,omitempty"`
	IsUnblocked       bool               `json:"is_unblocked"`
	UnblockedAt       *time.Time         `json:"unblocked_at,omitempty"`
}
