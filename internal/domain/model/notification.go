package model

import "time"

// Notification kinds emitted by the engine into the presentation layer's
// notification inbox.
const (
	NotifyInterestReceived = "interest_received"
	NotifyInterestAccepted = "interest_accepted"
	NotifyInterestDeclined = "interest_declined"
	NotifyInterestExpired  = "interest_expired"
	NotifyContactRequested = "contact_requested"
	NotifyContactApproved  = "contact_approved"
	NotifyContactDeclined  = "contact_declined"
	NotifyContactExpired   = "contact_expired"
)

// Subject kinds for notifications.
const (
	SubjectInterest = "interest"
	SubjectContact  = "contact_request"
)

type Notification struct {
	ID             string    `json:"id"`
	ProfileID      int64     `json:"profile_id"`
	ActorProfileID int64     `json:"actor_profile_id"`
	Kind           string    `json:"kind"`
	SubjectKind    string    `json:"subject_kind"`
	SubjectID      int64     `json:"subject_id"`
	CreatedAt      time.Time `json:"created_at"`
}
