package enums

import "strings"

// ContactStatus is the lifecycle state of a ContactRequest.
type ContactStatus string

const (
	ContactPending   ContactStatus = "pending"
	ContactApproved  ContactStatus = "approved"
	ContactDeclined  ContactStatus = "declined"
	ContactRevoked   ContactStatus = "revoked"
	ContactCancelled ContactStatus = "cancelled"
	ContactExpired   ContactStatus = "expired"
)

func ParseContactStatus(value string) (ContactStatus, bool) {
	status := ContactStatus(strings.ToLower(strings.TrimSpace(value)))
	switch status {
	case ContactPending, ContactApproved, ContactDeclined, ContactRevoked,
		ContactCancelled, ContactExpired:
		return status, true
	default:
		return "", false
	}
}
