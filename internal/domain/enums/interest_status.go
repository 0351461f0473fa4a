package enums

import "strings"

// InterestStatus is the lifecycle state of an Interest. A record holds
// exactly one status at any time; terminal transitions never delete the row.
type InterestStatus string

const (
	InterestPending   InterestStatus = "pending"
	InterestAccepted  InterestStatus = "accepted"
	InterestDeclined  InterestStatus = "declined"
	InterestRevoked   InterestStatus = "revoked"
	InterestBlocked   InterestStatus = "blocked"
	InterestExpired   InterestStatus = "expired"
	InterestCancelled InterestStatus = "cancelled"
)

func ParseInterestStatus(value string) (InterestStatus, bool) {
	status := InterestStatus(strings.ToLower(strings.TrimSpace(value)))
	switch status {
	case InterestPending, InterestAccepted, InterestDeclined, InterestRevoked,
		InterestBlocked, InterestExpired, InterestCancelled:
		return status, true
	default:
		return "", false
	}
}
