package rules

import "time"

// DefaultExpiryDays is how long a pending interest or contact request lives
// before the sweeper expires it.
const DefaultExpiryDays = 15

// ExpiryReasonTimeout is the reason recorded on sweep-expired records.
const ExpiryReasonTimeout = "timeout"

func ExpiryDeadline(createdAt time.Time, expiryDays int) time.Time {
	if expiryDays <= 0 {
		expiryDays = DefaultExpiryDays
	}
	return createdAt.Add(time.Duration(expiryDays) * 24 * time.Hour)
}

func IsOverdue(createdAt time.Time, expiryDays int, now time.Time) bool {
	return now.After(ExpiryDeadline(createdAt, expiryDays))
}
