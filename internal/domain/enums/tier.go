package enums

import "strings"

// Tier is a profile's membership plan.
type Tier string

const (
	TierFree     Tier = "free"
	TierSixMonth Tier = "six_month"
	TierOneYear  Tier = "one_year"
)

func ParseTier(value string) (Tier, bool) {
	tier := Tier(strings.ToLower(strings.TrimSpace(value)))
	switch tier {
	case TierFree, TierSixMonth, TierOneYear:
		return tier, true
	default:
		return "", false
	}
}
