package rules

import "github.com/milanapp/engine/internal/domain/enums"

// Base slot limits per membership tier. Values are defaults; the settings
// collaborator may override them through config.
const (
	FreeChatLimit     = 3
	FreeContactLimit  = 0
	SixMonthChatLimit = 25
	SixMonthContact   = 15
	OneYearChatLimit  = 60
	OneYearContact    = 40

	// DefaultInterestPackCredits and DefaultContactPackCredits are the credit
	// sizes of a single purchased boost pack.
	DefaultInterestPackCredits = 10
	DefaultContactPackCredits  = 5
)

func BaseChatLimit(tier enums.Tier) int {
	switch tier {
	case enums.TierSixMonth:
		return SixMonthChatLimit
	case enums.TierOneYear:
		return OneYearChatLimit
	default:
		return FreeChatLimit
	}
}

func BaseContactLimit(tier enums.Tier) int {
	switch tier {
	case enums.TierSixMonth:
		return SixMonthContact
	case enums.TierOneYear:
		return OneYearContact
	default:
		return FreeContactLimit
	}
}

// BoostCredits converts purchased pack counts into extra credits.
func BoostCredits(packs, packSize int) int {
	if packs <= 0 || packSize <= 0 {
		return 0
	}
	return packs * packSize
}
