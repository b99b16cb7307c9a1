package catalog

import "github.com/squadbid/squadbid/go/internal/models"

// Tier thresholds and opening floors, keyed off the overall rating.
const (
	goldMinOverall   = 85
	silverMinOverall = 75
	bronzeMinOverall = 65

	goldMinimumBid   int64 = 50000
	silverMinimumBid int64 = 30000
	bronzeMinimumBid int64 = 10000
	extraMinimumBid  int64 = 0
)

// TierForOverall returns the tier a player's overall rating places them in.
func TierForOverall(overall int) models.PlayerTier {
	switch {
	case overall >= goldMinOverall:
		return models.PlayerTierGold
	case overall >= silverMinOverall:
		return models.PlayerTierSilver
	case overall >= bronzeMinOverall:
		return models.PlayerTierBronze
	default:
		return models.PlayerTierExtra
	}
}

// MinimumBid returns the lowest opening bid permitted for a tier.
func MinimumBid(tier models.PlayerTier) int64 {
	switch tier {
	case models.PlayerTierGold:
		return goldMinimumBid
	case models.PlayerTierSilver:
		return silverMinimumBid
	case models.PlayerTierBronze:
		return bronzeMinimumBid
	default:
		return extraMinimumBid
	}
}

// MinimumBidFor returns the opening floor for a player.
func MinimumBidFor(player *models.Player) int64 {
	return MinimumBid(player.Tier)
}
