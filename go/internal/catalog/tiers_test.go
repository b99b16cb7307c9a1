package catalog

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/squadbid/squadbid/go/internal/models"
)

func TestTierForOverall(t *testing.T) {
	tests := []struct {
		name    string
		overall int
		tier    models.PlayerTier
	}{
		{name: "gold_boundary", overall: 85, tier: models.PlayerTierGold},
		{name: "gold_high", overall: 94, tier: models.PlayerTierGold},
		{name: "silver_boundary", overall: 75, tier: models.PlayerTierSilver},
		{name: "silver_top", overall: 84, tier: models.PlayerTierSilver},
		{name: "bronze_boundary", overall: 65, tier: models.PlayerTierBronze},
		{name: "bronze_top", overall: 74, tier: models.PlayerTierBronze},
		{name: "extra", overall: 64, tier: models.PlayerTierExtra},
		{name: "extra_low", overall: 40, tier: models.PlayerTierExtra},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.tier, TierForOverall(tt.overall))
		})
	}
}

func TestMinimumBid(t *testing.T) {
	require.Equal(t, int64(50000), MinimumBid(models.PlayerTierGold))
	require.Equal(t, int64(30000), MinimumBid(models.PlayerTierSilver))
	require.Equal(t, int64(10000), MinimumBid(models.PlayerTierBronze))
	require.Equal(t, int64(0), MinimumBid(models.PlayerTierExtra))
}
