package models

import (
	"time"

	"github.com/google/uuid"
)

// PlayerTier is the rating-derived tier that sets a player's opening floor.
type PlayerTier string

const (
	PlayerTierGold   PlayerTier = "gold"
	PlayerTierSilver PlayerTier = "silver"
	PlayerTierBronze PlayerTier = "bronze"
	PlayerTierExtra  PlayerTier = "extra"
)

// PlayerStats holds the per-attribute ratings.
type PlayerStats struct {
	Pace      int `json:"pace"`
	Shooting  int `json:"shooting"`
	Passing   int `json:"passing"`
	Dribbling int `json:"dribbling"`
	Defending int `json:"defending"`
	Physical  int `json:"physical"`
}

// Player is a catalog entry available for bidding.
type Player struct {
	ID        uuid.UUID   `json:"id"`
	Name      string      `json:"name"`
	Overall   int         `json:"overall"`
	Position  string      `json:"position"`
	Tier      PlayerTier  `json:"tier"`
	Stats     PlayerStats `json:"stats"`
	CreatedAt time.Time   `json:"created_at"`
}
