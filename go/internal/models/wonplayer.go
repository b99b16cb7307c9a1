package models

import (
	"time"

	"github.com/google/uuid"
)

// WonPlayer is the immutable settlement record for one sold player.
// At most one row exists per (session, player).
type WonPlayer struct {
	SessionID  uuid.UUID `json:"session_id"`
	PlayerID   uuid.UUID `json:"player_id"`
	WinnerID   uuid.UUID `json:"winner_id"`
	Amount     int64     `json:"amount"`
	Substitute bool      `json:"substitute"`
	WonAt      time.Time `json:"won_at"`
}
