package auction

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/squadbid/squadbid/go/internal/models"
)

// CreateSessionRequest represents a request to create a new auction session
type CreateSessionRequest struct {
	Name     string                 `json:"name"`
	HostID   uuid.UUID              `json:"host_id"`
	Settings models.SessionSettings `json:"settings"`
}

// JoinSessionRequest adds a user to a pending session
type JoinSessionRequest struct {
	UserID uuid.UUID `json:"user_id"`
}

// PlaceBidRequest represents a bid on the player currently on the clock
type PlaceBidRequest struct {
	UserID uuid.UUID `json:"user_id"`
	Amount int64     `json:"amount"`
}

// SkipVoteRequest casts a vote to skip the player currently on the clock
type SkipVoteRequest struct {
	UserID uuid.UUID `json:"user_id"`
}

// TimeLeft reports the remaining clock for the player currently up.
type TimeLeft struct {
	SessionID   uuid.UUID  `json:"session_id"`
	PlayerID    *uuid.UUID `json:"player_id,omitempty"`
	TimeLeftSec int        `json:"time_left_sec"`
	Deadline    *time.Time `json:"deadline,omitempty"`
	Paused      bool       `json:"paused"`
}

// NextDeadline represents the next expiry deadline across active sessions
type NextDeadline struct {
	SessionID uuid.UUID  `json:"session_id"`
	Deadline  *time.Time `json:"deadline"`
}

// PendingEvent is an outbox record staged inside a session commit.
type PendingEvent struct {
	Type    string
	Payload json.RawMessage
}
