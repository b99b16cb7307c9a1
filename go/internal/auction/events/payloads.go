package events

import (
	"time"
)

// Event types published through the session outbox.
const (
	TypeSessionCreated   = "SessionCreated"
	TypeUserJoined       = "UserJoined"
	TypeSessionStarted   = "SessionStarted"
	TypePlayerUp         = "PlayerUp"
	TypeBidPlaced        = "BidPlaced"
	TypeSkipVoteCast     = "SkipVoteCast"
	TypePlayerSkipped    = "PlayerSkipped"
	TypePlayerSold       = "PlayerSold"
	TypeSessionPaused    = "SessionPaused"
	TypeSessionResumed   = "SessionResumed"
	TypeRoundStarted     = "RoundStarted"
	TypeSessionCompleted = "SessionCompleted"
	TypeSessionDeleted   = "SessionDeleted"
)

// Event payload types that are shared between the auction and gateway packages

// SessionCreatedPayload is the payload for a SessionCreated event
type SessionCreatedPayload struct {
	SessionID string    `json:"session_id"`
	Name      string    `json:"name"`
	HostID    string    `json:"host_id"`
	CreatedAt time.Time `json:"created_at"`
}

// UserJoinedPayload is the payload for a UserJoined event
type UserJoinedPayload struct {
	SessionID string `json:"session_id"`
	UserID    string `json:"user_id"`
	Username  string `json:"username"`
	Budget    int64  `json:"budget"`
}

// SessionStartedPayload is the payload for a SessionStarted event
type SessionStartedPayload struct {
	SessionID    string    `json:"session_id"`
	StartedAt    time.Time `json:"started_at"`
	QueueSize    int       `json:"queue_size"`
	Participants int       `json:"participants"`
}

// PlayerUpPayload is the payload for a PlayerUp event
type PlayerUpPayload struct {
	SessionID  string    `json:"session_id"`
	PlayerID   string    `json:"player_id"`
	PlayerName string    `json:"player_name"`
	MinimumBid int64     `json:"minimum_bid"`
	StartedAt  time.Time `json:"started_at"`
	TimeoutAt  time.Time `json:"timeout_at"`
	BidTimeSec int       `json:"bid_time_sec"`
}

// BidPlacedPayload is the payload for a BidPlaced event
type BidPlacedPayload struct {
	SessionID string    `json:"session_id"`
	PlayerID  string    `json:"player_id"`
	BidderID  string    `json:"bidder_id"`
	Amount    int64     `json:"amount"`
	PlacedAt  time.Time `json:"placed_at"`
	TimeoutAt time.Time `json:"timeout_at"`
}

// SkipVoteCastPayload is the payload for a SkipVoteCast event
type SkipVoteCastPayload struct {
	SessionID string `json:"session_id"`
	PlayerID  string `json:"player_id"`
	VoterID   string `json:"voter_id"`
	Votes     int    `json:"votes"`
	Needed    int    `json:"needed"`
}

// PlayerSkippedPayload is the payload for a PlayerSkipped event
type PlayerSkippedPayload struct {
	SessionID string `json:"session_id"`
	PlayerID  string `json:"player_id"`
	Reason    string `json:"reason"` // "timeout" or "vote"
}

// PlayerSoldPayload is the payload for a PlayerSold event
type PlayerSoldPayload struct {
	SessionID     string    `json:"session_id"`
	PlayerID      string    `json:"player_id"`
	WinnerID      string    `json:"winner_id"`
	Amount        int64     `json:"amount"`
	WinnerBudget  int64     `json:"winner_budget"`
	SoldAt        time.Time `json:"sold_at"`
	TriggeredBy   string    `json:"triggered_by"` // "timeout" or "vote"
}

// SessionPausedPayload is the payload for a SessionPaused event
type SessionPausedPayload struct {
	SessionID    string    `json:"session_id"`
	PausedAt     time.Time `json:"paused_at"`
	TimeLeftSec  int       `json:"time_left_sec"`
}

// SessionResumedPayload is the payload for a SessionResumed event
type SessionResumedPayload struct {
	SessionID string    `json:"session_id"`
	ResumedAt time.Time `json:"resumed_at"`
	TimeoutAt time.Time `json:"timeout_at"`
}

// RoundStartedPayload is the payload for a RoundStarted event
type RoundStartedPayload struct {
	SessionID string `json:"session_id"`
	Round     int    `json:"round"`
	QueueSize int    `json:"queue_size"`
}

// SessionCompletedPayload is the payload for a SessionCompleted event
type SessionCompletedPayload struct {
	SessionID   string    `json:"session_id"`
	CompletedAt time.Time `json:"completed_at"`
	Duration    string    `json:"duration"`
}

// SessionDeletedPayload is the payload for a SessionDeleted event
type SessionDeletedPayload struct {
	SessionID string    `json:"session_id"`
	DeletedAt time.Time `json:"deleted_at"`
}
