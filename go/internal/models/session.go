package models

import (
	"time"

	"github.com/google/uuid"
)

// SessionStatus defines the lifecycle status of an auction session.
type SessionStatus string

const (
	SessionStatusPending   SessionStatus = "PENDING"
	SessionStatusActive    SessionStatus = "ACTIVE"
	SessionStatusPaused    SessionStatus = "PAUSED"
	SessionStatusCompleted SessionStatus = "COMPLETED"
)

// SessionSettings holds the JSONB configuration for a session.
type SessionSettings struct {
	BidTimeSec       int   `json:"bid_time_sec"`
	MinBidIncrement  int64 `json:"min_bid_increment"`
	ReshuffleSkipped bool  `json:"reshuffle_skipped,omitempty"`
}

// Participant is a member of a session in join order. Budget is a display
// cache of the directory record; the authoritative value lives in users.
type Participant struct {
	UserID   uuid.UUID `json:"user_id"`
	Username string    `json:"username"`
	Emoji    string    `json:"emoji,omitempty"`
	Color    string    `json:"color,omitempty"`
	Budget   int64     `json:"budget"`
}

// CurrentItem is the player presently on the clock. BidderID nil means no
// bid has been placed yet, in which case BidAmount is 0.
type CurrentItem struct {
	PlayerID       uuid.UUID  `json:"player_id"`
	BidAmount      int64      `json:"bid_amount"`
	BidderID       *uuid.UUID `json:"bidder_id,omitempty"`
	StartedAt      time.Time  `json:"started_at"`
	FrozenTimeLeft *int       `json:"frozen_time_left,omitempty"` // set while paused
}

// Session represents one live auction run over a queue of players.
type Session struct {
	ID           uuid.UUID       `json:"id"`
	Name         string          `json:"name"`
	HostID       uuid.UUID       `json:"host_id"`
	Status       SessionStatus   `json:"status"`
	Round        int             `json:"round"`
	Settings     SessionSettings `json:"settings"`
	Participants []Participant   `json:"participants"`
	AvailableIDs []uuid.UUID     `json:"available_ids"`
	SkippedIDs   []uuid.UUID     `json:"skipped_ids"`
	SkipVotes    []uuid.UUID     `json:"skip_votes"`
	CurrentItem  *CurrentItem    `json:"current_item,omitempty"`
	NextDeadline *time.Time      `json:"next_deadline,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

// IsParticipant reports whether userID has joined the session.
func (s *Session) IsParticipant(userID uuid.UUID) bool {
	for _, p := range s.Participants {
		if p.UserID == userID {
			return true
		}
	}
	return false
}

// Participant returns the participant entry for userID, or nil.
func (s *Session) Participant(userID uuid.UUID) *Participant {
	for i := range s.Participants {
		if s.Participants[i].UserID == userID {
			return &s.Participants[i]
		}
	}
	return nil
}

// HasSkipVote reports whether userID already voted to skip the current player.
func (s *Session) HasSkipVote(userID uuid.UUID) bool {
	for _, id := range s.SkipVotes {
		if id == userID {
			return true
		}
	}
	return false
}
