package auction

import (
	"errors"
	"fmt"
)

// Sentinel errors for session operations. Handlers map these onto HTTP codes.
var (
	ErrValidation         = errors.New("invalid request")
	ErrSessionNotFound    = errors.New("session not found")
	ErrNotHost            = errors.New("only the host may perform this action")
	ErrNotParticipant     = errors.New("user has not joined this session")
	ErrAlreadyJoined      = errors.New("user already joined this session")
	ErrSessionNotPending  = errors.New("session is not pending")
	ErrSessionNotActive   = errors.New("session is not active")
	ErrSessionNotPaused   = errors.New("session is not paused")
	ErrSessionCompleted   = errors.New("session is completed")
	ErrNoCurrentItem      = errors.New("no player is on the clock")
	ErrNoPlayersAvailable = errors.New("no players available")
	ErrNoParticipants     = errors.New("session has no participants")
	ErrAlreadyVoted       = errors.New("user already voted to skip this player")
	ErrAlreadySettled     = errors.New("player already settled for this session")
	ErrInsufficientBudget = errors.New("insufficient budget")
)

// RejectReason classifies why a bid was refused.
type RejectReason string

const (
	RejectBelowMinimum       RejectReason = "BELOW_MINIMUM"
	RejectIncrementTooSmall  RejectReason = "INCREMENT_TOO_SMALL"
	RejectInsufficientBudget RejectReason = "INSUFFICIENT_BUDGET"
	RejectAlreadyLeading     RejectReason = "ALREADY_LEADING"
)

// BidRejectedError reports a bid that failed validation, carrying the
// threshold the bidder must clear.
type BidRejectedError struct {
	Reason   RejectReason
	Required int64
	Offered  int64
}

func (e *BidRejectedError) Error() string {
	return fmt.Sprintf("bid rejected (%s): offered %d, required %d", e.Reason, e.Offered, e.Required)
}

// IsBidRejected reports whether err is a BidRejectedError.
func IsBidRejected(err error) (*BidRejectedError, bool) {
	var br *BidRejectedError
	if errors.As(err, &br) {
		return br, true
	}
	return nil, false
}
