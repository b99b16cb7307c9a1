package auction

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/squadbid/squadbid/go/internal/models"
)

func (a *App) validateCreateSessionRequest(req CreateSessionRequest) error {
	if req.Name == "" {
		return fmt.Errorf("%w: name is required", ErrValidation)
	}
	if req.HostID == uuid.Nil {
		return fmt.Errorf("%w: host_id is required", ErrValidation)
	}
	if req.Settings.BidTimeSec < 0 {
		return fmt.Errorf("%w: bid_time_sec cannot be negative", ErrValidation)
	}
	if req.Settings.MinBidIncrement < 0 {
		return fmt.Errorf("%w: min_bid_increment cannot be negative", ErrValidation)
	}
	return nil
}

// requireHost guards host-only actions.
func requireHost(sess *models.Session, userID uuid.UUID) error {
	if sess.HostID != userID {
		return ErrNotHost
	}
	return nil
}

// requireStatus maps a status mismatch onto the matching sentinel.
func requireStatus(sess *models.Session, want models.SessionStatus) error {
	if sess.Status == want {
		return nil
	}
	switch {
	case sess.Status == models.SessionStatusCompleted:
		return ErrSessionCompleted
	case want == models.SessionStatusPending:
		return ErrSessionNotPending
	case want == models.SessionStatusActive:
		return ErrSessionNotActive
	case want == models.SessionStatusPaused:
		return ErrSessionNotPaused
	default:
		return fmt.Errorf("session status is %s, want %s", sess.Status, want)
	}
}

// validateBid returns the amount a bid must reach and checks req against it.
// minimumBid is the tier floor of the player on the clock.
func validateBid(sess *models.Session, req PlaceBidRequest, minimumBid, budget int64) error {
	item := sess.CurrentItem
	if item.BidderID != nil && *item.BidderID == req.UserID {
		return &BidRejectedError{Reason: RejectAlreadyLeading, Required: item.BidAmount, Offered: req.Amount}
	}

	required := minimumBid
	if item.BidderID != nil {
		required = item.BidAmount + sess.Settings.MinBidIncrement
	}
	if required <= 0 {
		required = 1
	}

	if req.Amount < required {
		reason := RejectBelowMinimum
		if item.BidderID != nil {
			reason = RejectIncrementTooSmall
		}
		return &BidRejectedError{Reason: reason, Required: required, Offered: req.Amount}
	}
	if req.Amount > budget {
		return &BidRejectedError{Reason: RejectInsufficientBudget, Required: req.Amount, Offered: budget}
	}
	return nil
}

// skipVotesNeeded is the full participant count. A skip only resolves when
// every participant has voted for it.
func skipVotesNeeded(sess *models.Session) int {
	return len(sess.Participants)
}
