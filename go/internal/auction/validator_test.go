package auction

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/squadbid/squadbid/go/internal/models"
)

func bidSession(current *models.CurrentItem, increment int64) *models.Session {
	return &models.Session{
		Settings:    models.SessionSettings{BidTimeSec: 30, MinBidIncrement: increment},
		CurrentItem: current,
	}
}

func TestValidateBidOpeningFloor(t *testing.T) {
	bidder := uuid.New()
	sess := bidSession(&models.CurrentItem{}, 1000)

	err := validateBid(sess, PlaceBidRequest{UserID: bidder, Amount: 40_000}, 50_000, 1_000_000)
	br, ok := IsBidRejected(err)
	require.True(t, ok)
	require.Equal(t, RejectBelowMinimum, br.Reason)
	require.Equal(t, int64(50_000), br.Required)

	require.NoError(t, validateBid(sess, PlaceBidRequest{UserID: bidder, Amount: 50_000}, 50_000, 1_000_000))
}

func TestValidateBidZeroFloorStillNeedsPositiveAmount(t *testing.T) {
	bidder := uuid.New()
	sess := bidSession(&models.CurrentItem{}, 1000)

	err := validateBid(sess, PlaceBidRequest{UserID: bidder, Amount: 0}, 0, 1_000_000)
	br, ok := IsBidRejected(err)
	require.True(t, ok)
	require.Equal(t, int64(1), br.Required)

	require.NoError(t, validateBid(sess, PlaceBidRequest{UserID: bidder, Amount: 1}, 0, 1_000_000))
}

func TestValidateBidRaises(t *testing.T) {
	leader := uuid.New()
	rival := uuid.New()
	sess := bidSession(&models.CurrentItem{BidAmount: 60_000, BidderID: &leader}, 1000)

	err := validateBid(sess, PlaceBidRequest{UserID: leader, Amount: 70_000}, 50_000, 1_000_000)
	br, ok := IsBidRejected(err)
	require.True(t, ok)
	require.Equal(t, RejectAlreadyLeading, br.Reason)

	err = validateBid(sess, PlaceBidRequest{UserID: rival, Amount: 60_999}, 50_000, 1_000_000)
	br, ok = IsBidRejected(err)
	require.True(t, ok)
	require.Equal(t, RejectIncrementTooSmall, br.Reason)
	require.Equal(t, int64(61_000), br.Required)

	err = validateBid(sess, PlaceBidRequest{UserID: rival, Amount: 61_000}, 50_000, 5_000)
	br, ok = IsBidRejected(err)
	require.True(t, ok)
	require.Equal(t, RejectInsufficientBudget, br.Reason)

	require.NoError(t, validateBid(sess, PlaceBidRequest{UserID: rival, Amount: 61_000}, 50_000, 1_000_000))
}

func TestSkipVotesNeeded(t *testing.T) {
	sess := &models.Session{}
	for _, n := range []int{1, 2, 3, 6} {
		sess.Participants = make([]models.Participant, n)
		require.Equal(t, n, skipVotesNeeded(sess), "participants=%d", n)
	}
}
