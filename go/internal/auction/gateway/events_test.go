package gateway

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/squadbid/squadbid/go/internal/auction/events"
)

func TestKnownEventTypesCoversAllEvents(t *testing.T) {
	all := []string{
		events.TypeSessionCreated,
		events.TypeUserJoined,
		events.TypeSessionStarted,
		events.TypePlayerUp,
		events.TypeBidPlaced,
		events.TypeSkipVoteCast,
		events.TypePlayerSkipped,
		events.TypePlayerSold,
		events.TypeSessionPaused,
		events.TypeSessionResumed,
		events.TypeRoundStarted,
		events.TypeSessionCompleted,
		events.TypeSessionDeleted,
	}
	require.Len(t, knownEventTypes, len(all))
	for _, typ := range all {
		require.True(t, knownEventTypes[typ], "missing event type %s", typ)
	}
}

func TestParseEventPayload(t *testing.T) {
	data, err := json.Marshal(events.BidPlacedPayload{
		SessionID: "3e0f8e86-1c6f-4f6e-9f53-3e2a1f6c9d01",
		PlayerID:  "a6a4b0d1-2b43-4a97-b1cc-7f4a2a3a9b02",
		BidderID:  "0c1d2e3f-4a5b-6c7d-8e9f-0a1b2c3d4e03",
		Amount:    52_000,
	})
	require.NoError(t, err)

	payload, err := ParseEventPayload(&SessionEvent{
		Type:      events.TypeBidPlaced,
		Timestamp: time.Now(),
		Data:      data,
	})
	require.NoError(t, err)

	bid, ok := payload.(*events.BidPlacedPayload)
	require.True(t, ok)
	require.Equal(t, int64(52_000), bid.Amount)
}

func TestParseEventPayloadUnknownType(t *testing.T) {
	payload, err := ParseEventPayload(&SessionEvent{Type: "SomethingElse"})
	require.NoError(t, err)
	require.Nil(t, payload)
}
