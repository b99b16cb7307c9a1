package gateway

import (
	"encoding/json"
	"time"

	"github.com/squadbid/squadbid/go/internal/auction/events"
)

// SessionEvent is the frame pushed to WebSocket clients.
type SessionEvent struct {
	ID        string          `json:"id"`         // Event UUID
	SessionID string          `json:"session_id"` // Session UUID
	Type      string          `json:"type"`       // Event type
	Timestamp time.Time       `json:"timestamp"`  // Event creation time
	Data      json.RawMessage `json:"data"`       // Event-specific payload
}

// knownEventTypes is the set of event types the gateway forwards.
var knownEventTypes = map[string]bool{
	events.TypeSessionCreated:   true,
	events.TypeUserJoined:       true,
	events.TypeSessionStarted:   true,
	events.TypePlayerUp:         true,
	events.TypeBidPlaced:        true,
	events.TypeSkipVoteCast:     true,
	events.TypePlayerSkipped:    true,
	events.TypePlayerSold:       true,
	events.TypeSessionPaused:    true,
	events.TypeSessionResumed:   true,
	events.TypeRoundStarted:     true,
	events.TypeSessionCompleted: true,
	events.TypeSessionDeleted:   true,
}

// ParseEventPayload parses event data into the appropriate payload struct
func ParseEventPayload(event *SessionEvent) (interface{}, error) {
	unmarshal := func(v interface{}) (interface{}, error) {
		if err := json.Unmarshal(event.Data, v); err != nil {
			return nil, err
		}
		return v, nil
	}

	switch event.Type {
	case events.TypeSessionCreated:
		return unmarshal(&events.SessionCreatedPayload{})
	case events.TypeUserJoined:
		return unmarshal(&events.UserJoinedPayload{})
	case events.TypeSessionStarted:
		return unmarshal(&events.SessionStartedPayload{})
	case events.TypePlayerUp:
		return unmarshal(&events.PlayerUpPayload{})
	case events.TypeBidPlaced:
		return unmarshal(&events.BidPlacedPayload{})
	case events.TypeSkipVoteCast:
		return unmarshal(&events.SkipVoteCastPayload{})
	case events.TypePlayerSkipped:
		return unmarshal(&events.PlayerSkippedPayload{})
	case events.TypePlayerSold:
		return unmarshal(&events.PlayerSoldPayload{})
	case events.TypeSessionPaused:
		return unmarshal(&events.SessionPausedPayload{})
	case events.TypeSessionResumed:
		return unmarshal(&events.SessionResumedPayload{})
	case events.TypeRoundStarted:
		return unmarshal(&events.RoundStartedPayload{})
	case events.TypeSessionCompleted:
		return unmarshal(&events.SessionCompletedPayload{})
	case events.TypeSessionDeleted:
		return unmarshal(&events.SessionDeletedPayload{})
	default:
		return nil, nil // Unknown event type
	}
}
