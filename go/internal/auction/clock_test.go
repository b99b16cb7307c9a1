package auction

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/squadbid/squadbid/go/internal/models"
)

func TestRemainingSecondsRoundsUp(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	deadline := now.Add(2500 * time.Millisecond)
	sess := &models.Session{
		Status:       models.SessionStatusActive,
		NextDeadline: &deadline,
	}
	require.Equal(t, 3, remainingSeconds(sess, now))

	deadline = now.Add(2 * time.Second)
	require.Equal(t, 2, remainingSeconds(sess, now))

	deadline = now.Add(-time.Second)
	require.Equal(t, 0, remainingSeconds(sess, now))
}

func TestRemainingSecondsWhilePaused(t *testing.T) {
	now := time.Now()
	frozen := 17
	sess := &models.Session{
		Status:      models.SessionStatusPaused,
		CurrentItem: &models.CurrentItem{FrozenTimeLeft: &frozen},
	}
	require.Equal(t, 17, remainingSeconds(sess, now))

	sess.CurrentItem = nil
	require.Equal(t, 0, remainingSeconds(sess, now))
}

func TestRemainingSecondsWithoutDeadline(t *testing.T) {
	sess := &models.Session{Status: models.SessionStatusActive}
	require.Equal(t, 0, remainingSeconds(sess, time.Now()))
}
