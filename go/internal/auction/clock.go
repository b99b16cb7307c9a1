package auction

import (
	"time"

	"github.com/squadbid/squadbid/go/internal/models"
)

// remainingSeconds computes the clock left for the player currently up,
// rounded up so a client never shows 0 while the deadline is still ahead.
func remainingSeconds(sess *models.Session, now time.Time) int {
	if sess.Status == models.SessionStatusPaused {
		if sess.CurrentItem != nil && sess.CurrentItem.FrozenTimeLeft != nil {
			return *sess.CurrentItem.FrozenTimeLeft
		}
		return 0
	}
	if sess.NextDeadline == nil {
		return 0
	}
	left := sess.NextDeadline.Sub(now)
	if left <= 0 {
		return 0
	}
	return int((left + time.Second - 1) / time.Second)
}

// timeLeft builds the pull-side clock view for a session.
func timeLeft(sess *models.Session, now time.Time) TimeLeft {
	tl := TimeLeft{
		SessionID:   sess.ID,
		TimeLeftSec: remainingSeconds(sess, now),
		Paused:      sess.Status == models.SessionStatusPaused,
	}
	if sess.CurrentItem != nil {
		playerID := sess.CurrentItem.PlayerID
		tl.PlayerID = &playerID
	}
	if sess.Status == models.SessionStatusActive {
		tl.Deadline = sess.NextDeadline
	}
	return tl
}
