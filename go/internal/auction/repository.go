package auction

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/sqlc-dev/pqtype"

	"github.com/squadbid/squadbid/go/internal/auction/events"
	"github.com/squadbid/squadbid/go/internal/models"
	"github.com/squadbid/squadbid/go/internal/sqlutil"
)

const sessionColumns = `id, name, host_id, status, round, settings, participants,
	available_ids, skipped_ids, skip_votes, current_item, next_deadline,
	created_at, updated_at`

// Repository implements session data access. Mutations commit the full
// session snapshot plus any staged outbox events in one transaction.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a new auction repository
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// CreateSession inserts a new session and its staged events
func (r *Repository) CreateSession(ctx context.Context, sess *models.Session, pending []PendingEvent) (*models.Session, error) {
	settings, participants, currentItem, err := marshalSessionFields(sess)
	if err != nil {
		return nil, err
	}

	err = sqlutil.Run(ctx, r.db, func(tx *sql.Tx) error {
		row := tx.QueryRowContext(ctx, `
			INSERT INTO sessions (id, name, host_id, status, round, settings, participants,
				available_ids, skipped_ids, skip_votes, current_item, next_deadline)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
			RETURNING created_at, updated_at`,
			sess.ID, sess.Name, sess.HostID, sess.Status, sess.Round, settings, participants,
			pq.Array(sess.AvailableIDs), pq.Array(sess.SkippedIDs), pq.Array(sess.SkipVotes),
			currentItem, sess.NextDeadline,
		)
		if err := row.Scan(&sess.CreatedAt, &sess.UpdatedAt); err != nil {
			return fmt.Errorf("failed to insert session: %w", err)
		}
		return insertOutbox(ctx, tx, sess.ID, pending)
	})
	if err != nil {
		return nil, err
	}
	return sess, nil
}

// GetSession retrieves a session by ID
func (r *Repository) GetSession(ctx context.Context, id uuid.UUID) (*models.Session, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+sessionColumns+` FROM sessions WHERE id = $1`, id)
	sess, err := scanSession(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	return sess, nil
}

// ListSessions retrieves all sessions, newest first
func (r *Repository) ListSessions(ctx context.Context) ([]*models.Session, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+sessionColumns+` FROM sessions ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	defer rows.Close()

	var out []*models.Session
	for rows.Next() {
		sess, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan session: %w", err)
		}
		out = append(out, sess)
	}
	return out, rows.Err()
}

// CommitSession writes the mutated session snapshot and its staged events
func (r *Repository) CommitSession(ctx context.Context, sess *models.Session, pending []PendingEvent) error {
	settings, participants, currentItem, err := marshalSessionFields(sess)
	if err != nil {
		return err
	}

	return sqlutil.Run(ctx, r.db, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `
			UPDATE sessions
			SET status = $2, round = $3, settings = $4, participants = $5,
				available_ids = $6, skipped_ids = $7, skip_votes = $8,
				current_item = $9, next_deadline = $10, updated_at = now()
			WHERE id = $1`,
			sess.ID, sess.Status, sess.Round, settings, participants,
			pq.Array(sess.AvailableIDs), pq.Array(sess.SkippedIDs), pq.Array(sess.SkipVotes),
			currentItem, sess.NextDeadline,
		)
		if err != nil {
			return fmt.Errorf("failed to update session: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return ErrSessionNotFound
		}
		return insertOutbox(ctx, tx, sess.ID, pending)
	})
}

// SettleSession atomically debits the winner, records the settlement row and
// commits the session snapshot. The ledger's primary key makes the settle
// idempotent: a conflicting insert means the player was already settled.
func (r *Repository) SettleSession(ctx context.Context, sess *models.Session, won *models.WonPlayer, pending []PendingEvent) error {
	settings, participants, currentItem, err := marshalSessionFields(sess)
	if err != nil {
		return err
	}

	return sqlutil.Run(ctx, r.db, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `
			INSERT INTO won_players (session_id, player_id, winner_id, amount, substitute, won_at)
			VALUES ($1, $2, $3, $4, $5, $6)
			ON CONFLICT (session_id, player_id) DO NOTHING`,
			won.SessionID, won.PlayerID, won.WinnerID, won.Amount, won.Substitute, won.WonAt,
		)
		if err != nil {
			return fmt.Errorf("failed to insert settlement: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return ErrAlreadySettled
		}

		var budget int64
		row := tx.QueryRowContext(ctx, `
			UPDATE users SET budget = budget - $2, updated_at = now()
			WHERE id = $1 AND budget >= $2
			RETURNING budget`,
			won.WinnerID, won.Amount,
		)
		if err := row.Scan(&budget); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return ErrInsufficientBudget
			}
			return fmt.Errorf("failed to debit winner: %w", err)
		}
		if p := sess.Participant(won.WinnerID); p != nil {
			p.Budget = budget
		}

		// Re-marshal participants, the winner's cached budget changed.
		participants, err = json.Marshal(sess.Participants)
		if err != nil {
			return fmt.Errorf("failed to marshal participants: %w", err)
		}

		// The sold event reports the winner's balance after the debit, which
		// only the RETURNING clause knows.
		for i, ev := range pending {
			if ev.Type != events.TypePlayerSold {
				continue
			}
			var sold events.PlayerSoldPayload
			if err := json.Unmarshal(ev.Payload, &sold); err != nil {
				return fmt.Errorf("failed to unmarshal sold payload: %w", err)
			}
			sold.WinnerBudget = budget
			raw, err := json.Marshal(sold)
			if err != nil {
				return fmt.Errorf("failed to marshal sold payload: %w", err)
			}
			pending[i].Payload = raw
		}

		res, err = tx.ExecContext(ctx, `
			UPDATE sessions
			SET status = $2, round = $3, settings = $4, participants = $5,
				available_ids = $6, skipped_ids = $7, skip_votes = $8,
				current_item = $9, next_deadline = $10, updated_at = now()
			WHERE id = $1`,
			sess.ID, sess.Status, sess.Round, settings, participants,
			pq.Array(sess.AvailableIDs), pq.Array(sess.SkippedIDs), pq.Array(sess.SkipVotes),
			currentItem, sess.NextDeadline,
		)
		if err != nil {
			return fmt.Errorf("failed to update session: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return ErrSessionNotFound
		}
		return insertOutbox(ctx, tx, sess.ID, pending)
	})
}

// DeleteSession removes a session and stages its deletion event
func (r *Repository) DeleteSession(ctx context.Context, id uuid.UUID, pending []PendingEvent) error {
	return sqlutil.Run(ctx, r.db, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `DELETE FROM sessions WHERE id = $1`, id)
		if err != nil {
			return fmt.Errorf("failed to delete session: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return ErrSessionNotFound
		}
		return insertOutbox(ctx, tx, id, pending)
	})
}

// ListWonPlayers retrieves the settlement ledger for a session
func (r *Repository) ListWonPlayers(ctx context.Context, sessionID uuid.UUID) ([]*models.WonPlayer, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT session_id, player_id, winner_id, amount, substitute, won_at
		FROM won_players
		WHERE session_id = $1
		ORDER BY won_at`,
		sessionID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list won players: %w", err)
	}
	defer rows.Close()

	var out []*models.WonPlayer
	for rows.Next() {
		var wp models.WonPlayer
		if err := rows.Scan(&wp.SessionID, &wp.PlayerID, &wp.WinnerID, &wp.Amount, &wp.Substitute, &wp.WonAt); err != nil {
			return nil, fmt.Errorf("failed to scan won player: %w", err)
		}
		out = append(out, &wp)
	}
	return out, rows.Err()
}

// FetchNextDeadline returns the soonest expiry across active sessions, or nil
func (r *Repository) FetchNextDeadline(ctx context.Context) (*NextDeadline, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, next_deadline
		FROM sessions
		WHERE status = 'ACTIVE' AND next_deadline IS NOT NULL
		ORDER BY next_deadline
		LIMIT 1`,
	)
	var nd NextDeadline
	if err := row.Scan(&nd.SessionID, &nd.Deadline); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to fetch next deadline: %w", err)
	}
	return &nd, nil
}

// FetchSessionsDue returns IDs of active sessions whose deadline has passed
func (r *Repository) FetchSessionsDue(ctx context.Context, now time.Time, limit int) ([]uuid.UUID, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id
		FROM sessions
		WHERE status = 'ACTIVE' AND next_deadline IS NOT NULL AND next_deadline <= $1
		ORDER BY next_deadline
		LIMIT $2`,
		now, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch due sessions: %w", err)
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan session id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func insertOutbox(ctx context.Context, tx *sql.Tx, sessionID uuid.UUID, pending []PendingEvent) error {
	for _, ev := range pending {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO outbox (id, session_id, event_type, payload)
			VALUES ($1, $2, $3, $4)`,
			uuid.New(), sessionID, ev.Type, []byte(ev.Payload),
		); err != nil {
			return fmt.Errorf("failed to insert %s outbox event: %w", ev.Type, err)
		}
	}
	return nil
}

func marshalSessionFields(sess *models.Session) (settings, participants []byte, currentItem pqtype.NullRawMessage, err error) {
	settings, err = json.Marshal(sess.Settings)
	if err != nil {
		return nil, nil, currentItem, fmt.Errorf("failed to marshal settings: %w", err)
	}
	participants, err = json.Marshal(sess.Participants)
	if err != nil {
		return nil, nil, currentItem, fmt.Errorf("failed to marshal participants: %w", err)
	}
	if sess.CurrentItem != nil {
		raw, err := json.Marshal(sess.CurrentItem)
		if err != nil {
			return nil, nil, currentItem, fmt.Errorf("failed to marshal current item: %w", err)
		}
		currentItem = pqtype.NullRawMessage{RawMessage: raw, Valid: true}
	}
	return settings, participants, currentItem, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSession(row rowScanner) (*models.Session, error) {
	var (
		sess         models.Session
		settings     []byte
		participants []byte
		currentItem  pqtype.NullRawMessage
	)
	if err := row.Scan(
		&sess.ID, &sess.Name, &sess.HostID, &sess.Status, &sess.Round,
		&settings, &participants,
		pq.Array(&sess.AvailableIDs), pq.Array(&sess.SkippedIDs), pq.Array(&sess.SkipVotes),
		&currentItem, &sess.NextDeadline, &sess.CreatedAt, &sess.UpdatedAt,
	); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(settings, &sess.Settings); err != nil {
		return nil, fmt.Errorf("failed to unmarshal settings: %w", err)
	}
	if err := json.Unmarshal(participants, &sess.Participants); err != nil {
		return nil, fmt.Errorf("failed to unmarshal participants: %w", err)
	}
	if currentItem.Valid {
		sess.CurrentItem = &models.CurrentItem{}
		if err := json.Unmarshal(currentItem.RawMessage, sess.CurrentItem); err != nil {
			return nil, fmt.Errorf("failed to unmarshal current item: %w", err)
		}
	}
	return &sess, nil
}
