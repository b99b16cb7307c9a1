package outbox

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/squadbid/squadbid/go/internal/auction/outbox/worker"
)

// ErrEventNotFound is returned when an outbox row is missing or already sent.
var ErrEventNotFound = errors.New("outbox event not found or already sent")

type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// FetchOutboxByID retrieves one unsent outbox event
func (r *Repository) FetchOutboxByID(ctx context.Context, id uuid.UUID) (*worker.OutboxEvent, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, session_id, event_type, payload, created_at
		FROM outbox
		WHERE id = $1 AND sent_at IS NULL`,
		id,
	)
	var ev worker.OutboxEvent
	if err := row.Scan(&ev.ID, &ev.SessionID, &ev.EventType, &ev.Payload, &ev.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrEventNotFound
		}
		return nil, fmt.Errorf("failed to fetch outbox event by ID: %w", err)
	}
	return &ev, nil
}

// FetchUnsentOutbox retrieves unsent events oldest first
func (r *Repository) FetchUnsentOutbox(ctx context.Context, limit int) ([]worker.OutboxEvent, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, session_id, event_type, payload, created_at
		FROM outbox
		WHERE sent_at IS NULL
		ORDER BY created_at
		LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch unsent outbox events: %w", err)
	}
	defer rows.Close()

	var events []worker.OutboxEvent
	for rows.Next() {
		var ev worker.OutboxEvent
		if err := rows.Scan(&ev.ID, &ev.SessionID, &ev.EventType, &ev.Payload, &ev.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan outbox event: %w", err)
		}
		events = append(events, ev)
	}
	return events, rows.Err()
}

// MarkOutboxSent stamps an event as delivered
func (r *Repository) MarkOutboxSent(ctx context.Context, id uuid.UUID) error {
	if _, err := r.db.ExecContext(ctx,
		`UPDATE outbox SET sent_at = now() WHERE id = $1 AND sent_at IS NULL`, id); err != nil {
		return fmt.Errorf("failed to mark outbox event as sent: %w", err)
	}
	return nil
}

// PruneSent deletes delivered events older than the retention window
func (r *Repository) PruneSent(ctx context.Context) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM outbox WHERE sent_at IS NOT NULL AND sent_at < now() - interval '7 days'`)
	if err != nil {
		return 0, fmt.Errorf("failed to prune sent outbox events: %w", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}
