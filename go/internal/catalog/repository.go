package catalog

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/squadbid/squadbid/go/internal/models"
)

// ErrPlayerNotFound is returned when no catalog entry exists for an ID.
var ErrPlayerNotFound = errors.New("player not found")

// Repository implements player catalog data access
type Repository struct {
	db *sql.DB
}

// NewRepository creates a new catalog repository
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// CreatePlayer inserts a new catalog entry
func (r *Repository) CreatePlayer(ctx context.Context, player *models.Player) (*models.Player, error) {
	stats, err := json.Marshal(player.Stats)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal player stats: %w", err)
	}

	row := r.db.QueryRowContext(ctx, `
		INSERT INTO players (id, name, overall, position, tier, stats)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at`,
		player.ID, player.Name, player.Overall, player.Position, player.Tier, stats,
	)
	if err := row.Scan(&player.CreatedAt); err != nil {
		return nil, fmt.Errorf("failed to create player: %w", err)
	}
	return player, nil
}

// GetPlayer retrieves a catalog entry by ID
func (r *Repository) GetPlayer(ctx context.Context, id uuid.UUID) (*models.Player, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, name, overall, position, tier, stats, created_at
		FROM players
		WHERE id = $1`,
		id,
	)
	player, err := scanPlayer(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrPlayerNotFound
		}
		return nil, fmt.Errorf("failed to get player: %w", err)
	}
	return player, nil
}

// ListPlayers retrieves the full catalog ordered by rating
func (r *Repository) ListPlayers(ctx context.Context) ([]*models.Player, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, name, overall, position, tier, stats, created_at
		FROM players
		ORDER BY overall DESC, name`,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list players: %w", err)
	}
	defer rows.Close()

	var players []*models.Player
	for rows.Next() {
		player, err := scanPlayer(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan player: %w", err)
		}
		players = append(players, player)
	}
	return players, rows.Err()
}

// ListPlayerIDs returns all catalog IDs, used to build a session queue
func (r *Repository) ListPlayerIDs(ctx context.Context) ([]uuid.UUID, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id FROM players ORDER BY overall DESC, name`)
	if err != nil {
		return nil, fmt.Errorf("failed to list player ids: %w", err)
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan player id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// GetPlayersByIDs retrieves multiple catalog entries in one round trip
func (r *Repository) GetPlayersByIDs(ctx context.Context, ids []uuid.UUID) ([]*models.Player, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, name, overall, position, tier, stats, created_at
		FROM players
		WHERE id = ANY($1)`,
		pq.Array(ids),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get players by ids: %w", err)
	}
	defer rows.Close()

	var players []*models.Player
	for rows.Next() {
		player, err := scanPlayer(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan player: %w", err)
		}
		players = append(players, player)
	}
	return players, rows.Err()
}

// DeletePlayer removes a catalog entry
func (r *Repository) DeletePlayer(ctx context.Context, id uuid.UUID) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM players WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete player: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrPlayerNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPlayer(row rowScanner) (*models.Player, error) {
	var (
		player models.Player
		stats  []byte
	)
	if err := row.Scan(
		&player.ID, &player.Name, &player.Overall, &player.Position,
		&player.Tier, &stats, &player.CreatedAt,
	); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(stats, &player.Stats); err != nil {
		return nil, fmt.Errorf("failed to unmarshal player stats: %w", err)
	}
	return &player, nil
}
