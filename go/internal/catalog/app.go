package catalog

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/squadbid/squadbid/go/internal/models"
)

// CatalogRepository defines what the app layer needs from the repository
type CatalogRepository interface {
	CreatePlayer(ctx context.Context, player *models.Player) (*models.Player, error)
	GetPlayer(ctx context.Context, id uuid.UUID) (*models.Player, error)
	ListPlayers(ctx context.Context) ([]*models.Player, error)
	ListPlayerIDs(ctx context.Context) ([]uuid.UUID, error)
	GetPlayersByIDs(ctx context.Context, ids []uuid.UUID) ([]*models.Player, error)
	DeletePlayer(ctx context.Context, id uuid.UUID) error
}

// App handles player catalog business logic
type App struct {
	repo CatalogRepository
}

// NewApp creates a new catalog App
func NewApp(repo CatalogRepository) *App {
	return &App{repo: repo}
}

// CreatePlayer validates the request, derives the tier and stores the entry
func (a *App) CreatePlayer(ctx context.Context, req CreatePlayerRequest) (*models.Player, error) {
	if err := a.validateCreatePlayerRequest(req); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	player := &models.Player{
		ID:       uuid.New(),
		Name:     req.Name,
		Overall:  req.Overall,
		Position: req.Position,
		Tier:     TierForOverall(req.Overall),
		Stats: models.PlayerStats{
			Pace:      req.Pace,
			Shooting:  req.Shooting,
			Passing:   req.Passing,
			Dribbling: req.Dribbling,
			Defending: req.Defending,
			Physical:  req.Physical,
		},
	}

	player, err := a.repo.CreatePlayer(ctx, player)
	if err != nil {
		return nil, fmt.Errorf("failed to create player: %w", err)
	}

	log.Info().
		Str("player_id", player.ID.String()).
		Str("name", player.Name).
		Str("tier", string(player.Tier)).
		Msg("created player")
	return player, nil
}

// GetPlayer retrieves a catalog entry by ID
func (a *App) GetPlayer(ctx context.Context, id uuid.UUID) (*models.Player, error) {
	return a.repo.GetPlayer(ctx, id)
}

// ListPlayers retrieves the full catalog
func (a *App) ListPlayers(ctx context.Context) ([]*models.Player, error) {
	return a.repo.ListPlayers(ctx)
}

// ListPlayerIDs returns all catalog IDs ordered by rating
func (a *App) ListPlayerIDs(ctx context.Context) ([]uuid.UUID, error) {
	return a.repo.ListPlayerIDs(ctx)
}

// GetPlayersByIDs retrieves multiple entries at once
func (a *App) GetPlayersByIDs(ctx context.Context, ids []uuid.UUID) ([]*models.Player, error) {
	return a.repo.GetPlayersByIDs(ctx, ids)
}

// DeletePlayer removes a catalog entry
func (a *App) DeletePlayer(ctx context.Context, id uuid.UUID) error {
	if err := a.repo.DeletePlayer(ctx, id); err != nil {
		return err
	}
	log.Info().Str("player_id", id.String()).Msg("deleted player")
	return nil
}

func (a *App) validateCreatePlayerRequest(req CreatePlayerRequest) error {
	if req.Name == "" {
		return fmt.Errorf("name is required")
	}
	if req.Position == "" {
		return fmt.Errorf("position is required")
	}
	if req.Overall < 1 || req.Overall > 99 {
		return fmt.Errorf("overall must be between 1 and 99")
	}
	return nil
}
