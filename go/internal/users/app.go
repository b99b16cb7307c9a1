package users

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/squadbid/squadbid/go/internal/models"
)

// DefaultBudget is the starting budget for a new user.
const DefaultBudget int64 = 1_000_000

// UsersRepository defines what the app layer needs from the repository
type UsersRepository interface {
	CreateUser(ctx context.Context, user *models.User) (*models.User, error)
	GetUser(ctx context.Context, id uuid.UUID) (*models.User, error)
	GetUserByUsername(ctx context.Context, username string) (*models.User, error)
	ListUsers(ctx context.Context) ([]*models.User, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status models.UserStatus) error
	UpdateProfile(ctx context.Context, id uuid.UUID, req UpdateProfileRequest) (*models.User, error)
}

// App handles user directory business logic
type App struct {
	repo UsersRepository
}

// NewApp creates a new users App
func NewApp(repo UsersRepository) *App {
	return &App{repo: repo}
}

// CreateUser creates a new user with validation
func (a *App) CreateUser(ctx context.Context, req CreateUserRequest) (*models.User, error) {
	if req.Username == "" {
		return nil, fmt.Errorf("validation failed: username is required")
	}
	if req.Budget < 0 {
		return nil, fmt.Errorf("validation failed: budget cannot be negative")
	}

	existing, err := a.repo.GetUserByUsername(ctx, req.Username)
	if err == nil && existing != nil {
		return nil, fmt.Errorf("user with username %s already exists", req.Username)
	}

	budget := req.Budget
	if budget == 0 {
		budget = DefaultBudget
	}

	user, err := a.repo.CreateUser(ctx, &models.User{
		ID:       uuid.New(),
		Username: req.Username,
		Emoji:    req.Emoji,
		Color:    req.Color,
		Status:   models.UserStatusOffline,
		Budget:   budget,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	log.Info().
		Str("user_id", user.ID.String()).
		Str("username", user.Username).
		Int64("budget", user.Budget).
		Msg("created user")
	return user, nil
}

// GetUser retrieves a user by ID
func (a *App) GetUser(ctx context.Context, id uuid.UUID) (*models.User, error) {
	return a.repo.GetUser(ctx, id)
}

// GetUserByUsername retrieves a user by username
func (a *App) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	return a.repo.GetUserByUsername(ctx, username)
}

// ListUsers retrieves all directory entries
func (a *App) ListUsers(ctx context.Context) ([]*models.User, error) {
	return a.repo.ListUsers(ctx)
}

// UpdateStatus sets a user's presence status
func (a *App) UpdateStatus(ctx context.Context, id uuid.UUID, status models.UserStatus) error {
	if status != models.UserStatusOnline && status != models.UserStatusOffline {
		return fmt.Errorf("invalid status %q", status)
	}
	return a.repo.UpdateStatus(ctx, id, status)
}

// UpdateProfile sets a user's cosmetic fields
func (a *App) UpdateProfile(ctx context.Context, id uuid.UUID, req UpdateProfileRequest) (*models.User, error) {
	user, err := a.repo.UpdateProfile(ctx, id, req)
	if err != nil {
		return nil, err
	}
	log.Info().Str("user_id", id.String()).Msg("updated user profile")
	return user, nil
}
