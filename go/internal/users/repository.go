package users

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/squadbid/squadbid/go/internal/models"
)

// ErrUserNotFound is returned when no directory entry exists for an ID.
var ErrUserNotFound = errors.New("user not found")

const userColumns = `id, username, emoji, color, status, budget, created_at, updated_at`

// Repository implements user directory data access
type Repository struct {
	db *sql.DB
}

// NewRepository creates a new users repository
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// CreateUser inserts a new directory entry
func (r *Repository) CreateUser(ctx context.Context, user *models.User) (*models.User, error) {
	row := r.db.QueryRowContext(ctx, `
		INSERT INTO users (id, username, emoji, color, status, budget)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at, updated_at`,
		user.ID, user.Username, user.Emoji, user.Color, user.Status, user.Budget,
	)
	if err := row.Scan(&user.CreatedAt, &user.UpdatedAt); err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	return user, nil
}

// GetUser retrieves a user by ID
func (r *Repository) GetUser(ctx context.Context, id uuid.UUID) (*models.User, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = $1`, id)
	return scanUser(row)
}

// GetUserByUsername retrieves a user by username
func (r *Repository) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE username = $1`, username)
	return scanUser(row)
}

// ListUsers retrieves all directory entries
func (r *Repository) ListUsers(ctx context.Context) ([]*models.User, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+userColumns+` FROM users ORDER BY username`)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()

	var out []*models.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, user)
	}
	return out, rows.Err()
}

// UpdateStatus sets the presence status of a user
func (r *Repository) UpdateStatus(ctx context.Context, id uuid.UUID, status models.UserStatus) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE users SET status = $2, updated_at = now() WHERE id = $1`,
		id, status,
	)
	if err != nil {
		return fmt.Errorf("failed to update user status: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrUserNotFound
	}
	return nil
}

// UpdateProfile sets the cosmetic fields of a user
func (r *Repository) UpdateProfile(ctx context.Context, id uuid.UUID, req UpdateProfileRequest) (*models.User, error) {
	row := r.db.QueryRowContext(ctx, `
		UPDATE users SET emoji = $2, color = $3, updated_at = now()
		WHERE id = $1
		RETURNING `+userColumns,
		id, req.Emoji, req.Color,
	)
	return scanUser(row)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*models.User, error) {
	var user models.User
	if err := row.Scan(
		&user.ID, &user.Username, &user.Emoji, &user.Color,
		&user.Status, &user.Budget, &user.CreatedAt, &user.UpdatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to scan user: %w", err)
	}
	return &user, nil
}
