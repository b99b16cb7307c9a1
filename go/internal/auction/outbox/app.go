package outbox

import (
	"context"

	"github.com/google/uuid"

	"github.com/squadbid/squadbid/go/internal/auction/outbox/worker"
)

// OutboxRepository defines what the app layer needs from the repository
type OutboxRepository interface {
	FetchOutboxByID(ctx context.Context, id uuid.UUID) (*worker.OutboxEvent, error)
	FetchUnsentOutbox(ctx context.Context, limit int) ([]worker.OutboxEvent, error)
	MarkOutboxSent(ctx context.Context, id uuid.UUID) error
	PruneSent(ctx context.Context) (int64, error)
}

// App is the relay-side view of the outbox table. Writes happen inside the
// auction repository's transactions, never here.
type App struct {
	repo OutboxRepository
}

func NewApp(repo OutboxRepository) *App {
	return &App{repo: repo}
}

func (a *App) FetchOutboxByID(ctx context.Context, id uuid.UUID) (*worker.OutboxEvent, error) {
	return a.repo.FetchOutboxByID(ctx, id)
}

func (a *App) FetchUnsentOutbox(ctx context.Context, limit int) ([]worker.OutboxEvent, error) {
	return a.repo.FetchUnsentOutbox(ctx, limit)
}

func (a *App) MarkOutboxSent(ctx context.Context, id uuid.UUID) error {
	return a.repo.MarkOutboxSent(ctx, id)
}

func (a *App) PruneSent(ctx context.Context) (int64, error) {
	return a.repo.PruneSent(ctx)
}
