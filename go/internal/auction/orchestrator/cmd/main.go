package main

import (
	"context"
	"database/sql"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/jonboulle/clockwork"
	_ "github.com/lib/pq"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/squadbid/squadbid/go/internal/auction"
	"github.com/squadbid/squadbid/go/internal/auction/orchestrator"
	"github.com/squadbid/squadbid/go/internal/catalog"
	"github.com/squadbid/squadbid/go/internal/dbconfig"
	"github.com/squadbid/squadbid/go/internal/users"
)

// Standalone scheduler for deployments that run the bid clock outside the
// API process. The expiry path is idempotent, so running this next to an
// API-embedded scheduler is safe.
func main() {
	if err := godotenv.Load(); err != nil {
		log.Warn().Err(err).Msg("could not load .env file")
	}

	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stdout})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	cfg := dbconfig.NewConfigFromEnv()
	db, err := sql.Open("postgres", cfg.DSN())
	if err != nil {
		log.Fatal().Err(err).Msg("open database")
	}
	defer db.Close()
	if err := db.Ping(); err != nil {
		log.Fatal().Err(err).Msg("ping database")
	}
	log.Info().
		Str("host", cfg.Host).
		Int("port", cfg.Port).
		Str("database", cfg.Database).
		Msg("connected to database")

	batchSize := 10
	if v := os.Getenv("SCHEDULER_BATCH_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			batchSize = n
		}
	}

	app := auction.NewApp(
		auction.NewRepository(db),
		catalog.NewApp(catalog.NewRepository(db)),
		users.NewApp(users.NewRepository(db)),
		clockwork.NewRealClock(),
	)
	o := orchestrator.NewOrchestrator(app, batchSize, clockwork.NewRealClock())

	ctx, stop := signal.NotifyContext(context.Background(),
		syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := o.RunScheduler(ctx); err != nil {
		log.Fatal().Err(err).Msg("scheduler exited")
	}
	log.Info().Msg("scheduler stopped")
}
