package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/squadbid/squadbid/go/internal/auction/orchestrator"
	"github.com/squadbid/squadbid/go/internal/models"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Warn().Err(err).Msg("could not load .env file")
	}

	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	config, err := loadConfig(getEnv("CONFIG_PATH", "config.yaml"))
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	database, err := setupDatabase()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to setup database")
	}
	defer database.Close()

	services := setupServices(database)
	services.AuctionApp.SetSessionDefaults(models.SessionSettings{
		BidTimeSec:       config.Auction.BidTimeSec,
		MinBidIncrement:  config.Auction.MinBidIncrement,
		ReshuffleSkipped: config.Auction.ReshuffleSkipped,
	})

	ctx, stop := signal.NotifyContext(context.Background(),
		syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Run the bid clock in-process. Deadline changes from the API wake the
	// scheduler immediately instead of waiting for its next poll.
	if config.Scheduler.Enabled {
		o := orchestrator.NewOrchestrator(services.AuctionApp, config.Scheduler.BatchSize, clockwork.NewRealClock())
		services.AuctionApp.SetDeadlineListener(o.Wake)
		go func() {
			if err := o.RunScheduler(ctx); err != nil {
				log.Error().Err(err).Msg("scheduler exited")
			}
		}()
	}

	server := setupServer(config, services)

	go func() {
		log.Info().Str("addr", server.Addr).Msg("HTTP server starting")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("received shutdown signal")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown failed")
	}

	log.Info().Msg("server shutdown complete")
}
