package main

import (
	"context"
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/squadbid/squadbid/go/internal/dbconfig"
	"github.com/squadbid/squadbid/go/internal/users"
)

// SeedUser is a predefined account for local development
type SeedUser struct {
	Username string
	Emoji    string
	Color    string
}

var seedUsers = []SeedUser{
	{Username: "atlas", Emoji: "🦅", Color: "#1976d2"},
	{Username: "blaze", Emoji: "🔥", Color: "#d32f2f"},
	{Username: "comet", Emoji: "☄️", Color: "#7b1fa2"},
	{Username: "drift", Emoji: "🌊", Color: "#0288d1"},
	{Username: "ember", Emoji: "🪵", Color: "#f57c00"},
	{Username: "frost", Emoji: "❄️", Color: "#455a64"},
}

func main() {
	ctx := context.Background()

	cfg := dbconfig.NewConfigFromEnv()
	pool, err := pgxpool.New(ctx, cfg.DSN())
	if err != nil {
		fmt.Fprintf(os.Stderr, "connect error: %v\n", err)
		os.Exit(1)
	}
	defer pool.Close()

	total, inserted, skipped, errs := len(seedUsers), 0, 0, 0
	for _, u := range seedUsers {
		tag, err := pool.Exec(ctx, `
            INSERT INTO users (
              id, username, emoji, color, status, budget
            ) VALUES ($1,$2,$3,$4,'offline',$5)
            ON CONFLICT (username) DO NOTHING
        `, uuid.New(), u.Username, u.Emoji, u.Color, users.DefaultBudget)
		if err != nil {
			errs++
			continue
		}
		if tag.RowsAffected() == 1 {
			inserted++
		} else {
			skipped++
		}
	}
	fmt.Printf(
		"Users seed: total=%d inserted=%d skipped=%d errors=%d\n",
		total, inserted, skipped, errs,
	)
}
