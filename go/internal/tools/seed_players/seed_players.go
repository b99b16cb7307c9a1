package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/squadbid/squadbid/go/internal/catalog"
	"github.com/squadbid/squadbid/go/internal/dbconfig"
	"github.com/squadbid/squadbid/go/internal/models"
)

// SeedPlayer matches the layout of players.json
type SeedPlayer struct {
	Name     string             `json:"name"`
	Overall  int                `json:"overall"`
	Position string             `json:"position"`
	Stats    models.PlayerStats `json:"stats"`
}

func main() {
	ctx := context.Background()

	// 1) Load players.json
	data, err := os.ReadFile("go/internal/assets/players.json")
	if err != nil {
		fmt.Fprintf(os.Stderr, "read players.json: %v\n", err)
		os.Exit(1)
	}
	var players []SeedPlayer
	if err := json.Unmarshal(data, &players); err != nil {
		fmt.Fprintf(os.Stderr, "unmarshal players: %v\n", err)
		os.Exit(1)
	}

	// 2) Connect to DB
	cfg := dbconfig.NewConfigFromEnv()
	pool, err := pgxpool.New(ctx, cfg.DSN())
	if err != nil {
		fmt.Fprintf(os.Stderr, "connect error: %v\n", err)
		os.Exit(1)
	}
	defer pool.Close()

	// 3) Collect names already in the catalog. Player IDs are generated on
	// insert, so rerunning the seeder must skip by name.
	existing := make(map[string]bool)
	rows, err := pool.Query(ctx, `SELECT name FROM players`)
	if err != nil {
		fmt.Fprintf(os.Stderr, "query existing players: %v\n", err)
		os.Exit(1)
	}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			fmt.Fprintf(os.Stderr, "scan existing player: %v\n", err)
			os.Exit(1)
		}
		existing[name] = true
	}
	rows.Close()

	// 4) Seed players
	total, inserted, skipped, errs := len(players), 0, 0, 0
	for _, p := range players {
		if existing[p.Name] {
			skipped++
			continue
		}
		stats, err := json.Marshal(p.Stats)
		if err != nil {
			errs++
			continue
		}
		_, err = pool.Exec(ctx, `
            INSERT INTO players (
              id, name, overall, position, tier, stats
            ) VALUES ($1,$2,$3,$4,$5,$6)
        `, uuid.New(), p.Name, p.Overall, p.Position, catalog.TierForOverall(p.Overall), stats)
		if err != nil {
			errs++
			continue
		}
		inserted++
	}
	fmt.Printf(
		"Players seed: total=%d inserted=%d skipped=%d errors=%d\n",
		total, inserted, skipped, errs,
	)
}
