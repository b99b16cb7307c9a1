package main

import (
	"database/sql"

	"github.com/jonboulle/clockwork"

	"github.com/squadbid/squadbid/go/internal/auction"
	"github.com/squadbid/squadbid/go/internal/catalog"
	"github.com/squadbid/squadbid/go/internal/users"
)

type Services struct {
	Auction    *auction.Service
	AuctionApp *auction.App
	Catalog    *catalog.Service
	Users      *users.Service
}

func setupServices(database *sql.DB) *Services {
	// Wire up dependency injection chain
	// Database layer → Repository layer → App layer → Service layer
	clock := clockwork.NewRealClock()

	// Catalog
	catalogRepo := catalog.NewRepository(database)
	catalogApp := catalog.NewApp(catalogRepo)
	catalogService := catalog.NewService(catalogApp)

	// Users
	userRepo := users.NewRepository(database)
	userApp := users.NewApp(userRepo)
	userService := users.NewService(userApp)

	// Auction
	auctionRepo := auction.NewRepository(database)
	auctionApp := auction.NewApp(auctionRepo, catalogApp, userApp, clock)
	auctionService := auction.NewService(auctionApp)

	return &Services{
		Auction:    auctionService,
		AuctionApp: auctionApp,
		Catalog:    catalogService,
		Users:      userService,
	}
}
