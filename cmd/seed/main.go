package main

import (
	"context"
	"flag"

	"github.com/epeers/metalprices/config"
	"github.com/epeers/metalprices/internal/database"
	"github.com/epeers/metalprices/internal/logging"
	"github.com/epeers/metalprices/internal/repository"
	"github.com/epeers/metalprices/internal/services"
	log "github.com/sirupsen/logrus"
)

func main() {
	seedCfg := services.DefaultSeedConfig
	flag.StringVar(&seedCfg.Metal, "metal", seedCfg.Metal, "metal to seed")
	flag.StringVar(&seedCfg.Currency, "currency", seedCfg.Currency, "currency of the seeded prices")
	flag.IntVar(&seedCfg.Days, "days", seedCfg.Days, "days of history to generate")
	flag.Float64Var(&seedCfg.StartPrice, "start-price", seedCfg.StartPrice, "spot price at the start of the walk")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logFile, err := logging.Setup(logging.Options{Level: cfg.LogLevel, File: cfg.LogFile})
	if err != nil {
		log.Fatalf("Failed to configure logging: %v", err)
	}
	defer logFile.Close()

	ctx := context.Background()

	db, err := database.New(ctx, cfg.PGURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	seedSvc := services.NewSeedService(
		repository.NewDimensionRepository(db.Pool),
		services.NewTimeBucketer(repository.NewTimeRepository(db.Pool)),
		repository.NewFactRepository(db.Pool),
		nil,
	)

	if _, err := seedSvc.Seed(ctx, seedCfg); err != nil {
		log.Fatalf("Seeding failed: %v", err)
	}
}
