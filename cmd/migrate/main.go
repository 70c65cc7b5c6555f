package main

import (
	"context"
	"database/sql"
	"flag"

	"github.com/epeers/metalprices/config"
	"github.com/epeers/metalprices/internal/logging"
	"github.com/epeers/metalprices/internal/migrations"
	_ "github.com/jackc/pgx/v5/stdlib" // registers the pgx database/sql driver
	log "github.com/sirupsen/logrus"
)

func main() {
	flag.Usage = func() {
		log.Info("usage: migrate [up|down|status]")
	}
	flag.Parse()
	command := "up"
	if flag.NArg() > 0 {
		command = flag.Arg(0)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if _, err := logging.Setup(logging.Options{Level: cfg.LogLevel}); err != nil {
		log.Fatalf("Failed to configure logging: %v", err)
	}

	db, err := sql.Open("pgx", cfg.PGURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	ctx := context.Background()
	if err := db.PingContext(ctx); err != nil {
		log.Fatalf("Failed to ping database: %v", err)
	}

	switch command {
	case "up":
		log.Info("Running database migrations...")
		err = migrations.Up(ctx, db)
	case "down":
		log.Info("Rolling back the latest migration...")
		err = migrations.Down(ctx, db)
	case "status":
		err = migrations.Status(ctx, db)
	default:
		flag.Usage()
		log.Fatalf("Unknown command %q", command)
	}
	if err != nil {
		log.Fatalf("Migration failed: %v", err)
	}
	log.Info("Migrations completed successfully")
}
