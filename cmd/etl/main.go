package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/epeers/metalprices/config"
	"github.com/epeers/metalprices/internal/database"
	"github.com/epeers/metalprices/internal/instrument"
	"github.com/epeers/metalprices/internal/logging"
	"github.com/epeers/metalprices/internal/metalsdev"
	"github.com/epeers/metalprices/internal/repository"
	"github.com/epeers/metalprices/internal/services"
	log "github.com/sirupsen/logrus"
)

func main() {
	cfg, err := config.LoadETL()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logFile, err := logging.Setup(logging.Options{Level: cfg.LogLevel, File: cfg.LogFile})
	if err != nil {
		log.Fatalf("Failed to configure logging: %v", err)
	}
	defer logFile.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.New(ctx, cfg.PGURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	ingestSvc := services.NewIngestService(
		metalsdev.NewClientWithBaseURL(cfg.APIKey, cfg.APIURL, cfg.APIRateLimit),
		services.NewDimensionResolver(repository.NewDimensionRepository(db.Pool)),
		services.NewTimeBucketer(repository.NewTimeRepository(db.Pool)),
		repository.NewFactRepository(db.Pool),
		instrument.NewClassifier(),
		services.IngestMode(cfg.Mode),
	)

	if cfg.Once {
		if _, err := ingestSvc.RunCycle(ctx, cfg.Currencies); err != nil {
			log.Fatalf("Ingestion failed: %v", err)
		}
		return
	}

	scheduler := services.NewScheduler(ingestSvc, services.SchedulerConfig{
		Currencies: cfg.Currencies,
		Interval:   cfg.Interval,
		Schedule:   cfg.Schedule,
		RunOnStart: cfg.RunOnStart,
	})
	stopScheduler, err := scheduler.Start(ctx)
	if err != nil {
		log.Fatalf("Failed to start scheduler: %v", err)
	}

	<-ctx.Done()
	log.Info("Shutting down scheduler...")
	stopScheduler()
	log.Info("Scheduler exited")
}
