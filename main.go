package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/epeers/metalprices/config"
	"github.com/epeers/metalprices/docs"
	"github.com/epeers/metalprices/internal/cache"
	"github.com/epeers/metalprices/internal/database"
	"github.com/epeers/metalprices/internal/handlers"
	"github.com/epeers/metalprices/internal/instrument"
	"github.com/epeers/metalprices/internal/logging"
	"github.com/epeers/metalprices/internal/metalsdev"
	"github.com/epeers/metalprices/internal/middleware"
	"github.com/epeers/metalprices/internal/models"
	"github.com/epeers/metalprices/internal/repository"
	"github.com/epeers/metalprices/internal/services"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// @title Metal Prices API
// @version 1.0
// @description Precious-metal price ETL and analytics dashboard API
// @BasePath /
func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logFile, err := logging.Setup(logging.Options{Level: cfg.LogLevel, File: cfg.LogFile})
	if err != nil {
		log.Fatalf("Failed to configure logging: %v", err)
	}
	defer logFile.Close()

	// Create context for initialization
	ctx := context.Background()

	// Initialize database connection
	db, err := database.New(ctx, cfg.PGURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	// Initialize repositories
	dimRepo := repository.NewDimensionRepository(db.Pool)
	timeRepo := repository.NewTimeRepository(db.Pool)
	factRepo := repository.NewFactRepository(db.Pool)
	priceRepo := repository.NewPriceRepository(db.Pool)

	// Initialize caches and services
	tableCache := cache.NewTableCache(services.LoadTable(priceRepo), cfg.CacheTTL)
	dashboardSvc := services.NewDashboardService(tableCache, cfg.Currencies[0])

	var source services.QuoteSource
	if cfg.APIKey != "" {
		source = metalsdev.NewClientWithBaseURL(cfg.APIKey, cfg.APIURL, cfg.APIRateLimit)
	} else {
		source = unconfiguredSource{}
	}
	ingestSvc := services.NewIngestService(
		source,
		services.NewDimensionResolver(dimRepo),
		services.NewTimeBucketer(timeRepo),
		factRepo,
		instrument.NewClassifier(),
		services.IngestMode(cfg.Mode),
	)

	// Initialize handlers
	dashboardHandler := handlers.NewDashboardHandler(dashboardSvc)
	adminHandler := handlers.NewAdminHandler(ingestSvc, dashboardSvc, cfg.Currencies)

	// Setup Gin router
	router := gin.Default()
	router.Use(middleware.Metrics())

	// Health check endpoint
	router.GET("/health", func(c *gin.Context) {
		pingCtx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if err := db.Pool.Ping(pingCtx); err != nil {
			c.JSON(http.StatusServiceUnavailable, models.HealthResponse{Status: "degraded", Database: err.Error()})
			return
		}
		c.JSON(http.StatusOK, models.HealthResponse{Status: "ok", Database: "ok"})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	docs.SwaggerInfo.BasePath = "/"
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// Dashboard routes
	router.GET("/prices", dashboardHandler.GetPrices)
	router.POST("/refresh", dashboardHandler.Refresh)

	analytics := router.Group("/analytics")
	analytics.GET("/kpi", dashboardHandler.GetKPI)
	analytics.GET("/moving-averages", dashboardHandler.GetMovingAverages)
	analytics.GET("/correlation", dashboardHandler.GetCorrelation)
	analytics.GET("/volatility", dashboardHandler.GetVolatility)
	analytics.GET("/most-volatile", dashboardHandler.GetMostVolatile)
	analytics.GET("/premium", dashboardHandler.GetPremium)
	analytics.GET("/overview", dashboardHandler.GetOverview)

	// Admin routes
	if cfg.AdminToken != "" {
		admin := router.Group("/admin", middleware.RequireAdminToken(cfg.AdminToken))
		admin.POST("/ingest", adminHandler.Ingest)
		admin.POST("/import", adminHandler.Import)
	} else {
		log.Warn("ADMIN_TOKEN not set, admin routes disabled")
	}

	// Create HTTP server
	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	// Start server in goroutine
	go func() {
		log.Infof("Starting server on port %s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal for graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	// Give outstanding requests 5 seconds to complete
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown:", err)
	}

	log.Info("Server exited")
}

// unconfiguredSource answers manual ingestion when no API key is configured
type unconfiguredSource struct{}

func (unconfiguredSource) GetLatest(ctx context.Context, currency string) (*metalsdev.ParsedLatest, error) {
	return nil, errAPIKeyMissing
}

var errAPIKeyMissing = errors.New("METALS_DEV_API_KEY is not configured")
