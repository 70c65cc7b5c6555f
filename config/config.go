package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	defaultAPIURL   = "https://api.metals.dev/v1/latest"
	defaultSchedule = "30 12 * * *" // daily 12:30 UTC
)

// Config holds application configuration loaded from environment variables
type Config struct {
	PGURL  string
	Port   string
	APIKey string
	APIURL string

	Currencies   []string
	Mode         string
	Schedule     string
	Interval     time.Duration
	RunOnStart   bool
	Once         bool
	APIRateLimit float64

	CacheTTL   time.Duration
	AdminToken string

	LogLevel string
	LogFile  string
}

// Load reads configuration from environment variables. A .env file in the
// working directory is read first; variables already set in the shell win.
func Load() (*Config, error) {
	_ = godotenv.Load()

	pgURL := os.Getenv("PG_URL")
	if pgURL == "" {
		return nil, fmt.Errorf("PG_URL environment variable is required")
	}

	cfg := &Config{
		PGURL:      pgURL,
		Port:       getEnv("PORT", "8080"),
		APIKey:     os.Getenv("METALS_DEV_API_KEY"),
		APIURL:     getEnv("METALS_API_URL", defaultAPIURL),
		Mode:       strings.ToLower(getEnv("ETL_MODE", "all")),
		Schedule:   getEnv("ETL_SCHEDULE", defaultSchedule),
		AdminToken: os.Getenv("ADMIN_TOKEN"),
		LogLevel:   getEnv("LOG_LEVEL", "info"),
		LogFile:    os.Getenv("LOG_FILE"),
	}

	for _, c := range strings.Split(getEnv("ETL_CURRENCIES", "USD"), ",") {
		c = strings.ToUpper(strings.TrimSpace(c))
		if c != "" {
			cfg.Currencies = append(cfg.Currencies, c)
		}
	}
	if len(cfg.Currencies) == 0 {
		return nil, fmt.Errorf("ETL_CURRENCIES must name at least one currency")
	}

	if cfg.Mode != "all" && cfg.Mode != "silver" {
		return nil, fmt.Errorf("ETL_MODE must be 'all' or 'silver', got %q", cfg.Mode)
	}

	var err error
	if v := os.Getenv("ETL_INTERVAL"); v != "" {
		if cfg.Interval, err = time.ParseDuration(v); err != nil {
			return nil, fmt.Errorf("invalid ETL_INTERVAL: %w", err)
		}
		if cfg.Interval <= 0 {
			return nil, fmt.Errorf("ETL_INTERVAL must be positive, got %s", v)
		}
	}
	if cfg.RunOnStart, err = strconv.ParseBool(getEnv("ETL_RUN_ON_START", "true")); err != nil {
		return nil, fmt.Errorf("invalid ETL_RUN_ON_START: %w", err)
	}
	if cfg.Once, err = strconv.ParseBool(getEnv("ETL_ONCE", "false")); err != nil {
		return nil, fmt.Errorf("invalid ETL_ONCE: %w", err)
	}
	if cfg.APIRateLimit, err = strconv.ParseFloat(getEnv("API_RATE_PER_SEC", "1"), 64); err != nil {
		return nil, fmt.Errorf("invalid API_RATE_PER_SEC: %w", err)
	}
	if cfg.CacheTTL, err = time.ParseDuration(getEnv("CACHE_TTL", "1h")); err != nil {
		return nil, fmt.Errorf("invalid CACHE_TTL: %w", err)
	}

	return cfg, nil
}

// LoadETL is Load plus the price API credential, which only the ingestion
// process needs.
func LoadETL() (*Config, error) {
	cfg, err := Load()
	if err != nil {
		return nil, err
	}
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("METALS_DEV_API_KEY environment variable is required")
	}
	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
