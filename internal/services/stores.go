package services

import (
	"context"

	"github.com/epeers/metalprices/internal/metalsdev"
	"github.com/epeers/metalprices/internal/models"
	"github.com/epeers/metalprices/internal/repository"
)

// DimensionStore is the persistence the DimensionResolver needs
type DimensionStore interface {
	LookupID(ctx context.Context, table repository.DimensionTable, value string) (int64, bool, error)
	InsertDimension(ctx context.Context, table repository.DimensionTable, value string, extra map[string]any) (int64, error)
}

// DimensionLister returns every natural key of a dimension with its id
type DimensionLister interface {
	GetAll(ctx context.Context, table repository.DimensionTable) (map[string]int64, error)
}

// TimeStore persists dim_time rows
type TimeStore interface {
	UpsertTimeBucket(ctx context.Context, tb models.TimeBucket) error
}

// FactStore persists fact_metal_prices rows
type FactStore interface {
	UpsertFacts(ctx context.Context, facts []models.PriceFact) (repository.UpsertResult, error)
}

// QuoteSource fetches the latest prices in a currency
type QuoteSource interface {
	GetLatest(ctx context.Context, currency string) (*metalsdev.ParsedLatest, error)
}

// PriceSource loads the joined price rows analytics run on
type PriceSource interface {
	LoadPriceRows(ctx context.Context, currency string) ([]models.PriceRow, error)
}
