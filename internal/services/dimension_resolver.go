package services

import (
	"context"
	"fmt"

	"github.com/epeers/metalprices/internal/repository"
	log "github.com/sirupsen/logrus"
)

// DimensionResolver maps natural keys to surrogate ids, creating rows on first sighting
type DimensionResolver struct {
	store DimensionStore
}

// NewDimensionResolver creates a new DimensionResolver
func NewDimensionResolver(store DimensionStore) *DimensionResolver {
	return &DimensionResolver{store: store}
}

// Resolve returns the id of the row in table whose key column equals value. If
// no row exists one is inserted with value and extra. Matching is exact: the first
// spelling stored is canonical for that string.
func (r *DimensionResolver) Resolve(ctx context.Context, table repository.DimensionTable, value string, extra map[string]any) (int64, error) {
	id, found, err := r.store.LookupID(ctx, table, value)
	if err != nil {
		return 0, fmt.Errorf("failed to resolve %s %q: %w", table.Name, value, err)
	}
	if found {
		return id, nil
	}

	id, err = r.store.InsertDimension(ctx, table, value, extra)
	if err != nil {
		return 0, fmt.Errorf("failed to resolve %s %q: %w", table.Name, value, err)
	}
	log.Infof("Created new entry in %s: %s (id %d)", table.Name, value, id)
	return id, nil
}

// ResolveMetal resolves a dim_metal name
func (r *DimensionResolver) ResolveMetal(ctx context.Context, name string) (int64, error) {
	return r.Resolve(ctx, repository.MetalTable, name, nil)
}

// ResolveMarket resolves a dim_market name
func (r *DimensionResolver) ResolveMarket(ctx context.Context, name string) (int64, error) {
	return r.Resolve(ctx, repository.MarketTable, name, nil)
}
