package repository

import (
	"context"
	"fmt"

	"github.com/epeers/metalprices/internal/models"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PriceRepository reads the joined fact + dimension view used by analytics
type PriceRepository struct {
	pool *pgxpool.Pool
}

// NewPriceRepository creates a new PriceRepository
func NewPriceRepository(pool *pgxpool.Pool) *PriceRepository {
	return &PriceRepository{pool: pool}
}

// LoadPriceRows returns every fact quoted in currency joined with its dimensions,
// oldest first. An empty currency loads all currencies.
func (r *PriceRepository) LoadPriceRows(ctx context.Context, currency string) ([]models.PriceRow, error) {
	query := `
		SELECT f.price::float8, m.metal_name, mk.market_name, f.currency, t.timestamp, t.date
		FROM fact_metal_prices f
		JOIN dim_metal m ON m.id = f.metal_id
		JOIN dim_market mk ON mk.id = f.market_id
		JOIN dim_time t ON t.id = f.time_id
		WHERE ($1::text = '' OR f.currency = $1::text)
		ORDER BY t.timestamp ASC, m.metal_name ASC, mk.market_name ASC
	`
	rows, err := r.pool.Query(ctx, query, currency)
	if err != nil {
		return nil, fmt.Errorf("failed to query prices: %w", err)
	}
	defer rows.Close()

	var prices []models.PriceRow
	for rows.Next() {
		var p models.PriceRow
		if err := rows.Scan(&p.Price, &p.Metal, &p.Market, &p.Currency, &p.Timestamp, &p.Date); err != nil {
			return nil, fmt.Errorf("failed to scan price row: %w", err)
		}
		p.Timestamp = p.Timestamp.UTC()
		prices = append(prices, p)
	}
	return prices, rows.Err()
}
