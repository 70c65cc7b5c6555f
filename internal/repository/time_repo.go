package repository

import (
	"context"
	"fmt"

	"github.com/epeers/metalprices/internal/models"
	"github.com/jackc/pgx/v5/pgxpool"
)

// TimeRepository handles database operations for dim_time
type TimeRepository struct {
	pool *pgxpool.Pool
}

// NewTimeRepository creates a new TimeRepository
func NewTimeRepository(pool *pgxpool.Pool) *TimeRepository {
	return &TimeRepository{pool: pool}
}

// UpsertTimeBucket creates the dim_time row or overwrites an existing row with the same id
func (r *TimeRepository) UpsertTimeBucket(ctx context.Context, tb models.TimeBucket) error {
	query := `
		INSERT INTO dim_time (id, timestamp, date, day, month, year, hour)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO UPDATE
		SET timestamp = EXCLUDED.timestamp, date = EXCLUDED.date, day = EXCLUDED.day,
		    month = EXCLUDED.month, year = EXCLUDED.year, hour = EXCLUDED.hour
	`
	_, err := r.pool.Exec(ctx, query, tb.ID, tb.Timestamp, tb.Date, tb.Day, tb.Month, tb.Year, tb.Hour)
	if err != nil {
		return fmt.Errorf("failed to upsert dim_time %d: %w", tb.ID, err)
	}
	return nil
}
