package repository

import (
	"context"
	"fmt"

	"github.com/epeers/metalprices/internal/models"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	log "github.com/sirupsen/logrus"
)

// DefaultFactBatchSize bounds the statements sent per round trip during bulk upserts
const DefaultFactBatchSize = 100

const upsertFactQuery = `
	INSERT INTO fact_metal_prices (metal_id, market_id, time_id, price, currency, unit)
	VALUES ($1, $2, $3, $4, $5, $6)
	ON CONFLICT (metal_id, market_id, time_id, currency) DO UPDATE
	SET price = EXCLUDED.price, unit = EXCLUDED.unit
`

// FactError records a fact the store rejected
type FactError struct {
	Fact models.PriceFact
	Err  error
}

// UpsertResult summarises a bulk fact upsert
type UpsertResult struct {
	Written int
	Failed  []FactError
}

// FactRepository handles database operations for fact_metal_prices
type FactRepository struct {
	pool      *pgxpool.Pool
	batchSize int
}

// NewFactRepository creates a new FactRepository
func NewFactRepository(pool *pgxpool.Pool) *FactRepository {
	return &FactRepository{pool: pool, batchSize: DefaultFactBatchSize}
}

// UpsertFacts writes facts in batches. A batch runs as one implicit transaction, so when
// any statement in it fails the batch is replayed row by row to isolate the bad records;
// the remaining batches still run.
func (r *FactRepository) UpsertFacts(ctx context.Context, facts []models.PriceFact) (UpsertResult, error) {
	var result UpsertResult
	if len(facts) == 0 {
		return result, nil
	}

	for start := 0; start < len(facts); start += r.batchSize {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		end := min(start+r.batchSize, len(facts))
		chunk := facts[start:end]

		err := r.sendBatch(ctx, chunk)
		if err == nil {
			result.Written += len(chunk)
			continue
		}
		log.Warnf("fact batch of %d failed, retrying row by row: %v", len(chunk), err)

		for _, f := range chunk {
			if _, err := r.pool.Exec(ctx, upsertFactQuery, f.MetalID, f.MarketID, f.TimeID, f.Price, f.Currency, f.Unit); err != nil {
				log.WithFields(log.Fields{
					"metal_id":  f.MetalID,
					"market_id": f.MarketID,
					"time_id":   f.TimeID,
					"currency":  f.Currency,
				}).Errorf("failed to upsert fact: %v", err)
				result.Failed = append(result.Failed, FactError{Fact: f, Err: err})
				continue
			}
			result.Written++
		}
	}

	return result, nil
}

func (r *FactRepository) sendBatch(ctx context.Context, facts []models.PriceFact) error {
	batch := &pgx.Batch{}
	for _, f := range facts {
		batch.Queue(upsertFactQuery, f.MetalID, f.MarketID, f.TimeID, f.Price, f.Currency, f.Unit)
	}

	br := r.pool.SendBatch(ctx, batch)
	defer br.Close()

	for range facts {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("failed to upsert fact: %w", err)
		}
	}
	return nil
}
