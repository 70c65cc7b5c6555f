package services

import (
	"context"
	"math/rand/v2"
	"sort"
	"testing"
	"time"

	"github.com/epeers/metalprices/internal/models"
	"github.com/epeers/metalprices/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var seedNow = time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

func newSeedFixture(markets ...string) (*SeedService, *memStore) {
	store := newMemStore()
	store.seedDim(repository.MetalTable, "Gold")
	store.seedDim(repository.MetalTable, "Silver")
	for _, m := range markets {
		store.seedDim(repository.MarketTable, m)
	}
	svc := NewSeedService(store, NewTimeBucketer(store), store, rand.New(rand.NewPCG(1, 2)))
	svc.now = func() time.Time { return seedNow }
	return svc, store
}

func seededSeries(store *memStore, market string) []float64 {
	marketID := store.dims[repository.MarketTable.Name][market]
	var ids []int64
	byTime := map[int64]float64{}
	for k, f := range store.facts {
		if k.marketID == marketID {
			ids = append(ids, k.timeID)
			byTime[k.timeID] = f.Price
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	out := make([]float64, len(ids))
	for i, id := range ids {
		out[i] = byTime[id]
	}
	return out
}

func TestSeedGeneratesSpotAndMCX(t *testing.T) {
	svc, store := newSeedFixture(models.MarketSpot, models.MarketMCX)
	cfg := DefaultSeedConfig
	cfg.Days = 2

	result, err := svc.Seed(context.Background(), cfg)
	require.NoError(t, err)

	assert.Equal(t, 9, result.Points)
	assert.Equal(t, 18, result.FactsWritten)
	assert.Len(t, store.times, 9)

	spot := seededSeries(store, models.MarketSpot)
	mcx := seededSeries(store, models.MarketMCX)
	require.Len(t, spot, 9)
	require.Len(t, mcx, 9)

	for i := range spot {
		ratio := mcx[i] / spot[i]
		assert.GreaterOrEqual(t, ratio, 1.0099, "point %d", i)
		assert.LessOrEqual(t, ratio, 1.0501, "point %d", i)
		if i > 0 {
			step := spot[i] / spot[i-1]
			assert.InDelta(t, 1.0, step, 0.0201, "point %d", i)
		}
	}
	for _, f := range store.facts {
		assert.Equal(t, "INR", f.Currency)
		assert.Equal(t, store.dims[repository.MetalTable.Name]["Silver"], f.MetalID)
	}
}

func TestSeedBatchesFacts(t *testing.T) {
	svc, store := newSeedFixture(models.MarketSpot, models.MarketMCX)

	result, err := svc.Seed(context.Background(), DefaultSeedConfig)
	require.NoError(t, err)

	assert.Equal(t, 361, result.Points)
	total := 0
	for _, n := range store.batches {
		assert.LessOrEqual(t, n, repository.DefaultFactBatchSize)
		total += n
	}
	assert.Equal(t, 722, total)
	assert.Equal(t, 722, store.factCount())
}

func TestSeedIsDeterministicForSeed(t *testing.T) {
	a, storeA := newSeedFixture(models.MarketSpot)
	b, storeB := newSeedFixture(models.MarketSpot)
	cfg := DefaultSeedConfig
	cfg.Days = 3

	_, err := a.Seed(context.Background(), cfg)
	require.NoError(t, err)
	_, err = b.Seed(context.Background(), cfg)
	require.NoError(t, err)

	assert.Equal(t, seededSeries(storeA, models.MarketSpot), seededSeries(storeB, models.MarketSpot))
}

func TestSeedWithoutMCXWritesSpotOnly(t *testing.T) {
	svc, store := newSeedFixture(models.MarketSpot)
	cfg := DefaultSeedConfig
	cfg.Days = 1

	result, err := svc.Seed(context.Background(), cfg)
	require.NoError(t, err)
	assert.Equal(t, result.Points, result.FactsWritten)
	assert.Equal(t, result.Points, store.factCount())
}

func TestSeedRequiresDimensions(t *testing.T) {
	ctx := context.Background()

	t.Run("empty", func(t *testing.T) {
		store := newMemStore()
		svc := NewSeedService(store, NewTimeBucketer(store), store, nil)
		_, err := svc.Seed(ctx, DefaultSeedConfig)
		assert.ErrorIs(t, err, ErrDimensionsMissing)
	})

	t.Run("no spot market", func(t *testing.T) {
		svc, store := newSeedFixture(models.MarketMCX)
		_, err := svc.Seed(ctx, DefaultSeedConfig)
		assert.ErrorIs(t, err, ErrDimensionsMissing)
		assert.Equal(t, 0, store.factCount())
	})

	t.Run("no matching metal", func(t *testing.T) {
		svc, _ := newSeedFixture(models.MarketSpot)
		cfg := DefaultSeedConfig
		cfg.Metal = "Palladium"
		_, err := svc.Seed(ctx, cfg)
		assert.ErrorIs(t, err, ErrDimensionsMissing)
	})
}
