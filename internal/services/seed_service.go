package services

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/epeers/metalprices/internal/models"
	"github.com/epeers/metalprices/internal/repository"
	log "github.com/sirupsen/logrus"
)

// ErrDimensionsMissing is returned when seeding runs before the ETL has created dimensions
var ErrDimensionsMissing = errors.New("dimensions not populated, run the ETL first")

// SeedConfig describes the synthetic history to generate
type SeedConfig struct {
	Metal      string
	Currency   string
	Days       int
	Step       time.Duration
	StartPrice float64
	MaxStepPct float64 // each step moves spot by up to +/- this fraction
	MinPremium float64 // MCX is spot times a factor in [1+MinPremium, 1+MaxPremium)
	MaxPremium float64
}

// DefaultSeedConfig is 90 days of 6-hourly Silver INR points
var DefaultSeedConfig = SeedConfig{
	Metal:      "Silver",
	Currency:   "INR",
	Days:       90,
	Step:       6 * time.Hour,
	StartPrice: 2300.0,
	MaxStepPct: 0.02,
	MinPremium: 0.01,
	MaxPremium: 0.05,
}

// SeedResult reports a seeding run
type SeedResult struct {
	Points       int `json:"points"`
	FactsWritten int `json:"facts_written"`
	FactsFailed  int `json:"facts_failed"`
}

// SeedService backfills synthetic historical prices
type SeedService struct {
	dims     DimensionLister
	bucketer *TimeBucketer
	facts    FactStore
	rng      *rand.Rand
	now      func() time.Time
}

// NewSeedService creates a new SeedService. A nil rng is seeded randomly.
func NewSeedService(dims DimensionLister, bucketer *TimeBucketer, facts FactStore, rng *rand.Rand) *SeedService {
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return &SeedService{
		dims:     dims,
		bucketer: bucketer,
		facts:    facts,
		rng:      rng,
		now:      time.Now,
	}
}

// Seed generates a random walk for cfg.Metal on the Spot market, plus an MCX
// series at a premium when that market exists, and upserts it.
func (s *SeedService) Seed(ctx context.Context, cfg SeedConfig) (*SeedResult, error) {
	defer TrackTime("Seed", time.Now())
	log.Infof("Seeding %s %s historical data...", cfg.Metal, cfg.Currency)

	metals, err := s.dims.GetAll(ctx, repository.MetalTable)
	if err != nil {
		return nil, err
	}
	markets, err := s.dims.GetAll(ctx, repository.MarketTable)
	if err != nil {
		return nil, err
	}
	if len(metals) == 0 || len(markets) == 0 {
		return nil, ErrDimensionsMissing
	}

	metalID, ok := findContaining(metals, cfg.Metal)
	if !ok {
		return nil, fmt.Errorf("%w: no metal matching %q", ErrDimensionsMissing, cfg.Metal)
	}
	spotID, ok := findContaining(markets, models.MarketSpot)
	if !ok {
		return nil, fmt.Errorf("%w: no %s market", ErrDimensionsMissing, models.MarketSpot)
	}
	mcxID, hasMCX := findContaining(markets, models.MarketMCX)

	end := s.now().UTC()
	start := end.AddDate(0, 0, -cfg.Days)
	spot := cfg.StartPrice

	result := &SeedResult{}
	facts := make([]models.PriceFact, 0, repository.DefaultFactBatchSize)
	flush := func() error {
		if len(facts) == 0 {
			return nil
		}
		res, err := s.facts.UpsertFacts(ctx, facts)
		result.FactsWritten += res.Written
		result.FactsFailed += len(res.Failed)
		facts = facts[:0]
		return err
	}

	for t := start; !t.After(end); t = t.Add(cfg.Step) {
		timeID, err := s.bucketer.Bucket(ctx, t)
		if err != nil {
			log.Errorf("Skipping seed point %s: %v", t.Format(time.RFC3339), err)
			continue
		}

		spot *= 1 + s.uniform(-cfg.MaxStepPct, cfg.MaxStepPct)
		result.Points++
		facts = append(facts, s.fact(metalID, spotID, timeID, spot, cfg.Currency))
		if hasMCX {
			mcx := spot * s.uniform(1+cfg.MinPremium, 1+cfg.MaxPremium)
			facts = append(facts, s.fact(metalID, mcxID, timeID, mcx, cfg.Currency))
		}

		if len(facts) >= repository.DefaultFactBatchSize {
			if err := flush(); err != nil {
				return result, fmt.Errorf("failed to write seed batch: %w", err)
			}
		}
	}
	if err := flush(); err != nil {
		return result, fmt.Errorf("failed to write seed batch: %w", err)
	}

	log.Infof("Seeded %d points (%d facts)", result.Points, result.FactsWritten)
	return result, nil
}

func (s *SeedService) fact(metalID, marketID, timeID int64, price float64, currency string) models.PriceFact {
	return models.PriceFact{
		MetalID:  metalID,
		MarketID: marketID,
		TimeID:   timeID,
		Price:    math.Round(price*100) / 100,
		Currency: currency,
		Unit:     models.UnitTroyOunce,
	}
}

func (s *SeedService) uniform(lo, hi float64) float64 {
	return lo + s.rng.Float64()*(hi-lo)
}

// findContaining returns the id of the lexically first name containing sub
func findContaining(ids map[string]int64, sub string) (int64, bool) {
	best := ""
	found := false
	for name := range ids {
		if strings.Contains(name, sub) && (!found || name < best) {
			best, found = name, true
		}
	}
	return ids[best], found
}
