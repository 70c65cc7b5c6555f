package services

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/epeers/metalprices/internal/instrument"
	"github.com/epeers/metalprices/internal/metrics"
	"github.com/epeers/metalprices/internal/models"
	log "github.com/sirupsen/logrus"
)

// ErrCycleInProgress is returned when an ingestion cycle is requested while one is running
var ErrCycleInProgress = errors.New("ingestion cycle already running")

// IngestMode selects which instruments an ingestion run tracks
type IngestMode string

const (
	IngestAll    IngestMode = "all"
	IngestSilver IngestMode = "silver" // silver keys only, no LBMA fixings
)

// IngestStatus is the outcome of one currency's ingestion
type IngestStatus string

const (
	IngestOK      IngestStatus = "ok"
	IngestPartial IngestStatus = "partial" // some instruments could not be written
	IngestFailed  IngestStatus = "failed"  // nothing was written
)

// IngestOutcome reports what one Ingest call did
type IngestOutcome struct {
	Currency     string           `json:"currency"`
	Status       IngestStatus     `json:"status"`
	AsOf         time.Time        `json:"as_of"`
	TimeID       int64            `json:"time_id"`
	FactsWritten int              `json:"facts_written"`
	Skipped      int              `json:"skipped"`
	Warnings     []models.Warning `json:"warnings"`
	Error        string           `json:"error,omitempty"`
}

// IngestService fetches quotes and loads them into the star schema
type IngestService struct {
	source     QuoteSource
	resolver   *DimensionResolver
	bucketer   *TimeBucketer
	facts      FactStore
	classifier *instrument.Classifier
	mode       IngestMode
	running    atomic.Bool
}

// NewIngestService creates a new IngestService
func NewIngestService(
	source QuoteSource,
	resolver *DimensionResolver,
	bucketer *TimeBucketer,
	facts FactStore,
	classifier *instrument.Classifier,
	mode IngestMode,
) *IngestService {
	return &IngestService{
		source:     source,
		resolver:   resolver,
		bucketer:   bucketer,
		facts:      facts,
		classifier: classifier,
		mode:       mode,
	}
}

// RunCycle ingests every currency in turn. A failed currency is logged and the
// cycle moves on to the next one.
func (s *IngestService) RunCycle(ctx context.Context, currencies []string) ([]*IngestOutcome, error) {
	if !s.running.CompareAndSwap(false, true) {
		return nil, ErrCycleInProgress
	}
	defer s.running.Store(false)
	defer TrackTime("RunCycle", time.Now())

	log.Infof("Starting ingestion cycle for %v (mode %s)", currencies, s.mode)
	outcomes := make([]*IngestOutcome, 0, len(currencies))
	for _, currency := range currencies {
		outcome, err := s.Ingest(ctx, currency)
		if err != nil {
			log.Errorf("Ingestion for %s skipped: %v", currency, err)
		}
		outcomes = append(outcomes, outcome)
	}
	log.Info("Ingestion cycle completed")
	return outcomes, nil
}

// Ingest fetches the latest prices in currency and upserts one fact per
// classified instrument. A non-nil error means nothing was written; the
// outcome is always returned.
func (s *IngestService) Ingest(ctx context.Context, currency string) (*IngestOutcome, error) {
	outcome := &IngestOutcome{Currency: currency, Warnings: []models.Warning{}}
	defer func() {
		metrics.IngestRuns.WithLabelValues(currency, string(outcome.Status)).Inc()
	}()

	latest, err := s.source.GetLatest(ctx, currency)
	if err != nil {
		return s.fail(outcome, fmt.Errorf("failed to fetch prices: %w", err))
	}
	outcome.AsOf = latest.AsOf

	timeID, err := s.bucketer.Bucket(ctx, latest.AsOf)
	if err != nil {
		return s.fail(outcome, err)
	}
	outcome.TimeID = timeID

	marketIDs := make(map[string]int64)
	facts := make([]models.PriceFact, 0, len(latest.Quotes))
	failed := 0

	for _, q := range latest.Quotes {
		c := s.classifier.Classify(q.Key)
		entry := log.WithFields(log.Fields{"key": q.Key, "metal": c.Metal, "market": c.Market, "currency": currency})

		if s.mode == IngestSilver && !instrument.SilverOnly(c) {
			metrics.InstrumentsSkipped.WithLabelValues(currency, "filtered").Inc()
			outcome.Skipped++
			continue
		}
		if q.Price <= 0 {
			entry.Warnf("Skipping non-positive price %v", q.Price)
			s.skip(outcome, currency, "invalid_price", fmt.Sprintf("%s: non-positive price %v", q.Key, q.Price))
			failed++
			continue
		}

		metalID, err := s.resolver.ResolveMetal(ctx, c.Metal)
		if err != nil {
			entry.Errorf("Dimension lookup failed: %v", err)
			s.skip(outcome, currency, "unresolved", fmt.Sprintf("%s: %v", q.Key, err))
			failed++
			continue
		}

		marketID, ok := marketIDs[c.Market]
		if !ok {
			marketID, err = s.resolver.ResolveMarket(ctx, c.Market)
			if err != nil {
				entry.Errorf("Dimension lookup failed: %v", err)
				s.skip(outcome, currency, "unresolved", fmt.Sprintf("%s: %v", q.Key, err))
				failed++
				continue
			}
			marketIDs[c.Market] = marketID
		}

		facts = append(facts, models.PriceFact{
			MetalID:  metalID,
			MarketID: marketID,
			TimeID:   timeID,
			Price:    q.Price,
			Currency: currency,
			Unit:     models.UnitTroyOunce,
		})
		entry.Debugf("Processed %s (%s): %v", c.Metal, c.Market, q.Price)
	}

	written, rejected, err := s.writeFacts(ctx, currency, facts, outcome)
	if err != nil {
		return s.fail(outcome, err)
	}
	outcome.FactsWritten = written
	failed += rejected

	switch {
	case failed == 0:
		outcome.Status = IngestOK
	case written > 0:
		outcome.Status = IngestPartial
	default:
		outcome.Status = IngestFailed
	}
	log.Infof("Ingested %s: %d facts written, %d skipped, %d failed", currency, written, outcome.Skipped, failed)
	return outcome, nil
}

// ImportResult reports a bulk import
type ImportResult struct {
	Received     int              `json:"received"`
	FactsWritten int              `json:"facts_written"`
	Warnings     []models.Warning `json:"warnings"`
}

// ImportRecords resolves and upserts pre-classified observations, such as a
// historical CSV. Bad records are reported and skipped.
func (s *IngestService) ImportRecords(ctx context.Context, records []models.PriceRecord) (*ImportResult, error) {
	defer TrackTime("ImportRecords", time.Now())

	result := &ImportResult{Received: len(records), Warnings: []models.Warning{}}
	metalIDs := make(map[string]int64)
	marketIDs := make(map[string]int64)
	timeIDs := make(map[int64]bool)

	byCurrency := make(map[string][]models.PriceFact)
	var currencies []string

	for i, rec := range records {
		if rec.Price <= 0 {
			result.Warnings = append(result.Warnings, skippedWarning(fmt.Sprintf("record %d: non-positive price", i+1)))
			continue
		}

		tid := TimeID(rec.Timestamp)
		if !timeIDs[tid] {
			if _, err := s.bucketer.Bucket(ctx, rec.Timestamp); err != nil {
				// without the time key no fact in this import can reference the hour
				return nil, err
			}
			timeIDs[tid] = true
		}

		metalID, err := resolveCached(ctx, metalIDs, rec.Metal, s.resolver.ResolveMetal)
		if err != nil {
			log.Errorf("Import record %d: %v", i+1, err)
			result.Warnings = append(result.Warnings, skippedWarning(fmt.Sprintf("record %d: %v", i+1, err)))
			continue
		}
		marketID, err := resolveCached(ctx, marketIDs, rec.Market, s.resolver.ResolveMarket)
		if err != nil {
			log.Errorf("Import record %d: %v", i+1, err)
			result.Warnings = append(result.Warnings, skippedWarning(fmt.Sprintf("record %d: %v", i+1, err)))
			continue
		}

		if _, ok := byCurrency[rec.Currency]; !ok {
			currencies = append(currencies, rec.Currency)
		}
		byCurrency[rec.Currency] = append(byCurrency[rec.Currency], models.PriceFact{
			MetalID:  metalID,
			MarketID: marketID,
			TimeID:   tid,
			Price:    rec.Price,
			Currency: rec.Currency,
			Unit:     models.UnitTroyOunce,
		})
	}

	for _, currency := range currencies {
		outcome := &IngestOutcome{Currency: currency}
		written, _, err := s.writeFacts(ctx, currency, byCurrency[currency], outcome)
		if err != nil {
			return nil, err
		}
		result.FactsWritten += written
		result.Warnings = append(result.Warnings, outcome.Warnings...)
	}

	return result, nil
}

func (s *IngestService) writeFacts(ctx context.Context, currency string, facts []models.PriceFact, outcome *IngestOutcome) (int, int, error) {
	if len(facts) == 0 {
		return 0, 0, nil
	}
	res, err := s.facts.UpsertFacts(ctx, facts)
	if err != nil {
		return res.Written, len(res.Failed), fmt.Errorf("failed to write facts: %w", err)
	}
	for _, f := range res.Failed {
		outcome.Warnings = append(outcome.Warnings, models.Warning{
			Code:    models.WarnFactWriteFailed,
			Message: fmt.Sprintf("metal %d market %d time %d: %v", f.Fact.MetalID, f.Fact.MarketID, f.Fact.TimeID, f.Err),
		})
	}
	metrics.FactsWritten.WithLabelValues(currency).Add(float64(res.Written))
	return res.Written, len(res.Failed), nil
}

func (s *IngestService) fail(outcome *IngestOutcome, err error) (*IngestOutcome, error) {
	outcome.Status = IngestFailed
	outcome.Error = err.Error()
	return outcome, err
}

func (s *IngestService) skip(outcome *IngestOutcome, currency, reason, msg string) {
	metrics.InstrumentsSkipped.WithLabelValues(currency, reason).Inc()
	outcome.Warnings = append(outcome.Warnings, skippedWarning(msg))
}

func skippedWarning(msg string) models.Warning {
	return models.Warning{Code: models.WarnInstrumentSkipped, Message: msg}
}

func resolveCached(ctx context.Context, cache map[string]int64, name string, resolve func(context.Context, string) (int64, error)) (int64, error) {
	if id, ok := cache[name]; ok {
		return id, nil
	}
	id, err := resolve(ctx, name)
	if err != nil {
		return 0, err
	}
	cache[name] = id
	return id, nil
}
