package services

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/epeers/metalprices/internal/metalsdev"
	"github.com/epeers/metalprices/internal/models"
	"github.com/epeers/metalprices/internal/repository"
)

type factKey struct {
	metalID, marketID, timeID int64
	currency                  string
}

// memStore is an in-memory star schema implementing every store interface
type memStore struct {
	mu      sync.Mutex
	dims    map[string]map[string]int64
	nextID  int64
	times   map[int64]models.TimeBucket
	facts   map[factKey]models.PriceFact
	lookups int
	inserts int
	batches []int

	lookupErr error
	insertErr error
	timeErr   error
	factErr   error
	rejectFn  func(models.PriceFact) error
}

func newMemStore() *memStore {
	return &memStore{
		dims:  map[string]map[string]int64{},
		times: map[int64]models.TimeBucket{},
		facts: map[factKey]models.PriceFact{},
	}
}

func (s *memStore) seedDim(table repository.DimensionTable, value string) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.insertLocked(table, value)
}

func (s *memStore) insertLocked(table repository.DimensionTable, value string) int64 {
	if s.dims[table.Name] == nil {
		s.dims[table.Name] = map[string]int64{}
	}
	if id, ok := s.dims[table.Name][value]; ok {
		return id
	}
	s.nextID++
	s.dims[table.Name][value] = s.nextID
	return s.nextID
}

func (s *memStore) LookupID(ctx context.Context, table repository.DimensionTable, value string) (int64, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lookups++
	if s.lookupErr != nil {
		return 0, false, s.lookupErr
	}
	id, ok := s.dims[table.Name][value]
	return id, ok, nil
}

func (s *memStore) InsertDimension(ctx context.Context, table repository.DimensionTable, value string, extra map[string]any) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.inserts++
	if s.insertErr != nil {
		return 0, s.insertErr
	}
	return s.insertLocked(table, value), nil
}

func (s *memStore) GetAll(ctx context.Context, table repository.DimensionTable) (map[string]int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.lookupErr != nil {
		return nil, s.lookupErr
	}
	out := map[string]int64{}
	for k, v := range s.dims[table.Name] {
		out[k] = v
	}
	return out, nil
}

func (s *memStore) UpsertTimeBucket(ctx context.Context, tb models.TimeBucket) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.timeErr != nil {
		return s.timeErr
	}
	s.times[tb.ID] = tb
	return nil
}

func (s *memStore) UpsertFacts(ctx context.Context, facts []models.PriceFact) (repository.UpsertResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var res repository.UpsertResult
	if s.factErr != nil {
		return res, s.factErr
	}
	s.batches = append(s.batches, len(facts))
	for _, f := range facts {
		if s.rejectFn != nil {
			if err := s.rejectFn(f); err != nil {
				res.Failed = append(res.Failed, repository.FactError{Fact: f, Err: err})
				continue
			}
		}
		if _, ok := s.times[f.TimeID]; !ok {
			res.Failed = append(res.Failed, repository.FactError{Fact: f, Err: errors.New("time_id foreign key violation")})
			continue
		}
		s.facts[factKey{f.MetalID, f.MarketID, f.TimeID, f.Currency}] = f
		res.Written++
	}
	return res, nil
}

func (s *memStore) factCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.facts)
}

// priceOf returns the stored price of metal on market in currency at timeID
func (s *memStore) priceOf(metal, market, currency string, timeID int64) (float64, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	metalID, ok := s.dims[repository.MetalTable.Name][metal]
	if !ok {
		return 0, false
	}
	marketID, ok := s.dims[repository.MarketTable.Name][market]
	if !ok {
		return 0, false
	}
	f, ok := s.facts[factKey{metalID, marketID, timeID, currency}]
	return f.Price, ok
}

// fakeSource serves canned quotes per currency
type fakeSource struct {
	mu     sync.Mutex
	latest map[string]*metalsdev.ParsedLatest
	errs   map[string]error
	calls  []string
}

func (f *fakeSource) GetLatest(ctx context.Context, currency string) (*metalsdev.ParsedLatest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, currency)
	if err := f.errs[currency]; err != nil {
		return nil, err
	}
	l, ok := f.latest[currency]
	if !ok {
		return nil, fmt.Errorf("%w: 404", metalsdev.ErrAPIStatus)
	}
	return l, nil
}
