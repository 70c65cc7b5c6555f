package services

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/epeers/metalprices/internal/analytics"
	"github.com/epeers/metalprices/internal/metrics"
	"github.com/epeers/metalprices/internal/models"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// DefaultKPIMetal is the metal the headline numbers are computed for
const DefaultKPIMetal = "Silver"

// ErrInvalidUnit is returned for a unit other than toz or kg
var ErrInvalidUnit = errors.New("unit must be 'toz' or 'kg'")

// TableLoader returns the cached price table for a currency
type TableLoader interface {
	Get(ctx context.Context, currency string) (analytics.Table, error)
	Invalidate(currency string)
	Clear()
}

// MovingAveragesResponse is the daily series of one instrument with its SMAs
type MovingAveragesResponse struct {
	Metal    string                      `json:"metal"`
	Market   string                      `json:"market"`
	Daily    analytics.Series            `json:"daily"`
	Averages map[string]analytics.Series `json:"averages"`
	Warnings []models.Warning            `json:"warnings,omitempty"`
}

// CorrelationResponse is the pairwise correlation of metals within a market
type CorrelationResponse struct {
	Market   string           `json:"market"`
	Matrix   analytics.Matrix `json:"matrix"`
	Warnings []models.Warning `json:"warnings,omitempty"`
}

// VolatilityResponse lists instruments whose latest move crossed the threshold
type VolatilityResponse struct {
	Threshold float64           `json:"threshold"`
	Alerts    []analytics.Alert `json:"alerts"`
	Warnings  []models.Warning  `json:"warnings,omitempty"`
}

// PremiumResponse is the futures-over-reference spread series
type PremiumResponse struct {
	Metal     string           `json:"metal"`
	Futures   string           `json:"futures"`
	Reference string           `json:"reference"`
	Series    analytics.Series `json:"series"`
	Warnings  []models.Warning `json:"warnings,omitempty"`
}

// OverviewRequest selects the instruments the overview is computed for
type OverviewRequest struct {
	Query     models.DashboardQuery
	Metal     string
	Market    string
	Windows   []int
	Threshold float64
}

// OverviewResponse bundles every analytic for one filter
type OverviewResponse struct {
	KPI            *models.KPIResponse          `json:"kpi"`
	MovingAverages *MovingAveragesResponse      `json:"moving_averages"`
	Correlation    *CorrelationResponse         `json:"correlation"`
	Volatility     *VolatilityResponse          `json:"volatility"`
	MostVolatile   *models.MostVolatileResponse `json:"most_volatile"`
	Premium        *PremiumResponse             `json:"premium"`
	Warnings       []models.Warning             `json:"warnings,omitempty"`
}

// DashboardService serves the analytics the dashboard renders
type DashboardService struct {
	tables          TableLoader
	defaultCurrency string
	now             func() time.Time
}

// NewDashboardService creates a new DashboardService. Queries without a
// currency are answered in defaultCurrency.
func NewDashboardService(tables TableLoader, defaultCurrency string) *DashboardService {
	return &DashboardService{
		tables:          tables,
		defaultCurrency: strings.ToUpper(defaultCurrency),
		now:             time.Now,
	}
}

func (s *DashboardService) currency(q models.DashboardQuery) string {
	if q.Currency == "" {
		return s.defaultCurrency
	}
	return strings.ToUpper(q.Currency)
}

// LoadTable reads the joined rows for currency into an analytics table
func LoadTable(source PriceSource) func(ctx context.Context, currency string) (analytics.Table, error) {
	return func(ctx context.Context, currency string) (analytics.Table, error) {
		defer TrackTime("LoadTable", time.Now())

		rows, err := source.LoadPriceRows(ctx, currency)
		if err != nil {
			metrics.TableLoads.WithLabelValues(currency, "error").Inc()
			return analytics.Table{}, fmt.Errorf("failed to load prices: %w", err)
		}
		metrics.TableLoads.WithLabelValues(currency, "ok").Inc()
		log.Debugf("Loaded %d price rows for currency %q", len(rows), currency)
		return analytics.NewTable(rows), nil
	}
}

// Table returns the cached table for q.Currency with q's filters and unit applied
func (s *DashboardService) Table(ctx context.Context, q models.DashboardQuery) (analytics.Table, error) {
	unit := strings.ToLower(q.Unit)
	if unit != "" && unit != models.UnitQueryTroyOunce && unit != models.UnitQueryKilogram {
		return analytics.Table{}, ErrInvalidUnit
	}

	currency := s.currency(q)
	t, err := s.tables.Get(ctx, currency)
	if err != nil {
		return analytics.Table{}, err
	}

	t = t.Filter(analytics.Filter{
		Start:    q.StartDate.Time,
		End:      q.EndDate.Time,
		Metals:   splitList(q.Metal),
		Markets:  splitList(q.Market),
		Currency: currency,
	})
	if unit == models.UnitQueryKilogram {
		t = t.ConvertToKilogram()
	}
	if t.Len() == 0 {
		AddWarning(ctx, models.Warning{Code: models.WarnNoData, Message: "no prices match the selected filters"})
	}
	return t, nil
}

// Prices returns the filtered joined rows
func (s *DashboardService) Prices(ctx context.Context, q models.DashboardQuery) (*models.PricesResponse, error) {
	t, err := s.Table(ctx, q)
	if err != nil {
		return nil, err
	}
	unit := strings.ToLower(q.Unit)
	if unit == "" {
		unit = models.UnitQueryTroyOunce
	}
	return &models.PricesResponse{
		Currency: s.currency(q),
		Unit:     unit,
		Count:    t.Len(),
		Rows:     t.Rows(),
	}, nil
}

// KPI returns the latest price and daily change of metal on every market,
// plus the MCX premium over Spot when both are priced.
func (s *DashboardService) KPI(ctx context.Context, q models.DashboardQuery, metal string) (*models.KPIResponse, error) {
	t, err := s.Table(ctx, q)
	if err != nil {
		return nil, err
	}
	return kpi(ctx, t, metal), nil
}

func kpi(ctx context.Context, t analytics.Table, metal string) *models.KPIResponse {
	if metal == "" {
		metal = DefaultKPIMetal
	}
	resp := &models.KPIResponse{Metal: metal, KPIs: []models.KPI{}}

	for _, market := range t.Markets() {
		price, ok := t.Latest(metal, market)
		if !ok {
			continue
		}
		change, err := analytics.DailyChange(t, metal, market)
		if err != nil {
			Warnf(ctx, models.WarnInsufficientHistory, "%s %s: daily change needs two days of prices", metal, market)
			change = 0
		}
		resp.KPIs = append(resp.KPIs, models.KPI{Metal: metal, Market: market, Price: price, DailyChange: change})
	}

	spot, hasSpot := t.Latest(metal, models.MarketSpot)
	mcx, hasMCX := t.Latest(metal, models.MarketMCX)
	if hasSpot && hasMCX {
		p := analytics.SpreadPct(mcx, spot)
		resp.Premium = &p
	} else {
		Warnf(ctx, models.WarnPremiumUnavailable, "%s premium needs both %s and %s prices", metal, models.MarketMCX, models.MarketSpot)
	}
	return resp
}

// MovingAverages returns the daily last-price series of metal on market and
// its simple moving averages over windows.
func (s *DashboardService) MovingAverages(ctx context.Context, q models.DashboardQuery, metal, market string, windows []int) (*MovingAveragesResponse, error) {
	t, err := s.Table(ctx, q)
	if err != nil {
		return nil, err
	}
	return movingAverages(ctx, t, metal, market, windows), nil
}

func movingAverages(ctx context.Context, t analytics.Table, metal, market string, windows []int) *MovingAveragesResponse {
	if metal == "" {
		metal = DefaultKPIMetal
	}
	if market == "" {
		market = models.MarketSpot
	}
	if len(windows) == 0 {
		windows = analytics.DefaultWindows
	}

	daily := t.Series(metal, market).DailyLast()
	for _, w := range windows {
		if len(daily) < w {
			Warnf(ctx, models.WarnInsufficientHistory, "%s %s: %d daily points, SMA_%d needs %d", metal, market, len(daily), w, w)
		}
	}
	return &MovingAveragesResponse{
		Metal:    metal,
		Market:   market,
		Daily:    daily,
		Averages: analytics.MovingAverages(daily, windows),
	}
}

// Correlation returns the correlation matrix of metals priced on market
func (s *DashboardService) Correlation(ctx context.Context, q models.DashboardQuery, market string) (*CorrelationResponse, error) {
	t, err := s.Table(ctx, q)
	if err != nil {
		return nil, err
	}
	return correlation(ctx, t, market), nil
}

func correlation(ctx context.Context, t analytics.Table, market string) *CorrelationResponse {
	if market == "" {
		market = models.MarketSpot
	}
	m := analytics.CorrelationMatrix(t, market)
	if len(m.Labels) < 2 {
		Warnf(ctx, models.WarnInsufficientHistory, "correlation on %s needs at least two metals", market)
	}
	return &CorrelationResponse{Market: market, Matrix: m}
}

// Volatility returns the spike alerts for threshold percent
func (s *DashboardService) Volatility(ctx context.Context, q models.DashboardQuery, threshold float64) (*VolatilityResponse, error) {
	t, err := s.Table(ctx, q)
	if err != nil {
		return nil, err
	}
	return volatility(t, threshold), nil
}

func volatility(t analytics.Table, threshold float64) *VolatilityResponse {
	if threshold <= 0 || math.IsNaN(threshold) {
		threshold = analytics.DefaultSpikeThreshold
	}
	return &VolatilityResponse{Threshold: threshold, Alerts: analytics.DetectVolatility(t, threshold)}
}

// MostVolatile returns the Spot metal with the most volatile daily returns
func (s *DashboardService) MostVolatile(ctx context.Context, q models.DashboardQuery) (*models.MostVolatileResponse, error) {
	t, err := s.Table(ctx, q)
	if err != nil {
		return nil, err
	}
	return mostVolatile(ctx, t), nil
}

func mostVolatile(ctx context.Context, t analytics.Table) *models.MostVolatileResponse {
	metal, ok := analytics.MostVolatile(t, models.MarketSpot)
	if !ok {
		AddWarning(ctx, models.Warning{
			Code:    models.WarnInsufficientHistory,
			Message: "no Spot metal has three days of prices",
		})
		return &models.MostVolatileResponse{}
	}
	return &models.MostVolatileResponse{Metal: &metal}
}

// Premium returns the spread of metal on futures over reference
func (s *DashboardService) Premium(ctx context.Context, q models.DashboardQuery, metal, futures, reference string) (*PremiumResponse, error) {
	t, err := s.Table(ctx, q)
	if err != nil {
		return nil, err
	}
	return premium(ctx, t, metal, futures, reference), nil
}

func premium(ctx context.Context, t analytics.Table, metal, futures, reference string) *PremiumResponse {
	if metal == "" {
		metal = DefaultKPIMetal
	}
	if futures == "" {
		futures = models.MarketMCX
	}
	if reference == "" {
		reference = models.MarketSpot
	}

	series := analytics.PremiumSeries(t.Series(metal, futures), t.Series(metal, reference), analytics.DefaultPremiumTolerance)
	if len(series) == 0 {
		Warnf(ctx, models.WarnPremiumUnavailable, "no %s %s prices within %s of a %s price", metal, futures, analytics.DefaultPremiumTolerance, reference)
	}
	return &PremiumResponse{Metal: metal, Futures: futures, Reference: reference, Series: series}
}

// Overview computes every analytic over one load of the table
func (s *DashboardService) Overview(ctx context.Context, req OverviewRequest) (*OverviewResponse, error) {
	defer TrackTime("Overview", time.Now())

	t, err := s.Table(ctx, req.Query)
	if err != nil {
		return nil, err
	}

	resp := &OverviewResponse{}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		resp.KPI = kpi(gctx, t, req.Metal)
		return nil
	})
	g.Go(func() error {
		resp.MovingAverages = movingAverages(gctx, t, req.Metal, req.Market, req.Windows)
		return nil
	})
	g.Go(func() error {
		resp.Correlation = correlation(gctx, t, req.Market)
		return nil
	})
	g.Go(func() error {
		resp.Volatility = volatility(t, req.Threshold)
		return nil
	})
	g.Go(func() error {
		resp.MostVolatile = mostVolatile(gctx, t)
		return nil
	})
	g.Go(func() error {
		resp.Premium = premium(gctx, t, req.Metal, "", "")
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return resp, nil
}

// Refresh drops the cached table for currency so the next request reloads it.
// An empty currency drops every cached table.
func (s *DashboardService) Refresh(currency string) *models.RefreshResponse {
	currency = strings.ToUpper(currency)
	if currency == "" {
		s.tables.Clear()
	} else {
		s.tables.Invalidate(currency)
	}
	log.Infof("Dashboard cache refreshed (currency %q)", currency)
	return &models.RefreshResponse{Currency: currency, RefreshedAt: s.now().UTC()}
}

// splitList flattens repeated and comma separated query values
func splitList(values []string) []string {
	var out []string
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			if p := strings.TrimSpace(part); p != "" {
				out = append(out, p)
			}
		}
	}
	return out
}
