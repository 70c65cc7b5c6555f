package services

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/epeers/metalprices/internal/analytics"
	"github.com/epeers/metalprices/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeTables struct {
	tables      map[string]analytics.Table
	err         error
	gets        []string
	invalidated []string
	cleared     int
}

func (f *fakeTables) Get(ctx context.Context, currency string) (analytics.Table, error) {
	f.gets = append(f.gets, currency)
	if f.err != nil {
		return analytics.Table{}, f.err
	}
	return f.tables[currency], nil
}

func (f *fakeTables) Invalidate(currency string) { f.invalidated = append(f.invalidated, currency) }
func (f *fakeTables) Clear()                     { f.cleared++ }

func day(d, h int) time.Time {
	return time.Date(2025, 1, d, h, 0, 0, 0, time.UTC)
}

func row(metal, market string, ts time.Time, price float64) models.PriceRow {
	return models.PriceRow{Metal: metal, Market: market, Currency: "INR", Timestamp: ts, Date: ts.Truncate(24 * time.Hour), Price: price}
}

func inrTable() analytics.Table {
	return analytics.NewTable([]models.PriceRow{
		row("Silver", "Spot", day(1, 6), 100),
		row("Silver", "Spot", day(1, 12), 100),
		row("Silver", "Spot", day(2, 12), 110),
		row("Silver", "MCX", day(1, 12), 103),
		row("Silver", "MCX", day(2, 12), 115.5),
		row("Gold", "Spot", day(1, 12), 2000),
		row("Gold", "Spot", day(2, 12), 2010),
	})
}

func newDashboardFixture() (*DashboardService, *fakeTables) {
	tables := &fakeTables{tables: map[string]analytics.Table{"INR": inrTable()}}
	return NewDashboardService(tables, "inr"), tables
}

func TestDashboardUsesDefaultCurrency(t *testing.T) {
	svc, tables := newDashboardFixture()

	resp, err := svc.Prices(context.Background(), models.DashboardQuery{})
	require.NoError(t, err)
	assert.Equal(t, "INR", resp.Currency)
	assert.Equal(t, "toz", resp.Unit)
	assert.Equal(t, 7, resp.Count)
	assert.Equal(t, []string{"INR"}, tables.gets)
}

func TestDashboardPricesFilters(t *testing.T) {
	svc, _ := newDashboardFixture()
	q := models.DashboardQuery{
		Currency:  "INR",
		StartDate: models.FlexibleDate{Time: day(2, 0)},
		Metal:     []string{"Silver"},
		Market:    []string{"Spot,MCX"},
	}

	resp, err := svc.Prices(context.Background(), q)
	require.NoError(t, err)
	assert.Equal(t, 2, resp.Count)
	for _, r := range resp.Rows {
		assert.Equal(t, "Silver", r.Metal)
		assert.Equal(t, 2, r.Timestamp.Day())
	}
}

func TestDashboardKilogramUnit(t *testing.T) {
	svc, _ := newDashboardFixture()

	resp, err := svc.Prices(context.Background(), models.DashboardQuery{Unit: "KG", Metal: []string{"Gold"}})
	require.NoError(t, err)
	require.Equal(t, 2, resp.Count)
	assert.Equal(t, "kg", resp.Unit)
	assert.InDelta(t, 2000*analytics.TroyOuncesPerKilogram, resp.Rows[0].Price, 1e-6)
}

func TestDashboardInvalidUnit(t *testing.T) {
	svc, _ := newDashboardFixture()
	_, err := svc.Prices(context.Background(), models.DashboardQuery{Unit: "gram"})
	assert.ErrorIs(t, err, ErrInvalidUnit)
}

func TestDashboardLoadError(t *testing.T) {
	svc, tables := newDashboardFixture()
	tables.err = errors.New("database down")

	_, err := svc.KPI(context.Background(), models.DashboardQuery{}, "")
	assert.ErrorIs(t, err, tables.err)
}

func TestDashboardKPI(t *testing.T) {
	svc, _ := newDashboardFixture()
	ctx, wc := NewWarningContext(context.Background())

	resp, err := svc.KPI(ctx, models.DashboardQuery{}, "")
	require.NoError(t, err)

	assert.Equal(t, "Silver", resp.Metal)
	require.Len(t, resp.KPIs, 2)
	assert.Equal(t, "Spot", resp.KPIs[0].Market)
	assert.Equal(t, 110.0, resp.KPIs[0].Price)
	assert.InDelta(t, 10.0, resp.KPIs[0].DailyChange, 1e-9)
	assert.Equal(t, "MCX", resp.KPIs[1].Market)
	require.NotNil(t, resp.Premium)
	assert.InDelta(t, 5.0, *resp.Premium, 1e-9)
	assert.Empty(t, wc.GetWarnings())
}

func TestDashboardKPIWarnsOnShortHistory(t *testing.T) {
	svc, _ := newDashboardFixture()
	ctx, wc := NewWarningContext(context.Background())

	resp, err := svc.KPI(ctx, models.DashboardQuery{EndDate: models.FlexibleDate{Time: day(1, 0)}}, "Gold")
	require.NoError(t, err)

	require.Len(t, resp.KPIs, 1)
	assert.Equal(t, 0.0, resp.KPIs[0].DailyChange)
	assert.Nil(t, resp.Premium)

	codes := map[models.WarningCode]bool{}
	for _, w := range wc.GetWarnings() {
		codes[w.Code] = true
	}
	assert.True(t, codes[models.WarnInsufficientHistory])
	assert.True(t, codes[models.WarnPremiumUnavailable])
}

func TestDashboardNoDataWarning(t *testing.T) {
	svc, _ := newDashboardFixture()
	ctx, wc := NewWarningContext(context.Background())

	resp, err := svc.Prices(ctx, models.DashboardQuery{Metal: []string{"Rhodium"}})
	require.NoError(t, err)
	assert.Equal(t, 0, resp.Count)
	require.NotEmpty(t, wc.GetWarnings())
	assert.Equal(t, models.WarnNoData, wc.GetWarnings()[0].Code)
}

func TestDashboardMovingAverages(t *testing.T) {
	svc, _ := newDashboardFixture()
	ctx, wc := NewWarningContext(context.Background())

	resp, err := svc.MovingAverages(ctx, models.DashboardQuery{}, "", "", []int{2, 30})
	require.NoError(t, err)

	require.Len(t, resp.Daily, 2)
	sma2 := resp.Averages["SMA_2"]
	require.Len(t, sma2, 2)
	assert.True(t, math.IsNaN(sma2[0].Value))
	assert.InDelta(t, 105.0, sma2[1].Value, 1e-9)
	require.Len(t, wc.GetWarnings(), 1)
	assert.Contains(t, wc.GetWarnings()[0].Message, "SMA_30")
}

func TestDashboardCorrelation(t *testing.T) {
	svc, _ := newDashboardFixture()

	resp, err := svc.Correlation(context.Background(), models.DashboardQuery{}, "")
	require.NoError(t, err)
	assert.Equal(t, "Spot", resp.Market)
	assert.Equal(t, []string{"Gold", "Silver"}, resp.Matrix.Labels)
	assert.InDelta(t, 1.0, resp.Matrix.At("Gold", "Silver"), 1e-9)
}

func TestDashboardVolatilityDefaultThreshold(t *testing.T) {
	svc, _ := newDashboardFixture()

	resp, err := svc.Volatility(context.Background(), models.DashboardQuery{}, 0)
	require.NoError(t, err)
	assert.Equal(t, analytics.DefaultSpikeThreshold, resp.Threshold)

	markets := map[string]bool{}
	for _, a := range resp.Alerts {
		assert.Equal(t, "Silver", a.Metal)
		markets[a.Market] = true
	}
	assert.True(t, markets["Spot"])
	assert.True(t, markets["MCX"])
}

func TestDashboardMostVolatileNeedsHistory(t *testing.T) {
	svc, _ := newDashboardFixture()
	ctx, wc := NewWarningContext(context.Background())

	resp, err := svc.MostVolatile(ctx, models.DashboardQuery{})
	require.NoError(t, err)
	assert.Nil(t, resp.Metal)
	assert.NotEmpty(t, wc.GetWarnings())
}

func TestDashboardPremium(t *testing.T) {
	svc, _ := newDashboardFixture()

	resp, err := svc.Premium(context.Background(), models.DashboardQuery{}, "", "", "")
	require.NoError(t, err)
	assert.Equal(t, "MCX", resp.Futures)
	assert.Equal(t, "Spot", resp.Reference)
	require.Len(t, resp.Series, 2)
	assert.InDelta(t, 3.0, resp.Series[0].Value, 1e-9)
	assert.InDelta(t, 5.0, resp.Series[1].Value, 1e-9)
}

func TestDashboardOverview(t *testing.T) {
	svc, tables := newDashboardFixture()
	ctx, _ := NewWarningContext(context.Background())

	resp, err := svc.Overview(ctx, OverviewRequest{Threshold: 5})
	require.NoError(t, err)

	require.NotNil(t, resp.KPI)
	require.NotNil(t, resp.MovingAverages)
	require.NotNil(t, resp.Correlation)
	require.NotNil(t, resp.Volatility)
	require.NotNil(t, resp.MostVolatile)
	require.NotNil(t, resp.Premium)
	assert.Equal(t, 5.0, resp.Volatility.Threshold)
	assert.Len(t, tables.gets, 1, "overview loads the table once")
}

func TestDashboardRefresh(t *testing.T) {
	svc, tables := newDashboardFixture()
	fixed := time.Date(2025, 5, 1, 8, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return fixed }

	resp := svc.Refresh("inr")
	assert.Equal(t, "INR", resp.Currency)
	assert.Equal(t, fixed, resp.RefreshedAt)
	assert.Equal(t, []string{"INR"}, tables.invalidated)

	svc.Refresh("")
	assert.Equal(t, 1, tables.cleared)
}
