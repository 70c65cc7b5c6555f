package analytics

import (
	"encoding/json"
	"math"
	"testing"
	"time"

	"github.com/epeers/metalprices/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var day0 = time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

func row(metal, market string, ts time.Time, price float64) models.PriceRow {
	return models.PriceRow{
		Price:     price,
		Metal:     metal,
		Market:    market,
		Currency:  "USD",
		Timestamp: ts,
		Date:      time.Date(ts.Year(), ts.Month(), ts.Day(), 0, 0, 0, 0, time.UTC),
	}
}

// hourly builds one row per hour starting at day0
func hourly(metal, market string, prices ...float64) []models.PriceRow {
	rows := make([]models.PriceRow, len(prices))
	for i, p := range prices {
		rows[i] = row(metal, market, day0.Add(time.Duration(i)*time.Hour), p)
	}
	return rows
}

// daily builds one row per day at noon starting at day0
func daily(metal, market string, prices ...float64) []models.PriceRow {
	rows := make([]models.PriceRow, len(prices))
	for i, p := range prices {
		rows[i] = row(metal, market, day0.AddDate(0, 0, i).Add(12*time.Hour), p)
	}
	return rows
}

func TestNewTable_SortsByTimestamp(t *testing.T) {
	rows := []models.PriceRow{
		row("Gold", "Spot", day0.Add(2*time.Hour), 3),
		row("Gold", "Spot", day0, 1),
		row("Gold", "Spot", day0.Add(time.Hour), 2),
	}
	tbl := NewTable(rows)
	assert.Equal(t, []float64{1, 2, 3}, tbl.Series("Gold", "Spot").Values())
	// input untouched
	assert.Equal(t, 3.0, rows[0].Price)
}

func TestFilter(t *testing.T) {
	rows := append(daily("Gold", "Spot", 1, 2, 3, 4), daily("Silver", "MCX", 5, 6, 7, 8)...)
	tbl := NewTable(rows)

	got := tbl.Filter(Filter{Start: day0.AddDate(0, 0, 1), End: day0.AddDate(0, 0, 2)})
	assert.Equal(t, 4, got.Len())

	got = tbl.Filter(Filter{Metals: []string{"Silver"}})
	assert.Equal(t, []string{"Silver"}, got.Metals())
	assert.Equal(t, []string{"MCX"}, got.Markets())

	got = tbl.Filter(Filter{Markets: []string{"Spot"}, End: day0})
	assert.Equal(t, []float64{1}, got.Series("Gold", "Spot").Values())

	assert.Equal(t, 0, tbl.Filter(Filter{Currency: "INR"}).Len())
}

func TestConvertToKilogram(t *testing.T) {
	tbl := NewTable(daily("Silver", "Spot", 10))
	kg := tbl.ConvertToKilogram()

	assert.InDelta(t, 321.507466, kg.Rows()[0].Price, 1e-9)
	assert.Equal(t, 10.0, tbl.Rows()[0].Price)
}

func TestDailyLast(t *testing.T) {
	s := Series{
		{Time: day0.Add(1 * time.Hour), Value: 1},
		{Time: day0.Add(20 * time.Hour), Value: 2},
		{Time: day0.AddDate(0, 0, 2).Add(time.Hour), Value: 3},
	}
	d := s.DailyLast()
	require.Len(t, d, 2)
	assert.Equal(t, day0, d[0].Time)
	assert.Equal(t, 2.0, d[0].Value)
	assert.Equal(t, day0.AddDate(0, 0, 2), d[1].Time)
}

func TestDailyChange(t *testing.T) {
	rows := []models.PriceRow{
		row("Gold", "Spot", day0.Add(9*time.Hour), 100),
		row("Gold", "Spot", day0.Add(15*time.Hour), 100),
		row("Gold", "Spot", day0.AddDate(0, 0, 1).Add(9*time.Hour), 110),
	}
	change, err := DailyChange(NewTable(rows), "Gold", "Spot")
	require.NoError(t, err)
	assert.InDelta(t, 10.0, change, 1e-9)
}

func TestDailyChange_UsesLastOfDay(t *testing.T) {
	rows := []models.PriceRow{
		row("Gold", "Spot", day0.Add(9*time.Hour), 50),
		row("Gold", "Spot", day0.Add(15*time.Hour), 100),
		row("Gold", "Spot", day0.AddDate(0, 0, 1).Add(9*time.Hour), 200),
		row("Gold", "Spot", day0.AddDate(0, 0, 1).Add(15*time.Hour), 90),
	}
	change, err := DailyChange(NewTable(rows), "Gold", "Spot")
	require.NoError(t, err)
	assert.InDelta(t, -10.0, change, 1e-9)
}

func TestDailyChange_NotEnoughData(t *testing.T) {
	tbl := NewTable(hourly("Gold", "Spot", 100, 120))

	change, err := DailyChange(tbl, "Gold", "Spot")
	assert.ErrorIs(t, err, ErrInsufficientData)
	assert.Equal(t, 0.0, change)

	_, err = DailyChange(tbl, "Silver", "Spot")
	assert.ErrorIs(t, err, ErrNoData)
}

func TestMovingAverage(t *testing.T) {
	got := MovingAverage([]float64{1, 2, 3, 4, 5}, 3)
	require.Len(t, got, 5)
	assert.True(t, math.IsNaN(got[0]))
	assert.True(t, math.IsNaN(got[1]))
	assert.Equal(t, []float64{2, 3, 4}, got[2:])
}

func TestMovingAverage_WindowLongerThanSeries(t *testing.T) {
	got := MovingAverage([]float64{1, 2}, 7)
	for _, v := range got {
		assert.True(t, math.IsNaN(v))
	}
}

func TestMovingAverages_Keys(t *testing.T) {
	s := NewTable(daily("Gold", "Spot", 1, 2, 3, 4, 5, 6, 7, 8)).Series("Gold", "Spot")
	mas := MovingAverages(s, DefaultWindows)

	require.Contains(t, mas, "SMA_7")
	require.Contains(t, mas, "SMA_30")
	assert.Equal(t, 4.0, mas["SMA_7"][6].Value)
	assert.Equal(t, 5.0, mas["SMA_7"][7].Value)
	assert.Equal(t, s[7].Time, mas["SMA_7"][7].Time)
	assert.True(t, math.IsNaN(mas["SMA_30"][7].Value))
}

func TestCorrelationMatrix(t *testing.T) {
	rows := hourly("Gold", "Spot", 100, 101, 103, 102, 105)
	rows = append(rows, hourly("Silver", "Spot", 20, 20.2, 20.6, 20.4, 21)...)
	rows = append(rows, hourly("Platinum", "Spot", 900, 900, 900, 900, 900)...)
	rows = append(rows, hourly("Gold", "MCX", 1, 5, 2, 8, 3)...)

	m := CorrelationMatrix(NewTable(rows), "Spot")

	assert.Equal(t, []string{"Gold", "Platinum", "Silver"}, m.Labels)
	assert.InDelta(t, 1.0, m.At("Gold", "Silver"), 1e-9)
	assert.InDelta(t, 1.0, m.At("Silver", "Gold"), 1e-9)
	assert.InDelta(t, 1.0, m.At("Gold", "Gold"), 1e-9)
	assert.True(t, math.IsNaN(m.At("Gold", "Platinum")))
	assert.True(t, math.IsNaN(m.At("Platinum", "Platinum")))
	assert.True(t, math.IsNaN(m.At("Gold", "Copper")))
}

func TestCorrelationMatrix_OnlySharedTimestamps(t *testing.T) {
	rows := hourly("Gold", "Spot", 1, 2, 3, 4)
	// Silver only overlaps on the first two hours and is perfectly anti-correlated there
	rows = append(rows, hourly("Silver", "Spot", 10, 5)...)

	m := CorrelationMatrix(NewTable(rows), "Spot")
	assert.InDelta(t, -1.0, m.At("Gold", "Silver"), 1e-9)
}

func TestCorrelationMatrix_LastPriceWinsPerTimestamp(t *testing.T) {
	rows := hourly("Gold", "Spot", 1, 2, 3)
	rows = append(rows, hourly("Silver", "Spot", 1, 2, 3)...)
	rows = append(rows, row("Silver", "Spot", day0.Add(2*time.Hour), -3))

	m := CorrelationMatrix(NewTable(rows), "Spot")
	assert.Less(t, m.At("Gold", "Silver"), 0.5)
}

func TestCorrelationMatrix_BitIdenticalAcrossCalls(t *testing.T) {
	gold := make([]float64, 200)
	silver := make([]float64, 200)
	for i := range gold {
		gold[i] = 2300 + 17.3*math.Sin(float64(i)/7) + 0.01*float64(i*i%13)
		silver[i] = 28 + 0.41*math.Cos(float64(i)/5) + 0.003*float64(i*i%11)
	}
	tbl := NewTable(append(hourly("Gold", "Spot", gold...), hourly("Silver", "Spot", silver...)...))

	want := math.Float64bits(CorrelationMatrix(tbl, "Spot").At("Gold", "Silver"))
	for i := 0; i < 200; i++ {
		got := math.Float64bits(CorrelationMatrix(tbl, "Spot").At("Gold", "Silver"))
		require.Equal(t, want, got, "call %d", i)
	}
}

func TestMatrix_MarshalJSONUsesNull(t *testing.T) {
	m := Matrix{Labels: []string{"Gold", "Silver"}, Values: [][]float64{{1, math.NaN()}, {math.NaN(), 1}}}
	b, err := json.Marshal(m)
	require.NoError(t, err)
	assert.JSONEq(t, `{"labels":["Gold","Silver"],"values":[[1,null],[null,1]]}`, string(b))
}

func TestDetectVolatility(t *testing.T) {
	rows := hourly("Gold", "Spot", 100, 104)
	rows = append(rows, hourly("Silver", "Spot", 100, 101)...)
	rows = append(rows, hourly("Platinum", "Spot", 100)...)

	alerts := DetectVolatility(NewTable(rows), DefaultSpikeThreshold)
	require.Len(t, alerts, 1)
	assert.Equal(t, "Gold", alerts[0].Metal)
	assert.Equal(t, "Spot", alerts[0].Market)
	assert.InDelta(t, 4.0, alerts[0].Change, 1e-9)
	assert.Equal(t, day0.Add(time.Hour), alerts[0].Date)
}

func TestDetectVolatility_NegativeMoveAndOnlyLatestChange(t *testing.T) {
	// big earlier move, small latest move
	rows := hourly("Gold", "MCX", 100, 150, 151)
	rows = append(rows, hourly("Silver", "MCX", 100, 95)...)

	alerts := DetectVolatility(NewTable(rows), 3.0)
	require.Len(t, alerts, 1)
	assert.Equal(t, "Silver", alerts[0].Metal)
	assert.InDelta(t, -5.0, alerts[0].Change, 1e-9)
}

func TestDetectVolatility_EmptyTable(t *testing.T) {
	alerts := DetectVolatility(NewTable(nil), 3.0)
	assert.NotNil(t, alerts)
	assert.Empty(t, alerts)
}

func TestMostVolatile(t *testing.T) {
	rows := daily("Gold", "Spot", 100, 101, 100, 101)
	rows = append(rows, daily("Silver", "Spot", 100, 110, 95, 105)...)
	// too few days
	rows = append(rows, daily("Copper", "Spot", 100, 200)...)
	// wrong market
	rows = append(rows, daily("Palladium", "MCX", 1, 100, 1, 100)...)

	metal, ok := MostVolatile(NewTable(rows), models.MarketSpot)
	require.True(t, ok)
	assert.Equal(t, "Silver", metal)
}

func TestMostVolatile_TieGoesToFirstSeen(t *testing.T) {
	rows := append(daily("Gold", "Spot", 100, 110, 100), daily("Silver", "Spot", 100, 110, 100)...)

	metal, ok := MostVolatile(NewTable(rows), models.MarketSpot)
	require.True(t, ok)
	assert.Equal(t, "Gold", metal)
}

func TestMostVolatile_NoCandidates(t *testing.T) {
	_, ok := MostVolatile(NewTable(hourly("Gold", "Spot", 1, 2, 3, 4)), models.MarketSpot) // one day only
	assert.False(t, ok)
}

func TestPremiumSeries(t *testing.T) {
	ref := Series{{Time: day0, Value: 100}}
	fut := Series{
		{Time: day0.Add(30 * time.Minute), Value: 105},
		{Time: day0.Add(3 * time.Hour), Value: 120},
	}

	p := PremiumSeries(fut, ref, DefaultPremiumTolerance)
	require.Len(t, p, 1)
	assert.Equal(t, day0.Add(30*time.Minute), p[0].Time)
	assert.InDelta(t, 5.0, p[0].Value, 1e-9)
}

func TestPremiumSeries_NearestMatch(t *testing.T) {
	ref := Series{
		{Time: day0, Value: 100},
		{Time: day0.Add(time.Hour), Value: 200},
	}
	fut := Series{
		{Time: day0.Add(-20 * time.Minute), Value: 110}, // forward match to 100
		{Time: day0.Add(30 * time.Minute), Value: 105},  // tie, earlier wins
		{Time: day0.Add(40 * time.Minute), Value: 210},  // nearer the 200 point
		{Time: day0.Add(2 * time.Hour), Value: 220},     // exactly at tolerance
	}

	p := PremiumSeries(fut, ref, time.Hour)
	require.Len(t, p, 4)
	assert.InDelta(t, 10.0, p[0].Value, 1e-9)
	assert.InDelta(t, 5.0, p[1].Value, 1e-9)
	assert.InDelta(t, 5.0, p[2].Value, 1e-9)
	assert.InDelta(t, 10.0, p[3].Value, 1e-9)
}

func TestPremiumSeries_NoReference(t *testing.T) {
	p := PremiumSeries(Series{{Time: day0, Value: 1}}, nil, time.Hour)
	assert.Empty(t, p)
}

func TestPoint_MarshalJSONUsesNull(t *testing.T) {
	b, err := json.Marshal(Point{Time: day0, Value: math.NaN()})
	require.NoError(t, err)
	assert.JSONEq(t, `{"time":"2024-03-01T00:00:00Z","value":null}`, string(b))
}

func TestPure_RepeatedCallsAgree(t *testing.T) {
	rows := append(daily("Gold", "Spot", 100, 104, 99, 103), daily("Silver", "Spot", 20, 21, 19, 22)...)
	tbl := NewTable(rows)

	a1 := DetectVolatility(tbl, 3)
	a2 := DetectVolatility(tbl, 3)
	assert.Equal(t, a1, a2)

	m1, _ := MostVolatile(tbl, models.MarketSpot)
	m2, _ := MostVolatile(tbl, models.MarketSpot)
	assert.Equal(t, m1, m2)
	assert.Equal(t, rows[0].Price, tbl.Rows()[0].Price)
}
