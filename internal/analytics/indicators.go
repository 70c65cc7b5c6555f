package analytics

import (
	"fmt"
	"math"
	"time"
)

// Defaults used by the dashboard
const (
	DefaultSpikeThreshold   = 3.0
	DefaultPremiumTolerance = time.Hour
)

// DefaultWindows are the weekly and monthly moving-average windows
var DefaultWindows = []int{7, 30}

// DailyChange is the percentage change between the last two days with data
// for metal on market, using each day's last observation.
func DailyChange(t Table, metal, market string) (float64, error) {
	s := t.Series(metal, market)
	if len(s) == 0 {
		return 0, ErrNoData
	}
	daily := s.DailyLast()
	if len(daily) < 2 {
		return 0, ErrInsufficientData
	}
	n := len(daily)
	return (daily[n-1].Value/daily[n-2].Value - 1) * 100, nil
}

// MovingAverage is the trailing simple mean over window points. The first
// window-1 results are NaN.
func MovingAverage(values []float64, window int) []float64 {
	out := make([]float64, len(values))
	if window <= 0 {
		for i := range out {
			out[i] = math.NaN()
		}
		return out
	}

	var sum float64
	for i, v := range values {
		sum += v
		if i >= window {
			sum -= values[i-window]
		}
		if i < window-1 {
			out[i] = math.NaN()
			continue
		}
		out[i] = sum / float64(window)
	}
	return out
}

// MovingAverages applies MovingAverage for every window, keyed "SMA_<window>"
func MovingAverages(s Series, windows []int) map[string]Series {
	values := s.Values()
	out := make(map[string]Series, len(windows))
	for _, w := range windows {
		ma := MovingAverage(values, w)
		points := make(Series, len(s))
		for i, p := range s {
			points[i] = Point{Time: p.Time, Value: ma[i]}
		}
		out[fmt.Sprintf("SMA_%d", w)] = points
	}
	return out
}

// Alert flags an instrument whose latest move exceeded the spike threshold
type Alert struct {
	Metal  string    `json:"metal"`
	Market string    `json:"market"`
	Change float64   `json:"change"`
	Date   time.Time `json:"date"`
}

// DetectVolatility reports every metal/market pair with at least two
// observations whose most recent point-to-point change exceeds thresholdPct
// in magnitude.
func DetectVolatility(t Table, thresholdPct float64) []Alert {
	alerts := []Alert{}
	for _, metal := range t.Metals() {
		for _, market := range t.Markets() {
			s := t.Series(metal, market)
			if len(s) < 2 {
				continue
			}
			n := len(s)
			change := (s[n-1].Value/s[n-2].Value - 1) * 100
			if math.Abs(change) > thresholdPct {
				alerts = append(alerts, Alert{
					Metal:  metal,
					Market: market,
					Change: change,
					Date:   s[n-1].Time,
				})
			}
		}
	}
	return alerts
}

// MostVolatile returns the Spot metal with the highest sample standard
// deviation of daily returns. Metals with fewer than three daily points are
// excluded; ties go to the metal seen first.
func MostVolatile(t Table, market string) (string, bool) {
	best, bestStd := "", math.Inf(-1)
	for _, metal := range t.Metals() {
		daily := t.Series(metal, market).DailyLast()
		if len(daily) < 3 {
			continue
		}
		sd := stdDev(daily.PctChange().Values())
		if math.IsNaN(sd) {
			continue
		}
		if sd > bestStd {
			best, bestStd = metal, sd
		}
	}
	return best, best != ""
}

// stdDev is the sample (n-1) standard deviation
func stdDev(values []float64) float64 {
	if len(values) < 2 {
		return math.NaN()
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	mean := sum / float64(len(values))

	var sumSquaredDiff float64
	for _, v := range values {
		diff := v - mean
		sumSquaredDiff += diff * diff
	}
	return math.Sqrt(sumSquaredDiff / float64(len(values)-1))
}

// PremiumSeries aligns every futures point with the nearest reference point
// within tolerance and returns (futures - reference) / reference * 100 at the
// futures timestamps. Futures points without a match are dropped. Equidistant
// matches resolve to the earlier reference point.
func PremiumSeries(futures, reference Series, tolerance time.Duration) Series {
	out := Series{}
	if len(reference) == 0 {
		return out
	}

	j := 0
	for _, f := range futures {
		// advance j to the last reference point at or before f
		for j+1 < len(reference) && !reference[j+1].Time.After(f.Time) {
			j++
		}

		match, best := -1, time.Duration(math.MaxInt64)
		for _, k := range []int{j, j + 1} {
			if k >= len(reference) {
				continue
			}
			d := absDuration(f.Time.Sub(reference[k].Time))
			if d <= tolerance && d < best {
				match, best = k, d
			}
		}
		if match < 0 {
			continue
		}

		ref := reference[match].Value
		out = append(out, Point{Time: f.Time, Value: (f.Value - ref) / ref * 100})
	}
	return out
}

// SpreadPct is the premium of a over b in percent
func SpreadPct(a, b float64) float64 {
	return (a - b) / b * 100
}

func absDuration(d time.Duration) time.Duration {
	if d < 0 {
		return -d
	}
	return d
}
