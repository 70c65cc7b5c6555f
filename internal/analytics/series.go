package analytics

import (
	"encoding/json"
	"math"
	"time"

	"github.com/epeers/metalprices/internal/util"
)

// Point is one observation. Value is NaN where undefined.
type Point struct {
	Time  time.Time
	Value float64
}

// MarshalJSON writes undefined values as null
func (p Point) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Time  time.Time `json:"time"`
		Value *float64  `json:"value"`
	}{Time: p.Time, Value: nullable(p.Value)})
}

// Series is a chronologically ordered list of points
type Series []Point

// Values returns the bare values
func (s Series) Values() []float64 {
	out := make([]float64, len(s))
	for i, p := range s {
		out[i] = p.Value
	}
	return out
}

// DailyLast resamples to one point per UTC calendar day holding that day's last
// observation. Days without observations are omitted.
func (s Series) DailyLast() Series {
	var out Series
	for _, p := range s {
		day := util.StartOfDay(p.Time)
		if n := len(out); n > 0 && out[n-1].Time.Equal(day) {
			out[n-1].Value = p.Value
			continue
		}
		out = append(out, Point{Time: day, Value: p.Value})
	}
	return out
}

// PctChange returns (v[i]/v[i-1] - 1) * 100 for each point after the first
func (s Series) PctChange() Series {
	if len(s) < 2 {
		return nil
	}
	out := make(Series, 0, len(s)-1)
	for i := 1; i < len(s); i++ {
		out = append(out, Point{Time: s[i].Time, Value: (s[i].Value/s[i-1].Value - 1) * 100})
	}
	return out
}

func nullable(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}
