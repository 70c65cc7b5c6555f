package analytics

import (
	"encoding/json"
	"math"
	"sort"
	"time"
)

// Matrix is a labelled square correlation matrix. Undefined cells are NaN.
type Matrix struct {
	Labels []string
	Values [][]float64
}

// At returns the correlation between labels a and b
func (m Matrix) At(a, b string) float64 {
	i, j := m.index(a), m.index(b)
	if i < 0 || j < 0 {
		return math.NaN()
	}
	return m.Values[i][j]
}

func (m Matrix) index(label string) int {
	for i, l := range m.Labels {
		if l == label {
			return i
		}
	}
	return -1
}

// MarshalJSON writes undefined cells as null
func (m Matrix) MarshalJSON() ([]byte, error) {
	values := make([][]*float64, len(m.Values))
	for i, row := range m.Values {
		values[i] = make([]*float64, len(row))
		for j, v := range row {
			values[i][j] = nullable(v)
		}
	}
	return json.Marshal(struct {
		Labels []string     `json:"labels"`
		Values [][]*float64 `json:"values"`
	}{Labels: m.Labels, Values: values})
}

// CorrelationMatrix pivots the rows of market into one column per metal indexed
// by timestamp (keeping the last price per timestamp) and computes pairwise
// Pearson correlation over the timestamps both metals share.
func CorrelationMatrix(t Table, market string) Matrix {
	columns := make(map[string]map[time.Time]float64)
	for _, r := range t.rows {
		if r.Market != market {
			continue
		}
		col, ok := columns[r.Metal]
		if !ok {
			col = make(map[time.Time]float64)
			columns[r.Metal] = col
		}
		col[r.Timestamp] = r.Price
	}

	labels := make([]string, 0, len(columns))
	for metal := range columns {
		labels = append(labels, metal)
	}
	sort.Strings(labels)

	values := make([][]float64, len(labels))
	for i := range labels {
		values[i] = make([]float64, len(labels))
	}
	for i, a := range labels {
		for j := i; j < len(labels); j++ {
			c := pairwisePearson(columns[a], columns[labels[j]])
			values[i][j], values[j][i] = c, c
		}
	}

	return Matrix{Labels: labels, Values: values}
}

// pairwisePearson walks the shared timestamps in order so repeated calls sum
// the same floats in the same sequence.
func pairwisePearson(a, b map[time.Time]float64) float64 {
	shared := make([]time.Time, 0, min(len(a), len(b)))
	for ts := range a {
		if _, ok := b[ts]; ok {
			shared = append(shared, ts)
		}
	}
	sort.Slice(shared, func(i, j int) bool { return shared[i].Before(shared[j]) })

	xs := make([]float64, len(shared))
	ys := make([]float64, len(shared))
	for i, ts := range shared {
		xs[i], ys[i] = a[ts], b[ts]
	}
	return Pearson(xs, ys)
}

// Pearson is the sample correlation of xs and ys. It is NaN for fewer than two
// pairs or when either side is constant.
func Pearson(xs, ys []float64) float64 {
	n := len(xs)
	if n != len(ys) || n < 2 {
		return math.NaN()
	}

	var sx, sy float64
	for i := range xs {
		sx += xs[i]
		sy += ys[i]
	}
	mx, my := sx/float64(n), sy/float64(n)

	var cov, vx, vy float64
	for i := range xs {
		dx, dy := xs[i]-mx, ys[i]-my
		cov += dx * dy
		vx += dx * dx
		vy += dy * dy
	}
	if vx == 0 || vy == 0 {
		return math.NaN()
	}

	r := cov / math.Sqrt(vx*vy)
	return math.Max(-1, math.Min(1, r))
}
