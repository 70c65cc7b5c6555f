// Package analytics computes dashboard statistics over an in-memory table of
// joined price rows. Every function is pure: the same table always yields the
// same result and nothing is retained between calls.
package analytics

import (
	"errors"
	"slices"
	"sort"
	"time"

	"github.com/epeers/metalprices/internal/models"
	"github.com/epeers/metalprices/internal/util"
)

var (
	ErrNoData           = errors.New("no data for the requested slice")
	ErrInsufficientData = errors.New("not enough points for this analytic")
)

// TroyOuncesPerKilogram converts a per-troy-ounce price to a per-kilogram price
const TroyOuncesPerKilogram = 32.1507466

// Table is an immutable, timestamp-ordered set of price rows
type Table struct {
	rows []models.PriceRow
}

// NewTable copies rows into a table ordered by timestamp. Rows sharing a
// timestamp keep their input order.
func NewTable(rows []models.PriceRow) Table {
	cp := slices.Clone(rows)
	sort.SliceStable(cp, func(i, j int) bool {
		return cp[i].Timestamp.Before(cp[j].Timestamp)
	})
	return Table{rows: cp}
}

// Rows returns a copy of the table's rows
func (t Table) Rows() []models.PriceRow {
	return slices.Clone(t.rows)
}

// Len returns the number of rows
func (t Table) Len() int {
	return len(t.rows)
}

// Filter selects rows for the dashboard. Zero values select everything.
// Start and End compare calendar dates, both inclusive.
type Filter struct {
	Start    time.Time
	End      time.Time
	Metals   []string
	Markets  []string
	Currency string
}

// Filter returns the rows matching f
func (t Table) Filter(f Filter) Table {
	var startDay, endDay time.Time
	if !f.Start.IsZero() {
		startDay = util.StartOfDay(f.Start)
	}
	if !f.End.IsZero() {
		endDay = util.StartOfDay(f.End)
	}

	out := make([]models.PriceRow, 0, len(t.rows))
	for _, r := range t.rows {
		day := util.StartOfDay(r.Timestamp)
		if !startDay.IsZero() && day.Before(startDay) {
			continue
		}
		if !endDay.IsZero() && day.After(endDay) {
			continue
		}
		if len(f.Metals) > 0 && !slices.Contains(f.Metals, r.Metal) {
			continue
		}
		if len(f.Markets) > 0 && !slices.Contains(f.Markets, r.Market) {
			continue
		}
		if f.Currency != "" && r.Currency != f.Currency {
			continue
		}
		out = append(out, r)
	}
	return Table{rows: out}
}

// ConvertToKilogram returns a copy of the table with prices expressed per kilogram
func (t Table) ConvertToKilogram() Table {
	out := slices.Clone(t.rows)
	for i := range out {
		out[i].Price *= TroyOuncesPerKilogram
	}
	return Table{rows: out}
}

// Metals lists distinct metal names in order of first appearance
func (t Table) Metals() []string {
	return t.distinct(func(r models.PriceRow) string { return r.Metal })
}

// Markets lists distinct market names in order of first appearance
func (t Table) Markets() []string {
	return t.distinct(func(r models.PriceRow) string { return r.Market })
}

func (t Table) distinct(field func(models.PriceRow) string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, r := range t.rows {
		v := field(r)
		if !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	}
	return out
}

// Series returns the chronological price series for one metal on one market
func (t Table) Series(metal, market string) Series {
	var s Series
	for _, r := range t.rows {
		if r.Metal == metal && r.Market == market {
			s = append(s, Point{Time: r.Timestamp, Value: r.Price})
		}
	}
	return s
}

// Latest returns the most recent price for metal on market
func (t Table) Latest(metal, market string) (float64, bool) {
	for i := len(t.rows) - 1; i >= 0; i-- {
		r := t.rows[i]
		if r.Metal == metal && r.Market == market {
			return r.Price, true
		}
	}
	return 0, false
}
