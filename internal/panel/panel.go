// Package panel holds the date-indexed table every analysis reads from.
package panel

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"credit-signal-lab/internal/series"
)

// Panel errors
var (
	ErrEmpty          = errors.New("panel has no dates")
	ErrUnsortedDates  = errors.New("panel dates must be strictly increasing")
	ErrNonBusinessDay = errors.New("panel dates must be business days")
	ErrColumnLength   = errors.New("column length does not match date index")
	ErrDuplicateName  = errors.New("column already exists")
	ErrMissingColumn  = errors.New("column not found")
)

// Panel is a business-day date index plus named float64 columns of equal length.
// NaN marks a missing value. A Panel is read-only once handed to analysis code:
// Column returns copies.
type Panel struct {
	dates []time.Time
	cols  map[string][]float64
	names []string
}

// New creates an empty panel over dates. Dates are truncated to UTC midnight
// and must be strictly increasing weekdays.
func New(dates []time.Time) (*Panel, error) {
	if len(dates) == 0 {
		return nil, ErrEmpty
	}
	norm := make([]time.Time, len(dates))
	for i, d := range dates {
		norm[i] = Day(d)
		if wd := norm[i].Weekday(); wd == time.Saturday || wd == time.Sunday {
			return nil, fmt.Errorf("%w: %s", ErrNonBusinessDay, norm[i].Format(time.DateOnly))
		}
		if i > 0 && !norm[i].After(norm[i-1]) {
			return nil, fmt.Errorf("%w: %s after %s", ErrUnsortedDates,
				norm[i].Format(time.DateOnly), norm[i-1].Format(time.DateOnly))
		}
	}
	return &Panel{dates: norm, cols: make(map[string][]float64)}, nil
}

// AddColumn attaches a column. The slice is copied.
func (p *Panel) AddColumn(name string, values []float64) error {
	if len(values) != len(p.dates) {
		return fmt.Errorf("%w: %s has %d values, index has %d", ErrColumnLength, name, len(values), len(p.dates))
	}
	if _, exists := p.cols[name]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateName, name)
	}
	p.cols[name] = series.Clone(values)
	p.names = append(p.names, name)
	return nil
}

// SetColumn attaches or replaces a column.
func (p *Panel) SetColumn(name string, values []float64) error {
	if len(values) != len(p.dates) {
		return fmt.Errorf("%w: %s has %d values, index has %d", ErrColumnLength, name, len(values), len(p.dates))
	}
	if _, exists := p.cols[name]; !exists {
		p.names = append(p.names, name)
	}
	p.cols[name] = series.Clone(values)
	return nil
}

// Len returns the number of dates.
func (p *Panel) Len() int {
	return len(p.dates)
}

// Date returns the i-th date.
func (p *Panel) Date(i int) time.Time {
	return p.dates[i]
}

// Dates returns a copy of the date index.
func (p *Panel) Dates() []time.Time {
	out := make([]time.Time, len(p.dates))
	copy(out, p.dates)
	return out
}

// Start returns the first date.
func (p *Panel) Start() time.Time {
	return p.dates[0]
}

// End returns the last date.
func (p *Panel) End() time.Time {
	return p.dates[len(p.dates)-1]
}

// Has reports whether the panel carries a column with at least one defined value.
func (p *Panel) Has(name string) bool {
	col, ok := p.cols[name]
	return ok && !series.AllNaN(col)
}

// Column returns a copy of the named column.
func (p *Panel) Column(name string) ([]float64, bool) {
	col, ok := p.cols[name]
	if !ok {
		return nil, false
	}
	return series.Clone(col), true
}

// MustColumn returns a copy of the named column or ErrMissingColumn.
func (p *Panel) MustColumn(name string) ([]float64, error) {
	col, ok := p.Column(name)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrMissingColumn, name)
	}
	return col, nil
}

// Columns returns the column names in insertion order.
func (p *Panel) Columns() []string {
	out := make([]string, len(p.names))
	copy(out, p.names)
	return out
}

// IndexAfter returns the first index whose date is >= d, or Len() if none.
func (p *Panel) IndexAfter(d time.Time) int {
	d = Day(d)
	return sort.Search(len(p.dates), func(i int) bool { return !p.dates[i].Before(d) })
}

// IndexThrough returns one past the last index whose date is <= d.
func (p *Panel) IndexThrough(d time.Time) int {
	d = Day(d)
	return sort.Search(len(p.dates), func(i int) bool { return p.dates[i].After(d) })
}

// Range returns the half-open index range [lo, hi) of dates within [start, end].
func (p *Panel) Range(start, end time.Time) (int, int) {
	lo, hi := p.IndexAfter(start), p.IndexThrough(end)
	if hi < lo {
		hi = lo
	}
	return lo, hi
}

// Years returns the distinct calendar years covered, ascending.
func (p *Panel) Years() []int {
	var years []int
	for _, d := range p.dates {
		if y := d.Year(); len(years) == 0 || years[len(years)-1] != y {
			years = append(years, y)
		}
	}
	return years
}

// Returns computes the simple daily return of a price column.
func (p *Panel) Returns(column string) ([]float64, error) {
	prices, err := p.MustColumn(column)
	if err != nil {
		return nil, err
	}
	return series.PctChange(prices, 1), nil
}

// Day truncates t to midnight UTC of its calendar date.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// BusinessDays returns every Monday-Friday date in [start, end].
func BusinessDays(start, end time.Time) []time.Time {
	var out []time.Time
	for d := Day(start); !d.After(Day(end)); d = d.AddDate(0, 0, 1) {
		if wd := d.Weekday(); wd != time.Saturday && wd != time.Sunday {
			out = append(out, d)
		}
	}
	return out
}
