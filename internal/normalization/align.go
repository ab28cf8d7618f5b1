// Package normalization aligns raw sourced observations onto the
// business-day panel calendar.
package normalization

import (
	"time"

	"credit-signal-lab/internal/domain"
	"credit-signal-lab/internal/lookup"
	"credit-signal-lab/internal/series"
)

// DefaultFFillLimit is the longest run of business days a daily series is carried forward.
const DefaultFFillLimit = 5

// DefaultWeeklyColumns are published weekly, often on a weekend date.
func DefaultWeeklyColumns() []string {
	return []string{"nfci", "fsi", "initial_claims"}
}

// AlignDaily places obs on dates and forward-fills gaps of at most limit
// business days. Observations dated off the calendar are dropped.
// obs must be sorted by date ASC.
func AlignDaily(dates []time.Time, obs []*domain.Observation, limit int) ([]float64, error) {
	exact, err := lookup.AlignExact(dates, obs)
	if err != nil {
		return nil, err
	}
	return series.ForwardFill(exact, limit), nil
}

// AlignWeekly assigns each date the last defined observation on or before it,
// counting calendar days, so weekend releases reach the following Monday.
// obs must be sorted by date ASC.
func AlignWeekly(dates []time.Time, obs []*domain.Observation) ([]float64, error) {
	return lookup.AlignAsOf(dates, obs)
}
