package ingestion

import (
	"errors"
	"fmt"
	"math"

	"credit-signal-lab/internal/domain"
	"credit-signal-lab/internal/lookup"
)

// ErrInvalidOrdering is returned when observations are not strictly date ordered.
var ErrInvalidOrdering = errors.New("observations are not in strict date order")

// ErrSeriesMismatch is returned when a batch mixes series.
var ErrSeriesMismatch = errors.New("observation batch mixes series")

// Prepare orders a fetched batch by date, drops missing values and rejects
// duplicate dates. Every observation is relabelled to series.
func Prepare(series string, obs []*domain.Observation) ([]*domain.Observation, error) {
	out := make([]*domain.Observation, 0, len(obs))
	for _, o := range obs {
		if o == nil || math.IsNaN(o.Value) {
			continue
		}
		if o.Series != "" && o.Series != series {
			return nil, fmt.Errorf("%w: %q in batch for %q", ErrSeriesMismatch, o.Series, series)
		}
		c := *o
		c.Series = series
		out = append(out, &c)
	}
	lookup.SortObservations(out)
	if err := ValidateOrdering(out); err != nil {
		return nil, err
	}
	return out, nil
}

// ValidateOrdering checks that dates strictly increase.
// Returns ErrInvalidOrdering if not.
func ValidateOrdering(obs []*domain.Observation) error {
	for i := 1; i < len(obs); i++ {
		if !obs[i-1].Date.Before(obs[i].Date) {
			return fmt.Errorf("%w: %s at index %d", ErrInvalidOrdering, obs[i].Date.Format("2006-01-02"), i)
		}
	}
	return nil
}
