package lookup

import (
	"errors"
	"math"
	"sort"
	"time"

	"credit-signal-lab/internal/domain"
)

// Errors returned by lookup functions.
var (
	ErrNoData        = errors.New("no observations available")
	ErrNoPriorValue  = errors.New("no observation at or before target")
	ErrUnsortedInput = errors.New("observations must be sorted by date ascending")
)

// ValueAt returns the last defined value dated at or before target.
// Observations must be sorted by Date ASC.
// Returns ErrNoData if the slice is empty and ErrNoPriorValue if every
// observation is after target or undefined.
func ValueAt(target time.Time, obs []*domain.Observation) (float64, error) {
	if len(obs) == 0 {
		return 0, ErrNoData
	}

	// First index strictly after target
	idx := sort.Search(len(obs), func(i int) bool { return obs[i].Date.After(target) })
	for i := idx - 1; i >= 0; i-- {
		if !math.IsNaN(obs[i].Value) {
			return obs[i].Value, nil
		}
	}
	return 0, ErrNoPriorValue
}

// ValueOn returns the value dated exactly on target.
func ValueOn(target time.Time, obs []*domain.Observation) (float64, bool) {
	idx := sort.Search(len(obs), func(i int) bool { return !obs[i].Date.Before(target) })
	if idx < len(obs) && obs[idx].Date.Equal(target) {
		return obs[idx].Value, true
	}
	return math.NaN(), false
}

// AlignExact places each observation on the matching date; dates without an
// observation are NaN. Observations off the index are dropped.
func AlignExact(dates []time.Time, obs []*domain.Observation) ([]float64, error) {
	if err := checkSorted(obs); err != nil {
		return nil, err
	}
	out := make([]float64, len(dates))
	for i, d := range dates {
		v, _ := ValueOn(d, obs)
		out[i] = v
	}
	return out, nil
}

// AlignAsOf assigns to each date the last defined value at or before it,
// counting every calendar day, with no staleness limit.
func AlignAsOf(dates []time.Time, obs []*domain.Observation) ([]float64, error) {
	if err := checkSorted(obs); err != nil {
		return nil, err
	}
	out := make([]float64, len(dates))
	for i, d := range dates {
		v, err := ValueAt(d, obs)
		if err != nil {
			out[i] = math.NaN()
			continue
		}
		out[i] = v
	}
	return out, nil
}

// SortObservations orders observations by date ASC in place.
func SortObservations(obs []*domain.Observation) {
	sort.SliceStable(obs, func(i, j int) bool { return obs[i].Date.Before(obs[j].Date) })
}

func checkSorted(obs []*domain.Observation) error {
	for i := 1; i < len(obs); i++ {
		if obs[i].Date.Before(obs[i-1].Date) {
			return ErrUnsortedInput
		}
	}
	return nil
}
