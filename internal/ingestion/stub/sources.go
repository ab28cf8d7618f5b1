package stub

import (
	"context"
	"sync"
	"time"

	"credit-signal-lab/internal/domain"
)

// StubObservationSource returns fixed in-memory observations for testing.
// Observations can be intentionally unordered to test sorting.
// Implements ingestion.ObservationSource interface.
type StubObservationSource struct {
	series string
	obs    []*domain.Observation
	err    error

	mu    sync.Mutex
	calls []time.Time // start of each Fetch
}

// NewStubObservationSource creates a new stub source with the given observations.
func NewStubObservationSource(series string, obs []*domain.Observation) *StubObservationSource {
	return &StubObservationSource{series: series, obs: obs}
}

// WithError makes every Fetch fail with err.
func (s *StubObservationSource) WithError(err error) *StubObservationSource {
	s.err = err
	return s
}

func (s *StubObservationSource) Series() string {
	return s.series
}

// Fetch returns observations within [start, end].
// Returns copies to prevent mutation.
func (s *StubObservationSource) Fetch(_ context.Context, start, end time.Time) ([]*domain.Observation, error) {
	s.mu.Lock()
	s.calls = append(s.calls, start)
	s.mu.Unlock()

	if s.err != nil {
		return nil, s.err
	}
	var result []*domain.Observation
	for _, o := range s.obs {
		if !o.Date.Before(start) && !o.Date.After(end) {
			c := *o
			result = append(result, &c)
		}
	}
	return result, nil
}

// Starts returns the start date of every Fetch call.
func (s *StubObservationSource) Starts() []time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]time.Time(nil), s.calls...)
}
