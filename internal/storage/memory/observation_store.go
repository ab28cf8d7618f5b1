package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"credit-signal-lab/internal/domain"
	"credit-signal-lab/internal/storage"
)

// ObservationStore is an in-memory implementation of storage.ObservationStore.
type ObservationStore struct {
	mu   sync.RWMutex
	data map[string]*domain.Observation // keyed by (series, date)
}

// NewObservationStore creates a new in-memory observation store.
func NewObservationStore() *ObservationStore {
	return &ObservationStore{
		data: make(map[string]*domain.Observation),
	}
}

func observationKey(series string, date time.Time) string {
	return fmt.Sprintf("%s|%s", series, date.UTC().Format(time.DateOnly))
}

// InsertBulk adds multiple observations. Fails entire batch on duplicate.
func (s *ObservationStore) InsertBulk(_ context.Context, obs []*domain.Observation) error {
	if len(obs) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	batchKeys := make(map[string]struct{}, len(obs))

	// First pass: check for duplicates (existing + intra-batch)
	for _, o := range obs {
		if o == nil || o.Series == "" || o.Date.IsZero() {
			return storage.ErrInvalidInput
		}
		key := observationKey(o.Series, o.Date)
		if _, exists := s.data[key]; exists {
			return storage.ErrDuplicateKey
		}
		if _, exists := batchKeys[key]; exists {
			return storage.ErrDuplicateKey
		}
		batchKeys[key] = struct{}{}
	}

	// Second pass: insert all
	for _, o := range obs {
		obsCopy := *o
		obsCopy.Date = o.Date.UTC()
		s.data[observationKey(o.Series, o.Date)] = &obsCopy
	}

	return nil
}

// GetBySeries retrieves all observations of a series, ordered by date ASC.
func (s *ObservationStore) GetBySeries(_ context.Context, series string) ([]*domain.Observation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.Observation
	for _, o := range s.data {
		if o.Series == series {
			obsCopy := *o
			result = append(result, &obsCopy)
		}
	}
	sortByDate(result)
	return result, nil
}

// GetByDateRange retrieves observations of a series within [start, end] (inclusive).
func (s *ObservationStore) GetByDateRange(_ context.Context, series string, start, end time.Time) ([]*domain.Observation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.Observation
	for _, o := range s.data {
		if o.Series == series && !o.Date.Before(start) && !o.Date.After(end) {
			obsCopy := *o
			result = append(result, &obsCopy)
		}
	}
	sortByDate(result)
	return result, nil
}

// ListSeries returns the distinct series names, sorted ASC.
func (s *ObservationStore) ListSeries(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	seen := make(map[string]struct{})
	for _, o := range s.data {
		seen[o.Series] = struct{}{}
	}
	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

// LatestDate returns the most recent stored date of a series.
func (s *ObservationStore) LatestDate(_ context.Context, series string) (time.Time, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var latest time.Time
	for _, o := range s.data {
		if o.Series == series && o.Date.After(latest) {
			latest = o.Date
		}
	}
	if latest.IsZero() {
		return time.Time{}, storage.ErrNotFound
	}
	return latest, nil
}

func sortByDate(obs []*domain.Observation) {
	sort.Slice(obs, func(i, j int) bool {
		return obs[i].Date.Before(obs[j].Date)
	})
}

var _ storage.ObservationStore = (*ObservationStore)(nil)
