package memory

import (
	"context"
	"sort"
	"sync"

	"credit-signal-lab/internal/domain"
	"credit-signal-lab/internal/storage"
)

// TournamentResultStore is an in-memory implementation of storage.TournamentResultStore.
type TournamentResultStore struct {
	mu   sync.RWMutex
	data map[string]*domain.TournamentResult // keyed by (run_id, config_id)
}

// NewTournamentResultStore creates a new in-memory tournament result store.
func NewTournamentResultStore() *TournamentResultStore {
	return &TournamentResultStore{
		data: make(map[string]*domain.TournamentResult),
	}
}

func resultKey(runID, configID string) string {
	return runID + "|" + configID
}

// InsertBulk adds multiple rows atomically. Fails entire batch on any duplicate.
func (s *TournamentResultStore) InsertBulk(_ context.Context, rows []*domain.TournamentResult) error {
	if len(rows) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	batchKeys := make(map[string]struct{}, len(rows))
	for _, r := range rows {
		if r == nil || r.RunID == "" || r.ConfigID == "" {
			return storage.ErrInvalidInput
		}
		key := resultKey(r.RunID, r.ConfigID)
		if _, exists := s.data[key]; exists {
			return storage.ErrDuplicateKey
		}
		if _, exists := batchKeys[key]; exists {
			return storage.ErrDuplicateKey
		}
		batchKeys[key] = struct{}{}
	}

	for _, r := range rows {
		rowCopy := *r
		s.data[resultKey(r.RunID, r.ConfigID)] = &rowCopy
	}
	return nil
}

// GetByRunID retrieves all rows of a run, ordered by config_id ASC.
func (s *TournamentResultStore) GetByRunID(_ context.Context, runID string) ([]*domain.TournamentResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.TournamentResult
	for _, r := range s.data {
		if r.RunID == runID {
			rowCopy := *r
			result = append(result, &rowCopy)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].ConfigID < result[j].ConfigID
	})
	return result, nil
}

// GetByConfigID retrieves one row. Returns ErrNotFound if not exists.
func (s *TournamentResultStore) GetByConfigID(_ context.Context, runID, configID string) (*domain.TournamentResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.data[resultKey(runID, configID)]
	if !ok {
		return nil, storage.ErrNotFound
	}
	rowCopy := *r
	return &rowCopy, nil
}

var _ storage.TournamentResultStore = (*TournamentResultStore)(nil)
