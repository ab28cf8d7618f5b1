package memory

import (
	"context"
	"sync"

	"credit-signal-lab/internal/domain"
	"credit-signal-lab/internal/storage"
)

// ValidationStore is an in-memory implementation of storage.ValidationStore.
type ValidationStore struct {
	mu   sync.RWMutex
	data map[string]*domain.ValidationReport // keyed by run_id
}

// NewValidationStore creates a new in-memory validation store.
func NewValidationStore() *ValidationStore {
	return &ValidationStore{
		data: make(map[string]*domain.ValidationReport),
	}
}

// Insert stores a report. Returns ErrDuplicateKey if the run already has one.
func (s *ValidationStore) Insert(_ context.Context, runID string, report *domain.ValidationReport) error {
	if runID == "" || report == nil {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[runID]; exists {
		return storage.ErrDuplicateKey
	}
	s.data[runID] = copyReport(report)
	return nil
}

// GetByRunID retrieves the report of a run.
func (s *ValidationStore) GetByRunID(_ context.Context, runID string) (*domain.ValidationReport, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	report, ok := s.data[runID]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return copyReport(report), nil
}

func copyReport(r *domain.ValidationReport) *domain.ValidationReport {
	return &domain.ValidationReport{
		WalkForward:      copyRows(r.WalkForward),
		Bootstrap:        copyRows(r.Bootstrap),
		TransactionCosts: copyRows(r.TransactionCosts),
		Breakeven:        copyRows(r.Breakeven),
		Decay:            copyRows(r.Decay),
		Stress:           copyRows(r.Stress),
	}
}

func copyRows[T any](rows []*T) []*T {
	if rows == nil {
		return nil
	}
	out := make([]*T, len(rows))
	for i, r := range rows {
		c := *r
		out[i] = &c
	}
	return out
}

var _ storage.ValidationStore = (*ValidationStore)(nil)
