package ingestion

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ternarybob/arbor"

	"credit-signal-lab/internal/observability"
	"credit-signal-lab/internal/storage"
)

// Manager orchestrates ingestion from sources to storage.
// Ingestion is incremental: a series is fetched from the day after its latest
// stored date, so re-running over the same range writes nothing.
type Manager struct {
	store  storage.ObservationStore
	logger arbor.ILogger
}

// NewManager creates a new ingestion manager.
func NewManager(store storage.ObservationStore, logger arbor.ILogger) *Manager {
	if logger == nil {
		logger = arbor.NewLogger()
	}
	return &Manager{store: store, logger: logger}
}

// SeriesResult is the outcome of ingesting one series.
type SeriesResult struct {
	Series  string
	From    time.Time // effective start after resuming
	Fetched int
	Stored  int
	Err     error
}

// Ingest fetches src over [start, end] and stores the new observations.
// Returns the count stored. Duplicates are rejected by the storage layer.
func (m *Manager) Ingest(ctx context.Context, src ObservationSource, start, end time.Time) (*SeriesResult, error) {
	result := &SeriesResult{Series: src.Series(), From: start}

	latest, err := m.store.LatestDate(ctx, src.Series())
	switch {
	case err == nil:
		if resume := latest.AddDate(0, 0, 1); resume.After(start) {
			result.From = resume
		}
	case errors.Is(err, storage.ErrNotFound):
	default:
		return result, fmt.Errorf("latest date of %s: %w", src.Series(), err)
	}
	if result.From.After(end) {
		m.logger.Debug().Str("series", src.Series()).Msg("Series up to date")
		return result, nil
	}

	obs, err := src.Fetch(ctx, result.From, end)
	if err != nil {
		return result, fmt.Errorf("fetch %s: %w", src.Series(), err)
	}
	result.Fetched = len(obs)

	// Enforce deterministic ordering
	prepared, err := Prepare(src.Series(), obs)
	if err != nil {
		return result, fmt.Errorf("prepare %s: %w", src.Series(), err)
	}
	if len(prepared) == 0 {
		return result, nil
	}

	if err := m.store.InsertBulk(ctx, prepared); err != nil {
		return result, fmt.Errorf("store %s: %w", src.Series(), err)
	}
	result.Stored = len(prepared)
	observability.RecordObservationsIngested(src.Series(), result.Stored)

	m.logger.Info().
		Str("series", src.Series()).
		Str("from", result.From.Format(time.DateOnly)).
		Int("fetched", result.Fetched).
		Int("stored", result.Stored).
		Msg("Series ingested")
	return result, nil
}

// IngestAll ingests every source. A failing series is recorded and the rest
// continue; only context cancellation aborts.
func (m *Manager) IngestAll(ctx context.Context, sources []ObservationSource, start, end time.Time) ([]*SeriesResult, error) {
	results := make([]*SeriesResult, 0, len(sources))
	failed := 0
	for _, src := range sources {
		if err := ctx.Err(); err != nil {
			return results, err
		}
		r, err := m.Ingest(ctx, src, start, end)
		if err != nil {
			r.Err = err
			failed++
			m.logger.Warn().Str("series", src.Series()).Err(err).Msg("Series ingestion failed")
		}
		results = append(results, r)
	}
	if failed == 0 {
		observability.MarkIngestionSuccess(time.Now())
	}
	return results, nil
}

// Failed returns the results that carry an error.
func Failed(results []*SeriesResult) []*SeriesResult {
	var out []*SeriesResult
	for _, r := range results {
		if r.Err != nil {
			out = append(out, r)
		}
	}
	return out
}
