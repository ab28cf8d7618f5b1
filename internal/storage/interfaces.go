package storage

import (
	"context"
	"time"

	"credit-signal-lab/internal/domain"
)

// ObservationStore stores raw sourced series observations.
// Append-only: a (series, date) pair is written once.
type ObservationStore interface {
	// InsertBulk adds multiple observations. Fails entire batch on duplicate (series, date).
	InsertBulk(ctx context.Context, obs []*domain.Observation) error

	// GetBySeries retrieves all observations of a series, ordered by date ASC.
	GetBySeries(ctx context.Context, series string) ([]*domain.Observation, error)

	// GetByDateRange retrieves observations of a series within [start, end] (inclusive), ordered by date ASC.
	GetByDateRange(ctx context.Context, series string, start, end time.Time) ([]*domain.Observation, error)

	// ListSeries returns the distinct series names, sorted ASC.
	ListSeries(ctx context.Context) ([]string, error)

	// LatestDate returns the most recent stored date of a series.
	// Returns ErrNotFound if the series has no observations.
	LatestDate(ctx context.Context, series string) (time.Time, error)
}

// TournamentResultStore stores scored configurations.
// Append-only: a (run_id, config_id) pair is written once.
type TournamentResultStore interface {
	// InsertBulk adds multiple rows. Fails entire batch on duplicate (run_id, config_id).
	InsertBulk(ctx context.Context, rows []*domain.TournamentResult) error

	// GetByRunID retrieves all rows of a run, ordered by config_id ASC.
	GetByRunID(ctx context.Context, runID string) ([]*domain.TournamentResult, error)

	// GetByConfigID retrieves one row. Returns ErrNotFound if not exists.
	GetByConfigID(ctx context.Context, runID, configID string) (*domain.TournamentResult, error)
}

// RunStore stores run bookkeeping records.
// Runs are the only mutable records: status moves from RUNNING to COMPLETED or FAILED.
type RunStore interface {
	// Insert adds a new run. Returns ErrDuplicateKey if run_id exists.
	Insert(ctx context.Context, run *domain.Run) error

	// Update overwrites the status, counts, completion time and error of a run.
	// Returns ErrNotFound if run_id does not exist.
	Update(ctx context.Context, run *domain.Run) error

	// GetByID retrieves a run. Returns ErrNotFound if not exists.
	GetByID(ctx context.Context, runID string) (*domain.Run, error)

	// List returns up to limit runs, newest started_at first. limit <= 0 means all.
	List(ctx context.Context, limit int) ([]*domain.Run, error)
}

// ValidationStore stores the validation tables of a run.
type ValidationStore interface {
	// Insert writes every table of a report atomically.
	// Returns ErrDuplicateKey if the run already has validation rows.
	Insert(ctx context.Context, runID string, report *domain.ValidationReport) error

	// GetByRunID retrieves the report of a run. Returns ErrNotFound if the run has none.
	GetByRunID(ctx context.Context, runID string) (*domain.ValidationReport, error)
}
