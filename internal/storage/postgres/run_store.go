package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"credit-signal-lab/internal/domain"
	"credit-signal-lab/internal/storage"
)

// RunStore implements storage.RunStore using PostgreSQL.
type RunStore struct {
	pool *Pool
}

// NewRunStore creates a new RunStore.
func NewRunStore(pool *Pool) *RunStore {
	return &RunStore{pool: pool}
}

// Compile-time interface check.
var _ storage.RunStore = (*RunStore)(nil)

const runColumns = `
	run_id, status, started_at, completed_at,
	panel_start, panel_end, in_sample_end, out_of_sample_start,
	combinations, scored, skipped, valid, error
`

// Insert adds a new run. Returns ErrDuplicateKey if run_id exists.
func (s *RunStore) Insert(ctx context.Context, r *domain.Run) error {
	if r == nil || r.RunID == "" {
		return storage.ErrInvalidInput
	}

	query := `
		INSERT INTO runs (` + runColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`

	_, err := s.pool.Exec(ctx, query,
		r.RunID, r.Status, r.StartedAt, r.CompletedAt,
		nullDate(r.PanelStart), nullDate(r.PanelEnd), nullDate(r.InSampleEnd), nullDate(r.OutOfSampleStart),
		r.Combinations, r.Scored, r.Skipped, r.Valid, r.Error,
	)
	return classify("insert run", err)
}

// Update overwrites the mutable fields of a run. Returns ErrNotFound if run_id does not exist.
func (s *RunStore) Update(ctx context.Context, r *domain.Run) error {
	if r == nil || r.RunID == "" {
		return storage.ErrInvalidInput
	}

	query := `
		UPDATE runs SET
			status = $2, completed_at = $3,
			panel_start = $4, panel_end = $5, in_sample_end = $6, out_of_sample_start = $7,
			combinations = $8, scored = $9, skipped = $10, valid = $11, error = $12
		WHERE run_id = $1
	`

	tag, err := s.pool.Exec(ctx, query,
		r.RunID, r.Status, r.CompletedAt,
		nullDate(r.PanelStart), nullDate(r.PanelEnd), nullDate(r.InSampleEnd), nullDate(r.OutOfSampleStart),
		r.Combinations, r.Scored, r.Skipped, r.Valid, r.Error,
	)
	if err != nil {
		return fmt.Errorf("update run: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// GetByID retrieves a run by its ID. Returns ErrNotFound if not exists.
func (s *RunStore) GetByID(ctx context.Context, runID string) (*domain.Run, error) {
	query := `SELECT ` + runColumns + ` FROM runs WHERE run_id = $1`

	r, err := scanRun(s.pool.QueryRow(ctx, query, runID))
	if err != nil {
		return nil, classify("get run by id", err)
	}
	return r, nil
}

// List returns up to limit runs, newest first. limit <= 0 returns all runs.
func (s *RunStore) List(ctx context.Context, limit int) ([]*domain.Run, error) {
	query := `SELECT ` + runColumns + ` FROM runs ORDER BY started_at DESC, run_id ASC`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT $1`
		args = append(args, limit)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []*domain.Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan run row: %w", err)
		}
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate run rows: %w", err)
	}
	return runs, nil
}

// scanRun scans a single row into a Run.
func scanRun(row pgx.Row) (*domain.Run, error) {
	var (
		r                                     domain.Run
		panelStart, panelEnd, isEnd, oosStart *time.Time
	)
	err := row.Scan(
		&r.RunID, &r.Status, &r.StartedAt, &r.CompletedAt,
		&panelStart, &panelEnd, &isEnd, &oosStart,
		&r.Combinations, &r.Scored, &r.Skipped, &r.Valid, &r.Error,
	)
	if err != nil {
		return nil, err
	}
	r.PanelStart = derefDate(panelStart)
	r.PanelEnd = derefDate(panelEnd)
	r.InSampleEnd = derefDate(isEnd)
	r.OutOfSampleStart = derefDate(oosStart)
	return &r, nil
}

func nullDate(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}

func derefDate(t *time.Time) time.Time {
	if t == nil {
		return time.Time{}
	}
	return t.UTC()
}
