package clickhouse

import (
	"context"
	"fmt"
	"time"

	"credit-signal-lab/internal/domain"
	"credit-signal-lab/internal/storage"
)

// ObservationStore implements storage.ObservationStore using ClickHouse.
type ObservationStore struct {
	conn *Conn
}

// NewObservationStore creates a new ObservationStore.
func NewObservationStore(conn *Conn) *ObservationStore {
	return &ObservationStore{conn: conn}
}

// Compile-time interface check.
var _ storage.ObservationStore = (*ObservationStore)(nil)

// InsertBulk adds multiple observations atomically. Fails entire batch on any duplicate.
// ReplacingMergeTree would silently replace, so duplicates are checked before sending.
func (s *ObservationStore) InsertBulk(ctx context.Context, obs []*domain.Observation) error {
	if len(obs) == 0 {
		return nil
	}

	type span struct {
		from, to time.Time
		dates    map[time.Time]struct{}
	}
	spans := make(map[string]*span)
	for _, o := range obs {
		if o == nil || o.Series == "" || o.Date.IsZero() {
			return storage.ErrInvalidInput
		}
		d := o.Date.UTC()
		sp, ok := spans[o.Series]
		if !ok {
			sp = &span{from: d, to: d, dates: make(map[time.Time]struct{})}
			spans[o.Series] = sp
		}
		if _, dup := sp.dates[d]; dup {
			return storage.ErrDuplicateKey
		}
		sp.dates[d] = struct{}{}
		if d.Before(sp.from) {
			sp.from = d
		}
		if d.After(sp.to) {
			sp.to = d
		}
	}

	// Check for duplicates against existing rows, one range query per series
	for series, sp := range spans {
		existing, err := s.GetByDateRange(ctx, series, sp.from, sp.to)
		if err != nil {
			return fmt.Errorf("check exists: %w", err)
		}
		for _, e := range existing {
			if _, dup := sp.dates[e.Date]; dup {
				return storage.ErrDuplicateKey
			}
		}
	}

	batch, err := s.conn.PrepareBatch(ctx, `INSERT INTO panel_observations (series, date, value)`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}
	for _, o := range obs {
		if err := batch.Append(o.Series, o.Date.UTC(), o.Value); err != nil {
			return fmt.Errorf("append to batch: %w", err)
		}
	}
	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}
	return nil
}

// GetBySeries retrieves all observations of a series, ordered by date ASC.
func (s *ObservationStore) GetBySeries(ctx context.Context, series string) ([]*domain.Observation, error) {
	rows, err := s.conn.Query(ctx, `
		SELECT series, date, value
		FROM panel_observations FINAL
		WHERE series = ?
		ORDER BY date ASC
	`, series)
	if err != nil {
		return nil, fmt.Errorf("query by series: %w", err)
	}
	defer rows.Close()

	return scanObservations(rows)
}

// GetByDateRange retrieves observations of a series within [start, end] (inclusive).
func (s *ObservationStore) GetByDateRange(ctx context.Context, series string, start, end time.Time) ([]*domain.Observation, error) {
	rows, err := s.conn.Query(ctx, `
		SELECT series, date, value
		FROM panel_observations FINAL
		WHERE series = ? AND date >= ? AND date <= ?
		ORDER BY date ASC
	`, series, start.UTC(), end.UTC())
	if err != nil {
		return nil, fmt.Errorf("query by date range: %w", err)
	}
	defer rows.Close()

	return scanObservations(rows)
}

// ListSeries returns the distinct series names, sorted ASC.
func (s *ObservationStore) ListSeries(ctx context.Context) ([]string, error) {
	rows, err := s.conn.Query(ctx, `SELECT DISTINCT series FROM panel_observations ORDER BY series ASC`)
	if err != nil {
		return nil, fmt.Errorf("query series: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan series name: %w", err)
		}
		names = append(names, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate series names: %w", err)
	}
	return names, nil
}

// LatestDate returns the most recent stored date of a series.
func (s *ObservationStore) LatestDate(ctx context.Context, series string) (time.Time, error) {
	var (
		count  uint64
		latest time.Time
	)
	err := s.conn.QueryRow(ctx, `
		SELECT count(), max(date) FROM panel_observations WHERE series = ?
	`, series).Scan(&count, &latest)
	if err != nil {
		return time.Time{}, fmt.Errorf("query latest date: %w", err)
	}
	if count == 0 {
		return time.Time{}, storage.ErrNotFound
	}
	return latest.UTC(), nil
}

// scanObservations scans multiple rows into a slice.
func scanObservations(rows chRows) ([]*domain.Observation, error) {
	var obs []*domain.Observation
	for rows.Next() {
		var o domain.Observation
		if err := rows.Scan(&o.Series, &o.Date, &o.Value); err != nil {
			return nil, fmt.Errorf("scan observation row: %w", err)
		}
		o.Date = o.Date.UTC()
		obs = append(obs, &o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate observation rows: %w", err)
	}
	return obs, nil
}
