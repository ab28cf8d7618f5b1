package clickhouse

import (
	"context"
	"fmt"

	"credit-signal-lab/internal/domain"
	"credit-signal-lab/internal/storage"
)

// TournamentResultStore implements storage.TournamentResultStore using ClickHouse.
type TournamentResultStore struct {
	conn *Conn
}

// NewTournamentResultStore creates a new TournamentResultStore.
func NewTournamentResultStore(conn *Conn) *TournamentResultStore {
	return &TournamentResultStore{conn: conn}
}

// Compile-time interface check.
var _ storage.TournamentResultStore = (*TournamentResultStore)(nil)

const resultColumns = `
	run_id, config_id, signal_id, lead_time, threshold_id, family, signal_column,
	is_ann_return, is_ann_vol, is_sharpe, is_sortino, is_calmar,
	is_max_drawdown, is_avg_drawdown, is_win_rate, is_days,
	oos_ann_return, oos_ann_vol, oos_sharpe, oos_sortino, oos_calmar,
	oos_max_drawdown, oos_avg_drawdown, oos_win_rate, oos_days,
	oos_trades, oos_turnover, valid, benchmark
`

// InsertBulk adds multiple rows atomically. Fails entire batch on any duplicate.
func (s *TournamentResultStore) InsertBulk(ctx context.Context, rows []*domain.TournamentResult) error {
	if len(rows) == 0 {
		return nil
	}

	// Check for intra-batch duplicates
	seen := make(map[string]struct{}, len(rows))
	runs := make(map[string]struct{})
	for _, r := range rows {
		if r == nil || r.RunID == "" || r.ConfigID == "" {
			return storage.ErrInvalidInput
		}
		key := r.RunID + "|" + r.ConfigID
		if _, exists := seen[key]; exists {
			return storage.ErrDuplicateKey
		}
		seen[key] = struct{}{}
		runs[r.RunID] = struct{}{}
	}

	// Check for duplicates against existing rows of the same runs
	for runID := range runs {
		existing, err := s.configIDs(ctx, runID)
		if err != nil {
			return fmt.Errorf("check exists: %w", err)
		}
		for _, id := range existing {
			if _, dup := seen[runID+"|"+id]; dup {
				return storage.ErrDuplicateKey
			}
		}
	}

	batch, err := s.conn.PrepareBatch(ctx, `INSERT INTO tournament_results (`+resultColumns+`)`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, r := range rows {
		is, oos := r.InSample, r.OutOfSample
		err = batch.Append(
			r.RunID, r.ConfigID, r.SignalID, int32(r.LeadTime), r.ThresholdID, string(r.Family), r.SignalColumn,
			is.AnnReturn, is.AnnVol, is.Sharpe, is.Sortino, is.Calmar,
			is.MaxDrawdown, is.AvgDrawdown, is.WinRate, int32(is.Days),
			oos.AnnReturn, oos.AnnVol, oos.Sharpe, oos.Sortino, oos.Calmar,
			oos.MaxDrawdown, oos.AvgDrawdown, oos.WinRate, int32(oos.Days),
			int32(r.OOSTrades), r.OOSTurnover, r.Valid, r.Benchmark,
		)
		if err != nil {
			return fmt.Errorf("append to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}
	return nil
}

// GetByRunID retrieves all rows of a run, ordered by config_id ASC.
func (s *TournamentResultStore) GetByRunID(ctx context.Context, runID string) ([]*domain.TournamentResult, error) {
	rows, err := s.conn.Query(ctx, `
		SELECT `+resultColumns+`
		FROM tournament_results FINAL
		WHERE run_id = ?
		ORDER BY config_id ASC
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("query by run: %w", err)
	}
	defer rows.Close()

	var results []*domain.TournamentResult
	for rows.Next() {
		r, err := scanResult(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate result rows: %w", err)
	}
	return results, nil
}

// GetByConfigID retrieves one row. Returns ErrNotFound if not exists.
func (s *TournamentResultStore) GetByConfigID(ctx context.Context, runID, configID string) (*domain.TournamentResult, error) {
	rows, err := s.conn.Query(ctx, `
		SELECT `+resultColumns+`
		FROM tournament_results FINAL
		WHERE run_id = ? AND config_id = ?
		LIMIT 1
	`, runID, configID)
	if err != nil {
		return nil, fmt.Errorf("query by config: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, fmt.Errorf("iterate result rows: %w", err)
		}
		return nil, storage.ErrNotFound
	}
	return scanResult(rows)
}

func (s *TournamentResultStore) configIDs(ctx context.Context, runID string) ([]string, error) {
	rows, err := s.conn.Query(ctx, `SELECT config_id FROM tournament_results FINAL WHERE run_id = ?`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// scanResult scans the current row into a TournamentResult.
func scanResult(rows chRows) (*domain.TournamentResult, error) {
	var (
		r                             domain.TournamentResult
		family                        string
		lead, isDays, oosDays, trades int32
	)
	is, oos := &r.InSample, &r.OutOfSample
	err := rows.Scan(
		&r.RunID, &r.ConfigID, &r.SignalID, &lead, &r.ThresholdID, &family, &r.SignalColumn,
		&is.AnnReturn, &is.AnnVol, &is.Sharpe, &is.Sortino, &is.Calmar,
		&is.MaxDrawdown, &is.AvgDrawdown, &is.WinRate, &isDays,
		&oos.AnnReturn, &oos.AnnVol, &oos.Sharpe, &oos.Sortino, &oos.Calmar,
		&oos.MaxDrawdown, &oos.AvgDrawdown, &oos.WinRate, &oosDays,
		&trades, &r.OOSTurnover, &r.Valid, &r.Benchmark,
	)
	if err != nil {
		return nil, fmt.Errorf("scan result row: %w", err)
	}
	r.LeadTime = int(lead)
	r.Family = domain.StrategyFamily(family)
	is.Days = int(isDays)
	oos.Days = int(oosDays)
	r.OOSTrades = int(trades)
	return &r, nil
}
