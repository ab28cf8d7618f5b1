package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"credit-signal-lab/internal/domain"
	"credit-signal-lab/internal/storage"
)

// ValidationStore implements storage.ValidationStore using PostgreSQL.
// A report header row in validation_reports guards against double writes.
type ValidationStore struct {
	pool *Pool
}

// NewValidationStore creates a new ValidationStore.
func NewValidationStore(pool *Pool) *ValidationStore {
	return &ValidationStore{pool: pool}
}

// Compile-time interface check.
var _ storage.ValidationStore = (*ValidationStore)(nil)

// Insert writes every table of a report in one transaction.
// Returns ErrDuplicateKey if the run already has a report.
func (s *ValidationStore) Insert(ctx context.Context, runID string, report *domain.ValidationReport) error {
	if runID == "" || report == nil {
		return storage.ErrInvalidInput
	}

	return s.pool.inTx(ctx, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `INSERT INTO validation_reports (run_id) VALUES ($1)`, runID); err != nil {
			return classify("insert validation report", err)
		}

		for _, r := range report.WalkForward {
			_, err := tx.Exec(ctx, `
				INSERT INTO walk_forward (
					run_id, config_id, signal_id, lead_time, threshold_id, family,
					year, sharpe, ann_return, ann_vol, benchmark_sharpe, excess_sharpe, days
				) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
			`, runID, r.ConfigID, r.SignalID, r.LeadTime, r.ThresholdID, string(r.Family),
				r.Year, r.Sharpe, r.AnnReturn, r.AnnVol, r.BenchmarkSharpe, r.ExcessSharpe, r.Days)
			if err != nil {
				return wrapInsert("walk_forward", err)
			}
		}

		for _, r := range report.Bootstrap {
			_, err := tx.Exec(ctx, `
				INSERT INTO bootstrap (
					run_id, config_id, signal_id, lead_time, threshold_id, family,
					observed_sharpe, boot_mean_sharpe, ci_lower, ci_upper, p_value,
					significant, resamples, seed, days
				) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
			`, runID, r.ConfigID, r.SignalID, r.LeadTime, r.ThresholdID, string(r.Family),
				r.ObservedSharpe, r.BootMeanSharpe, r.CILower, r.CIUpper, r.PValue,
				r.Significant, r.Resamples, int64(r.Seed), r.Days)
			if err != nil {
				return wrapInsert("bootstrap", err)
			}
		}

		for _, r := range report.TransactionCosts {
			_, err := tx.Exec(ctx, `
				INSERT INTO transaction_costs (
					run_id, config_id, signal_id, lead_time, threshold_id, family,
					cost_bps, sharpe, ann_return, days
				) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
			`, runID, r.ConfigID, r.SignalID, r.LeadTime, r.ThresholdID, string(r.Family),
				r.CostBps, r.Sharpe, r.AnnReturn, r.Days)
			if err != nil {
				return wrapInsert("transaction_costs", err)
			}
		}

		for _, r := range report.Breakeven {
			_, err := tx.Exec(ctx, `
				INSERT INTO breakeven (
					run_id, config_id, signal_id, lead_time, threshold_id, family,
					breakeven_bps, trade_rate, gross_mean
				) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
			`, runID, r.ConfigID, r.SignalID, r.LeadTime, r.ThresholdID, string(r.Family),
				r.BreakevenBps, r.TradeRate, r.GrossMean)
			if err != nil {
				return wrapInsert("breakeven", err)
			}
		}

		for _, r := range report.Decay {
			_, err := tx.Exec(ctx, `
				INSERT INTO signal_decay (
					run_id, config_id, signal_id, lead_time, threshold_id, family,
					extra_delay, total_lead, sharpe, ann_return, days
				) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
			`, runID, r.ConfigID, r.SignalID, r.LeadTime, r.ThresholdID, string(r.Family),
				r.ExtraDelay, r.TotalLead, r.Sharpe, r.AnnReturn, r.Days)
			if err != nil {
				return wrapInsert("signal_decay", err)
			}
		}

		for _, r := range report.Stress {
			_, err := tx.Exec(ctx, `
				INSERT INTO stress_tests (
					run_id, config_id, signal_id, lead_time, threshold_id, family,
					window_name, window_start, window_end,
					sharpe, ann_return, max_drawdown,
					benchmark_sharpe, benchmark_ann_return, benchmark_max_drawdown,
					excess_sharpe, days
				) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
			`, runID, r.ConfigID, r.SignalID, r.LeadTime, r.ThresholdID, string(r.Family),
				r.Window, r.Start, r.End,
				r.Sharpe, r.AnnReturn, r.MaxDrawdown,
				r.BenchmarkSharpe, r.BenchmarkAnnReturn, r.BenchmarkMaxDrawdown,
				r.ExcessSharpe, r.Days)
			if err != nil {
				return wrapInsert("stress_tests", err)
			}
		}
		return nil
	})
}

// GetByRunID retrieves the report of a run. Returns ErrNotFound if the run has none.
func (s *ValidationStore) GetByRunID(ctx context.Context, runID string) (*domain.ValidationReport, error) {
	var exists bool
	err := s.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM validation_reports WHERE run_id = $1)`, runID,
	).Scan(&exists)
	if err != nil {
		return nil, fmt.Errorf("check validation report: %w", err)
	}
	if !exists {
		return nil, storage.ErrNotFound
	}

	report := &domain.ValidationReport{}

	report.WalkForward, err = queryRows(ctx, s.pool, `
		SELECT config_id, signal_id, lead_time, threshold_id, family,
			year, sharpe, ann_return, ann_vol, benchmark_sharpe, excess_sharpe, days
		FROM walk_forward WHERE run_id = $1
		ORDER BY config_id ASC, year ASC
	`, runID, func(row pgx.Rows) (*domain.WalkForwardRow, error) {
		r := &domain.WalkForwardRow{RunID: runID}
		var family string
		err := row.Scan(&r.ConfigID, &r.SignalID, &r.LeadTime, &r.ThresholdID, &family,
			&r.Year, &r.Sharpe, &r.AnnReturn, &r.AnnVol, &r.BenchmarkSharpe, &r.ExcessSharpe, &r.Days)
		r.Family = domain.StrategyFamily(family)
		return r, err
	})
	if err != nil {
		return nil, err
	}

	report.Bootstrap, err = queryRows(ctx, s.pool, `
		SELECT config_id, signal_id, lead_time, threshold_id, family,
			observed_sharpe, boot_mean_sharpe, ci_lower, ci_upper, p_value,
			significant, resamples, seed, days
		FROM bootstrap WHERE run_id = $1
		ORDER BY config_id ASC
	`, runID, func(row pgx.Rows) (*domain.BootstrapRow, error) {
		r := &domain.BootstrapRow{RunID: runID}
		var (
			family string
			seed   int64
		)
		err := row.Scan(&r.ConfigID, &r.SignalID, &r.LeadTime, &r.ThresholdID, &family,
			&r.ObservedSharpe, &r.BootMeanSharpe, &r.CILower, &r.CIUpper, &r.PValue,
			&r.Significant, &r.Resamples, &seed, &r.Days)
		r.Family = domain.StrategyFamily(family)
		r.Seed = uint64(seed)
		return r, err
	})
	if err != nil {
		return nil, err
	}

	report.TransactionCosts, err = queryRows(ctx, s.pool, `
		SELECT config_id, signal_id, lead_time, threshold_id, family,
			cost_bps, sharpe, ann_return, days
		FROM transaction_costs WHERE run_id = $1
		ORDER BY config_id ASC, cost_bps ASC
	`, runID, func(row pgx.Rows) (*domain.TransactionCostRow, error) {
		r := &domain.TransactionCostRow{RunID: runID}
		var family string
		err := row.Scan(&r.ConfigID, &r.SignalID, &r.LeadTime, &r.ThresholdID, &family,
			&r.CostBps, &r.Sharpe, &r.AnnReturn, &r.Days)
		r.Family = domain.StrategyFamily(family)
		return r, err
	})
	if err != nil {
		return nil, err
	}

	report.Breakeven, err = queryRows(ctx, s.pool, `
		SELECT config_id, signal_id, lead_time, threshold_id, family,
			breakeven_bps, trade_rate, gross_mean
		FROM breakeven WHERE run_id = $1
		ORDER BY config_id ASC
	`, runID, func(row pgx.Rows) (*domain.BreakevenRow, error) {
		r := &domain.BreakevenRow{RunID: runID}
		var family string
		err := row.Scan(&r.ConfigID, &r.SignalID, &r.LeadTime, &r.ThresholdID, &family,
			&r.BreakevenBps, &r.TradeRate, &r.GrossMean)
		r.Family = domain.StrategyFamily(family)
		return r, err
	})
	if err != nil {
		return nil, err
	}

	report.Decay, err = queryRows(ctx, s.pool, `
		SELECT config_id, signal_id, lead_time, threshold_id, family,
			extra_delay, total_lead, sharpe, ann_return, days
		FROM signal_decay WHERE run_id = $1
		ORDER BY config_id ASC, extra_delay ASC
	`, runID, func(row pgx.Rows) (*domain.DecayRow, error) {
		r := &domain.DecayRow{RunID: runID}
		var family string
		err := row.Scan(&r.ConfigID, &r.SignalID, &r.LeadTime, &r.ThresholdID, &family,
			&r.ExtraDelay, &r.TotalLead, &r.Sharpe, &r.AnnReturn, &r.Days)
		r.Family = domain.StrategyFamily(family)
		return r, err
	})
	if err != nil {
		return nil, err
	}

	report.Stress, err = queryRows(ctx, s.pool, `
		SELECT config_id, signal_id, lead_time, threshold_id, family,
			window_name, window_start, window_end,
			sharpe, ann_return, max_drawdown,
			benchmark_sharpe, benchmark_ann_return, benchmark_max_drawdown,
			excess_sharpe, days
		FROM stress_tests WHERE run_id = $1
		ORDER BY config_id ASC, window_start ASC, window_name ASC
	`, runID, func(row pgx.Rows) (*domain.StressRow, error) {
		r := &domain.StressRow{RunID: runID}
		var family string
		err := row.Scan(&r.ConfigID, &r.SignalID, &r.LeadTime, &r.ThresholdID, &family,
			&r.Window, &r.Start, &r.End,
			&r.Sharpe, &r.AnnReturn, &r.MaxDrawdown,
			&r.BenchmarkSharpe, &r.BenchmarkAnnReturn, &r.BenchmarkMaxDrawdown,
			&r.ExcessSharpe, &r.Days)
		r.Family = domain.StrategyFamily(family)
		return r, err
	})
	if err != nil {
		return nil, err
	}

	return report, nil
}

// queryRows runs a per-run table query and scans every row with scan.
func queryRows[T any](ctx context.Context, pool *Pool, query, runID string, scan func(pgx.Rows) (*T, error)) ([]*T, error) {
	rows, err := pool.Query(ctx, query, runID)
	if err != nil {
		return nil, fmt.Errorf("query validation rows: %w", err)
	}
	defer rows.Close()

	var out []*T
	for rows.Next() {
		r, err := scan(rows)
		if err != nil {
			return nil, fmt.Errorf("scan validation row: %w", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate validation rows: %w", err)
	}
	return out, nil
}

func wrapInsert(table string, err error) error {
	return classify("insert "+table, err)
}
