// Package validation re-evaluates shortlisted configurations: per-year
// walk-forward, bootstrap significance, transaction costs, execution delay
// and stress windows. Every analysis rebuilds returns with backtest.Runner.
package validation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ternarybob/arbor"

	"credit-signal-lab/internal/backtest"
	"credit-signal-lab/internal/domain"
	"credit-signal-lab/internal/idhash"
	"credit-signal-lab/internal/observability"
	"credit-signal-lab/internal/signals"
)

// ErrInsufficientData is returned when a series is too short for an analysis.
var ErrInsufficientData = errors.New("insufficient observations")

// Analysis names, also used as metric labels.
const (
	AnalysisWalkForward = "walk_forward"
	AnalysisBootstrap   = "bootstrap"
	AnalysisCosts       = "transaction_costs"
	AnalysisDecay       = "signal_decay"
	AnalysisStress      = "stress"
)

// Config holds the validation parameters.
type Config struct {
	BootstrapResamples int
	BootstrapSeed      uint64
	CostsBps           []float64
	ExtraDelays        []int
	StressWindows      []domain.StressWindow // nil uses domain.DefaultStressWindows
	MinYearDays        int
	MinStressDays      int
	MinOOSDays         int
}

// DefaultConfig returns the standard validation parameters.
func DefaultConfig() Config {
	return Config{
		BootstrapResamples: 10000,
		BootstrapSeed:      42,
		CostsBps:           []float64{0, 5, 10, 20, 50},
		ExtraDelays:        []int{0, 1, 2, 3, 4, 5},
		MinYearDays:        50,
		MinStressDays:      20,
		MinOOSDays:         30,
	}
}

// Suite runs the validation analyses for one runner and catalog.
type Suite struct {
	runner  *backtest.Runner
	catalog *signals.Catalog
	cfg     Config
	logger  arbor.ILogger
}

// NewSuite creates a Suite.
func NewSuite(runner *backtest.Runner, catalog *signals.Catalog, cfg Config, logger arbor.ILogger) *Suite {
	if logger == nil {
		logger = arbor.NewLogger()
	}
	return &Suite{runner: runner, catalog: catalog, cfg: cfg, logger: logger}
}

// Run validates every winner. A configuration that cannot be reconstructed
// fails the run; an analysis lacking data only omits its rows.
func (s *Suite) Run(ctx context.Context, runID string, winners []domain.Configuration) (*domain.ValidationReport, error) {
	report := &domain.ValidationReport{}

	for _, cfg := range winners {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		rec, err := s.runner.Reconstruct(s.catalog, cfg)
		if err != nil {
			return nil, fmt.Errorf("reconstruct %s: %w", cfg, err)
		}

		start := time.Now()
		wf := s.WalkForward(runID, rec)
		report.WalkForward = append(report.WalkForward, wf...)
		observability.RecordValidation(AnalysisWalkForward, len(wf), time.Since(start).Seconds())

		start = time.Now()
		boot, err := s.Bootstrap(runID, rec)
		switch {
		case err == nil:
			report.Bootstrap = append(report.Bootstrap, boot)
			observability.RecordValidation(AnalysisBootstrap, 1, time.Since(start).Seconds())
		case errors.Is(err, ErrInsufficientData):
			s.logger.Warn().Str("config", cfg.String()).Err(err).Msg("Bootstrap skipped")
		default:
			return nil, err
		}

		start = time.Now()
		costs, breakeven := s.TransactionCosts(runID, rec)
		report.TransactionCosts = append(report.TransactionCosts, costs...)
		report.Breakeven = append(report.Breakeven, breakeven)
		observability.RecordValidation(AnalysisCosts, len(costs)+1, time.Since(start).Seconds())

		start = time.Now()
		decay, err := s.Decay(runID, cfg)
		if err != nil {
			return nil, err
		}
		report.Decay = append(report.Decay, decay...)
		observability.RecordValidation(AnalysisDecay, len(decay), time.Since(start).Seconds())

		start = time.Now()
		stress := s.Stress(runID, rec)
		report.Stress = append(report.Stress, stress...)
		observability.RecordValidation(AnalysisStress, len(stress), time.Since(start).Seconds())

		s.logger.Info().
			Str("run_id", runID).
			Str("config", cfg.String()).
			Int("years", len(wf)).
			Int("stress_windows", len(stress)).
			Msg("Configuration validated")
	}
	return report, nil
}

// Configurations extracts the configurations of tournament rows.
func Configurations(rows []*domain.TournamentResult) []domain.Configuration {
	out := make([]domain.Configuration, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.Configuration)
	}
	return out
}

func configID(cfg domain.Configuration) string {
	return idhash.ConfigurationID(cfg)
}
