package validation

import (
	"credit-signal-lab/internal/backtest"
	"credit-signal-lab/internal/domain"
	"credit-signal-lab/internal/metrics"
	"credit-signal-lab/internal/series"
)

// Windows returns the configured stress windows, or the defaults ending at
// the runner's last date.
func (s *Suite) Windows() []domain.StressWindow {
	if s.cfg.StressWindows != nil {
		return s.cfg.StressWindows
	}
	p := s.runner.Panel()
	return domain.DefaultStressWindows(s.runner.Split().OutOfSampleStart, p.End())
}

// Stress compares strategy and buy-and-hold inside each window. Windows with
// fewer than MinStressDays valid strategy returns, including windows outside
// the panel, are omitted.
func (s *Suite) Stress(runID string, rec *backtest.Reconstruction) []*domain.StressRow {
	id := configID(rec.Config)
	p := s.runner.Panel()

	var rows []*domain.StressRow
	for _, w := range s.Windows() {
		lo, hi := p.Range(w.Start, w.End)
		if hi <= lo {
			continue
		}
		strat := series.DropNaN(rec.Returns[lo:hi])
		if len(strat) < s.cfg.MinStressDays {
			continue
		}
		bench := series.DropNaN(rec.AssetReturns[lo:hi])

		sharpe := metrics.Sharpe(strat)
		benchSharpe := metrics.Sharpe(bench)
		rows = append(rows, &domain.StressRow{
			RunID:                runID,
			ConfigID:             id,
			Configuration:        rec.Config,
			Window:               w.Name,
			Start:                w.Start,
			End:                  w.End,
			Sharpe:               sharpe,
			AnnReturn:            metrics.AnnualizedReturn(strat),
			MaxDrawdown:          metrics.MaxDrawdown(strat),
			BenchmarkSharpe:      benchSharpe,
			BenchmarkAnnReturn:   metrics.AnnualizedReturn(bench),
			BenchmarkMaxDrawdown: metrics.MaxDrawdown(bench),
			ExcessSharpe:         excess(sharpe, benchSharpe),
			Days:                 len(strat),
		})
	}
	return rows
}
