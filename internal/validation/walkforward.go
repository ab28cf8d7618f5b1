package validation

import (
	"math"

	"credit-signal-lab/internal/backtest"
	"credit-signal-lab/internal/domain"
	"credit-signal-lab/internal/metrics"
	"credit-signal-lab/internal/series"
)

// WalkForward slices the full return series into calendar years and scores
// each year independently against buy-and-hold over the same dates.
// Years with fewer than MinYearDays valid returns are omitted.
func (s *Suite) WalkForward(runID string, rec *backtest.Reconstruction) []*domain.WalkForwardRow {
	var rows []*domain.WalkForwardRow
	id := configID(rec.Config)

	lo := 0
	for lo < len(rec.Dates) {
		year := rec.Dates[lo].Year()
		hi := lo
		for hi < len(rec.Dates) && rec.Dates[hi].Year() == year {
			hi++
		}

		strat := series.DropNaN(rec.Returns[lo:hi])
		if len(strat) >= s.cfg.MinYearDays {
			sharpe := metrics.Sharpe(strat)
			bench := metrics.Sharpe(rec.AssetReturns[lo:hi])
			rows = append(rows, &domain.WalkForwardRow{
				RunID:           runID,
				ConfigID:        id,
				Configuration:   rec.Config,
				Year:            year,
				Sharpe:          sharpe,
				AnnReturn:       metrics.AnnualizedReturn(strat),
				AnnVol:          metrics.AnnualizedVol(strat),
				BenchmarkSharpe: bench,
				ExcessSharpe:    excess(sharpe, bench),
				Days:            len(strat),
			})
		}
		lo = hi
	}
	return rows
}

func excess(a, b float64) float64 {
	if math.IsNaN(a) || math.IsNaN(b) {
		return math.NaN()
	}
	return a - b
}
