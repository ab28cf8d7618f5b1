package validation

import (
	"math"

	"credit-signal-lab/internal/backtest"
	"credit-signal-lab/internal/domain"
	"credit-signal-lab/internal/metrics"
	"credit-signal-lab/internal/series"
)

// NetReturns deducts costBps/10000 times the lagged trade indicator from
// each gross return. Undefined gross returns stay undefined.
func NetReturns(gross, laggedTrades []float64, costBps float64) []float64 {
	cost := costBps / 10000
	out := make([]float64, len(gross))
	for i, g := range gross {
		out[i] = g - laggedTrades[i]*cost
	}
	return out
}

// BreakevenBps returns the per-trade cost in basis points that consumes the
// mean gross return: mean(gross) / mean(trades) * 10000. +Inf without trades.
func BreakevenBps(gross, laggedTrades []float64) (bps, tradeRate, grossMean float64) {
	grossMean = series.Mean(gross)
	tradeRate = series.Mean(laggedTrades)
	if math.IsNaN(tradeRate) || tradeRate <= 0 {
		return math.Inf(1), tradeRate, grossMean
	}
	return grossMean / tradeRate * 10000, tradeRate, grossMean
}

// TransactionCosts rescores the out-of-sample window net of each cost level
// and computes the breakeven cost. Cost levels leaving fewer than
// MinOOSDays defined returns are omitted.
func (s *Suite) TransactionCosts(runID string, rec *backtest.Reconstruction) ([]*domain.TransactionCostRow, *domain.BreakevenRow) {
	id := configID(rec.Config)
	gross := rec.OutOfSampleReturns()
	trades := rec.LaggedTrades()[rec.OutOfSampleStart:]

	var rows []*domain.TransactionCostRow
	for _, bps := range s.cfg.CostsBps {
		net := series.DropNaN(NetReturns(gross, trades, bps))
		if len(net) < s.cfg.MinOOSDays {
			continue
		}
		rows = append(rows, &domain.TransactionCostRow{
			RunID:         runID,
			ConfigID:      id,
			Configuration: rec.Config,
			CostBps:       bps,
			Sharpe:        metrics.Sharpe(net),
			AnnReturn:     metrics.AnnualizedReturn(net),
			Days:          len(net),
		})
	}

	bps, rate, mean := BreakevenBps(gross, trades)
	return rows, &domain.BreakevenRow{
		RunID:         runID,
		ConfigID:      id,
		Configuration: rec.Config,
		BreakevenBps:  bps,
		TradeRate:     rate,
		GrossMean:     mean,
	}
}
