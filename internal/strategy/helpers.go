package strategy

import (
	"math"

	"credit-signal-lab/internal/series"
)

func isNaN(v float64) bool {
	return math.IsNaN(v)
}

// ApplyNextDay returns positions[t-1] * assetReturns[t]: a position decided
// with information up to t-1 earns the return of day t.
func ApplyNextDay(positions, assetReturns []float64) []float64 {
	prev := series.Shift(positions, 1)
	out := make([]float64, len(assetReturns))
	for t := range assetReturns {
		out[t] = prev[t] * assetReturns[t]
	}
	return out
}

// TradeIndicator returns |positions[t] - last|, where last is the most recent
// defined position before t, so a change across a gap is recorded on the first
// defined day after it. Undefined positions are NaN; the first defined
// position is 0.
func TradeIndicator(positions []float64) []float64 {
	out := make([]float64, len(positions))
	last := math.NaN()
	for i, p := range positions {
		switch {
		case isNaN(p):
			out[i] = math.NaN()
		case isNaN(last):
			out[i] = 0
			last = p
		default:
			out[i] = math.Abs(p - last)
			last = p
		}
	}
	return out
}

// CountTrades counts the dates in [lo, hi) where the position changed.
func CountTrades(indicator []float64, lo, hi int) int {
	n := 0
	for t := lo; t < hi; t++ {
		if indicator[t] > 0 {
			n++
		}
	}
	return n
}

// AnnualTurnover converts a trade count into trades per year of valid
// observations. NaN when there are no observations.
func AnnualTurnover(trades, validDays int) float64 {
	if validDays == 0 {
		return math.NaN()
	}
	return float64(trades) / (float64(validDays) / 252)
}
