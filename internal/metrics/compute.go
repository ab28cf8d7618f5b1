package metrics

import (
	"math"

	"credit-signal-lab/internal/domain"
	"credit-signal-lab/internal/series"
)

// Annualization and sufficiency constants.
const (
	TradingDays     = 252
	MinObservations = 30 // below this a performance record is undefined
	MinDownsideDays = 10 // Sortino needs more negative days than this
)

// Compute calculates a PerformanceRecord from daily returns.
// NaN returns are dropped first. With fewer than MinObservations valid
// returns the record is undefined (see domain.UndefinedPerformance).
// Returns must be in chronological order.
func Compute(returns []float64) domain.PerformanceRecord {
	r := series.DropNaN(returns)
	if len(r) < MinObservations {
		return domain.UndefinedPerformance()
	}

	annRet := computeMean(r) * TradingDays
	annVol := computeStddev(r, computeMean(r)) * math.Sqrt(TradingDays)

	rec := domain.PerformanceRecord{
		AnnReturn: annRet,
		AnnVol:    annVol,
		Sharpe:    ratio(annRet, annVol),
		Sortino:   math.NaN(),
		Calmar:    math.NaN(),
		WinRate:   computeWinRate(r),
		Days:      len(r),
	}

	var downside []float64
	for _, v := range r {
		if v < 0 {
			downside = append(downside, v)
		}
	}
	if len(downside) > MinDownsideDays {
		downVol := computeStddev(downside, computeMean(downside)) * math.Sqrt(TradingDays)
		rec.Sortino = ratio(annRet, downVol)
	}

	dd := computeDrawdowns(r)
	rec.MaxDrawdown = minOf(dd)
	if rec.MaxDrawdown != 0 {
		rec.Calmar = annRet / math.Abs(rec.MaxDrawdown)
	}
	rec.AvgDrawdown = computeAvgDrawdown(dd)

	return rec
}

// Sharpe returns the annualized Sharpe ratio of the defined returns,
// NaN when volatility is zero or undefined.
func Sharpe(returns []float64) float64 {
	r := series.DropNaN(returns)
	if len(r) < 2 {
		return math.NaN()
	}
	mean := computeMean(r)
	return ratio(mean*TradingDays, computeStddev(r, mean)*math.Sqrt(TradingDays))
}

// AnnualizedReturn returns mean daily return * 252 over defined values.
func AnnualizedReturn(returns []float64) float64 {
	r := series.DropNaN(returns)
	if len(r) == 0 {
		return math.NaN()
	}
	return computeMean(r) * TradingDays
}

// AnnualizedVol returns sample std * sqrt(252) over defined values.
func AnnualizedVol(returns []float64) float64 {
	r := series.DropNaN(returns)
	if len(r) < 2 {
		return math.NaN()
	}
	return computeStddev(r, computeMean(r)) * math.Sqrt(TradingDays)
}

// MaxDrawdown returns the most negative peak-to-trough decline of the
// compounded equity curve of the defined returns (<= 0), NaN if none.
func MaxDrawdown(returns []float64) float64 {
	r := series.DropNaN(returns)
	if len(r) == 0 {
		return math.NaN()
	}
	return minOf(computeDrawdowns(r))
}

func ratio(num, den float64) float64 {
	if math.IsNaN(den) || den <= 0 {
		return math.NaN()
	}
	return num / den
}

// computeMean calculates arithmetic mean.
func computeMean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// computeStddev calculates sample standard deviation (n-1 denominator).
func computeStddev(values []float64, mean float64) float64 {
	n := len(values)
	if n < 2 {
		return math.NaN()
	}
	sumSq := 0.0
	for _, v := range values {
		diff := v - mean
		sumSq += diff * diff
	}
	return math.Sqrt(sumSq / float64(n-1))
}

// computeWinRate returns the share of strictly positive returns.
func computeWinRate(values []float64) float64 {
	if len(values) == 0 {
		return math.NaN()
	}
	wins := 0
	for _, v := range values {
		if v > 0 {
			wins++
		}
	}
	return float64(wins) / float64(len(values))
}

// computeDrawdowns returns (equity - running peak) / running peak for the
// compounded equity curve. The peak starts at the first equity value.
func computeDrawdowns(values []float64) []float64 {
	dd := make([]float64, len(values))
	equity := 1.0
	peak := math.Inf(-1)
	for i, v := range values {
		equity *= 1 + v
		if equity > peak {
			peak = equity
		}
		dd[i] = (equity - peak) / peak
	}
	return dd
}

// computeAvgDrawdown averages the negative drawdown observations, 0 if none.
func computeAvgDrawdown(dd []float64) float64 {
	sum, n := 0.0, 0
	for _, v := range dd {
		if v < 0 {
			sum += v
			n++
		}
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}

func minOf(values []float64) float64 {
	m := math.Inf(1)
	for _, v := range values {
		if v < m {
			m = v
		}
	}
	return m
}
