package validation

import (
	"fmt"
	"math"
	"math/rand/v2"

	"credit-signal-lab/internal/backtest"
	"credit-signal-lab/internal/domain"
	"credit-signal-lab/internal/metrics"
	"credit-signal-lab/internal/series"
)

// SignificanceLevel is the p-value at or below which a bootstrap is significant.
const SignificanceLevel = 0.05

// BootstrapSummary describes the resampled Sharpe distribution.
type BootstrapSummary struct {
	Observed float64
	Mean     float64
	CILower  float64
	CIUpper  float64
	PValue   float64
	Days     int
}

// BootstrapSharpe resamples the defined returns with replacement, each draw
// as long as the input, and summarizes the annualized Sharpe of every draw.
// Draws are scored with the population std; a draw with zero dispersion
// scores 0. The generator is a PCG seeded with seed.
func BootstrapSharpe(returns []float64, resamples int, seed uint64) BootstrapSummary {
	r := series.DropNaN(returns)
	n := len(r)
	out := BootstrapSummary{
		Observed: metrics.Sharpe(r),
		Days:     n,
	}
	if n == 0 || resamples <= 0 {
		out.Mean, out.CILower, out.CIUpper, out.PValue = math.NaN(), math.NaN(), math.NaN(), math.NaN()
		return out
	}

	rng := rand.New(rand.NewPCG(seed, seed))
	draws := make([]float64, resamples)
	sample := make([]float64, n)
	nonPositive := 0
	for b := range draws {
		for i := range sample {
			sample[i] = r[rng.IntN(n)]
		}
		sharpe := drawSharpe(sample)
		draws[b] = sharpe
		if sharpe <= 0 {
			nonPositive++
		}
	}

	out.Mean = series.Mean(draws)
	out.CILower = series.Quantile(draws, 0.025)
	out.CIUpper = series.Quantile(draws, 0.975)
	out.PValue = float64(nonPositive) / float64(resamples)
	return out
}

// drawSharpe is the annualized Sharpe of one resample with an n denominator.
func drawSharpe(sample []float64) float64 {
	std := series.PopStd(sample)
	if math.IsNaN(std) || std == 0 {
		return 0
	}
	return series.Mean(sample) / std * math.Sqrt(metrics.TradingDays)
}

// Bootstrap tests the out-of-sample Sharpe against the null of a
// non-positive true Sharpe.
func (s *Suite) Bootstrap(runID string, rec *backtest.Reconstruction) (*domain.BootstrapRow, error) {
	oos := rec.OutOfSampleReturns()
	if valid := series.CountValid(oos); valid < s.cfg.MinOOSDays {
		return nil, fmt.Errorf("%w: %d out-of-sample returns", ErrInsufficientData, valid)
	}
	sum := BootstrapSharpe(oos, s.cfg.BootstrapResamples, s.cfg.BootstrapSeed)
	return &domain.BootstrapRow{
		RunID:          runID,
		ConfigID:       configID(rec.Config),
		Configuration:  rec.Config,
		ObservedSharpe: sum.Observed,
		BootMeanSharpe: sum.Mean,
		CILower:        sum.CILower,
		CIUpper:        sum.CIUpper,
		PValue:         sum.PValue,
		Significant:    sum.PValue <= SignificanceLevel,
		Resamples:      s.cfg.BootstrapResamples,
		Seed:           s.cfg.BootstrapSeed,
		Days:           sum.Days,
	}, nil
}
