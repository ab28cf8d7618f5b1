package strategy

import (
	"math"

	"credit-signal-lab/internal/domain"
	"credit-signal-lab/internal/series"
)

// Default normalization window for signal-strength sizing.
const (
	DefaultStrengthWindow    = 504
	DefaultStrengthMinPeriod = 252
)

// SignalStrengthStrategy sizes exposure continuously in [0, 1].
//
// Bullish probabilities are used directly as exposure. Other signals are
// placed within their trailing min/max range; stress-high signals are
// inverted so that a signal at its trailing high gives zero exposure.
// The threshold is not read.
type SignalStrengthStrategy struct {
	window     int
	minPeriods int
}

// NewSignalStrengthStrategy creates a SignalStrengthStrategy.
func NewSignalStrengthStrategy(window, minPeriods int) *SignalStrengthStrategy {
	return &SignalStrengthStrategy{window: window, minPeriods: minPeriods}
}

// Family implements Strategy.
func (s *SignalStrengthStrategy) Family() domain.StrategyFamily {
	return domain.FamilySignalStrength
}

// Positions implements Strategy.
func (s *SignalStrengthStrategy) Positions(input *Input) []float64 {
	if input.Kind == domain.KindProbability && input.Polarity == domain.PolarityBullishHigh {
		return series.Clip(input.Signal, 0, 1)
	}

	lo := series.RollingMin(input.Signal, s.window, s.minPeriods)
	hi := series.RollingMax(input.Signal, s.window, s.minPeriods)
	out := make([]float64, len(input.Signal))
	for i, v := range input.Signal {
		rng := hi[i] - lo[i]
		if isNaN(v) || isNaN(rng) || rng == 0 {
			out[i] = math.NaN()
			continue
		}
		norm := (v - lo[i]) / rng
		if input.Polarity != domain.PolarityBullishHigh {
			norm = 1 - norm
		}
		out[i] = norm
	}
	return series.Clip(out, 0, 1)
}
