// Package strategy turns a signal and its threshold into daily positions.
package strategy

import "credit-signal-lab/internal/domain"

// Strategy maps a lagged signal and its threshold to a position per date.
type Strategy interface {
	// Positions returns one exposure per date. NaN marks an undefined
	// position; callers drop those dates rather than guessing an exposure.
	Positions(input *Input) []float64

	// Family returns the strategy family implemented.
	Family() domain.StrategyFamily
}

// Input holds everything a strategy reads for one configuration.
// Signal is already shifted by the lead time; Threshold is aligned with it.
type Input struct {
	Signal    []float64
	Threshold []float64
	Polarity  domain.Polarity
	Kind      domain.SignalKind
}

// Regime is the tri-state regime indicator.
type Regime int8

// Regime constants
const (
	RegimeUndefined Regime = iota
	RegimeCalm
	RegimeStressed
)

// Regimes classifies every date. Stress-high signals are stressed above the
// threshold, bullish-high signals below it. Either side undefined gives
// RegimeUndefined.
func Regimes(input *Input) []Regime {
	out := make([]Regime, len(input.Signal))
	for i, s := range input.Signal {
		th := input.Threshold[i]
		if isNaN(s) || isNaN(th) {
			out[i] = RegimeUndefined
			continue
		}
		stressed := s > th
		if input.Polarity == domain.PolarityBullishHigh {
			stressed = s < th
		}
		if stressed {
			out[i] = RegimeStressed
		} else {
			out[i] = RegimeCalm
		}
	}
	return out
}
