package strategy

import (
	"math"

	"credit-signal-lab/internal/domain"
)

// LongCashStrategy holds the asset when calm and cash when stressed.
type LongCashStrategy struct{}

// NewLongCashStrategy creates a LongCashStrategy.
func NewLongCashStrategy() *LongCashStrategy {
	return &LongCashStrategy{}
}

// Family implements Strategy.
func (s *LongCashStrategy) Family() domain.StrategyFamily {
	return domain.FamilyLongCash
}

// Positions implements Strategy.
func (s *LongCashStrategy) Positions(input *Input) []float64 {
	return fromRegimes(Regimes(input), 1, 0)
}

func fromRegimes(regimes []Regime, calm, stressed float64) []float64 {
	out := make([]float64, len(regimes))
	for i, r := range regimes {
		switch r {
		case RegimeCalm:
			out[i] = calm
		case RegimeStressed:
			out[i] = stressed
		default:
			out[i] = math.NaN()
		}
	}
	return out
}
