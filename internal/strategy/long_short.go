package strategy

import "credit-signal-lab/internal/domain"

// LongShortStrategy is long when calm and short when stressed.
// Positions equal 2 * LongCash - 1 on every defined date.
type LongShortStrategy struct{}

// NewLongShortStrategy creates a LongShortStrategy.
func NewLongShortStrategy() *LongShortStrategy {
	return &LongShortStrategy{}
}

// Family implements Strategy.
func (s *LongShortStrategy) Family() domain.StrategyFamily {
	return domain.FamilyLongShort
}

// Positions implements Strategy.
func (s *LongShortStrategy) Positions(input *Input) []float64 {
	return fromRegimes(Regimes(input), 1, -1)
}
