package strategy

import (
	"errors"
	"fmt"

	"credit-signal-lab/internal/domain"
)

// Factory errors
var (
	ErrUnknownFamily = errors.New("unknown strategy family")
)

// FromFamily creates the Strategy for a family with default parameters.
func FromFamily(family domain.StrategyFamily) (Strategy, error) {
	switch family {
	case domain.FamilyLongCash:
		return NewLongCashStrategy(), nil
	case domain.FamilySignalStrength:
		return NewSignalStrengthStrategy(DefaultStrengthWindow, DefaultStrengthMinPeriod), nil
	case domain.FamilyLongShort:
		return NewLongShortStrategy(), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownFamily, family)
	}
}
