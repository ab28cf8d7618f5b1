package domain

import "fmt"

// StrategyFamily maps a regime indicator to an exposure.
type StrategyFamily string

// Strategy family constants
const (
	FamilyLongCash       StrategyFamily = "LONG_CASH"       // 1 when calm, 0 when stressed
	FamilySignalStrength StrategyFamily = "SIGNAL_STRENGTH" // continuous exposure in [0, 1]
	FamilyLongShort      StrategyFamily = "LONG_SHORT"      // 1 when calm, -1 when stressed
)

// AllFamilies returns the strategy families in enumeration order.
func AllFamilies() []StrategyFamily {
	return []StrategyFamily{FamilyLongCash, FamilySignalStrength, FamilyLongShort}
}

// Valid reports whether f is a known family.
func (f StrategyFamily) Valid() bool {
	switch f {
	case FamilyLongCash, FamilySignalStrength, FamilyLongShort:
		return true
	}
	return false
}

// Configuration identifies one point in the tournament search space.
type Configuration struct {
	SignalID    string         // e.g. "S2a"
	LeadTime    int            // business days the signal is shifted before use
	ThresholdID string         // canonical threshold method ID, e.g. "BAND_2.0"
	Family      StrategyFamily // position construction
}

// String renders a compact human-readable key.
func (c Configuration) String() string {
	return fmt.Sprintf("%s|lead=%d|%s|%s", c.SignalID, c.LeadTime, c.ThresholdID, c.Family)
}

// WithLead returns a copy of c with a different lead time.
func (c Configuration) WithLead(lead int) Configuration {
	c.LeadTime = lead
	return c
}
