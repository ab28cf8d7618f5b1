package domain

// ValidationReport bundles the five validation tables of one run.
type ValidationReport struct {
	WalkForward      []*WalkForwardRow
	Bootstrap        []*BootstrapRow
	TransactionCosts []*TransactionCostRow
	Breakeven        []*BreakevenRow
	Decay            []*DecayRow
	Stress           []*StressRow
}
