// Package decision evaluates explicit pass/fail criteria: the tournament
// validity rule and the robustness gate applied to validated winners.
package decision

// Verdict is the outcome of a criteria gate.
type Verdict string

// Verdict constants
const (
	VerdictValid   Verdict = "VALID"
	VerdictInvalid Verdict = "INVALID"
	VerdictGO      Verdict = "GO"
	VerdictNOGO    Verdict = "NO-GO"
)

// ValidityCriteria are the tournament validity bounds.
type ValidityCriteria struct {
	MinSharpe   float64 // OOS Sharpe must be >= this; NaN fails
	MaxTurnover float64 // OOS trades per year must be <= this
	MinTrades   int     // OOS trade count must be >= this
}

// DefaultValidityCriteria returns Sharpe >= 0, turnover <= 24/yr, trades >= 30.
func DefaultValidityCriteria() ValidityCriteria {
	return ValidityCriteria{MinSharpe: 0, MaxTurnover: 24, MinTrades: 30}
}

// ValidityInput holds the out-of-sample figures the validity rule reads.
type ValidityInput struct {
	Sharpe   float64
	Turnover float64
	Trades   int
}

// RobustnessCriteria bound the validation evidence for a winner.
type RobustnessCriteria struct {
	MaxPValue         float64 // bootstrap p-value must not exceed this
	MinBreakevenBps   float64 // breakeven cost must be at least this
	MinPositiveYears  float64 // share of walk-forward years with excess Sharpe > 0
	MinDelayedSharpe  float64 // OOS Sharpe at the largest extra delay
	MinFullOOSExcess  float64 // Full_OOS excess Sharpe over buy-and-hold
	RequireStressWins bool    // excess Sharpe must be positive in every covered crisis window
}

// DefaultRobustnessCriteria returns the gate used in reports.
func DefaultRobustnessCriteria() RobustnessCriteria {
	return RobustnessCriteria{
		MaxPValue:        0.05,
		MinBreakevenBps:  20,
		MinPositiveYears: 0.5,
		MinDelayedSharpe: 0,
		MinFullOOSExcess: -0.25,
	}
}

// RobustnessInput summarizes one winner's validation tables.
type RobustnessInput struct {
	ConfigID string

	PValue           float64
	BreakevenBps     float64
	PositiveYears    float64 // share of walk-forward years with excess Sharpe > 0, NaN if none
	DelayedSharpe    float64 // Sharpe at MaxExtraDelay, NaN when no delay was scored
	MaxExtraDelay    int     // largest scored extra delay
	FullOOSExcess    float64 // NaN when the window was not scored
	StressWindows    int     // crisis windows with enough data
	StressOutperform int     // of those, windows with positive excess Sharpe
}

// CriterionResult represents pass/fail for one criterion.
type CriterionResult struct {
	Name      string
	Threshold string
	Actual    string
	Pass      bool
}

// Result contains the verdict with its checklist.
type Result struct {
	Verdict  Verdict
	Criteria []CriterionResult
}

// Failed returns the criteria that did not pass.
func (r *Result) Failed() []CriterionResult {
	var out []CriterionResult
	for _, c := range r.Criteria {
		if !c.Pass {
			out = append(out, c)
		}
	}
	return out
}
