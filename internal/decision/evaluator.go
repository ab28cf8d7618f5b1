package decision

import (
	"fmt"
	"math"
)

// Evaluator evaluates decision criteria.
type Evaluator struct {
	validity   ValidityCriteria
	robustness RobustnessCriteria
}

// NewEvaluator creates an evaluator with the default criteria.
func NewEvaluator() *Evaluator {
	return &Evaluator{
		validity:   DefaultValidityCriteria(),
		robustness: DefaultRobustnessCriteria(),
	}
}

// WithValidityCriteria overrides the validity bounds.
func (e *Evaluator) WithValidityCriteria(c ValidityCriteria) *Evaluator {
	e.validity = c
	return e
}

// WithRobustnessCriteria overrides the robustness gate.
func (e *Evaluator) WithRobustnessCriteria(c RobustnessCriteria) *Evaluator {
	e.robustness = c
	return e
}

// Valid reports whether input passes every validity criterion.
func (e *Evaluator) Valid(input ValidityInput) bool {
	return e.EvaluateValidity(input).Verdict == VerdictValid
}

// EvaluateValidity applies the validity conjunction.
// An undefined Sharpe or turnover fails its criterion.
func (e *Evaluator) EvaluateValidity(input ValidityInput) *Result {
	c := e.validity
	criteria := []CriterionResult{
		{
			Name:      "OOS Sharpe",
			Threshold: fmt.Sprintf(">= %.2f", c.MinSharpe),
			Actual:    fmt.Sprintf("%.4f", input.Sharpe),
			Pass:      !math.IsNaN(input.Sharpe) && input.Sharpe >= c.MinSharpe,
		},
		{
			Name:      "OOS turnover",
			Threshold: fmt.Sprintf("<= %.0f/yr", c.MaxTurnover),
			Actual:    fmt.Sprintf("%.2f/yr", input.Turnover),
			Pass:      !math.IsNaN(input.Turnover) && input.Turnover <= c.MaxTurnover,
		},
		{
			Name:      "OOS trades",
			Threshold: fmt.Sprintf(">= %d", c.MinTrades),
			Actual:    fmt.Sprintf("%d", input.Trades),
			Pass:      input.Trades >= c.MinTrades,
		},
	}
	return conclude(criteria, VerdictValid, VerdictInvalid)
}

// EvaluateRobustness applies the robustness gate to a validated winner.
// GO only if every criterion passes.
func (e *Evaluator) EvaluateRobustness(input RobustnessInput) *Result {
	c := e.robustness
	criteria := []CriterionResult{
		{
			Name:      "Bootstrap significance",
			Threshold: fmt.Sprintf("p <= %.2f", c.MaxPValue),
			Actual:    fmt.Sprintf("p = %.4f", input.PValue),
			Pass:      !math.IsNaN(input.PValue) && input.PValue <= c.MaxPValue,
		},
		{
			Name:      "Breakeven cost",
			Threshold: fmt.Sprintf(">= %.0f bps", c.MinBreakevenBps),
			Actual:    fmt.Sprintf("%.1f bps", input.BreakevenBps),
			Pass:      !math.IsNaN(input.BreakevenBps) && input.BreakevenBps >= c.MinBreakevenBps,
		},
		{
			Name:      "Walk-forward consistency",
			Threshold: fmt.Sprintf(">= %.0f%% years beating buy-and-hold", c.MinPositiveYears*100),
			Actual:    fmt.Sprintf("%.0f%%", input.PositiveYears*100),
			Pass:      !math.IsNaN(input.PositiveYears) && input.PositiveYears >= c.MinPositiveYears,
		},
		{
			Name:      "Execution delay",
			Threshold: fmt.Sprintf("Sharpe >= %.2f at max delay", c.MinDelayedSharpe),
			Actual:    fmt.Sprintf("%.4f (+%dd)", input.DelayedSharpe, input.MaxExtraDelay),
			Pass:      !math.IsNaN(input.DelayedSharpe) && input.DelayedSharpe >= c.MinDelayedSharpe,
		},
		{
			Name:      "Full OOS vs buy-and-hold",
			Threshold: fmt.Sprintf("excess Sharpe >= %.2f", c.MinFullOOSExcess),
			Actual:    fmt.Sprintf("%.4f", input.FullOOSExcess),
			Pass:      !math.IsNaN(input.FullOOSExcess) && input.FullOOSExcess >= c.MinFullOOSExcess,
		},
	}
	if c.RequireStressWins {
		criteria = append(criteria, CriterionResult{
			Name:      "Crisis windows",
			Threshold: "positive excess Sharpe in every covered window",
			Actual:    fmt.Sprintf("%d/%d", input.StressOutperform, input.StressWindows),
			Pass:      input.StressOutperform == input.StressWindows,
		})
	}
	return conclude(criteria, VerdictGO, VerdictNOGO)
}

func conclude(criteria []CriterionResult, pass, fail Verdict) *Result {
	verdict := pass
	for _, c := range criteria {
		if !c.Pass {
			verdict = fail
			break
		}
	}
	return &Result{Verdict: verdict, Criteria: criteria}
}
