package reporting

import (
	"fmt"
	"math"
	"slices"
	"strings"
	"time"

	"credit-signal-lab/internal/decision"
	"credit-signal-lab/internal/domain"
	"credit-signal-lab/internal/idhash"
)

// RenderMarkdown renders report as Markdown string.
func RenderMarkdown(r *Report) string {
	var sb strings.Builder

	// Header
	sb.WriteString("# Credit Signal Tournament Report\n\n")
	sb.WriteString(fmt.Sprintf("Generated: %s\n\n", r.GeneratedAt.Format(time.RFC3339)))

	// Summary
	sb.WriteString("## Run Summary\n\n")
	sb.WriteString("| Metric | Value |\n")
	sb.WriteString("|--------|-------|\n")
	if r.Run != nil {
		sb.WriteString(fmt.Sprintf("| Run ID | %s |\n", r.Run.RunID))
		sb.WriteString(fmt.Sprintf("| Status | %s |\n", r.Run.Status))
		sb.WriteString(fmt.Sprintf("| Panel | %s to %s |\n", fmtDate(r.Run.PanelStart), fmtDate(r.Run.PanelEnd)))
		sb.WriteString(fmt.Sprintf("| In-sample end | %s |\n", fmtDate(r.Run.InSampleEnd)))
		sb.WriteString(fmt.Sprintf("| Out-of-sample start | %s |\n", fmtDate(r.Run.OutOfSampleStart)))
		sb.WriteString(fmt.Sprintf("| Combinations | %d |\n", r.Run.Combinations))
		sb.WriteString(fmt.Sprintf("| Scored | %d |\n", r.Run.Scored))
		sb.WriteString(fmt.Sprintf("| Skipped | %d |\n", r.Run.Skipped))
	}
	sb.WriteString(fmt.Sprintf("| Valid | %d |\n", r.ValidCount()))
	sb.WriteString(fmt.Sprintf("| Robust (GO) | %d/%d |\n", r.GoCount(), len(r.Robustness)))
	sb.WriteString("\n")

	// Data Quality
	sb.WriteString("## Data Quality\n\n")
	if len(r.DataQuality.SufficiencyChecks) > 0 {
		sb.WriteString("| Check | Threshold | Actual | Status |\n")
		sb.WriteString("|-------|-----------|--------|--------|\n")
		for _, check := range r.DataQuality.SufficiencyChecks {
			sb.WriteString(fmt.Sprintf("| %s | %s | %s | %s |\n",
				check.Name, check.Threshold, check.Actual, passFail(check.Pass)))
		}
		sb.WriteString("\n")
		if r.DataQuality.AllChecksPassed {
			sb.WriteString("**All checks passed.**\n\n")
		} else {
			sb.WriteString("**Some checks failed.** Results below are not decision grade.\n\n")
		}
	} else {
		sb.WriteString("No data quality checks performed.\n\n")
	}
	for _, note := range r.DataQuality.Notes {
		sb.WriteString(fmt.Sprintf("- %s\n", note))
	}
	if len(r.DataQuality.Notes) > 0 {
		sb.WriteString("\n")
	}

	if len(r.Ineligible) > 0 {
		sb.WriteString("### Ineligible Signals\n\n")
		sb.WriteString("| Signal | Column | Reason |\n")
		sb.WriteString("|--------|--------|--------|\n")
		for _, s := range r.Ineligible {
			sb.WriteString(fmt.Sprintf("| %s | %s | %s |\n", s.SignalID, s.Column, s.Reason))
		}
		sb.WriteString("\n")
	}

	writeLeaderboard(&sb, r)
	writeSignals(&sb, r)
	writeWalkForward(&sb, r.Validation)
	writeBootstrap(&sb, r.Validation)
	writeCosts(&sb, r.Validation)
	writeDecay(&sb, r.Validation)
	writeStress(&sb, r.Validation)
	writeRobustness(&sb, r.Robustness)

	// Reproducibility
	sb.WriteString("## Reproducibility\n\n")
	sb.WriteString("| Field | Value |\n")
	sb.WriteString("|-------|-------|\n")
	rep := r.Reproducibility
	sb.WriteString(fmt.Sprintf("| Generator | %s |\n", orDash(rep.GeneratorVersion)))
	sb.WriteString(fmt.Sprintf("| Data source | %s |\n", orDash(rep.DataSource)))
	sb.WriteString(fmt.Sprintf("| Panel fingerprint | %s |\n", orDash(rep.PanelFingerprint)))
	sb.WriteString(fmt.Sprintf("| Bootstrap seed | %d |\n", rep.BootstrapSeed))
	sb.WriteString(fmt.Sprintf("| Bootstrap resamples | %d |\n", rep.Resamples))
	sb.WriteString("\n")

	return sb.String()
}

func writeLeaderboard(sb *strings.Builder, r *Report) {
	sb.WriteString("## Leaderboard\n\n")
	leaders := r.Leaders()
	if len(leaders) == 0 {
		sb.WriteString("No configurations scored.\n\n")
		return
	}
	sb.WriteString("| # | Config | Signal | Lead | Threshold | Family | OOS Sharpe | OOS Return | OOS MaxDD | Trades | Turnover | IS Sharpe | Valid |\n")
	sb.WriteString("|---|--------|--------|------|-----------|--------|------------|------------|-----------|--------|----------|-----------|-------|\n")
	for i, row := range leaders {
		sb.WriteString(fmt.Sprintf("| %d | %s | %s | %d | %s | %s | %s | %s | %s | %d | %s | %s | %s |\n",
			i+1, idhash.ShortID(row.ConfigID), row.SignalID, row.LeadTime, row.ThresholdID, row.Family,
			fmtNum(row.OutOfSample.Sharpe), fmtPct(row.OutOfSample.AnnReturn), fmtPct(row.OutOfSample.MaxDrawdown),
			row.OOSTrades, fmtNum(row.OOSTurnover), fmtNum(row.InSample.Sharpe), yesNo(row.Valid)))
	}
	sb.WriteString("\n")

	if b := r.Benchmark; b != nil {
		sb.WriteString(fmt.Sprintf("Benchmark (buy-and-hold %s): OOS Sharpe %s, return %s, max drawdown %s.\n\n",
			b.SignalColumn, fmtNum(b.OutOfSample.Sharpe), fmtPct(b.OutOfSample.AnnReturn), fmtPct(b.OutOfSample.MaxDrawdown)))
	}
}

func writeSignals(sb *strings.Builder, r *Report) {
	if len(r.Signals) == 0 {
		return
	}
	sb.WriteString("## Signals\n\n")
	sb.WriteString(fmt.Sprintf("Valid share: %s of scored configurations.\n\n", fmtPct(r.ValidShare)))
	sb.WriteString("| Signal | Combinations | Valid | Mean OOS Sharpe | Best OOS Sharpe | Best Config |\n")
	sb.WriteString("|--------|--------------|-------|-----------------|-----------------|-------------|\n")
	for _, s := range r.Signals {
		best := "-"
		if s.BestConfigID != "" {
			best = fmt.Sprintf("%s (lead %d, %s, %s)", idhash.ShortID(s.BestConfigID), s.BestConfig.LeadTime, s.BestConfig.ThresholdID, s.BestConfig.Family)
		}
		sb.WriteString(fmt.Sprintf("| %s | %d | %d | %s | %s | %s |\n",
			s.SignalID, s.Combinations, s.Valid, fmtNum(s.MeanOOSSharpe), fmtNum(s.BestOOSSharpe), best))
	}
	sb.WriteString("\n")
}

func writeWalkForward(sb *strings.Builder, v *domain.ValidationReport) {
	sb.WriteString("## Walk-Forward\n\n")
	if v == nil || len(v.WalkForward) == 0 {
		sb.WriteString("No walk-forward data available.\n\n")
		return
	}

	type summary struct {
		cfg                  domain.Configuration
		years, positive      int
		sumSharpe, sumExcess float64
		nExcess              int
	}
	var order []string
	byID := make(map[string]*summary)
	for _, w := range v.WalkForward {
		s, ok := byID[w.ConfigID]
		if !ok {
			s = &summary{cfg: w.Configuration}
			byID[w.ConfigID] = s
			order = append(order, w.ConfigID)
		}
		if math.IsNaN(w.Sharpe) {
			continue
		}
		s.years++
		s.sumSharpe += w.Sharpe
		if w.Sharpe > 0 {
			s.positive++
		}
		if !math.IsNaN(w.ExcessSharpe) {
			s.sumExcess += w.ExcessSharpe
			s.nExcess++
		}
	}

	sb.WriteString("| Config | Years | Positive | Mean Sharpe | Mean Excess |\n")
	sb.WriteString("|--------|-------|----------|-------------|-------------|\n")
	for _, id := range order {
		s := byID[id]
		sb.WriteString(fmt.Sprintf("| %s | %d | %d | %s | %s |\n",
			s.cfg, s.years, s.positive, fmtNum(mean(s.sumSharpe, s.years)), fmtNum(mean(s.sumExcess, s.nExcess))))
	}
	sb.WriteString("\n")
}

func writeBootstrap(sb *strings.Builder, v *domain.ValidationReport) {
	sb.WriteString("## Bootstrap Significance\n\n")
	if v == nil || len(v.Bootstrap) == 0 {
		sb.WriteString("No bootstrap data available.\n\n")
		return
	}
	sb.WriteString("| Config | Observed | Boot Mean | 95% CI | p-value | Significant |\n")
	sb.WriteString("|--------|----------|-----------|--------|---------|-------------|\n")
	for _, b := range v.Bootstrap {
		sb.WriteString(fmt.Sprintf("| %s | %s | %s | [%s, %s] | %s | %s |\n",
			b.Configuration, fmtNum(b.ObservedSharpe), fmtNum(b.BootMeanSharpe),
			fmtNum(b.CILower), fmtNum(b.CIUpper), fmtNum(b.PValue), yesNo(b.Significant)))
	}
	sb.WriteString("\n")
}

func writeCosts(sb *strings.Builder, v *domain.ValidationReport) {
	sb.WriteString("## Transaction Costs\n\n")
	if v == nil || len(v.TransactionCosts) == 0 {
		sb.WriteString("No transaction cost data available.\n\n")
		return
	}

	var levels []float64
	for _, c := range v.TransactionCosts {
		if !slices.Contains(levels, c.CostBps) {
			levels = append(levels, c.CostBps)
		}
	}
	slices.Sort(levels)

	sharpe := make(map[string]map[float64]float64)
	var order []string
	cfgs := make(map[string]domain.Configuration)
	for _, c := range v.TransactionCosts {
		if _, ok := sharpe[c.ConfigID]; !ok {
			sharpe[c.ConfigID] = make(map[float64]float64)
			order = append(order, c.ConfigID)
			cfgs[c.ConfigID] = c.Configuration
		}
		sharpe[c.ConfigID][c.CostBps] = c.Sharpe
	}
	breakeven := make(map[string]float64)
	for _, b := range v.Breakeven {
		breakeven[b.ConfigID] = b.BreakevenBps
	}

	sb.WriteString("| Config |")
	for _, l := range levels {
		sb.WriteString(fmt.Sprintf(" %g bps |", l))
	}
	sb.WriteString(" Breakeven |\n|--------|")
	for range levels {
		sb.WriteString("------|")
	}
	sb.WriteString("-----------|\n")
	for _, id := range order {
		sb.WriteString(fmt.Sprintf("| %s |", cfgs[id]))
		for _, l := range levels {
			val, ok := sharpe[id][l]
			if !ok {
				val = math.NaN()
			}
			sb.WriteString(fmt.Sprintf(" %s |", fmtNum(val)))
		}
		be, ok := breakeven[id]
		if !ok {
			be = math.NaN()
		}
		sb.WriteString(fmt.Sprintf(" %s |\n", fmtBps(be)))
	}
	sb.WriteString("\n")
}

func writeDecay(sb *strings.Builder, v *domain.ValidationReport) {
	sb.WriteString("## Execution Delay\n\n")
	if v == nil || len(v.Decay) == 0 {
		sb.WriteString("No signal decay data available.\n\n")
		return
	}
	sb.WriteString("| Config | Extra Delay | Total Lead | Sharpe | Return | Days |\n")
	sb.WriteString("|--------|-------------|------------|--------|--------|------|\n")
	for _, d := range v.Decay {
		sb.WriteString(fmt.Sprintf("| %s | %d | %d | %s | %s | %d |\n",
			d.Configuration, d.ExtraDelay, d.TotalLead, fmtNum(d.Sharpe), fmtPct(d.AnnReturn), d.Days))
	}
	sb.WriteString("\n")
}

func writeStress(sb *strings.Builder, v *domain.ValidationReport) {
	sb.WriteString("## Stress Periods\n\n")
	if v == nil || len(v.Stress) == 0 {
		sb.WriteString("No stress window overlapped the panel.\n\n")
		return
	}
	sb.WriteString("| Config | Window | Sharpe | Return | MaxDD | BH Sharpe | BH Return | BH MaxDD | Excess |\n")
	sb.WriteString("|--------|--------|--------|--------|-------|-----------|-----------|----------|--------|\n")
	for _, s := range v.Stress {
		sb.WriteString(fmt.Sprintf("| %s | %s | %s | %s | %s | %s | %s | %s | %s |\n",
			s.Configuration, s.Window, fmtNum(s.Sharpe), fmtPct(s.AnnReturn), fmtPct(s.MaxDrawdown),
			fmtNum(s.BenchmarkSharpe), fmtPct(s.BenchmarkAnnReturn), fmtPct(s.BenchmarkMaxDrawdown),
			fmtNum(s.ExcessSharpe)))
	}
	sb.WriteString("\n")
}

func writeRobustness(sb *strings.Builder, rows []RobustnessRow) {
	sb.WriteString("## Robustness Gate\n\n")
	if len(rows) == 0 {
		sb.WriteString("No configurations validated.\n\n")
		return
	}
	for _, row := range rows {
		sb.WriteString(decision.RenderMarkdown(row.Configuration.String(), row.Result))
	}
}

func fmtNum(v float64) string {
	switch {
	case math.IsNaN(v):
		return "n/a"
	case math.IsInf(v, 1):
		return "inf"
	case math.IsInf(v, -1):
		return "-inf"
	}
	return fmt.Sprintf("%.3f", v)
}

func fmtPct(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return fmtNum(v)
	}
	return fmt.Sprintf("%.2f%%", v*100)
}

func fmtBps(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return fmtNum(v)
	}
	return fmt.Sprintf("%.1f bps", v)
}

func fmtDate(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Format(time.DateOnly)
}

func mean(sum float64, n int) float64 {
	if n == 0 {
		return math.NaN()
	}
	return sum / float64(n)
}

func passFail(ok bool) string {
	if ok {
		return "PASS"
	}
	return "FAIL"
}

func yesNo(ok bool) string {
	if ok {
		return "yes"
	}
	return "no"
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
