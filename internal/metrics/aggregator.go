package metrics

import (
	"math"
	"sort"

	"credit-signal-lab/internal/domain"
)

// SignalSummary aggregates tournament rows that share a signal.
type SignalSummary struct {
	SignalID      string
	Combinations  int
	Valid         int
	MeanOOSSharpe float64 // over rows with a defined OOS Sharpe
	BestOOSSharpe float64
	BestConfigID  string
	BestConfig    domain.Configuration
	ValidFamilies map[domain.StrategyFamily]int
}

// SummarizeBySignal groups results by signal ID, excluding the benchmark row.
// Output is sorted by SignalID ASC.
func SummarizeBySignal(results []*domain.TournamentResult) []*SignalSummary {
	bySignal := make(map[string]*SignalSummary)
	sums := make(map[string]float64)
	counts := make(map[string]int)

	for _, r := range results {
		if r.Benchmark {
			continue
		}
		s, ok := bySignal[r.SignalID]
		if !ok {
			s = &SignalSummary{
				SignalID:      r.SignalID,
				MeanOOSSharpe: math.NaN(),
				BestOOSSharpe: math.NaN(),
				ValidFamilies: make(map[domain.StrategyFamily]int),
			}
			bySignal[r.SignalID] = s
		}
		s.Combinations++
		if r.Valid {
			s.Valid++
			s.ValidFamilies[r.Family]++
		}
		sharpe := r.OutOfSample.Sharpe
		if math.IsNaN(sharpe) {
			continue
		}
		sums[r.SignalID] += sharpe
		counts[r.SignalID]++
		if math.IsNaN(s.BestOOSSharpe) || sharpe > s.BestOOSSharpe ||
			(sharpe == s.BestOOSSharpe && r.ConfigID < s.BestConfigID) {
			s.BestOOSSharpe = sharpe
			s.BestConfigID = r.ConfigID
			s.BestConfig = r.Configuration
		}
	}

	out := make([]*SignalSummary, 0, len(bySignal))
	for id, s := range bySignal {
		if counts[id] > 0 {
			s.MeanOOSSharpe = sums[id] / float64(counts[id])
		}
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SignalID < out[j].SignalID })
	return out
}

// ValidShare returns the fraction of non-benchmark rows marked valid.
func ValidShare(results []*domain.TournamentResult) float64 {
	total, valid := 0, 0
	for _, r := range results {
		if r.Benchmark {
			continue
		}
		total++
		if r.Valid {
			valid++
		}
	}
	if total == 0 {
		return 0
	}
	return float64(valid) / float64(total)
}
