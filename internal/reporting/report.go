package reporting

import (
	"time"

	"credit-signal-lab/internal/decision"
	"credit-signal-lab/internal/domain"
	"credit-signal-lab/internal/metrics"
)

// Report is the tournament report of one run.
type Report struct {
	// Metadata
	GeneratedAt time.Time
	Run         *domain.Run

	// Data Quality (sufficiency checks)
	DataQuality DataQualitySection

	// Results, ranked with the benchmark included
	Results   []*domain.TournamentResult
	Benchmark *domain.TournamentResult
	TopN      int

	// Per-signal aggregates, sorted by signal ID
	Signals    []*metrics.SignalSummary
	ValidShare float64

	// Validation tables of the shortlist; empty when the run was not validated
	Validation *domain.ValidationReport

	// Robustness verdicts, in shortlist rank order
	Robustness []RobustnessRow

	// Signals left out of the search
	Ineligible []IneligibleRow

	Reproducibility Reproducibility
}

// DataQualitySection contains data sufficiency checks.
type DataQualitySection struct {
	SufficiencyChecks []SufficiencyCheckRow
	Notes             []string
	AllChecksPassed   bool
}

// SufficiencyCheckRow represents one sufficiency criterion.
type SufficiencyCheckRow struct {
	Name      string
	Threshold string
	Actual    string
	Pass      bool
}

// RobustnessRow is the gate verdict of one validated configuration.
type RobustnessRow struct {
	ConfigID string
	domain.Configuration
	Result *decision.Result
}

// IneligibleRow lists a signal the tournament could not use.
type IneligibleRow struct {
	SignalID string
	Column   string
	Reason   string
}

// Reproducibility pins what is needed to rerun the report's numbers.
type Reproducibility struct {
	GeneratorVersion string
	PanelFingerprint string
	BootstrapSeed    uint64
	Resamples        int
	DataSource       string // "fixtures", "csv" or "clickhouse"
}

// Leaders returns up to TopN non-benchmark rows in rank order.
func (r *Report) Leaders() []*domain.TournamentResult {
	var out []*domain.TournamentResult
	for _, row := range r.Results {
		if r.TopN > 0 && len(out) == r.TopN {
			break
		}
		if !row.Benchmark {
			out = append(out, row)
		}
	}
	return out
}

// ValidCount returns the number of valid non-benchmark rows.
func (r *Report) ValidCount() int {
	n := 0
	for _, row := range r.Results {
		if row.Valid && !row.Benchmark {
			n++
		}
	}
	return n
}

// GoCount returns the number of configurations that passed the robustness gate.
func (r *Report) GoCount() int {
	n := 0
	for _, row := range r.Robustness {
		if row.Result.Verdict == decision.VerdictGO {
			n++
		}
	}
	return n
}
