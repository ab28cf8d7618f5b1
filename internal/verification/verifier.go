// Package verification re-scores stored tournament rows from the panel and
// reports any field that no longer matches.
package verification

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/ternarybob/arbor"

	"credit-signal-lab/internal/domain"
	"credit-signal-lab/internal/storage"
	"credit-signal-lab/internal/tournament"
)

// FloatTolerance is the tolerance for float64 comparisons.
const FloatTolerance = 1e-9

// ErrResultNotFound is returned when a stored row doesn't exist.
var ErrResultNotFound = errors.New("tournament result not found")

// FieldDivergence represents a mismatch between stored and replayed values.
type FieldDivergence struct {
	Field    string      // field name
	Expected interface{} // stored value
	Actual   interface{} // replayed value
}

// VerificationResult contains the result of verifying one stored row.
type VerificationResult struct {
	ConfigID       string
	Configuration  domain.Configuration
	Match          bool              // true if all fields match
	Divergences    []FieldDivergence // list of divergent fields
	StoredSharpe   float64           // OOS Sharpe from the stored row
	ReplayedSharpe float64           // OOS Sharpe from the rescored row
}

// VerificationReport contains results for a whole run.
type VerificationReport struct {
	RunID         string
	TotalRows     int
	MatchedRows   int
	DivergentRows int
	Results       []VerificationResult
}

// Verifier re-scores stored rows with a tournament engine built on the
// same panel and catalog the run used.
type Verifier struct {
	store  storage.TournamentResultStore
	engine *tournament.Engine
	logger arbor.ILogger
}

// NewVerifier creates a verifier.
func NewVerifier(store storage.TournamentResultStore, engine *tournament.Engine, logger arbor.ILogger) *Verifier {
	if logger == nil {
		logger = arbor.NewLogger()
	}
	return &Verifier{store: store, engine: engine, logger: logger}
}

// VerifyConfig verifies a single stored row.
func (v *Verifier) VerifyConfig(ctx context.Context, runID, configID string) (*VerificationResult, error) {
	stored, err := v.store.GetByConfigID(ctx, runID, configID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s/%s", ErrResultNotFound, runID, configID)
		}
		return nil, err
	}
	return v.verify(stored)
}

// VerifyRun verifies every stored row of a run. A row that can no longer be
// rescored is reported as divergent, not returned as an error.
func (v *Verifier) VerifyRun(ctx context.Context, runID string) (*VerificationReport, error) {
	rows, err := v.store.GetByRunID(ctx, runID)
	if err != nil {
		return nil, err
	}

	report := &VerificationReport{
		RunID:     runID,
		TotalRows: len(rows),
		Results:   make([]VerificationResult, 0, len(rows)),
	}

	for _, row := range rows {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		result, err := v.verify(row)
		if err != nil {
			result = &VerificationResult{
				ConfigID:      row.ConfigID,
				Configuration: row.Configuration,
				StoredSharpe:  row.OutOfSample.Sharpe,
				Divergences: []FieldDivergence{
					{Field: "Error", Expected: nil, Actual: err.Error()},
				},
			}
		}
		report.Results = append(report.Results, *result)
		if result.Match {
			report.MatchedRows++
		} else {
			report.DivergentRows++
			v.logger.Warn().
				Str("run_id", runID).
				Str("config", row.Configuration.String()).
				Int("divergences", len(result.Divergences)).
				Msg("Stored row does not reproduce")
		}
	}

	v.logger.Info().
		Str("run_id", runID).
		Int("rows", report.TotalRows).
		Int("matched", report.MatchedRows).
		Int("divergent", report.DivergentRows).
		Msg("Run verified")
	return report, nil
}

func (v *Verifier) verify(stored *domain.TournamentResult) (*VerificationResult, error) {
	replayed, err := v.engine.Rescore(stored.RunID, stored.Configuration)
	if err != nil {
		return nil, err
	}
	divergences := CompareResults(stored, replayed)
	return &VerificationResult{
		ConfigID:       stored.ConfigID,
		Configuration:  stored.Configuration,
		Match:          len(divergences) == 0,
		Divergences:    divergences,
		StoredSharpe:   stored.OutOfSample.Sharpe,
		ReplayedSharpe: replayed.OutOfSample.Sharpe,
	}, nil
}

// CompareResults compares two tournament rows and returns divergences.
// Uses FloatTolerance for float64 comparisons; two undefined values match.
func CompareResults(stored, replayed *domain.TournamentResult) []FieldDivergence {
	var divergences []FieldDivergence

	// Identity must match exactly
	if stored.ConfigID != replayed.ConfigID {
		divergences = append(divergences, FieldDivergence{Field: "ConfigID", Expected: stored.ConfigID, Actual: replayed.ConfigID})
	}
	if stored.Configuration != replayed.Configuration {
		divergences = append(divergences, FieldDivergence{Field: "Configuration", Expected: stored.Configuration, Actual: replayed.Configuration})
	}
	if stored.SignalColumn != replayed.SignalColumn {
		divergences = append(divergences, FieldDivergence{Field: "SignalColumn", Expected: stored.SignalColumn, Actual: replayed.SignalColumn})
	}

	divergences = append(divergences, comparePerformance("InSample", stored.InSample, replayed.InSample)...)
	divergences = append(divergences, comparePerformance("OutOfSample", stored.OutOfSample, replayed.OutOfSample)...)

	if stored.OOSTrades != replayed.OOSTrades {
		divergences = append(divergences, FieldDivergence{Field: "OOSTrades", Expected: stored.OOSTrades, Actual: replayed.OOSTrades})
	}
	if !floatEquals(stored.OOSTurnover, replayed.OOSTurnover) {
		divergences = append(divergences, FieldDivergence{Field: "OOSTurnover", Expected: stored.OOSTurnover, Actual: replayed.OOSTurnover})
	}
	if stored.Valid != replayed.Valid {
		divergences = append(divergences, FieldDivergence{Field: "Valid", Expected: stored.Valid, Actual: replayed.Valid})
	}
	if stored.Benchmark != replayed.Benchmark {
		divergences = append(divergences, FieldDivergence{Field: "Benchmark", Expected: stored.Benchmark, Actual: replayed.Benchmark})
	}

	return divergences
}

func comparePerformance(prefix string, a, b domain.PerformanceRecord) []FieldDivergence {
	var out []FieldDivergence
	fields := []struct {
		name string
		x, y float64
	}{
		{"AnnReturn", a.AnnReturn, b.AnnReturn},
		{"AnnVol", a.AnnVol, b.AnnVol},
		{"Sharpe", a.Sharpe, b.Sharpe},
		{"Sortino", a.Sortino, b.Sortino},
		{"Calmar", a.Calmar, b.Calmar},
		{"MaxDrawdown", a.MaxDrawdown, b.MaxDrawdown},
		{"AvgDrawdown", a.AvgDrawdown, b.AvgDrawdown},
		{"WinRate", a.WinRate, b.WinRate},
	}
	for _, f := range fields {
		if !floatEquals(f.x, f.y) {
			out = append(out, FieldDivergence{Field: prefix + "." + f.name, Expected: f.x, Actual: f.y})
		}
	}
	if a.Days != b.Days {
		out = append(out, FieldDivergence{Field: prefix + ".Days", Expected: a.Days, Actual: b.Days})
	}
	return out
}

// floatEquals compares two float64 values within FloatTolerance.
// NaN equals NaN and infinities equal themselves.
func floatEquals(a, b float64) bool {
	aNaN, bNaN := math.IsNaN(a), math.IsNaN(b)
	if aNaN || bNaN {
		return aNaN && bNaN
	}
	if math.IsInf(a, 0) || math.IsInf(b, 0) {
		return a == b
	}
	return math.Abs(a-b) <= FloatTolerance
}
