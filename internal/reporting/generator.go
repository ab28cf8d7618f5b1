package reporting

import (
	"context"
	"errors"
	"fmt"
	"time"

	"credit-signal-lab/internal/decision"
	"credit-signal-lab/internal/domain"
	"credit-signal-lab/internal/metrics"
	"credit-signal-lab/internal/storage"
	"credit-signal-lab/internal/tournament"
)

// DefaultTopN is the leaderboard length.
const DefaultTopN = 20

// Generator produces reports from stored data.
type Generator struct {
	runStore        storage.RunStore
	resultStore     storage.TournamentResultStore
	validationStore storage.ValidationStore
	evaluator       *decision.Evaluator
	topN            int
	now             func() time.Time // Injectable clock for deterministic output
}

// NewGenerator creates a new report generator.
func NewGenerator(
	runStore storage.RunStore,
	resultStore storage.TournamentResultStore,
	validationStore storage.ValidationStore,
) *Generator {
	return &Generator{
		runStore:        runStore,
		resultStore:     resultStore,
		validationStore: validationStore,
		evaluator:       decision.NewEvaluator(),
		topN:            DefaultTopN,
		now:             func() time.Time { return time.Now().UTC() },
	}
}

// WithClock sets a custom clock function for deterministic output.
func (g *Generator) WithClock(now func() time.Time) *Generator {
	g.now = now
	return g
}

// WithEvaluator sets the evaluator applying the robustness gate.
func (g *Generator) WithEvaluator(ev *decision.Evaluator) *Generator {
	g.evaluator = ev
	return g
}

// WithTopN sets the leaderboard length. n <= 0 lists every row.
func (g *Generator) WithTopN(n int) *Generator {
	g.topN = n
	return g
}

// Generate builds the report of a stored run. A run without validation
// rows yields a report with an empty validation section.
func (g *Generator) Generate(ctx context.Context, runID string) (*Report, error) {
	run, err := g.runStore.GetByID(ctx, runID)
	if err != nil {
		return nil, fmt.Errorf("load run %s: %w", runID, err)
	}

	results, err := g.resultStore.GetByRunID(ctx, runID)
	if err != nil {
		return nil, fmt.Errorf("load results %s: %w", runID, err)
	}
	tournament.Rank(results)

	validation, err := g.validationStore.GetByRunID(ctx, runID)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		validation = &domain.ValidationReport{}
	case err != nil:
		return nil, fmt.Errorf("load validation %s: %w", runID, err)
	}

	report := &Report{
		GeneratedAt: g.now(),
		Run:         run,
		Results:     results,
		TopN:        g.topN,
		Signals:     metrics.SummarizeBySignal(results),
		ValidShare:  metrics.ValidShare(results),
		Validation:  validation,
	}
	for _, r := range results {
		if r.Benchmark {
			report.Benchmark = r
			break
		}
	}
	for _, b := range validation.Bootstrap {
		report.Reproducibility.BootstrapSeed = b.Seed
		report.Reproducibility.Resamples = b.Resamples
		break
	}

	robustness, err := g.generateRobustness(results, validation)
	if err != nil {
		return nil, err
	}
	report.Robustness = robustness
	return report, nil
}

// generateRobustness applies the gate to every validated configuration,
// ordered by tournament rank.
func (g *Generator) generateRobustness(ranked []*domain.TournamentResult, validation *domain.ValidationReport) ([]RobustnessRow, error) {
	validated := validatedConfigs(validation)
	if len(validated) == 0 {
		return nil, nil
	}

	var rows []RobustnessRow
	for _, r := range ranked {
		if _, ok := validated[r.ConfigID]; !ok {
			continue
		}
		input, err := decision.BuildRobustnessInput(validation, r.ConfigID)
		if err != nil {
			return nil, fmt.Errorf("robustness %s: %w", r.ConfigID, err)
		}
		rows = append(rows, RobustnessRow{
			ConfigID:      r.ConfigID,
			Configuration: r.Configuration,
			Result:        g.evaluator.EvaluateRobustness(*input),
		})
	}
	return rows, nil
}

func validatedConfigs(v *domain.ValidationReport) map[string]struct{} {
	ids := make(map[string]struct{})
	for _, r := range v.WalkForward {
		ids[r.ConfigID] = struct{}{}
	}
	for _, r := range v.Bootstrap {
		ids[r.ConfigID] = struct{}{}
	}
	for _, r := range v.Breakeven {
		ids[r.ConfigID] = struct{}{}
	}
	for _, r := range v.Decay {
		ids[r.ConfigID] = struct{}{}
	}
	for _, r := range v.Stress {
		ids[r.ConfigID] = struct{}{}
	}
	return ids
}
