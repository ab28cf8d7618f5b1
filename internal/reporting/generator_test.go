package reporting

import (
	"context"
	"errors"
	"math"
	"strings"
	"testing"
	"time"

	"credit-signal-lab/internal/decision"
	"credit-signal-lab/internal/domain"
	"credit-signal-lab/internal/idhash"
	"credit-signal-lab/internal/storage"
	"credit-signal-lab/internal/storage/memory"
	"credit-signal-lab/internal/tournament"
)

var (
	cfgWinner = domain.Configuration{SignalID: "S1", LeadTime: 5, ThresholdID: "IS_Q75", Family: domain.FamilyLongCash}
	cfgLoser  = domain.Configuration{SignalID: "S2a", LeadTime: 0, ThresholdID: "BAND_2.0", Family: domain.FamilyLongShort}
)

func perf(sharpe float64) domain.PerformanceRecord {
	return domain.PerformanceRecord{
		AnnReturn:   sharpe * 0.1,
		AnnVol:      0.1,
		Sharpe:      sharpe,
		Sortino:     sharpe * 1.3,
		Calmar:      math.NaN(),
		MaxDrawdown: -0.12,
		AvgDrawdown: -0.03,
		WinRate:     0.53,
		Days:        1500,
	}
}

func setupTestData(t *testing.T) (*memory.RunStore, *memory.TournamentResultStore, *memory.ValidationStore) {
	t.Helper()
	ctx := context.Background()

	runStore := memory.NewRunStore()
	resultStore := memory.NewTournamentResultStore()
	validationStore := memory.NewValidationStore()

	completed := time.Date(2024, 1, 15, 11, 0, 0, 0, time.UTC)
	run := &domain.Run{
		RunID:            "run-1",
		Status:           domain.RunStatusCompleted,
		StartedAt:        time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC),
		CompletedAt:      &completed,
		PanelStart:       time.Date(2005, 1, 3, 0, 0, 0, 0, time.UTC),
		PanelEnd:         time.Date(2023, 12, 29, 0, 0, 0, 0, time.UTC),
		InSampleEnd:      time.Date(2017, 12, 31, 0, 0, 0, 0, time.UTC),
		OutOfSampleStart: time.Date(2018, 1, 1, 0, 0, 0, 0, time.UTC),
		Combinations:     2,
		Scored:           2,
	}
	if err := runStore.Insert(ctx, run); err != nil {
		t.Fatalf("Insert run failed: %v", err)
	}

	bench := tournament.BenchmarkConfiguration()
	winnerID := idhash.ConfigurationID(cfgWinner)
	rows := []*domain.TournamentResult{
		{RunID: "run-1", ConfigID: idhash.ConfigurationID(cfgLoser), Configuration: cfgLoser, SignalColumn: "hy_ig_spread",
			InSample: perf(0.2), OutOfSample: perf(0.4), OOSTrades: 12, OOSTurnover: 40},
		{RunID: "run-1", ConfigID: winnerID, Configuration: cfgWinner, SignalColumn: "hy_oas",
			InSample: perf(0.9), OutOfSample: perf(1.2), OOSTrades: 44, OOSTurnover: 7.5, Valid: true},
		{RunID: "run-1", ConfigID: idhash.ConfigurationID(bench), Configuration: bench, SignalColumn: "spy",
			InSample: perf(0.5), OutOfSample: perf(0.6), Valid: true, Benchmark: true},
	}
	if err := resultStore.InsertBulk(ctx, rows); err != nil {
		t.Fatalf("Insert results failed: %v", err)
	}

	report := &domain.ValidationReport{
		WalkForward: []*domain.WalkForwardRow{
			{RunID: "run-1", ConfigID: winnerID, Configuration: cfgWinner, Year: 2018, Sharpe: 0.7, BenchmarkSharpe: 0.2, ExcessSharpe: 0.5, Days: 251},
			{RunID: "run-1", ConfigID: winnerID, Configuration: cfgWinner, Year: 2019, Sharpe: 1.5, BenchmarkSharpe: 1.9, ExcessSharpe: -0.4, Days: 252},
		},
		Bootstrap: []*domain.BootstrapRow{
			{RunID: "run-1", ConfigID: winnerID, Configuration: cfgWinner, ObservedSharpe: 1.2, BootMeanSharpe: 1.19,
				CILower: 0.4, CIUpper: 2.0, PValue: 0.004, Significant: true, Resamples: 10000, Seed: 42, Days: 1500},
		},
		TransactionCosts: []*domain.TransactionCostRow{
			{RunID: "run-1", ConfigID: winnerID, Configuration: cfgWinner, CostBps: 0, Sharpe: 1.2, Days: 1500},
			{RunID: "run-1", ConfigID: winnerID, Configuration: cfgWinner, CostBps: 10, Sharpe: 1.05, Days: 1500},
		},
		Breakeven: []*domain.BreakevenRow{
			{RunID: "run-1", ConfigID: winnerID, Configuration: cfgWinner, BreakevenBps: 64.2, TradeRate: 0.03, GrossMean: 0.0002},
		},
		Decay: []*domain.DecayRow{
			{RunID: "run-1", ConfigID: winnerID, Configuration: cfgWinner, ExtraDelay: 0, TotalLead: 5, Sharpe: 1.2, Days: 1500},
			{RunID: "run-1", ConfigID: winnerID, Configuration: cfgWinner, ExtraDelay: 1, TotalLead: 6, Sharpe: 1.1, Days: 1499},
		},
		Stress: []*domain.StressRow{
			{RunID: "run-1", ConfigID: winnerID, Configuration: cfgWinner, Window: domain.StressCOVID,
				Start: time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC), End: time.Date(2020, 12, 31, 0, 0, 0, 0, time.UTC),
				Sharpe: 0.8, BenchmarkSharpe: 0.3, ExcessSharpe: 0.5, Days: 253},
			{RunID: "run-1", ConfigID: winnerID, Configuration: cfgWinner, Window: domain.StressFullOOS,
				Start: time.Date(2018, 1, 1, 0, 0, 0, 0, time.UTC), End: time.Date(2023, 12, 29, 0, 0, 0, 0, time.UTC),
				Sharpe: 1.2, BenchmarkSharpe: 0.6, ExcessSharpe: 0.6, Days: 1500},
		},
	}
	if err := validationStore.Insert(ctx, "run-1", report); err != nil {
		t.Fatalf("Insert validation failed: %v", err)
	}

	return runStore, resultStore, validationStore
}

func TestGenerate_Deterministic(t *testing.T) {
	ctx := context.Background()

	// Fixed time for deterministic output
	fixedTime := time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC)
	fixedClock := func() time.Time { return fixedTime }

	var first string
	for run := 0; run < 5; run++ {
		runs, results, validations := setupTestData(t)
		report, err := NewGenerator(runs, results, validations).WithClock(fixedClock).Generate(ctx, "run-1")
		if err != nil {
			t.Fatalf("Run %d: Generate failed: %v", run, err)
		}
		md := RenderMarkdown(report)
		if first == "" {
			first = md
			continue
		}
		if md != first {
			t.Errorf("Run %d: markdown differs between identical runs", run)
		}
	}
}

func TestGenerate_RanksAndGates(t *testing.T) {
	ctx := context.Background()
	runs, results, validations := setupTestData(t)

	fixedTime := time.Date(2024, 6, 15, 10, 30, 0, 0, time.UTC)
	report, err := NewGenerator(runs, results, validations).
		WithClock(func() time.Time { return fixedTime }).
		Generate(ctx, "run-1")
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	if !report.GeneratedAt.Equal(fixedTime) {
		t.Errorf("Expected GeneratedAt %v, got %v", fixedTime, report.GeneratedAt)
	}
	if len(report.Results) != 3 || report.Results[0].Configuration != cfgWinner {
		t.Fatalf("Expected winner ranked first, got %+v", report.Results)
	}
	if report.Benchmark == nil || !report.Benchmark.Benchmark {
		t.Fatal("Expected benchmark row")
	}
	if leaders := report.Leaders(); len(leaders) != 2 {
		t.Errorf("Expected 2 leaders without the benchmark, got %d", len(leaders))
	}
	if report.ValidCount() != 1 {
		t.Errorf("Expected 1 valid row, got %d", report.ValidCount())
	}
	if len(report.Signals) != 2 || report.Signals[0].SignalID != "S1" || report.Signals[0].BestConfig != cfgWinner {
		t.Errorf("Expected per-signal summaries for S1 and S2a, got %+v", report.Signals)
	}
	if report.ValidShare != 0.5 {
		t.Errorf("Expected valid share 0.5, got %v", report.ValidShare)
	}
	if report.Reproducibility.BootstrapSeed != 42 || report.Reproducibility.Resamples != 10000 {
		t.Errorf("Unexpected reproducibility: %+v", report.Reproducibility)
	}

	if len(report.Robustness) != 1 {
		t.Fatalf("Expected 1 robustness row, got %d", len(report.Robustness))
	}
	if got := report.Robustness[0].Result.Verdict; got != decision.VerdictGO {
		t.Errorf("Expected GO, got %s: %+v", got, report.Robustness[0].Result.Failed())
	}
	if report.GoCount() != 1 {
		t.Errorf("Expected GoCount 1, got %d", report.GoCount())
	}
}

func TestGenerate_StricterGateFails(t *testing.T) {
	ctx := context.Background()
	runs, results, validations := setupTestData(t)

	criteria := decision.DefaultRobustnessCriteria()
	criteria.MinBreakevenBps = 100
	report, err := NewGenerator(runs, results, validations).
		WithEvaluator(decision.NewEvaluator().WithRobustnessCriteria(criteria)).
		Generate(ctx, "run-1")
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if report.GoCount() != 0 {
		t.Errorf("Expected NO-GO with 100 bps breakeven floor")
	}
	failed := report.Robustness[0].Result.Failed()
	if len(failed) != 1 || failed[0].Name != "Breakeven cost" {
		t.Errorf("Expected only breakeven to fail, got %+v", failed)
	}
}

func TestGenerate_WithoutValidation(t *testing.T) {
	ctx := context.Background()
	runs, results, _ := setupTestData(t)

	report, err := NewGenerator(runs, results, memory.NewValidationStore()).Generate(ctx, "run-1")
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if report.Validation == nil || len(report.Validation.Bootstrap) != 0 {
		t.Errorf("Expected empty validation report, got %+v", report.Validation)
	}
	if len(report.Robustness) != 0 {
		t.Errorf("Expected no robustness rows")
	}
	if !strings.Contains(RenderMarkdown(report), "No configurations validated.") {
		t.Error("Expected placeholder for missing validation")
	}
}

func TestGenerate_UnknownRun(t *testing.T) {
	runs, results, validations := setupTestData(t)
	_, err := NewGenerator(runs, results, validations).Generate(context.Background(), "missing")
	if !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestRenderMarkdown_Format(t *testing.T) {
	runs, results, validations := setupTestData(t)
	report, err := NewGenerator(runs, results, validations).Generate(context.Background(), "run-1")
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	report.DataQuality = DataQualitySection{
		SufficiencyChecks: []SufficiencyCheckRow{{Name: "OOS asset returns", Threshold: ">= 252", Actual: "1500", Pass: true}},
		AllChecksPassed:   true,
	}

	md := RenderMarkdown(report)
	for _, section := range []string{
		"# Credit Signal Tournament Report",
		"## Run Summary",
		"## Data Quality",
		"**All checks passed.**",
		"## Leaderboard",
		"Benchmark (buy-and-hold spy)",
		"## Signals",
		"Valid share: 50.00%",
		"## Walk-Forward",
		"## Bootstrap Significance",
		"## Transaction Costs",
		"64.2 bps",
		"## Execution Delay",
		"## Stress Periods",
		"## Robustness Gate",
		"### " + cfgWinner.String() + ": GO",
		"## Reproducibility",
	} {
		if !strings.Contains(md, section) {
			t.Errorf("Markdown missing %q", section)
		}
	}
	if !strings.Contains(md, "| 1 | "+idhash.ShortID(idhash.ConfigurationID(cfgWinner))+" | S1 |") {
		t.Error("Expected winner in first leaderboard row")
	}
}

func TestRenderCSV_Shapes(t *testing.T) {
	runs, results, validations := setupTestData(t)
	report, err := NewGenerator(runs, results, validations).Generate(context.Background(), "run-1")
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	cases := []struct {
		name string
		csv  string
		rows int
	}{
		{"tournament", RenderTournamentCSV(report.Results), 3},
		{"walk_forward", RenderWalkForwardCSV(report.Validation.WalkForward), 2},
		{"bootstrap", RenderBootstrapCSV(report.Validation.Bootstrap), 1},
		{"costs", RenderTransactionCostsCSV(report.Validation.TransactionCosts), 2},
		{"breakeven", RenderBreakevenCSV(report.Validation.Breakeven), 1},
		{"decay", RenderDecayCSV(report.Validation.Decay), 2},
		{"stress", RenderStressCSV(report.Validation.Stress), 2},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			lines := strings.Split(strings.TrimSuffix(tc.csv, "\n"), "\n")
			if len(lines) != tc.rows+1 {
				t.Fatalf("Expected %d lines, got %d", tc.rows+1, len(lines))
			}
			width := strings.Count(lines[0], ",")
			for i, line := range lines[1:] {
				if got := strings.Count(line, ","); got != width {
					t.Errorf("Row %d has %d separators, header has %d", i, got, width)
				}
			}
		})
	}
}

func TestCSVFloat_UndefinedValues(t *testing.T) {
	if csvFloat(math.NaN()) != "" {
		t.Error("NaN should render as empty cell")
	}
	if csvFloat(math.Inf(1)) != "inf" {
		t.Error("+Inf should render as inf")
	}
	if csvFloat(0.25) != "0.250000" {
		t.Errorf("Unexpected rendering %q", csvFloat(0.25))
	}
}

func TestRenderHTML(t *testing.T) {
	out, err := RenderHTML("Run <1>", "# Title\n\n| a | b |\n|---|---|\n| 1 | 2 |\n")
	if err != nil {
		t.Fatalf("RenderHTML failed: %v", err)
	}
	html := string(out)
	if !strings.Contains(html, "<title>Run &lt;1&gt;</title>") {
		t.Error("Expected escaped title")
	}
	if !strings.Contains(html, "<table>") || !strings.Contains(html, "<td>1</td>") {
		t.Errorf("Expected GFM table, got %s", html)
	}
	if !strings.Contains(html, `<h1 id="title">Title</h1>`) {
		t.Error("Expected heading with auto id")
	}
}
