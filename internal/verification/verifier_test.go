package verification

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"credit-signal-lab/internal/backtest"
	"credit-signal-lab/internal/domain"
	"credit-signal-lab/internal/fixtures"
	"credit-signal-lab/internal/signals"
	"credit-signal-lab/internal/storage/memory"
	"credit-signal-lab/internal/tournament"
)

func sampleRow() *domain.TournamentResult {
	rec := domain.PerformanceRecord{
		AnnReturn: 0.07, AnnVol: 0.11, Sharpe: 0.636, Sortino: 0.9, Calmar: math.NaN(),
		MaxDrawdown: -0.18, AvgDrawdown: -0.04, WinRate: 0.54, Days: 1400,
	}
	return &domain.TournamentResult{
		RunID:         "r",
		ConfigID:      "abc",
		Configuration: domain.Configuration{SignalID: "S1", LeadTime: 1, ThresholdID: "IS_Q75", Family: domain.FamilyLongCash},
		SignalColumn:  "hy_ig_spread",
		InSample:      rec,
		OutOfSample:   rec,
		OOSTrades:     33,
		OOSTurnover:   5.9,
		Valid:         true,
	}
}

func TestCompareResults_ExactMatch(t *testing.T) {
	a, b := sampleRow(), sampleRow()
	if d := CompareResults(a, b); len(d) != 0 {
		t.Errorf("Expected no divergences, got %+v", d)
	}
}

func TestCompareResults_WithinTolerance(t *testing.T) {
	a, b := sampleRow(), sampleRow()
	b.OutOfSample.Sharpe += FloatTolerance / 2
	if d := CompareResults(a, b); len(d) != 0 {
		t.Errorf("Expected match within tolerance, got %+v", d)
	}
	b.OutOfSample.Sharpe += FloatTolerance * 10
	d := CompareResults(a, b)
	if len(d) != 1 || d[0].Field != "OutOfSample.Sharpe" {
		t.Errorf("Expected OutOfSample.Sharpe divergence, got %+v", d)
	}
}

func TestCompareResults_UndefinedValues(t *testing.T) {
	a, b := sampleRow(), sampleRow()
	b.InSample.Calmar = 2.0
	d := CompareResults(a, b)
	if len(d) != 1 || d[0].Field != "InSample.Calmar" {
		t.Errorf("Expected NaN vs value divergence, got %+v", d)
	}
}

func TestCompareResults_IdentityAndCounts(t *testing.T) {
	a, b := sampleRow(), sampleRow()
	b.Family = domain.FamilyLongShort
	b.OOSTrades = 34
	b.Valid = false
	fields := map[string]bool{}
	for _, d := range CompareResults(a, b) {
		fields[d.Field] = true
	}
	for _, f := range []string{"Configuration", "OOSTrades", "Valid"} {
		if !fields[f] {
			t.Errorf("Expected %s divergence", f)
		}
	}
}

func TestFloatEquals(t *testing.T) {
	cases := []struct {
		a, b float64
		want bool
	}{
		{1.0, 1.0, true},
		{1.0, 1.0 + 1e-10, true},
		{1.0, 1.0 + 1e-8, false},
		{math.NaN(), math.NaN(), true},
		{math.NaN(), 0, false},
		{math.Inf(1), math.Inf(1), true},
		{math.Inf(1), math.Inf(-1), false},
	}
	for _, tc := range cases {
		if got := floatEquals(tc.a, tc.b); got != tc.want {
			t.Errorf("floatEquals(%v, %v) = %v, want %v", tc.a, tc.b, got, tc.want)
		}
	}
}

func testEngine(t *testing.T) *tournament.Engine {
	t.Helper()
	p, err := fixtures.Derived(fixtures.Options{
		Start: time.Date(2012, 1, 2, 0, 0, 0, 0, time.UTC),
		End:   time.Date(2020, 12, 31, 0, 0, 0, 0, time.UTC),
		Seed:  11,
	})
	if err != nil {
		t.Fatalf("fixtures: %v", err)
	}
	runner, err := backtest.NewRunner(p, signals.ColDefaultSPY, backtest.DefaultSplit())
	if err != nil {
		t.Fatalf("runner: %v", err)
	}
	s1, _ := signals.DefaultCatalog().Get("S1")
	catalog, err := signals.NewCatalog(s1)
	if err != nil {
		t.Fatalf("catalog: %v", err)
	}
	return tournament.New(runner, catalog, tournament.Config{Leads: []int{0, 5}, Workers: 2})
}

func TestVerifier_VerifyRun_AllMatch(t *testing.T) {
	ctx := context.Background()
	engine := testEngine(t)
	result, err := engine.Run(ctx, "run-v")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	store := memory.NewTournamentResultStore()
	if err := store.InsertBulk(ctx, result.Rows); err != nil {
		t.Fatalf("InsertBulk: %v", err)
	}

	report, err := NewVerifier(store, engine, nil).VerifyRun(ctx, "run-v")
	if err != nil {
		t.Fatalf("VerifyRun: %v", err)
	}
	if report.TotalRows != len(result.Rows) {
		t.Errorf("Expected %d rows, got %d", len(result.Rows), report.TotalRows)
	}
	if report.DivergentRows != 0 {
		for _, r := range report.Results {
			if !r.Match {
				t.Logf("%s: %+v", r.Configuration, r.Divergences)
			}
		}
		t.Fatalf("Expected every row to reproduce, %d diverged", report.DivergentRows)
	}
	if report.MatchedRows != report.TotalRows {
		t.Errorf("Matched %d of %d", report.MatchedRows, report.TotalRows)
	}
}

func TestVerifier_DetectsTamperedRow(t *testing.T) {
	ctx := context.Background()
	engine := testEngine(t)
	result, err := engine.Run(ctx, "run-v")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	tampered := *result.Rows[0]
	tampered.OutOfSample.Sharpe += 0.01
	store := memory.NewTournamentResultStore()
	if err := store.InsertBulk(ctx, []*domain.TournamentResult{&tampered}); err != nil {
		t.Fatalf("InsertBulk: %v", err)
	}

	v := NewVerifier(store, engine, nil)
	res, err := v.VerifyConfig(ctx, "run-v", tampered.ConfigID)
	if err != nil {
		t.Fatalf("VerifyConfig: %v", err)
	}
	if res.Match || len(res.Divergences) != 1 || res.Divergences[0].Field != "OutOfSample.Sharpe" {
		t.Errorf("Expected a single Sharpe divergence, got %+v", res.Divergences)
	}
	if math.Abs(res.StoredSharpe-res.ReplayedSharpe-0.01) > 1e-12 {
		t.Errorf("Unexpected Sharpe pair %v / %v", res.StoredSharpe, res.ReplayedSharpe)
	}
}

func TestVerifier_UnknownSignalIsDivergent(t *testing.T) {
	ctx := context.Background()
	row := sampleRow()
	row.Configuration.SignalID = "S99"
	store := memory.NewTournamentResultStore()
	if err := store.InsertBulk(ctx, []*domain.TournamentResult{row}); err != nil {
		t.Fatalf("InsertBulk: %v", err)
	}

	report, err := NewVerifier(store, testEngine(t), nil).VerifyRun(ctx, "r")
	if err != nil {
		t.Fatalf("VerifyRun: %v", err)
	}
	if report.DivergentRows != 1 || report.Results[0].Divergences[0].Field != "Error" {
		t.Errorf("Expected error divergence, got %+v", report.Results)
	}
}

func TestVerifier_VerifyConfig_NotFound(t *testing.T) {
	v := NewVerifier(memory.NewTournamentResultStore(), testEngine(t), nil)
	_, err := v.VerifyConfig(context.Background(), "r", "missing")
	if !errors.Is(err, ErrResultNotFound) {
		t.Errorf("Expected ErrResultNotFound, got %v", err)
	}
}
