package pipeline

import (
	"strings"
	"testing"
	"time"

	"credit-signal-lab/internal/backtest"
	"credit-signal-lab/internal/fixtures"
	"credit-signal-lab/internal/panel"
	"credit-signal-lab/internal/signals"
)

func fixturePanel(t *testing.T, start, end time.Time) *panel.Panel {
	t.Helper()
	p, err := fixtures.Derived(fixtures.Options{Start: start, End: end, Seed: 3})
	if err != nil {
		t.Fatalf("fixtures: %v", err)
	}
	return p
}

func checkByName(t *testing.T, r *SufficiencyResult, name string) SufficiencyCheck {
	t.Helper()
	for _, c := range r.Checks {
		if c.Name == name {
			return c
		}
	}
	t.Fatalf("check %q not found", name)
	return SufficiencyCheck{}
}

func TestSufficiencyChecker_AllPass(t *testing.T) {
	p := fixturePanel(t, time.Date(2012, 1, 2, 0, 0, 0, 0, time.UTC), time.Date(2020, 12, 31, 0, 0, 0, 0, time.UTC))

	result := NewSufficiencyChecker(signals.DefaultCatalog()).Check(p, signals.ColDefaultSPY, backtest.DefaultSplit())

	if len(result.Checks) != 5 {
		t.Fatalf("Expected 5 checks, got %d", len(result.Checks))
	}
	if !result.AllPass {
		for _, c := range result.Checks {
			t.Logf("%s: %s (threshold %s) pass=%v", c.Name, c.Actual, c.Threshold, c.Pass)
		}
		t.Fatal("Expected all checks to pass")
	}
	if len(result.Errors) != 0 {
		t.Errorf("Expected no errors, got %v", result.Errors)
	}
}

func TestSufficiencyChecker_MissingAsset(t *testing.T) {
	p := fixturePanel(t, time.Date(2012, 1, 2, 0, 0, 0, 0, time.UTC), time.Date(2020, 12, 31, 0, 0, 0, 0, time.UTC))

	result := NewSufficiencyChecker(signals.DefaultCatalog()).Check(p, "qqq", backtest.DefaultSplit())

	if result.AllPass {
		t.Fatal("Expected failure without asset column")
	}
	if c := checkByName(t, result, "Asset column"); c.Pass || !strings.Contains(c.Actual, "missing qqq") {
		t.Errorf("Unexpected asset check: %+v", c)
	}
	if c := checkByName(t, result, "OOS asset returns"); c.Pass || c.Actual != "0" {
		t.Errorf("Expected zero OOS returns, got %+v", c)
	}
	if c := checkByName(t, result, "In-sample rows"); !c.Pass {
		t.Errorf("In-sample check should not depend on the asset: %+v", c)
	}
}

func TestSufficiencyChecker_ShortOutOfSample(t *testing.T) {
	p := fixturePanel(t, time.Date(2012, 1, 2, 0, 0, 0, 0, time.UTC), time.Date(2018, 6, 29, 0, 0, 0, 0, time.UTC))

	result := NewSufficiencyChecker(signals.DefaultCatalog()).Check(p, signals.ColDefaultSPY, backtest.DefaultSplit())

	if c := checkByName(t, result, "OOS window"); !c.Pass {
		t.Errorf("OOS window should be non-empty: %+v", c)
	}
	if c := checkByName(t, result, "OOS asset returns"); c.Pass {
		t.Errorf("Half a year of OOS returns should fail: %+v", c)
	}
	if result.AllPass {
		t.Error("Expected overall failure")
	}
}

func TestSufficiencyChecker_NoOutOfSample(t *testing.T) {
	p := fixturePanel(t, time.Date(2012, 1, 2, 0, 0, 0, 0, time.UTC), time.Date(2017, 12, 29, 0, 0, 0, 0, time.UTC))

	result := NewSufficiencyChecker(signals.DefaultCatalog()).Check(p, signals.ColDefaultSPY, backtest.DefaultSplit())

	if c := checkByName(t, result, "OOS window"); c.Pass || c.Actual != "0 rows" {
		t.Errorf("Expected empty OOS window, got %+v", c)
	}
}

func TestSufficiencyChecker_NoEligibleSignals(t *testing.T) {
	dates := panel.BusinessDays(time.Date(2012, 1, 2, 0, 0, 0, 0, time.UTC), time.Date(2020, 12, 31, 0, 0, 0, 0, time.UTC))
	p, err := panel.New(dates)
	if err != nil {
		t.Fatal(err)
	}
	prices := make([]float64, len(dates))
	for i := range prices {
		prices[i] = 100 + float64(i%7)
	}
	if err := p.AddColumn(signals.ColDefaultSPY, prices); err != nil {
		t.Fatal(err)
	}

	result := NewSufficiencyChecker(signals.DefaultCatalog()).Check(p, signals.ColDefaultSPY, backtest.DefaultSplit())

	if c := checkByName(t, result, "Eligible signals"); c.Pass || !strings.HasPrefix(c.Actual, "0 of ") {
		t.Errorf("Expected no eligible signals, got %+v", c)
	}
	if c := checkByName(t, result, "OOS asset returns"); !c.Pass {
		t.Errorf("Asset returns should pass: %+v", c)
	}
}

func TestSufficiencyChecker_CustomCriteria(t *testing.T) {
	p := fixturePanel(t, time.Date(2012, 1, 2, 0, 0, 0, 0, time.UTC), time.Date(2018, 6, 29, 0, 0, 0, 0, time.UTC))

	checker := NewSufficiencyChecker(signals.DefaultCatalog()).
		WithCriteria(SufficiencyCriteria{MinOOSReturns: 60, MinInSampleRows: 100})
	result := checker.Check(p, signals.ColDefaultSPY, backtest.DefaultSplit())
	if !result.AllPass {
		t.Errorf("Expected pass with relaxed criteria: %+v", result.Checks)
	}
}

func TestSufficiencyChecker_InvertedSplit(t *testing.T) {
	p := fixturePanel(t, time.Date(2012, 1, 2, 0, 0, 0, 0, time.UTC), time.Date(2020, 12, 31, 0, 0, 0, 0, time.UTC))
	split := backtest.Split{
		InSampleEnd:      time.Date(2019, 1, 1, 0, 0, 0, 0, time.UTC),
		OutOfSampleStart: time.Date(2018, 1, 1, 0, 0, 0, 0, time.UTC),
	}

	result := NewSufficiencyChecker(signals.DefaultCatalog()).Check(p, signals.ColDefaultSPY, split)
	if result.AllPass || len(result.Errors) != 1 {
		t.Errorf("Expected an integrity error for overlapping windows, got %+v", result.Errors)
	}
}

func TestToDataQuality(t *testing.T) {
	result := &SufficiencyResult{
		Checks: []SufficiencyCheck{
			{Name: "a", Threshold: "> 0", Actual: "1", Pass: true},
			{Name: "b", Threshold: "> 0", Actual: "0", Pass: false},
		},
		Errors: []string{"bad split"},
	}
	dq := ToDataQuality(result)
	if dq.AllChecksPassed {
		t.Error("Expected AllChecksPassed=false")
	}
	if len(dq.SufficiencyChecks) != 2 || dq.SufficiencyChecks[1].Pass {
		t.Errorf("Unexpected checks: %+v", dq.SufficiencyChecks)
	}
	if len(dq.Notes) != 1 || dq.Notes[0] != "bad split" {
		t.Errorf("Unexpected notes: %v", dq.Notes)
	}
}
