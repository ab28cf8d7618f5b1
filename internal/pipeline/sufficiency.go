package pipeline

import (
	"fmt"

	"credit-signal-lab/internal/backtest"
	"credit-signal-lab/internal/panel"
	"credit-signal-lab/internal/reporting"
	"credit-signal-lab/internal/series"
	"credit-signal-lab/internal/signals"
)

// SufficiencyCheck represents one data sufficiency criterion.
type SufficiencyCheck struct {
	Name      string
	Threshold string
	Actual    string
	Pass      bool
}

// SufficiencyResult contains all checks.
type SufficiencyResult struct {
	Checks  []SufficiencyCheck
	AllPass bool
	Errors  []string // data integrity errors
}

// SufficiencyCriteria are the minimum data requirements of a run.
type SufficiencyCriteria struct {
	MinOOSReturns   int // valid out-of-sample asset returns
	MinInSampleRows int // panel rows on or before the in-sample end
}

// DefaultSufficiencyCriteria requires a year of OOS returns and 100 IS rows.
func DefaultSufficiencyCriteria() SufficiencyCriteria {
	return SufficiencyCriteria{MinOOSReturns: 252, MinInSampleRows: 100}
}

// SufficiencyChecker validates a panel before a tournament is run on it.
type SufficiencyChecker struct {
	catalog  *signals.Catalog
	criteria SufficiencyCriteria
}

// NewSufficiencyChecker creates a checker resolving signals against catalog.
func NewSufficiencyChecker(catalog *signals.Catalog) *SufficiencyChecker {
	return &SufficiencyChecker{catalog: catalog, criteria: DefaultSufficiencyCriteria()}
}

// WithCriteria overrides the default criteria.
func (c *SufficiencyChecker) WithCriteria(criteria SufficiencyCriteria) *SufficiencyChecker {
	c.criteria = criteria
	return c
}

// Check performs the five sufficiency checks. Checks depending on the
// asset column fail when it is absent.
func (c *SufficiencyChecker) Check(p *panel.Panel, asset string, split backtest.Split) *SufficiencyResult {
	result := &SufficiencyResult{AllPass: true}
	add := func(check SufficiencyCheck) {
		result.Checks = append(result.Checks, check)
		if !check.Pass {
			result.AllPass = false
		}
	}

	// Check 1: asset column present
	hasAsset := p.Has(asset)
	add(SufficiencyCheck{
		Name:      "Asset column",
		Threshold: "present",
		Actual:    presence(hasAsset, asset),
		Pass:      hasAsset,
	})

	// Check 2: OOS window non-empty
	oosStart := p.IndexAfter(split.OutOfSampleStart)
	oosRows := p.Len() - oosStart
	add(SufficiencyCheck{
		Name:      "OOS window",
		Threshold: "> 0 rows",
		Actual:    fmt.Sprintf("%d rows", oosRows),
		Pass:      oosRows > 0,
	})

	// Check 3: enough valid OOS asset returns
	validOOS := 0
	if hasAsset && oosRows > 0 {
		returns, err := p.Returns(asset)
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("asset returns: %v", err))
		} else {
			validOOS = series.CountValid(returns[oosStart:])
		}
	}
	add(SufficiencyCheck{
		Name:      "OOS asset returns",
		Threshold: fmt.Sprintf(">= %d", c.criteria.MinOOSReturns),
		Actual:    fmt.Sprintf("%d", validOOS),
		Pass:      validOOS >= c.criteria.MinOOSReturns,
	})

	// Check 4: in-sample rows
	isRows := p.IndexThrough(split.InSampleEnd)
	add(SufficiencyCheck{
		Name:      "In-sample rows",
		Threshold: fmt.Sprintf(">= %d", c.criteria.MinInSampleRows),
		Actual:    fmt.Sprintf("%d", isRows),
		Pass:      isRows >= c.criteria.MinInSampleRows,
	})

	// Check 5: at least one eligible signal
	eligible, ineligible := c.catalog.Resolve(p)
	add(SufficiencyCheck{
		Name:      "Eligible signals",
		Threshold: "> 0",
		Actual:    fmt.Sprintf("%d of %d", len(eligible), len(eligible)+len(ineligible)),
		Pass:      len(eligible) > 0,
	})

	if !split.InSampleEnd.Before(split.OutOfSampleStart) {
		result.AllPass = false
		result.Errors = append(result.Errors, fmt.Sprintf("in-sample end %s is not before out-of-sample start %s",
			split.InSampleEnd.Format("2006-01-02"), split.OutOfSampleStart.Format("2006-01-02")))
	}

	return result
}

// ToDataQuality converts a sufficiency result to the report section.
func ToDataQuality(r *SufficiencyResult) reporting.DataQualitySection {
	section := reporting.DataQualitySection{
		AllChecksPassed: r.AllPass,
		Notes:           append([]string(nil), r.Errors...),
	}
	for _, c := range r.Checks {
		section.SufficiencyChecks = append(section.SufficiencyChecks, reporting.SufficiencyCheckRow{
			Name:      c.Name,
			Threshold: c.Threshold,
			Actual:    c.Actual,
			Pass:      c.Pass,
		})
	}
	return section
}

func presence(ok bool, name string) string {
	if ok {
		return name
	}
	return "missing " + name
}
