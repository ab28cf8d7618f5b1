// Package signals builds the candidate predictor columns and the catalog of
// signals the tournament enumerates.
package signals

import (
	"fmt"

	"credit-signal-lab/internal/panel"
	"credit-signal-lab/internal/series"
)

// DeriveReport lists the derived columns written and those skipped for
// missing inputs.
type DeriveReport struct {
	Derived []string
	Skipped map[string][]string // column -> missing inputs
}

type derivation struct {
	column string
	inputs []string
	fn     func(in [][]float64) []float64
}

// derivations are applied in order; later entries may read earlier outputs.
var derivations = []derivation{
	{ColSpread, []string{ColHYOAS, ColIGOAS}, func(in [][]float64) []float64 {
		return series.Sub(in[0], in[1])
	}},
	{ColZScore252, []string{ColSpread}, func(in [][]float64) []float64 {
		return series.RollingZScore(in[0], 252, 200)
	}},
	{ColZScore504, []string{ColSpread}, func(in [][]float64) []float64 {
		return series.RollingZScore(in[0], 504, 400)
	}},
	{ColPctRank504, []string{ColSpread}, func(in [][]float64) []float64 {
		return series.RollingPercentRank(in[0], 504, 400)
	}},
	{ColPctRank1260, []string{ColSpread}, func(in [][]float64) []float64 {
		return series.RollingPercentRank(in[0], 1260, 1000)
	}},
	{ColROC21, []string{ColSpread}, func(in [][]float64) []float64 {
		return series.Scale(series.PctChange(in[0], 21), 100)
	}},
	{ColROC63, []string{ColSpread}, func(in [][]float64) []float64 {
		return series.Scale(series.PctChange(in[0], 63), 100)
	}},
	{ColROC126, []string{ColSpread}, func(in [][]float64) []float64 {
		return series.Scale(series.PctChange(in[0], 126), 100)
	}},
	{ColMom21, []string{ColSpread}, func(in [][]float64) []float64 {
		return series.Diff(in[0], 21)
	}},
	{ColMom63, []string{ColSpread}, func(in [][]float64) []float64 {
		return series.Diff(in[0], 63)
	}},
	{ColMom252, []string{ColSpread}, func(in [][]float64) []float64 {
		return series.Diff(in[0], 252)
	}},
	{ColAcceleration, []string{ColROC21}, func(in [][]float64) []float64 {
		return series.Diff(in[0], 21)
	}},
	{ColRealizedVol21, []string{ColSpread}, func(in [][]float64) []float64 {
		return series.RollingStd(series.Diff(in[0], 1), 21, 15)
	}},
	{ColCCCBBSpread, []string{ColCCCHYOAS, ColBBHYOAS}, func(in [][]float64) []float64 {
		return series.Sub(in[0], in[1])
	}},
	{ColBBBIGSpread, []string{ColBBBOAS, ColIGOAS}, func(in [][]float64) []float64 {
		return series.Sub(in[0], in[1])
	}},
	{ColVIXTermStruct, []string{ColVIX3M, ColVIX}, func(in [][]float64) []float64 {
		return series.Sub(in[0], in[1])
	}},
	{ColYieldSpread10y3, []string{ColDGS10, ColDTB3}, func(in [][]float64) []float64 {
		return series.Sub(in[0], in[1])
	}},
	{ColYieldSpread10y2, []string{ColDGS10, ColDGS2}, func(in [][]float64) []float64 {
		return series.Sub(in[0], in[1])
	}},
	{ColNFCIMomentum, []string{ColNFCI}, func(in [][]float64) []float64 {
		return series.Diff(in[0], 65)
	}},
	{ColComposite, []string{ColZScore252, ColVIXTermStruct}, func(in [][]float64) []float64 {
		return Composite(in[0], in[1])
	}},
}

// Derive writes every derived column whose inputs are present on p.
// Columns whose inputs are missing are left as they are, so a panel that
// already carries a precomputed column keeps it.
func Derive(p *panel.Panel) (*DeriveReport, error) {
	report := &DeriveReport{Skipped: make(map[string][]string)}
	for _, d := range derivations {
		var missing []string
		in := make([][]float64, 0, len(d.inputs))
		for _, name := range d.inputs {
			if !p.Has(name) {
				missing = append(missing, name)
				continue
			}
			col, _ := p.Column(name)
			in = append(in, col)
		}
		if len(missing) > 0 {
			report.Skipped[d.column] = missing
			continue
		}
		if err := p.SetColumn(d.column, d.fn(in)); err != nil {
			return nil, fmt.Errorf("derive %s: %w", d.column, err)
		}
		report.Derived = append(report.Derived, d.column)
	}
	return report, nil
}

// Composite is the equal-weighted sum of the standardized spread z-score and
// the negated standardized VIX term structure. Both legs are standardized
// over the full sample.
func Composite(zscore, termStructure []float64) []float64 {
	a := series.Standardize(zscore)
	b := series.Standardize(termStructure)
	out := make([]float64, len(a))
	for i := range a {
		out[i] = 0.5*a[i] + 0.5*(-b[i])
	}
	return out
}

// ForwardReturnHorizons are the horizons exported for exploratory analysis.
var ForwardReturnHorizons = []int{1, 5, 21, 63, 126, 252}

// DeriveForwardReturns adds <asset>_fwd_<h>d columns. These look ahead and
// must never be used as predictors.
func DeriveForwardReturns(p *panel.Panel, asset string) error {
	prices, err := p.MustColumn(asset)
	if err != nil {
		return err
	}
	for _, h := range ForwardReturnHorizons {
		name := fmt.Sprintf("%s_fwd_%dd", asset, h)
		if err := p.SetColumn(name, series.ForwardReturn(prices, h)); err != nil {
			return err
		}
	}
	return nil
}
