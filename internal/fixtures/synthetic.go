// Package fixtures generates a deterministic synthetic market panel for demos
// and tests. The latent stress factor drives both credit spreads and asset
// drift, so spread-based regime rules have something to find.
package fixtures

import (
	"maps"
	"math"
	"math/rand/v2"
	"slices"
	"time"

	"credit-signal-lab/internal/panel"
	"credit-signal-lab/internal/signals"
)

// Options control the synthetic panel.
type Options struct {
	Start time.Time
	End   time.Time
	Seed  uint64
}

// DefaultOptions spans 2005 through 2023.
func DefaultOptions() Options {
	return Options{
		Start: time.Date(2005, 1, 3, 0, 0, 0, 0, time.UTC),
		End:   time.Date(2023, 12, 29, 0, 0, 0, 0, time.UTC),
		Seed:  7,
	}
}

// Panel builds the synthetic panel: the sourced credit, volatility, rates and
// asset price columns. Derived columns are left to signals.Derive.
func Panel(opts Options) (*panel.Panel, error) {
	dates := panel.BusinessDays(opts.Start, opts.End)
	p, err := panel.New(dates)
	if err != nil {
		return nil, err
	}

	rng := rand.New(rand.NewPCG(opts.Seed, opts.Seed^0x9e3779b97f4a7c15))
	n := len(dates)

	cols := map[string][]float64{
		signals.ColHYOAS:      make([]float64, n),
		signals.ColIGOAS:      make([]float64, n),
		signals.ColBBHYOAS:    make([]float64, n),
		signals.ColCCCHYOAS:   make([]float64, n),
		signals.ColBBBOAS:     make([]float64, n),
		signals.ColVIX:        make([]float64, n),
		signals.ColVIX3M:      make([]float64, n),
		signals.ColDGS10:      make([]float64, n),
		signals.ColDGS2:       make([]float64, n),
		signals.ColDTB3:       make([]float64, n),
		signals.ColNFCI:       make([]float64, n),
		signals.ColDefaultSPY: make([]float64, n),
	}

	stress := 0.0
	rate := 2.0
	price := 100.0
	for t := 0; t < n; t++ {
		prevStress := stress
		stress = 0.995*stress + 0.08*rng.NormFloat64()
		rate = math.Max(0, rate+0.01*rng.NormFloat64())
		hot := math.Max(stress, 0)

		hy := 4.5 + 1.4*stress + 0.05*rng.NormFloat64()
		ig := 1.4 + 0.35*stress + 0.02*rng.NormFloat64()
		bb := 0.6*hy + 0.03*rng.NormFloat64()
		vix := math.Max(9, 17+6*stress+0.8*rng.NormFloat64())

		cols[signals.ColHYOAS][t] = math.Max(1.5, hy)
		cols[signals.ColIGOAS][t] = math.Max(0.4, ig)
		cols[signals.ColBBHYOAS][t] = math.Max(1, bb)
		cols[signals.ColCCCHYOAS][t] = math.Max(3, 2.1*hy+0.1*rng.NormFloat64())
		cols[signals.ColBBBOAS][t] = math.Max(0.6, ig+0.5+0.1*stress)
		cols[signals.ColVIX][t] = vix
		cols[signals.ColVIX3M][t] = vix + 1.5 - 1.2*stress + 0.3*rng.NormFloat64()
		cols[signals.ColDGS10][t] = rate + 1.2 - 0.2*stress
		cols[signals.ColDGS2][t] = rate + 0.3
		cols[signals.ColDTB3][t] = rate
		cols[signals.ColNFCI][t] = -0.4 + 0.5*stress

		drift := 0.0005 - 0.0025*math.Max(prevStress, 0)
		vol := 0.009 * (1 + 0.8*hot)
		price *= 1 + drift + vol*rng.NormFloat64()
		cols[signals.ColDefaultSPY][t] = price
	}

	for _, name := range slices.Sorted(maps.Keys(cols)) {
		if err := p.AddColumn(name, cols[name]); err != nil {
			return nil, err
		}
	}
	return p, nil
}

// Derived returns the synthetic panel with every derivable signal column added.
func Derived(opts Options) (*panel.Panel, error) {
	p, err := Panel(opts)
	if err != nil {
		return nil, err
	}
	if _, err := signals.Derive(p); err != nil {
		return nil, err
	}
	return p, nil
}
