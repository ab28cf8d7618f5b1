package backtest

import (
	"fmt"
	"time"

	"credit-signal-lab/internal/domain"
	"credit-signal-lab/internal/panel"
	"credit-signal-lab/internal/series"
	"credit-signal-lab/internal/signals"
	"credit-signal-lab/internal/threshold"
)

// Split divides the panel into in-sample and out-of-sample windows.
type Split struct {
	InSampleEnd      time.Time // last in-sample date, inclusive
	OutOfSampleStart time.Time // first out-of-sample date, inclusive
}

// DefaultSplit returns the 2017/2018 boundary.
func DefaultSplit() Split {
	return Split{
		InSampleEnd:      time.Date(2017, 12, 31, 0, 0, 0, 0, time.UTC),
		OutOfSampleStart: time.Date(2018, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

// Runner holds a read-only panel, the asset's daily returns and the split
// indices. It is safe for concurrent use.
type Runner struct {
	panel   *panel.Panel
	asset   string
	split   Split
	dates   []time.Time
	returns []float64

	isEnd    int
	oosStart int
}

// NewRunner computes the asset's daily simple returns once for every
// configuration run on p.
func NewRunner(p *panel.Panel, asset string, split Split) (*Runner, error) {
	if !p.Has(asset) {
		return nil, fmt.Errorf("%w: %s", ErrMissingAsset, asset)
	}
	returns, err := p.Returns(asset)
	if err != nil {
		return nil, err
	}
	return &Runner{
		panel:    p,
		asset:    asset,
		split:    split,
		dates:    p.Dates(),
		returns:  returns,
		isEnd:    p.IndexThrough(split.InSampleEnd),
		oosStart: p.IndexAfter(split.OutOfSampleStart),
	}, nil
}

// Panel returns the panel the runner reads.
func (r *Runner) Panel() *panel.Panel {
	return r.panel
}

// Asset returns the asset column name.
func (r *Runner) Asset() string {
	return r.asset
}

// Split returns the in-sample/out-of-sample boundary.
func (r *Runner) Split() Split {
	return r.split
}

// AssetReturns returns a copy of the asset's daily returns.
func (r *Runner) AssetReturns() []float64 {
	return series.Clone(r.returns)
}

// Dates returns the shared date index.
func (r *Runner) Dates() []time.Time {
	return r.dates
}

// InSampleEnd returns the exclusive end row of the in-sample window.
func (r *Runner) InSampleEnd() int {
	return r.isEnd
}

// OutOfSampleStart returns the first out-of-sample row.
func (r *Runner) OutOfSampleStart() int {
	return r.oosStart
}

// Prepare shifts the signal column by lead and calibrates method on the
// lagged values. A FixedQuantile sees only in-sample rows.
func (r *Runner) Prepare(spec signals.Spec, lead int, method threshold.Method) (*Prepared, error) {
	if lead < 0 {
		return nil, fmt.Errorf("%w: %d", ErrNegativeLead, lead)
	}
	raw, ok := r.panel.Column(spec.Column)
	if !ok {
		return nil, fmt.Errorf("%w: %s column %s", ErrUnknownSignal, spec.ID, spec.Column)
	}
	lagged := series.Shift(raw, lead)

	th, err := threshold.Calibrate(method, lagged, r.isEnd)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w: %w", spec.ID, method.ID(), ErrInsufficientInSample, err)
	}

	return &Prepared{
		Spec:      spec,
		Lead:      lead,
		Method:    method,
		runner:    r,
		signal:    lagged,
		threshold: th,
	}, nil
}

// Reconstruct resolves cfg against catalog and runs it.
func (r *Runner) Reconstruct(catalog *signals.Catalog, cfg domain.Configuration) (*Reconstruction, error) {
	spec, ok := catalog.Get(cfg.SignalID)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownSignal, cfg.SignalID)
	}
	method, err := MethodFor(spec, cfg.ThresholdID)
	if err != nil {
		return nil, err
	}
	prepared, err := r.Prepare(spec, cfg.LeadTime, method)
	if err != nil {
		return nil, err
	}
	return prepared.Run(cfg.Family)
}

// MethodFor returns the spec's threshold method with the given ID.
func MethodFor(spec signals.Spec, thresholdID string) (threshold.Method, error) {
	for _, m := range spec.Methods {
		if m.ID() == thresholdID {
			return m, nil
		}
	}
	return nil, fmt.Errorf("%w: %s for %s", ErrUnknownThreshold, thresholdID, spec.ID)
}
