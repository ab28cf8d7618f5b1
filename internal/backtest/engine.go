// Package backtest reconstructs one configuration end to end: lagged signal,
// threshold, positions, next-day strategy returns and the trade indicator.
// The tournament, validation and verification all go through it.
package backtest

import (
	"errors"
	"fmt"
	"math"
	"time"

	"credit-signal-lab/internal/domain"
	"credit-signal-lab/internal/metrics"
	"credit-signal-lab/internal/series"
	"credit-signal-lab/internal/signals"
	"credit-signal-lab/internal/strategy"
	"credit-signal-lab/internal/threshold"
)

// Backtest errors
var (
	ErrUnknownSignal        = errors.New("unknown signal")
	ErrUnknownThreshold     = errors.New("threshold not eligible for signal")
	ErrInsufficientInSample = errors.New("insufficient in-sample observations")
	ErrNegativeLead         = errors.New("lead time must be non-negative")
	ErrMissingAsset         = errors.New("asset column missing")
	ErrSparseOutOfSample    = errors.New("out-of-sample window too sparse")
)

// MaxMissingOOS is the largest tolerated share of undefined out-of-sample returns.
const MaxMissingOOS = 0.5

// Prepared is a signal shifted by its lead with its threshold calibrated.
// Running it for several families reuses the calibration.
type Prepared struct {
	Spec   signals.Spec
	Lead   int
	Method threshold.Method

	runner    *Runner
	signal    []float64
	threshold []float64
}

// Reconstruction is the full daily trace of one configuration.
// All slices share the runner's date index.
type Reconstruction struct {
	Config domain.Configuration

	Dates        []time.Time
	Signal       []float64 // lagged signal
	Threshold    []float64
	Positions    []float64
	Returns      []float64 // Positions[t-1] * AssetReturns[t]
	Trades       []float64 // |Positions[t] - Positions[t-1]|
	AssetReturns []float64

	InSampleEnd      int // rows [0, InSampleEnd) are in-sample
	OutOfSampleStart int // rows [OutOfSampleStart, len) are out-of-sample
}

// Run builds positions for family and applies them to next-day asset returns.
func (pr *Prepared) Run(family domain.StrategyFamily) (*Reconstruction, error) {
	strat, err := strategy.FromFamily(family)
	if err != nil {
		return nil, err
	}
	positions := strat.Positions(&strategy.Input{
		Signal:    pr.signal,
		Threshold: pr.threshold,
		Polarity:  pr.Spec.Polarity,
		Kind:      pr.Spec.Kind,
	})

	r := pr.runner
	return &Reconstruction{
		Config: domain.Configuration{
			SignalID:    pr.Spec.ID,
			LeadTime:    pr.Lead,
			ThresholdID: pr.Method.ID(),
			Family:      family,
		},
		Dates:            r.dates,
		Signal:           pr.signal,
		Threshold:        pr.threshold,
		Positions:        positions,
		Returns:          strategy.ApplyNextDay(positions, r.returns),
		Trades:           strategy.TradeIndicator(positions),
		AssetReturns:     r.returns,
		InSampleEnd:      r.isEnd,
		OutOfSampleStart: r.oosStart,
	}, nil
}

// InSampleReturns returns the strategy returns of the in-sample rows.
func (rec *Reconstruction) InSampleReturns() []float64 {
	return rec.Returns[:rec.InSampleEnd]
}

// OutOfSampleReturns returns the strategy returns of the out-of-sample rows.
func (rec *Reconstruction) OutOfSampleReturns() []float64 {
	return rec.Returns[rec.OutOfSampleStart:]
}

// Score is the tournament scoring of one reconstruction.
type Score struct {
	InSample    domain.PerformanceRecord
	OutOfSample domain.PerformanceRecord
	Trades      int
	Turnover    float64
}

// Evaluate scores the reconstruction. It returns ErrSparseOutOfSample when
// more than half of the out-of-sample returns are undefined or fewer than
// metrics.MinObservations remain.
func (rec *Reconstruction) Evaluate() (*Score, error) {
	oos := rec.OutOfSampleReturns()
	if len(oos) == 0 {
		return nil, fmt.Errorf("%w: empty", ErrSparseOutOfSample)
	}
	valid := series.CountValid(oos)
	missing := 1 - float64(valid)/float64(len(oos))
	if missing > MaxMissingOOS {
		return nil, fmt.Errorf("%w: %.0f%% undefined", ErrSparseOutOfSample, missing*100)
	}
	if valid < metrics.MinObservations {
		return nil, fmt.Errorf("%w: %d valid returns", ErrSparseOutOfSample, valid)
	}

	outSample := metrics.Compute(oos)
	if !outSample.Defined() {
		return nil, fmt.Errorf("%w: undefined metrics", ErrSparseOutOfSample)
	}

	trades := strategy.CountTrades(rec.Trades, rec.OutOfSampleStart, len(rec.Trades))
	return &Score{
		InSample:    metrics.Compute(rec.InSampleReturns()),
		OutOfSample: outSample,
		Trades:      trades,
		Turnover:    strategy.AnnualTurnover(trades, valid),
	}, nil
}

// LaggedTrades returns the trade indicator shifted by one day with undefined
// entries set to zero: the cost of a position change is paid on the day the
// new position first earns a return.
func (rec *Reconstruction) LaggedTrades() []float64 {
	lagged := series.Shift(rec.Trades, 1)
	for i, v := range lagged {
		if math.IsNaN(v) {
			lagged[i] = 0
		}
	}
	return lagged
}
