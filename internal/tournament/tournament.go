// Package tournament enumerates signal × lead × threshold × family
// configurations, scores each in and out of sample, and ranks them.
package tournament

import (
	"context"
	"errors"
	"fmt"
	"math"
	"runtime"
	"sort"
	"sync"
	"time"

	"github.com/ternarybob/arbor"
	"golang.org/x/sync/errgroup"

	"credit-signal-lab/internal/backtest"
	"credit-signal-lab/internal/decision"
	"credit-signal-lab/internal/domain"
	"credit-signal-lab/internal/idhash"
	"credit-signal-lab/internal/metrics"
	"credit-signal-lab/internal/observability"
	"credit-signal-lab/internal/signals"
	"credit-signal-lab/internal/threshold"
)

// Skip reasons, also used as metric labels.
const (
	SkipInsufficientInSample = "insufficient_in_sample"
	SkipSparseOutOfSample    = "sparse_oos"
	SkipPanic                = "panic"
	SkipError                = "error"
)

// DefaultLeads are the lead times, in business days, every signal is tried at.
var DefaultLeads = []int{0, 1, 5, 10, 21, 63}

// Config controls the search space and the worker pool.
type Config struct {
	Leads    []int
	Families []domain.StrategyFamily
	Workers  int
}

// DefaultConfig returns the full search space with one worker per CPU.
func DefaultConfig() Config {
	return Config{
		Leads:    append([]int(nil), DefaultLeads...),
		Families: domain.AllFamilies(),
		Workers:  runtime.NumCPU(),
	}
}

// Progress is a snapshot of a running tournament.
type Progress struct {
	RunID   string
	Total   int // configurations enumerated
	Done    int
	Scored  int
	Skipped int
}

// ProgressFunc receives progress snapshots. Calls are serialized.
type ProgressFunc func(Progress)

// Skip records a configuration that produced no row.
type Skip struct {
	Config domain.Configuration
	Reason string
	Detail string
}

// Result is the outcome of one tournament run.
type Result struct {
	RunID      string
	Rows       []*domain.TournamentResult // ranked, benchmark included
	Benchmark  *domain.TournamentResult
	Skipped    []Skip
	Ineligible []signals.Skipped
	Total      int
	Duration   time.Duration
}

// Scored returns the number of non-benchmark rows.
func (r *Result) Scored() int {
	return len(r.Rows) - 1
}

// ValidCount returns the number of valid non-benchmark rows.
func (r *Result) ValidCount() int {
	n := 0
	for _, row := range r.Rows {
		if row.Valid && !row.Benchmark {
			n++
		}
	}
	return n
}

// Engine runs tournaments over one runner and catalog.
type Engine struct {
	runner    *backtest.Runner
	catalog   *signals.Catalog
	cfg       Config
	evaluator *decision.Evaluator
	logger    arbor.ILogger
	progress  ProgressFunc
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger.
func WithLogger(logger arbor.ILogger) Option {
	return func(e *Engine) { e.logger = logger }
}

// WithProgress registers a progress callback.
func WithProgress(fn ProgressFunc) Option {
	return func(e *Engine) { e.progress = fn }
}

// WithEvaluator overrides the validity evaluator.
func WithEvaluator(ev *decision.Evaluator) Option {
	return func(e *Engine) { e.evaluator = ev }
}

// New creates an Engine.
func New(runner *backtest.Runner, catalog *signals.Catalog, cfg Config, opts ...Option) *Engine {
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}
	if len(cfg.Leads) == 0 {
		cfg.Leads = append([]int(nil), DefaultLeads...)
	}
	if len(cfg.Families) == 0 {
		cfg.Families = domain.AllFamilies()
	}
	e := &Engine{
		runner:    runner,
		catalog:   catalog,
		cfg:       cfg,
		evaluator: decision.NewEvaluator(),
		logger:    arbor.NewLogger(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// unit is one (signal, lead, threshold) calibration shared by every family.
type unit struct {
	spec   signals.Spec
	lead   int
	method threshold.Method
}

type unitOutcome struct {
	rows  []*domain.TournamentResult
	skips []Skip
}

// Run enumerates and scores every eligible configuration. A failing
// configuration is recorded as skipped; only context cancellation aborts.
func (e *Engine) Run(ctx context.Context, runID string) (*Result, error) {
	started := time.Now()
	eligible, ineligible := e.catalog.Resolve(e.runner.Panel())
	for _, s := range ineligible {
		e.logger.Warn().Str("signal", s.SignalID).Str("column", s.Column).Str("reason", s.Reason).Msg("Signal not eligible")
	}

	var units []unit
	for _, spec := range eligible {
		for _, lead := range e.cfg.Leads {
			for _, m := range spec.Methods {
				units = append(units, unit{spec: spec, lead: lead, method: m})
			}
		}
	}
	total := len(units) * len(e.cfg.Families)

	e.logger.Info().
		Str("run_id", runID).
		Int("signals", len(eligible)).
		Int("combinations", total).
		Int("workers", e.cfg.Workers).
		Msg("Tournament started")

	outcomes := make([]unitOutcome, len(units))
	tracker := &progressTracker{fn: e.progress, snap: Progress{RunID: runID, Total: total}}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.cfg.Workers)
	for i, u := range units {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			outcomes[i] = e.runUnit(runID, u)
			tracker.add(len(outcomes[i].rows), len(outcomes[i].skips))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("tournament %s: %w", runID, err)
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("tournament %s: %w", runID, err)
	}

	result := &Result{RunID: runID, Ineligible: ineligible, Total: total}
	for _, o := range outcomes {
		result.Rows = append(result.Rows, o.rows...)
		result.Skipped = append(result.Skipped, o.skips...)
	}
	result.Benchmark = e.benchmark(runID)
	result.Rows = append(result.Rows, result.Benchmark)
	Rank(result.Rows)

	result.Duration = time.Since(started)
	observability.RecordTournament(result.Duration.Seconds())
	e.logger.Info().
		Str("run_id", runID).
		Int("scored", result.Scored()).
		Int("skipped", len(result.Skipped)).
		Int("valid", result.ValidCount()).
		Str("duration", result.Duration.Round(time.Millisecond).String()).
		Msg("Tournament completed")
	return result, nil
}

// runUnit calibrates one threshold and scores every family against it.
func (e *Engine) runUnit(runID string, u unit) (out unitOutcome) {
	base := domain.Configuration{SignalID: u.spec.ID, LeadTime: u.lead, ThresholdID: u.method.ID()}

	defer func() {
		if r := recover(); r != nil {
			observability.RecordWorkerPanic()
			e.logger.Error().Str("config", base.String()).Str("panic", fmt.Sprint(r)).Msg("Combination panicked")
			out = unitOutcome{skips: e.skipAll(base, SkipPanic, fmt.Sprint(r))}
		}
	}()

	prepared, err := e.runner.Prepare(u.spec, u.lead, u.method)
	if err != nil {
		reason := SkipError
		if errors.Is(err, backtest.ErrInsufficientInSample) {
			reason = SkipInsufficientInSample
		}
		return unitOutcome{skips: e.skipAll(base, reason, err.Error())}
	}

	for _, fam := range e.cfg.Families {
		cfg := base
		cfg.Family = fam
		row, skip := e.score(runID, prepared, cfg)
		if skip != nil {
			observability.RecordCombinationSkipped(skip.Reason)
			out.skips = append(out.skips, *skip)
			continue
		}
		observability.RecordCombinationScored(row.Valid)
		out.rows = append(out.rows, row)
	}
	return out
}

func (e *Engine) score(runID string, prepared *backtest.Prepared, cfg domain.Configuration) (*domain.TournamentResult, *Skip) {
	rec, err := prepared.Run(cfg.Family)
	if err != nil {
		return nil, &Skip{Config: cfg, Reason: SkipError, Detail: err.Error()}
	}
	score, err := rec.Evaluate()
	if err != nil {
		reason := SkipError
		if errors.Is(err, backtest.ErrSparseOutOfSample) {
			reason = SkipSparseOutOfSample
		}
		return nil, &Skip{Config: cfg, Reason: reason, Detail: err.Error()}
	}

	return &domain.TournamentResult{
		RunID:         runID,
		ConfigID:      idhash.ConfigurationID(cfg),
		Configuration: cfg,
		SignalColumn:  prepared.Spec.Column,
		InSample:      score.InSample,
		OutOfSample:   score.OutOfSample,
		OOSTrades:     score.Trades,
		OOSTurnover:   score.Turnover,
		Valid: e.evaluator.Valid(decision.ValidityInput{
			Sharpe:   score.OutOfSample.Sharpe,
			Turnover: score.Turnover,
			Trades:   score.Trades,
		}),
	}, nil
}

// Rescore rebuilds a single row from the panel. The benchmark
// configuration is rescored as buy-and-hold.
func (e *Engine) Rescore(runID string, cfg domain.Configuration) (*domain.TournamentResult, error) {
	if cfg == BenchmarkConfiguration() {
		return e.benchmark(runID), nil
	}
	spec, ok := e.catalog.Get(cfg.SignalID)
	if !ok {
		return nil, fmt.Errorf("%w: %s", backtest.ErrUnknownSignal, cfg.SignalID)
	}
	method, err := backtest.MethodFor(spec, cfg.ThresholdID)
	if err != nil {
		return nil, err
	}
	prepared, err := e.runner.Prepare(spec, cfg.LeadTime, method)
	if err != nil {
		return nil, err
	}
	row, skip := e.score(runID, prepared, cfg)
	if skip != nil {
		return nil, fmt.Errorf("%s %s: %s", cfg, skip.Reason, skip.Detail)
	}
	return row, nil
}

func (e *Engine) skipAll(base domain.Configuration, reason, detail string) []Skip {
	skips := make([]Skip, 0, len(e.cfg.Families))
	for _, fam := range e.cfg.Families {
		cfg := base
		cfg.Family = fam
		skips = append(skips, Skip{Config: cfg, Reason: reason, Detail: detail})
		observability.RecordCombinationSkipped(reason)
	}
	return skips
}

// benchmark scores buy-and-hold of the asset. It is always valid.
func (e *Engine) benchmark(runID string) *domain.TournamentResult {
	returns := e.runner.AssetReturns()
	cfg := BenchmarkConfiguration()
	return &domain.TournamentResult{
		RunID:         runID,
		ConfigID:      idhash.ConfigurationID(cfg),
		Configuration: cfg,
		SignalColumn:  e.runner.Asset(),
		InSample:      metrics.Compute(returns[:e.runner.InSampleEnd()]),
		OutOfSample:   metrics.Compute(returns[e.runner.OutOfSampleStart():]),
		Valid:         true,
		Benchmark:     true,
	}
}

// BenchmarkConfiguration returns the configuration label of the buy-and-hold row.
func BenchmarkConfiguration() domain.Configuration {
	return domain.Configuration{
		SignalID:    domain.BenchmarkSignalID,
		ThresholdID: domain.BenchmarkThresholdID,
		Family:      domain.FamilyBuyAndHold,
	}
}

// Rank sorts rows by OOS Sharpe descending, undefined last, then by config ID.
func Rank(rows []*domain.TournamentResult) {
	sort.SliceStable(rows, func(i, j int) bool {
		a, b := rows[i].OutOfSample.Sharpe, rows[j].OutOfSample.Sharpe
		an, bn := math.IsNaN(a), math.IsNaN(b)
		switch {
		case an != bn:
			return bn
		case !an && a != b:
			return a > b
		}
		return rows[i].ConfigID < rows[j].ConfigID
	})
}

// Shortlist returns the top n valid, non-benchmark rows of ranked rows.
func Shortlist(rows []*domain.TournamentResult, n int) []*domain.TournamentResult {
	var out []*domain.TournamentResult
	for _, r := range rows {
		if len(out) == n {
			break
		}
		if r.Valid && !r.Benchmark {
			out = append(out, r)
		}
	}
	return out
}

type progressTracker struct {
	mu   sync.Mutex
	fn   ProgressFunc
	snap Progress
}

func (t *progressTracker) add(scored, skipped int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.snap.Scored += scored
	t.snap.Skipped += skipped
	t.snap.Done += scored + skipped
	if t.fn != nil {
		t.fn(t.snap)
	}
}
