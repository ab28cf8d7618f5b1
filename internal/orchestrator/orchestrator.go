// Package orchestrator provides E2E pipeline orchestration.
// It coordinates: panel → derivation → sufficiency → tournament → validation → persistence → reporting
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/ternarybob/arbor"

	"credit-signal-lab/internal/backtest"
	"credit-signal-lab/internal/decision"
	"credit-signal-lab/internal/domain"
	"credit-signal-lab/internal/idhash"
	"credit-signal-lab/internal/observability"
	"credit-signal-lab/internal/panel"
	"credit-signal-lab/internal/pipeline"
	"credit-signal-lab/internal/reporting"
	"credit-signal-lab/internal/signals"
	"credit-signal-lab/internal/storage"
	"credit-signal-lab/internal/tournament"
	"credit-signal-lab/internal/validation"
)

// ErrInsufficientData is returned when the panel fails a sufficiency check.
var ErrInsufficientData = errors.New("panel failed data sufficiency checks")

// DefaultShortlist is the number of winners validated per run.
const DefaultShortlist = 5

// RunEventFunc receives run status changes. err is nil unless status is FAILED.
type RunEventFunc func(runID, status string, err error)

// Orchestrator coordinates one end-to-end tournament run.
type Orchestrator struct {
	// Stores
	runStore        storage.RunStore
	resultStore     storage.TournamentResultStore
	validationStore storage.ValidationStore
	storeName       string

	// Inputs
	source  PanelSource
	regime  signals.RegimeInputs
	catalog *signals.Catalog
	asset   string
	split   backtest.Split

	// Configs
	tournamentCfg tournament.Config
	validationCfg validation.Config
	sufficiency   pipeline.SufficiencyCriteria
	evaluator     *decision.Evaluator
	shortlist     int

	// Output
	outputDir string
	progress  tournament.ProgressFunc
	events    RunEventFunc
	logger    arbor.ILogger
	now       func() time.Time
}

// Options for creating Orchestrator.
type Options struct {
	// Required stores
	RunStore        storage.RunStore
	ResultStore     storage.TournamentResultStore
	ValidationStore storage.ValidationStore
	StoreName       string // metric label, defaults to "memory"

	// Required inputs
	Source PanelSource
	Asset  string

	// Optional inputs
	Regime  signals.RegimeInputs
	Catalog *signals.Catalog // nil uses signals.DefaultCatalog
	Split   *backtest.Split  // nil uses backtest.DefaultSplit

	// Configs
	Tournament  tournament.Config
	Validation  validation.Config
	Sufficiency *pipeline.SufficiencyCriteria
	Evaluator   *decision.Evaluator
	Shortlist   int

	// OutputDir receives the report files; empty skips report writing.
	OutputDir string
	Progress  tournament.ProgressFunc
	Events    RunEventFunc
	Logger    arbor.ILogger
}

// New creates a new Orchestrator.
func New(opts Options) *Orchestrator {
	o := &Orchestrator{
		runStore:        opts.RunStore,
		resultStore:     opts.ResultStore,
		validationStore: opts.ValidationStore,
		storeName:       opts.StoreName,
		source:          opts.Source,
		regime:          opts.Regime,
		catalog:         opts.Catalog,
		asset:           opts.Asset,
		split:           backtest.DefaultSplit(),
		tournamentCfg:   opts.Tournament,
		validationCfg:   opts.Validation,
		sufficiency:     pipeline.DefaultSufficiencyCriteria(),
		evaluator:       opts.Evaluator,
		shortlist:       opts.Shortlist,
		outputDir:       opts.OutputDir,
		progress:        opts.Progress,
		events:          opts.Events,
		logger:          opts.Logger,
		now:             time.Now,
	}
	if o.storeName == "" {
		o.storeName = "memory"
	}
	if o.catalog == nil {
		o.catalog = signals.DefaultCatalog()
	}
	if o.asset == "" {
		o.asset = signals.ColDefaultSPY
	}
	if opts.Split != nil {
		o.split = *opts.Split
	}
	if opts.Sufficiency != nil {
		o.sufficiency = *opts.Sufficiency
	}
	if o.evaluator == nil {
		o.evaluator = decision.NewEvaluator()
	}
	if o.shortlist <= 0 {
		o.shortlist = DefaultShortlist
	}
	if o.logger == nil {
		o.logger = arbor.NewLogger()
	}
	return o
}

// WithClock overrides the clock used for run timestamps.
func (o *Orchestrator) WithClock(now func() time.Time) *Orchestrator {
	o.now = now
	return o
}

// RunResult contains results from orchestrator execution.
type RunResult struct {
	Run         *domain.Run
	Tournament  *tournament.Result
	Winners     []*domain.TournamentResult
	Validation  *domain.ValidationReport
	Sufficiency *pipeline.SufficiencyResult
	Fingerprint string
	Report      *pipeline.Output // nil when no output directory is set
}

// Run executes the full E2E pipeline.
// Phases:
//  1. Load the panel and derive signal columns
//  2. Check data sufficiency
//  3. Run the tournament
//  4. Validate the shortlisted winners
//  5. Persist and write the report
//
// The run record is written first and always closed as COMPLETED or FAILED.
func (o *Orchestrator) Run(ctx context.Context) (*RunResult, error) {
	started := o.now().UTC()
	run := &domain.Run{
		RunID:            uuid.New().String(),
		Status:           domain.RunStatusRunning,
		StartedAt:        started,
		InSampleEnd:      o.split.InSampleEnd,
		OutOfSampleStart: o.split.OutOfSampleStart,
	}
	if err := o.timed("insert_run", func() error { return o.runStore.Insert(ctx, run) }); err != nil {
		return nil, fmt.Errorf("insert run: %w", err)
	}
	o.emit(run.RunID, domain.RunStatusRunning, nil)
	o.logger.Info().Str("run_id", run.RunID).Str("source", o.source.Describe()).Msg("Pipeline started")

	result, err := o.execute(ctx, run)
	if err != nil {
		o.fail(run, err)
		observability.RecordPipelineRun("total", "failed", time.Since(started).Seconds())
		return result, err
	}

	observability.RecordPipelineRun("total", "success", time.Since(started).Seconds())
	observability.MarkPipelineSuccess(o.now())
	o.emit(run.RunID, domain.RunStatusCompleted, nil)
	o.logger.Info().
		Str("run_id", run.RunID).
		Int("scored", run.Scored).
		Int("valid", run.Valid).
		Int("winners", len(result.Winners)).
		Msg("Pipeline completed")
	return result, nil
}

func (o *Orchestrator) execute(ctx context.Context, run *domain.Run) (*RunResult, error) {
	result := &RunResult{Run: run}

	// Phase 1: panel
	p, err := o.phase("load_panel", func() (*panel.Panel, error) { return o.loadPanel(ctx) })
	if err != nil {
		return result, fmt.Errorf("phase 1 (load panel) failed: %w", err)
	}
	run.PanelStart, run.PanelEnd = p.Start(), p.End()
	result.Fingerprint = idhash.PanelFingerprint(p)

	// Phase 2: sufficiency
	checker := pipeline.NewSufficiencyChecker(o.catalog).WithCriteria(o.sufficiency)
	result.Sufficiency = checker.Check(p, o.asset, o.split)
	if !result.Sufficiency.AllPass {
		for _, c := range result.Sufficiency.Checks {
			if !c.Pass {
				o.logger.Warn().Str("check", c.Name).Str("threshold", c.Threshold).Str("actual", c.Actual).Msg("Sufficiency check failed")
			}
		}
		return result, fmt.Errorf("phase 2 (sufficiency): %w", ErrInsufficientData)
	}

	// Phase 3: tournament
	runner, err := backtest.NewRunner(p, o.asset, o.split)
	if err != nil {
		return result, fmt.Errorf("phase 3 (tournament) failed: %w", err)
	}
	engine := tournament.New(runner, o.catalog, o.tournamentCfg,
		tournament.WithLogger(o.logger),
		tournament.WithEvaluator(o.evaluator),
		tournament.WithProgress(o.progress),
	)
	phaseStart := time.Now()
	result.Tournament, err = engine.Run(ctx, run.RunID)
	o.recordPhase("tournament", phaseStart, err)
	if err != nil {
		return result, fmt.Errorf("phase 3 (tournament) failed: %w", err)
	}
	run.Combinations = result.Tournament.Total
	run.Scored = result.Tournament.Scored()
	run.Skipped = len(result.Tournament.Skipped)
	run.Valid = result.Tournament.ValidCount()

	if err := o.timed("insert_results", func() error {
		return o.resultStore.InsertBulk(ctx, result.Tournament.Rows)
	}); err != nil {
		return result, fmt.Errorf("persist tournament results: %w", err)
	}

	// Phase 4: validation
	result.Winners = tournament.Shortlist(result.Tournament.Rows, o.shortlist)
	if len(result.Winners) == 0 {
		o.logger.Warn().Str("run_id", run.RunID).Msg("No valid configuration to validate")
	} else {
		suite := validation.NewSuite(runner, o.catalog, o.validationCfg, o.logger)
		phaseStart = time.Now()
		result.Validation, err = suite.Run(ctx, run.RunID, validation.Configurations(result.Winners))
		o.recordPhase("validation", phaseStart, err)
		if err != nil {
			return result, fmt.Errorf("phase 4 (validation) failed: %w", err)
		}
		if err := o.timed("insert_validation", func() error {
			return o.validationStore.Insert(ctx, run.RunID, result.Validation)
		}); err != nil {
			return result, fmt.Errorf("persist validation: %w", err)
		}
	}

	completed := o.now().UTC()
	run.Status = domain.RunStatusCompleted
	run.CompletedAt = &completed
	if err := o.timed("update_run", func() error { return o.runStore.Update(ctx, run) }); err != nil {
		return result, fmt.Errorf("update run: %w", err)
	}

	// Phase 5: report
	if o.outputDir != "" {
		phaseStart = time.Now()
		result.Report, err = o.writeReport(ctx, run.RunID, result)
		o.recordPhase("report", phaseStart, err)
		if err != nil {
			return result, fmt.Errorf("phase 5 (report) failed: %w", err)
		}
	}
	return result, nil
}

// loadPanel loads the sourced panel, derives signal columns and attaches
// any supplied regime probabilities.
func (o *Orchestrator) loadPanel(ctx context.Context) (*panel.Panel, error) {
	p, derived, attached, err := LoadPanel(ctx, o.source, o.regime)
	if err != nil {
		return nil, err
	}
	o.logger.Info().
		Int("rows", p.Len()).
		Int("columns", len(p.Columns())).
		Int("derived", len(derived.Derived)).
		Int("regime_inputs", len(attached)).
		Msg("Panel loaded")
	return p, nil
}

// LoadPanel loads source, derives the signal columns and attaches regime
// inputs. It returns the derivation report and the regime columns attached.
func LoadPanel(ctx context.Context, source PanelSource, regime signals.RegimeInputs) (*panel.Panel, *signals.DeriveReport, []string, error) {
	p, err := source.Load(ctx)
	if err != nil {
		return nil, nil, nil, err
	}
	derived, err := signals.Derive(p)
	if err != nil {
		return nil, nil, nil, err
	}
	attached, err := regime.Attach(p)
	if err != nil {
		return nil, nil, nil, err
	}
	return p, derived, attached, nil
}

func (o *Orchestrator) writeReport(ctx context.Context, runID string, result *RunResult) (*pipeline.Output, error) {
	generator := reporting.NewGenerator(o.runStore, o.resultStore, o.validationStore).WithEvaluator(o.evaluator)
	writer := pipeline.NewReportWriter(generator, o.outputDir, o.logger).
		WithDataQuality(pipeline.ToDataQuality(result.Sufficiency)).
		WithSource(o.source.Describe(), result.Fingerprint)

	var ineligible []reporting.IneligibleRow
	for _, s := range result.Tournament.Ineligible {
		ineligible = append(ineligible, reporting.IneligibleRow{SignalID: s.SignalID, Column: s.Column, Reason: s.Reason})
	}
	writer.WithIneligible(ineligible)

	return writer.Write(ctx, runID)
}

// fail closes the run as FAILED. The original error is what the caller sees.
func (o *Orchestrator) fail(run *domain.Run, cause error) {
	completed := o.now().UTC()
	run.Status = domain.RunStatusFailed
	run.CompletedAt = &completed
	run.Error = cause.Error()

	// the run context may already be cancelled
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := o.timed("update_run", func() error { return o.runStore.Update(ctx, run) }); err != nil {
		o.logger.Error().Str("run_id", run.RunID).Err(err).Msg("Failed to mark run as failed")
	}
	o.emit(run.RunID, domain.RunStatusFailed, cause)
	o.logger.Error().Str("run_id", run.RunID).Err(cause).Msg("Pipeline failed")
}

func (o *Orchestrator) phase(name string, fn func() (*panel.Panel, error)) (*panel.Panel, error) {
	start := time.Now()
	p, err := fn()
	o.recordPhase(name, start, err)
	return p, err
}

func (o *Orchestrator) recordPhase(name string, start time.Time, err error) {
	status := "success"
	if err != nil {
		status = "failed"
	}
	observability.RecordPipelineRun(name, status, time.Since(start).Seconds())
}

// timed runs a store call and records its latency.
func (o *Orchestrator) timed(operation string, fn func() error) error {
	start := time.Now()
	err := fn()
	observability.RecordDBQuery(o.storeName, operation, time.Since(start).Seconds(), err)
	return err
}

func (o *Orchestrator) emit(runID, status string, err error) {
	if o.events != nil {
		o.events(runID, status, err)
	}
}
