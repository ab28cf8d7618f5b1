package orchestrator

import (
	"context"
	"runtime"

	"github.com/ternarybob/arbor"

	"credit-signal-lab/internal/backtest"
	"credit-signal-lab/internal/common"
	"credit-signal-lab/internal/decision"
	"credit-signal-lab/internal/domain"
	"credit-signal-lab/internal/fixtures"
	"credit-signal-lab/internal/normalization"
	"credit-signal-lab/internal/storage/backend"
	"credit-signal-lab/internal/tournament"
	"credit-signal-lab/internal/validation"
)

// SourceFor picks the panel source configured in data: fixtures, a CSV
// file, or the observation store.
func SourceFor(config *common.Config, stores *backend.Stores, logger arbor.ILogger) PanelSource {
	data := config.Data
	switch {
	case data.UseFixtures:
		opts := fixtures.DefaultOptions()
		opts.Start, opts.End = data.StartDate(), data.EndDate()
		return FixtureSource{Options: opts}
	case data.PanelCSV != "":
		return CSVSource{Path: data.PanelCSV}
	}
	nopts := normalization.DefaultOptions(data.StartDate(), data.EndDate())
	nopts.FFillLimit = data.FFillLimit
	return StoreSource{Runner: normalization.NewRunner(stores.Observations, logger, nopts)}
}

// SplitFor returns the configured in-sample/out-of-sample split.
func SplitFor(config *common.Config) backtest.Split {
	return backtest.Split{
		InSampleEnd:      config.Split.InSampleEndDate(),
		OutOfSampleStart: config.Split.OutOfSampleStartDate(),
	}
}

// EvaluatorFor builds the validity and robustness gates from decision.
func EvaluatorFor(dc common.DecisionConfig) *decision.Evaluator {
	return decision.NewEvaluator().
		WithValidityCriteria(decision.ValidityCriteria{
			MinSharpe:   dc.MinSharpe,
			MaxTurnover: dc.MaxTurnover,
			MinTrades:   dc.MinTrades,
		}).
		WithRobustnessCriteria(decision.RobustnessCriteria{
			MaxPValue:         dc.MaxPValue,
			MinBreakevenBps:   dc.MinBreakevenBps,
			MinPositiveYears:  dc.MinPositiveYears,
			MinDelayedSharpe:  dc.MinDelayedSharpe,
			MinFullOOSExcess:  dc.MinFullOOSExcess,
			RequireStressWins: dc.RequireStressWins,
		})
}

// TournamentConfigFor maps the tournament section. Zero workers means one per CPU.
func TournamentConfigFor(tc common.TournamentConfig) tournament.Config {
	cfg := tournament.Config{
		Leads:   append([]int(nil), tc.Leads...),
		Workers: tc.Workers,
	}
	if cfg.Workers <= 0 {
		cfg.Workers = runtime.NumCPU()
	}
	for _, f := range tc.Families {
		cfg.Families = append(cfg.Families, domain.StrategyFamily(f))
	}
	return cfg
}

// ValidationConfigFor maps the validation section onto the defaults.
func ValidationConfigFor(vc common.ValidationConfig) validation.Config {
	cfg := validation.DefaultConfig()
	cfg.BootstrapResamples = vc.BootstrapResamples
	cfg.BootstrapSeed = vc.BootstrapSeed
	cfg.CostsBps = append([]float64(nil), vc.CostsBps...)
	cfg.ExtraDelays = vc.ExtraDelays()
	return cfg
}

// OptionsFor assembles orchestrator options from a validated config.
// Progress and event callbacks are left to the caller.
func OptionsFor(config *common.Config, stores *backend.Stores, logger arbor.ILogger) (Options, error) {
	regime, err := LoadRegimeInputs(config.Data.RegimeDir)
	if err != nil {
		return Options{}, err
	}
	split := SplitFor(config)
	return Options{
		RunStore:        stores.Runs,
		ResultStore:     stores.Results,
		ValidationStore: stores.Validation,
		StoreName:       stores.Backend,
		Source:          SourceFor(config, stores, logger),
		Asset:           config.Data.Asset,
		Regime:          regime,
		Split:           &split,
		Tournament:      TournamentConfigFor(config.Tournament),
		Validation:      ValidationConfigFor(config.Validation),
		Evaluator:       EvaluatorFor(config.Decision),
		Shortlist:       config.Tournament.Shortlist,
		OutputDir:       config.Output.Dir,
		Logger:          logger,
	}, nil
}

// EngineFor loads the panel of opts and builds a tournament engine over it
// with the same catalog, split and gates a run with opts would use.
func EngineFor(ctx context.Context, opts Options) (*tournament.Engine, error) {
	o := New(opts)
	p, _, _, err := LoadPanel(ctx, o.source, o.regime)
	if err != nil {
		return nil, err
	}
	runner, err := backtest.NewRunner(p, o.asset, o.split)
	if err != nil {
		return nil, err
	}
	return tournament.New(runner, o.catalog, o.tournamentCfg,
		tournament.WithLogger(o.logger),
		tournament.WithEvaluator(o.evaluator),
	), nil
}
