// Package main backtests a single configuration and prints its scores.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"math"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/ternarybob/arbor"

	"credit-signal-lab/internal/backtest"
	"credit-signal-lab/internal/common"
	"credit-signal-lab/internal/domain"
	"credit-signal-lab/internal/idhash"
	"credit-signal-lab/internal/orchestrator"
	"credit-signal-lab/internal/signals"
	"credit-signal-lab/internal/storage/backend"
	"credit-signal-lab/internal/validation"
)

type output struct {
	ConfigID     string
	Config       domain.Configuration
	InSample     domain.PerformanceRecord
	OutOfSample  domain.PerformanceRecord
	Trades       int
	Turnover     float64
	BreakevenBps float64
}

func main() {
	// Parse flags
	configPath := flag.String("config", "", "Path to TOML config file")
	signalID := flag.String("signal", "", "Signal ID, e.g. S1 (required)")
	lead := flag.Int("lead", 0, "Lead time in business days")
	thresholdID := flag.String("threshold", "IS_Q75", "Threshold method ID")
	family := flag.String("family", "LONG_CASH", "Strategy family: LONG_CASH, SIGNAL_STRENGTH, LONG_SHORT")
	outputJSON := flag.Bool("json", false, "Output as JSON")
	flag.Parse()

	if *signalID == "" {
		fmt.Fprintln(os.Stderr, "--signal is required")
		os.Exit(2)
	}
	cfg := domain.Configuration{
		SignalID:    strings.ToUpper(*signalID),
		LeadTime:    *lead,
		ThresholdID: strings.ToUpper(*thresholdID),
		Family:      domain.StrategyFamily(strings.ToUpper(*family)),
	}
	if !cfg.Family.Valid() {
		fmt.Fprintf(os.Stderr, "Invalid family: %s\n", *family)
		os.Exit(2)
	}

	config, err := common.LoadFromFiles(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}
	if err := config.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	logger := common.InitLogger(config)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	stores, err := backend.Open(ctx, config.Storage, logger)
	if err != nil {
		fatal(logger, err, "Failed to open storage")
	}
	defer stores.Close()

	opts, err := orchestrator.OptionsFor(config, stores, logger)
	if err != nil {
		fatal(logger, err, "Failed to load regime inputs")
	}
	p, _, _, err := orchestrator.LoadPanel(ctx, opts.Source, opts.Regime)
	if err != nil {
		fatal(logger, err, "Failed to load panel")
	}

	runner, err := backtest.NewRunner(p, config.Data.Asset, *opts.Split)
	if err != nil {
		fatal(logger, err, "Failed to create runner")
	}
	rec, err := runner.Reconstruct(signals.DefaultCatalog(), cfg)
	if err != nil {
		fatal(logger, err, "Failed to reconstruct configuration")
	}
	score, err := rec.Evaluate()
	if err != nil {
		fatal(logger, err, "Failed to score configuration")
	}
	breakeven, _, _ := validation.BreakevenBps(rec.OutOfSampleReturns(), rec.LaggedTrades()[rec.OutOfSampleStart:])

	out := output{
		ConfigID:     idhash.ConfigurationID(cfg),
		Config:       cfg,
		InSample:     score.InSample,
		OutOfSample:  score.OutOfSample,
		Trades:       score.Trades,
		Turnover:     score.Turnover,
		BreakevenBps: breakeven,
	}

	if *outputJSON {
		printJSON(out)
		return
	}
	printText(out)
}

func printText(o output) {
	fmt.Printf("Configuration: %s (%s)\n", o.Config, idhash.ShortID(o.ConfigID))
	fmt.Printf("%-14s %10s %10s\n", "", "in-sample", "oos")
	row := func(name string, is, oos float64) {
		fmt.Printf("%-14s %10.3f %10.3f\n", name, is, oos)
	}
	row("Ann. return", o.InSample.AnnReturn, o.OutOfSample.AnnReturn)
	row("Ann. vol", o.InSample.AnnVol, o.OutOfSample.AnnVol)
	row("Sharpe", o.InSample.Sharpe, o.OutOfSample.Sharpe)
	row("Sortino", o.InSample.Sortino, o.OutOfSample.Sortino)
	row("Calmar", o.InSample.Calmar, o.OutOfSample.Calmar)
	row("Max drawdown", o.InSample.MaxDrawdown, o.OutOfSample.MaxDrawdown)
	row("Win rate", o.InSample.WinRate, o.OutOfSample.WinRate)
	fmt.Printf("OOS trades: %d (%.1f/yr)\n", o.Trades, o.Turnover)
	fmt.Printf("Breakeven cost: %.1f bps\n", o.BreakevenBps)
}

// printJSON writes undefined metrics as null.
func printJSON(o output) {
	data, err := json.MarshalIndent(jsonSafe(o), "", "  ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error encoding JSON: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(string(data))
}

func jsonSafe(o output) map[string]interface{} {
	return map[string]interface{}{
		"config_id":     o.ConfigID,
		"signal_id":     o.Config.SignalID,
		"lead_time":     o.Config.LeadTime,
		"threshold_id":  o.Config.ThresholdID,
		"family":        o.Config.Family,
		"in_sample":     performance(o.InSample),
		"out_of_sample": performance(o.OutOfSample),
		"oos_trades":    o.Trades,
		"oos_turnover":  number(o.Turnover),
		"breakeven_bps": number(o.BreakevenBps),
	}
}

func performance(p domain.PerformanceRecord) map[string]interface{} {
	return map[string]interface{}{
		"ann_return":   number(p.AnnReturn),
		"ann_vol":      number(p.AnnVol),
		"sharpe":       number(p.Sharpe),
		"sortino":      number(p.Sortino),
		"calmar":       number(p.Calmar),
		"max_drawdown": number(p.MaxDrawdown),
		"avg_drawdown": number(p.AvgDrawdown),
		"win_rate":     number(p.WinRate),
		"days":         p.Days,
	}
}

// number maps NaN and infinities to null; encoding/json rejects them.
func number(v float64) interface{} {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return v
}

func fatal(logger arbor.ILogger, err error, msg string) {
	logger.Error().Err(err).Msg(msg)
	os.Exit(1)
}
