// Package main re-scores the stored rows of a run and reports any divergence.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/ternarybob/arbor"

	"credit-signal-lab/internal/common"
	"credit-signal-lab/internal/idhash"
	"credit-signal-lab/internal/orchestrator"
	"credit-signal-lab/internal/storage/backend"
	"credit-signal-lab/internal/verification"
)

func main() {
	// Parse flags
	configPath := flag.String("config", "", "Path to TOML config file")
	runID := flag.String("run-id", "", "Run to verify (default: latest)")
	configID := flag.String("config-id", "", "Verify a single configuration")
	verbose := flag.Bool("verbose", false, "Print every row, not only divergent ones")
	flag.Parse()

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

	// an in-memory store starts empty, so produce a run to check first
	if stores.Backend == backend.Memory && *runID == "" {
		opts.OutputDir = ""
		result, err := orchestrator.New(opts).Run(ctx)
		if err != nil {
			fatal(logger, err, "Pipeline failed")
		}
		*runID = result.Run.RunID
	}
	if *runID == "" {
		runs, err := stores.Runs.List(ctx, 1)
		if err != nil || len(runs) == 0 {
			fatal(logger, fmt.Errorf("no stored runs: %v", err), "Nothing to verify")
		}
		*runID = runs[0].RunID
	}

	engine, err := orchestrator.EngineFor(ctx, opts)
	if err != nil {
		fatal(logger, err, "Failed to build tournament engine")
	}
	verifier := verification.NewVerifier(stores.Results, engine, logger)

	if *configID != "" {
		r, err := verifier.VerifyConfig(ctx, *runID, *configID)
		if err != nil {
			fatal(logger, err, "Verification failed")
		}
		printResult(*r)
		if !r.Match {
			os.Exit(1)
		}
		return
	}

	report, err := verifier.VerifyRun(ctx, *runID)
	if err != nil {
		fatal(logger, err, "Verification failed")
	}

	fmt.Printf("Run %s: %d rows, %d matched, %d divergent\n",
		report.RunID, report.TotalRows, report.MatchedRows, report.DivergentRows)
	for _, r := range report.Results {
		if *verbose || !r.Match {
			printResult(r)
		}
	}
	if report.DivergentRows > 0 {
		os.Exit(1)
	}
}

func printResult(r verification.VerificationResult) {
	status := "OK"
	if !r.Match {
		status = "DIVERGENT"
	}
	fmt.Printf("  %-9s %s %s (stored sharpe %.6f, replayed %.6f)\n",
		status, idhash.ShortID(r.ConfigID), r.Configuration, r.StoredSharpe, r.ReplayedSharpe)
	for _, d := range r.Divergences {
		fmt.Printf("      %s: stored=%v replayed=%v\n", d.Field, d.Expected, d.Actual)
	}
}

func fatal(logger arbor.ILogger, err error, msg string) {
	logger.Error().Err(err).Msg(msg)
	os.Exit(1)
}
