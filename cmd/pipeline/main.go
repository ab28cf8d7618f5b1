// Package main provides E2E pipeline entry point.
// Executes: panel → tournament → validation → reporting
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"credit-signal-lab/internal/common"
	"credit-signal-lab/internal/idhash"
	"credit-signal-lab/internal/orchestrator"
	"credit-signal-lab/internal/storage/backend"
	"credit-signal-lab/internal/tournament"
)

func main() {
	// Parse flags
	configPath := flag.String("config", "", "Path to TOML config file")
	outputDir := flag.String("output-dir", "", "Output directory for generated files (overrides output.dir)")
	panelCSV := flag.String("panel-csv", "", "Read the panel from this CSV (overrides data.panel_csv)")
	useFixtures := flag.Bool("fixtures", false, "Run on the synthetic panel")
	workers := flag.Int("workers", -1, "Tournament workers (overrides tournament.workers)")
	flag.Parse()

	config, err := common.LoadFromFiles(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}
	// CLI flags override file and env values
	if *outputDir != "" {
		config.Output.Dir = *outputDir
	}
	if *panelCSV != "" {
		config.Data.PanelCSV = *panelCSV
	}
	if *useFixtures {
		config.Data.UseFixtures = true
	}
	if *workers >= 0 {
		config.Tournament.Workers = *workers
	}
	if err := config.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	logger := common.InitLogger(config)

	// Create context with cancellation for graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	stores, err := backend.Open(ctx, config.Storage, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening storage: %v\n", err)
		os.Exit(1)
	}
	defer stores.Close()

	opts, err := orchestrator.OptionsFor(config, stores, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	lastDecile := -1
	opts.Progress = func(p tournament.Progress) {
		if p.Total == 0 {
			return
		}
		if decile := p.Done * 10 / p.Total; decile != lastDecile {
			lastDecile = decile
			logger.Info().Int("done", p.Done).Int("total", p.Total).Int("skipped", p.Skipped).Msg("Tournament progress")
		}
	}

	fmt.Println("=== Credit Signal Tournament ===")
	result, err := orchestrator.New(opts).Run(ctx)
	if err != nil {
		if result != nil && result.Sufficiency != nil && !result.Sufficiency.AllPass {
			for _, c := range result.Sufficiency.Checks {
				fmt.Fprintf(os.Stderr, "  [%s] %s: %s (need %s)\n", passFail(c.Pass), c.Name, c.Actual, c.Threshold)
			}
		}
		fmt.Fprintf(os.Stderr, "Pipeline error: %v\n", err)
		os.Exit(1)
	}

	t := result.Tournament
	fmt.Printf("Run %s completed:\n", result.Run.RunID)
	fmt.Printf("  Combinations: %d\n", t.Total)
	fmt.Printf("  Scored: %d (valid %d)\n", t.Scored(), t.ValidCount())
	fmt.Printf("  Skipped: %d\n", len(t.Skipped))
	fmt.Printf("  Ineligible signals: %d\n", len(t.Ineligible))
	fmt.Printf("  Panel fingerprint: %s\n", result.Fingerprint)

	if len(result.Winners) > 0 {
		fmt.Println("\nValidated winners:")
		for i, w := range result.Winners {
			fmt.Printf("  %d. %s %s  OOS Sharpe %.3f\n", i+1, idhash.ShortID(w.ConfigID), w.Configuration, w.OutOfSample.Sharpe)
		}
	}

	if result.Report != nil {
		fmt.Println("\nFiles written:")
		for _, f := range result.Report.Files {
			fmt.Printf("  - %s\n", filepath.Clean(f))
		}
	}
}

func passFail(ok bool) string {
	if ok {
		return "PASS"
	}
	return "FAIL"
}
