package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"credit-signal-lab/internal/common"
	"credit-signal-lab/internal/orchestrator"
	"credit-signal-lab/internal/pipeline"
	"credit-signal-lab/internal/reporting"
	"credit-signal-lab/internal/storage"
	"credit-signal-lab/internal/storage/backend"
)

func main() {
	// Parse flags
	configPath := flag.String("config", "", "Path to TOML config file")
	runID := flag.String("run-id", "", "Run to report (default: latest)")
	outputDir := flag.String("output-dir", "", "Output directory for generated files (overrides output.dir)")
	topN := flag.Int("top", reporting.DefaultTopN, "Leaderboard rows")
	listRuns := flag.Bool("list", false, "List stored runs and exit")
	flag.Parse()

	config, err := common.LoadFromFiles(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}
	if *outputDir != "" {
		config.Output.Dir = *outputDir
	}
	if err := config.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	logger := common.InitLogger(config)
	ctx := context.Background()

	stores, err := backend.Open(ctx, config.Storage, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening storage: %v\n", err)
		os.Exit(1)
	}
	defer stores.Close()

	if stores.Backend == backend.Memory {
		fmt.Fprintln(os.Stderr, "Error: the memory backend keeps no runs between processes")
		fmt.Fprintln(os.Stderr, "Set storage.backend = \"sql\" or use cmd/pipeline, which writes its report directly")
		os.Exit(1)
	}

	if *listRuns {
		runs, err := stores.Runs.List(ctx, 0)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error listing runs: %v\n", err)
			os.Exit(1)
		}
		for _, r := range runs {
			fmt.Printf("%s  %-9s  %s  scored=%d valid=%d\n",
				r.RunID, r.Status, r.StartedAt.Format("2006-01-02 15:04:05"), r.Scored, r.Valid)
		}
		return
	}

	if *runID == "" {
		runs, err := stores.Runs.List(ctx, 1)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error listing runs: %v\n", err)
			os.Exit(1)
		}
		if len(runs) == 0 {
			fmt.Fprintln(os.Stderr, "Error: no stored runs")
			os.Exit(1)
		}
		*runID = runs[0].RunID
	}

	generator := reporting.NewGenerator(stores.Runs, stores.Results, stores.Validation).
		WithEvaluator(orchestrator.EvaluatorFor(config.Decision)).
		WithTopN(*topN)
	writer := pipeline.NewReportWriter(generator, config.Output.Dir, logger)

	out, err := writer.Write(ctx, *runID)
	if errors.Is(err, storage.ErrNotFound) {
		fmt.Fprintf(os.Stderr, "Error: run %s not found\n", *runID)
		os.Exit(1)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error generating report: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Report for run %s (%d valid, %d GO):\n", *runID, out.Report.ValidCount(), out.Report.GoCount())
	for _, f := range out.Files {
		fmt.Printf("  - %s\n", filepath.Clean(f))
	}
}
