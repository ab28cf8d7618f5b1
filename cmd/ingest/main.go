// Package main ingests FRED series and the traded asset's prices into the observation store.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/ternarybob/arbor"

	"credit-signal-lab/internal/common"
	"credit-signal-lab/internal/fixtures"
	"credit-signal-lab/internal/fred"
	"credit-signal-lab/internal/ingestion"
	"credit-signal-lab/internal/pipeline"
	"credit-signal-lab/internal/storage/backend"
)

func main() {
	// Parse flags
	configPath := flag.String("config", "", "Path to TOML config file")
	seriesFlag := flag.String("series", "", "Comma-separated FRED IDs or columns (default: all)")
	assetCSV := flag.String("asset-csv", "", "date,value CSV of the traded asset's prices")
	useFixtures := flag.Bool("fixtures", false, "Load the synthetic panel instead of calling FRED")
	start := flag.String("start", "", "First date (YYYY-MM-DD), overrides data.start")
	end := flag.String("end", "", "Last date (YYYY-MM-DD), overrides data.end")
	flag.Parse()

	config, err := common.LoadFromFiles(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}
	if *start != "" {
		config.Data.Start = *start
	}
	if *end != "" {
		config.Data.End = *end
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
		fatal(logger, err, "Failed to open storage")
	}
	defer stores.Close()

	from, to := config.Data.StartDate(), config.Data.EndDate()

	if *useFixtures {
		n, err := pipeline.LoadFixtures(ctx, stores.Observations, fixtures.Options{Start: from, End: to, Seed: fixtures.DefaultOptions().Seed})
		if err != nil {
			fatal(logger, err, "Failed to load fixtures")
		}
		logger.Info().Int("observations", n).Msg("Synthetic fixtures stored")
		return
	}

	series, err := selectSeries(*seriesFlag)
	if err != nil {
		fatal(logger, err, "Invalid --series")
	}

	timeout, _ := config.FRED.TimeoutDuration()
	client := fred.NewClient(
		fred.WithBaseURL(config.FRED.BaseURL),
		fred.WithRateLimit(config.FRED.RateLimit),
		fred.WithHTTPClient(&http.Client{Timeout: timeout}),
		fred.WithLogger(logger),
	)

	sources := ingestion.FREDSources(client, series)
	if *assetCSV != "" {
		sources = append(sources, ingestion.NewCSVFileSource(*assetCSV, config.Data.Asset))
	}

	manager := ingestion.NewManager(stores.Observations, logger)
	started := time.Now()
	results, err := manager.IngestAll(ctx, sources, from, to)
	if err != nil {
		fatal(logger, err, "Ingestion cancelled")
	}

	stored := 0
	for _, r := range results {
		stored += r.Stored
	}
	failed := ingestion.Failed(results)
	logger.Info().
		Int("series", len(results)).
		Int("stored", stored).
		Int("failed", len(failed)).
		Str("duration", time.Since(started).Round(time.Millisecond).String()).
		Msg("Ingestion completed")

	if len(failed) > 0 {
		for _, r := range failed {
			fmt.Fprintf(os.Stderr, "  %s: %v\n", r.Series, r.Err)
		}
		os.Exit(1)
	}
}

// selectSeries resolves comma-separated FRED IDs or column names.
func selectSeries(list string) ([]fred.Series, error) {
	if strings.TrimSpace(list) == "" {
		return fred.DefaultSeries(), nil
	}
	var out []fred.Series
	for _, key := range strings.Split(list, ",") {
		key = strings.TrimSpace(key)
		if key == "" {
			continue
		}
		s, ok := fred.Lookup(key)
		if !ok {
			return nil, fmt.Errorf("unknown series %q", key)
		}
		out = append(out, s)
	}
	return out, nil
}

func fatal(logger arbor.ILogger, err error, msg string) {
	logger.Error().Err(err).Msg(msg)
	os.Exit(1)
}
