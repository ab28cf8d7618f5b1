// Package main runs the tournament service: scheduled FRED refresh and runs,
// the run API, Prometheus metrics and live progress over WebSocket.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ternarybob/arbor"

	"credit-signal-lab/internal/common"
	"credit-signal-lab/internal/fred"
	"credit-signal-lab/internal/ingestion"
	"credit-signal-lab/internal/server"
	"credit-signal-lab/internal/storage/backend"
)

func main() {
	// Parse flags
	configPath := flag.String("config", "", "Path to TOML config file")
	port := flag.Int("port", 0, "HTTP port (overrides server.port)")
	schedule := flag.String("schedule", "", "Cron expression for scheduled runs (overrides server.schedule)")
	useFixtures := flag.Bool("fixtures", false, "Run on the synthetic panel")
	runOnStart := flag.Bool("run-on-start", false, "Start a run immediately")
	flag.Parse()

	config, err := common.LoadFromFiles(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}
	if *port > 0 {
		config.Server.Port = *port
	}
	if *schedule != "" {
		config.Server.Schedule = *schedule
	}
	if *useFixtures {
		config.Data.UseFixtures = true
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

	srv := server.New(config, stores, logger)
	if !config.Data.UseFixtures && config.Data.PanelCSV == "" {
		srv.WithIngest(refreshFunc(config, stores, logger))
	}

	if err := srv.StartScheduler(ctx, config.Server.Schedule); err != nil {
		fatal(logger, err, "Failed to start scheduler")
	}
	defer srv.StopScheduler()

	if *runOnStart {
		if err := srv.TriggerRun(ctx); err != nil {
			logger.Warn().Err(err).Msg("Initial run not started")
		}
	}

	logger.Info().
		Str("addr", config.Server.Addr()).
		Str("backend", stores.Backend).
		Str("schedule", config.Server.Schedule).
		Msg("Server starting")

	if err := srv.Serve(ctx, config.Server.Addr()); err != nil {
		fatal(logger, err, "HTTP server failed")
	}
	logger.Info().Msg("Server stopped")
}

// refreshFunc ingests every default FRED series up to today.
func refreshFunc(config *common.Config, stores *backend.Stores, logger arbor.ILogger) server.IngestFunc {
	timeout, _ := config.FRED.TimeoutDuration()
	client := fred.NewClient(
		fred.WithBaseURL(config.FRED.BaseURL),
		fred.WithRateLimit(config.FRED.RateLimit),
		fred.WithHTTPClient(&http.Client{Timeout: timeout}),
		fred.WithLogger(logger),
	)
	manager := ingestion.NewManager(stores.Observations, logger)
	sources := ingestion.FREDSources(client, fred.DefaultSeries())

	return func(ctx context.Context) error {
		results, err := manager.IngestAll(ctx, sources, config.Data.StartDate(), time.Now().UTC())
		if err != nil {
			return err
		}
		if failed := ingestion.Failed(results); len(failed) > 0 {
			return fmt.Errorf("%d of %d series failed, first: %s: %w", len(failed), len(results), failed[0].Series, failed[0].Err)
		}
		return nil
	}
}

func fatal(logger arbor.ILogger, err error, msg string) {
	logger.Error().Err(err).Msg(msg)
	os.Exit(1)
}
