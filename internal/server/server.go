// Package server runs the tournament as a service: scheduled ingestion and
// runs, a JSON run API, Prometheus metrics and a progress WebSocket.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/ternarybob/arbor"

	"credit-signal-lab/internal/common"
	"credit-signal-lab/internal/domain"
	"credit-signal-lab/internal/observability"
	"credit-signal-lab/internal/orchestrator"
	"credit-signal-lab/internal/progress"
	"credit-signal-lab/internal/storage"
	"credit-signal-lab/internal/storage/backend"
)

// ErrRunInProgress is returned when a run is requested while one is active.
var ErrRunInProgress = errors.New("a run is already in progress")

// DefaultProgressInterval throttles progress frames to the WebSocket.
const DefaultProgressInterval = 250 * time.Millisecond

// OptionsFunc builds the orchestrator options of one run.
type OptionsFunc func() (orchestrator.Options, error)

// IngestFunc refreshes the observation store before a scheduled run.
type IngestFunc func(ctx context.Context) error

// Server holds all components of the service.
type Server struct {
	stores  *backend.Stores
	hub     *progress.Hub
	logger  arbor.ILogger
	options OptionsFunc
	ingest  IngestFunc
	cron    *cron.Cron

	// State
	mu         sync.Mutex
	startedAt  time.Time
	running    bool
	currentRun string
	lastRunID  string
	lastRunAt  time.Time
	lastError  string
	runs       int
}

// New creates a server whose runs follow config.
func New(config *common.Config, stores *backend.Stores, logger arbor.ILogger) *Server {
	s := &Server{
		stores:    stores,
		hub:       progress.NewHub(logger, DefaultProgressInterval),
		logger:    logger,
		startedAt: time.Now(),
	}
	s.options = func() (orchestrator.Options, error) {
		return orchestrator.OptionsFor(config, stores, logger)
	}
	return s
}

// WithOptions overrides how run options are built.
func (s *Server) WithOptions(fn OptionsFunc) *Server {
	s.options = fn
	return s
}

// WithIngest sets the refresh performed before each scheduled run.
func (s *Server) WithIngest(fn IngestFunc) *Server {
	s.ingest = fn
	return s
}

// Hub returns the progress hub.
func (s *Server) Hub() *progress.Hub {
	return s.hub
}

// RunNow executes one run synchronously.
func (s *Server) RunNow(ctx context.Context) (*orchestrator.RunResult, error) {
	if !s.begin() {
		return nil, ErrRunInProgress
	}
	return s.execute(ctx)
}

// TriggerRun starts a run in the background. Returns ErrRunInProgress if one is active.
func (s *Server) TriggerRun(ctx context.Context) error {
	if !s.begin() {
		return ErrRunInProgress
	}
	go func() {
		if _, err := s.execute(ctx); err != nil {
			s.logger.Warn().Err(err).Msg("Triggered run failed")
		}
	}()
	return nil
}

func (s *Server) begin() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return false
	}
	s.running = true
	return true
}

func (s *Server) execute(ctx context.Context) (*orchestrator.RunResult, error) {
	var result *orchestrator.RunResult
	var err error
	defer func() {
		s.mu.Lock()
		s.running = false
		s.currentRun = ""
		s.lastRunAt = time.Now()
		s.runs++
		s.lastError = ""
		if err != nil {
			s.lastError = err.Error()
		}
		if result != nil && result.Run != nil {
			s.lastRunID = result.Run.RunID
		}
		s.mu.Unlock()
	}()

	opts, err := s.options()
	if err != nil {
		return nil, err
	}
	opts.Progress = s.hub.Publish
	opts.Events = func(runID, status string, runErr error) {
		if status == domain.RunStatusRunning {
			s.mu.Lock()
			s.currentRun = runID
			s.mu.Unlock()
		}
		s.hub.PublishRun(runID, status, runErr)
	}

	result, err = orchestrator.New(opts).Run(ctx)
	return result, err
}

// scheduled refreshes data when an ingest step is set, then runs.
func (s *Server) scheduled(ctx context.Context) {
	if s.ingest != nil {
		if err := s.ingest(ctx); err != nil {
			s.logger.Warn().Err(err).Msg("Scheduled ingestion failed, running on stored data")
		}
	}
	if _, err := s.RunNow(ctx); err != nil {
		if errors.Is(err, ErrRunInProgress) {
			s.logger.Info().Msg("Run already in progress, skipping scheduled run")
			return
		}
		s.logger.Error().Err(err).Msg("Scheduled run failed")
	}
}

// StartScheduler registers the cron schedule. An empty schedule disables it.
func (s *Server) StartScheduler(ctx context.Context, schedule string) error {
	if schedule == "" {
		s.logger.Info().Msg("Scheduler disabled")
		return nil
	}
	s.cron = cron.New()
	if _, err := s.cron.AddFunc(schedule, func() { s.scheduled(ctx) }); err != nil {
		return fmt.Errorf("failed to add cron job: %w", err)
	}
	s.cron.Start()
	s.logger.Info().Str("cron_expr", schedule).Msg("Scheduler started")
	return nil
}

// StopScheduler waits for a running scheduled job to finish.
func (s *Server) StopScheduler() {
	if s.cron == nil {
		return
	}
	<-s.cron.Stop().Done()
}

// Handler returns the HTTP routes.
func (s *Server) Handler(ctx context.Context) http.Handler {
	mux := http.NewServeMux()

	// Health check
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	// Prometheus metrics
	mux.Handle("GET /metrics", observability.Handler())

	mux.HandleFunc("GET /status", s.handleStatus)
	mux.HandleFunc("GET /runs", s.handleListRuns)
	mux.HandleFunc("POST /runs", func(w http.ResponseWriter, r *http.Request) {
		s.handleTrigger(ctx, w)
	})
	mux.HandleFunc("GET /runs/{id}", s.handleGetRun)
	mux.Handle("/ws", s.hub)
	return mux
}

// Serve listens on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Serve(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(ctx),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go s.tick(ctx)

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info().Str("addr", addr).Msg("HTTP server listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// tick advances the uptime counter and samples pool gauges.
func (s *Server) tick(ctx context.Context) {
	ticker := time.NewTicker(15 * time.Second)
	defer ticker.Stop()
	last := time.Now()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			observability.AddUptime(now.Sub(last))
			last = now
			s.stores.ReportPoolStats()
		}
	}
}

// StatusResponse is the JSON response for /status endpoint.
type StatusResponse struct {
	Status     string    `json:"status"`
	InstanceID string    `json:"instance_id"`
	Backend    string    `json:"backend"`
	Uptime     string    `json:"uptime"`
	Running    bool      `json:"running"`
	CurrentRun string    `json:"current_run,omitempty"`
	LastRunID  string    `json:"last_run_id,omitempty"`
	LastRunAt  time.Time `json:"last_run_at,omitempty"`
	LastError  string    `json:"last_error,omitempty"`
	Runs       int       `json:"runs"`
	Clients    int       `json:"progress_clients"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	resp := StatusResponse{
		Status:     "running",
		InstanceID: s.hub.InstanceID(),
		Backend:    s.stores.Backend,
		Uptime:     time.Since(s.startedAt).Round(time.Second).String(),
		Running:    s.running,
		CurrentRun: s.currentRun,
		LastRunID:  s.lastRunID,
		LastRunAt:  s.lastRunAt,
		LastError:  s.lastError,
		Runs:       s.runs,
	}
	s.mu.Unlock()
	resp.Clients = s.hub.Clients()

	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleTrigger(ctx context.Context, w http.ResponseWriter) {
	if err := s.TriggerRun(ctx); err != nil {
		writeJSON(w, http.StatusConflict, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "started"})
}

func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	runs, err := s.stores.Runs.List(r.Context(), 50)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	out := make([]runView, 0, len(runs))
	for _, run := range runs {
		out = append(out, newRunView(run))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	run, err := s.stores.Runs.GetByID(r.Context(), r.PathValue("id"))
	if errors.Is(err, storage.ErrNotFound) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "run not found"})
		return
	}
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, newRunView(run))
}

// runView is the JSON shape of a run record.
type runView struct {
	RunID            string     `json:"run_id"`
	Status           string     `json:"status"`
	StartedAt        time.Time  `json:"started_at"`
	CompletedAt      *time.Time `json:"completed_at,omitempty"`
	PanelStart       string     `json:"panel_start,omitempty"`
	PanelEnd         string     `json:"panel_end,omitempty"`
	InSampleEnd      string     `json:"in_sample_end"`
	OutOfSampleStart string     `json:"out_of_sample_start"`
	Combinations     int        `json:"combinations"`
	Scored           int        `json:"scored"`
	Skipped          int        `json:"skipped"`
	Valid            int        `json:"valid"`
	Error            string     `json:"error,omitempty"`
}

func newRunView(r *domain.Run) runView {
	return runView{
		RunID:            r.RunID,
		Status:           r.Status,
		StartedAt:        r.StartedAt,
		CompletedAt:      r.CompletedAt,
		PanelStart:       dateOrEmpty(r.PanelStart),
		PanelEnd:         dateOrEmpty(r.PanelEnd),
		InSampleEnd:      dateOrEmpty(r.InSampleEnd),
		OutOfSampleStart: dateOrEmpty(r.OutOfSampleStart),
		Combinations:     r.Combinations,
		Scored:           r.Scored,
		Skipped:          r.Skipped,
		Valid:            r.Valid,
		Error:            r.Error,
	}
}

func dateOrEmpty(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(time.DateOnly)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
