// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	// Tournament metrics
	CombinationsScored  prometheus.Counter
	CombinationsSkipped *prometheus.CounterVec
	ValidConfigurations prometheus.Counter
	WorkerPanics        prometheus.Counter
	TournamentDuration  prometheus.Histogram

	// Validation metrics
	ValidationRows     *prometheus.CounterVec
	ValidationDuration *prometheus.HistogramVec

	// Data sourcing metrics
	FREDFetchLatency     *prometheus.HistogramVec
	FREDFetchErrors      *prometheus.CounterVec
	ObservationsIngested *prometheus.CounterVec

	// Pipeline metrics
	PipelineRunsTotal *prometheus.CounterVec
	PipelineDuration  *prometheus.HistogramVec
	ReportsGenerated  prometheus.Counter

	// Database metrics
	DBQueryDuration *prometheus.HistogramVec
	DBQueryErrors   *prometheus.CounterVec
	DBConnections   *prometheus.GaugeVec

	// Progress stream metrics
	ProgressClients prometheus.Gauge

	// Health metrics
	LastSuccessfulIngestion prometheus.Gauge
	LastSuccessfulPipeline  prometheus.Gauge
	UptimeSeconds           prometheus.Counter
}

// NewMetrics creates a new Metrics instance with all metrics registered.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "credit_signal_lab"
	}

	return &Metrics{
		// Tournament metrics
		CombinationsScored: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "tournament",
			Name:      "combinations_scored_total",
			Help:      "Total number of configurations scored",
		}),
		CombinationsSkipped: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "tournament",
			Name:      "combinations_skipped_total",
			Help:      "Total number of configurations skipped by reason",
		}, []string{"reason"}),
		ValidConfigurations: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "tournament",
			Name:      "valid_configurations_total",
			Help:      "Total number of configurations passing the validity rule",
		}),
		WorkerPanics: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "tournament",
			Name:      "worker_panics_total",
			Help:      "Total number of recovered panics inside a combination",
		}),
		TournamentDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "tournament",
			Name:      "duration_seconds",
			Help:      "Tournament execution duration in seconds",
			Buckets:   []float64{1, 5, 10, 30, 60, 120, 300, 600},
		}),

		// Validation metrics
		ValidationRows: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "validation",
			Name:      "rows_total",
			Help:      "Total number of validation rows produced by analysis",
		}, []string{"analysis"}),
		ValidationDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "validation",
			Name:      "duration_seconds",
			Help:      "Validation analysis duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"analysis"}),

		// Data sourcing metrics
		FREDFetchLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "fred",
			Name:      "fetch_latency_seconds",
			Help:      "FRED series download latency in seconds",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}, []string{"series"}),
		FREDFetchErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "fred",
			Name:      "fetch_errors_total",
			Help:      "Total number of failed FRED downloads",
		}, []string{"series"}),
		ObservationsIngested: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingestion",
			Name:      "observations_total",
			Help:      "Total number of observations stored by series",
		}, []string{"series"}),

		// Pipeline metrics
		PipelineRunsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "runs_total",
			Help:      "Total number of pipeline runs by status",
		}, []string{"phase", "status"}),
		PipelineDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "duration_seconds",
			Help:      "Pipeline execution duration in seconds",
			Buckets:   []float64{1, 5, 10, 30, 60, 120, 300, 600},
		}, []string{"phase"}),
		ReportsGenerated: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "reports_generated_total",
			Help:      "Total number of reports generated",
		}),

		// Database metrics
		DBQueryDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_duration_seconds",
			Help:      "Database query duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"database", "operation"}),
		DBQueryErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_errors_total",
			Help:      "Total number of database query errors",
		}, []string{"database", "operation"}),
		DBConnections: promauto.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "connections",
			Help:      "Number of database connections by state",
		}, []string{"database", "state"}),

		// Progress stream metrics
		ProgressClients: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "progress",
			Name:      "clients",
			Help:      "Number of connected progress stream clients",
		}),

		// Health metrics
		LastSuccessfulIngestion: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "last_successful_ingestion_timestamp",
			Help:      "Unix timestamp of last successful ingestion",
		}),
		LastSuccessfulPipeline: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "last_successful_pipeline_timestamp",
			Help:      "Unix timestamp of last successful pipeline run",
		}),
		UptimeSeconds: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "uptime_seconds_total",
			Help:      "Total uptime in seconds",
		}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// DefaultMetrics is the default metrics instance.
var DefaultMetrics = NewMetrics("")

// RecordCombinationScored increments the scored counter and, for valid rows,
// the valid counter.
func RecordCombinationScored(valid bool) {
	DefaultMetrics.CombinationsScored.Inc()
	if valid {
		DefaultMetrics.ValidConfigurations.Inc()
	}
}

// RecordCombinationSkipped records a skipped configuration.
func RecordCombinationSkipped(reason string) {
	DefaultMetrics.CombinationsSkipped.WithLabelValues(reason).Inc()
}

// RecordWorkerPanic records a panic recovered inside a combination.
func RecordWorkerPanic() {
	DefaultMetrics.WorkerPanics.Inc()
}

// RecordTournament records tournament duration.
func RecordTournament(seconds float64) {
	DefaultMetrics.TournamentDuration.Observe(seconds)
}

// RecordValidation records one validation analysis.
func RecordValidation(analysis string, rows int, seconds float64) {
	DefaultMetrics.ValidationRows.WithLabelValues(analysis).Add(float64(rows))
	DefaultMetrics.ValidationDuration.WithLabelValues(analysis).Observe(seconds)
}

// RecordFREDFetch records a FRED download.
func RecordFREDFetch(series string, seconds float64, err error) {
	DefaultMetrics.FREDFetchLatency.WithLabelValues(series).Observe(seconds)
	if err != nil {
		DefaultMetrics.FREDFetchErrors.WithLabelValues(series).Inc()
	}
}

// RecordObservationsIngested records stored observations for a series.
func RecordObservationsIngested(series string, n int) {
	DefaultMetrics.ObservationsIngested.WithLabelValues(series).Add(float64(n))
}

// RecordDBQuery records database query metrics.
func RecordDBQuery(database, operation string, seconds float64, err error) {
	DefaultMetrics.DBQueryDuration.WithLabelValues(database, operation).Observe(seconds)
	if err != nil {
		DefaultMetrics.DBQueryErrors.WithLabelValues(database, operation).Inc()
	}
}

// UpdateDBConnections sets the connection gauges of a pool.
func UpdateDBConnections(database string, idle, inUse int) {
	DefaultMetrics.DBConnections.WithLabelValues(database, "idle").Set(float64(idle))
	DefaultMetrics.DBConnections.WithLabelValues(database, "in_use").Set(float64(inUse))
}

// RecordPipelineRun records a pipeline run.
func RecordPipelineRun(phase, status string, durationSeconds float64) {
	DefaultMetrics.PipelineRunsTotal.WithLabelValues(phase, status).Inc()
	DefaultMetrics.PipelineDuration.WithLabelValues(phase).Observe(durationSeconds)
}

// RecordReportGenerated increments the reports counter.
func RecordReportGenerated() {
	DefaultMetrics.ReportsGenerated.Inc()
}

// UpdateProgressClients sets the number of connected progress clients.
func UpdateProgressClients(n int) {
	DefaultMetrics.ProgressClients.Set(float64(n))
}

// MarkIngestionSuccess stamps the last successful ingestion.
func MarkIngestionSuccess(t time.Time) {
	DefaultMetrics.LastSuccessfulIngestion.Set(float64(t.Unix()))
}

// MarkPipelineSuccess stamps the last successful pipeline run.
func MarkPipelineSuccess(t time.Time) {
	DefaultMetrics.LastSuccessfulPipeline.Set(float64(t.Unix()))
}

// AddUptime advances the uptime counter.
func AddUptime(d time.Duration) {
	DefaultMetrics.UptimeSeconds.Add(d.Seconds())
}
