package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/ternarybob/arbor"

	"credit-signal-lab/internal/observability"
	"credit-signal-lab/internal/reporting"
)

// GeneratorVersion is stamped into every report for reproducibility.
const GeneratorVersion = "1.0.0"

// Output file names
const (
	FileReportMarkdown = "TOURNAMENT_REPORT.md"
	FileReportHTML     = "TOURNAMENT_REPORT.html"
	FileTournamentCSV  = "tournament_results.csv"
	FileWalkForwardCSV = "walk_forward.csv"
	FileBootstrapCSV   = "bootstrap.csv"
	FileCostsCSV       = "transaction_costs.csv"
	FileBreakevenCSV   = "breakeven.csv"
	FileDecayCSV       = "signal_decay.csv"
	FileStressCSV      = "stress_tests.csv"
	reportTitle        = "Credit Signal Tournament Report"
)

// ReportWriter renders a stored run into the output directory.
type ReportWriter struct {
	generator   *reporting.Generator
	outputDir   string
	logger      arbor.ILogger
	dataQuality *reporting.DataQualitySection
	ineligible  []reporting.IneligibleRow
	repro       reporting.Reproducibility
}

// NewReportWriter creates a writer emitting into outputDir.
func NewReportWriter(generator *reporting.Generator, outputDir string, logger arbor.ILogger) *ReportWriter {
	if logger == nil {
		logger = arbor.NewLogger()
	}
	return &ReportWriter{
		generator: generator,
		outputDir: outputDir,
		logger:    logger,
		repro:     reporting.Reproducibility{GeneratorVersion: GeneratorVersion},
	}
}

// WithDataQuality embeds sufficiency results in the report.
func (w *ReportWriter) WithDataQuality(section reporting.DataQualitySection) *ReportWriter {
	w.dataQuality = &section
	return w
}

// WithIneligible lists signals the tournament could not use.
func (w *ReportWriter) WithIneligible(rows []reporting.IneligibleRow) *ReportWriter {
	w.ineligible = rows
	return w
}

// WithSource records the data source and panel fingerprint.
func (w *ReportWriter) WithSource(dataSource, panelFingerprint string) *ReportWriter {
	w.repro.DataSource = dataSource
	w.repro.PanelFingerprint = panelFingerprint
	return w
}

// Output lists what a Write produced.
type Output struct {
	Report *reporting.Report
	Files  []string // paths under the output directory, in write order
}

// Write generates the report of runID and writes the Markdown, HTML and CSV files.
func (w *ReportWriter) Write(ctx context.Context, runID string) (*Output, error) {
	if err := os.MkdirAll(w.outputDir, 0755); err != nil {
		return nil, err
	}

	report, err := w.generator.Generate(ctx, runID)
	if err != nil {
		return nil, err
	}
	if w.dataQuality != nil {
		report.DataQuality = *w.dataQuality
	}
	report.Ineligible = w.ineligible
	seed, resamples := report.Reproducibility.BootstrapSeed, report.Reproducibility.Resamples
	report.Reproducibility = w.repro
	report.Reproducibility.BootstrapSeed = seed
	report.Reproducibility.Resamples = resamples

	md := reporting.RenderMarkdown(report)
	page, err := reporting.RenderHTML(fmt.Sprintf("%s %s", reportTitle, runID), md)
	if err != nil {
		return nil, err
	}

	v := report.Validation
	files := []struct {
		name string
		data []byte
	}{
		{FileReportMarkdown, []byte(md)},
		{FileReportHTML, page},
		{FileTournamentCSV, []byte(reporting.RenderTournamentCSV(report.Results))},
		{FileWalkForwardCSV, []byte(reporting.RenderWalkForwardCSV(v.WalkForward))},
		{FileBootstrapCSV, []byte(reporting.RenderBootstrapCSV(v.Bootstrap))},
		{FileCostsCSV, []byte(reporting.RenderTransactionCostsCSV(v.TransactionCosts))},
		{FileBreakevenCSV, []byte(reporting.RenderBreakevenCSV(v.Breakeven))},
		{FileDecayCSV, []byte(reporting.RenderDecayCSV(v.Decay))},
		{FileStressCSV, []byte(reporting.RenderStressCSV(v.Stress))},
	}

	out := &Output{Report: report}
	for _, f := range files {
		path := filepath.Join(w.outputDir, f.name)
		if err := os.WriteFile(path, f.data, 0644); err != nil {
			return nil, fmt.Errorf("write %s: %w", f.name, err)
		}
		out.Files = append(out.Files, path)
	}

	observability.RecordReportGenerated()
	w.logger.Info().
		Str("run_id", runID).
		Str("dir", w.outputDir).
		Int("files", len(out.Files)).
		Int("robust", report.GoCount()).
		Msg("Report written")
	return out, nil
}
