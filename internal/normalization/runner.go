package normalization

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/ternarybob/arbor"

	"credit-signal-lab/internal/panel"
	"credit-signal-lab/internal/series"
	"credit-signal-lab/internal/storage"
)

// ErrEmptyRange is returned when the requested window has no business days.
var ErrEmptyRange = errors.New("date range contains no business days")

// Options controls panel construction.
type Options struct {
	Start      time.Time
	End        time.Time
	FFillLimit int
	Weekly     []string
}

// DefaultOptions returns options for [start, end] with the default fill rules.
func DefaultOptions(start, end time.Time) Options {
	return Options{
		Start:      start,
		End:        end,
		FFillLimit: DefaultFFillLimit,
		Weekly:     DefaultWeeklyColumns(),
	}
}

// ColumnSummary describes one aligned column.
type ColumnSummary struct {
	Column       string
	Observations int // raw observations loaded from the store
	Defined      int // defined values after alignment
	Weekly       bool
}

// Report summarizes a BuildPanel call.
type Report struct {
	Start   time.Time
	End     time.Time
	Rows    int
	Columns []ColumnSummary
	Empty   []string // requested columns with no stored observations
}

// Runner builds panels from an observation store.
type Runner struct {
	store  storage.ObservationStore
	logger arbor.ILogger
	opts   Options
}

// NewRunner creates a new normalization runner.
func NewRunner(store storage.ObservationStore, logger arbor.ILogger, opts Options) *Runner {
	if opts.FFillLimit == 0 {
		opts.FFillLimit = DefaultFFillLimit
	}
	return &Runner{store: store, logger: logger, opts: opts}
}

// BuildPanel loads the named series (all stored series when none are named)
// and aligns them onto the business days of the configured window.
// Columns with no stored observations are reported and left out.
func (r *Runner) BuildPanel(ctx context.Context, columns ...string) (*panel.Panel, *Report, error) {
	dates := panel.BusinessDays(r.opts.Start, r.opts.End)
	if len(dates) == 0 {
		return nil, nil, ErrEmptyRange
	}

	if len(columns) == 0 {
		var err error
		columns, err = r.store.ListSeries(ctx)
		if err != nil {
			return nil, nil, fmt.Errorf("list series: %w", err)
		}
	}

	p, err := panel.New(dates)
	if err != nil {
		return nil, nil, err
	}
	report := &Report{Start: dates[0], End: dates[len(dates)-1], Rows: len(dates)}

	for _, col := range columns {
		// Weekly alignment needs the release before the window opens, so load the full history
		obs, err := r.store.GetBySeries(ctx, col)
		if err != nil {
			return nil, nil, fmt.Errorf("load %s: %w", col, err)
		}
		if len(obs) == 0 {
			report.Empty = append(report.Empty, col)
			r.logger.Warn().Str("column", col).Msg("No stored observations, column skipped")
			continue
		}

		weekly := slices.Contains(r.opts.Weekly, col)
		var values []float64
		if weekly {
			values, err = AlignWeekly(dates, obs)
		} else {
			values, err = AlignDaily(dates, obs, r.opts.FFillLimit)
		}
		if err != nil {
			return nil, nil, fmt.Errorf("align %s: %w", col, err)
		}
		if err := p.AddColumn(col, values); err != nil {
			return nil, nil, err
		}

		report.Columns = append(report.Columns, ColumnSummary{
			Column:       col,
			Observations: len(obs),
			Defined:      series.CountValid(values),
			Weekly:       weekly,
		})
	}

	r.logger.Info().
		Int("rows", report.Rows).
		Int("columns", len(report.Columns)).
		Int("empty", len(report.Empty)).
		Msg("Panel built from observation store")

	return p, report, nil
}
