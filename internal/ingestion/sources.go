package ingestion

import (
	"context"
	"fmt"
	"os"
	"time"

	"credit-signal-lab/internal/domain"
	"credit-signal-lab/internal/fred"
	"credit-signal-lab/internal/signals"
)

// ObservationSource provides raw observations of one series.
type ObservationSource interface {
	// Series is the panel column the observations populate.
	Series() string
	// Fetch returns observations within [start, end] (inclusive).
	// Observations may be unordered; Manager enforces date ordering.
	Fetch(ctx context.Context, start, end time.Time) ([]*domain.Observation, error)
}

// Fetcher downloads a FRED series.
type Fetcher interface {
	Fetch(ctx context.Context, s fred.Series, start, end time.Time) ([]*domain.Observation, error)
}

// FREDSource reads one FRED series.
type FREDSource struct {
	client Fetcher
	series fred.Series
}

// NewFREDSource creates a source for s.
func NewFREDSource(client Fetcher, s fred.Series) *FREDSource {
	return &FREDSource{client: client, series: s}
}

func (s *FREDSource) Series() string {
	return s.series.Column
}

func (s *FREDSource) Fetch(ctx context.Context, start, end time.Time) ([]*domain.Observation, error) {
	return s.client.Fetch(ctx, s.series, start, end)
}

// FREDSources returns a source per series.
func FREDSources(client Fetcher, series []fred.Series) []ObservationSource {
	out := make([]ObservationSource, 0, len(series))
	for _, s := range series {
		out = append(out, NewFREDSource(client, s))
	}
	return out
}

// CSVFileSource reads a "date,value" file, typically the traded asset's prices.
type CSVFileSource struct {
	path   string
	column string
}

// NewCSVFileSource creates a source reading path into column.
func NewCSVFileSource(path, column string) *CSVFileSource {
	return &CSVFileSource{path: path, column: column}
}

func (s *CSVFileSource) Series() string {
	return s.column
}

func (s *CSVFileSource) Fetch(_ context.Context, start, end time.Time) ([]*domain.Observation, error) {
	f, err := os.Open(s.path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	obs, err := signals.ReadObservationsCSV(f, s.column)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", s.path, err)
	}
	var out []*domain.Observation
	for _, o := range obs {
		if !o.Date.Before(start) && !o.Date.After(end) {
			out = append(out, o)
		}
	}
	return out, nil
}
