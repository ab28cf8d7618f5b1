package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"credit-signal-lab/internal/fixtures"
	"credit-signal-lab/internal/normalization"
	"credit-signal-lab/internal/panel"
	"credit-signal-lab/internal/signals"
)

// PanelSource supplies the sourced panel of a run.
type PanelSource interface {
	// Load returns the panel. Derived columns are added by the orchestrator.
	Load(ctx context.Context) (*panel.Panel, error)
	// Describe names the source in reports.
	Describe() string
}

// FixtureSource generates the synthetic panel.
type FixtureSource struct {
	Options fixtures.Options
}

func (s FixtureSource) Load(ctx context.Context) (*panel.Panel, error) {
	return fixtures.Panel(s.Options)
}

func (s FixtureSource) Describe() string {
	return fmt.Sprintf("synthetic fixtures (seed %d)", s.Options.Seed)
}

// CSVSource reads a wide date-indexed CSV file.
type CSVSource struct {
	Path string
}

func (s CSVSource) Load(ctx context.Context) (*panel.Panel, error) {
	f, err := os.Open(s.Path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	p, err := panel.ReadCSV(f)
	if err != nil {
		return nil, fmt.Errorf("read panel %s: %w", s.Path, err)
	}
	return p, nil
}

func (s CSVSource) Describe() string {
	return "csv " + filepath.Base(s.Path)
}

// StoreSource aligns stored observations onto a business-day panel.
type StoreSource struct {
	Runner  *normalization.Runner
	Columns []string // empty loads every stored series
}

func (s StoreSource) Load(ctx context.Context) (*panel.Panel, error) {
	p, _, err := s.Runner.BuildPanel(ctx, s.Columns...)
	return p, err
}

func (s StoreSource) Describe() string {
	return "observation store"
}

// LoadRegimeInputs reads <column>.csv files from dir for each regime
// probability column. Missing files leave the input absent.
func LoadRegimeInputs(dir string) (signals.RegimeInputs, error) {
	var inputs signals.RegimeInputs
	if dir == "" {
		return inputs, nil
	}

	targets := []struct {
		column string
		dst    *signals.Optional
	}{
		{signals.ColHMMStressProb, &inputs.HMMStress},
		{signals.ColMSStressProb, &inputs.MSStress},
		{signals.ColClassifier, &inputs.Classifier},
	}
	for _, t := range targets {
		path := filepath.Join(dir, t.column+".csv")
		f, err := os.Open(path)
		if errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err != nil {
			return inputs, err
		}
		obs, err := signals.ReadObservationsCSV(f, t.column)
		f.Close()
		if err != nil {
			return inputs, fmt.Errorf("read %s: %w", path, err)
		}
		*t.dst = signals.Some(obs)
	}
	return inputs, nil
}
