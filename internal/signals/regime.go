package signals

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"
	"time"

	"credit-signal-lab/internal/domain"
	"credit-signal-lab/internal/lookup"
	"credit-signal-lab/internal/panel"
)

// Optional is an external series that may be absent.
type Optional struct {
	obs     []*domain.Observation
	present bool
}

// Some wraps a supplied series.
func Some(obs []*domain.Observation) Optional {
	return Optional{obs: obs, present: true}
}

// None is an absent series.
func None() Optional {
	return Optional{}
}

// Get returns the series and whether it was supplied.
func (o Optional) Get() ([]*domain.Observation, bool) {
	return o.obs, o.present
}

// RegimeInputs carries the regime probabilities produced by external models.
// Each is optional; signals reading an absent input are skipped by Resolve.
type RegimeInputs struct {
	HMMStress  Optional // probability of the high-volatility HMM state
	MSStress   Optional // Markov-switching high-variance regime probability
	Classifier Optional // classifier probability of a bullish regime
}

// Attach aligns every supplied input onto the panel by exact date match and
// returns the columns written.
func (r RegimeInputs) Attach(p *panel.Panel) ([]string, error) {
	inputs := []struct {
		column string
		opt    Optional
	}{
		{ColHMMStressProb, r.HMMStress},
		{ColMSStressProb, r.MSStress},
		{ColClassifier, r.Classifier},
	}

	var attached []string
	dates := p.Dates()
	for _, in := range inputs {
		obs, ok := in.opt.Get()
		if !ok {
			continue
		}
		lookup.SortObservations(obs)
		values, err := lookup.AlignExact(dates, obs)
		if err != nil {
			return attached, fmt.Errorf("align %s: %w", in.column, err)
		}
		if err := p.SetColumn(in.column, values); err != nil {
			return attached, err
		}
		attached = append(attached, in.column)
	}
	return attached, nil
}

// ReadObservationsCSV reads "date,value" rows into observations of the named series.
// A header row is skipped when its first cell is not a date.
func ReadObservationsCSV(r io.Reader, name string) ([]*domain.Observation, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	var out []*domain.Observation
	line := 0
	for {
		rec, err := reader.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		if len(rec) < 2 {
			return nil, fmt.Errorf("line %d: expected date,value", line)
		}
		d, err := time.Parse(time.DateOnly, strings.TrimSpace(rec[0]))
		if err != nil {
			if line == 1 {
				continue
			}
			return nil, fmt.Errorf("line %d: parse date: %w", line, err)
		}
		v, err := panel.ParseValue(rec[1])
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		out = append(out, &domain.Observation{Series: name, Date: d, Value: v})
	}
	lookup.SortObservations(out)
	return out, nil
}
