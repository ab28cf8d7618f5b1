package validation

import (
	"errors"

	"credit-signal-lab/internal/backtest"
	"credit-signal-lab/internal/domain"
	"credit-signal-lab/internal/metrics"
	"credit-signal-lab/internal/series"
)

// Decay rescores the configuration out of sample with each extra execution
// delay added to its lead. The rows keep the baseline configuration; the
// delayed lead is in TotalLead. Delays whose calibration fails or that leave
// fewer than MinOOSDays returns are omitted.
func (s *Suite) Decay(runID string, cfg domain.Configuration) ([]*domain.DecayRow, error) {
	id := configID(cfg)
	var rows []*domain.DecayRow
	for _, delay := range s.cfg.ExtraDelays {
		total := cfg.LeadTime + delay
		rec, err := s.runner.Reconstruct(s.catalog, cfg.WithLead(total))
		if errors.Is(err, backtest.ErrInsufficientInSample) {
			continue
		}
		if err != nil {
			return nil, err
		}
		oos := series.DropNaN(rec.OutOfSampleReturns())
		if len(oos) < s.cfg.MinOOSDays {
			continue
		}
		rows = append(rows, &domain.DecayRow{
			RunID:         runID,
			ConfigID:      id,
			Configuration: cfg,
			ExtraDelay:    delay,
			TotalLead:     total,
			Sharpe:        metrics.Sharpe(oos),
			AnnReturn:     metrics.AnnualizedReturn(oos),
			Days:          len(oos),
		})
	}
	return rows, nil
}
