package pipeline

import (
	"context"
	"fmt"
	"math"

	"credit-signal-lab/internal/domain"
	"credit-signal-lab/internal/fixtures"
	"credit-signal-lab/internal/panel"
	"credit-signal-lab/internal/storage"
)

// LoadFixtures populates the observation store with the synthetic panel so a
// full run can be demonstrated without network access. Returns the number
// of observations written.
func LoadFixtures(ctx context.Context, store storage.ObservationStore, opts fixtures.Options) (int, error) {
	p, err := fixtures.Panel(opts)
	if err != nil {
		return 0, fmt.Errorf("build fixtures: %w", err)
	}
	return StorePanel(ctx, store, p)
}

// StorePanel writes every defined cell of p as an observation, one batch per column.
func StorePanel(ctx context.Context, store storage.ObservationStore, p *panel.Panel) (int, error) {
	dates := p.Dates()
	total := 0
	for _, col := range p.Columns() {
		values, _ := p.Column(col)
		obs := make([]*domain.Observation, 0, len(values))
		for i, v := range values {
			if math.IsNaN(v) {
				continue
			}
			obs = append(obs, &domain.Observation{Series: col, Date: dates[i], Value: v})
		}
		if len(obs) == 0 {
			continue
		}
		if err := store.InsertBulk(ctx, obs); err != nil {
			return total, fmt.Errorf("store %s: %w", col, err)
		}
		total += len(obs)
	}
	return total, nil
}
