package postgres

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"credit-signal-lab/internal/domain"
	"credit-signal-lab/internal/storage"
)

func sampleReport(runID string) *domain.ValidationReport {
	cfg := domain.Configuration{SignalID: "S2a", LeadTime: 5, ThresholdID: "BAND_2.0", Family: domain.FamilyLongCash}
	return &domain.ValidationReport{
		WalkForward: []*domain.WalkForwardRow{
			{RunID: runID, ConfigID: "c1", Configuration: cfg, Year: 2019, Sharpe: 1.1, AnnReturn: 0.12, AnnVol: 0.11, BenchmarkSharpe: 0.9, ExcessSharpe: 0.2, Days: 252},
			{RunID: runID, ConfigID: "c1", Configuration: cfg, Year: 2018, Sharpe: -0.3, AnnReturn: -0.03, AnnVol: 0.1, BenchmarkSharpe: -0.4, ExcessSharpe: 0.1, Days: 251},
		},
		Bootstrap: []*domain.BootstrapRow{
			{RunID: runID, ConfigID: "c1", Configuration: cfg, ObservedSharpe: 0.8, BootMeanSharpe: 0.79, CILower: 0.1, CIUpper: 1.5, PValue: 0.012, Significant: true, Resamples: 10000, Seed: 42, Days: 1500},
		},
		TransactionCosts: []*domain.TransactionCostRow{
			{RunID: runID, ConfigID: "c1", Configuration: cfg, CostBps: 10, Sharpe: 0.7, AnnReturn: 0.08, Days: 1500},
			{RunID: runID, ConfigID: "c1", Configuration: cfg, CostBps: 0, Sharpe: 0.8, AnnReturn: 0.09, Days: 1500},
		},
		Breakeven: []*domain.BreakevenRow{
			{RunID: runID, ConfigID: "c1", Configuration: cfg, BreakevenBps: math.Inf(1), TradeRate: 0, GrossMean: 0.0004},
		},
		Decay: []*domain.DecayRow{
			{RunID: runID, ConfigID: "c1", Configuration: cfg, ExtraDelay: 1, TotalLead: 6, Sharpe: 0.75, AnnReturn: 0.085, Days: 1499},
		},
		Stress: []*domain.StressRow{
			{
				RunID: runID, ConfigID: "c1", Configuration: cfg,
				Window: domain.StressCOVID,
				Start:  time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC),
				End:    time.Date(2020, 12, 31, 0, 0, 0, 0, time.UTC),
				Sharpe: 1.2, AnnReturn: 0.2, MaxDrawdown: -0.08,
				BenchmarkSharpe: 0.5, BenchmarkAnnReturn: 0.15, BenchmarkMaxDrawdown: -0.34,
				ExcessSharpe: 0.7, Days: 253,
			},
		},
	}
}

func TestValidationStore_InsertAndGetByRunID(t *testing.T) {
	pool := setupTestDB(t)

	ctx := context.Background()
	require.NoError(t, NewRunStore(pool).Insert(ctx, newRun("run-val", time.Now().UTC())))

	store := NewValidationStore(pool)
	require.NoError(t, store.Insert(ctx, "run-val", sampleReport("run-val")))

	got, err := store.GetByRunID(ctx, "run-val")
	require.NoError(t, err)

	require.Len(t, got.WalkForward, 2)
	assert.Equal(t, 2018, got.WalkForward[0].Year, "walk-forward rows ordered by year")
	assert.Equal(t, domain.FamilyLongCash, got.WalkForward[0].Family)

	require.Len(t, got.Bootstrap, 1)
	assert.Equal(t, uint64(42), got.Bootstrap[0].Seed)
	assert.True(t, got.Bootstrap[0].Significant)

	require.Len(t, got.TransactionCosts, 2)
	assert.Equal(t, 0.0, got.TransactionCosts[0].CostBps)

	require.Len(t, got.Breakeven, 1)
	assert.True(t, math.IsInf(got.Breakeven[0].BreakevenBps, 1), "infinite breakeven survives the round trip")

	require.Len(t, got.Decay, 1)
	assert.Equal(t, 6, got.Decay[0].TotalLead)

	require.Len(t, got.Stress, 1)
	assert.Equal(t, domain.StressCOVID, got.Stress[0].Window)
	assert.True(t, got.Stress[0].Start.Equal(time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)))
}

func TestValidationStore_InsertTwice(t *testing.T) {
	pool := setupTestDB(t)

	ctx := context.Background()
	require.NoError(t, NewRunStore(pool).Insert(ctx, newRun("run-twice", time.Now().UTC())))

	store := NewValidationStore(pool)
	require.NoError(t, store.Insert(ctx, "run-twice", &domain.ValidationReport{}))
	assert.ErrorIs(t, store.Insert(ctx, "run-twice", sampleReport("run-twice")), storage.ErrDuplicateKey)

	// The rejected transaction left nothing behind
	got, err := store.GetByRunID(ctx, "run-twice")
	require.NoError(t, err)
	assert.Empty(t, got.Bootstrap)
}

func TestValidationStore_GetByRunIDNotFound(t *testing.T) {
	pool := setupTestDB(t)

	_, err := NewValidationStore(pool).GetByRunID(context.Background(), "none")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}
