package clickhouse

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"credit-signal-lab/internal/domain"
	"credit-signal-lab/internal/storage"
)

func sampleResult(runID, configID string) *domain.TournamentResult {
	oos := domain.UndefinedPerformance()
	oos.Sharpe = 0.9
	oos.AnnReturn = 0.11
	oos.Days = 1500
	return &domain.TournamentResult{
		RunID:    runID,
		ConfigID: configID,
		Configuration: domain.Configuration{
			SignalID: "S2a", LeadTime: 21, ThresholdID: "BAND_2.0", Family: domain.FamilyLongShort,
		},
		SignalColumn: "hy_ig_zscore_252",
		InSample:     domain.UndefinedPerformance(),
		OutOfSample:  oos,
		OOSTrades:    44,
		OOSTurnover:  7.4,
		Valid:        true,
	}
}

func TestTournamentResultStore_InsertBulkAndGet(t *testing.T) {
	conn := setupTestDB(t)

	store := NewTournamentResultStore(conn)
	ctx := context.Background()

	require.NoError(t, store.InsertBulk(ctx, []*domain.TournamentResult{
		sampleResult("run-1", "bbb"),
		sampleResult("run-1", "aaa"),
	}))

	got, err := store.GetByRunID(ctx, "run-1")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "aaa", got[0].ConfigID)
	assert.Equal(t, 21, got[0].LeadTime)
	assert.Equal(t, domain.FamilyLongShort, got[0].Family)
	assert.Equal(t, 44, got[0].OOSTrades)
	assert.Equal(t, 1500, got[0].OutOfSample.Days)
	assert.True(t, math.IsNaN(got[0].InSample.Sharpe), "undefined metrics survive as NaN")

	one, err := store.GetByConfigID(ctx, "run-1", "bbb")
	require.NoError(t, err)
	assert.True(t, one.Valid)

	_, err = store.GetByConfigID(ctx, "run-1", "zzz")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestTournamentResultStore_DuplicateRejected(t *testing.T) {
	conn := setupTestDB(t)

	store := NewTournamentResultStore(conn)
	ctx := context.Background()

	require.NoError(t, store.InsertBulk(ctx, []*domain.TournamentResult{sampleResult("run-1", "aaa")}))

	err := store.InsertBulk(ctx, []*domain.TournamentResult{sampleResult("run-1", "aaa")})
	assert.ErrorIs(t, err, storage.ErrDuplicateKey)

	err = store.InsertBulk(ctx, []*domain.TournamentResult{
		sampleResult("run-2", "ccc"),
		sampleResult("run-2", "ccc"),
	})
	assert.ErrorIs(t, err, storage.ErrDuplicateKey)

	// Same config in a different run is allowed
	require.NoError(t, store.InsertBulk(ctx, []*domain.TournamentResult{sampleResult("run-3", "aaa")}))
}
