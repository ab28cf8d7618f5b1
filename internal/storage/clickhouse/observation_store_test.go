package clickhouse

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

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestObservationStore_InsertBulkAndGet(t *testing.T) {
	conn := setupTestDB(t)

	store := NewObservationStore(conn)
	ctx := context.Background()

	obs := []*domain.Observation{
		{Series: "hy_oas", Date: day(2020, 3, 3), Value: 5.1},
		{Series: "hy_oas", Date: day(2020, 3, 2), Value: 4.9},
		{Series: "hy_oas", Date: day(2020, 3, 4), Value: math.NaN()},
		{Series: "ig_oas", Date: day(2020, 3, 2), Value: 1.6},
	}
	require.NoError(t, store.InsertBulk(ctx, obs))

	got, err := store.GetBySeries(ctx, "hy_oas")
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.True(t, got[0].Date.Equal(day(2020, 3, 2)))
	assert.Equal(t, 4.9, got[0].Value)
	assert.True(t, math.IsNaN(got[2].Value), "missing values are stored as NaN")

	ranged, err := store.GetByDateRange(ctx, "hy_oas", day(2020, 3, 3), day(2020, 3, 4))
	require.NoError(t, err)
	assert.Len(t, ranged, 2)

	names, err := store.ListSeries(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"hy_oas", "ig_oas"}, names)

	latest, err := store.LatestDate(ctx, "hy_oas")
	require.NoError(t, err)
	assert.True(t, latest.Equal(day(2020, 3, 4)))
}

func TestObservationStore_DuplicateRejected(t *testing.T) {
	conn := setupTestDB(t)

	store := NewObservationStore(conn)
	ctx := context.Background()

	require.NoError(t, store.InsertBulk(ctx, []*domain.Observation{
		{Series: "vix", Date: day(2020, 3, 2), Value: 33},
	}))

	err := store.InsertBulk(ctx, []*domain.Observation{
		{Series: "vix", Date: day(2020, 3, 3), Value: 36},
		{Series: "vix", Date: day(2020, 3, 2), Value: 34},
	})
	assert.ErrorIs(t, err, storage.ErrDuplicateKey)

	got, err := store.GetBySeries(ctx, "vix")
	require.NoError(t, err)
	assert.Len(t, got, 1, "rejected batch writes nothing")
}

func TestObservationStore_LatestDateNotFound(t *testing.T) {
	conn := setupTestDB(t)

	_, err := NewObservationStore(conn).LatestDate(context.Background(), "nfci")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}
