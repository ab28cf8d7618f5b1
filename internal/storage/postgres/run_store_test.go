package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"credit-signal-lab/internal/domain"
	"credit-signal-lab/internal/storage"
)

func newRun(id string, started time.Time) *domain.Run {
	return &domain.Run{
		RunID:            id,
		Status:           domain.RunStatusRunning,
		StartedAt:        started,
		PanelStart:       time.Date(2005, 1, 3, 0, 0, 0, 0, time.UTC),
		PanelEnd:         time.Date(2023, 12, 29, 0, 0, 0, 0, time.UTC),
		InSampleEnd:      time.Date(2017, 12, 31, 0, 0, 0, 0, time.UTC),
		OutOfSampleStart: time.Date(2018, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

func TestRunStore_InsertAndGetByID(t *testing.T) {
	pool := setupTestDB(t)

	store := NewRunStore(pool)
	ctx := context.Background()

	run := newRun("run-001", time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC))
	require.NoError(t, store.Insert(ctx, run))

	got, err := store.GetByID(ctx, "run-001")
	require.NoError(t, err)

	assert.Equal(t, domain.RunStatusRunning, got.Status)
	assert.True(t, run.StartedAt.Equal(got.StartedAt))
	assert.Nil(t, got.CompletedAt)
	assert.True(t, run.InSampleEnd.Equal(got.InSampleEnd))
	assert.True(t, run.OutOfSampleStart.Equal(got.OutOfSampleStart))
}

func TestRunStore_InsertDuplicate(t *testing.T) {
	pool := setupTestDB(t)

	store := NewRunStore(pool)
	ctx := context.Background()

	run := newRun("run-dup", time.Now().UTC())
	require.NoError(t, store.Insert(ctx, run))
	assert.ErrorIs(t, store.Insert(ctx, run), storage.ErrDuplicateKey)
}

func TestRunStore_UpdateCompletes(t *testing.T) {
	pool := setupTestDB(t)

	store := NewRunStore(pool)
	ctx := context.Background()

	run := newRun("run-upd", time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC))
	require.NoError(t, store.Insert(ctx, run))

	done := run.StartedAt.Add(90 * time.Second)
	run.Status = domain.RunStatusCompleted
	run.CompletedAt = &done
	run.Combinations, run.Scored, run.Skipped, run.Valid = 600, 580, 20, 41
	require.NoError(t, store.Update(ctx, run))

	got, err := store.GetByID(ctx, "run-upd")
	require.NoError(t, err)
	assert.Equal(t, domain.RunStatusCompleted, got.Status)
	require.NotNil(t, got.CompletedAt)
	assert.True(t, done.Equal(*got.CompletedAt))
	assert.Equal(t, 580, got.Scored)
	assert.Equal(t, 41, got.Valid)

	assert.ErrorIs(t, store.Update(ctx, newRun("missing", done)), storage.ErrNotFound)
}

func TestRunStore_GetByIDNotFound(t *testing.T) {
	pool := setupTestDB(t)

	_, err := NewRunStore(pool).GetByID(context.Background(), "nope")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestRunStore_ListNewestFirst(t *testing.T) {
	pool := setupTestDB(t)

	store := NewRunStore(pool)
	ctx := context.Background()

	base := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	for i, id := range []string{"a", "b", "c"} {
		require.NoError(t, store.Insert(ctx, newRun(id, base.Add(time.Duration(i)*time.Hour))))
	}

	runs, err := store.List(ctx, 2)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "c", runs[0].RunID)
	assert.Equal(t, "b", runs[1].RunID)

	all, err := store.List(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}
