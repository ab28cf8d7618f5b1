package memory

import (
	"context"
	"errors"
	"testing"

	"credit-signal-lab/internal/domain"
	"credit-signal-lab/internal/storage"
)

func TestTournamentResultStore_InsertBulkAndGet(t *testing.T) {
	store := NewTournamentResultStore()
	ctx := context.Background()

	rows := []*domain.TournamentResult{
		{RunID: "r1", ConfigID: "bbb", Valid: true},
		{RunID: "r1", ConfigID: "aaa"},
		{RunID: "r2", ConfigID: "aaa"},
	}
	if err := store.InsertBulk(ctx, rows); err != nil {
		t.Fatalf("InsertBulk failed: %v", err)
	}

	got, err := store.GetByRunID(ctx, "r1")
	if err != nil {
		t.Fatalf("GetByRunID failed: %v", err)
	}
	if len(got) != 2 || got[0].ConfigID != "aaa" || got[1].ConfigID != "bbb" {
		t.Errorf("Expected config_id ASC order, got %d rows", len(got))
	}

	one, err := store.GetByConfigID(ctx, "r1", "bbb")
	if err != nil {
		t.Fatalf("GetByConfigID failed: %v", err)
	}
	if !one.Valid {
		t.Errorf("Expected stored Valid flag")
	}

	if _, err := store.GetByConfigID(ctx, "r3", "aaa"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestTournamentResultStore_BatchRejectedOnDuplicate(t *testing.T) {
	store := NewTournamentResultStore()
	ctx := context.Background()

	_ = store.InsertBulk(ctx, []*domain.TournamentResult{{RunID: "r1", ConfigID: "aaa"}})

	err := store.InsertBulk(ctx, []*domain.TournamentResult{
		{RunID: "r1", ConfigID: "ccc"},
		{RunID: "r1", ConfigID: "aaa"},
	})
	if !errors.Is(err, storage.ErrDuplicateKey) {
		t.Errorf("Expected ErrDuplicateKey, got %v", err)
	}

	got, _ := store.GetByRunID(ctx, "r1")
	if len(got) != 1 {
		t.Errorf("Expected rejected batch to insert nothing, got %d rows", len(got))
	}
}
