// Package backend opens the configured store set: everything in memory, or
// run bookkeeping in Postgres with observations and results in ClickHouse.
package backend

import (
	"context"
	"fmt"

	"github.com/ternarybob/arbor"

	"credit-signal-lab/internal/common"
	"credit-signal-lab/internal/observability"
	"credit-signal-lab/internal/storage"
	chstore "credit-signal-lab/internal/storage/clickhouse"
	"credit-signal-lab/internal/storage/memory"
	"credit-signal-lab/internal/storage/migrations"
	pgstore "credit-signal-lab/internal/storage/postgres"
)

// Backend names
const (
	Memory = "memory"
	SQL    = "sql"
)

// Stores holds all storage implementations.
type Stores struct {
	Backend      string
	Observations storage.ObservationStore
	Results      storage.TournamentResultStore
	Runs         storage.RunStore
	Validation   storage.ValidationStore

	pool *pgstore.Pool
	conn *chstore.Conn
}

// Open creates the stores of cfg.Backend. The sql backend applies the
// embedded migrations before returning.
func Open(ctx context.Context, cfg common.StorageConfig, logger arbor.ILogger) (*Stores, error) {
	switch cfg.Backend {
	case "", Memory:
		return NewMemory(), nil
	case SQL:
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
	}

	// PostgreSQL
	pool, err := pgstore.NewPool(ctx, cfg.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}
	if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres migrations: %w", err)
	}

	// ClickHouse
	conn, err := migrations.RunClickhouseMigrations(ctx, cfg.ClickhouseDSN)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("clickhouse migrations: %w", err)
	}

	if logger != nil {
		logger.Info().Str("backend", SQL).Msg("Storage connected and migrated")
	}

	return &Stores{
		Backend: SQL,
		// PostgreSQL stores (run bookkeeping + validation tables)
		Runs:       pgstore.NewRunStore(pool),
		Validation: pgstore.NewValidationStore(pool),
		// ClickHouse stores (analytics)
		Observations: chstore.NewObservationStore(conn),
		Results:      chstore.NewTournamentResultStore(conn),
		pool:         pool,
		conn:         conn,
	}, nil
}

// NewMemory creates in-memory stores.
func NewMemory() *Stores {
	return &Stores{
		Backend:      Memory,
		Observations: memory.NewObservationStore(),
		Results:      memory.NewTournamentResultStore(),
		Runs:         memory.NewRunStore(),
		Validation:   memory.NewValidationStore(),
	}
}

// ReportPoolStats publishes the Postgres pool gauges. No-op in memory.
func (s *Stores) ReportPoolStats() {
	if s.pool == nil {
		return
	}
	stat := s.pool.Stat()
	observability.UpdateDBConnections("postgres", int(stat.IdleConns()), int(stat.AcquiredConns()))
}

// Close releases database connections.
func (s *Stores) Close() {
	if s.conn != nil {
		s.conn.Close()
	}
	if s.pool != nil {
		s.pool.Close()
	}
}
