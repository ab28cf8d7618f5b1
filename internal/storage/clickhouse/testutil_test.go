package clickhouse

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// One container serves the whole package; tables are truncated after each test.
var shared struct {
	once      sync.Once
	container testcontainers.Container
	conn      *Conn
	err       error
}

func TestMain(m *testing.M) {
	code := m.Run()
	if shared.conn != nil {
		shared.conn.Close()
	}
	if shared.container != nil {
		_ = shared.container.Terminate(context.Background())
	}
	os.Exit(code)
}

// setupTestDB returns a migrated connection on the shared container.
func setupTestDB(t *testing.T) *Conn {
	t.Helper()

	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	shared.once.Do(func() {
		shared.container, shared.conn, shared.err = startClickhouse(context.Background())
	})
	require.NoError(t, shared.err, "failed to start clickhouse")

	t.Cleanup(func() { truncateAll(t, shared.conn) })
	return shared.conn
}

func startClickhouse(ctx context.Context) (testcontainers.Container, *Conn, error) {
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "clickhouse/clickhouse-server:24.1-alpine",
			ExposedPorts: []string{"9000/tcp"},
			Env: map[string]string{
				"CLICKHOUSE_DB":       "credit",
				"CLICKHOUSE_USER":     "default",
				"CLICKHOUSE_PASSWORD": "",
			},
			WaitingFor: wait.ForAll(
				wait.ForLog("Ready for connections").WithStartupTimeout(60*time.Second),
				wait.ForListeningPort("9000/tcp"),
			),
		},
		Started: true,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("start container: %w", err)
	}

	host, err := container.Host(ctx)
	if err != nil {
		return container, nil, err
	}
	port, err := container.MappedPort(ctx, "9000")
	if err != nil {
		return container, nil, err
	}

	conn, err := NewConn(ctx, fmt.Sprintf("clickhouse://default@%s:%s/credit", host, port.Port()))
	if err != nil {
		return container, nil, err
	}
	if err := applySchema(ctx, conn); err != nil {
		return container, conn, err
	}
	return container, conn, nil
}

// applySchema executes the migration files one statement at a time. They
// are read from disk since the migrations package imports this one.
func applySchema(ctx context.Context, conn *Conn) error {
	files, err := filepath.Glob(filepath.Join("..", "migrations", "clickhouse", "*.sql"))
	if err != nil {
		return err
	}
	if len(files) == 0 {
		return fmt.Errorf("no clickhouse migrations found")
	}
	sort.Strings(files)

	for _, f := range files {
		content, err := os.ReadFile(f)
		if err != nil {
			return err
		}
		for _, stmt := range strings.Split(string(content), ";") {
			if strings.TrimSpace(withoutComments(stmt)) == "" {
				continue
			}
			if err := conn.Exec(ctx, stmt); err != nil {
				return fmt.Errorf("apply %s: %w", filepath.Base(f), err)
			}
		}
	}
	return nil
}

func truncateAll(t *testing.T, conn *Conn) {
	t.Helper()
	ctx := context.Background()

	rows, err := conn.Query(ctx, `SELECT name FROM system.tables WHERE database = currentDatabase()`)
	require.NoError(t, err)
	var tables []string
	for rows.Next() {
		var name string
		require.NoError(t, rows.Scan(&name))
		tables = append(tables, name)
	}
	rows.Close()
	require.NoError(t, rows.Err())

	for _, table := range tables {
		require.NoError(t, conn.Exec(ctx, "TRUNCATE TABLE "+table))
	}
}

func withoutComments(stmt string) string {
	var kept []string
	for _, line := range strings.Split(stmt, "\n") {
		if !strings.HasPrefix(strings.TrimSpace(line), "--") {
			kept = append(kept, line)
		}
	}
	return strings.Join(kept, "\n")
}
