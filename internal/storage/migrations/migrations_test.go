package migrations

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_EmbeddedFilesInOrder(t *testing.T) {
	pg, err := load(PostgresFS, "postgres")
	require.NoError(t, err)
	require.Len(t, pg, 2)
	assert.Equal(t, "001_runs.sql", pg[0].Name)
	assert.Contains(t, pg[1].SQL, "CREATE TABLE IF NOT EXISTS stress_tests")

	ch, err := load(ClickhouseFS, "clickhouse")
	require.NoError(t, err)
	require.Len(t, ch, 2)
	assert.Contains(t, ch[0].SQL, "panel_observations")
	assert.Contains(t, ch[1].SQL, "tournament_results")
}

func TestSplitStatements_DropsCommentsAndBlanks(t *testing.T) {
	sql := `-- header
CREATE TABLE a (x Int32);

-- second
CREATE TABLE b (y Int32);
`
	stmts := splitStatements(sql)
	require.Len(t, stmts, 2)
	assert.True(t, strings.HasPrefix(stmts[0], "CREATE TABLE a"))
	assert.True(t, strings.HasPrefix(stmts[1], "CREATE TABLE b"))
}

func TestEmbeddedClickhouseMigrations_AreSplittable(t *testing.T) {
	ch, err := load(ClickhouseFS, "clickhouse")
	require.NoError(t, err)
	for _, m := range ch {
		assert.NoError(t, validateNoSemicolonInStrings(m.SQL), m.Name)
		assert.Len(t, splitStatements(m.SQL), 1, m.Name)
	}
}

func TestValidateNoSemicolonInStrings(t *testing.T) {
	assert.NoError(t, validateNoSemicolonInStrings(`SELECT 'it''s'; SELECT 1`))
	assert.Error(t, validateNoSemicolonInStrings(`SELECT 'a;b'`))
}

func TestDatabaseFromDSN(t *testing.T) {
	db, err := databaseFromDSN("clickhouse://default@localhost:9000/credit")
	require.NoError(t, err)
	assert.Equal(t, "credit", db)

	_, err = databaseFromDSN("clickhouse://localhost:9000")
	assert.Error(t, err)
}

func TestPending_SkipsApplied(t *testing.T) {
	all := []migration{{Name: "001_runs.sql"}, {Name: "002_validation.sql"}, {Name: "003_extra.sql"}}

	got := pending(all, map[string]bool{"001_runs.sql": true})
	require.Len(t, got, 2)
	assert.Equal(t, "002_validation.sql", got[0].Name)
	assert.Equal(t, "003_extra.sql", got[1].Name)

	assert.Empty(t, pending(all, map[string]bool{"001_runs.sql": true, "002_validation.sql": true, "003_extra.sql": true}))
	assert.Len(t, pending(all, nil), 3)
}
