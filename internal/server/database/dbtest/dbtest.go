// Package dbtest opens migrated in-memory databases for tests.
package dbtest

import (
	"context"
	"database/sql"
	"testing"

	sq "github.com/Masterminds/squirrel"
	"github.com/dmitrijs2005/notekeeper/internal/server/database"
	"github.com/stretchr/testify/require"
)

// OpenSQLite returns a fresh, fully migrated in-memory SQLite database and
// the matching statement builder. The database is closed on cleanup.
func OpenSQLite(t testing.TB) (*sql.DB, sq.StatementBuilderType) {
	t.Helper()

	ctx := context.Background()
	db, err := database.Open(ctx, database.SQLite, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	require.NoError(t, database.Migrate(ctx, database.SQLite, db))

	return db, database.SQLite.Builder()
}

// Count returns the number of rows in table matching the optional where
// clause, for assertions.
func Count(t testing.TB, db *sql.DB, table, where string, args ...any) int {
	t.Helper()

	q := "SELECT COUNT(*) FROM " + table
	if where != "" {
		q += " WHERE " + where
	}
	var n int
	require.NoError(t, db.QueryRow(q, args...).Scan(&n))
	return n
}
