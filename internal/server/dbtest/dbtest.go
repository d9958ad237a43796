// Package dbtest opens migrated in-memory SQLite databases for tests.
package dbtest

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/ingenieros-gt/evote/internal/dbx"
	"github.com/ingenieros-gt/evote/internal/server/migrations"
)

var seq atomic.Int64

// OpenSQLite returns a fresh migrated database private to the test.
func OpenSQLite(t testing.TB) (*sql.DB, dbx.Dialect) {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s_%d?mode=memory&cache=shared", name, seq.Add(1))

	db, d, err := dbx.Open("sqlite", dsn)
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	if err := migrations.Up(context.Background(), db, d); err != nil {
		t.Fatalf("migrate sqlite: %v", err)
	}
	return db, d
}

// MustExec runs a statement or fails the test.
func MustExec(t testing.TB, db *sql.DB, query string, args ...any) sql.Result {
	t.Helper()
	res, err := db.Exec(query, args...)
	if err != nil {
		t.Fatalf("exec %q: %v", query, err)
	}
	return res
}
