package dbx

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"

	"github.com/ingenieros-gt/evote/internal/filex"
)

// Dialect isolates the few places where PostgreSQL and SQLite disagree.
// Repositories write statements with "?" placeholders; a bound DBTX rewrites
// them for the target database.
type Dialect interface {
	// Name is the configuration name: "postgres" or "sqlite".
	Name() string
	// DriverName is the database/sql driver to open.
	DriverName() string
	// GooseDialect is the dialect name understood by goose.
	GooseDialect() string
	// Rebind rewrites "?" placeholders into the native form.
	Rebind(query string) string
	// IsUniqueViolation reports whether err was raised by a unique index.
	IsUniqueViolation(err error) bool
	// ForUpdate is appended to a SELECT that must lock the rows it reads.
	ForUpdate() string
	// InsertID executes an INSERT and returns the generated id column.
	InsertID(ctx context.Context, db DBTX, query string, args ...any) (int64, error)
}

// Open opens a pool for the named driver ("postgres", "pg", "pgx" or
// "sqlite") and returns it together with its dialect.
func Open(driver, dsn string) (*sql.DB, Dialect, error) {
	d, err := DialectFor(driver)
	if err != nil {
		return nil, nil, err
	}

	if d.Name() == "sqlite" {
		if path, ok := sqliteFilePath(dsn); ok {
			if _, err := filex.EnsureParentDir(path); err != nil {
				return nil, nil, fmt.Errorf("db open error: %w", err)
			}
		}
		dsn = SQLiteDSN(dsn)
	}

	db, err := sql.Open(d.DriverName(), dsn)
	if err != nil {
		return nil, nil, fmt.Errorf("db open error: %w", err)
	}

	// SQLite has a single writer; one connection serialises transactions.
	if d.Name() == "sqlite" {
		db.SetMaxOpenConns(1)
	}

	return db, d, nil
}

// DialectFor resolves a configured driver name.
func DialectFor(driver string) (Dialect, error) {
	switch strings.ToLower(strings.TrimSpace(driver)) {
	case "postgres", "postgresql", "pg", "pgx":
		return Postgres{}, nil
	case "sqlite", "sqlite3":
		return SQLite{}, nil
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}
}

// Bind wraps db so every statement is rebound for d.
func Bind(db DBTX, d Dialect) DBTX {
	if b, ok := db.(*bound); ok {
		db = b.db
	}
	return &bound{db: db, dialect: d}
}

type bound struct {
	db      DBTX
	dialect Dialect
}

func (b *bound) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return b.db.ExecContext(ctx, b.dialect.Rebind(query), args...)
}

func (b *bound) QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return b.db.QueryContext(ctx, b.dialect.Rebind(query), args...)
}

func (b *bound) QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row {
	return b.db.QueryRowContext(ctx, b.dialect.Rebind(query), args...)
}

// rebindDollar turns "?" into "$1", "$2", ... leaving quoted text alone.
func rebindDollar(query string) string {
	if !strings.Contains(query, "?") {
		return query
	}

	var sb strings.Builder
	sb.Grow(len(query) + 8)

	n := 0
	inQuote := false
	for i := 0; i < len(query); i++ {
		c := query[i]
		switch {
		case c == '\'':
			inQuote = !inQuote
			sb.WriteByte(c)
		case c == '?' && !inQuote:
			n++
			sb.WriteByte('$')
			sb.WriteString(strconv.Itoa(n))
		default:
			sb.WriteByte(c)
		}
	}

	return sb.String()
}
