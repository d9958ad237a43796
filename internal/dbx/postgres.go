package dbx

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
)

const pgUniqueViolation = "23505"

// Postgres is the pgx-backed dialect.
type Postgres struct{}

func (Postgres) Name() string         { return "postgres" }
func (Postgres) DriverName() string   { return "pgx" }
func (Postgres) GooseDialect() string { return "pgx" }
func (Postgres) ForUpdate() string    { return " FOR UPDATE" }

func (Postgres) Rebind(query string) string { return rebindDollar(query) }

func (Postgres) IsUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation
}

func (Postgres) InsertID(ctx context.Context, db DBTX, query string, args ...any) (int64, error) {
	var id int64
	err := db.QueryRowContext(ctx, query+" RETURNING id", args...).Scan(&id)
	return id, err
}
