// Package repomanager wires the SQL repositories for one dialect together
// with the embedded goose migrations.
package repomanager

import (
	"context"
	"database/sql"

	"github.com/ingenieros-gt/evote/internal/dbx"
	"github.com/ingenieros-gt/evote/internal/server/migrations"
	"github.com/ingenieros-gt/evote/internal/server/repositories/campaigns"
	"github.com/ingenieros-gt/evote/internal/server/repositories/candidates"
	"github.com/ingenieros-gt/evote/internal/server/repositories/engineers"
	"github.com/ingenieros-gt/evote/internal/server/repositories/votes"
)

// SQLRepositoryManager vends database/sql repositories for a dialect.
type SQLRepositoryManager struct {
	dialect dbx.Dialect
}

// NewSQLRepositoryManager constructs a RepositoryManager for d.
func NewSQLRepositoryManager(d dbx.Dialect) *SQLRepositoryManager {
	return &SQLRepositoryManager{dialect: d}
}

func (m *SQLRepositoryManager) Dialect() dbx.Dialect { return m.dialect }

func (m *SQLRepositoryManager) Engineers(db dbx.DBTX) engineers.Repository {
	return engineers.NewSQLRepository(db, m.dialect)
}

func (m *SQLRepositoryManager) Campaigns(db dbx.DBTX) campaigns.Repository {
	return campaigns.NewSQLRepository(db, m.dialect)
}

func (m *SQLRepositoryManager) Candidates(db dbx.DBTX) candidates.Repository {
	return candidates.NewSQLRepository(db, m.dialect)
}

func (m *SQLRepositoryManager) Votes(db dbx.DBTX) votes.Repository {
	return votes.NewSQLRepository(db, m.dialect)
}

// migrateUp is a seam for testing.
var migrateUp = migrations.Up

// RunMigrations applies the embedded migrations for the manager's dialect.
func (m *SQLRepositoryManager) RunMigrations(ctx context.Context, db *sql.DB) error {
	return migrateUp(ctx, db, m.dialect)
}
