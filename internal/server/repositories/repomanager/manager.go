package repomanager

import (
	"context"
	"database/sql"

	"github.com/ingenieros-gt/evote/internal/dbx"
	"github.com/ingenieros-gt/evote/internal/server/repositories/campaigns"
	"github.com/ingenieros-gt/evote/internal/server/repositories/candidates"
	"github.com/ingenieros-gt/evote/internal/server/repositories/engineers"
	"github.com/ingenieros-gt/evote/internal/server/repositories/votes"
)

// RepositoryManager vends repositories bound to a connection or transaction.
type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Engineers(db dbx.DBTX) engineers.Repository
	Campaigns(db dbx.DBTX) campaigns.Repository
	Candidates(db dbx.DBTX) candidates.Repository
	Votes(db dbx.DBTX) votes.Repository
}
