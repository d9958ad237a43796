package engineers

import (
	"context"

	"github.com/ingenieros-gt/evote/internal/server/models"
)

type Repository interface {
	GetByID(ctx context.Context, id int64) (*models.Engineer, error)
	GetByColegiado(ctx context.Context, colegiado string) (*models.Engineer, error)
	GetByEmailOrColegiado(ctx context.Context, login string) (*models.Engineer, error)
	// Taken reports whether email or dpi belong to an engineer other than id.
	Taken(ctx context.Context, id int64, email, dpi string) (emailTaken bool, dpiTaken bool, err error)

	Upsert(ctx context.Context, r *models.RosterRecord) error
	SetCredentials(ctx context.Context, id int64, c *models.Credentials) error

	SetAdmin(ctx context.Context, colegiado string, admin bool) error
	Patch(ctx context.Context, id int64, p *models.EngineerPatch) error

	List(ctx context.Context, f models.EngineerFilter) ([]*models.Engineer, error)
	Options(ctx context.Context, query string, limit int) ([]*models.EngineerOption, error)
	Diagnostics(ctx context.Context, sample int) (*models.RosterDiagnostics, error)
	Count(ctx context.Context) (int, error)

	// LockForVote reads the activation flag and, where the database supports
	// it, holds a row lock until the surrounding transaction ends.
	LockForVote(ctx context.Context, id int64) (active bool, err error)
}
