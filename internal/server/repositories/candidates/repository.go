package candidates

import (
	"context"

	"github.com/ingenieros-gt/evote/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, c *models.Candidate) (*models.Candidate, error)
	GetByID(ctx context.Context, id int64) (*models.Candidate, error)
	GetByEngineerID(ctx context.Context, engineerID int64) (*models.Candidate, error)
	SetPhoto(ctx context.Context, id int64, ref string) error
}
