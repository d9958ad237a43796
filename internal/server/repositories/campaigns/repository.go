package campaigns

import (
	"context"

	"github.com/ingenieros-gt/evote/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, c *models.Campaign) (*models.Campaign, error)
	GetByID(ctx context.Context, id int64) (*models.Campaign, error)
	List(ctx context.Context) ([]*models.Campaign, error)
	Update(ctx context.Context, id int64, p *models.CampaignPatch) error
	// Disable clears the enabled flag; it reports false when the campaign
	// was already disabled or does not exist.
	Disable(ctx context.Context, id int64) (bool, error)
	Delete(ctx context.Context, id int64) error
	Count(ctx context.Context) (int, error)

	LinkCandidate(ctx context.Context, campaignID, candidateID int64, bio *string) error
	UnlinkAll(ctx context.Context, campaignID int64) error
	IsLinked(ctx context.Context, campaignID, candidateID int64) (bool, error)
	Candidates(ctx context.Context, campaignID int64) ([]*models.CampaignCandidate, error)
}
