package votes

import (
	"context"

	"github.com/ingenieros-gt/evote/internal/server/models"
)

type Repository interface {
	// Insert appends a vote. A second vote for the same candidate by the
	// same voter in the same campaign fails with common.ErrorConflict.
	Insert(ctx context.Context, v *models.Vote) error
	CountUsed(ctx context.Context, campaignID, voterID int64) (int, error)
	UsedByCampaign(ctx context.Context, voterID int64) (map[int64]int, error)
	Tally(ctx context.Context, campaignID int64) (map[int64]int, error)
	DeleteByCampaign(ctx context.Context, campaignID int64) error
}
