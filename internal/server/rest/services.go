package rest

import (
	"context"

	"github.com/ingenieros-gt/evote/internal/server/auth"
	"github.com/ingenieros-gt/evote/internal/server/models"
	"github.com/ingenieros-gt/evote/internal/server/services"
)

// AuthService is the subset of services.AuthService used by the handlers.
type AuthService interface {
	Register(ctx context.Context, in services.RegisterInput) (*models.Engineer, error)
	Login(ctx context.Context, in services.LoginInput) (string, error)
	AdminLogin(ctx context.Context, login, password string) (string, error)
	Verify(token string) (*auth.Principal, error)
	RosterStatus(ctx context.Context, colegiado string) (*models.RosterStatus, error)
}

type RosterService interface {
	Sync(ctx context.Context, records []models.RosterRecord) (int, error)
	Diagnostics(ctx context.Context) (*models.RosterDiagnostics, error)
	List(ctx context.Context, f models.EngineerFilter) ([]*models.Engineer, error)
	Options(ctx context.Context) ([]*models.EngineerOption, error)
	Search(ctx context.Context, q string) ([]*models.EngineerOption, error)
	Update(ctx context.Context, id int64, u services.EngineerUpdate) (*models.Engineer, error)
	ResetPassword(ctx context.Context, id int64) (string, error)
}

type CampaignService interface {
	Create(ctx context.Context, in services.CampaignInput) (*models.CampaignView, error)
	Update(ctx context.Context, id int64, patch *models.CampaignPatch, candidates []models.CandidateSpec) (*models.CampaignView, error)
	Get(ctx context.Context, id int64, caller *auth.Principal) (*models.CampaignView, error)
	List(ctx context.Context, caller *auth.Principal) ([]*models.CampaignView, error)
	Delete(ctx context.Context, id int64) error
	PresignPhoto(ctx context.Context, candidateID int64) (*models.PhotoUpload, error)
}

type VoteService interface {
	Cast(ctx context.Context, campaignID, candidateID int64, voter *auth.Principal) (*models.VoteResult, error)
}
