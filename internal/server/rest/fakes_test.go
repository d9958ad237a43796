package rest

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/ingenieros-gt/evote/internal/common"
	"github.com/ingenieros-gt/evote/internal/logging"
	"github.com/ingenieros-gt/evote/internal/server/auth"
	"github.com/ingenieros-gt/evote/internal/server/models"
	"github.com/ingenieros-gt/evote/internal/server/services"
)

// ---- fakes ----

type fakeAuth struct {
	tokens map[string]*auth.Principal

	registered *services.RegisterInput
	regErr     error

	loginIn    *services.LoginInput
	loginToken string
	loginErr   error

	adminLogin string
	adminErr   error

	status *models.RosterStatus
}

func (f *fakeAuth) Register(ctx context.Context, in services.RegisterInput) (*models.Engineer, error) {
	f.registered = &in
	if f.regErr != nil {
		return nil, f.regErr
	}
	return &models.Engineer{ID: 1, Colegiado: in.Colegiado, Nombre: in.Nombre}, nil
}

func (f *fakeAuth) Login(ctx context.Context, in services.LoginInput) (string, error) {
	f.loginIn = &in
	return f.loginToken, f.loginErr
}

func (f *fakeAuth) AdminLogin(ctx context.Context, login, password string) (string, error) {
	f.adminLogin = login
	return "admin-token", f.adminErr
}

func (f *fakeAuth) Verify(token string) (*auth.Principal, error) {
	if p, ok := f.tokens[token]; ok {
		return p, nil
	}
	return nil, common.NewError(common.ErrorUnauthorized, "invalid token")
}

func (f *fakeAuth) RosterStatus(ctx context.Context, colegiado string) (*models.RosterStatus, error) {
	return f.status, nil
}

type fakeRoster struct {
	synced  []models.RosterRecord
	syncErr error

	filter  models.EngineerFilter
	query   string
	update  *services.EngineerUpdate
	updated int64
}

func (f *fakeRoster) Sync(ctx context.Context, records []models.RosterRecord) (int, error) {
	f.synced = records
	return len(records), f.syncErr
}

func (f *fakeRoster) Diagnostics(ctx context.Context) (*models.RosterDiagnostics, error) {
	return &models.RosterDiagnostics{Total: 3, Active: 2, Admins: 1, Sample: []*models.EngineerOption{}}, nil
}

func (f *fakeRoster) List(ctx context.Context, filter models.EngineerFilter) ([]*models.Engineer, error) {
	f.filter = filter
	return []*models.Engineer{{ID: 7, Colegiado: "1234", Nombre: "Ana"}}, nil
}

func (f *fakeRoster) Options(ctx context.Context) ([]*models.EngineerOption, error) {
	return []*models.EngineerOption{{ID: 7, Colegiado: "1234", Nombre: "Ana"}}, nil
}

func (f *fakeRoster) Search(ctx context.Context, q string) ([]*models.EngineerOption, error) {
	f.query = q
	return []*models.EngineerOption{}, nil
}

func (f *fakeRoster) Update(ctx context.Context, id int64, u services.EngineerUpdate) (*models.Engineer, error) {
	f.updated = id
	f.update = &u
	return &models.Engineer{ID: id, Colegiado: "1234", Nombre: "Ana"}, nil
}

func (f *fakeRoster) ResetPassword(ctx context.Context, id int64) (string, error) {
	return "Xy7#generated", nil
}

type fakeCampaigns struct {
	created   *services.CampaignInput
	createErr error

	patch      *models.CampaignPatch
	candidates []models.CandidateSpec

	caller  *auth.Principal
	deleted int64
	getErr  error
}

func (f *fakeCampaigns) Create(ctx context.Context, in services.CampaignInput) (*models.CampaignView, error) {
	f.created = &in
	if f.createErr != nil {
		return nil, f.createErr
	}
	return &models.CampaignView{ID: 1, Titulo: in.Titulo, Quota: in.Quota}, nil
}

func (f *fakeCampaigns) Update(ctx context.Context, id int64, patch *models.CampaignPatch, candidates []models.CandidateSpec) (*models.CampaignView, error) {
	f.patch = patch
	f.candidates = candidates
	return &models.CampaignView{ID: id}, nil
}

func (f *fakeCampaigns) Get(ctx context.Context, id int64, caller *auth.Principal) (*models.CampaignView, error) {
	f.caller = caller
	if f.getErr != nil {
		return nil, f.getErr
	}
	return &models.CampaignView{ID: id, Titulo: "Junta", Votos: map[string]int{}}, nil
}

func (f *fakeCampaigns) List(ctx context.Context, caller *auth.Principal) ([]*models.CampaignView, error) {
	f.caller = caller
	return []*models.CampaignView{}, nil
}

func (f *fakeCampaigns) Delete(ctx context.Context, id int64) error {
	f.deleted = id
	return nil
}

func (f *fakeCampaigns) PresignPhoto(ctx context.Context, candidateID int64) (*models.PhotoUpload, error) {
	return &models.PhotoUpload{CandidateID: candidateID, Key: "candidates/1.jpg", UploadURL: "http://s3/upload"}, nil
}

type fakeVotes struct {
	campaignID, candidateID int64
	voter                   *auth.Principal
	err                     error
}

func (f *fakeVotes) Cast(ctx context.Context, campaignID, candidateID int64, voter *auth.Principal) (*models.VoteResult, error) {
	f.campaignID, f.candidateID, f.voter = campaignID, candidateID, voter
	if f.err != nil {
		return nil, f.err
	}
	return &models.VoteResult{Votos: map[string]int{"2": 1}, Usados: 1, Disponibles: 0}, nil
}

// ---- harness ----

var (
	voter = &auth.Principal{ID: 10, Role: common.RoleVoter, Colegiado: "1234", Nombre: "Ana"}
	admin = &auth.Principal{ID: 1, Role: common.RoleAdmin, Colegiado: "1", Nombre: "Admin"}
)

type harness struct {
	auth      *fakeAuth
	roster    *fakeRoster
	campaigns *fakeCampaigns
	votes     *fakeVotes
	routes    http.Handler
}

func newHarness() *harness {
	h := &harness{
		auth: &fakeAuth{tokens: map[string]*auth.Principal{
			"voter-token": voter,
			"admin-token": admin,
		}},
		roster:    &fakeRoster{},
		campaigns: &fakeCampaigns{},
		votes:     &fakeVotes{},
	}
	h.routes = NewHandler(h.auth, h.roster, h.campaigns, h.votes, logging.NewNopLogger()).Routes()
	return h
}

func (h *harness) do(t *testing.T, method, path, token, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set(common.AuthorizationHeaderName, common.BearerPrefix+token)
	}
	rec := httptest.NewRecorder()
	h.routes.ServeHTTP(rec, req)
	return rec
}
