package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/ingenieros-gt/evote/internal/common"
	"github.com/ingenieros-gt/evote/internal/dbx"
	"github.com/ingenieros-gt/evote/internal/logging"
	"github.com/ingenieros-gt/evote/internal/server/auth"
	"github.com/ingenieros-gt/evote/internal/server/lifecycle"
	"github.com/ingenieros-gt/evote/internal/server/models"
	"github.com/ingenieros-gt/evote/internal/server/photos"
	"github.com/ingenieros-gt/evote/internal/server/repositories/repomanager"
	"github.com/ingenieros-gt/evote/internal/timex"
)

const defaultCandidateName = "Candidato"

// CampaignInput holds the fields of a new campaign.
type CampaignInput struct {
	Titulo      string
	Descripcion *string
	Quota       int
	Habilitada  bool
	IniciaEn    time.Time
	TerminaEn   time.Time
	Candidatos  []models.CandidateSpec
}

// CampaignService creates and edits campaigns and builds their read models.
// Reads lazily persist the disabled flag of campaigns whose window closed.
type CampaignService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	photos      photos.Store
	clock       timex.Clock
	logger      logging.Logger
}

// NewCampaignService constructs a CampaignService.
func NewCampaignService(db *sql.DB, m repomanager.RepositoryManager, store photos.Store, clock timex.Clock, logger logging.Logger) *CampaignService {
	if clock == nil {
		clock = timex.SystemClock
	}
	if store == nil {
		store = photos.Passthrough{}
	}
	return &CampaignService{db: db, repomanager: m, photos: store, clock: clock, logger: logger}
}

// Create stores a campaign and links its candidates in one transaction.
func (s *CampaignService) Create(ctx context.Context, in CampaignInput) (*models.CampaignView, error) {
	c := models.Campaign{
		Titulo:      strings.TrimSpace(in.Titulo),
		Descripcion: in.Descripcion,
		Quota:       in.Quota,
		Habilitada:  in.Habilitada,
		IniciaEn:    in.IniciaEn,
		TerminaEn:   in.TerminaEn,
	}
	if err := validateCampaign(&c); err != nil {
		return nil, err
	}

	var id int64
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		created, err := s.repomanager.Campaigns(tx).Create(ctx, &c)
		if err != nil {
			return err
		}
		id = created.ID
		return s.linkCandidates(ctx, tx, id, in.Candidatos)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info(ctx, "campaign created", "id", id, "candidates", len(in.Candidatos))
	return s.Get(ctx, id, nil)
}

// Update applies a partial edit. A non-nil candidates slice, even an empty
// one, replaces every link of the campaign.
func (s *CampaignService) Update(ctx context.Context, id int64, patch *models.CampaignPatch, candidates []models.CandidateSpec) (*models.CampaignView, error) {
	if patch == nil {
		patch = &models.CampaignPatch{}
	}
	if patch.Titulo != nil {
		t := strings.TrimSpace(*patch.Titulo)
		patch.Titulo = &t
	}

	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repomanager.Campaigns(tx)

		current, err := repo.GetByID(ctx, id)
		if err != nil {
			return notFound(err, "campaign not found")
		}
		merged := patch.Apply(*current)
		if err := validateCampaign(&merged); err != nil {
			return err
		}
		if err := repo.Update(ctx, id, patch); err != nil {
			return notFound(err, "campaign not found")
		}

		if candidates == nil {
			return nil
		}
		if err := repo.UnlinkAll(ctx, id); err != nil {
			return err
		}
		return s.linkCandidates(ctx, tx, id, candidates)
	})
	if err != nil {
		return nil, err
	}

	return s.Get(ctx, id, nil)
}

// Get returns the view of one campaign. Remaining quota is computed for
// caller when given, otherwise it equals the campaign quota.
func (s *CampaignService) Get(ctx context.Context, id int64, caller *auth.Principal) (*models.CampaignView, error) {
	c, err := s.repomanager.Campaigns(s.db).GetByID(ctx, id)
	if err != nil {
		return nil, notFound(err, "campaign not found")
	}

	used := 0
	if caller != nil {
		used, err = s.repomanager.Votes(s.db).CountUsed(ctx, id, caller.ID)
		if err != nil {
			return nil, err
		}
	}

	s.sweep(ctx, c)
	return s.view(ctx, c, used)
}

// List returns every campaign, newest start first.
func (s *CampaignService) List(ctx context.Context, caller *auth.Principal) ([]*models.CampaignView, error) {
	list, err := s.repomanager.Campaigns(s.db).List(ctx)
	if err != nil {
		return nil, err
	}

	used := map[int64]int{}
	if caller != nil {
		used, err = s.repomanager.Votes(s.db).UsedByCampaign(ctx, caller.ID)
		if err != nil {
			return nil, err
		}
	}

	out := make([]*models.CampaignView, 0, len(list))
	for _, c := range list {
		s.sweep(ctx, c)
		v, err := s.view(ctx, c, used[c.ID])
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

// Delete removes a campaign with its votes and candidate links.
func (s *CampaignService) Delete(ctx context.Context, id int64) error {
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if err := s.repomanager.Votes(tx).DeleteByCampaign(ctx, id); err != nil {
			return err
		}
		repo := s.repomanager.Campaigns(tx)
		if err := repo.UnlinkAll(ctx, id); err != nil {
			return err
		}
		return notFound(repo.Delete(ctx, id), "campaign not found")
	})
	if err != nil {
		return err
	}
	s.logger.Info(ctx, "campaign deleted", "id", id)
	return nil
}

// PresignPhoto returns an upload target for a candidate photo and records
// the object key as the candidate's photo.
func (s *CampaignService) PresignPhoto(ctx context.Context, candidateID int64) (*models.PhotoUpload, error) {
	repo := s.repomanager.Candidates(s.db)
	if _, err := repo.GetByID(ctx, candidateID); err != nil {
		return nil, notFound(err, "candidate not found")
	}

	key, url, err := s.photos.PresignUpload(ctx, candidateID)
	if err != nil {
		return nil, err
	}
	if err := repo.SetPhoto(ctx, candidateID, key); err != nil {
		return nil, err
	}
	return &models.PhotoUpload{CandidateID: candidateID, Key: key, UploadURL: url}, nil
}

// SeedDemo creates an enabled demo campaign open from now when no campaign
// exists yet. It reports whether one was created.
func (s *CampaignService) SeedDemo(ctx context.Context) (bool, error) {
	n, err := s.repomanager.Campaigns(s.db).Count(ctx)
	if err != nil {
		return false, err
	}
	if n > 0 {
		return false, nil
	}

	now := s.clock.Now()
	desc := "Campaña de demostración"
	_, err = s.Create(ctx, CampaignInput{
		Titulo:      "Elección Junta Directiva 2025",
		Descripcion: &desc,
		Quota:       1,
		Habilitada:  true,
		IniciaEn:    now.Add(-5 * time.Minute),
		TerminaEn:   now.Add(time.Hour),
		Candidatos: []models.CandidateSpec{
			{Nombre: "Lista A"},
			{Nombre: "Lista B"},
			{Nombre: "Lista C"},
		},
	})
	if err != nil {
		return false, err
	}
	return true, nil
}

// --- helpers below ---

func validateCampaign(c *models.Campaign) error {
	switch {
	case c.Titulo == "":
		return common.NewError(common.ErrorBadRequest, "titulo is required")
	case c.Quota < 1:
		return common.NewError(common.ErrorBadRequest, "votosPorVotante must be at least 1")
	case c.IniciaEn.IsZero() || c.TerminaEn.IsZero():
		return common.NewError(common.ErrorBadRequest, "iniciaEn and terminaEn are required")
	case !c.IniciaEn.Before(c.TerminaEn):
		return common.NewError(common.ErrorBadRequest, "iniciaEn must be before terminaEn")
	}
	return nil
}

func (s *CampaignService) linkCandidates(ctx context.Context, tx dbx.DBTX, campaignID int64, specs []models.CandidateSpec) error {
	repo := s.repomanager.Campaigns(tx)
	for i := range specs {
		candidateID, err := s.resolveCandidate(ctx, tx, &specs[i])
		if err != nil {
			return err
		}
		var bio *string
		if specs[i].Bio != nil {
			if b := strings.TrimSpace(*specs[i].Bio); b != "" {
				bio = &b
			}
		}
		if err := repo.LinkCandidate(ctx, campaignID, candidateID, bio); err != nil {
			return err
		}
	}
	return nil
}

// resolveCandidate finds or creates the candidate described by spec: by id,
// by engineer (reusing that engineer's candidate) or as a new named one.
func (s *CampaignService) resolveCandidate(ctx context.Context, tx dbx.DBTX, spec *models.CandidateSpec) (int64, error) {
	candidates := s.repomanager.Candidates(tx)

	switch {
	case spec.ID != nil:
		c, err := candidates.GetByID(ctx, *spec.ID)
		if err != nil {
			return 0, notFound(err, fmt.Sprintf("candidate %d not found", *spec.ID))
		}
		return c.ID, nil

	case spec.EngineerID != nil:
		c, err := candidates.GetByEngineerID(ctx, *spec.EngineerID)
		if err == nil {
			return c.ID, nil
		}
		if !errors.Is(err, common.ErrorNotFound) {
			return 0, err
		}

		eng, err := s.repomanager.Engineers(tx).GetByID(ctx, *spec.EngineerID)
		if err != nil && !errors.Is(err, common.ErrorNotFound) {
			return 0, err
		}
		if eng == nil || !eng.Activo {
			return 0, common.NewError(common.ErrorNotFound,
				"engineer "+strconv.FormatInt(*spec.EngineerID, 10)+" not found or inactive")
		}
		created, err := candidates.Create(ctx, &models.Candidate{Nombre: eng.Nombre, FotoURL: spec.FotoURL, EngineerID: &eng.ID})
		if err != nil {
			return 0, err
		}
		return created.ID, nil

	default:
		nombre := strings.TrimSpace(spec.Nombre)
		if nombre == "" {
			nombre = defaultCandidateName
		}
		created, err := candidates.Create(ctx, &models.Candidate{Nombre: nombre, FotoURL: spec.FotoURL})
		if err != nil {
			return 0, err
		}
		return created.ID, nil
	}
}

// sweep persists the disabled flag of a campaign whose window has closed.
// Failures are logged and the stored flag is reported unchanged.
func (s *CampaignService) sweep(ctx context.Context, c *models.Campaign) {
	if !lifecycle.NeedsAutoDisable(c.Habilitada, c.TerminaEn, s.clock.Now()) {
		return
	}
	if _, err := s.repomanager.Campaigns(s.db).Disable(ctx, c.ID); err != nil {
		s.logger.Warn(ctx, "auto-disable failed", "campaign", c.ID, "error", err)
		return
	}
	c.Habilitada = false
}

func (s *CampaignService) view(ctx context.Context, c *models.Campaign, used int) (*models.CampaignView, error) {
	linked, err := s.repomanager.Campaigns(s.db).Candidates(ctx, c.ID)
	if err != nil {
		return nil, err
	}
	tally, err := s.repomanager.Votes(s.db).Tally(ctx, c.ID)
	if err != nil {
		return nil, err
	}

	v := &models.CampaignView{
		ID:          c.ID,
		Titulo:      c.Titulo,
		Descripcion: c.Descripcion,
		Habilitada:  c.Habilitada,
		Estado:      string(lifecycle.Evaluate(c.Habilitada, c.IniciaEn, c.TerminaEn, s.clock.Now())),
		IniciaEn:    c.IniciaEn.UTC(),
		TerminaEn:   c.TerminaEn.UTC(),
		Candidatos:  make([]*models.CandidateView, 0, len(linked)),
		Votos:       make(map[string]int, len(linked)),
		Quota:       c.Quota,
		Disponibles: lifecycle.Remaining(c.Quota, used),
	}

	for _, cc := range linked {
		v.Candidatos = append(v.Candidatos, &models.CandidateView{
			ID:         cc.ID,
			Nombre:     cc.Nombre,
			Bio:        cc.EffectiveBio(),
			FotoURL:    s.photoURL(ctx, cc.FotoURL),
			EngineerID: cc.EngineerID,
		})
		v.Votos[strconv.FormatInt(cc.ID, 10)] = 0
	}
	for candidateID, n := range tally {
		v.Votos[strconv.FormatInt(candidateID, 10)] = n
	}
	return v, nil
}

func (s *CampaignService) photoURL(ctx context.Context, ref *string) *string {
	if ref == nil || *ref == "" {
		return nil
	}
	u, err := s.photos.URL(ctx, *ref)
	if err != nil {
		s.logger.Warn(ctx, "photo url failed", "ref", *ref, "error", err)
		return nil
	}
	return &u
}

// notFound replaces a bare ErrorNotFound with one carrying msg.
func notFound(err error, msg string) error {
	if err != nil && errors.Is(err, common.ErrorNotFound) && common.Message(err) == common.ErrorNotFound.Error() {
		return common.NewError(common.ErrorNotFound, msg)
	}
	return err
}
