package services

import (
	"context"
	"database/sql"
	"sync"
	"testing"
	"time"

	"github.com/ingenieros-gt/evote/internal/common"
	"github.com/ingenieros-gt/evote/internal/logging"
	"github.com/ingenieros-gt/evote/internal/server/auth"
	"github.com/ingenieros-gt/evote/internal/server/config"
	"github.com/ingenieros-gt/evote/internal/server/dbtest"
	"github.com/ingenieros-gt/evote/internal/server/models"
	"github.com/ingenieros-gt/evote/internal/server/photos"
	"github.com/ingenieros-gt/evote/internal/server/repositories/repomanager"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

var t0 = time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

// testClock is a settable clock shared by the services under test.
type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

type env struct {
	db        *sql.DB
	rm        *repomanager.SQLRepositoryManager
	clock     *testClock
	cfg       *config.Config
	auth      *AuthService
	roster    *RosterService
	campaigns *CampaignService
	votes     *VoteService
}

func newEnv(t *testing.T) *env {
	return newEnvWithStore(t, photos.Passthrough{})
}

func newEnvWithStore(t *testing.T, store photos.Store) *env {
	t.Helper()

	db, d := dbtest.OpenSQLite(t)
	rm := repomanager.NewSQLRepositoryManager(d)
	clock := &testClock{now: t0}
	cfg := &config.Config{
		SecretKey:                   "test-secret",
		AccessTokenValidityDuration: time.Hour,
		BcryptCost:                  bcrypt.MinCost,
	}
	logger := logging.NewNopLogger()

	return &env{
		db:        db,
		rm:        rm,
		clock:     clock,
		cfg:       cfg,
		auth:      NewAuthService(db, rm, cfg, clock),
		roster:    NewRosterService(db, rm, cfg, clock, logger),
		campaigns: NewCampaignService(db, rm, store, clock, logger),
		votes:     NewVoteService(db, rm, clock, logger),
	}
}

func strp(s string) *string { return &s }
func boolp(b bool) *bool    { return &b }
func int64p(i int64) *int64 { return &i }

// addEngineer puts one entry on the roster and returns its id.
func (e *env) addEngineer(t *testing.T, colegiado, nombre, dpi, fecha string, active bool) int64 {
	t.Helper()
	rec := models.RosterRecord{Colegiado: colegiado, Nombre: nombre, Activo: active}
	if dpi != "" {
		rec.DPI = &dpi
	}
	if fecha != "" {
		rec.FechaNacimiento = &fecha
	}
	_, err := e.roster.Sync(context.Background(), []models.RosterRecord{rec})
	require.NoError(t, err)

	eng, err := e.rm.Engineers(e.db).GetByColegiado(context.Background(), colegiado)
	require.NoError(t, err)
	return eng.ID
}

// voter returns a voter principal for a fresh active engineer.
func (e *env) voter(t *testing.T, colegiado string) *auth.Principal {
	t.Helper()
	id := e.addEngineer(t, colegiado, "Votante "+colegiado, "", "", true)
	return &auth.Principal{ID: id, Role: common.RoleVoter, Colegiado: colegiado}
}

// openCampaign creates an enabled campaign active at t0 with the named
// candidates and returns its view.
func (e *env) openCampaign(t *testing.T, quota int, names ...string) *models.CampaignView {
	t.Helper()
	specs := make([]models.CandidateSpec, 0, len(names))
	for _, n := range names {
		specs = append(specs, models.CandidateSpec{Nombre: n})
	}
	v, err := e.campaigns.Create(context.Background(), CampaignInput{
		Titulo:     "Elección",
		Quota:      quota,
		Habilitada: true,
		IniciaEn:   t0.Add(-time.Hour),
		TerminaEn:  t0.Add(time.Hour),
		Candidatos: specs,
	})
	require.NoError(t, err)
	return v
}

func requireKind(t *testing.T, err error, kind error) {
	t.Helper()
	require.Error(t, err)
	require.ErrorIs(t, err, kind, "got %v", err)
}
