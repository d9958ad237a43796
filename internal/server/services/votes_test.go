package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/ingenieros-gt/evote/internal/common"
	"github.com/ingenieros-gt/evote/internal/server/auth"
	"github.com/ingenieros-gt/evote/internal/server/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCast_QuotaExhaustion(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	voter := e.voter(t, "2000")
	v := e.openCampaign(t, 2, "A", "B", "C")
	a, b, c := v.Candidatos[0].ID, v.Candidatos[1].ID, v.Candidatos[2].ID

	res, err := e.votes.Cast(ctx, v.ID, a, voter)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Usados)
	assert.Equal(t, 1, res.Disponibles)
	assert.Equal(t, map[string]int{key(a): 1}, res.Votos)

	res, err = e.votes.Cast(ctx, v.ID, b, voter)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Usados)
	assert.Equal(t, 0, res.Disponibles)

	_, err = e.votes.Cast(ctx, v.ID, c, voter)
	requireKind(t, err, common.ErrorBadRequest)
	assert.Equal(t, "no votes remaining", common.Message(err))

	used, err := e.rm.Votes(e.db).CountUsed(ctx, v.ID, voter.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, used)

	got, err := e.campaigns.Get(ctx, v.ID, voter)
	require.NoError(t, err)
	assert.Equal(t, 0, got.Disponibles)
	assert.Equal(t, map[string]int{key(a): 1, key(b): 1, key(c): 0}, got.Votos)
}

func TestCast_DuplicateIsConflict(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	voter := e.voter(t, "2100")
	v := e.openCampaign(t, 3, "A", "B")

	_, err := e.votes.Cast(ctx, v.ID, v.Candidatos[0].ID, voter)
	require.NoError(t, err)

	_, err = e.votes.Cast(ctx, v.ID, v.Candidatos[0].ID, voter)
	requireKind(t, err, common.ErrorConflict)

	tally, err := e.votes.Tally(ctx, v.ID)
	require.NoError(t, err)
	assert.Equal(t, map[string]int{key(v.Candidatos[0].ID): 1}, tally)
}

func TestCast_Admission(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	voter := e.voter(t, "2200")
	v := e.openCampaign(t, 1, "A")
	other := e.openCampaign(t, 1, "Z")
	cand := v.Candidatos[0].ID

	pending, err := e.campaigns.Create(ctx, CampaignInput{
		Titulo: "Pendiente", Quota: 1, Habilitada: true,
		IniciaEn: t0.Add(time.Hour), TerminaEn: t0.Add(2 * time.Hour),
		Candidatos: []models.CandidateSpec{{Nombre: "P"}},
	})
	require.NoError(t, err)
	disabled, err := e.campaigns.Create(ctx, CampaignInput{
		Titulo: "Deshabilitada", Quota: 1, Habilitada: false,
		IniciaEn: t0.Add(-time.Hour), TerminaEn: t0.Add(time.Hour),
		Candidatos: []models.CandidateSpec{{Nombre: "D"}},
	})
	require.NoError(t, err)

	inactiveID := e.addEngineer(t, "2201", "INACTIVO", "", "", false)
	inactive := &auth.Principal{ID: inactiveID, Role: common.RoleVoter}

	tests := []struct {
		name      string
		campaign  int64
		candidate int64
		voter     *auth.Principal
		kind      error
	}{
		{"unknown campaign", 9999, cand, voter, common.ErrorNotFound},
		{"pending", pending.ID, pending.Candidatos[0].ID, voter, common.ErrorBadRequest},
		{"disabled", disabled.ID, disabled.Candidatos[0].ID, voter, common.ErrorBadRequest},
		{"candidate of another campaign", v.ID, other.Candidatos[0].ID, voter, common.ErrorBadRequest},
		{"role not allowed", v.ID, cand, &auth.Principal{ID: voter.ID, Role: "guest"}, common.ErrorForbidden},
		{"no principal", v.ID, cand, nil, common.ErrorForbidden},
		{"inactive voter", v.ID, cand, inactive, common.ErrorForbidden},
		{"voter not in roster", v.ID, cand, &auth.Principal{ID: 9999, Role: common.RoleVoter}, common.ErrorForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := e.votes.Cast(ctx, tt.campaign, tt.candidate, tt.voter)
			requireKind(t, err, tt.kind)
		})
	}

	// admins vote with their engineer id
	admin := &auth.Principal{ID: voter.ID, Role: common.RoleAdmin}
	_, err = e.votes.Cast(ctx, v.ID, cand, admin)
	require.NoError(t, err)
}

func TestCast_WindowBounds(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	voter := e.voter(t, "2300")
	v := e.openCampaign(t, 2, "A", "B")

	e.clock.Set(t0.Add(time.Hour))
	_, err := e.votes.Cast(ctx, v.ID, v.Candidatos[0].ID, voter)
	require.NoError(t, err, "voting at the exact end is allowed")

	e.clock.Set(t0.Add(time.Hour + time.Nanosecond))
	_, err = e.votes.Cast(ctx, v.ID, v.Candidatos[1].ID, voter)
	requireKind(t, err, common.ErrorBadRequest)
}

func TestCast_ConcurrentQuota(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	voter := e.voter(t, "2400")

	names := []string{"A", "B", "C", "D", "E", "F", "G", "H"}
	v := e.openCampaign(t, 3, names...)

	var wg sync.WaitGroup
	errs := make([]error, len(v.Candidatos))
	for i, c := range v.Candidatos {
		wg.Add(1)
		go func(i int, candidateID int64) {
			defer wg.Done()
			_, errs[i] = e.votes.Cast(ctx, v.ID, candidateID, voter)
		}(i, c.ID)
	}
	wg.Wait()

	ok := 0
	for _, err := range errs {
		if err == nil {
			ok++
			continue
		}
		assert.True(t, errors.Is(err, common.ErrorBadRequest), "unexpected error %v", err)
	}
	assert.Equal(t, 3, ok)

	used, err := e.rm.Votes(e.db).CountUsed(ctx, v.ID, voter.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, used)
}

func TestCast_ConcurrentDuplicate(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	voter := e.voter(t, "2500")
	v := e.openCampaign(t, 5, "A")
	cand := v.Candidatos[0].ID

	const n = 10
	var wg sync.WaitGroup
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = e.votes.Cast(ctx, v.ID, cand, voter)
		}(i)
	}
	wg.Wait()

	ok, conflicts := 0, 0
	for _, err := range errs {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, common.ErrorConflict):
			conflicts++
		default:
			t.Errorf("unexpected error %v", err)
		}
	}
	assert.Equal(t, 1, ok)
	assert.Equal(t, n-1, conflicts)

	tally, err := e.votes.Tally(ctx, v.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, tally[key(cand)])
}

func TestCast_ManyVotersTally(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	v := e.openCampaign(t, 1, "A", "B")
	a, b := v.Candidatos[0].ID, v.Candidatos[1].ID

	voters := []string{"2601", "2602", "2603", "2604", "2605"}
	for i, col := range voters {
		cand := a
		if i%2 == 1 {
			cand = b
		}
		_, err := e.votes.Cast(ctx, v.ID, cand, e.voter(t, col))
		require.NoError(t, err)
	}

	got, err := e.campaigns.Get(ctx, v.ID, nil)
	require.NoError(t, err)
	assert.Equal(t, map[string]int{key(a): 3, key(b): 2}, got.Votos)
}
