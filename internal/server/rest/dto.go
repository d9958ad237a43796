package rest

import (
	"bytes"
	"encoding/json"
	"strings"
	"time"

	"github.com/ingenieros-gt/evote/internal/server/models"
	"github.com/ingenieros-gt/evote/internal/server/services"
)

type registerRequest struct {
	Colegiado       services.FlexString `json:"colegiado"`
	Nombre          string              `json:"nombre"`
	Email           string              `json:"email"`
	DPI             services.FlexString `json:"dpi"`
	FechaNacimiento string              `json:"fechaNacimiento"`
	Password        string              `json:"password"`
}

type loginRequest struct {
	Colegiado       services.FlexString `json:"colegiado"`
	DPI             services.FlexString `json:"dpi"`
	FechaNacimiento string              `json:"fechaNacimiento"`
	Password        string              `json:"password"`
}

// adminLoginRequest accepts either an email or a colegiado as the login.
type adminLoginRequest struct {
	Email     string              `json:"email"`
	Colegiado services.FlexString `json:"colegiado"`
	Password  string              `json:"password"`
}

func (r adminLoginRequest) login() string {
	if s := strings.TrimSpace(r.Email); s != "" {
		return s
	}
	return strings.TrimSpace(string(r.Colegiado))
}

type tokenResponse struct {
	Token string `json:"token"`
}

type syncRequest struct {
	Items []services.RosterItem `json:"items"`
}

type engineerPatchRequest struct {
	Nombre   *string `json:"nombre"`
	Email    *string `json:"email"`
	Activo   *bool   `json:"activo"`
	Password *string `json:"password"`
}

type voteRequest struct {
	CandidateID services.FlexString `json:"candidateId"`
}

type campaignRequest struct {
	Titulo      *string            `json:"titulo"`
	Descripcion *string            `json:"descripcion"`
	Quota       *int               `json:"votosPorVotante"`
	Habilitada  *bool              `json:"habilitada"`
	IniciaEn    *time.Time         `json:"iniciaEn"`
	TerminaEn   *time.Time         `json:"terminaEn"`
	Candidatos  []candidateRequest `json:"candidatos"`
}

// candidateRequest is either a bare name or an object.
type candidateRequest struct {
	ID         services.FlexString `json:"id"`
	EngineerID services.FlexString `json:"engineerId"`
	Nombre     string              `json:"nombre"`
	FotoURL    *string             `json:"fotoUrl"`
	Bio        *string             `json:"bio"`
}

func (c *candidateRequest) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '"' {
		var name string
		if err := json.Unmarshal(b, &name); err != nil {
			return err
		}
		*c = candidateRequest{Nombre: name}
		return nil
	}
	type plain candidateRequest
	var p plain
	if err := json.Unmarshal(b, &p); err != nil {
		return err
	}
	*c = candidateRequest(p)
	return nil
}

func (c candidateRequest) spec() (models.CandidateSpec, error) {
	id, err := optionalID(c.ID, "candidate id")
	if err != nil {
		return models.CandidateSpec{}, err
	}
	engineerID, err := optionalID(c.EngineerID, "engineerId")
	if err != nil {
		return models.CandidateSpec{}, err
	}
	return models.CandidateSpec{
		ID:         id,
		EngineerID: engineerID,
		Nombre:     strings.TrimSpace(c.Nombre),
		FotoURL:    c.FotoURL,
		Bio:        c.Bio,
	}, nil
}

func candidateSpecs(in []candidateRequest) ([]models.CandidateSpec, error) {
	if in == nil {
		return nil, nil
	}
	out := make([]models.CandidateSpec, 0, len(in))
	for _, c := range in {
		s, err := c.spec()
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

// input builds a new campaign; votosPorVotante defaults to 1 and habilitada
// to true.
func (c campaignRequest) input() (services.CampaignInput, error) {
	specs, err := candidateSpecs(c.Candidatos)
	if err != nil {
		return services.CampaignInput{}, err
	}
	in := services.CampaignInput{
		Descripcion: c.Descripcion,
		Quota:       1,
		Habilitada:  true,
		Candidatos:  specs,
	}
	if c.Titulo != nil {
		in.Titulo = *c.Titulo
	}
	if c.Quota != nil {
		in.Quota = *c.Quota
	}
	if c.Habilitada != nil {
		in.Habilitada = *c.Habilitada
	}
	if c.IniciaEn != nil {
		in.IniciaEn = *c.IniciaEn
	}
	if c.TerminaEn != nil {
		in.TerminaEn = *c.TerminaEn
	}
	return in, nil
}

func (c campaignRequest) patch() (*models.CampaignPatch, []models.CandidateSpec, error) {
	specs, err := candidateSpecs(c.Candidatos)
	if err != nil {
		return nil, nil, err
	}
	return &models.CampaignPatch{
		Titulo:      c.Titulo,
		Descripcion: c.Descripcion,
		Quota:       c.Quota,
		Habilitada:  c.Habilitada,
		IniciaEn:    c.IniciaEn,
		TerminaEn:   c.TerminaEn,
	}, specs, nil
}
