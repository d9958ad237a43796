package models

import "time"

// Campaign is a time-boxed election.
type Campaign struct {
	ID          int64
	Titulo      string
	Descripcion *string
	Quota       int
	Habilitada  bool
	IniciaEn    time.Time
	TerminaEn   time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// CampaignPatch is a partial update; nil fields are left untouched.
type CampaignPatch struct {
	Titulo      *string
	Descripcion *string
	Quota       *int
	Habilitada  *bool
	IniciaEn    *time.Time
	TerminaEn   *time.Time
}

// Apply returns a copy of c with the patch applied.
func (p *CampaignPatch) Apply(c Campaign) Campaign {
	if p.Titulo != nil {
		c.Titulo = *p.Titulo
	}
	if p.Descripcion != nil {
		c.Descripcion = p.Descripcion
	}
	if p.Quota != nil {
		c.Quota = *p.Quota
	}
	if p.Habilitada != nil {
		c.Habilitada = *p.Habilitada
	}
	if p.IniciaEn != nil {
		c.IniciaEn = *p.IniciaEn
	}
	if p.TerminaEn != nil {
		c.TerminaEn = *p.TerminaEn
	}
	return c
}

// CampaignView is the read model returned to clients.
type CampaignView struct {
	ID          int64            `json:"id,string"`
	Titulo      string           `json:"titulo"`
	Descripcion *string          `json:"descripcion"`
	Habilitada  bool             `json:"habilitada"`
	Estado      string           `json:"estado"`
	IniciaEn    time.Time        `json:"iniciaEn"`
	TerminaEn   time.Time        `json:"terminaEn"`
	Candidatos  []*CandidateView `json:"candidatos"`
	Votos       map[string]int   `json:"votos"`
	Quota       int              `json:"votosPorVotante"`
	Disponibles int              `json:"votosDisponibles"`
}
