package models

// Candidate can run in many campaigns, optionally bound to an engineer.
type Candidate struct {
	ID         int64
	Nombre     string
	Bio        *string
	FotoURL    *string
	EngineerID *int64
}

// CampaignCandidate is a candidate as linked to one campaign; Bio is the
// effective biography (campaign override first).
type CampaignCandidate struct {
	Candidate
	CampaignBio *string
}

// EffectiveBio prefers the campaign-specific biography.
func (c *CampaignCandidate) EffectiveBio() *string {
	if c.CampaignBio != nil {
		return c.CampaignBio
	}
	return c.Bio
}

// CandidateView is a candidate inside a CampaignView.
type CandidateView struct {
	ID         int64   `json:"id,string"`
	Nombre     string  `json:"nombre"`
	Bio        *string `json:"bio"`
	FotoURL    *string `json:"fotoUrl,omitempty"`
	EngineerID *int64  `json:"engineerId,omitempty,string"`
}

// CandidateSpec describes a candidate to link on create or update. Exactly
// one way of resolving it applies, in order: ID, EngineerID, Nombre.
type CandidateSpec struct {
	ID         *int64
	EngineerID *int64
	Nombre     string
	FotoURL    *string
	Bio        *string
}

// PhotoUpload is a presigned upload target for a candidate photo.
type PhotoUpload struct {
	CandidateID int64  `json:"candidateId,string"`
	Key         string `json:"key"`
	UploadURL   string `json:"uploadUrl"`
}
