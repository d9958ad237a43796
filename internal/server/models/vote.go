package models

import "time"

// Vote is one ballot mark. It is never updated.
type Vote struct {
	ID          int64
	CampaignID  int64
	CandidateID int64
	VoterID     int64
	CreatedAt   time.Time
}

// VoteResult is returned after a successful cast.
type VoteResult struct {
	Votos       map[string]int `json:"votos"`
	Usados      int            `json:"usados"`
	Disponibles int            `json:"disponibles"`
}
