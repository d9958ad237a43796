package services

import (
	"context"
	"database/sql"
	"errors"
	"strconv"

	"github.com/ingenieros-gt/evote/internal/common"
	"github.com/ingenieros-gt/evote/internal/dbx"
	"github.com/ingenieros-gt/evote/internal/logging"
	"github.com/ingenieros-gt/evote/internal/server/auth"
	"github.com/ingenieros-gt/evote/internal/server/lifecycle"
	"github.com/ingenieros-gt/evote/internal/server/models"
	"github.com/ingenieros-gt/evote/internal/server/repositories/repomanager"
	"github.com/ingenieros-gt/evote/internal/timex"
)

// VoteService admits ballots into the vote ledger.
type VoteService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	clock       timex.Clock
	logger      logging.Logger
}

// NewVoteService constructs a VoteService.
func NewVoteService(db *sql.DB, m repomanager.RepositoryManager, clock timex.Clock, logger logging.Logger) *VoteService {
	if clock == nil {
		clock = timex.SystemClock
	}
	return &VoteService{db: db, repomanager: m, clock: clock, logger: logger}
}

// Cast records one vote of voter for candidateID in campaignID and returns
// the updated tally.
//
// The voter row is locked, the vote inserted and the voter's votes
// re-counted in one transaction; a count above the quota rolls the insert
// back. A repeated (campaign, voter, candidate) is rejected by the unique
// key with a Conflict.
func (s *VoteService) Cast(ctx context.Context, campaignID, candidateID int64, voter *auth.Principal) (*models.VoteResult, error) {
	if voter == nil || !lifecycle.CanVoteRole(voter.Role) {
		return nil, common.NewError(common.ErrorForbidden, "role not allowed to vote")
	}

	campaign, err := s.repomanager.Campaigns(s.db).GetByID(ctx, campaignID)
	if err != nil {
		return nil, notFound(err, "campaign not found")
	}
	state := lifecycle.Evaluate(campaign.Habilitada, campaign.IniciaEn, campaign.TerminaEn, s.clock.Now())
	if state != lifecycle.Active {
		return nil, common.NewError(common.ErrorBadRequest, "campaign not enabled or outside voting window")
	}

	linked, err := s.repomanager.Campaigns(s.db).IsLinked(ctx, campaignID, candidateID)
	if err != nil {
		return nil, err
	}
	if !linked {
		return nil, common.NewError(common.ErrorBadRequest, "invalid candidate")
	}

	var used int
	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		active, err := s.repomanager.Engineers(tx).LockForVote(ctx, voter.ID)
		if err != nil {
			if errors.Is(err, common.ErrorNotFound) {
				return common.NewError(common.ErrorForbidden, "voter is not in the roster")
			}
			return err
		}
		if !active {
			return common.NewError(common.ErrorForbidden, "voter is inactive")
		}

		votes := s.repomanager.Votes(tx)
		if err := votes.Insert(ctx, &models.Vote{CampaignID: campaignID, CandidateID: candidateID, VoterID: voter.ID}); err != nil {
			return err
		}

		used, err = votes.CountUsed(ctx, campaignID, voter.ID)
		if err != nil {
			return err
		}
		if used > campaign.Quota {
			return common.NewError(common.ErrorBadRequest, "no votes remaining")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Debug(ctx, "vote cast", "campaign", campaignID, "candidate", candidateID, "voter", voter.ID)
	return s.result(ctx, campaignID, campaign.Quota, used)
}

// Tally returns the per-candidate vote counts of a campaign.
func (s *VoteService) Tally(ctx context.Context, campaignID int64) (map[string]int, error) {
	tally, err := s.repomanager.Votes(s.db).Tally(ctx, campaignID)
	if err != nil {
		return nil, err
	}
	out := make(map[string]int, len(tally))
	for id, n := range tally {
		out[strconv.FormatInt(id, 10)] = n
	}
	return out, nil
}

func (s *VoteService) result(ctx context.Context, campaignID int64, quota, used int) (*models.VoteResult, error) {
	votos, err := s.Tally(ctx, campaignID)
	if err != nil {
		return nil, err
	}
	return &models.VoteResult{Votos: votos, Usados: used, Disponibles: lifecycle.Remaining(quota, used)}, nil
}
