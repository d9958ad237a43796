// Package votes is the append-only vote ledger. Tallies are always computed
// from stored votes.
package votes

import (
	"context"
	"fmt"

	"github.com/ingenieros-gt/evote/internal/common"
	"github.com/ingenieros-gt/evote/internal/dbx"
	"github.com/ingenieros-gt/evote/internal/server/models"
)

type SQLRepository struct {
	db      dbx.DBTX
	dialect dbx.Dialect
}

func NewSQLRepository(db dbx.DBTX, d dbx.Dialect) *SQLRepository {
	return &SQLRepository{db: dbx.Bind(db, d), dialect: d}
}

func (r *SQLRepository) Insert(ctx context.Context, v *models.Vote) error {
	query := `INSERT INTO votes (campaign_id, candidate_id, voter_id) VALUES (?, ?, ?)`

	id, err := r.dialect.InsertID(ctx, r.db, query, v.CampaignID, v.CandidateID, v.VoterID)
	if err != nil {
		if r.dialect.IsUniqueViolation(err) {
			return common.NewError(common.ErrorConflict, "duplicate vote for this candidate")
		}
		return fmt.Errorf("db error: %w", err)
	}

	v.ID = id
	return nil
}

func (r *SQLRepository) CountUsed(ctx context.Context, campaignID, voterID int64) (int, error) {
	query := `SELECT COUNT(*) FROM votes WHERE campaign_id = ? AND voter_id = ?`

	var n int
	if err := r.db.QueryRowContext(ctx, query, campaignID, voterID).Scan(&n); err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return n, nil
}

func (r *SQLRepository) UsedByCampaign(ctx context.Context, voterID int64) (map[int64]int, error) {
	query := `SELECT campaign_id, COUNT(*) FROM votes WHERE voter_id = ? GROUP BY campaign_id`
	return r.counts(ctx, query, voterID)
}

func (r *SQLRepository) Tally(ctx context.Context, campaignID int64) (map[int64]int, error) {
	query := `SELECT candidate_id, COUNT(*) FROM votes WHERE campaign_id = ? GROUP BY candidate_id`
	return r.counts(ctx, query, campaignID)
}

func (r *SQLRepository) counts(ctx context.Context, query string, arg int64) (map[int64]int, error) {
	rows, err := r.db.QueryContext(ctx, query, arg)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	out := make(map[int64]int)
	for rows.Next() {
		var id int64
		var n int
		if err := rows.Scan(&id, &n); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		out[id] = n
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return out, nil
}

func (r *SQLRepository) DeleteByCampaign(ctx context.Context, campaignID int64) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM votes WHERE campaign_id = ?`, campaignID); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}
