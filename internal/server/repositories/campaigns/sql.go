// Package campaigns stores campaigns and the candidates linked to them.
package campaigns

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/ingenieros-gt/evote/internal/common"
	"github.com/ingenieros-gt/evote/internal/dbx"
	"github.com/ingenieros-gt/evote/internal/server/models"
)

const columns = `id, titulo, descripcion, votos_por_votante, habilitada, inicia_en, termina_en, created_at, updated_at`

type SQLRepository struct {
	db      dbx.DBTX
	dialect dbx.Dialect
}

func NewSQLRepository(db dbx.DBTX, d dbx.Dialect) *SQLRepository {
	return &SQLRepository{db: dbx.Bind(db, d), dialect: d}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCampaign(row rowScanner) (*models.Campaign, error) {
	c := &models.Campaign{}
	err := row.Scan(&c.ID, &c.Titulo, &c.Descripcion, &c.Quota, &c.Habilitada,
		&c.IniciaEn, &c.TerminaEn, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return c, nil
}

func (r *SQLRepository) Create(ctx context.Context, c *models.Campaign) (*models.Campaign, error) {
	query :=
		`INSERT INTO campaigns (titulo, descripcion, votos_por_votante, habilitada, inicia_en, termina_en)
		 VALUES (?, ?, ?, ?, ?, ?)`

	id, err := r.dialect.InsertID(ctx, r.db, query,
		c.Titulo, c.Descripcion, c.Quota, c.Habilitada, c.IniciaEn.UTC(), c.TerminaEn.UTC())
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	c.ID = id
	return c, nil
}

func (r *SQLRepository) GetByID(ctx context.Context, id int64) (*models.Campaign, error) {
	query := `SELECT ` + columns + ` FROM campaigns WHERE id = ?`

	c, err := scanCampaign(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return c, nil
}

func (r *SQLRepository) List(ctx context.Context) ([]*models.Campaign, error) {
	query := `SELECT ` + columns + ` FROM campaigns ORDER BY inicia_en DESC, id DESC`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	out := make([]*models.Campaign, 0)
	for rows.Next() {
		c, err := scanCampaign(rows)
		if err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return out, nil
}

func (r *SQLRepository) Update(ctx context.Context, id int64, p *models.CampaignPatch) error {
	var sets []string
	var args []any

	if p.Titulo != nil {
		sets = append(sets, "titulo = ?")
		args = append(args, *p.Titulo)
	}
	if p.Descripcion != nil {
		sets = append(sets, "descripcion = ?")
		args = append(args, *p.Descripcion)
	}
	if p.Quota != nil {
		sets = append(sets, "votos_por_votante = ?")
		args = append(args, *p.Quota)
	}
	if p.Habilitada != nil {
		sets = append(sets, "habilitada = ?")
		args = append(args, *p.Habilitada)
	}
	if p.IniciaEn != nil {
		sets = append(sets, "inicia_en = ?")
		args = append(args, p.IniciaEn.UTC())
	}
	if p.TerminaEn != nil {
		sets = append(sets, "termina_en = ?")
		args = append(args, p.TerminaEn.UTC())
	}
	sets = append(sets, "updated_at = CURRENT_TIMESTAMP")
	args = append(args, id)

	query := `UPDATE campaigns SET ` + strings.Join(sets, ", ") + ` WHERE id = ?`
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return expectRows(res)
}

func (r *SQLRepository) Disable(ctx context.Context, id int64) (bool, error) {
	query := `UPDATE campaigns SET habilitada = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ? AND habilitada = ?`

	res, err := r.db.ExecContext(ctx, query, false, id, true)
	if err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	return n > 0, nil
}

func (r *SQLRepository) Delete(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM campaigns WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return expectRows(res)
}

func (r *SQLRepository) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM campaigns`).Scan(&n); err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return n, nil
}

func (r *SQLRepository) LinkCandidate(ctx context.Context, campaignID, candidateID int64, bio *string) error {
	query :=
		`INSERT INTO campaign_candidates (campaign_id, candidate_id, bio)
		 VALUES (?, ?, ?)
		 ON CONFLICT (campaign_id, candidate_id) DO UPDATE SET bio = excluded.bio`

	if _, err := r.db.ExecContext(ctx, query, campaignID, candidateID, bio); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *SQLRepository) UnlinkAll(ctx context.Context, campaignID int64) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM campaign_candidates WHERE campaign_id = ?`, campaignID); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *SQLRepository) IsLinked(ctx context.Context, campaignID, candidateID int64) (bool, error) {
	query := `SELECT COUNT(*) FROM campaign_candidates WHERE campaign_id = ? AND candidate_id = ?`

	var n int
	if err := r.db.QueryRowContext(ctx, query, campaignID, candidateID).Scan(&n); err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	return n > 0, nil
}

func (r *SQLRepository) Candidates(ctx context.Context, campaignID int64) ([]*models.CampaignCandidate, error) {
	query :=
		`SELECT c.id, c.nombre, c.bio, c.foto_url, c.engineer_id, cc.bio
		 FROM campaign_candidates cc
		 JOIN candidates c ON c.id = cc.candidate_id
		 WHERE cc.campaign_id = ?
		 ORDER BY c.id`

	rows, err := r.db.QueryContext(ctx, query, campaignID)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	out := make([]*models.CampaignCandidate, 0)
	for rows.Next() {
		cc := &models.CampaignCandidate{}
		if err := rows.Scan(&cc.ID, &cc.Nombre, &cc.Bio, &cc.FotoURL, &cc.EngineerID, &cc.CampaignBio); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		out = append(out, cc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return out, nil
}

func expectRows(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if n == 0 {
		return common.ErrorNotFound
	}
	return nil
}
