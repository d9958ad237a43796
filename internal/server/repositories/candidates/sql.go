// Package candidates stores people who can appear on a ballot.
package candidates

import (
	"context"
	"database/sql"
	"errors"
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

func (r *SQLRepository) Create(ctx context.Context, c *models.Candidate) (*models.Candidate, error) {
	query := `INSERT INTO candidates (nombre, bio, foto_url, engineer_id) VALUES (?, ?, ?, ?)`

	id, err := r.dialect.InsertID(ctx, r.db, query, c.Nombre, c.Bio, c.FotoURL, c.EngineerID)
	if err != nil {
		if r.dialect.IsUniqueViolation(err) {
			return nil, common.NewError(common.ErrorConflict, "engineer already has a candidate profile")
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	c.ID = id
	return c, nil
}

func (r *SQLRepository) get(ctx context.Context, where string, arg any) (*models.Candidate, error) {
	query := `SELECT id, nombre, bio, foto_url, engineer_id FROM candidates WHERE ` + where

	c := &models.Candidate{}
	err := r.db.QueryRowContext(ctx, query, arg).Scan(&c.ID, &c.Nombre, &c.Bio, &c.FotoURL, &c.EngineerID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return c, nil
}

func (r *SQLRepository) GetByID(ctx context.Context, id int64) (*models.Candidate, error) {
	return r.get(ctx, `id = ?`, id)
}

func (r *SQLRepository) GetByEngineerID(ctx context.Context, engineerID int64) (*models.Candidate, error) {
	return r.get(ctx, `engineer_id = ?`, engineerID)
}

func (r *SQLRepository) SetPhoto(ctx context.Context, id int64, ref string) error {
	res, err := r.db.ExecContext(ctx, `UPDATE candidates SET foto_url = ? WHERE id = ?`, ref, id)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if n == 0 {
		return common.ErrorNotFound
	}
	return nil
}
