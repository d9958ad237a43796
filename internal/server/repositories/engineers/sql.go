// Package engineers stores the roster of engineers allowed to vote.
package engineers

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

const columns = `id, colegiado, nombre, activo, email, dpi, fecha_nacimiento, password_hash, is_admin, created_at, updated_at`

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

func scanEngineer(row rowScanner) (*models.Engineer, error) {
	e := &models.Engineer{}
	err := row.Scan(&e.ID, &e.Colegiado, &e.Nombre, &e.Activo, &e.Email, &e.DPI,
		&e.FechaNacimiento, &e.PasswordHash, &e.IsAdmin, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return e, nil
}

func (r *SQLRepository) getOne(ctx context.Context, where string, args ...any) (*models.Engineer, error) {
	query := `SELECT ` + columns + ` FROM engineers WHERE ` + where

	e, err := scanEngineer(r.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return e, nil
}

func (r *SQLRepository) GetByID(ctx context.Context, id int64) (*models.Engineer, error) {
	return r.getOne(ctx, `id = ?`, id)
}

func (r *SQLRepository) GetByColegiado(ctx context.Context, colegiado string) (*models.Engineer, error) {
	return r.getOne(ctx, `colegiado = ?`, colegiado)
}

func (r *SQLRepository) GetByEmailOrColegiado(ctx context.Context, login string) (*models.Engineer, error) {
	return r.getOne(ctx, `colegiado = ? OR LOWER(email) = ? ORDER BY id LIMIT 1`, login, strings.ToLower(login))
}

func (r *SQLRepository) Taken(ctx context.Context, id int64, email, dpi string) (bool, bool, error) {
	query :=
		`SELECT
		   COALESCE(SUM(CASE WHEN LOWER(email) = ? THEN 1 ELSE 0 END), 0),
		   COALESCE(SUM(CASE WHEN dpi = ? THEN 1 ELSE 0 END), 0)
		 FROM engineers
		 WHERE id <> ? AND (LOWER(email) = ? OR dpi = ?)`

	email = strings.ToLower(email)

	var emails, dpis int
	err := r.db.QueryRowContext(ctx, query, email, dpi, id, email, dpi).Scan(&emails, &dpis)
	if err != nil {
		return false, false, fmt.Errorf("db error: %w", err)
	}
	return emails > 0, dpis > 0, nil
}

func (r *SQLRepository) Upsert(ctx context.Context, rec *models.RosterRecord) error {
	query :=
		`INSERT INTO engineers (colegiado, nombre, activo, dpi, fecha_nacimiento, email)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT (colegiado) DO UPDATE SET
		   nombre = excluded.nombre,
		   activo = excluded.activo,
		   dpi = COALESCE(excluded.dpi, engineers.dpi),
		   fecha_nacimiento = COALESCE(excluded.fecha_nacimiento, engineers.fecha_nacimiento),
		   email = COALESCE(excluded.email, engineers.email),
		   updated_at = CURRENT_TIMESTAMP`

	_, err := r.db.ExecContext(ctx, query,
		rec.Colegiado, rec.Nombre, rec.Activo, rec.DPI, rec.FechaNacimiento, rec.Email)
	if err != nil {
		if r.dialect.IsUniqueViolation(err) {
			return common.NewError(common.ErrorConflict,
				fmt.Sprintf("email or dpi of colegiado %s belongs to another engineer", rec.Colegiado))
		}
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *SQLRepository) SetCredentials(ctx context.Context, id int64, c *models.Credentials) error {
	query :=
		`UPDATE engineers
		 SET email = ?, dpi = ?, fecha_nacimiento = ?, password_hash = ?, activo = ?, updated_at = CURRENT_TIMESTAMP
		 WHERE id = ? AND (password_hash IS NULL OR password_hash = '')`

	res, err := r.db.ExecContext(ctx, query, c.Email, c.DPI, c.FechaNacimiento, c.PasswordHash, true, id)
	err = r.checkUpdate(res, err, "email or dpi already registered")
	if !errors.Is(err, common.ErrorNotFound) {
		return err
	}
	// zero rows: either the entry is gone or another registration won
	if _, gerr := r.GetByID(ctx, id); gerr != nil {
		return gerr
	}
	return common.NewError(common.ErrorConflict, "colegiado already has an account")
}

func (r *SQLRepository) SetAdmin(ctx context.Context, colegiado string, admin bool) error {
	query := `UPDATE engineers SET is_admin = ?, updated_at = CURRENT_TIMESTAMP WHERE colegiado = ?`
	res, err := r.db.ExecContext(ctx, query, admin, colegiado)
	return r.checkUpdate(res, err, "")
}

func (r *SQLRepository) Patch(ctx context.Context, id int64, p *models.EngineerPatch) error {
	var sets []string
	var args []any

	if p.Nombre != nil {
		sets = append(sets, "nombre = ?")
		args = append(args, *p.Nombre)
	}
	if p.Email != nil {
		sets = append(sets, "email = ?")
		args = append(args, *p.Email)
	}
	if p.Activo != nil {
		sets = append(sets, "activo = ?")
		args = append(args, *p.Activo)
	}
	if p.PasswordHash != nil {
		sets = append(sets, "password_hash = ?")
		args = append(args, *p.PasswordHash)
	}
	if len(sets) == 0 {
		return nil
	}

	sets = append(sets, "updated_at = CURRENT_TIMESTAMP")
	args = append(args, id)

	query := `UPDATE engineers SET ` + strings.Join(sets, ", ") + ` WHERE id = ?`
	res, err := r.db.ExecContext(ctx, query, args...)
	return r.checkUpdate(res, err, "email already registered")
}

func (r *SQLRepository) checkUpdate(res sql.Result, err error, conflictMsg string) error {
	if err != nil {
		if conflictMsg != "" && r.dialect.IsUniqueViolation(err) {
			return common.NewError(common.ErrorConflict, conflictMsg)
		}
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

func (r *SQLRepository) List(ctx context.Context, f models.EngineerFilter) ([]*models.Engineer, error) {
	var where []string
	var args []any

	if q := strings.TrimSpace(f.Query); q != "" {
		like := "%" + strings.ToLower(q) + "%"
		where = append(where, "(LOWER(nombre) LIKE ? OR colegiado LIKE ? OR LOWER(email) LIKE ?)")
		args = append(args, like, like, like)
	}
	if f.Activo != nil {
		where = append(where, "activo = ?")
		args = append(args, *f.Activo)
	}

	query := `SELECT ` + columns + ` FROM engineers`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	query += ` ORDER BY nombre, id LIMIT ?`
	args = append(args, limitOr(f.Limit, 200))

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var out []*models.Engineer
	for rows.Next() {
		e, err := scanEngineer(rows)
		if err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return out, nil
}

func (r *SQLRepository) Options(ctx context.Context, query string, limit int) ([]*models.EngineerOption, error) {
	q := `SELECT id, colegiado, nombre FROM engineers WHERE activo = ?`
	args := []any{true}

	if query = strings.TrimSpace(query); query != "" {
		like := "%" + strings.ToLower(query) + "%"
		q += ` AND (LOWER(nombre) LIKE ? OR colegiado LIKE ?)`
		args = append(args, like, like)
	}
	q += ` ORDER BY nombre, id`
	if limit > 0 {
		q += ` LIMIT ?`
		args = append(args, limit)
	}

	return r.queryOptions(ctx, q, args...)
}

func (r *SQLRepository) queryOptions(ctx context.Context, query string, args ...any) ([]*models.EngineerOption, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	out := make([]*models.EngineerOption, 0)
	for rows.Next() {
		o := &models.EngineerOption{}
		if err := rows.Scan(&o.ID, &o.Colegiado, &o.Nombre); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		out = append(out, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return out, nil
}

func (r *SQLRepository) Diagnostics(ctx context.Context, sample int) (*models.RosterDiagnostics, error) {
	query :=
		`SELECT COUNT(*),
		   COALESCE(SUM(CASE WHEN activo THEN 1 ELSE 0 END), 0),
		   COALESCE(SUM(CASE WHEN is_admin THEN 1 ELSE 0 END), 0)
		 FROM engineers`

	d := &models.RosterDiagnostics{}
	if err := r.db.QueryRowContext(ctx, query).Scan(&d.Total, &d.Active, &d.Admins); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	s, err := r.queryOptions(ctx, `SELECT id, colegiado, nombre FROM engineers ORDER BY id LIMIT ?`, sample)
	if err != nil {
		return nil, err
	}
	d.Sample = s
	return d, nil
}

func (r *SQLRepository) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM engineers`).Scan(&n); err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return n, nil
}

func (r *SQLRepository) LockForVote(ctx context.Context, id int64) (bool, error) {
	query := `SELECT activo FROM engineers WHERE id = ?` + r.dialect.ForUpdate()

	var active bool
	if err := r.db.QueryRowContext(ctx, query, id).Scan(&active); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, common.ErrorNotFound
		}
		return false, fmt.Errorf("db error: %w", err)
	}
	return active, nil
}

func limitOr(limit, def int) int {
	if limit <= 0 || limit > def {
		return def
	}
	return limit
}
