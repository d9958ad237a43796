package services

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"strings"
	"unicode/utf8"

	"github.com/ingenieros-gt/evote/internal/common"
	"github.com/ingenieros-gt/evote/internal/dbx"
	"github.com/ingenieros-gt/evote/internal/logging"
	"github.com/ingenieros-gt/evote/internal/server/auth"
	"github.com/ingenieros-gt/evote/internal/server/config"
	"github.com/ingenieros-gt/evote/internal/server/models"
	"github.com/ingenieros-gt/evote/internal/server/repositories/repomanager"
	"github.com/ingenieros-gt/evote/internal/timex"
)

const (
	resetPasswordLength = 12
	searchQueryMax      = 100
	searchLimit         = 20
	diagnosticsSample   = 5
)

// EngineerUpdate is an administrator's partial edit of a roster entry.
type EngineerUpdate struct {
	Nombre   *string
	Email    *string
	Activo   *bool
	Password *string
}

// RosterService manages the roster of eligible engineers.
type RosterService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	bcryptCost  int
	clock       timex.Clock
	logger      logging.Logger
}

// NewRosterService constructs a RosterService.
func NewRosterService(db *sql.DB, m repomanager.RepositoryManager, cfg *config.Config, clock timex.Clock, logger logging.Logger) *RosterService {
	if clock == nil {
		clock = timex.SystemClock
	}
	return &RosterService{db: db, repomanager: m, bcryptCost: cfg.BcryptCost, clock: clock, logger: logger}
}

// Sync upserts records in one transaction and returns how many were applied.
// Records without colegiado or nombre are skipped; any other failure rolls
// the whole batch back.
func (s *RosterService) Sync(ctx context.Context, records []models.RosterRecord) (int, error) {
	count, skipped := 0, 0
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repomanager.Engineers(tx)
		for i := range records {
			rec := records[i]
			if rec.Colegiado == "" || rec.Nombre == "" {
				skipped++
				continue
			}
			if rec.FechaNacimiento != nil {
				f, err := auth.NormalizeDate(*rec.FechaNacimiento, s.clock.Now())
				if err != nil {
					return common.NewError(common.ErrorBadRequest,
						fmt.Sprintf("invalid fechaNacimiento for colegiado %s", rec.Colegiado))
				}
				rec.FechaNacimiento = &f
			}
			if rec.DPI != nil {
				if d := auth.DigitsOnly(*rec.DPI); d != "" {
					rec.DPI = &d
				} else {
					rec.DPI = nil
				}
			}
			if err := repo.Upsert(ctx, &rec); err != nil {
				return err
			}
			count++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	s.logger.Info(ctx, "roster synced", "applied", count, "skipped", skipped)
	return count, nil
}

// ImportFileIfEmpty imports the roster file at path when the roster has no
// entries yet. It reports the number of applied records.
func (s *RosterService) ImportFileIfEmpty(ctx context.Context, path string) (int, error) {
	n, err := s.repomanager.Engineers(s.db).Count(ctx)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		return 0, nil
	}
	return s.ImportFile(ctx, path)
}

// ImportFile upserts the roster file at path. Entries without activo are
// imported as active.
func (s *RosterService) ImportFile(ctx context.Context, path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	records, err := DecodeRoster(f, true)
	if err != nil {
		return 0, err
	}
	return s.Sync(ctx, records)
}

// Promote grants the admin role to colegiado.
func (s *RosterService) Promote(ctx context.Context, colegiado string) error {
	return s.repomanager.Engineers(s.db).SetAdmin(ctx, strings.TrimSpace(colegiado), true)
}

// SetPassword stores a new password for colegiado and activates the entry.
func (s *RosterService) SetPassword(ctx context.Context, colegiado, password string) error {
	eng, err := s.repomanager.Engineers(s.db).GetByColegiado(ctx, strings.TrimSpace(colegiado))
	if err != nil {
		return err
	}
	active := true
	_, err = s.Update(ctx, eng.ID, EngineerUpdate{Password: &password, Activo: &active})
	return err
}

// Update validates and applies an administrator edit. An empty update only
// checks that the engineer exists.
func (s *RosterService) Update(ctx context.Context, id int64, u EngineerUpdate) (*models.Engineer, error) {
	patch := &models.EngineerPatch{Activo: u.Activo}

	if u.Nombre != nil {
		n := strings.TrimSpace(*u.Nombre)
		if utf8.RuneCountInString(n) < 3 {
			return nil, common.NewError(common.ErrorBadRequest, "nombre is too short")
		}
		patch.Nombre = &n
	}
	if u.Email != nil {
		e := strings.TrimSpace(*u.Email)
		if !auth.ValidEmail(e) {
			return nil, common.NewError(common.ErrorBadRequest, "invalid email")
		}
		patch.Email = &e
	}
	if u.Password != nil {
		if err := auth.ValidatePasswordStrength(*u.Password); err != nil {
			return nil, common.NewError(common.ErrorBadRequest, err.Error())
		}
		hash, err := auth.HashPassword(*u.Password, s.bcryptCost)
		if err != nil {
			return nil, common.ErrorInternal
		}
		patch.PasswordHash = &hash
	}

	repo := s.repomanager.Engineers(s.db)
	if !patch.Empty() {
		if err := repo.Patch(ctx, id, patch); err != nil {
			return nil, err
		}
	}
	return repo.GetByID(ctx, id)
}

// ResetPassword replaces the password of engineer id with a random one and
// returns it. The plain value is not stored.
func (s *RosterService) ResetPassword(ctx context.Context, id int64) (string, error) {
	var password string
	for {
		p, err := common.RandomString(resetPasswordLength, common.PasswordAlphabet)
		if err != nil {
			return "", common.ErrorInternal
		}
		// the alphabet can yield a draw without a symbol or digit
		if auth.ValidatePasswordStrength(p) == nil {
			password = p
			break
		}
	}

	hash, err := auth.HashPassword(password, s.bcryptCost)
	if err != nil {
		return "", common.ErrorInternal
	}
	if err := s.repomanager.Engineers(s.db).Patch(ctx, id, &models.EngineerPatch{PasswordHash: &hash}); err != nil {
		return "", err
	}
	return password, nil
}

// List returns roster entries ordered by name, at most 200.
func (s *RosterService) List(ctx context.Context, f models.EngineerFilter) ([]*models.Engineer, error) {
	return s.repomanager.Engineers(s.db).List(ctx, f)
}

// Options lists every active engineer for candidate pickers.
func (s *RosterService) Options(ctx context.Context) ([]*models.EngineerOption, error) {
	return s.repomanager.Engineers(s.db).Options(ctx, "", 0)
}

// Search finds active engineers by name or colegiado. An empty query yields
// an empty list.
func (s *RosterService) Search(ctx context.Context, q string) ([]*models.EngineerOption, error) {
	q = strings.TrimSpace(q)
	if r := []rune(q); len(r) > searchQueryMax {
		q = string(r[:searchQueryMax])
	}
	if q == "" {
		return []*models.EngineerOption{}, nil
	}
	return s.repomanager.Engineers(s.db).Options(ctx, q, searchLimit)
}

func (s *RosterService) Diagnostics(ctx context.Context) (*models.RosterDiagnostics, error) {
	return s.repomanager.Engineers(s.db).Diagnostics(ctx, diagnosticsSample)
}
