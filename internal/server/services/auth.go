// Package services contains server-side business logic. This file implements
// AuthService: roster-backed registration, voter and admin login, and
// session token verification.
package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/ingenieros-gt/evote/internal/common"
	"github.com/ingenieros-gt/evote/internal/server/auth"
	"github.com/ingenieros-gt/evote/internal/server/config"
	"github.com/ingenieros-gt/evote/internal/server/models"
	"github.com/ingenieros-gt/evote/internal/server/repositories/repomanager"
	"github.com/ingenieros-gt/evote/internal/timex"
)

const invalidCredentials = "invalid credentials"

// RegisterInput is what a prospective voter submits to open an account.
type RegisterInput struct {
	Colegiado       string
	Nombre          string
	Email           string
	DPI             string
	FechaNacimiento string
	Password        string
}

// LoginInput is a voter login attempt.
type LoginInput struct {
	Colegiado       string
	DPI             string
	FechaNacimiento string
	Password        string
}

// AuthService authenticates engineers against the roster:
// - Register: attach credentials to an active roster entry
// - Login / AdminLogin: verify credentials and mint a session token
// - Verify: validate a bearer token
type AuthService struct {
	db            *sql.DB
	repomanager   repomanager.RepositoryManager
	jwtSecret     []byte
	tokenValidity time.Duration
	bcryptCost    int
	clock         timex.Clock

	dummyOnce sync.Once
	dummyHash string
}

// NewAuthService constructs an AuthService using repositories and server config.
func NewAuthService(db *sql.DB, m repomanager.RepositoryManager, cfg *config.Config, clock timex.Clock) *AuthService {
	if clock == nil {
		clock = timex.SystemClock
	}
	return &AuthService{
		db:            db,
		repomanager:   m,
		jwtSecret:     []byte(cfg.SecretKey),
		tokenValidity: cfg.AccessTokenValidityDuration,
		bcryptCost:    cfg.BcryptCost,
		clock:         clock,
	}
}

// Register validates the submitted data against the roster entry of
// in.Colegiado and stores the credentials. The roster name is kept.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*models.Engineer, error) {
	colegiado := strings.TrimSpace(in.Colegiado)
	nombre := strings.TrimSpace(in.Nombre)
	email := strings.TrimSpace(in.Email)

	switch {
	case !auth.IsDigits(colegiado) || len(colegiado) < 3:
		return nil, common.NewError(common.ErrorBadRequest, "colegiado must have at least 3 digits")
	case len([]rune(nombre)) < 3:
		return nil, common.NewError(common.ErrorBadRequest, "nombre is too short")
	case !auth.ValidEmail(email):
		return nil, common.NewError(common.ErrorBadRequest, "invalid email")
	}

	repo := s.repomanager.Engineers(s.db)

	eng, err := repo.GetByColegiado(ctx, colegiado)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.NewError(common.ErrorForbidden, "colegiado is not authorized to register")
		}
		return nil, fmt.Errorf("error searching roster: %w", err)
	}
	if !eng.Activo {
		return nil, common.NewError(common.ErrorForbidden, "colegiado is inactive, contact the administrator")
	}
	if auth.NormalizeName(eng.Nombre) != auth.NormalizeName(nombre) {
		return nil, common.NewError(common.ErrorForbidden, "nombre does not match the roster")
	}
	if eng.HasCredential() {
		return nil, common.NewError(common.ErrorConflict, "colegiado already has an account")
	}

	dpi := strings.TrimSpace(in.DPI)
	if !auth.ValidDPI(dpi) {
		return nil, common.NewError(common.ErrorBadRequest, "dpi must have 13 digits")
	}
	fecha, err := auth.NormalizeDate(in.FechaNacimiento, s.clock.Now())
	if err != nil {
		return nil, common.NewError(common.ErrorBadRequest, "invalid fechaNacimiento")
	}

	rosterFecha := ""
	if eng.FechaNacimiento != nil {
		rosterFecha, _ = auth.NormalizeDate(*eng.FechaNacimiento, s.clock.Now())
	}
	if eng.DPI == nil || *eng.DPI == "" || rosterFecha == "" {
		return nil, common.NewError(common.ErrorBadRequest, "roster entry lacks dpi or fechaNacimiento, contact the administrator")
	}
	if auth.DigitsOnly(*eng.DPI) != dpi {
		return nil, common.NewError(common.ErrorBadRequest, "dpi does not match the roster")
	}
	if rosterFecha != fecha {
		return nil, common.NewError(common.ErrorBadRequest, "fechaNacimiento does not match the roster")
	}

	if err := auth.ValidatePasswordStrength(in.Password); err != nil {
		return nil, common.NewError(common.ErrorBadRequest, err.Error())
	}

	emailTaken, dpiTaken, err := repo.Taken(ctx, eng.ID, email, dpi)
	if err != nil {
		return nil, fmt.Errorf("error checking uniqueness: %w", err)
	}
	if emailTaken {
		return nil, common.NewError(common.ErrorConflict, "email already registered")
	}
	if dpiTaken {
		return nil, common.NewError(common.ErrorConflict, "dpi already registered")
	}

	hash, err := auth.HashPassword(in.Password, s.bcryptCost)
	if err != nil {
		return nil, common.ErrorInternal
	}

	creds := &models.Credentials{Email: email, DPI: dpi, FechaNacimiento: fecha, PasswordHash: hash}
	if err := repo.SetCredentials(ctx, eng.ID, creds); err != nil {
		return nil, err
	}

	eng.Email, eng.DPI, eng.FechaNacimiento, eng.PasswordHash = &email, &dpi, &fecha, &hash
	eng.Activo = true
	return eng, nil
}

// Login verifies a voter. Every credential failure yields the same
// Unauthorized error; missing fields are a BadRequest.
func (s *AuthService) Login(ctx context.Context, in LoginInput) (string, error) {
	colegiado := strings.TrimSpace(in.Colegiado)
	if colegiado == "" || strings.TrimSpace(in.DPI) == "" || strings.TrimSpace(in.FechaNacimiento) == "" || in.Password == "" {
		return "", common.NewError(common.ErrorBadRequest, "missing required fields")
	}
	fecha, err := auth.NormalizeDate(in.FechaNacimiento, s.clock.Now())
	if err != nil {
		return "", common.NewError(common.ErrorBadRequest, "invalid fechaNacimiento")
	}

	eng, err := s.repomanager.Engineers(s.db).GetByColegiado(ctx, colegiado)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			s.burnHash(in.Password)
			return "", common.NewError(common.ErrorUnauthorized, invalidCredentials)
		}
		return "", common.ErrorInternal
	}

	ok := eng.Activo && eng.HasCredential()
	if eng.DPI == nil || auth.DigitsOnly(*eng.DPI) != auth.DigitsOnly(in.DPI) {
		ok = false
	}
	if eng.FechaNacimiento == nil {
		ok = false
	} else if f, err := auth.NormalizeDate(*eng.FechaNacimiento, s.clock.Now()); err != nil || f != fecha {
		ok = false
	}
	if !s.checkPassword(eng.PasswordHash, in.Password) || !ok {
		return "", common.NewError(common.ErrorUnauthorized, invalidCredentials)
	}

	return s.issue(eng, common.RoleVoter)
}

// AdminLogin verifies an administrator by colegiado or email.
func (s *AuthService) AdminLogin(ctx context.Context, login, password string) (string, error) {
	login = strings.TrimSpace(login)
	if login == "" || password == "" {
		return "", common.NewError(common.ErrorBadRequest, "missing required fields")
	}

	eng, err := s.repomanager.Engineers(s.db).GetByEmailOrColegiado(ctx, login)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			s.burnHash(password)
			return "", common.NewError(common.ErrorUnauthorized, invalidCredentials)
		}
		return "", common.ErrorInternal
	}

	ok := eng.IsAdmin && eng.Activo
	if !s.checkPassword(eng.PasswordHash, password) || !ok {
		return "", common.NewError(common.ErrorUnauthorized, invalidCredentials)
	}

	return s.issue(eng, common.RoleAdmin)
}

// Verify parses a session token.
func (s *AuthService) Verify(token string) (*auth.Principal, error) {
	p, err := auth.ParseToken(token, s.jwtSecret, s.clock.Now())
	if err != nil {
		if errors.Is(err, common.ErrTokenExpired) {
			return nil, common.NewError(common.ErrorUnauthorized, "token expired")
		}
		return nil, common.NewError(common.ErrorUnauthorized, "invalid token")
	}
	return p, nil
}

// RosterStatus reports whether colegiado may register.
func (s *AuthService) RosterStatus(ctx context.Context, colegiado string) (*models.RosterStatus, error) {
	colegiado = strings.TrimSpace(colegiado)
	if !auth.IsDigits(colegiado) {
		return nil, common.NewError(common.ErrorBadRequest, "invalid colegiado")
	}

	eng, err := s.repomanager.Engineers(s.db).GetByColegiado(ctx, colegiado)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return &models.RosterStatus{}, nil
		}
		return nil, err
	}
	return &models.RosterStatus{ExistsInRoster: true, Active: eng.Activo, HasAccount: eng.HasCredential()}, nil
}

// --- helpers below ---

func (s *AuthService) issue(eng *models.Engineer, role string) (string, error) {
	p := auth.Principal{ID: eng.ID, Role: role, Colegiado: eng.Colegiado, Nombre: eng.Nombre}
	if eng.Email != nil {
		p.Email = *eng.Email
	}
	token, err := auth.GenerateToken(p, s.jwtSecret, s.tokenValidity, s.clock.Now())
	if err != nil {
		return "", common.ErrorInternal
	}
	return token, nil
}

func (s *AuthService) checkPassword(hash *string, password string) bool {
	if hash == nil || *hash == "" {
		s.burnHash(password)
		return false
	}
	return auth.CheckPassword(*hash, password)
}

// burnHash spends one bcrypt comparison so unknown accounts take as long as
// known ones.
func (s *AuthService) burnHash(password string) {
	s.dummyOnce.Do(func() {
		s.dummyHash, _ = auth.HashPassword(strconv.FormatInt(s.clock.Now().UnixNano(), 36), s.bcryptCost)
	})
	_ = auth.CheckPassword(s.dummyHash, password)
}
