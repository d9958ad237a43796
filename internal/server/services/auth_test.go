package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ingenieros-gt/evote/internal/common"
	"github.com/ingenieros-gt/evote/internal/dbx"
	"github.com/ingenieros-gt/evote/internal/server/auth"
	"github.com/ingenieros-gt/evote/internal/server/config"
	"github.com/ingenieros-gt/evote/internal/server/dbtest"
	"github.com/ingenieros-gt/evote/internal/server/models"
	"github.com/ingenieros-gt/evote/internal/server/repositories/engineers"
	"github.com/ingenieros-gt/evote/internal/server/repositories/repomanager"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

const (
	goodPassword = "Secreto#2025"
	dpi1         = "1234567890101"
	fecha1       = "1990-05-17"
)

func validRegistration() RegisterInput {
	return RegisterInput{
		Colegiado:       "12345",
		Nombre:          "José  García",
		Email:           "jose@example.com",
		DPI:             dpi1,
		FechaNacimiento: "17/05/1990",
		Password:        goodPassword,
	}
}

func TestRegisterThenLogin(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	e.addEngineer(t, "12345", "JOSE GARCIA", dpi1, fecha1, true)

	eng, err := e.auth.Register(ctx, validRegistration())
	require.NoError(t, err)
	assert.Equal(t, "JOSE GARCIA", eng.Nombre, "roster name is kept")
	assert.True(t, eng.HasCredential())

	token, err := e.auth.Login(ctx, LoginInput{
		Colegiado:       "12345",
		DPI:             "1234 56789 0101",
		FechaNacimiento: fecha1,
		Password:        goodPassword,
	})
	require.NoError(t, err)

	p, err := e.auth.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, eng.ID, p.ID)
	assert.Equal(t, common.RoleVoter, p.Role)
	assert.Equal(t, "12345", p.Colegiado)
	assert.Equal(t, "jose@example.com", p.Email)

	status, err := e.auth.RosterStatus(ctx, "12345")
	require.NoError(t, err)
	assert.Equal(t, models.RosterStatus{ExistsInRoster: true, Active: true, HasAccount: true}, *status)
}

func TestRegister_Rejections(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	e.addEngineer(t, "12345", "JOSE GARCIA", dpi1, fecha1, true)
	e.addEngineer(t, "22222", "ANA LOPEZ", "2222222222222", fecha1, false)
	e.addEngineer(t, "33333", "LUIS PEREZ", "", "", true)
	e.addEngineer(t, "44444", "MARIA RUIZ", "4444444444444", fecha1, true)

	_, err := e.auth.Register(ctx, RegisterInput{
		Colegiado: "44444", Nombre: "Maria Ruiz", Email: "taken@example.com",
		DPI: "4444444444444", FechaNacimiento: fecha1, Password: goodPassword,
	})
	require.NoError(t, err)

	tests := []struct {
		name   string
		mutate func(in *RegisterInput)
		kind   error
	}{
		{"colegiado not digits", func(in *RegisterInput) { in.Colegiado = "12a45" }, common.ErrorBadRequest},
		{"colegiado too short", func(in *RegisterInput) { in.Colegiado = "12" }, common.ErrorBadRequest},
		{"nombre too short", func(in *RegisterInput) { in.Nombre = "Jo" }, common.ErrorBadRequest},
		{"invalid email", func(in *RegisterInput) { in.Email = "not-an-email" }, common.ErrorBadRequest},
		{"not in roster", func(in *RegisterInput) { in.Colegiado = "99999" }, common.ErrorForbidden},
		{"inactive", func(in *RegisterInput) { in.Colegiado, in.Nombre, in.DPI = "22222", "Ana Lopez", "2222222222222" }, common.ErrorForbidden},
		{"name mismatch", func(in *RegisterInput) { in.Nombre = "Juan Garcia" }, common.ErrorForbidden},
		{"already registered", func(in *RegisterInput) {
			in.Colegiado, in.Nombre, in.DPI, in.Email = "44444", "Maria Ruiz", "4444444444444", "other@example.com"
		}, common.ErrorConflict},
		{"dpi wrong length", func(in *RegisterInput) { in.DPI = "123" }, common.ErrorBadRequest},
		{"unparseable date", func(in *RegisterInput) { in.FechaNacimiento = "yesterday" }, common.ErrorBadRequest},
		{"roster lacks dpi", func(in *RegisterInput) { in.Colegiado, in.Nombre = "33333", "Luis Perez" }, common.ErrorBadRequest},
		{"dpi mismatch", func(in *RegisterInput) { in.DPI = "9999999999999" }, common.ErrorBadRequest},
		{"date mismatch", func(in *RegisterInput) { in.FechaNacimiento = "1990-05-18" }, common.ErrorBadRequest},
		{"weak password", func(in *RegisterInput) { in.Password = "password" }, common.ErrorBadRequest},
		{"email held by another", func(in *RegisterInput) { in.Email = "taken@example.com" }, common.ErrorConflict},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := validRegistration()
			tt.mutate(&in)
			_, err := e.auth.Register(ctx, in)
			requireKind(t, err, tt.kind)
		})
	}

	eng, err := e.rm.Engineers(e.db).GetByColegiado(ctx, "12345")
	require.NoError(t, err)
	assert.False(t, eng.HasCredential(), "rejected registrations leave no credential")
}

func TestLogin_UniformFailure(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	e.addEngineer(t, "12345", "JOSE GARCIA", dpi1, fecha1, true)
	_, err := e.auth.Register(ctx, validRegistration())
	require.NoError(t, err)

	e.addEngineer(t, "55555", "SIN CUENTA", "5555555555555", fecha1, true)

	e.addEngineer(t, "66666", "ANA INACTIVA", "6666666666666", fecha1, true)
	_, err = e.auth.Register(ctx, RegisterInput{
		Colegiado: "66666", Nombre: "Ana Inactiva", Email: "ana@example.com",
		DPI: "6666666666666", FechaNacimiento: fecha1, Password: goodPassword,
	})
	require.NoError(t, err)
	e.addEngineer(t, "66666", "ANA INACTIVA", "", "", false)

	ok := LoginInput{Colegiado: "12345", DPI: dpi1, FechaNacimiento: fecha1, Password: goodPassword}
	tests := []struct {
		name   string
		mutate func(in *LoginInput)
	}{
		{"unknown colegiado", func(in *LoginInput) { in.Colegiado = "99999" }},
		{"wrong dpi", func(in *LoginInput) { in.DPI = "1234567890102" }},
		{"wrong birthdate", func(in *LoginInput) { in.FechaNacimiento = "1991-05-17" }},
		{"wrong password", func(in *LoginInput) { in.Password = "Otro#Secreto1" }},
		{"no credential", func(in *LoginInput) { in.Colegiado, in.DPI = "55555", "5555555555555" }},
		{"inactive", func(in *LoginInput) { in.Colegiado, in.DPI = "66666", "6666666666666" }},
	}

	var messages []string
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := ok
			tt.mutate(&in)
			_, err := e.auth.Login(ctx, in)
			requireKind(t, err, common.ErrorUnauthorized)
			messages = append(messages, common.Message(err))
		})
	}
	for _, m := range messages {
		assert.Equal(t, "invalid credentials", m)
	}

	_, err = e.auth.Login(ctx, ok)
	require.NoError(t, err)
}

func TestLogin_MissingFieldsAndBadDate(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	_, err := e.auth.Login(ctx, LoginInput{Colegiado: "1", DPI: "1", Password: "x"})
	requireKind(t, err, common.ErrorBadRequest)

	_, err = e.auth.Login(ctx, LoginInput{Colegiado: "1", DPI: "1", FechaNacimiento: "31/02/1990", Password: "x"})
	requireKind(t, err, common.ErrorBadRequest)
}

func TestAdminLogin(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	e.addEngineer(t, "12345", "JOSE GARCIA", dpi1, fecha1, true)
	_, err := e.auth.Register(ctx, validRegistration())
	require.NoError(t, err)

	_, err = e.auth.AdminLogin(ctx, "12345", goodPassword)
	requireKind(t, err, common.ErrorUnauthorized)

	require.NoError(t, e.roster.Promote(ctx, "12345"))

	for _, login := range []string{"12345", "jose@example.com"} {
		token, err := e.auth.AdminLogin(ctx, login, goodPassword)
		require.NoError(t, err)
		p, err := e.auth.Verify(token)
		require.NoError(t, err)
		assert.Equal(t, common.RoleAdmin, p.Role)
	}

	_, err = e.auth.AdminLogin(ctx, "12345", "Wrong#Pass1")
	requireKind(t, err, common.ErrorUnauthorized)
	_, err = e.auth.AdminLogin(ctx, "nobody@example.com", goodPassword)
	requireKind(t, err, common.ErrorUnauthorized)
	_, err = e.auth.AdminLogin(ctx, "", goodPassword)
	requireKind(t, err, common.ErrorBadRequest)

	e.addEngineer(t, "12345", "JOSE GARCIA", "", "", false)
	_, err = e.auth.AdminLogin(ctx, "12345", goodPassword)
	requireKind(t, err, common.ErrorUnauthorized)
}

func TestVerify(t *testing.T) {
	e := newEnv(t)

	_, err := e.auth.Verify("garbage")
	requireKind(t, err, common.ErrorUnauthorized)

	expired, err := auth.GenerateToken(auth.Principal{ID: 1, Role: common.RoleVoter}, []byte(e.cfg.SecretKey), time.Minute, t0.Add(-time.Hour))
	require.NoError(t, err)
	_, err = e.auth.Verify(expired)
	requireKind(t, err, common.ErrorUnauthorized)
	assert.Equal(t, "token expired", common.Message(err))
}

func TestRosterStatus(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	e.addEngineer(t, "777", "PEDRO", "", "", false)

	_, err := e.auth.RosterStatus(ctx, "abc")
	requireKind(t, err, common.ErrorBadRequest)

	s, err := e.auth.RosterStatus(ctx, "888")
	require.NoError(t, err)
	assert.Equal(t, models.RosterStatus{}, *s)

	s, err = e.auth.RosterStatus(ctx, "777")
	require.NoError(t, err)
	assert.Equal(t, models.RosterStatus{ExistsInRoster: true}, *s)
}

// --- fakes for error paths ---

type errBoom struct{}

func (errBoom) Error() string { return "boom" }

type fakeEngineers struct {
	engineers.Repository
	getErr error
}

func (f *fakeEngineers) GetByColegiado(context.Context, string) (*models.Engineer, error) {
	return nil, f.getErr
}

func (f *fakeEngineers) GetByEmailOrColegiado(context.Context, string) (*models.Engineer, error) {
	return nil, f.getErr
}

// fakeRepoManager serves real repositories except for Engineers.
type fakeRepoManager struct {
	*repomanager.SQLRepositoryManager
	eng engineers.Repository
}

func (m *fakeRepoManager) Engineers(dbx.DBTX) engineers.Repository { return m.eng }

func TestAuth_RepositoryErrorsAreInternal(t *testing.T) {
	db, d := dbtest.OpenSQLite(t)
	rm := &fakeRepoManager{SQLRepositoryManager: repomanager.NewSQLRepositoryManager(d), eng: &fakeEngineers{getErr: errBoom{}}}
	s := NewAuthService(db, rm, &config.Config{SecretKey: "k", BcryptCost: bcrypt.MinCost}, nil)
	ctx := context.Background()

	_, err := s.Login(ctx, LoginInput{Colegiado: "1", DPI: "1", FechaNacimiento: fecha1, Password: "x"})
	assert.True(t, errors.Is(err, common.ErrorInternal), "got %v", err)

	_, err = s.AdminLogin(ctx, "1", "x")
	assert.True(t, errors.Is(err, common.ErrorInternal), "got %v", err)

	_, err = s.Register(ctx, validRegistration())
	assert.ErrorContains(t, err, "boom")
}
