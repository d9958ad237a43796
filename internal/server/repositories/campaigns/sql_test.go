package campaigns

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/ingenieros-gt/evote/internal/common"
	"github.com/ingenieros-gt/evote/internal/dbx"
	"github.com/ingenieros-gt/evote/internal/server/dbtest"
	"github.com/ingenieros-gt/evote/internal/server/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRepoWithMock(t *testing.T) (*SQLRepository, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	return NewSQLRepository(db, dbx.Postgres{}), mock, db
}

func TestDisable_OnlyWhenEnabled(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	q := `^UPDATE campaigns SET habilitada = \$1, updated_at = CURRENT_TIMESTAMP WHERE id = \$2 AND habilitada = \$3$`
	mock.ExpectExec(q).WithArgs(false, int64(4), true).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(q).WithArgs(false, int64(4), true).WillReturnResult(sqlmock.NewResult(0, 0))

	changed, err := repo.Disable(context.Background(), 4)
	require.NoError(t, err)
	assert.True(t, changed)

	changed, err = repo.Disable(context.Background(), 4)
	require.NoError(t, err)
	assert.False(t, changed)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdate_BuildsPartialSet(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	title := "Junta 2026"
	quota := 2
	q := `^UPDATE campaigns SET titulo = \$1, votos_por_votante = \$2, updated_at = CURRENT_TIMESTAMP WHERE id = \$3$`
	mock.ExpectExec(q).WithArgs(title, quota, int64(8)).WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.Update(context.Background(), 8, &models.CampaignPatch{Titulo: &title, Quota: &quota})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDelete_NotFound(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectExec(`^DELETE FROM campaigns WHERE id = \$1$`).WithArgs(int64(9)).WillReturnResult(sqlmock.NewResult(0, 0))

	assert.ErrorIs(t, repo.Delete(context.Background(), 9), common.ErrorNotFound)
}

func TestList_DBError(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`ORDER BY inicia_en DESC`).WillReturnError(errors.New("db down"))

	_, err := repo.List(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "db error")
}

func TestSQLite_CampaignRoundTrip(t *testing.T) {
	db, d := dbtest.OpenSQLite(t)
	repo := NewSQLRepository(db, d)
	ctx := context.Background()

	start := time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC)
	end := start.Add(10 * time.Hour)
	desc := "Elección anual"

	older, err := repo.Create(ctx, &models.Campaign{Titulo: "2024", Quota: 1, Habilitada: false, IniciaEn: start.AddDate(-1, 0, 0), TerminaEn: end.AddDate(-1, 0, 0)})
	require.NoError(t, err)
	newer, err := repo.Create(ctx, &models.Campaign{Titulo: "2025", Descripcion: &desc, Quota: 3, Habilitada: true, IniciaEn: start, TerminaEn: end})
	require.NoError(t, err)

	got, err := repo.GetByID(ctx, newer.ID)
	require.NoError(t, err)
	assert.Equal(t, "2025", got.Titulo)
	require.NotNil(t, got.Descripcion)
	assert.Equal(t, desc, *got.Descripcion)
	assert.Equal(t, 3, got.Quota)
	assert.True(t, got.Habilitada)
	assert.True(t, got.IniciaEn.Equal(start), "start %v", got.IniciaEn)
	assert.True(t, got.TerminaEn.Equal(end), "end %v", got.TerminaEn)

	list, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, newer.ID, list[0].ID)
	assert.Equal(t, older.ID, list[1].ID)

	n, err := repo.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	_, err = repo.GetByID(ctx, 999)
	assert.ErrorIs(t, err, common.ErrorNotFound)
}

func TestSQLite_LinksAndCascade(t *testing.T) {
	db, d := dbtest.OpenSQLite(t)
	repo := NewSQLRepository(db, d)
	ctx := context.Background()

	start := time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC)
	c, err := repo.Create(ctx, &models.Campaign{Titulo: "T", Quota: 1, IniciaEn: start, TerminaEn: start.Add(time.Hour)})
	require.NoError(t, err)

	res := dbtest.MustExec(t, db, `INSERT INTO candidates (nombre, bio) VALUES ('Lista A', 'general')`)
	a, _ := res.LastInsertId()
	res = dbtest.MustExec(t, db, `INSERT INTO candidates (nombre) VALUES ('Lista B')`)
	b, _ := res.LastInsertId()

	override := "campaign bio"
	require.NoError(t, repo.LinkCandidate(ctx, c.ID, a, nil))
	require.NoError(t, repo.LinkCandidate(ctx, c.ID, b, nil))
	// re-linking upserts the bio
	require.NoError(t, repo.LinkCandidate(ctx, c.ID, b, &override))

	list, err := repo.Candidates(ctx, c.ID)
	require.NoError(t, err)
	require.Len(t, list, 2)
	require.NotNil(t, list[0].EffectiveBio())
	assert.Equal(t, "general", *list[0].EffectiveBio())
	require.NotNil(t, list[1].EffectiveBio())
	assert.Equal(t, override, *list[1].EffectiveBio())

	linked, err := repo.IsLinked(ctx, c.ID, a)
	require.NoError(t, err)
	assert.True(t, linked)
	linked, err = repo.IsLinked(ctx, c.ID, 999)
	require.NoError(t, err)
	assert.False(t, linked)

	require.NoError(t, repo.UnlinkAll(ctx, c.ID))
	list, err = repo.Candidates(ctx, c.ID)
	require.NoError(t, err)
	assert.Empty(t, list)

	require.NoError(t, repo.LinkCandidate(ctx, c.ID, a, nil))
	require.NoError(t, repo.Delete(ctx, c.ID))

	var links int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM campaign_candidates`).Scan(&links))
	assert.Zero(t, links)
}
