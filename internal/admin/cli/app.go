package cli

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"os"

	"github.com/ingenieros-gt/evote/internal/dbx"
	"github.com/ingenieros-gt/evote/internal/logging"
	"github.com/ingenieros-gt/evote/internal/netx"
	"github.com/ingenieros-gt/evote/internal/server/config"
	"github.com/ingenieros-gt/evote/internal/server/models"
	"github.com/ingenieros-gt/evote/internal/server/photos"
	"github.com/ingenieros-gt/evote/internal/server/repositories/repomanager"
	"github.com/ingenieros-gt/evote/internal/server/services"
	"github.com/ingenieros-gt/evote/internal/timex"
)

// Campaigns is the part of services.CampaignService the commands need.
type Campaigns interface {
	PresignPhoto(ctx context.Context, candidateID int64) (*models.PhotoUpload, error)
}

// Roster is the part of services.RosterService the commands need.
type Roster interface {
	ImportFile(ctx context.Context, path string) (int, error)
	Promote(ctx context.Context, colegiado string) error
	SetPassword(ctx context.Context, colegiado, password string) error
}

type App struct {
	roster    Roster
	campaigns Campaigns
	upload    func(ctx context.Context, url string, data []byte, contentType string) error
	out       io.Writer
	db        *sql.DB
}

func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	db, dialect, err := dbx.Open(c.DatabaseDriver, c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	rm := repomanager.NewSQLRepositoryManager(dialect)
	if err := rm.RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("db migrations error: %w", err)
	}

	logger := logging.NewJSONLogger(os.Stderr, c.LogLevel).With("module", "evote-admin")
	rs := services.NewRosterService(db, rm, c, timex.SystemClock, logger)
	cs := services.NewCampaignService(db, rm, photos.New(c.Photos()), timex.SystemClock, logger)

	return &App{
		roster:    rs,
		campaigns: cs,
		upload:    netx.UploadPresigned,
		out:       os.Stdout,
		db:        db,
	}, nil
}

func (a *App) Close() error {
	if a.db == nil {
		return nil
	}
	return a.db.Close()
}
