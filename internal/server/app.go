// Package server wires the voting service together: it opens the database,
// applies migrations, seeds bootstrap data and runs the HTTP API next to the
// gRPC health endpoint until a termination signal arrives.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/ingenieros-gt/evote/internal/dbx"
	"github.com/ingenieros-gt/evote/internal/logging"
	"github.com/ingenieros-gt/evote/internal/server/config"
	"github.com/ingenieros-gt/evote/internal/server/photos"
	"github.com/ingenieros-gt/evote/internal/server/repositories/repomanager"
	"github.com/ingenieros-gt/evote/internal/server/rest"
	"github.com/ingenieros-gt/evote/internal/server/services"
	"github.com/ingenieros-gt/evote/internal/timex"

	gs "github.com/ingenieros-gt/evote/internal/server/grpc"
)

type App struct {
	config          *config.Config
	logger          logging.Logger
	db              *sql.DB
	authService     *services.AuthService
	rosterService   *services.RosterService
	campaignService *services.CampaignService
	voteService     *services.VoteService
}

func NewApp(ctx context.Context, c *config.Config) (*App, error) {

	logger := logging.NewJSONLogger(os.Stdout, c.LogLevel)

	db, dialect, err := dbx.Open(c.DatabaseDriver, c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	rm := repomanager.NewSQLRepositoryManager(dialect)
	if err := rm.RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("db migrations error: %w", err)
	}

	clock := timex.SystemClock

	return &App{
		config:          c,
		logger:          logger,
		db:              db,
		authService:     services.NewAuthService(db, rm, c, clock),
		rosterService:   services.NewRosterService(db, rm, c, clock, logger.With("module", "roster")),
		campaignService: services.NewCampaignService(db, rm, photos.New(c.Photos()), clock, logger.With("module", "campaigns")),
		voteService:     services.NewVoteService(db, rm, clock, logger.With("module", "votes")),
	}, nil
}

// seed imports the bootstrap roster and the demo campaign. Failures are
// logged and startup continues.
func (app *App) seed(ctx context.Context) {
	if app.config.SeedFile != "" {
		n, err := app.rosterService.ImportFileIfEmpty(ctx, app.config.SeedFile)
		if err != nil {
			app.logger.Error(ctx, "roster seed failed", "file", app.config.SeedFile, "error", err)
		} else if n > 0 {
			app.logger.Info(ctx, "roster seeded", "file", app.config.SeedFile, "count", n)
		}
	}

	if app.config.SeedDemoCampaign {
		created, err := app.campaignService.SeedDemo(ctx)
		if err != nil {
			app.logger.Error(ctx, "demo campaign seed failed", "error", err)
		} else if created {
			app.logger.Info(ctx, "demo campaign created")
		}
	}
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	// Channel to catch OS signals.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) startHTTPServer(ctx context.Context, cancelFunc context.CancelFunc) {
	h := rest.NewHandler(app.authService, app.rosterService, app.campaignService, app.voteService,
		app.logger.With("module", "rest"))

	s := rest.NewHTTPServer(app.config.EndpointAddrHTTP, h, app.logger)
	if err := s.Run(ctx); err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

func (app *App) startGRPCServer(ctx context.Context, cancelFunc context.CancelFunc) {
	s := gs.NewGRPCServer(app.config.EndpointAddrGRPC, app.logger, app.db)
	if err := s.Run(ctx); err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

func (app *App) Run(ctx context.Context) {

	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...", "db", app.config.DatabaseDriver)

	app.initSignalHandler(cancelFunc)

	app.seed(ctx)

	var wg sync.WaitGroup

	wg.Add(2)
	go func() {
		defer wg.Done()
		app.startHTTPServer(ctx, cancelFunc)
	}()
	go func() {
		defer wg.Done()
		app.startGRPCServer(ctx, cancelFunc)
	}()

	wg.Wait()

	if err := app.db.Close(); err != nil {
		app.logger.Error(ctx, "db close", "error", err)
	}
	app.logger.Info(ctx, "App stopped")
}
