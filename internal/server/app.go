// Package server initializes and runs the application: it opens the
// database, runs migrations, wires repositories and services, and starts the
// HTTP API with graceful shutdown.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/dmitrijs2005/agenda/internal/logging"
	"github.com/dmitrijs2005/agenda/internal/server/config"
	"github.com/dmitrijs2005/agenda/internal/server/httpapi"
	"github.com/dmitrijs2005/agenda/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/agenda/internal/server/services"
)

type App struct {
	config       *config.Config
	logger       logging.Logger
	db           *sql.DB
	repomanager  repomanager.RepositoryManager
	userService  *services.UserService
	eventService *services.EventService
}

func NewApp(cfg *config.Config) (*App, error) {
	logger := logging.NewSlogLogger(slog.New(slog.NewJSONHandler(os.Stdout, nil)))

	db, err := sql.Open("pgx", cfg.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	rm, err := repomanager.NewPostgresRepositoryManager(db)
	if err != nil {
		return nil, fmt.Errorf("repository init error: %w", err)
	}

	return &App{
		config:       cfg,
		logger:       logger,
		db:           db,
		repomanager:  rm,
		userService:  services.NewUserService(db, rm, cfg),
		eventService: services.NewEventService(db, rm),
	}, nil
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

func (app *App) Run(ctx context.Context) error {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")

	app.initSignalHandler(cancelFunc)

	if err := app.repomanager.RunMigrations(ctx, app.db); err != nil {
		return fmt.Errorf("migration error: %w", err)
	}

	srv := httpapi.NewServer(app.config, app.logger, app.userService, app.eventService)
	if err := srv.Run(ctx); err != nil {
		return err
	}

	if err := app.db.Close(); err != nil {
		app.logger.Error(ctx, "error closing db", "error", err)
	}

	return nil
}
