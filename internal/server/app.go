// Package server wires the messaging core together: it picks the logger,
// storage backend and profile cache from the configuration, runs migrations,
// and serves the HTTP request layer until a signal arrives.
package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/dmitrijs2005/gophmsg/internal/dbx"
	"github.com/dmitrijs2005/gophmsg/internal/logging"
	"github.com/dmitrijs2005/gophmsg/internal/server/cache"
	"github.com/dmitrijs2005/gophmsg/internal/server/config"
	"github.com/dmitrijs2005/gophmsg/internal/server/httpapi"
	"github.com/dmitrijs2005/gophmsg/internal/server/repositories/memory"
	"github.com/dmitrijs2005/gophmsg/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/gophmsg/internal/server/services"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

type App struct {
	config  *config.Config
	logger  logging.Logger
	server  *httpapi.Server
	closers []func() error
}

func newLogger(backend string) (logging.Logger, func() error, error) {
	switch backend {
	case config.LogBackendSlog, "":
		return logging.NewJSONSlogLogger(os.Stdout), func() error { return nil }, nil
	case config.LogBackendZap:
		z, err := zap.NewProduction()
		if err != nil {
			return nil, nil, err
		}
		l := logging.NewZapLogger(z)
		return l, func() error { _ = l.Sync(); return nil }, nil
	}
	return nil, nil, fmt.Errorf("unknown log backend %q", backend)
}

// openStorage returns the transactor and repository manager for the
// configured backend.
func (app *App) openStorage(ctx context.Context) (dbx.Transactor, repomanager.RepositoryManager, error) {
	switch app.config.StorageBackend {
	case config.BackendMemory:
		app.logger.Warn(ctx, "Using in-memory storage, data is lost on exit")
		store := memory.NewStore()
		return store, store, nil

	case config.BackendPostgres:
		db, err := sql.Open("pgx", app.config.DatabaseDSN)
		if err != nil {
			return nil, nil, fmt.Errorf("db open error: %w", err)
		}
		app.closers = append(app.closers, db.Close)

		if err := db.PingContext(ctx); err != nil {
			return nil, nil, fmt.Errorf("db ping error: %w", err)
		}

		rm := repomanager.NewPostgresRepositoryManager()
		if err := rm.RunMigrations(ctx, db); err != nil {
			return nil, nil, fmt.Errorf("migrations error: %w", err)
		}
		return dbx.NewSQLTransactor(db, &sql.TxOptions{Isolation: sql.LevelReadCommitted}), rm, nil
	}
	return nil, nil, fmt.Errorf("unknown storage backend %q", app.config.StorageBackend)
}

func (app *App) openProfileCache(ctx context.Context) (cache.ProfileCache, error) {
	if app.config.RedisAddr == "" {
		return cache.Nop{}, nil
	}
	rdb, err := cache.Dial(ctx, app.config.RedisAddr)
	if err != nil {
		return nil, err
	}
	app.closers = append(app.closers, rdb.Close)
	app.logger.Info(ctx, "Profile cache enabled", "redis", app.config.RedisAddr, "ttl", app.config.ProfileCacheTTL)
	return cache.NewRedisProfileCache(rdb, app.config.ProfileCacheTTL), nil
}

func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	logger, syncLog, err := newLogger(c.LogBackend)
	if err != nil {
		return nil, err
	}
	app := &App{config: c, logger: logger, closers: []func() error{syncLog}}

	tx, rm, err := app.openStorage(ctx)
	if err != nil {
		_ = app.Close()
		return nil, err
	}
	profiles, err := app.openProfileCache(ctx)
	if err != nil {
		_ = app.Close()
		return nil, err
	}

	creds := services.NewCredentialService(tx, rm, profiles, c.TokenHashCost, logger)
	groups := services.NewGroupService(tx, rm, logger)
	mailbox := services.NewMailboxService(tx, rm, logger)
	messaging, err := services.NewMessagingService(tx, creds, groups, mailbox, logger)
	if err != nil {
		_ = app.Close()
		return nil, err
	}

	app.server = httpapi.NewServer(c.EndpointAddrHTTP, logger, messaging, c.ShutdownTimeout)
	return app, nil
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

// Run serves until ctx is canceled or a termination signal arrives, then
// releases every resource the app opened.
func (app *App) Run(ctx context.Context) error {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...", "storage", app.config.StorageBackend)
	app.initSignalHandler(cancelFunc)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return app.server.Run(gctx)
	})

	err := g.Wait()
	if err != nil {
		app.logger.Error(ctx, "server stopped", "error", err)
	}
	app.logger.Info(ctx, "App stopped")
	return errors.Join(err, app.Close())
}

// Close releases resources in reverse order of acquisition.
func (app *App) Close() error {
	var errs []error
	for i := len(app.closers) - 1; i >= 0; i-- {
		if err := app.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	app.closers = nil
	return errors.Join(errs...)
}
