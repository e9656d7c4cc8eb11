package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"gorm.io/gorm"

	"platecost/internal/config"
	"platecost/internal/db"
	"platecost/internal/db/mock"
	applog "platecost/internal/log"
	"platecost/internal/server"
)

type serverLifecycle interface {
	Start() error
	Stop() error
}

var (
	loadConfigFunc      = config.Load
	setupLoggingFunc    = applog.Setup
	newMockDatabaseFunc = mock.New
	configureDatabase   = db.Configure
	closeDatabaseFunc   = db.Close
	newServerFunc       = func(cfg server.Config) (serverLifecycle, error) {
		return server.New(cfg)
	}
	subscribeShutdownSig = func() (<-chan os.Signal, func()) {
		ch := make(chan os.Signal, 1)
		signal.Notify(ch, syscall.SIGTERM, syscall.SIGINT)
		return ch, func() { signal.Stop(ch) }
	}
)

func main() {
	os.Exit(run(context.Background()))
}

func run(ctx context.Context) int {
	cfg, err := loadConfigFunc()
	if err != nil {
		applog.Error(ctx, "failed to load configuration", "error", err)
		return 1
	}

	if err := setupLoggingFunc(cfg.Logging.Level, cfg.Logging.Format); err != nil {
		applog.Error(ctx, "invalid logging configuration", "level", cfg.Logging.Level, "format", cfg.Logging.Format, "error", err)
		return 1
	}

	database, err := openDatabase(ctx, cfg.Database)
	if err != nil {
		applog.Error(ctx, "failed to configure database", "error", err)
		return 1
	}
	defer func() {
		if err := closeDatabaseFunc(database); err != nil {
			applog.Error(ctx, "failed to close database", "error", err)
		}
	}()

	srv, err := newServerFunc(server.Config{
		Addr:            cfg.Server.Addr,
		Database:        database,
		AllowedOrigins:  cfg.Server.AllowedOrigins,
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
	})
	if err != nil {
		applog.Error(ctx, "failed to build server", "error", err)
		return 1
	}

	shutdown, unsubscribe := subscribeShutdownSig()
	defer unsubscribe()

	errCh := make(chan error, 1)
	go func() {
		applog.Info(ctx, "starting http server", "addr", cfg.Server.Addr)
		errCh <- srv.Start()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			applog.Error(ctx, "server encountered an error", "error", err)
			return 1
		}
		return 0
	case sig := <-shutdown:
		applog.Info(ctx, "shutting down http server", "signal", sig.String())
	case <-ctx.Done():
		applog.Info(ctx, "shutting down http server", "reason", ctx.Err().Error())
	}

	if err := srv.Stop(); err != nil {
		applog.Error(ctx, "graceful shutdown failed", "error", err)
		return 1
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		applog.Error(ctx, "server stopped with error", "error", err)
		return 1
	}
	applog.Info(ctx, "server stopped")
	return 0
}

// openDatabase uses the seeded in-memory kitchen when asked to, or when no URL is set.
func openDatabase(ctx context.Context, cfg config.DatabaseConfig) (*gorm.DB, error) {
	if cfg.UseMock || strings.TrimSpace(cfg.URL) == "" {
		if !cfg.UseMock {
			applog.Warn(ctx, "no database URL configured, falling back to the mock database")
		}
		return newMockDatabaseFunc(ctx)
	}
	applog.Info(ctx, "connecting to database", "driver", cfg.Driver)
	return configureDatabase(cfg)
}
