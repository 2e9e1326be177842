// Package server initializes and runs the auth backend: it opens the
// database, applies migrations, wires the credential primitives into the
// auth service and serves the HTTP API until the context is cancelled.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/avolkov/uniadmin/internal/logging"
	"github.com/avolkov/uniadmin/internal/server/auth"
	"github.com/avolkov/uniadmin/internal/server/config"
	"github.com/avolkov/uniadmin/internal/server/httpapi"
	"github.com/avolkov/uniadmin/internal/server/repositories/repomanager"
	"github.com/avolkov/uniadmin/internal/server/services"
)

type App struct {
	config *config.Config
	logger logging.Logger
}

func NewApp(cfg *config.Config) *App {
	l := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	return &App{
		config: cfg,
		logger: logging.NewSlogLogger(l),
	}
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
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

	app.initSignalHandler(cancelFunc)

	db, rm, err := repomanager.Open(app.config.DatabaseDriver, app.config.DatabaseDSN)
	if err != nil {
		return fmt.Errorf("db init error: %w", err)
	}
	defer db.Close()

	if err := rm.RunMigrations(ctx, db); err != nil {
		return fmt.Errorf("migration error: %w", err)
	}

	minter, err := auth.NewTokenMinter(app.config.RefreshTokenLength)
	if err != nil {
		return err
	}

	clock := auth.SystemClock{}
	bearer := auth.NewBearerIssuer([]byte(app.config.SecretKey))
	hasher := auth.NewPasswordHasher(app.config.HashParams())
	policy := services.NewSessionPolicy(app.config)

	authService := services.NewAuthService(rm, hasher, bearer, minter, clock, policy, app.logger)
	handler := httpapi.NewHandler(db, authService, bearer, clock, app.logger)
	router := httpapi.NewRouter(handler, httpapi.NewMetrics())

	srv := &http.Server{
		Addr:         app.config.EndpointAddr,
		Handler:      router,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		app.logger.Info(ctx, "starting server", "addr", app.config.EndpointAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown error: %w", err)
	}

	app.logger.Info(ctx, "server stopped")
	return nil
}
