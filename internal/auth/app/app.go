package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/halcyonlabs/keywarden/internal/auth/events"
	httpapi "github.com/halcyonlabs/keywarden/internal/auth/http"
	"github.com/halcyonlabs/keywarden/internal/auth/notify"
	"github.com/halcyonlabs/keywarden/internal/auth/service"
	"github.com/halcyonlabs/keywarden/internal/auth/store"
	"github.com/halcyonlabs/keywarden/internal/auth/store/drivers/postgres"
	"github.com/halcyonlabs/keywarden/internal/auth/store/drivers/sqlite"
	"github.com/halcyonlabs/keywarden/pkg/cryptox"
	"github.com/halcyonlabs/keywarden/pkg/jwtx"
	"github.com/halcyonlabs/keywarden/pkg/slogx"
)

const (
	// BuildVersion should be set at build time via ldflags. Later problem
	BuildVersion = "v0.1.0"
)

// Application encapsulates the auth service with all its dependencies.
type Application struct {
	cfg    Config
	logger *slog.Logger

	// Core dependencies
	db     store.Store
	keys   *jwtx.KeySet
	signer jwtx.Signer

	// Services
	authService         *service.AuthService
	passwordService     *service.PasswordService
	pincodeService      *service.PincodeService
	totpService         *service.TOTPService
	apiKeyService       *service.APIKeyService
	sessionService      *service.SessionService
	housekeepingService *service.HousekeepingService

	// HTTP server
	server *http.Server
	router *httpapi.Router
}

// New creates a new Application instance with all dependencies initialized.
func New(cfg Config) (*Application, error) {
	app := &Application{
		cfg: cfg,
		logger: slogx.New(slogx.Config{
			Service: "keywarden",
			Version: BuildVersion,
			Env:     cfg.Env,
			Level:   cfg.LogLevel,
			Format:  cfg.LogFormat,
		}),
	}

	// Set pepper path for secret hashing
	cryptox.SetPepperPath(app.cfg.PepperFile)

	if err := app.initDatabase(); err != nil {
		return nil, err
	}

	// Load the signing key. Failure is fatal: without it the forge cannot
	// issue a single token.
	keys, signer, verifier, err := InitSigningKeys(app.cfg, app.logger)
	if err != nil {
		_ = app.db.Close()
		return nil, fmt.Errorf("failed to initialize signing keys: %w", err)
	}
	app.keys = keys
	app.signer = signer

	app.initServices()
	app.initHTTP(verifier)

	return app, nil
}

// Run starts the application and blocks until shutdown is requested.
func (app *Application) Run() error {
	app.housekeepingService.Start()

	app.logger.Info("keywarden starting", "port", app.cfg.Port, "version", BuildVersion)

	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- app.server.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("server failed: %w", err)
		}
	case sig := <-shutdown:
		app.logger.Info("shutdown signal received", "signal", sig)

		if err := app.Shutdown(); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
	}

	return nil
}

// Shutdown gracefully shuts down the application.
func (app *Application) Shutdown() error {
	app.logger.Info("shutting down keywarden...")

	// Give outstanding requests a deadline for completion
	ctx, cancel := context.WithTimeout(context.Background(), app.cfg.ShutdownGracePeriod)
	defer cancel()

	if err := app.server.Shutdown(ctx); err != nil {
		app.logger.Error("graceful server shutdown failed", "error", err)
		if err := app.server.Close(); err != nil {
			app.logger.Error("error closing server", "error", err)
		}
	}

	app.housekeepingService.Stop()

	if err := app.db.Close(); err != nil {
		app.logger.Error("error closing database", "error", err)
		return err
	}

	app.logger.Info("keywarden stopped")
	return nil
}

// initDatabase opens the configured store driver and applies migrations.
func (app *Application) initDatabase() error {
	var (
		db  store.Store
		err error
	)

	switch app.cfg.DatabaseDriver {
	case "postgres":
		db, err = postgres.NewStore(context.Background(), app.cfg.DatabaseURL)
	case "sqlite":
		fallthrough
	default:
		dsn := fmt.Sprintf("file:%s?_busy_timeout=5000&_journal_mode=WAL", app.cfg.DatabaseFile)
		db, err = sqlite.NewStore(dsn)
	}
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	app.db = db

	if err := db.ApplyMigrations(); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to apply database migrations: %w", err)
	}

	app.logger.Info("database ready", "driver", app.cfg.DatabaseDriver)
	return nil
}

// initServices initializes all business logic services.
func (app *Application) initServices() {
	notifier := &notify.LogNotifier{Logger: app.logger}
	publisher := &events.LogPublisher{Logger: app.logger}

	app.passwordService = service.NewPasswordService(app.db, notifier, publisher)
	app.pincodeService = service.NewPincodeService(app.db, notifier, publisher)
	app.totpService = &service.TOTPService{
		Store:  app.db,
		Events: publisher,
		Issuer: app.cfg.Issuer,
	}
	app.apiKeyService = &service.APIKeyService{Store: app.db, Events: publisher}
	app.sessionService = &service.SessionService{Store: app.db, Events: publisher}

	app.authService = &service.AuthService{
		Store:     app.db,
		Passwords: app.passwordService,
		Pincodes:  app.pincodeService,
		TOTPs:     app.totpService,
		APIKeys:   app.apiKeyService,
		Sessions:  app.sessionService,
		Forge: &service.TokenForge{
			Signer:       app.signer,
			Issuer:       app.cfg.Issuer,
			CoreAudience: app.cfg.CoreAudience,
			AccessTTL:    app.cfg.AccessTokenTTL,
		},
	}

	app.housekeepingService = service.NewHousekeepingService(
		app.db,
		app.logger,
		app.cfg.HousekeepingInterval,
	)
}

// initHTTP initializes the HTTP router and server.
func (app *Application) initHTTP(verifier jwtx.Verifier) {
	router := httpapi.NewRouter(
		app.keys,
		verifier,
		BuildVersion,
		app.db,
		app.logger,
	)

	// Wire services to router
	router.AuthService = app.authService
	router.PasswordService = app.passwordService
	router.PincodeService = app.pincodeService
	router.TOTPService = app.totpService
	router.APIKeyService = app.apiKeyService
	router.SessionService = app.sessionService
	router.ApplyRoutes()

	app.router = router

	app.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", app.cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 3 * time.Second,
	}
}
