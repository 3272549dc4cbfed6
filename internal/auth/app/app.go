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

	"github.com/ledgerline/authd/internal/auth/domain"
	httpapi "github.com/ledgerline/authd/internal/auth/http"
	"github.com/ledgerline/authd/internal/auth/service"
	"github.com/ledgerline/authd/internal/auth/store"
	"github.com/ledgerline/authd/internal/auth/store/drivers/sqlite"
	"github.com/ledgerline/authd/pkg/cryptox"
	"github.com/ledgerline/authd/pkg/jwtx"
	"github.com/ledgerline/authd/pkg/slogx"
)

const (
	// BuildVersion should be set at build time via ldflags. Later problem
	BuildVersion = "v0.1.0"
)

// DefaultScopes are granted on every successful login.
var DefaultScopes = []string{"account:read", "account:write"}

// Application encapsulates the auth service with all its dependencies.
type Application struct {
	cfg    Config
	logger *slog.Logger

	db         store.Store
	keyManager *jwtx.KeyManager

	tokenService    *service.TokenService
	loginService    *service.LoginService
	mfaService      *service.MFAService
	recoveryService *service.RecoveryService
	deviceService   *service.DeviceService
	housekeeper     *service.Housekeeper

	server *http.Server
	router *httpapi.Router

	stopHousekeeping context.CancelFunc
}

// New creates a new Application instance with all dependencies initialized.
func New(cfg Config) (*Application, error) {
	app := &Application{
		cfg: cfg,
		logger: slogx.New(slogx.Config{
			Service: "authd",
			Version: BuildVersion,
			Env:     cfg.Env,
			Level:   cfg.LogLevel,
			Format:  cfg.LogFormat,
		}),
	}

	// Set pepper path for password hashing
	cryptox.SetPepperPath(app.cfg.PepperFile)

	if err := app.initDatabase(); err != nil {
		return nil, err
	}

	// Signing keys are ephemeral: access tokens die with the process, and
	// clients re-authenticate through their stored refresh tokens.
	keyManager, err := jwtx.NewEphemeralKeyManager(jwtx.KeyManagerOptions{
		Issuer:  cfg.Issuer,
		NumKeys: cfg.NumKeys,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize JWT keys: %w", err)
	}
	app.keyManager = keyManager

	app.initServices()
	app.initHTTP()

	return app, nil
}

// Run starts the application and blocks until shutdown is requested.
func (app *Application) Run() error {
	hkCtx, cancel := context.WithCancel(context.Background())
	app.stopHousekeeping = cancel
	go app.housekeeper.Run(hkCtx)

	app.logger.Info("authd starting", "port", app.cfg.Port, "version", BuildVersion)

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
	app.logger.Info("shutting down authd...")

	ctx, cancel := context.WithTimeout(context.Background(), app.cfg.ShutdownGracePeriod)
	defer cancel()

	if err := app.server.Shutdown(ctx); err != nil {
		app.logger.Error("graceful server shutdown failed", "error", err)
		if err := app.server.Close(); err != nil {
			app.logger.Error("error closing server", "error", err)
		}
	}

	if app.stopHousekeeping != nil {
		app.stopHousekeeping()
	}

	if err := app.db.Close(); err != nil {
		app.logger.Error("error closing database", "error", err)
		return err
	}

	app.logger.Info("authd stopped")
	return nil
}

// initDatabase initializes the database and applies migrations.
func (app *Application) initDatabase() error {
	host := fmt.Sprintf("file:%s?_busy_timeout=5000&_journal_mode=WAL", app.cfg.DatabaseFile)
	db, err := sqlite.NewStore(host)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	app.db = db

	if err := db.ApplyMigrations(); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to apply database migrations: %w", err)
	}

	app.logger.Info("database migrations applied successfully")
	return nil
}

// initServices initializes all business logic services.
func (app *Application) initServices() {
	app.tokenService = &service.TokenService{
		Store:      app.db,
		KeyManager: app.keyManager,
		Issuer:     app.cfg.Issuer,
		AccessTTL:  app.cfg.AccessTokenTTL,
		RefreshTTL: app.cfg.RefreshTokenTTL,
	}

	app.recoveryService = &service.RecoveryService{Store: app.db}
	app.deviceService = &service.DeviceService{
		Store: app.db,
		TTL:   app.cfg.DeviceTrustTTL,
	}

	// TODO: replace LogSender with real email/SMS delivery once a provider
	// account exists.
	sender := service.LogSender{}
	app.mfaService = &service.MFAService{
		Store:    app.db,
		Tokens:   app.tokenService,
		Recovery: app.recoveryService,
		Challengers: map[string]service.Challenger{
			domain.MethodTOTP:  service.NewTOTPChallenger(),
			domain.MethodEmail: service.NewCodeChallenger(app.db, sender),
			domain.MethodSMS:   service.NewCodeChallenger(app.db, sender),
		},
		TOTPIssuer: app.cfg.Issuer,
	}

	app.loginService = &service.LoginService{
		Store:         app.db,
		Lockout:       &service.LockoutGuard{Store: app.db},
		Suspicion:     &service.SuspicionDetector{Store: app.db},
		MFA:           app.mfaService,
		Recovery:      app.recoveryService,
		Devices:       app.deviceService,
		Tokens:        app.tokenService,
		PartialTTL:    app.cfg.PartialTTL,
		DefaultScopes: DefaultScopes,
	}

	app.housekeeper = &service.Housekeeper{
		Store:    app.db,
		Interval: app.cfg.HousekeepingInterval,
	}
}

// initHTTP initializes the HTTP router and server.
func (app *Application) initHTTP() {
	router := httpapi.NewRouter(
		app.keyManager.KeySet,
		app.keyManager.Verifier,
		BuildVersion,
		app.db,
		app.logger,
	)

	router.LoginService = app.loginService
	router.TokenService = app.tokenService
	router.MFAService = app.mfaService
	router.RecoveryService = app.recoveryService
	router.DeviceService = app.deviceService
	router.ApplyRoutes()

	app.router = router

	app.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", app.cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 3 * time.Second,
	}
}
