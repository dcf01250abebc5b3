package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/aussiebroadwan/multiman/internal/platform/events"
	httpapi "github.com/aussiebroadwan/multiman/internal/platform/http"
	"github.com/aussiebroadwan/multiman/internal/platform/service"
	"github.com/aussiebroadwan/multiman/internal/platform/store/drivers/sqlite"
	"github.com/aussiebroadwan/multiman/pkg/cryptox"
	"github.com/aussiebroadwan/multiman/pkg/httpx"
	"github.com/aussiebroadwan/multiman/pkg/jwtx"
	"github.com/aussiebroadwan/multiman/pkg/slogx"
)

const (
	// BuildVersion should be set at build time via ldflags.
	BuildVersion = "v0.1.0"

	serviceName = "multiman"
)

// Application owns every long-lived dependency of the platform service.
type Application struct {
	cfg    Config
	logger *slog.Logger

	db        *sqlite.Store
	publisher *events.Publisher // nil without AMQP_URL
	redis     *redis.Client     // nil without REDIS_ADDR

	tokenService    *service.TokenService
	userService     *service.UserService
	resourceService *service.ResourceService
	activityService *service.ActivityService

	server *http.Server
	router *httpapi.Router
}

// New creates an Application with all dependencies initialized. Optional
// dependencies are only dialled when configured.
func New(cfg Config) (*Application, error) {
	app := &Application{
		cfg: cfg,
		logger: slogx.New(slogx.Config{
			Service: serviceName,
			Version: BuildVersion,
			Env:     cfg.Env,
			Level:   cfg.LogLevel,
			Format:  cfg.LogFormat,
		}),
	}

	db, err := OpenStore(cfg)
	if err != nil {
		return nil, err
	}
	app.db = db
	app.logger.Info("database ready", "file", cfg.DatabaseFile)

	if err := app.initServices(); err != nil {
		_ = app.close()
		return nil, err
	}
	if err := app.initEvents(); err != nil {
		_ = app.close()
		return nil, err
	}
	app.initRedis()
	app.initHTTP()

	return app, nil
}

// OpenStore opens the SQLite database and applies pending migrations.
func OpenStore(cfg Config) (*sqlite.Store, error) {
	db, err := sqlite.NewStore(cfg.DatabaseFile)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	if err := db.ApplyMigrations(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to apply database migrations: %w", err)
	}
	return db, nil
}

// NewPasswordHasher loads or creates the pepper named by cfg.
func NewPasswordHasher(cfg Config) (*cryptox.PasswordHasher, error) {
	pepper, err := cryptox.LoadOrCreatePepper(cfg.PepperFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load pepper: %w", err)
	}
	return cryptox.NewPasswordHasher(pepper), nil
}

// Handler returns the root HTTP handler.
func (app *Application) Handler() http.Handler { return app.router }

// Run starts the application and blocks until shutdown is requested
func (app *Application) Run() error {
	app.logger.Info("multiman starting",
		"port", app.cfg.Port,
		"version", BuildVersion,
		"signup", string(app.cfg.SignupPolicy),
	)

	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- app.server.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			_ = app.close()
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

// Shutdown gracefully shuts down the application
func (app *Application) Shutdown() error {
	app.logger.Info("shutting down multiman...")

	ctx, cancel := context.WithTimeout(context.Background(), app.cfg.ShutdownGracePeriod)
	defer cancel()

	if err := app.server.Shutdown(ctx); err != nil {
		app.logger.Error("graceful server shutdown failed", "error", err)
		if err := app.server.Close(); err != nil {
			app.logger.Error("error closing server", "error", err)
		}
	}

	if err := app.close(); err != nil {
		return err
	}

	app.logger.Info("multiman stopped")
	return nil
}

// close releases the broker, cache and database handles.
func (app *Application) close() error {
	if app.publisher != nil {
		if err := app.publisher.Close(); err != nil {
			app.logger.Warn("error closing amqp publisher", "error", err)
		}
	}
	if app.redis != nil {
		if err := app.redis.Close(); err != nil {
			app.logger.Warn("error closing redis client", "error", err)
		}
	}
	if err := app.db.Close(); err != nil {
		app.logger.Error("error closing database", "error", err)
		return err
	}
	return nil
}

func (app *Application) initServices() error {
	hasher, err := NewPasswordHasher(app.cfg)
	if err != nil {
		return err
	}

	secret := []byte(app.cfg.JWTSecret)
	if len(secret) == 0 {
		generated, err := cryptox.RandomSecret(minSecretLength)
		if err != nil {
			return fmt.Errorf("failed to generate JWT secret: %w", err)
		}
		secret = []byte(generated)
		app.logger.Warn("JWT_SECRET not set; using a random secret, tokens will not survive a restart")
	}

	signer, err := jwtx.NewSignerHS256(secret)
	if err != nil {
		return fmt.Errorf("failed to create token signer: %w", err)
	}
	verifier, err := jwtx.NewVerifierHS256(secret, jwtx.VerifyOptions{
		Issuer: app.cfg.Issuer,
		Leeway: 30 * time.Second,
	})
	if err != nil {
		return fmt.Errorf("failed to create token verifier: %w", err)
	}

	app.tokenService = &service.TokenService{
		Signer:   signer,
		Verifier: verifier,
		Issuer:   app.cfg.Issuer,
		TTL:      app.cfg.AccessTokenTTL,
	}
	app.userService = &service.UserService{
		Store:  app.db,
		Hasher: hasher,
		Tokens: app.tokenService,
		Signup: app.cfg.SignupPolicy,
	}
	app.resourceService = &service.ResourceService{Store: app.db}
	app.activityService = &service.ActivityService{Store: app.db, Sink: service.NopSink{}}
	return nil
}

// initEvents connects the activity publisher when AMQP_URL is set.
func (app *Application) initEvents() error {
	if app.cfg.AMQPURL == "" {
		return nil
	}
	pub, err := events.NewPublisher(app.cfg.AMQPURL, app.cfg.AMQPExchange)
	if err != nil {
		return fmt.Errorf("failed to connect activity publisher: %w", err)
	}
	app.publisher = pub
	app.activityService.Sink = pub
	app.logger.Info("activity fan-out enabled", "exchange", app.cfg.AMQPExchange)
	return nil
}

// initRedis connects the shared rate limit store when REDIS_ADDR is set.
// An unreachable server is logged and limits stay in memory.
func (app *Application) initRedis() {
	if app.cfg.RedisAddr == "" {
		return
	}
	client := redis.NewClient(&redis.Options{
		Addr:     app.cfg.RedisAddr,
		Password: app.cfg.RedisPassword,
		DB:       app.cfg.RedisDB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		app.logger.Warn("redis unreachable; using in-memory rate limits", "addr", app.cfg.RedisAddr, "error", err)
		_ = client.Close()
		return
	}
	app.redis = client
	app.logger.Info("redis rate limiting enabled", "addr", app.cfg.RedisAddr)
}

func (app *Application) initHTTP() {
	router := httpapi.NewRouter(
		app.tokenService,
		BuildVersion,
		app.db,
		app.logger,
	)

	router.UserService = app.userService
	router.ResourceService = app.resourceService
	router.ActivityService = app.activityService
	router.Metrics = httpx.NewMetrics(serviceName)

	if app.redis != nil {
		router.RateLimitStore = app.redis
		router.Readiness.Redis = func(ctx context.Context) error {
			return app.redis.Ping(ctx).Err()
		}
	}
	if app.publisher != nil {
		router.Readiness.AMQP = app.publisher.Check
	}
	router.ApplyRoutes()

	app.router = router

	app.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", app.cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 3 * time.Second,
	}
}
