// Package app wires configuration, logging, the session store, the Kite client
// and the HTTP transport into one handler shared by every hosting adapter.
package app

import (
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/Ruscigno/IndexPulse/pkg/config"
	"github.com/Ruscigno/IndexPulse/pkg/database"
	"github.com/Ruscigno/IndexPulse/pkg/endpoint"
	"github.com/Ruscigno/IndexPulse/pkg/kite"
	"github.com/Ruscigno/IndexPulse/pkg/logging"
	"github.com/Ruscigno/IndexPulse/pkg/metrics"
	"github.com/Ruscigno/IndexPulse/pkg/repository"
	"github.com/Ruscigno/IndexPulse/pkg/service"
	httptransport "github.com/Ruscigno/IndexPulse/pkg/transport/http"
)

// Version is stamped at build time with -ldflags "-X ...app.Version=...".
var Version = "dev"

// App is a fully wired service.
type App struct {
	Config  config.Config
	Logger  *zap.Logger
	Metrics *metrics.ApplicationMetrics
	Handler http.Handler

	db *database.DB
}

// Option customises New.
type Option func(*options)

type options struct {
	logger *zap.Logger
	kite   []kite.Option
}

// WithLogger replaces the logger built from cfg.Log.
func WithLogger(logger *zap.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// WithKiteOptions appends options to the Kite client.
func WithKiteOptions(opts ...kite.Option) Option {
	return func(o *options) { o.kite = append(o.kite, opts...) }
}

// New builds the service from cfg. Configuration problems are logged and
// left for each request to report; only a broken session database fails.
func New(cfg config.Config, opts ...Option) (*App, error) {
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	logger := o.logger
	if logger == nil {
		logger = logging.Setup(cfg.Log)
	}

	for _, problem := range cfg.Validate() {
		logger.Warn("Configuration problem", zap.Error(problem))
	}

	a := &App{Config: cfg, Logger: logger}

	sessions, err := a.sessionStore()
	if err != nil {
		return nil, err
	}

	a.Metrics = metrics.NewApplicationMetrics(metrics.NewSimpleMetricsCollector(logger), logger)

	kiteOpts := append([]kite.Option{
		kite.WithBaseURL(cfg.Kite.BaseURL),
		kite.WithTimeout(cfg.Kite.Timeout),
		kite.WithLogger(logger),
	}, o.kite...)
	client := kite.NewClient(cfg.Kite.APIKey, kiteOpts...)

	svc := service.NewService(cfg.Kite, client, sessions, a.Metrics, logger)
	health := service.NewHealthService(cfg, sessions, metrics.NewHealthMetrics(a.Metrics), logger, Version)

	a.Handler = httptransport.NewHTTPHandler(endpoint.MakeEndpoints(svc, health), httptransport.HTTPConfig{
		MaxBodySize:    cfg.HTTP.MaxBodySize,
		AllowedOrigins: cfg.HTTP.AllowedOrigins,
		Logger:         logger,
		Metrics:        a.Metrics,
	})

	logger.Info("Service initialized",
		zap.String("version", Version),
		zap.String("session_store", sessions.Name()),
		zap.Bool("access_token_configured", cfg.Kite.AccessToken != ""),
	)
	return a, nil
}

func (a *App) sessionStore() (repository.SessionRepository, error) {
	if a.Config.Database.URL == "" {
		return repository.NewMemorySessionRepository(a.Logger), nil
	}

	db, err := database.NewDB(a.Config.Database, a.Logger)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to session database: %w", err)
	}
	if err := db.RunMigrations(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to migrate session database: %w", err)
	}
	a.db = db
	return repository.NewSessionRepository(db.DB, a.Logger), nil
}

// Close releases the database pool and flushes the logger.
func (a *App) Close() error {
	var err error
	if a.db != nil {
		err = a.db.Close()
	}
	_ = a.Logger.Sync()
	return err
}
