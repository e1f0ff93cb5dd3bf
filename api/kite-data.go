// Package handler is the Vercel Go function served at /api/kite-data.
package handler

import (
	"net/http"
	"sync"

	"go.uber.org/zap"

	"github.com/Ruscigno/IndexPulse/pkg/app"
	"github.com/Ruscigno/IndexPulse/pkg/config"
	"github.com/Ruscigno/IndexPulse/pkg/errors"
	"github.com/Ruscigno/IndexPulse/pkg/logging"
	"github.com/Ruscigno/IndexPulse/pkg/middleware"
)

var (
	once    sync.Once
	handler http.Handler
)

// build runs on the first invocation of a warm instance.
func build() http.Handler {
	cfg := config.LoadConfig()
	logger := logging.Setup(cfg.Log)

	a, err := app.New(cfg, app.WithLogger(logger))
	if err != nil {
		logger.Error("Failed to initialize service", zap.Error(err))
		initErr := errors.WrapError(err, errors.ErrCodeDatabaseError, "Session store unavailable")
		return middleware.RequestID()(middleware.CORS(cfg.HTTP.AllowedOrigins)(
			http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				middleware.WriteError(w, r, initErr)
			})))
	}
	return a.Handler
}

// Handler is the Vercel entry point.
func Handler(w http.ResponseWriter, r *http.Request) {
	once.Do(func() { handler = build() })
	handler.ServeHTTP(w, r)
}
