package http

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-kit/kit/transport"
	httptransport "github.com/go-kit/kit/transport/http"
	"go.uber.org/zap"

	"github.com/Ruscigno/IndexPulse/pkg/endpoint"
	"github.com/Ruscigno/IndexPulse/pkg/errors"
	"github.com/Ruscigno/IndexPulse/pkg/metrics"
	"github.com/Ruscigno/IndexPulse/pkg/middleware"
)

// Paths served by the shared handler. Both kite-data paths reach the same endpoint.
const (
	PathVercel  = "/api/kite-data"
	PathNetlify = "/.netlify/functions/kite-data"
	PathHealth  = "/health"
)

// HTTPConfig holds HTTP server configuration
type HTTPConfig struct {
	MaxBodySize    int64
	AllowedOrigins []string
	Logger         *zap.Logger
	Metrics        *metrics.ApplicationMetrics
}

// NewHTTPHandler sets up HTTP handlers for the endpoints with middleware.
func NewHTTPHandler(endpoints endpoint.Endpoints, config HTTPConfig) http.Handler {
	logger := config.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	options := []httptransport.ServerOption{
		httptransport.ServerErrorEncoder(encodeError),
		httptransport.ServerErrorHandler(transport.ErrorHandlerFunc(func(ctx context.Context, err error) {
			fields := []zap.Field{
				zap.String("request_id", middleware.RequestIDFromContext(ctx)),
				zap.Error(err),
			}
			if appErr := errors.GetAppError(err); appErr != nil {
				fields = append(fields, zap.String("error_type", string(appErr.Code)))
				if config.Metrics != nil {
					config.Metrics.RecordError(string(appErr.Code), "http")
				}
			}
			middleware.LoggerFromContext(ctx, logger).Warn("Request failed", fields...)
		})),
	}

	kiteData := httptransport.NewServer(
		endpoints.KiteData,
		decodeKiteDataRequest,
		encodeResponse,
		options...,
	)

	mux := http.NewServeMux()
	mux.Handle(PathVercel, kiteData)
	mux.Handle(PathNetlify, kiteData)
	mux.Handle(PathHealth, httptransport.NewServer(
		endpoints.CheckHealth,
		decodeHealthRequest,
		encodeResponse,
		options...,
	))

	// Apply middleware in reverse order (last applied = first executed)
	var handler http.Handler = mux
	handler = middleware.ErrorLogging(logger)(handler)
	handler = middleware.LimitBody(config.MaxBodySize)(handler)
	handler = middleware.RequestLogging(middleware.LoggingConfig{
		Logger:          logger,
		SensitiveParams: []string{"request_token"},
	})(handler)
	handler = middleware.StructuredLogging(logger)(handler)
	if config.Metrics != nil {
		handler = metrics.MetricsMiddleware(config.Metrics)(handler)
	}
	handler = middleware.CORS(config.AllowedOrigins)(handler)
	handler = middleware.SecurityHeaders()(handler)
	handler = middleware.RequestID()(handler)

	return handler
}

// decodeKiteDataRequest picks up request_token from the query string, a JSON
// body or a form body. An absent token selects quote-fetch mode.
func decodeKiteDataRequest(_ context.Context, r *http.Request) (interface{}, error) {
	if err := checkMethod(r); err != nil {
		return nil, err
	}

	req := endpoint.KiteDataRequest{
		RequestToken: strings.TrimSpace(r.URL.Query().Get("request_token")),
	}
	if req.RequestToken != "" || r.Method != http.MethodPost || r.Body == nil {
		return req, nil
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if stderrors.As(err, &tooLarge) {
			return nil, errors.Newf(errors.ErrCodeRequestTooLarge,
				"Request body too large. Maximum size: %d bytes", tooLarge.Limit)
		}
		return nil, errors.WrapError(err, errors.ErrCodeBadRequest, "Failed to read request body")
	}
	if len(strings.TrimSpace(string(body))) == 0 {
		return req, nil
	}

	// A body that does not parse carries no request_token, so the request
	// falls through to quote-fetch mode.
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	switch mediaType {
	case "application/x-www-form-urlencoded":
		if form, err := url.ParseQuery(string(body)); err == nil {
			req.RequestToken = strings.TrimSpace(form.Get("request_token"))
		}
	default:
		// Clients often omit the content type; anything else is read as JSON.
		var payload endpoint.KiteDataRequest
		if err := json.Unmarshal(body, &payload); err == nil {
			req.RequestToken = strings.TrimSpace(payload.RequestToken)
		}
	}
	return req, nil
}

func decodeHealthRequest(_ context.Context, r *http.Request) (interface{}, error) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		return nil, errors.Newf(errors.ErrCodeMethodNotAllowed, "Method %s not allowed", r.Method)
	}
	return nil, nil
}

func checkMethod(r *http.Request) error {
	switch r.Method {
	case http.MethodGet, http.MethodPost, http.MethodOptions:
		return nil
	default:
		return errors.Newf(errors.ErrCodeMethodNotAllowed, "Method %s not allowed", r.Method)
	}
}

func encodeResponse(_ context.Context, w http.ResponseWriter, response interface{}) error {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	return json.NewEncoder(w).Encode(response)
}

// encodeError writes every failure as the JSON error body. Errors that are not
// an AppError become INTERNAL_ERROR.
func encodeError(ctx context.Context, err error, w http.ResponseWriter) {
	appErr := errors.GetAppError(err)
	if appErr == nil {
		appErr = errors.WrapError(err, errors.ErrCodeInternal, "Internal server error")
	}

	resp := appErr.ToErrorResponse()
	if resp.RequestID == "" {
		resp.RequestID = middleware.RequestIDFromContext(ctx)
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(appErr.HTTPStatus)
	_ = json.NewEncoder(w).Encode(resp)
}
