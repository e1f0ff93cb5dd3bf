package middleware

import (
	"context"
	"net"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/Ruscigno/IndexPulse/pkg/errors"
)

// Context key types for logging
type loggingContextKey string

const requestLoggerKey loggingContextKey = "request_logger"

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Logger           *zap.Logger
	SensitiveHeaders []string // Headers to redact in logs
	// SensitiveParams are query parameters whose values are redacted.
	SensitiveParams []string
}

// responseWriter wraps http.ResponseWriter to capture response data
type responseWriter struct {
	http.ResponseWriter
	statusCode int
	size       int
}

func newResponseWriter(w http.ResponseWriter) *responseWriter {
	return &responseWriter{
		ResponseWriter: w,
		statusCode:     http.StatusOK,
	}
}

func (rw *responseWriter) WriteHeader(statusCode int) {
	rw.statusCode = statusCode
	rw.ResponseWriter.WriteHeader(statusCode)
}

func (rw *responseWriter) Write(data []byte) (int, error) {
	size, err := rw.ResponseWriter.Write(data)
	rw.size += size
	return size, err
}

// RequestLogging middleware logs HTTP requests and responses
func RequestLogging(config LoggingConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			requestID := RequestIDFromContext(r.Context())
			wrapped := newResponseWriter(w)

			logRequest(config, r, requestID)
			next.ServeHTTP(wrapped, r)
			logResponse(config, r, wrapped, time.Since(start), requestID)
		})
	}
}

// logRequest logs the incoming HTTP request
func logRequest(config LoggingConfig, r *http.Request, requestID string) {
	fields := []zap.Field{
		zap.String("request_id", requestID),
		zap.String("method", r.Method),
		zap.String("path", r.URL.Path),
		zap.String("query", redactQuery(r, config.SensitiveParams)),
		zap.String("remote_addr", getClientIP(r)),
		zap.String("user_agent", r.UserAgent()),
		zap.Int64("content_length", r.ContentLength),
	}

	headers := make(map[string]string)
	for name, values := range r.Header {
		if len(values) > 0 {
			if isSensitiveHeader(name, config.SensitiveHeaders) {
				headers[name] = "[REDACTED]"
			} else {
				headers[name] = values[0]
			}
		}
	}
	fields = append(fields, zap.Any("headers", headers))

	config.Logger.Info("HTTP request", fields...)
}

// logResponse logs the HTTP response
func logResponse(config LoggingConfig, r *http.Request, rw *responseWriter, duration time.Duration, requestID string) {
	fields := []zap.Field{
		zap.String("request_id", requestID),
		zap.String("method", r.Method),
		zap.String("path", r.URL.Path),
		zap.Int("status_code", rw.statusCode),
		zap.Int("response_size", rw.size),
		zap.Duration("duration", duration),
	}

	if rw.statusCode >= 500 {
		config.Logger.Error("HTTP response", fields...)
	} else if rw.statusCode >= 400 {
		config.Logger.Warn("HTTP response", fields...)
	} else {
		config.Logger.Info("HTTP response", fields...)
	}
}

// StructuredLogging middleware puts a request-scoped logger in the context.
func StructuredLogging(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			requestLogger := logger.With(
				zap.String("request_id", RequestIDFromContext(r.Context())),
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
			)

			ctx := context.WithValue(r.Context(), requestLoggerKey, requestLogger)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// LoggerFromContext returns the request-scoped logger, or fallback.
func LoggerFromContext(ctx context.Context, fallback *zap.Logger) *zap.Logger {
	if l, ok := ctx.Value(requestLoggerKey).(*zap.Logger); ok {
		return l
	}
	return fallback
}

// ErrorLogging middleware recovers panics and answers with a JSON 500.
func ErrorLogging(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					if rec == http.ErrAbortHandler {
						panic(rec)
					}
					logger.Error("HTTP handler panic",
						zap.String("request_id", RequestIDFromContext(r.Context())),
						zap.String("method", r.Method),
						zap.String("path", r.URL.Path),
						zap.String("remote_addr", getClientIP(r)),
						zap.Any("panic", rec),
						zap.Stack("stack"),
					)

					WriteError(w, r, errors.NewAppError(errors.ErrCodeInternal, "Internal server error"))
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}

// isSensitiveHeader checks if a header should be redacted
func isSensitiveHeader(headerName string, sensitiveHeaders []string) bool {
	headerLower := strings.ToLower(headerName)

	defaultSensitive := []string{
		"authorization",
		"cookie",
		"set-cookie",
		"x-access-token",
	}
	for _, sensitive := range append(defaultSensitive, sensitiveHeaders...) {
		if strings.ToLower(sensitive) == headerLower {
			return true
		}
	}
	return false
}

// redactQuery returns the raw query with sensitive values replaced.
func redactQuery(r *http.Request, params []string) string {
	if r.URL.RawQuery == "" || len(params) == 0 {
		return r.URL.RawQuery
	}
	q := r.URL.Query()
	for _, p := range params {
		if q.Has(p) {
			q.Set(p, "[REDACTED]")
		}
	}
	return q.Encode()
}

// getClientIP returns the caller address, honouring proxy headers.
func getClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		for _, ip := range strings.Split(xff, ",") {
			if ip = strings.TrimSpace(ip); net.ParseIP(ip) != nil {
				return ip
			}
		}
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}
