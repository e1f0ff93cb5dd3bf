package middleware

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/Ruscigno/IndexPulse/pkg/errors"
)

var okHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	_, _ = w.Write([]byte("ok"))
})

func TestCORS_PreflightShortCircuits(t *testing.T) {
	called := false
	h := CORS([]string{"*"})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodOptions, "/api/kite-data", nil))

	assert.False(t, called)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Body.String())
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "GET, POST, OPTIONS", rec.Header().Get("Access-Control-Allow-Methods"))
	assert.Equal(t, "Content-Type, Authorization", rec.Header().Get("Access-Control-Allow-Headers"))
}

func TestCORS_AllowList(t *testing.T) {
	h := CORS([]string{"https://dash.example"})(okHandler)

	req := httptest.NewRequest(http.MethodGet, "/api/kite-data", nil)
	req.Header.Set("Origin", "https://dash.example")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, "https://dash.example", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "Origin", rec.Header().Get("Vary"))

	req = httptest.NewRequest(http.MethodGet, "/api/kite-data", nil)
	req.Header.Set("Origin", "https://evil.example")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "ok", rec.Body.String())
}

func TestRequestID(t *testing.T) {
	var seen string
	h := RequestID()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = RequestIDFromContext(r.Context())
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	_, err := uuid.Parse(seen)
	require.NoError(t, err)
	assert.Equal(t, seen, rec.Header().Get("X-Request-ID"))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-ID", "upstream-1")
	h.ServeHTTP(httptest.NewRecorder(), req)
	assert.Equal(t, "upstream-1", seen)
}

func TestLimitBody(t *testing.T) {
	h := RequestID()(LimitBody(8)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, err := io.ReadAll(r.Body); err != nil {
			WriteError(w, r, errors.NewAppError(errors.ErrCodeRequestTooLarge, "too large"))
			return
		}
		w.WriteHeader(http.StatusNoContent)
	})))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"request_token":"abcdef"}`)))
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)

	var body errors.ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, errors.ErrCodeRequestTooLarge, body.ErrorType)
	assert.Equal(t, "error", body.Status)
	assert.NotEmpty(t, body.RequestID)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{}`)))
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestErrorLogging_RecoversPanic(t *testing.T) {
	core, logs := observer.New(zap.ErrorLevel)
	h := ErrorLogging(zap.New(core))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/kite-data", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	var body errors.ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, errors.ErrCodeInternal, body.ErrorType)
	assert.Equal(t, 1, logs.FilterMessage("HTTP handler panic").Len())
}

func TestRequestLogging_RedactsSecrets(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	h := RequestLogging(LoggingConfig{
		Logger:          zap.New(core),
		SensitiveParams: []string{"request_token"},
	})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/kite-data?request_token=secret123", nil)
	req.Header.Set("Authorization", "token k:t")
	h.ServeHTTP(httptest.NewRecorder(), req)

	entries := logs.All()
	require.Len(t, entries, 2)
	reqFields := entries[0].ContextMap()
	assert.NotContains(t, reqFields["query"], "secret123")
	assert.Equal(t, "[REDACTED]", reqFields["headers"].(map[string]string)["Authorization"])
	assert.Equal(t, zap.WarnLevel, entries[1].Level)
	assert.EqualValues(t, http.StatusUnauthorized, entries[1].ContextMap()["status_code"])
}

func TestGetClientIP(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.0.0.1:5555"
	assert.Equal(t, "10.0.0.1", getClientIP(req))

	req.Header.Set("X-Forwarded-For", "garbage, 203.0.113.7, 10.0.0.2")
	assert.Equal(t, "203.0.113.7", getClientIP(req))
}
