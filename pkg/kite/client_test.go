package kite

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var indexSymbols = []string{"NSE:NIFTY 50", "NSE:NIFTY BANK", "NSE:NIFTY MIDCAP 50", "BSE:SENSEX"}

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return NewClient("key123", WithBaseURL(srv.URL), WithTimeout(2*time.Second))
}

func TestGetQuote_SendsKiteHeadersAndSymbols(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/quote", r.URL.Path)
		assert.Equal(t, "token key123:tok456", r.Header.Get("Authorization"))
		assert.Equal(t, "3", r.Header.Get("X-Kite-Version"))
		assert.Equal(t, "application/json", r.Header.Get("Accept"))
		assert.Equal(t, indexSymbols, r.URL.Query()["i"])

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"success","data":{"NSE:NIFTY 50":{"last_price":22000.5}}}`))
	})

	data, err := c.GetQuote(context.Background(), "tok456", indexSymbols...)
	require.NoError(t, err)
	require.Contains(t, data, "NSE:NIFTY 50")
	assert.JSONEq(t, `{"last_price":22000.5}`, string(data["NSE:NIFTY 50"]))
}

func TestGetQuote_TokenException(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"status":"error","message":"Incorrect api_key or access_token.","error_type":"TokenException"}`))
	})

	_, err := c.GetQuote(context.Background(), "stale", indexSymbols...)
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusForbidden, apiErr.StatusCode)
	assert.Equal(t, "TokenException", apiErr.ErrorType)
	assert.True(t, apiErr.IsTokenError())
}

func TestGetQuote_NonJSONFailure(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte(`upstream down`))
	})

	_, err := c.GetQuote(context.Background(), "tok", indexSymbols...)
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, "Kite API error: 502", apiErr.Message)
	assert.Equal(t, "upstream down", apiErr.Body)
	assert.False(t, apiErr.IsTokenError())
}

func TestGetQuote_InvalidEnvelope(t *testing.T) {
	for name, body := range map[string]string{
		"no data":       `{"status":"success"}`,
		"null data":     `{"status":"success","data":null}`,
		"odd status":    `{"status":"pending","data":{}}`,
		"not json":      `<html>`,
		"array payload": `{"status":"success","data":[1,2]}`,
	} {
		t.Run(name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(body))
			})
			_, err := c.GetQuote(context.Background(), "tok", indexSymbols...)
			assert.ErrorIs(t, err, ErrInvalidResponse)
		})
	}
}

func TestGenerateSession(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/session/token", r.URL.Path)
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "key123", r.PostForm.Get("api_key"))
		assert.Equal(t, "req789", r.PostForm.Get("request_token"))
		assert.Equal(t, Checksum("key123", "req789", "secret"), r.PostForm.Get("checksum"))

		_, _ = w.Write([]byte(`{"status":"success","data":{"user_id":"AB1234","access_token":"acc","public_token":"pub","login_time":"2026-03-02 08:01:02"}}`))
	})

	session, err := c.GenerateSession(context.Background(), "req789", "secret")
	require.NoError(t, err)
	assert.Equal(t, "AB1234", session.UserID)
	assert.Equal(t, "acc", session.AccessToken)
	assert.Equal(t, "pub", session.PublicToken)
}

func TestGenerateSession_BadChecksum(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"status":"error","message":"Invalid ` + "`checksum`" + `.","error_type":"TokenException"}`))
	})

	_, err := c.GenerateSession(context.Background(), "req", "wrong")
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, "Invalid `checksum`.", apiErr.Message)
}

func TestChecksum(t *testing.T) {
	// sha256("abc")
	assert.Equal(t, "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad", Checksum("a", "b", "c"))
}

func TestGetQuote_ContextCancelled(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"status":"success","data":{}}`))
	})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.GetQuote(ctx, "tok", indexSymbols...)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}
