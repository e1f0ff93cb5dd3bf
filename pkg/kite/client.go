package kite

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

const (
	// DefaultBaseURL is the Kite Connect REST root.
	DefaultBaseURL = "https://api.kite.trade"
	// APIVersion is sent as X-Kite-Version on every request.
	APIVersion = "3"

	tokenExceptionType = "TokenException"
)

// ErrInvalidResponse is returned when Kite answers without a usable success envelope.
var ErrInvalidResponse = errors.New("invalid response from Kite")

// APIError is a failure reported by Kite, either through a non-2xx status or
// an error envelope.
type APIError struct {
	StatusCode int
	Status     string
	ErrorType  string
	Message    string
	Body       string
}

func (e *APIError) Error() string {
	if e.ErrorType != "" {
		return fmt.Sprintf("kite %s (%d): %s", e.ErrorType, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("kite error (%d): %s", e.StatusCode, e.Message)
}

// IsTokenError reports whether the access token was rejected.
func (e *APIError) IsTokenError() bool {
	return e.ErrorType == tokenExceptionType || strings.Contains(strings.ToLower(e.Message), "token")
}

// Session is the result of a successful token exchange.
type Session struct {
	UserID       string `json:"user_id"`
	UserName     string `json:"user_name"`
	AccessToken  string `json:"access_token"`
	PublicToken  string `json:"public_token"`
	RefreshToken string `json:"refresh_token"`
	LoginTime    string `json:"login_time"`
}

// envelope is the wrapper Kite puts around every response.
type envelope struct {
	Status    string          `json:"status"`
	Message   string          `json:"message"`
	ErrorType string          `json:"error_type"`
	Data      json.RawMessage `json:"data"`
}

// Client talks to the Kite Connect REST API.
type Client struct {
	apiKey     string
	baseURL    string
	timeout    time.Duration
	httpClient *http.Client
	logger     *zap.Logger

	rc *resty.Client
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL overrides the Kite REST root.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		if baseURL != "" {
			c.baseURL = strings.TrimRight(baseURL, "/")
		}
	}
}

// WithTimeout bounds each outbound call.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithHTTPClient sets the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithLogger sets the logger used for request and failure logs.
func WithLogger(logger *zap.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// NewClient creates a Kite client for apiKey.
func NewClient(apiKey string, opts ...Option) *Client {
	c := &Client{
		apiKey:  apiKey,
		baseURL: DefaultBaseURL,
		timeout: 10 * time.Second,
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}

	if c.httpClient != nil {
		c.rc = resty.NewWithClient(c.httpClient)
	} else {
		c.rc = resty.New()
	}
	c.rc.SetBaseURL(c.baseURL).
		SetTimeout(c.timeout).
		SetHeaders(map[string]string{
			"X-Kite-Version": APIVersion,
			"Accept":         "application/json",
		})

	return c
}

// GetQuote fetches full quotes for symbols and returns the raw data object
// keyed by symbol.
func (c *Client) GetQuote(ctx context.Context, accessToken string, symbols ...string) (map[string]json.RawMessage, error) {
	start := time.Now()
	resp, err := c.rc.R().
		SetContext(ctx).
		SetHeader("Authorization", fmt.Sprintf("token %s:%s", c.apiKey, accessToken)).
		SetQueryParamsFromValues(url.Values{"i": symbols}).
		Get("/quote")
	if err != nil {
		return nil, fmt.Errorf("kite quote request: %w", err)
	}

	c.logger.Debug("kite quote response",
		zap.Int("status", resp.StatusCode()),
		zap.Duration("duration", time.Since(start)),
		zap.Int("symbols", len(symbols)),
	)

	env, err := parseEnvelope(resp)
	if err != nil {
		return nil, err
	}

	var data map[string]json.RawMessage
	if err := json.Unmarshal(env.Data, &data); err != nil || data == nil {
		return nil, fmt.Errorf("%w: data is not an object", ErrInvalidResponse)
	}
	return data, nil
}

// GenerateSession exchanges a request token for an access token.
func (c *Client) GenerateSession(ctx context.Context, requestToken, apiSecret string) (*Session, error) {
	start := time.Now()
	resp, err := c.rc.R().
		SetContext(ctx).
		SetFormData(map[string]string{
			"api_key":       c.apiKey,
			"request_token": requestToken,
			"checksum":      Checksum(c.apiKey, requestToken, apiSecret),
		}).
		Post("/session/token")
	if err != nil {
		return nil, fmt.Errorf("kite session request: %w", err)
	}

	c.logger.Debug("kite session response",
		zap.Int("status", resp.StatusCode()),
		zap.Duration("duration", time.Since(start)),
	)

	env, err := parseEnvelope(resp)
	if err != nil {
		return nil, err
	}

	var session Session
	if err := json.Unmarshal(env.Data, &session); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidResponse, err)
	}
	if session.AccessToken == "" {
		return nil, fmt.Errorf("%w: no access token in session", ErrInvalidResponse)
	}
	return &session, nil
}

// Checksum is the SHA-256 hex digest Kite expects on /session/token.
func Checksum(apiKey, requestToken, apiSecret string) string {
	sum := sha256.Sum256([]byte(apiKey + requestToken + apiSecret))
	return hex.EncodeToString(sum[:])
}

// parseEnvelope turns a response into a success envelope or an error.
func parseEnvelope(resp *resty.Response) (*envelope, error) {
	body := resp.Body()
	var env envelope
	decodeErr := json.Unmarshal(body, &env)

	if !resp.IsSuccess() || env.Status == "error" {
		apiErr := &APIError{
			StatusCode: resp.StatusCode(),
			Status:     env.Status,
			ErrorType:  env.ErrorType,
			Message:    env.Message,
			Body:       string(body),
		}
		if apiErr.Message == "" {
			apiErr.Message = fmt.Sprintf("Kite API error: %d", resp.StatusCode())
		}
		return nil, apiErr
	}

	if decodeErr != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidResponse, decodeErr)
	}
	if env.Status != "success" || len(env.Data) == 0 || string(env.Data) == "null" {
		return nil, &InvalidResponseError{Status: env.Status}
	}
	return &env, nil
}

// InvalidResponseError carries the envelope status of a malformed success response.
type InvalidResponseError struct {
	Status string
}

func (e *InvalidResponseError) Error() string {
	return fmt.Sprintf("%s: status %q", ErrInvalidResponse, e.Status)
}

func (e *InvalidResponseError) Unwrap() error {
	return ErrInvalidResponse
}
