package service

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/Ruscigno/IndexPulse/pkg/config"
	"github.com/Ruscigno/IndexPulse/pkg/errors"
	"github.com/Ruscigno/IndexPulse/pkg/kite"
	"github.com/Ruscigno/IndexPulse/pkg/metrics"
	"github.com/Ruscigno/IndexPulse/pkg/quote"
	"github.com/Ruscigno/IndexPulse/pkg/repository"
)

const tokenExpiredMessage = "Access token expired or invalid. Please generate a new token."

// KiteClient is the part of the Kite API the service uses.
//
//go:generate mockgen -package=service -destination=mock_kite_client_test.go -source=service.go KiteClient
type KiteClient interface {
	GetQuote(ctx context.Context, accessToken string, symbols ...string) (map[string]json.RawMessage, error)
	GenerateSession(ctx context.Context, requestToken, apiSecret string) (*kite.Session, error)
}

// SessionResponse is returned by a successful token exchange.
type SessionResponse struct {
	Status      string `json:"status"`
	AccessToken string `json:"access_token"`
	PublicToken string `json:"public_token"`
}

// Service defines the index quote service interface
type Service interface {
	// FetchQuotes returns the normalized bundle for the fixed index set.
	FetchQuotes(ctx context.Context) (quote.Bundle, error)
	// ExchangeToken trades a Kite request token for an access token.
	ExchangeToken(ctx context.Context, requestToken string) (SessionResponse, error)
}

// service implements the Service interface
type service struct {
	cfg      config.KiteConfig
	client   KiteClient
	sessions repository.SessionRepository
	metrics  *metrics.ApplicationMetrics
	logger   *zap.Logger
	now      func() time.Time
}

// NewService creates a new Service instance with all dependencies
func NewService(
	cfg config.KiteConfig,
	client KiteClient,
	sessions repository.SessionRepository,
	appMetrics *metrics.ApplicationMetrics,
	logger *zap.Logger,
) Service {
	return &service{
		cfg:      cfg,
		client:   client,
		sessions: sessions,
		metrics:  appMetrics,
		logger:   logger,
		now:      time.Now,
	}
}

// FetchQuotes fetches and normalizes the four index quotes.
func (s *service) FetchQuotes(ctx context.Context) (quote.Bundle, error) {
	if s.cfg.APIKey == "" {
		s.logger.Error("Kite API key is not configured")
		return nil, errors.NewAppError(errors.ErrCodeConfig, "API Key not configured")
	}

	accessToken, err := s.accessToken(ctx)
	if err != nil {
		return nil, err
	}

	s.logger.Debug("Fetching quotes from Kite", zap.Strings("symbols", quote.Symbols()))

	start := time.Now()
	data, err := s.client.GetQuote(ctx, accessToken, quote.Symbols()...)
	if err != nil {
		appErr := s.quoteError(err)
		s.metrics.RecordKiteCall("quote", string(appErr.Code), time.Since(start))
		s.logger.Error("Kite quote request failed",
			zap.String("error_type", string(appErr.Code)),
			zap.Error(err))
		return nil, appErr
	}
	s.metrics.RecordKiteCall("quote", "success", time.Since(start))

	bundle := quote.AssembleBundle(data, s.now())
	if missing := bundle.Missing(); len(missing) > 0 {
		for _, key := range missing {
			s.metrics.RecordMissingInstrument(key)
		}
		s.logger.Warn("Quote data missing or malformed", zap.Strings("instruments", missing))
	}

	s.logger.Info("Quotes fetched", zap.Int("instruments", len(bundle)-len(bundle.Missing())))
	return bundle, nil
}

// ExchangeToken exchanges requestToken and stores the resulting session.
func (s *service) ExchangeToken(ctx context.Context, requestToken string) (SessionResponse, error) {
	requestToken = strings.TrimSpace(requestToken)
	if requestToken == "" {
		return SessionResponse{}, errors.NewAppError(errors.ErrCodeBadRequest, "request_token is required")
	}

	s.logger.Info("Exchanging request token",
		zap.Int("api_key_length", len(s.cfg.APIKey)),
		zap.Int("api_secret_length", len(s.cfg.APISecret)),
		zap.Int("request_token_length", len(requestToken)))

	if s.cfg.APIKey == "" || s.cfg.APISecret == "" {
		s.logger.Error("Token exchange requested without API key or secret")
		return SessionResponse{}, errors.NewAppError(errors.ErrCodeConfig, "Server configuration error: API key or secret is missing")
	}

	start := time.Now()
	session, err := s.client.GenerateSession(ctx, requestToken, s.cfg.APISecret)
	if err != nil {
		s.metrics.RecordKiteCall("session", "error", time.Since(start))
		s.metrics.RecordTokenExchange(false)
		s.logger.Error("Kite token exchange failed", zap.Error(err))
		return SessionResponse{}, errors.WrapError(err, errors.ErrCodeTokenExchangeFailed, "Kite Error: "+vendorMessage(err))
	}
	s.metrics.RecordKiteCall("session", "success", time.Since(start))
	s.metrics.RecordTokenExchange(true)

	stored := &repository.Session{
		UserID:      session.UserID,
		UserName:    session.UserName,
		AccessToken: session.AccessToken,
		PublicToken: session.PublicToken,
		LoginTime:   session.LoginTime,
	}
	// The token is still returned when it cannot be stored; the operator can
	// configure it by hand.
	if err := s.sessions.Save(ctx, stored); err != nil {
		s.logger.Warn("Failed to store kite session", zap.Error(err))
	}

	s.logger.Info("Access token generated", zap.String("user_id", session.UserID))
	return SessionResponse{
		Status:      "success",
		AccessToken: session.AccessToken,
		PublicToken: session.PublicToken,
	}, nil
}

// accessToken prefers the configured token and falls back to the stored session.
func (s *service) accessToken(ctx context.Context) (string, error) {
	if s.cfg.AccessToken != "" {
		return s.cfg.AccessToken, nil
	}

	session, err := s.sessions.Latest(ctx, s.now())
	switch {
	case err == nil:
		return session.AccessToken, nil
	case stderrors.Is(err, repository.ErrNoSession):
		s.logger.Info("No access token configured or stored")
		return "", errors.NewAppError(errors.ErrCodeConfig,
			"Access token not configured. Exchange a request_token first or set KITE_ACCESS_TOKEN.")
	default:
		s.logger.Error("Session store lookup failed", zap.Error(err))
		return "", errors.WrapError(err, errors.ErrCodeDatabaseError, "session store unavailable")
	}
}

// quoteError maps a Kite client failure onto the error taxonomy.
func (s *service) quoteError(err error) *errors.AppError {
	var apiErr *kite.APIError
	if stderrors.As(err, &apiErr) {
		if apiErr.IsTokenError() {
			return errors.NewAppError(errors.ErrCodeTokenExpired, tokenExpiredMessage).
				WithDetails(apiErr.Message).
				WithCause(err)
		}
		return errors.NewAppError(errors.ErrCodeVendor, apiErr.Message).
			WithDetails(apiErr.Body).
			WithCause(err)
	}

	var invalid *kite.InvalidResponseError
	if stderrors.As(err, &invalid) {
		return errors.NewAppError(errors.ErrCodeVendor, "Invalid response from Kite").
			WithMetadata("kiteStatus", invalid.Status).
			WithCause(err)
	}
	if stderrors.Is(err, kite.ErrInvalidResponse) {
		return errors.NewAppError(errors.ErrCodeVendor, "Invalid response from Kite").WithCause(err)
	}

	return errors.WrapError(err, errors.ErrCodeVendor, "Kite request failed: "+err.Error())
}

func vendorMessage(err error) string {
	var apiErr *kite.APIError
	if stderrors.As(err, &apiErr) {
		return apiErr.Message
	}
	return err.Error()
}
