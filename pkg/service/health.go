package service

import (
	"context"
	stderrors "errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/Ruscigno/IndexPulse/pkg/config"
	"github.com/Ruscigno/IndexPulse/pkg/metrics"
	"github.com/Ruscigno/IndexPulse/pkg/repository"
)

// HealthStatus represents the health status of a component
type HealthStatus string

const (
	HealthStatusHealthy   HealthStatus = "healthy"
	HealthStatusUnhealthy HealthStatus = "unhealthy"
	HealthStatusDegraded  HealthStatus = "degraded"
)

// ComponentHealth represents the health of a single component
type ComponentHealth struct {
	Name      string       `json:"name"`
	Status    HealthStatus `json:"status"`
	Message   string       `json:"message,omitempty"`
	Timestamp time.Time    `json:"timestamp"`
	Duration  string       `json:"duration,omitempty"`
}

// HealthResponse represents the overall health response
type HealthResponse struct {
	Status     HealthStatus      `json:"status"`
	Timestamp  time.Time         `json:"timestamp"`
	Version    string            `json:"version"`
	Components []ComponentHealth `json:"components"`
	Uptime     string            `json:"uptime"`
}

// HealthService defines the health check service interface
type HealthService interface {
	CheckHealth(ctx context.Context) HealthResponse
	CheckConfiguration(ctx context.Context) ComponentHealth
	CheckSessionStore(ctx context.Context) ComponentHealth
}

// healthService implements the HealthService interface
type healthService struct {
	cfg       config.Config
	sessions  repository.SessionRepository
	metrics   *metrics.HealthMetrics
	logger    *zap.Logger
	startTime time.Time
	version   string
}

// NewHealthService creates a new health service
func NewHealthService(
	cfg config.Config,
	sessions repository.SessionRepository,
	healthMetrics *metrics.HealthMetrics,
	logger *zap.Logger,
	version string,
) HealthService {
	return &healthService{
		cfg:       cfg,
		sessions:  sessions,
		metrics:   healthMetrics,
		logger:    logger,
		startTime: time.Now(),
		version:   version,
	}
}

// CheckHealth performs a comprehensive health check
func (h *healthService) CheckHealth(ctx context.Context) HealthResponse {
	start := time.Now()

	components := []ComponentHealth{
		h.CheckConfiguration(ctx),
		h.CheckSessionStore(ctx),
	}
	overallStatus := determineOverallStatus(components)

	response := HealthResponse{
		Status:     overallStatus,
		Timestamp:  time.Now().UTC(),
		Version:    h.version,
		Components: components,
		Uptime:     time.Since(h.startTime).String(),
	}

	h.logger.Debug("Health check completed",
		zap.String("status", string(overallStatus)),
		zap.Duration("duration", time.Since(start)),
		zap.Int("components", len(components)))

	return response
}

// CheckConfiguration reports whether the Kite credentials are usable.
func (h *healthService) CheckConfiguration(_ context.Context) ComponentHealth {
	component := ComponentHealth{
		Name:      "configuration",
		Status:    HealthStatusHealthy,
		Message:   "Configuration is complete",
		Timestamp: time.Now().UTC(),
	}

	if problems := h.cfg.Validate(); len(problems) > 0 {
		msgs := make([]string, 0, len(problems))
		for _, p := range problems {
			msgs = append(msgs, p.Error())
		}
		component.Message = strings.Join(msgs, "; ")
		// Without an API key neither mode can work.
		if h.cfg.Kite.APIKey == "" {
			component.Status = HealthStatusUnhealthy
		} else {
			component.Status = HealthStatusDegraded
		}
	}
	return component
}

// CheckSessionStore checks the store and whether a usable access token exists.
func (h *healthService) CheckSessionStore(ctx context.Context) ComponentHealth {
	start := time.Now()
	component := ComponentHealth{
		Name:      "session_store",
		Timestamp: time.Now().UTC(),
	}
	defer func() {
		h.metrics.RecordHealthCheck(component.Name, component.Status != HealthStatusUnhealthy, time.Since(start))
	}()

	if h.sessions == nil {
		component.Status = HealthStatusUnhealthy
		component.Message = "Session store not initialized"
		return component
	}

	if err := h.sessions.Health(ctx); err != nil {
		component.Status = HealthStatusUnhealthy
		component.Message = err.Error()
		h.logger.Error("Session store health check failed", zap.Error(err))
		return component
	}

	switch _, err := h.sessions.Latest(ctx, time.Now()); {
	case h.cfg.Kite.AccessToken != "":
		component.Status = HealthStatusHealthy
		component.Message = h.sessions.Name() + " store; access token configured"
	case err == nil:
		component.Status = HealthStatusHealthy
		component.Message = h.sessions.Name() + " store; active session available"
	case stderrors.Is(err, repository.ErrNoSession):
		component.Status = HealthStatusDegraded
		component.Message = h.sessions.Name() + " store; no access token, exchange a request_token"
	default:
		component.Status = HealthStatusUnhealthy
		component.Message = err.Error()
	}

	component.Duration = time.Since(start).String()
	return component
}

// determineOverallStatus returns the worst component status.
func determineOverallStatus(components []ComponentHealth) HealthStatus {
	hasUnhealthy := false
	hasDegraded := false

	for _, component := range components {
		switch component.Status {
		case HealthStatusUnhealthy:
			hasUnhealthy = true
		case HealthStatusDegraded:
			hasDegraded = true
		}
	}

	if hasUnhealthy {
		return HealthStatusUnhealthy
	}
	if hasDegraded {
		return HealthStatusDegraded
	}
	return HealthStatusHealthy
}
