package endpoint

import (
	"context"

	"github.com/go-kit/kit/endpoint"

	"github.com/Ruscigno/IndexPulse/pkg/errors"
	"github.com/Ruscigno/IndexPulse/pkg/service"
)

// KiteDataRequest selects the mode of the shared kite-data handler.
// A non-empty RequestToken means token exchange; otherwise quotes are fetched.
type KiteDataRequest struct {
	RequestToken string `json:"request_token,omitempty"`
}

// Endpoints holds all Go-Kit endpoints.
type Endpoints struct {
	KiteData    endpoint.Endpoint
	CheckHealth endpoint.Endpoint
}

// MakeEndpoints creates endpoints for the service.
func MakeEndpoints(s service.Service, h service.HealthService) Endpoints {
	return Endpoints{
		KiteData:    makeKiteDataEndpoint(s),
		CheckHealth: makeCheckHealthEndpoint(h),
	}
}

func makeKiteDataEndpoint(s service.Service) endpoint.Endpoint {
	return func(ctx context.Context, request interface{}) (interface{}, error) {
		req, ok := request.(KiteDataRequest)
		if !ok {
			return nil, errors.NewAppError(errors.ErrCodeBadRequest, "invalid request")
		}
		if req.RequestToken != "" {
			return s.ExchangeToken(ctx, req.RequestToken)
		}
		return s.FetchQuotes(ctx)
	}
}

func makeCheckHealthEndpoint(h service.HealthService) endpoint.Endpoint {
	return func(ctx context.Context, request interface{}) (interface{}, error) {
		return h.CheckHealth(ctx), nil
	}
}
