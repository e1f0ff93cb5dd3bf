package endpoint

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ruscigno/IndexPulse/pkg/errors"
	"github.com/Ruscigno/IndexPulse/pkg/quote"
	"github.com/Ruscigno/IndexPulse/pkg/service"
)

type stubService struct {
	fetched   int
	exchanged []string
}

func (s *stubService) FetchQuotes(context.Context) (quote.Bundle, error) {
	s.fetched++
	return quote.Bundle{"nifty50": nil}, nil
}

func (s *stubService) ExchangeToken(_ context.Context, requestToken string) (service.SessionResponse, error) {
	s.exchanged = append(s.exchanged, requestToken)
	return service.SessionResponse{Status: "success", AccessToken: "acc"}, nil
}

type stubHealth struct{}

func (stubHealth) CheckHealth(context.Context) service.HealthResponse {
	return service.HealthResponse{Status: service.HealthStatusHealthy}
}
func (stubHealth) CheckConfiguration(context.Context) service.ComponentHealth {
	return service.ComponentHealth{}
}
func (stubHealth) CheckSessionStore(context.Context) service.ComponentHealth {
	return service.ComponentHealth{}
}

func TestKiteData_DispatchesOnRequestToken(t *testing.T) {
	svc := &stubService{}
	eps := MakeEndpoints(svc, stubHealth{})

	resp, err := eps.KiteData(context.Background(), KiteDataRequest{})
	require.NoError(t, err)
	assert.IsType(t, quote.Bundle{}, resp)
	assert.Equal(t, 1, svc.fetched)

	resp, err = eps.KiteData(context.Background(), KiteDataRequest{RequestToken: "rt"})
	require.NoError(t, err)
	assert.Equal(t, "acc", resp.(service.SessionResponse).AccessToken)
	assert.Equal(t, []string{"rt"}, svc.exchanged)
	assert.Equal(t, 1, svc.fetched)
}

func TestKiteData_RejectsUnknownRequest(t *testing.T) {
	eps := MakeEndpoints(&stubService{}, stubHealth{})

	_, err := eps.KiteData(context.Background(), "nope")
	assert.True(t, errors.HasCode(err, errors.ErrCodeBadRequest))
}

func TestCheckHealth(t *testing.T) {
	eps := MakeEndpoints(&stubService{}, stubHealth{})

	resp, err := eps.CheckHealth(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, service.HealthStatusHealthy, resp.(service.HealthResponse).Status)
}
