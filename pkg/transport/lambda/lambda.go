// Package lambda adapts the shared HTTP handler to API Gateway proxy events,
// the format Netlify Functions deliver to Go binaries.
package lambda

import (
	"context"
	"net/http"

	"github.com/aws/aws-lambda-go/events"
	"github.com/awslabs/aws-lambda-go-api-proxy/core"
	"github.com/awslabs/aws-lambda-go-api-proxy/httpadapter"
)

// Handler serves proxy events through an http.Handler.
type Handler struct {
	adapter *httpadapter.HandlerAdapter
}

// NewHandler wraps h.
func NewHandler(h http.Handler) *Handler {
	return &Handler{adapter: httpadapter.New(gatewayRequestID(h))}
}

// Invoke has the signature expected by lambda.Start.
func (l *Handler) Invoke(ctx context.Context, event events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	return l.adapter.ProxyWithContext(ctx, event)
}

// gatewayRequestID reuses the gateway's request id when the caller sent none,
// so function logs and gateway logs share one id.
func gatewayRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-Request-ID") == "" {
			if gw, ok := core.GetAPIGatewayContextFromContext(r.Context()); ok && gw.RequestID != "" {
				r.Header.Set("X-Request-ID", gw.RequestID)
			}
		}
		next.ServeHTTP(w, r)
	})
}
