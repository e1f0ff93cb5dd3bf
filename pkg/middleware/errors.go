package middleware

import (
	"encoding/json"
	"net/http"

	"github.com/Ruscigno/IndexPulse/pkg/errors"
)

// WriteError writes err as the JSON error body, stamped with the request id.
func WriteError(w http.ResponseWriter, r *http.Request, err error) {
	appErr := errors.GetAppError(err)
	if appErr == nil {
		appErr = errors.WrapError(err, errors.ErrCodeInternal, "Internal server error")
	}

	resp := appErr.ToErrorResponse()
	if resp.RequestID == "" {
		resp.RequestID = RequestIDFromContext(r.Context())
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(appErr.HTTPStatus)
	_ = json.NewEncoder(w).Encode(resp)
}

// LimitBody rejects bodies larger than maxBytes with 413 and caps the reader
// for bodies of unknown length.
func LimitBody(maxBytes int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if maxBytes > 0 && r.Body != nil {
				if r.ContentLength > maxBytes {
					WriteError(w, r, errors.Newf(errors.ErrCodeRequestTooLarge,
						"Request body too large. Maximum size: %d bytes", maxBytes))
					return
				}
				r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
			}
			next.ServeHTTP(w, r)
		})
	}
}
