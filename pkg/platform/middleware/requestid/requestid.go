// Package requestid assigns a correlation id to every request, honoring one
// supplied by the caller.
package requestid

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/sr13dr31/belyispisok/pkg/requestcontext"
)

// Header is the inbound/outbound correlation header.
const Header = "X-Request-ID"

// Middleware reads the correlation id from the request header, generating one
// when absent, stores it in the context, and echoes it on the response.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get(Header)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		ctx := requestcontext.WithRequestID(r.Context(), requestID)
		w.Header().Set(Header, requestID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
