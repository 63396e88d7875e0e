// Package adminauth authenticates back-office requests with bearer tokens.
package adminauth

import (
	"context"
	"net/http"
	"strings"

	id "github.com/sr13dr31/belyispisok/pkg/domain"
	"github.com/sr13dr31/belyispisok/pkg/requestcontext"
)

// VerifyFunc resolves a bearer token to an administrator, rejecting expired
// tokens and deactivated accounts.
type VerifyFunc func(ctx context.Context, token string) (id.AdminID, error)

// Middleware extracts the Authorization bearer token, verifies it, and puts
// the administrator identity into the request context.
func Middleware(verify VerifyFunc) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := bearerToken(r)
			if !ok {
				unauthorized(w)
				return
			}
			adminID, err := verify(r.Context(), token)
			if err != nil {
				unauthorized(w)
				return
			}
			ctx := requestcontext.WithAdmin(r.Context(), adminID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if !strings.HasPrefix(header, prefix) {
		return "", false
	}
	token := strings.TrimSpace(header[len(prefix):])
	return token, token != ""
}

func unauthorized(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_, _ = w.Write([]byte(`{"error":"unauthorized","error_description":"valid bearer token required"}`))
}
