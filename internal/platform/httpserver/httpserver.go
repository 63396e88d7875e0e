// Package httpserver holds the http.Server defaults for the admin and
// operational endpoints.
package httpserver

import (
	"net/http"
	"time"
)

// New bounds the header read so a slow client cannot pin a connection before
// routing; request deadlines belong to the handlers.
func New(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}
}
