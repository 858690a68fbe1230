package httpserver

import (
	"net/http"
	"time"

	"attestor/internal/platform/config"
)

// writeSlack keeps the server write deadline past the per-request timeout so
// the timeout middleware, not the connection, ends a slow request.
const writeSlack = 5 * time.Second

// New builds the HTTP server for cfg.
func New(cfg config.Server, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              cfg.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      cfg.RequestTimeout + writeSlack,
		IdleTimeout:       60 * time.Second,
	}
}
