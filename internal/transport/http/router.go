// Package httptransport assembles the HTTP surface: the shared middleware
// chain, the versioned API routes and the operational endpoints.
package httptransport

import (
	"context"
	"log/slog"
	"net/http"
	"sort"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"attestor/internal/platform/metrics"
	"attestor/internal/platform/middleware"
	id "attestor/pkg/domain"
	"attestor/pkg/platform/httputil"
	"attestor/pkg/platform/middleware/metadata"
	"attestor/pkg/platform/middleware/requesttime"
	"attestor/pkg/platform/middleware/version"
)

const (
	defaultRequestTimeout = 30 * time.Second
	healthCheckTimeout    = 2 * time.Second
)

// RouteRegistrar is implemented by every module handler.
type RouteRegistrar interface {
	Register(r chi.Router)
}

// HealthCheck reports whether a dependency is reachable.
type HealthCheck func(ctx context.Context) error

type Config struct {
	Logger         *slog.Logger
	Metrics        *metrics.Metrics
	Gatherer       prometheus.Gatherer
	RequestTimeout time.Duration
	HealthChecks   map[string]HealthCheck
}

// NewRouter mounts handlers under /v1 behind the shared middleware chain.
func NewRouter(cfg Config, handlers ...RouteRegistrar) http.Handler {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = defaultRequestTimeout
	}
	if cfg.Gatherer == nil {
		cfg.Gatherer = prometheus.DefaultGatherer
	}

	r := chi.NewRouter()
	r.Use(middleware.Recovery(cfg.Logger))
	r.Use(middleware.RequestID)
	r.Use(metadata.ClientMetadata)
	r.Use(requesttime.Middleware)
	r.Use(middleware.Logger(cfg.Logger))
	r.Use(middleware.Latency(cfg.Metrics))

	r.Get("/health", healthHandler(cfg.HealthChecks))
	r.Handle("/metrics", promhttp.HandlerFor(cfg.Gatherer, promhttp.HandlerOpts{}))

	r.Route("/v1", func(v1 chi.Router) {
		v1.Use(version.ExtractVersion(id.APIVersionV1))
		v1.Use(middleware.Timeout(cfg.RequestTimeout))
		v1.Use(middleware.ContentTypeJSON)
		for _, h := range handlers {
			h.Register(v1)
		}
	})
	return r
}

type healthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

// healthHandler runs every check concurrently. Any failure makes the service unavailable.
func healthHandler(checks map[string]HealthCheck) http.HandlerFunc {
	names := make([]string, 0, len(checks))
	for name := range checks {
		names = append(names, name)
	}
	sort.Strings(names)

	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
		defer cancel()

		results := make([]string, len(names))
		var g errgroup.Group
		for i, name := range names {
			g.Go(func() error {
				if err := checks[name](ctx); err != nil {
					results[i] = "unavailable: " + err.Error()
					return err
				}
				results[i] = "ok"
				return nil
			})
		}
		failed := g.Wait() != nil

		resp := healthResponse{Status: "ok", Checks: make(map[string]string, len(names))}
		for i, name := range names {
			resp.Checks[name] = results[i]
		}
		status := http.StatusOK
		if failed {
			resp.Status = "degraded"
			status = http.StatusServiceUnavailable
		}
		httputil.WriteJSON(w, status, resp)
	}
}
