package httptransport

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"attestor/internal/platform/metrics"
	"attestor/internal/platform/middleware"
	"attestor/pkg/platform/middleware/version"
	"attestor/pkg/requestcontext"
	"attestor/pkg/testutil"
)

type pingHandler struct{}

func (pingHandler) Register(r chi.Router) {
	r.Get("/ping", func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		_ = json.NewEncoder(w).Encode(map[string]any{
			"request_id": requestcontext.RequestID(ctx),
			"version":    requestcontext.APIVersion(ctx),
			"has_time":   !requestcontext.Now(ctx).IsZero(),
		})
	})
	r.Get("/boom", func(http.ResponseWriter, *http.Request) { panic("boom") })
}

func newRouter(checks map[string]HealthCheck) http.Handler {
	reg := prometheus.NewRegistry()
	return NewRouter(Config{
		Logger:       slog.New(slog.NewTextHandler(io.Discard, nil)),
		Metrics:      metrics.NewWithRegisterer(reg),
		Gatherer:     reg,
		HealthChecks: checks,
	}, pingHandler{})
}

func TestVersionedRoutes(t *testing.T) {
	router := newRouter(nil)

	req := httptest.NewRequest(http.MethodGet, "/v1/ping", nil)
	req.Header.Set(middleware.RequestIDHeader, "req-42")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "v1", w.Header().Get(version.Header))
	assert.Equal(t, "req-42", w.Header().Get(middleware.RequestIDHeader))

	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "req-42", body["request_id"])
	assert.Equal(t, "v1", body["version"])
	assert.Equal(t, true, body["has_time"])

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestPanicIsInternalError(t *testing.T) {
	w := httptest.NewRecorder()
	newRouter(nil).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/v1/boom", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "internal_error")
}

func TestHealth(t *testing.T) {
	ok := func(context.Context) error { return nil }
	down := func(context.Context) error { return errors.New("connection refused") }

	testutil.Given(t, "every dependency is reachable", func(t *testing.T) {
		w := httptest.NewRecorder()
		newRouter(map[string]HealthCheck{"postgres": ok, "redis": ok}).
			ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

		testutil.Then(t, "the service reports ok", func(t *testing.T) {
			assert.Equal(t, http.StatusOK, w.Code)
			var body healthResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			assert.Equal(t, "ok", body.Status)
			assert.Equal(t, map[string]string{"postgres": "ok", "redis": "ok"}, body.Checks)
		})
	})

	testutil.Given(t, "kafka is unreachable", func(t *testing.T) {
		testutil.When(t, "health is requested", func(t *testing.T) {
			w := httptest.NewRecorder()
			newRouter(map[string]HealthCheck{"postgres": ok, "kafka": down}).
				ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

			testutil.Then(t, "the service is degraded and names the failing check", func(t *testing.T) {
				assert.Equal(t, http.StatusServiceUnavailable, w.Code)
				var body healthResponse
				require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
				assert.Equal(t, "degraded", body.Status)
				assert.Equal(t, "ok", body.Checks["postgres"])
				assert.Equal(t, "unavailable: connection refused", body.Checks["kafka"])
			})
		})
	})
}

func TestMetricsEndpoint(t *testing.T) {
	router := newRouter(nil)
	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/v1/ping", nil))

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "attestor_http_requests_total")
}
