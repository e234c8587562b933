package middleware

import (
	"net/http"
	"time"

	"github.com/go-chi/chi"

	"github.com/impactsmiles/smiles-wallet/internal/metrics"
)

// MetricsMiddleware counts requests and their durations per route pattern, so path ids do not explode the labels.
func MetricsMiddleware(metricsService metrics.MetricsService) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			startTime := time.Now()
			rw := &responseWriter{ResponseWriter: w}

			next.ServeHTTP(rw, r)

			endpoint := r.URL.Path
			if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
				endpoint = rctx.RoutePattern()
			}
			if endpoint == "" {
				endpoint = "/"
			}
			if rw.statusCode == 0 {
				rw.statusCode = http.StatusOK
			}

			metricsService.ObserveRequestDuration(endpoint, r.Method, time.Since(startTime).Seconds())
			metricsService.IncNumRequests(endpoint, r.Method, rw.statusCode)
		})
	}
}

// responseWriter wraps http.ResponseWriter to capture the status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	// If WriteHeader hasn't been called yet, we assume it's a 200
	if rw.statusCode == 0 {
		rw.statusCode = http.StatusOK
	}
	return rw.ResponseWriter.Write(b)
}
