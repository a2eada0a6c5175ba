package middleware

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
)

// HTTPObserver records request measurements.
type HTTPObserver interface {
	ObserveHTTP(method, route string, status int, d time.Duration)
	InFlight(delta float64)
}

// MetricsMiddleware tracks request counts and latency per route pattern.
func MetricsMiddleware(obs HTTPObserver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			obs.InFlight(1)
			defer obs.InFlight(-1)

			wrapped := wrap(w)
			next.ServeHTTP(wrapped, r)

			// pattern baru terisi setelah routing selesai
			route := "unmatched"
			if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
				route = rc.RoutePattern()
			}
			obs.ObserveHTTP(r.Method, route, wrapped.statusCode, time.Since(start))
		})
	}
}
