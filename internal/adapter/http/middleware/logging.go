package middleware

import (
	"net/http"
	"time"
)

// Logging logs the start and the outcome of every request.
func (m *Middleware) Logging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := newResponseWriter(w)

		m.log.Debug(r.Context(), "started",
			"method", r.Method,
			"URL", r.URL.Path,
			"request-host", r.Host,
		)

		next.ServeHTTP(rw, r)

		m.log.Debug(r.Context(), "completed",
			"method", r.Method,
			"URL", r.URL.Path,
			"status", rw.statusCode,
			"duration", time.Since(start).String(),
		)
	})
}
