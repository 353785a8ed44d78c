package middleware

import (
	"bufio"
	"net"
	"net/http"
	"time"

	"github.com/Temutjin2k/ride-dispatch/pkg/metrics"
)

type responseWriter struct {
	http.ResponseWriter
	statusCode  int
	wroteHeader bool
}

func newResponseWriter(w http.ResponseWriter) *responseWriter {
	if rw, ok := w.(*responseWriter); ok {
		return rw
	}
	return &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
}

// Hijack lets websocket.Upgrader take over the connection through the wrapper.
func (rw *responseWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := rw.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, http.ErrNotSupported
	}
	rw.statusCode = http.StatusSwitchingProtocols
	return h.Hijack()
}

func (rw *responseWriter) WriteHeader(code int) {
	if !rw.wroteHeader {
		rw.statusCode = code
		rw.wroteHeader = true
	}
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Flush() {
	if f, ok := rw.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// Metrics records HTTP metrics labelled with the route pattern.
func (m *Middleware) Metrics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/metrics" {
			next.ServeHTTP(w, r)
			return
		}

		start := time.Now()
		metrics.HttpRequestsInFlight.WithLabelValues(m.service).Inc()
		defer metrics.HttpRequestsInFlight.WithLabelValues(m.service).Dec()

		rw := newResponseWriter(w)
		next.ServeHTTP(rw, r)

		// the mux sets r.Pattern on this request only when no inner middleware copied it
		path := r.Pattern
		if path == "" {
			path = "unmatched"
		}
		metrics.RecordHTTPMetrics(m.service, r.Method, path, rw.statusCode, time.Since(start))
	})
}
