package middleware

import (
	"fmt"
	"net/http"
	"runtime/debug"

	wrap "github.com/Temutjin2k/ride-dispatch/pkg/logger/wrapper"
)

func (m *Middleware) Recover(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if p := recover(); p != nil {
				if p == http.ErrAbortHandler {
					panic(p)
				}
				ctx := wrap.WithAction(r.Context(), "http_recover")
				m.log.Error(ctx, "panic while serving request", fmt.Errorf("%v", p), "path", r.URL.Path, "stack", string(debug.Stack()))

				w.Header().Set("Connection", "close")
				errorResponse(w, http.StatusInternalServerError, "the server encountered a problem and could not process your request")
			}
		}()

		next.ServeHTTP(w, r)
	})
}
