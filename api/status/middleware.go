package status

import (
	"context"
	"net/http"
	"strings"
	"time"
)

// RegisterMiddleware registers the handler middlewares on the server.
func (h *Handler) RegisterMiddleware(srv *Server) {
	srv.RegisterMiddleware(setContentType)
	srv.RegisterMiddleware(wrapRequestContext)
}

// setContentType marks every response as JSON except the metrics exposition.
func setContentType(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasPrefix(r.URL.Path, metricsEndpoint) {
			w.Header().Add("Content-Type", "application/json")
		}
		next.ServeHTTP(w, r)
	})
}

// wrapRequestContext ensures we implement a deadline on serving requests
// via the status server-side to prevent context leaks.
func wrapRequestContext(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), time.Minute)
		defer cancel()
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
