package middleware

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/pizzalemon/pos-backend/pkg/logger"
	"github.com/pizzalemon/pos-backend/pkg/metrics"
)

// Logging writes request.start/request.complete lines and feeds the HTTP
// metrics with the matched route pattern.
func Logging(logg *logger.Logger, httpMetrics *metrics.HTTPMetrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			if logg != nil {
				ctx = logg.WithFields(ctx, map[string]any{
					"method": r.Method,
					"path":   r.URL.Path,
				})
				logg.Info(ctx, "request.start")
			}

			ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r.WithContext(ctx))
			duration := time.Since(start)

			status := writtenStatus(ww)
			route := r.URL.Path
			if rc := chi.RouteContext(r.Context()); rc != nil {
				if pattern := rc.RoutePattern(); pattern != "" {
					route = pattern
				}
			}
			httpMetrics.Observe(r.Method, route, status, duration)

			if logg != nil {
				logg.Info(logg.WithFields(ctx, map[string]any{
					"status":      status,
					"route":       route,
					"bytes":       ww.BytesWritten(),
					"duration_ms": duration.Milliseconds(),
				}), "request.complete")
			}
		})
	}
}

// writtenStatus treats a handler that wrote nothing as an implicit 200.
func writtenStatus(ww chimw.WrapResponseWriter) int {
	if status := ww.Status(); status != 0 {
		return status
	}
	return http.StatusOK
}
