package middleware

import (
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/ChrisKp1710/gamecall/internal/metrics"
)

// RequestMetrics records request latency per route template and logs each request at debug level.
func RequestMetrics(logger *zap.Logger) mux.MiddlewareFunc {
	logger = logger.Named("http")
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			route := "unmatched"
			if current := mux.CurrentRoute(r); current != nil {
				if tpl, err := current.GetPathTemplate(); err == nil {
					route = tpl
				}
			}

			handlers.CustomLoggingHandler(io.Discard, next, func(_ io.Writer, p handlers.LogFormatterParams) {
				elapsed := time.Since(p.TimeStamp)
				metrics.HTTPRequestDuration.
					WithLabelValues(r.Method, route, strconv.Itoa(p.StatusCode)).
					Observe(elapsed.Seconds())
				logger.Debug("request",
					zap.String("method", r.Method),
					zap.String("route", route),
					zap.Int("status", p.StatusCode),
					zap.Int("size", p.Size),
					zap.Duration("elapsed", elapsed))
			}).ServeHTTP(w, r)
		})
	}
}
