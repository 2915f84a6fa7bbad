package server

import (
	"context"
	"log/slog"
	"net/http"
	"runtime/debug"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/sanonone/travelsdb/pkg/core"
	"github.com/sanonone/travelsdb/pkg/metrics"
)

// RequestIDHeader carries the request id in both directions.
const RequestIDHeader = "X-Request-Id"

// RecoveryMiddleware catches panics, logs the stack trace, and returns a 500 error.
// It ensures the server remains stable even if a handler crashes.
func (s *Server) RecoveryMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				if err == http.ErrAbortHandler {
					panic(err)
				}
				// 1. Log the critical error with stack trace
				s.logger.Error("CRITICAL: Panic recovered in HTTP handler",
					"error", err,
					"method", r.Method,
					"path", r.URL.Path,
					"request_id", w.Header().Get(RequestIDHeader),
					"stack", string(debug.Stack()),
				)

				// 2. Return the generic internal error body (hide internals)
				writeError(w, r, core.KindInternal)
			}
		}()

		next.ServeHTTP(w, r)
	})
}

// LoggingMiddleware tags the request with an id, logs it at debug level and
// records Prometheus metrics with its duration and status.
// Metrics are labeled by route pattern, not raw path, to keep label cardinality bounded.
func (s *Server) LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		id := r.Header.Get(RequestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(RequestIDHeader, id)

		// Pre-seed the chi routing context so the matched pattern is visible here.
		rctx := chi.NewRouteContext()
		r = r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))

		// Wrap ResponseWriter to capture status code
		wrapped := &responseWrapper{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(wrapped, r)

		duration := time.Since(start)
		pattern := rctx.RoutePattern()
		if pattern == "" {
			pattern = "unmatched"
		}

		// Structured log
		if s.logger.Enabled(r.Context(), slog.LevelDebug) {
			s.logger.Debug("HTTP Request",
				"request_id", id,
				"method", r.Method,
				"path", r.URL.Path,
				"route", pattern,
				"status", wrapped.statusCode,
				"duration", duration.String(),
				"ip", r.RemoteAddr,
			)
		}

		metrics.HttpRequestDuration.WithLabelValues(r.Method, pattern).Observe(duration.Seconds())
		metrics.HttpRequestsTotal.WithLabelValues(r.Method, pattern, strconv.Itoa(wrapped.statusCode)).Inc()
	})
}

// responseWrapper is a helper to capture the status code
type responseWrapper struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWrapper) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}
