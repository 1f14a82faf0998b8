package api

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/braidhq/braiddb/pkg/log"
	"github.com/braidhq/braiddb/pkg/metrics"
)

const requestIDHeader = "X-Request-Id"

// statusRecorder captures the status code a handler wrote, defaulting to
// 200 if the handler never calls WriteHeader explicitly (mirroring
// net/http's own default).
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (rec *statusRecorder) WriteHeader(status int) {
	rec.status = status
	rec.ResponseWriter.WriteHeader(status)
}

// Flush forwards to the wrapped ResponseWriter's http.Flusher, if it has
// one. handleWatch's chunked streaming depends on this: without it, the
// watch route would silently stop flushing the moment this middleware
// started wrapping the response writer.
func (rec *statusRecorder) Flush() {
	if f, ok := rec.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// withMiddleware wraps next with request-id injection, structured access
// logging, Prometheus request metrics, and panic recovery, in that order --
// adapted from the read-only gRPC interceptor this server used to have,
// minus the read-only enforcement (readOnlyGuard below covers the one
// route that still needs it, the watch stream).
func withMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := r.Header.Get(requestIDHeader)
		if reqID == "" {
			reqID = uuid.NewString()
		}
		w.Header().Set(requestIDHeader, reqID)

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		logger := log.WithComponent("api")
		start := time.Now()
		timer := metrics.NewTimer()

		defer func() {
			if panicked := recover(); panicked != nil {
				logger.Error().
					Str("request_id", reqID).
					Str("method", r.Method).
					Str("path", r.URL.Path).
					Interface("panic", panicked).
					Msg("panic handling request")
				http.Error(rec, "internal error", http.StatusInternalServerError)
				rec.status = http.StatusInternalServerError
			}

			metrics.APIRequestsTotal.WithLabelValues(r.Method, strconv.Itoa(rec.status)).Inc()
			timer.ObserveDurationVec(metrics.APIRequestDuration, r.Method)
		}()

		next.ServeHTTP(rec, r)

		logger.Info().
			Str("request_id", reqID).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", rec.status).
			Dur("duration", time.Since(start)).
			Msg("request handled")
	})
}

// readOnlyGuard blocks every method but GET (and HEAD) on the routes it
// wraps, which here is only the watch stream.
func readOnlyGuard(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !isReadOnlyMethod(r.Method) {
			http.Error(w, "method not allowed on this route", http.StatusMethodNotAllowed)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func isReadOnlyMethod(method string) bool {
	return strings.EqualFold(method, http.MethodGet) || strings.EqualFold(method, http.MethodHead)
}
