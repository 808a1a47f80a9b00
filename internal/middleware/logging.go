package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/fixpoint-io/fixpoint-api/internal/metrics"
	"github.com/rs/zerolog"
)

// Logging logs one line per request with method, path, status and duration,
// and feeds the request counters.
func Logging(logger zerolog.Logger) func(http.Handler) http.Handler {
	requestLogger := logger.With().Str("component", "http").Logger()
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// capture response status
			rw := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

			start := time.Now()
			next.ServeHTTP(rw, r)
			duration := time.Since(start)

			metrics.HTTPRequestsTotal.WithLabelValues(r.Method, strconv.Itoa(rw.status)).Inc()
			metrics.HTTPRequestDuration.WithLabelValues(r.Method).Observe(duration.Seconds())

			event := requestLogger.Info()
			if rw.status >= http.StatusInternalServerError {
				event = requestLogger.Error()
			}
			event.
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", rw.status).
				Dur("duration", duration).
				Msg("request")
		})
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (rec *statusRecorder) WriteHeader(code int) {
	rec.status = code
	rec.ResponseWriter.WriteHeader(code)
}
