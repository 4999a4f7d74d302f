// Package middleware holds the HTTP middlewares of the web server
package middleware

import (
	"net/http"
	"time"

	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/kozaktomas/face-attendance/internal/logger"
)

// AccessLogOptions configures the zerolog access log
type AccessLogOptions struct {
	// Slow marks requests taking >= Slow as warn level, 0 disables slow marking
	Slow time.Duration
	// Logger defaults to the "http" component logger
	Logger *logger.Logger
}

// AccessLog logs method, path, status, elapsed and bytes written.
// The wrapped writer keeps http.Flusher so streaming handlers still work.
func AccessLog(opt AccessLogOptions) func(http.Handler) http.Handler {
	log := opt.Logger
	if log == nil {
		log = logger.Named("http")
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()

			next.ServeHTTP(ww, r)

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			elapsed := time.Since(start)

			evt := log.Info()
			switch {
			case status >= http.StatusInternalServerError:
				evt = log.Error()
			case opt.Slow > 0 && elapsed >= opt.Slow:
				evt = log.Warn()
			}
			evt.Int("status", status).
				Dur("elapsed", elapsed).
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Str("request_id", chimw.GetReqID(r.Context())).
				Int("bytes", ww.BytesWritten()).
				Msg("request done")
		})
	}
}
