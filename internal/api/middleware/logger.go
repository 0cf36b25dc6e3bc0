package middleware

import (
	"net/http"
	"time"

	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/hlog"
	"github.com/rs/zerolog/log"
)

// Logger attaches a request-scoped logger to the context and writes one
// access line per request. Handlers reach the scoped logger with
// hlog.FromRequest; it carries the chi request id, so every line a request
// produces can be correlated.
//
// Must run after chimw.RequestID. The global logger is captured when the
// middleware is built.
func Logger(next http.Handler) http.Handler {
	access := hlog.AccessHandler(logAccess)
	return hlog.NewHandler(log.Logger)(tagRequestID(access(next)))
}

func tagRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if id := chimw.GetReqID(r.Context()); id != "" {
			hlog.FromRequest(r).UpdateContext(func(c zerolog.Context) zerolog.Context {
				return c.Str("request_id", id)
			})
		}
		next.ServeHTTP(w, r)
	})
}

func logAccess(r *http.Request, status, size int, duration time.Duration) {
	if status == 0 {
		// Nothing was written; net/http answers 200.
		status = http.StatusOK
	}

	logger := hlog.FromRequest(r)
	var event *zerolog.Event
	switch {
	case status >= 500:
		event = logger.Error()
	case status >= 400:
		event = logger.Warn()
	default:
		event = logger.Info()
	}

	event.
		Str("method", r.Method).
		Str("path", r.URL.Path).
		Int("status", status).
		Int("bytes", size).
		Dur("duration", duration).
		Str("remote", r.RemoteAddr).
		Msg("request")
}
