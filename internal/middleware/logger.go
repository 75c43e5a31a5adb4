package middleware

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/hlog"
)

// RequestLogger stores a request-scoped logger in the context, tagged with the
// chi request id and the calling actor, and writes one access line per request.
// Server errors are logged at error level.
func RequestLogger(log zerolog.Logger) func(next http.Handler) http.Handler {
	access := hlog.AccessHandler(func(r *http.Request, status, size int, duration time.Duration) {
		l := hlog.FromRequest(r)
		event := l.Info()
		if status >= http.StatusInternalServerError {
			event = l.Error()
		}
		event.
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Str("query", r.URL.RawQuery).
			Str("ip", r.RemoteAddr).
			Str("user_agent", r.UserAgent()).
			Int("status", status).
			Int("bytes", size).
			Dur("duration", duration).
			Msg("HTTP request")
	})

	return func(next http.Handler) http.Handler {
		return hlog.NewHandler(log)(tagRequest(access(next)))
	}
}

func tagRequest(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := middleware.GetReqID(r.Context())
		if reqID == "" {
			reqID = "unknown"
		}

		zerolog.Ctx(r.Context()).UpdateContext(func(c zerolog.Context) zerolog.Context {
			return c.Str("request_id", reqID).Str("actor_id", r.Header.Get(HeaderUserID))
		})

		next.ServeHTTP(w, r)
	})
}
