package telegram

import (
	"net/http"
	"time"

	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/aruniyer/ledger-bot/internal/logger"
)

// RequestLogger logs one structured line per HTTP request and stores a
// request-scoped logger in the context, so handlers downstream tag their own
// lines with the request id chi's RequestID middleware assigned.
func RequestLogger(log zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			wrapped := chimw.NewWrapResponseWriter(w, r.ProtoMajor)

			reqLog := log.With().
				Str("request_id", chimw.GetReqID(r.Context())).
				Logger()
			ctx := logger.WithContext(r.Context(), reqLog)

			next.ServeHTTP(wrapped, r.WithContext(ctx))

			reqLog.Info().
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", wrapped.Status()).
				Dur("duration", time.Since(start)).
				Msg("HTTP request")
		})
	}
}
