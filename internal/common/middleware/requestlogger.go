// Package middleware provides HTTP middleware for request logging, timeout handling
// and panic recovery, logging through zerolog with per-request ids.
package middleware

import (
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/tansive/backoffice/internal/common/httpx"
	"github.com/tansive/backoffice/internal/common/logtrace"
	"github.com/tansive/backoffice/internal/common/uuid"
)

// RequestLogger logs each request and its completion. The caller's X-Request-ID is
// reused when present, otherwise a new one is generated. The id is stored on the
// context and echoed in the response headers.
func RequestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		requestID := r.Header.Get(logtrace.RequestIDHeader)
		if requestID == "" {
			requestID = newRequestId()
		}
		ctx := logtrace.WithRequestId(r.Context(), requestID)
		ctx = log.With().Str("request_id", requestID).Logger().WithContext(ctx)

		w.Header().Set(logtrace.RequestIDHeader, requestID)
		rw := httpx.NewResponseWriter(w)

		log.Ctx(ctx).Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Str("remote_ip", r.RemoteAddr).
			Msg("incoming request")

		defer func() {
			log.Ctx(ctx).Info().
				Int("status", rw.Status()).
				Str("duration", fmt.Sprintf("%dms", time.Since(start).Milliseconds())).
				Msg("request completed")
		}()

		next.ServeHTTP(rw, r.WithContext(ctx))
	})
}

func newRequestId() string {
	u, err := uuid.NewRandom()
	if err == nil {
		return u.String()
	}
	return fmt.Sprintf("fallback-%d", time.Now().UnixNano())
}
