package middleware

import (
	"context"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/tansive/backoffice/internal/common/httpx"
)

// SetTimeout bounds handler execution. Handlers see the deadline on their context;
// if it passes before they finish and nothing was written yet, a timeout error is sent.
func SetTimeout(timeout time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, cancel := context.WithTimeout(r.Context(), timeout)
			defer cancel()

			rw := &lockedWriter{rw: httpx.NewResponseWriter(w)}
			r = r.WithContext(ctx)

			done := make(chan struct{})
			go func() {
				defer func() {
					if p := recover(); p != nil {
						log.Ctx(ctx).Error().Msgf("panic in handler: %v", p)
					}
					close(done)
				}()
				next.ServeHTTP(rw, r)
			}()

			select {
			case <-done:
			case <-ctx.Done():
				if rw.claimTimeout() {
					httpx.ErrRequestTimeout().Send(w)
				}
				log.Ctx(ctx).Error().Msg("request timed out")
			}
		})
	}
}
