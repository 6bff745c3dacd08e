package middleware

import (
	"net/http"
	"time"

	"github.com/frahmantamala/plant-maintenance/internal/auth"
	"github.com/frahmantamala/plant-maintenance/internal/metrics"
	"github.com/frahmantamala/plant-maintenance/pkg/logger"
	"github.com/go-chi/httprate"
)

// LoginRateLimit caps sign-in attempts per client IP. Rejected attempts are answered
// with the TooManyRequests auth error so clients see the same shape as other sign-in failures.
func LoginRateLimit(requests int, window time.Duration) func(http.Handler) http.Handler {
	if requests <= 0 {
		requests = 10
	}
	if window <= 0 {
		window = time.Minute
	}

	return httprate.Limit(requests, window,
		httprate.WithKeyFuncs(httprate.KeyByIP),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			metrics.LoginAttempts.WithLabelValues(string(auth.KindTooManyRequests)).Inc()
			logger.From(r.Context()).Warn("login rate limit exceeded", "remote_addr", r.RemoteAddr)
			writeAppError(w, auth.ErrTooManyRequests)
		}),
	)
}
