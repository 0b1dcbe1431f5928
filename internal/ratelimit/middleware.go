package ratelimit

import (
	"fmt"
	"math"
	"net/http"
	"strconv"

	"github.com/campushub/gateway/internal/interfaces"
	"github.com/campushub/gateway/internal/metrics"
	"golang.org/x/time/rate"
)

// Middleware enforces a quota per client for a named scope. Denied requests
// get 429 with a Retry-After hint computed from the window's remaining time.
func Middleware(limiter interfaces.Limiter, quota interfaces.Quota, scope string, collector *metrics.Collector, logger interfaces.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := ScopedKey(scope, ClientKey(r))

			decision, err := limiter.Check(r.Context(), key, quota)
			if err != nil && logger != nil {
				// Fail-open path: the limiter already allowed the request
				logger.Warn("Rate limit check degraded", map[string]any{
					"scope": scope,
					"error": err.Error(),
				})
			}

			if !decision.Allowed {
				collector.RateLimited(scope)
				if logger != nil {
					logger.Debug("Rate limit exceeded", map[string]any{
						"scope":       scope,
						"key":         key,
						"retry_after": decision.RetryAfter.String(),
					})
				}

				retryAfter := int(math.Ceil(decision.RetryAfter.Seconds()))
				if retryAfter < 1 {
					retryAfter = 1
				}
				w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
				w.Header().Set("X-RateLimit-Limit", strconv.Itoa(quota.Max()))
				w.Header().Set("X-RateLimit-Remaining", "0")
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusTooManyRequests)
				_, _ = fmt.Fprintf(w, `{"detail":"rate limit exceeded","retry_after":%d}`, retryAfter)
				return
			}

			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(quota.Max()))
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(decision.Remaining))
			next.ServeHTTP(w, r)
		})
	}
}

// Global is a token-bucket ceiling over every inbound request, independent
// of per-client quotas
type Global struct {
	limiter *rate.Limiter
}

// NewGlobal creates the gateway-wide ceiling; rps <= 0 disables it
func NewGlobal(rps, burst int) *Global {
	if rps <= 0 {
		return &Global{}
	}
	if burst < rps {
		burst = rps
	}
	return &Global{
		limiter: rate.NewLimiter(rate.Limit(rps), burst),
	}
}

// Middleware sheds requests above the global ceiling with 429
func (g *Global) Middleware(collector *metrics.Collector) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if g.limiter == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !g.limiter.Allow() {
				collector.RateLimited("global")
				w.Header().Set("Retry-After", "1")
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusTooManyRequests)
				_, _ = w.Write([]byte(`{"detail":"gateway overloaded"}`))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
