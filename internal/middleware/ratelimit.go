package middleware

import (
	"log/slog"
	"math"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/simp-lee/ginx"

	"github.com/simp-lee/escola/internal/pkg"
)

const rateLimited = "muitas tentativas, aguarde um instante"

// RateLimiter hands out one token bucket per client IP. Buckets idle for
// longer than the configured time are evicted by the store itself.
type RateLimiter struct {
	store   ginx.RateLimitStore
	handler gin.HandlerFunc
}

// NewRateLimiter allows rps requests per second per IP with the given burst.
// Fractional rates are rounded up to the next whole request.
func NewRateLimiter(rps float64, burst int, idle time.Duration) *RateLimiter {
	store := ginx.NewMemoryLimiterStore(idle)
	handler := ginx.NewChain().
		Use(rateLimitFormat).
		Use(ginx.RateLimit(effectiveRateLimitRPS(rps), burst, ginx.WithIP(), ginx.WithStore(store))).
		Build()
	return &RateLimiter{store: store, handler: handler}
}

// Middleware rejects requests over the limit with 429 and Retry-After.
// htmx requests get a warning toast and no swap; others get a JSON envelope.
func (l *RateLimiter) Middleware() gin.HandlerFunc { return l.handler }

// Close stops the store's eviction loop.
func (l *RateLimiter) Close() error { return l.store.Close() }

func effectiveRateLimitRPS(rps float64) int {
	return max(1, int(math.Ceil(rps)))
}

// rateLimitFormat installs the error formatter used when ginx rejects a
// request. It runs before the body is written, so headers set here reach
// the client.
func rateLimitFormat(next gin.HandlerFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		ginx.SetErrorFormatter(c, func(status int, _ string) any {
			slog.WarnContext(c.Request.Context(), "rate limit exceeded", slog.String("client_ip", c.ClientIP()))
			if pkg.IsHTMX(c) {
				pkg.SetToast(c, rateLimited, pkg.ToastWarning)
				c.Header("HX-Reswap", "none")
			}
			return pkg.Response{Code: status, Message: rateLimited}
		})
		next(c)
	}
}
