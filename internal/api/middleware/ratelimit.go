package middleware

import (
	"context"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/99minutos/auth-service/internal/api/metrics"
	ratelimit "github.com/99minutos/auth-service/internal/infrastructure/db/redis"
)

// Limiter takes a token from a caller's bucket. redis.RateLimiter implements it.
type Limiter interface {
	Key(parts ...string) string
	Allow(ctx context.Context, key string) (ratelimit.Decision, error)
}

// RateLimit rejects callers that exhausted their bucket with 429. The bucket is keyed by
// client IP and route. A nil limiter disables the check and a limiter error lets the
// request through.
func RateLimit(l Limiter, log zerolog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		if l == nil {
			return next
		}
		return func(c echo.Context) error {
			route := c.Request().Method + " " + c.Path()
			key := l.Key("ip", c.RealIP(), route)

			d, err := l.Allow(c.Request().Context(), key)
			if err != nil {
				log.Warn().Err(err).Str("key", key).Msg("rate limiter unavailable, allowing request")
				return next(c)
			}

			h := c.Response().Header()
			h.Set("X-RateLimit-Limit", strconv.Itoa(d.Limit))
			h.Set("X-RateLimit-Remaining", strconv.FormatInt(d.Remaining, 10))
			if !d.Allowed {
				h.Set("Retry-After", strconv.Itoa(d.RetryAfterSeconds()))
				metrics.RateLimitedTotal.WithLabelValues(c.Path()).Inc()
				return echo.NewHTTPError(http.StatusTooManyRequests, "Too many requests")
			}
			return next(c)
		}
	}
}
