package echoapi

import (
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/nae-imUam/coaching-app-api/core"
)

const rateLimitKeyPrefix = "ratelimit:"

// rateLimit returns a middleware factory allowing conf.Attempts requests per client IP
// and scope within a fixed window of conf.Window.
func rateLimit(cache core.Cache, conf core.RateLimitConfig) func(scope string) echo.MiddlewareFunc {
	return func(scope string) echo.MiddlewareFunc {
		return func(next echo.HandlerFunc) echo.HandlerFunc {
			return func(ctx echo.Context) error {
				if conf.Attempts <= 0 {
					return next(ctx)
				}

				reqCtx := ctx.Request().Context()
				key := rateLimitKeyPrefix + scope + ":" + ctx.RealIP()
				n, err := cache.Incr(reqCtx, key, conf.Window)
				if err != nil {
					return errors.Wrap(err, "counting attempts")
				}
				if n > int64(conf.Attempts) {
					if ttl, err := cache.TTL(reqCtx, key); err == nil && ttl > 0 {
						ctx.Response().Header().Set("Retry-After", strconv.Itoa(int(ttl.Seconds())+1))
					}
					return errTooManyAttempts
				}
				return next(ctx)
			}
		}
	}
}
