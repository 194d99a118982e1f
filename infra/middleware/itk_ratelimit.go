package middleware

import (
	"fmt"
	"time"

	"itk_server/pkg/apperr"
	"itk_server/pkg/ratelimit"

	"github.com/gofiber/fiber/v2"
)

// RateLimit throttles an endpoint per client IP using the shared Redis
// window. Intended for the inbound email webhook, which is exposed to the
// public internet.
func RateLimit(limiter *ratelimit.SlidingWindowLimiter, scope string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		key := fmt.Sprintf("%s:%s", scope, c.IP())
		allowed, wait := limiter.Allow(c.UserContext(), key)
		if !allowed {
			if wait > 0 {
				c.Set("Retry-After", fmt.Sprintf("%d", int(wait.Round(time.Second).Seconds())))
			}
			return apperr.New(apperr.CodeRateLimited, "too many requests", fiber.StatusTooManyRequests)
		}
		return c.Next()
	}
}
