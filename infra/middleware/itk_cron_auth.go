package middleware

import (
	"crypto/subtle"

	"itk_server/pkg/apperr"

	"github.com/gofiber/fiber/v2"
)

// CronAuth guards pipeline trigger endpoints with a shared secret. The
// scheduler sends it in the X-Cron-Secret header; a secret query parameter
// is accepted for schedulers that cannot set headers.
func CronAuth(secret string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		provided := c.Get("X-Cron-Secret")
		if provided == "" {
			provided = c.Query("secret")
		}

		if secret == "" || subtle.ConstantTimeCompare([]byte(provided), []byte(secret)) != 1 {
			return apperr.Unauthorized("invalid or missing cron secret")
		}
		return c.Next()
	}
}
