package middleware

import (
	"fmt"
	"time"

	"provelt-badge-service/services"

	"github.com/gofiber/fiber/v2"
)

// RateLimitMiddleware guards an endpoint with a fixed-window limiter.
// Identity is the authenticated user when present, otherwise the client
// network origin.
func RateLimitMiddleware(limiter *services.RateLimiter, window time.Duration, maxRequests int) fiber.Handler {
	return func(c *fiber.Ctx) error {
		identifier, _ := c.Locals("user_id").(string)
		if identifier == "" {
			identifier = c.IP()
		}

		result := limiter.Check(identifier, window, maxRequests)

		c.Set("X-RateLimit-Limit", fmt.Sprintf("%d", maxRequests))
		c.Set("X-RateLimit-Remaining", fmt.Sprintf("%d", result.Remaining))
		c.Set("X-RateLimit-Reset", fmt.Sprintf("%d", result.ResetTime.Unix()))

		if !result.Allowed {
			c.Set("Retry-After", fmt.Sprintf("%d", int(result.RetryAfter.Seconds())))
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error":       "too many requests",
				"retry_after": int(result.RetryAfter.Seconds()),
			})
		}

		return c.Next()
	}
}
