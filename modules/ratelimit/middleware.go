package ratelimit

import (
	"fmt"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
)

// Middleware provides the Fiber rate limiting handlers.
type Middleware struct {
	speechLimiter *SlidingWindowLimiter
	loginLimiter  *SlidingWindowLimiter
}

// NewMiddleware creates the middleware over a shared Redis client.
func NewMiddleware(client *redis.Client, keyPrefix string) *Middleware {
	return &Middleware{
		speechLimiter: NewSlidingWindowLimiter(client, DefaultSpeechConfig(), keyPrefix+"speech:"),
		loginLimiter:  NewSlidingWindowLimiter(client, DefaultLoginConfig(), keyPrefix+"login:"),
	}
}

// SpeechRateLimit limits voice analysis per authenticated player, falling
// back to the client IP before authentication.
func (m *Middleware) SpeechRateLimit() fiber.Handler {
	return m.limit(m.speechLimiter, func(c *fiber.Ctx) string {
		if username, ok := c.Locals("username").(string); ok && username != "" {
			return "user:" + username
		}
		return "ip:" + c.IP()
	})
}

// LoginRateLimit limits login attempts per client IP.
func (m *Middleware) LoginRateLimit() fiber.Handler {
	return m.limit(m.loginLimiter, func(c *fiber.Ctx) string {
		return "ip:" + c.IP()
	})
}

func (m *Middleware) limit(limiter *SlidingWindowLimiter, keyFn func(*fiber.Ctx) string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		result, err := limiter.Allow(c.Context(), keyFn(c))
		if err != nil {
			// Redis trouble must not take the endpoint down.
			c.Set("X-RateLimit-Error", err.Error())
			return c.Next()
		}

		c.Set("X-RateLimit-Limit", strconv.Itoa(limiter.GetConfig().RequestsPerWindow))
		c.Set("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))
		c.Set("X-RateLimit-Reset", strconv.FormatInt(result.ResetAt.Unix(), 10))

		if !result.Allowed {
			retryAfter := int(result.RetryAfter.Seconds())
			if retryAfter < 1 {
				retryAfter = 1
			}
			c.Set("Retry-After", strconv.Itoa(retryAfter))
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error":       "Too Many Requests",
				"message":     fmt.Sprintf("Rate limit exceeded. Please retry after %d seconds.", retryAfter),
				"retry_after": retryAfter,
			})
		}
		return c.Next()
	}
}
