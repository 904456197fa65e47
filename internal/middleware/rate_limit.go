package middleware

import (
	"math"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"

	"github.com/noah-isme/dismissal-api/internal/utils"
)

// RateLimitMessage is returned when a client submits faster than allowed.
const RateLimitMessage = "요청이 너무 많습니다. 잠시 후 다시 시도해주세요."

// RateLimit throttles a route to max requests per window for each client IP.
// Rejected requests carry Retry-After in whole seconds.
func RateLimit(identifier string, max int, window time.Duration) fiber.Handler {
	if max <= 0 {
		max = 10
	}
	if window <= 0 {
		window = time.Second
	}
	retryAfter := strconv.Itoa(int(math.Ceil(window.Seconds())))

	return limiter.New(limiter.Config{
		Max:        max,
		Expiration: window,
		KeyGenerator: func(c *fiber.Ctx) string {
			return identifier + ":" + c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			c.Set(fiber.HeaderRetryAfter, retryAfter)
			return utils.SendError(c, fiber.StatusTooManyRequests, RateLimitMessage)
		},
	})
}
