package middleware

import (
	"net/http"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
)

const defaultPayoutsPerMinute = 10

// PayoutRateLimit limits payout submissions per device, falling back to the
// client IP when the body carries no device_id. It fails open when Redis is
// absent or erroring.
func PayoutRateLimit(cache *redis.Client, maxPerMin int) fiber.Handler {
	if maxPerMin <= 0 {
		maxPerMin = defaultPayoutsPerMinute
	}
	return func(c *fiber.Ctx) error {
		if cache == nil || c.Method() != fiber.MethodPost {
			return c.Next()
		}

		var req struct {
			DeviceID string `json:"device_id"`
		}
		_ = c.BodyParser(&req)
		subject := strings.TrimSpace(req.DeviceID)
		if subject == "" {
			subject = c.IP()
		}

		key := "rl:payout:" + subject
		cnt, err := cache.Incr(c.UserContext(), key).Result()
		if err != nil {
			return c.Next()
		}
		if cnt == 1 {
			cache.Expire(c.UserContext(), key, time.Minute)
		}
		if cnt > int64(maxPerMin) {
			return fiber.NewError(http.StatusTooManyRequests, "Too many payout requests, try again later")
		}
		return c.Next()
	}
}
