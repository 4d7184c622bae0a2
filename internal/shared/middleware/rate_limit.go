package middleware

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"photobooth-backend/internal/shared/response"
	"photobooth-backend/pkg/cache"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

const rateLimitWindow = time.Minute

// RateLimit giới hạn số request mỗi phút theo client IP (fixed window trên cache).
// Cache lỗi thì cho request đi qua.
func RateLimit(c cache.Cache, scope string, perMinute int) gin.HandlerFunc {
	return rateLimit(c, scope, perMinute, time.Now)
}

func rateLimit(store cache.Cache, scope string, perMinute int, now func() time.Time) gin.HandlerFunc {
	return func(c *gin.Context) {
		if perMinute <= 0 {
			c.Next()
			return
		}

		window := now().Truncate(rateLimitWindow).Unix()
		key := fmt.Sprintf("ratelimit:%s:%s:%d", scope, c.ClientIP(), window)

		ctx, cancel := context.WithTimeout(c.Request.Context(), 500*time.Millisecond)
		defer cancel()

		n, err := store.Increment(ctx, key)
		if err != nil {
			log.Warn().Err(err).Str("scope", scope).Msg("[RateLimit] Cache unavailable, allowing request")
			c.Next()
			return
		}
		if n == 1 {
			if err := store.Expire(ctx, key, rateLimitWindow); err != nil {
				log.Warn().Err(err).Str("key", key).Msg("[RateLimit] Failed to set expiry")
			}
		}

		remaining := int64(perMinute) - n
		if remaining < 0 {
			remaining = 0
		}
		c.Header("X-RateLimit-Limit", strconv.Itoa(perMinute))
		c.Header("X-RateLimit-Remaining", strconv.FormatInt(remaining, 10))

		if n > int64(perMinute) {
			retryAfter := time.Unix(window, 0).Add(rateLimitWindow).Sub(now())
			c.Header("Retry-After", strconv.Itoa(int(retryAfter.Seconds())+1))
			response.TooManyRequests(c, "Too many uploads, please slow down")
			return
		}

		c.Next()
	}
}
