package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
)

// MoveRateLimit limits move submissions per player: the signed-in username,
// or the client IP for guests. Runs after OptionalJWT.
func MoveRateLimit(maxMoves int, window time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		if redisClient == nil {
			// Redis not configured, fail-open
			c.Next()
			return
		}

		ident := "ip:" + c.ClientIP()
		if who := Identity(c); who != nil {
			ident = "user:" + *who
		}

		key := "move_rl:" + ident + ":" + strconv.FormatInt(int64(window.Seconds()), 10)
		ctx := c.Request.Context()

		val, err := redisClient.Incr(ctx, key).Result()
		if err != nil {
			c.Header("X-MoveRateLimit-Error", "redis-error")
			c.Next()
			return
		}

		if val == 1 {
			redisClient.Expire(ctx, key, window)
		}

		c.Header("X-MoveRateLimit-Limit", strconv.Itoa(maxMoves))
		c.Header("X-MoveRateLimit-Remaining", strconv.FormatInt(max(0, int64(maxMoves)-val), 10))

		if val > int64(maxMoves) {
			RLBlocked.WithLabelValues("move:"+c.FullPath(), "redis").Inc()
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error":       "move rate limit exceeded",
				"retry_after": int(window.Seconds()),
			})
			return
		}

		RLRequests.WithLabelValues("move:"+c.FullPath(), "redis").Inc()
		c.Next()
	}
}
