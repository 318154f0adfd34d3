package middleware

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"github.com/lexdraft/lexdraft/backend/go-services/pkg/logger"
	"github.com/lexdraft/lexdraft/backend/go-services/pkg/metrics"
)

// RedisRateLimitMiddleware is a fixed-window limiter shared by every API
// replica. It INCRs a per-window key and allows floor(rps*window)+burst
// requests per window. Keys follow rateKey.
func RedisRateLimitMiddleware(client *redis.Client, rps float64, burst int, window time.Duration) gin.HandlerFunc {
	if client == nil {
		return RateLimitMiddleware(rps, burst)
	}
	windowSeconds := int(window.Seconds())
	if windowSeconds <= 0 {
		windowSeconds = 1
	}
	allowedPerWindow := int(rps*float64(windowSeconds)) + burst
	return func(c *gin.Context) {
		bucket := time.Now().Unix() / int64(windowSeconds)
		redisKey := fmt.Sprintf("rl:%s:%d", rateKey(c), bucket)

		cnt, err := client.Incr(c.Request.Context(), redisKey).Result()
		if err != nil {
			// fail open while Redis is unavailable
			logger.Warnf("rate limit redis: %v", err)
			metrics.RateLimitAllowed.WithLabelValues("redis").Inc()
			c.Next()
			return
		}
		if cnt == 1 {
			_ = client.Expire(c.Request.Context(), redisKey, time.Duration(windowSeconds+1)*time.Second).Err()
		}
		remaining := allowedPerWindow - int(cnt)
		if remaining < 0 {
			remaining = 0
		}
		c.Header("X-RateLimit-Limit", strconv.Itoa(allowedPerWindow))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(remaining))
		if int(cnt) > allowedPerWindow {
			c.Header("Retry-After", strconv.Itoa(windowSeconds))
			metrics.RateLimitRejected.WithLabelValues("redis").Inc()
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "Rate limit exceeded"})
			return
		}
		metrics.RateLimitAllowed.WithLabelValues("redis").Inc()
		c.Next()
	}
}
