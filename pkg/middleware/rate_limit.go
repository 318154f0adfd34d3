package middleware

import (
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/lexdraft/lexdraft/backend/go-services/pkg/metrics"
)

// rateKey prefers the authenticated subject so users behind one NAT do not
// share a bucket; anonymous requests fall back to the client IP.
func rateKey(c *gin.Context) string {
	if sub := c.GetString("sub"); sub != "" {
		return "sub:" + sub
	}
	if v, ok := c.Get("claims"); ok {
		if cm, ok := v.(map[string]interface{}); ok {
			if sub, ok := cm["sub"].(string); ok && sub != "" {
				return "sub:" + sub
			}
		}
	}
	ip := c.ClientIP()
	if ip == "" {
		ip = "unknown"
	}
	return "ip:" + ip
}

// RateLimitMiddleware enforces an in-process token bucket per key.
// rps = allowed events per second, burst = maximum tokens in bucket.
// Every call gets its own bucket set.
func RateLimitMiddleware(rps float64, burst int) gin.HandlerFunc {
	var buckets sync.Map // key -> *rate.Limiter
	return func(c *gin.Context) {
		key := rateKey(c)
		v, _ := buckets.LoadOrStore(key, rate.NewLimiter(rate.Limit(rps), burst))
		if !v.(*rate.Limiter).Allow() {
			c.Header("Retry-After", "1")
			metrics.RateLimitRejected.WithLabelValues("memory").Inc()
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "Rate limit exceeded"})
			return
		}
		metrics.RateLimitAllowed.WithLabelValues("memory").Inc()
		c.Next()
	}
}
