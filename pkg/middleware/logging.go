package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const RequestIDHeader = "X-Request-ID"

// RequestLogger assigns a request id and logs one line per request.
// 5xx responses log at error level, 4xx at warn.
func RequestLogger(l *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		rid := c.GetHeader(RequestIDHeader)
		if rid == "" {
			rid = uuid.NewString()
		}
		c.Set("requestId", rid)
		c.Header(RequestIDHeader, rid)

		c.Next()

		status := c.Writer.Status()
		kv := []interface{}{
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", status,
			"duration", time.Since(start),
			"requestId", rid,
		}
		if sub := c.GetString("sub"); sub != "" {
			kv = append(kv, "sub", sub)
		}
		if len(c.Errors) > 0 {
			kv = append(kv, "errors", c.Errors.String())
		}
		switch {
		case status >= 500:
			l.Errorw("request", kv...)
		case status >= 400:
			l.Warnw("request", kv...)
		default:
			l.Infow("request", kv...)
		}
	}
}
