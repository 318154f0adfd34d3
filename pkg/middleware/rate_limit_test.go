package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"github.com/lexdraft/lexdraft/backend/go-services/pkg/metrics"
)

func TestRateLimitMiddleware_AllowsUnderLimit(t *testing.T) {
	before := testutil.ToFloat64(metrics.RateLimitAllowed.WithLabelValues("memory"))
	r := gin.New()
	r.Use(RateLimitMiddleware(10, 2))
	r.GET("/ok", func(c *gin.Context) { c.JSON(200, gin.H{"ok": true}) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("GET", "/ok", nil))
	w2 := httptest.NewRecorder()
	r.ServeHTTP(w2, httptest.NewRequest("GET", "/ok", nil))

	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, http.StatusOK, w2.Code)
	require.Equal(t, before+2, testutil.ToFloat64(metrics.RateLimitAllowed.WithLabelValues("memory")))
}

func TestRateLimitMiddleware_BlocksWhenExceeded(t *testing.T) {
	r := gin.New()
	r.Use(RateLimitMiddleware(5, 1))
	r.GET("/limited", func(c *gin.Context) { c.JSON(200, gin.H{"ok": true}) })

	w1 := httptest.NewRecorder()
	r.ServeHTTP(w1, httptest.NewRequest("GET", "/limited", nil))
	require.Equal(t, http.StatusOK, w1.Code)

	w2 := httptest.NewRecorder()
	r.ServeHTTP(w2, httptest.NewRequest("GET", "/limited", nil))
	require.Equal(t, http.StatusTooManyRequests, w2.Code)

	// one token refills every 200ms
	time.Sleep(300 * time.Millisecond)
	w3 := httptest.NewRecorder()
	r.ServeHTTP(w3, httptest.NewRequest("GET", "/limited", nil))
	require.Equal(t, http.StatusOK, w3.Code)
}

func TestRateLimitMiddleware_UsesSubjectWhenPresent(t *testing.T) {
	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set("sub", c.GetHeader("X-Test-Sub"))
		c.Next()
	})
	r.Use(RateLimitMiddleware(0.5, 1))
	r.GET("/u", func(c *gin.Context) { c.JSON(200, gin.H{"ok": true}) })

	send := func(sub string) int {
		req := httptest.NewRequest("GET", "/u", nil)
		req.Header.Set("X-Test-Sub", sub)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w.Code
	}
	require.Equal(t, http.StatusOK, send("user-123"))
	require.Equal(t, http.StatusTooManyRequests, send("user-123"))
	// same IP, different subject: separate bucket
	require.Equal(t, http.StatusOK, send("user-456"))
}
