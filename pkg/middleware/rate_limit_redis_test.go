package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	mr "github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func TestRedisRateLimitMiddleware_Basic(t *testing.T) {
	m, err := mr.Run()
	require.NoError(t, err)
	defer m.Close()

	client := redis.NewClient(&redis.Options{Addr: m.Addr()})

	r := gin.New()
	r.Use(RedisRateLimitMiddleware(client, 0, 1, time.Minute)) // one request per minute
	r.GET("/r", func(c *gin.Context) { c.JSON(200, gin.H{"ok": true}) })

	w1 := httptest.NewRecorder()
	r.ServeHTTP(w1, httptest.NewRequest("GET", "/r", nil))
	require.Equal(t, http.StatusOK, w1.Code)
	require.Equal(t, "1", w1.Header().Get("X-RateLimit-Limit"))
	require.Equal(t, "0", w1.Header().Get("X-RateLimit-Remaining"))

	w2 := httptest.NewRecorder()
	r.ServeHTTP(w2, httptest.NewRequest("GET", "/r", nil))
	require.Equal(t, http.StatusTooManyRequests, w2.Code)
	require.Equal(t, "60", w2.Header().Get("Retry-After"))

	// window key expires
	m.FastForward(2 * time.Minute)
	w3 := httptest.NewRecorder()
	r.ServeHTTP(w3, httptest.NewRequest("GET", "/r", nil))
	require.Equal(t, http.StatusOK, w3.Code)
}

func TestRedisRateLimitMiddleware_FailsOpen(t *testing.T) {
	m, err := mr.Run()
	require.NoError(t, err)
	client := redis.NewClient(&redis.Options{Addr: m.Addr(), MaxRetries: -1})
	m.Close()

	r := gin.New()
	r.Use(RedisRateLimitMiddleware(client, 0, 1, time.Minute))
	r.GET("/r", func(c *gin.Context) { c.Status(http.StatusOK) })

	for i := 0; i < 3; i++ {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest("GET", "/r", nil))
		require.Equal(t, http.StatusOK, w.Code)
	}
}

func TestRedisRateLimitMiddleware_PerSubject(t *testing.T) {
	m := mr.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: m.Addr()})

	r := gin.New()
	r.Use(func(c *gin.Context) { c.Set("sub", c.GetHeader("X-Sub")); c.Next() })
	r.Use(RedisRateLimitMiddleware(client, 0, 2, time.Hour))
	r.GET("/r", func(c *gin.Context) { c.Status(http.StatusOK) })

	hit := func(sub string) int {
		req := httptest.NewRequest("GET", "/r", nil)
		req.Header.Set("X-Sub", sub)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w.Code
	}
	require.Equal(t, http.StatusOK, hit("alice"))
	require.Equal(t, http.StatusOK, hit("alice"))
	require.Equal(t, http.StatusTooManyRequests, hit("alice"))
	require.Equal(t, http.StatusOK, hit("bob"))
}
