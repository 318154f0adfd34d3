package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestRequestLogger(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	r := gin.New()
	r.Use(RequestLogger(zap.New(core).Sugar()))
	r.GET("/ok", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/boom", func(c *gin.Context) { c.Status(http.StatusInternalServerError) })

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/ok", nil)
	req.Header.Set(RequestIDHeader, "rid-1")
	r.ServeHTTP(w, req)
	require.Equal(t, "rid-1", w.Header().Get(RequestIDHeader))

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/boom", nil))
	require.NotEmpty(t, w.Header().Get(RequestIDHeader))

	entries := logs.All()
	require.Len(t, entries, 2)
	require.Equal(t, zapcore.InfoLevel, entries[0].Level)
	require.Equal(t, "rid-1", entries[0].ContextMap()["requestId"])
	require.Equal(t, zapcore.ErrorLevel, entries[1].Level)
	require.EqualValues(t, 500, entries[1].ContextMap()["status"])
}
