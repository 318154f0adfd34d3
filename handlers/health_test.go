package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHealthAndReady(t *testing.T) {
	gin.SetMode(gin.TestMode)
	healthy := true
	g := gin.New()
	NewHealth(map[string]Check{
		"versions": func(context.Context) error { return nil },
		"redis": func(context.Context) error {
			if healthy {
				return nil
			}
			return errors.New("connection refused")
		},
	}).Register(g)

	w := httptest.NewRecorder()
	g.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "healthy", w.Body.String())

	w = httptest.NewRecorder()
	g.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ready", nil))
	require.Equal(t, http.StatusOK, w.Code)

	healthy = false
	w = httptest.NewRecorder()
	g.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ready", nil))
	require.Equal(t, http.StatusServiceUnavailable, w.Code)
	var body struct {
		Status string            `json:"status"`
		Deps   map[string]string `json:"deps"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "not_ready", body.Status)
	assert.Equal(t, "ok", body.Deps["versions"])
	assert.Equal(t, "connection refused", body.Deps["redis"])
}

func TestReadyWithoutChecks(t *testing.T) {
	g := gin.New()
	NewHealth(nil).Register(g)
	w := httptest.NewRecorder()
	g.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ready", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}
