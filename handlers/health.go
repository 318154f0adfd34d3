package handlers

import (
	"context"
	"net/http"
	"sort"
	"time"

	"github.com/gin-gonic/gin"
)

// Check probes one dependency. A nil error means it is usable.
type Check func(ctx context.Context) error

// Health serves liveness and readiness. Readiness is 200 only when every
// registered check passes.
type Health struct {
	started time.Time
	timeout time.Duration
	checks  map[string]Check
}

func NewHealth(checks map[string]Check) *Health {
	if checks == nil {
		checks = map[string]Check{}
	}
	return &Health{started: time.Now(), timeout: 2 * time.Second, checks: checks}
}

func (h *Health) Register(r gin.IRouter) {
	r.GET("/health", func(c *gin.Context) {
		c.String(http.StatusOK, "healthy")
	})
	r.GET("/ready", h.ready)
}

func (h *Health) ready(c *gin.Context) {
	names := make([]string, 0, len(h.checks))
	for name := range h.checks {
		names = append(names, name)
	}
	sort.Strings(names)

	ready := true
	deps := make(map[string]string, len(names))
	for _, name := range names {
		ctx, cancel := context.WithTimeout(c.Request.Context(), h.timeout)
		err := h.checks[name](ctx)
		cancel()
		if err != nil {
			ready = false
			deps[name] = err.Error()
			continue
		}
		deps[name] = "ok"
	}

	body := gin.H{"deps": deps, "uptime": time.Since(h.started).Round(time.Second).String()}
	if !ready {
		body["status"] = "not_ready"
		c.JSON(http.StatusServiceUnavailable, body)
		return
	}
	body["status"] = "ready"
	c.JSON(http.StatusOK, body)
}
