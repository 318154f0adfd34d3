package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/lexdraft/lexdraft/backend/go-services/internal/auth"
	"github.com/lexdraft/lexdraft/backend/go-services/internal/models"
	"github.com/lexdraft/lexdraft/backend/go-services/internal/rbac"
	"github.com/lexdraft/lexdraft/backend/go-services/internal/users"
	"github.com/lexdraft/lexdraft/backend/go-services/pkg/logger"
	"github.com/lexdraft/lexdraft/backend/go-services/pkg/middleware"
)

// AuthHandler serves the identity endpoints of an authenticated caller.
// Login itself happens at the identity provider.
type AuthHandler struct {
	usersSvc *users.Service
	revoked  *auth.RevocationList
}

func NewAuthHandler(u *users.Service, revoked *auth.RevocationList) *AuthHandler {
	return &AuthHandler{usersSvc: u, revoked: revoked}
}

// Register mounts the routes on the authenticated /api/v1 group, after
// rbac.Resolve.
func (h *AuthHandler) Register(rg gin.IRouter) {
	rg.GET("/me", h.Me)
	rg.POST("/auth/logout", h.Logout)
	rg.PUT("/users/:sub/role", rbac.Require(rbac.P(rbac.ActionUpdate, rbac.ResourceUsers)), h.SetRole)
}

// Me records the caller from its token claims and returns the profile with
// the effective role and permissions.
func (h *AuthHandler) Me(c *gin.Context) {
	claims, _ := c.Get("claims")
	cm, _ := claims.(map[string]interface{})
	u, err := h.usersSvc.UpsertFromClaims(c.Request.Context(), cm)
	if err != nil {
		logger.Errorf("user upsert error: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "user upsert failed"})
		return
	}
	if u == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "token has no subject"})
		return
	}
	role, err := h.usersSvc.RoleFor(c.Request.Context(), u.Sub)
	if err != nil {
		logger.Errorf("role lookup error: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "role lookup failed"})
		return
	}
	perms := rbac.Permissions(role)
	names := make([]string, 0, len(perms))
	for _, p := range perms {
		names = append(names, p.String())
	}
	c.JSON(http.StatusOK, gin.H{"user": u, "role": role, "permissions": names})
}

// Logout revokes the presented access token until it expires.
func (h *AuthHandler) Logout(c *gin.Context) {
	if h.revoked == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "token revocation unavailable"})
		return
	}
	token, ok := middleware.BearerToken(c)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing bearer token"})
		return
	}
	exp, err := auth.ExpiryOf(token)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "token has no usable exp claim"})
		return
	}
	if err := h.revoked.Revoke(c.Request.Context(), token, time.Until(exp)); err != nil {
		logger.Errorf("revoke token: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to revoke access token"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "logged out"})
}

func (h *AuthHandler) SetRole(c *gin.Context) {
	var req struct {
		Role string `json:"role" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	role, err := rbac.ParseRole(req.Role)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	sub := c.Param("sub")
	if err := h.usersSvc.SetRole(c.Request.Context(), sub, role); err != nil {
		if errors.Is(err, users.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
			return
		}
		logger.Errorf("set role for %s: %v", sub, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to set role"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"sub": sub, "role": role})
}

// DevTokenHandler issues HS256 tokens for local development. It is only
// mounted outside production and when a JWT secret is configured.
type DevTokenHandler struct {
	secret string
	ttl    time.Duration
}

func NewDevTokenHandler(secret string, ttl time.Duration) *DevTokenHandler {
	return &DevTokenHandler{secret: secret, ttl: ttl}
}

func (h *DevTokenHandler) Register(rg gin.IRouter) {
	rg.POST("/auth/dev-token", h.Issue)
}

func (h *DevTokenHandler) Issue(c *gin.Context) {
	var req struct {
		Sub   string `json:"sub" binding:"required"`
		Email string `json:"email"`
		Name  string `json:"name"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	token, err := auth.IssueToken(h.secret, &models.User{Sub: req.Sub, Email: req.Email, Name: req.Name}, h.ttl)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create access token"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"accessToken": token, "expiresIn": int(h.ttl.Seconds())})
}
