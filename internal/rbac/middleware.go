package rbac

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
)

// GinKey is the gin context key holding the request's Context.
const GinKey = "rbac"

// RoleSource looks up the role of an authenticated subject.
type RoleSource interface {
	RoleFor(ctx context.Context, subject string) (Role, error)
}

// Resolve builds the request's Context from the "sub" claim set by the auth
// middleware and stores it both on the gin context and the request context.
func Resolve(src RoleSource) gin.HandlerFunc {
	return func(c *gin.Context) {
		sub := c.GetString("sub")
		if sub == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthenticated"})
			return
		}
		role, err := src.RoleFor(c.Request.Context(), sub)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "role lookup failed"})
			return
		}
		rc := Context{Subject: sub, Role: role}
		c.Set(GinKey, rc)
		c.Request = c.Request.WithContext(WithContext(c.Request.Context(), rc))
		c.Next()
	}
}

// Require aborts with 403 unless the resolved Context grants perm.
func Require(perm Permission) gin.HandlerFunc {
	return func(c *gin.Context) {
		rc, ok := Current(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthenticated"})
			return
		}
		if err := rc.Check(perm); err != nil {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "forbidden", "permission": perm.String()})
			return
		}
		c.Next()
	}
}

func Current(c *gin.Context) (Context, bool) {
	v, ok := c.Get(GinKey)
	if !ok {
		return FromContext(c.Request.Context())
	}
	rc, ok := v.(Context)
	return rc, ok
}
