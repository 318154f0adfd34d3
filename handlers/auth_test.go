package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	mr "github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lexdraft/lexdraft/backend/go-services/internal/auth"
	"github.com/lexdraft/lexdraft/backend/go-services/internal/models"
	"github.com/lexdraft/lexdraft/backend/go-services/internal/rbac"
	"github.com/lexdraft/lexdraft/backend/go-services/internal/users"
	"github.com/lexdraft/lexdraft/backend/go-services/pkg/middleware"
)

const testSecret = "handlers-test-secret-32-bytes-xxxx"

type authEnv struct {
	router *gin.Engine
	repo   *users.MemoryUserRepository
	redis  *mr.Miniredis
}

func newAuthEnv(t *testing.T, withRedis bool) *authEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)
	env := &authEnv{repo: users.NewMemoryUserRepository()}
	usersSvc := users.NewService(env.repo, rbac.RoleViewer)

	var revoked *auth.RevocationList
	if withRedis {
		env.redis = mr.RunT(t)
		client := redis.NewClient(&redis.Options{Addr: env.redis.Addr()})
		t.Cleanup(func() { _ = client.Close() })
		revoked = auth.NewRevocationList(client)
	}

	r := gin.New()
	NewDevTokenHandler(testSecret, time.Hour).Register(r.Group("/api/v1"))
	api := r.Group("/api/v1")
	api.Use(middleware.AuthMiddleware(auth.NewHS256Verifier(testSecret), revoked), rbac.Resolve(usersSvc))
	NewAuthHandler(usersSvc, revoked).Register(api)
	env.router = r
	return env
}

func (e *authEnv) do(method, path, token, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func (e *authEnv) token(t *testing.T, sub string) string {
	t.Helper()
	w := e.do(http.MethodPost, "/api/v1/auth/dev-token", "", `{"sub":"`+sub+`","email":"`+sub+`@example.com","name":"`+sub+`"}`)
	require.Equal(t, http.StatusOK, w.Code)
	var body struct {
		AccessToken string `json:"accessToken"`
		ExpiresIn   int    `json:"expiresIn"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.NotEmpty(t, body.AccessToken)
	assert.Equal(t, 3600, body.ExpiresIn)
	return body.AccessToken
}

func TestMe_RecordsUserWithDefaultRole(t *testing.T) {
	env := newAuthEnv(t, false)
	tok := env.token(t, "alice")

	w := env.do(http.MethodGet, "/api/v1/me", tok, "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var body struct {
		User        models.User `json:"user"`
		Role        rbac.Role   `json:"role"`
		Permissions []string    `json:"permissions"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "alice", body.User.Sub)
	assert.Equal(t, "alice@example.com", body.User.Email)
	assert.Equal(t, rbac.RoleViewer, body.Role)
	assert.ElementsMatch(t, []string{"read:documents", "read:templates"}, body.Permissions)

	u, err := env.repo.GetBySub(context.Background(), "alice")
	require.NoError(t, err)
	require.NotNil(t, u)
}

func TestMe_RequiresToken(t *testing.T) {
	env := newAuthEnv(t, false)
	w := env.do(http.MethodGet, "/api/v1/me", "", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	w = env.do(http.MethodGet, "/api/v1/me", "not-a-jwt", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestSetRole_AdminOnly(t *testing.T) {
	env := newAuthEnv(t, false)
	ctx := context.Background()
	_, err := env.repo.UpsertBySub(ctx, &models.User{Sub: "root", Role: string(rbac.RoleAdmin)})
	require.NoError(t, err)
	_, err = env.repo.UpsertBySub(ctx, &models.User{Sub: "bob"})
	require.NoError(t, err)

	bob := env.token(t, "bob")
	w := env.do(http.MethodPut, "/api/v1/users/bob/role", bob, `{"role":"admin"}`)
	assert.Equal(t, http.StatusForbidden, w.Code)

	root := env.token(t, "root")
	w = env.do(http.MethodPut, "/api/v1/users/bob/role", root, `{"role":"editor"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = env.do(http.MethodGet, "/api/v1/me", bob, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"role":"editor"`)

	w = env.do(http.MethodPut, "/api/v1/users/bob/role", root, `{"role":"owner"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	w = env.do(http.MethodPut, "/api/v1/users/nobody/role", root, `{"role":"viewer"}`)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestLogout_RevokesToken(t *testing.T) {
	env := newAuthEnv(t, true)
	tok := env.token(t, "alice")

	w := env.do(http.MethodPost, "/api/v1/auth/logout", tok, "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	ttl := env.redis.TTL("revoked:access:" + tok)
	assert.True(t, ttl > 0 && ttl <= time.Hour, "ttl %s", ttl)

	w = env.do(http.MethodGet, "/api/v1/me", tok, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	// revocation is per token
	other := env.token(t, "alice-2")
	w = env.do(http.MethodGet, "/api/v1/me", other, "")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestLogout_WithoutRedis(t *testing.T) {
	env := newAuthEnv(t, false)
	w := env.do(http.MethodPost, "/api/v1/auth/logout", env.token(t, "alice"), "")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestDevToken_RequiresSubject(t *testing.T) {
	env := newAuthEnv(t, false)
	w := env.do(http.MethodPost, "/api/v1/auth/dev-token", "", `{"email":"x@example.com"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
