package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
)

// fakeToken implements Token
type fakeToken struct {
	data map[string]interface{}
}

func (t *fakeToken) Claims(v interface{}) error {
	if mm, ok := v.(*map[string]interface{}); ok {
		*mm = t.data
		return nil
	}
	return fmt.Errorf("unsupported claims type")
}

// fakeVerifier implements Verifier
type fakeVerifier struct{}

func (f *fakeVerifier) Verify(ctx context.Context, raw string) (Token, error) {
	switch raw {
	case "goodtoken", "revoked-token":
		return &fakeToken{data: map[string]interface{}{"sub": "user1", "email": "test@example.com"}}, nil
	case "anonymous":
		return &fakeToken{data: map[string]interface{}{"email": "nobody@example.com"}}, nil
	}
	return nil, fmt.Errorf("invalid token")
}

type fakeRevocations struct {
	revoked map[string]bool
	err     error
}

func (f *fakeRevocations) IsRevoked(_ context.Context, token string) (bool, error) {
	return f.revoked[token], f.err
}

func serve(t *testing.T, header string, rev Revocations) *httptest.ResponseRecorder {
	t.Helper()
	g := gin.New()
	g.GET("/", AuthMiddleware(&fakeVerifier{}, rev), func(c *gin.Context) {
		claims, ok := c.Get("claims")
		require.True(t, ok)
		resp, _ := json.Marshal(gin.H{"claims": claims, "sub": c.GetString("sub"), "token": c.GetString("token")})
		c.Writer.Write(resp)
	})
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	rw := httptest.NewRecorder()
	g.ServeHTTP(rw, req)
	return rw
}

func TestAuthMiddleware_NoHeader(t *testing.T) {
	require.Equal(t, http.StatusUnauthorized, serve(t, "", nil).Code)
}

func TestAuthMiddleware_InvalidHeader(t *testing.T) {
	require.Equal(t, http.StatusUnauthorized, serve(t, "BadHeader", nil).Code)
	require.Equal(t, http.StatusUnauthorized, serve(t, "Basic abc", nil).Code)
	require.Equal(t, http.StatusUnauthorized, serve(t, "Bearer wrong", nil).Code)
}

func TestAuthMiddleware_ValidToken(t *testing.T) {
	rw := serve(t, "Bearer goodtoken", nil)
	require.Equal(t, http.StatusOK, rw.Code)
	var got map[string]interface{}
	require.NoError(t, json.Unmarshal(rw.Body.Bytes(), &got))
	require.Contains(t, got, "claims")
	require.Equal(t, "user1", got["sub"])
	require.Equal(t, "goodtoken", got["token"])
}

func TestAuthMiddleware_RequiresSubject(t *testing.T) {
	require.Equal(t, http.StatusUnauthorized, serve(t, "Bearer anonymous", nil).Code)
}

func TestAuthMiddleware_RejectsRevokedToken(t *testing.T) {
	rev := &fakeRevocations{revoked: map[string]bool{"revoked-token": true}}
	require.Equal(t, http.StatusUnauthorized, serve(t, "Bearer revoked-token", rev).Code)
	require.Equal(t, http.StatusOK, serve(t, "Bearer goodtoken", rev).Code)
}

func TestAuthMiddleware_RevocationBackendDown(t *testing.T) {
	rev := &fakeRevocations{err: errors.New("redis: connection refused")}
	require.Equal(t, http.StatusServiceUnavailable, serve(t, "Bearer goodtoken", rev).Code)
}
