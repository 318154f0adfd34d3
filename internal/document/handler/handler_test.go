package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lexdraft/lexdraft/backend/go-services/internal/document"
	"github.com/lexdraft/lexdraft/backend/go-services/internal/document/repository"
	"github.com/lexdraft/lexdraft/backend/go-services/internal/document/service"
	"github.com/lexdraft/lexdraft/backend/go-services/internal/rbac"
	vhandler "github.com/lexdraft/lexdraft/backend/go-services/internal/version/handler"
	vrepo "github.com/lexdraft/lexdraft/backend/go-services/internal/version/repository"
	vservice "github.com/lexdraft/lexdraft/backend/go-services/internal/version/service"
)

var roles = map[string]rbac.Role{"alice": rbac.RoleEditor, "bob": rbac.RoleEditor, "val": rbac.RoleViewer}

func newRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	versions := vservice.NewService(vrepo.NewMemoryStore())
	docs := service.NewService(repository.NewMemoryRepo(), versions)
	h := New(docs)

	g := gin.New()
	api := g.Group("/api/v1")
	api.Use(func(c *gin.Context) {
		sub := c.GetHeader("X-Test-Sub")
		c.Set(rbac.GinKey, rbac.Context{Subject: sub, Role: roles[sub]})
		c.Next()
	})
	h.Register(api)
	vhandler.New(versions, nil,
		vhandler.WithAuthorizer(h.Authorize),
		vhandler.WithCommitHook(docs.Sync),
	).Register(api)
	return g
}

func do(g *gin.Engine, sub, method, path, body string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	req.Header.Set("X-Test-Sub", sub)
	g.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

func TestDocumentHandler_CRUD(t *testing.T) {
	g := newRouter(t)

	w := do(g, "alice", http.MethodPost, "/api/v1/documents", `{"title":"NDA","content":"hi","metadata":{"client":{"kind":"text","value":"ACME"}}}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	d := decode[document.Document](t, w)
	require.NotEmpty(t, d.ID)
	assert.Equal(t, 1, d.Version)

	w = do(g, "alice", http.MethodGet, "/api/v1/documents/"+d.ID, "")
	require.Equal(t, http.StatusOK, w.Code)

	w = do(g, "alice", http.MethodPut, "/api/v1/documents/"+d.ID+"/content", `{"content":"hi there","description":"greet"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 2, decode[document.Document](t, w).Version)

	w = do(g, "alice", http.MethodPatch, "/api/v1/documents/"+d.ID, `{"title":"NDA v2","status":"published"}`)
	require.Equal(t, http.StatusOK, w.Code)
	updated := decode[document.Document](t, w)
	assert.Equal(t, "NDA v2", updated.Title)
	assert.Equal(t, document.StatusPublished, updated.Status)

	w = do(g, "alice", http.MethodGet, "/api/v1/documents", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]document.Document](t, w), 1)

	w = do(g, "alice", http.MethodDelete, "/api/v1/documents/"+d.ID, "")
	require.Equal(t, http.StatusNoContent, w.Code)
	w = do(g, "alice", http.MethodGet, "/api/v1/documents/"+d.ID, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestDocumentHandler_VersionRoutesFollowDocumentAccess(t *testing.T) {
	g := newRouter(t)
	w := do(g, "alice", http.MethodPost, "/api/v1/documents", `{"title":"NDA","content":"one"}`)
	require.Equal(t, http.StatusCreated, w.Code)
	id := decode[document.Document](t, w).ID

	w = do(g, "bob", http.MethodGet, "/api/v1/documents/"+id+"/versions", "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = do(g, "alice", http.MethodPost, "/api/v1/documents/"+id+"/permissions", `{"userIds":["bob"],"permission":"viewer"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]document.Permission](t, w), 1)

	w = do(g, "bob", http.MethodGet, "/api/v1/documents/"+id+"/versions", "")
	assert.Equal(t, http.StatusOK, w.Code)
	w = do(g, "bob", http.MethodPost, "/api/v1/documents/"+id+"/versions", `{"content":"two"}`)
	assert.Equal(t, http.StatusForbidden, w.Code)

	// a version committed through the history routes becomes current
	w = do(g, "alice", http.MethodPost, "/api/v1/documents/"+id+"/versions", `{"content":"two"}`)
	require.Equal(t, http.StatusCreated, w.Code)
	w = do(g, "bob", http.MethodGet, "/api/v1/documents/"+id, "")
	require.Equal(t, http.StatusOK, w.Code)
	d := decode[document.Document](t, w)
	assert.Equal(t, "two", d.Content)
	assert.Equal(t, 2, d.Version)

	w = do(g, "alice", http.MethodDelete, "/api/v1/documents/"+id+"/permissions/bob", "")
	require.Equal(t, http.StatusNoContent, w.Code)
	w = do(g, "bob", http.MethodGet, "/api/v1/documents/"+id, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestDocumentHandler_Errors(t *testing.T) {
	g := newRouter(t)

	w := do(g, "val", http.MethodPost, "/api/v1/documents", `{"title":"x"}`)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = do(g, "alice", http.MethodPost, "/api/v1/documents", `{"title":""}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(g, "alice", http.MethodPost, "/api/v1/documents", `{"title":`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(g, "alice", http.MethodPost, "/api/v1/documents", `{"title":"NDA"}`)
	require.Equal(t, http.StatusCreated, w.Code)
	id := decode[document.Document](t, w).ID

	w = do(g, "alice", http.MethodPost, "/api/v1/documents/"+id+"/restore", `{}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	w = do(g, "alice", http.MethodPost, "/api/v1/documents/"+id+"/restore", `{"versionId":"nope"}`)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = do(g, "alice", http.MethodPost, "/api/v1/documents/"+id+"/permissions", `{"userIds":["bob"],"permission":"owner"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
