package handler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/lexdraft/lexdraft/backend/go-services/internal/rbac"
	"github.com/lexdraft/lexdraft/backend/go-services/internal/version"
	"github.com/lexdraft/lexdraft/backend/go-services/internal/version/service"
	"github.com/lexdraft/lexdraft/backend/go-services/pkg/logger"
)

// Presigner hands out temporary download links for archived snapshots.
type Presigner interface {
	PresignSnapshot(ctx context.Context, v *version.DocumentVersion, ttl time.Duration) (string, error)
}

// Authorizer decides per-document access. It reports hidden documents with
// version.ErrNotFound and denied ones with rbac.ErrForbidden.
type Authorizer func(c *gin.Context, documentID string, write bool) error

// CommitHook is called with every version created through the handler.
type CommitHook func(ctx context.Context, v *version.DocumentVersion) error

type Option func(*Handler)

func WithAuthorizer(a Authorizer) Option {
	return func(h *Handler) { h.authorize = a }
}

func WithCommitHook(fn CommitHook) Option {
	return func(h *Handler) { h.onCommit = fn }
}

type Handler struct {
	svc       *service.Service
	presigner Presigner
	linkTTL   time.Duration
	authorize Authorizer
	onCommit  CommitHook
}

func New(svc *service.Service, presigner Presigner, opts ...Option) *Handler {
	h := &Handler{svc: svc, presigner: presigner, linkTTL: 15 * time.Minute}
	for _, o := range opts {
		o(h)
	}
	if h.authorize == nil {
		h.authorize = func(*gin.Context, string, bool) error { return nil }
	}
	return h
}

func (h *Handler) guard(write bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := h.authorize(c, c.Param("id"), write); err != nil {
			writeError(c, err)
			c.Abort()
			return
		}
		c.Next()
	}
}

// Register mounts the history routes under r, which is expected to be the
// authenticated /api/v1 group with rbac.Resolve already applied.
func (h *Handler) Register(r gin.IRouter) {
	read := rbac.Require(rbac.P(rbac.ActionRead, rbac.ResourceDocuments))
	write := rbac.Require(rbac.P(rbac.ActionUpdate, rbac.ResourceDocuments))

	reader, writer := h.guard(false), h.guard(true)

	g := r.Group("/documents/:id/versions")
	g.GET("", read, reader, h.list)
	g.POST("", write, writer, h.create)
	g.GET("/:versionId", read, reader, h.get)
	g.POST("/:versionId/restore", write, writer, h.restore)
	g.GET("/:versionId/download", read, reader, h.download)

	r.GET("/versions/compare", read, h.compare)
}

func actor(c *gin.Context) string {
	if rc, ok := rbac.Current(c); ok {
		return rc.Subject
	}
	return c.GetString("sub")
}

// writeError maps version error kinds to HTTP statuses. Storage failures
// are logged and never echoed to the client.
func writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, version.ErrInvalid):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, version.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	case errors.Is(err, version.ErrConflict):
		c.JSON(http.StatusConflict, gin.H{"error": "version conflict, retry"})
	case errors.Is(err, rbac.ErrForbidden):
		c.JSON(http.StatusForbidden, gin.H{"error": "forbidden"})
	default:
		logger.Errorf("versions %s %s: %v", c.Request.Method, c.FullPath(), err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

func (h *Handler) list(c *gin.Context) {
	list, err := h.svc.ListVersions(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

func (h *Handler) create(c *gin.Context) {
	var req struct {
		Content     string `json:"content"`
		Description string `json:"description"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	ctx := c.Request.Context()
	var v *version.DocumentVersion
	err := h.svc.RetryOnConflict(ctx, func() error {
		var err error
		v, err = h.svc.CreateVersion(ctx, c.Param("id"), req.Content, req.Description, actor(c))
		return err
	})
	h.respondCreated(c, v, err)
}

func (h *Handler) respondCreated(c *gin.Context, v *version.DocumentVersion, err error) {
	if v != nil && h.onCommit != nil {
		if herr := h.onCommit(c.Request.Context(), v); herr != nil {
			logger.Warnf("versions: commit hook for %s v%d: %v", v.DocumentID, v.VersionNumber, herr)
		}
	}
	if errors.Is(err, version.ErrDegradedWrite) && v != nil {
		c.JSON(http.StatusAccepted, gin.H{"version": v, "warning": "change log incomplete"})
		return
	}
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, v)
}

func (h *Handler) get(c *gin.Context) {
	v, err := h.svc.GetVersion(c.Request.Context(), c.Param("versionId"))
	if err != nil {
		writeError(c, err)
		return
	}
	if v.DocumentID != c.Param("id") {
		writeError(c, version.NotFound("get version"))
		return
	}
	c.JSON(http.StatusOK, v)
}

func (h *Handler) restore(c *gin.Context) {
	ctx := c.Request.Context()
	var v *version.DocumentVersion
	err := h.svc.RetryOnConflict(ctx, func() error {
		var err error
		v, err = h.svc.RestoreVersion(ctx, c.Param("id"), c.Param("versionId"), actor(c))
		return err
	})
	h.respondCreated(c, v, err)
}

func (h *Handler) compare(c *gin.Context) {
	cmp, err := h.svc.CompareVersions(c.Request.Context(), c.Query("from"), c.Query("to"))
	if err != nil {
		writeError(c, err)
		return
	}
	for _, docID := range []string{cmp.From.DocumentID, cmp.To.DocumentID} {
		if err := h.authorize(c, docID, false); err != nil {
			writeError(c, err)
			return
		}
	}
	c.JSON(http.StatusOK, cmp)
}

func (h *Handler) download(c *gin.Context) {
	if h.presigner == nil {
		c.JSON(http.StatusNotImplemented, gin.H{"error": "snapshot archive disabled"})
		return
	}
	ctx := c.Request.Context()
	v, err := h.svc.GetVersion(ctx, c.Param("versionId"))
	if err != nil {
		writeError(c, err)
		return
	}
	if v.DocumentID != c.Param("id") {
		writeError(c, version.NotFound("download version"))
		return
	}
	url, err := h.presigner.PresignSnapshot(ctx, &v.DocumentVersion, h.linkTTL)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"url": url, "expiresIn": int(h.linkTTL.Seconds())})
}
