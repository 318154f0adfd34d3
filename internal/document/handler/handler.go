package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/lexdraft/lexdraft/backend/go-services/internal/document"
	"github.com/lexdraft/lexdraft/backend/go-services/internal/document/service"
	"github.com/lexdraft/lexdraft/backend/go-services/internal/fields"
	"github.com/lexdraft/lexdraft/backend/go-services/internal/rbac"
	"github.com/lexdraft/lexdraft/backend/go-services/internal/version"
	"github.com/lexdraft/lexdraft/backend/go-services/pkg/logger"
)

type Handler struct {
	svc *service.Service
}

func New(svc *service.Service) *Handler {
	return &Handler{svc: svc}
}

// Register mounts the document routes on the authenticated /api/v1 group.
func (h *Handler) Register(r gin.IRouter) {
	perm := func(a rbac.Action) gin.HandlerFunc { return rbac.Require(rbac.P(a, rbac.ResourceDocuments)) }

	g := r.Group("/documents")
	g.GET("", perm(rbac.ActionRead), h.list)
	g.POST("", perm(rbac.ActionCreate), h.create)
	g.GET("/:id", perm(rbac.ActionRead), h.get)
	g.PATCH("/:id", perm(rbac.ActionUpdate), h.updateMeta)
	g.PUT("/:id/content", perm(rbac.ActionUpdate), h.updateContent)
	g.POST("/:id/restore", perm(rbac.ActionUpdate), h.restore)
	g.DELETE("/:id", perm(rbac.ActionDelete), h.delete)

	g.GET("/:id/permissions", perm(rbac.ActionRead), h.listPermissions)
	g.POST("/:id/permissions", perm(rbac.ActionUpdate), h.share)
	g.DELETE("/:id/permissions/:userId", perm(rbac.ActionUpdate), h.unshare)
}

func current(c *gin.Context) rbac.Context {
	rc, _ := rbac.Current(c)
	return rc
}

// Authorize applies document access rules for the version routes, translated
// to the errors the version handler understands.
func (h *Handler) Authorize(c *gin.Context, documentID string, write bool) error {
	err := h.svc.Authorize(c.Request.Context(), current(c), documentID, write)
	switch {
	case errors.Is(err, document.ErrNotFound):
		return version.NotFound("authorize document")
	case errors.Is(err, document.ErrForbidden):
		return rbac.ErrForbidden
	}
	return err
}

func writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, document.ErrInvalid), errors.Is(err, version.ErrInvalid):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, document.ErrNotFound), errors.Is(err, version.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	case errors.Is(err, document.ErrForbidden), errors.Is(err, rbac.ErrForbidden):
		c.JSON(http.StatusForbidden, gin.H{"error": "forbidden"})
	case errors.Is(err, version.ErrConflict):
		c.JSON(http.StatusConflict, gin.H{"error": "version conflict, retry"})
	default:
		logger.Errorf("documents %s %s: %v", c.Request.Method, c.FullPath(), err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

// respond writes d, downgrading to 202 when its version was stored without
// a change log.
func respond(c *gin.Context, status int, d *document.Document, err error) {
	if errors.Is(err, version.ErrDegradedWrite) && d != nil {
		c.JSON(http.StatusAccepted, gin.H{"document": d, "warning": "change log incomplete"})
		return
	}
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(status, d)
}

func (h *Handler) list(c *gin.Context) {
	list, err := h.svc.List(c.Request.Context(), current(c), c.Query("folderId"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

func (h *Handler) create(c *gin.Context) {
	var req struct {
		Title    string          `json:"title"`
		Content  string          `json:"content"`
		FolderID string          `json:"folderId"`
		Status   document.Status `json:"status"`
		Metadata fields.Map      `json:"metadata"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	d, err := h.svc.Create(c.Request.Context(), current(c), service.CreateInput{
		Title:    req.Title,
		Content:  req.Content,
		FolderID: req.FolderID,
		Status:   req.Status,
		Metadata: req.Metadata,
	})
	respond(c, http.StatusCreated, d, err)
}

func (h *Handler) get(c *gin.Context) {
	d, err := h.svc.Get(c.Request.Context(), current(c), c.Param("id"))
	respond(c, http.StatusOK, d, err)
}

func (h *Handler) updateMeta(c *gin.Context) {
	var req struct {
		Title    *string          `json:"title"`
		FolderID *string          `json:"folderId"`
		Status   *document.Status `json:"status"`
		Metadata fields.Map       `json:"metadata"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	d, err := h.svc.UpdateMeta(c.Request.Context(), current(c), c.Param("id"), service.MetaPatch{
		Title:    req.Title,
		FolderID: req.FolderID,
		Status:   req.Status,
		Metadata: req.Metadata,
	})
	respond(c, http.StatusOK, d, err)
}

func (h *Handler) updateContent(c *gin.Context) {
	var req struct {
		Content     string `json:"content"`
		Description string `json:"description"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	d, err := h.svc.UpdateContent(c.Request.Context(), current(c), c.Param("id"), req.Content, req.Description)
	respond(c, http.StatusOK, d, err)
}

func (h *Handler) restore(c *gin.Context) {
	var req struct {
		VersionID string `json:"versionId" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	d, err := h.svc.Restore(c.Request.Context(), current(c), c.Param("id"), req.VersionID)
	respond(c, http.StatusOK, d, err)
}

func (h *Handler) delete(c *gin.Context) {
	if err := h.svc.Delete(c.Request.Context(), current(c), c.Param("id")); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) listPermissions(c *gin.Context) {
	perms, err := h.svc.ListPermissions(c.Request.Context(), current(c), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, perms)
}

func (h *Handler) share(c *gin.Context) {
	var req struct {
		UserIDs    []string       `json:"userIds"`
		Permission document.Level `json:"permission"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	perms, err := h.svc.Share(c.Request.Context(), current(c), c.Param("id"), req.UserIDs, req.Permission)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, perms)
}

func (h *Handler) unshare(c *gin.Context) {
	if err := h.svc.RemovePermission(c.Request.Context(), current(c), c.Param("id"), c.Param("userId")); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
