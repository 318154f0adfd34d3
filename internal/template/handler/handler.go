package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/lexdraft/lexdraft/backend/go-services/internal/document"
	"github.com/lexdraft/lexdraft/backend/go-services/internal/rbac"
	"github.com/lexdraft/lexdraft/backend/go-services/internal/template"
	"github.com/lexdraft/lexdraft/backend/go-services/internal/template/service"
	"github.com/lexdraft/lexdraft/backend/go-services/internal/version"
	"github.com/lexdraft/lexdraft/backend/go-services/pkg/logger"
)

type Handler struct {
	svc *service.Service
}

func New(svc *service.Service) *Handler {
	return &Handler{svc: svc}
}

type templateRequest struct {
	Name        *string          `json:"name"`
	Description *string          `json:"description"`
	Content     *string          `json:"content"`
	Category    *string          `json:"category"`
	IsPublic    *bool            `json:"isPublic"`
	Tags        []string         `json:"tags"`
	Fields      []template.Field `json:"fields"`
}

func str(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}

// Register mounts the template routes on the authenticated /api/v1 group.
func (h *Handler) Register(r gin.IRouter) {
	perm := func(a rbac.Action) gin.HandlerFunc { return rbac.Require(rbac.P(a, rbac.ResourceTemplates)) }

	g := r.Group("/templates")
	g.GET("", perm(rbac.ActionRead), h.list)
	g.GET("/search", perm(rbac.ActionRead), h.search)
	g.POST("", perm(rbac.ActionCreate), h.create)
	g.GET("/:id", perm(rbac.ActionRead), h.get)
	g.PATCH("/:id", perm(rbac.ActionUpdate), h.update)
	g.DELETE("/:id", perm(rbac.ActionDelete), h.delete)
	g.POST("/:id/duplicate", perm(rbac.ActionCreate), h.duplicate)
	g.POST("/:id/validate", perm(rbac.ActionRead), h.validate)
	g.POST("/:id/documents", perm(rbac.ActionRead),
		rbac.Require(rbac.P(rbac.ActionCreate, rbac.ResourceDocuments)), h.instantiate)
}

func current(c *gin.Context) rbac.Context {
	rc, _ := rbac.Current(c)
	return rc
}

func writeError(c *gin.Context, err error) {
	var verr *template.ValidationError
	switch {
	case errors.As(err, &verr):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "invalid field values", "violations": verr.Violations})
	case errors.Is(err, template.ErrInvalid), errors.Is(err, document.ErrInvalid):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, template.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	case errors.Is(err, template.ErrForbidden), errors.Is(err, rbac.ErrForbidden):
		c.JSON(http.StatusForbidden, gin.H{"error": "forbidden"})
	default:
		logger.Errorf("templates %s %s: %v", c.Request.Method, c.FullPath(), err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

func (h *Handler) list(c *gin.Context) {
	list, err := h.svc.List(c.Request.Context(), current(c), c.Query("category"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

func (h *Handler) search(c *gin.Context) {
	list, err := h.svc.Search(c.Request.Context(), current(c), c.Query("q"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

func (h *Handler) create(c *gin.Context) {
	var req templateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	t, err := h.svc.Create(c.Request.Context(), current(c), service.Input{
		Name:        str(req.Name),
		Description: str(req.Description),
		Content:     str(req.Content),
		Category:    str(req.Category),
		IsPublic:    req.IsPublic != nil && *req.IsPublic,
		Tags:        req.Tags,
		Fields:      req.Fields,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, t)
}

func (h *Handler) get(c *gin.Context) {
	t, err := h.svc.Get(c.Request.Context(), current(c), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, t)
}

func (h *Handler) update(c *gin.Context) {
	var req templateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	t, err := h.svc.Update(c.Request.Context(), current(c), c.Param("id"), service.Patch{
		Name:        req.Name,
		Description: req.Description,
		Content:     req.Content,
		Category:    req.Category,
		IsPublic:    req.IsPublic,
		Tags:        req.Tags,
		Fields:      req.Fields,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, t)
}

func (h *Handler) delete(c *gin.Context) {
	if err := h.svc.Delete(c.Request.Context(), current(c), c.Param("id")); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) duplicate(c *gin.Context) {
	t, err := h.svc.Duplicate(c.Request.Context(), current(c), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, t)
}

type fillRequest struct {
	Values map[string]string `json:"values"`
}

func (h *Handler) validate(c *gin.Context) {
	var req fillRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	violations, err := h.svc.Validate(c.Request.Context(), current(c), c.Param("id"), req.Values)
	if err != nil {
		writeError(c, err)
		return
	}
	if violations == nil {
		violations = []template.Violation{}
	}
	c.JSON(http.StatusOK, gin.H{"valid": len(violations) == 0, "violations": violations})
}

func (h *Handler) instantiate(c *gin.Context) {
	var req fillRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	d, err := h.svc.Instantiate(c.Request.Context(), current(c), c.Param("id"), req.Values)
	if errors.Is(err, version.ErrDegradedWrite) && d != nil {
		c.JSON(http.StatusAccepted, gin.H{"document": d, "warning": "change log incomplete"})
		return
	}
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, d)
}
