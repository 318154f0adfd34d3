package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/lexdraft/lexdraft/backend/go-services/internal/document"
	docservice "github.com/lexdraft/lexdraft/backend/go-services/internal/document/service"
	"github.com/lexdraft/lexdraft/backend/go-services/internal/fields"
	"github.com/lexdraft/lexdraft/backend/go-services/internal/rbac"
	"github.com/lexdraft/lexdraft/backend/go-services/internal/template"
	"github.com/lexdraft/lexdraft/backend/go-services/internal/template/repository"
	"github.com/lexdraft/lexdraft/backend/go-services/pkg/logger"
)

// Metadata keys recorded on documents created from a template. Filled values
// are stored under FieldPrefix + field name.
const (
	MetaTemplateID = "template_id"
	FieldPrefix    = "field."
)

// DocumentCreator is the part of the document service Instantiate needs.
type DocumentCreator interface {
	Create(ctx context.Context, actor rbac.Context, in docservice.CreateInput) (*document.Document, error)
}

type Input struct {
	Name        string
	Description string
	Content     string
	Category    string
	IsPublic    bool
	Tags        []string
	Fields      []template.Field
}

// Patch updates a template. Nil fields are left alone; a non-nil Fields
// replaces the whole field list.
type Patch struct {
	Name        *string
	Description *string
	Content     *string
	Category    *string
	IsPublic    *bool
	Tags        []string
	Fields      []template.Field
}

type Service struct {
	repo repository.Repository
	docs DocumentCreator
	now  func() time.Time
	log  *zap.SugaredLogger
}

func NewService(repo repository.Repository, docs DocumentCreator) *Service {
	return &Service{
		repo: repo,
		docs: docs,
		now:  func() time.Time { return time.Now().UTC() },
		log:  logger.Named("templates"),
	}
}

func invalid(reason string) error {
	return fmt.Errorf("%w: %s", template.ErrInvalid, reason)
}

// normalizeFields checks every field and reassigns Order from list position.
func normalizeFields(fs []template.Field) ([]template.Field, error) {
	out := make([]template.Field, len(fs))
	seen := make(map[string]bool, len(fs))
	for i, f := range fs {
		f.Name = strings.TrimSpace(f.Name)
		if err := f.CheckDefinition(); err != nil {
			return nil, err
		}
		if seen[f.Name] {
			return nil, invalid("duplicate field " + f.Name)
		}
		seen[f.Name] = true
		f.Order = i
		out[i] = f
	}
	return out, nil
}

func canSee(actor rbac.Context, t *template.Template) bool {
	return t.IsPublic || t.CreatedBy == actor.Subject || actor.Role == rbac.RoleAdmin
}

func canEdit(actor rbac.Context, t *template.Template) bool {
	return t.CreatedBy == actor.Subject || actor.Role == rbac.RoleAdmin
}

func (s *Service) visibleTo(actor rbac.Context) string {
	if actor.Role == rbac.RoleAdmin {
		return ""
	}
	return actor.Subject
}

func (s *Service) Create(ctx context.Context, actor rbac.Context, in Input) (*template.Template, error) {
	if strings.TrimSpace(in.Name) == "" {
		return nil, invalid("name is required")
	}
	fs, err := normalizeFields(in.Fields)
	if err != nil {
		return nil, err
	}
	now := s.now()
	t := &template.Template{
		ID:          uuid.NewString(),
		Name:        in.Name,
		Description: in.Description,
		Content:     in.Content,
		Category:    in.Category,
		CreatedBy:   actor.Subject,
		IsPublic:    in.IsPublic,
		Tags:        in.Tags,
		Fields:      fs,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if t.Tags == nil {
		t.Tags = []string{}
	}
	if err := s.repo.Create(ctx, t); err != nil {
		return nil, err
	}
	s.log.Infow("template created", "template", t.ID, "fields", len(fs))
	return t, nil
}

// Get hides private templates of other users behind ErrNotFound.
func (s *Service) Get(ctx context.Context, actor rbac.Context, id string) (*template.Template, error) {
	t, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !canSee(actor, t) {
		return nil, template.ErrNotFound
	}
	return t, nil
}

func (s *Service) editable(ctx context.Context, actor rbac.Context, id string) (*template.Template, error) {
	t, err := s.Get(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if !canEdit(actor, t) {
		return nil, template.ErrForbidden
	}
	return t, nil
}

func (s *Service) Update(ctx context.Context, actor rbac.Context, id string, p Patch) (*template.Template, error) {
	t, err := s.editable(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if p.Name != nil {
		if strings.TrimSpace(*p.Name) == "" {
			return nil, invalid("name is required")
		}
		t.Name = *p.Name
	}
	if p.Description != nil {
		t.Description = *p.Description
	}
	if p.Content != nil {
		t.Content = *p.Content
	}
	if p.Category != nil {
		t.Category = *p.Category
	}
	if p.IsPublic != nil {
		t.IsPublic = *p.IsPublic
	}
	if p.Tags != nil {
		t.Tags = p.Tags
	}
	if p.Fields != nil {
		if t.Fields, err = normalizeFields(p.Fields); err != nil {
			return nil, err
		}
	}
	t.UpdatedAt = s.now()
	if err := s.repo.Update(ctx, t); err != nil {
		return nil, err
	}
	return t, nil
}

// List returns visible templates, newest first, optionally in one category.
func (s *Service) List(ctx context.Context, actor rbac.Context, category string) ([]*template.Template, error) {
	return s.repo.List(ctx, template.Filter{Category: category, VisibleTo: s.visibleTo(actor)})
}

// Search matches query against name and description, ignoring case.
func (s *Service) Search(ctx context.Context, actor rbac.Context, query string) ([]*template.Template, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, invalid("query is required")
	}
	return s.repo.List(ctx, template.Filter{Query: query, VisibleTo: s.visibleTo(actor)})
}

// Duplicate copies a visible template into a new private one owned by actor.
func (s *Service) Duplicate(ctx context.Context, actor rbac.Context, id string) (*template.Template, error) {
	orig, err := s.Get(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	now := s.now()
	cp := *orig
	cp.ID = uuid.NewString()
	cp.Name = orig.Name + " (copy)"
	cp.CreatedBy = actor.Subject
	cp.IsPublic = false
	cp.CreatedAt = now
	cp.UpdatedAt = now
	if err := s.repo.Create(ctx, &cp); err != nil {
		return nil, err
	}
	return &cp, nil
}

func (s *Service) Delete(ctx context.Context, actor rbac.Context, id string) error {
	if _, err := s.editable(ctx, actor, id); err != nil {
		return err
	}
	return s.repo.Delete(ctx, id)
}

// Validate checks values against the template's fields without creating
// anything.
func (s *Service) Validate(ctx context.Context, actor rbac.Context, id string, values map[string]string) ([]template.Violation, error) {
	t, err := s.Get(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	return template.ValidateAll(t.Fields, values), nil
}

// Instantiate fills the template with values and creates a document from
// the result. Invalid values fail with a *template.ValidationError. The
// document's metadata records the template id and every filled value.
func (s *Service) Instantiate(ctx context.Context, actor rbac.Context, id string, values map[string]string) (*document.Document, error) {
	t, err := s.Get(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if v := template.ValidateAll(t.Fields, values); len(v) > 0 {
		return nil, &template.ValidationError{Violations: v}
	}

	meta := fields.Map{MetaTemplateID: fields.Text(t.ID)}
	for _, f := range t.Fields {
		raw := strings.TrimSpace(values[f.Name])
		if raw == "" {
			continue
		}
		v, err := fields.Parse(f.Kind, raw)
		if err != nil {
			return nil, invalid(err.Error())
		}
		meta[FieldPrefix+f.Name] = v
	}

	return s.docs.Create(ctx, actor, docservice.CreateInput{
		Title:    fmt.Sprintf("%s - %s", t.Name, s.now().Format(fields.DateLayout)),
		Content:  template.Render(t.Content, t.Fields, values),
		Metadata: meta,
	})
}
