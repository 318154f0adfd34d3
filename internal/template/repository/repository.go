package repository

import (
	"context"

	"github.com/lexdraft/lexdraft/backend/go-services/internal/template"
)

// Repository persists templates together with their fields. Missing
// templates are reported as template.ErrNotFound.
type Repository interface {
	Create(ctx context.Context, t *template.Template) error
	Get(ctx context.Context, id string) (*template.Template, error)
	// List is ordered by CreatedAt, newest first.
	List(ctx context.Context, f template.Filter) ([]*template.Template, error)
	Update(ctx context.Context, t *template.Template) error
	Delete(ctx context.Context, id string) error
}
