package repository

import (
	"context"
	"time"

	"github.com/lexdraft/lexdraft/backend/go-services/internal/document"
)

// Repository persists documents and their share list. Missing documents are
// reported as document.ErrNotFound.
type Repository interface {
	Create(ctx context.Context, d *document.Document) error
	Get(ctx context.Context, id string) (*document.Document, error)
	// List is ordered by CreatedAt, newest first.
	List(ctx context.Context, f document.ListFilter) ([]*document.Document, error)
	// Update writes the descriptive fields. Content and Version are only
	// moved by SetHead.
	Update(ctx context.Context, d *document.Document) error
	// SetHead makes content at version current unless the document already
	// holds that version or a newer one. The check and the write are atomic.
	SetHead(ctx context.Context, id, content string, version int, at time.Time) error
	Delete(ctx context.Context, id string) error

	UpsertPermissions(ctx context.Context, perms []document.Permission) error
	ListPermissions(ctx context.Context, documentID string) ([]document.Permission, error)
	GetPermission(ctx context.Context, documentID, userID string) (*document.Permission, error)
	DeletePermission(ctx context.Context, documentID, userID string) error
}
