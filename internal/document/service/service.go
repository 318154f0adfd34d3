package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/lexdraft/lexdraft/backend/go-services/internal/document"
	"github.com/lexdraft/lexdraft/backend/go-services/internal/document/repository"
	"github.com/lexdraft/lexdraft/backend/go-services/internal/fields"
	"github.com/lexdraft/lexdraft/backend/go-services/internal/rbac"
	"github.com/lexdraft/lexdraft/backend/go-services/internal/version"
	"github.com/lexdraft/lexdraft/backend/go-services/pkg/logger"
)

const initialDescription = "initial version"

// VersionCommitter is the part of the version service documents depend on.
type VersionCommitter interface {
	CreateVersion(ctx context.Context, documentID, content, description, actor string) (*version.DocumentVersion, error)
	RestoreVersion(ctx context.Context, documentID, versionID, actor string) (*version.DocumentVersion, error)
	RetryOnConflict(ctx context.Context, fn func() error) error
}

type CreateInput struct {
	Title    string
	Content  string
	FolderID string
	Status   document.Status
	Metadata fields.Map
}

// MetaPatch updates everything but the content. Nil fields are left alone.
type MetaPatch struct {
	Title    *string
	FolderID *string
	Status   *document.Status
	Metadata fields.Map
}

type Service struct {
	repo     repository.Repository
	versions VersionCommitter
	now      func() time.Time
	log      *zap.SugaredLogger
}

func NewService(repo repository.Repository, versions VersionCommitter) *Service {
	return &Service{
		repo:     repo,
		versions: versions,
		now:      func() time.Time { return time.Now().UTC() },
		log:      logger.Named("documents"),
	}
}

func invalid(reason string) error {
	return fmt.Errorf("%w: %s", document.ErrInvalid, reason)
}

func isAdmin(actor rbac.Context) bool { return actor.Role == rbac.RoleAdmin }

// authorize checks per-document access on top of the role table: owners and
// admins may do anything, shared users according to their level.
func (s *Service) authorize(ctx context.Context, actor rbac.Context, d *document.Document, write bool) error {
	if isAdmin(actor) || d.OwnerID == actor.Subject {
		return nil
	}
	p, err := s.repo.GetPermission(ctx, d.ID, actor.Subject)
	if errors.Is(err, document.ErrNotFound) {
		// unshared documents are hidden, not forbidden
		return document.ErrNotFound
	}
	if err != nil {
		return err
	}
	if write && p.Level != document.LevelEditor {
		return document.ErrForbidden
	}
	return nil
}

func (s *Service) requireOwner(actor rbac.Context, d *document.Document) error {
	if isAdmin(actor) || d.OwnerID == actor.Subject {
		return nil
	}
	return document.ErrForbidden
}

func (s *Service) load(ctx context.Context, actor rbac.Context, id string, write bool) (*document.Document, error) {
	d, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.authorize(ctx, actor, d, write); err != nil {
		return nil, err
	}
	return d, nil
}

// Authorize reports whether actor may read (or write) the document. The
// version routes use it to guard history access.
func (s *Service) Authorize(ctx context.Context, actor rbac.Context, id string, write bool) error {
	_, err := s.load(ctx, actor, id, write)
	return err
}

// Create stores the document and commits its first version. A degraded
// version write keeps the document and is returned alongside it; any other
// version failure removes the document again.
func (s *Service) Create(ctx context.Context, actor rbac.Context, in CreateInput) (*document.Document, error) {
	if strings.TrimSpace(in.Title) == "" {
		return nil, invalid("title is required")
	}
	status := in.Status
	if status == "" {
		status = document.StatusDraft
	}
	if !status.Valid() {
		return nil, invalid("unknown status " + string(status))
	}
	now := s.now()
	d := &document.Document{
		ID:        uuid.NewString(),
		Title:     in.Title,
		Content:   in.Content,
		OwnerID:   actor.Subject,
		FolderID:  in.FolderID,
		Status:    status,
		Metadata:  in.Metadata,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.repo.Create(ctx, d); err != nil {
		return nil, err
	}

	v, verr := s.versions.CreateVersion(ctx, d.ID, d.Content, initialDescription, actor.Subject)
	if verr != nil && !errors.Is(verr, version.ErrDegradedWrite) {
		if err := s.repo.Delete(ctx, d.ID); err != nil {
			s.log.Errorw("remove document after failed first version", "document", d.ID, "error", err)
		}
		return nil, verr
	}
	if err := s.repo.SetHead(ctx, d.ID, v.Content, v.VersionNumber, d.UpdatedAt); err != nil {
		return nil, err
	}
	d.Version = v.VersionNumber
	s.log.Infow("document created", "document", d.ID, "owner", d.OwnerID)
	return d, verr
}

func (s *Service) Get(ctx context.Context, actor rbac.Context, id string) (*document.Document, error) {
	return s.load(ctx, actor, id, false)
}

// List returns the documents actor can see, newest first. Admins see all.
func (s *Service) List(ctx context.Context, actor rbac.Context, folderID string) ([]*document.Document, error) {
	f := document.ListFilter{FolderID: folderID}
	if !isAdmin(actor) {
		f.AccessibleBy = actor.Subject
	}
	return s.repo.List(ctx, f)
}

// sync moves the document's current content to v unless a newer version
// already got there first.
func (s *Service) sync(ctx context.Context, id string, v *version.DocumentVersion) (*document.Document, error) {
	if err := s.repo.SetHead(ctx, id, v.Content, v.VersionNumber, s.now()); err != nil {
		return nil, err
	}
	return s.repo.Get(ctx, id)
}

// Sync makes v current on its document when v is newer than what the
// document holds. Versions of unknown documents are ignored.
func (s *Service) Sync(ctx context.Context, v *version.DocumentVersion) error {
	_, err := s.sync(ctx, v.DocumentID, v)
	if errors.Is(err, document.ErrNotFound) {
		return nil
	}
	return err
}

func (s *Service) commit(ctx context.Context, id string, fn func() (*version.DocumentVersion, error)) (*document.Document, error) {
	var v *version.DocumentVersion
	err := s.versions.RetryOnConflict(ctx, func() error {
		var err error
		v, err = fn()
		return err
	})
	if err != nil && !errors.Is(err, version.ErrDegradedWrite) {
		return nil, err
	}
	d, serr := s.sync(ctx, id, v)
	if serr != nil {
		return nil, serr
	}
	return d, err
}

// UpdateContent commits content as a new version and makes it current.
func (s *Service) UpdateContent(ctx context.Context, actor rbac.Context, id, content, description string) (*document.Document, error) {
	if _, err := s.load(ctx, actor, id, true); err != nil {
		return nil, err
	}
	return s.commit(ctx, id, func() (*version.DocumentVersion, error) {
		return s.versions.CreateVersion(ctx, id, content, description, actor.Subject)
	})
}

// Restore appends versionID's content as the new head and makes it current.
func (s *Service) Restore(ctx context.Context, actor rbac.Context, id, versionID string) (*document.Document, error) {
	if _, err := s.load(ctx, actor, id, true); err != nil {
		return nil, err
	}
	return s.commit(ctx, id, func() (*version.DocumentVersion, error) {
		return s.versions.RestoreVersion(ctx, id, versionID, actor.Subject)
	})
}

func (s *Service) UpdateMeta(ctx context.Context, actor rbac.Context, id string, p MetaPatch) (*document.Document, error) {
	d, err := s.load(ctx, actor, id, true)
	if err != nil {
		return nil, err
	}
	if p.Title != nil {
		if strings.TrimSpace(*p.Title) == "" {
			return nil, invalid("title is required")
		}
		d.Title = *p.Title
	}
	if p.FolderID != nil {
		d.FolderID = *p.FolderID
	}
	if p.Status != nil {
		if !p.Status.Valid() {
			return nil, invalid("unknown status " + string(*p.Status))
		}
		d.Status = *p.Status
	}
	if len(p.Metadata) > 0 {
		if d.Metadata == nil {
			d.Metadata = fields.Map{}
		}
		for k, v := range p.Metadata {
			d.Metadata[k] = v
		}
	}
	d.UpdatedAt = s.now()
	if err := s.repo.Update(ctx, d); err != nil {
		return nil, err
	}
	return d, nil
}

// Delete removes the document and its share list. Version history stays.
func (s *Service) Delete(ctx context.Context, actor rbac.Context, id string) error {
	d, err := s.load(ctx, actor, id, false)
	if err != nil {
		return err
	}
	if err := s.requireOwner(actor, d); err != nil {
		return err
	}
	return s.repo.Delete(ctx, id)
}

// Share grants level on the document to every user in userIDs, replacing
// any level they had before.
func (s *Service) Share(ctx context.Context, actor rbac.Context, id string, userIDs []string, level document.Level) ([]document.Permission, error) {
	if !level.Valid() {
		return nil, invalid("permission must be viewer or editor")
	}
	if len(userIDs) == 0 {
		return nil, invalid("at least one user is required")
	}
	d, err := s.load(ctx, actor, id, false)
	if err != nil {
		return nil, err
	}
	if err := s.requireOwner(actor, d); err != nil {
		return nil, err
	}
	now := s.now()
	perms := make([]document.Permission, 0, len(userIDs))
	for _, u := range userIDs {
		if u == "" || u == d.OwnerID {
			continue
		}
		perms = append(perms, document.Permission{DocumentID: id, UserID: u, Level: level, CreatedAt: now})
	}
	if err := s.repo.UpsertPermissions(ctx, perms); err != nil {
		return nil, err
	}
	return s.repo.ListPermissions(ctx, id)
}

func (s *Service) ListPermissions(ctx context.Context, actor rbac.Context, id string) ([]document.Permission, error) {
	if _, err := s.load(ctx, actor, id, false); err != nil {
		return nil, err
	}
	return s.repo.ListPermissions(ctx, id)
}

func (s *Service) RemovePermission(ctx context.Context, actor rbac.Context, id, userID string) error {
	d, err := s.load(ctx, actor, id, false)
	if err != nil {
		return err
	}
	if err := s.requireOwner(actor, d); err != nil {
		return err
	}
	return s.repo.DeletePermission(ctx, id, userID)
}
